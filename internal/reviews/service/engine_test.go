package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/commerce/domain"
	edomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/email/domain"
	evdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/events/domain"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/domain"
	sessdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/domain"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
	ssvc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/service"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time { return testNow.Add(-time.Duration(d)*24*time.Hour - time.Hour) }

// --- fakes ---

type settingsRepo struct {
	rows []sdomain.ReviewSettings
	err  error
}

func (r *settingsRepo) ListEnabled(ctx context.Context) ([]sdomain.ReviewSettings, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []sdomain.ReviewSettings
	for _, s := range r.rows {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}
func (r *settingsRepo) GetReview(ctx context.Context, shopID string) (sdomain.ReviewSettings, error) {
	return sdomain.ReviewSettings{}, sdomain.ErrNotFound
}
func (r *settingsRepo) UpsertReview(ctx context.Context, s sdomain.ReviewSettings) error { return nil }
func (r *settingsRepo) Get(ctx context.Context, key string, shopID *string) (string, bool, error) {
	return "", false, nil
}
func (r *settingsRepo) Upsert(ctx context.Context, key string, shopID *string, value string, secret bool) error {
	return nil
}

type fakeCreds struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func (f *fakeCreds) Offline(ctx context.Context, shopID string) (sessdomain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, shopID)
	if err := f.errs[shopID]; err != nil {
		return sessdomain.Credential{}, err
	}
	return sessdomain.Credential{ShopID: shopID, AccessToken: "tok-" + shopID}, nil
}

type fakeFetcher struct {
	mu     sync.Mutex
	orders map[string][]cdomain.Order
	errs   map[string]error
	panics map[string]bool
	calls  []string
}

func (f *fakeFetcher) RecentOrders(ctx context.Context, shopID, accessToken string, limit int) ([]cdomain.Order, error) {
	f.mu.Lock()
	f.calls = append(f.calls, shopID)
	f.mu.Unlock()
	if f.panics[shopID] {
		panic("boom")
	}
	if accessToken != "tok-"+shopID {
		return nil, fmt.Errorf("wrong token %q", accessToken)
	}
	if err := f.errs[shopID]; err != nil {
		return nil, err
	}
	return f.orders[shopID], nil
}

func (f *fakeFetcher) called(shopID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == shopID {
			return true
		}
	}
	return false
}

type sentMsg struct {
	shop string
	msg  edomain.Message
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentMsg
	failTo map[string]bool
	onSend func()
}

func (f *fakeSender) Send(ctx context.Context, shopID string, msg edomain.Message) (string, error) {
	if f.onSend != nil {
		f.onSend()
	}
	if f.failTo[msg.To] {
		return "", &edomain.DeliveryError{Provider: "fake", Err: errors.New("mailbox unavailable")}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{shop: shopID, msg: msg})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type memSent struct {
	mu          sync.Mutex
	rows        map[string]domain.SentRecord
	recordFails int
	recordErr   error
	existsErr   error
	records     int
}

func newMemSent() *memSent { return &memSent{rows: map[string]domain.SentRecord{}} }

func key(shop, order string) string { return shop + "|" + order }

func (m *memSent) Exists(ctx context.Context, shopID, orderID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.rows[key(shopID, orderID)]
	return ok, nil
}

func (m *memSent) Record(ctx context.Context, rec domain.SentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records++
	if m.recordErr != nil {
		return m.recordErr
	}
	if m.recordFails > 0 {
		m.recordFails--
		return errors.New("connection reset")
	}
	if _, ok := m.rows[key(rec.ShopID, rec.OrderID)]; ok {
		return domain.ErrDuplicateRecord
	}
	m.rows[key(rec.ShopID, rec.OrderID)] = rec
	return nil
}

func (m *memSent) has(shop, order string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[key(shop, order)]
	return ok
}

func (m *memSent) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type capturePub struct {
	mu     sync.Mutex
	events []evdomain.Event
}

func (p *capturePub) Publish(ctx context.Context, e evdomain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// --- helpers ---

func shop(id string, days int) sdomain.ReviewSettings {
	return sdomain.ReviewSettings{
		ShopID:        id,
		Enabled:       true,
		DaysToWait:    days,
		EmailTemplate: "<p>Hi {{customer_name}}, how do you like {{product_name}} from {{order_number}}?</p>",
		SubjectLine:   "Review {{order_number}}",
	}
}

func order(id string, created time.Time, email string) cdomain.Order {
	return cdomain.Order{
		ID:        id,
		Name:      "#" + id,
		CreatedAt: created,
		Customer:  cdomain.Customer{FirstName: "Ada", LastName: "Lovelace", Email: email},
		LineItems: []cdomain.LineItem{{Title: "Mug"}},
	}
}

type harness struct {
	settings *settingsRepo
	creds    *fakeCreds
	fetcher  *fakeFetcher
	sender   *fakeSender
	sent     *memSent
	pub      *capturePub
}

func newHarness(rows ...sdomain.ReviewSettings) *harness {
	return &harness{
		settings: &settingsRepo{rows: rows},
		creds:    &fakeCreds{errs: map[string]error{}},
		fetcher:  &fakeFetcher{orders: map[string][]cdomain.Order{}, errs: map[string]error{}, panics: map[string]bool{}},
		sender:   &fakeSender{failTo: map[string]bool{}},
		sent:     newMemSent(),
		pub:      &capturePub{},
	}
}

func (h *harness) engine(opts Options) *Engine {
	e := New(ssvc.New(h.settings), h.creds, h.fetcher, h.sender, h.sent, opts)
	e.SetClock(func() time.Time { return testNow })
	e.SetPublisher(h.pub)
	return e
}

func resultFor(t *testing.T, r domain.Report, shopID string) domain.TenantResult {
	t.Helper()
	for _, res := range r.Results {
		if res.ShopID == shopID {
			return res
		}
	}
	t.Fatalf("no result for %s", shopID)
	return domain.TenantResult{}
}

// --- tests ---

func TestRun_SendsOnceForDueOrder(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{order("1001", daysAgo(7), "ada@example.com")}

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.True(t, res.OK())
	assert.Equal(t, []string{"1001"}, res.EmailsSent)
	require.Equal(t, 1, h.sender.count())
	got := h.sender.sent[0]
	assert.Equal(t, "a.myshopify.com", got.shop)
	assert.Equal(t, "ada@example.com", got.msg.To)
	assert.Equal(t, "Review #1001", got.msg.Subject)
	assert.Equal(t, "<p>Hi Ada Lovelace, how do you like Mug from #1001?</p>", got.msg.HTML)
	assert.True(t, h.sent.has("a.myshopify.com", "1001"))
	assert.Equal(t, 1, h.sent.len())

	require.Len(t, h.pub.events, 1)
	assert.Equal(t, evdomain.TypeReviewEmailSent, h.pub.events[0].Type)
	assert.Equal(t, "msg-1", h.pub.events[0].Meta["message_id"])
	assert.Equal(t, "msg-1", h.sent.rows[key("a.myshopify.com", "1001")].MessageID)
}

func TestRun_ExistingRecordSkipsOrder(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{order("1001", daysAgo(7), "ada@example.com")}
	h.sent.rows[key("a.myshopify.com", "1001")] = domain.SentRecord{ShopID: "a.myshopify.com", OrderID: "1001"}

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.Empty(t, res.EmailsSent)
	assert.Equal(t, []string{"1001"}, res.AlreadySent)
	assert.Zero(t, h.sender.count())
	assert.Zero(t, h.sent.records)
}

func TestRun_SecondRunSendsNothing(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{
		order("1001", daysAgo(7), "ada@example.com"),
		order("1002", daysAgo(7), "bob@example.com"),
	}
	e := h.engine(Options{})

	first, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.SentCount())

	second, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.SentCount())
	assert.Equal(t, 2, h.sender.count())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_DisabledShopNeverQueried(t *testing.T) {
	off := shop("off.myshopify.com", 7)
	off.Enabled = false
	h := newHarness(shop("on.myshopify.com", 7), off)
	h.fetcher.orders["off.myshopify.com"] = []cdomain.Order{order("9", daysAgo(7), "x@example.com")}

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "on.myshopify.com", report.Results[0].ShopID)
	assert.False(t, h.fetcher.called("off.myshopify.com"))
	assert.NotContains(t, h.creds.calls, "off.myshopify.com")
}

func TestRun_CredentialFailureIsIsolated(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7), shop("b.myshopify.com", 7))
	h.creds.errs["a.myshopify.com"] = fmt.Errorf("a.myshopify.com: %w", sessdomain.ErrCredentialNotFound)
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{order("1", daysAgo(7), "a@example.com")}
	h.fetcher.orders["b.myshopify.com"] = []cdomain.Order{order("2", daysAgo(7), "b@example.com")}

	report, err := h.engine(Options{Concurrency: 2}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	a := resultFor(t, report, "a.myshopify.com")
	assert.False(t, a.OK())
	assert.Contains(t, a.Error, "no offline session found")
	assert.Empty(t, a.EmailsSent)
	assert.False(t, h.fetcher.called("a.myshopify.com"))

	b := resultFor(t, report, "b.myshopify.com")
	assert.True(t, b.OK())
	assert.Equal(t, []string{"2"}, b.EmailsSent)
}

func TestRun_FetchFailureIsIsolated(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7), shop("b.myshopify.com", 7))
	h.fetcher.errs["a.myshopify.com"] = &cdomain.FetchError{ShopID: "a.myshopify.com", Status: 401, Err: errors.New("unauthorized")}
	h.fetcher.orders["b.myshopify.com"] = []cdomain.Order{order("2", daysAgo(7), "b@example.com")}

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, resultFor(t, report, "a.myshopify.com").Error, "status 401")
	assert.Equal(t, []string{"2"}, resultFor(t, report, "b.myshopify.com").EmailsSent)
}

func TestRun_DeliveryFailureContinuesWithOtherOrders(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{
		order("1", daysAgo(7), "bounce@example.com"),
		order("2", daysAgo(7), "ok@example.com"),
	}
	h.sender.failTo["bounce@example.com"] = true

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.True(t, res.OK())
	assert.Equal(t, []string{"2"}, res.EmailsSent)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "1", res.Failures[0].OrderID)
	assert.Equal(t, domain.OutcomeDeliveryFailed, res.Failures[0].Outcome)
	assert.False(t, h.sent.has("a.myshopify.com", "1"))
	assert.True(t, h.sent.has("a.myshopify.com", "2"))

	// Not recorded, so the next run tries again.
	delete(h.sender.failTo, "bounce@example.com")
	again, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, resultFor(t, again, "a.myshopify.com").EmailsSent)
}

func TestRun_ExactPolicySkipsOrdersNotExactlyDue(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{
		order("young", daysAgo(6), "a@example.com"),
		order("due", daysAgo(7), "b@example.com"),
		order("late", daysAgo(8), "c@example.com"),
	}

	report, err := h.engine(Options{Policy: domain.PolicyExact}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"due"}, resultFor(t, report, "a.myshopify.com").EmailsSent)
	assert.False(t, h.sent.has("a.myshopify.com", "late"))
}

func TestRun_AnyPolicySendsEveryFetchedOrder(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{
		order("new", testNow.Add(-time.Hour), "a@example.com"),
		order("old", daysAgo(30), "b@example.com"),
	}

	report, err := h.engine(Options{Policy: domain.PolicyAny}).Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"new", "old"}, resultFor(t, report, "a.myshopify.com").EmailsSent)
}

func TestRun_OrderWithoutEmailIsReported(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	noMail := order("1", daysAgo(7), "")
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{noMail, order("2", daysAgo(7), "ok@example.com")}

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.Equal(t, []string{"2"}, res.EmailsSent)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, domain.OutcomeNoEmail, res.Failures[0].Outcome)
	assert.Equal(t, 1, h.sender.count())
	assert.False(t, h.sent.has("a.myshopify.com", "1"))
}

func TestRun_FallbackProductName(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	o := order("1", daysAgo(7), "a@example.com")
	o.LineItems = nil
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{o}

	_, err := h.engine(Options{FallbackProduct: "your order"}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, h.sender.count())
	assert.Contains(t, h.sender.sent[0].msg.HTML, "how do you like your order from #1")
}

func TestRun_RecordRetriesTransientFailures(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{order("1", daysAgo(7), "a@example.com")}
	h.sent.recordFails = 2

	report, err := h.engine(Options{RecordAttempts: 3, RecordBackoff: time.Millisecond}).Run(context.Background())
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.True(t, res.OK())
	assert.Equal(t, []string{"1"}, res.EmailsSent)
	assert.Equal(t, 3, h.sent.records)
	assert.True(t, h.sent.has("a.myshopify.com", "1"))
}

func TestRun_RecordFailureStopsShop(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7), shop("b.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{
		order("1", daysAgo(7), "a@example.com"),
		order("2", daysAgo(7), "b@example.com"),
	}
	h.sent.recordErr = errors.New("database is down")

	report, err := h.engine(Options{RecordAttempts: 2, RecordBackoff: time.Millisecond}).Run(context.Background())
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.False(t, res.OK())
	assert.Contains(t, res.Error, "not recorded")
	assert.Equal(t, []string{"1"}, res.EmailsSent)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, domain.OutcomeRecordFailed, res.Failures[0].Outcome)
	assert.Equal(t, 1, h.sender.count(), "processing stops after a record failure")
	assert.Equal(t, 2, h.sent.records)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"emailsSent":["1"]`)
	assert.Contains(t, string(out), `"error":`)
}

func TestRun_LookupFailureStopsShop(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{order("1", daysAgo(7), "a@example.com")}
	h.sent.existsErr = errors.New("timeout")

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.Contains(t, res.Error, "check sent record for order 1")
	assert.Zero(t, h.sender.count())
}

func TestRun_LostRaceIsBenign(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{order("1", daysAgo(7), "a@example.com")}
	// Another run records the order between our lookup and our insert.
	h.sender.onSend = func() {
		h.sent.mu.Lock()
		h.sent.rows[key("a.myshopify.com", "1")] = domain.SentRecord{ShopID: "a.myshopify.com", OrderID: "1", MessageID: "other"}
		h.sent.mu.Unlock()
	}

	report, err := h.engine(Options{RecordAttempts: 3}).Run(context.Background())
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.True(t, res.OK())
	assert.Equal(t, []string{"1"}, res.EmailsSent)
	assert.Equal(t, 1, h.sent.len())
	assert.Equal(t, 1, h.sent.records, "duplicates are not retried")
	assert.Equal(t, "other", h.sent.rows[key("a.myshopify.com", "1")].MessageID)
}

func TestRun_ConcurrentRunsKeepOneRecordPerOrder(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7), shop("b.myshopify.com", 7))
	for _, s := range []string{"a.myshopify.com", "b.myshopify.com"} {
		for i := 0; i < 5; i++ {
			h.fetcher.orders[s] = append(h.fetcher.orders[s], order(fmt.Sprintf("%s-%d", s, i), daysAgo(7), "c@example.com"))
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine(Options{Concurrency: 2}).Run(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, h.sent.len())
	assert.GreaterOrEqual(t, h.sender.count(), 10)
}

func TestRun_PanicInShopIsRecovered(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7), shop("b.myshopify.com", 7))
	h.fetcher.panics["a.myshopify.com"] = true
	h.fetcher.orders["b.myshopify.com"] = []cdomain.Order{order("2", daysAgo(7), "b@example.com")}

	report, err := h.engine(Options{Concurrency: 2}).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, resultFor(t, report, "a.myshopify.com").Error, "internal error")
	assert.Equal(t, []string{"2"}, resultFor(t, report, "b.myshopify.com").EmailsSent)
}

func TestRun_InvalidSettingsReportedAsShopError(t *testing.T) {
	bad := shop("a.myshopify.com", 0)
	h := newHarness(bad)

	report, err := h.engine(Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, resultFor(t, report, "a.myshopify.com").Error, "invalid review settings")
	assert.Empty(t, h.creds.calls)
}

func TestRun_TenantLoadFailureFailsRun(t *testing.T) {
	h := newHarness()
	h.settings.err = errors.New("connection refused")

	_, err := h.engine(Options{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load enabled shops")
}

func TestRun_CancelledContextSendsNothing(t *testing.T) {
	h := newHarness(shop("a.myshopify.com", 7))
	h.fetcher.orders["a.myshopify.com"] = []cdomain.Order{order("1", daysAgo(7), "a@example.com")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.engine(Options{}).Run(ctx)
	require.NoError(t, err)
	res := resultFor(t, report, "a.myshopify.com")
	assert.Contains(t, res.Error, "context canceled")
	assert.Zero(t, h.sender.count())
	assert.Zero(t, h.sent.len())
}

func TestRun_ResultsOrderedByShop(t *testing.T) {
	h := newHarness(shop("c.myshopify.com", 7), shop("a.myshopify.com", 7), shop("b.myshopify.com", 7))

	report, err := h.engine(Options{Concurrency: 3}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, "a.myshopify.com", report.Results[0].ShopID)
	assert.Equal(t, "b.myshopify.com", report.Results[1].ShopID)
	assert.Equal(t, "c.myshopify.com", report.Results[2].ShopID)
	for _, r := range report.Results {
		assert.True(t, r.OK())
		assert.Empty(t, r.EmailsSent)
	}
}
