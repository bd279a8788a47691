package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	cdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/commerce/domain"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	edomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/email/domain"
	evdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/events/domain"
	evsvc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/events/service"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/metrics"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/platform/validation"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/domain"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
)

// Options tunes a dispatch run. Zero values fall back to the defaults used by
// config.Load.
type Options struct {
	Policy          domain.Policy
	Concurrency     int
	TenantTimeout   time.Duration
	CallTimeout     time.Duration
	OrderWindow     int
	FallbackProduct string
	RecordAttempts  int
	RecordBackoff   time.Duration
}

// OptionsFromConfig maps the REVIEW_* settings onto Options.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	p, err := domain.ParsePolicy(cfg.ReviewEligibilityMode)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Policy:          p,
		Concurrency:     cfg.ReviewConcurrency,
		TenantTimeout:   cfg.ReviewTenantTimeout,
		CallTimeout:     cfg.ReviewCallTimeout,
		OrderWindow:     cfg.OrderWindow,
		FallbackProduct: cfg.ReviewFallbackProduct,
		RecordAttempts:  cfg.ReviewRecordAttempts,
		RecordBackoff:   cfg.ReviewRecordBackoff,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.Policy == "" {
		o.Policy = domain.PolicyExact
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TenantTimeout <= 0 {
		o.TenantTimeout = 5 * time.Minute
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 15 * time.Second
	}
	if o.OrderWindow <= 0 {
		o.OrderWindow = 50
	}
	if strings.TrimSpace(o.FallbackProduct) == "" {
		o.FallbackProduct = "your recent purchase"
	}
	if o.RecordAttempts <= 0 {
		o.RecordAttempts = 1
	}
	if o.RecordBackoff < 0 {
		o.RecordBackoff = 0
	}
	return o
}

// Engine runs one review-email pass over every enabled shop. Shops are
// processed independently; a failure in one never affects another.
type Engine struct {
	tenants domain.TenantSource
	creds   domain.CredentialResolver
	orders  domain.OrderFetcher
	sender  edomain.Sender
	sent    domain.SentStore
	opts    Options

	pub evdomain.Publisher
	log zerolog.Logger
	now func() time.Time
}

func New(tenants domain.TenantSource, creds domain.CredentialResolver, orders domain.OrderFetcher, sender edomain.Sender, sent domain.SentStore, opts Options) *Engine {
	return &Engine{
		tenants: tenants,
		creds:   creds,
		orders:  orders,
		sender:  sender,
		sent:    sent,
		opts:    opts.withDefaults(),
		pub:     evsvc.NewLogger(zerolog.Nop()),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
}

// SetPublisher overrides the event publisher.
func (e *Engine) SetPublisher(p evdomain.Publisher) { e.pub = p }

// SetLogger injects a structured logger.
func (e *Engine) SetLogger(l zerolog.Logger) { e.log = l }

// SetClock replaces the wall clock used for eligibility and timestamps.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Run processes every enabled shop and returns the per-shop report. The error
// is non-nil only when the list of shops could not be loaded.
func (e *Engine) Run(ctx context.Context) (domain.Report, error) {
	started := time.Now()
	report := domain.Report{RunID: uuid.NewString(), StartedAt: e.now()}
	log := e.log.With().Str("run_id", report.RunID).Logger()

	shops, err := e.tenants.EnabledShops(ctx)
	if err != nil {
		metrics.IncRun(false, time.Since(started).Seconds())
		log.Error().Err(err).Msg("load enabled shops")
		return report, fmt.Errorf("load enabled shops: %w", err)
	}
	log.Info().Int("shops", len(shops)).Msg("review email run started")

	// Each task owns results[i]; tasks never return errors so one shop
	// cannot cancel the others.
	results := make([]domain.TenantResult, len(shops))
	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i, s := range shops {
		i, s := i, s
		g.Go(func() error {
			results[i] = e.runTenant(ctx, log, s)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(i, j int) bool { return results[i].ShopID < results[j].ShopID })
	report.Results = results
	report.FinishedAt = e.now()

	metrics.IncRun(true, time.Since(started).Seconds())
	log.Info().
		Int("shops", len(results)).
		Int("emails_sent", report.SentCount()).
		Dur("took", time.Since(started)).
		Msg("review email run finished")
	return report, nil
}

func (e *Engine) runTenant(ctx context.Context, log zerolog.Logger, s sdomain.ReviewSettings) (res domain.TenantResult) {
	res.ShopID = s.ShopID
	log = log.With().Str("shop_id", s.ShopID).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("shop processing panicked")
			res.Error = fmt.Sprintf("internal error: %v", r)
			metrics.IncTenant("panic")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, e.opts.TenantTimeout)
	defer cancel()

	label, err := e.processTenant(ctx, log, s, &res)
	metrics.IncTenant(label)
	if err != nil {
		res.Error = err.Error()
		log.Warn().Err(err).Str("result", label).Int("emails_sent", len(res.EmailsSent)).Msg("shop stopped early")
		return res
	}
	log.Info().Int("emails_sent", len(res.EmailsSent)).Int("skipped", len(res.AlreadySent)).Msg("shop processed")
	return res
}

// processTenant fills res and returns a metrics label plus the error that
// stopped the shop, if any.
func (e *Engine) processTenant(ctx context.Context, log zerolog.Logger, s sdomain.ReviewSettings, res *domain.TenantResult) (string, error) {
	if err := validation.Struct(s); err != nil {
		return "invalid", fmt.Errorf("invalid review settings: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	cred, err := e.creds.Offline(cctx, s.ShopID)
	cancel()
	if err != nil {
		return "credential", err
	}

	fctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	orders, err := e.orders.RecentOrders(fctx, s.ShopID, cred.AccessToken, e.opts.OrderWindow)
	cancel()
	if err != nil {
		return "fetch", err
	}

	now := e.now()
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return "cancelled", fmt.Errorf("stopped before order %s: %w", o.ID, err)
		}
		olog := log.With().Str("order_id", o.ID).Logger()
		outcome, err := e.processOrder(ctx, olog, s, o, now)
		if outcome == "" {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "cancelled", err
			}
			return "lookup", err
		}
		metrics.IncOrder(string(outcome))

		switch outcome {
		case domain.OutcomeSent, domain.OutcomeDuplicate:
			res.EmailsSent = append(res.EmailsSent, o.ID)
		case domain.OutcomeAlreadySent:
			res.AlreadySent = append(res.AlreadySent, o.ID)
		case domain.OutcomeNoEmail, domain.OutcomeDeliveryFailed:
			res.Failures = append(res.Failures, domain.OrderFailure{OrderID: o.ID, Outcome: outcome, Error: err.Error()})
		case domain.OutcomeRecordFailed:
			// The email went out; list it, then stop so the shop shows up as failed.
			res.EmailsSent = append(res.EmailsSent, o.ID)
			res.Failures = append(res.Failures, domain.OrderFailure{OrderID: o.ID, Outcome: outcome, Error: err.Error()})
			return "record", err
		}
	}
	return "ok", nil
}

var errNoEmail = errors.New("order has no customer email")

// processOrder walks one order through eligibility, dedup, render, send and
// record. An empty outcome means the shop must stop.
func (e *Engine) processOrder(ctx context.Context, log zerolog.Logger, s sdomain.ReviewSettings, o cdomain.Order, now time.Time) (domain.Outcome, error) {
	if !e.opts.Policy.Eligible(now, o.CreatedAt, s.DaysToWait) {
		return domain.OutcomeNotDue, nil
	}

	lctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	exists, err := e.sent.Exists(lctx, s.ShopID, o.ID)
	cancel()
	if err != nil {
		return "", fmt.Errorf("check sent record for order %s: %w", o.ID, err)
	}
	if exists {
		log.Debug().Msg("review email already sent")
		return domain.OutcomeAlreadySent, nil
	}

	to := strings.TrimSpace(o.Customer.Email)
	if to == "" {
		log.Warn().Msg("order has no customer email")
		return domain.OutcomeNoEmail, errNoEmail
	}

	vals := Values{
		CustomerName: o.Customer.FullName(),
		OrderNumber:  o.Name,
		ProductName:  o.ProductTitle(e.opts.FallbackProduct),
	}
	msg := edomain.Message{
		To:      to,
		Subject: Render(s.SubjectLine, vals),
		HTML:    Render(s.EmailTemplate, vals),
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	sctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	messageID, err := e.sender.Send(sctx, s.ShopID, msg)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("review email delivery failed")
		e.publish(ctx, evdomain.Event{
			Type:    evdomain.TypeReviewEmailFailed,
			ShopID:  s.ShopID,
			OrderID: o.ID,
			Meta:    map[string]string{"error": err.Error()},
			Time:    e.now(),
		})
		return domain.OutcomeDeliveryFailed, err
	}

	rec := domain.SentRecord{ShopID: s.ShopID, OrderID: o.ID, MessageID: messageID, SentAt: e.now()}
	// The send already happened, so the record is written even if the run
	// is being cancelled.
	err = e.record(context.WithoutCancel(ctx), rec)
	switch {
	case errors.Is(err, domain.ErrDuplicateRecord):
		log.Warn().Msg("sent record already written by a concurrent run")
		return domain.OutcomeDuplicate, nil
	case err != nil:
		log.Error().Err(err).Msg("review email sent but not recorded")
		return domain.OutcomeRecordFailed, &domain.RecordError{ShopID: s.ShopID, OrderID: o.ID, Err: err}
	}

	log.Info().Str("message_id", messageID).Msg("review email sent")
	e.publish(ctx, evdomain.Event{
		Type:    evdomain.TypeReviewEmailSent,
		ShopID:  s.ShopID,
		OrderID: o.ID,
		Meta:    map[string]string{"message_id": messageID},
		Time:    rec.SentAt,
	})
	return domain.OutcomeSent, nil
}

// record writes the sent record, retrying transient failures. A duplicate is
// final and returned as ErrDuplicateRecord.
func (e *Engine) record(ctx context.Context, rec domain.SentRecord) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.opts.RecordBackoff
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.opts.RecordAttempts-1)), ctx)

	return backoff.Retry(func() error {
		rctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		defer cancel()
		err := e.sent.Record(rctx, rec)
		if errors.Is(err, domain.ErrDuplicateRecord) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (e *Engine) publish(ctx context.Context, ev evdomain.Event) {
	if e.pub == nil {
		return
	}
	_ = e.pub.Publish(context.WithoutCancel(ctx), ev)
}
