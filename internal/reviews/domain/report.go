package domain

import (
	"encoding/json"
	"time"
)

// TenantResult is one shop's entry in the run report. A shop with Error set
// stopped early; EmailsSent still lists what went out before it stopped.
type TenantResult struct {
	ShopID      string
	EmailsSent  []string
	AlreadySent []string
	Failures    []OrderFailure
	Error       string
}

// OK reports whether the shop was processed to the end.
func (r TenantResult) OK() bool { return r.Error == "" }

// MarshalJSON emits {"shopId","emailsSent"} for a processed shop and
// {"shopId","error"} for a failed one, plus the optional detail lists.
func (r TenantResult) MarshalJSON() ([]byte, error) {
	out := map[string]any{"shopId": r.ShopID}
	if r.Error == "" || len(r.EmailsSent) > 0 {
		sent := r.EmailsSent
		if sent == nil {
			sent = []string{}
		}
		out["emailsSent"] = sent
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if len(r.AlreadySent) > 0 {
		out["skipped"] = r.AlreadySent
	}
	if len(r.Failures) > 0 {
		out["failures"] = r.Failures
	}
	return json.Marshal(out)
}

// Report is the result of one dispatch run.
type Report struct {
	RunID      string         `json:"runId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Results    []TenantResult `json:"results"`
}

// SentCount totals emails sent across all shops.
func (r Report) SentCount() int {
	n := 0
	for _, t := range r.Results {
		n += len(t.EmailsSent)
	}
	return n
}
