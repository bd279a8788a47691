package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Policy decides which orders are due for a review email.
type Policy string

const (
	// PolicyExact sends on the day the order is exactly DaysToWait days old.
	// A scheduler running less often than daily will miss orders.
	PolicyExact Policy = "exact"
	// PolicyAny treats every fetched order as due, ignoring DaysToWait. It
	// matches the legacy behaviour and exists only to reproduce it.
	PolicyAny Policy = "any"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyExact, "":
		return PolicyExact, nil
	case PolicyAny:
		return PolicyAny, nil
	default:
		return "", fmt.Errorf("unknown eligibility policy %q", s)
	}
}

// DaysSince is floor((now - createdAt) / 24h). Orders from the future give
// negative values.
func DaysSince(now, createdAt time.Time) int {
	return int(math.Floor(float64(now.Sub(createdAt)) / float64(24*time.Hour)))
}

// Eligible reports whether an order created at createdAt is due today.
func (p Policy) Eligible(now, createdAt time.Time, daysToWait int) bool {
	if p == PolicyAny {
		return true
	}
	return DaysSince(now, createdAt) == daysToWait
}
