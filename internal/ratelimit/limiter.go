package ratelimit

import (
	"context"
	"fmt"
	"time"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
)

// Decision is the outcome of one quota check
type Decision struct {
	Count     int64
	Limit     int64
	Allowed   bool
	ResetsAt  time.Time
	Day       string
	Unlimited bool
}

// DailyLimiter enforces a per-tenant API call budget per UTC day
type DailyLimiter struct {
	counter Counter
	now     func() time.Time
}

func NewDailyLimiter(counter Counter) *DailyLimiter {
	return &DailyLimiter{counter: counter, now: time.Now}
}

// Allow counts the call and compares against limit in one atomic step. A
// limit of zero or less means unlimited; the call is still counted so usage
// stays accurate.
func (l *DailyLimiter) Allow(ctx context.Context, tenantID string, limit int64) (Decision, error) {
	now := l.now().UTC()
	day := types.UsageDay(now)
	resetsAt := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	count, err := l.counter.Incr(ctx, Key(tenantID, day), resetsAt)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Count:     count,
		Limit:     limit,
		ResetsAt:  resetsAt,
		Day:       day,
		Unlimited: limit <= 0,
	}
	d.Allowed = d.Unlimited || count <= limit
	return d, nil
}

// Err returns the rate limit error for a rejected decision
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return ierr.NewError("daily api quota exceeded").
		WithHintf("Daily API limit of %d requests reached", d.Limit).
		WithReportableDetails(map[string]any{
			"limit":     d.Limit,
			"resets_at": d.ResetsAt,
		}).
		Mark(ierr.ErrRateLimited)
}

func Key(tenantID, day string) string {
	return fmt.Sprintf("ratelimit:api:%s:%s", tenantID, day)
}
