package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voice2post/voice2post/internal/metrics"
	"github.com/voice2post/voice2post/internal/models"
)

// ErrQuotaCheckFailed wraps every backend failure. Callers must treat it
// as a rejection.
var ErrQuotaCheckFailed = errors.New("quota check failed")

type Status struct {
	CanUse         bool        `json:"canUse"`
	Plan           models.Plan `json:"plan"`
	UsageCount     int         `json:"usageCount"`
	UsageResetDate string      `json:"usageResetDate"`
	MaxUsage       int         `json:"maxUsage"`
	Remaining      int         `json:"remaining"`
}

type Ledger interface {
	// CanPerform reports whether userID may run one more action now.
	CanPerform(ctx context.Context, userID string) (bool, error)
	// Record counts one action for userID.
	Record(ctx context.Context, userID string) error
	Status(ctx context.Context, userID string) (*Status, error)
}

func newStatus(p *models.Profile, now time.Time) *Status {
	canUse := Allowed(p, now)
	return &Status{
		CanUse:         canUse,
		Plan:           p.Plan,
		UsageCount:     p.UsageCount,
		UsageResetDate: DayStartUTC(p.UsageResetDate).Format(time.DateOnly),
		MaxUsage:       Limit(p.Plan),
		Remaining:      Remaining(p),
	}
}

func quotaFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrQuotaCheckFailed, op, err)
}

func observeCheck(ledger string, start time.Time, ok bool, err error) {
	metrics.QuotaCheckDuration.WithLabelValues(ledger).Observe(time.Since(start).Seconds())
	result := "denied"
	switch {
	case err != nil:
		result = "error"
	case ok:
		result = "allowed"
	}
	metrics.QuotaChecks.WithLabelValues(ledger, result).Inc()
}

func observeRecord(ledger string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.UsageRecorded.WithLabelValues(ledger, result).Inc()
}
