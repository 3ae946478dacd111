// Package usage decides whether a user may run another transcription or
// generation today and records the actions they take.
package usage

import (
	"time"

	"github.com/voice2post/voice2post/internal/models"
)

const (
	FreeDailyLimit = 3
	// Unlimited is the ceiling reported for plus users.
	Unlimited = -1
)

func Limit(plan models.Plan) int {
	if plan == models.PlanPlus {
		return Unlimited
	}
	return FreeDailyLimit
}

// DayStartUTC truncates t to midnight UTC, the start of its rollover period.
func DayStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Rollover zeroes p's counter when its reset date falls before now's UTC
// day and reports whether it did. Calling it again within the same day is
// a no-op.
func Rollover(p *models.Profile, now time.Time) bool {
	today := DayStartUTC(now)
	if !DayStartUTC(p.UsageResetDate).Before(today) {
		return false
	}
	p.UsageCount = 0
	p.UsageResetDate = today
	return true
}

// Allowed applies rollover and then the plan ceiling.
func Allowed(p *models.Profile, now time.Time) bool {
	Rollover(p, now)
	limit := Limit(p.Plan)
	return limit == Unlimited || p.UsageCount < limit
}

// Increment applies rollover and counts one action.
func Increment(p *models.Profile, now time.Time) {
	Rollover(p, now)
	p.UsageCount++
}

// Remaining is the number of actions left today, or Unlimited.
func Remaining(p *models.Profile) int {
	limit := Limit(p.Plan)
	if limit == Unlimited {
		return Unlimited
	}
	if left := limit - p.UsageCount; left > 0 {
		return left
	}
	return 0
}
