package models

import "time"

type Plan string

const (
	PlanFree Plan = "free"
	PlanPlus Plan = "plus"
)

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPlus
}

// Profile is one user's plan and daily usage state. UsageResetDate holds
// the UTC calendar day the counter was last reset.
type Profile struct {
	ID                   string     `json:"id"`
	FullName             *string    `json:"full_name,omitempty"`
	Plan                 Plan       `json:"plan"`
	UsageCount           int        `json:"usage_count"`
	UsageResetDate       time.Time  `json:"usage_reset_date"`
	StripeCustomerID     *string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (p *Profile) IsPlus() bool {
	return p != nil && p.Plan == PlanPlus
}
