package billing

import (
	"time"

	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/subscribers"
)

// SubscriptionStatus is the client-facing view of a subscriber row.
type SubscriptionStatus struct {
	Mode               access.Mode `json:"mode"`
	Subscribed         bool        `json:"subscribed"`
	SubscriptionStatus string      `json:"subscription_status,omitempty"`
	SubscriptionTier   *string     `json:"subscription_tier"`
	TierLimit          *int        `json:"tier_limit"`
	MaxPets            int         `json:"max_pets"`
	SubscriptionEnd    *time.Time  `json:"subscription_end"`
	BillingCycle       *string     `json:"billing_cycle"`
	CancelAtPeriodEnd  bool        `json:"cancel_at_period_end"`
	PendingPriceType   *string     `json:"pending_price_type,omitempty"`
	PendingPlanStart   *time.Time  `json:"pending_plan_start,omitempty"`
	TrialUsed          bool        `json:"trial_used"`
	TrialEnd           *time.Time  `json:"trial_end"`
	TrialDaysLeft      int         `json:"trial_days_left"`
	Capabilities       []string    `json:"capabilities"`
}

func BuildStatus(now time.Time, s *subscribers.Subscriber) SubscriptionStatus {
	policy := access.ComputePolicy(now, s)
	out := SubscriptionStatus{
		Mode:          policy.Mode,
		MaxPets:       policy.MaxPets,
		TrialEnd:      policy.TrialEndsAt,
		TrialDaysLeft: policy.TrialDaysLeft,
		Capabilities:  policy.Capabilities,
	}
	if s == nil {
		return out
	}

	out.Subscribed = s.Subscribed
	out.SubscriptionStatus = s.SubscriptionStatus
	out.SubscriptionTier = s.SubscriptionTier
	out.TierLimit = s.TierLimit
	out.SubscriptionEnd = s.SubscriptionEnd
	out.BillingCycle = s.BillingCycle
	out.CancelAtPeriodEnd = s.CancelAtPeriodEnd
	out.PendingPriceType = s.PendingPriceType
	out.PendingPlanStart = s.PendingPlanStart
	out.TrialUsed = s.TrialUsed
	return out
}
