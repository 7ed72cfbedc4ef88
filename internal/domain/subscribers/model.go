package subscribers

import "time"

// TrialDuration is the fixed length of a free trial.
const TrialDuration = 7 * 24 * time.Hour

const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusInactive = "inactive"
)

// Subscriber is the per-email billing and entitlement record synchronized from Stripe.
type Subscriber struct {
	ID     uint   `gorm:"primaryKey"`
	UserID *uint  `gorm:"index"`
	Email  string `gorm:"not null;uniqueIndex:idx_subscribers_email"`

	StripeCustomerID     *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_subscribers_stripe_customer_id"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id;uniqueIndex:idx_subscribers_stripe_subscription_id"`

	Subscribed         bool
	SubscriptionStatus string     `gorm:"column:subscription_status;size:32"`
	SubscriptionTier   *string    `gorm:"column:subscription_tier"`
	TierLimit          *int       `gorm:"column:tier_limit"`
	SubscriptionEnd    *time.Time `gorm:"column:subscription_end"`
	BillingCycle       *string    `gorm:"column:billing_cycle"`
	CancelAtPeriodEnd  bool       `gorm:"column:cancel_at_period_end"`

	// Scheduled downgrade, applied by Stripe at the end of the current period.
	PendingPriceType *string    `gorm:"column:pending_price_type"`
	PendingPlanStart *time.Time `gorm:"column:pending_plan_start"`
	StripeScheduleID *string    `gorm:"column:stripe_schedule_id"`

	TrialStart *time.Time `gorm:"column:trial_start"`
	TrialUsed  bool       `gorm:"column:trial_used"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrialEnd is trial_start + 7 days, or nil when no trial was started.
func (s *Subscriber) TrialEnd() *time.Time {
	if s == nil || s.TrialStart == nil {
		return nil
	}
	end := s.TrialStart.Add(TrialDuration)
	return &end
}

// TrialDaysLeft rounds the remaining trial time up to whole days.
func (s *Subscriber) TrialDaysLeft(now time.Time) int {
	end := s.TrialEnd()
	if end == nil || !now.Before(*end) {
		return 0
	}
	remaining := end.Sub(now)
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) != 0 {
		days++
	}
	return days
}
