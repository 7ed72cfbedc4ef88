package access

import (
	"time"

	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/infra/stripe"
)

// DeriveMode is a pure read over the subscriber row. Trial expiry itself is
// written by the scheduled job, never here.
func DeriveMode(now time.Time, s *subscribers.Subscriber) Mode {
	if s == nil {
		return ModeFree
	}

	if s.TrialStart != nil && s.TrialUsed {
		if now.Before(s.TrialStart.Add(subscribers.TrialDuration)) {
			return ModeTrial
		}
		return ModeTrialExpired
	}

	status := stripe.NormalizeStripeStatus(&s.SubscriptionStatus)

	// legacy rows created by Stripe-side trials
	if status == subscribers.StatusTrialing {
		return ModeTrial
	}

	if s.Subscribed && status == subscribers.StatusActive {
		if s.SubscriptionEnd == nil || now.Before(*s.SubscriptionEnd) {
			return ModePremium
		}
	}

	return ModeFree
}
