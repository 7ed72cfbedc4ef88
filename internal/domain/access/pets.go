package access

import (
	"time"

	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"
)

// TrialPetLimit applies to trials that carry no tier of their own.
const TrialPetLimit = 2

// MaxPetsAllowed: tier_limit when present, else the fixed tier map, else
// TrialPetLimit during a trial, else 1. Tier fields are cleared when a
// subscription ends, so a lapsed subscriber falls through to 1.
func MaxPetsAllowed(now time.Time, s *subscribers.Subscriber) int {
	if s == nil {
		return 1
	}
	if s.TierLimit != nil {
		return *s.TierLimit
	}
	if s.SubscriptionTier != nil {
		if limit, ok := plans.TierPetLimit(*s.SubscriptionTier); ok {
			return limit
		}
	}
	if DeriveMode(now, s) == ModeTrial {
		return TrialPetLimit
	}
	return 1
}

// CanAddPet is false once currentCount >= maxAllowed (negative max means unlimited).
func CanAddPet(currentCount int64, maxAllowed int) bool {
	if maxAllowed < 0 {
		return true
	}
	return currentCount < int64(maxAllowed)
}
