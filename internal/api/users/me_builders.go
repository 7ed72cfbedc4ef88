package users

import (
	"time"

	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/stripe"

	"gorm.io/gorm"
)

func BuildUserDTO(u users.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		IsVerified:   u.IsVerified,
		AuthProvider: u.AuthProvider,
		HasPassword:  u.Password != nil && *u.Password != "",
	}
}

func BuildSubscriptionDTO(s *subscribers.Subscriber) *SubscriptionDTO {
	if s == nil || s.StripeSubscriptionID == nil || *s.StripeSubscriptionID == "" {
		return nil
	}
	return &SubscriptionDTO{
		Status:               stripe.NormalizeStripeStatus(&s.SubscriptionStatus),
		Tier:                 s.SubscriptionTier,
		BillingCycle:         s.BillingCycle,
		CurrentPeriodEnd:     s.SubscriptionEnd,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		StripeSubscriptionID: s.StripeSubscriptionID,
	}
}

func BuildTrialDTO(now time.Time, s *subscribers.Subscriber) *TrialDTO {
	if s == nil || s.TrialStart == nil {
		return nil
	}
	return &TrialDTO{
		StartsAt: s.TrialStart,
		EndsAt:   s.TrialEnd(),
		DaysLeft: s.TrialDaysLeft(now),
		Expired:  access.DeriveMode(now, s) == access.ModeTrialExpired,
	}
}

// BuildPendingChangeDTO resolves the scheduled downgrade's plan by price type.
func BuildPendingChangeDTO(db *gorm.DB, s *subscribers.Subscriber) *PendingChangeDTO {
	if s == nil || s.PendingPriceType == nil || s.PendingPlanStart == nil {
		return nil
	}
	out := &PendingChangeDTO{EffectiveAt: s.PendingPlanStart}

	var p plans.Plan
	if err := db.Where("price_type = ?", *s.PendingPriceType).First(&p).Error; err == nil {
		out.Plan = &PlanLiteDTO{
			PriceType: p.PriceType,
			Name:      p.Name,
			Interval:  p.Interval,
			PriceEUR:  p.PriceEUR,
		}
	}
	return out
}

func BuildAccessDTO(policy access.Policy, petCount int64) AccessDTO {
	return AccessDTO{
		Mode:         string(policy.Mode),
		Capabilities: policy.Capabilities,
		MaxPets:      policy.MaxPets,
		PetCount:     petCount,
		CanAddPet:    access.CanAddPet(petCount, policy.MaxPets),
	}
}
