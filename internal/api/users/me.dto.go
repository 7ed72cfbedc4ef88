package users

import (
	"time"

	"github.com/shopspring/decimal"
)

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
	Access  AccessDTO  `json:"access"`
}

/* ---------- USER ---------- */

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsVerified   bool   `json:"is_verified"`
	AuthProvider string `json:"auth_provider"`
	HasPassword  bool   `json:"has_password"`
}

/* ---------- BILLING ---------- */

type BillingDTO struct {
	Subscription  *SubscriptionDTO  `json:"subscription"`
	Trial         *TrialDTO         `json:"trial"`
	PendingChange *PendingChangeDTO `json:"pending_change"`
}

type SubscriptionDTO struct {
	Status               string     `json:"status"`
	Tier                 *string    `json:"tier"`
	BillingCycle         *string    `json:"billing_cycle"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end"`
	StripeSubscriptionID *string    `json:"stripe_subscription_id"`
}

type TrialDTO struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	DaysLeft int        `json:"days_left"`
	Expired  bool       `json:"expired"`
}

type PendingChangeDTO struct {
	EffectiveAt *time.Time   `json:"effective_at"`
	Plan        *PlanLiteDTO `json:"plan"`
}

type PlanLiteDTO struct {
	PriceType string          `json:"price_type"`
	Name      string          `json:"name"`
	Interval  string          `json:"interval"`
	PriceEUR  decimal.Decimal `json:"price_eur"`
}

/* ---------- ACCESS ---------- */

type AccessDTO struct {
	Mode         string   `json:"mode"` // free|trial|trial_expired|premium
	Capabilities []string `json:"capabilities"`
	MaxPets      int      `json:"max_pets"` // -1 = unlimited
	PetCount     int64    `json:"pet_count"`
	CanAddPet    bool     `json:"can_add_pet"`
}
