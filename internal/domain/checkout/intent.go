package checkout

import (
	"time"

	"github.com/google/uuid"
)

// Intent is the server-side record of a checkout in flight. It is confirmed by
// the Stripe webhook and replaces the client flags as the source of truth.
type Intent struct {
	ID              uint      `gorm:"primaryKey"`
	Token           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_checkout_intents_token"`
	UserID          uint      `gorm:"index"`
	PriceType       string
	StripeSessionID string `gorm:"column:stripe_session_id;index"`
	Origin          string
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
}

func (Intent) TableName() string { return "checkout_intents" }

// Pending reports whether the intent is unconfirmed and inside the expiry window.
func (i Intent) Pending(now time.Time) bool {
	return i.ConfirmedAt == nil && now.Sub(i.CreatedAt) <= ExpiryWindow
}
