package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/users"
)

const (
	PaymentPaid              = "paid"
	PaymentRefunded          = "refunded"
	PaymentPartiallyRefunded = "partially_refunded"
)

type Payment struct {
	ID                    uint `gorm:"primaryKey"`
	UserID                uint `gorm:"index"`
	User                  users.User
	PlanID                *uint
	Plan                  *plans.Plan
	StripeInvoiceID       string `gorm:"uniqueIndex"`
	StripeSubscriptionID  *string
	StripePaymentIntentID *string
	AmountEUR             decimal.Decimal `gorm:"type:numeric(10,2)"`
	RefundedEUR           decimal.Decimal `gorm:"type:numeric(10,2)"`
	Status                string
	ReceiptURL            *string
	CreatedAt             time.Time
}

// Refundable is what is left after earlier refunds.
func (p Payment) Refundable() decimal.Decimal {
	left := p.AmountEUR.Sub(p.RefundedEUR)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// StatusAfterRefund returns the status once `amount` more has been refunded.
func (p Payment) StatusAfterRefund(amount decimal.Decimal) string {
	if p.RefundedEUR.Add(amount).GreaterThanOrEqual(p.AmountEUR) {
		return PaymentRefunded
	}
	return PaymentPartiallyRefunded
}

// CentsToEUR converts Stripe minor units.
func CentsToEUR(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// EURToCents converts to Stripe minor units, rounding half away from zero.
func EURToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
