package plans

import "github.com/shopspring/decimal"

type Plan struct {
	ID uint `gorm:"primaryKey"`
	// PriceType is the key clients send to /create-checkout, e.g. "plan2-monthly".
	PriceType       string `gorm:"column:price_type;not null;uniqueIndex:idx_plans_price_type"`
	Name            string
	PriceEUR        decimal.Decimal `gorm:"type:numeric(10,2)"`
	StripePriceID   string          `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_plans_stripe_price_id"`
	StripeProductID string          `gorm:"column:stripe_product_id"`
	Interval        string          // month | year
	Tier            string          `gorm:"column:tier"` // plan1..plan5
	TierLimit       *int            `gorm:"column:tier_limit"`
}

// BillingCycle maps the Stripe interval onto the subscriber's billing_cycle value.
func (p Plan) BillingCycle() string {
	if p.Interval == "year" {
		return "yearly"
	}
	return "monthly"
}
