package stripewebhooks

import (
	"fmt"

	"tiertrainer-backend/database"
	billingdomain "tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// handleInvoicePaid records one Payment per invoice; redeliveries are no-ops.
func handleInvoicePaid(inv *stripe.Invoice) error {
	if inv.ID == "" || inv.Customer == nil || inv.Customer.ID == "" {
		return nil
	}

	s, err := subscribers.FindByStripeCustomer(database.DB, inv.Customer.ID)
	if err != nil {
		return err
	}
	if s == nil || s.UserID == nil {
		zap.L().Warn("Paid invoice for unknown customer",
			zap.String("invoice_id", inv.ID),
			zap.String("customer_id", inv.Customer.ID),
		)
		return nil
	}

	payment := billingdomain.Payment{
		UserID:          *s.UserID,
		StripeInvoiceID: inv.ID,
		AmountEUR:       billingdomain.CentsToEUR(inv.AmountPaid),
		Status:          billingdomain.PaymentPaid,
	}
	if inv.Subscription != nil && inv.Subscription.ID != "" {
		payment.StripeSubscriptionID = stripe.String(inv.Subscription.ID)
	}
	if inv.PaymentIntent != nil && inv.PaymentIntent.ID != "" {
		payment.StripePaymentIntentID = stripe.String(inv.PaymentIntent.ID)
	}
	if inv.HostedInvoiceURL != "" {
		payment.ReceiptURL = stripe.String(inv.HostedInvoiceURL)
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Price == nil {
				continue
			}
			var plan plans.Plan
			if err := database.DB.Where("stripe_price_id = ?", line.Price.ID).Limit(1).Find(&plan).Error; err != nil {
				return fmt.Errorf("load plan for invoice line: %w", err)
			}
			if plan.ID != 0 {
				payment.PlanID = &plan.ID
				break
			}
		}
	}

	err = database.DB.
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stripe_invoice_id"}}, DoNothing: true}).
		Create(&payment).Error
	if err != nil {
		return fmt.Errorf("record payment for invoice %s: %w", inv.ID, err)
	}
	return nil
}
