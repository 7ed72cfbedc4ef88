package billing

import (
	"fmt"
	"time"

	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"
	stripestatus "tiertrainer-backend/internal/infra/stripe"

	"github.com/stripe/stripe-go/v75"
	"gorm.io/gorm"
)

// SubscriptionUpdates maps a Stripe subscription (and the plan its price
// resolves to, if any) onto subscriber columns.
func SubscriptionUpdates(sub *stripe.Subscription, plan *plans.Plan) map[string]interface{} {
	status := string(sub.Status)
	updates := map[string]interface{}{
		"stripe_subscription_id": sub.ID,
		"subscription_status":    status,
		"subscribed":             stripestatus.Entitled(status),
		"cancel_at_period_end":   sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		updates["subscription_end"] = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	// a paid subscription ends the free trial; trial_used stays set
	if status == subscribers.StatusActive {
		updates["trial_start"] = nil
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		updates["stripe_customer_id"] = sub.Customer.ID
	}

	if plan != nil {
		tier := plans.PlanTier(plan)
		updates["subscription_tier"] = tier
		updates["billing_cycle"] = plan.BillingCycle()
		if plan.TierLimit != nil {
			updates["tier_limit"] = *plan.TierLimit
		} else {
			updates["tier_limit"] = nil
		}
	}
	return updates
}

// CanceledUpdates clears the paid entitlement once Stripe deleted the subscription.
func CanceledUpdates(sub *stripe.Subscription) map[string]interface{} {
	updates := map[string]interface{}{
		"subscribed":             false,
		"subscription_status":    subscribers.StatusCanceled,
		"stripe_subscription_id": nil,
		"subscription_tier":      nil,
		"tier_limit":             nil,
		"cancel_at_period_end":   false,
		"pending_price_type":     nil,
		"pending_plan_start":     nil,
		"stripe_schedule_id":     nil,
	}
	if sub != nil && sub.CurrentPeriodEnd > 0 {
		updates["subscription_end"] = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return updates
}

// PlanForSubscription resolves the first subscription item's price to a plan.
// It returns (nil, nil) for prices the service does not sell.
func PlanForSubscription(db *gorm.DB, sub *stripe.Subscription) (*plans.Plan, error) {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return nil, nil
	}
	priceID := sub.Items.Data[0].Price.ID
	var plan plans.Plan
	err := db.Where("stripe_price_id = ?", priceID).Limit(1).Find(&plan).Error
	if err != nil {
		return nil, fmt.Errorf("load plan for price %s: %w", priceID, err)
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

// ApplySubscription writes the Stripe state onto s and clears a pending
// downgrade once the subscription runs on the pending price.
func ApplySubscription(db *gorm.DB, s *subscribers.Subscriber, sub *stripe.Subscription) error {
	plan, err := PlanForSubscription(db, sub)
	if err != nil {
		return err
	}

	updates := SubscriptionUpdates(sub, plan)
	if plan != nil && s.PendingPriceType != nil && *s.PendingPriceType == plan.PriceType {
		updates["pending_price_type"] = nil
		updates["pending_plan_start"] = nil
		updates["stripe_schedule_id"] = nil
	}

	if err := db.Model(s).Updates(updates).Error; err != nil {
		return fmt.Errorf("update subscriber from stripe: %w", err)
	}
	return nil
}
