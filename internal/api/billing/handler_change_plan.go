package billing

import (
	"net/http"
	"time"

	"tiertrainer-backend/database"
	billingdomain "tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	stripesub "github.com/stripe/stripe-go/v75/subscription"
	schedules "github.com/stripe/stripe-go/v75/subscriptionschedule"
	"go.uber.org/zap"
)

// isUpgrade compares monthly-equivalent prices; a pet-limit increase always counts as an upgrade.
func isUpgrade(current *plans.Plan, target plans.Plan) bool {
	if current == nil {
		return true
	}
	curLimit, _ := plans.TierPetLimit(plans.PlanTier(current))
	tgtLimit, _ := plans.TierPetLimit(plans.PlanTier(&target))
	if curLimit != tgtLimit {
		if tgtLimit < 0 {
			return true
		}
		if curLimit < 0 {
			return false
		}
		return tgtLimit > curLimit
	}
	return monthlyPrice(target).GreaterThan(monthlyPrice(*current))
}

var twelve = decimal.NewFromInt(12)

func monthlyPrice(p plans.Plan) decimal.Decimal {
	if p.Interval == "year" {
		return p.PriceEUR.Div(twelve)
	}
	return p.PriceEUR
}

// POST /change-plan
func ChangePlan(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			PriceType string `json:"priceType"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.PriceType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid priceType"})
			return
		}

		if !stripeReady(c) {
			return
		}

		email := c.GetString("email")
		sub, err := subscribers.FindByEmail(database.DB, email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}
		if sub == nil || sub.StripeSubscriptionID == nil || *sub.StripeSubscriptionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No active subscription to change. Use checkout first."})
			return
		}

		var targetPlan plans.Plan
		if err := database.DB.Where("price_type = ?", body.PriceType).First(&targetPlan).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Target plan not found (run /admin/sync-plans)"})
			return
		}

		stripeSub, err := stripesub.Get(*sub.StripeSubscriptionID, nil)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch Stripe subscription", "details": stripeErrorMessage(err)})
			return
		}
		if stripeSub.Items == nil || len(stripeSub.Items.Data) == 0 || stripeSub.Items.Data[0].Price == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Subscription has no price item"})
			return
		}

		item := stripeSub.Items.Data[0]
		currentPriceID := item.Price.ID
		if currentPriceID == targetPlan.StripePriceID {
			c.JSON(http.StatusOK, gin.H{"message": "Already on this plan"})
			return
		}

		currentPlan, err := billingdomain.PlanForSubscription(database.DB, stripeSub)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load current plan"})
			return
		}

		// ✅ UPGRADE: effective now, prorated
		if isUpgrade(currentPlan, targetPlan) {
			updated, err := stripesub.Update(stripeSub.ID, &stripe.SubscriptionParams{
				Items: []*stripe.SubscriptionItemsParams{
					{ID: stripe.String(item.ID), Price: stripe.String(targetPlan.StripePriceID)},
				},
				ProrationBehavior: stripe.String("create_prorations"),
			})
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upgrade subscription", "details": stripeErrorMessage(err)})
				return
			}
			if err := billingdomain.ApplySubscription(database.DB, sub, updated); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
				return
			}
			subscribers.Invalidate(c.Request.Context(), store, email)

			c.JSON(http.StatusOK, gin.H{
				"message":            "Upgraded now (prorated automatically by Stripe)",
				"is_upgrade":         true,
				"current_period_end": time.Unix(updated.CurrentPeriodEnd, 0).UTC(),
				"subscription_id":    updated.ID,
			})
			return
		}

		// ✅ DOWNGRADE: schedule next cycle
		periodStartUnix := stripeSub.CurrentPeriodStart
		periodEndUnix := stripeSub.CurrentPeriodEnd
		effectiveAt := time.Unix(periodEndUnix, 0).UTC()

		scheduleID := ""
		if stripeSub.Schedule != nil {
			scheduleID = stripeSub.Schedule.ID
		}
		if scheduleID == "" {
			schedule, err := schedules.New(&stripe.SubscriptionScheduleParams{
				FromSubscription: stripe.String(stripeSub.ID),
			})
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create schedule", "details": stripeErrorMessage(err)})
				return
			}
			scheduleID = schedule.ID
		}

		_, err = schedules.Update(scheduleID, &stripe.SubscriptionScheduleParams{
			EndBehavior: stripe.String("release"),
			Phases: []*stripe.SubscriptionSchedulePhaseParams{
				{
					StartDate: stripe.Int64(periodStartUnix),
					EndDate:   stripe.Int64(periodEndUnix),
					Items: []*stripe.SubscriptionSchedulePhaseItemParams{
						{Price: stripe.String(currentPriceID), Quantity: stripe.Int64(1)},
					},
				},
				{
					StartDate: stripe.Int64(periodEndUnix),
					Items: []*stripe.SubscriptionSchedulePhaseItemParams{
						{Price: stripe.String(targetPlan.StripePriceID), Quantity: stripe.Int64(1)},
					},
				},
			},
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to update schedule phases", "details": stripeErrorMessage(err)})
			return
		}

		// keep the current tier until Stripe switches the price
		if err := database.DB.Model(sub).Updates(map[string]interface{}{
			"pending_price_type": targetPlan.PriceType,
			"pending_plan_start": effectiveAt,
			"stripe_schedule_id": scheduleID,
		}).Error; err != nil {
			zap.L().Error("Failed to store pending downgrade", zap.String("email", email), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store pending downgrade"})
			return
		}
		subscribers.Invalidate(c.Request.Context(), store, email)

		c.JSON(http.StatusOK, gin.H{
			"message":      "Downgrade scheduled for the next billing period",
			"is_upgrade":   false,
			"effective_at": effectiveAt,
			"schedule_id":  scheduleID,
		})
	}
}
