package billing

import (
	"net/http"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/gin-gonic/gin"
	schedules "github.com/stripe/stripe-go/v75/subscriptionschedule"
)

// POST /cancel-downgrade
func CancelDowngrade(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !stripeReady(c) {
			return
		}

		email := c.GetString("email")
		sub, err := subscribers.FindByEmail(database.DB, email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}

		// Nothing scheduled? Then nothing to cancel.
		if sub == nil || sub.StripeScheduleID == nil || *sub.StripeScheduleID == "" || sub.PendingPriceType == nil {
			c.JSON(http.StatusOK, gin.H{"message": "No pending downgrade to cancel"})
			return
		}

		scheduleID := *sub.StripeScheduleID

		// ✅ Release schedule so the subscription continues normally on the current plan
		if _, err := schedules.Release(scheduleID, nil); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Failed to release Stripe schedule",
				"details": stripeErrorMessage(err),
			})
			return
		}

		if err := database.DB.Model(sub).Updates(map[string]interface{}{
			"pending_price_type": nil,
			"pending_plan_start": nil,
			"stripe_schedule_id": nil,
		}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear pending downgrade"})
			return
		}
		subscribers.Invalidate(c.Request.Context(), store, email)

		c.JSON(http.StatusOK, gin.H{
			"message":     "Pending downgrade cancelled",
			"schedule_id": scheduleID,
		})
	}
}
