package billing

import (
	"errors"
	"io"
	"net/http"
	"time"

	"tiertrainer-backend/database"
	billingdomain "tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	stripesub "github.com/stripe/stripe-go/v75/subscription"
	"go.uber.org/zap"
)

// GetSubscription serves GET /subscription from the request cache.
// Lookup failures are answered as free mode.
func GetSubscription(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")

		sub, err := subscribers.LoadCached(c.Request.Context(), store, database.DB, email)
		if err != nil {
			zap.L().Warn("Subscriber lookup failed, answering free", zap.String("email", email), zap.Error(err))
			sub = nil
		}

		c.JSON(http.StatusOK, BuildStatus(time.Now(), sub))
	}
}

// pickSubscription prefers a live subscription, else the most recent one.
func pickSubscription(list []*stripe.Subscription) *stripe.Subscription {
	var best *stripe.Subscription
	for _, s := range list {
		switch s.Status {
		case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing, stripe.SubscriptionStatusPastDue:
			if best == nil || best.Created < s.Created ||
				(best.Status != stripe.SubscriptionStatusActive && s.Status == stripe.SubscriptionStatusActive) {
				best = s
			}
		}
	}
	if best != nil {
		return best
	}
	for _, s := range list {
		if best == nil || s.Created > best.Created {
			best = s
		}
	}
	return best
}

// POST /check-subscription re-reads the customer's subscriptions from Stripe.
func CheckSubscription(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !stripeReady(c) {
			return
		}

		email := c.GetString("email")
		sub, err := subscribers.Ensure(database.DB, email, c.GetUint("user_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}

		if sub.StripeCustomerID != nil && *sub.StripeCustomerID != "" {
			params := &stripe.SubscriptionListParams{
				Customer: stripe.String(*sub.StripeCustomerID),
				Status:   stripe.String("all"),
			}
			params.AddExpand("data.items")

			var list []*stripe.Subscription
			it := stripesub.List(params)
			for it.Next() {
				list = append(list, it.Subscription())
			}
			if err := it.Err(); err != nil {
				zap.L().Error("Stripe subscription list failed", zap.String("email", email), zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to check subscription", "details": stripeErrorMessage(err)})
				return
			}

			latest := pickSubscription(list)
			switch {
			case latest != nil && latest.Status != stripe.SubscriptionStatusCanceled:
				err = billingdomain.ApplySubscription(database.DB, sub, latest)
			case sub.StripeSubscriptionID != nil:
				err = database.DB.Model(sub).Updates(billingdomain.CanceledUpdates(latest)).Error
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync subscription"})
				return
			}
		}

		subscribers.Invalidate(c.Request.Context(), store, email)
		fresh, err := subscribers.FindByEmail(database.DB, email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}
		c.JSON(http.StatusOK, BuildStatus(time.Now(), fresh))
	}
}

// POST /cancel-subscription cancels at period end, or now with {immediate:true}.
func CancelSubscription(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Immediate bool `json:"immediate"`
		}
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "No active subscription to cancel"})
			return
		}
		subID := *sub.StripeSubscriptionID

		if body.Immediate {
			canceled, err := stripesub.Cancel(subID, nil)
			if err != nil {
				zap.L().Error("Stripe cancel failed", zap.String("subscription_id", subID), zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to cancel subscription", "details": stripeErrorMessage(err)})
				return
			}
			err = database.DB.Model(sub).Updates(billingdomain.CanceledUpdates(canceled)).Error
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
				return
			}
		} else {
			updated, err := stripesub.Update(subID, &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)})
			if err != nil {
				zap.L().Error("Stripe cancel-at-period-end failed", zap.String("subscription_id", subID), zap.Error(err))
				c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to cancel subscription", "details": stripeErrorMessage(err)})
				return
			}
			if err := billingdomain.ApplySubscription(database.DB, sub, updated); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update subscription"})
				return
			}
		}

		subscribers.Invalidate(c.Request.Context(), store, email)
		fresh, _ := subscribers.FindByEmail(database.DB, email)
		c.JSON(http.StatusOK, gin.H{
			"message":      "Subscription canceled",
			"immediate":    body.Immediate,
			"subscription": BuildStatus(time.Now(), fresh),
		})
	}
}
