package stripewebhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"tiertrainer-backend/config"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"go.uber.org/zap"
)

// processedTTL covers Stripe's retry window for a delivered event.
const processedTTL = 72 * time.Hour

func processedKey(eventID string) string { return "stripe:event:" + eventID }

// StripeWebhook serves POST /webhook. Handler errors answer 500 so Stripe retries;
// events that can never apply (unknown user, unknown price) are acknowledged.
func StripeWebhook(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Stripe key is required for follow-up API calls (subscription.Get)
		stripe.Key = config.STRIPE_SECRET_KEY
		if stripe.Key == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_SECRET_KEY not configured"})
			return
		}

		endpointSecret := config.STRIPE_WEBHOOK_SECRET
		if endpointSecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
			return
		}

		payload, err := readStripeBody(c, 65536)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
			return
		}

		event, err := webhook.ConstructEventWithOptions(
			payload,
			c.GetHeader("Stripe-Signature"),
			endpointSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
		)
		if err != nil {
			zap.L().Warn("❌ Stripe signature verification failed", zap.Error(err))
			metrics.WebhookEvents.WithLabelValues("unknown", "invalid").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
			return
		}

		eventType := string(event.Type)
		ctx := c.Request.Context()
		if store != nil {
			if _, seen := store.Get(ctx, processedKey(event.ID)); seen {
				metrics.WebhookEvents.WithLabelValues(eventType, "duplicate").Inc()
				c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
				return
			}
		}

		var handle func() error
		switch eventType {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse session"})
				return
			}
			handle = func() error { return handleCheckoutSessionCompleted(ctx, store, &session) }

		case "customer.subscription.created", "customer.subscription.updated":
			var sub stripe.Subscription
			if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
				return
			}
			handle = func() error { return handleSubscriptionUpdated(ctx, store, &sub) }

		case "customer.subscription.deleted":
			var sub stripe.Subscription
			if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
				return
			}
			handle = func() error { return handleSubscriptionDeleted(ctx, store, &sub) }

		case "invoice.paid":
			var inv stripe.Invoice
			if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse invoice"})
				return
			}
			handle = func() error { return handleInvoicePaid(&inv) }

		default:
			// Acknowledge unknown events to avoid retries
			metrics.WebhookEvents.WithLabelValues(eventType, "ignored").Inc()
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		if err := handle(); err != nil {
			zap.L().Error("Stripe webhook handling failed",
				zap.String("event_id", event.ID),
				zap.String("type", eventType),
				zap.Error(err),
			)
			metrics.WebhookEvents.WithLabelValues(eventType, "failed").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if store != nil {
			store.Set(ctx, processedKey(event.ID), []byte(eventType), processedTTL)
		}
		metrics.WebhookEvents.WithLabelValues(eventType, "processed").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
