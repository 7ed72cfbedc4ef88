package billing

import (
	"net/http"
	"strings"

	"tiertrainer-backend/config"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
)

// stripeReady sets the API key for this request and answers 500 when it is missing.
func stripeReady(c *gin.Context) bool {
	stripe.Key = config.STRIPE_SECRET_KEY
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return false
	}
	return true
}

func appURL() string {
	if config.APP_URL == "" {
		return "http://localhost:5173"
	}
	return strings.TrimRight(config.APP_URL, "/")
}

// checkoutLocale keeps the locales the frontend ships; Stripe picks for anything else.
func checkoutLocale(language string) string {
	switch strings.ToLower(language) {
	case "de", "en", "fr", "it", "es", "nl":
		return strings.ToLower(language)
	default:
		return "auto"
	}
}

// stripeErrorMessage extracts Stripe's message for the details field.
func stripeErrorMessage(err error) string {
	if se, ok := err.(*stripe.Error); ok && se.Msg != "" {
		return se.Msg
	}
	return err.Error()
}
