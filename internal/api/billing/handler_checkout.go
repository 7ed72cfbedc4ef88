package billing

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/checkout"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/kvstore"
	"tiertrainer-backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v75"
	portalSession "github.com/stripe/stripe-go/v75/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	customer "github.com/stripe/stripe-go/v75/customer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const intentParam = "checkoutIntent"

func cookieFlags(c *gin.Context) *checkout.Persistence {
	return checkout.NewPersistence(checkout.Source{
		Name:  "cookie",
		Store: kvstore.NewCookieStore(c, checkout.ExpiryWindow, config.APP_ENV == "production"),
	})
}

// withPendingFlags appends the pending-checkout flags to a redirect URL. The
// session id placeholder is left unescaped for Stripe to fill in.
func withPendingFlags(rawURL, priceType, origin string, token uuid.UUID, now time.Time) (string, error) {
	store := kvstore.NewURLStore(nil)
	checkout.NewPersistence(checkout.Source{Name: "url", Store: store}).
		WithClock(func() time.Time { return now }).
		Set(priceType, "", origin)
	store.Remove(checkout.KeySessionID)
	store.Set(intentParam, token.String())

	out, err := store.AppendTo(rawURL)
	if err != nil {
		return "", err
	}
	return out + "&" + checkout.KeySessionID + "={CHECKOUT_SESSION_ID}", nil
}

// POST /create-checkout
func CreateCheckout(c *gin.Context) {
	var body struct {
		PriceType    string `json:"priceType"`
		SuccessURL   string `json:"successUrl"`
		CancelURL    string `json:"cancelUrl"`
		Language     string `json:"language"`
		Origin       string `json:"origin"`
		CustomerInfo *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"customerInfo"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid priceType"})
		return
	}

	if !stripeReady(c) {
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	// allow-list by price type
	var plan plans.Plan
	if err := database.DB.Where("price_type = ?", body.PriceType).First(&plan).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown priceType"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}
	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return
	}

	sub, err := subscribers.Ensure(database.DB, user.Email, user.ID)
	if err != nil {
		zap.L().Error("Failed to ensure subscriber", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
		return
	}
	if sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID != "" &&
		access.DeriveMode(time.Now(), sub) == access.ModePremium {
		c.JSON(http.StatusConflict, gin.H{"error": "Already subscribed. Use change-plan instead.", "reason": "ALREADY_SUBSCRIBED"})
		return
	}

	// ensure stripe customer
	if sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		name := user.Name
		if body.CustomerInfo != nil && strings.TrimSpace(body.CustomerInfo.Name) != "" {
			name = strings.TrimSpace(body.CustomerInfo.Name)
		}
		params := &stripe.CustomerParams{
			Email: stripe.String(user.Email),
			Metadata: map[string]string{
				"user_id": fmt.Sprint(user.ID),
				"app_env": config.APP_ENV,
			},
		}
		if name != "" {
			params.Name = stripe.String(name)
		}
		cus, err := customer.New(params)
		if err != nil {
			zap.L().Error("Stripe customer create failed", zap.Uint("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create Stripe customer"})
			return
		}

		if err := database.DB.Model(sub).Update("stripe_customer_id", cus.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Stripe customer"})
			return
		}
		sub.StripeCustomerID = stripe.String(cus.ID)
	}

	now := time.Now()
	token := uuid.New()
	origin := body.Origin
	if origin == "" {
		origin = c.GetHeader("Referer")
	}

	successURL := body.SuccessURL
	if successURL == "" {
		successURL = appURL() + "/checkout/success"
	}
	cancelURL := body.CancelURL
	if cancelURL == "" {
		cancelURL = appURL() + "/pricing?canceled=1"
	}
	successURL, err = withPendingFlags(successURL, plan.PriceType, origin, token, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid successUrl"})
		return
	}
	cancelURL, err = withPendingFlags(cancelURL, plan.PriceType, origin, token, now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cancelUrl"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(*sub.StripeCustomerID),
		Locale:     stripe.String(checkoutLocale(body.Language)),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(plan.StripePriceID), Quantity: stripe.Int64(1)},
		},

		ClientReferenceID: stripe.String(fmt.Sprint(user.ID)),

		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id":    fmt.Sprint(user.ID),
				"plan_id":    fmt.Sprint(plan.ID),
				"price_type": plan.PriceType,
			},
		},
	}
	params.AddMetadata("intent_token", token.String())
	params.AddMetadata("price_type", plan.PriceType)

	s, err := checkoutsession.New(params)
	if err != nil {
		zap.L().Error("Stripe checkout session failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout session", "details": stripeErrorMessage(err)})
		return
	}

	intent := checkout.Intent{
		Token:           token,
		UserID:          user.ID,
		PriceType:       plan.PriceType,
		StripeSessionID: s.ID,
		Origin:          origin,
	}
	if err := database.DB.Create(&intent).Error; err != nil {
		// the cookie and URL flags still carry the checkout
		zap.L().Error("Failed to store checkout intent", zap.String("session_id", s.ID), zap.Error(err))
	}

	cookieFlags(c).Set(plan.PriceType, s.ID, origin)
	metrics.CheckoutSessions.WithLabelValues(plan.PriceType).Inc()

	c.JSON(http.StatusOK, gin.H{"url": s.URL, "sessionId": s.ID})
}

// GET /checkout/pending
// The server intent wins; cookie and URL flags are the fallback for clients
// that lost the intent token.
func GetPendingCheckout(c *gin.Context) {
	userID := c.GetUint("user_id")
	now := time.Now()

	if userID != 0 {
		q := database.DB.Where("user_id = ?", userID)
		if token, err := uuid.Parse(c.Query(intentParam)); err == nil {
			q = q.Where("token = ?", token)
		}
		var intent checkout.Intent
		err := q.Order("created_at DESC").First(&intent).Error
		switch {
		case err == nil:
			if intent.ConfirmedAt != nil {
				cookieFlags(c).Clear()
				c.JSON(http.StatusOK, gin.H{"hasPendingCheckout": false, "confirmed": true, "priceType": intent.PriceType, "source": "server"})
				return
			}
			if intent.Pending(now) {
				c.JSON(http.StatusOK, checkout.Flags{
					HasPendingCheckout: true,
					PriceType:          intent.PriceType,
					Timestamp:          intent.CreatedAt,
					SessionID:          intent.StripeSessionID,
					Origin:             intent.Origin,
					Source:             "server",
				})
				return
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			zap.L().Warn("Checkout intent lookup failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}

	flags := checkout.NewPersistence(
		checkout.Source{Name: "cookie", Store: kvstore.NewCookieStore(c, checkout.ExpiryWindow, config.APP_ENV == "production")},
		checkout.Source{Name: "url", Store: kvstore.NewURLStore(c.Request.URL.Query())},
	).Get()

	c.JSON(http.StatusOK, flags)
}

// DELETE /checkout/pending
func ClearPendingCheckout(c *gin.Context) {
	cookieFlags(c).Clear()
	c.JSON(http.StatusOK, gin.H{"hasPendingCheckout": false})
}

// POST /billing-portal
func CreateBillingPortal(c *gin.Context) {
	if !stripeReady(c) {
		return
	}

	email := c.GetString("email")
	sub, err := subscribers.FindByEmail(database.DB, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
		return
	}
	if sub == nil || sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	var body struct {
		ReturnURL string `json:"returnUrl"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	returnURL := body.ReturnURL
	if returnURL == "" {
		returnURL = appURL() + "/account"
	}

	portal, err := portalSession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*sub.StripeCustomerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		zap.L().Error("Billing portal session failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not create billing portal session", "details": stripeErrorMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": portal.URL})
}
