package stripewebhooks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"tiertrainer-backend/config"
	billingdomain "tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/checkout"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"gorm.io/gorm"
)

const whsec = "whsec_test"

type fixture struct {
	r     *gin.Engine
	db    *gorm.DB
	store *cache.Memory
	user  users.User
}

func setup(t *testing.T, stripeResponses map[string]any) (*fixture, *testutil.FakeStripe) {
	db := testutil.NewDB(t)
	fake := testutil.NewFakeStripe(t, stripeResponses)
	config.STRIPE_WEBHOOK_SECRET = whsec

	store := cache.NewMemory(0)
	t.Cleanup(store.Close)

	user := users.User{Name: "Ben", Email: "ben@example.com", Role: users.RoleUser, IsVerified: true, AuthProvider: users.ProviderLocal}
	require.NoError(t, db.Create(&user).Error)
	two := 2
	require.NoError(t, db.Create(&plans.Plan{
		PriceType: "plan2-monthly", StripePriceID: "price_plan2_m", Interval: "month",
		Tier: plans.TierPlan2, TierLimit: &two, PriceEUR: decimal.RequireFromString("9.99"),
	}).Error)

	r := gin.New()
	r.POST("/webhook", StripeWebhook(store))
	return &fixture{r: r, db: db, store: store, user: user}, fake
}

func (f *fixture) send(t *testing.T, eventID, eventType string, object map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    whsec,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func subscriptionObject(id, status, priceID string, periodEnd time.Time, metadata map[string]string) map[string]any {
	return map[string]any{
		"id":                   id,
		"object":               "subscription",
		"status":               status,
		"customer":             "cus_1",
		"current_period_end":   periodEnd.Unix(),
		"cancel_at_period_end": false,
		"metadata":             metadata,
		"items": map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{"id": "si_1", "object": "subscription_item", "price": map[string]any{"id": priceID, "object": "price"}},
			},
		},
	}
}

func TestRejectsBadSignature(t *testing.T) {
	f, _ := setup(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(`{"id":"evt_x"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMissingWebhookSecret(t *testing.T) {
	f, _ := setup(t, nil)
	config.STRIPE_WEBHOOK_SECRET = ""

	w := f.send(t, "evt_1", "invoice.paid", map[string]any{"id": "in_1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCheckoutSessionCompleted(t *testing.T) {
	f, fake := setup(t, nil)
	end := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	fake.Respond("GET /v1/subscriptions/sub_1", subscriptionObject("sub_1", "active", "price_plan2_m", end,
		map[string]string{"user_id": strconv.FormatUint(uint64(f.user.ID), 10)}))

	token := uuid.New()
	require.NoError(t, f.db.Create(&checkout.Intent{Token: token, UserID: f.user.ID, PriceType: "plan2-monthly"}).Error)

	// a stale memoized status must be dropped
	_, err := subscribers.LoadCached(t.Context(), f.store, f.db, f.user.Email)
	require.NoError(t, err)

	w := f.send(t, "evt_1", "checkout.session.completed", map[string]any{
		"id":                  "cs_test_1",
		"object":              "checkout.session",
		"mode":                "subscription",
		"subscription":        "sub_1",
		"customer":            "cus_1",
		"client_reference_id": strconv.FormatUint(uint64(f.user.ID), 10),
		"metadata":            map[string]string{"intent_token": token.String()},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var intent checkout.Intent
	require.NoError(t, f.db.Where("token = ?", token).First(&intent).Error)
	assert.NotNil(t, intent.ConfirmedAt)

	got, err := subscribers.LoadCached(t.Context(), f.store, f.db, f.user.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Subscribed)
	assert.Equal(t, "sub_1", *got.StripeSubscriptionID)
	assert.Equal(t, "cus_1", *got.StripeCustomerID)
	assert.Equal(t, plans.TierPlan2, *got.SubscriptionTier)
	assert.Equal(t, end.Unix(), got.SubscriptionEnd.Unix())
	require.NotNil(t, got.UserID)
	assert.Equal(t, f.user.ID, *got.UserID)
}

func TestCheckoutSessionCompletedStripeFailureRetries(t *testing.T) {
	f, _ := setup(t, nil)

	w := f.send(t, "evt_1", "checkout.session.completed", map[string]any{
		"id":           "cs_test_1",
		"object":       "checkout.session",
		"subscription": "sub_missing",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// not remembered as processed, so the retry is handled again
	w = f.send(t, "evt_1", "checkout.session.completed", map[string]any{
		"id":           "cs_test_1",
		"object":       "checkout.session",
		"subscription": "sub_missing",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSubscriptionUpdated(t *testing.T) {
	f, _ := setup(t, nil)
	s, err := subscribers.Ensure(f.db, f.user.Email, f.user.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(s).Updates(map[string]any{
		"stripe_subscription_id": "sub_1",
		"stripe_customer_id":     "cus_1",
		"subscribed":             true,
		"subscription_status":    subscribers.StatusActive,
		"pending_price_type":     "plan2-monthly",
		"stripe_schedule_id":     "sub_sched_1",
	}).Error)

	end := time.Now().Add(30 * 24 * time.Hour)
	obj := subscriptionObject("sub_1", "past_due", "price_plan2_m", end, nil)
	obj["cancel_at_period_end"] = true
	w := f.send(t, "evt_2", "customer.subscription.updated", obj)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := subscribers.FindByEmail(f.db, f.user.Email)
	require.NoError(t, err)
	assert.False(t, got.Subscribed)
	assert.Equal(t, subscribers.StatusPastDue, got.SubscriptionStatus)
	assert.True(t, got.CancelAtPeriodEnd)
	// the scheduled downgrade took effect
	assert.Nil(t, got.PendingPriceType)
	assert.Nil(t, got.StripeScheduleID)
}

func TestSubscriptionUpdatedUnknownIsAcknowledged(t *testing.T) {
	f, _ := setup(t, nil)
	obj := subscriptionObject("sub_other", "active", "price_plan2_m", time.Now().Add(time.Hour), nil)
	obj["customer"] = "cus_other"

	w := f.send(t, "evt_3", "customer.subscription.updated", obj)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubscriptionDeleted(t *testing.T) {
	f, _ := setup(t, nil)
	s, err := subscribers.Ensure(f.db, f.user.Email, f.user.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(s).Updates(map[string]any{
		"stripe_subscription_id": "sub_1",
		"subscribed":             true,
		"subscription_status":    subscribers.StatusActive,
		"subscription_tier":      plans.TierPlan2,
	}).Error)

	t.Run("replaced subscription is ignored", func(t *testing.T) {
		w := f.send(t, "evt_4", "customer.subscription.deleted",
			subscriptionObject("sub_old", "canceled", "price_plan2_m", time.Now(), map[string]string{"user_id": strconv.FormatUint(uint64(f.user.ID), 10)}))
		require.Equal(t, http.StatusOK, w.Code)

		got, _ := subscribers.FindByEmail(f.db, f.user.Email)
		assert.True(t, got.Subscribed)
	})

	t.Run("current subscription cancels", func(t *testing.T) {
		w := f.send(t, "evt_5", "customer.subscription.deleted",
			subscriptionObject("sub_1", "canceled", "price_plan2_m", time.Now(), nil))
		require.Equal(t, http.StatusOK, w.Code)

		got, _ := subscribers.FindByEmail(f.db, f.user.Email)
		assert.False(t, got.Subscribed)
		assert.Nil(t, got.StripeSubscriptionID)
		assert.Nil(t, got.SubscriptionTier)
		assert.Equal(t, subscribers.StatusCanceled, got.SubscriptionStatus)
	})
}

func TestInvoicePaidRecordsPaymentOnce(t *testing.T) {
	f, _ := setup(t, nil)
	s, err := subscribers.Ensure(f.db, f.user.Email, f.user.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(s).Update("stripe_customer_id", "cus_1").Error)

	invoice := map[string]any{
		"id":                 "in_1",
		"object":             "invoice",
		"customer":           "cus_1",
		"subscription":       "sub_1",
		"payment_intent":     "pi_1",
		"amount_paid":        999,
		"hosted_invoice_url": "https://invoice.stripe.test/in_1",
		"lines": map[string]any{
			"object": "list",
			"data": []any{
				map[string]any{"id": "il_1", "object": "line_item", "price": map[string]any{"id": "price_plan2_m", "object": "price"}},
			},
		},
	}

	require.Equal(t, http.StatusOK, f.send(t, "evt_6", "invoice.paid", invoice).Code)
	// redelivered under a new event id
	require.Equal(t, http.StatusOK, f.send(t, "evt_7", "invoice.paid", invoice).Code)

	var payments []billingdomain.Payment
	require.NoError(t, f.db.Find(&payments).Error)
	require.Len(t, payments, 1)
	p := payments[0]
	assert.Equal(t, f.user.ID, p.UserID)
	assert.True(t, p.AmountEUR.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, "pi_1", *p.StripePaymentIntentID)
	require.NotNil(t, p.PlanID)
	assert.Equal(t, billingdomain.PaymentPaid, p.Status)
}

func TestDuplicateEventIsSkipped(t *testing.T) {
	f, _ := setup(t, nil)
	invoice := map[string]any{"id": "in_9", "object": "invoice", "customer": "cus_unknown", "amount_paid": 100}

	require.Equal(t, http.StatusOK, f.send(t, "evt_8", "invoice.paid", invoice).Code)
	w := f.send(t, "evt_8", "invoice.paid", invoice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", testutil.DecodeJSON(t, w)["status"])
}

func TestUnknownEventIsIgnored(t *testing.T) {
	f, _ := setup(t, nil)
	w := f.send(t, "evt_9", "charge.refunded", map[string]any{"id": "ch_1", "object": "charge"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", testutil.DecodeJSON(t, w)["status"])
}
