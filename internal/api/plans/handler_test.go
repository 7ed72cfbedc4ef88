package plans

import (
	"context"
	"net/http"
	"testing"

	"tiertrainer-backend/config"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripePrice(id, currency string, amount int64, metadata map[string]string, lookupKey string) map[string]any {
	return map[string]any{
		"id":          id,
		"object":      "price",
		"active":      true,
		"currency":    currency,
		"unit_amount": amount,
		"lookup_key":  lookupKey,
		"metadata":    metadata,
		"recurring":   map[string]any{"interval": "month", "interval_count": 1},
		"product":     map[string]any{"id": "prod_tt", "object": "product", "name": "TierTrainer24", "active": true},
	}
}

func priceList(prices ...map[string]any) map[string]any {
	return map[string]any{"object": "list", "url": "/v1/prices", "has_more": false, "data": prices}
}

func TestSync(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.NewFakeStripe(t, map[string]any{
		"GET /v1/prices": priceList(
			stripePrice("price_plan2_m", "eur", 999, map[string]string{"price_type": "plan2-monthly", "tier": "plan2"}, ""),
			stripePrice("price_plan4_m", "eur", 1999, map[string]string{"tier": "plan4", "tier_limit": "8", "plan": "Rudel"}, "plan4-monthly"),
			stripePrice("price_usd", "usd", 999, map[string]string{"price_type": "plan2-usd"}, ""),
			stripePrice("price_hidden", "eur", 999, map[string]string{"price_type": "hidden", "visible": "false"}, ""),
			stripePrice("price_untyped", "eur", 999, nil, ""),
		),
	})
	require.NoError(t, db.Create(&plans.Plan{PriceType: "plan2-monthly", Name: "old", StripePriceID: "price_old"}).Error)

	res, err := Sync(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Synced: 2, Created: 1, Updated: 1, Skipped: 3}, res)

	var plan2 plans.Plan
	require.NoError(t, db.Where("price_type = ?", "plan2-monthly").First(&plan2).Error)
	assert.Equal(t, "price_plan2_m", plan2.StripePriceID)
	assert.True(t, decimal.RequireFromString("9.99").Equal(plan2.PriceEUR))
	require.NotNil(t, plan2.TierLimit)
	assert.Equal(t, 2, *plan2.TierLimit)

	var plan4 plans.Plan
	require.NoError(t, db.Where("stripe_price_id = ?", "price_plan4_m").First(&plan4).Error)
	assert.Equal(t, "plan4-monthly", plan4.PriceType)
	assert.Equal(t, "Rudel", plan4.Name)
	assert.Equal(t, "prod_tt", plan4.StripeProductID)
	assert.Equal(t, "monthly", plan4.BillingCycle())
}

func TestSyncWithoutKey(t *testing.T) {
	db := testutil.NewDB(t)
	config.STRIPE_SECRET_KEY = ""

	_, err := Sync(context.Background(), db)
	assert.ErrorIs(t, err, ErrStripeNotConfigured)
}

func TestListPlans(t *testing.T) {
	db := testutil.NewDB(t)
	config.STRIPE_PRODUCT_ID = ""
	limit := 8
	require.NoError(t, db.Create(&plans.Plan{PriceType: "plan4-monthly", Name: "Rudel", StripePriceID: "p4", PriceEUR: decimal.RequireFromString("19.99"), Interval: "month", Tier: "plan4", TierLimit: &limit}).Error)
	require.NoError(t, db.Create(&plans.Plan{PriceType: "plan1-monthly", Name: "Solo", StripePriceID: "p1", PriceEUR: decimal.RequireFromString("4.99"), Interval: "month", Tier: "plan1"}).Error)

	r := gin.New()
	r.GET("/plans", ListPlans)

	w := testutil.Do(t, r, http.MethodGet, "/plans", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"priceType":"plan1-monthly","name":"Solo","priceEur":"4.99","interval":"month","tier":"plan1","maxPets":null},
		{"priceType":"plan4-monthly","name":"Rudel","priceEur":"19.99","interval":"month","tier":"plan4","maxPets":8}
	]`, w.Body.String())
}
