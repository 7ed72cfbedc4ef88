package billing

import (
	"testing"
	"time"

	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/plans"
	"tiertrainer-backend/internal/domain/subscribers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&subscribers.Subscriber{}, &plans.Plan{}))
	return db
}

func stripeSub(id, status, priceID string, periodEnd time.Time) *stripe.Subscription {
	return &stripe.Subscription{
		ID:               id,
		Status:           stripe.SubscriptionStatus(status),
		CurrentPeriodEnd: periodEnd.Unix(),
		Customer:         &stripe.Customer{ID: "cus_1"},
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{
			{ID: "si_1", Price: &stripe.Price{ID: priceID}},
		}},
	}
}

func TestApplySubscriptionMakesPremium(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&plans.Plan{PriceType: "plan3-yearly", StripePriceID: "price_p3y", Interval: "year", Tier: "plan3", PriceEUR: decimal.RequireFromString("99.00")}).Error)

	s, err := subscribers.Ensure(db, "a@example.com", 1)
	require.NoError(t, err)
	pending := "plan3-yearly"
	require.NoError(t, db.Model(s).Update("pending_price_type", pending).Error)
	s.PendingPriceType = &pending

	end := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, ApplySubscription(db, s, stripeSub("sub_1", "active", "price_p3y", end)))

	got, err := subscribers.FindByEmail(db, "a@example.com")
	require.NoError(t, err)
	assert.True(t, got.Subscribed)
	assert.Equal(t, "plan3", *got.SubscriptionTier)
	assert.Equal(t, "yearly", *got.BillingCycle)
	assert.Equal(t, "cus_1", *got.StripeCustomerID)
	assert.Nil(t, got.PendingPriceType)
	assert.Equal(t, access.ModePremium, access.DeriveMode(time.Now(), got))
	assert.Equal(t, 4, access.MaxPetsAllowed(time.Now(), got))
}

func TestApplySubscriptionUnknownPriceKeepsTier(t *testing.T) {
	db := setupTestDB(t)
	s, err := subscribers.Ensure(db, "b@example.com", 2)
	require.NoError(t, err)

	require.NoError(t, ApplySubscription(db, s, stripeSub("sub_2", "past_due", "price_unknown", time.Now().Add(time.Hour))))

	got, err := subscribers.FindByEmail(db, "b@example.com")
	require.NoError(t, err)
	assert.False(t, got.Subscribed)
	assert.Nil(t, got.SubscriptionTier)
	assert.Equal(t, access.ModeFree, access.DeriveMode(time.Now(), got))
}

func TestCanceledUpdates(t *testing.T) {
	db := setupTestDB(t)
	s, err := subscribers.Ensure(db, "c@example.com", 3)
	require.NoError(t, err)
	require.NoError(t, ApplySubscription(db, s, stripeSub("sub_3", "active", "price_x", time.Now().Add(time.Hour))))

	require.NoError(t, db.Model(s).Updates(CanceledUpdates(&stripe.Subscription{ID: "sub_3"})).Error)
	got, err := subscribers.FindByEmail(db, "c@example.com")
	require.NoError(t, err)
	assert.False(t, got.Subscribed)
	assert.Nil(t, got.StripeSubscriptionID)
	assert.Equal(t, subscribers.StatusCanceled, got.SubscriptionStatus)
}

func TestApplySubscriptionEndsTrial(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.Create(&plans.Plan{PriceType: "plan1-monthly", StripePriceID: "price_p1m", Interval: "month", Tier: "plan1", PriceEUR: decimal.RequireFromString("4.99")}).Error)

	s, err := subscribers.Ensure(db, "d@example.com", 4)
	require.NoError(t, err)
	expired := time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, db.Model(s).Updates(map[string]any{"trial_start": expired, "trial_used": true}).Error)
	require.Equal(t, access.ModeTrialExpired, access.DeriveMode(time.Now(), &subscribers.Subscriber{TrialStart: &expired, TrialUsed: true}))

	require.NoError(t, ApplySubscription(db, s, stripeSub("sub_4", "active", "price_p1m", time.Now().Add(30*24*time.Hour))))

	got, err := subscribers.FindByEmail(db, "d@example.com")
	require.NoError(t, err)
	assert.Nil(t, got.TrialStart)
	assert.True(t, got.TrialUsed)
	assert.Equal(t, access.ModePremium, access.DeriveMode(time.Now(), got))
}
