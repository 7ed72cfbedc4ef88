package plans

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/price"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrStripeNotConfigured = errors.New("stripe key not configured")

type SyncResult struct {
	Synced  int `json:"synced"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Sync upserts active recurring EUR prices of STRIPE_PRODUCT_ID into plans.
// The price type comes from price metadata "price_type", else the lookup key.
func Sync(ctx context.Context, db *gorm.DB) (SyncResult, error) {
	var res SyncResult

	stripe.Key = config.STRIPE_SECRET_KEY
	if stripe.Key == "" {
		return res, ErrStripeNotConfigured
	}

	params := &stripe.PriceListParams{}
	params.Context = ctx
	params.Active = stripe.Bool(true)
	params.Type = stripe.String(string(stripe.PriceTypeRecurring))
	if config.STRIPE_PRODUCT_ID != "" {
		params.Product = stripe.String(config.STRIPE_PRODUCT_ID)
	}
	params.AddExpand("data.product")

	it := price.List(params)
	for it.Next() {
		p := it.Price()

		if !p.Active || p.Recurring == nil || p.Product == nil {
			res.Skipped++
			continue
		}
		// ✅ only EUR prices are sold
		if p.Currency != stripe.CurrencyEUR {
			res.Skipped++
			continue
		}
		if p.Metadata["visible"] == "false" {
			res.Skipped++
			continue
		}

		priceType := strings.TrimSpace(p.Metadata["price_type"])
		if priceType == "" {
			priceType = strings.TrimSpace(p.LookupKey)
		}
		if priceType == "" {
			zap.L().Warn("Skipping Stripe price without price_type", zap.String("price_id", p.ID))
			res.Skipped++
			continue
		}

		plan := planFromPrice(p, priceType)

		var existing plans.Plan
		err := db.WithContext(ctx).Where("stripe_price_id = ? OR price_type = ?", p.ID, priceType).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.WithContext(ctx).Create(&plan).Error; err != nil {
				return res, fmt.Errorf("create plan %s: %w", priceType, err)
			}
			res.Created++
		case err != nil:
			return res, fmt.Errorf("find plan %s: %w", priceType, err)
		default:
			plan.ID = existing.ID
			if err := db.WithContext(ctx).Save(&plan).Error; err != nil {
				return res, fmt.Errorf("update plan %s: %w", priceType, err)
			}
			res.Updated++
		}
		res.Synced++
	}
	if err := it.Err(); err != nil {
		return res, fmt.Errorf("list stripe prices: %w", err)
	}
	return res, nil
}

func planFromPrice(p *stripe.Price, priceType string) plans.Plan {
	name := p.Product.Name
	if v := p.Metadata["plan"]; v != "" {
		name = v
	}

	tier := plans.NormalizeTier(p.Metadata["tier"])

	var limit *int
	if raw := p.Metadata["tier_limit"]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = &n
		}
	}
	if limit == nil {
		if n, ok := plans.TierPetLimit(tier); ok {
			limit = &n
		}
	}

	return plans.Plan{
		PriceType:       priceType,
		Name:            name,
		PriceEUR:        decimal.New(p.UnitAmount, -2),
		StripePriceID:   p.ID,
		StripeProductID: p.Product.ID,
		Interval:        string(p.Recurring.Interval),
		Tier:            tier,
		TierLimit:       limit,
	}
}

// POST /admin/sync-plans
func SyncPlansFromStripe(c *gin.Context) {
	res, err := Sync(c.Request.Context(), database.DB)
	if errors.Is(err, ErrStripeNotConfigured) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}
	if err != nil {
		zap.L().Error("Plan sync failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to sync plans", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

type planDTO struct {
	PriceType string          `json:"priceType"`
	Name      string          `json:"name"`
	PriceEUR  decimal.Decimal `json:"priceEur"`
	Interval  string          `json:"interval"`
	Tier      string          `json:"tier"`
	MaxPets   *int            `json:"maxPets"`
}

// GET /plans
func ListPlans(c *gin.Context) {
	var plansList []plans.Plan
	q := database.DB.Model(&plans.Plan{})
	if config.STRIPE_PRODUCT_ID != "" {
		q = q.Where("stripe_product_id = ?", config.STRIPE_PRODUCT_ID)
	}
	if err := q.Order("price_eur ASC").Find(&plansList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	out := make([]planDTO, 0, len(plansList))
	for i := range plansList {
		p := plansList[i]
		out = append(out, planDTO{
			PriceType: p.PriceType,
			Name:      p.Name,
			PriceEUR:  p.PriceEUR,
			Interval:  p.Interval,
			Tier:      plans.PlanTier(&p),
			MaxPets:   p.TierLimit,
		})
	}
	c.JSON(http.StatusOK, out)
}
