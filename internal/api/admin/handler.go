package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/analytics"
	"tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/devices"
	"tiertrainer-backend/internal/domain/pets"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/support"
	"tiertrainer-backend/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AdminUser struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
}

type AdminSubscriber struct {
	ID                   uint        `json:"id"`
	UserID               *uint       `json:"user_id,omitempty"`
	Email                string      `json:"email"`
	Mode                 access.Mode `json:"mode"`
	Status               string      `json:"subscription_status"`
	Tier                 *string     `json:"subscription_tier,omitempty"`
	BillingCycle         *string     `json:"billing_cycle,omitempty"`
	SubscriptionEnd      *time.Time  `json:"subscription_end,omitempty"`
	CancelAtPeriodEnd    bool        `json:"cancel_at_period_end"`
	TrialUsed            bool        `json:"trial_used"`
	TrialEnd             *time.Time  `json:"trial_end,omitempty"`
	StripeCustomerID     *string     `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string     `json:"stripe_subscription_id,omitempty"`
}

type AdminPayment struct {
	ID         uint            `json:"id"`
	PlanName   *string         `json:"plan_name,omitempty"`
	AmountEUR  decimal.Decimal `json:"amount_eur"`
	Refunded   decimal.Decimal `json:"refunded_eur"`
	Status     string          `json:"status"`
	InvoiceID  string          `json:"invoice_id"`
	ReceiptURL *string         `json:"receipt_url,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

type AdminStats struct {
	TotalUsers         int64               `json:"total_users"`
	SubscribersPerMode map[access.Mode]int `json:"subscribers_per_mode"`
	TotalRevenue       decimal.Decimal     `json:"total_revenue"`
	RecentRevenue      decimal.Decimal     `json:"recent_revenue"`
	OpenTickets        int64               `json:"open_tickets"`
	EventsLast7Days    int64               `json:"events_last_7_days"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

func toAdminSubscriber(now time.Time, s *subscribers.Subscriber) AdminSubscriber {
	return AdminSubscriber{
		ID:                   s.ID,
		UserID:               s.UserID,
		Email:                s.Email,
		Mode:                 access.DeriveMode(now, s),
		Status:               s.SubscriptionStatus,
		Tier:                 s.SubscriptionTier,
		BillingCycle:         s.BillingCycle,
		SubscriptionEnd:      s.SubscriptionEnd,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		TrialUsed:            s.TrialUsed,
		TrialEnd:             s.TrialEnd(),
		StripeCustomerID:     s.StripeCustomerID,
		StripeSubscriptionID: s.StripeSubscriptionID,
	}
}

func toAdminPayment(p billing.Payment) AdminPayment {
	var planName *string
	if p.Plan != nil {
		planName = &p.Plan.Name
	}
	return AdminPayment{
		ID:         p.ID,
		PlanName:   planName,
		AmountEUR:  p.AmountEUR,
		Refunded:   p.RefundedEUR,
		Status:     p.Status,
		InvoiceID:  p.StripeInvoiceID,
		ReceiptURL: p.ReceiptURL,
		CreatedAt:  p.CreatedAt.Format("2006-01-02 15:04"),
	}
}

// GET /admin/dashboard
func GetAdminStats(c *gin.Context) {
	now := time.Now()
	db := database.DB

	stats := AdminStats{
		SubscribersPerMode: map[access.Mode]int{},
		TotalRevenue:       decimal.Zero,
		RecentRevenue:      decimal.Zero,
		GeneratedAt:        now,
	}

	if err := db.Model(&users.User{}).Count(&stats.TotalUsers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	var subs []subscribers.Subscriber
	if err := db.Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	for i := range subs {
		stats.SubscribersPerMode[access.DeriveMode(now, &subs[i])]++
	}

	// ✅ sum in decimal, not SQL floats
	var payments []billing.Payment
	if err := db.Select("amount_eur", "refunded_eur", "created_at").
		Where("status IN ?", []string{billing.PaymentPaid, billing.PaymentPartiallyRefunded}).
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	thirtyDaysAgo := now.AddDate(0, 0, -30)
	for _, p := range payments {
		net := p.Refundable()
		stats.TotalRevenue = stats.TotalRevenue.Add(net)
		if !p.CreatedAt.Before(thirtyDaysAgo) {
			stats.RecentRevenue = stats.RecentRevenue.Add(net)
		}
	}

	db.Model(&support.Ticket{}).Where("status <> ?", support.StatusResolved).Count(&stats.OpenTickets)
	db.Model(&analytics.Event{}).Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&stats.EventsLast7Days)

	c.JSON(http.StatusOK, stats)
}

// GET /admin/subscribers?mode=trial
func ListSubscribers(c *gin.Context) {
	var subs []subscribers.Subscriber
	if err := database.DB.Order("created_at DESC").Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscribers"})
		return
	}

	now := time.Now()
	filter := access.Mode(c.Query("mode"))
	out := make([]AdminSubscriber, 0, len(subs))
	for i := range subs {
		row := toAdminSubscriber(now, &subs[i])
		if filter != "" && row.Mode != filter {
			continue
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, out)
}

// GET /admin/users/:id
func GetUserDetails(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var user users.User
	if err := database.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	now := time.Now()
	sub, err := subscribers.FindByEmail(database.DB, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriber"})
		return
	}

	var payments []billing.Payment
	if err := database.DB.Preload("Plan").Where("user_id = ?", user.ID).Order("created_at DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}
	paymentRows := make([]AdminPayment, 0, len(payments))
	for _, p := range payments {
		paymentRows = append(paymentRows, toAdminPayment(p))
	}

	var petCount int64
	database.DB.Model(&pets.Profile{}).Where("user_id = ?", user.ID).Count(&petCount)

	var bindings []devices.Binding
	database.DB.Where("user_email = ?", user.Email).Order("created_at DESC").Find(&bindings)

	var subscriber *AdminSubscriber
	if sub != nil {
		row := toAdminSubscriber(now, sub)
		subscriber = &row
	}
	policy := access.ComputePolicy(now, sub)

	c.JSON(http.StatusOK, gin.H{
		"user": AdminUser{
			ID:           user.ID,
			Name:         user.Name,
			Email:        user.Email,
			Role:         user.Role,
			IsVerified:   user.IsVerified,
			AuthProvider: user.AuthProvider,
			CreatedAt:    user.CreatedAt,
		},
		"subscriber":      subscriber,
		"mode":            policy.Mode,
		"max_pets":        policy.MaxPets,
		"pet_count":       petCount,
		"payments":        paymentRows,
		"device_bindings": toBindingRows(now, bindings),
	})
}
