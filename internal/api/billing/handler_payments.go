package billing

import (
	"errors"
	"net/http"
	"strconv"

	"tiertrainer-backend/database"
	billingdomain "tiertrainer-backend/internal/domain/billing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/refund"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GET /payments
func GetPaymentHistory(c *gin.Context) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var payments []billingdomain.Payment
	if err := database.DB.
		Preload("Plan").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payments"})
		return
	}

	c.JSON(http.StatusOK, payments)
}

// POST /admin/payments/:id/refund  {amount?} in EUR; omitted means the full remainder.
func RefundPayment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment id"})
		return
	}

	var body struct {
		Amount *decimal.Decimal `json:"amount"`
		Reason string           `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	if !stripeReady(c) {
		return
	}

	var payment billingdomain.Payment
	if err := database.DB.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payment"})
		return
	}

	refundable := payment.Refundable()
	amount := refundable
	if body.Amount != nil {
		amount = *body.Amount
	}
	if !amount.IsPositive() || amount.GreaterThan(refundable) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refund amount must be positive and at most the refundable amount", "refundable": refundable})
		return
	}
	if payment.StripePaymentIntentID == nil || *payment.StripePaymentIntentID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "Payment has no Stripe payment intent"})
		return
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(*payment.StripePaymentIntentID),
		Amount:        stripe.Int64(billingdomain.EURToCents(amount)),
	}
	if body.Reason != "" {
		params.Reason = stripe.String(body.Reason)
	}
	params.AddMetadata("payment_id", strconv.FormatUint(uint64(payment.ID), 10))
	params.AddMetadata("admin_email", c.GetString("email"))

	r, err := refund.New(params)
	if err != nil {
		zap.L().Error("Stripe refund failed", zap.Uint("payment_id", payment.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Refund failed", "details": stripeErrorMessage(err)})
		return
	}

	status := payment.StatusAfterRefund(amount)
	if err := database.DB.Model(&payment).Updates(map[string]interface{}{
		"refunded_eur": payment.RefundedEUR.Add(amount),
		"status":       status,
	}).Error; err != nil {
		zap.L().Error("Refund succeeded but payment update failed", zap.Uint("payment_id", payment.ID), zap.String("refund_id", r.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Refund issued but payment record not updated", "refund_id": r.ID})
		return
	}

	zap.L().Info("Payment refunded",
		zap.Uint("payment_id", payment.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("admin", c.GetString("email")),
	)
	c.JSON(http.StatusOK, gin.H{"refund_id": r.ID, "status": status, "refunded": amount.StringFixed(2)})
}
