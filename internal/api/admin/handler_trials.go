package admin

import (
	"errors"
	"net/http"
	"time"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/trials"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	trialGrant  = "grant"
	trialReset  = "reset"
	trialExpire = "expire"
)

// POST /admin/trials {action: grant|reset|expire, targetEmail, trialDays?}
func ManageTrial(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Action      string `json:"action"`
			TargetEmail string `json:"targetEmail"`
			TrialDays   int    `json:"trialDays"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		email := subscribers.NormalizeEmail(body.TargetEmail)
		if email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "targetEmail is required"})
			return
		}
		switch body.Action {
		case trialGrant, trialReset, trialExpire:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action", "actions": []string{trialGrant, trialReset, trialExpire}})
			return
		}

		sub, err := subscribers.FindByEmail(database.DB, email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscriber"})
			return
		}
		if sub == nil {
			if body.Action != trialGrant {
				c.JSON(http.StatusNotFound, gin.H{"error": "Subscriber not found"})
				return
			}
			// granting to an account that never touched billing
			var user users.User
			if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			if sub, err = subscribers.Ensure(database.DB, email, user.ID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscriber"})
				return
			}
		}

		now := time.Now()
		switch body.Action {
		case trialGrant:
			err = trials.Grant(database.DB, now, sub, body.TrialDays)
		case trialReset:
			err = trials.Reset(database.DB, sub)
		case trialExpire:
			err = trials.Expire(database.DB, now, sub)
		}
		if errors.Is(err, trials.ErrInvalidDays) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			zap.L().Error("Admin trial action failed", zap.String("action", body.Action), zap.String("email", email), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trial"})
			return
		}

		subscribers.Invalidate(c.Request.Context(), store, email)
		zap.L().Info("Admin trial action",
			zap.String("action", body.Action),
			zap.String("email", email),
			zap.String("by", c.GetString("email")),
		)

		c.JSON(http.StatusOK, gin.H{
			"email":      email,
			"action":     body.Action,
			"mode":       access.DeriveMode(now, sub),
			"trial_used": sub.TrialUsed,
			"trial_end":  sub.TrialEnd(),
			"days_left":  sub.TrialDaysLeft(now),
		})
	}
}
