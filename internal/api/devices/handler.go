package devices

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/api/auth"
	"tiertrainer-backend/internal/domain/devices"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ActionCheck  = "check"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

type validateRequest struct {
	DeviceFingerprint string          `json:"deviceFingerprint"`
	UserEmail         string          `json:"userEmail"`
	UserID            any             `json:"userId"`
	DeviceInfo        json.RawMessage `json:"deviceInfo"`
	Action            string          `json:"action"`
}

// POST /validate-device
// The caller is taken from the JWT; userEmail in the body must match it when sent.
func ValidateDevice(c *gin.Context) {
	var body validateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	fp := strings.TrimSpace(body.DeviceFingerprint)
	if !devices.ValidFingerprint(fp) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deviceFingerprint"})
		return
	}

	email := c.GetString("email")
	userID := c.GetUint("user_id")
	if body.UserEmail != "" && !strings.EqualFold(strings.TrimSpace(body.UserEmail), email) {
		c.JSON(http.StatusForbidden, gin.H{"error": "userEmail does not match the signed-in account"})
		return
	}

	action := strings.ToLower(strings.TrimSpace(body.Action))
	if action == "" {
		action = ActionBind
	}
	now := time.Now()

	switch action {
	case ActionCheck:
		b := devices.Lookup(database.DB, fp)
		if b == nil || !b.Live(now) {
			metrics.DeviceDecisions.WithLabelValues("unbound").Inc()
			c.JSON(http.StatusOK, gin.H{"allowed": true, "bound": false})
			return
		}
		own := b.BelongsTo(email)
		outcome := "own"
		if !own {
			outcome = "other"
		}
		metrics.DeviceDecisions.WithLabelValues(outcome).Inc()
		c.JSON(http.StatusOK, gin.H{
			"allowed":       own,
			"bound":         true,
			"boundToCaller": own,
			"boundEmail":    devices.MaskEmail(b.UserEmail),
		})

	case ActionBind:
		info := ""
		if len(body.DeviceInfo) > 0 && string(body.DeviceInfo) != "null" {
			info = string(body.DeviceInfo)
		}
		d, err := devices.Bind(database.DB, now, devices.BindRequest{
			Fingerprint: fp,
			UserID:      userID,
			UserEmail:   email,
			DeviceInfo:  info,
		})
		if errors.Is(err, devices.ErrDeviceBoundToAnotherAccount) {
			metrics.DeviceDecisions.WithLabelValues("rejected").Inc()
			c.JSON(http.StatusForbidden, gin.H{
				"allowed":    false,
				"reason":     d.Reason,
				"error":      "This device is already linked to another account",
				"boundEmail": devices.MaskEmail(d.Binding.UserEmail),
			})
			return
		}
		if err != nil {
			zap.L().Warn("Device bind failed, allowing", zap.Error(err))
		}
		outcome := "refreshed"
		if d.Created {
			outcome = "bound"
		}
		metrics.DeviceDecisions.WithLabelValues(outcome).Inc()
		c.JSON(http.StatusOK, gin.H{"allowed": true, "created": d.Created})

	case ActionUnbind:
		released, err := devices.Release(database.DB, fp, email)
		if err != nil {
			zap.L().Error("Device unbind failed", zap.String("email", email), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unbind device"})
			return
		}
		metrics.DeviceDecisions.WithLabelValues("released").Inc()
		c.JSON(http.StatusOK, gin.H{"released": released})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action", "actions": []string{ActionCheck, ActionBind, ActionUnbind}})
	}
}

// POST /device/auto-login signs in the account a live binding points to.
func AutoLogin(c *gin.Context) {
	var body struct {
		DeviceFingerprint string `json:"deviceFingerprint"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !devices.ValidFingerprint(strings.TrimSpace(body.DeviceFingerprint)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid deviceFingerprint"})
		return
	}

	now := time.Now()
	b := devices.Lookup(database.DB, strings.TrimSpace(body.DeviceFingerprint))
	if b == nil || !b.Live(now) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Device not remembered"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", b.UserID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Device not remembered"})
		return
	}
	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Email not verified", "reason": "EMAIL_NOT_VERIFIED"})
		return
	}

	token, err := auth.IssueToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	if err := database.DB.Model(&devices.Binding{}).Where("id = ?", b.ID).
		Update("last_used_at", now).Error; err != nil {
		zap.L().Warn("Failed to touch device binding", zap.Uint("binding_id", b.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}
