package admin

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/devices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type bindingRow struct {
	ID          uint      `json:"id"`
	Fingerprint string    `json:"device_fingerprint"`
	UserID      uint      `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	DeviceInfo  string    `json:"device_info,omitempty"`
	IsActive    bool      `json:"is_active"`
	Live        bool      `json:"live"`
	LastUsedAt  time.Time `json:"last_used_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBindingRows(now time.Time, bindings []devices.Binding) []bindingRow {
	out := make([]bindingRow, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, bindingRow{
			ID:          b.ID,
			Fingerprint: b.DeviceFingerprint,
			UserID:      b.UserID,
			UserEmail:   b.UserEmail,
			DeviceInfo:  b.DeviceInfo,
			IsActive:    b.IsActive,
			Live:        b.Live(now),
			LastUsedAt:  b.LastUsedAt,
			ExpiresAt:   b.ExpiresAt,
			CreatedAt:   b.CreatedAt,
		})
	}
	return out
}

// GET /admin/device-bindings?email=&active=true
func ListDeviceBindings(c *gin.Context) {
	q := database.DB.Model(&devices.Binding{})
	if email := strings.ToLower(strings.TrimSpace(c.Query("email"))); email != "" {
		q = q.Where("user_email = ?", email)
	}
	if c.Query("active") == "true" {
		q = q.Where("is_active = ?", true)
	}

	var bindings []devices.Binding
	if err := q.Order("created_at DESC").Limit(500).Find(&bindings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load device bindings"})
		return
	}
	c.JSON(http.StatusOK, toBindingRows(time.Now(), bindings))
}

// DELETE /admin/device-bindings/:id deactivates; the row stays for audit.
func DeactivateDeviceBinding(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid binding id"})
		return
	}

	res := database.DB.Model(&devices.Binding{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate binding"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Binding not found"})
		return
	}

	zap.L().Info("Device binding deactivated", zap.Uint64("binding_id", id), zap.String("by", c.GetString("email")))
	c.JSON(http.StatusOK, gin.H{"message": "Binding deactivated"})
}
