package analytics

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/analytics"
	"tiertrainer-backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxPropertiesBytes = 4 << 10

var eventNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// POST /analytics/events {eventName, sessionId?, page?, properties?}
// Auth is optional; the user id is attached when a valid token is present.
func TrackEvent(c *gin.Context) {
	var body struct {
		EventName  string          `json:"eventName"`
		SessionID  string          `json:"sessionId"`
		Page       string          `json:"page"`
		Properties json.RawMessage `json:"properties"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	name := strings.ToLower(strings.TrimSpace(body.EventName))
	if !eventNamePattern.MatchString(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid eventName"})
		return
	}
	if len(body.Properties) > maxPropertiesBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "properties too large"})
		return
	}
	if len(body.SessionID) > 64 {
		body.SessionID = body.SessionID[:64]
	}

	ev := analytics.Event{
		SessionID:  body.SessionID,
		EventName:  name,
		Page:       body.Page,
		Properties: string(body.Properties),
	}
	if id := c.GetUint("user_id"); id != 0 {
		ev.UserID = &id
	}

	if err := database.DB.Create(&ev).Error; err != nil {
		zap.L().Error("Failed to store analytics event", zap.String("event", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store event"})
		return
	}

	metrics.AnalyticsEvents.WithLabelValues(name).Inc()
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
