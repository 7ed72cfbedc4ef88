package middleware

import (
	"net/http"
	"time"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/subscribers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequirePaidMode lets premium and trial users through. The derived mode is
// stored under "access_mode" for handlers.
func RequirePaidMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")

		sub, err := subscribers.FindByEmail(database.DB, email)
		if err != nil {
			zap.L().Warn("Subscriber lookup failed, treating as free", zap.String("email", email), zap.Error(err))
			sub = nil
		}

		mode := access.DeriveMode(time.Now(), sub)
		c.Set("access_mode", mode)

		if !mode.HasPaidFeatures() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":  "This feature requires an active subscription or trial",
				"reason": "SUBSCRIPTION_REQUIRED",
				"mode":   mode,
			})
			return
		}

		c.Next()
	}
}
