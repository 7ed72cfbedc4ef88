package users

import (
	"net/http"
	"strings"
	"time"

	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/access"
	"tiertrainer-backend/internal/domain/pets"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /me
func GetCurrentUser(store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		if email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var user users.User
		if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		sub, err := subscribers.LoadCached(c.Request.Context(), store, database.DB, email)
		if err != nil {
			zap.L().Warn("Subscriber lookup failed, treating as free", zap.String("email", email), zap.Error(err))
			sub = nil
		}

		now := time.Now()
		policy := access.ComputePolicy(now, sub)

		var petCount int64
		database.DB.Model(&pets.Profile{}).Where("user_id = ?", user.ID).Count(&petCount)

		resp := MeResponse{
			User: BuildUserDTO(user),
			Billing: BillingDTO{
				Subscription:  BuildSubscriptionDTO(sub),
				Trial:         BuildTrialDTO(now, sub),
				PendingChange: BuildPendingChangeDTO(database.DB, sub),
			},
			Access: BuildAccessDTO(policy, petCount),
		}

		c.JSON(http.StatusOK, resp)
	}
}

// PATCH /me {name}
func UpdateProfile(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" || len(name) > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name must be 1-100 characters"})
		return
	}

	res := database.DB.Model(&users.User{}).Where("id = ?", c.GetUint("user_id")).Update("name", name)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "name": name})
}
