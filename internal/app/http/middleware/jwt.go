package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/domain/admins"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var errNoToken = errors.New("no bearer token")

// parseBearer validates the Authorization header and copies the claims into the context.
func parseBearer(c *gin.Context) error {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return errNoToken
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return errors.New("Bearer token malformed")
	}

	jwtKey := []byte(config.JWT_SECRET)
	token, err := jwt.Parse(strings.TrimSpace(tokenString), func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtKey, nil
	})
	if err != nil || !token.Valid {
		return errors.New("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("Invalid token claims")
	}
	if email, ok := claims["email"].(string); ok {
		c.Set("email", email)
	}
	if role, ok := claims["role"].(string); ok {
		c.Set("role", role)
	}
	if userIDFloat, ok := claims["user_id"].(float64); ok {
		c.Set("user_id", uint(userIDFloat)) // ✅ Extract and cast user_id
	}
	return nil
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(config.JWT_SECRET) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			return
		}

		if err := parseBearer(c); err != nil {
			msg := err.Error()
			if errors.Is(err, errNoToken) {
				msg = "Authorization header missing"
			}
			zap.L().Debug("Auth rejected", zap.String("path", c.Request.URL.Path), zap.String("reason", msg))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		if c.GetUint("user_id") == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		c.Next()
	}
}

// OptionalAuth reads a valid token when present and otherwise lets the request through anonymously.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(config.JWT_SECRET) > 0 {
			_ = parseBearer(c)
		}
		c.Next()
	}
}

// RequireStaff authorizes from the admin_users table. The token role claim is not trusted.
func RequireStaff(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		admin, err := admins.Find(database.DB, email)
		if err != nil {
			zap.L().Error("Admin lookup failed", zap.String("email", email), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check permissions"})
			return
		}
		if admin == nil || !admin.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Set("admin_role", admin.Role)
		c.Set("admin_id", admin.ID)
		c.Next()
	}
}
