package auth

import (
	"time"

	"tiertrainer-backend/config"
	"tiertrainer-backend/internal/domain/users"

	"github.com/golang-jwt/jwt/v5"
)

const TokenTTL = 24 * time.Hour

// IssueToken signs the app JWT for user (HS256, 24h).
func IssueToken(user users.User) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})
	return t.SignedString([]byte(config.JWT_SECRET))
}
