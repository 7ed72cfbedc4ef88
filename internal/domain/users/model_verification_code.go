package users

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

const (
	PurposeSignup        = "signup"
	PurposePasswordReset = "password_reset"

	// MaxCodeAttempts bounds guesses against a single 6-digit code.
	MaxCodeAttempts = 5
)

// SignupVerificationCode backs both email verification and password reset.
// Only the SHA-256 of the code is stored.
type SignupVerificationCode struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	CodeHash  string `gorm:"column:code_hash;size:64"`
	Purpose   string `gorm:"size:32;index"`
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SignupVerificationCode) TableName() string { return "signup_verification_codes" }

func (v SignupVerificationCode) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

// Matches compares code against the stored hash in constant time.
func (v SignupVerificationCode) Matches(code string) bool {
	return subtle.ConstantTimeCompare([]byte(v.CodeHash), []byte(HashCode(code))) == 1
}

func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// NewCode returns a zero-padded random 6-digit code.
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
