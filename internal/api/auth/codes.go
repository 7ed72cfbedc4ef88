package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"tiertrainer-backend/internal/domain/users"

	"gorm.io/gorm"
)

const (
	signupCodeTTL = 15 * time.Minute
	resetCodeTTL  = time.Hour
)

var (
	errCodeInvalid  = errors.New("invalid code")
	errCodeExpired  = errors.New("code expired")
	errCodeTooMany  = errors.New("too many attempts")
	errCodeNotFound = errors.New("no pending code")
)

// issueCode replaces any earlier code of the same purpose for the user.
func issueCode(db *gorm.DB, userID uint, purpose string, ttl time.Duration) (string, error) {
	code, err := users.NewCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND purpose = ?", userID, purpose).
			Delete(&users.SignupVerificationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&users.SignupVerificationCode{
			UserID:    userID,
			CodeHash:  users.HashCode(code),
			Purpose:   purpose,
			ExpiresAt: time.Now().Add(ttl),
		}).Error
	})
	if err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	return code, nil
}

// consumeCode checks code against the user's pending code and deletes it on success.
// Wrong guesses count against MaxCodeAttempts.
func consumeCode(db *gorm.DB, userID uint, purpose, code string) error {
	var pending users.SignupVerificationCode
	err := db.Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at DESC").First(&pending).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errCodeNotFound
	}
	if err != nil {
		return err
	}

	if pending.Expired(time.Now()) {
		return errCodeExpired
	}
	if pending.Attempts >= users.MaxCodeAttempts {
		return errCodeTooMany
	}
	if !pending.Matches(code) {
		if err := db.Model(&pending).Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return fmt.Errorf("count code attempt: %w", err)
		}
		return errCodeInvalid
	}

	return db.Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&users.SignupVerificationCode{}).Error
}

func codeErrorStatus(err error) int {
	switch {
	case errors.Is(err, errCodeTooMany):
		return http.StatusTooManyRequests
	case errors.Is(err, errCodeInvalid), errors.Is(err, errCodeExpired), errors.Is(err, errCodeNotFound):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func codeErrorMessage(err error) string {
	switch {
	case errors.Is(err, errCodeExpired):
		return "Code expired. Please request a new one."
	case errors.Is(err, errCodeTooMany):
		return "Too many attempts. Please request a new code."
	case codeErrorStatus(err) == http.StatusInternalServerError:
		return "Failed to check code"
	default:
		return "Invalid or expired code"
	}
}
