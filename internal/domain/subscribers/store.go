package subscribers

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// FindByEmail returns (nil, nil) when the email has no subscriber row.
func FindByEmail(db *gorm.DB, email string) (*Subscriber, error) {
	var s Subscriber
	err := db.Where("email = ?", NormalizeEmail(email)).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscriber: %w", err)
	}
	return &s, nil
}

// FindByStripeCustomer returns (nil, nil) when no row carries the customer id.
func FindByStripeCustomer(db *gorm.DB, customerID string) (*Subscriber, error) {
	var s Subscriber
	err := db.Where("stripe_customer_id = ?", customerID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load subscriber by customer: %w", err)
	}
	return &s, nil
}

// Ensure returns the subscriber row for email, creating an unsubscribed one if missing.
func Ensure(db *gorm.DB, email string, userID uint) (*Subscriber, error) {
	existing, err := FindByEmail(db, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.UserID == nil && userID != 0 {
			uid := userID
			existing.UserID = &uid
			if err := db.Model(existing).Update("user_id", uid).Error; err != nil {
				return nil, fmt.Errorf("link subscriber to user: %w", err)
			}
		}
		return existing, nil
	}

	s := Subscriber{Email: NormalizeEmail(email)}
	if userID != 0 {
		uid := userID
		s.UserID = &uid
	}
	if err := db.Create(&s).Error; err != nil {
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	return &s, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CacheKey is the request-cache key for the subscription status of email.
func CacheKey(email string) string {
	return "subscription:" + NormalizeEmail(email)
}
