package stripewebhooks

import (
	"context"
	"errors"
	"fmt"

	"tiertrainer-backend/database"
	billingdomain "tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func handleSubscriptionUpdated(ctx context.Context, store cache.Cache, sub *stripe.Subscription) error {
	if sub.ID == "" {
		return errors.New("subscription missing id")
	}

	s, err := subscriberFor(sub)
	if err != nil {
		return err
	}
	if s == nil {
		// acknowledge to avoid Stripe retries if the user is gone
		zap.L().Warn("No subscriber for subscription", zap.String("subscription_id", sub.ID))
		return nil
	}

	if err := billingdomain.ApplySubscription(database.DB, s, sub); err != nil {
		return err
	}
	subscribers.Invalidate(ctx, store, s.Email)
	return nil
}

// subscriberFor finds the row a Stripe subscription belongs to: by subscription
// id, then metadata.user_id, then customer id. (nil, nil) when none matches.
func subscriberFor(sub *stripe.Subscription) (*subscribers.Subscriber, error) {
	var s subscribers.Subscriber
	err := database.DB.Where("stripe_subscription_id = ?", sub.ID).Limit(1).Find(&s).Error
	if err != nil {
		return nil, fmt.Errorf("load subscriber by subscription: %w", err)
	}
	if s.ID != 0 {
		return &s, nil
	}

	if userID := userIDFromMetadata(sub.Metadata); userID != 0 {
		var user users.User
		err := database.DB.Where("id = ?", userID).First(&user).Error
		if err == nil {
			return subscribers.Ensure(database.DB, user.Email, user.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load user %d: %w", userID, err)
		}
	}

	if sub.Customer != nil && sub.Customer.ID != "" {
		return subscribers.FindByStripeCustomer(database.DB, sub.Customer.ID)
	}
	return nil, nil
}
