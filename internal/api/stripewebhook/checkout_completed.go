package stripewebhooks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tiertrainer-backend/database"
	billingdomain "tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/checkout"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/users"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/subscription"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func handleCheckoutSessionCompleted(ctx context.Context, store cache.Cache, session *stripe.CheckoutSession) error {
	if err := confirmIntent(session, time.Now()); err != nil {
		return err
	}

	if session.Subscription == nil || session.Subscription.ID == "" {
		zap.L().Warn("Checkout session without subscription", zap.String("session_id", session.ID))
		return nil
	}
	subscriptionID := session.Subscription.ID

	subData, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}

	// Identify user: metadata.user_id preferred, else ClientReferenceID, else the checkout email
	email := ""
	userID := userIDFromSubscriptionOrRef(subData, session.ClientReferenceID)
	if userID != 0 {
		var user users.User
		err := database.DB.Where("id = ?", userID).First(&user).Error
		switch {
		case err == nil:
			email = user.Email
		case errors.Is(err, gorm.ErrRecordNotFound):
			userID = 0
		default:
			return fmt.Errorf("load user %d: %w", userID, err)
		}
	}
	if email == "" {
		email = session.CustomerEmail
		if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
			email = session.CustomerDetails.Email
		}
	}
	if email == "" {
		zap.L().Warn("Checkout completed for unknown user", zap.String("session_id", session.ID))
		return nil
	}

	sub, err := subscribers.Ensure(database.DB, email, userID)
	if err != nil {
		return err
	}

	// a second checkout replaces the previous subscription
	if sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID != "" && *sub.StripeSubscriptionID != subscriptionID {
		if _, err := subscription.Cancel(*sub.StripeSubscriptionID, nil); err != nil {
			zap.L().Warn("Failed to cancel replaced subscription",
				zap.String("subscription_id", *sub.StripeSubscriptionID),
				zap.Error(err),
			)
		}
	}

	if err := billingdomain.ApplySubscription(database.DB, sub, subData); err != nil {
		return err
	}
	subscribers.Invalidate(ctx, store, email)

	zap.L().Info("✅ Checkout completed",
		zap.String("email", subscribers.NormalizeEmail(email)),
		zap.String("subscription_id", subscriptionID),
		zap.String("status", string(subData.Status)),
	)
	return nil
}

// confirmIntent marks the server-side intent for the session as confirmed.
func confirmIntent(session *stripe.CheckoutSession, now time.Time) error {
	q := database.DB.Model(&checkout.Intent{}).Where("confirmed_at IS NULL")
	if token, err := uuid.Parse(session.Metadata["intent_token"]); err == nil {
		q = q.Where("stripe_session_id = ? OR token = ?", session.ID, token)
	} else {
		q = q.Where("stripe_session_id = ?", session.ID)
	}
	if err := q.Update("confirmed_at", now).Error; err != nil {
		return fmt.Errorf("confirm checkout intent: %w", err)
	}
	return nil
}

func userIDFromSubscriptionOrRef(sub *stripe.Subscription, clientRef string) uint {
	if uid := userIDFromMetadata(sub.Metadata); uid != 0 {
		return uid
	}
	if clientRef == "" {
		return 0
	}
	uid64, err := strconv.ParseUint(clientRef, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid64)
}

func userIDFromMetadata(md map[string]string) uint {
	if md == nil {
		return 0
	}
	s := md["user_id"]
	if s == "" {
		return 0
	}
	uid, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(uid)
}
