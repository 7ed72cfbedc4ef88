package stripewebhooks

import (
	"context"

	"tiertrainer-backend/database"
	billingdomain "tiertrainer-backend/internal/domain/billing"
	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/infra/cache"

	"github.com/stripe/stripe-go/v75"
	"go.uber.org/zap"
)

func handleSubscriptionDeleted(ctx context.Context, store cache.Cache, sub *stripe.Subscription) error {
	if sub.ID == "" {
		return nil
	}

	s, err := subscriberFor(sub)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	// a replaced subscription must not cancel its successor
	if s.StripeSubscriptionID != nil && *s.StripeSubscriptionID != "" && *s.StripeSubscriptionID != sub.ID {
		zap.L().Info("Ignoring deletion of replaced subscription",
			zap.String("subscription_id", sub.ID),
			zap.String("current", *s.StripeSubscriptionID),
		)
		return nil
	}

	if err := database.DB.Model(s).Updates(billingdomain.CanceledUpdates(sub)).Error; err != nil {
		return err
	}
	subscribers.Invalidate(ctx, store, s.Email)
	return nil
}
