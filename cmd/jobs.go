package cmd

import (
	"context"
	"fmt"
	"time"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/api/plans"
	"tiertrainer-backend/internal/jobs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var expireTrialsCmd = &cobra.Command{
	Use:   "expire-trials",
	Short: "Expire lapsed trials once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := bootstrap()
		defer func() { _ = logger.Sync() }()

		store, closeCache := newCache(logger)
		defer closeCache()

		n, err := jobs.NewTrialExpiry(database.DB, store, 0, logger).RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("expired %d trial(s)\n", n)
		return nil
	},
}

var syncPlansTimeout time.Duration

var syncPlansCmd = &cobra.Command{
	Use:   "sync-plans",
	Short: "Upsert plans from the Stripe prices of STRIPE_PRODUCT_ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := bootstrap()
		defer func() { _ = logger.Sync() }()

		if config.STRIPE_PRODUCT_ID == "" {
			logger.Warn("STRIPE_PRODUCT_ID not set, syncing every recurring price")
		}

		ctx := cmd.Context()
		if syncPlansTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, syncPlansTimeout)
			defer cancel()
		}

		res, err := plans.Sync(ctx, database.DB)
		if err != nil {
			return fmt.Errorf("sync plans: %w", err)
		}
		logger.Info("Plans synced",
			zap.Int("synced", res.Synced),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped),
		)
		return nil
	},
}

func init() {
	syncPlansCmd.Flags().DurationVar(&syncPlansTimeout, "timeout", time.Minute, "abort the Stripe sync after this long (0 disables)")
}
