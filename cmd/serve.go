package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	routes "tiertrainer-backend/internal/app/http"
	"tiertrainer-backend/internal/infra/assistant"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/infra/storage"
	"tiertrainer-backend/internal/jobs"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the trial expiry job",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := bootstrap()
	defer func() { _ = logger.Sync() }()

	if config.APP_ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeCache := newCache(logger)
	defer closeCache()

	bot := assistant.New(config.OPENAI_API_KEY, config.OPENAI_MODEL)
	if bot == nil {
		logger.Warn("OPENAI_API_KEY not set, support chat disabled")
	}

	deps := routes.Deps{
		Logger:    logger,
		Cache:     store,
		Assistant: bot,
		Storage:   newStorage(logger),
	}

	expiry := jobs.NewTrialExpiry(database.DB, store, config.TRIAL_EXPIRY_INTERVAL, logger.Named("trial-expiry"))
	expiry.Start(ctx)
	defer expiry.Stop()

	srv := &http.Server{
		Addr:              ":" + config.PORT,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr), zap.String("env", config.APP_ENV))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newCache prefers Redis when REDIS_URL is set so several instances share state.
func newCache(logger *zap.Logger) (cache.Cache, func()) {
	if config.REDIS_URL != "" {
		r, err := cache.NewRedis(config.REDIS_URL)
		if err == nil {
			logger.Info("Using Redis cache")
			return r, func() { _ = r.Close() }
		}
		logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
	}
	m := cache.NewMemory(time.Minute)
	return m, m.Close
}

func newStorage(logger *zap.Logger) storage.ObjectStorage {
	s3, err := storage.NewS3(storage.Config{
		Endpoint:  config.S3_ENDPOINT,
		Region:    config.S3_REGION,
		Bucket:    config.S3_BUCKET,
		AccessKey: config.S3_ACCESS_KEY,
		SecretKey: config.S3_SECRET_KEY,
	})
	if err != nil {
		logger.Warn("Object storage disabled, pet photos unavailable", zap.Error(err))
		return nil
	}
	return s3
}
