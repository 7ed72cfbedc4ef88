package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tiertrainer-backend/config"
	"tiertrainer-backend/database"
	"tiertrainer-backend/internal/infra/assistant"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/infra/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/balance"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrCheckDisabled marks an integration that is not configured.
var ErrCheckDisabled = errors.New("not configured")

var healthCheckTimeout = 10 * time.Second

type HealthCheck struct {
	Name string
	Run  func(ctx context.Context) error
}

type checkResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"` // ok | failed | disabled
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// DefaultHealthChecks probes the database, Stripe, OpenAI and the request cache.
func DefaultHealthChecks(store cache.Cache) []HealthCheck {
	return []HealthCheck{
		{Name: "database", Run: func(ctx context.Context) error {
			sqlDB, err := database.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{Name: "stripe", Run: func(ctx context.Context) error {
			if config.STRIPE_SECRET_KEY == "" {
				return ErrCheckDisabled
			}
			stripe.Key = config.STRIPE_SECRET_KEY
			params := &stripe.BalanceParams{}
			params.Context = ctx
			_, err := balance.Get(params)
			return err
		}},
		{Name: "openai", Run: func(ctx context.Context) error {
			err := assistant.Ping(ctx, config.OPENAI_API_KEY)
			if errors.Is(err, assistant.ErrDisabled) {
				return ErrCheckDisabled
			}
			return err
		}},
		{Name: "cache", Run: func(ctx context.Context) error {
			if store == nil {
				return ErrCheckDisabled
			}
			return store.Ping(ctx)
		}},
	}
}

// runCheck bounds a check by healthCheckTimeout. A check that ignores its
// context is abandoned at the deadline and reported as failed.
func runCheck(ctx context.Context, hc HealthCheck) checkResult {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- hc.Run(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	elapsed := time.Since(start)

	res := checkResult{Name: hc.Name, Status: "ok", LatencyMS: elapsed.Milliseconds()}
	switch {
	case errors.Is(err, ErrCheckDisabled):
		res.Status = "disabled"
	case err != nil:
		res.Status = "failed"
		res.Error = err.Error()
	}
	metrics.HealthCheckDuration.WithLabelValues(hc.Name, res.Status).Observe(elapsed.Seconds())
	return res
}

// GET /admin/health runs all checks in parallel. 503 when any check failed.
func Health(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		results := make([]checkResult, len(checks))

		var g errgroup.Group
		for i, hc := range checks {
			g.Go(func() error {
				results[i] = runCheck(c.Request.Context(), hc)
				return nil
			})
		}
		_ = g.Wait()

		status, code := "ok", http.StatusOK
		for _, r := range results {
			if r.Status == "failed" {
				status, code = "degraded", http.StatusServiceUnavailable
				zap.L().Warn("Health check failed", zap.String("check", r.Name), zap.String("error", r.Error))
			}
		}
		c.JSON(code, gin.H{"status": status, "checks": results, "checked_at": time.Now()})
	}
}
