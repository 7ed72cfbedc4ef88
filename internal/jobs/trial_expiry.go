// Package jobs holds background work run by the server or the CLI.
package jobs

import (
	"context"
	"sync"
	"time"

	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/trials"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/infra/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TrialExpiry periodically flips lapsed trials to inactive.
type TrialExpiry struct {
	db       *gorm.DB
	cache    cache.Cache
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

func NewTrialExpiry(db *gorm.DB, c cache.Cache, interval time.Duration, logger *zap.Logger) *TrialExpiry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrialExpiry{
		db:       db,
		cache:    c,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// RunOnce expires lapsed trials and drops their cached subscription status.
func (j *TrialExpiry) RunOnce(ctx context.Context) (int, error) {
	emails, err := trials.ExpireTrials(ctx, j.db, j.now().UTC())
	if err != nil {
		return 0, err
	}
	if len(emails) == 0 {
		return 0, nil
	}

	if j.cache != nil {
		keys := make([]string, len(emails))
		for i, e := range emails {
			keys[i] = subscribers.CacheKey(e)
		}
		j.cache.Delete(ctx, keys...)
	}
	metrics.TrialsExpired.Add(float64(len(emails)))
	j.logger.Info("Expired trials", zap.Int("count", len(emails)))
	return len(emails), nil
}

// Start runs the job once immediately, then every interval until Stop.
func (j *TrialExpiry) Start(ctx context.Context) {
	j.mu.Lock()
	if j.isRunning || j.interval <= 0 {
		j.mu.Unlock()
		return
	}
	j.isRunning = true
	j.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel

	j.wg.Add(1)
	go j.runLoop(ctx)

	j.logger.Info("Trial expiry job started", zap.Duration("interval", j.interval))
}

func (j *TrialExpiry) Stop() {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return
	}
	j.isRunning = false
	j.mu.Unlock()

	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
	j.logger.Info("Trial expiry job stopped")
}

func (j *TrialExpiry) runLoop(ctx context.Context) {
	defer j.wg.Done()

	j.tick(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *TrialExpiry) tick(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error("Trial expiry run failed", zap.Error(err))
	}
}
