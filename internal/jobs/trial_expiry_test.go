package jobs

import (
	"context"
	"testing"
	"time"

	"tiertrainer-backend/internal/domain/subscribers"
	"tiertrainer-backend/internal/domain/trials"
	"tiertrainer-backend/internal/infra/cache"
	"tiertrainer-backend/internal/infra/metrics"
	"tiertrainer-backend/internal/testutil"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunOnceExpiresAndInvalidatesCache(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s, err := subscribers.Ensure(db, "lapsed@example.com", 0)
	require.NoError(t, err)
	require.NoError(t, trials.Start(db, start, s))

	mem := cache.NewMemory(0)
	defer mem.Close()
	mem.Set(ctx, subscribers.CacheKey("lapsed@example.com"), []byte(`{"mode":"trial"}`), time.Hour)

	job := NewTrialExpiry(db, mem, time.Hour, zaptest.NewLogger(t))
	job.now = func() time.Time { return start.Add(8 * 24 * time.Hour) }

	before := promtestutil.ToFloat64(metrics.TrialsExpired)
	n, err := job.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, before+1, promtestutil.ToFloat64(metrics.TrialsExpired))

	_, cached := mem.Get(ctx, subscribers.CacheKey("lapsed@example.com"))
	assert.False(t, cached)

	got, err := subscribers.FindByEmail(db, "lapsed@example.com")
	require.NoError(t, err)
	assert.Equal(t, subscribers.StatusInactive, got.SubscriptionStatus)
}

func TestStartStop(t *testing.T) {
	db := testutil.NewDB(t)
	job := NewTrialExpiry(db, nil, 10*time.Millisecond, zaptest.NewLogger(t))

	job.Start(context.Background())
	job.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	job.Stop()
	job.Stop()
}

func TestStartDisabledWithZeroInterval(t *testing.T) {
	job := NewTrialExpiry(nil, nil, 0, nil)
	job.Start(context.Background())
	assert.False(t, job.isRunning)
	job.Stop()
}
