package subscribers

import (
	"context"
	"testing"

	"tiertrainer-backend/internal/infra/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestLoadCachedAndInvalidate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&Subscriber{}))

	ctx := context.Background()
	mem := cache.NewMemory(0)
	defer mem.Close()

	got, err := LoadCached(ctx, mem, db, "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = Ensure(db, "a@example.com", 1)
	require.NoError(t, err)

	// still the memoized miss
	got, err = LoadCached(ctx, mem, db, "A@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	Invalidate(ctx, mem, "a@example.com")
	got, err = LoadCached(ctx, mem, db, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a@example.com", got.Email)
}
