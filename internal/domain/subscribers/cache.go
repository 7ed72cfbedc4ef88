package subscribers

import (
	"context"
	"time"

	"tiertrainer-backend/internal/infra/cache"

	"gorm.io/gorm"
)

// CacheTTL bounds how stale a memoized subscriber row may be.
const CacheTTL = 30 * time.Second

// LoadCached memoizes FindByEmail per email. A missing row is cached as nil.
func LoadCached(ctx context.Context, c cache.Cache, db *gorm.DB, email string) (*Subscriber, error) {
	return cache.Remember(ctx, c, CacheKey(email), CacheTTL, func() (*Subscriber, error) {
		return FindByEmail(db, email)
	})
}

// Invalidate drops the memoized row; call after every subscriber write.
func Invalidate(ctx context.Context, c cache.Cache, email string) {
	if c == nil || email == "" {
		return
	}
	c.Delete(ctx, CacheKey(email))
}
