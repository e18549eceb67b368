// Package dashboard aggregates platform-wide statistics for administrators.
package dashboard

import (
	"context"
	"time"

	"github.com/petrolink/fuelhub/internal/app/storage"
	"github.com/petrolink/fuelhub/internal/errors"
	"github.com/petrolink/fuelhub/internal/platform/cache"
	"github.com/petrolink/fuelhub/pkg/logger"
)

const statsCacheKey = "dashboard:stats"

// Service computes dashboard aggregates, optionally cached in Redis.
type Service struct {
	store storage.StatsStore
	cache *cache.Cache
	log   *logger.Logger
}

// New constructs a dashboard service. A nil cache disables caching.
func New(store storage.StatsStore, c *cache.Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("dashboard")
	}
	return &Service{store: store, cache: c, log: log}
}

// Stats returns the aggregate counters. Cached values are served until the
// cache TTL lapses; cache failures fall through to the store.
func (s *Service) Stats(ctx context.Context) (storage.DashboardStats, error) {
	var cached storage.DashboardStats
	if err := s.cache.Get(ctx, statsCacheKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).Warn("stats cache read failed")
	}

	stats, err := s.store.DashboardStats(ctx)
	if err != nil {
		return storage.DashboardStats{}, err
	}
	stats.GeneratedAt = time.Now().UTC()

	if err := s.cache.Set(ctx, statsCacheKey, stats); err != nil {
		s.log.WithError(err).Warn("stats cache write failed")
	}
	return stats, nil
}
