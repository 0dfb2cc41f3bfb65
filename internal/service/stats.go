package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lexweave/depoflow/internal/domain/document"
	"github.com/lexweave/depoflow/internal/middleware"
	"github.com/lexweave/depoflow/internal/port/cache"
	"github.com/lexweave/depoflow/internal/port/database"
)

// StatsService projects per-firm dashboard aggregates from the document and
// objection tables. Snapshots are cached briefly per firm; the dashboard
// tolerates slightly stale numbers in exchange for not hammering the
// aggregate query.
type StatsService struct {
	store database.Store
	cache cache.Cache
	ttl   time.Duration
}

// NewStatsService creates a new StatsService.
func NewStatsService(store database.Store, c cache.Cache, ttl time.Duration) *StatsService {
	return &StatsService{store: store, cache: c, ttl: ttl}
}

// Documents returns the caller firm's document stats, served from the cache
// when a fresh snapshot exists.
func (s *StatsService) Documents(ctx context.Context) (*document.Stats, error) {
	key := "stats:" + middleware.FirmIDFromContext(ctx)

	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var stats document.Stats
		if err := json.Unmarshal(data, &stats); err == nil {
			return &stats, nil
		}
		// Corrupt snapshot: drop it and recompute.
		_ = s.cache.Delete(ctx, key)
	}

	stats, err := s.store.DocumentStats(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			slog.Warn("stats cache set failed", "error", err)
		}
	}
	return stats, nil
}

// Invalidate drops the firm's cached snapshot, for callers that just changed
// the underlying numbers and want the next read fresh.
func (s *StatsService) Invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, "stats:"+middleware.FirmIDFromContext(ctx))
}
