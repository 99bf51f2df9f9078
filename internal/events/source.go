package events

import (
	"context"
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/cache"
)

// CacheSource adapts the event repository to the event listing the derived
// caches seed and sweep from.
type CacheSource struct {
	repo Repository
}

func NewCacheSource(repo Repository) *CacheSource {
	return &CacheSource{repo: repo}
}

func (s *CacheSource) ListEventSummaries(ctx context.Context) ([]cache.EventSummary, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]cache.EventSummary, 0, len(list))
	for _, e := range list {
		summaries = append(summaries, cache.EventSummary{
			ID:          e.ID,
			Category:    e.Category,
			Coordinates: e.Coordinates(),
		})
	}
	return summaries, nil
}

func (s *CacheSource) ListStartedEventIDs(ctx context.Context, cutoff time.Time) ([]int64, error) {
	return s.repo.ListStartedBefore(ctx, cutoff)
}
