package users

import (
	"context"

	"github.com/SlowlyFire/Hobbinder/internal/cache"
)

// CacheSource adapts the user repository to the profile listing the derived
// caches fan out over.
type CacheSource struct {
	repo Repository
}

func NewCacheSource(repo Repository) *CacheSource {
	return &CacheSource{repo: repo}
}

func (s *CacheSource) ListProfiles(ctx context.Context) ([]cache.Profile, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]cache.Profile, 0, len(list))
	for _, u := range list {
		profiles = append(profiles, cache.Profile{
			Username:    u.Username,
			Coordinates: u.Coordinates(),
			Hobbies:     u.Hobbies,
		})
	}
	return profiles, nil
}
