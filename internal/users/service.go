package users

import (
	"context"
	"log"
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

// DerivedCaches is the slice of the cache module the user lifecycle needs.
// Cache maintenance must never fail a profile request, so every call here
// is best-effort from the caller's point of view.
type DerivedCaches interface {
	CreateForUser(ctx context.Context, username string, coords *geo.Coordinates, hobbies []string) error
	RecomputeCategoriesForUser(ctx context.Context, username string, hobbies []string) error
	RecomputeDistancesForUser(ctx context.Context, username string, coords geo.Coordinates) error
	DeleteForUser(ctx context.Context, username string) error
}

// MatchCache invalidates a user's cached ranked match list. Implemented by
// the matching module; nil disables invalidation.
type MatchCache interface {
	InvalidateFor(ctx context.Context, username string) error
}

type Service interface {
	Register(ctx context.Context, dto *RegisterUserDTO) (*User, error)
	Get(ctx context.Context, username string) (*User, error)
	ListAll(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, username string, dto *UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, username string) error
	RecordInteraction(ctx context.Context, username string, eventID int64, isLike bool) (float64, error)
}

type service struct {
	repo       Repository
	caches     DerivedCaches
	matchCache MatchCache
	now        func() time.Time
}

func NewService(repo Repository, caches DerivedCaches, matchCache MatchCache) Service {
	return &service{
		repo:       repo,
		caches:     caches,
		matchCache: matchCache,
		now:        time.Now,
	}
}

func (s *service) Register(ctx context.Context, dto *RegisterUserDTO) (*User, error) {
	user := &User{
		Username:  dto.Username,
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Hobbies:   dto.Hobbies,
		Summary:   dto.Summary,
		Birthday:  dto.Birthday,
	}
	if dto.Location != nil {
		user.LocationName = &dto.Location.Name
		user.Latitude = &dto.Location.Coordinates.Latitude
		user.Longitude = &dto.Location.Coordinates.Longitude
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Seed both derived-cache records from every currently-existing event.
	// A seeding failure leaves the caches to catch up on the next event
	// write; it must not undo the registration.
	if err := s.caches.CreateForUser(ctx, user.Username, user.Coordinates(), user.Hobbies); err != nil {
		log.Printf("Failed to seed derived caches for %s: %v", user.Username, err)
	}

	return user, nil
}

func (s *service) Get(ctx context.Context, username string) (*User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *service) ListAll(ctx context.Context) ([]*User, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) Update(ctx context.Context, username string, dto *UpdateUserDTO) (*User, error) {
	upd := &UserUpdate{
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Birthday:  dto.Birthday,
		Hobbies:   dto.Hobbies,
		Summary:   dto.Summary,
	}
	if dto.Location != nil {
		upd.LocationName = &dto.Location.Name
		upd.Latitude = &dto.Location.Coordinates.Latitude
		upd.Longitude = &dto.Location.Coordinates.Longitude
	}

	user, err := s.repo.Update(ctx, username, upd)
	if err != nil {
		return nil, err
	}

	// Hobby edits replace the whole category-match record; relocation
	// recomputes every distance entry. Both are best-effort.
	if dto.Hobbies != nil {
		if err := s.caches.RecomputeCategoriesForUser(ctx, username, user.Hobbies); err != nil {
			log.Printf("Failed to recompute category matches for %s: %v", username, err)
		}
	}
	if dto.Location != nil {
		if err := s.caches.RecomputeDistancesForUser(ctx, username, dto.Location.Coordinates); err != nil {
			log.Printf("Failed to recompute distances for %s: %v", username, err)
		}
	}

	return user, nil
}

func (s *service) Delete(ctx context.Context, username string) error {
	if err := s.repo.Delete(ctx, username); err != nil {
		return err
	}

	if err := s.caches.DeleteForUser(ctx, username); err != nil {
		log.Printf("Failed to delete derived caches for %s: %v", username, err)
	}

	// Without this the deleted user's ranked list would keep serving from
	// Redis until its TTL ran out.
	if s.matchCache != nil {
		if err := s.matchCache.InvalidateFor(ctx, username); err != nil {
			log.Printf("Failed to invalidate match cache for %s: %v", username, err)
		}
	}
	return nil
}

// RecordInteraction appends the swipe and returns the (possibly stale)
// like-ratio. The cached ranked match list no longer reflects reality once
// the user has acted on an event, so it is dropped here.
func (s *service) RecordInteraction(ctx context.Context, username string, eventID int64, isLike bool) (float64, error) {
	ratio, err := s.repo.RecordInteraction(ctx, username, eventID, isLike, s.now())
	if err != nil {
		return 0, err
	}

	if s.matchCache != nil {
		if err := s.matchCache.InvalidateFor(ctx, username); err != nil {
			log.Printf("Failed to invalidate match cache for %s: %v", username, err)
		}
	}
	return ratio, nil
}
