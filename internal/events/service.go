package events

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

var (
	ErrPastWhenDate       = errors.New("event start time must be in the future")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// asyncCacheTimeout bounds the background cache maintenance that runs after
// an event write returns to the client.
const asyncCacheTimeout = 30 * time.Second

// DerivedCaches is the slice of the cache module the event lifecycle drives.
// Both calls run asynchronously after the event write commits; failures are
// logged and left for the hourly sweep or the next write to repair.
type DerivedCaches interface {
	ExtendForAllUsers(ctx context.Context, eventID int64, category string, coords geo.Coordinates) error
	PruneEvent(ctx context.Context, eventID int64) error
}

type Service interface {
	Create(ctx context.Context, dto *CreateEventDTO) (*Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	ListAll(ctx context.Context) ([]*Event, error)
	ListForUser(ctx context.Context, username string) ([]*Event, error)
	Update(ctx context.Context, id int64, dto *UpdateEventDTO) (*Event, error)
	Delete(ctx context.Context, id int64) error

	Like(ctx context.Context, eventID int64, username string) error
	ListLikes(ctx context.Context, eventID int64) ([]*Like, error)
	ListUploaderLikes(ctx context.Context, uploader string) ([]*UploaderLike, error)
	CheckLike(ctx context.Context, eventID int64, username string) error
}

type service struct {
	repo   Repository
	caches DerivedCaches
	now    func() time.Time
}

func NewService(repo Repository, caches DerivedCaches) Service {
	return &service{
		repo:   repo,
		caches: caches,
		now:    time.Now,
	}
}

func (s *service) Create(ctx context.Context, dto *CreateEventDTO) (*Event, error) {
	if !dto.Location.Coordinates.Valid() {
		return nil, ErrInvalidCoordinates
	}
	if !dto.WhenDate.After(s.now()) {
		return nil, ErrPastWhenDate
	}

	event := &Event{
		UploaderUsername: dto.UploaderUsername,
		Category:         dto.Category,
		Summary:          dto.Summary,
		LocationName:     dto.Location.Name,
		Latitude:         dto.Location.Coordinates.Latitude,
		Longitude:        dto.Location.Coordinates.Longitude,
		WhenDate:         dto.WhenDate,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.extendCaches(event)
	return event, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListAll(ctx context.Context) ([]*Event, error) {
	return s.repo.ListAll(ctx)
}

// ListForUser returns the events a user can browse, which excludes their own
// uploads.
func (s *service) ListForUser(ctx context.Context, username string) ([]*Event, error) {
	return s.repo.ListAllExcludingUploader(ctx, username)
}

func (s *service) Update(ctx context.Context, id int64, dto *UpdateEventDTO) (*Event, error) {
	upd := &EventUpdate{
		Category: dto.Category,
		Summary:  dto.Summary,
		WhenDate: dto.WhenDate,
	}
	if dto.Location != nil {
		if !dto.Location.Coordinates.Valid() {
			return nil, ErrInvalidCoordinates
		}
		upd.LocationName = &dto.Location.Name
		upd.Latitude = &dto.Location.Coordinates.Latitude
		upd.Longitude = &dto.Location.Coordinates.Longitude
	}
	if dto.WhenDate != nil && !dto.WhenDate.After(s.now()) {
		return nil, ErrPastWhenDate
	}

	event, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	// Moving or recategorizing an event invalidates every user's cached
	// entry for it; re-extending overwrites them all, last write wins.
	if dto.Location != nil || dto.Category != nil {
		s.extendCaches(event)
	}
	return event, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	eventID := id
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncCacheTimeout)
		defer cancel()
		if err := s.caches.PruneEvent(ctx, eventID); err != nil {
			log.Printf("Failed to prune caches for deleted event %d: %v", eventID, err)
		}
	}()
	return nil
}

func (s *service) Like(ctx context.Context, eventID int64, username string) error {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return err
	}
	return s.repo.AddLike(ctx, eventID, username, s.now())
}

func (s *service) ListLikes(ctx context.Context, eventID int64) ([]*Like, error) {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListLikes(ctx, eventID)
}

func (s *service) ListUploaderLikes(ctx context.Context, uploader string) ([]*UploaderLike, error) {
	return s.repo.ListLikesForUploader(ctx, uploader, s.now())
}

func (s *service) CheckLike(ctx context.Context, eventID int64, username string) error {
	return s.repo.MarkLikeChecked(ctx, eventID, username)
}

// extendCaches fans the event out to every user's derived caches in the
// background. The HTTP response does not wait for it; readers tolerate a
// missing entry until the fan-out lands.
func (s *service) extendCaches(event *Event) {
	id, category, coords := event.ID, event.Category, event.Coordinates()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncCacheTimeout)
		defer cancel()
		if err := s.caches.ExtendForAllUsers(ctx, id, category, coords); err != nil {
			log.Printf("Failed to extend derived caches for event %d: %v", id, err)
		}
	}()
}
