package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

type fakeRepository struct {
	createFn  func(ctx context.Context, event *Event) error
	getFn     func(ctx context.Context, id int64) (*Event, error)
	updateFn  func(ctx context.Context, id int64, upd *EventUpdate) (*Event, error)
	deleteFn  func(ctx context.Context, id int64) error
	addLikeFn func(ctx context.Context, eventID int64, username string, now time.Time) error
}

func (f *fakeRepository) Create(ctx context.Context, event *Event) error {
	return f.createFn(ctx, event)
}

func (f *fakeRepository) GetByID(ctx context.Context, id int64) (*Event, error) {
	return f.getFn(ctx, id)
}

func (f *fakeRepository) Update(ctx context.Context, id int64, upd *EventUpdate) (*Event, error) {
	return f.updateFn(ctx, id, upd)
}

func (f *fakeRepository) Delete(ctx context.Context, id int64) error {
	return f.deleteFn(ctx, id)
}

func (f *fakeRepository) ListAll(ctx context.Context) ([]*Event, error) { return nil, nil }

func (f *fakeRepository) ListAllExcludingUploader(ctx context.Context, username string) ([]*Event, error) {
	return nil, nil
}

func (f *fakeRepository) ListStartedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	return nil, nil
}

func (f *fakeRepository) AddLike(ctx context.Context, eventID int64, username string, now time.Time) error {
	return f.addLikeFn(ctx, eventID, username, now)
}

func (f *fakeRepository) ListLikes(ctx context.Context, eventID int64) ([]*Like, error) {
	return nil, nil
}

func (f *fakeRepository) ListLikesForUploader(ctx context.Context, uploader string, now time.Time) ([]*UploaderLike, error) {
	return nil, nil
}

func (f *fakeRepository) MarkLikeChecked(ctx context.Context, eventID int64, username string) error {
	return nil
}

type extendCall struct {
	eventID  int64
	category string
	coords   geo.Coordinates
}

// fakeCaches signals hook invocations over channels so tests can wait on the
// background goroutines the service spawns.
type fakeCaches struct {
	extended chan extendCall
	pruned   chan int64
}

func newFakeCaches() *fakeCaches {
	return &fakeCaches{
		extended: make(chan extendCall, 1),
		pruned:   make(chan int64, 1),
	}
}

func (f *fakeCaches) ExtendForAllUsers(ctx context.Context, eventID int64, category string, coords geo.Coordinates) error {
	f.extended <- extendCall{eventID: eventID, category: category, coords: coords}
	return nil
}

func (f *fakeCaches) PruneEvent(ctx context.Context, eventID int64) error {
	f.pruned <- eventID
	return nil
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cache hook")
		panic("unreachable")
	}
}

func futureDate() time.Time {
	return time.Now().Add(48 * time.Hour)
}

func TestServiceCreate(t *testing.T) {
	t.Run("persists and fans out to derived caches", func(t *testing.T) {
		repo := &fakeRepository{
			createFn: func(ctx context.Context, event *Event) error {
				event.ID = 42
				event.UploadDate = time.Now()
				return nil
			},
		}
		caches := newFakeCaches()
		svc := NewService(repo, caches)

		event, err := svc.Create(context.Background(), &CreateEventDTO{
			UploaderUsername: "dana",
			Category:         "Football",
			Summary:          "Pickup game at the park",
			Location: LocationDTO{
				Name:        "Tel Aviv",
				Coordinates: geo.Coordinates{Latitude: 32.05, Longitude: 34.05},
			},
			WhenDate: futureDate(),
		})

		require.NoError(t, err)
		assert.Equal(t, int64(42), event.ID)

		call := waitFor(t, caches.extended)
		assert.Equal(t, int64(42), call.eventID)
		assert.Equal(t, "Football", call.category)
		assert.Equal(t, geo.Coordinates{Latitude: 32.05, Longitude: 34.05}, call.coords)
	})

	t.Run("rejects past start time", func(t *testing.T) {
		svc := NewService(&fakeRepository{}, newFakeCaches())

		_, err := svc.Create(context.Background(), &CreateEventDTO{
			UploaderUsername: "dana",
			Category:         "Football",
			Summary:          "Too late",
			Location: LocationDTO{
				Name:        "Tel Aviv",
				Coordinates: geo.Coordinates{Latitude: 32.05, Longitude: 34.05},
			},
			WhenDate: time.Now().Add(-time.Hour),
		})
		assert.ErrorIs(t, err, ErrPastWhenDate)
	})

	t.Run("rejects out-of-range coordinates", func(t *testing.T) {
		svc := NewService(&fakeRepository{}, newFakeCaches())

		_, err := svc.Create(context.Background(), &CreateEventDTO{
			UploaderUsername: "dana",
			Category:         "Football",
			Summary:          "Nowhere",
			Location: LocationDTO{
				Name:        "Off the map",
				Coordinates: geo.Coordinates{Latitude: 95, Longitude: 34},
			},
			WhenDate: futureDate(),
		})
		assert.ErrorIs(t, err, ErrInvalidCoordinates)
	})
}

func TestServiceUpdate(t *testing.T) {
	updated := &Event{
		ID:       42,
		Category: "Chess",
		Latitude: 31.5, Longitude: 34.5,
		WhenDate: futureDate(),
	}

	t.Run("relocation re-extends caches", func(t *testing.T) {
		repo := &fakeRepository{
			updateFn: func(ctx context.Context, id int64, upd *EventUpdate) (*Event, error) {
				return updated, nil
			},
		}
		caches := newFakeCaches()
		svc := NewService(repo, caches)

		_, err := svc.Update(context.Background(), 42, &UpdateEventDTO{
			Location: &LocationDTO{
				Name:        "Ashdod",
				Coordinates: geo.Coordinates{Latitude: 31.5, Longitude: 34.5},
			},
		})

		require.NoError(t, err)
		call := waitFor(t, caches.extended)
		assert.Equal(t, int64(42), call.eventID)
	})

	t.Run("summary edit leaves caches alone", func(t *testing.T) {
		repo := &fakeRepository{
			updateFn: func(ctx context.Context, id int64, upd *EventUpdate) (*Event, error) {
				return updated, nil
			},
		}
		caches := newFakeCaches()
		svc := NewService(repo, caches)

		summary := "New description"
		_, err := svc.Update(context.Background(), 42, &UpdateEventDTO{Summary: &summary})
		require.NoError(t, err)

		select {
		case <-caches.extended:
			t.Fatal("summary-only update should not touch derived caches")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestServiceDelete(t *testing.T) {
	repo := &fakeRepository{
		deleteFn: func(ctx context.Context, id int64) error { return nil },
	}
	caches := newFakeCaches()
	svc := NewService(repo, caches)

	require.NoError(t, svc.Delete(context.Background(), 42))
	assert.Equal(t, int64(42), waitFor(t, caches.pruned))
}

func TestServiceLike(t *testing.T) {
	t.Run("likes an existing event", func(t *testing.T) {
		var liked bool
		repo := &fakeRepository{
			getFn: func(ctx context.Context, id int64) (*Event, error) {
				return &Event{ID: id}, nil
			},
			addLikeFn: func(ctx context.Context, eventID int64, username string, now time.Time) error {
				liked = true
				return nil
			},
		}
		svc := NewService(repo, newFakeCaches())

		require.NoError(t, svc.Like(context.Background(), 42, "gal"))
		assert.True(t, liked)
	})

	t.Run("rejects likes on missing events", func(t *testing.T) {
		repo := &fakeRepository{
			getFn: func(ctx context.Context, id int64) (*Event, error) {
				return nil, ErrEventNotFound
			},
		}
		svc := NewService(repo, newFakeCaches())

		assert.ErrorIs(t, svc.Like(context.Background(), 42, "gal"), ErrEventNotFound)
	})
}
