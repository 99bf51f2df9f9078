package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

type fakeRepository struct {
	mu sync.Mutex

	distanceRecords map[string][]DistanceEntry
	categoryRecords map[string][]CategoryEntry

	appendDistanceErr map[string]error
	pruned            [][]int64
	pruneTouched      int64
	deleted           []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		distanceRecords:   map[string][]DistanceEntry{},
		categoryRecords:   map[string][]CategoryEntry{},
		appendDistanceErr: map[string]error{},
	}
}

func (f *fakeRepository) CreateDistanceRecord(ctx context.Context, username string, entries []DistanceEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.distanceRecords[username]; ok {
		return ErrAlreadyExists
	}
	f.distanceRecords[username] = entries
	return nil
}

func (f *fakeRepository) CreateCategoryRecord(ctx context.Context, username string, entries []CategoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categoryRecords[username]; ok {
		return ErrAlreadyExists
	}
	f.categoryRecords[username] = entries
	return nil
}

func (f *fakeRepository) ReplaceDistances(ctx context.Context, username string, entries []DistanceEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distanceRecords[username] = entries
	return nil
}

func (f *fakeRepository) ReplaceCategories(ctx context.Context, username string, entries []CategoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categoryRecords[username] = entries
	return nil
}

func (f *fakeRepository) AppendDistance(ctx context.Context, username string, entry DistanceEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.appendDistanceErr[username]; err != nil {
		return err
	}
	kept := f.distanceRecords[username][:0:0]
	for _, e := range f.distanceRecords[username] {
		if e.EventID != entry.EventID {
			kept = append(kept, e)
		}
	}
	f.distanceRecords[username] = append(kept, entry)
	return nil
}

func (f *fakeRepository) AppendCategory(ctx context.Context, username string, entry CategoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.categoryRecords[username][:0:0]
	for _, e := range f.categoryRecords[username] {
		if e.EventID != entry.EventID {
			kept = append(kept, e)
		}
	}
	f.categoryRecords[username] = append(kept, entry)
	return nil
}

func (f *fakeRepository) GetDistances(ctx context.Context, username string) (*DistanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, ok := f.distanceRecords[username]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &DistanceRecord{Username: username, Entries: entries}, nil
}

func (f *fakeRepository) GetCategories(ctx context.Context, username string) (*CategoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, ok := f.categoryRecords[username]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &CategoryRecord{Username: username, Entries: entries}, nil
}

func (f *fakeRepository) PruneEvents(ctx context.Context, eventIDs []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned = append(f.pruned, eventIDs)
	return f.pruneTouched, nil
}

func (f *fakeRepository) DeleteForUser(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, username)
	return nil
}

type fakeUserSource struct {
	profiles []Profile
}

func (f *fakeUserSource) ListProfiles(ctx context.Context) ([]Profile, error) {
	return f.profiles, nil
}

type fakeEventSource struct {
	summaries  []EventSummary
	startedIDs []int64
}

func (f *fakeEventSource) ListEventSummaries(ctx context.Context) ([]EventSummary, error) {
	return f.summaries, nil
}

func (f *fakeEventSource) ListStartedEventIDs(ctx context.Context, cutoff time.Time) ([]int64, error) {
	return f.startedIDs, nil
}

func TestCreateForUser(t *testing.T) {
	events := &fakeEventSource{summaries: []EventSummary{
		{ID: 1, Category: "Football", Coordinates: geo.Coordinates{Latitude: 32.05, Longitude: 34.05}},
		{ID: 2, Category: "Chess", Coordinates: geo.Coordinates{Latitude: 32.0, Longitude: 34.0}},
	}}

	t.Run("seeds both records from existing events", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo, &fakeUserSource{}, events, 4)

		coords := &geo.Coordinates{Latitude: 32.0, Longitude: 34.0}
		err := svc.CreateForUser(context.Background(), "gal", coords, []string{"Football"})
		require.NoError(t, err)

		distances := repo.distanceRecords["gal"]
		require.Len(t, distances, 2)
		assert.Equal(t, int64(1), distances[0].EventID)
		assert.InDelta(t, 7.29, distances[0].Distance, 0.02)
		assert.Equal(t, 0.0, distances[1].Distance)

		categories := repo.categoryRecords["gal"]
		require.Len(t, categories, 2)
		assert.True(t, categories[0].IsMatch)
		assert.False(t, categories[1].IsMatch)
	})

	t.Run("missing location seeds from the zero point", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo, &fakeUserSource{}, events, 4)

		require.NoError(t, svc.CreateForUser(context.Background(), "noloc", nil, nil))
		require.Len(t, repo.distanceRecords["noloc"], 2)
		assert.Greater(t, repo.distanceRecords["noloc"][0].Distance, 1000.0)
	})

	t.Run("retry completes a half-seeded pair", func(t *testing.T) {
		repo := newFakeRepository()
		repo.distanceRecords["gal"] = []DistanceEntry{}

		svc := NewService(repo, &fakeUserSource{}, events, 4)
		require.NoError(t, svc.CreateForUser(context.Background(), "gal", nil, []string{"Football"}))

		categories := repo.categoryRecords["gal"]
		require.Len(t, categories, 2)
		assert.True(t, categories[0].IsMatch)
		assert.Empty(t, repo.distanceRecords["gal"])
	})

	t.Run("duplicate seeding is rejected", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo, &fakeUserSource{}, events, 4)

		require.NoError(t, svc.CreateForUser(context.Background(), "gal", nil, nil))
		err := svc.CreateForUser(context.Background(), "gal", nil, nil)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestExtendForAllUsers(t *testing.T) {
	telAviv := geo.Coordinates{Latitude: 32.0, Longitude: 34.0}

	t.Run("appends one entry pair per user", func(t *testing.T) {
		repo := newFakeRepository()
		repo.distanceRecords["gal"] = []DistanceEntry{}
		repo.categoryRecords["gal"] = []CategoryEntry{}
		repo.distanceRecords["dana"] = []DistanceEntry{}
		repo.categoryRecords["dana"] = []CategoryEntry{}

		users := &fakeUserSource{profiles: []Profile{
			{Username: "gal", Coordinates: &telAviv, Hobbies: []string{"Football"}},
			{Username: "dana", Coordinates: nil, Hobbies: []string{"Chess"}},
		}}
		svc := NewService(repo, users, &fakeEventSource{}, 2)

		err := svc.ExtendForAllUsers(context.Background(), 9, "Football",
			geo.Coordinates{Latitude: 32.05, Longitude: 34.05})
		require.NoError(t, err)

		require.Len(t, repo.distanceRecords["gal"], 1)
		assert.InDelta(t, 7.29, repo.distanceRecords["gal"][0].Distance, 0.02)
		assert.True(t, repo.categoryRecords["gal"][0].IsMatch)

		require.Len(t, repo.distanceRecords["dana"], 1)
		assert.False(t, repo.categoryRecords["dana"][0].IsMatch)
	})

	t.Run("one user's failure does not stop the fan-out", func(t *testing.T) {
		repo := newFakeRepository()
		repo.distanceRecords["ok"] = []DistanceEntry{}
		repo.categoryRecords["ok"] = []CategoryEntry{}
		repo.categoryRecords["broken"] = []CategoryEntry{}
		repo.appendDistanceErr["broken"] = errors.New("row gone")

		users := &fakeUserSource{profiles: []Profile{
			{Username: "broken", Coordinates: &telAviv},
			{Username: "ok", Coordinates: &telAviv},
		}}
		svc := NewService(repo, users, &fakeEventSource{}, 2)

		err := svc.ExtendForAllUsers(context.Background(), 9, "Football", telAviv)
		require.NoError(t, err)
		assert.Len(t, repo.distanceRecords["ok"], 1)
	})

	t.Run("re-extending replaces the stale entry", func(t *testing.T) {
		repo := newFakeRepository()
		repo.distanceRecords["gal"] = []DistanceEntry{{EventID: 9, Distance: 100}}
		repo.categoryRecords["gal"] = []CategoryEntry{{EventID: 9, IsMatch: false}}

		users := &fakeUserSource{profiles: []Profile{
			{Username: "gal", Coordinates: &telAviv, Hobbies: []string{"Football"}},
		}}
		svc := NewService(repo, users, &fakeEventSource{}, 2)

		err := svc.ExtendForAllUsers(context.Background(), 9, "Football", telAviv)
		require.NoError(t, err)

		require.Len(t, repo.distanceRecords["gal"], 1)
		assert.Equal(t, 0.0, repo.distanceRecords["gal"][0].Distance)
		assert.True(t, repo.categoryRecords["gal"][0].IsMatch)
	})
}

func TestSweepExpired(t *testing.T) {
	t.Run("nothing started means nothing pruned", func(t *testing.T) {
		repo := newFakeRepository()
		svc := NewService(repo, &fakeUserSource{}, &fakeEventSource{}, 2)

		touched, err := svc.SweepExpired(context.Background())
		require.NoError(t, err)
		assert.Zero(t, touched)
		assert.Empty(t, repo.pruned)
	})

	t.Run("prunes all started events in one pass", func(t *testing.T) {
		repo := newFakeRepository()
		repo.pruneTouched = 3
		events := &fakeEventSource{startedIDs: []int64{4, 7}}
		svc := NewService(repo, &fakeUserSource{}, events, 2)

		touched, err := svc.SweepExpired(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), touched)
		require.Len(t, repo.pruned, 1)
		assert.Equal(t, []int64{4, 7}, repo.pruned[0])
	})
}

func TestRecomputeForUser(t *testing.T) {
	events := &fakeEventSource{summaries: []EventSummary{
		{ID: 1, Category: "Football", Coordinates: geo.Coordinates{Latitude: 32.05, Longitude: 34.05}},
	}}

	t.Run("distance recompute replaces the record", func(t *testing.T) {
		repo := newFakeRepository()
		repo.distanceRecords["gal"] = []DistanceEntry{{EventID: 1, Distance: 999}}
		svc := NewService(repo, &fakeUserSource{}, events, 2)

		err := svc.RecomputeDistancesForUser(context.Background(), "gal",
			geo.Coordinates{Latitude: 32.0, Longitude: 34.0})
		require.NoError(t, err)

		require.Len(t, repo.distanceRecords["gal"], 1)
		assert.InDelta(t, 7.29, repo.distanceRecords["gal"][0].Distance, 0.02)
	})

	t.Run("category recompute follows the new hobby list", func(t *testing.T) {
		repo := newFakeRepository()
		repo.categoryRecords["gal"] = []CategoryEntry{{EventID: 1, IsMatch: false}}
		svc := NewService(repo, &fakeUserSource{}, events, 2)

		err := svc.RecomputeCategoriesForUser(context.Background(), "gal", []string{"Football"})
		require.NoError(t, err)
		assert.True(t, repo.categoryRecords["gal"][0].IsMatch)
	})
}

func TestLookups(t *testing.T) {
	t.Run("missing records read as empty", func(t *testing.T) {
		svc := NewService(newFakeRepository(), &fakeUserSource{}, &fakeEventSource{}, 2)

		distances, err := svc.DistancesFor(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Empty(t, distances)

		matches, err := svc.CategoryMatchesFor(context.Background(), "ghost")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("entries come back keyed by event", func(t *testing.T) {
		repo := newFakeRepository()
		repo.distanceRecords["gal"] = []DistanceEntry{{EventID: 4, Distance: 12.5}}
		repo.categoryRecords["gal"] = []CategoryEntry{{EventID: 4, IsMatch: true}}
		svc := NewService(repo, &fakeUserSource{}, &fakeEventSource{}, 2)

		distances, err := svc.DistancesFor(context.Background(), "gal")
		require.NoError(t, err)
		assert.Equal(t, map[int64]float64{4: 12.5}, distances)

		matches, err := svc.CategoryMatchesFor(context.Background(), "gal")
		require.NoError(t, err)
		assert.Equal(t, map[int64]bool{4: true}, matches)
	})
}
