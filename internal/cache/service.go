package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

const defaultExtendWorkers = 8

// Service maintains the derived caches: one distance record and one
// category-match record per user, kept in step with the user and event
// lifecycles. The caches are a read optimization only; readers fall back to
// direct computation when an entry is missing, so maintenance here is
// eventually consistent rather than transactional with the triggering write.
type Service struct {
	repo    Repository
	users   UserSource
	events  EventSource
	workers int
	now     func() time.Time
}

func NewService(repo Repository, users UserSource, events EventSource, workers int) *Service {
	if workers <= 0 {
		workers = defaultExtendWorkers
	}
	return &Service{
		repo:    repo,
		users:   users,
		events:  events,
		workers: workers,
		now:     time.Now,
	}
}

// CreateForUser seeds both cache records for a new user from every event
// that currently exists. Seeding the same user twice returns ErrAlreadyExists,
// but a record left over from a half-finished earlier attempt is kept and the
// missing one created, so a retry completes the pair instead of failing.
func (s *Service) CreateForUser(ctx context.Context, username string, coords *geo.Coordinates, hobbies []string) error {
	summaries, err := s.events.ListEventSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events for cache seeding: %w", err)
	}

	now := s.now()
	distances := buildDistanceEntries(summaries, resolveCoords(coords), now)
	categories := buildCategoryEntries(summaries, hobbies, now)

	distErr := s.repo.CreateDistanceRecord(ctx, username, distances)
	if distErr != nil && !errors.Is(distErr, ErrAlreadyExists) {
		return distErr
	}
	catErr := s.repo.CreateCategoryRecord(ctx, username, categories)
	if catErr != nil && !errors.Is(catErr, ErrAlreadyExists) {
		return catErr
	}
	if errors.Is(distErr, ErrAlreadyExists) && errors.Is(catErr, ErrAlreadyExists) {
		return ErrAlreadyExists
	}
	return nil
}

// ExtendForAllUsers appends the event's distance and category entries to
// every user's cache records, a bounded number of users at a time. Per-user
// failures are logged and counted but do not stop the fan-out: a user whose
// write failed simply has a cache miss for this event until their next
// recompute.
func (s *Service) ExtendForAllUsers(ctx context.Context, eventID int64, category string, coords geo.Coordinates) error {
	profiles, err := s.users.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users for cache fan-out: %w", err)
	}

	timer := time.Now()
	now := s.now()

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)

	for _, profile := range profiles {
		wg.Add(1)
		sem <- struct{}{}
		go func(p Profile) {
			defer wg.Done()
			defer func() { <-sem }()

			entry := DistanceEntry{
				EventID:      eventID,
				Distance:     geo.Distance(resolveCoords(p.Coordinates), coords),
				CalculatedAt: now,
			}
			if err := s.repo.AppendDistance(ctx, p.Username, entry); err != nil {
				extendFailures.Inc()
				log.Printf("Failed to append distance entry for %s (event %d): %v", p.Username, eventID, err)
			}

			match := CategoryEntry{
				EventID:      eventID,
				IsMatch:      matchesAny(p.Hobbies, category),
				CalculatedAt: now,
			}
			if err := s.repo.AppendCategory(ctx, p.Username, match); err != nil {
				extendFailures.Inc()
				log.Printf("Failed to append category entry for %s (event %d): %v", p.Username, eventID, err)
			}
		}(profile)
	}
	wg.Wait()

	extendDuration.Observe(time.Since(timer).Seconds())
	return nil
}

// PruneEvent removes the event's entries from every user's cache records.
func (s *Service) PruneEvent(ctx context.Context, eventID int64) error {
	_, err := s.repo.PruneEvents(ctx, []int64{eventID})
	return err
}

// SweepExpired prunes every event that has already started out of all cache
// records and returns how many users were touched. Safe to rerun; a second
// pass over the same events touches nobody.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	startedIDs, err := s.events.ListStartedEventIDs(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list started events: %w", err)
	}
	if len(startedIDs) == 0 {
		sweepRuns.Inc()
		return 0, nil
	}

	touched, err := s.repo.PruneEvents(ctx, startedIDs)
	if err != nil {
		return 0, err
	}

	sweepRuns.Inc()
	sweepUsersTouched.Add(float64(touched))
	return touched, nil
}

// RecomputeCategoriesForUser rebuilds the user's category record against the
// new hobby list, replacing the old record wholesale.
func (s *Service) RecomputeCategoriesForUser(ctx context.Context, username string, hobbies []string) error {
	summaries, err := s.events.ListEventSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events for category recompute: %w", err)
	}

	entries := buildCategoryEntries(summaries, hobbies, s.now())
	return s.repo.ReplaceCategories(ctx, username, entries)
}

// RecomputeDistancesForUser rebuilds the user's distance record from their
// new location, replacing the old record wholesale.
func (s *Service) RecomputeDistancesForUser(ctx context.Context, username string, coords geo.Coordinates) error {
	summaries, err := s.events.ListEventSummaries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events for distance recompute: %w", err)
	}

	entries := buildDistanceEntries(summaries, coords, s.now())
	return s.repo.ReplaceDistances(ctx, username, entries)
}

// DeleteForUser drops both of the user's cache records.
func (s *Service) DeleteForUser(ctx context.Context, username string) error {
	return s.repo.DeleteForUser(ctx, username)
}

// DistancesFor returns the user's cached distances keyed by event ID. A
// missing record reads as empty: the caller computes what it needs directly.
func (s *Service) DistancesFor(ctx context.Context, username string) (map[int64]float64, error) {
	record, err := s.repo.GetDistances(ctx, username)
	if errors.Is(err, ErrRecordNotFound) {
		return map[int64]float64{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[int64]float64, len(record.Entries))
	for _, e := range record.Entries {
		out[e.EventID] = e.Distance
	}
	return out, nil
}

// CategoryMatchesFor returns the user's cached category matches keyed by
// event ID, empty when no record exists.
func (s *Service) CategoryMatchesFor(ctx context.Context, username string) (map[int64]bool, error) {
	record, err := s.repo.GetCategories(ctx, username)
	if errors.Is(err, ErrRecordNotFound) {
		return map[int64]bool{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[int64]bool, len(record.Entries))
	for _, e := range record.Entries {
		out[e.EventID] = e.IsMatch
	}
	return out, nil
}

func buildDistanceEntries(summaries []EventSummary, coords geo.Coordinates, now time.Time) []DistanceEntry {
	entries := make([]DistanceEntry, 0, len(summaries))
	for _, ev := range summaries {
		entries = append(entries, DistanceEntry{
			EventID:      ev.ID,
			Distance:     geo.Distance(coords, ev.Coordinates),
			CalculatedAt: now,
		})
	}
	return entries
}

func buildCategoryEntries(summaries []EventSummary, hobbies []string, now time.Time) []CategoryEntry {
	entries := make([]CategoryEntry, 0, len(summaries))
	for _, ev := range summaries {
		entries = append(entries, CategoryEntry{
			EventID:      ev.ID,
			IsMatch:      matchesAny(hobbies, ev.Category),
			CalculatedAt: now,
		})
	}
	return entries
}

// resolveCoords substitutes the zero point for users without a location, so
// every record keeps the same entry set across users.
func resolveCoords(coords *geo.Coordinates) geo.Coordinates {
	if coords == nil {
		return geo.Coordinates{}
	}
	return *coords
}
