package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/SlowlyFire/Hobbinder/internal/events"
	"github.com/SlowlyFire/Hobbinder/internal/users"
)

const (
	defaultMaxMatches   = 30
	defaultScoreWorkers = 8
	matchKeyPrefix      = "matches:"
)

// UserStore is the slice of the users module the orchestrator reads.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	ListInteractedEventIDs(ctx context.Context, username string) ([]int64, error)
}

// EventStore lists candidate events for a user.
type EventStore interface {
	ListAllExcludingUploader(ctx context.Context, username string) ([]*events.Event, error)
}

// FeatureCache is the derived-cache fast path for feature inputs. Both maps
// may be missing entries; the orchestrator computes those directly.
type FeatureCache interface {
	DistancesFor(ctx context.Context, username string) (map[int64]float64, error)
	CategoryMatchesFor(ctx context.Context, username string) (map[int64]bool, error)
}

// Match is one ranked recommendation with the features that produced its
// score, so the client can explain or debug a ranking.
type Match struct {
	Event    *events.Event `json:"event"`
	Score    float64       `json:"score"`
	Features Features      `json:"features"`
}

// Config tunes the orchestrator. Zero values pick sensible defaults;
// CacheTTL only matters when a Redis client is wired.
type Config struct {
	MaxMatches int
	Workers    int
	CacheTTL   time.Duration
}

// Service ranks candidate events for a user with the scoring model, backed
// by the derived caches and an optional Redis result cache.
type Service struct {
	users    UserStore
	events   EventStore
	features FeatureCache
	model    *Model
	redis    *redis.Client

	maxMatches int
	workers    int
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewService(userStore UserStore, eventStore EventStore, features FeatureCache, model *Model, redisClient *redis.Client, cfg Config) *Service {
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = defaultMaxMatches
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultScoreWorkers
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &Service{
		users:      userStore,
		events:     eventStore,
		features:   features,
		model:      model,
		redis:      redisClient,
		maxMatches: cfg.MaxMatches,
		workers:    cfg.Workers,
		cacheTTL:   cfg.CacheTTL,
		now:        time.Now,
	}
}

// GetMatches returns the user's ranked match list, highest score first.
// Candidates the user already swiped on or that have started are excluded;
// candidates that fail to score are dropped rather than failing the request.
// An empty list is a valid result for a user who has seen everything.
func (s *Service) GetMatches(ctx context.Context, username string) ([]Match, error) {
	if cached, ok := s.cachedMatches(ctx, username); ok {
		matchCacheHits.Inc()
		return pruneStarted(cached, s.now()), nil
	}
	matchRequests.Inc()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	interactedIDs, err := s.users.ListInteractedEventIDs(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions for %s: %w", username, err)
	}
	interacted := make(map[int64]struct{}, len(interactedIDs))
	for _, id := range interactedIDs {
		interacted[id] = struct{}{}
	}

	candidates, err := s.events.ListAllExcludingUploader(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate events: %w", err)
	}

	now := s.now()
	eligible := make([]*events.Event, 0, len(candidates))
	for _, ev := range candidates {
		if _, seen := interacted[ev.ID]; seen {
			continue
		}
		if ev.Started(now) {
			continue
		}
		eligible = append(eligible, ev)
	}
	if len(eligible) == 0 {
		s.storeMatches(ctx, username, []Match{})
		return []Match{}, nil
	}

	// Cache misses here are fine: each scoring task falls back to direct
	// computation for whatever the maps lack.
	distances, err := s.features.DistancesFor(ctx, username)
	if err != nil {
		log.Printf("Failed to read distance cache for %s: %v", username, err)
		distances = map[int64]float64{}
	}
	categoryMatches, err := s.features.CategoryMatchesFor(ctx, username)
	if err != nil {
		log.Printf("Failed to read category cache for %s: %v", username, err)
		categoryMatches = map[int64]bool{}
	}

	creators := s.loadCreators(ctx, eligible)

	// Score into an indexed slice so the candidate fetch order survives the
	// fan-out; it is the tie-break between equal scores.
	results := make([]*Match, len(eligible))
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.workers)

	for i, ev := range eligible {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ev *events.Event) {
			defer wg.Done()
			defer func() { <-sem }()

			creator, ok := creators[ev.UploaderUsername]
			if !ok {
				candidatesDropped.Inc()
				return
			}

			dist, ok := distances[ev.ID]
			if !ok {
				dist = DirectDistance(user, ev)
			}
			catMatch, ok := categoryMatches[ev.ID]
			if !ok {
				catMatch = user.HasHobby(ev.Category)
			}

			features := CalculateFeatures(user, ev, creator, dist, catMatch, now)
			if err := ValidateFeatures(features); err != nil {
				log.Printf("Dropping event %d from %s's matches: %v", ev.ID, username, err)
				candidatesDropped.Inc()
				return
			}

			results[i] = &Match{
				Event:    ev,
				Score:    s.model.Score(features.Vector()),
				Features: features,
			}
		}(i, ev)
	}
	wg.Wait()

	matches := make([]Match, 0, len(results))
	for _, m := range results {
		if m != nil {
			matches = append(matches, *m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > s.maxMatches {
		matches = matches[:s.maxMatches]
	}
	for _, m := range matches {
		matchScores.Observe(m.Score)
	}

	s.storeMatches(ctx, username, matches)
	return matches, nil
}

// InvalidateFor drops the user's cached match list. A no-op without Redis.
func (s *Service) InvalidateFor(ctx context.Context, username string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, matchKeyPrefix+username).Err()
}

// loadCreators fetches each distinct uploader once. A missing or failing
// uploader drops only that uploader's events from the list.
func (s *Service) loadCreators(ctx context.Context, eligible []*events.Event) map[string]*users.User {
	creators := make(map[string]*users.User)
	for _, ev := range eligible {
		if _, done := creators[ev.UploaderUsername]; done {
			continue
		}
		creator, err := s.users.GetByUsername(ctx, ev.UploaderUsername)
		if err != nil {
			log.Printf("Failed to load uploader %s, skipping their events: %v", ev.UploaderUsername, err)
			continue
		}
		creators[ev.UploaderUsername] = creator
	}
	return creators
}

// pruneStarted drops matches whose event has started since the list was
// cached; a cached hit must never hand back an event that already began.
// The stored list is left alone to age out on its own TTL.
func pruneStarted(matches []Match, now time.Time) []Match {
	kept := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.Event.Started(now) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func (s *Service) cachedMatches(ctx context.Context, username string) ([]Match, bool) {
	if s.redis == nil {
		return nil, false
	}

	raw, err := s.redis.Get(ctx, matchKeyPrefix+username).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("Failed to read match cache for %s: %v", username, err)
		return nil, false
	}

	var matches []Match
	if err := json.Unmarshal(raw, &matches); err != nil {
		log.Printf("Corrupt match cache for %s, recomputing: %v", username, err)
		return nil, false
	}
	return matches, true
}

func (s *Service) storeMatches(ctx context.Context, username string, matches []Match) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(matches)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, matchKeyPrefix+username, raw, s.cacheTTL).Err(); err != nil {
		log.Printf("Failed to cache matches for %s: %v", username, err)
	}
}
