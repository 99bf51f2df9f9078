package cache

import (
	"context"
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

// DistanceEntry is one precomputed user-to-event distance. Field names on
// the wire match the documents the mobile client was built against.
type DistanceEntry struct {
	EventID      int64     `json:"eventId"`
	Distance     float64   `json:"distance"`
	CalculatedAt time.Time `json:"calculatedAt"`
}

// CategoryEntry is one precomputed hobby/category match flag.
type CategoryEntry struct {
	EventID      int64     `json:"eventId"`
	IsMatch      bool      `json:"isMatch"`
	CalculatedAt time.Time `json:"calculatedAt"`
}

// DistanceRecord is a user's full distance cache, one row per user.
type DistanceRecord struct {
	Username  string          `json:"username"`
	Entries   []DistanceEntry `json:"distances"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CategoryRecord is a user's full category-match cache, one row per user.
type CategoryRecord struct {
	Username  string          `json:"username"`
	Entries   []CategoryEntry `json:"category_matches"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Profile is the slice of a user the cache needs: where they are and what
// they are into. Coordinates is nil for users who never shared a location;
// their distances are computed from the zero point so the record shape stays
// uniform.
type Profile struct {
	Username    string
	Coordinates *geo.Coordinates
	Hobbies     []string
}

// EventSummary is the slice of an event the cache needs.
type EventSummary struct {
	ID          int64
	Category    string
	Coordinates geo.Coordinates
}

// UserSource lists the profiles a new event must fan out to. Implemented by
// the users module.
type UserSource interface {
	ListProfiles(ctx context.Context) ([]Profile, error)
}

// EventSource lists the events a new or relocated user must be seeded from,
// and the started events the sweeper prunes. Implemented by the events
// module.
type EventSource interface {
	ListEventSummaries(ctx context.Context) ([]EventSummary, error)
	ListStartedEventIDs(ctx context.Context, cutoff time.Time) ([]int64, error)
}

func matchesAny(hobbies []string, category string) bool {
	for _, h := range hobbies {
		if h == category {
			return true
		}
	}
	return false
}
