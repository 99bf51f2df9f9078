package users

import (
	"time"

	"github.com/lib/pq"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

// User is the profile record this service reads and writes. Profile
// ownership (pictures, auth credentials) lives with the external
// collaborators; only the fields the recommendation core needs are here.
type User struct {
	Username        string         `json:"username" db:"username"`
	FirstName       string         `json:"first_name" db:"first_name"`
	LastName        string         `json:"last_name" db:"last_name"`
	LocationName    *string        `json:"location_name,omitempty" db:"location_name"`
	Latitude        *float64       `json:"latitude,omitempty" db:"latitude"`
	Longitude       *float64       `json:"longitude,omitempty" db:"longitude"`
	Birthday        *time.Time     `json:"birthday,omitempty" db:"birthday"`
	Hobbies         pq.StringArray `json:"hobbies" db:"hobbies"`
	Summary         *string        `json:"summary,omitempty" db:"summary"`
	Likes           int            `json:"likes" db:"likes"`
	Dislikes        int            `json:"dislikes" db:"dislikes"`
	LikeRatio       float64        `json:"like_ratio" db:"like_ratio"`
	LastRatioUpdate time.Time      `json:"last_ratio_update" db:"last_ratio_update"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
}

// Coordinates returns the user's location, or nil when the profile has none.
func (u *User) Coordinates() *geo.Coordinates {
	if u.Latitude == nil || u.Longitude == nil {
		return nil
	}
	return &geo.Coordinates{Latitude: *u.Latitude, Longitude: *u.Longitude}
}

// HasHobby reports whether category is one of the user's hobbies.
func (u *User) HasHobby(category string) bool {
	for _, h := range u.Hobbies {
		if h == category {
			return true
		}
	}
	return false
}

// Interaction types for event swipes.
const (
	InteractionLike    = "LIKE"
	InteractionDislike = "DISLIKE"
)

// Interaction is one recorded swipe on an event. The list is append-only
// and authoritative for excluding events from future recommendations;
// duplicate interactions on the same event are permitted.
type Interaction struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	EventID      int64     `json:"event_id" db:"event_id"`
	Type         string    `json:"interaction_type" db:"interaction_type"`
	InteractedAt time.Time `json:"interacted_at" db:"interacted_at"`
}
