package events

import (
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

// Event is a meetup posted by a user. Location is mandatory: distance is a
// model input for every candidate, so an event without coordinates could
// never be recommended.
type Event struct {
	ID               int64     `json:"id" db:"id"`
	UploaderUsername string    `json:"uploader_username" db:"uploader_username"`
	Category         string    `json:"category" db:"category"`
	Summary          string    `json:"summary" db:"summary"`
	LocationName     string    `json:"location_name" db:"location_name"`
	Latitude         float64   `json:"latitude" db:"latitude"`
	Longitude        float64   `json:"longitude" db:"longitude"`
	WhenDate         time.Time `json:"when_date" db:"when_date"`
	UploadDate       time.Time `json:"upload_date" db:"upload_date"`
}

func (e *Event) Coordinates() geo.Coordinates {
	return geo.Coordinates{Latitude: e.Latitude, Longitude: e.Longitude}
}

// Started reports whether the event has already begun.
func (e *Event) Started(now time.Time) bool {
	return !e.WhenDate.After(now)
}

// Like is a user's like on an event, kept separate from the swipe log so the
// uploader can review who liked their event. Checked marks likes the
// uploader has already seen.
type Like struct {
	EventID  int64     `json:"event_id" db:"event_id"`
	Username string    `json:"username" db:"username"`
	LikedAt  time.Time `json:"liked_at" db:"liked_at"`
	Checked  bool      `json:"checked" db:"checked"`
}

// UploaderLike is a like on one of an uploader's upcoming events, joined
// with enough of the liker's profile to render a notification row.
type UploaderLike struct {
	EventID       int64     `json:"event_id" db:"event_id"`
	EventCategory string    `json:"event_category" db:"event_category"`
	Username      string    `json:"username" db:"username"`
	FirstName     string    `json:"first_name" db:"first_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	LikedAt       time.Time `json:"liked_at" db:"liked_at"`
	Checked       bool      `json:"checked" db:"checked"`
}
