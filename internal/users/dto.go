package users

import (
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

type CoordinatesDTO = geo.Coordinates

// LocationDTO mirrors the location payload the mobile client sends.
type LocationDTO struct {
	Name        string          `json:"name" validate:"required"`
	Coordinates geo.Coordinates `json:"coordinates"`
}

type RegisterUserDTO struct {
	Username  string       `json:"username" validate:"required,min=2,max=100"`
	FirstName string       `json:"first_name" validate:"required,max=100"`
	LastName  string       `json:"last_name" validate:"required,max=100"`
	Location  *LocationDTO `json:"location,omitempty"`
	Birthday  *time.Time   `json:"birthday,omitempty"`
	Hobbies   []string     `json:"hobbies,omitempty"`
	Summary   *string      `json:"summary,omitempty"`
}

type UpdateUserDTO struct {
	FirstName *string      `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string      `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Location  *LocationDTO `json:"location,omitempty"`
	Birthday  *time.Time   `json:"birthday,omitempty"`
	Hobbies   []string     `json:"hobbies,omitempty"`
	Summary   *string      `json:"summary,omitempty"`
}

type RecordInteractionDTO struct {
	EventID int64  `json:"event_id" validate:"required,gt=0"`
	Type    string `json:"interaction_type" validate:"required,oneof=LIKE DISLIKE"`
}

// InteractionResponse returns the counters as of this swipe. LikeRatio may
// be stale; it only refreshes on the tracker's batching schedule.
type InteractionResponse struct {
	Username  string  `json:"username"`
	EventID   int64   `json:"event_id"`
	LikeRatio float64 `json:"like_ratio"`
}
