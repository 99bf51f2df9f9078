package events

import (
	"time"

	"github.com/SlowlyFire/Hobbinder/internal/geo"
)

type LocationDTO struct {
	Name        string          `json:"name" validate:"required"`
	Coordinates geo.Coordinates `json:"coordinates"`
}

type CreateEventDTO struct {
	UploaderUsername string      `json:"uploader_username" validate:"required"`
	Category         string      `json:"category" validate:"required,max=100"`
	Summary          string      `json:"summary" validate:"required,max=2000"`
	Location         LocationDTO `json:"location" validate:"required"`
	WhenDate         time.Time   `json:"when_date" validate:"required"`
}

type UpdateEventDTO struct {
	Category *string      `json:"category,omitempty" validate:"omitempty,max=100"`
	Summary  *string      `json:"summary,omitempty" validate:"omitempty,max=2000"`
	Location *LocationDTO `json:"location,omitempty"`
	WhenDate *time.Time   `json:"when_date,omitempty"`
}

type LikeEventDTO struct {
	Username string `json:"username" validate:"required"`
}
