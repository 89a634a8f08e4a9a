package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one submitted distance activity. Ingestion supplies it fully
// formed; the engines never mutate it.
type Activity struct {
	Model
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	TeamID       *uuid.UUID `json:"team_id,omitempty" gorm:"type:uuid;index"`
	ActivityType string     `json:"activity_type" gorm:"size:32;not null"`
	DistanceKm   float64    `json:"distance_km" gorm:"not null"`

	// Route sources, in resolution precedence order: assigned zones (gym),
	// encoded polyline, start coordinate.
	Polyline      *string  `json:"polyline,omitempty"`
	StartLat      *float64 `json:"start_lat,omitempty"`
	StartLng      *float64 `json:"start_lng,omitempty"`
	IsGymActivity bool     `json:"is_gym_activity" gorm:"default:false"`
	AssignedZones []string `json:"assigned_zones,omitempty" gorm:"serializer:json"`

	PointsEarned int       `json:"points_earned" gorm:"default:0"`
	Source       string    `json:"source" gorm:"size:32;default:manual"`
	RecordedAt   time.Time `json:"recorded_at" gorm:"index;not null"`
}
