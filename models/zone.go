package models

import (
	"time"

	"github.com/google/uuid"
)

// Zone is one hexagonal grid cell that has been touched by at least one
// activity. Geometry fields are fixed at creation; control fields are owned
// by the zone control ledger.
type Zone struct {
	Model
	H3Index   string  `json:"h3_index" gorm:"uniqueIndex;size:16;not null"`
	CenterLat float64 `json:"center_lat" gorm:"not null"`
	CenterLng float64 `json:"center_lng" gorm:"not null"`

	// Geographic containment, resolved once at creation.
	CityID    *uuid.UUID `json:"city_id,omitempty" gorm:"type:uuid;index"`
	RegionID  *uuid.UUID `json:"region_id,omitempty" gorm:"type:uuid;index"`
	CountryID *uuid.UUID `json:"country_id,omitempty" gorm:"type:uuid;index"`

	// Lifetime totals, incremented atomically at the storage boundary.
	TotalKm         float64 `json:"total_km" gorm:"default:0"`
	TotalActivities int     `json:"total_activities" gorm:"default:0"`

	ControlledByTeam  *uuid.UUID `json:"controlled_by_team,omitempty" gorm:"type:uuid;index"`
	ControlledByUser  *uuid.UUID `json:"controlled_by_user,omitempty" gorm:"type:uuid;index"`
	ControlPercentage float64    `json:"control_percentage" gorm:"default:0"`

	// Point-of-interest zones earn more.
	BonusMultiplier float64 `json:"bonus_multiplier" gorm:"default:1"`
}

// ZoneActivity is one contribution of distance to one zone. Records are
// append-only; the control window is a time filter over them, never a purge.
type ZoneActivity struct {
	Model
	ZoneID       uuid.UUID  `json:"zone_id" gorm:"type:uuid;index;not null"`
	ActivityID   uuid.UUID  `json:"activity_id" gorm:"type:uuid;index;not null"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	TeamID       *uuid.UUID `json:"team_id,omitempty" gorm:"type:uuid;index"`
	DistanceKm   float64    `json:"distance_km" gorm:"not null"`
	PointsEarned int        `json:"points_earned" gorm:"not null"`
	RecordedAt   time.Time  `json:"recorded_at" gorm:"index;not null"`
}

// ZoneControlChange is an append-only log entry, written exactly once per
// control transition.
type ZoneControlChange struct {
	Model
	ZoneID       uuid.UUID  `json:"zone_id" gorm:"type:uuid;index;not null"`
	PreviousTeam *uuid.UUID `json:"previous_team,omitempty" gorm:"type:uuid"`
	NewTeam      uuid.UUID  `json:"new_team" gorm:"type:uuid;not null"`
}
