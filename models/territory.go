package models

import (
	"time"

	"github.com/google/uuid"

	"terraconquest/types"
)

// Territory is a named geographic aggregate of many zones. Created during
// world seeding and static afterwards except for control-derived state.
type Territory struct {
	Model
	Name      string               `json:"name" gorm:"not null;index"`
	Type      types.TerritoryType  `json:"type" gorm:"size:16;not null;index"`
	Class     types.TerritoryClass `json:"class" gorm:"size:24;not null;default:ordinary"`
	CenterLat float64              `json:"center_lat" gorm:"not null"`
	CenterLng float64              `json:"center_lng" gorm:"not null"`

	// RadiusKm bounds the zone containment lookup for this territory.
	RadiusKm float64 `json:"radius_km" gorm:"not null"`

	ParentID  *uuid.UUID  `json:"parent_id,omitempty" gorm:"type:uuid;index"`
	Connected []uuid.UUID `json:"connected_territories" gorm:"serializer:json"`

	ProductionRate int `json:"production_rate" gorm:"default:0"`
}

// TerritoryControl is the mutable control state of a territory, owned by the
// conquest engine.
type TerritoryControl struct {
	Model
	TerritoryID   uuid.UUID  `json:"territory_id" gorm:"type:uuid;uniqueIndex;not null"`
	ControllerID  *uuid.UUID `json:"controller_id,omitempty" gorm:"type:uuid;index"`
	Units         int        `json:"units" gorm:"default:0"`
	DefenseBonus  float64    `json:"defense_bonus" gorm:"default:1"`
	IsUnderAttack bool       `json:"is_under_attack" gorm:"default:false"`
	ControlledAt  *time.Time `json:"controlled_at,omitempty"`
}

// DaysControlled reports how long the current controller has held the
// territory.
func (tc *TerritoryControl) DaysControlled(now time.Time) int {
	if tc.ControllerID == nil || tc.ControlledAt == nil {
		return 0
	}
	return int(now.Sub(*tc.ControlledAt).Hours() / 24)
}

// State derives the territory state from control and battle flags.
func (tc *TerritoryControl) State() types.TerritoryState {
	if tc.IsUnderAttack {
		return types.StateContested
	}
	if tc.ControllerID == nil {
		return types.StateNeutral
	}
	return types.StateControlled
}
