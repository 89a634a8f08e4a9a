package models

import (
	"time"

	"github.com/google/uuid"

	"terraconquest/types"
)

// Battle is the contested state of one territory between an attacker and the
// current controller. At most one active battle exists per territory.
type Battle struct {
	Model
	TerritoryID      uuid.UUID          `json:"territory_id" gorm:"type:uuid;index;not null"`
	AttackerID       uuid.UUID          `json:"attacker_id" gorm:"type:uuid;not null"`
	DefenderID       *uuid.UUID         `json:"defender_id,omitempty" gorm:"type:uuid"`
	AttackerStrength float64            `json:"attacker_strength" gorm:"default:0"`
	DefenderStrength float64            `json:"defender_strength" gorm:"default:0"`
	Progress         float64            `json:"conquest_progress" gorm:"default:0"`
	Status           types.BattleStatus `json:"status" gorm:"size:16;not null;default:active;index"`
	ResolvedAt       *time.Time         `json:"resolved_at,omitempty"`
}

// TacticalMove is an immutable log entry for one attack/defend/reinforce
// action. Never mutated after creation.
type TacticalMove struct {
	Model
	UserID          uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	ActivityID      uuid.UUID      `json:"activity_id" gorm:"type:uuid;index;not null"`
	MoveType        types.MoveType `json:"move_type" gorm:"size:16;not null"`
	FromTerritoryID *uuid.UUID     `json:"from_territory_id,omitempty" gorm:"type:uuid"`
	ToTerritoryID   uuid.UUID      `json:"to_territory_id" gorm:"type:uuid;index;not null"`
	Units           int            `json:"units_moved" gorm:"not null"`
	Km              float64        `json:"km_allocated" gorm:"not null"`
	WasCritical     bool           `json:"was_critical" gorm:"default:false"`
	TurnedTide      bool           `json:"turned_tide" gorm:"default:false"`
}

// ConquestHistory is appended exactly when a battle resolves in the
// attacker's favor.
type ConquestHistory struct {
	Model
	TerritoryID        uuid.UUID  `json:"territory_id" gorm:"type:uuid;index;not null"`
	PreviousController *uuid.UUID `json:"previous_controller,omitempty" gorm:"type:uuid"`
	NewController      uuid.UUID  `json:"new_controller" gorm:"type:uuid;not null"`
	ConqueredAt        time.Time  `json:"conquered_at" gorm:"index;not null"`
}
