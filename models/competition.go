package models

import (
	"github.com/google/uuid"
)

const CompetitionActive = "active"

// Competition is an external bookkeeping aggregate; the engine only needs its
// identity and whether it is active.
type Competition struct {
	Model
	Name   string `json:"name" gorm:"not null"`
	Status string `json:"status" gorm:"size:16;not null;default:active;index"`
}

// CompetitionAllocation splits part of one activity's distance into a named
// competition. The split never touches zone state.
type CompetitionAllocation struct {
	Model
	ActivityID          uuid.UUID `json:"activity_id" gorm:"type:uuid;index;not null"`
	CompetitionID       uuid.UUID `json:"competition_id" gorm:"type:uuid;index;not null"`
	AllocatedKm         float64   `json:"allocated_km" gorm:"not null"`
	AllocatedPercentage float64   `json:"allocated_percentage" gorm:"not null"`
	PointsEarned        int       `json:"points_earned" gorm:"not null"`
}
