// Package store defines the persistence contract the engines depend on, plus
// the Postgres and in-memory implementations of it.
package store

import (
	"time"

	"github.com/google/uuid"

	"terraconquest/models"
	"terraconquest/types"
)

// ControllerCount is one row of a zone distribution: how many cells inside a
// territory a controller holds. A nil TeamID bucket counts neutral cells.
type ControllerCount struct {
	TeamID *uuid.UUID `json:"team_id,omitempty"`
	Count  int        `json:"count"`
}

// Store is everything the engines need from persistence. Lookups for missing
// records fail with a not-found error from the errs package.
type Store interface {
	// Zones
	ZoneByIndex(index string) (*models.Zone, error)
	CreateZone(zone *models.Zone) error
	// AddZoneTotals must increment atomically at the storage boundary.
	AddZoneTotals(zoneID uuid.UUID, km float64, activities int) error
	SaveZoneControl(zoneID uuid.UUID, team, user *uuid.UUID, percentage float64) error
	CreateZoneActivity(za *models.ZoneActivity) error
	ZoneContributions(zoneID uuid.UUID, since time.Time) ([]models.ZoneActivity, error)
	CreateControlChange(change *models.ZoneControlChange) error
	ZonesByIndexes(indexes []string) ([]models.Zone, error)
	ZoneControlDistribution(territoryID uuid.UUID) ([]ControllerCount, error)

	// Activities
	CreateActivity(activity *models.Activity) error
	ActivityByID(id uuid.UUID) (*models.Activity, error)

	// Competitions
	CompetitionByID(id uuid.UUID) (*models.Competition, error)
	CreateCompetitionAllocation(alloc *models.CompetitionAllocation) error

	// Territories
	TerritoryByID(id uuid.UUID) (*models.Territory, error)
	TerritoriesByType(t types.TerritoryType) ([]models.Territory, error)
	AllTerritories() ([]models.Territory, error)
	ControlByTerritory(territoryID uuid.UUID) (*models.TerritoryControl, error)
	CreateTerritoryControl(tc *models.TerritoryControl) error
	SaveTerritoryControl(tc *models.TerritoryControl) error
	ControlsByController(teamID uuid.UUID) ([]models.TerritoryControl, error)

	// Battles
	BattleByID(id uuid.UUID) (*models.Battle, error)
	ActiveBattleByTerritory(territoryID uuid.UUID) (*models.Battle, error)
	ActiveBattles(limit int) ([]models.Battle, error)
	CreateBattle(battle *models.Battle) error
	SaveBattle(battle *models.Battle) error

	// Moves and conquest history
	CreateTacticalMove(move *models.TacticalMove) error
	MovesByUser(userID uuid.UUID) ([]models.TacticalMove, error)
	RecentMovesByTerritory(territoryID uuid.UUID, limit int) ([]models.TacticalMove, error)
	CreateConquest(entry *models.ConquestHistory) error
	ConquestHistory(territoryID *uuid.UUID, limit int) ([]models.ConquestHistory, error)
}
