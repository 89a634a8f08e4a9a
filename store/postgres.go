package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"terraconquest/errs"
	"terraconquest/models"
	"terraconquest/types"
)

// Postgres backs the store contract with gorm.
type Postgres struct {
	db *gorm.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFoundf(format, args...)
	}
	return err
}

func (s *Postgres) ZoneByIndex(index string) (*models.Zone, error) {
	var zone models.Zone
	if err := s.db.Where("h3_index = ?", index).First(&zone).Error; err != nil {
		return nil, notFoundOr(err, "zone %s", index)
	}
	return &zone, nil
}

func (s *Postgres) CreateZone(zone *models.Zone) error {
	return s.db.Create(zone).Error
}

// AddZoneTotals uses SQL-side increments so concurrent writers never lose an
// update.
func (s *Postgres) AddZoneTotals(zoneID uuid.UUID, km float64, activities int) error {
	return s.db.Model(&models.Zone{}).
		Where("id = ?", zoneID).
		Updates(map[string]interface{}{
			"total_km":         gorm.Expr("total_km + ?", km),
			"total_activities": gorm.Expr("total_activities + ?", activities),
		}).Error
}

func (s *Postgres) SaveZoneControl(zoneID uuid.UUID, team, user *uuid.UUID, percentage float64) error {
	return s.db.Model(&models.Zone{}).
		Where("id = ?", zoneID).
		Updates(map[string]interface{}{
			"controlled_by_team": team,
			"controlled_by_user": user,
			"control_percentage": percentage,
		}).Error
}

func (s *Postgres) CreateZoneActivity(za *models.ZoneActivity) error {
	return s.db.Create(za).Error
}

func (s *Postgres) ZoneContributions(zoneID uuid.UUID, since time.Time) ([]models.ZoneActivity, error) {
	var out []models.ZoneActivity
	err := s.db.Where("zone_id = ? AND recorded_at >= ?", zoneID, since).
		Order("recorded_at").
		Find(&out).Error
	return out, err
}

func (s *Postgres) CreateControlChange(change *models.ZoneControlChange) error {
	return s.db.Create(change).Error
}

func (s *Postgres) ZonesByIndexes(indexes []string) ([]models.Zone, error) {
	if len(indexes) == 0 {
		return nil, nil
	}
	var out []models.Zone
	err := s.db.Where("h3_index IN ?", indexes).Find(&out).Error
	return out, err
}

func (s *Postgres) ZoneControlDistribution(territoryID uuid.UUID) ([]ControllerCount, error) {
	var zones []models.Zone
	err := s.db.
		Where("city_id = ? OR region_id = ? OR country_id = ?", territoryID, territoryID, territoryID).
		Find(&zones).Error
	if err != nil {
		return nil, err
	}
	return countControllers(zones), nil
}

func (s *Postgres) CreateActivity(activity *models.Activity) error {
	return s.db.Create(activity).Error
}

func (s *Postgres) ActivityByID(id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := s.db.First(&activity, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "activity %s", id)
	}
	return &activity, nil
}

func (s *Postgres) CompetitionByID(id uuid.UUID) (*models.Competition, error) {
	var comp models.Competition
	if err := s.db.First(&comp, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "competition %s", id)
	}
	return &comp, nil
}

func (s *Postgres) CreateCompetitionAllocation(alloc *models.CompetitionAllocation) error {
	return s.db.Create(alloc).Error
}

func (s *Postgres) TerritoryByID(id uuid.UUID) (*models.Territory, error) {
	var t models.Territory
	if err := s.db.First(&t, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "territory %s", id)
	}
	return &t, nil
}

func (s *Postgres) TerritoriesByType(tt types.TerritoryType) ([]models.Territory, error) {
	var out []models.Territory
	err := s.db.Where("type = ?", tt).Order("name").Find(&out).Error
	return out, err
}

func (s *Postgres) AllTerritories() ([]models.Territory, error) {
	var out []models.Territory
	err := s.db.Order("name").Find(&out).Error
	return out, err
}

func (s *Postgres) ControlByTerritory(territoryID uuid.UUID) (*models.TerritoryControl, error) {
	var tc models.TerritoryControl
	if err := s.db.Where("territory_id = ?", territoryID).First(&tc).Error; err != nil {
		return nil, notFoundOr(err, "territory control %s", territoryID)
	}
	return &tc, nil
}

func (s *Postgres) CreateTerritoryControl(tc *models.TerritoryControl) error {
	return s.db.Create(tc).Error
}

func (s *Postgres) SaveTerritoryControl(tc *models.TerritoryControl) error {
	return s.db.Model(&models.TerritoryControl{}).
		Where("id = ?", tc.ID).
		Updates(map[string]interface{}{
			"controller_id":   tc.ControllerID,
			"units":           tc.Units,
			"defense_bonus":   tc.DefenseBonus,
			"is_under_attack": tc.IsUnderAttack,
			"controlled_at":   tc.ControlledAt,
		}).Error
}

func (s *Postgres) ControlsByController(teamID uuid.UUID) ([]models.TerritoryControl, error) {
	var out []models.TerritoryControl
	err := s.db.Where("controller_id = ?", teamID).Find(&out).Error
	return out, err
}

func (s *Postgres) BattleByID(id uuid.UUID) (*models.Battle, error) {
	var b models.Battle
	if err := s.db.First(&b, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "battle %s", id)
	}
	return &b, nil
}

func (s *Postgres) ActiveBattleByTerritory(territoryID uuid.UUID) (*models.Battle, error) {
	var b models.Battle
	err := s.db.Where("territory_id = ? AND status = ?", territoryID, types.BattleActive).First(&b).Error
	if err != nil {
		return nil, notFoundOr(err, "active battle for territory %s", territoryID)
	}
	return &b, nil
}

func (s *Postgres) ActiveBattles(limit int) ([]models.Battle, error) {
	var out []models.Battle
	err := s.db.Where("status = ?", types.BattleActive).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Postgres) CreateBattle(battle *models.Battle) error {
	return s.db.Create(battle).Error
}

func (s *Postgres) SaveBattle(battle *models.Battle) error {
	return s.db.Model(&models.Battle{}).
		Where("id = ?", battle.ID).
		Updates(map[string]interface{}{
			"attacker_strength": battle.AttackerStrength,
			"defender_strength": battle.DefenderStrength,
			"progress":          battle.Progress,
			"status":            battle.Status,
			"resolved_at":       battle.ResolvedAt,
		}).Error
}

func (s *Postgres) CreateTacticalMove(move *models.TacticalMove) error {
	return s.db.Create(move).Error
}

func (s *Postgres) MovesByUser(userID uuid.UUID) ([]models.TacticalMove, error) {
	var out []models.TacticalMove
	err := s.db.Where("user_id = ?", userID).Order("created_at").Find(&out).Error
	return out, err
}

func (s *Postgres) RecentMovesByTerritory(territoryID uuid.UUID, limit int) ([]models.TacticalMove, error) {
	var out []models.TacticalMove
	err := s.db.Where("to_territory_id = ?", territoryID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *Postgres) CreateConquest(entry *models.ConquestHistory) error {
	return s.db.Create(entry).Error
}

func (s *Postgres) ConquestHistory(territoryID *uuid.UUID, limit int) ([]models.ConquestHistory, error) {
	q := s.db.Model(&models.ConquestHistory{})
	if territoryID != nil {
		q = q.Where("territory_id = ?", *territoryID)
	}
	var out []models.ConquestHistory
	err := q.Order("conquered_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// countControllers groups zones by controlling team; nil buckets neutral
// cells.
func countControllers(zones []models.Zone) []ControllerCount {
	byTeam := make(map[uuid.UUID]int)
	neutral := 0
	for _, z := range zones {
		if z.ControlledByTeam == nil {
			neutral++
			continue
		}
		byTeam[*z.ControlledByTeam]++
	}
	out := make([]ControllerCount, 0, len(byTeam)+1)
	for team, count := range byTeam {
		t := team
		out = append(out, ControllerCount{TeamID: &t, Count: count})
	}
	if neutral > 0 {
		out = append(out, ControllerCount{Count: neutral})
	}
	return out
}
