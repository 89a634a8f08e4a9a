package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"terraconquest/errs"
	"terraconquest/models"
	"terraconquest/types"
)

// Memory is a map-backed store. It carries the full contract, so the engines
// and their tests run against it without a database.
type Memory struct {
	mu sync.RWMutex

	zones          map[uuid.UUID]*models.Zone
	zonesByIndex   map[string]uuid.UUID
	zoneActivities []*models.ZoneActivity
	controlChanges []*models.ZoneControlChange

	activities   map[uuid.UUID]*models.Activity
	competitions map[uuid.UUID]*models.Competition
	allocations  []*models.CompetitionAllocation

	territories map[uuid.UUID]*models.Territory
	controls    map[uuid.UUID]*models.TerritoryControl // keyed by territory id
	battles     map[uuid.UUID]*models.Battle
	moves       []*models.TacticalMove
	conquests   []*models.ConquestHistory
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		zones:        make(map[uuid.UUID]*models.Zone),
		zonesByIndex: make(map[string]uuid.UUID),
		activities:   make(map[uuid.UUID]*models.Activity),
		competitions: make(map[uuid.UUID]*models.Competition),
		territories:  make(map[uuid.UUID]*models.Territory),
		controls:     make(map[uuid.UUID]*models.TerritoryControl),
		battles:      make(map[uuid.UUID]*models.Battle),
	}
}

func stamp(m *models.Model) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
}

func (s *Memory) ZoneByIndex(index string) (*models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.zonesByIndex[index]
	if !ok {
		return nil, errs.NotFoundf("zone %s", index)
	}
	z := *s.zones[id]
	return &z, nil
}

func (s *Memory) CreateZone(zone *models.Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&zone.Model)
	cp := *zone
	s.zones[zone.ID] = &cp
	s.zonesByIndex[zone.H3Index] = zone.ID
	return nil
}

func (s *Memory) AddZoneTotals(zoneID uuid.UUID, km float64, activities int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zoneID]
	if !ok {
		return errs.NotFoundf("zone %s", zoneID)
	}
	z.TotalKm += km
	z.TotalActivities += activities
	return nil
}

func (s *Memory) SaveZoneControl(zoneID uuid.UUID, team, user *uuid.UUID, percentage float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[zoneID]
	if !ok {
		return errs.NotFoundf("zone %s", zoneID)
	}
	z.ControlledByTeam = team
	z.ControlledByUser = user
	z.ControlPercentage = percentage
	return nil
}

func (s *Memory) CreateZoneActivity(za *models.ZoneActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&za.Model)
	cp := *za
	s.zoneActivities = append(s.zoneActivities, &cp)
	return nil
}

func (s *Memory) ZoneContributions(zoneID uuid.UUID, since time.Time) ([]models.ZoneActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ZoneActivity
	for _, za := range s.zoneActivities {
		if za.ZoneID == zoneID && !za.RecordedAt.Before(since) {
			out = append(out, *za)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

func (s *Memory) CreateControlChange(change *models.ZoneControlChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&change.Model)
	cp := *change
	s.controlChanges = append(s.controlChanges, &cp)
	return nil
}

// ControlChanges is a test convenience not present on the Store contract.
func (s *Memory) ControlChanges(zoneID uuid.UUID) []models.ZoneControlChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ZoneControlChange
	for _, c := range s.controlChanges {
		if c.ZoneID == zoneID {
			out = append(out, *c)
		}
	}
	return out
}

func (s *Memory) ZonesByIndexes(indexes []string) ([]models.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Zone
	for _, index := range indexes {
		if id, ok := s.zonesByIndex[index]; ok {
			out = append(out, *s.zones[id])
		}
	}
	return out, nil
}

func (s *Memory) ZoneControlDistribution(territoryID uuid.UUID) ([]ControllerCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var zones []models.Zone
	for _, z := range s.zones {
		if matchesTerritory(z, territoryID) {
			zones = append(zones, *z)
		}
	}
	return countControllers(zones), nil
}

func matchesTerritory(z *models.Zone, territoryID uuid.UUID) bool {
	for _, ref := range []*uuid.UUID{z.CityID, z.RegionID, z.CountryID} {
		if ref != nil && *ref == territoryID {
			return true
		}
	}
	return false
}

func (s *Memory) CreateActivity(activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&activity.Model)
	cp := *activity
	s.activities[activity.ID] = &cp
	return nil
}

func (s *Memory) ActivityByID(id uuid.UUID) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, errs.NotFoundf("activity %s", id)
	}
	cp := *a
	return &cp, nil
}

func (s *Memory) CreateCompetition(comp *models.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&comp.Model)
	cp := *comp
	s.competitions[comp.ID] = &cp
	return nil
}

func (s *Memory) CompetitionByID(id uuid.UUID) (*models.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.competitions[id]
	if !ok {
		return nil, errs.NotFoundf("competition %s", id)
	}
	cp := *c
	return &cp, nil
}

func (s *Memory) CreateCompetitionAllocation(alloc *models.CompetitionAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&alloc.Model)
	cp := *alloc
	s.allocations = append(s.allocations, &cp)
	return nil
}

// Allocations is a test convenience not present on the Store contract.
func (s *Memory) Allocations(activityID uuid.UUID) []models.CompetitionAllocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CompetitionAllocation
	for _, a := range s.allocations {
		if a.ActivityID == activityID {
			out = append(out, *a)
		}
	}
	return out
}

func (s *Memory) CreateTerritory(t *models.Territory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&t.Model)
	cp := *t
	s.territories[t.ID] = &cp
	return nil
}

func (s *Memory) TerritoryByID(id uuid.UUID) (*models.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.territories[id]
	if !ok {
		return nil, errs.NotFoundf("territory %s", id)
	}
	cp := *t
	return &cp, nil
}

func (s *Memory) TerritoriesByType(tt types.TerritoryType) ([]models.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Territory
	for _, t := range s.territories {
		if t.Type == tt {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Memory) AllTerritories() ([]models.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Territory, 0, len(s.territories))
	for _, t := range s.territories {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Memory) ControlByTerritory(territoryID uuid.UUID) (*models.TerritoryControl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tc, ok := s.controls[territoryID]
	if !ok {
		return nil, errs.NotFoundf("territory control %s", territoryID)
	}
	cp := *tc
	return &cp, nil
}

func (s *Memory) CreateTerritoryControl(tc *models.TerritoryControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&tc.Model)
	cp := *tc
	s.controls[tc.TerritoryID] = &cp
	return nil
}

func (s *Memory) SaveTerritoryControl(tc *models.TerritoryControl) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controls[tc.TerritoryID]; !ok {
		return errs.NotFoundf("territory control %s", tc.TerritoryID)
	}
	cp := *tc
	s.controls[tc.TerritoryID] = &cp
	return nil
}

func (s *Memory) ControlsByController(teamID uuid.UUID) ([]models.TerritoryControl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TerritoryControl
	for _, tc := range s.controls {
		if tc.ControllerID != nil && *tc.ControllerID == teamID {
			out = append(out, *tc)
		}
	}
	return out, nil
}

func (s *Memory) BattleByID(id uuid.UUID) (*models.Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.battles[id]
	if !ok {
		return nil, errs.NotFoundf("battle %s", id)
	}
	cp := *b
	return &cp, nil
}

func (s *Memory) ActiveBattleByTerritory(territoryID uuid.UUID) (*models.Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.battles {
		if b.TerritoryID == territoryID && b.Status == types.BattleActive {
			cp := *b
			return &cp, nil
		}
	}
	return nil, errs.NotFoundf("active battle for territory %s", territoryID)
}

func (s *Memory) ActiveBattles(limit int) ([]models.Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Battle
	for _, b := range s.battles {
		if b.Status == types.BattleActive {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) CreateBattle(battle *models.Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&battle.Model)
	cp := *battle
	s.battles[battle.ID] = &cp
	return nil
}

func (s *Memory) SaveBattle(battle *models.Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.battles[battle.ID]; !ok {
		return errs.NotFoundf("battle %s", battle.ID)
	}
	cp := *battle
	s.battles[battle.ID] = &cp
	return nil
}

func (s *Memory) CreateTacticalMove(move *models.TacticalMove) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&move.Model)
	cp := *move
	s.moves = append(s.moves, &cp)
	return nil
}

func (s *Memory) MovesByUser(userID uuid.UUID) ([]models.TacticalMove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TacticalMove
	for _, m := range s.moves {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *Memory) RecentMovesByTerritory(territoryID uuid.UUID, limit int) ([]models.TacticalMove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TacticalMove
	for _, m := range s.moves {
		if m.ToTerritoryID == territoryID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Memory) CreateConquest(entry *models.ConquestHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp(&entry.Model)
	cp := *entry
	s.conquests = append(s.conquests, &cp)
	return nil
}

func (s *Memory) ConquestHistory(territoryID *uuid.UUID, limit int) ([]models.ConquestHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConquestHistory
	for _, c := range s.conquests {
		if territoryID == nil || c.TerritoryID == *territoryID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConqueredAt.After(out[j].ConqueredAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
