package conquest

import (
	"sort"

	"github.com/google/uuid"

	"terraconquest/errs"
	"terraconquest/models"
	"terraconquest/store"
	"terraconquest/types"
)

// zoomLevels maps a requested map zoom onto the territory type rendered at
// that zoom.
var zoomLevels = map[string]types.TerritoryType{
	"world":     types.TerritoryCountry,
	"continent": types.TerritoryCountry,
	"country":   types.TerritoryRegion,
	"region":    types.TerritoryCity,
	"city":      types.TerritoryCity,
}

// TerritoryView is one territory on the map read model.
type TerritoryView struct {
	ID             uuid.UUID            `json:"id"`
	Name           string               `json:"name"`
	Type           types.TerritoryType  `json:"type"`
	Class          types.TerritoryClass `json:"class"`
	CenterLat      float64              `json:"center_lat"`
	CenterLng      float64              `json:"center_lng"`
	ControllerID   *uuid.UUID           `json:"controller_id,omitempty"`
	Units          int                  `json:"units"`
	DefenseBonus   float64              `json:"defense_bonus"`
	IsUnderAttack  bool                 `json:"is_under_attack"`
	DaysControlled int                  `json:"days_controlled"`
	BattleProgress float64              `json:"battle_progress"`
	State          types.TerritoryState `json:"state"`
}

// WorldMap renders the territory layer at a zoom level.
func (e *Engine) WorldMap(zoom string) ([]TerritoryView, error) {
	tt, ok := zoomLevels[zoom]
	if !ok {
		return nil, errs.Validationf("unknown zoom level %q", zoom)
	}
	territories, err := e.store.TerritoriesByType(tt)
	if err != nil {
		return nil, err
	}
	views := make([]TerritoryView, 0, len(territories))
	for i := range territories {
		view, err := e.territoryView(&territories[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

func (e *Engine) territoryView(t *models.Territory) (*TerritoryView, error) {
	view := &TerritoryView{
		ID:           t.ID,
		Name:         t.Name,
		Type:         t.Type,
		Class:        t.Class,
		CenterLat:    t.CenterLat,
		CenterLng:    t.CenterLng,
		DefenseBonus: 1.0,
		State:        types.StateNeutral,
	}
	control, err := e.store.ControlByTerritory(t.ID)
	if err != nil {
		if errs.IsNotFound(err) {
			return view, nil
		}
		return nil, err
	}
	view.ControllerID = control.ControllerID
	view.Units = control.Units
	view.DefenseBonus = control.DefenseBonus
	view.IsUnderAttack = control.IsUnderAttack
	view.DaysControlled = control.DaysControlled(e.now())
	view.State = control.State()

	if battle, err := e.store.ActiveBattleByTerritory(t.ID); err == nil {
		view.BattleProgress = battle.Progress
	}
	return view, nil
}

// TerritoryDetail is the full read model for one territory.
type TerritoryDetail struct {
	Territory      models.Territory        `json:"territory"`
	View           TerritoryView           `json:"control"`
	Battle         *models.Battle          `json:"battle,omitempty"`
	Distribution   []store.ControllerCount `json:"hexagon_distribution"`
	Connected      []models.Territory      `json:"connected_territories"`
	StrategicValue int                     `json:"strategic_value"`
}

func (e *Engine) TerritoryDetail(id uuid.UUID) (*TerritoryDetail, error) {
	territory, err := e.store.TerritoryByID(id)
	if err != nil {
		return nil, err
	}
	view, err := e.territoryView(territory)
	if err != nil {
		return nil, err
	}
	distribution, err := e.store.ZoneControlDistribution(id)
	if err != nil {
		return nil, err
	}

	connected := make([]models.Territory, 0, len(territory.Connected))
	for _, cid := range territory.Connected {
		ct, err := e.store.TerritoryByID(cid)
		if err != nil {
			if errs.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		connected = append(connected, *ct)
	}

	detail := &TerritoryDetail{
		Territory:      *territory,
		View:           *view,
		Distribution:   distribution,
		Connected:      connected,
		StrategicValue: StrategicValue(territory, len(connected)),
	}
	if battle, err := e.store.ActiveBattleByTerritory(id); err == nil {
		detail.Battle = battle
	}
	return detail, nil
}

// StrategicValue scores a territory for targeting decisions.
func StrategicValue(t *models.Territory, connections int) int {
	value := 10
	switch t.Class {
	case types.ClassCapital:
		value += 20
	case types.ClassFortress:
		value += 15
	case types.ClassStrategic:
		value += 10
	}
	value += connections * 2
	value += t.ProductionRate * 5
	return value
}

// BattleDetail is one battle with its recent moves.
type BattleDetail struct {
	Battle      models.Battle         `json:"battle"`
	RecentMoves []models.TacticalMove `json:"recent_moves"`
}

func (e *Engine) BattleDetail(battleID uuid.UUID) (*BattleDetail, error) {
	battle, err := e.store.BattleByID(battleID)
	if err != nil {
		return nil, err
	}
	moves, err := e.store.RecentMovesByTerritory(battle.TerritoryID, 20)
	if err != nil {
		return nil, err
	}
	return &BattleDetail{Battle: *battle, RecentMoves: moves}, nil
}

// ActiveBattles lists open battles, newest first.
func (e *Engine) ActiveBattles(limit int) ([]models.Battle, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.store.ActiveBattles(limit)
}

// History returns the conquest feed, optionally scoped to one territory.
func (e *Engine) History(territoryID *uuid.UUID, limit int) ([]models.ConquestHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.store.ConquestHistory(territoryID, limit)
}

// Impact summarizes one user's footprint on the map.
type Impact struct {
	TotalMoves            int     `json:"total_moves"`
	CriticalMoves         int     `json:"critical_moves"`
	ConquestsParticipated int     `json:"conquests_participated"`
	TerritoriesImpacted   int     `json:"territories_impacted"`
	TotalUnitsDeployed    int     `json:"total_units_deployed"`
	TotalKmAllocated      float64 `json:"total_km_allocated"`
	AverageImpactPerMove  float64 `json:"average_impact_per_move"`
}

func (e *Engine) UserImpact(userID uuid.UUID) (*Impact, error) {
	moves, err := e.store.MovesByUser(userID)
	if err != nil {
		return nil, err
	}
	impact := &Impact{}
	territories := make(map[uuid.UUID]struct{})
	for _, m := range moves {
		impact.TotalMoves++
		if m.WasCritical {
			impact.CriticalMoves++
		}
		if m.TurnedTide {
			impact.ConquestsParticipated++
		}
		impact.TotalUnitsDeployed += m.Units
		impact.TotalKmAllocated += m.Km
		territories[m.ToTerritoryID] = struct{}{}
	}
	impact.TerritoriesImpacted = len(territories)
	if impact.TotalMoves > 0 {
		impact.AverageImpactPerMove = float64(impact.TotalUnitsDeployed) / float64(impact.TotalMoves)
	}
	return impact, nil
}

// Border is a frontier between two territories under different controllers.
type Border struct {
	TerritoryA   models.Territory `json:"territory_a"`
	TerritoryB   models.Territory `json:"territory_b"`
	UnitsA       int              `json:"units_a"`
	UnitsB       int              `json:"units_b"`
	BalancePct   float64          `json:"balance_pct"`
	UnderAttackA bool             `json:"under_attack_a"`
	UnderAttackB bool             `json:"under_attack_b"`
}

// HotBorders ranks contested frontiers; the closer to 50-50 the forces, the
// hotter the border.
func (e *Engine) HotBorders(limit int) ([]Border, error) {
	if limit <= 0 {
		limit = 10
	}
	territories, err := e.store.AllTerritories()
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*models.Territory, len(territories))
	for i := range territories {
		byID[territories[i].ID] = &territories[i]
	}

	seen := make(map[[2]uuid.UUID]struct{})
	var borders []Border
	for i := range territories {
		a := &territories[i]
		ca, err := e.store.ControlByTerritory(a.ID)
		if err != nil || ca.ControllerID == nil {
			continue
		}
		for _, bid := range a.Connected {
			b, ok := byID[bid]
			if !ok {
				continue
			}
			key := pairKey(a.ID, bid)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			cb, err := e.store.ControlByTerritory(bid)
			if err != nil || cb.ControllerID == nil || *cb.ControllerID == *ca.ControllerID {
				continue
			}
			total := ca.Units + cb.Units
			balance := 0.0
			if total > 0 {
				// 100 = perfectly even forces.
				balance = 100 - absFloat(float64(ca.Units-cb.Units))/float64(total)*100
			}
			borders = append(borders, Border{
				TerritoryA:   *a,
				TerritoryB:   *b,
				UnitsA:       ca.Units,
				UnitsB:       cb.Units,
				BalancePct:   balance,
				UnderAttackA: ca.IsUnderAttack,
				UnderAttackB: cb.IsUnderAttack,
			})
		}
	}
	sort.Slice(borders, func(i, j int) bool { return borders[i].BalancePct > borders[j].BalancePct })
	if len(borders) > limit {
		borders = borders[:limit]
	}
	return borders, nil
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() < b.String() {
		return [2]uuid.UUID{a, b}
	}
	return [2]uuid.UUID{b, a}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
