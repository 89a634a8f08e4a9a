// Package conquest runs the RISK-style territory layer: battles, tactical
// moves, previews, and the conquest record.
package conquest

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"terraconquest/config"
	"terraconquest/errs"
	"terraconquest/game/lock"
	"terraconquest/models"
	"terraconquest/store"
	"terraconquest/types"
)

// EventSink receives feed frames. Optional.
type EventSink interface {
	Publish(types.Event)
}

// Engine owns Territory control and Battle state. Moves against one
// territory serialize on that territory's lock; a reinforce takes both
// endpoint locks in sorted order.
type Engine struct {
	store  store.Store
	locks  *lock.Map
	cfg    config.Settings
	events EventSink
	now    func() time.Time
}

func New(st store.Store, cfg config.Settings) *Engine {
	return &Engine{
		store: st,
		locks: lock.NewMap(cfg.LockAttempts, cfg.LockBackoff),
		cfg:   cfg,
		now:   time.Now,
	}
}

func (e *Engine) SetEvents(sink EventSink) { e.events = sink }

// MoveRequest is one attack/defend/reinforce action backed by part of an
// activity.
type MoveRequest struct {
	UserID          uuid.UUID      `json:"user_id"`
	ActivityID      uuid.UUID      `json:"activity_id"`
	Type            types.MoveType `json:"move_type"`
	FromTerritoryID *uuid.UUID     `json:"from_territory_id,omitempty"`
	ToTerritoryID   uuid.UUID      `json:"to_territory_id"`
	Units           int            `json:"units"`
	Km              float64        `json:"km"`
}

// MoveOutcome reports what the move did.
type MoveOutcome struct {
	Move      models.TacticalMove      `json:"move"`
	Control   models.TerritoryControl  `json:"control"`
	Battle    *models.Battle           `json:"battle,omitempty"`
	State     types.TerritoryState     `json:"state"`
	Conquered bool                     `json:"conquered"`
	Repelled  bool                     `json:"repelled"`
}

// ExecuteMove validates, applies, and records one tactical move.
func (e *Engine) ExecuteMove(req MoveRequest) (*MoveOutcome, error) {
	if !req.Type.Valid() {
		return nil, errs.Validationf("unknown move type %q", req.Type)
	}
	if req.Units <= 0 {
		return nil, errs.Validationf("units must be positive, got %d", req.Units)
	}
	if req.Km <= 0 {
		return nil, errs.Validationf("km must be positive, got %f", req.Km)
	}

	activity, err := e.store.ActivityByID(req.ActivityID)
	if err != nil {
		return nil, err
	}
	if activity.UserID != req.UserID {
		return nil, errs.NotFoundf("activity %s not owned by mover", req.ActivityID)
	}
	if req.Km > activity.DistanceKm {
		return nil, errs.Validationf("move km %f exceeds activity distance %f", req.Km, activity.DistanceKm)
	}
	if activity.TeamID == nil {
		return nil, errs.Validationf("mover must belong to a team")
	}
	team := *activity.TeamID

	territory, err := e.store.TerritoryByID(req.ToTerritoryID)
	if err != nil {
		return nil, err
	}

	release, err := e.acquire(req)
	if err != nil {
		return nil, err
	}
	defer release()

	control, err := e.controlFor(req.ToTerritoryID)
	if err != nil {
		return nil, err
	}

	progressBefore := e.currentProgress(req.ToTerritoryID)

	var outcome *MoveOutcome
	switch req.Type {
	case types.MoveAttack:
		outcome, err = e.attack(team, territory, control, req)
	case types.MoveDefend:
		outcome, err = e.defend(team, control, req)
	case types.MoveReinforce:
		outcome, err = e.reinforce(team, control, req)
	}
	if err != nil {
		return nil, err
	}

	progressAfter := e.currentProgress(req.ToTerritoryID)
	delta := math.Abs(progressAfter - progressBefore)
	if outcome.Conquered {
		// A resolved battle reads as zero progress; the conquering move's
		// real swing is up to the threshold.
		delta = math.Abs(100 - progressBefore)
	}

	move := models.TacticalMove{
		UserID:          req.UserID,
		ActivityID:      req.ActivityID,
		MoveType:        req.Type,
		FromTerritoryID: req.FromTerritoryID,
		ToTerritoryID:   req.ToTerritoryID,
		Units:           req.Units,
		Km:              req.Km,
		WasCritical:     delta > e.cfg.SignificantMovePct,
		TurnedTide:      outcome.Conquered || outcome.Repelled,
	}
	if err := e.store.CreateTacticalMove(&move); err != nil {
		return nil, err
	}
	outcome.Move = move

	e.publish(types.EventMoveExecuted, map[string]interface{}{
		"move_id":      move.ID,
		"move_type":    move.MoveType,
		"territory_id": move.ToTerritoryID,
		"units":        move.Units,
		"was_critical": move.WasCritical,
		"turned_tide":  move.TurnedTide,
	})
	return outcome, nil
}

// acquire locks the touched territories; both endpoints of a reinforce, in
// sorted order so concurrent reinforces cannot deadlock.
func (e *Engine) acquire(req MoveRequest) (func(), error) {
	keys := []string{"territory:" + req.ToTerritoryID.String()}
	if req.Type == types.MoveReinforce && req.FromTerritoryID != nil {
		keys = append(keys, "territory:"+req.FromTerritoryID.String())
	}
	sort.Strings(keys)

	releases := make([]func(), 0, len(keys))
	for _, key := range keys {
		release, err := e.locks.Acquire(key)
		if err != nil {
			for i := len(releases) - 1; i >= 0; i-- {
				releases[i]()
			}
			return nil, err
		}
		releases = append(releases, release)
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}, nil
}

func (e *Engine) attack(team uuid.UUID, territory *models.Territory, control *models.TerritoryControl, req MoveRequest) (*MoveOutcome, error) {
	if control.ControllerID != nil && *control.ControllerID == team {
		return nil, errs.Validationf("territory already controlled by your team, use defend")
	}

	battle, err := e.store.ActiveBattleByTerritory(req.ToTerritoryID)
	if err != nil && !errs.IsNotFound(err) {
		return nil, err
	}

	if battle == nil || errs.IsNotFound(err) {
		effDef := e.effectiveDefense(territory, control)
		if float64(req.Units) <= e.cfg.ContestRatio*effDef {
			// Too weak to contest; the move is logged but nothing opens.
			return &MoveOutcome{Control: *control, State: control.State(), Repelled: false}, nil
		}
		battle = &models.Battle{
			TerritoryID:      req.ToTerritoryID,
			AttackerID:       team,
			DefenderID:       control.ControllerID,
			AttackerStrength: float64(req.Units),
			DefenderStrength: effDef,
			Status:           types.BattleActive,
		}
		if err := e.store.CreateBattle(battle); err != nil {
			return nil, err
		}
		control.IsUnderAttack = true
		if err := e.saveControl(control); err != nil {
			return nil, err
		}
		e.publish(types.EventBattleOpened, map[string]interface{}{
			"battle_id":    battle.ID,
			"territory_id": battle.TerritoryID,
			"attacker_id":  battle.AttackerID,
			"defender_id":  battle.DefenderID,
		})
	} else {
		if battle.AttackerID != team {
			return nil, errs.Validationf("territory already under attack by another team")
		}
		battle.AttackerStrength += float64(req.Units)
	}

	return e.settle(team, control, battle)
}

func (e *Engine) defend(team uuid.UUID, control *models.TerritoryControl, req MoveRequest) (*MoveOutcome, error) {
	if control.ControllerID == nil {
		return nil, errs.Validationf("cannot defend a neutral territory")
	}
	if *control.ControllerID != team {
		return nil, errs.Validationf("can only defend your own territory")
	}

	control.Units += req.Units
	if err := e.saveControl(control); err != nil {
		return nil, err
	}

	battle, err := e.store.ActiveBattleByTerritory(req.ToTerritoryID)
	if err != nil {
		if errs.IsNotFound(err) {
			return &MoveOutcome{Control: *control, State: control.State()}, nil
		}
		return nil, err
	}

	battle.DefenderStrength += float64(req.Units)
	battle.Progress = conquestProgress(battle)

	if battle.AttackerStrength <= 0 || battle.Progress <= e.cfg.RecoveryThresholdPct {
		now := e.now()
		battle.Status = types.BattleResolved
		battle.ResolvedAt = &now
		control.IsUnderAttack = false
		if err := e.store.SaveBattle(battle); err != nil {
			return nil, err
		}
		if err := e.saveControl(control); err != nil {
			return nil, err
		}
		e.publish(types.EventBattleResolved, map[string]interface{}{
			"battle_id":    battle.ID,
			"territory_id": battle.TerritoryID,
			"winner":       control.ControllerID,
			"defended":     true,
		})
		return &MoveOutcome{Control: *control, Battle: battle, State: control.State(), Repelled: true}, nil
	}

	if err := e.store.SaveBattle(battle); err != nil {
		return nil, err
	}
	return &MoveOutcome{Control: *control, Battle: battle, State: control.State()}, nil
}

func (e *Engine) reinforce(team uuid.UUID, dst *models.TerritoryControl, req MoveRequest) (*MoveOutcome, error) {
	if req.FromTerritoryID == nil {
		return nil, errs.Validationf("reinforce requires a source territory")
	}
	if _, err := e.store.TerritoryByID(*req.FromTerritoryID); err != nil {
		return nil, err
	}
	src, err := e.store.ControlByTerritory(*req.FromTerritoryID)
	if err != nil {
		return nil, err
	}
	if src.ControllerID == nil || *src.ControllerID != team {
		return nil, errs.Validationf("source territory not controlled by your team")
	}
	if dst.ControllerID == nil || *dst.ControllerID != team {
		return nil, errs.Validationf("destination territory not controlled by your team")
	}
	if src.Units < req.Units {
		return nil, errs.Validationf("insufficient units: have %d, need %d", src.Units, req.Units)
	}

	src.Units -= req.Units
	dst.Units += req.Units
	if err := e.saveControl(src); err != nil {
		return nil, err
	}
	if err := e.saveControl(dst); err != nil {
		return nil, err
	}
	return &MoveOutcome{Control: *dst, State: dst.State()}, nil
}

// settle recomputes progress and resolves the battle when a threshold is
// crossed.
func (e *Engine) settle(attacker uuid.UUID, control *models.TerritoryControl, battle *models.Battle) (*MoveOutcome, error) {
	battle.Progress = conquestProgress(battle)
	now := e.now()

	if battle.AttackerStrength <= 0 && battle.DefenderStrength <= 0 {
		// Both sides spent; the territory falls back to no one.
		battle.Status = types.BattleResolved
		battle.ResolvedAt = &now
		control.ControllerID = nil
		control.Units = 0
		control.IsUnderAttack = false
		control.ControlledAt = nil
		if err := e.store.SaveBattle(battle); err != nil {
			return nil, err
		}
		if err := e.saveControl(control); err != nil {
			return nil, err
		}
		return &MoveOutcome{Control: *control, Battle: battle, State: types.StateNeutral}, nil
	}

	if battle.Progress < e.cfg.ConquestThresholdPct {
		if err := e.store.SaveBattle(battle); err != nil {
			return nil, err
		}
		return &MoveOutcome{Control: *control, Battle: battle, State: types.StateContested}, nil
	}

	// Conquest: the attacker takes the territory with its surviving
	// strength.
	previous := control.ControllerID
	battle.Status = types.BattleResolved
	battle.ResolvedAt = &now
	control.ControllerID = &attacker
	control.Units = int(battle.AttackerStrength)
	control.DefenseBonus = 1.0
	control.IsUnderAttack = false
	control.ControlledAt = &now

	if err := e.store.SaveBattle(battle); err != nil {
		return nil, err
	}
	if err := e.saveControl(control); err != nil {
		return nil, err
	}
	entry := &models.ConquestHistory{
		TerritoryID:        battle.TerritoryID,
		PreviousController: previous,
		NewController:      attacker,
		ConqueredAt:        now,
	}
	if err := e.store.CreateConquest(entry); err != nil {
		return nil, err
	}

	e.publish(types.EventBattleResolved, map[string]interface{}{
		"battle_id":    battle.ID,
		"territory_id": battle.TerritoryID,
		"winner":       attacker,
		"defended":     false,
	})
	e.publish(types.EventConquest, map[string]interface{}{
		"territory_id":        battle.TerritoryID,
		"previous_controller": previous,
		"new_controller":      attacker,
	})

	return &MoveOutcome{Control: *control, Battle: battle, State: types.StateControlled, Conquered: true}, nil
}

// Preview is the read-only projection of an attack.
type Preview struct {
	TerritoryID      uuid.UUID            `json:"territory_id"`
	AttackerUnits    int                  `json:"attacker_units"`
	DefenderStrength float64              `json:"effective_defender_strength"`
	SuccessPct       float64              `json:"success_pct"`
	EstimatedCells   int                  `json:"estimated_cells_flipped"`
	Recommendation   types.Recommendation `json:"recommendation"`
}

// PreviewAttack runs the exact strength formula of ExecuteMove without
// touching state, so the projection is predictive.
func (e *Engine) PreviewAttack(territoryID uuid.UUID, units int) (*Preview, error) {
	if units <= 0 {
		return nil, errs.Validationf("units must be positive, got %d", units)
	}
	territory, err := e.store.TerritoryByID(territoryID)
	if err != nil {
		return nil, err
	}
	control, err := e.store.ControlByTerritory(territoryID)
	if err != nil {
		if !errs.IsNotFound(err) {
			return nil, err
		}
		control = &models.TerritoryControl{TerritoryID: territoryID, DefenseBonus: 1.0}
	}

	effDef := e.effectiveDefense(territory, control)
	success := 100.0
	if effDef > 0 {
		success = math.Min(100, float64(units)/effDef*100)
	}

	defenderCells := 0
	distribution, err := e.store.ZoneControlDistribution(territoryID)
	if err != nil {
		return nil, err
	}
	for _, d := range distribution {
		if d.TeamID != nil && control.ControllerID != nil && *d.TeamID == *control.ControllerID {
			defenderCells += d.Count
		}
	}

	rec := types.RecommendAvoid
	switch {
	case success > 60:
		rec = types.RecommendGo
	case success >= 40:
		rec = types.RecommendRisky
	}

	return &Preview{
		TerritoryID:      territoryID,
		AttackerUnits:    units,
		DefenderStrength: effDef,
		SuccessPct:       math.Round(success*100) / 100,
		EstimatedCells:   int(success / 100 * float64(defenderCells)),
		Recommendation:   rec,
	}, nil
}

// effectiveDefense is the defender strength formula shared by moves and
// previews: units scaled by the defense bonus, the territory classification,
// and the connected-territory count.
func (e *Engine) effectiveDefense(t *models.Territory, tc *models.TerritoryControl) float64 {
	bonus := tc.DefenseBonus
	if bonus <= 0 {
		bonus = 1.0
	}
	switch t.Class {
	case types.ClassCapital:
		bonus *= e.cfg.CapitalBonus
	case types.ClassFortress:
		bonus *= e.cfg.FortressBonus
	case types.ClassStrategic:
		bonus *= e.cfg.StrategicBonus
	}
	bonus *= 1 + e.cfg.ConnectionBonus*float64(len(t.Connected))
	return float64(tc.Units) * bonus
}

// controlFor fetches the territory's control row, or synthesizes a neutral
// unsaved one. Nothing is persisted until a branch actually mutates control
// state, so rejected moves leave no writes behind.
func (e *Engine) controlFor(territoryID uuid.UUID) (*models.TerritoryControl, error) {
	control, err := e.store.ControlByTerritory(territoryID)
	if err == nil {
		return control, nil
	}
	if !errs.IsNotFound(err) {
		return nil, err
	}
	return &models.TerritoryControl{TerritoryID: territoryID, DefenseBonus: 1.0}, nil
}

// saveControl persists the row, creating it on first write.
func (e *Engine) saveControl(control *models.TerritoryControl) error {
	if control.ID == uuid.Nil {
		return e.store.CreateTerritoryControl(control)
	}
	return e.store.SaveTerritoryControl(control)
}

func (e *Engine) currentProgress(territoryID uuid.UUID) float64 {
	battle, err := e.store.ActiveBattleByTerritory(territoryID)
	if err != nil {
		return 0
	}
	return battle.Progress
}

func conquestProgress(b *models.Battle) float64 {
	total := b.AttackerStrength + b.DefenderStrength
	if total <= 0 {
		return 0
	}
	return math.Round(b.AttackerStrength/total*10000) / 100
}

func (e *Engine) publish(t types.EventType, payload interface{}) {
	if e.events == nil {
		return
	}
	e.events.Publish(types.Event{Type: t, At: e.now(), Payload: payload})
}
