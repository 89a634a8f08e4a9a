package conquest

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"terraconquest/config"
	"terraconquest/errs"
	"terraconquest/models"
	"terraconquest/store"
	"terraconquest/types"
)

func newTestConquest(t *testing.T) (*Engine, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return New(st, config.Default()), st
}

func seedTerritory(t *testing.T, st *store.Memory, name string, class types.TerritoryClass) *models.Territory {
	t.Helper()
	territory := &models.Territory{
		Name:      name,
		Type:      types.TerritoryCity,
		Class:     class,
		CenterLat: 41.0,
		CenterLng: 29.0,
		RadiusKm:  25,
	}
	if err := st.CreateTerritory(territory); err != nil {
		t.Fatalf("CreateTerritory failed: %v", err)
	}
	return territory
}

func seedActivity(t *testing.T, st *store.Memory, user uuid.UUID, team *uuid.UUID, km float64) *models.Activity {
	t.Helper()
	activity := &models.Activity{
		UserID:     user,
		TeamID:     team,
		DistanceKm: km,
		RecordedAt: time.Now().UTC(),
	}
	if err := st.CreateActivity(activity); err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}
	return activity
}

// conquer takes a neutral territory for the team with the given units.
func conquer(t *testing.T, engine *Engine, st *store.Memory, territory *models.Territory, team uuid.UUID, units int) {
	t.Helper()
	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 50)
	outcome, err := engine.ExecuteMove(MoveRequest{
		UserID:        user,
		ActivityID:    activity.ID,
		Type:          types.MoveAttack,
		ToTerritoryID: territory.ID,
		Units:         units,
		Km:            10,
	})
	if err != nil {
		t.Fatalf("Conquering %s failed: %v", territory.Name, err)
	}
	if !outcome.Conquered {
		t.Fatalf("Expected neutral %s conquered outright", territory.Name)
	}
}

func TestAttackNeutralTerritoryConquersImmediately(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	team := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 20)

	outcome, err := engine.ExecuteMove(MoveRequest{
		UserID:        user,
		ActivityID:    activity.ID,
		Type:          types.MoveAttack,
		ToTerritoryID: territory.ID,
		Units:         10,
		Km:            5,
	})
	if err != nil {
		t.Fatalf("ExecuteMove failed: %v", err)
	}
	if !outcome.Conquered {
		t.Error("Expected an unguarded territory conquered in one move")
	}
	if outcome.State != types.StateControlled {
		t.Errorf("Expected controlled state, got %s", outcome.State)
	}
	if outcome.Control.ControllerID == nil || *outcome.Control.ControllerID != team {
		t.Errorf("Expected team %s in control, got %v", team, outcome.Control.ControllerID)
	}
	if outcome.Control.Units != 10 {
		t.Errorf("Expected 10 surviving units garrisoned, got %d", outcome.Control.Units)
	}
	if !outcome.Move.TurnedTide {
		t.Error("Expected the conquering move flagged as tide-turning")
	}

	history, err := st.ConquestHistory(&territory.ID, 0)
	if err != nil {
		t.Fatalf("ConquestHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected one conquest record, got %d", len(history))
	}
	if history[0].PreviousController != nil || history[0].NewController != team {
		t.Errorf("Expected conquest nil -> %s, got %v -> %s", team, history[0].PreviousController, history[0].NewController)
	}
}

func TestAttackOwnTerritoryRejected(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	team := uuid.New()
	conquer(t, engine, st, territory, team, 10)

	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 20)
	_, err := engine.ExecuteMove(MoveRequest{
		UserID:        user,
		ActivityID:    activity.ID,
		Type:          types.MoveAttack,
		ToTerritoryID: territory.ID,
		Units:         5,
		Km:            5,
	})
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error attacking own territory, got %v", err)
	}
}

func TestWeakAttackOpensNothing(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	defender := uuid.New()
	conquer(t, engine, st, territory, defender, 10)

	attacker := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &attacker, 20)

	// Defense is 10 units; 5 attackers are at the contest bar, not over it.
	outcome, err := engine.ExecuteMove(MoveRequest{
		UserID:        user,
		ActivityID:    activity.ID,
		Type:          types.MoveAttack,
		ToTerritoryID: territory.ID,
		Units:         5,
		Km:            5,
	})
	if err != nil {
		t.Fatalf("ExecuteMove failed: %v", err)
	}
	if outcome.Battle != nil {
		t.Error("Expected no battle from a sub-contest attack")
	}
	if _, err := st.ActiveBattleByTerritory(territory.ID); !errs.IsNotFound(err) {
		t.Errorf("Expected no active battle stored, got %v", err)
	}
}

func TestAttackOpensBattleAndContestsTerritory(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	defender := uuid.New()
	conquer(t, engine, st, territory, defender, 10)

	attacker := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &attacker, 20)

	outcome, err := engine.ExecuteMove(MoveRequest{
		UserID:        user,
		ActivityID:    activity.ID,
		Type:          types.MoveAttack,
		ToTerritoryID: territory.ID,
		Units:         6,
		Km:            5,
	})
	if err != nil {
		t.Fatalf("ExecuteMove failed: %v", err)
	}
	if outcome.Battle == nil {
		t.Fatal("Expected a battle to open")
	}
	if outcome.State != types.StateContested {
		t.Errorf("Expected contested state, got %s", outcome.State)
	}
	if !outcome.Control.IsUnderAttack {
		t.Error("Expected the control row flagged under attack")
	}
	// 6 attackers against a 10-unit garrison: 6/16 = 37.5%.
	if outcome.Battle.Progress != 37.5 {
		t.Errorf("Expected 37.5%% progress, got %f", outcome.Battle.Progress)
	}
	if outcome.Battle.DefenderID == nil || *outcome.Battle.DefenderID != defender {
		t.Errorf("Expected defender %s snapshot on the battle, got %v", defender, outcome.Battle.DefenderID)
	}
}

func TestSecondAttackerRejected(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	defender := uuid.New()
	conquer(t, engine, st, territory, defender, 10)

	attacker := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &attacker, 20)
	if _, err := engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveAttack,
		ToTerritoryID: territory.ID, Units: 6, Km: 5,
	}); err != nil {
		t.Fatalf("Opening attack failed: %v", err)
	}

	third := uuid.New()
	user2 := uuid.New()
	activity2 := seedActivity(t, st, user2, &third, 20)
	_, err := engine.ExecuteMove(MoveRequest{
		UserID: user2, ActivityID: activity2.ID, Type: types.MoveAttack,
		ToTerritoryID: territory.ID, Units: 8, Km: 5,
	})
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error for a second attacking team, got %v", err)
	}
}

func TestAttackAccumulatesToConquest(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	defender := uuid.New()
	conquer(t, engine, st, territory, defender, 10)

	attacker := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &attacker, 100)

	if _, err := engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveAttack,
		ToTerritoryID: territory.ID, Units: 6, Km: 5,
	}); err != nil {
		t.Fatalf("Opening attack failed: %v", err)
	}

	// 6 + 30 attackers against 10 defenders: 36/46 = 78.26%, over the bar.
	outcome, err := engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveAttack,
		ToTerritoryID: territory.ID, Units: 30, Km: 5,
	})
	if err != nil {
		t.Fatalf("Follow-up attack failed: %v", err)
	}
	if !outcome.Conquered {
		t.Fatal("Expected the accumulated attack to conquer")
	}
	if outcome.Control.ControllerID == nil || *outcome.Control.ControllerID != attacker {
		t.Errorf("Expected attacker %s in control, got %v", attacker, outcome.Control.ControllerID)
	}
	if outcome.Control.Units != 36 {
		t.Errorf("Expected 36 surviving units, got %d", outcome.Control.Units)
	}
	if outcome.Battle.Status != types.BattleResolved {
		t.Errorf("Expected battle resolved, got %s", outcome.Battle.Status)
	}

	history, _ := st.ConquestHistory(&territory.ID, 0)
	if len(history) != 2 {
		t.Fatalf("Expected two conquest records, got %d", len(history))
	}
	if history[0].PreviousController == nil || *history[0].PreviousController != defender {
		t.Errorf("Expected latest conquest from %s, got %v", defender, history[0].PreviousController)
	}
}

func TestDefendRepelsBattle(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	defender := uuid.New()
	conquer(t, engine, st, territory, defender, 10)

	attacker := uuid.New()
	attackerUser := uuid.New()
	attackActivity := seedActivity(t, st, attackerUser, &attacker, 20)
	if _, err := engine.ExecuteMove(MoveRequest{
		UserID: attackerUser, ActivityID: attackActivity.ID, Type: types.MoveAttack,
		ToTerritoryID: territory.ID, Units: 6, Km: 5,
	}); err != nil {
		t.Fatalf("Opening attack failed: %v", err)
	}

	defenderUser := uuid.New()
	defendActivity := seedActivity(t, st, defenderUser, &defender, 20)
	// 6 attackers against 20 total defenders: 6/26 = 23.08%, under the
	// recovery bar, so the battle closes for the defender.
	outcome, err := engine.ExecuteMove(MoveRequest{
		UserID: defenderUser, ActivityID: defendActivity.ID, Type: types.MoveDefend,
		ToTerritoryID: territory.ID, Units: 10, Km: 5,
	})
	if err != nil {
		t.Fatalf("Defend failed: %v", err)
	}
	if !outcome.Repelled {
		t.Error("Expected the defense to repel the attack")
	}
	if outcome.Control.IsUnderAttack {
		t.Error("Expected the under-attack flag cleared")
	}
	if outcome.Control.Units != 20 {
		t.Errorf("Expected 20 garrisoned units after defending, got %d", outcome.Control.Units)
	}
	if outcome.Battle.Status != types.BattleResolved {
		t.Errorf("Expected battle resolved, got %s", outcome.Battle.Status)
	}
	if !outcome.Move.TurnedTide {
		t.Error("Expected the repelling move flagged as tide-turning")
	}
	if outcome.Control.ControllerID == nil || *outcome.Control.ControllerID != defender {
		t.Errorf("Expected defender %s to keep control, got %v", defender, outcome.Control.ControllerID)
	}
}

func TestDefendRequiresOwnership(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	defender := uuid.New()
	conquer(t, engine, st, territory, defender, 10)

	other := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &other, 20)
	_, err := engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveDefend,
		ToTerritoryID: territory.ID, Units: 5, Km: 5,
	})
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error defending enemy territory, got %v", err)
	}
}

func TestRejectedMoveLeavesNoControlRow(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	team := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 20)

	_, err := engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveDefend,
		ToTerritoryID: territory.ID, Units: 5, Km: 5,
	})
	if !errs.IsValidation(err) {
		t.Fatalf("Expected validation error defending neutral territory, got %v", err)
	}
	if _, err := st.ControlByTerritory(territory.ID); !errs.IsNotFound(err) {
		t.Errorf("Expected no control row persisted for a rejected move, got %v", err)
	}
}

func TestReinforceTransfersUnits(t *testing.T) {
	engine, st := newTestConquest(t)
	src := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	dst := seedTerritory(t, st, "Bursa", types.ClassOrdinary)
	team := uuid.New()
	conquer(t, engine, st, src, team, 12)
	conquer(t, engine, st, dst, team, 4)

	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 20)
	outcome, err := engine.ExecuteMove(MoveRequest{
		UserID:          user,
		ActivityID:      activity.ID,
		Type:            types.MoveReinforce,
		FromTerritoryID: &src.ID,
		ToTerritoryID:   dst.ID,
		Units:           5,
		Km:              5,
	})
	if err != nil {
		t.Fatalf("Reinforce failed: %v", err)
	}
	if outcome.Control.Units != 9 {
		t.Errorf("Expected destination at 9 units, got %d", outcome.Control.Units)
	}

	srcControl, err := st.ControlByTerritory(src.ID)
	if err != nil {
		t.Fatalf("ControlByTerritory failed: %v", err)
	}
	if srcControl.Units != 7 {
		t.Errorf("Expected source at 7 units, got %d", srcControl.Units)
	}
}

func TestReinforceRequiresBothEndpoints(t *testing.T) {
	engine, st := newTestConquest(t)
	src := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	dst := seedTerritory(t, st, "Bursa", types.ClassOrdinary)
	team := uuid.New()
	enemy := uuid.New()
	conquer(t, engine, st, src, enemy, 12)
	conquer(t, engine, st, dst, team, 4)

	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 20)

	// Source held by the enemy.
	_, err := engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveReinforce,
		FromTerritoryID: &src.ID, ToTerritoryID: dst.ID, Units: 2, Km: 5,
	})
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error reinforcing from enemy territory, got %v", err)
	}

	// Missing source entirely.
	_, err = engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveReinforce,
		ToTerritoryID: dst.ID, Units: 2, Km: 5,
	})
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error without a source territory, got %v", err)
	}
}

func TestReinforceInsufficientUnits(t *testing.T) {
	engine, st := newTestConquest(t)
	src := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	dst := seedTerritory(t, st, "Bursa", types.ClassOrdinary)
	team := uuid.New()
	conquer(t, engine, st, src, team, 3)
	conquer(t, engine, st, dst, team, 4)

	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 20)
	_, err := engine.ExecuteMove(MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveReinforce,
		FromTerritoryID: &src.ID, ToTerritoryID: dst.ID, Units: 5, Km: 5,
	})
	if !errs.IsValidation(err) {
		t.Errorf("Expected validation error moving more units than garrisoned, got %v", err)
	}
}

func TestExecuteMoveValidation(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	team := uuid.New()
	user := uuid.New()
	activity := seedActivity(t, st, user, &team, 10)

	base := MoveRequest{
		UserID: user, ActivityID: activity.ID, Type: types.MoveAttack,
		ToTerritoryID: territory.ID, Units: 5, Km: 5,
	}

	bad := base
	bad.Type = "retreat"
	if _, err := engine.ExecuteMove(bad); !errs.IsValidation(err) {
		t.Errorf("Expected validation error for unknown move type, got %v", err)
	}

	bad = base
	bad.Units = 0
	if _, err := engine.ExecuteMove(bad); !errs.IsValidation(err) {
		t.Errorf("Expected validation error for zero units, got %v", err)
	}

	bad = base
	bad.Km = 15
	if _, err := engine.ExecuteMove(bad); !errs.IsValidation(err) {
		t.Errorf("Expected validation error for km beyond the activity, got %v", err)
	}

	bad = base
	bad.ActivityID = uuid.New()
	if _, err := engine.ExecuteMove(bad); !errs.IsNotFound(err) {
		t.Errorf("Expected not-found error for unknown activity, got %v", err)
	}

	bad = base
	bad.UserID = uuid.New()
	if _, err := engine.ExecuteMove(bad); !errs.IsNotFound(err) {
		t.Errorf("Expected not-found error for someone else's activity, got %v", err)
	}

	solo := seedActivity(t, st, user, nil, 10)
	bad = base
	bad.ActivityID = solo.ID
	if _, err := engine.ExecuteMove(bad); !errs.IsValidation(err) {
		t.Errorf("Expected validation error for a teamless mover, got %v", err)
	}
}

func TestPreviewAttackRecommendations(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)
	defender := uuid.New()
	conquer(t, engine, st, territory, defender, 10)

	cases := []struct {
		units   int
		success float64
		rec     types.Recommendation
	}{
		{20, 100, types.RecommendGo},
		{5, 50, types.RecommendRisky},
		{3, 30, types.RecommendAvoid},
	}
	for _, c := range cases {
		preview, err := engine.PreviewAttack(territory.ID, c.units)
		if err != nil {
			t.Fatalf("PreviewAttack(%d) failed: %v", c.units, err)
		}
		if preview.SuccessPct != c.success {
			t.Errorf("Expected %f%% success with %d units, got %f", c.success, c.units, preview.SuccessPct)
		}
		if preview.Recommendation != c.rec {
			t.Errorf("Expected %q with %d units, got %q", c.rec, c.units, preview.Recommendation)
		}
	}
}

func TestPreviewAttackNeutralTerritory(t *testing.T) {
	engine, st := newTestConquest(t)
	territory := seedTerritory(t, st, "Istanbul", types.ClassOrdinary)

	preview, err := engine.PreviewAttack(territory.ID, 1)
	if err != nil {
		t.Fatalf("PreviewAttack failed: %v", err)
	}
	if preview.SuccessPct != 100 || preview.Recommendation != types.RecommendGo {
		t.Errorf("Expected a sure thing against no garrison, got %f%% %q", preview.SuccessPct, preview.Recommendation)
	}
}

func TestClassAndConnectionDefenseBonuses(t *testing.T) {
	engine, st := newTestConquest(t)

	fortress := seedTerritory(t, st, "Munich", types.ClassFortress)
	neighborA := seedTerritory(t, st, "Berlin", types.ClassOrdinary)
	neighborB := seedTerritory(t, st, "Cologne", types.ClassOrdinary)
	fortress.Connected = []uuid.UUID{neighborA.ID, neighborB.ID}

	control := &models.TerritoryControl{TerritoryID: fortress.ID, Units: 10, DefenseBonus: 1.0}

	// 10 units x 1.75 fortress x 1.10 for two connections = 19.25.
	got := engine.effectiveDefense(fortress, control)
	if got < 19.24 || got > 19.26 {
		t.Errorf("Expected effective defense 19.25, got %f", got)
	}
}
