package allocation

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-polyline"

	"terraconquest/config"
	"terraconquest/errs"
	"terraconquest/game/hexgrid"
	"terraconquest/game/zonecontrol"
	"terraconquest/models"
	"terraconquest/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Memory, *hexgrid.Grid) {
	t.Helper()
	cfg := config.Default()
	st := store.NewMemory()
	grid := hexgrid.New(cfg.H3Resolution)
	ledger := zonecontrol.New(st, grid, cfg)
	return New(st, grid, ledger, cfg), st, grid
}

func testActivity(km float64) *models.Activity {
	return &models.Activity{
		Model:      models.Model{ID: uuid.New()},
		UserID:     uuid.New(),
		DistanceKm: km,
		RecordedAt: time.Now().UTC(),
	}
}

func TestAllocateSplitsDistanceAcrossRoute(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	// Two points far enough apart to land in two cells.
	route := string(polyline.EncodeCoords([][]float64{
		{41.0082, 28.9784},
		{41.0500, 29.0200},
	}))
	activity := testActivity(10)
	activity.Polyline = &route

	affected, err := engine.AllocateActivity(activity)
	if err != nil {
		t.Fatalf("AllocateActivity failed: %v", err)
	}
	if len(affected) != 2 {
		t.Fatalf("Expected 2 affected zones, got %d", len(affected))
	}

	total := 0.0
	for _, z := range affected {
		total += z.DistanceKm
		if z.DistanceKm != 5 {
			t.Errorf("Expected 5 km per cell, got %f", z.DistanceKm)
		}
		// 5 km x 10 points/km, no team or gym modifier.
		if z.PointsEarned != 50 {
			t.Errorf("Expected 50 points per cell, got %d", z.PointsEarned)
		}
	}
	if math.Abs(total-activity.DistanceKm) > 1e-9 {
		t.Errorf("Expected allocated distance to sum to %f, got %f", activity.DistanceKm, total)
	}
}

func TestAllocateStartCoordinateFallback(t *testing.T) {
	engine, _, grid := newTestEngine(t)

	lat, lng := 41.0082, 28.9784
	activity := testActivity(4)
	activity.StartLat = &lat
	activity.StartLng = &lng

	affected, err := engine.AllocateActivity(activity)
	if err != nil {
		t.Fatalf("AllocateActivity failed: %v", err)
	}
	if len(affected) != 1 {
		t.Fatalf("Expected a single zone for a start-only activity, got %d", len(affected))
	}
	want, _ := grid.CellFromLatLng(lat, lng)
	if affected[0].H3Index != want {
		t.Errorf("Expected zone %s, got %s", want, affected[0].H3Index)
	}
	if affected[0].DistanceKm != 4 {
		t.Errorf("Expected the full 4 km in the single zone, got %f", affected[0].DistanceKm)
	}
}

func TestAllocateNoRouteTouchesNothing(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	affected, err := engine.AllocateActivity(testActivity(5))
	if err != nil {
		t.Fatalf("AllocateActivity failed: %v", err)
	}
	if affected != nil {
		t.Errorf("Expected no affected zones without a route, got %d", len(affected))
	}
}

func TestGymActivityUsesAssignedZones(t *testing.T) {
	engine, _, grid := newTestEngine(t)

	cellA, _ := grid.CellFromLatLng(41.0082, 28.9784)
	cellB, _ := grid.CellFromLatLng(41.0500, 29.0200)
	team := uuid.New()

	activity := testActivity(10)
	activity.TeamID = &team
	activity.IsGymActivity = true
	activity.AssignedZones = []string{cellA, cellB, cellA} // duplicate collapses

	affected, err := engine.AllocateActivity(activity)
	if err != nil {
		t.Fatalf("AllocateActivity failed: %v", err)
	}
	if len(affected) != 2 {
		t.Fatalf("Expected 2 zones after dedup, got %d", len(affected))
	}
	for _, z := range affected {
		// 5 km x 10 points/km x 1.1 team x 0.8 gym = 44.
		if z.PointsEarned != 44 {
			t.Errorf("Expected 44 points per gym cell, got %d", z.PointsEarned)
		}
	}
}

func TestGymActivityRequiresAssignedZones(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	activity := testActivity(5)
	activity.IsGymActivity = true

	if _, err := engine.AllocateActivity(activity); !errs.IsValidation(err) {
		t.Errorf("Expected validation error for gym activity without zones, got %v", err)
	}
}

func TestAssignedZonesOnlyValidForGym(t *testing.T) {
	engine, _, grid := newTestEngine(t)

	cell, _ := grid.CellFromLatLng(41.0082, 28.9784)
	activity := testActivity(5)
	activity.AssignedZones = []string{cell}

	if _, err := engine.AllocateActivity(activity); !errs.IsValidation(err) {
		t.Errorf("Expected validation error for assigned zones on outdoor activity, got %v", err)
	}
}

func TestAllocateRejectsDistanceOutOfBounds(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if _, err := engine.AllocateActivity(testActivity(0)); !errs.IsValidation(err) {
		t.Errorf("Expected validation error for zero distance, got %v", err)
	}
	if _, err := engine.AllocateActivity(testActivity(501)); !errs.IsValidation(err) {
		t.Errorf("Expected validation error above the distance cap, got %v", err)
	}
}

func TestAllocateCompetitionsSplitsDistance(t *testing.T) {
	engine, st, _ := newTestEngine(t)

	comp := &models.Competition{Name: "Season One", Status: models.CompetitionActive}
	if err := st.CreateCompetition(comp); err != nil {
		t.Fatalf("CreateCompetition failed: %v", err)
	}
	other := &models.Competition{Name: "City Cup", Status: models.CompetitionActive}
	if err := st.CreateCompetition(other); err != nil {
		t.Fatalf("CreateCompetition failed: %v", err)
	}

	activity := testActivity(10)
	outcome, err := engine.AllocateCompetitions(activity, []CompetitionRequest{
		{CompetitionID: comp.ID, Km: 6},
		{CompetitionID: other.ID, Km: 4},
	})
	if err != nil {
		t.Fatalf("AllocateCompetitions failed: %v", err)
	}
	if outcome.TotalAllocated != 10 || outcome.RemainingKm != 0 {
		t.Errorf("Expected (10 allocated, 0 remaining), got (%f, %f)", outcome.TotalAllocated, outcome.RemainingKm)
	}
	if len(outcome.Allocations) != 2 {
		t.Fatalf("Expected 2 allocations, got %d", len(outcome.Allocations))
	}
	first := outcome.Allocations[0]
	if first.Percentage != 60 || first.PointsEarned != 60 {
		t.Errorf("Expected 60%% and 60 points for the 6 km share, got %f%% and %d", first.Percentage, first.PointsEarned)
	}
	if len(st.Allocations(activity.ID)) != 2 {
		t.Error("Expected both allocations persisted")
	}
}

func TestOverAllocationLeavesNoPartialWrites(t *testing.T) {
	engine, st, _ := newTestEngine(t)

	comp := &models.Competition{Name: "Season One", Status: models.CompetitionActive}
	if err := st.CreateCompetition(comp); err != nil {
		t.Fatalf("CreateCompetition failed: %v", err)
	}

	activity := testActivity(10)
	_, err := engine.AllocateCompetitions(activity, []CompetitionRequest{
		{CompetitionID: comp.ID, Km: 8},
		{CompetitionID: comp.ID, Km: 5},
	})
	if !errs.IsOverAllocation(err) {
		t.Fatalf("Expected over-allocation error, got %v", err)
	}
	if len(st.Allocations(activity.ID)) != 0 {
		t.Error("Expected no allocations persisted after rejection")
	}
}

func TestUnknownCompetitionFailsWholeRequest(t *testing.T) {
	engine, st, _ := newTestEngine(t)

	comp := &models.Competition{Name: "Season One", Status: models.CompetitionActive}
	if err := st.CreateCompetition(comp); err != nil {
		t.Fatalf("CreateCompetition failed: %v", err)
	}

	activity := testActivity(10)
	_, err := engine.AllocateCompetitions(activity, []CompetitionRequest{
		{CompetitionID: comp.ID, Km: 3},
		{CompetitionID: uuid.New(), Km: 3},
	})
	if !errs.IsNotFound(err) {
		t.Fatalf("Expected not-found error for unknown competition, got %v", err)
	}
	if len(st.Allocations(activity.ID)) != 0 {
		t.Error("Expected no allocations persisted when one id is unknown")
	}
}

func TestInactiveCompetitionSkipped(t *testing.T) {
	engine, st, _ := newTestEngine(t)

	closed := &models.Competition{Name: "Last Season", Status: "finished"}
	if err := st.CreateCompetition(closed); err != nil {
		t.Fatalf("CreateCompetition failed: %v", err)
	}

	activity := testActivity(10)
	outcome, err := engine.AllocateCompetitions(activity, []CompetitionRequest{
		{CompetitionID: closed.ID, Km: 5},
	})
	if err != nil {
		t.Fatalf("AllocateCompetitions failed: %v", err)
	}
	if len(outcome.Allocations) != 0 {
		t.Errorf("Expected the closed competition skipped, got %d allocations", len(outcome.Allocations))
	}
	if len(st.Allocations(activity.ID)) != 0 {
		t.Error("Expected nothing persisted for a closed competition")
	}
}

func TestBasePoints(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	team := uuid.New()

	activity := testActivity(10)
	if got := engine.BasePoints(activity); got != 100 {
		t.Errorf("Expected 100 base points for 10 km, got %d", got)
	}

	activity.TeamID = &team
	activity.IsGymActivity = true
	// 10 x 10 x 0.8 gym x 1.1 team = 88.
	if got := engine.BasePoints(activity); got != 88 {
		t.Errorf("Expected 88 points with gym and team modifiers, got %d", got)
	}
}
