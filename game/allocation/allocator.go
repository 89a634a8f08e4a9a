// Package allocation splits one activity's distance across the cells it
// touched, or across named competitions.
package allocation

import (
	"math"

	"github.com/google/uuid"

	"terraconquest/config"
	"terraconquest/errs"
	"terraconquest/game/hexgrid"
	"terraconquest/game/zonecontrol"
	"terraconquest/models"
	"terraconquest/store"
)

// Engine resolves an activity's cell set and feeds the ledger one
// contribution per cell.
type Engine struct {
	store  store.Store
	grid   *hexgrid.Grid
	ledger *zonecontrol.Ledger
	cfg    config.Settings
}

func New(st store.Store, grid *hexgrid.Grid, ledger *zonecontrol.Ledger, cfg config.Settings) *Engine {
	return &Engine{store: st, grid: grid, ledger: ledger, cfg: cfg}
}

// AffectedZone is the per-cell outcome of an allocation, ordered like the
// resolved cell set.
type AffectedZone struct {
	ZoneID           uuid.UUID  `json:"zone_id"`
	H3Index          string     `json:"h3_index"`
	DistanceKm       float64    `json:"distance_km"`
	PointsEarned     int        `json:"points_earned"`
	ControlChanged   bool       `json:"control_changed"`
	ControlledByTeam *uuid.UUID `json:"controlled_by_team,omitempty"`
	ControlledByUser *uuid.UUID `json:"controlled_by_user,omitempty"`
}

// Validate checks an activity before it is accepted for allocation, so bad
// submissions are rejected up front rather than mid-allocation.
func (e *Engine) Validate(activity *models.Activity) error {
	if activity.DistanceKm <= 0 {
		return errs.Validationf("activity distance must be positive, got %f", activity.DistanceKm)
	}
	if activity.DistanceKm > e.cfg.MaxActivityKm {
		return errs.Validationf("activity distance %f exceeds maximum %f", activity.DistanceKm, e.cfg.MaxActivityKm)
	}
	_, err := e.resolveCells(activity)
	return err
}

// AllocateActivity splits the activity's distance equally across its cells
// and records each share with the ledger. Each cell is an independent
// transaction; replaying the same activity yields the same derived control.
func (e *Engine) AllocateActivity(activity *models.Activity) ([]AffectedZone, error) {
	if activity.DistanceKm <= 0 {
		return nil, errs.Validationf("activity distance must be positive, got %f", activity.DistanceKm)
	}
	if activity.DistanceKm > e.cfg.MaxActivityKm {
		return nil, errs.Validationf("activity distance %f exceeds maximum %f", activity.DistanceKm, e.cfg.MaxActivityKm)
	}

	cells, err := e.resolveCells(activity)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		// Base points only; no zone is touched.
		return nil, nil
	}

	kmPerCell := activity.DistanceKm / float64(len(cells))

	affected := make([]AffectedZone, 0, len(cells))
	for _, cell := range cells {
		points := e.cellPoints(kmPerCell, e.zoneBonus(cell), activity)

		res, err := e.ledger.RecordContribution(zonecontrol.Contribution{
			CellIndex:  cell,
			ActivityID: activity.ID,
			UserID:     activity.UserID,
			TeamID:     activity.TeamID,
			DistanceKm: kmPerCell,
			Points:     points,
			RecordedAt: activity.RecordedAt,
		})
		if err != nil {
			return affected, err
		}
		affected = append(affected, AffectedZone{
			ZoneID:           res.Zone.ID,
			H3Index:          res.Zone.H3Index,
			DistanceKm:       kmPerCell,
			PointsEarned:     points,
			ControlChanged:   res.ControlChanged,
			ControlledByTeam: res.Zone.ControlledByTeam,
			ControlledByUser: res.Zone.ControlledByUser,
		})
	}
	return affected, nil
}

// resolveCells applies the precedence order: assigned cells for gym
// activities, then the decoded route, then the start coordinate.
func (e *Engine) resolveCells(activity *models.Activity) ([]string, error) {
	if activity.IsGymActivity {
		if len(activity.AssignedZones) == 0 {
			return nil, errs.Validationf("gym activity requires assigned zones")
		}
		seen := make(map[string]struct{}, len(activity.AssignedZones))
		cells := make([]string, 0, len(activity.AssignedZones))
		for _, index := range activity.AssignedZones {
			if !e.grid.IsValid(index) {
				return nil, errs.Validationf("invalid assigned zone index %q", index)
			}
			if _, ok := seen[index]; ok {
				continue
			}
			seen[index] = struct{}{}
			cells = append(cells, index)
		}
		return cells, nil
	}
	if len(activity.AssignedZones) > 0 {
		return nil, errs.Validationf("assigned zones are only valid for gym activities")
	}

	if activity.Polyline != nil && *activity.Polyline != "" {
		return e.grid.DecodePath(*activity.Polyline)
	}

	if activity.StartLat != nil && activity.StartLng != nil {
		cell, err := e.grid.CellFromLatLng(*activity.StartLat, *activity.StartLng)
		if err != nil {
			return nil, err
		}
		return []string{cell}, nil
	}

	return nil, nil
}

func (e *Engine) zoneBonus(cell string) float64 {
	zone, err := e.store.ZoneByIndex(cell)
	if err != nil {
		// Zone not created yet; new zones start at the base multiplier.
		return 1.0
	}
	return zone.BonusMultiplier
}

func (e *Engine) cellPoints(kmPerCell, bonus float64, activity *models.Activity) int {
	points := kmPerCell * float64(e.cfg.PointsPerKm) * bonus
	if activity.TeamID != nil {
		points *= e.cfg.TeamBonus
	}
	if activity.IsGymActivity {
		points *= e.cfg.GymMultiplier
	}
	return int(points)
}

// CompetitionRequest asks for part of an activity's distance to count toward
// one competition.
type CompetitionRequest struct {
	CompetitionID uuid.UUID `json:"competition_id"`
	Km            float64   `json:"allocated_km"`
	Percentage    *float64  `json:"allocated_percentage,omitempty"`
}

// CompetitionResult is the accepted share for one competition.
type CompetitionResult struct {
	CompetitionID uuid.UUID `json:"competition_id"`
	Name          string    `json:"competition_name"`
	AllocatedKm   float64   `json:"allocated_km"`
	Percentage    float64   `json:"percentage"`
	PointsEarned  int       `json:"points_earned"`
}

// CompetitionOutcome summarizes a competition split.
type CompetitionOutcome struct {
	TotalAllocated float64             `json:"total_allocated"`
	RemainingKm    float64             `json:"remaining_km"`
	Allocations    []CompetitionResult `json:"allocations"`
}

// AllocateCompetitions splits the activity's distance across competitions.
// Validation runs before any write, so an over-allocated request leaves no
// partial side effects. Zone state is never touched on this path.
func (e *Engine) AllocateCompetitions(activity *models.Activity, reqs []CompetitionRequest) (*CompetitionOutcome, error) {
	total := 0.0
	for _, r := range reqs {
		if r.Km <= 0 {
			return nil, errs.Validationf("allocated km must be positive, got %f", r.Km)
		}
		total += r.Km
	}
	const eps = 1e-9
	if total > activity.DistanceKm+eps {
		return nil, errs.OverAllocationf("cannot allocate %fkm from %fkm activity", total, activity.DistanceKm)
	}

	// Resolve all competitions up front; an unknown id fails the whole
	// request, an inactive one is skipped like any closed leaderboard.
	comps := make([]*models.Competition, len(reqs))
	for i, r := range reqs {
		comp, err := e.store.CompetitionByID(r.CompetitionID)
		if err != nil {
			return nil, err
		}
		comps[i] = comp
	}

	out := &CompetitionOutcome{TotalAllocated: total, RemainingKm: activity.DistanceKm - total}
	for i, r := range reqs {
		if comps[i].Status != models.CompetitionActive {
			continue
		}
		pct := r.Km / activity.DistanceKm * 100
		if r.Percentage != nil {
			pct = *r.Percentage
		}
		pct = math.Round(pct*100) / 100
		points := int(r.Km * float64(e.cfg.PointsPerKm))

		if err := e.store.CreateCompetitionAllocation(&models.CompetitionAllocation{
			ActivityID:          activity.ID,
			CompetitionID:       r.CompetitionID,
			AllocatedKm:         r.Km,
			AllocatedPercentage: pct,
			PointsEarned:        points,
		}); err != nil {
			return nil, err
		}
		out.Allocations = append(out.Allocations, CompetitionResult{
			CompetitionID: r.CompetitionID,
			Name:          comps[i].Name,
			AllocatedKm:   r.Km,
			Percentage:    pct,
			PointsEarned:  points,
		})
	}
	return out, nil
}

// BasePoints is the activity-level score before any zone split.
func (e *Engine) BasePoints(activity *models.Activity) int {
	points := activity.DistanceKm * float64(e.cfg.PointsPerKm)
	if activity.IsGymActivity {
		points *= e.cfg.GymMultiplier
	}
	if activity.TeamID != nil {
		points *= e.cfg.TeamBonus
	}
	return int(points)
}
