// Package zonecontrol maintains the per-cell view of who is moving where and
// derives zone control from it.
package zonecontrol

import (
	"math"
	"time"

	"github.com/google/uuid"

	"terraconquest/config"
	"terraconquest/errs"
	"terraconquest/game/hexgrid"
	"terraconquest/game/lock"
	"terraconquest/models"
	"terraconquest/store"
	"terraconquest/types"
)

// Locator resolves which territories contain a cell. Zone creation is the
// only caller; zones keep the references for their lifetime.
type Locator interface {
	Locate(cellIndex string) (city, region, country *uuid.UUID, err error)
}

// EventSink receives feed frames. Optional.
type EventSink interface {
	Publish(types.Event)
}

// Ledger owns all ZoneState mutation. Every write to one zone runs under
// that zone's lock; different zones never serialize against each other.
type Ledger struct {
	store   store.Store
	grid    *hexgrid.Grid
	locks   *lock.Map
	cfg     config.Settings
	locator Locator
	events  EventSink
	now     func() time.Time
}

func New(st store.Store, grid *hexgrid.Grid, cfg config.Settings) *Ledger {
	return &Ledger{
		store: st,
		grid:  grid,
		locks: lock.NewMap(cfg.LockAttempts, cfg.LockBackoff),
		cfg:   cfg,
		now:   time.Now,
	}
}

func (l *Ledger) SetLocator(loc Locator) { l.locator = loc }
func (l *Ledger) SetEvents(sink EventSink) { l.events = sink }

// Contribution is one cell's share of one activity.
type Contribution struct {
	CellIndex  string
	ActivityID uuid.UUID
	UserID     uuid.UUID
	TeamID     *uuid.UUID
	DistanceKm float64
	Points     int
	RecordedAt time.Time
}

// Result is the zone state after a contribution was applied.
type Result struct {
	Zone           models.Zone
	ControlChanged bool
}

// RecordContribution appends the contribution to the zone's window, bumps
// lifetime totals, and recalculates control before returning.
func (l *Ledger) RecordContribution(c Contribution) (*Result, error) {
	if c.DistanceKm <= 0 {
		return nil, errs.Validationf("contribution distance must be positive, got %f", c.DistanceKm)
	}

	release, err := l.locks.Acquire("zone:" + c.CellIndex)
	if err != nil {
		return nil, err
	}
	defer release()

	zone, err := l.getOrCreateZone(c.CellIndex)
	if err != nil {
		return nil, err
	}

	za := &models.ZoneActivity{
		ZoneID:       zone.ID,
		ActivityID:   c.ActivityID,
		UserID:       c.UserID,
		TeamID:       c.TeamID,
		DistanceKm:   c.DistanceKm,
		PointsEarned: c.Points,
		RecordedAt:   c.RecordedAt,
	}
	if err := l.store.CreateZoneActivity(za); err != nil {
		return nil, err
	}
	// Lifetime totals are unconditional; the control window below is a
	// filter, not a purge.
	if err := l.store.AddZoneTotals(zone.ID, c.DistanceKm, 1); err != nil {
		return nil, err
	}
	zone.TotalKm += c.DistanceKm
	zone.TotalActivities++

	changed, err := l.recalculate(zone)
	if err != nil {
		return nil, err
	}
	return &Result{Zone: *zone, ControlChanged: changed}, nil
}

// Recalculate re-derives control for a zone with no new contribution.
// Deterministic: with an unchanged window it reports no change.
func (l *Ledger) Recalculate(cellIndex string) (*Result, error) {
	release, err := l.locks.Acquire("zone:" + cellIndex)
	if err != nil {
		return nil, err
	}
	defer release()

	zone, err := l.store.ZoneByIndex(cellIndex)
	if err != nil {
		return nil, err
	}
	changed, err := l.recalculate(zone)
	if err != nil {
		return nil, err
	}
	return &Result{Zone: *zone, ControlChanged: changed}, nil
}

func (l *Ledger) getOrCreateZone(cellIndex string) (*models.Zone, error) {
	zone, err := l.store.ZoneByIndex(cellIndex)
	if err == nil {
		return zone, nil
	}
	if !errs.IsNotFound(err) {
		return nil, err
	}

	lat, lng, err := l.grid.CellCenter(cellIndex)
	if err != nil {
		return nil, err
	}
	zone = &models.Zone{
		H3Index:         cellIndex,
		CenterLat:       lat,
		CenterLng:       lng,
		BonusMultiplier: 1.0,
	}
	if l.locator != nil {
		city, region, country, err := l.locator.Locate(cellIndex)
		if err != nil {
			return nil, err
		}
		zone.CityID, zone.RegionID, zone.CountryID = city, region, country
	}
	if err := l.store.CreateZone(zone); err != nil {
		return nil, err
	}
	return zone, nil
}

// recalculate derives the controller from the rolling window. Caller holds
// the zone lock.
func (l *Ledger) recalculate(zone *models.Zone) (bool, error) {
	since := l.now().AddDate(0, 0, -l.cfg.WindowDays)
	contribs, err := l.store.ZoneContributions(zone.ID, since)
	if err != nil {
		return false, err
	}

	teamKm := make(map[uuid.UUID]float64)
	userKm := make(map[uuid.UUID]float64)
	userTeam := make(map[uuid.UUID]uuid.UUID)
	for _, c := range contribs {
		userKm[c.UserID] += c.DistanceKm
		if c.TeamID != nil {
			teamKm[*c.TeamID] += c.DistanceKm
			userTeam[c.UserID] = *c.TeamID
		}
	}
	if len(teamKm) == 0 {
		return false, nil
	}

	candidate, raw := pickCandidate(teamKm)
	total := 0.0
	for _, km := range teamKm {
		total += km
	}
	if total == 0 {
		return false, nil
	}

	// Incumbents are harder to displace than the raw numbers suggest.
	effective := raw
	if zone.ControlledByTeam != nil && *zone.ControlledByTeam == candidate {
		effective *= l.cfg.DefenseMultiplier
	}
	pct := math.Min(100, effective/total*100)

	if pct < l.cfg.ControlSharePct || raw < l.cfg.ControlThresholdKm {
		return false, nil
	}

	prev := zone.ControlledByTeam
	changed := prev == nil || *prev != candidate

	topUser := topContributor(userKm, userTeam, candidate)
	team := candidate
	zone.ControlledByTeam = &team
	zone.ControlledByUser = topUser
	zone.ControlPercentage = math.Round(pct*100) / 100

	if err := l.store.SaveZoneControl(zone.ID, zone.ControlledByTeam, zone.ControlledByUser, zone.ControlPercentage); err != nil {
		return false, err
	}
	if changed {
		change := &models.ZoneControlChange{
			ZoneID:       zone.ID,
			PreviousTeam: prev,
			NewTeam:      candidate,
		}
		if err := l.store.CreateControlChange(change); err != nil {
			return false, err
		}
		if l.events != nil {
			l.events.Publish(types.Event{
				Type: types.EventControlChanged,
				At:   l.now(),
				Payload: map[string]interface{}{
					"zone_id":            zone.ID,
					"h3_index":           zone.H3Index,
					"previous_team":      prev,
					"new_team":           candidate,
					"control_percentage": zone.ControlPercentage,
				},
			})
		}
	}
	return changed, nil
}

// pickCandidate returns the team with the most windowed distance. Ties break
// toward the lexicographically smallest team id so recalculation is stable.
func pickCandidate(teamKm map[uuid.UUID]float64) (uuid.UUID, float64) {
	var best uuid.UUID
	bestKm := -1.0
	for team, km := range teamKm {
		if km > bestKm || (km == bestKm && team.String() < best.String()) {
			best = team
			bestKm = km
		}
	}
	return best, bestKm
}

// topContributor picks the strongest individual within the winning team.
func topContributor(userKm map[uuid.UUID]float64, userTeam map[uuid.UUID]uuid.UUID, team uuid.UUID) *uuid.UUID {
	var best *uuid.UUID
	bestKm := -1.0
	for user, km := range userKm {
		if userTeam[user] != team {
			continue
		}
		if km > bestKm || (km == bestKm && best != nil && user.String() < best.String()) {
			u := user
			best = &u
			bestKm = km
		}
	}
	return best
}

// ZonesInArea returns the stored zones within a radius of a coordinate.
func (l *Ledger) ZonesInArea(centerLat, centerLng, radiusKm float64) ([]models.Zone, error) {
	indexes, err := l.grid.CellsInRadius(centerLat, centerLng, radiusKm)
	if err != nil {
		return nil, err
	}
	return l.store.ZonesByIndexes(indexes)
}

// AreaStats summarizes the grid coverage of an area.
func (l *Ledger) AreaStats(centerLat, centerLng, radiusKm float64) (hexgrid.AreaStats, error) {
	indexes, err := l.grid.CellsInRadius(centerLat, centerLng, radiusKm)
	if err != nil {
		return hexgrid.AreaStats{}, err
	}
	return l.grid.Stats(indexes)
}
