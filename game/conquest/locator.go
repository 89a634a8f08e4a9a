package conquest

import (
	"github.com/google/uuid"

	"terraconquest/game/hexgrid"
	"terraconquest/store"
	"terraconquest/types"
)

// Locator resolves which seeded territories contain a cell, by distance from
// each territory's center against its radius. Satisfies the ledger's locator
// contract.
type Locator struct {
	store store.Store
	grid  *hexgrid.Grid
}

func NewLocator(st store.Store, grid *hexgrid.Grid) *Locator {
	return &Locator{store: st, grid: grid}
}

// Locate picks, per aggregation level, the nearest territory whose radius
// covers the cell. A cell outside every territory keeps nil references.
func (l *Locator) Locate(cellIndex string) (city, region, country *uuid.UUID, err error) {
	lat, lng, err := l.grid.CellCenter(cellIndex)
	if err != nil {
		return nil, nil, nil, err
	}
	territories, err := l.store.AllTerritories()
	if err != nil {
		return nil, nil, nil, err
	}

	nearest := map[types.TerritoryType]*struct {
		id   uuid.UUID
		dist float64
	}{}
	for i := range territories {
		t := &territories[i]
		d := hexgrid.HaversineKm(lat, lng, t.CenterLat, t.CenterLng)
		if d > t.RadiusKm {
			continue
		}
		cur, ok := nearest[t.Type]
		if !ok || d < cur.dist {
			nearest[t.Type] = &struct {
				id   uuid.UUID
				dist float64
			}{t.ID, d}
		}
	}

	if n, ok := nearest[types.TerritoryCity]; ok {
		id := n.id
		city = &id
	}
	if n, ok := nearest[types.TerritoryRegion]; ok {
		id := n.id
		region = &id
	}
	if n, ok := nearest[types.TerritoryCountry]; ok {
		id := n.id
		country = &id
	}
	return city, region, country, nil
}
