// Package hexgrid maps geographic coordinates and encoded routes onto the
// hexagonal grid every zone is keyed by. All operations are pure grid
// geometry; nothing here touches storage.
package hexgrid

import (
	"math"

	"github.com/twpayne/go-polyline"
	h3 "github.com/uber/h3-go/v4"

	"terraconquest/errs"
)

const earthRadiusKm = 6371.0

// MaxRadiusKm bounds area queries. The grid disk grows quadratically with the
// radius, so an unbounded radius lets one request materialize an arbitrarily
// large disk.
const MaxRadiusKm = 50.0

// Grid is a spatial index at a fixed resolution.
type Grid struct {
	resolution int
}

func New(resolution int) *Grid {
	return &Grid{resolution: resolution}
}

func (g *Grid) Resolution() int { return g.resolution }

// CellFromLatLng maps a coordinate to its cell index at the grid resolution.
func (g *Grid) CellFromLatLng(lat, lng float64) (string, error) {
	if err := validateCoordinate(lat, lng); err != nil {
		return "", err
	}
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lng), g.resolution)
	return cell.String(), nil
}

// CellCenter returns the center coordinate of a cell.
func (g *Grid) CellCenter(index string) (float64, float64, error) {
	cell, err := parseCell(index)
	if err != nil {
		return 0, 0, err
	}
	ll := h3.CellToLatLng(cell)
	return ll.Lat, ll.Lng, nil
}

// CellBoundary returns the cell's vertices as a closed ring: the first
// vertex is repeated at the end. Hexagons yield 7 points, pentagons fewer.
func (g *Grid) CellBoundary(index string) ([][2]float64, error) {
	cell, err := parseCell(index)
	if err != nil {
		return nil, err
	}
	boundary := h3.CellToBoundary(cell)
	ring := make([][2]float64, 0, len(boundary)+1)
	for _, v := range boundary {
		ring = append(ring, [2]float64{v.Lat, v.Lng})
	}
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// DecodePath decodes an encoded polyline and returns the distinct cells it
// touches, in first-touch order. An empty input yields an empty set; a
// malformed input fails rather than silently truncating.
func (g *Grid) DecodePath(encoded string) ([]string, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errs.Decodef(err, "malformed route polyline")
	}

	seen := make(map[string]struct{}, len(coords))
	cells := make([]string, 0, len(coords))
	for _, c := range coords {
		index, err := g.CellFromLatLng(c[0], c[1])
		if err != nil {
			return nil, errs.Decodef(err, "route point out of range")
		}
		if _, ok := seen[index]; ok {
			continue
		}
		seen[index] = struct{}{}
		cells = append(cells, index)
	}
	return cells, nil
}

// Neighbors returns all cells within k grid steps, the center included.
func (g *Grid) Neighbors(index string, k int) ([]string, error) {
	cell, err := parseCell(index)
	if err != nil {
		return nil, err
	}
	if k < 0 {
		return nil, errs.Validationf("neighbor ring size must be >= 0, got %d", k)
	}
	disk := h3.GridDisk(cell, k)
	out := make([]string, 0, len(disk))
	for _, c := range disk {
		out = append(out, c.String())
	}
	return out, nil
}

// CellsInRadius returns the cells covering a disk around a coordinate. The
// ring count is estimated from the cell area so the disk always covers the
// requested radius, then trimmed; over-coverage is acceptable.
func (g *Grid) CellsInRadius(centerLat, centerLng, radiusKm float64) ([]string, error) {
	if err := validateCoordinate(centerLat, centerLng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		return nil, errs.Validationf("radius must be positive, got %f", radiusKm)
	}
	if radiusKm > MaxRadiusKm {
		return nil, errs.Validationf("radius must be at most %.0f km, got %f", MaxRadiusKm, radiusKm)
	}

	center := h3.LatLngToCell(h3.NewLatLng(centerLat, centerLng), g.resolution)
	area := h3.CellAreaKm2(center)
	// Ring count scales with radius over cell width, so the disk size stays
	// quadratic in the radius rather than quartic.
	edgeKm := math.Sqrt(area)
	rings := int(math.Ceil(radiusKm/edgeKm)) + 1

	// Trim the disk: a cell stays if its center lies within the radius plus
	// roughly one cell width, so edge cells are never dropped.
	out := make([]string, 0)
	for _, c := range h3.GridDisk(center, rings) {
		ll := h3.CellToLatLng(c)
		if HaversineKm(centerLat, centerLng, ll.Lat, ll.Lng) <= radiusKm+edgeKm {
			out = append(out, c.String())
		}
	}
	return out, nil
}

// GridDistance returns the number of grid steps between two cells.
func (g *Grid) GridDistance(a, b string) (int, error) {
	ca, err := parseCell(a)
	if err != nil {
		return 0, err
	}
	cb, err := parseCell(b)
	if err != nil {
		return 0, err
	}
	return h3.GridDistance(ca, cb), nil
}

// IsValid reports whether the index names a real cell.
func (g *Grid) IsValid(index string) bool {
	return h3.Cell(h3.IndexFromString(index)).IsValid()
}

// CellArea returns the cell's area in km2.
func (g *Grid) CellArea(index string) (float64, error) {
	cell, err := parseCell(index)
	if err != nil {
		return 0, err
	}
	return h3.CellAreaKm2(cell), nil
}

// AreaStats summarizes a collection of cells.
type AreaStats struct {
	TotalZones  int     `json:"total_zones"`
	TotalAreaKm float64 `json:"total_area_km2"`
	Resolution  int     `json:"resolution"`
}

func (g *Grid) Stats(indexes []string) (AreaStats, error) {
	stats := AreaStats{Resolution: g.resolution}
	for _, index := range indexes {
		area, err := g.CellArea(index)
		if err != nil {
			return AreaStats{}, err
		}
		stats.TotalZones++
		stats.TotalAreaKm += area
	}
	return stats, nil
}

func parseCell(index string) (h3.Cell, error) {
	cell := h3.Cell(h3.IndexFromString(index))
	if !cell.IsValid() {
		return 0, errs.Validationf("invalid cell index %q", index)
	}
	return cell, nil
}

func validateCoordinate(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return errs.Validationf("coordinate out of range: lat=%f lng=%f", lat, lng)
	}
	return nil
}

// HaversineKm is the great-circle distance between two coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
