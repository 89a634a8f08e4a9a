package types

// TerritoryType is the aggregation level of a territory.
type TerritoryType string

const (
	TerritoryCity    TerritoryType = "city"
	TerritoryRegion  TerritoryType = "region"
	TerritoryCountry TerritoryType = "country"
	TerritoryGlobal  TerritoryType = "global"
)

func (t TerritoryType) Valid() bool {
	switch t {
	case TerritoryCity, TerritoryRegion, TerritoryCountry, TerritoryGlobal:
		return true
	}
	return false
}

// TerritoryClass is the strategic classification of a territory.
type TerritoryClass string

const (
	ClassOrdinary  TerritoryClass = "ordinary"
	ClassCapital   TerritoryClass = "capital"
	ClassFortress  TerritoryClass = "fortress"
	ClassStrategic TerritoryClass = "strategic_point"
)
