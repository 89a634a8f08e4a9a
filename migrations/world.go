package migrations

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"terraconquest/models"
	"terraconquest/types"
)

// WorldSeeder builds the static territory hierarchy. Territories start
// neutral; control rows are created lazily by the conquest engine.
type WorldSeeder struct{}

type citySeed struct {
	Name       string
	Class      types.TerritoryClass
	Lat, Lng   float64
	RadiusKm   float64
	Production int
}

type regionSeed struct {
	Name     string
	Lat, Lng float64
	RadiusKm float64
	Cities   []citySeed
}

type countrySeed struct {
	Name     string
	Lat, Lng float64
	RadiusKm float64
	Regions  []regionSeed
}

var worldSeed = []countrySeed{
	{
		Name: "Türkiye", Lat: 39.0, Lng: 35.0, RadiusKm: 800,
		Regions: []regionSeed{
			{
				Name: "Marmara", Lat: 40.8, Lng: 28.8, RadiusKm: 200,
				Cities: []citySeed{
					{Name: "Istanbul", Class: types.ClassStrategic, Lat: 41.0082, Lng: 28.9784, RadiusKm: 40, Production: 5},
					{Name: "Bursa", Class: types.ClassOrdinary, Lat: 40.1885, Lng: 29.0610, RadiusKm: 25, Production: 2},
				},
			},
			{
				Name: "Central Anatolia", Lat: 39.0, Lng: 33.5, RadiusKm: 300,
				Cities: []citySeed{
					{Name: "Ankara", Class: types.ClassCapital, Lat: 39.9334, Lng: 32.8597, RadiusKm: 35, Production: 4},
				},
			},
			{
				Name: "Aegean", Lat: 38.5, Lng: 27.5, RadiusKm: 200,
				Cities: []citySeed{
					{Name: "Izmir", Class: types.ClassOrdinary, Lat: 38.4237, Lng: 27.1428, RadiusKm: 30, Production: 3},
				},
			},
		},
	},
	{
		Name: "Germany", Lat: 51.0, Lng: 10.0, RadiusKm: 600,
		Regions: []regionSeed{
			{
				Name: "Berlin-Brandenburg", Lat: 52.4, Lng: 13.3, RadiusKm: 120,
				Cities: []citySeed{
					{Name: "Berlin", Class: types.ClassCapital, Lat: 52.5200, Lng: 13.4050, RadiusKm: 30, Production: 4},
				},
			},
			{
				Name: "Bavaria", Lat: 48.9, Lng: 11.5, RadiusKm: 200,
				Cities: []citySeed{
					{Name: "Munich", Class: types.ClassFortress, Lat: 48.1351, Lng: 11.5820, RadiusKm: 25, Production: 3},
					{Name: "Nuremberg", Class: types.ClassOrdinary, Lat: 49.4521, Lng: 11.0767, RadiusKm: 20, Production: 2},
				},
			},
			{
				Name: "Rhineland", Lat: 50.9, Lng: 6.9, RadiusKm: 150,
				Cities: []citySeed{
					{Name: "Cologne", Class: types.ClassOrdinary, Lat: 50.9375, Lng: 6.9603, RadiusKm: 25, Production: 2},
				},
			},
		},
	},
	{
		Name: "France", Lat: 46.6, Lng: 2.5, RadiusKm: 600,
		Regions: []regionSeed{
			{
				Name: "Île-de-France", Lat: 48.8, Lng: 2.4, RadiusKm: 100,
				Cities: []citySeed{
					{Name: "Paris", Class: types.ClassCapital, Lat: 48.8566, Lng: 2.3522, RadiusKm: 35, Production: 5},
				},
			},
			{
				Name: "Provence", Lat: 43.6, Lng: 5.5, RadiusKm: 150,
				Cities: []citySeed{
					{Name: "Marseille", Class: types.ClassStrategic, Lat: 43.2965, Lng: 5.3698, RadiusKm: 25, Production: 3},
				},
			},
			{
				Name: "Rhône-Alpes", Lat: 45.5, Lng: 4.8, RadiusKm: 150,
				Cities: []citySeed{
					{Name: "Lyon", Class: types.ClassFortress, Lat: 45.7640, Lng: 4.8357, RadiusKm: 25, Production: 3},
				},
			},
		},
	},
}

// connectionSeed lists adjacency pairs by name. Connections are symmetric.
var connectionSeed = [][2]string{
	{"Türkiye", "Germany"},
	{"Germany", "France"},
	{"Istanbul", "Bursa"},
	{"Istanbul", "Ankara"},
	{"Ankara", "Izmir"},
	{"Berlin", "Munich"},
	{"Munich", "Nuremberg"},
	{"Nuremberg", "Cologne"},
	{"Cologne", "Berlin"},
	{"Paris", "Lyon"},
	{"Lyon", "Marseille"},
	{"Marmara", "Central Anatolia"},
	{"Central Anatolia", "Aegean"},
	{"Berlin-Brandenburg", "Bavaria"},
	{"Bavaria", "Rhineland"},
	{"Île-de-France", "Rhône-Alpes"},
	{"Rhône-Alpes", "Provence"},
}

func (s *WorldSeeder) SeedWorld(db *gorm.DB) {
	// If the world is already generated, return
	if err := db.First(&models.Territory{}).Error; err == nil {
		return
	}

	byName := make(map[string]*models.Territory)

	for _, cs := range worldSeed {
		country := &models.Territory{
			Name: cs.Name, Type: types.TerritoryCountry, Class: types.ClassOrdinary,
			CenterLat: cs.Lat, CenterLng: cs.Lng, RadiusKm: cs.RadiusKm,
		}
		if err := db.Create(country).Error; err != nil {
			fmt.Println("Seeding country failed:", err)
			return
		}
		byName[country.Name] = country

		for _, rs := range cs.Regions {
			region := &models.Territory{
				Name: rs.Name, Type: types.TerritoryRegion, Class: types.ClassOrdinary,
				CenterLat: rs.Lat, CenterLng: rs.Lng, RadiusKm: rs.RadiusKm,
				ParentID: &country.ID,
			}
			if err := db.Create(region).Error; err != nil {
				fmt.Println("Seeding region failed:", err)
				return
			}
			byName[region.Name] = region

			for _, ts := range rs.Cities {
				city := &models.Territory{
					Name: ts.Name, Type: types.TerritoryCity, Class: ts.Class,
					CenterLat: ts.Lat, CenterLng: ts.Lng, RadiusKm: ts.RadiusKm,
					ParentID: &region.ID, ProductionRate: ts.Production,
				}
				if err := db.Create(city).Error; err != nil {
					fmt.Println("Seeding city failed:", err)
					return
				}
				byName[city.Name] = city
			}
		}
	}

	// resolve symmetric connections by name
	connected := make(map[string][]uuid.UUID)
	for _, pair := range connectionSeed {
		a, b := byName[pair[0]], byName[pair[1]]
		if a == nil || b == nil {
			continue
		}
		connected[a.Name] = append(connected[a.Name], b.ID)
		connected[b.Name] = append(connected[b.Name], a.ID)
	}
	for name, ids := range connected {
		t := byName[name]
		t.Connected = ids
		if err := db.Model(t).Update("connected", ids).Error; err != nil {
			fmt.Println("Linking territories failed:", err)
			return
		}
	}
}
