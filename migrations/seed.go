package migrations

import (
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"terraconquest/models"
)

func Seed(db *gorm.DB) {
	// silent mode
	db.Logger = logger.Default.LogMode(logger.Silent)

	// generate the territory world
	seeder := WorldSeeder{}
	seeder.SeedWorld(db)

	// default competition
	season := models.Competition{Name: "Season One", Status: models.CompetitionActive}
	db.FirstOrCreate(&season, models.Competition{Name: season.Name})

	// disable silent mode
	db.Logger = logger.Default.LogMode(logger.Info)
}
