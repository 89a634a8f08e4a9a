package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Settings holds every tunable the engines take. Balance numbers are game
// tuning, not correctness, so all of them can be overridden from the
// environment.
type Settings struct {
	ListenAddr string

	// Spatial grid
	H3Resolution int

	// Zone control
	WindowDays         int
	ControlThresholdKm float64
	ControlSharePct    float64
	DefenseMultiplier  float64

	// Scoring
	PointsPerKm   int
	TeamBonus     float64
	GymMultiplier float64
	MaxActivityKm float64

	// Conquest
	ConquestThresholdPct float64
	ContestRatio         float64
	RecoveryThresholdPct float64
	SignificantMovePct   float64
	CapitalBonus         float64
	FortressBonus        float64
	StrategicBonus       float64
	ConnectionBonus      float64

	// Per-entity locking
	LockAttempts int
	LockBackoff  time.Duration
}

// Default returns the baseline game balance.
func Default() Settings {
	return Settings{
		ListenAddr:           ":8080",
		H3Resolution:         9, // ~0.1 km2 per cell
		WindowDays:           30,
		ControlThresholdKm:   5.0,
		ControlSharePct:      50.0,
		DefenseMultiplier:    1.2,
		PointsPerKm:          10,
		TeamBonus:            1.1,
		GymMultiplier:        0.8,
		MaxActivityKm:        500.0,
		ConquestThresholdPct: 67.0,
		ContestRatio:         0.5,
		RecoveryThresholdPct: 25.0,
		SignificantMovePct:   10.0,
		CapitalBonus:         1.5,
		FortressBonus:        1.75,
		StrategicBonus:       1.25,
		ConnectionBonus:      0.05,
		LockAttempts:         50,
		LockBackoff:          5 * time.Millisecond,
	}
}

// Load reads settings from the environment on top of the defaults.
func Load() Settings {
	s := Default()
	s.ListenAddr = envString("LISTEN_ADDR", s.ListenAddr)
	s.H3Resolution = envInt("H3_RESOLUTION", s.H3Resolution)
	s.WindowDays = envInt("CONTROL_WINDOW_DAYS", s.WindowDays)
	s.ControlThresholdKm = envFloat("ZONE_CONTROL_THRESHOLD_KM", s.ControlThresholdKm)
	s.ControlSharePct = envFloat("ZONE_CONTROL_SHARE_PCT", s.ControlSharePct)
	s.DefenseMultiplier = envFloat("ZONE_DEFENSE_MULTIPLIER", s.DefenseMultiplier)
	s.PointsPerKm = envInt("ACTIVITY_POINTS_PER_KM", s.PointsPerKm)
	s.TeamBonus = envFloat("TEAM_ACTIVITY_BONUS", s.TeamBonus)
	s.GymMultiplier = envFloat("GYM_ACTIVITY_MULTIPLIER", s.GymMultiplier)
	s.MaxActivityKm = envFloat("MAX_ACTIVITY_KM", s.MaxActivityKm)
	s.ConquestThresholdPct = envFloat("CONQUEST_THRESHOLD_PCT", s.ConquestThresholdPct)
	s.ContestRatio = envFloat("CONTEST_RATIO", s.ContestRatio)
	s.RecoveryThresholdPct = envFloat("RECOVERY_THRESHOLD_PCT", s.RecoveryThresholdPct)
	s.SignificantMovePct = envFloat("SIGNIFICANT_MOVE_PCT", s.SignificantMovePct)
	s.CapitalBonus = envFloat("CAPITAL_DEFENSE_BONUS", s.CapitalBonus)
	s.FortressBonus = envFloat("FORTRESS_DEFENSE_BONUS", s.FortressBonus)
	s.StrategicBonus = envFloat("STRATEGIC_DEFENSE_BONUS", s.StrategicBonus)
	s.ConnectionBonus = envFloat("CONNECTION_DEFENSE_BONUS", s.ConnectionBonus)
	s.LockAttempts = envInt("LOCK_ATTEMPTS", s.LockAttempts)
	return s
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("Invalid %s value: %v", key, err)
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("Invalid %s value: %v", key, err)
	}
	return f
}

// ConnectDatabase opens the Postgres connection described by the DB_* env
// variables and tunes the pool.
func ConnectDatabase() *gorm.DB {
	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	port := os.Getenv("DB_PORT")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		host,
		user,
		password,
		dbname,
		port,
	)

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		log.Fatal("Failed to get database object:", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return database
}

// GetDBStats exposes pool statistics for diagnostics.
func GetDBStats(db *gorm.DB) sql.DBStats {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting database instance: %v", err)
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}
