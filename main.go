package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"terraconquest/api"
	"terraconquest/config"
	"terraconquest/game/allocation"
	"terraconquest/game/conquest"
	"terraconquest/game/hexgrid"
	"terraconquest/game/zonecontrol"
	"terraconquest/migrations"
	"terraconquest/socket"
	"terraconquest/store"
)

func main() {
	// set timezone to utc
	time.Local = time.UTC

	// load environment variables
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
	cfg := config.Load()

	// database connection
	db := config.ConnectDatabase()
	// migrations and seeders
	migrations.Migrate(db)

	st := store.NewPostgres(db)
	grid := hexgrid.New(cfg.H3Resolution)

	ledger := zonecontrol.New(st, grid, cfg)
	alloc := allocation.New(st, grid, ledger, cfg)
	engine := conquest.New(st, cfg)
	ledger.SetLocator(conquest.NewLocator(st, grid))

	// event fan-out to websocket clients
	hub := socket.NewHub()
	ledger.SetEvents(hub)
	engine.SetEvents(hub)
	go hub.Run()

	server := api.NewServer(st, ledger, alloc, engine, hub)
	router := server.SetupRouter()

	log.Printf("listening on %s", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal("Server failed:", err)
	}
}
