package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/reactivation/internal/config"
	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/eventbus"
	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/server"
	"github.com/matthewbaird/reactivation/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	profiles := profile.Default()
	if cfg.ProfilesPath != "" {
		profiles, err = profile.Load(cfg.ProfilesPath)
		if err != nil {
			log.Fatalf("loading profiles: %v", err)
		}
	}
	if _, err := profiles.Get(cfg.Profile); err != nil {
		log.Fatalf("selecting profile: %v", err)
	}
	log.Printf("profiles loaded: %v (default %s)", profiles.Names(), cfg.Profile)

	db, err := sql.Open("sqlite", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	st := store.NewSQLiteStore(db)
	if err := st.CreateTables(ctx); err != nil {
		log.Fatalf("creating tables: %v", err)
	}
	log.Println("database ready")

	bus := eventbus.New(cfg.EventBuffer)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("reports", eventbus.NewReportConsumer(st), event.TypeWellAnalyzed)
	bus.Start(ctx)
	defer func() {
		bus.Stop()
		st := bus.Stats()
		log.Printf("event bus stopped: %d published, %d dropped, %d failed", st.Published, st.Dropped, st.Failed)
	}()

	recorder := event.NewStoreRecorder(st)
	recorder.SetPublisher(bus)

	if err := server.Run(ctx, server.Config{
		Port:           cfg.Port,
		Store:          st,
		Recorder:       recorder,
		Profiles:       profiles,
		DefaultProfile: cfg.Profile,
		Workers:        cfg.Workers,
		TopN:           cfg.ReportTopN,
		AllowedOrigins: cfg.AllowedOrigins,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
