// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/reactivation/internal/event"
	"github.com/matthewbaird/reactivation/internal/handler"
	"github.com/matthewbaird/reactivation/internal/profile"
	"github.com/matthewbaird/reactivation/internal/store"
)

// Config holds server configuration.
type Config struct {
	Port           int
	Store          store.Store
	Recorder       event.Recorder
	Profiles       *profile.Set
	DefaultProfile string
	Workers        int
	TopN           int
	AllowedOrigins []string
}

// NewRouter registers every route behind the shared middleware stack.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	useMiddleware(r)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// --- AnalysisService ---
	ah := handler.NewAnalysisHandler(handler.AnalysisConfig{
		Profiles:       cfg.Profiles,
		DefaultProfile: cfg.DefaultProfile,
		Store:          cfg.Store,
		Recorder:       cfg.Recorder,
		Workers:        cfg.Workers,
		TopN:           cfg.TopN,
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/profiles", ah.HandleListProfiles)
		r.Post("/wells/analyze", ah.HandleAnalyzeWell)
		r.Get("/wells/{wellKey}/events", ah.HandleWellEvents)
		r.Post("/batches/analyze", ah.HandleAnalyzeBatch)
		r.Post("/batches/rank", ah.HandleRankBatch)
		r.Get("/batches/stream", handler.NewStreamHandler(ah, cfg.AllowedOrigins).ServeHTTP)
		r.Get("/rankings/latest", ah.HandleLatestRanking)
		r.Get("/reports", ah.HandleListReports)
		r.Get("/reports/{wellKey}", ah.HandleGetReport)
		r.Delete("/reports/{wellKey}", ah.HandleDeleteReport)
	})

	return r
}

// useMiddleware installs request IDs, access logging through the standard
// logger and panic recovery. Recoverer leaves upgraded connections alone, so
// the websocket stream passes through unchanged.
func useMiddleware(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.Default(), NoColor: true}))
	r.Use(middleware.Recoverer)
}

// Run starts the HTTP server with all routes registered and shuts it down
// when ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("starting server on %s", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
