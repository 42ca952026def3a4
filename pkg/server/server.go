// Package server exposes the engine's query and export APIs over HTTP for
// external scrapers and health probes. The engine itself is transport-free;
// this package is the reference consumer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/voxar-platform/spatialmetrics/pkg/config"
	"github.com/voxar-platform/spatialmetrics/pkg/metrics"
)

// Server serves the exposition text, the JSON snapshot and a health probe.
type Server struct {
	config config.ServerConfig
	engine *metrics.Engine
	logger zerolog.Logger
	http   *http.Server
	start  time.Time
}

// New creates a server bound to the given engine.
func New(cfg config.ServerConfig, engine *metrics.Engine, logger zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		engine: engine,
		logger: logger.With().Str("component", "server").Logger(),
		start:  time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc(cfg.MetricsPath, s.handleMetrics).Methods(http.MethodGet)
	router.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info().Msg("Shutting down metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.http.Shutdown(shutdownCtx)
	}()

	s.logger.Info().
		Str("address", s.http.Addr).
		Str("path", s.config.MetricsPath).
		Msg("Starting metrics server")

	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// Handler returns the router, for tests and for embedding into a larger mux.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		s.handleSnapshot(w, r)
		return
	}
	w.Header().Set("Content-Type", metrics.ContentType)
	w.Write(s.engine.RenderPrometheus())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := json.MarshalIndent(s.engine.Snapshot(), "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reply := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": time.Since(s.start).Seconds(),
		"timestamp":      time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reply)
}
