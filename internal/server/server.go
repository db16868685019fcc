// Package server exposes the stored payload and the refresh trigger over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pfrederiksen/athens-bands/internal/calendar"
	"github.com/pfrederiksen/athens-bands/internal/config"
	"github.com/pfrederiksen/athens-bands/internal/logger"
	"github.com/pfrederiksen/athens-bands/internal/refresh"
	"github.com/pfrederiksen/athens-bands/internal/storage"
)

// CacheTag labels /api/events responses for targeted CDN purges
const CacheTag = "events-data"

const notCachedMessage = "No events cached yet. Try again soon."

// Refresher runs one ingestion cycle
type Refresher interface {
	Run(ctx context.Context, trigger string) (*refresh.Result, error)
}

// Server provides the events API, manual refresh and calendar feed
type Server struct {
	cfg     config.ServerConfig
	store   storage.Store
	runner  Refresher
	loc     *time.Location
	metrics http.Handler
	log     *logger.Logger
	mux     *http.ServeMux
}

// Option configures a Server
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLocation sets the zone used for calendar export
func WithLocation(loc *time.Location) Option {
	return func(s *Server) { s.loc = loc }
}

// WithLogger sets the request logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New constructs a Server
func New(cfg config.ServerConfig, store storage.Store, runner Refresher, opts ...Option) *Server {
	if cfg.CDNCacheControl == "" {
		cfg.CDNCacheControl = config.DefaultCDNCacheControl
	}
	s := &Server{
		cfg:    cfg,
		store:  store,
		runner: runner,
		log:    logger.Default(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listen := s.cfg.Listen
	if listen == "" {
		listen = config.DefaultListen
	}
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// refresh runs synchronously and may wait on two fetch timeouts
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.Fields{"listen": "http://" + listen})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("Shutting down HTTP server", nil)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events.ics", s.handleCalendar)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type statusResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type refreshCounts struct {
	Today    int `json:"today"`
	Tomorrow int `json:"tomorrow"`
}

type refreshResponse struct {
	OK         bool          `json:"ok"`
	FetchedAt  time.Time     `json:"fetchedAt"`
	Today      string        `json:"today"`
	Tomorrow   string        `json:"tomorrow"`
	Counts     refreshCounts `json:"counts"`
	DurationMs int64         `json:"durationMs"`
}

// handleEvents serves the stored payload with CDN caching headers
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, "GET, HEAD")
		return
	}

	payload, err := s.store.Load(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Message: notCachedMessage})
		return
	}
	if err != nil {
		s.log.Error("Failed to load payload", nil, err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Netlify-CDN-Cache-Control", s.cfg.CDNCacheControl)
	w.Header().Set("Netlify-Cache-Tag", CacheTag)
	writeJSON(w, http.StatusOK, payload)
}

// handleCalendar serves the stored payload as an iCalendar feed
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(w, "GET, HEAD")
		return
	}

	payload, err := s.store.Load(r.Context())
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Message: notCachedMessage})
		return
	}
	if err != nil {
		s.log.Error("Failed to load payload", nil, err)
		writeJSON(w, http.StatusInternalServerError, statusResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Netlify-CDN-Cache-Control", s.cfg.CDNCacheControl)
	w.Header().Set("Netlify-Cache-Tag", CacheTag)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calendar.GenerateICS(payload, s.loc)))
}

// handleRefresh runs the pipeline synchronously
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeMethodNotAllowed(w, "GET, POST")
		return
	}

	result, err := s.runner.Run(r.Context(), refresh.TriggerHTTP)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, statusResponse{Error: err.Error()})
		return
	}

	today, tomorrow := result.Payload.Counts()
	writeJSON(w, http.StatusOK, refreshResponse{
		OK:         true,
		FetchedAt:  result.Payload.FetchedAt,
		Today:      result.Payload.Today,
		Tomorrow:   result.Payload.Tomorrow,
		Counts:     refreshCounts{Today: today, Tomorrow: tomorrow},
		DurationMs: result.Duration.Milliseconds(),
	})
}

func writeMethodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, statusResponse{Error: "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write JSON response", nil, err)
	}
}
