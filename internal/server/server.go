// Package server exposes the daemon's local status endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vincentbai/visitwatch/internal/dedup"
	"github.com/vincentbai/visitwatch/internal/sink"
)

// recentLimit caps how many rows /recent returns.
const recentLimit = 20

// Stats is the live state the endpoints report on.
type Stats struct {
	RunID     uuid.UUID
	StartedAt time.Time
	Interval  time.Duration
	Seen      *dedup.Set
	Records   func() ([]sink.Record, error)
}

type Server struct {
	stats   Stats
	address string
	server  *http.Server
}

func NewServer(stats Stats, address string) *Server {
	return &Server{
		stats:   stats,
		address: address,
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	seen := s.stats.Seen.Len()
	payload := map[string]any{
		"run_id":           s.stats.RunID.String(),
		"started_at":       s.stats.StartedAt.UTC().Format(time.RFC3339),
		"started":          humanize.Time(s.stats.StartedAt),
		"uptime":           time.Since(s.stats.StartedAt).Truncate(time.Second).String(),
		"interval":         s.stats.Interval.String(),
		"seen_urls":        seen,
		"seen_urls_pretty": humanize.Comma(int64(seen)),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleRecent(w http.ResponseWriter, _ *http.Request) {
	records, err := s.stats.Records()
	if err != nil {
		http.Error(w, "failed to read record log", http.StatusInternalServerError)
		return
	}
	if len(records) > recentLimit {
		records = records[:recentLimit]
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/recent", s.handleRecent)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      s.setupRoutes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	errChannel := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChannel <- err
		}
	}()

	select {
	case err := <-errChannel:
		return err
	case <-ctx.Done():
	}

	shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownContext)
}
