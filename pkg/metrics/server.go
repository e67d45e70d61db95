package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/veridianlabs/switchyard/pkg/log"
)

// Server exposes /metrics and /healthz on a dedicated listener. The
// status file remains the canonical operational surface; this listener
// exists for scrape-based monitoring.
type Server struct {
	httpServer *http.Server
	healthFn   func() (string, bool)
}

// NewServer creates a metrics server. healthFn reports the supervisor's
// current state and whether it is accepting work.
func NewServer(addr string, healthFn func() (string, bool)) *Server {
	s := &Server{healthFn: healthFn}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	logger := log.WithComponent("metrics")
	logger.Info().Str("addr", s.httpServer.Addr).Msg("Metrics listener starting")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Metrics listener failed")
		}
	}()
}

// Stop shuts the listener down, waiting briefly for in-flight scrapes
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	state, ok := s.healthFn()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": state})
}
