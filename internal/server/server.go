// Package server exposes the operational HTTP surface: Prometheus
// metrics and a liveness probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericvh/waggle-tempest/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Server serves /metrics and /healthz on its own port, separate from
// ingestion so a scrape can never interfere with the socket loop.
type Server struct {
	srv    *http.Server
	logger *logging.Logger
}

// New builds the operational server on the given port. ready reports
// whether the downstream broker connection is up; nil means always ready.
func New(port int, ready func() bool, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", handleHealth(ready))

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With(logging.Service("http"), logging.Port(port)),
	}
}

func handleHealth(ready func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "broker": "disconnected"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// Start serves until Stop is called. Blocks; run on its own goroutine.
func (s *Server) Start() error {
	s.logger.Info("metrics server started")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Stop shuts the server down, letting in-flight scrapes finish.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
