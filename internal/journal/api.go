package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// StatusServer exposes the syncer's health and per-wallet sync state over HTTP.
type StatusServer struct {
	server *http.Server
	syncer *Syncer
	logger *zap.Logger
}

// NewStatusServer creates a StatusServer listening on port.
func NewStatusServer(syncer *Syncer, port int, logger *zap.Logger) *StatusServer {
	s := &StatusServer{
		syncer: syncer,
		logger: logger.Named("status-server"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes of the status server.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.statusHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// Start runs the HTTP server in a new goroutine.
func (s *StatusServer) Start() {
	s.logger.Info("Starting status server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *StatusServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping status server...")
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := struct {
		StartTime string             `json:"start_time"`
		Uptime    string             `json:"uptime"`
		Interval  string             `json:"interval"`
		Wallets   []string           `json:"wallets"`
		Syncs     []WalletSyncStatus `json:"syncs"`
	}{
		StartTime: s.syncer.StartTime.Format(time.RFC3339),
		Uptime:    time.Since(s.syncer.StartTime).Round(time.Second).String(),
		Interval:  s.syncer.interval.String(),
		Wallets:   s.syncer.Wallets(),
		Syncs:     s.syncer.Statuses(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *StatusServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
