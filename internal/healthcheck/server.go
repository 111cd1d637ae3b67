// Package healthcheck serves the liveness, readiness and metrics endpoints
// on a port separate from the command API.
package healthcheck

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/pkg/utils"
)

// ReadinessCheck reports whether one dependency is ready; the key names it.
type ReadinessCheck func() (key string, ok bool)

// Server is the health check HTTP server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *zap.Logger
	checks     []ReadinessCheck
}

// HealthResponse is the response structure for health check endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// NewServer creates a health check server on the given port. Readiness
// checks are evaluated on every /ready request.
func NewServer(port int, logger *zap.Logger, checks ...ReadinessCheck) *Server {
	mux := http.NewServeMux()

	server := &Server{
		httpServer: &http.Server{
			Addr:    ":" + strconv.Itoa(port),
			Handler: mux,
		},
		mux:    mux,
		logger: logger,
		checks: checks,
	}

	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/ready", server.handleReady)

	return server
}

// RegisterMetricsHandler adds the /metrics endpoint handler.
// Should only be called if metrics are enabled.
func (s *Server) RegisterMetricsHandler(handler http.Handler) {
	s.logger.Info("Registering /metrics endpoint")
	s.mux.Handle("/metrics", handler)
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting health check server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Health check server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping health check server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, HealthResponse{Status: "UP"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	details := map[string]string{
		"timestamp": utils.FormatISO8601(utils.Now()),
	}

	ready := true
	for _, check := range s.checks {
		key, ok := check()
		if ok {
			details[key] = "UP"
		} else {
			details[key] = "DOWN"
			ready = false
		}
	}

	resp := HealthResponse{Status: "READY", Details: details}
	status := http.StatusOK
	if !ready {
		resp.Status = "NOT_READY"
		status = http.StatusServiceUnavailable
	}
	utils.WriteJSONResponse(w, status, resp)
}
