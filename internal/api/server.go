// Package api exposes the classifier, account summaries and the transfer
// workflow over HTTP, plus health and metrics endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/flowpanel/internal/core/domain"
	"github.com/vietddude/flowpanel/internal/core/transfer"
	"github.com/vietddude/flowpanel/internal/health"
	"github.com/vietddude/flowpanel/internal/infra/storage"
)

// maxBodyBytes caps request bodies, bulk imports included.
const maxBodyBytes = 1 << 20

// AccountService resolves balances for any address.
type AccountService interface {
	GetSummary(ctx context.Context, addr string) (*domain.AccountSummary, error)
	Balance(ctx context.Context, addr, vaultType string) (domain.Balance, domain.NetworkID, error)
}

// TransactionTracker is the single-flight transfer tracker.
type TransactionTracker interface {
	Submit(
		ctx context.Context,
		sender string,
		network domain.NetworkID,
		token domain.TokenDescriptor,
		batch transfer.Batch,
	) (string, error)
	Current() domain.TransactionRecord
	Dismiss()
}

// Deps are the services behind the endpoints.
type Deps struct {
	Accounts       AccountService
	Tracker        TransactionTracker
	History        storage.TransferRepository
	Monitor        *health.Monitor
	StrictReceiver bool
	Logger         *slog.Logger
}

// Server provides the HTTP API.
type Server struct {
	deps   Deps
	log    *slog.Logger
	server *http.Server
}

// NewServer creates a new API server listening on port.
func NewServer(deps Deps, port int) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		deps: deps,
		log:  deps.Logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/classify/{address}", s.handleClassify)
	mux.HandleFunc("GET /v1/accounts/{address}", s.handleAccount)
	mux.HandleFunc("POST /v1/transfers/validate", s.handleValidate)
	mux.HandleFunc("POST /v1/transfers/import", s.handleImport)
	mux.HandleFunc("POST /v1/transfers", s.handleSubmit)
	mux.HandleFunc("GET /v1/transfers/current", s.handleCurrent)
	mux.HandleFunc("DELETE /v1/transfers/current", s.handleDismiss)
	mux.HandleFunc("GET /v1/transfers/history", s.handleHistory)
	mux.HandleFunc("GET /v1/transfers/history/{txID}", s.handleHistoryEntry)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.withRequestID(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("HTTP API listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("Request served", "method", r.Method, "path", r.URL.Path,
			"request_id", id, "duration", time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(health.StatusHealthy)})
		return
	}
	report := s.deps.Monitor.CheckHealth(r.Context())

	status := http.StatusOK
	if report.SystemStatus == health.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	if s.deps.Monitor == nil {
		writeJSON(w, http.StatusOK, health.HealthReport{SystemStatus: health.StatusHealthy})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Monitor.CheckHealth(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
