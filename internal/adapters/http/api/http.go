// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/internal/domain/scene"
	"github.com/okian/xsit/pkg/logger"
)

const defaultMaxBatchSize = 500

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Compute evaluates one scene.
	Compute(ctx context.Context, s scene.Scene, kind interference.Kind) (interference.Result, error)

	// ComputeBatch evaluates scenes concurrently, preserving order.
	ComputeBatch(ctx context.Context, scenes []scene.Scene, kind interference.Kind) ([]interference.BatchItem, error)

	// DefaultKind is used when a request names no estimator.
	DefaultKind() interference.Kind
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	calculateHandler *CalculateHandler
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	maxBatchSize int
	logger       logger.Logger
}

// WithMaxBatchSize caps the number of scenes accepted by the batch endpoint.
func WithMaxBatchSize(n int) ServerOption {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxBatchSize = n
		}
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	o := serverOptions{maxBatchSize: defaultMaxBatchSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		calculateHandler: NewCalculateHandler(deps, o.logger, o.maxBatchSize),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/calculate_xsit", MetricsMiddleware(s.calculateHandler.HandleCalculate, "calculate_xsit"))
	mux.HandleFunc("/calculate_xsit/batch", MetricsMiddleware(s.calculateHandler.HandleBatch, "calculate_xsit_batch"))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}
