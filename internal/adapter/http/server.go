package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/storm-benefit-cost/internal/adapter/sqlite"
	"github.com/couchcryptid/storm-benefit-cost/internal/definition"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
	"github.com/couchcryptid/storm-benefit-cost/internal/pipeline"
)

const maxDefinitionBytes = 16 << 20

// Processor runs an analysis from its definition.
type Processor interface {
	Process(ctx context.Context, def *definition.Definition) (engine.ResultSet, error)
}

// RunStore looks up previously stored result sets.
type RunStore interface {
	LoadResultSet(ctx context.Context, runID string) (engine.ResultSet, error)
}

// Server exposes the analysis API alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	processor  Processor
	runs       RunStore
	logger     *slog.Logger
}

// NewServer creates an HTTP server. runs may be nil, in which case
// GET /v1/analyses/{runID} is not routed.
func NewServer(addr string, ready sharedobs.ReadinessChecker, processor Processor, runs RunStore, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		processor: processor,
		runs:      runs,
		logger:    logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/analyses", func(ar chi.Router) {
		ar.Post("/", s.handleAnalyze)
		if runs != nil {
			ar.Get("/{runID}", s.handleGetRun)
		}
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// analysisResponse is the JSON body returned for a run.
type analysisResponse struct {
	RunID        string       `json:"run_id"`
	EventID      string       `json:"event_id"`
	ComputedAt   time.Time    `json:"computed_at"`
	BaseYear     int          `json:"base_year"`
	FutureYear   int          `json:"future_year"`
	Aggregation  string       `json:"aggregation"`
	Accumulation string       `json:"accumulation"`
	Measures     []string     `json:"measures"`
	TotalCost    float64      `json:"total_cost"`
	Results      []engine.Row `json:"results"`
	Error        string       `json:"error,omitempty"`
}

func newAnalysisResponse(rs engine.ResultSet) analysisResponse {
	return analysisResponse{
		RunID:        rs.RunID,
		EventID:      rs.EventID,
		ComputedAt:   rs.ComputedAt,
		BaseYear:     rs.BaseYear,
		FutureYear:   rs.FutureYear,
		Aggregation:  rs.Aggregation,
		Accumulation: string(rs.Accumulation),
		Measures:     rs.Measures,
		TotalCost:    rs.TotalCost,
		Results:      rs.Rows(),
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDefinitionBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	def, err := definition.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rs, err := s.processor.Process(r.Context(), def)
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, newAnalysisResponse(rs))
	case errors.Is(err, pipeline.ErrInvalidDefinition):
		writeError(w, http.StatusUnprocessableEntity, err)
	case rs.RunID != "":
		// Computed but not delivered to every sink.
		resp := newAnalysisResponse(rs)
		resp.Error = err.Error()
		sharedobs.WriteJSON(w, http.StatusBadGateway, resp)
	default:
		s.logger.Error("analysis failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rs, err := s.runs.LoadResultSet(r.Context(), chi.URLParam(r, "runID"))
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, newAnalysisResponse(rs))
	case errors.Is(err, sqlite.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
