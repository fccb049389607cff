package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/storm-benefit-cost/internal/adapter/http"
	"github.com/couchcryptid/storm-benefit-cost/internal/adapter/sqlite"
	"github.com/couchcryptid/storm-benefit-cost/internal/definition"
	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
	"github.com/couchcryptid/storm-benefit-cost/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockProcessor struct {
	rs  engine.ResultSet
	err error
	got *definition.Definition
}

func (m *mockProcessor) Process(_ context.Context, def *definition.Definition) (engine.ResultSet, error) {
	m.got = def
	return m.rs, m.err
}

type mockRuns struct {
	sets map[string]engine.ResultSet
}

func (m *mockRuns) LoadResultSet(_ context.Context, runID string) (engine.ResultSet, error) {
	rs, ok := m.sets[runID]
	if !ok {
		return engine.ResultSet{}, fmt.Errorf("%w: %s", sqlite.ErrRunNotFound, runID)
	}
	return rs, nil
}

func sampleResultSet() engine.ResultSet {
	return engine.ResultSet{
		RunID:        "run-1",
		ComputedAt:   time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC),
		EventID:      "storm-2020-09",
		BaseYear:     2020,
		FutureYear:   2100,
		Aggregation:  "mean",
		Accumulation: engine.AccumulatePoint,
		Measures:     []string{"seawall"},
		TotalCost:    1e8,
		Order:        []domain.ScenarioID{domain.Baseline, "RCP-8.5"},
		Outcomes: map[domain.ScenarioID]engine.Outcome{
			domain.Baseline: {Result: domain.CostBenefitResult{Scenario: domain.Baseline, Benefit: 4e12, BenefitCostRatio: 40000}},
			"RCP-8.5":       {Result: domain.CostBenefitResult{Scenario: "RCP-8.5", Benefit: 5e12, BenefitCostRatio: 50000}},
		},
	}
}

func newTestServer(readyErr error, proc *mockProcessor, runs httpadapter.RunStore) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, proc, runs, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, &mockProcessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, &mockProcessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(errors.New("not ready yet"), &mockProcessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, &mockProcessor{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAnalyze_ReturnsRows(t *testing.T) {
	proc := &mockProcessor{rs: sampleResultSet()}
	srv := newTestServer(nil, proc, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/analyses/",
		strings.NewReader(`{"name":"coastal","scenarios":["RCP-8.5"]}`))

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, proc.got)
	assert.Equal(t, "coastal", proc.got.Name)

	var body struct {
		RunID   string       `json:"run_id"`
		Results []engine.Row `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.RunID)
	require.Len(t, body.Results, 2)
	assert.Equal(t, domain.Baseline, body.Results[0].Scenario)
	assert.InDelta(t, 50000, body.Results[1].BenefitCostRatio, 1e-9)
	assert.Equal(t, engine.StatusOK, body.Results[1].Status)
}

func TestAnalyze_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		proc *mockProcessor
		want int
	}{
		{"malformed body", "grid: [", &mockProcessor{}, http.StatusBadRequest},
		{"invalid definition", "{}", &mockProcessor{
			err: fmt.Errorf("%w: %w", pipeline.ErrInvalidDefinition, domain.ErrInvalidGridSpec),
		}, http.StatusUnprocessableEntity},
		{"sink failure", "{}", &mockProcessor{rs: sampleResultSet(), err: errors.New("sink kafka: down")}, http.StatusBadGateway},
		{"engine failure", "{}", &mockProcessor{err: context.Canceled}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(nil, tt.proc, nil)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/analyses/", strings.NewReader(tt.body))

			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetRun(t *testing.T) {
	runs := &mockRuns{sets: map[string]engine.ResultSet{"run-1": sampleResultSet()}}
	srv := newTestServer(nil, &mockProcessor{}, runs)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/run-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"run-1"`)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRun_NotRoutedWithoutStore(t *testing.T) {
	srv := newTestServer(nil, &mockProcessor{}, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/analyses/run-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
