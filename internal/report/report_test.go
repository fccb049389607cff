package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
)

func sampleResultSet() engine.ResultSet {
	return engine.ResultSet{
		RunID:      "run-1",
		EventID:    "storm-2020-09",
		BaseYear:   2020,
		FutureYear: 2100,
		Measures:   []string{"seawall"},
		TotalCost:  1e8,
		Order:      []domain.ScenarioID{domain.Baseline, "RCP-8.5", "SSP5"},
		Outcomes: map[domain.ScenarioID]engine.Outcome{
			domain.Baseline: {Result: domain.CostBenefitResult{Benefit: 4212470000000, BenefitCostRatio: 42124.7, MaxIntensity: 51.751}},
			"RCP-8.5": {Result: domain.CostBenefitResult{
				Benefit: 1234.5678, BenefitCostRatio: 0.0000123, MaxIntensity: 58.597, MaxIntensityChangePct: 13.2287,
			}},
			"SSP5": {Err: domain.ErrUnknownScenario},
		},
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleResultSet()))
	out := buf.String()

	assert.Contains(t, out, "run run-1")
	assert.Contains(t, out, "total cost 100000000")
	assert.Contains(t, out, "4212470000000")
	assert.Contains(t, out, "42124.70")
	assert.Contains(t, out, "13.2")
	assert.Contains(t, out, "1235")
	assert.Contains(t, out, "failed: unknown scenario")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleResultSet()))

	var rows []engine.Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, domain.Baseline, rows[0].Scenario)
	assert.Equal(t, engine.StatusFailed, rows[2].Status)
}

func TestMoneyAndFixed(t *testing.T) {
	assert.Equal(t, "1235", money(1234.5))
	assert.Equal(t, "-2", money(-1.6))
	assert.Equal(t, "0.33", fixed(0.3333, 2))
	assert.Equal(t, "13.2", fixed(13.2287, 1))
}
