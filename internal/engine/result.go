package engine

import (
	"time"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
)

// Outcome is the per-scenario entry of a ResultSet. Exactly one of Result
// (with Err nil) or Err is meaningful.
type Outcome struct {
	Result domain.CostBenefitResult
	Err    error
	// Warning carries non-fatal conditions: domain.ErrMeasureIncreasesRisk,
	// or domain.ErrReferenceUnavailable when the baseline row failed and
	// BenefitChangePct could not be computed.
	Warning error
}

// ResultSet is the immutable output of one run.
type ResultSet struct {
	RunID          string
	ComputedAt     time.Time
	EventID        string
	BaseYear       int
	FutureYear     int
	ProjectionYear int
	Aggregation    string
	Accumulation   Accumulation
	Measures       []string
	TotalCost      float64

	Order    []domain.ScenarioID
	Outcomes map[domain.ScenarioID]Outcome
}

// Failed lists scenarios whose outcome carries an error, in run order.
func (rs ResultSet) Failed() []domain.ScenarioID {
	var out []domain.ScenarioID
	for _, id := range rs.Order {
		if rs.Outcomes[id].Err != nil {
			out = append(out, id)
		}
	}
	return out
}

// Row statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Row is the serializable form of one outcome, one per table line.
type Row struct {
	domain.CostBenefitResult
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// Rows flattens the result set in run order.
func (rs ResultSet) Rows() []Row {
	rows := make([]Row, 0, len(rs.Order))
	for _, id := range rs.Order {
		out := rs.Outcomes[id]
		row := Row{CostBenefitResult: out.Result, Status: StatusOK}
		row.Scenario = id
		if out.Err != nil {
			row.CostBenefitResult = domain.CostBenefitResult{Scenario: id}
			row.Status = StatusFailed
			row.Error = out.Err.Error()
		}
		if out.Warning != nil {
			row.Warning = out.Warning.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
