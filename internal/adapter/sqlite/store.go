// Package sqlite persists analysis result sets to a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
)

// ErrRunNotFound is returned by LoadResultSet for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so computed_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite connection. It implements pipeline.ResultLoader.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the results database at path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		base_year INTEGER NOT NULL,
		future_year INTEGER NOT NULL,
		projection_year INTEGER NOT NULL,
		aggregation TEXT NOT NULL,
		accumulation TEXT NOT NULL,
		measures_json TEXT NOT NULL,
		total_cost REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		position INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		warning TEXT NOT NULL DEFAULT '',
		benefit REAL NOT NULL,
		benefit_cost_ratio REAL NOT NULL,
		benefit_change_pct REAL NOT NULL,
		max_intensity REAL NOT NULL,
		max_intensity_change_pct REAL NOT NULL,
		residual_risk REAL NOT NULL,
		baseline_damage REAL NOT NULL,
		measure_damage REAL NOT NULL,
		raw_benefit REAL NOT NULL,
		discount_factor REAL NOT NULL,
		total_cost REAL NOT NULL,
		measure_increases_risk INTEGER NOT NULL,
		PRIMARY KEY (run_id, scenario)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_computed_at ON runs(computed_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

type runRecord struct {
	RunID          string  `db:"run_id"`
	EventID        string  `db:"event_id"`
	ComputedAt     string  `db:"computed_at"`
	BaseYear       int     `db:"base_year"`
	FutureYear     int     `db:"future_year"`
	ProjectionYear int     `db:"projection_year"`
	Aggregation    string  `db:"aggregation"`
	Accumulation   string  `db:"accumulation"`
	MeasuresJSON   string  `db:"measures_json"`
	TotalCost      float64 `db:"total_cost"`
}

type resultRecord struct {
	RunID                 string  `db:"run_id"`
	Position              int     `db:"position"`
	Scenario              string  `db:"scenario"`
	Status                string  `db:"status"`
	Error                 string  `db:"error"`
	Warning               string  `db:"warning"`
	Benefit               float64 `db:"benefit"`
	BenefitCostRatio      float64 `db:"benefit_cost_ratio"`
	BenefitChangePct      float64 `db:"benefit_change_pct"`
	MaxIntensity          float64 `db:"max_intensity"`
	MaxIntensityChangePct float64 `db:"max_intensity_change_pct"`
	ResidualRisk          float64 `db:"residual_risk"`
	BaselineDamage        float64 `db:"baseline_damage"`
	MeasureDamage         float64 `db:"measure_damage"`
	RawBenefit            float64 `db:"raw_benefit"`
	DiscountFactor        float64 `db:"discount_factor"`
	TotalCost             float64 `db:"total_cost"`
	MeasureIncreasesRisk  bool    `db:"measure_increases_risk"`
}

// LoadResults implements pipeline.ResultLoader.
func (s *Store) LoadResults(ctx context.Context, rs engine.ResultSet) error {
	return s.SaveResultSet(ctx, rs)
}

// SaveResultSet writes the run and all its rows in one transaction. Saving
// the same run twice replaces it.
func (s *Store) SaveResultSet(ctx context.Context, rs engine.ResultSet) error {
	measures, err := json.Marshal(rs.Measures)
	if err != nil {
		return fmt.Errorf("encode measures: %w", err)
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM results WHERE run_id = ?", rs.RunID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id = ?", rs.RunID); err != nil {
		return err
	}

	run := runRecord{
		RunID:          rs.RunID,
		EventID:        rs.EventID,
		ComputedAt:     rs.ComputedAt.UTC().Format(timeLayout),
		BaseYear:       rs.BaseYear,
		FutureYear:     rs.FutureYear,
		ProjectionYear: rs.ProjectionYear,
		Aggregation:    rs.Aggregation,
		Accumulation:   string(rs.Accumulation),
		MeasuresJSON:   string(measures),
		TotalCost:      rs.TotalCost,
	}
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO runs
		(run_id, event_id, computed_at, base_year, future_year, projection_year,
		 aggregation, accumulation, measures_json, total_cost)
		VALUES (:run_id, :event_id, :computed_at, :base_year, :future_year, :projection_year,
		 :aggregation, :accumulation, :measures_json, :total_cost)`, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, row := range rs.Rows() {
		rec := toRecord(rs.RunID, i, row)
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO results
			(run_id, position, scenario, status, error, warning, benefit, benefit_cost_ratio,
			 benefit_change_pct, max_intensity, max_intensity_change_pct, residual_risk,
			 baseline_damage, measure_damage, raw_benefit, discount_factor, total_cost,
			 measure_increases_risk)
			VALUES (:run_id, :position, :scenario, :status, :error, :warning, :benefit, :benefit_cost_ratio,
			 :benefit_change_pct, :max_intensity, :max_intensity_change_pct, :residual_risk,
			 :baseline_damage, :measure_damage, :raw_benefit, :discount_factor, :total_cost,
			 :measure_increases_risk)`, rec); err != nil {
			return fmt.Errorf("insert result %s: %w", row.Scenario, err)
		}
	}

	return tx.Commit()
}

// LoadResultSet reads a stored run back. Scenario errors and warnings come
// back as plain errors carrying the stored message.
func (s *Store) LoadResultSet(ctx context.Context, runID string) (engine.ResultSet, error) {
	var run runRecord
	if err := s.conn.GetContext(ctx, &run, "SELECT * FROM runs WHERE run_id = ?", runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return engine.ResultSet{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return engine.ResultSet{}, err
	}

	var records []resultRecord
	if err := s.conn.SelectContext(ctx, &records,
		"SELECT * FROM results WHERE run_id = ? ORDER BY position", runID); err != nil {
		return engine.ResultSet{}, err
	}

	computedAt, err := time.Parse(timeLayout, run.ComputedAt)
	if err != nil {
		return engine.ResultSet{}, fmt.Errorf("parse computed_at: %w", err)
	}
	var measures []string
	if err := json.Unmarshal([]byte(run.MeasuresJSON), &measures); err != nil {
		return engine.ResultSet{}, fmt.Errorf("decode measures: %w", err)
	}

	rs := engine.ResultSet{
		RunID:          run.RunID,
		ComputedAt:     computedAt,
		EventID:        run.EventID,
		BaseYear:       run.BaseYear,
		FutureYear:     run.FutureYear,
		ProjectionYear: run.ProjectionYear,
		Aggregation:    run.Aggregation,
		Accumulation:   engine.Accumulation(run.Accumulation),
		Measures:       measures,
		TotalCost:      run.TotalCost,
		Order:          make([]domain.ScenarioID, 0, len(records)),
		Outcomes:       make(map[domain.ScenarioID]engine.Outcome, len(records)),
	}
	for _, rec := range records {
		id := domain.ScenarioID(rec.Scenario)
		rs.Order = append(rs.Order, id)
		rs.Outcomes[id] = fromRecord(rec)
	}
	return rs, nil
}

// RecentRuns lists run IDs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := s.conn.SelectContext(ctx, &ids,
		"SELECT run_id FROM runs ORDER BY computed_at DESC, run_id LIMIT ?", limit)
	return ids, err
}

func toRecord(runID string, position int, row engine.Row) resultRecord {
	r := row.CostBenefitResult
	return resultRecord{
		RunID:                 runID,
		Position:              position,
		Scenario:              string(row.Scenario),
		Status:                row.Status,
		Error:                 row.Error,
		Warning:               row.Warning,
		Benefit:               r.Benefit,
		BenefitCostRatio:      r.BenefitCostRatio,
		BenefitChangePct:      r.BenefitChangePct,
		MaxIntensity:          r.MaxIntensity,
		MaxIntensityChangePct: r.MaxIntensityChangePct,
		ResidualRisk:          r.ResidualRisk,
		BaselineDamage:        r.BaselineDamage,
		MeasureDamage:         r.MeasureDamage,
		RawBenefit:            r.RawBenefit,
		DiscountFactor:        r.DiscountFactor,
		TotalCost:             r.TotalCost,
		MeasureIncreasesRisk:  r.MeasureIncreasesRisk,
	}
}

func fromRecord(rec resultRecord) engine.Outcome {
	var out engine.Outcome
	if rec.Status == engine.StatusFailed {
		out.Err = errors.New(rec.Error)
		return out
	}
	out.Result = domain.CostBenefitResult{
		Scenario:              domain.ScenarioID(rec.Scenario),
		Benefit:               rec.Benefit,
		BenefitCostRatio:      rec.BenefitCostRatio,
		BenefitChangePct:      rec.BenefitChangePct,
		MaxIntensity:          rec.MaxIntensity,
		MaxIntensityChangePct: rec.MaxIntensityChangePct,
		ResidualRisk:          rec.ResidualRisk,
		BaselineDamage:        rec.BaselineDamage,
		MeasureDamage:         rec.MeasureDamage,
		RawBenefit:            rec.RawBenefit,
		DiscountFactor:        rec.DiscountFactor,
		TotalCost:             rec.TotalCost,
		MeasureIncreasesRisk:  rec.MeasureIncreasesRisk,
	}
	if rec.Warning != "" {
		out.Warning = errors.New(rec.Warning)
	}
	return out
}
