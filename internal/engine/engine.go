// Package engine runs the benefit-cost analysis: for the baseline and each
// requested climate scenario it scales the hazard, evaluates damage with and
// without the entity's measures, discounts the averted damage, and assembles
// one result row per scenario.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
	"github.com/couchcryptid/storm-benefit-cost/internal/impact"
	"github.com/couchcryptid/storm-benefit-cost/internal/observability"
)

// Scaler projects a baseline hazard field onto a scenario.
type Scaler interface {
	Scale(baseline domain.HazardField, id domain.ScenarioID, referenceYear int) (domain.HazardField, error)
}

// Accumulation selects how averted damage is turned into a present value.
type Accumulation string

const (
	// AccumulatePoint discounts the averted damage once, from BaseYear to
	// FutureYear.
	AccumulatePoint Accumulation = "point"
	// AccumulateCumulative sums the averted damage of every year from
	// BaseYear to FutureYear, interpolating linearly between the baseline and
	// the scenario benefit and discounting each year separately.
	AccumulateCumulative Accumulation = "cumulative"
)

// Default option values.
const (
	DefaultBaseYear   = 2020
	DefaultFutureYear = 2100
)

// Options configures one run. Zero values take the documented defaults.
type Options struct {
	BaseYear       int                // present-value reference year (default 2020)
	FutureYear     int                // year the scenario damages are realized (default 2100)
	ProjectionYear int                // year passed to the scaler (default FutureYear)
	Aggregation    impact.Aggregation // default impact.Mean
	Accumulation   Accumulation       // default AccumulatePoint
	Workers        int                // concurrent scenarios (default GOMAXPROCS)
}

func (o Options) withDefaults() Options {
	if o.BaseYear == 0 {
		o.BaseYear = DefaultBaseYear
	}
	if o.FutureYear == 0 {
		o.FutureYear = DefaultFutureYear
	}
	if o.ProjectionYear == 0 {
		o.ProjectionYear = o.FutureYear
	}
	if o.Aggregation == nil {
		o.Aggregation = impact.Mean{}
	}
	if o.Accumulation == "" {
		o.Accumulation = AccumulatePoint
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Engine is stateless between runs and safe for concurrent use.
type Engine struct {
	scaler  Scaler
	calc    *impact.Calculator
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// New creates an Engine. A nil clock uses the real clock.
func New(scaler Scaler, calc *impact.Calculator, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{scaler: scaler, calc: calc, logger: logger, metrics: metrics, clock: clock}
}

// evaluation is the undiscounted outcome of one scenario.
type evaluation struct {
	maxIntensity float64
	before       domain.ImpactResult
	after        domain.ImpactResult
	err          error
}

// Run evaluates the baseline and every scenario in scenarios. Scenario order
// is preserved in ResultSet.Order with the baseline first; duplicates and
// explicit "baseline" entries are dropped.
//
// A failure in one scenario is recorded against that scenario only. Run
// itself fails when the inputs cannot be evaluated at all (mismatched grids,
// cancelled context).
func (e *Engine) Run(ctx context.Context, entity domain.Entity, baseline domain.HazardField, scenarios []domain.ScenarioID, opts Options) (ResultSet, error) {
	opts = opts.withDefaults()
	if entity.Exposure().Len() != baseline.Len() {
		return ResultSet{}, fmt.Errorf("%w: exposure has %d centroids, hazard has %d",
			domain.ErrGridMismatch, entity.Exposure().Len(), baseline.Len())
	}

	start := e.clock.Now()
	runID := uuid.NewString()
	order := scenarioOrder(scenarios)
	logger := e.logger.With("run_id", runID)
	logger.Info("analysis started",
		"event_id", baseline.EventID(),
		"scenarios", len(order),
		"centroids", baseline.Len(),
		"measures", entity.Measures().Len(),
		"aggregation", opts.Aggregation.Name(),
	)

	evals := make([]evaluation, len(order))
	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, id := range order {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				evals[i] = evaluation{err: err}
				return nil
			}
			evals[i] = e.evaluate(entity, baseline, id, opts)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return ResultSet{}, fmt.Errorf("analysis cancelled: %w", err)
	}

	rs := ResultSet{
		RunID:          runID,
		ComputedAt:     e.clock.Now().UTC(),
		EventID:        baseline.EventID(),
		BaseYear:       opts.BaseYear,
		FutureYear:     opts.FutureYear,
		ProjectionYear: opts.ProjectionYear,
		Aggregation:    opts.Aggregation.Name(),
		Accumulation:   opts.Accumulation,
		Measures:       entity.Measures().Names(),
		TotalCost:      entity.Measures().TotalCost(),
		Order:          order,
		Outcomes:       make(map[domain.ScenarioID]Outcome, len(order)),
	}

	// order[0] is always the baseline. Scenario rows are finalized on their
	// own; only the comparison columns and cumulative accrual need it.
	reference := evals[0]
	ref := e.outcome(entity, domain.Baseline, reference, reference, opts)
	rs.Outcomes[domain.Baseline] = ref
	for i, id := range order[1:] {
		ev := evals[i+1]
		var out Outcome
		switch {
		case ev.err != nil:
			out.Err = ev.err
		case reference.err != nil && opts.Accumulation == AccumulateCumulative:
			out.Err = fmt.Errorf("%w: %w", domain.ErrReferenceUnavailable, reference.err)
		default:
			out = e.outcome(entity, id, ev, reference, opts)
			if out.Err != nil {
				break
			}
			if ref.Err != nil {
				out.Warning = errors.Join(out.Warning, fmt.Errorf("%w: %w", domain.ErrReferenceUnavailable, ref.Err))
				break
			}
			out.Result.BenefitChangePct = domain.PercentChange(out.Result.Benefit, ref.Result.Benefit)
		}
		rs.Outcomes[id] = out
	}

	for _, id := range order {
		e.record(logger, id, rs.Outcomes[id])
	}

	e.metrics.RunsTotal.Inc()
	e.metrics.RunDuration.Observe(e.clock.Since(start).Seconds())
	logger.Info("analysis completed", "failed", len(rs.Failed()), "duration", e.clock.Since(start))
	return rs, nil
}

// evaluate scales the hazard, applies the measure set, and computes both
// impacts for one scenario.
func (e *Engine) evaluate(entity domain.Entity, baseline domain.HazardField, id domain.ScenarioID, opts Options) evaluation {
	start := e.clock.Now()
	defer func() { e.metrics.ScenarioDuration.Observe(e.clock.Since(start).Seconds()) }()

	hazard := baseline
	if id != domain.Baseline {
		scaled, err := e.scaler.Scale(baseline, id, opts.ProjectionYear)
		if err != nil {
			return evaluation{err: fmt.Errorf("scale hazard: %w", err)}
		}
		hazard = scaled
	}

	before := entity.Triple(hazard)
	after, err := entity.Measures().Apply(before)
	if err != nil {
		return evaluation{err: err}
	}

	baseImpact, err := e.calc.ComputeTriple(before, domain.VariantBaseline, opts.Aggregation)
	if err != nil {
		return evaluation{err: fmt.Errorf("baseline impact: %w", err)}
	}
	measureImpact, err := e.calc.ComputeTriple(after, domain.VariantWithMeasure, opts.Aggregation)
	if err != nil {
		return evaluation{err: fmt.Errorf("with-measure impact: %w", err)}
	}
	e.metrics.CentroidsEvaluated.Add(float64(2 * hazard.Len()))

	return evaluation{
		maxIntensity: hazard.MaxIntensity(),
		before:       baseImpact,
		after:        measureImpact,
	}
}

func (e *Engine) outcome(entity domain.Entity, id domain.ScenarioID, ev, reference evaluation, opts Options) Outcome {
	if ev.err != nil {
		return Outcome{Err: ev.err}
	}
	res, err := e.finalize(entity, id, ev, reference, opts)
	if err != nil {
		return Outcome{Err: err}
	}
	out := Outcome{Result: res}
	if res.MeasureIncreasesRisk {
		out.Warning = domain.ErrMeasureIncreasesRisk
	}
	return out
}

// finalize discounts one evaluation into a result row. BenefitChangePct is
// filled in by Run once the baseline row is known. reference is only read in
// cumulative mode and for MaxIntensityChangePct.
func (e *Engine) finalize(entity domain.Entity, id domain.ScenarioID, ev, reference evaluation, opts Options) (domain.CostBenefitResult, error) {
	discount := entity.Discount()
	factor, err := discount.PresentValueFactor(opts.BaseYear, opts.FutureYear)
	if err != nil {
		return domain.CostBenefitResult{}, err
	}

	raw := ev.before.Aggregate - ev.after.Aggregate
	benefit := raw * factor
	if opts.Accumulation == AccumulateCumulative {
		refRaw := reference.before.Aggregate - reference.after.Aggregate
		benefit, err = cumulativeBenefit(discount, opts.BaseYear, opts.FutureYear, refRaw, raw)
		if err != nil {
			return domain.CostBenefitResult{}, err
		}
	}

	cost := entity.Measures().TotalCost()
	ratio, err := benefitCostRatio(benefit, cost)
	if err != nil {
		return domain.CostBenefitResult{}, err
	}

	res := domain.CostBenefitResult{
		Scenario:             id,
		Benefit:              benefit,
		BenefitCostRatio:     ratio,
		MaxIntensity:         ev.maxIntensity,
		ResidualRisk:         ev.after.Aggregate * factor,
		BaselineDamage:       ev.before.Aggregate,
		MeasureDamage:        ev.after.Aggregate,
		RawBenefit:           raw,
		DiscountFactor:       factor,
		TotalCost:            cost,
		MeasureIncreasesRisk: raw < 0,
	}
	if id != domain.Baseline && reference.err == nil {
		res.MaxIntensityChangePct = domain.PercentChange(ev.maxIntensity, reference.maxIntensity)
	}
	return res, nil
}

// benefitCostRatio is benefit/cost. A zero cost is only defined for zero benefit.
func benefitCostRatio(benefit, cost float64) (float64, error) {
	if cost == 0 {
		if benefit != 0 {
			return 0, fmt.Errorf("%w: benefit %v", domain.ErrZeroCost, benefit)
		}
		return 0, nil
	}
	return benefit / cost, nil
}

// cumulativeBenefit sums yearly averted damage over [base, future], ramping
// linearly from the present-climate benefit to the scenario benefit.
func cumulativeBenefit(d domain.DiscountSchedule, base, future int, presentRaw, futureRaw float64) (float64, error) {
	lo, hi := min(base, future), max(base, future)
	span := float64(hi - lo)
	total := 0.0
	for y := lo; y <= hi; y++ {
		w := 1.0
		if span > 0 {
			w = float64(y-lo) / span
		}
		if future < base {
			w = 1 - w
		}
		f, err := d.PresentValueFactor(base, y)
		if err != nil {
			return 0, err
		}
		total += (presentRaw + (futureRaw-presentRaw)*w) * f
	}
	return total, nil
}

func (e *Engine) record(logger *slog.Logger, id domain.ScenarioID, out Outcome) {
	if out.Err != nil {
		e.metrics.ScenariosEvaluated.WithLabelValues("failed").Inc()
		level := slog.LevelWarn
		if errors.Is(out.Err, context.Canceled) {
			level = slog.LevelInfo
		}
		logger.Log(context.Background(), level, "scenario failed", "scenario", id, "error", out.Err)
		return
	}
	e.metrics.ScenariosEvaluated.WithLabelValues("ok").Inc()
	if errors.Is(out.Warning, domain.ErrReferenceUnavailable) {
		logger.Warn("scenario has no baseline comparison", "scenario", id, "error", out.Warning)
	}
	if out.Result.MeasureIncreasesRisk {
		e.metrics.MeasureIncreasesRisk.Inc()
		logger.Warn("measure increases risk",
			"scenario", id,
			"error", domain.ErrMeasureIncreasesRisk,
			"raw_benefit", out.Result.RawBenefit,
		)
	}
	logger.Debug("scenario evaluated",
		"scenario", id,
		"benefit", out.Result.Benefit,
		"benefit_cost_ratio", out.Result.BenefitCostRatio,
		"residual_risk", out.Result.ResidualRisk,
		"max_intensity", out.Result.MaxIntensity,
	)
}

// scenarioOrder puts the baseline first and drops duplicates.
func scenarioOrder(scenarios []domain.ScenarioID) []domain.ScenarioID {
	order := make([]domain.ScenarioID, 0, len(scenarios)+1)
	order = append(order, domain.Baseline)
	seen := map[domain.ScenarioID]bool{domain.Baseline: true}
	for _, id := range scenarios {
		if seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}
	return order
}
