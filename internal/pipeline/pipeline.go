package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/storm-benefit-cost/internal/definition"
	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
	"github.com/couchcryptid/storm-benefit-cost/internal/observability"
)

// Analyzer runs one benefit-cost analysis.
type Analyzer interface {
	Run(ctx context.Context, entity domain.Entity, baseline domain.HazardField, scenarios []domain.ScenarioID, opts engine.Options) (engine.ResultSet, error)
}

// ResultLoader writes a completed result set to a destination.
type ResultLoader interface {
	LoadResults(ctx context.Context, rs engine.ResultSet) error
}

// Sink is a named ResultLoader. The name labels metrics and log lines.
type Sink struct {
	Name   string
	Loader ResultLoader
}

// ErrInvalidDefinition wraps failures to build an analysis from its definition.
var ErrInvalidDefinition = errors.New("invalid analysis definition")

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline builds an analysis from its definition, runs it, and delivers the
// result set to every sink.
type Pipeline struct {
	analyzer    Analyzer
	sinks       []Sink
	logger      *slog.Logger
	metrics     *observability.Metrics
	maxAttempts int
	workers     int
}

// New creates a Pipeline. maxAttempts bounds delivery attempts per sink;
// workers, when positive, overrides the definition's concurrency.
func New(a Analyzer, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, maxAttempts, workers int) *Pipeline {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Pipeline{
		analyzer:    a,
		sinks:       sinks,
		logger:      logger,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		workers:     workers,
	}
}

// Process runs the analysis described by def and delivers the results.
// The result set is returned even when delivery fails.
func (p *Pipeline) Process(ctx context.Context, def *definition.Definition) (engine.ResultSet, error) {
	analysis, err := def.Build()
	if err != nil {
		return engine.ResultSet{}, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if p.workers > 0 {
		analysis.Options.Workers = p.workers
	}

	rs, err := p.analyzer.Run(ctx, analysis.Entity, analysis.Hazard, analysis.Scenarios, analysis.Options)
	if err != nil {
		return engine.ResultSet{}, err
	}

	var errs []error
	for _, s := range p.sinks {
		if err := p.deliver(ctx, s, rs); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return rs, err
	}

	p.metrics.LastDelivery.SetToCurrentTime()
	return rs, nil
}

// deliver writes rs to one sink, retrying with exponential backoff.
func (p *Pipeline) deliver(ctx context.Context, s Sink, rs engine.ResultSet) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		start := time.Now()
		err = s.Loader.LoadResults(ctx, rs)
		p.metrics.SinkWriteDuration.WithLabelValues(s.Name).Observe(time.Since(start).Seconds())
		if err == nil {
			p.metrics.SinkWrites.WithLabelValues(s.Name, "success").Inc()
			return nil
		}
		p.metrics.SinkWrites.WithLabelValues(s.Name, "error").Inc()
		p.logger.Error("load results failed",
			"error", err,
			"sink", s.Name,
			"run_id", rs.RunID,
			"attempt", attempt,
		)
		if attempt == p.maxAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
