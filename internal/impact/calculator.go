// Package impact evaluates vulnerability curves over exposure and hazard and
// reduces the per-centroid damage to a risk figure.
package impact

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
)

// DefaultChunkSize is the number of centroids one worker evaluates per task.
const DefaultChunkSize = 4096

// Calculator computes ImpactResults. Centroid chunks are evaluated in
// parallel; each centroid writes only its own slot, and the aggregate is
// reduced from the completed damage vector, so worker count and scheduling
// never change the result.
type Calculator struct {
	workers   int
	chunkSize int
}

// NewCalculator returns a calculator using up to workers goroutines per call.
// workers <= 0 uses GOMAXPROCS.
func NewCalculator(workers int) *Calculator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Calculator{workers: workers, chunkSize: DefaultChunkSize}
}

// WithChunkSize returns a copy of c with a different chunk size.
func (c *Calculator) WithChunkSize(n int) *Calculator {
	cp := *c
	if n > 0 {
		cp.chunkSize = n
	}
	return &cp
}

// Compute evaluates damage = value · mdd · paa at every centroid and
// aggregates with agg (Mean when nil).
func (c *Calculator) Compute(exposure domain.ExposureLayer, functions domain.ImpactFunctionSet, hazard domain.HazardField, agg Aggregation) (domain.ImpactResult, error) {
	if agg == nil {
		agg = Mean{}
	}
	n := exposure.Len()
	if hazard.Len() != n {
		return domain.ImpactResult{}, fmt.Errorf("%w: exposure has %d centroids, hazard has %d", domain.ErrGridMismatch, n, hazard.Len())
	}

	damages := make([]float64, n)
	var g errgroup.Group
	g.SetLimit(c.workers)
	for start := 0; start < n; start += c.chunkSize {
		end := min(start+c.chunkSize, n)
		g.Go(func() error {
			return evaluateRange(exposure, functions, hazard, damages, start, end)
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ImpactResult{}, err
	}

	return domain.ImpactResult{
		Scenario:    hazard.Scenario(),
		Aggregation: agg.Name(),
		Damages:     damages,
		Aggregate:   agg.Aggregate(damages),
	}, nil
}

// ComputeTriple is Compute over a measure triple, tagging the result with
// the variant the triple represents.
func (c *Calculator) ComputeTriple(t domain.Triple, variant domain.Variant, agg Aggregation) (domain.ImpactResult, error) {
	res, err := c.Compute(t.Exposure, t.Functions, t.Hazard, agg)
	if err != nil {
		return domain.ImpactResult{}, err
	}
	res.Variant = variant
	return res, nil
}

func evaluateRange(exposure domain.ExposureLayer, functions domain.ImpactFunctionSet, hazard domain.HazardField, damages []float64, start, end int) error {
	// Consecutive centroids usually share a hazard type; cache the last lookup.
	var (
		lastType domain.HazardType
		curve    domain.ImpactFunction
	)
	for i := start; i < end; i++ {
		value := exposure.Value(i)
		if value == 0 {
			continue
		}
		ht := exposure.HazardTypeAt(i)
		if ht != lastType {
			f, ok := functions.Lookup(ht)
			if !ok {
				return fmt.Errorf("%w: %q (centroid %d)", domain.ErrMissingImpactFunctionForHazardType, ht, i)
			}
			curve, lastType = f, ht
		}
		mdd, paa := curve.Evaluate(hazard.Intensity(i))
		damages[i] = value * mdd * paa
	}
	return nil
}
