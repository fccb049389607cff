package definition

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
	"github.com/couchcryptid/storm-benefit-cost/internal/impact"
	"github.com/couchcryptid/storm-benefit-cost/internal/scenario"
	"github.com/couchcryptid/storm-benefit-cost/internal/track"
)

// Analysis holds everything engine.Run needs.
type Analysis struct {
	Name      string
	Entity    domain.Entity
	Hazard    domain.HazardField
	Scenarios []domain.ScenarioID
	Options   engine.Options
}

// Build validates the definition and constructs the domain objects.
//
// Scenario names that do not parse are passed through verbatim so the engine
// reports them against their own row instead of failing the whole analysis.
func (d *Definition) Build() (Analysis, error) {
	grid, err := d.Grid.Resolve()
	if err != nil {
		return Analysis{}, fmt.Errorf("grid: %w", err)
	}
	hazard, err := d.Hazard.build(grid)
	if err != nil {
		return Analysis{}, fmt.Errorf("hazard: %w", err)
	}
	exposure, err := d.Exposure.build(grid, hazard.HazardType())
	if err != nil {
		return Analysis{}, fmt.Errorf("exposure: %w", err)
	}
	functions, err := buildFunctions(d.Functions)
	if err != nil {
		return Analysis{}, fmt.Errorf("impact functions: %w", err)
	}
	measures, err := buildMeasures(d.Measures)
	if err != nil {
		return Analysis{}, fmt.Errorf("measures: %w", err)
	}
	opts, err := d.options()
	if err != nil {
		return Analysis{}, err
	}
	discount, err := d.Discount.build(opts.BaseYear, opts.FutureYear)
	if err != nil {
		return Analysis{}, fmt.Errorf("discount: %w", err)
	}
	entity, err := domain.NewEntity(exposure, discount, functions, measures)
	if err != nil {
		return Analysis{}, err
	}

	return Analysis{
		Name:      d.Name,
		Entity:    entity,
		Hazard:    hazard,
		Scenarios: parseScenarios(d.Scenarios),
		Options:   opts,
	}, nil
}

func (d *Definition) options() (engine.Options, error) {
	opts := engine.Options{
		BaseYear:       d.BaseYear,
		FutureYear:     d.FutureYear,
		ProjectionYear: d.ProjectionYear,
	}
	if d.Aggregation != "" {
		agg, err := impact.ParseAggregation(d.Aggregation)
		if err != nil {
			return engine.Options{}, err
		}
		opts.Aggregation = agg
	}
	switch engine.Accumulation(d.Accumulation) {
	case "", engine.AccumulatePoint, engine.AccumulateCumulative:
		opts.Accumulation = engine.Accumulation(d.Accumulation)
	default:
		return engine.Options{}, fmt.Errorf("unknown accumulation %q", d.Accumulation)
	}
	if opts.BaseYear == 0 {
		opts.BaseYear = engine.DefaultBaseYear
	}
	if opts.FutureYear == 0 {
		opts.FutureYear = engine.DefaultFutureYear
	}
	return opts, nil
}

func parseScenarios(names []string) []domain.ScenarioID {
	ids := make([]domain.ScenarioID, 0, len(names))
	for _, name := range names {
		id, err := scenario.Parse(name)
		if err != nil {
			id = domain.ScenarioID(name)
		}
		ids = append(ids, id)
	}
	return ids
}

// Resolve builds the centroid grid g describes.
func (g GridDef) Resolve() (*domain.CentroidGrid, error) {
	switch {
	case g.Bounds != nil && len(g.Points) > 0:
		return nil, fmt.Errorf("%w: bounds and points are mutually exclusive", domain.ErrInvalidGridSpec)
	case g.Bounds != nil:
		b := orb.Bound{
			Min: orb.Point{g.Bounds.MinLon, g.Bounds.MinLat},
			Max: orb.Point{g.Bounds.MaxLon, g.Bounds.MaxLat},
		}
		return domain.BuildGrid(b, g.Resolution)
	case len(g.Points) > 0:
		points := make([]orb.Point, len(g.Points))
		for i, p := range g.Points {
			points[i] = orb.Point{p.Lon, p.Lat}
		}
		return domain.NewGrid(points)
	default:
		return nil, fmt.Errorf("%w: bounds or points required", domain.ErrInvalidGridSpec)
	}
}

func (h HazardDef) build(grid *domain.CentroidGrid) (domain.HazardField, error) {
	ht := domain.HazardType(h.Type)
	if ht == "" {
		ht = "TC"
	}
	switch {
	case h.Track != nil && len(h.Intensities) > 0:
		return domain.HazardField{}, fmt.Errorf("%w: intensities and track are mutually exclusive", domain.ErrInvalidHazard)
	case h.Track != nil:
		t := track.Track{ID: h.EventID, HazardType: ht}
		for _, s := range h.Track.Samples {
			t.Samples = append(t.Samples, track.Sample{Position: orb.Point{s.Lon, s.Lat}, MaxWind: s.MaxWind})
		}
		opts := track.DefaultOptions
		if h.Track.RadiusMaxWindKm > 0 {
			opts.RadiusMaxWind = h.Track.RadiusMaxWindKm * 1000
		}
		if h.Track.MaxDistanceKm > 0 {
			opts.MaxDistance = h.Track.MaxDistanceKm * 1000
		}
		opts.Roughness = h.Track.Roughness
		opts.Seed = h.Track.Seed
		return track.Derive(grid, t, opts)
	default:
		return domain.NewHazardField(grid, h.EventID, domain.Baseline, ht, h.Intensities)
	}
}

func (e ExposureDef) build(grid *domain.CentroidGrid, fallback domain.HazardType) (domain.ExposureLayer, error) {
	ht := domain.HazardType(e.HazardType)
	if ht == "" {
		ht = fallback
	}
	values := e.Values
	if len(values) == 0 && e.UniformValue != 0 {
		values = make([]float64, grid.Len())
		for i := range values {
			values[i] = e.UniformValue
		}
	}
	return domain.NewExposureLayer(grid, e.Basis, ht, values)
}

func buildFunctions(defs []FunctionDef) (domain.ImpactFunctionSet, error) {
	if len(defs) == 0 {
		return domain.ImpactFunctionSet{}, errors.New("at least one impact function is required")
	}
	funcs := make([]domain.ImpactFunction, 0, len(defs))
	for _, fd := range defs {
		ht := domain.HazardType(fd.HazardType)
		var (
			f   domain.ImpactFunction
			err error
		)
		if fd.Emanuel != nil {
			p := domain.DefaultEmanuelParams
			if fd.Emanuel.Threshold != 0 {
				p.Threshold = fd.Emanuel.Threshold
			}
			if fd.Emanuel.Half != 0 {
				p.Half = fd.Emanuel.Half
			}
			if fd.Emanuel.Scale != 0 {
				p.Scale = fd.Emanuel.Scale
			}
			f, err = domain.NewEmanuelFunction(fd.Name, ht, p)
		} else {
			f, err = domain.NewImpactFunction(fd.Name, ht, fd.Intensity, fd.MDD, fd.PAA)
		}
		if err != nil {
			return domain.ImpactFunctionSet{}, fmt.Errorf("%s: %w", fd.Name, err)
		}
		funcs = append(funcs, f)
	}
	return domain.NewImpactFunctionSet(funcs...)
}

func buildMeasures(defs []MeasureDef) (domain.MeasureSet, error) {
	measures := make([]domain.Measure, 0, len(defs))
	for _, md := range defs {
		var opts []domain.MeasureOption
		if md.MDD != nil {
			opts = append(opts, domain.WithMDD(*md.MDD))
		}
		if md.PAA != nil {
			opts = append(opts, domain.WithPAA(*md.PAA))
		}
		if md.Intensity != nil {
			opts = append(opts, domain.WithIntensity(*md.Intensity))
		}
		m, err := domain.NewMeasure(md.Name, domain.HazardType(md.HazardType), md.Cost, opts...)
		if err != nil {
			return domain.MeasureSet{}, err
		}
		measures = append(measures, m)
	}
	return domain.NewMeasureSet(measures...), nil
}

func (d DiscountDef) build(base, future int) (domain.DiscountSchedule, error) {
	switch {
	case len(d.Rates) > 0 && d.Rate != nil:
		return domain.DiscountSchedule{}, fmt.Errorf("%w: rate and rates are mutually exclusive", domain.ErrInvalidDiscountRate)
	case len(d.Rates) > 0:
		return domain.NewDiscountSchedule(d.Rates)
	case d.Rate != nil:
		return domain.ConstantDiscountSchedule(*d.Rate, min(base, future), max(base, future))
	default:
		return domain.ConstantDiscountSchedule(domain.DefaultDiscountRate, min(base, future), max(base, future))
	}
}
