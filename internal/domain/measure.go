package domain

import (
	"fmt"
	"math"
)

// Transform is an affine adjustment: new = old*Scale + Shift. The caller
// clamps the result to the valid range of the quantity being transformed.
type Transform struct {
	Scale float64 `json:"scale" yaml:"scale"`
	Shift float64 `json:"shift" yaml:"shift"`
}

// Identity leaves values unchanged.
var Identity = Transform{Scale: 1, Shift: 0}

// IsIdentity reports whether t leaves every value unchanged.
func (t Transform) IsIdentity() bool { return t.Scale == 1 && t.Shift == 0 }

func (t Transform) apply(v float64) float64 { return v*t.Scale + t.Shift }

func (t Transform) valid() bool {
	return !math.IsNaN(t.Scale) && !math.IsInf(t.Scale, 0) && !math.IsNaN(t.Shift) && !math.IsInf(t.Shift, 0)
}

// Measure models an adaptation intervention: its implementation cost and its
// effect on the vulnerability curves and hazard intensity of one hazard type.
type Measure struct {
	name       string
	hazardType HazardType
	cost       float64
	mdd        Transform
	paa        Transform
	intensity  Transform
	exposure   Transform
}

// MeasureOption sets one of a measure's transforms. Unset transforms are the
// identity.
type MeasureOption func(*Measure)

// WithMDD sets the transform applied to mean damage degree.
func WithMDD(t Transform) MeasureOption { return func(m *Measure) { m.mdd = t } }

// WithPAA sets the transform applied to the percentage of affected assets.
func WithPAA(t Transform) MeasureOption { return func(m *Measure) { m.paa = t } }

// WithIntensity sets the transform applied to hazard intensity.
func WithIntensity(t Transform) MeasureOption { return func(m *Measure) { m.intensity = t } }

// WithExposure sets an exposure value transform. No shipped measure uses one;
// exposure passes through unchanged by default.
func WithExposure(t Transform) MeasureOption { return func(m *Measure) { m.exposure = t } }

// NewMeasure validates a measure definition.
func NewMeasure(name string, hazardType HazardType, cost float64, opts ...MeasureOption) (Measure, error) {
	m := Measure{
		name:       name,
		hazardType: hazardType,
		cost:       cost,
		mdd:        Identity,
		paa:        Identity,
		intensity:  Identity,
		exposure:   Identity,
	}
	for _, opt := range opts {
		opt(&m)
	}

	if name == "" {
		return Measure{}, fmt.Errorf("%w: empty name", ErrInvalidMeasure)
	}
	if hazardType == "" {
		return Measure{}, fmt.Errorf("%w: %q has no hazard type", ErrInvalidMeasure, name)
	}
	if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return Measure{}, fmt.Errorf("%w: %q cost %v", ErrInvalidMeasure, name, cost)
	}
	for label, t := range map[string]Transform{"mdd": m.mdd, "paa": m.paa, "intensity": m.intensity, "exposure": m.exposure} {
		if !t.valid() {
			return Measure{}, fmt.Errorf("%w: %q %s transform %+v", ErrInvalidMeasure, name, label, t)
		}
	}
	return m, nil
}

// Name returns the measure name.
func (m Measure) Name() string { return m.name }

// HazardType returns the peril the measure acts on.
func (m Measure) HazardType() HazardType { return m.hazardType }

// Cost returns the implementation cost.
func (m Measure) Cost() float64 { return m.cost }

// MDDTransform returns the mean damage degree transform.
func (m Measure) MDDTransform() Transform { return m.mdd }

// PAATransform returns the affected-assets transform.
func (m Measure) PAATransform() Transform { return m.paa }

// IntensityTransform returns the hazard intensity transform.
func (m Measure) IntensityTransform() Transform { return m.intensity }

// ExposureTransform returns the asset value transform.
func (m Measure) ExposureTransform() Transform { return m.exposure }

// Triple is the unit a measure acts on.
type Triple struct {
	Exposure  ExposureLayer
	Functions ImpactFunctionSet
	Hazard    HazardField
}

// ApplyMeasure returns a transformed copy of the triple. The input is never
// modified. Curves are transformed only for the measure's hazard type; the
// intensity transform only touches a hazard field of that type.
func ApplyMeasure(m Measure, in Triple) (Triple, error) {
	out := in

	if f, ok := in.Functions.Lookup(m.hazardType); ok && !(m.mdd.IsIdentity() && m.paa.IsIdentity()) {
		tf, err := f.transformed(m.mdd, m.paa)
		if err != nil {
			return Triple{}, fmt.Errorf("apply measure %q: %w", m.name, err)
		}
		out.Functions = in.Functions.with(tf)
	}

	if !m.intensity.IsIdentity() && in.Hazard.HazardType() == m.hazardType {
		out.Hazard = in.Hazard.Map("", func(_ int, v float64) float64 { return m.intensity.apply(v) })
	}

	if !m.exposure.IsIdentity() {
		out.Exposure = in.Exposure.mapValues(m.exposure.apply)
	}

	return out, nil
}

// MeasureSet is an ordered sequence of measures applied one after another.
type MeasureSet struct {
	measures []Measure
}

// NewMeasureSet copies the given measures.
func NewMeasureSet(measures ...Measure) MeasureSet {
	return MeasureSet{measures: append([]Measure(nil), measures...)}
}

// Len returns the number of measures.
func (s MeasureSet) Len() int { return len(s.measures) }

// Measures returns a copy of the sequence.
func (s MeasureSet) Measures() []Measure { return append([]Measure(nil), s.measures...) }

// TotalCost sums implementation costs.
func (s MeasureSet) TotalCost() float64 {
	total := 0.0
	for _, m := range s.measures {
		total += m.cost
	}
	return total
}

// Names lists measure names in application order.
func (s MeasureSet) Names() []string {
	out := make([]string, len(s.measures))
	for i, m := range s.measures {
		out[i] = m.name
	}
	return out
}

// Apply folds every measure over the triple in order. An empty set returns the
// input unchanged.
func (s MeasureSet) Apply(in Triple) (Triple, error) {
	out := in
	for _, m := range s.measures {
		next, err := ApplyMeasure(m, out)
		if err != nil {
			return Triple{}, err
		}
		out = next
	}
	return out, nil
}
