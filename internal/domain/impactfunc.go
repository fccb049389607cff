package domain

import (
	"fmt"
	"math"
	"sort"
)

// ImpactFunction is a vulnerability curve: it maps hazard intensity to the mean
// damage degree (MDD) and the probability of an asset being affected (PAA).
// Both curves are tabulated at shared intensity breakpoints, lie in [0,1],
// and are non-decreasing. Between breakpoints values are linearly
// interpolated; outside the table the nearest end value holds.
type ImpactFunction struct {
	name       string
	hazardType HazardType
	intensity  []float64
	mdd        []float64
	paa        []float64
}

// NewImpactFunction validates and copies a tabulated curve. MDD and PAA values
// are clamped to [0,1] before the monotonicity check.
func NewImpactFunction(name string, hazardType HazardType, intensity, mdd, paa []float64) (ImpactFunction, error) {
	if hazardType == "" {
		return ImpactFunction{}, fmt.Errorf("%w: %q has no hazard type", ErrInvalidImpactFunction, name)
	}
	if len(intensity) == 0 {
		return ImpactFunction{}, fmt.Errorf("%w: %q has no breakpoints", ErrInvalidImpactFunction, name)
	}
	if len(mdd) != len(intensity) || len(paa) != len(intensity) {
		return ImpactFunction{}, fmt.Errorf("%w: %q has %d intensities, %d mdd, %d paa values",
			ErrInvalidImpactFunction, name, len(intensity), len(mdd), len(paa))
	}
	for i, x := range intensity {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ImpactFunction{}, fmt.Errorf("%w: %q intensity %d is %v", ErrInvalidImpactFunction, name, i, x)
		}
		if i > 0 && x <= intensity[i-1] {
			return ImpactFunction{}, fmt.Errorf("%w: %q intensities must be strictly increasing", ErrInvalidImpactFunction, name)
		}
	}

	f := ImpactFunction{
		name:       name,
		hazardType: hazardType,
		intensity:  append([]float64(nil), intensity...),
		mdd:        clampUnitAll(mdd),
		paa:        clampUnitAll(paa),
	}
	if err := f.checkMonotonic(); err != nil {
		return ImpactFunction{}, fmt.Errorf("%w: %v", ErrInvalidImpactFunction, err)
	}
	return f, nil
}

// EmanuelParams parametrizes the Emanuel (2011) wind damage sigmoid.
type EmanuelParams struct {
	Threshold float64 // wind speed below which no damage occurs (m/s)
	Half      float64 // wind speed at which MDD reaches half of Scale (m/s)
	Scale     float64 // MDD saturation level in (0,1]
	Max       float64 // last sampled intensity (m/s)
	Step      float64 // sampling step (m/s)
}

// DefaultEmanuelParams is the USA calibration.
var DefaultEmanuelParams = EmanuelParams{Threshold: 25.7, Half: 74.7, Scale: 1.0, Max: 120, Step: 5}

// NewEmanuelFunction samples the Emanuel sigmoid onto breakpoints. PAA is 1
// at every breakpoint.
func NewEmanuelFunction(name string, hazardType HazardType, p EmanuelParams) (ImpactFunction, error) {
	if p.Half <= p.Threshold || p.Scale <= 0 || p.Scale > 1 || p.Step <= 0 || p.Max <= 0 {
		return ImpactFunction{}, fmt.Errorf("%w: %q emanuel parameters %+v", ErrInvalidImpactFunction, name, p)
	}
	n := int(math.Floor(p.Max/p.Step+gridEpsilon)) + 1
	intensity := make([]float64, n)
	mdd := make([]float64, n)
	paa := make([]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i) * p.Step
		x := math.Max(v-p.Threshold, 0) / (p.Half - p.Threshold)
		x3 := x * x * x
		intensity[i] = v
		mdd[i] = p.Scale * x3 / (1 + x3)
		paa[i] = 1
	}
	return NewImpactFunction(name, hazardType, intensity, mdd, paa)
}

// Name returns the curve name.
func (f ImpactFunction) Name() string { return f.name }

// HazardType returns the peril the curve applies to.
func (f ImpactFunction) HazardType() HazardType { return f.hazardType }

// Breakpoints returns copies of the tabulated curve.
func (f ImpactFunction) Breakpoints() (intensity, mdd, paa []float64) {
	return append([]float64(nil), f.intensity...),
		append([]float64(nil), f.mdd...),
		append([]float64(nil), f.paa...)
}

// Evaluate returns (mdd, paa) at the given intensity.
func (f ImpactFunction) Evaluate(intensity float64) (mdd, paa float64) {
	n := len(f.intensity)
	if intensity <= f.intensity[0] {
		return f.mdd[0], f.paa[0]
	}
	if intensity >= f.intensity[n-1] {
		return f.mdd[n-1], f.paa[n-1]
	}
	// First breakpoint strictly greater than intensity; always in [1, n-1] here.
	hi := sort.Search(n, func(i int) bool { return f.intensity[i] > intensity })
	lo := hi - 1
	t := (intensity - f.intensity[lo]) / (f.intensity[hi] - f.intensity[lo])
	return lerp(f.mdd[lo], f.mdd[hi], t), lerp(f.paa[lo], f.paa[hi], t)
}

// transformed applies the MDD and PAA transforms and re-validates the curve.
func (f ImpactFunction) transformed(mddT, paaT Transform) (ImpactFunction, error) {
	out := ImpactFunction{
		name:       f.name,
		hazardType: f.hazardType,
		intensity:  append([]float64(nil), f.intensity...),
		mdd:        make([]float64, len(f.mdd)),
		paa:        make([]float64, len(f.paa)),
	}
	for i := range f.mdd {
		out.mdd[i] = clampUnit(mddT.apply(f.mdd[i]))
		out.paa[i] = clampUnit(paaT.apply(f.paa[i]))
	}
	if err := out.checkMonotonic(); err != nil {
		return ImpactFunction{}, fmt.Errorf("%w: %q: %v", ErrMeasureInvalidatesCurve, f.name, err)
	}
	return out, nil
}

func (f ImpactFunction) checkMonotonic() error {
	for i := 1; i < len(f.intensity); i++ {
		if f.mdd[i] < f.mdd[i-1] {
			return fmt.Errorf("mdd decreases at intensity %v", f.intensity[i])
		}
		if f.paa[i] < f.paa[i-1] {
			return fmt.Errorf("paa decreases at intensity %v", f.intensity[i])
		}
	}
	return nil
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func clampUnitAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = clampUnit(v)
	}
	return out
}

// ImpactFunctionSet holds at most one impact function per hazard type.
type ImpactFunctionSet struct {
	funcs map[HazardType]ImpactFunction
}

// NewImpactFunctionSet fails on duplicate hazard types.
func NewImpactFunctionSet(funcs ...ImpactFunction) (ImpactFunctionSet, error) {
	m := make(map[HazardType]ImpactFunction, len(funcs))
	for _, f := range funcs {
		if _, dup := m[f.hazardType]; dup {
			return ImpactFunctionSet{}, fmt.Errorf("%w: duplicate function for hazard type %q", ErrInvalidImpactFunction, f.hazardType)
		}
		m[f.hazardType] = f
	}
	return ImpactFunctionSet{funcs: m}, nil
}

// Lookup returns the function for a hazard type.
func (s ImpactFunctionSet) Lookup(ht HazardType) (ImpactFunction, bool) {
	f, ok := s.funcs[ht]
	return f, ok
}

// Len returns the number of functions in the set.
func (s ImpactFunctionSet) Len() int { return len(s.funcs) }

// HazardTypes returns the covered hazard types in sorted order.
func (s ImpactFunctionSet) HazardTypes() []HazardType {
	out := make([]HazardType, 0, len(s.funcs))
	for ht := range s.funcs {
		out = append(out, ht)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// with returns a copy of the set with f replacing the entry for its hazard type.
func (s ImpactFunctionSet) with(f ImpactFunction) ImpactFunctionSet {
	m := make(map[HazardType]ImpactFunction, len(s.funcs)+1)
	for k, v := range s.funcs {
		m[k] = v
	}
	m[f.hazardType] = f
	return ImpactFunctionSet{funcs: m}
}
