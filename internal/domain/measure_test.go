package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTriple(t *testing.T) Triple {
	t.Helper()
	g := testGrid(t, 2)
	exp, err := NewExposureLayer(g, "gdp", "TC", []float64{100, 200})
	require.NoError(t, err)
	funcs, err := NewImpactFunctionSet(stepCurve(t))
	require.NoError(t, err)
	haz, err := NewHazardField(g, "evt", Baseline, "TC", []float64{45, 75})
	require.NoError(t, err)
	return Triple{Exposure: exp, Functions: funcs, Hazard: haz}
}

func TestNewMeasure(t *testing.T) {
	m, err := NewMeasure("seawall", "TC", 1e8)
	require.NoError(t, err)
	assert.True(t, m.MDDTransform().IsIdentity())
	assert.True(t, m.PAATransform().IsIdentity())
	assert.True(t, m.IntensityTransform().IsIdentity())
	assert.True(t, m.ExposureTransform().IsIdentity())

	tests := []struct {
		name string
		ht   HazardType
		cost float64
		opts []MeasureOption
	}{
		{"negative cost", "TC", -1, nil},
		{"NaN cost", "TC", math.NaN(), nil},
		{"no hazard type", "", 1, nil},
		{"infinite shift", "TC", 1, []MeasureOption{WithIntensity(Transform{Scale: 1, Shift: math.Inf(-1)})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMeasure("m", tt.ht, tt.cost, tt.opts...)
			require.ErrorIs(t, err, ErrInvalidMeasure)
		})
	}
}

func TestApplyMeasure(t *testing.T) {
	t.Run("intensity shift leaves input untouched", func(t *testing.T) {
		in := testTriple(t)
		m, err := NewMeasure("seawall", "TC", 1, WithIntensity(Transform{Scale: 1, Shift: -50}))
		require.NoError(t, err)

		out, err := ApplyMeasure(m, in)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 25}, out.Hazard.Intensities())
		assert.Equal(t, []float64{45, 75}, in.Hazard.Intensities())
	})

	t.Run("mdd scale", func(t *testing.T) {
		in := testTriple(t)
		m, err := NewMeasure("code", "TC", 1, WithMDD(Transform{Scale: 0.5}))
		require.NoError(t, err)

		out, err := ApplyMeasure(m, in)
		require.NoError(t, err)
		f, _ := out.Functions.Lookup("TC")
		mdd, _ := f.Evaluate(90)
		assert.InDelta(t, 0.5, mdd, 1e-12)

		orig, _ := in.Functions.Lookup("TC")
		mdd, _ = orig.Evaluate(90)
		assert.InDelta(t, 1.0, mdd, 1e-12)
	})

	t.Run("other hazard type is untouched", func(t *testing.T) {
		in := testTriple(t)
		m, err := NewMeasure("levee", "FL", 1,
			WithIntensity(Transform{Scale: 0, Shift: 0}),
			WithMDD(Transform{Scale: 0, Shift: 0}),
		)
		require.NoError(t, err)

		out, err := ApplyMeasure(m, in)
		require.NoError(t, err)
		assert.Equal(t, in.Hazard.Intensities(), out.Hazard.Intensities())
		f, _ := out.Functions.Lookup("TC")
		mdd, _ := f.Evaluate(90)
		assert.InDelta(t, 1.0, mdd, 1e-12)
	})

	t.Run("non-monotone result is rejected", func(t *testing.T) {
		in := testTriple(t)
		m, err := NewMeasure("odd", "TC", 1, WithMDD(Transform{Scale: -1, Shift: 1}))
		require.NoError(t, err)

		_, err = ApplyMeasure(m, in)
		require.ErrorIs(t, err, ErrMeasureInvalidatesCurve)
	})

	t.Run("exposure transform", func(t *testing.T) {
		in := testTriple(t)
		m, err := NewMeasure("retreat", "TC", 1, WithExposure(Transform{Scale: 0.5}))
		require.NoError(t, err)

		out, err := ApplyMeasure(m, in)
		require.NoError(t, err)
		assert.Equal(t, []float64{50, 100}, out.Exposure.Values())
	})
}

func TestMeasureSet(t *testing.T) {
	a, err := NewMeasure("a", "TC", 10, WithIntensity(Transform{Scale: 1, Shift: -10}))
	require.NoError(t, err)
	b, err := NewMeasure("b", "TC", 5, WithIntensity(Transform{Scale: 0.5}))
	require.NoError(t, err)

	set := NewMeasureSet(a, b)
	assert.Equal(t, 15.0, set.TotalCost())
	assert.Equal(t, []string{"a", "b"}, set.Names())

	in := testTriple(t)
	out, err := set.Apply(in)
	require.NoError(t, err)
	// (45-10)*0.5, (75-10)*0.5: order matters.
	assert.Equal(t, []float64{17.5, 32.5}, out.Hazard.Intensities())

	empty := NewMeasureSet()
	same, err := empty.Apply(in)
	require.NoError(t, err)
	assert.Equal(t, in.Hazard.Intensities(), same.Hazard.Intensities())
	assert.Zero(t, empty.TotalCost())
}

func TestMeasure_Options(t *testing.T) {
	mdd := Transform{Scale: 0.5}
	paa := Transform{Scale: 0.8}
	intensity := Transform{Scale: 1, Shift: -3}
	m, err := NewMeasure("levee", "TC", 2e6, WithMDD(mdd), WithPAA(paa), WithIntensity(intensity))
	require.NoError(t, err)

	assert.Equal(t, "levee", m.Name())
	assert.Equal(t, HazardType("TC"), m.HazardType())
	assert.Equal(t, 2e6, m.Cost())
	assert.Equal(t, mdd, m.MDDTransform())
	assert.Equal(t, paa, m.PAATransform())
	assert.Equal(t, intensity, m.IntensityTransform())
	assert.Equal(t, Transform{Scale: 1}, m.ExposureTransform(), "unset transforms are the identity")
}
