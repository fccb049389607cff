package track

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
)

func lineGrid(t *testing.T) *domain.CentroidGrid {
	t.Helper()
	// Points due east of the track at roughly 0, 50, 100 and 1000 km.
	g, err := domain.NewGrid([]orb.Point{{-90, 29}, {-89.486, 29}, {-88.972, 29}, {-79.7, 29}})
	require.NoError(t, err)
	return g
}

func TestDerive(t *testing.T) {
	g := lineGrid(t)
	tr := Track{ID: "storm-1", Samples: []Sample{{Position: orb.Point{-90, 29}, MaxWind: 60}}}

	h, err := Derive(g, tr, Options{RadiusMaxWind: 30_000, MaxDistance: 500_000})
	require.NoError(t, err)

	got := h.Intensities()
	assert.Equal(t, 60.0, got[0], "inside the radius of maximum wind")
	assert.Less(t, got[1], 60.0)
	assert.Greater(t, got[1], got[2], "wind decays with distance")
	assert.Zero(t, got[3], "beyond the maximum distance")

	assert.Equal(t, domain.HazardType("TC"), h.HazardType())
	assert.Equal(t, domain.Baseline, h.Scenario())
	assert.Equal(t, "storm-1", h.EventID())
}

func TestDerive_MaxOverSamples(t *testing.T) {
	g := lineGrid(t)
	tr := Track{ID: "storm-2", HazardType: "TC", Samples: []Sample{
		{Position: orb.Point{-90, 29}, MaxWind: 40},
		{Position: orb.Point{-88.972, 29}, MaxWind: 55},
	}}

	h, err := Derive(g, tr, DefaultOptions)
	require.NoError(t, err)
	assert.Equal(t, 40.0, h.Intensity(0))
	assert.Equal(t, 55.0, h.Intensity(2))
}

func TestDerive_Roughness(t *testing.T) {
	g := lineGrid(t)
	tr := Track{ID: "storm-3", Samples: []Sample{{Position: orb.Point{-90, 29}, MaxWind: 60}}}

	opts := DefaultOptions
	opts.Roughness = 0.3
	opts.Seed = 42
	a, err := Derive(g, tr, opts)
	require.NoError(t, err)
	b, err := Derive(g, tr, opts)
	require.NoError(t, err)

	assert.Equal(t, a.Intensities(), b.Intensities(), "same seed, same field")
	assert.LessOrEqual(t, a.Intensity(0), 60.0)
	assert.GreaterOrEqual(t, a.Intensity(0), 60.0*0.7)
}

func TestDerive_Invalid(t *testing.T) {
	g := lineGrid(t)

	_, err := Derive(g, Track{ID: "empty"}, DefaultOptions)
	require.ErrorIs(t, err, domain.ErrInvalidHazard)

	_, err = Derive(g, Track{ID: "neg", Samples: []Sample{{MaxWind: -1}}}, DefaultOptions)
	require.ErrorIs(t, err, domain.ErrInvalidHazard)

	opts := DefaultOptions
	opts.Roughness = 1
	_, err = Derive(g, Track{ID: "rough", Samples: []Sample{{MaxWind: 30}}}, opts)
	require.ErrorIs(t, err, domain.ErrInvalidHazard)
}
