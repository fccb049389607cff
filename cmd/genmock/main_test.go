package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-benefit-cost/internal/definition"
)

func testOptions(seed int64) options {
	return options{
		seed:       seed,
		resolution: 0.5,
		bounds:     definition.BoundsDef{MinLat: 28.5, MaxLat: 30.5, MinLon: -91.5, MaxLon: -89.0},
		exposure:   1e9,
	}
}

func TestGenerate_Builds(t *testing.T) {
	def, err := generate(testOptions(7))
	require.NoError(t, err)

	a, err := def.Build()
	require.NoError(t, err)
	assert.Equal(t, 5*6, a.Hazard.Len())
	assert.Len(t, a.Scenarios, 4)
	assert.Greater(t, a.Hazard.MaxIntensity(), 0.0)
	for _, v := range def.Exposure.Values {
		assert.Greater(t, v, 0.0)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := generate(testOptions(3))
	require.NoError(t, err)
	b, err := generate(testOptions(3))
	require.NoError(t, err)

	if diff := cmp.Diff(a.Exposure.Values, b.Exposure.Values); diff != "" {
		t.Errorf("exposure differs between runs (-a +b):\n%s", diff)
	}
}

func TestGenerate_InvalidGrid(t *testing.T) {
	o := testOptions(1)
	o.resolution = 0
	_, err := generate(o)
	require.Error(t, err)
}
