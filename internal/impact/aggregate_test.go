package impact

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairwiseSum(t *testing.T) {
	assert.Zero(t, PairwiseSum(nil))
	assert.Equal(t, 6.0, PairwiseSum([]float64{1, 2, 3}))

	xs := make([]float64, 10*BlockSize+17)
	for i := range xs {
		xs[i] = 1
	}
	assert.Equal(t, float64(len(xs)), PairwiseSum(xs))
}

func TestPairwiseSum_Stable(t *testing.T) {
	xs := make([]float64, 5000)
	for i := range xs {
		xs[i] = math.Sin(float64(i)) * 1e9
	}
	first := PairwiseSum(xs)
	for range 10 {
		assert.Equal(t, math.Float64bits(first), math.Float64bits(PairwiseSum(xs)))
	}
}

func TestAggregations(t *testing.T) {
	damages := []float64{0, 10, 20, 30, 40}

	assert.Equal(t, 20.0, Mean{}.Aggregate(damages))
	assert.Equal(t, 100.0, Total{}.Aggregate(damages))
	assert.Zero(t, Mean{}.Aggregate(nil))
	assert.Zero(t, ReturnPeriod{Years: 10}.Aggregate(nil))

	// 1 - 1/4 = 0.75: the empirical quantile picks the 4th of 5 sorted values.
	assert.Equal(t, 30.0, ReturnPeriod{Years: 4}.Aggregate([]float64{40, 0, 30, 10, 20}))
	assert.Equal(t, 40.0, ReturnPeriod{Years: 1000}.Aggregate(damages))
}

func TestParseAggregation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "mean"},
		{"mean", "mean"},
		{"AAI", "mean"},
		{"total", "total"},
		{"sum", "total"},
		{"rp250", "rp250"},
		{" RP10.5 ", "rp10.5"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			agg, err := ParseAggregation(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, agg.Name())
		})
	}

	for _, bad := range []string{"median", "rp", "rp1", "rpx", "rp-5", "rpnan", "rpInf"} {
		_, err := ParseAggregation(bad)
		assert.Error(t, err, bad)
	}
}
