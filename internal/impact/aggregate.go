package impact

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BlockSize is the leaf width of the pairwise summation tree. Each leaf is
// summed sequentially; leaves are combined by recursive halving along block
// boundaries. The partition depends only on the slice length, so a given
// damage vector always sums to the same bits.
const BlockSize = 256

// PairwiseSum sums xs with the fixed block partition described at BlockSize.
func PairwiseSum(xs []float64) float64 {
	if len(xs) <= BlockSize {
		return floats.Sum(xs)
	}
	blocks := (len(xs) + BlockSize - 1) / BlockSize
	split := (blocks / 2) * BlockSize
	return PairwiseSum(xs[:split]) + PairwiseSum(xs[split:])
}

// Aggregation reduces per-centroid damages to one risk figure.
type Aggregation interface {
	Name() string
	Aggregate(damages []float64) float64
}

// Mean is average annual damage under uniform frequency weighting: the mean
// of per-centroid damages. It is the default aggregation.
type Mean struct{}

func (Mean) Name() string { return "mean" }

func (Mean) Aggregate(damages []float64) float64 {
	if len(damages) == 0 {
		return 0
	}
	return PairwiseSum(damages) / float64(len(damages))
}

// Total is the sum of per-centroid damages.
type Total struct{}

func (Total) Name() string { return "total" }

func (Total) Aggregate(damages []float64) float64 { return PairwiseSum(damages) }

// ReturnPeriod is a tail estimate: the damage level exceeded with probability
// 1/Years, taken as the empirical quantile at 1 − 1/Years.
type ReturnPeriod struct {
	Years float64
}

func (r ReturnPeriod) Name() string {
	return "rp" + strconv.FormatFloat(r.Years, 'f', -1, 64)
}

func (r ReturnPeriod) Aggregate(damages []float64) float64 {
	if len(damages) == 0 {
		return 0
	}
	sorted := append([]float64(nil), damages...)
	sort.Float64s(sorted)
	p := 1.0
	if r.Years > 1 {
		p = 1 - 1/r.Years
	}
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// ParseAggregation maps a selector ("mean", "total", "rp250") to an
// Aggregation. An empty selector yields Mean.
func ParseAggregation(s string) (Aggregation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "mean" || s == "aai":
		return Mean{}, nil
	case s == "total" || s == "sum":
		return Total{}, nil
	case strings.HasPrefix(s, "rp"):
		years, err := strconv.ParseFloat(strings.TrimPrefix(s, "rp"), 64)
		if err != nil || years <= 1 || math.IsInf(years, 0) || math.IsNaN(years) {
			return nil, fmt.Errorf("invalid return period %q: must be a number > 1", s)
		}
		return ReturnPeriod{Years: years}, nil
	}
	return nil, fmt.Errorf("unknown risk aggregation %q", s)
}
