package domain

import (
	"fmt"
	"math"
	"sort"
)

// DefaultDiscountRate is the constant annual rate used when an analysis does
// not supply its own table.
const DefaultDiscountRate = 0.014

// DiscountSchedule maps years to annual discount rates in [0,1).
// Years missing from the table take the rate of the nearest earlier year; years
// before the first entry take the first entry's rate.
type DiscountSchedule struct {
	years []int
	rates []float64
}

// NewDiscountSchedule validates every rate.
func NewDiscountSchedule(rates map[int]float64) (DiscountSchedule, error) {
	if len(rates) == 0 {
		return DiscountSchedule{}, fmt.Errorf("%w: empty schedule", ErrInvalidDiscountRate)
	}
	years := make([]int, 0, len(rates))
	for y, r := range rates {
		if r < 0 || r >= 1 || math.IsNaN(r) {
			return DiscountSchedule{}, fmt.Errorf("%w: year %d rate %v outside [0,1)", ErrInvalidDiscountRate, y, r)
		}
		years = append(years, y)
	}
	sort.Ints(years)
	ordered := make([]float64, len(years))
	for i, y := range years {
		ordered[i] = rates[y]
	}
	return DiscountSchedule{years: years, rates: ordered}, nil
}

// ConstantDiscountSchedule applies rate to every year in [from, to].
func ConstantDiscountSchedule(rate float64, from, to int) (DiscountSchedule, error) {
	if to < from {
		return DiscountSchedule{}, fmt.Errorf("%w: year range %d..%d", ErrInvalidDiscountRate, from, to)
	}
	rates := make(map[int]float64, to-from+1)
	for y := from; y <= to; y++ {
		rates[y] = rate
	}
	return NewDiscountSchedule(rates)
}

// Rate returns the rate that applies in year.
func (d DiscountSchedule) Rate(year int) float64 {
	if len(d.years) == 0 {
		return 0
	}
	// Index of the first entry after year; the entry before it applies.
	i := sort.SearchInts(d.years, year+1)
	if i == 0 {
		return d.rates[0]
	}
	return d.rates[i-1]
}

// Years returns the explicitly tabulated years in ascending order.
func (d DiscountSchedule) Years() []int { return append([]int(nil), d.years...) }

// PresentValueFactor discounts a value realized in target back to base:
//
//	PV(target) = ∏_{t=base}^{target-1} 1/(1+rate(t))
//
// A target before base compounds forward instead, giving a factor >= 1.
func (d DiscountSchedule) PresentValueFactor(base, target int) (float64, error) {
	if target == base {
		return 1, nil
	}
	lo, hi := base, target
	if target < base {
		lo, hi = target, base
	}
	growth := 1.0
	for t := lo; t < hi; t++ {
		r := d.Rate(t)
		if r < 0 || r >= 1 {
			return 0, fmt.Errorf("%w: year %d rate %v", ErrInvalidDiscountRate, t, r)
		}
		growth *= 1 + r
	}
	if target < base {
		return growth, nil
	}
	return 1 / growth, nil
}
