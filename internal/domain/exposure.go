package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ExposureLayer holds the asset value at each centroid and the hazard type
// whose impact function applies to each entry.
type ExposureLayer struct {
	basis       string
	grid        *CentroidGrid
	values      []float64
	hazardTypes []HazardType
}

// NewExposureLayer tags every entry with the same hazard type.
func NewExposureLayer(grid *CentroidGrid, basis string, hazardType HazardType, values []float64) (ExposureLayer, error) {
	tags := make([]HazardType, len(values))
	for i := range tags {
		tags[i] = hazardType
	}
	return NewTaggedExposureLayer(grid, basis, values, tags)
}

// NewTaggedExposureLayer accepts a per-entry hazard type tag.
func NewTaggedExposureLayer(grid *CentroidGrid, basis string, values []float64, hazardTypes []HazardType) (ExposureLayer, error) {
	if grid == nil {
		return ExposureLayer{}, fmt.Errorf("%w: nil grid", ErrInvalidExposure)
	}
	if err := grid.checkAligned(len(values), "exposure"); err != nil {
		return ExposureLayer{}, err
	}
	if len(hazardTypes) != len(values) {
		return ExposureLayer{}, fmt.Errorf("%w: %d hazard type tags for %d values", ErrInvalidExposure, len(hazardTypes), len(values))
	}
	for i, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return ExposureLayer{}, fmt.Errorf("%w: centroid %d value %v", ErrInvalidExposure, i, v)
		}
		if hazardTypes[i] == "" {
			return ExposureLayer{}, fmt.Errorf("%w: centroid %d has no hazard type", ErrInvalidExposure, i)
		}
	}

	ownedValues := make([]float64, len(values))
	copy(ownedValues, values)
	ownedTags := make([]HazardType, len(hazardTypes))
	copy(ownedTags, hazardTypes)

	return ExposureLayer{basis: basis, grid: grid, values: ownedValues, hazardTypes: ownedTags}, nil
}

// Basis names the asset valuation basis, such as "gdp".
func (e ExposureLayer) Basis() string { return e.basis }

// Grid returns the centroid grid the values are defined on.
func (e ExposureLayer) Grid() *CentroidGrid { return e.grid }

// Len returns the number of centroids.
func (e ExposureLayer) Len() int { return len(e.values) }

// Value returns the asset value at centroid i.
func (e ExposureLayer) Value(i int) float64 { return e.values[i] }

// HazardTypeAt returns the hazard type whose impact function applies at centroid i.
func (e ExposureLayer) HazardTypeAt(i int) HazardType { return e.hazardTypes[i] }

// Values returns a copy of the asset values.
func (e ExposureLayer) Values() []float64 {
	out := make([]float64, len(e.values))
	copy(out, e.values)
	return out
}

// TotalValue sums asset values in centroid order.
func (e ExposureLayer) TotalValue() float64 { return floats.Sum(e.values) }

// mapValues returns a copy with fn applied to each value, clamped at zero.
func (e ExposureLayer) mapValues(fn func(float64) float64) ExposureLayer {
	out := make([]float64, len(e.values))
	for i, v := range e.values {
		out[i] = math.Max(0, fn(v))
	}
	tags := make([]HazardType, len(e.hazardTypes))
	copy(tags, e.hazardTypes)
	return ExposureLayer{basis: e.basis, grid: e.grid, values: out, hazardTypes: tags}
}
