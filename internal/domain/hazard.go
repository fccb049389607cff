package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// HazardType tags hazard fields, impact functions, measures and exposure
// entries, e.g. "TC" for tropical cyclone wind.
type HazardType string

// ScenarioID labels the climate projection a hazard field belongs to.
type ScenarioID string

// Baseline is the unscaled, present-climate scenario.
const Baseline ScenarioID = "baseline"

// HazardField holds one non-negative intensity per centroid for a single
// event under a single scenario. It is immutable; transforms return new fields.
type HazardField struct {
	eventID     string
	scenario    ScenarioID
	hazardType  HazardType
	grid        *CentroidGrid
	intensities []float64
}

// NewHazardField validates and copies intensities onto grid.
func NewHazardField(grid *CentroidGrid, eventID string, scenario ScenarioID, hazardType HazardType, intensities []float64) (HazardField, error) {
	if grid == nil {
		return HazardField{}, fmt.Errorf("%w: nil grid", ErrInvalidHazard)
	}
	if err := grid.checkAligned(len(intensities), "hazard field"); err != nil {
		return HazardField{}, err
	}
	if hazardType == "" {
		return HazardField{}, fmt.Errorf("%w: empty hazard type", ErrInvalidHazard)
	}
	for i, v := range intensities {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return HazardField{}, fmt.Errorf("%w: centroid %d intensity %v", ErrInvalidHazard, i, v)
		}
	}
	if scenario == "" {
		scenario = Baseline
	}
	owned := make([]float64, len(intensities))
	copy(owned, intensities)
	return HazardField{
		eventID:     eventID,
		scenario:    scenario,
		hazardType:  hazardType,
		grid:        grid,
		intensities: owned,
	}, nil
}

// EventID returns the identifier of the event the field describes.
func (h HazardField) EventID() string { return h.eventID }

// Scenario returns the climate scenario the field is labeled with.
func (h HazardField) Scenario() ScenarioID { return h.scenario }

// HazardType returns the peril the intensities measure.
func (h HazardField) HazardType() HazardType { return h.hazardType }

// Grid returns the centroid grid the field is defined on.
func (h HazardField) Grid() *CentroidGrid { return h.grid }

// Len returns the number of centroids.
func (h HazardField) Len() int { return len(h.intensities) }

// Intensity returns the intensity at centroid i.
func (h HazardField) Intensity(i int) float64 { return h.intensities[i] }

// Intensities returns a copy of the per-centroid values.
func (h HazardField) Intensities() []float64 {
	out := make([]float64, len(h.intensities))
	copy(out, h.intensities)
	return out
}

// MaxIntensity returns the largest centroid intensity, or 0 for an empty field.
func (h HazardField) MaxIntensity() float64 {
	if len(h.intensities) == 0 {
		return 0
	}
	return floats.Max(h.intensities)
}

// Map returns a new field with fn applied to every intensity and relabeled to
// scenario. Results are clamped at zero.
func (h HazardField) Map(scenario ScenarioID, fn func(i int, v float64) float64) HazardField {
	out := make([]float64, len(h.intensities))
	for i, v := range h.intensities {
		out[i] = math.Max(0, fn(i, v))
	}
	if scenario == "" {
		scenario = h.scenario
	}
	return HazardField{
		eventID:     h.eventID,
		scenario:    scenario,
		hazardType:  h.hazardType,
		grid:        h.grid,
		intensities: out,
	}
}
