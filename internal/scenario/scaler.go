// Package scenario projects a baseline hazard field onto climate-forcing
// scenarios.
//
// # Scaling model
//
// Each scenario is identified by its end-of-century radiative forcing target
// (RCP-2.6, RCP-4.5, RCP-6.0, RCP-8.5, in W/m²). The forcing anomaly relative
// to year 2000 ramps in linearly between 2000 and 2100:
//
//	anomaly(s, y) = (target(s) − 1.7) · clamp((y − 2000) / 100, 0, 1)
//
// Intensity change is proportional to the anomaly and stronger for intense
// centroids, saturating at SaturationIntensity:
//
//	I' = clamp(I · (1 + Sensitivity · anomaly · clamp(I / SaturationIntensity, 0, 1)), 0, MaxIntensity)
//
// Every factor is non-negative and non-decreasing in the forcing target, so
// for a fixed baseline the scaled intensity at every centroid (and therefore
// the field maximum) is non-decreasing in scenario severity.
//
// The default Sensitivity is calibrated so that a 51.751 m/s peak becomes
// 58.597 m/s (+13.23 %) under RCP-8.5 at 2100.
package scenario

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
)

// Known scenario identifiers, ordered by severity.
const (
	RCP26 domain.ScenarioID = "RCP-2.6"
	RCP45 domain.ScenarioID = "RCP-4.5"
	RCP60 domain.ScenarioID = "RCP-6.0"
	RCP85 domain.ScenarioID = "RCP-8.5"
)

// forcing2000 is the approximate total anthropogenic forcing in year 2000 (W/m²).
const forcing2000 = 1.7

var targets = map[domain.ScenarioID]float64{
	RCP26: 2.6,
	RCP45: 4.5,
	RCP60: 6.0,
	RCP85: 8.5,
}

// BySeverity lists the known scenarios from least to most severe.
func BySeverity() []domain.ScenarioID {
	return []domain.ScenarioID{RCP26, RCP45, RCP60, RCP85}
}

// Parse normalizes spellings such as "rcp85", "RCP8.5" and "RCP-8.5" to the
// canonical identifier. "baseline" (any case) maps to domain.Baseline.
func Parse(s string) (domain.ScenarioID, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if raw == strings.ToUpper(string(domain.Baseline)) {
		return domain.Baseline, nil
	}
	compact := strings.NewReplacer("-", "", "_", "", ".", "", " ", "").Replace(raw)
	switch compact {
	case "RCP26":
		return RCP26, nil
	case "RCP45":
		return RCP45, nil
	case "RCP60", "RCP6":
		return RCP60, nil
	case "RCP85":
		return RCP85, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownScenario, s)
}

// Params holds the model constants.
type Params struct {
	Sensitivity         float64 // fractional intensity change per W/m² of forcing anomaly
	SaturationIntensity float64 // intensity at which the full sensitivity applies (m/s)
	MaxIntensity        float64 // upper bound on amplified intensity (m/s)
	StartYear           int     // year with zero anomaly
	EndYear             int     // year at which the full target anomaly is reached
}

// DefaultParams are the calibrated tropical cyclone wind constants.
var DefaultParams = Params{
	Sensitivity:         0.019454,
	SaturationIntensity: 50,
	MaxIntensity:        95,
	StartYear:           2000,
	EndYear:             2100,
}

// Scaler applies the forcing-based scaling model.
type Scaler struct {
	params Params
}

// NewScaler returns a scaler using p.
func NewScaler(p Params) *Scaler {
	return &Scaler{params: p}
}

// Default returns a scaler with DefaultParams.
func Default() *Scaler { return NewScaler(DefaultParams) }

// Anomaly returns the forcing anomaly (W/m²) of scenario id in year.
func (s *Scaler) Anomaly(id domain.ScenarioID, year int) (float64, error) {
	target, ok := targets[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownScenario, id)
	}
	span := float64(s.params.EndYear - s.params.StartYear)
	ramp := 1.0
	if span > 0 {
		ramp = clamp(float64(year-s.params.StartYear)/span, 0, 1)
	}
	return (target - forcing2000) * ramp, nil
}

// Factor returns the multiplicative change applied to a centroid of the given
// baseline intensity.
func (s *Scaler) Factor(id domain.ScenarioID, year int, intensity float64) (float64, error) {
	anomaly, err := s.Anomaly(id, year)
	if err != nil {
		return 0, err
	}
	weight := 1.0
	if s.params.SaturationIntensity > 0 {
		weight = clamp(intensity/s.params.SaturationIntensity, 0, 1)
	}
	return 1 + s.params.Sensitivity*anomaly*weight, nil
}

// Scale returns a new field labeled id. The baseline is not modified.
// Scaled values saturate at MaxIntensity; a baseline value already above it
// is kept as is.
func (s *Scaler) Scale(baseline domain.HazardField, id domain.ScenarioID, referenceYear int) (domain.HazardField, error) {
	if _, ok := targets[id]; !ok {
		return domain.HazardField{}, fmt.Errorf("%w: %q", domain.ErrUnknownScenario, id)
	}
	maxI := s.params.MaxIntensity
	if maxI <= 0 {
		maxI = math.Inf(1)
	}
	var scaleErr error
	out := baseline.Map(id, func(_ int, v float64) float64 {
		f, err := s.Factor(id, referenceYear, v)
		if err != nil {
			scaleErr = err
			return v
		}
		// The cap bounds amplification; it never lowers an observed value.
		return clamp(v*f, 0, math.Max(v, maxI))
	})
	if scaleErr != nil {
		return domain.HazardField{}, scaleErr
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
