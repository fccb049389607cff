// Package track derives a baseline hazard field from a storm track: a
// time-ordered sequence of positions with the maximum sustained wind observed
// at each, using a radial wind profile around every fix.
package track

import (
	"fmt"
	"math"

	"github.com/ojrac/opensimplex-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
)

// Sample is one track fix.
type Sample struct {
	Position orb.Point `json:"position"` // lon, lat
	MaxWind  float64   `json:"max_wind"` // m/s
}

// Track is a storm track descriptor.
type Track struct {
	ID         string            `json:"id"`
	HazardType domain.HazardType `json:"hazard_type"`
	Samples    []Sample          `json:"samples"`
}

// Options controls the radial wind profile and the surface roughness field.
type Options struct {
	RadiusMaxWind float64 // radius of maximum wind (m)
	DecayExponent float64 // outer decay: wind · (rmw/d)^DecayExponent
	MaxDistance   float64 // centroids farther than this from every fix get 0 (m)

	// Roughness in [0,1) reduces intensity by up to that fraction, following a
	// smooth opensimplex field seeded by Seed. Zero disables it.
	Roughness float64
	Seed      int64
	// RoughnessFrequency is noise cycles per degree.
	RoughnessFrequency float64
}

// DefaultOptions are typical tropical cyclone values.
var DefaultOptions = Options{
	RadiusMaxWind:      30_000,
	DecayExponent:      0.5,
	MaxDistance:        500_000,
	RoughnessFrequency: 2,
}

// Derive evaluates the track over grid. Each centroid takes the maximum over
// all fixes of the fix's wind decayed by distance.
func Derive(grid *domain.CentroidGrid, t Track, opts Options) (domain.HazardField, error) {
	if len(t.Samples) == 0 {
		return domain.HazardField{}, fmt.Errorf("%w: track %q has no samples", domain.ErrInvalidHazard, t.ID)
	}
	for i, s := range t.Samples {
		if s.MaxWind < 0 || math.IsNaN(s.MaxWind) {
			return domain.HazardField{}, fmt.Errorf("%w: track %q sample %d wind %v", domain.ErrInvalidHazard, t.ID, i, s.MaxWind)
		}
	}
	if opts.RadiusMaxWind <= 0 {
		opts.RadiusMaxWind = DefaultOptions.RadiusMaxWind
	}
	if opts.DecayExponent <= 0 {
		opts.DecayExponent = DefaultOptions.DecayExponent
	}
	if opts.Roughness < 0 || opts.Roughness >= 1 {
		return domain.HazardField{}, fmt.Errorf("%w: roughness %v outside [0,1)", domain.ErrInvalidHazard, opts.Roughness)
	}

	var noise opensimplex.Noise
	if opts.Roughness > 0 {
		noise = opensimplex.NewNormalized(opts.Seed)
	}

	intensities := make([]float64, grid.Len())
	for i := 0; i < grid.Len(); i++ {
		p := grid.Point(i)
		best := 0.0
		for _, s := range t.Samples {
			d := geo.DistanceHaversine(p, s.Position)
			if opts.MaxDistance > 0 && d > opts.MaxDistance {
				continue
			}
			best = math.Max(best, s.MaxWind*radialDecay(d, opts))
		}
		if noise != nil && best > 0 {
			f := opts.RoughnessFrequency
			best *= 1 - opts.Roughness*noise.Eval2(p.Lon()*f, p.Lat()*f)
		}
		intensities[i] = best
	}

	ht := t.HazardType
	if ht == "" {
		ht = "TC"
	}
	return domain.NewHazardField(grid, t.ID, domain.Baseline, ht, intensities)
}

// radialDecay is 1 inside the radius of maximum wind and a power-law decay
// outside it.
func radialDecay(d float64, opts Options) float64 {
	if d <= opts.RadiusMaxWind {
		return 1
	}
	return math.Pow(opts.RadiusMaxWind/d, opts.DecayExponent)
}
