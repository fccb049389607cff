// Package definition reads analysis definition files and turns them into the
// typed inputs of the benefit-cost engine. Definition files are YAML; HTTP
// bodies are JSON.
package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/storm-benefit-cost/internal/domain"
)

// Definition is the on-disk form of one analysis.
type Definition struct {
	Name           string        `yaml:"name" json:"name"`
	BaseYear       int           `yaml:"base_year" json:"base_year"`
	FutureYear     int           `yaml:"future_year" json:"future_year"`
	ProjectionYear int           `yaml:"projection_year,omitempty" json:"projection_year,omitempty"`
	Aggregation    string        `yaml:"aggregation,omitempty" json:"aggregation,omitempty"`
	Accumulation   string        `yaml:"accumulation,omitempty" json:"accumulation,omitempty"`
	Scenarios      []string      `yaml:"scenarios" json:"scenarios"`
	Grid           GridDef       `yaml:"grid" json:"grid"`
	Hazard         HazardDef     `yaml:"hazard" json:"hazard"`
	Exposure       ExposureDef   `yaml:"exposure" json:"exposure"`
	Functions      []FunctionDef `yaml:"impact_functions" json:"impact_functions"`
	Measures       []MeasureDef  `yaml:"measures" json:"measures"`
	Discount       DiscountDef   `yaml:"discount" json:"discount"`
}

// GridDef is either a bounding box with resolution or explicit points.
type GridDef struct {
	Bounds     *BoundsDef `yaml:"bounds,omitempty" json:"bounds,omitempty"`
	Resolution float64    `yaml:"resolution,omitempty" json:"resolution,omitempty"`
	Points     []PointDef `yaml:"points,omitempty" json:"points,omitempty"`
}

// BoundsDef is a lat/lon box sampled at the grid resolution.
type BoundsDef struct {
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
}

// PointDef is one explicit centroid.
type PointDef struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

// HazardDef gives intensities directly or a track to derive them from.
type HazardDef struct {
	EventID     string    `yaml:"event_id" json:"event_id"`
	Type        string    `yaml:"type" json:"type"`
	Intensities []float64 `yaml:"intensities,omitempty" json:"intensities,omitempty"`
	Track       *TrackDef `yaml:"track,omitempty" json:"track,omitempty"`
}

// TrackDef describes a storm track; distances are in kilometres.
type TrackDef struct {
	Samples         []TrackSampleDef `yaml:"samples" json:"samples"`
	RadiusMaxWindKm float64          `yaml:"radius_max_wind_km,omitempty" json:"radius_max_wind_km,omitempty"`
	MaxDistanceKm   float64          `yaml:"max_distance_km,omitempty" json:"max_distance_km,omitempty"`
	Roughness       float64          `yaml:"roughness,omitempty" json:"roughness,omitempty"`
	Seed            int64            `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// TrackSampleDef is one track fix with its maximum sustained wind (m/s).
type TrackSampleDef struct {
	Lat     float64 `yaml:"lat" json:"lat"`
	Lon     float64 `yaml:"lon" json:"lon"`
	MaxWind float64 `yaml:"max_wind" json:"max_wind"`
}

// ExposureDef gives one value per centroid, or a uniform value for all.
type ExposureDef struct {
	Basis        string    `yaml:"basis" json:"basis"`
	HazardType   string    `yaml:"hazard_type" json:"hazard_type"`
	Values       []float64 `yaml:"values,omitempty" json:"values,omitempty"`
	UniformValue float64   `yaml:"uniform_value,omitempty" json:"uniform_value,omitempty"`
}

// FunctionDef is a tabulated curve, or an Emanuel sigmoid when Emanuel is set.
type FunctionDef struct {
	Name       string      `yaml:"name" json:"name"`
	HazardType string      `yaml:"hazard_type" json:"hazard_type"`
	Intensity  []float64   `yaml:"intensity,omitempty" json:"intensity,omitempty"`
	MDD        []float64   `yaml:"mdd,omitempty" json:"mdd,omitempty"`
	PAA        []float64   `yaml:"paa,omitempty" json:"paa,omitempty"`
	Emanuel    *EmanuelDef `yaml:"emanuel,omitempty" json:"emanuel,omitempty"`
}

// EmanuelDef parameterizes the Emanuel (2011) wind damage sigmoid.
type EmanuelDef struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
	Half      float64 `yaml:"half" json:"half"`
	Scale     float64 `yaml:"scale" json:"scale"`
}

// MeasureDef leaves a transform unset for the identity.
type MeasureDef struct {
	Name       string            `yaml:"name" json:"name"`
	HazardType string            `yaml:"hazard_type" json:"hazard_type"`
	Cost       float64           `yaml:"cost" json:"cost"`
	MDD        *domain.Transform `yaml:"mdd,omitempty" json:"mdd,omitempty"`
	PAA        *domain.Transform `yaml:"paa,omitempty" json:"paa,omitempty"`
	Intensity  *domain.Transform `yaml:"intensity,omitempty" json:"intensity,omitempty"`
}

// DiscountDef is a year table, or a constant rate over [BaseYear, FutureYear].
// With neither set, domain.DefaultDiscountRate applies.
type DiscountDef struct {
	Rate  *float64        `yaml:"rate,omitempty" json:"rate,omitempty"`
	Rates map[int]float64 `yaml:"rates,omitempty" json:"rates,omitempty"`
}

// Load reads a definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition file: %w", err)
	}
	return Decode(data)
}

// Decode parses a YAML or JSON definition. Input starting with '{' is JSON,
// which lets discount tables use quoted year keys.
func Decode(data []byte) (*Definition, error) {
	var def Definition
	var err error
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &def)
	} else {
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	return &def, nil
}

// Marshal renders a definition as YAML.
func Marshal(def *Definition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encoding definition: %w", err)
	}
	return data, nil
}
