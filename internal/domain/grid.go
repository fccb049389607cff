package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// gridEpsilon absorbs floating-point drift when counting grid steps, so a box
// whose extent is an exact multiple of the resolution includes its far edge.
const gridEpsilon = 1e-9

// CentroidGrid is an ordered, immutable set of evaluation points. Every
// HazardField and ExposureLayer built over a grid holds exactly one value per
// point, in the grid's order.
type CentroidGrid struct {
	points []orb.Point
	bound  orb.Bound
	rows   int
	cols   int
}

// BuildGrid spans the bounding box at the given resolution (degrees) in
// row-major order: rows run south to north, columns west to east.
func BuildGrid(bound orb.Bound, resolution float64) (*CentroidGrid, error) {
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return nil, fmt.Errorf("%w: resolution must be > 0, got %v", ErrInvalidGridSpec, resolution)
	}
	if err := validateBound(bound); err != nil {
		return nil, err
	}

	rows := int(math.Floor((bound.Max.Lat()-bound.Min.Lat())/resolution+gridEpsilon)) + 1
	cols := int(math.Floor((bound.Max.Lon()-bound.Min.Lon())/resolution+gridEpsilon)) + 1

	points := make([]orb.Point, 0, rows*cols)
	for r := 0; r < rows; r++ {
		lat := bound.Min.Lat() + float64(r)*resolution
		for c := 0; c < cols; c++ {
			lon := bound.Min.Lon() + float64(c)*resolution
			points = append(points, orb.Point{lon, lat})
		}
	}

	return &CentroidGrid{points: points, bound: bound, rows: rows, cols: cols}, nil
}

// NewGrid wraps a precomputed point sequence. The slice is copied.
func NewGrid(points []orb.Point) (*CentroidGrid, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidGridSpec)
	}
	owned := make([]orb.Point, len(points))
	for i, p := range points {
		if !validLat(p.Lat()) || !validLon(p.Lon()) {
			return nil, fmt.Errorf("%w: point %d out of range (%v, %v)", ErrInvalidGridSpec, i, p.Lat(), p.Lon())
		}
		owned[i] = p
	}
	return &CentroidGrid{
		points: owned,
		bound:  orb.MultiPoint(owned).Bound(),
		rows:   1,
		cols:   len(owned),
	}, nil
}

func validateBound(b orb.Bound) error {
	if !validLat(b.Min.Lat()) || !validLat(b.Max.Lat()) || !validLon(b.Min.Lon()) || !validLon(b.Max.Lon()) {
		return fmt.Errorf("%w: bounding box outside WGS-84 range", ErrInvalidGridSpec)
	}
	if b.Min.Lat() > b.Max.Lat() || b.Min.Lon() > b.Max.Lon() {
		return fmt.Errorf("%w: bounding box min exceeds max", ErrInvalidGridSpec)
	}
	return nil
}

func validLat(v float64) bool { return v >= -90 && v <= 90 }
func validLon(v float64) bool { return v >= -180 && v <= 180 }

// Len returns the number of centroids.
func (g *CentroidGrid) Len() int { return len(g.points) }

// Point returns the i-th centroid.
func (g *CentroidGrid) Point(i int) orb.Point { return g.points[i] }

// Points returns a copy of the centroid sequence.
func (g *CentroidGrid) Points() []orb.Point {
	out := make([]orb.Point, len(g.points))
	copy(out, g.points)
	return out
}

// Bound returns the grid's bounding box.
func (g *CentroidGrid) Bound() orb.Bound { return g.bound }

// Shape returns rows and columns. Precomputed grids report a single row.
func (g *CentroidGrid) Shape() (rows, cols int) { return g.rows, g.cols }

// checkAligned reports whether a per-centroid slice of length n belongs on g.
func (g *CentroidGrid) checkAligned(n int, what string) error {
	if n != len(g.points) {
		return fmt.Errorf("%w: %s has %d values, grid has %d centroids", ErrGridMismatch, what, n, len(g.points))
	}
	return nil
}
