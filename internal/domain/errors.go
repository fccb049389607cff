package domain

import "errors"

// Validation errors are returned at construction time of the offending value.
// Pipeline errors are returned (or recorded per scenario) by the engine.
var (
	ErrInvalidGridSpec                    = errors.New("invalid grid spec")
	ErrUnknownScenario                    = errors.New("unknown scenario")
	ErrInvalidImpactFunction              = errors.New("invalid impact function")
	ErrMeasureInvalidatesCurve            = errors.New("measure invalidates impact curve")
	ErrInvalidDiscountRate                = errors.New("invalid discount rate")
	ErrZeroCost                           = errors.New("zero measure cost with non-zero benefit")
	ErrMeasureIncreasesRisk               = errors.New("measure increases risk")
	ErrMissingImpactFunctionForHazardType = errors.New("missing impact function for hazard type")

	ErrGridMismatch         = errors.New("field does not match centroid grid")
	ErrInvalidMeasure       = errors.New("invalid measure")
	ErrInvalidExposure      = errors.New("invalid exposure")
	ErrInvalidHazard        = errors.New("invalid hazard field")
	ErrReferenceUnavailable = errors.New("reference scenario unavailable")
)
