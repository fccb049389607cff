package domain

import "fmt"

// Entity bundles the inputs of one analysis run. It is read-only after
// construction and may be shared between concurrent scenario computations.
type Entity struct {
	exposure  ExposureLayer
	discount  DiscountSchedule
	functions ImpactFunctionSet
	measures  MeasureSet
}

// NewEntity checks that every exposure entry has an impact function.
func NewEntity(exposure ExposureLayer, discount DiscountSchedule, functions ImpactFunctionSet, measures MeasureSet) (Entity, error) {
	for i := 0; i < exposure.Len(); i++ {
		if _, ok := functions.Lookup(exposure.HazardTypeAt(i)); !ok {
			return Entity{}, fmt.Errorf("%w: %q (centroid %d)", ErrMissingImpactFunctionForHazardType, exposure.HazardTypeAt(i), i)
		}
	}
	return Entity{exposure: exposure, discount: discount, functions: functions, measures: measures}, nil
}

// Exposure returns the asset layer.
func (e Entity) Exposure() ExposureLayer { return e.exposure }

// Discount returns the discount schedule.
func (e Entity) Discount() DiscountSchedule { return e.discount }

// Functions returns the impact functions keyed by hazard type.
func (e Entity) Functions() ImpactFunctionSet { return e.functions }

// Measures returns the adaptation measures, possibly empty.
func (e Entity) Measures() MeasureSet { return e.measures }

// Triple pairs the entity's exposure and curves with a hazard field.
func (e Entity) Triple(hazard HazardField) Triple {
	return Triple{Exposure: e.exposure, Functions: e.functions, Hazard: hazard}
}
