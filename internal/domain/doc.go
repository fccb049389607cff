// Package domain models the inputs and outputs of a climate-adaptation
// benefit-cost analysis.
//
// # Grid
//
// Every per-location quantity lives on a [CentroidGrid]: an ordered sequence
// of WGS-84 points (orb.Point, lon/lat). A grid built from a bounding box is
// row-major, rows south to north and columns west to east:
//
//	index = row*cols + col
//
// Hazard intensities and exposure values are plain slices aligned with that
// order. Constructors reject slices whose length differs from the grid's
// ([ErrGridMismatch]); nothing downstream rechecks alignment.
//
// # Hazard, exposure and vulnerability
//
// A [HazardField] holds one non-negative intensity per centroid for one event
// and one climate scenario. Intensity is in the hazard's native unit (m/s of
// sustained wind for tropical cyclones, "TC").
//
// An [ExposureLayer] holds one non-negative value per centroid in a monetary
// basis (e.g. GDP or replacement value), each tagged with the hazard type
// whose impact function applies to it.
//
// An [ImpactFunction] maps intensity to mean damage degree (MDD) and
// percentage of affected assets (PAA), both in [0,1], by linear interpolation
// over strictly increasing breakpoints. Below the first and above the last
// breakpoint the curve is flat. Damage at one centroid is
//
//	damage = exposure · MDD(intensity) · PAA(intensity)
//
// # Measures
//
// A [Measure] carries a cost and affine transforms (v·Scale + Shift) on MDD,
// PAA and hazard intensity for one hazard type. Transformed MDD and PAA are
// clamped to [0,1] and must stay monotone ([ErrMeasureInvalidatesCurve]);
// transformed intensity is clamped at zero. A [MeasureSet] applies its
// measures in order and its cost is the sum of theirs.
//
// # Discounting
//
// A [DiscountSchedule] maps years to annual rates. A value realized in year T
// is worth
//
//	PV = value · ∏_{t=base}^{T-1} 1/(1+rate(t))
//
// in the base year. Years missing from the table take the nearest earlier
// entry.
//
// # Results
//
// [CostBenefitResult] is one row of the output table. Percent changes are
// relative to the baseline row and are zero when the reference is zero.
package domain
