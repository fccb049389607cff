package domain

// Variant distinguishes the two impact evaluations made per scenario.
type Variant string

const (
	VariantBaseline    Variant = "baseline"
	VariantWithMeasure Variant = "with-measure"
)

// ImpactResult holds per-centroid damage and its aggregate for one triple.
type ImpactResult struct {
	Scenario    ScenarioID
	Variant     Variant
	Aggregation string
	Damages     []float64
	Aggregate   float64
}

// CostBenefitResult is one row of the output table.
type CostBenefitResult struct {
	Scenario              ScenarioID `json:"scenario"`
	Benefit               float64    `json:"benefit"`
	BenefitCostRatio      float64    `json:"benefit_cost_ratio"`
	BenefitChangePct      float64    `json:"benefit_change_pct"`
	MaxIntensity          float64    `json:"max_intensity"`
	MaxIntensityChangePct float64    `json:"max_intensity_change_pct"`
	ResidualRisk          float64    `json:"residual_risk"`

	// Undiscounted inputs to the row, kept for audit.
	BaselineDamage float64 `json:"baseline_damage"`
	MeasureDamage  float64 `json:"measure_damage"`
	RawBenefit     float64 `json:"raw_benefit"`
	DiscountFactor float64 `json:"discount_factor"`
	TotalCost      float64 `json:"total_cost"`

	// MeasureIncreasesRisk is set when the measure set leaves more damage than
	// no measure at all. The row is still reported with its negative benefit.
	MeasureIncreasesRisk bool `json:"measure_increases_risk,omitempty"`
}

// PercentChange returns 100*(value-reference)/reference, or 0 when the
// reference is zero.
func PercentChange(value, reference float64) float64 {
	if reference == 0 {
		return 0
	}
	return 100 * (value - reference) / reference
}
