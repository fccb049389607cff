// Package report renders result sets for terminals and files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/couchcryptid/storm-benefit-cost/internal/engine"
)

// WriteTable prints one line per scenario. Currency amounts are rounded to
// whole units, ratios to two places and percentages to one.
func WriteTable(w io.Writer, rs engine.ResultSet) error {
	fmt.Fprintf(w, "run %s  event %s  %d -> %d  aggregation=%s accumulation=%s\n",
		rs.RunID, rs.EventID, rs.BaseYear, rs.FutureYear, rs.Aggregation, rs.Accumulation)
	fmt.Fprintf(w, "measures %v  total cost %s\n\n", rs.Measures, money(rs.TotalCost))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "scenario\tbenefit\tbcr\tbenefit Δ%\tmax intensity\tintensity Δ%\tresidual risk\tstatus\t")
	for _, row := range rs.Rows() {
		if row.Status == engine.StatusFailed {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\t-\t%s: %s\t\n", row.Scenario, row.Status, row.Error)
			continue
		}
		status := row.Status
		if row.Warning != "" {
			status += " (" + row.Warning + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			row.Scenario,
			money(row.Benefit),
			fixed(row.BenefitCostRatio, 2),
			fixed(row.BenefitChangePct, 1),
			fixed(row.MaxIntensity, 2),
			fixed(row.MaxIntensityChangePct, 1),
			money(row.ResidualRisk),
			status,
		)
	}
	return tw.Flush()
}

// WriteJSON prints the rows as an indented JSON array.
func WriteJSON(w io.Writer, rs engine.ResultSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rs.Rows())
}

func money(v float64) string {
	return decimal.NewFromFloat(v).Round(0).StringFixed(0)
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
