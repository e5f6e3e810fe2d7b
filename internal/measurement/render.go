package measurement

import (
	"fmt"
	"strings"
)

// RenderAverages formats an average report as display text.
func RenderAverages(report AverageReport, ok bool) string {
	if !ok {
		return "No weight measurements available."
	}
	var b strings.Builder
	b.WriteString("Relevant data:\n\n")
	for _, avg := range report.Averages {
		fmt.Fprintf(&b, "Average %s: %.2f %s\n", avg.Field.Label(), avg.Mean, avg.Field.Unit())
	}
	return b.String()
}

// RenderTrends formats a trend report as display text.
func RenderTrends(report TrendReport, periodDays int, ok bool) string {
	if !ok {
		return fmt.Sprintf("No measurements in the last %d days.", periodDays)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Trends in measurements over the last %d days:\n\n", periodDays)
	for _, d := range report.Deltas {
		fmt.Fprintf(&b, "%s: %.2f\n", d.Field, d.Delta)
	}
	return b.String()
}
