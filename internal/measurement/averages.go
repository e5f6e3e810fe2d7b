package measurement

import "math"

// FieldAverage is the arithmetic mean of one field's non-null values.
type FieldAverage struct {
	Field   Field
	Mean    float64
	Samples int
}

// AverageReport holds the averages of every field that has data, in canonical field order.
type AverageReport struct {
	Averages []FieldAverage
}

// Get returns the average for f if the report has one.
func (r AverageReport) Get(f Field) (FieldAverage, bool) {
	for _, avg := range r.Averages {
		if avg.Field == f {
			return avg, true
		}
	}
	return FieldAverage{}, false
}

// Averages computes the mean of each field across all records. A missing field and an explicit
// null are both skipped. It reports false when no record carries a weight.
func Averages(records []Record) (AverageReport, bool) {
	sums := make([]float64, len(Fields))
	counts := make([]int, len(Fields))

	for _, rec := range records {
		for i, f := range Fields {
			if v, ok := rec.Value(f); ok {
				sums[i] += v
				counts[i]++
			}
		}
	}

	if counts[fieldIndex(Weight)] == 0 {
		return AverageReport{}, false
	}

	report := AverageReport{Averages: make([]FieldAverage, 0, len(Fields))}
	for i, f := range Fields {
		if counts[i] == 0 {
			continue
		}
		report.Averages = append(report.Averages, FieldAverage{
			Field:   f,
			Mean:    sums[i] / float64(counts[i]),
			Samples: counts[i],
		})
	}
	return report, true
}

// Round2 rounds v to two decimal places for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
