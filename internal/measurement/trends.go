package measurement

import "time"

// FieldDelta is the change of one field between the earliest non-null value in a window and the
// window's latest record.
type FieldDelta struct {
	Field    Field
	Delta    float64
	Earliest float64
	Current  float64
}

// TrendReport describes the changes observed inside a trailing window.
type TrendReport struct {
	PeriodDays int
	// Cutoff is exclusive: only records dated strictly after it are in the window.
	Cutoff time.Time
	Window int
	// Latest is the timestamp of the last record in the window.
	Latest string
	Deltas []FieldDelta
}

// Get returns the delta for f if the report has one.
func (r TrendReport) Get(f Field) (FieldDelta, bool) {
	for _, d := range r.Deltas {
		if d.Field == f {
			return d, true
		}
	}
	return FieldDelta{}, false
}

// Trends computes per-field deltas over the records dated within periodDays before now.
//
// Records are taken in sequence order; the last record in the window is the latest one and is
// never chosen by date. Deltas follow the latest record's field order. A record with an
// unparseable timestamp fails the whole computation with a *TimestampError. The bool result is
// false when no record falls inside the window.
func Trends(records []Record, periodDays int, now time.Time) (TrendReport, bool, error) {
	cutoff := windowCutoff(now, periodDays)

	window := make([]Record, 0, len(records))
	for i, rec := range records {
		date, err := rec.Date(now.Location())
		if err != nil {
			return TrendReport{}, false, &TimestampError{Index: i, Value: rec.Timestamp, Err: err}
		}
		if date.After(cutoff) {
			window = append(window, rec)
		}
	}

	if len(window) == 0 {
		return TrendReport{}, false, nil
	}

	latest := window[len(window)-1]
	report := TrendReport{
		PeriodDays: periodDays,
		Cutoff:     cutoff,
		Window:     len(window),
		Latest:     latest.Timestamp,
		Deltas:     make([]FieldDelta, 0, len(latest.Readings)),
	}

	for _, rd := range latest.Readings {
		if rd.Value == nil {
			continue
		}
		earliest, ok := firstValue(window, rd.Field)
		if !ok {
			continue
		}
		report.Deltas = append(report.Deltas, FieldDelta{
			Field:    rd.Field,
			Delta:    *rd.Value - earliest,
			Earliest: earliest,
			Current:  *rd.Value,
		})
	}

	return report, true, nil
}

// maxPeriodDays bounds the calendar arithmetic. Longer periods already reach past the oldest
// expressible date.
const maxPeriodDays = 1 << 24

// windowCutoff subtracts periodDays calendar days from now in now's location. The result never
// precedes the day before the earliest date the two-digit year layout can express.
func windowCutoff(now time.Time, periodDays int) time.Time {
	floor := time.Date(1968, time.December, 31, 0, 0, 0, 0, now.Location())
	if periodDays >= maxPeriodDays {
		return floor
	}
	if periodDays < -maxPeriodDays {
		periodDays = -maxPeriodDays
	}
	cutoff := now.AddDate(0, 0, -periodDays)
	if cutoff.Before(floor) {
		return floor
	}
	return cutoff
}

func firstValue(records []Record, f Field) (float64, bool) {
	for _, rec := range records {
		if v, ok := rec.Value(f); ok {
			return v, true
		}
	}
	return 0, false
}
