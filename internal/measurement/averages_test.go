package measurement

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func rec(ts string, values map[Field]float64) Record {
	r := Record{Timestamp: ts}
	for _, f := range Fields {
		if v, ok := values[f]; ok {
			r.Set(f, v)
		}
	}
	return r
}

func TestAveragesWeightOnly(t *testing.T) {
	records := []Record{
		rec("24-01-01", map[Field]float64{Weight: 70}),
		rec("24-02-01", map[Field]float64{Weight: 72}),
	}

	report, ok := Averages(records)
	require.True(t, ok)
	require.Len(t, report.Averages, 1)

	avg, found := report.Get(Weight)
	require.True(t, found)
	require.Equal(t, 71.0, avg.Mean)
	require.Equal(t, 2, avg.Samples)
	require.Equal(t, 71.00, Round2(avg.Mean))
}

func TestAveragesEmpty(t *testing.T) {
	_, ok := Averages(nil)
	require.False(t, ok)

	_, ok = Averages([]Record{})
	require.False(t, ok)
}

func TestAveragesWithoutWeightIsNoData(t *testing.T) {
	records := []Record{
		rec("24-01-01", map[Field]float64{Bicep: 35, Chest: 100}),
		rec("24-01-02", map[Field]float64{Waist: 80}),
	}
	var nullWeight Record
	nullWeight.Timestamp = "24-01-03"
	nullWeight.SetNull(Weight)
	nullWeight.Set(Calf, 38)
	records = append(records, nullWeight)

	_, ok := Averages(records)
	require.False(t, ok)
}

func TestAveragesSkipsMissingAndNullFields(t *testing.T) {
	withNull := rec("24-01-02", map[Field]float64{Weight: 80})
	withNull.SetNull(Chest)

	records := []Record{
		rec("24-01-01", map[Field]float64{Weight: 70, Chest: 100}),
		withNull,
		rec("24-01-03", map[Field]float64{Weight: 90, Thigh: 55}),
	}

	report, ok := Averages(records)
	require.True(t, ok)

	weight, _ := report.Get(Weight)
	require.InDelta(t, 80.0, weight.Mean, 1e-9)

	chest, found := report.Get(Chest)
	require.True(t, found)
	require.Equal(t, 100.0, chest.Mean)
	require.Equal(t, 1, chest.Samples)

	thigh, found := report.Get(Thigh)
	require.True(t, found)
	require.Equal(t, 55.0, thigh.Mean)

	for _, f := range []Field{Bicep, Waist, Calf} {
		_, found := report.Get(f)
		require.Falsef(t, found, "%s has no data and must not be reported", f)
	}
}

func TestAveragesReportsEveryFieldWithData(t *testing.T) {
	records := []Record{
		rec("24-01-01", map[Field]float64{Weight: 70, Bicep: 34, Chest: 98, Waist: 82, Thigh: 56, Calf: 37}),
		rec("24-01-08", map[Field]float64{Weight: 71, Bicep: 36, Chest: 100, Waist: 80, Thigh: 58, Calf: 39}),
	}

	report, ok := Averages(records)
	require.True(t, ok)
	require.Len(t, report.Averages, len(Fields))
	for i, avg := range report.Averages {
		require.Equal(t, Fields[i], avg.Field)
	}

	bicep, _ := report.Get(Bicep)
	require.Equal(t, 35.0, bicep.Mean)
	calf, _ := report.Get(Calf)
	require.Equal(t, 38.0, calf.Mean)
}

func TestAveragesMatchExactMean(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(40)
		records := make([]Record, 0, n)
		var sum float64
		var count int
		for i := 0; i < n; i++ {
			r := Record{Timestamp: "24-03-01"}
			switch rng.Intn(3) {
			case 0:
				v := rng.Float64() * 150
				r.Set(Weight, v)
				sum += v
				count++
			case 1:
				r.SetNull(Weight)
			}
			if rng.Intn(2) == 0 {
				r.Set(Waist, rng.Float64()*120)
			}
			records = append(records, r)
		}

		report, ok := Averages(records)
		if count == 0 {
			require.False(t, ok)
			continue
		}
		require.True(t, ok)
		weight, found := report.Get(Weight)
		require.True(t, found)
		require.Equal(t, count, weight.Samples)
		require.InDelta(t, sum/float64(count), weight.Mean, 1e-9)
	}
}

func TestRound2(t *testing.T) {
	require.Equal(t, 71.67, Round2(71.666666))
	require.Equal(t, -1.23, Round2(-1.234))
	require.Equal(t, 2.0, Round2(2))
}
