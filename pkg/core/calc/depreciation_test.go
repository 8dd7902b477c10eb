package calc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiscalYear(t *testing.T) {
	cases := []struct {
		date time.Time
		want int
	}{
		{time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC), 2023},
		{time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 2024},
		{time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 2024},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FiscalYear(c.date), "fiscal year of %s", c.date.Format("2006-01-02"))
	}
}

func TestStraightLineSchedule(t *testing.T) {
	// 100,000 cost, 10,000 salvage, 10 years, acquired 2020-01-15.
	// Annual expense = 90,000 / 10 = 9,000. January acquisition leaves
	// 9 months (Jan..Sep) in FY2020, so the first year takes
	// 9,000 * 9/12 = 6,750.
	acq := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	schedule := StraightLineSchedule(100_000, 10_000, 10, acq)

	require.NotEmpty(t, schedule)
	first := schedule[0]
	assert.Equal(t, 2020, first.FiscalYear)
	assert.InDelta(t, 6750, first.DepreciationExpense, 0.01)
	assert.InDelta(t, 100_000, first.BeginningBookValue, 0.01)

	var total float64
	for _, yr := range schedule {
		total += yr.DepreciationExpense
	}
	assert.InDelta(t, 90_000, total, 0.01)

	last := schedule[len(schedule)-1]
	assert.InDelta(t, 10_000, last.EndingBookValue, 0.01)
	assert.InDelta(t, 90_000, last.AccumulatedDepreciation, 0.01)

	// The stub year after the nominal life absorbs the prorated remainder:
	// 10 full years plus the partial first year = 11 entries.
	assert.Len(t, schedule, 11)
}

func TestStraightLineOctoberAcquisitionShiftsFiscalYear(t *testing.T) {
	acq := time.Date(2020, 11, 5, 0, 0, 0, 0, time.UTC)
	schedule := StraightLineSchedule(100_000, 10_000, 10, acq)

	require.NotEmpty(t, schedule)
	// November 2020 falls in FY2021, with Nov..Sep = 11 months remaining.
	assert.Equal(t, 2021, schedule[0].FiscalYear)
	assert.InDelta(t, 9000*11.0/12.0, schedule[0].DepreciationExpense, 0.01)
}

func TestStraightLineBookValueDecreases(t *testing.T) {
	acq := time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC)
	schedule := StraightLineSchedule(250_000, 12_500, 8, acq)

	prev := 250_000.0
	for _, yr := range schedule {
		assert.Less(t, yr.EndingBookValue, prev+0.01)
		assert.GreaterOrEqual(t, yr.EndingBookValue, 12_500-0.01)
		prev = yr.EndingBookValue
	}
}

func TestMACRS7YearSchedule(t *testing.T) {
	// $1,000,000 over the 7-year table produces these exact expenses.
	acq := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	schedule, err := MACRSSchedule(1_000_000, 7, acq)
	require.NoError(t, err)
	require.Len(t, schedule, 8)

	want := []float64{142_900, 244_900, 174_900, 124_900, 89_300, 89_200, 89_300, 44_600}
	var total float64
	for i, yr := range schedule {
		assert.InDelta(t, want[i], yr.DepreciationExpense, 0.01, "year %d", i)
		assert.Equal(t, 2020+i, yr.FiscalYear)
		total += yr.DepreciationExpense
	}
	assert.InDelta(t, 1_000_000, total, 0.01)
	assert.InDelta(t, 0, schedule[7].EndingBookValue, 0.01)
}

func TestMACRS5YearSchedule(t *testing.T) {
	acq := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := MACRSSchedule(50_000, 5, acq)
	require.NoError(t, err)
	require.Len(t, schedule, 6)

	// 20% in the first recovery year.
	assert.InDelta(t, 10_000, schedule[0].DepreciationExpense, 0.01)

	var total float64
	for _, yr := range schedule {
		total += yr.DepreciationExpense
	}
	assert.InDelta(t, 50_000, total, 0.01)
}

func TestMACRSUnsupportedPeriod(t *testing.T) {
	acq := time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err := MACRSSchedule(50_000, 10, acq)
	assert.ErrorIs(t, err, ErrUnsupportedRecoveryPeriod)

	_, err = MACRSSchedule(50_000, 3, acq)
	assert.ErrorIs(t, err, ErrUnsupportedRecoveryPeriod)
}
