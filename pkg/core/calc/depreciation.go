// Package calc provides the deterministic financial math of the cost
// engine: fiscal year alignment, depreciation schedules, NPV, and IRR.
// Everything here is pure; persistence lives in pkg/core/valuation.
package calc

import (
	"errors"
	"math"
	"time"

	"equipcost_forecast/pkg/models"
)

// =============================================================================
// FISCAL CALENDAR
// Hospital fiscal years run October 1 through September 30.
// =============================================================================

// FiscalYear returns the fiscal year containing d. October and later dates
// belong to the next calendar year's fiscal year.
func FiscalYear(d time.Time) int {
	if d.Month() >= time.October {
		return d.Year() + 1
	}
	return d.Year()
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// =============================================================================
// DEPRECIATION SCHEDULES
// =============================================================================

// MACRS recovery percentages, half-year convention.
var (
	MACRS5Year = []float64{0.20, 0.32, 0.192, 0.1152, 0.1152, 0.0576}
	MACRS7Year = []float64{0.1429, 0.2449, 0.1749, 0.1249, 0.0893, 0.0892, 0.0893, 0.0446}
)

// ErrUnsupportedRecoveryPeriod rejects MACRS periods other than 5 or 7.
var ErrUnsupportedRecoveryPeriod = errors.New("unsupported MACRS recovery period")

// StraightLineSchedule builds a straight-line depreciation schedule aligned
// to the fiscal calendar. The first fiscal year is prorated by the months
// remaining in it at acquisition; a final stub year absorbs whatever the
// proration deferred, so the ending book value lands on the salvage value.
//
// FORMULA: annual expense = (cost - salvage) / life
func StraightLineSchedule(acquisitionCost, salvageValue float64, usefulLifeYears int, acquisitionDate time.Time) []models.DepreciationYear {
	depreciable := acquisitionCost - salvageValue
	annualExpense := depreciable / float64(usefulLifeYears)

	startFY := FiscalYear(acquisitionDate)

	month := int(acquisitionDate.Month())
	var monthsFirstYear int
	if month >= 10 {
		monthsFirstYear = 12 - (month - 10)
	} else {
		monthsFirstYear = 10 - month
	}
	prorateFirst := float64(monthsFirstYear) / 12

	schedule := make([]models.DepreciationYear, 0, usefulLifeYears+1)
	bookValue := acquisitionCost
	accumulated := 0.0
	remaining := depreciable

	for i := 0; i <= usefulLifeYears; i++ {
		if remaining <= 0.01 {
			break
		}

		var expense float64
		switch {
		case i == 0:
			expense = annualExpense * prorateFirst
		case remaining < annualExpense:
			expense = remaining
		default:
			expense = annualExpense
		}
		expense = math.Min(expense, remaining)

		beginning := bookValue
		accumulated += expense
		bookValue -= expense
		remaining -= expense

		schedule = append(schedule, models.DepreciationYear{
			FiscalYear:              startFY + i,
			BeginningBookValue:      Round2(beginning),
			DepreciationExpense:     Round2(expense),
			EndingBookValue:         Round2(bookValue),
			AccumulatedDepreciation: Round2(accumulated),
		})
	}

	return schedule
}

// MACRSSchedule builds a MACRS depreciation schedule for a 5- or 7-year
// recovery period. The half-year convention spreads an n-year period over
// n+1 fiscal years.
//
// FORMULA: expense_i = cost × pct_i
func MACRSSchedule(acquisitionCost float64, recoveryPeriod int, acquisitionDate time.Time) ([]models.DepreciationYear, error) {
	var percentages []float64
	switch recoveryPeriod {
	case 5:
		percentages = MACRS5Year
	case 7:
		percentages = MACRS7Year
	default:
		return nil, ErrUnsupportedRecoveryPeriod
	}

	startFY := FiscalYear(acquisitionDate)

	schedule := make([]models.DepreciationYear, 0, len(percentages))
	bookValue := acquisitionCost
	accumulated := 0.0

	for i, pct := range percentages {
		expense := acquisitionCost * pct
		beginning := bookValue
		accumulated += expense
		bookValue -= expense

		schedule = append(schedule, models.DepreciationYear{
			FiscalYear:              startFY + i,
			BeginningBookValue:      Round2(beginning),
			DepreciationExpense:     Round2(expense),
			EndingBookValue:         Round2(math.Max(0, bookValue)),
			AccumulatedDepreciation: Round2(accumulated),
		})
	}

	return schedule, nil
}
