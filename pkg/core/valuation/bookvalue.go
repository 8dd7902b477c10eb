package valuation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

// BookValuer rebuilds depreciation schedules and reads current book
// value off them.
type BookValuer struct {
	equipment *store.EquipmentRepo
	results   *store.ResultsRepo
}

func NewBookValuer(conn *gorm.DB) *BookValuer {
	return &BookValuer{
		equipment: store.NewEquipmentRepo(conn),
		results:   store.NewResultsRepo(conn),
	}
}

// BookValue recomputes and persists the asset's depreciation schedule
// under the given method, then returns the book value at the end of the
// latest fiscal year that has started by asOf. Straight-line assumes a
// 5% salvage value over the nameplate life; any other method is treated
// as MACRS with a seven-year recovery. Assets acquired after asOf are
// still carried at full cost.
func (b *BookValuer) BookValue(ctx context.Context, equipmentID int64, method string, asOf time.Time) (float64, error) {
	eq, err := b.equipment.ByID(ctx, equipmentID)
	if err != nil {
		return 0, err
	}

	usefulMonths := eq.ExpectedUsefulLifeMonths
	if usefulMonths == 0 {
		usefulMonths = 120
	}

	var entries []models.DepreciationYear
	if method == models.DepreciationMACRS {
		entries, err = calc.MACRSSchedule(eq.AcquisitionCost, 7, eq.AcquisitionDate)
		if err != nil {
			return 0, err
		}
	} else {
		salvage := eq.AcquisitionCost * 0.05
		entries = calc.StraightLineSchedule(eq.AcquisitionCost, salvage, usefulMonths/12, eq.AcquisitionDate)
	}

	currentFY := calc.FiscalYear(asOf)
	bookValue := eq.AcquisitionCost
	rows := make([]models.DepreciationSchedule, len(entries))
	for i, entry := range entries {
		rows[i] = models.DepreciationSchedule{
			EquipmentID:             equipmentID,
			FiscalYear:              entry.FiscalYear,
			Method:                  method,
			BeginningBookValue:      entry.BeginningBookValue,
			DepreciationExpense:     entry.DepreciationExpense,
			EndingBookValue:         entry.EndingBookValue,
			AccumulatedDepreciation: entry.AccumulatedDepreciation,
		}
		if entry.FiscalYear <= currentFY {
			bookValue = entry.EndingBookValue
		}
	}

	if err := b.results.ReplaceDepreciation(ctx, equipmentID, method, rows); err != nil {
		return 0, fmt.Errorf("failed to persist depreciation schedule: %w", err)
	}
	return bookValue, nil
}
