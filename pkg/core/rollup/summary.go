package rollup

import (
	"context"
	"time"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/models"
)

// FleetSummary aggregates the trailing twelve months of spend across a
// facility, or the whole fleet when facilityID is empty.
func (a *Aggregator) FleetSummary(ctx context.Context, facilityID string, asOf time.Time) (*models.FleetCostSummary, error) {
	equipment, err := a.equipment.ByFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if len(equipment) == 0 {
		return &models.FleetCostSummary{
			FacilityID:     facilityID,
			TopCostClasses: []models.ClassCostEntry{},
		}, nil
	}

	since := time.Date(asOf.Year()-1, asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	classCosts, err := a.rollups.FleetTotals(ctx, facilityID, since)
	if err != nil {
		return nil, err
	}

	var total float64
	top := make([]models.ClassCostEntry, 0, 5)
	for i, cc := range classCosts {
		total += cc.TotalCost
		if i < 5 {
			top = append(top, models.ClassCostEntry{
				EquipmentClass: cc.EquipmentClass,
				AnnualCost:     calc.Round2(cc.TotalCost),
				AssetCount:     cc.AssetCount,
			})
		}
	}

	aging := 0
	for _, e := range equipment {
		if e.ExpectedUsefulLifeMonths <= 0 {
			continue
		}
		ageMonths := asOf.Sub(e.AcquisitionDate).Hours() / 24 / 30.44
		if ageMonths > float64(e.ExpectedUsefulLifeMonths) {
			aging++
		}
	}

	return &models.FleetCostSummary{
		FacilityID:       facilityID,
		TotalEquipment:   len(equipment),
		TotalAnnualCost:  calc.Round2(total),
		AvgCostPerAsset:  calc.Round2(total / float64(len(equipment))),
		TopCostClasses:   top,
		AgingAssetsCount: aging,
	}, nil
}
