// Package rollup turns raw work orders and service contracts into the
// per-asset monthly cost facts every downstream model consumes.
package rollup

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

// Aggregator rebuilds monthly cost rollups. It owns the rollup rows: a
// rebuild replaces everything it previously wrote for an asset.
type Aggregator struct {
	equipment *store.EquipmentRepo
	orders    *store.WorkOrderRepo
	contracts *store.ContractRepo
	rollups   *store.RollupRepo
}

// NewAggregator creates an Aggregator over conn.
func NewAggregator(conn *gorm.DB) *Aggregator {
	return &Aggregator{
		equipment: store.NewEquipmentRepo(conn),
		orders:    store.NewWorkOrderRepo(conn),
		contracts: store.NewContractRepo(conn),
		rollups:   store.NewRollupRepo(conn),
	}
}

// ComputeMonthlyRollups rebuilds rollups for one asset, or for the whole
// fleet when equipmentID is nil. Returns the number of rows written.
func (a *Aggregator) ComputeMonthlyRollups(ctx context.Context, equipmentID *int64) (int, error) {
	var ids []int64
	if equipmentID != nil {
		ids = []int64{*equipmentID}
	} else {
		var err error
		ids, err = a.equipment.AllIDs(ctx)
		if err != nil {
			return 0, err
		}
	}

	count := 0
	for _, id := range ids {
		rows, err := a.buildRollups(ctx, id)
		if err != nil {
			return count, err
		}
		if err := a.rollups.ReplaceForEquipment(ctx, id, rows); err != nil {
			return count, err
		}
		count += len(rows)
	}
	return count, nil
}

// CostHistory returns the asset's rollups ordered by month.
func (a *Aggregator) CostHistory(ctx context.Context, equipmentID int64) ([]models.MonthlyRollup, error) {
	return a.rollups.History(ctx, equipmentID)
}

type monthBucket struct {
	pmCost         float64
	correctiveCost float64
	partsCost      float64
	downtimeHours  float64
	workOrderCount int
}

func (a *Aggregator) buildRollups(ctx context.Context, equipmentID int64) ([]models.MonthlyRollup, error) {
	orders, err := a.orders.ByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	buckets := make(map[time.Time]*monthBucket)
	for _, wo := range orders {
		m := firstOfMonth(wo.OpenedDate)
		b, ok := buckets[m]
		if !ok {
			b = &monthBucket{}
			buckets[m] = b
		}
		// Corrective repairs are failure spend; every other order type is
		// planned maintenance.
		if wo.WOType == models.WOTypeCorrectiveRepair {
			b.correctiveCost += wo.TotalCost
		} else {
			b.pmCost += wo.TotalCost
		}
		b.partsCost += wo.PartsCost
		b.downtimeHours += wo.DowntimeHours
		b.workOrderCount++
	}

	contracts, err := a.contracts.ByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}

	allocations := make(map[time.Time]float64)
	for _, c := range contracts {
		if c.AnnualCost == 0 || c.StartDate == nil || c.EndDate == nil {
			continue
		}
		monthly := c.AnnualCost / 12
		end := *c.EndDate
		for cur := firstOfMonth(*c.StartDate); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
			allocations[cur] += monthly
		}
	}

	months := make(map[time.Time]struct{}, len(buckets)+len(allocations))
	for m := range buckets {
		months[m] = struct{}{}
	}
	for m := range allocations {
		months[m] = struct{}{}
	}

	ordered := make([]time.Time, 0, len(months))
	for m := range months {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	rows := make([]models.MonthlyRollup, 0, len(ordered))
	for _, m := range ordered {
		b := buckets[m]
		if b == nil {
			b = &monthBucket{}
		}
		alloc := allocations[m]
		total := b.pmCost + b.correctiveCost + alloc

		rows = append(rows, models.MonthlyRollup{
			EquipmentID:           equipmentID,
			Month:                 m,
			PMCost:                calc.Round2(b.pmCost),
			CorrectiveCost:        calc.Round2(b.correctiveCost),
			PartsCost:             calc.Round2(b.partsCost),
			ContractCostAllocated: calc.Round2(alloc),
			DowntimeHours:         calc.Round2(b.downtimeHours),
			WorkOrderCount:        b.workOrderCount,
			TotalCost:             calc.Round2(total),
		})
	}

	return rows, nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
