package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/models"
)

// RollupSums are windowed totals over an asset's monthly rollups.
type RollupSums struct {
	PMCost         float64 `json:"pm_cost"`
	CorrectiveCost float64 `json:"corrective_cost"`
	PartsCost      float64 `json:"parts_cost"`
	ContractCost   float64 `json:"contract_cost"`
	DowntimeHours  float64 `json:"downtime_hours"`
	TotalCost      float64 `json:"total_cost"`
	WorkOrderCount int     `json:"work_order_count"`
	MonthCount     int     `json:"month_count"`
}

// ClassCost is one equipment class in a fleet spend ranking.
type ClassCost struct {
	EquipmentClass string  `json:"equipment_class"`
	TotalCost      float64 `json:"total_cost"`
	AssetCount     int     `json:"asset_count"`
}

// RollupRepo reads and writes monthly cost rollups. Rollup rows are owned
// by the Aggregator: a rebuild replaces every row for the asset.
type RollupRepo struct {
	db *gorm.DB
}

// NewRollupRepo creates a repository bound to conn.
func NewRollupRepo(conn *gorm.DB) *RollupRepo {
	return &RollupRepo{db: conn}
}

// ReplaceForEquipment deletes the asset's rollups and inserts the new set
// in a single transaction.
func (r *RollupRepo) ReplaceForEquipment(ctx context.Context, equipmentID int64, rows []models.MonthlyRollup) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("equipment_id = ?", equipmentID).
			Delete(&models.MonthlyRollup{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace rollups for equipment %d: %w", equipmentID, err)
	}
	return nil
}

// Count returns the number of rollup rows in the store.
func (r *RollupRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.MonthlyRollup{}).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count rollups: %w", err)
	}
	return n, nil
}

// History returns the asset's rollups ordered by month ascending.
func (r *RollupRepo) History(ctx context.Context, equipmentID int64) ([]models.MonthlyRollup, error) {
	var rows []models.MonthlyRollup
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("month").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cost history for equipment %d: %w", equipmentID, err)
	}
	return rows, nil
}

// SumsThrough totals every rollup with month <= asOf.
func (r *RollupRepo) SumsThrough(ctx context.Context, equipmentID int64, asOf time.Time) (RollupSums, error) {
	return r.sums(ctx, r.db.WithContext(ctx).Model(&models.MonthlyRollup{}).
		Where("equipment_id = ? AND month <= ?", equipmentID, asOf))
}

// SumsSince totals every rollup with month >= since.
func (r *RollupRepo) SumsSince(ctx context.Context, equipmentID int64, since time.Time) (RollupSums, error) {
	return r.sums(ctx, r.db.WithContext(ctx).Model(&models.MonthlyRollup{}).
		Where("equipment_id = ? AND month >= ?", equipmentID, since))
}

func (r *RollupRepo) sums(ctx context.Context, query *gorm.DB) (RollupSums, error) {
	var s RollupSums
	err := query.Select(
		"COALESCE(SUM(pm_cost), 0) AS pm_cost, " +
			"COALESCE(SUM(corrective_cost), 0) AS corrective_cost, " +
			"COALESCE(SUM(parts_cost), 0) AS parts_cost, " +
			"COALESCE(SUM(contract_cost_allocated), 0) AS contract_cost, " +
			"COALESCE(SUM(downtime_hours), 0) AS downtime_hours, " +
			"COALESCE(SUM(total_cost), 0) AS total_cost, " +
			"COALESCE(SUM(work_order_count), 0) AS work_order_count, " +
			"COUNT(*) AS month_count").
		Scan(&s).Error
	if err != nil {
		return RollupSums{}, fmt.Errorf("failed to sum rollups: %w", err)
	}
	return s, nil
}

// TotalSince sums total_cost since the given month across a set of assets.
func (r *RollupRepo) TotalSince(ctx context.Context, equipmentIDs []int64, since time.Time) (float64, error) {
	if len(equipmentIDs) == 0 {
		return 0, nil
	}
	var total float64
	err := r.db.WithContext(ctx).Model(&models.MonthlyRollup{}).
		Where("equipment_id IN ? AND month >= ?", equipmentIDs, since).
		Select("COALESCE(SUM(total_cost), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to total rollups since %s: %w", since.Format("2006-01"), err)
	}
	return total, nil
}

// FleetTotals groups rollup spend since the given month by equipment
// class, most expensive first, optionally restricted to a facility.
func (r *RollupRepo) FleetTotals(ctx context.Context, facilityID string, since time.Time) ([]ClassCost, error) {
	query := r.db.WithContext(ctx).Model(&models.MonthlyRollup{}).
		Select("equipment.equipment_class AS equipment_class, " +
			"COALESCE(SUM(monthly_rollups.total_cost), 0) AS total_cost, " +
			"COUNT(DISTINCT monthly_rollups.equipment_id) AS asset_count").
		Joins("JOIN equipment ON equipment.id = monthly_rollups.equipment_id").
		Where("monthly_rollups.month >= ?", since)
	if facilityID != "" {
		query = query.Where("equipment.facility_id = ?", facilityID)
	}

	var rows []ClassCost
	err := query.Group("equipment.equipment_class").
		Order("total_cost DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to total fleet costs: %w", err)
	}
	return rows, nil
}
