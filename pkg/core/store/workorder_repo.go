package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/models"
)

// ClassRepair is one corrective work order joined to its asset's
// acquisition date, the raw material for class failure-rate fitting.
type ClassRepair struct {
	EquipmentID     int64     `json:"equipment_id"`
	OpenedDate      time.Time `json:"opened_date"`
	AcquisitionDate time.Time `json:"acquisition_date"`
}

// WorkOrderRepo reads and writes maintenance work orders.
type WorkOrderRepo struct {
	db *gorm.DB
}

// NewWorkOrderRepo creates a repository bound to conn.
func NewWorkOrderRepo(conn *gorm.DB) *WorkOrderRepo {
	return &WorkOrderRepo{db: conn}
}

// ByEquipment returns every work order for an asset ordered by opened date.
func (r *WorkOrderRepo) ByEquipment(ctx context.Context, equipmentID int64) ([]models.WorkOrder, error) {
	var orders []models.WorkOrder
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("opened_date").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load work orders for equipment %d: %w", equipmentID, err)
	}
	return orders, nil
}

// Corrective returns the corrective repairs for an asset ordered by opened
// date. These are the failure events of the reliability models.
func (r *WorkOrderRepo) Corrective(ctx context.Context, equipmentID int64) ([]models.WorkOrder, error) {
	var orders []models.WorkOrder
	err := r.db.WithContext(ctx).
		Where("equipment_id = ? AND wo_type = ?", equipmentID, models.WOTypeCorrectiveRepair).
		Order("opened_date").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load corrective repairs for equipment %d: %w", equipmentID, err)
	}
	return orders, nil
}

// ListByEquipment returns one page of an asset's work orders, newest first,
// plus the total count.
func (r *WorkOrderRepo) ListByEquipment(ctx context.Context, equipmentID int64, page, pageSize int) ([]models.WorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.WorkOrder{}).Where("equipment_id = ?", equipmentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count work orders: %w", err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var orders []models.WorkOrder
	err := query.Order("opened_date DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work orders: %w", err)
	}
	return orders, total, nil
}

// CorrectiveByClass returns every corrective repair across an equipment
// class joined to the asset's acquisition date. Grouping by repair year
// happens in the reliability layer, which keeps the query portable across
// sqlite and postgres.
func (r *WorkOrderRepo) CorrectiveByClass(ctx context.Context, class string) ([]ClassRepair, error) {
	var rows []ClassRepair
	err := r.db.WithContext(ctx).Model(&models.WorkOrder{}).
		Select("work_orders.equipment_id, work_orders.opened_date, equipment.acquisition_date").
		Joins("JOIN equipment ON equipment.id = work_orders.equipment_id").
		Where("equipment.equipment_class = ? AND work_orders.wo_type = ?", class, models.WOTypeCorrectiveRepair).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load class repairs for %s: %w", class, err)
	}
	return rows, nil
}

// CreateBatch inserts work orders in chunks.
func (r *WorkOrderRepo) CreateBatch(ctx context.Context, orders []models.WorkOrder) error {
	if len(orders) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(orders, 500).Error; err != nil {
		return fmt.Errorf("failed to batch create work orders: %w", err)
	}
	return nil
}

// Count returns the total number of work orders.
func (r *WorkOrderRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.WorkOrder{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count work orders: %w", err)
	}
	return n, nil
}
