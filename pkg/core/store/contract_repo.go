package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/models"
)

// ContractRepo reads and writes service contracts and PM schedules.
type ContractRepo struct {
	db *gorm.DB
}

// NewContractRepo creates a repository bound to conn.
func NewContractRepo(conn *gorm.DB) *ContractRepo {
	return &ContractRepo{db: conn}
}

// ByEquipment returns every contract covering an asset.
func (r *ContractRepo) ByEquipment(ctx context.Context, equipmentID int64) ([]models.ServiceContract, error) {
	var contracts []models.ServiceContract
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("start_date").
		Find(&contracts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load contracts for equipment %d: %w", equipmentID, err)
	}
	return contracts, nil
}

// ActiveByEquipment returns contracts still in force at the given date.
func (r *ContractRepo) ActiveByEquipment(ctx context.Context, equipmentID int64, at time.Time) ([]models.ServiceContract, error) {
	var contracts []models.ServiceContract
	err := r.db.WithContext(ctx).
		Where("equipment_id = ? AND end_date >= ?", equipmentID, at).
		Order("start_date").
		Find(&contracts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active contracts for equipment %d: %w", equipmentID, err)
	}
	return contracts, nil
}

// CreateBatch inserts contracts in chunks.
func (r *ContractRepo) CreateBatch(ctx context.Context, contracts []models.ServiceContract) error {
	if len(contracts) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(contracts, 200).Error; err != nil {
		return fmt.Errorf("failed to batch create contracts: %w", err)
	}
	return nil
}

// PMSchedulesByEquipment returns the planned PM cadences for an asset.
func (r *ContractRepo) PMSchedulesByEquipment(ctx context.Context, equipmentID int64) ([]models.PMSchedule, error) {
	var schedules []models.PMSchedule
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("frequency_months").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load PM schedules for equipment %d: %w", equipmentID, err)
	}
	return schedules, nil
}

// CreatePMSchedules inserts PM schedules in chunks.
func (r *ContractRepo) CreatePMSchedules(ctx context.Context, schedules []models.PMSchedule) error {
	if len(schedules) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(schedules, 200).Error; err != nil {
		return fmt.Errorf("failed to batch create PM schedules: %w", err)
	}
	return nil
}
