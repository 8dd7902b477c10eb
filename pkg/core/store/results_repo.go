package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/models"
)

// ResultsRepo persists analytical outputs: forecasts, replacement
// analyses, and depreciation schedules.
type ResultsRepo struct {
	db *gorm.DB
}

// NewResultsRepo creates a repository bound to conn.
func NewResultsRepo(conn *gorm.DB) *ResultsRepo {
	return &ResultsRepo{db: conn}
}

// SaveForecast appends one forecast run. Runs accumulate; readers take the
// latest.
func (r *ResultsRepo) SaveForecast(ctx context.Context, fc *models.CostForecast) error {
	if err := r.db.WithContext(ctx).Create(fc).Error; err != nil {
		return fmt.Errorf("failed to save forecast: %w", err)
	}
	return nil
}

// LatestForecast returns the most recent forecast for an asset or
// ErrNotFound.
func (r *ResultsRepo) LatestForecast(ctx context.Context, equipmentID int64) (*models.CostForecast, error) {
	var fc models.CostForecast
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("forecast_date DESC, id DESC").
		First(&fc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load forecast for equipment %d: %w", equipmentID, err)
	}
	return &fc, nil
}

// LatestForecastDate returns the newest forecast date across the fleet,
// nil when no forecasts exist.
func (r *ResultsRepo) LatestForecastDate(ctx context.Context) (*time.Time, error) {
	var fc models.CostForecast
	err := r.db.WithContext(ctx).Order("forecast_date DESC, id DESC").First(&fc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest forecast date: %w", err)
	}
	return &fc.ForecastDate, nil
}

// CountForecasts returns the number of persisted forecast runs.
func (r *ResultsRepo) CountForecasts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.CostForecast{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count forecasts: %w", err)
	}
	return n, nil
}

// ReplaceAnalysis stores exactly one replacement analysis per asset,
// replacing any previous run in the same transaction.
func (r *ResultsRepo) ReplaceAnalysis(ctx context.Context, analysis *models.ReplacementAnalysis) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("equipment_id = ?", analysis.EquipmentID).
			Delete(&models.ReplacementAnalysis{}).Error; err != nil {
			return err
		}
		return tx.Create(analysis).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace analysis for equipment %d: %w", analysis.EquipmentID, err)
	}
	return nil
}

// LatestAnalysis returns the stored replacement analysis for an asset or
// ErrNotFound.
func (r *ResultsRepo) LatestAnalysis(ctx context.Context, equipmentID int64) (*models.ReplacementAnalysis, error) {
	var a models.ReplacementAnalysis
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("analysis_date DESC, id DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis for equipment %d: %w", equipmentID, err)
	}
	return &a, nil
}

// ReplaceDepreciation swaps the stored schedule for an (asset, method)
// pair in one transaction.
func (r *ResultsRepo) ReplaceDepreciation(ctx context.Context, equipmentID int64, method string, rows []models.DepreciationSchedule) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("equipment_id = ? AND method = ?", equipmentID, method).
			Delete(&models.DepreciationSchedule{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace depreciation for equipment %d: %w", equipmentID, err)
	}
	return nil
}

// DepreciationRows returns the stored schedule for an (asset, method) pair
// ordered by fiscal year.
func (r *ResultsRepo) DepreciationRows(ctx context.Context, equipmentID int64, method string) ([]models.DepreciationSchedule, error) {
	var rows []models.DepreciationSchedule
	err := r.db.WithContext(ctx).
		Where("equipment_id = ? AND method = ?", equipmentID, method).
		Order("fiscal_year").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load depreciation for equipment %d: %w", equipmentID, err)
	}
	return rows, nil
}
