package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equipcost_forecast/pkg/models"
)

// DefaultPageSize and MaxPageSize bound list pagination.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// EquipmentFilter narrows equipment listings. Zero fields are ignored.
type EquipmentFilter struct {
	FacilityID     string
	EquipmentClass string
	Status         string
	Manufacturer   string
	Page           int
	PageSize       int
}

// EquipmentRepo reads and writes the equipment registry.
type EquipmentRepo struct {
	db *gorm.DB
}

// NewEquipmentRepo creates a repository bound to conn.
func NewEquipmentRepo(conn *gorm.DB) *EquipmentRepo {
	return &EquipmentRepo{db: conn}
}

// ByID returns one asset or ErrNotFound.
func (r *EquipmentRepo) ByID(ctx context.Context, id int64) (*models.Equipment, error) {
	var eq models.Equipment
	err := r.db.WithContext(ctx).First(&eq, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment %d: %w", id, err)
	}
	return &eq, nil
}

// ByAssetTag returns one asset by its tag or ErrNotFound.
func (r *EquipmentRepo) ByAssetTag(ctx context.Context, tag string) (*models.Equipment, error) {
	var eq models.Equipment
	err := r.db.WithContext(ctx).Where("asset_tag = ?", tag).First(&eq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment %s: %w", tag, err)
	}
	return &eq, nil
}

// List returns a page of assets matching the filter plus the total match
// count. Pages are 1-based; page sizes are clamped to MaxPageSize.
func (r *EquipmentRepo) List(ctx context.Context, f EquipmentFilter) ([]models.Equipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Equipment{})
	if f.FacilityID != "" {
		query = query.Where("facility_id = ?", f.FacilityID)
	}
	if f.EquipmentClass != "" {
		query = query.Where("equipment_class = ?", f.EquipmentClass)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Manufacturer != "" {
		query = query.Where("manufacturer = ?", f.Manufacturer)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count equipment: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	var items []models.Equipment
	err := query.Order("asset_tag").
		Offset((page - 1) * size).
		Limit(size).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list equipment: %w", err)
	}
	return items, total, nil
}

// Active returns every active asset, optionally restricted to a facility.
func (r *EquipmentRepo) Active(ctx context.Context, facilityID string) ([]models.Equipment, error) {
	query := r.db.WithContext(ctx).Where("status = ?", models.StatusActive)
	if facilityID != "" {
		query = query.Where("facility_id = ?", facilityID)
	}
	var items []models.Equipment
	if err := query.Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list active equipment: %w", err)
	}
	return items, nil
}

// ByFacility returns every asset, optionally restricted to one facility.
func (r *EquipmentRepo) ByFacility(ctx context.Context, facilityID string) ([]models.Equipment, error) {
	query := r.db.WithContext(ctx)
	if facilityID != "" {
		query = query.Where("facility_id = ?", facilityID)
	}
	var items []models.Equipment
	if err := query.Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment by facility: %w", err)
	}
	return items, nil
}

// AllIDs returns every equipment id.
func (r *EquipmentRepo) AllIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Equipment{}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment ids: %w", err)
	}
	return ids, nil
}

// MeanClassCost returns the average acquisition cost of an equipment class,
// used to estimate replacement cost when no quote is supplied.
func (r *EquipmentRepo) MeanClassCost(ctx context.Context, class string) (float64, error) {
	var mean *float64
	err := r.db.WithContext(ctx).Model(&models.Equipment{}).
		Where("equipment_class = ?", class).
		Select("AVG(acquisition_cost)").
		Scan(&mean).Error
	if err != nil {
		return 0, fmt.Errorf("failed to average class cost: %w", err)
	}
	if mean == nil {
		return 0, nil
	}
	return *mean, nil
}

// Create inserts one asset.
func (r *EquipmentRepo) Create(ctx context.Context, eq *models.Equipment) error {
	if err := r.db.WithContext(ctx).Create(eq).Error; err != nil {
		return fmt.Errorf("failed to create equipment: %w", err)
	}
	return nil
}

// CreateBatch inserts assets in chunks.
func (r *EquipmentRepo) CreateBatch(ctx context.Context, items []models.Equipment) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(items, 200).Error; err != nil {
		return fmt.Errorf("failed to batch create equipment: %w", err)
	}
	return nil
}

// Delete removes an asset and all dependent rows.
func (r *EquipmentRepo) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Select(clause.Associations).
		Delete(&models.Equipment{ID: id}).Error; err != nil {
		return fmt.Errorf("failed to delete equipment %d: %w", id, err)
	}
	return nil
}

// Count returns the total number of registered assets.
func (r *EquipmentRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Equipment{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count equipment: %w", err)
	}
	return n, nil
}
