package valuation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := store.Open(":memory:")
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive for the test.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, store.AutoMigrate(conn))
	t.Cleanup(func() { sqlDB.Close() })
	return conn
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedAsset(t *testing.T, conn *gorm.DB, tag, class string, acquired time.Time, cost float64) *models.Equipment {
	t.Helper()
	eq := &models.Equipment{
		AssetTag:                 tag,
		EquipmentClass:           class,
		FacilityID:               "FAC-001",
		AcquisitionDate:          acquired,
		AcquisitionCost:          cost,
		ExpectedUsefulLifeMonths: 120,
		Status:                   models.StatusActive,
	}
	require.NoError(t, conn.Create(eq).Error)
	return eq
}

func addRollup(t *testing.T, conn *gorm.DB, equipmentID int64, month time.Time, total, contract, downtime float64) {
	t.Helper()
	row := &models.MonthlyRollup{
		EquipmentID:           equipmentID,
		Month:                 month,
		TotalCost:             total,
		ContractCostAllocated: contract,
		DowntimeHours:         downtime,
	}
	require.NoError(t, conn.Create(row).Error)
}

// addFlatRollups inserts n months of identical totals ending at end.
func addFlatRollups(t *testing.T, conn *gorm.DB, equipmentID int64, end time.Time, n int, total float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		addRollup(t, conn, equipmentID, end.AddDate(0, i-n+1, 0), total, 0, 0)
	}
}

func TestCalculateTCO(t *testing.T) {
	conn := testDB(t)
	c := NewTCOCalculator(conn, 0)
	ctx := context.Background()

	eq := seedAsset(t, conn, "EQ-400001", "ct_scanner", date(2020, 6, 15), 100_000)
	addRollup(t, conn, eq.ID, date(2022, 3, 1), 1000, 500, 4)
	addRollup(t, conn, eq.ID, date(2022, 4, 1), 2000, 0, 6)
	// After asOf, so it must not count.
	addRollup(t, conn, eq.ID, date(2023, 1, 1), 99_999, 0, 100)

	report, err := c.CalculateTCO(ctx, eq.ID, date(2022, 6, 15))
	require.NoError(t, err)

	assert.Equal(t, "EQ-400001", report.AssetTag)
	assert.Equal(t, "ct_scanner", report.EquipmentClass)
	assert.Equal(t, 100_000.0, report.AcquisitionCost)
	assert.Equal(t, 3000.0, report.CumulativeMaintenance)
	assert.Equal(t, 500.0, report.CumulativeContracts)
	// Ten downtime hours at the default 500/hour.
	assert.Equal(t, 5000.0, report.EstimatedDowntimeCost)
	assert.Equal(t, 108_000.0, report.TotalTCO)
	assert.Equal(t, 2.0, report.AgeYears)
	assert.InDelta(t, 54_037.0, report.AnnualizedTCO, 0.5)
	assert.Equal(t, 0.03, report.MaintenanceToAcquisitionRatio)
}

func TestCalculateTCONewAssetUsesHalfYearFloor(t *testing.T) {
	conn := testDB(t)
	c := NewTCOCalculator(conn, 0)

	eq := seedAsset(t, conn, "EQ-400002", "ventilator", date(2024, 5, 1), 50_000)

	report, err := c.CalculateTCO(context.Background(), eq.ID, date(2024, 6, 15))
	require.NoError(t, err)

	assert.Equal(t, 50_000.0, report.TotalTCO)
	assert.Equal(t, 0.1, report.AgeYears)
	// Forty-five days old, annualized over the half-year floor.
	assert.Equal(t, 100_000.0, report.AnnualizedTCO)
	assert.Equal(t, 0.0, report.MaintenanceToAcquisitionRatio)
}

func TestCalculateTCOUnknownEquipment(t *testing.T) {
	c := NewTCOCalculator(testDB(t), 0)
	_, err := c.CalculateTCO(context.Background(), 9999, date(2024, 6, 15))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCompareTCO(t *testing.T) {
	conn := testDB(t)
	c := NewTCOCalculator(conn, 0)
	ctx := context.Background()
	asOf := date(2024, 6, 15)

	cheap := seedAsset(t, conn, "EQ-400010", "ultrasound", date(2022, 6, 15), 60_000)
	mid := seedAsset(t, conn, "EQ-400011", "ultrasound", date(2022, 6, 15), 60_000)
	costly := seedAsset(t, conn, "EQ-400012", "ultrasound", date(2022, 6, 15), 60_000)
	addFlatRollups(t, conn, cheap.ID, date(2024, 6, 1), 12, 100)
	addFlatRollups(t, conn, mid.ID, date(2024, 6, 1), 12, 500)
	addFlatRollups(t, conn, costly.ID, date(2024, 6, 1), 12, 2000)

	cmp, err := c.CompareTCO(ctx, []int64{mid.ID, costly.ID, cheap.ID}, asOf)
	require.NoError(t, err)

	require.Len(t, cmp.Reports, 3)
	assert.Equal(t, "EQ-400010", cmp.BestPerformer)
	assert.Equal(t, "EQ-400012", cmp.WorstPerformer)

	var sum float64
	for _, r := range cmp.Reports {
		sum += r.AnnualizedTCO
	}
	assert.InDelta(t, sum/3, cmp.FleetAvgAnnualizedTCO, 0.01)
}

func TestCompareTCORequiresTwoAssets(t *testing.T) {
	c := NewTCOCalculator(testDB(t), 0)
	_, err := c.CompareTCO(context.Background(), []int64{1}, date(2024, 6, 15))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooFewAssets))
}
