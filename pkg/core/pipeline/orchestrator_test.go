package pipeline

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/config"
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

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
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

// seedRepair books the whole cost as labor so the split stays balanced.
func seedRepair(t *testing.T, conn *gorm.DB, equipmentID int64, number string, opened time.Time, total float64) {
	t.Helper()
	completed := opened.AddDate(0, 0, 1)
	wo := &models.WorkOrder{
		EquipmentID:     equipmentID,
		WorkOrderNumber: number,
		WOType:          models.WOTypeCorrectiveRepair,
		Priority:        models.PriorityRoutine,
		OpenedDate:      opened,
		CompletedDate:   &completed,
		LaborCost:       total,
		TotalCost:       total,
	}
	require.NoError(t, conn.Create(wo).Error)
}

// seedFleet writes one asset with two years of monthly repairs and one
// with only three months, too little to forecast.
func seedFleet(t *testing.T, conn *gorm.DB) (longHistory, shortHistory *models.Equipment) {
	t.Helper()
	longHistory = seedAsset(t, conn, "EQ-640001", "ct_scanner", date(2018, 3, 1), 400_000)
	for i := 0; i < 24; i++ {
		opened := date(2022, time.July, 10).AddDate(0, i, 0)
		total := 500 + float64(i)*5 + float64(i%6)*25
		seedRepair(t, conn, longHistory.ID, fmt.Sprintf("WO-LONG-%03d", i), opened, total)
	}

	shortHistory = seedAsset(t, conn, "EQ-640002", "ultrasound", date(2023, 9, 1), 60_000)
	for i := 0; i < 3; i++ {
		opened := date(2024, time.March, 10).AddDate(0, i, 0)
		seedRepair(t, conn, shortHistory.ID, fmt.Sprintf("WO-SHORT-%03d", i), opened, 200+float64(i)*10)
	}
	return longHistory, shortHistory
}

func TestRunFullBatch(t *testing.T) {
	conn := testDB(t)
	_, short := seedFleet(t, conn)

	o := NewOrchestrator(conn, config.Default(), testLogger())
	result, err := o.Run(context.Background(), date(2024, 6, 15))
	require.NoError(t, err)

	_, err = uuid.Parse(result.RunID)
	assert.NoError(t, err, "run id should be a uuid")

	assert.Equal(t, 27, result.RollupsWritten)
	assert.Equal(t, 2, result.AssetsTotal)
	assert.Equal(t, 1, result.AssetsForecast)
	require.Len(t, result.ForecastErrors, 1)
	assert.Contains(t, result.ForecastErrors[0], short.AssetTag)
	assert.Equal(t, 0, result.Violations)
	assert.Equal(t, 2, result.PrioritiesRanked)
	assert.Greater(t, result.Elapsed, time.Duration(0))

	var forecasts int64
	require.NoError(t, conn.Model(&models.CostForecast{}).Count(&forecasts).Error)
	assert.EqualValues(t, 1, forecasts)
	var analyses int64
	require.NoError(t, conn.Model(&models.ReplacementAnalysis{}).Count(&analyses).Error)
	assert.EqualValues(t, 2, analyses)
}

func TestRunEmptyStore(t *testing.T) {
	conn := testDB(t)
	o := NewOrchestrator(conn, config.Default(), testLogger())

	result, err := o.Run(context.Background(), date(2024, 6, 15))
	require.NoError(t, err)
	assert.Equal(t, 0, result.RollupsWritten)
	assert.Equal(t, 0, result.AssetsTotal)
	assert.Equal(t, 0, result.PrioritiesRanked)
	assert.Empty(t, result.ForecastErrors)
}

func TestRunStrictValidation(t *testing.T) {
	conn := testDB(t)
	asset := seedAsset(t, conn, "EQ-640003", "xray", date(2020, 1, 1), 150_000)
	for i := 0; i < 7; i++ {
		opened := date(2023, time.November, 10).AddDate(0, i, 0)
		seedRepair(t, conn, asset.ID, fmt.Sprintf("WO-XRAY-%03d", i), opened, 300)
	}
	// Broken split: the total does not match labor + parts + vendor.
	badCompleted := date(2024, 5, 21)
	require.NoError(t, conn.Create(&models.WorkOrder{
		EquipmentID:     asset.ID,
		WorkOrderNumber: "WO-BAD-SPLIT",
		WOType:          models.WOTypeCorrectiveRepair,
		Priority:        models.PriorityRoutine,
		OpenedDate:      date(2024, 5, 20),
		CompletedDate:   &badCompleted,
		LaborCost:       100,
		TotalCost:       900,
	}).Error)

	o := NewOrchestrator(conn, config.Default(), testLogger())
	result, err := o.Run(context.Background(), date(2024, 6, 15))
	require.NoError(t, err, "violations only warn by default")
	assert.Equal(t, 1, result.Violations)

	o.StrictValidation = true
	_, err = o.Run(context.Background(), date(2024, 6, 15))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation found 1 violations")
}

func TestForecastFleet(t *testing.T) {
	conn := testDB(t)
	_, short := seedFleet(t, conn)

	o := NewOrchestrator(conn, config.Default(), testLogger())
	// Forecasting needs rollups in place first.
	_, err := o.Run(context.Background(), date(2024, 6, 15))
	require.NoError(t, err)

	batch, err := o.ForecastFleet(context.Background(), date(2024, 6, 15))
	require.NoError(t, err)

	_, err = uuid.Parse(batch.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, batch.Requested)
	assert.Equal(t, 1, batch.Forecast)
	require.Len(t, batch.Errors, 1)
	assert.Contains(t, batch.Errors[0], short.AssetTag)
}
