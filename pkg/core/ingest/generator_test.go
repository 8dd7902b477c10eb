package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/config"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/core/validate"
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

func testProfile() config.FleetProfile {
	return config.FleetProfile{
		Seed:        42,
		Facilities:  []string{"FAC-001", "FAC-002"},
		Departments: []string{"Radiology", "ICU"},
		Classes: []config.ClassProfile{
			{
				Name:              "ct_scanner",
				Count:             4,
				CostMin:           800_000,
				CostMax:           2_500_000,
				UsefulLifeMonths:  120,
				PMFrequencyMonths: 3,
				Manufacturers:     []string{"GE Healthcare", "Siemens"},
				Models:            []string{"Revolution Apex", "SOMATOM Force"},
				RepairCostMin:     2_000,
				RepairCostMax:     30_000,
				PMCostMin:         1_500,
				PMCostMax:         4_000,
			},
			{
				Name:              "infusion_pump",
				Count:             6,
				CostMin:           2_000,
				CostMax:           8_000,
				UsefulLifeMonths:  96,
				PMFrequencyMonths: 12,
				Manufacturers:     []string{"Baxter", "BD"},
				Models:            []string{"Sigma Spectrum", "Alaris 8100"},
				RepairCostMin:     150,
				RepairCostMax:     1_200,
				PMCostMin:         50,
				PMCostMax:         150,
			},
		},
	}
}

func TestGenerateFleet(t *testing.T) {
	conn := testDB(t)
	g := NewGenerator(conn, testProfile(), date(2024, 6, 15))

	counts, err := g.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, counts.Equipment)
	// Quarterly-PM assets get a second annual schedule, annual-PM assets
	// get only one.
	assert.Equal(t, 4*2+6*1, counts.PMSchedules)
	assert.Greater(t, counts.WorkOrders, 0)
	assert.LessOrEqual(t, counts.Contracts, 2*counts.Equipment)

	var rows int64
	require.NoError(t, conn.Model(&models.Equipment{}).Count(&rows).Error)
	assert.EqualValues(t, counts.Equipment, rows)
	require.NoError(t, conn.Model(&models.WorkOrder{}).Count(&rows).Error)
	assert.EqualValues(t, counts.WorkOrders, rows)
	require.NoError(t, conn.Model(&models.ServiceContract{}).Count(&rows).Error)
	assert.EqualValues(t, counts.Contracts, rows)
	require.NoError(t, conn.Model(&models.PMSchedule{}).Count(&rows).Error)
	assert.EqualValues(t, counts.PMSchedules, rows)
}

func TestGenerateRespectsClassProfile(t *testing.T) {
	conn := testDB(t)
	profile := testProfile()
	g := NewGenerator(conn, profile, date(2024, 6, 15))
	_, err := g.Generate(context.Background())
	require.NoError(t, err)

	bands := map[string][2]float64{}
	for _, c := range profile.Classes {
		bands[c.Name] = [2]float64{c.CostMin, c.CostMax}
	}

	var fleet []models.Equipment
	require.NoError(t, conn.Find(&fleet).Error)
	require.Len(t, fleet, 10)

	historyStart := date(2014, 1, 1)
	for _, eq := range fleet {
		band, ok := bands[eq.EquipmentClass]
		require.True(t, ok, "unexpected class %s", eq.EquipmentClass)
		assert.GreaterOrEqual(t, eq.AcquisitionCost, band[0])
		assert.LessOrEqual(t, eq.AcquisitionCost, band[1])
		assert.False(t, eq.AcquisitionDate.Before(historyStart),
			"%s acquired before history start", eq.AssetTag)
		require.NotNil(t, eq.InstallationDate)
		assert.False(t, eq.InstallationDate.Before(eq.AcquisitionDate))
		require.NotNil(t, eq.WarrantyExpiration)
		assert.False(t, eq.WarrantyExpiration.Before(eq.AcquisitionDate))
	}
}

func TestGenerateWorkOrderShape(t *testing.T) {
	conn := testDB(t)
	g := NewGenerator(conn, testProfile(), date(2024, 6, 15))
	_, err := g.Generate(context.Background())
	require.NoError(t, err)

	var orders []models.WorkOrder
	require.NoError(t, conn.Find(&orders).Error)
	require.NotEmpty(t, orders)

	sawPM, sawCorrective := false, false
	for _, wo := range orders {
		check := validate.CheckWorkOrderCosts(&wo)
		assert.True(t, check.IsBalanced, "%s: split %v does not match total", wo.WorkOrderNumber, check.Difference)
		require.NotNil(t, wo.CompletedDate)
		assert.False(t, wo.CompletedDate.Before(wo.OpenedDate))

		switch wo.WOType {
		case models.WOTypeCorrectiveRepair:
			sawCorrective = true
			assert.NotEmpty(t, wo.Priority, wo.WorkOrderNumber)
		default:
			sawPM = true
			// Scheduled maintenance bills the base service through the
			// vendor column.
			assert.Greater(t, wo.VendorCost, 0.0, wo.WorkOrderNumber)
			assert.Equal(t, models.PriorityScheduled, wo.Priority)
		}
	}
	assert.True(t, sawPM, "expected scheduled maintenance orders")
	assert.True(t, sawCorrective, "expected corrective repair orders")
}

func TestGeneratePMScheduleCadence(t *testing.T) {
	conn := testDB(t)
	g := NewGenerator(conn, testProfile(), date(2024, 6, 15))
	_, err := g.Generate(context.Background())
	require.NoError(t, err)

	var schedules []models.PMSchedule
	require.NoError(t, conn.Find(&schedules).Error)
	require.NotEmpty(t, schedules)

	for _, s := range schedules {
		require.NotNil(t, s.LastCompleted)
		require.NotNil(t, s.NextDue)
		want := s.LastCompleted.AddDate(0, 0, s.FrequencyMonths*30)
		assert.True(t, s.NextDue.Equal(want), "next due %s, want %s", s.NextDue, want)
		switch s.FrequencyMonths {
		case 3:
			assert.Equal(t, "quarterly_calibration", s.PMType)
		case 12:
			assert.Equal(t, "annual_pm", s.PMType)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	asOf := date(2024, 6, 15)
	run := func() ([]models.Equipment, []models.WorkOrder) {
		conn := testDB(t)
		g := NewGenerator(conn, testProfile(), asOf)
		_, err := g.Generate(context.Background())
		require.NoError(t, err)

		var fleet []models.Equipment
		require.NoError(t, conn.Order("id").Find(&fleet).Error)
		var orders []models.WorkOrder
		require.NoError(t, conn.Order("work_order_number").Find(&orders).Error)
		return fleet, orders
	}

	fleetA, ordersA := run()
	fleetB, ordersB := run()

	require.Equal(t, len(fleetA), len(fleetB))
	for i := range fleetA {
		assert.Equal(t, fleetA[i].AssetTag, fleetB[i].AssetTag)
		assert.Equal(t, fleetA[i].SerialNumber, fleetB[i].SerialNumber)
		assert.Equal(t, fleetA[i].AcquisitionCost, fleetB[i].AcquisitionCost)
		assert.Equal(t, fleetA[i].Status, fleetB[i].Status)
	}

	require.Equal(t, len(ordersA), len(ordersB))
	for i := range ordersA {
		assert.Equal(t, ordersA[i].WorkOrderNumber, ordersB[i].WorkOrderNumber)
		assert.Equal(t, ordersA[i].TotalCost, ordersB[i].TotalCost)
		assert.Equal(t, ordersA[i].OpenedDate, ordersB[i].OpenedDate)
	}
}

func TestGenerateSeedChangesOutput(t *testing.T) {
	asOf := date(2024, 6, 15)
	run := func(seed int64) []models.Equipment {
		conn := testDB(t)
		profile := testProfile()
		profile.Seed = seed
		g := NewGenerator(conn, profile, asOf)
		_, err := g.Generate(context.Background())
		require.NoError(t, err)
		var fleet []models.Equipment
		require.NoError(t, conn.Order("id").Find(&fleet).Error)
		return fleet
	}

	a, b := run(42), run(7)
	require.Equal(t, len(a), len(b))
	differs := false
	for i := range a {
		if a[i].SerialNumber != b[i].SerialNumber || a[i].AcquisitionCost != b[i].AcquisitionCost {
			differs = true
			break
		}
	}
	assert.True(t, differs, "different seeds should produce different fleets")
}

func TestGeneratedFleetPassesChecks(t *testing.T) {
	conn := testDB(t)
	g := NewGenerator(conn, testProfile(), date(2024, 6, 15))
	counts, err := g.Generate(context.Background())
	require.NoError(t, err)

	report, err := validate.NewChecker(conn).Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean(), "violations: %v", report.Violations)
	assert.Equal(t, counts.Equipment, report.AssetsChecked)
	assert.Equal(t, counts.WorkOrders, report.WorkOrdersChecked)
}

func TestGenerateRequiresClasses(t *testing.T) {
	conn := testDB(t)
	g := NewGenerator(conn, config.FleetProfile{Facilities: []string{"FAC-001"}}, date(2024, 6, 15))
	_, err := g.Generate(context.Background())
	assert.Error(t, err)
}
