package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipcost_forecast/pkg/models"
)

func TestPredictNextFailureRequiresTwoRepairs(t *testing.T) {
	conn := testDB(t)
	p := NewMTBFPredictor(conn)

	eq := seedAsset(t, conn, "EQ-300001", "infusion_pump", date(2020, 1, 1))
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 5, 1), 400)

	_, err := p.PredictNextFailure(context.Background(), eq.ID, date(2024, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientRepairHistory))
}

func TestPredictNextFailureNoPositiveIntervals(t *testing.T) {
	conn := testDB(t)
	p := NewMTBFPredictor(conn)

	eq := seedAsset(t, conn, "EQ-300002", "infusion_pump", date(2020, 1, 1))
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 5, 1), 400)
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 5, 1), 500)

	_, err := p.PredictNextFailure(context.Background(), eq.ID, date(2024, 1, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoValidIntervals))
}

func TestPredictNextFailureSteadyCadence(t *testing.T) {
	conn := testDB(t)
	p := NewMTBFPredictor(conn)

	// Repairs exactly 90 days apart leave zero spread, so the 90-day
	// probability becomes a step function around the MTBF.
	eq := seedAsset(t, conn, "EQ-300003", "patient_monitor", date(2020, 1, 1))
	for _, opened := range []time.Time{
		date(2023, 1, 1), date(2023, 4, 1), date(2023, 6, 30), date(2023, 9, 28),
	} {
		addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, opened, 1000)
	}

	pred, err := p.PredictNextFailure(context.Background(), eq.ID, date(2023, 10, 28))
	require.NoError(t, err)

	assert.Equal(t, eq.ID, pred.EquipmentID)
	assert.Equal(t, 90.0, pred.MTBFDays)
	assert.Equal(t, date(2023, 12, 27), pred.PredictedNextFailure)
	assert.Equal(t, 1.0, pred.ProbabilityWithin90Days)
	assert.Equal(t, 1050.0, pred.EstimatedRepairCost)
}

func TestPredictNextFailureLongCycleLowProbability(t *testing.T) {
	conn := testDB(t)
	p := NewMTBFPredictor(conn)

	// Annual failures, checked a month after the latest repair: the next
	// 90 days sit far inside the cycle.
	eq := seedAsset(t, conn, "EQ-300004", "surgical_light", date(2018, 1, 1))
	for _, opened := range []time.Time{
		date(2021, 1, 1), date(2022, 1, 1), date(2023, 1, 1),
	} {
		addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, opened, 800)
	}

	pred, err := p.PredictNextFailure(context.Background(), eq.ID, date(2023, 2, 1))
	require.NoError(t, err)

	assert.Equal(t, 365.0, pred.MTBFDays)
	assert.Equal(t, 0.0, pred.ProbabilityWithin90Days)
	assert.Equal(t, date(2024, 1, 1), pred.PredictedNextFailure)
}

func TestPredictNextFailureSingleInterval(t *testing.T) {
	conn := testDB(t)
	p := NewMTBFPredictor(conn)

	// One 100-day interval: spread defaults to 30% of MTBF, and ten days
	// after the last repair the z-score lands exactly at zero.
	eq := seedAsset(t, conn, "EQ-300005", "c_arm", date(2021, 1, 1))
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 1, 1), 800)
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 4, 11), 1200)

	pred, err := p.PredictNextFailure(context.Background(), eq.ID, date(2023, 4, 21))
	require.NoError(t, err)

	assert.Equal(t, 100.0, pred.MTBFDays)
	assert.Equal(t, date(2023, 7, 20), pred.PredictedNextFailure)
	assert.Equal(t, 0.5, pred.ProbabilityWithin90Days)
	assert.Equal(t, 1050.0, pred.EstimatedRepairCost)
}

func TestPredictNextFailureProbabilityFromSpread(t *testing.T) {
	conn := testDB(t)
	p := NewMTBFPredictor(conn)

	// Gaps of 60 and 120 days: MTBF 90, population spread 30. Ninety days
	// after the last repair the window endpoint is three sigmas out.
	eq := seedAsset(t, conn, "EQ-300006", "ct_scanner", date(2020, 1, 1))
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 1, 1), 500)
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 3, 2), 1000)
	addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, date(2023, 6, 30), 1500)

	pred, err := p.PredictNextFailure(context.Background(), eq.ID, date(2023, 9, 28))
	require.NoError(t, err)

	assert.Equal(t, 90.0, pred.MTBFDays)
	assert.Equal(t, date(2023, 9, 28), pred.PredictedNextFailure)
	assert.Equal(t, 0.9987, pred.ProbabilityWithin90Days)
	assert.Equal(t, 1050.0, pred.EstimatedRepairCost)
}

func TestPredictNextFailureUsesRecentCosts(t *testing.T) {
	conn := testDB(t)
	p := NewMTBFPredictor(conn)

	// Seven repairs, 30 days apart. Only the last five bills feed the
	// cost estimate.
	eq := seedAsset(t, conn, "EQ-300007", "mri", date(2019, 1, 1))
	opened := date(2023, 1, 1)
	for i, cost := range []float64{9999, 9999, 1000, 1000, 1000, 1000, 1000} {
		addOrder(t, conn, eq, models.WOTypeCorrectiveRepair, opened.AddDate(0, 0, 30*i), cost)
	}

	pred, err := p.PredictNextFailure(context.Background(), eq.ID, date(2023, 7, 15))
	require.NoError(t, err)

	assert.Equal(t, 30.0, pred.MTBFDays)
	assert.Equal(t, 1050.0, pred.EstimatedRepairCost)
}
