// Package forecast fits time-series models to monthly cost rollups and
// projects maintenance spend forward with confidence bands. Two model
// families are supported: ARIMA(1,1,1) estimated by conditional sum of
// squares, and Holt exponential smoothing with an additive trend. Short
// histories are routed to the simpler model automatically.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

// DefaultMinHistoryMonths is how much history ARIMA needs before it is
// trusted over exponential smoothing.
const DefaultMinHistoryMonths = 24

// DefaultHorizonMonths is the standard forecast length.
const DefaultHorizonMonths = 36

// ErrInsufficientHistory means the asset has fewer than six months of
// cost rollups, too little for any model.
var ErrInsufficientHistory = errors.New("insufficient cost history")

// Series is a monthly cost series. Months are first-of-month dates and
// align one to one with Values.
type Series struct {
	Months []time.Time
	Values []float64
}

// Forecaster runs cost forecasts against rollup history and persists the
// results.
type Forecaster struct {
	MinHistoryMonths int

	rollups *store.RollupRepo
	results *store.ResultsRepo
}

func NewForecaster(conn *gorm.DB) *Forecaster {
	return &Forecaster{
		MinHistoryMonths: DefaultMinHistoryMonths,
		rollups:          store.NewRollupRepo(conn),
		results:          store.NewResultsRepo(conn),
	}
}

// ForecastEquipment forecasts one asset's monthly costs and stores the
// run. Method is "arima", "exponential_smoothing", or "auto". Assets with
// at least six but fewer than MinHistoryMonths months of history fall
// back to exponential smoothing regardless of the requested method.
func (f *Forecaster) ForecastEquipment(ctx context.Context, equipmentID int64, horizon int, method string, asOf time.Time) (models.ForecastResult, error) {
	history, err := f.rollups.History(ctx, equipmentID)
	if err != nil {
		return models.ForecastResult{}, fmt.Errorf("failed to load cost history: %w", err)
	}

	series := Series{
		Months: make([]time.Time, len(history)),
		Values: make([]float64, len(history)),
	}
	for i, row := range history {
		series.Months[i] = row.Month
		series.Values[i] = row.TotalCost
	}

	var result models.ForecastResult
	switch {
	case len(history) < 6:
		return models.ForecastResult{}, fmt.Errorf("equipment %d has %d months of cost history, need at least 6: %w",
			equipmentID, len(history), ErrInsufficientHistory)
	case len(history) < f.MinHistoryMonths:
		result = f.ExponentialSmoothing(series, horizon)
	case method == models.MethodARIMA || method == models.MethodAuto:
		result = f.ARIMA(series, horizon)
	default:
		result = f.ExponentialSmoothing(series, horizon)
	}

	record, err := f.buildRecord(equipmentID, asOf, history, result)
	if err != nil {
		return models.ForecastResult{}, err
	}
	if err := f.results.SaveForecast(ctx, record); err != nil {
		return models.ForecastResult{}, fmt.Errorf("failed to save forecast: %w", err)
	}
	return result, nil
}

// buildRecord rolls the forecast and its history into a persistable row
// with the three TCO figures: spend so far this calendar year, lifetime
// spend to date, and predicted spend across next calendar year.
func (f *Forecaster) buildRecord(equipmentID int64, asOf time.Time, history []models.MonthlyRollup, result models.ForecastResult) (*models.CostForecast, error) {
	yearStart := time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	var annualCurrent, cumulative float64
	for _, row := range history {
		cumulative += row.TotalCost
		if !row.Month.Before(yearStart) {
			annualCurrent += row.TotalCost
		}
	}

	var annualNext float64
	for _, p := range result.Predictions {
		if p.Month.Year() == asOf.Year()+1 {
			annualNext += p.PredictedCost
		}
	}

	monthlyJSON, err := json.Marshal(result.Predictions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast points: %w", err)
	}
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode forecast metrics: %w", err)
	}

	return &models.CostForecast{
		EquipmentID:           equipmentID,
		ForecastDate:          asOf,
		ForecastHorizonMonths: result.HorizonMonths,
		ForecastMethod:        result.Method,
		MonthlyForecasts:      string(monthlyJSON),
		AnnualTCOCurrentYear:  calc.Round2(annualCurrent),
		AnnualTCONextYear:     calc.Round2(annualNext),
		CumulativeTCOToDate:   calc.Round2(cumulative),
		ModelMetrics:          string(metricsJSON),
	}, nil
}

// LatestForecast loads and decodes the most recent stored forecast for an
// asset. Returns store.ErrNotFound when none has been run.
func (f *Forecaster) LatestForecast(ctx context.Context, equipmentID int64) (*models.EquipmentForecast, error) {
	row, err := f.results.LatestForecast(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	return DecodeForecast(row)
}

// DecodeForecast expands a stored CostForecast row's JSON blobs.
func DecodeForecast(row *models.CostForecast) (*models.EquipmentForecast, error) {
	out := &models.EquipmentForecast{
		EquipmentID:                  row.EquipmentID,
		ForecastDate:                 row.ForecastDate,
		ForecastHorizonMonths:        row.ForecastHorizonMonths,
		ForecastMethod:               row.ForecastMethod,
		AnnualTCOCurrentYear:         row.AnnualTCOCurrentYear,
		AnnualTCONextYear:            row.AnnualTCONextYear,
		CumulativeTCOToDate:          row.CumulativeTCOToDate,
		ProjectedRemainingLifeMonths: row.ProjectedRemainingLifeMonths,
	}
	if err := json.Unmarshal([]byte(row.MonthlyForecasts), &out.MonthlyForecasts); err != nil {
		return nil, fmt.Errorf("failed to decode forecast points: %w", err)
	}
	if err := json.Unmarshal([]byte(row.ModelMetrics), &out.ModelMetrics); err != nil {
		return nil, fmt.Errorf("failed to decode forecast metrics: %w", err)
	}
	return out, nil
}
