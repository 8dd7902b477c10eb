// Package pipeline runs the full analytics batch over the fleet: rollup
// aggregation, per-asset cost forecasting, store validation, and
// replacement ranking. Single-asset failures are logged and skipped so
// one bad history cannot sink a fleet run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/config"
	"equipcost_forecast/pkg/core/fleet"
	"equipcost_forecast/pkg/core/forecast"
	"equipcost_forecast/pkg/core/rollup"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/core/validate"
	"equipcost_forecast/pkg/models"
)

// Result summarises one full batch run.
type Result struct {
	RunID            string        `json:"run_id"`
	RollupsWritten   int           `json:"rollups_written"`
	AssetsTotal      int           `json:"assets_total"`
	AssetsForecast   int           `json:"assets_forecast"`
	ForecastErrors   []string      `json:"forecast_errors,omitempty"`
	Violations       int           `json:"violations"`
	PrioritiesRanked int           `json:"priorities_ranked"`
	Elapsed          time.Duration `json:"elapsed"`
}

// ForecastBatch summarises a fleet-wide forecasting pass.
type ForecastBatch struct {
	RunID     string   `json:"run_id"`
	Requested int      `json:"equipment_count"`
	Forecast  int      `json:"forecasts_written"`
	Errors    []string `json:"errors,omitempty"`
}

// Orchestrator manages the end-to-end batch flow:
// Aggregator -> Forecaster -> Checker -> Optimizer.
type Orchestrator struct {
	// Horizon is the forecast length in months.
	Horizon int
	// Method selects the forecast model, normally auto.
	Method string
	// StrictValidation makes invariant violations fail the run instead
	// of logging a warning.
	StrictValidation bool

	logger     *logrus.Logger
	aggregator *rollup.Aggregator
	forecaster *forecast.Forecaster
	checker    *validate.Checker
	optimizer  *fleet.Optimizer
	equipment  *store.EquipmentRepo
}

// NewOrchestrator creates an orchestrator over conn with every stage
// wired. A nil logger falls back to the logrus default.
func NewOrchestrator(conn *gorm.DB, cfg config.Config, logger *logrus.Logger) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Orchestrator{
		Horizon:    forecast.DefaultHorizonMonths,
		Method:     models.MethodAuto,
		logger:     logger,
		aggregator: rollup.NewAggregator(conn),
		forecaster: forecast.NewForecaster(conn),
		checker:    validate.NewChecker(conn),
		optimizer:  fleet.NewOptimizer(conn, cfg.AnnualCapitalBudget, cfg.DiscountRate),
		equipment:  store.NewEquipmentRepo(conn),
	}
}

// Run executes the full batch as of the given date.
func (o *Orchestrator) Run(ctx context.Context, asOf time.Time) (Result, error) {
	start := time.Now()
	result := Result{RunID: uuid.NewString()}
	log := o.logger.WithField("run_id", result.RunID)

	log.WithField("stage", "aggregate").Info("computing monthly rollups")
	written, err := o.aggregator.ComputeMonthlyRollups(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("aggregation failed: %w", err)
	}
	result.RollupsWritten = written

	batch, err := o.forecastAll(ctx, log, asOf)
	if err != nil {
		return result, err
	}
	result.AssetsTotal = batch.Requested
	result.AssetsForecast = batch.Forecast
	result.ForecastErrors = batch.Errors

	log.WithField("stage", "validate").Info("sweeping store invariants")
	report, err := o.checker.Sweep(ctx)
	if err != nil {
		return result, fmt.Errorf("validation failed: %w", err)
	}
	result.Violations = len(report.Violations)
	if !report.Clean() {
		log.WithFields(logrus.Fields{
			"stage":      "validate",
			"violations": len(report.Violations),
		}).Warn("store records violate cost invariants")
		if o.StrictValidation {
			return result, fmt.Errorf("validation found %d violations", len(report.Violations))
		}
	}

	log.WithField("stage", "rank").Info("ranking replacement priorities")
	priorities, err := o.optimizer.RankReplacementPriorities(ctx, "", asOf)
	if err != nil {
		return result, fmt.Errorf("ranking failed: %w", err)
	}
	result.PrioritiesRanked = len(priorities)

	result.Elapsed = time.Since(start)
	log.WithFields(logrus.Fields{
		"rollups":    result.RollupsWritten,
		"forecasts":  result.AssetsForecast,
		"violations": result.Violations,
		"priorities": result.PrioritiesRanked,
		"elapsed":    result.Elapsed.String(),
	}).Info("batch complete")
	return result, nil
}

// ForecastFleet refreshes cost forecasts for every active asset without
// running the other stages. The bulk forecast endpoint uses this.
func (o *Orchestrator) ForecastFleet(ctx context.Context, asOf time.Time) (ForecastBatch, error) {
	runID := uuid.NewString()
	batch, err := o.forecastAll(ctx, o.logger.WithField("run_id", runID), asOf)
	batch.RunID = runID
	return batch, err
}

func (o *Orchestrator) forecastAll(ctx context.Context, log *logrus.Entry, asOf time.Time) (ForecastBatch, error) {
	assets, err := o.equipment.Active(ctx, "")
	if err != nil {
		return ForecastBatch{}, fmt.Errorf("forecast stage failed: %w", err)
	}
	batch := ForecastBatch{Requested: len(assets)}
	log.WithFields(logrus.Fields{
		"stage":  "forecast",
		"assets": len(assets),
	}).Info("forecasting fleet costs")

	for i := range assets {
		eq := &assets[i]
		_, err := o.forecaster.ForecastEquipment(ctx, eq.ID, o.Horizon, o.Method, asOf)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return batch, err
			}
			batch.Errors = append(batch.Errors, fmt.Sprintf("%s: %v", eq.AssetTag, err))
			log.WithFields(logrus.Fields{
				"stage":     "forecast",
				"asset_tag": eq.AssetTag,
			}).WithError(err).Warn("skipping asset")
			continue
		}
		batch.Forecast++
	}
	return batch, nil
}
