package models

import "time"

// ==================== Forecasting results ====================

// MonthlyForecastPoint is one month of a cost forecast. LowerBound is the
// 80% band floor, UpperBound the 95% band ceiling; both are clamped at zero.
type MonthlyForecastPoint struct {
	Month         time.Time `json:"month"`
	PredictedCost float64   `json:"predicted_cost"`
	LowerBound    float64   `json:"lower_bound"`
	UpperBound    float64   `json:"upper_bound"`
}

// ModelMetrics holds holdout accuracy for a fitted forecast model.
type ModelMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
}

// ForecastResult is the output of a single time-series forecast method.
type ForecastResult struct {
	Method        string                 `json:"method"`
	HorizonMonths int                    `json:"horizon_months"`
	Predictions   []MonthlyForecastPoint `json:"predictions"`
	Metrics       ModelMetrics           `json:"metrics"`
}

// EquipmentForecast is a full forecast run for one asset, the decoded form
// of the persisted CostForecast row.
type EquipmentForecast struct {
	EquipmentID                  int64                  `json:"equipment_id"`
	ForecastDate                 time.Time              `json:"forecast_date"`
	ForecastHorizonMonths        int                    `json:"forecast_horizon_months"`
	ForecastMethod               string                 `json:"forecast_method"`
	MonthlyForecasts             []MonthlyForecastPoint `json:"monthly_forecasts"`
	AnnualTCOCurrentYear         float64                `json:"annual_tco_current_year"`
	AnnualTCONextYear            float64                `json:"annual_tco_next_year"`
	CumulativeTCOToDate          float64                `json:"cumulative_tco_to_date"`
	ProjectedRemainingLifeMonths *int                   `json:"projected_remaining_life_months,omitempty"`
	ModelMetrics                 ModelMetrics           `json:"model_metrics"`
}

// ==================== Reliability results ====================

// BathtubCurveParams are the fitted parameters of the piecewise failure
// rate model for an equipment class: a decreasing Weibull before
// TransitionMonthEarly, a constant rate through TransitionMonthWearout,
// then an increasing Weibull.
type BathtubCurveParams struct {
	EquipmentClass        string  `json:"equipment_class"`
	EarlyLifeShape        float64 `json:"early_life_shape"`
	EarlyLifeScale        float64 `json:"early_life_scale"`
	UsefulLifeRate        float64 `json:"useful_life_rate"`
	WearoutShape          float64 `json:"wearout_shape"`
	WearoutScale          float64 `json:"wearout_scale"`
	TransitionMonthEarly  int     `json:"transition_month_early"`
	TransitionMonthWearout int    `json:"transition_month_wearout"`
}

// RemainingLifeEstimate is a remaining-useful-life projection for one asset.
type RemainingLifeEstimate struct {
	EquipmentID              int64   `json:"equipment_id"`
	CurrentAgeMonths         int     `json:"current_age_months"`
	EstimatedRemainingMonths int     `json:"estimated_remaining_months"`
	Confidence               float64 `json:"confidence"`
	Method                   string  `json:"method"`
}

// FailurePrediction is an MTBF-based next-failure projection for one asset.
type FailurePrediction struct {
	EquipmentID             int64     `json:"equipment_id"`
	MTBFDays                float64   `json:"mtbf_days"`
	PredictedNextFailure    time.Time `json:"predicted_next_failure"`
	ProbabilityWithin90Days float64   `json:"probability_within_90_days"`
	EstimatedRepairCost     float64   `json:"estimated_repair_cost"`
}

// ==================== Financial results ====================

// DepreciationYear is one fiscal year of a depreciation schedule.
type DepreciationYear struct {
	FiscalYear              int     `json:"fiscal_year"`
	BeginningBookValue      float64 `json:"beginning_book_value"`
	DepreciationExpense     float64 `json:"depreciation_expense"`
	EndingBookValue         float64 `json:"ending_book_value"`
	AccumulatedDepreciation float64 `json:"accumulated_depreciation"`
}

// TCOReport is the lifetime total cost of ownership for one asset.
type TCOReport struct {
	EquipmentID                   int64   `json:"equipment_id"`
	AssetTag                      string  `json:"asset_tag"`
	EquipmentClass                string  `json:"equipment_class"`
	AcquisitionCost               float64 `json:"acquisition_cost"`
	CumulativeMaintenance         float64 `json:"cumulative_maintenance"`
	CumulativeContracts           float64 `json:"cumulative_contracts"`
	EstimatedDowntimeCost         float64 `json:"estimated_downtime_cost"`
	TotalTCO                      float64 `json:"total_tco"`
	AgeYears                      float64 `json:"age_years"`
	AnnualizedTCO                 float64 `json:"annualized_tco"`
	MaintenanceToAcquisitionRatio float64 `json:"maintenance_to_acquisition_ratio"`
}

// TCOComparison ranks a set of TCO reports by annualized cost.
type TCOComparison struct {
	Reports               []TCOReport `json:"reports"`
	BestPerformer         string      `json:"best_performer"`
	WorstPerformer        string      `json:"worst_performer"`
	FleetAvgAnnualizedTCO float64     `json:"fleet_avg_annualized_tco"`
}

// NPVResult is the net present value of one repair-or-replace scenario.
type NPVResult struct {
	Scenario        string    `json:"scenario"`
	NPV             float64   `json:"npv"`
	AnnualCashFlows []float64 `json:"annual_cash_flows"`
	DiscountRate    float64   `json:"discount_rate"`
	HorizonYears    int       `json:"horizon_years"`
}

// RepairReplaceAnalysis is the full repair-vs-replace decision for one asset.
type RepairReplaceAnalysis struct {
	EquipmentID                int64      `json:"equipment_id"`
	AssetTag                   string     `json:"asset_tag"`
	CurrentAgeMonths           int        `json:"current_age_months"`
	RemainingBookValue         float64    `json:"remaining_book_value"`
	AnnualMaintenanceCurrent   float64    `json:"annual_maintenance_current"`
	AnnualMaintenanceProjected float64    `json:"annual_maintenance_projected"`
	ReplacementCost            float64    `json:"replacement_cost"`
	NPVContinue                float64    `json:"npv_continue"`
	NPVReplace                 float64    `json:"npv_replace"`
	NPVSavings                 float64    `json:"npv_savings"`
	RecommendedAction          string     `json:"recommended_action"`
	OptimalReplacementDate     *time.Time `json:"optimal_replacement_date,omitempty"`
}

// ==================== Fleet results ====================

// FleetCostSummary aggregates cost across a facility or the whole fleet.
type FleetCostSummary struct {
	FacilityID       string           `json:"facility_id,omitempty"`
	TotalEquipment   int              `json:"total_equipment"`
	TotalAnnualCost  float64          `json:"total_annual_cost"`
	AvgCostPerAsset  float64          `json:"avg_cost_per_asset"`
	TopCostClasses   []ClassCostEntry `json:"top_cost_classes"`
	AgingAssetsCount int              `json:"aging_assets_count"`
}

// ClassCostEntry is one equipment class in a fleet cost ranking.
type ClassCostEntry struct {
	EquipmentClass string  `json:"equipment_class"`
	AnnualCost     float64 `json:"annual_cost"`
	AssetCount     int     `json:"asset_count"`
}

// ReplacementPriority is one asset's position in the fleet replacement
// ranking. WithinBudget marks assets whose cumulative replacement cost
// fits the annual budget.
type ReplacementPriority struct {
	Rank              int     `json:"rank"`
	EquipmentID       int64   `json:"equipment_id"`
	AssetTag          string  `json:"asset_tag"`
	EquipmentClass    string  `json:"equipment_class"`
	AgeMonths         int     `json:"age_months"`
	NPVSavings        float64 `json:"npv_savings"`
	RecommendedAction string  `json:"recommended_action"`
	ReplacementCost   float64 `json:"replacement_cost"`
	WithinBudget      bool    `json:"within_budget"`
}

// ReplacementScheduleYear is one fiscal year of a multi-year plan.
type ReplacementScheduleYear struct {
	FiscalYear   int                   `json:"fiscal_year"`
	Replacements []ReplacementPriority `json:"replacements"`
	YearSpend    float64               `json:"year_spend"`
	YearSavings  float64               `json:"year_savings"`
}

// ReplacementSchedule is a budget-constrained multi-year replacement plan.
type ReplacementSchedule struct {
	FacilityID            string                    `json:"facility_id,omitempty"`
	AnnualBudget          float64                   `json:"annual_budget"`
	HorizonYears          int                       `json:"horizon_years"`
	Schedule              []ReplacementScheduleYear `json:"schedule"`
	TotalSpend            float64                   `json:"total_spend"`
	TotalProjectedSavings float64                   `json:"total_projected_savings"`
}

// AgeCohort is one age band of the fleet with its trailing-year spend.
type AgeCohort struct {
	Cohort                string         `json:"cohort"`
	Count                 int            `json:"count"`
	EquipmentClasses      map[string]int `json:"equipment_classes"`
	TotalAnnualCost       float64        `json:"total_annual_cost"`
	AvgAnnualCostPerAsset float64        `json:"avg_annual_cost_per_asset"`
}

// FleetAgeAnalysis is the fleet age distribution with per-cohort costs.
type FleetAgeAnalysis struct {
	FacilityID string      `json:"facility_id,omitempty"`
	Cohorts    []AgeCohort `json:"cohorts"`
}
