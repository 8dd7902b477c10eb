// Package models defines the persisted entities of the equipment cost
// engine and the result schemas returned by the analytical components.
package models

import (
	"time"
)

// Equipment status values.
const (
	StatusActive             = "active"
	StatusInactive           = "inactive"
	StatusPendingReplacement = "pending_replacement"
)

// Work order types. CorrectiveRepair is the only type that counts as a
// failure for reliability modeling; everything else rolls up as PM cost.
const (
	WOTypeCorrectiveRepair      = "corrective_repair"
	WOTypePreventiveMaintenance = "preventive_maintenance"
	WOTypeSafetyInspection      = "safety_inspection"
	WOTypeCalibration           = "calibration"
)

// Work order priorities.
const (
	PriorityEmergency = "emergency"
	PriorityUrgent    = "urgent"
	PriorityRoutine   = "routine"
	PriorityScheduled = "scheduled"
)

// Technician types.
const (
	TechInHouse       = "in_house"
	TechOEM           = "oem"
	TechThirdPartyISO = "third_party_iso"
)

// Service contract types.
const (
	ContractFullService       = "full_service"
	ContractPreventiveOnly    = "preventive_only"
	ContractPartsOnly         = "parts_only"
	ContractTimeAndMaterials  = "time_and_materials"
	ContractPerCall           = "per_call"
)

// Forecasting methods.
const (
	MethodAuto                 = "auto"
	MethodARIMA                = "arima"
	MethodExponentialSmoothing = "exponential_smoothing"
)

// Depreciation methods.
const (
	DepreciationStraightLine = "straight_line"
	DepreciationMACRS        = "macrs"
)

// Replacement recommendations, ordered by urgency.
const (
	ActionContinueOperating  = "continue_operating"
	ActionPlanReplacement    = "plan_replacement"
	ActionReplaceImmediately = "replace_immediately"
)

// Equipment is one registry entry for a tracked capital asset.
type Equipment struct {
	ID                       int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	AssetTag                 string     `gorm:"size:30;uniqueIndex;not null" json:"asset_tag"`
	SerialNumber             string     `gorm:"size:50" json:"serial_number"`
	EquipmentClass           string     `gorm:"size:50;not null;index" json:"equipment_class"`
	Manufacturer             string     `gorm:"size:100" json:"manufacturer"`
	ModelName                string     `gorm:"size:100" json:"model_name"`
	FacilityID               string     `gorm:"size:20;not null;index" json:"facility_id"`
	Department               string     `gorm:"size:100" json:"department"`
	AcquisitionDate          time.Time  `gorm:"type:date;not null" json:"acquisition_date"`
	AcquisitionCost          float64    `gorm:"type:decimal(14,2);not null" json:"acquisition_cost"`
	InstallationDate         *time.Time `gorm:"type:date" json:"installation_date,omitempty"`
	WarrantyExpiration       *time.Time `gorm:"type:date" json:"warranty_expiration,omitempty"`
	ExpectedUsefulLifeMonths int        `json:"expected_useful_life_months"`
	Status                   string     `gorm:"size:20;index" json:"status"`
	DispositionDate          *time.Time `gorm:"type:date" json:"disposition_date,omitempty"`
	DispositionMethod        string     `gorm:"size:30" json:"disposition_method,omitempty"`

	WorkOrders            []WorkOrder            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ServiceContracts      []ServiceContract      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PMSchedules           []PMSchedule           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	MonthlyRollups        []MonthlyRollup        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CostForecasts         []CostForecast         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ReplacementAnalyses   []ReplacementAnalysis  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	DepreciationSchedules []DepreciationSchedule `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// AgeMonths returns the asset age in months at the given date using the
// 30.44 days-per-month convention.
func (e *Equipment) AgeMonths(at time.Time) int {
	return int(at.Sub(e.AcquisitionDate).Hours() / 24 / 30.44)
}

// AgeYears returns the asset age in fractional years at the given date.
func (e *Equipment) AgeYears(at time.Time) float64 {
	return at.Sub(e.AcquisitionDate).Hours() / 24 / 365.25
}

// WorkOrder is a single unit of maintenance activity.
type WorkOrder struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EquipmentID     int64      `gorm:"not null;index" json:"equipment_id"`
	WorkOrderNumber string     `gorm:"size:30;uniqueIndex;not null" json:"work_order_number"`
	WOType          string     `gorm:"size:30;index" json:"wo_type"`
	Priority        string     `gorm:"size:20" json:"priority"`
	OpenedDate      time.Time  `gorm:"type:date;not null;index" json:"opened_date"`
	CompletedDate   *time.Time `gorm:"type:date" json:"completed_date,omitempty"`
	Description     string     `gorm:"size:500" json:"description,omitempty"`
	RootCause       string     `gorm:"size:200" json:"root_cause,omitempty"`
	LaborHours      float64    `gorm:"type:decimal(6,2)" json:"labor_hours"`
	LaborCost       float64    `gorm:"type:decimal(10,2)" json:"labor_cost"`
	PartsCost       float64    `gorm:"type:decimal(10,2)" json:"parts_cost"`
	VendorCost      float64    `gorm:"type:decimal(10,2);column:vendor_service_cost" json:"vendor_service_cost"`
	TotalCost       float64    `gorm:"type:decimal(12,2)" json:"total_cost"`
	DowntimeHours   float64    `gorm:"type:decimal(6,2)" json:"downtime_hours"`
	TechnicianType  string     `gorm:"size:30" json:"technician_type"`
}

// ServiceContract covers an asset for a date range at an annual cost that
// the Aggregator amortises month by month.
type ServiceContract struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EquipmentID        int64      `gorm:"not null;index" json:"equipment_id"`
	ContractType       string     `gorm:"size:30" json:"contract_type"`
	Provider           string     `gorm:"size:100" json:"provider"`
	AnnualCost         float64    `gorm:"type:decimal(12,2)" json:"annual_cost"`
	StartDate          *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	EndDate            *time.Time `gorm:"type:date" json:"end_date,omitempty"`
	IncludesParts      bool       `json:"includes_parts"`
	IncludesLabor      bool       `json:"includes_labor"`
	IncludesPM         bool       `json:"includes_pm"`
	ResponseTimeHours  int        `json:"response_time_hours,omitempty"`
	UptimeGuaranteePct float64    `gorm:"type:decimal(5,2)" json:"uptime_guarantee_pct,omitempty"`
}

// PMSchedule is the planned preventive-maintenance cadence for an asset.
type PMSchedule struct {
	ID                     int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EquipmentID            int64      `gorm:"not null;index" json:"equipment_id"`
	PMType                 string     `gorm:"size:50" json:"pm_type"`
	FrequencyMonths        int        `json:"frequency_months"`
	EstimatedDurationHours float64    `gorm:"type:decimal(4,1)" json:"estimated_duration_hours"`
	EstimatedCost          float64    `gorm:"type:decimal(8,2)" json:"estimated_cost"`
	LastCompleted          *time.Time `gorm:"type:date" json:"last_completed,omitempty"`
	NextDue                *time.Time `gorm:"type:date" json:"next_due,omitempty"`
}

// MonthlyRollup is the per-asset per-month cost fact produced by the
// Aggregator. Month is always the first day of the month. TotalCost is
// PMCost + CorrectiveCost + ContractCostAllocated.
type MonthlyRollup struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EquipmentID           int64     `gorm:"not null;uniqueIndex:idx_rollup_equipment_month" json:"equipment_id"`
	Month                 time.Time `gorm:"type:date;uniqueIndex:idx_rollup_equipment_month" json:"month"`
	PMCost                float64   `gorm:"type:decimal(10,2)" json:"pm_cost"`
	CorrectiveCost        float64   `gorm:"type:decimal(10,2)" json:"corrective_cost"`
	PartsCost             float64   `gorm:"type:decimal(10,2)" json:"parts_cost"`
	ContractCostAllocated float64   `gorm:"type:decimal(10,2)" json:"contract_cost_allocated"`
	DowntimeHours         float64   `gorm:"type:decimal(6,2)" json:"downtime_hours"`
	WorkOrderCount        int       `json:"work_order_count"`
	TotalCost             float64   `gorm:"type:decimal(12,2)" json:"total_cost"`
}

// CostForecast is a persisted forecast run. MonthlyForecasts and
// ModelMetrics hold JSON blobs (see schemas.go for their decoded forms).
type CostForecast struct {
	ID                           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EquipmentID                  int64     `gorm:"not null;index" json:"equipment_id"`
	ForecastDate                 time.Time `gorm:"type:date" json:"forecast_date"`
	ForecastHorizonMonths        int       `json:"forecast_horizon_months"`
	ForecastMethod               string    `gorm:"size:30" json:"forecast_method"`
	MonthlyForecasts             string    `gorm:"type:text" json:"-"`
	AnnualTCOCurrentYear         float64   `gorm:"type:decimal(14,2);column:annual_tco_current_year" json:"annual_tco_current_year"`
	AnnualTCONextYear            float64   `gorm:"type:decimal(14,2);column:annual_tco_next_year" json:"annual_tco_next_year"`
	CumulativeTCOToDate          float64   `gorm:"type:decimal(14,2);column:cumulative_tco_to_date" json:"cumulative_tco_to_date"`
	ProjectedRemainingLifeMonths *int      `json:"projected_remaining_life_months,omitempty"`
	ModelMetrics                 string    `gorm:"type:text" json:"-"`
}

// ReplacementAnalysis is one persisted repair-vs-replace decision.
type ReplacementAnalysis struct {
	ID                      int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EquipmentID             int64      `gorm:"not null;index" json:"equipment_id"`
	AnalysisDate            time.Time  `gorm:"type:date" json:"analysis_date"`
	CurrentAgeMonths        int        `json:"current_age_months"`
	RemainingBookValue      float64    `gorm:"type:decimal(12,2)" json:"remaining_book_value"`
	AnnualMaintCurrent      float64    `gorm:"type:decimal(12,2);column:annual_maintenance_cost_current" json:"annual_maintenance_cost_current"`
	AnnualMaintProjected    float64    `gorm:"type:decimal(12,2);column:annual_maintenance_cost_projected" json:"annual_maintenance_cost_projected"`
	ReplacementCostEstimate float64    `gorm:"type:decimal(14,2)" json:"replacement_cost_estimate"`
	NPVContinueOperating    float64    `gorm:"type:decimal(14,2);column:npv_continue_operating" json:"npv_continue_operating"`
	NPVReplaceNow           float64    `gorm:"type:decimal(14,2);column:npv_replace_now" json:"npv_replace_now"`
	NPVSavingsIfReplaced    float64    `gorm:"type:decimal(14,2);column:npv_savings_if_replaced" json:"npv_savings_if_replaced"`
	RecommendedAction       string     `gorm:"size:30" json:"recommended_action"`
	OptimalReplacementDate  *time.Time `gorm:"type:date" json:"optimal_replacement_date,omitempty"`
	DiscountRate            float64    `gorm:"type:decimal(5,4)" json:"discount_rate"`
}

// DepreciationSchedule is one fiscal year of a depreciation schedule.
// Consecutive rows for an (equipment, method) pair chain: the ending book
// value of year y equals the beginning book value of year y+1.
type DepreciationSchedule struct {
	ID                      int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	EquipmentID             int64   `gorm:"not null;index:idx_depr_equipment_method" json:"equipment_id"`
	FiscalYear              int     `json:"fiscal_year"`
	Method                  string  `gorm:"size:20;index:idx_depr_equipment_method" json:"method"`
	BeginningBookValue      float64 `gorm:"type:decimal(14,2)" json:"beginning_book_value"`
	DepreciationExpense     float64 `gorm:"type:decimal(12,2)" json:"depreciation_expense"`
	EndingBookValue         float64 `gorm:"type:decimal(14,2)" json:"ending_book_value"`
	AccumulatedDepreciation float64 `gorm:"type:decimal(14,2)" json:"accumulated_depreciation"`
}

// All returns every persisted entity type, in migration order.
func All() []interface{} {
	return []interface{}{
		&Equipment{},
		&WorkOrder{},
		&ServiceContract{},
		&PMSchedule{},
		&MonthlyRollup{},
		&CostForecast{},
		&ReplacementAnalysis{},
		&DepreciationSchedule{},
	}
}
