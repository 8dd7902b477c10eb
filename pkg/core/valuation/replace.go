package valuation

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

const (
	DefaultDiscountRate = 0.08
	DefaultHorizonYears = 5
)

// NPV scenario labels.
const (
	ScenarioContinueOperating = "continue_operating"
	ScenarioReplaceNow        = "replace_now"
)

// NPVAnalyzer weighs continuing to run an asset against replacing it,
// discounting both cost streams to present value.
type NPVAnalyzer struct {
	DiscountRate float64

	equipment *store.EquipmentRepo
	rollups   *store.RollupRepo
	results   *store.ResultsRepo
	book      *BookValuer
}

// NewNPVAnalyzer builds an analyzer. A non-positive rate falls back to
// DefaultDiscountRate.
func NewNPVAnalyzer(conn *gorm.DB, discountRate float64) *NPVAnalyzer {
	if discountRate <= 0 {
		discountRate = DefaultDiscountRate
	}
	return &NPVAnalyzer{
		DiscountRate: discountRate,
		equipment:    store.NewEquipmentRepo(conn),
		rollups:      store.NewRollupRepo(conn),
		results:      store.NewResultsRepo(conn),
		book:         NewBookValuer(conn),
	}
}

// annualMaintenance averages the trailing 24 months of rollups into a
// yearly run rate.
func (a *NPVAnalyzer) annualMaintenance(ctx context.Context, equipmentID int64, asOf time.Time) (float64, error) {
	cutoff := asOf.AddDate(0, 0, -730)
	sums, err := a.rollups.SumsSince(ctx, equipmentID, cutoff)
	if err != nil {
		return 0, err
	}
	if sums.TotalCost == 0 {
		return 0, nil
	}
	months := sums.MonthCount
	if months < 1 {
		months = 1
	}
	if months > 24 {
		months = 24
	}
	return sums.TotalCost / float64(months) * 12, nil
}

// NPVContinueOperating projects the cost of keeping the asset running,
// with maintenance escalating 8% a year from the current run rate.
func (a *NPVAnalyzer) NPVContinueOperating(ctx context.Context, equipmentID int64, horizonYears int, asOf time.Time) (models.NPVResult, error) {
	currentAnnual, err := a.annualMaintenance(ctx, equipmentID, asOf)
	if err != nil {
		return models.NPVResult{}, err
	}

	flows := make([]float64, horizonYears)
	for yr := range flows {
		flows[yr] = currentAnnual * math.Pow(1.08, float64(yr))
	}

	return models.NPVResult{
		Scenario:        ScenarioContinueOperating,
		NPV:             calc.NPV(flows, a.DiscountRate, 0),
		AnnualCashFlows: roundFlows(flows),
		DiscountRate:    a.DiscountRate,
		HorizonYears:    horizonYears,
	}, nil
}

// NPVReplaceNow projects buying new now. The investment is the purchase
// price net of the current unit's straight-line book value; the new
// unit's maintenance starts at 3% of the purchase price and escalates 2%
// a year.
func (a *NPVAnalyzer) NPVReplaceNow(ctx context.Context, equipmentID int64, replacementCost float64, horizonYears int, asOf time.Time) (models.NPVResult, error) {
	bookValue, err := a.book.BookValue(ctx, equipmentID, models.DepreciationStraightLine, asOf)
	if err != nil {
		return models.NPVResult{}, err
	}
	netInvestment := replacementCost - math.Max(bookValue, 0)

	newAnnual := replacementCost * 0.03
	flows := make([]float64, horizonYears)
	for yr := range flows {
		flows[yr] = newAnnual * math.Pow(1.02, float64(yr))
	}

	return models.NPVResult{
		Scenario:        ScenarioReplaceNow,
		NPV:             calc.NPV(flows, a.DiscountRate, netInvestment),
		AnnualCashFlows: roundFlows(flows),
		DiscountRate:    a.DiscountRate,
		HorizonYears:    horizonYears,
	}, nil
}

// RepairVsReplace runs both scenarios, persists the analysis, and
// recommends an action. A non-positive replacementCost falls back to the
// class average acquisition cost; a non-positive horizon falls back to
// DefaultHorizonYears.
func (a *NPVAnalyzer) RepairVsReplace(ctx context.Context, equipmentID int64, replacementCost float64, horizonYears int, asOf time.Time) (models.RepairReplaceAnalysis, error) {
	eq, err := a.equipment.ByID(ctx, equipmentID)
	if err != nil {
		return models.RepairReplaceAnalysis{}, err
	}

	if replacementCost <= 0 {
		replacementCost, err = a.equipment.MeanClassCost(ctx, eq.EquipmentClass)
		if err != nil {
			return models.RepairReplaceAnalysis{}, fmt.Errorf("failed to estimate replacement cost: %w", err)
		}
	}
	if horizonYears <= 0 {
		horizonYears = DefaultHorizonYears
	}

	continueResult, err := a.NPVContinueOperating(ctx, equipmentID, horizonYears, asOf)
	if err != nil {
		return models.RepairReplaceAnalysis{}, err
	}
	replaceResult, err := a.NPVReplaceNow(ctx, equipmentID, replacementCost, horizonYears, asOf)
	if err != nil {
		return models.RepairReplaceAnalysis{}, err
	}

	// Both NPVs are negative costs, so less negative is cheaper and
	// positive savings favor replacement.
	savings := replaceResult.NPV - continueResult.NPV

	var currentAnnual, projectedAnnual float64
	if n := len(continueResult.AnnualCashFlows); n > 0 {
		currentAnnual = continueResult.AnnualCashFlows[0]
		projectedAnnual = continueResult.AnnualCashFlows[n-1]
	}

	ageDays := float64(int(asOf.Sub(eq.AcquisitionDate).Hours() / 24))
	ageMonths := int(ageDays / 30.44)

	bookValue, err := a.book.BookValue(ctx, equipmentID, models.DepreciationStraightLine, asOf)
	if err != nil {
		return models.RepairReplaceAnalysis{}, err
	}

	action := models.ActionContinueOperating
	switch {
	case savings > replacementCost*0.10:
		action = models.ActionReplaceImmediately
	case savings > 0:
		action = models.ActionPlanReplacement
	}

	record := &models.ReplacementAnalysis{
		EquipmentID:             equipmentID,
		AnalysisDate:            asOf,
		CurrentAgeMonths:        ageMonths,
		RemainingBookValue:      calc.Round2(bookValue),
		AnnualMaintCurrent:      calc.Round2(currentAnnual),
		AnnualMaintProjected:    calc.Round2(projectedAnnual),
		ReplacementCostEstimate: calc.Round2(replacementCost),
		NPVContinueOperating:    calc.Round2(continueResult.NPV),
		NPVReplaceNow:           calc.Round2(replaceResult.NPV),
		NPVSavingsIfReplaced:    calc.Round2(savings),
		RecommendedAction:       action,
		DiscountRate:            a.DiscountRate,
	}
	if err := a.results.ReplaceAnalysis(ctx, record); err != nil {
		return models.RepairReplaceAnalysis{}, fmt.Errorf("failed to persist replacement analysis: %w", err)
	}

	return models.RepairReplaceAnalysis{
		EquipmentID:                equipmentID,
		AssetTag:                   eq.AssetTag,
		CurrentAgeMonths:           ageMonths,
		RemainingBookValue:         calc.Round2(bookValue),
		AnnualMaintenanceCurrent:   calc.Round2(currentAnnual),
		AnnualMaintenanceProjected: calc.Round2(projectedAnnual),
		ReplacementCost:            calc.Round2(replacementCost),
		NPVContinue:                calc.Round2(continueResult.NPV),
		NPVReplace:                 calc.Round2(replaceResult.NPV),
		NPVSavings:                 calc.Round2(savings),
		RecommendedAction:          action,
	}, nil
}

func roundFlows(flows []float64) []float64 {
	rounded := make([]float64, len(flows))
	for i, cf := range flows {
		rounded[i] = calc.Round2(cf)
	}
	return rounded
}
