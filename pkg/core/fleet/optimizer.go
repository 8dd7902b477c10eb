// Package fleet plans capital replacements across the equipment fleet.
// It ranks assets by the net present value a replacement would recover,
// packs the ranked list into fiscal-year budgets, and profiles the
// fleet's age distribution.
package fleet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/core/valuation"
	"equipcost_forecast/pkg/models"
)

// DefaultAnnualCapitalBudget bounds how much replacement spend fits in
// one fiscal year when no budget is configured.
const DefaultAnnualCapitalBudget = 2_000_000.0

// ageCohorts partitions the fleet by age in years. Bands are contiguous,
// so an asset lands in the first band whose range contains it.
var ageCohorts = []struct {
	label string
	min   int
	max   int
}{
	{"0-2 years", 0, 2},
	{"3-5 years", 3, 5},
	{"6-8 years", 6, 8},
	{"9-11 years", 9, 11},
	{"12+ years", 12, 999},
}

// Optimizer ranks and schedules fleet replacements under an annual
// capital budget.
type Optimizer struct {
	// AnnualCapitalBudget caps replacement spend per fiscal year.
	AnnualCapitalBudget float64

	equipment *store.EquipmentRepo
	rollups   *store.RollupRepo
	analyzer  *valuation.NPVAnalyzer
}

// NewOptimizer creates an optimizer on conn. A non-positive budget falls
// back to DefaultAnnualCapitalBudget, a non-positive discount rate to
// the analyzer's default.
func NewOptimizer(conn *gorm.DB, annualCapitalBudget, discountRate float64) *Optimizer {
	if annualCapitalBudget <= 0 {
		annualCapitalBudget = DefaultAnnualCapitalBudget
	}
	return &Optimizer{
		AnnualCapitalBudget: annualCapitalBudget,
		equipment:           store.NewEquipmentRepo(conn),
		rollups:             store.NewRollupRepo(conn),
		analyzer:            valuation.NewNPVAnalyzer(conn, discountRate),
	}
}

// RankReplacementPriorities runs the repair-vs-replace analysis across
// every active asset, optionally restricted to one facility, and ranks
// the results by NPV savings with age as the tiebreak. Assets whose
// analysis fails are skipped rather than failing the whole ranking.
//
// WithinBudget marks how far one year's capital budget stretches down
// the ranked list, counting only assets whose replacement actually
// saves money.
func (o *Optimizer) RankReplacementPriorities(ctx context.Context, facilityID string, asOf time.Time) ([]models.ReplacementPriority, error) {
	assets, err := o.equipment.Active(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("failed to rank replacements: %w", err)
	}

	priorities := make([]models.ReplacementPriority, 0, len(assets))
	for _, eq := range assets {
		analysis, err := o.analyzer.RepairVsReplace(ctx, eq.ID, 0, valuation.DefaultHorizonYears, asOf)
		if err != nil {
			continue
		}
		priorities = append(priorities, models.ReplacementPriority{
			EquipmentID:       eq.ID,
			AssetTag:          eq.AssetTag,
			EquipmentClass:    eq.EquipmentClass,
			AgeMonths:         analysis.CurrentAgeMonths,
			NPVSavings:        analysis.NPVSavings,
			RecommendedAction: analysis.RecommendedAction,
			ReplacementCost:   analysis.ReplacementCost,
		})
	}

	sort.SliceStable(priorities, func(i, j int) bool {
		if priorities[i].NPVSavings != priorities[j].NPVSavings {
			return priorities[i].NPVSavings > priorities[j].NPVSavings
		}
		return priorities[i].AgeMonths > priorities[j].AgeMonths
	})

	cumulative := 0.0
	for i := range priorities {
		priorities[i].Rank = i + 1
		if priorities[i].NPVSavings > 0 {
			cumulative += priorities[i].ReplacementCost
			priorities[i].WithinBudget = cumulative <= o.AnnualCapitalBudget
		}
	}
	return priorities, nil
}

// OptimalReplacementSchedule packs ranked replacement candidates into
// fiscal years greedily. Each year starts with the full annual budget;
// a candidate lands in the first year it fits and is never scheduled
// twice. Candidates are assets whose analysis recommends replacement,
// immediate or planned.
func (o *Optimizer) OptimalReplacementSchedule(ctx context.Context, facilityID string, horizonYears int, asOf time.Time) (models.ReplacementSchedule, error) {
	if horizonYears <= 0 {
		horizonYears = valuation.DefaultHorizonYears
	}

	priorities, err := o.RankReplacementPriorities(ctx, facilityID, asOf)
	if err != nil {
		return models.ReplacementSchedule{}, err
	}

	var candidates []models.ReplacementPriority
	for _, p := range priorities {
		if p.RecommendedAction == models.ActionReplaceImmediately ||
			p.RecommendedAction == models.ActionPlanReplacement {
			candidates = append(candidates, p)
		}
	}

	currentFY := calc.FiscalYear(asOf)
	scheduled := make(map[int64]bool, len(candidates))
	years := make([]models.ReplacementScheduleYear, 0, horizonYears)
	var totalSpend, totalSavings float64

	for offset := 0; offset < horizonYears; offset++ {
		year := models.ReplacementScheduleYear{
			FiscalYear:   currentFY + offset,
			Replacements: []models.ReplacementPriority{},
		}
		var spend, savings float64
		for _, c := range candidates {
			if scheduled[c.EquipmentID] {
				continue
			}
			if spend+c.ReplacementCost <= o.AnnualCapitalBudget {
				scheduled[c.EquipmentID] = true
				spend += c.ReplacementCost
				savings += c.NPVSavings
				year.Replacements = append(year.Replacements, c)
			}
		}
		year.YearSpend = calc.Round2(spend)
		year.YearSavings = calc.Round2(savings)
		years = append(years, year)
		totalSpend += spend
		totalSavings += savings
	}

	return models.ReplacementSchedule{
		FacilityID:            facilityID,
		AnnualBudget:          o.AnnualCapitalBudget,
		HorizonYears:          horizonYears,
		Schedule:              years,
		TotalSpend:            calc.Round2(totalSpend),
		TotalProjectedSavings: calc.Round2(totalSavings),
	}, nil
}

// AgeAnalysis buckets active assets into age cohorts and attaches each
// cohort's trailing twelve months of maintenance spend. Assets with an
// acquisition date in the future fall outside every cohort.
func (o *Optimizer) AgeAnalysis(ctx context.Context, facilityID string, asOf time.Time) (models.FleetAgeAnalysis, error) {
	assets, err := o.equipment.Active(ctx, facilityID)
	if err != nil {
		return models.FleetAgeAnalysis{}, fmt.Errorf("failed to analyze fleet age: %w", err)
	}

	members := make([][]int64, len(ageCohorts))
	classes := make([]map[string]int, len(ageCohorts))
	for i := range ageCohorts {
		classes[i] = make(map[string]int)
	}

	for _, eq := range assets {
		ageYears := asOf.Sub(eq.AcquisitionDate).Hours() / 24 / 365.25
		for i, c := range ageCohorts {
			open := c.max == 999 && ageYears >= float64(c.min)
			if open || (float64(c.min) <= ageYears && ageYears < float64(c.max+1)) {
				members[i] = append(members[i], eq.ID)
				classes[i][eq.EquipmentClass]++
				break
			}
		}
	}

	since := time.Date(asOf.Year()-1, asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
	cohorts := make([]models.AgeCohort, 0, len(ageCohorts))
	for i, c := range ageCohorts {
		total, err := o.rollups.TotalSince(ctx, members[i], since)
		if err != nil {
			return models.FleetAgeAnalysis{}, err
		}
		cohort := models.AgeCohort{
			Cohort:           c.label,
			Count:            len(members[i]),
			EquipmentClasses: classes[i],
			TotalAnnualCost:  calc.Round2(total),
		}
		if cohort.Count > 0 {
			cohort.AvgAnnualCostPerAsset = calc.Round2(total / float64(cohort.Count))
		}
		cohorts = append(cohorts, cohort)
	}

	return models.FleetAgeAnalysis{FacilityID: facilityID, Cohorts: cohorts}, nil
}
