// Package reliability models equipment failure behavior from corrective
// work order history. A piecewise bathtub curve is fitted per equipment
// class (infant mortality, stable useful life, wear-out) and drives
// remaining-useful-life estimates; per-asset MTBF statistics drive
// next-failure predictions.
package reliability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

// Estimation methods reported on RemainingLifeEstimate.
const (
	MethodUsefulLifeDefault       = "useful_life_default"
	MethodBathtubCurve            = "bathtub_curve"
	MethodBathtubCurveNoThreshold = "bathtub_curve_no_threshold"
)

var (
	ErrNoData                    = errors.New("no repair data for curve fitting")
	ErrInsufficientRepairHistory = errors.New("insufficient repair history")
	ErrNoValidIntervals          = errors.New("no valid time between failures")
)

// RepairRatePoint is one curve-fitting observation: the corrective
// repairs one class member logged in a calendar year, at the asset's age
// that mid-year.
type RepairRatePoint struct {
	AgeMonths         float64
	AnnualRepairCount float64
}

// ==================== Curve model ====================

// weibullRate is the Weibull hazard function.
//
// FORMULA: h(t) = (shape/scale) * (t/scale)^(shape-1)
//
// Shape below one gives a falling rate, above one a rising rate. Ages
// are floored at 0.01 months to keep the power term finite.
func weibullRate(t, shape, scale float64) float64 {
	if t < 0.01 {
		t = 0.01
	}
	return (shape / scale) * math.Pow(t/scale, shape-1)
}

// bathtubRate evaluates the piecewise failure rate at age t months.
// Parameter order: shapeEarly, scaleEarly, rateUseful, shapeWear,
// scaleWear, tEarly, tWear.
func bathtubRate(t float64, p []float64) float64 {
	switch {
	case t < p[5]:
		return weibullRate(t, p[0], p[1])
	case t < p[6]:
		return p[2]
	default:
		return weibullRate(t-p[6]+1, p[3], p[4])
	}
}

// Initial guesses and box constraints for the seven curve parameters.
var (
	bathtubInit  = []float64{0.5, 12, 0.5, 2.5, 24, 12, 84}
	bathtubLower = []float64{0.1, 1, 0.01, 1.1, 1, 3, 36}
	bathtubUpper = []float64{0.99, 60, 5, 10, 120, 36, 180}
)

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

// boxParams maps the optimizer's unconstrained vector into the bounds.
func boxParams(x []float64) []float64 {
	p := make([]float64, len(x))
	for i := range x {
		p[i] = bathtubLower[i] + (bathtubUpper[i]-bathtubLower[i])*logistic(x[i])
	}
	return p
}

// ==================== Fitting ====================

// BathtubModeler fits bathtub curves to class-level repair history.
type BathtubModeler struct {
	equipment *store.EquipmentRepo
	orders    *store.WorkOrderRepo
}

func NewBathtubModeler(conn *gorm.DB) *BathtubModeler {
	return &BathtubModeler{
		equipment: store.NewEquipmentRepo(conn),
		orders:    store.NewWorkOrderRepo(conn),
	}
}

// FitBathtubCurve fits the piecewise failure rate model to annual repair
// rate observations by bounded least squares. When the optimizer cannot
// improve on them, the initial guesses are reported as fitted values.
func (m *BathtubModeler) FitBathtubCurve(equipmentClass string, points []RepairRatePoint) (models.BathtubCurveParams, error) {
	if len(points) == 0 {
		return models.BathtubCurveParams{}, fmt.Errorf("equipment class %s: %w", equipmentClass, ErrNoData)
	}

	objective := func(x []float64) float64 {
		p := boxParams(x)
		var sse float64
		for _, pt := range points {
			e := pt.AnnualRepairCount - bathtubRate(pt.AgeMonths, p)
			sse += e * e
		}
		return sse
	}

	init := make([]float64, len(bathtubInit))
	for i, v := range bathtubInit {
		init[i] = logit((v - bathtubLower[i]) / (bathtubUpper[i] - bathtubLower[i]))
	}

	fitted := bathtubInit
	settings := &optimize.Settings{FuncEvaluations: 10000}
	result, err := optimize.Minimize(optimize.Problem{Func: objective}, init, settings, &optimize.NelderMead{})
	if err == nil && result != nil && finite(result.X) {
		fitted = boxParams(result.X)
	}

	return models.BathtubCurveParams{
		EquipmentClass:         equipmentClass,
		EarlyLifeShape:         round4(fitted[0]),
		EarlyLifeScale:         round4(fitted[1]),
		UsefulLifeRate:         round4(fitted[2]),
		WearoutShape:           round4(fitted[3]),
		WearoutScale:           round4(fitted[4]),
		TransitionMonthEarly:   int(fitted[5]),
		TransitionMonthWearout: int(fitted[6]),
	}, nil
}

// PredictAnnualRepairs evaluates a fitted curve at an age in months.
func (m *BathtubModeler) PredictAnnualRepairs(ageMonths int, params models.BathtubCurveParams) float64 {
	return bathtubRate(float64(ageMonths), []float64{
		params.EarlyLifeShape,
		params.EarlyLifeScale,
		params.UsefulLifeRate,
		params.WearoutShape,
		params.WearoutScale,
		float64(params.TransitionMonthEarly),
		float64(params.TransitionMonthWearout),
	})
}

// ClassRepairData gathers fitting observations for an equipment class.
// Each point is one asset-year: how many corrective repairs that asset
// logged in the year, at its age on July 1.
func (m *BathtubModeler) ClassRepairData(ctx context.Context, equipmentClass string) ([]RepairRatePoint, error) {
	rows, err := m.orders.CorrectiveByClass(ctx, equipmentClass)
	if err != nil {
		return nil, fmt.Errorf("failed to load class repair history: %w", err)
	}

	type assetYear struct {
		equipmentID int64
		year        int
	}
	counts := make(map[assetYear]int)
	acquired := make(map[int64]time.Time)
	for _, r := range rows {
		counts[assetYear{r.EquipmentID, r.OpenedDate.Year()}]++
		acquired[r.EquipmentID] = r.AcquisitionDate
	}

	points := make([]RepairRatePoint, 0, len(counts))
	for k, n := range counts {
		midYear := time.Date(k.year, time.July, 1, 0, 0, 0, 0, time.UTC)
		ageMonths := int(midYear.Sub(acquired[k.equipmentID]).Hours() / 24 / 30.44)
		if ageMonths > 0 {
			points = append(points, RepairRatePoint{
				AgeMonths:         float64(ageMonths),
				AnnualRepairCount: float64(n),
			})
		}
	}
	return points, nil
}

// ==================== Remaining useful life ====================

// EstimateRemainingLife projects how many months remain before the
// asset's class failure rate crosses three times its useful-life
// baseline. Classes with fewer than five observations fall back to the
// nameplate useful life.
func (m *BathtubModeler) EstimateRemainingLife(ctx context.Context, equipmentID int64, asOf time.Time) (models.RemainingLifeEstimate, error) {
	eq, err := m.equipment.ByID(ctx, equipmentID)
	if err != nil {
		return models.RemainingLifeEstimate{}, err
	}

	ageMonths := int(asOf.Sub(eq.AcquisitionDate).Hours() / 24 / 30.44)

	points, err := m.ClassRepairData(ctx, eq.EquipmentClass)
	if err != nil {
		return models.RemainingLifeEstimate{}, err
	}

	if len(points) < 5 {
		life := eq.ExpectedUsefulLifeMonths
		if life == 0 {
			life = 120
		}
		remaining := life - ageMonths
		if remaining < 0 {
			remaining = 0
		}
		return models.RemainingLifeEstimate{
			EquipmentID:              equipmentID,
			CurrentAgeMonths:         ageMonths,
			EstimatedRemainingMonths: remaining,
			Confidence:               0.3,
			Method:                   MethodUsefulLifeDefault,
		}, nil
	}

	params, err := m.FitBathtubCurve(eq.EquipmentClass, points)
	if err != nil {
		return models.RemainingLifeEstimate{}, err
	}

	threshold := params.UsefulLifeRate * 3
	for future := ageMonths; future < ageMonths+240; future++ {
		if m.PredictAnnualRepairs(future, params) > threshold {
			return models.RemainingLifeEstimate{
				EquipmentID:              equipmentID,
				CurrentAgeMonths:         ageMonths,
				EstimatedRemainingMonths: future - ageMonths,
				Confidence:               0.6,
				Method:                   MethodBathtubCurve,
			}, nil
		}
	}

	return models.RemainingLifeEstimate{
		EquipmentID:              equipmentID,
		CurrentAgeMonths:         ageMonths,
		EstimatedRemainingMonths: 120,
		Confidence:               0.4,
		Method:                   MethodBathtubCurveNoThreshold,
	}, nil
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
