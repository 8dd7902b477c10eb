package reliability

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

// MTBFPredictor estimates next-failure timing from the mean time between
// an asset's corrective repairs.
type MTBFPredictor struct {
	orders *store.WorkOrderRepo
}

func NewMTBFPredictor(conn *gorm.DB) *MTBFPredictor {
	return &MTBFPredictor{orders: store.NewWorkOrderRepo(conn)}
}

// PredictNextFailure computes MTBF over an asset's corrective repair
// intervals and projects the next failure date, the probability of
// failing within 90 days of asOf, and the likely repair bill. Needs at
// least two corrective repairs with a positive day gap between them.
func (p *MTBFPredictor) PredictNextFailure(ctx context.Context, equipmentID int64, asOf time.Time) (models.FailurePrediction, error) {
	repairs, err := p.orders.Corrective(ctx, equipmentID)
	if err != nil {
		return models.FailurePrediction{}, fmt.Errorf("failed to load repair history: %w", err)
	}
	if len(repairs) < 2 {
		return models.FailurePrediction{}, fmt.Errorf("equipment %d has %d corrective repairs, need at least 2: %w",
			equipmentID, len(repairs), ErrInsufficientRepairHistory)
	}

	var gaps []float64
	for i := 1; i < len(repairs); i++ {
		days := int(repairs[i].OpenedDate.Sub(repairs[i-1].OpenedDate).Hours() / 24)
		if days > 0 {
			gaps = append(gaps, float64(days))
		}
	}
	if len(gaps) == 0 {
		return models.FailurePrediction{}, fmt.Errorf("equipment %d: %w", equipmentID, ErrNoValidIntervals)
	}

	mtbf := stat.Mean(gaps, nil)
	// Population spread; a single interval gets a nominal 30% of MTBF.
	stdGap := mtbf * 0.3
	if len(gaps) > 1 {
		stdGap = math.Sqrt(stat.MomentAbout(2, gaps, mtbf, nil))
	}

	lastRepair := repairs[len(repairs)-1].OpenedDate
	predicted := lastRepair.AddDate(0, 0, int(mtbf))

	daysSince := float64(int(asOf.Sub(lastRepair).Hours() / 24))
	var prob float64
	if stdGap > 0 {
		prob = distuv.UnitNormal.CDF((daysSince + 90 - mtbf) / stdGap)
	} else if daysSince+90 >= mtbf {
		prob = 1
	}
	if prob > 1 {
		prob = 1
	}

	// Recent repairs predict the next bill, with a little escalation.
	recent := repairs
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	var costSum float64
	for _, wo := range recent {
		costSum += wo.TotalCost
	}
	estimated := costSum / float64(len(recent)) * 1.05

	return models.FailurePrediction{
		EquipmentID:             equipmentID,
		MTBFDays:                math.Round(mtbf*10) / 10,
		PredictedNextFailure:    predicted,
		ProbabilityWithin90Days: round4(prob),
		EstimatedRepairCost:     calc.Round2(estimated),
	}, nil
}
