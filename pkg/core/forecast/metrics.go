package forecast

import (
	"math"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/models"
)

// computeMetrics scores predictions against actuals. MAPE averages only
// over nonzero actuals so quiet months cannot divide by zero.
func computeMetrics(actual, predicted []float64) models.ModelMetrics {
	n := len(actual)
	if n == 0 || len(predicted) < n {
		return models.ModelMetrics{}
	}

	var absSum, sqSum float64
	var mapeSum float64
	nonzero := 0
	for i := 0; i < n; i++ {
		err := actual[i] - predicted[i]
		absSum += math.Abs(err)
		sqSum += err * err
		if actual[i] != 0 {
			mapeSum += math.Abs(err / actual[i])
			nonzero++
		}
	}

	mae := absSum / float64(n)
	rmse := math.Sqrt(sqSum / float64(n))
	mape := 0.0
	if nonzero > 0 {
		mape = mapeSum / float64(nonzero) * 100
	}

	return models.ModelMetrics{
		MAE:  calc.Round2(mae),
		RMSE: calc.Round2(rmse),
		MAPE: calc.Round2(mape),
	}
}
