package forecast

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/models"
)

// holtModel is Holt's linear trend method: level and trend states updated
// by smoothing factors alpha and beta.
type holtModel struct {
	alpha  float64
	beta   float64
	level  float64
	trend  float64
	fitted []float64
}

var errHoltFit = errors.New("smoothing fit failed")

// sigmoid maps the optimizer's unconstrained parameters into (0, 1).
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// holtSSE runs the Holt recursion and returns the in-sample squared error.
// When fitted is non-nil it also records the one-step-ahead predictions.
func holtSSE(values []float64, alpha, beta float64, fitted []float64) (sse, level, trend float64) {
	level = values[0]
	trend = values[1] - values[0]
	if fitted != nil {
		fitted[0] = values[0]
	}
	for t := 1; t < len(values); t++ {
		pred := level + trend
		if fitted != nil {
			fitted[t] = pred
		}
		e := values[t] - pred
		sse += e * e
		newLevel := alpha*values[t] + (1-alpha)*(level+trend)
		newTrend := beta*(newLevel-level) + (1-beta)*trend
		level, trend = newLevel, newTrend
	}
	return sse, level, trend
}

// fitHolt optimizes alpha and beta by SSE through a sigmoid transform.
func fitHolt(values []float64) (*holtModel, error) {
	if len(values) < 2 {
		return nil, errHoltFit
	}

	objective := func(x []float64) float64 {
		sse, _, _ := holtSSE(values, sigmoid(x[0]), sigmoid(x[1]), nil)
		return sse
	}

	result, err := optimize.Minimize(optimize.Problem{Func: objective}, []float64{0, -1}, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return nil, errHoltFit
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errHoltFit
		}
	}

	m := &holtModel{
		alpha:  sigmoid(result.X[0]),
		beta:   sigmoid(result.X[1]),
		fitted: make([]float64, len(values)),
	}
	_, m.level, m.trend = holtSSE(values, m.alpha, m.beta, m.fitted)
	return m, nil
}

// forecast projects the trend line h steps past the final state.
func (m *holtModel) forecast(horizon int) []float64 {
	out := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		out[h] = m.level + float64(h+1)*m.trend
	}
	return out
}

// ExponentialSmoothing forecasts with Holt's additive trend method.
// Values are floored at 0.01 before fitting. Confidence bands are
// synthetic: the series' standard deviation widened 10% per step out,
// scaled by the usual 80/95 normal multipliers. If even this fit fails
// the forecast degrades to the series mean with zeroed metrics.
func (f *Forecaster) ExponentialSmoothing(series Series, horizon int) models.ForecastResult {
	values := make([]float64, len(series.Values))
	for i, v := range series.Values {
		values[i] = math.Max(v, 0.01)
	}

	var preds []float64
	var metrics models.ModelMetrics

	model, err := fitHolt(values)
	if err == nil {
		preds = model.forecast(horizon)

		split := len(values) * 8 / 10
		if split < 6 {
			split = 6
		}
		if split < len(values) {
			trainModel, trainErr := fitHolt(values[:split])
			if trainErr == nil {
				test := values[split:]
				metrics = computeMetrics(test, trainModel.forecast(len(test)))
			} else {
				err = trainErr
			}
		} else {
			metrics = computeMetrics(values, model.fitted)
		}
	}
	if err != nil {
		// Last resort: flat mean forecast.
		mean := stat.Mean(values, nil)
		preds = make([]float64, horizon)
		for i := range preds {
			preds[i] = mean
		}
		metrics = models.ModelMetrics{}
	}

	// Population standard deviation of the history drives the band width.
	mean := stat.Mean(values, nil)
	std := math.Sqrt(stat.MomentAbout(2, values, mean, nil))

	lastMonth := series.Months[len(series.Months)-1]
	predictions := make([]models.MonthlyForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		pred := math.Max(0, preds[i])
		width := std * (1 + 0.1*float64(i))
		predictions[i] = models.MonthlyForecastPoint{
			Month:         nextMonth(lastMonth, i+1),
			PredictedCost: calc.Round2(pred),
			LowerBound:    calc.Round2(math.Max(0, pred-1.28*width)),
			UpperBound:    calc.Round2(pred + 1.96*width),
		}
	}

	return models.ForecastResult{
		Method:        models.MethodExponentialSmoothing,
		HorizonMonths: horizon,
		Predictions:   predictions,
		Metrics:       metrics,
	}
}
