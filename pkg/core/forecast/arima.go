package forecast

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/models"
)

// arimaModel holds a fitted ARIMA(1,1,1): the differenced series follows
// w_t = c + phi*w_{t-1} + e_t + theta*e_{t-1}.
type arimaModel struct {
	c     float64
	phi   float64
	theta float64
	sigma float64 // residual standard deviation on the differenced scale

	lastValue float64 // last observed level
	lastDiff  float64 // last observed difference
	lastEps   float64 // final one-step residual
	fitted    []float64
}

var errARIMAFit = errors.New("arima fit failed")

// fitARIMA estimates the model by conditional least squares. The AR and MA
// coefficients are optimized through a tanh transform, which keeps the
// search inside the stationary and invertible region.
func fitARIMA(values []float64) (*arimaModel, error) {
	n := len(values)
	if n < 4 {
		return nil, errARIMAFit
	}

	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = values[i] - values[i-1]
	}

	css := func(x []float64) float64 {
		c, phi, theta := x[0], math.Tanh(x[1]), math.Tanh(x[2])
		var sse, eps, prev float64
		for j, w := range diffs {
			pred := c
			if j > 0 {
				pred += phi*prev + theta*eps
			}
			e := w - pred
			sse += e * e
			eps = e
			prev = w
		}
		return sse
	}

	init := []float64{stat.Mean(diffs, nil), 0, 0}
	result, err := optimize.Minimize(optimize.Problem{Func: css}, init, nil, &optimize.NelderMead{})
	if err != nil || result == nil {
		return nil, errARIMAFit
	}
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errARIMAFit
		}
	}

	m := &arimaModel{
		c:     result.X[0],
		phi:   math.Tanh(result.X[1]),
		theta: math.Tanh(result.X[2]),
	}

	// Replay the recursion at the optimum for residual variance, fitted
	// values, and the state the forecast starts from.
	m.fitted = make([]float64, n)
	m.fitted[0] = values[0]
	var sse, eps, prev float64
	for j, w := range diffs {
		pred := m.c
		if j > 0 {
			pred += m.phi*prev + m.theta*eps
		}
		e := w - pred
		sse += e * e
		eps = e
		prev = w
		m.fitted[j+1] = values[j] + pred
	}
	m.sigma = math.Sqrt(sse / float64(len(diffs)))
	m.lastValue = values[n-1]
	m.lastDiff = diffs[len(diffs)-1]
	m.lastEps = eps
	return m, nil
}

// forecast projects the level h steps ahead and returns the forecast means
// and standard errors. The variance accumulates through the psi weights of
// the integrated process: psi_0 = 1, psi_j = (phi+theta)*phi^(j-1).
func (m *arimaModel) forecast(horizon int) (means, stderrs []float64) {
	means = make([]float64, horizon)
	stderrs = make([]float64, horizon)

	level := m.lastValue
	diff := m.c + m.phi*m.lastDiff + m.theta*m.lastEps
	cumPsi := 1.0 // running sum of psi weights
	varSum := 0.0
	psi := 1.0

	for h := 0; h < horizon; h++ {
		if h > 0 {
			diff = m.c + m.phi*diff
			psi = (m.phi + m.theta) * math.Pow(m.phi, float64(h-1))
			cumPsi += psi
		}
		level += diff
		varSum += cumPsi * cumPsi
		means[h] = level
		stderrs[h] = m.sigma * math.Sqrt(varSum)
	}
	return means, stderrs
}

// ARIMA fits an ARIMA(1,1,1) to the cost series and forecasts with 80/95%
// confidence bands. Any fit problem falls back to exponential smoothing.
func (f *Forecaster) ARIMA(series Series, horizon int) models.ForecastResult {
	values := series.Values

	model, err := fitARIMA(values)
	if err != nil {
		return f.ExponentialSmoothing(series, horizon)
	}

	// Holdout metrics on the last fifth of the history where possible,
	// refitting on the shortened train split.
	split := len(values) * 8 / 10
	if min := f.MinHistoryMonths / 2; split < min {
		split = min
	}
	var metrics models.ModelMetrics
	if split < len(values) {
		trainModel, err := fitARIMA(values[:split])
		if err != nil {
			return f.ExponentialSmoothing(series, horizon)
		}
		test := values[split:]
		preds, _ := trainModel.forecast(len(test))
		metrics = computeMetrics(test, preds)
	} else {
		metrics = computeMetrics(values[1:], model.fitted[1:])
	}

	means, stderrs := model.forecast(horizon)

	z80 := distuv.UnitNormal.Quantile(0.90)
	z95 := distuv.UnitNormal.Quantile(0.975)

	lastMonth := series.Months[len(series.Months)-1]
	predictions := make([]models.MonthlyForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		pred := math.Max(0, means[i])
		lower := math.Max(0, means[i]-z80*stderrs[i])
		upper := means[i] + z95*stderrs[i]
		predictions[i] = models.MonthlyForecastPoint{
			Month:         nextMonth(lastMonth, i+1),
			PredictedCost: calc.Round2(pred),
			LowerBound:    calc.Round2(lower),
			UpperBound:    calc.Round2(upper),
		}
	}

	return models.ForecastResult{
		Method:        models.MethodARIMA,
		HorizonMonths: horizon,
		Predictions:   predictions,
		Metrics:       metrics,
	}
}

func nextMonth(last time.Time, offset int) time.Time {
	return time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
}
