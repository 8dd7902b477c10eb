package calc

import "math"

// =============================================================================
// NET PRESENT VALUE / INTERNAL RATE OF RETURN
// Cash flows here are annual COSTS (positive = money out), so NPVs come
// back negative and "less negative" means cheaper.
// =============================================================================

// NPV computes the net present value of a series of annual outflows plus
// an upfront investment, rounded to cents.
//
// FORMULA: NPV = -I₀ - Σ CF_t / (1 + r)^t   for t = 1..n
func NPV(cashFlows []float64, discountRate, initialInvestment float64) float64 {
	npv := -initialInvestment
	for t, cf := range cashFlows {
		npv -= cf / math.Pow(1+discountRate, float64(t+1))
	}
	return Round2(npv)
}

// IRR solves for the discount rate that zeroes the NPV of an investment
// followed by annual net benefits, by bisection on [-0.5, 2.0]. Returns
// nil when 1000 iterations fail to converge within tolerance, which
// happens when flows never change sign.
//
// Note the search assumes NPV decreasing in the rate, the usual shape for
// an upfront investment followed by positive benefits.
func IRR(cashFlows []float64, initialInvestment float64) *float64 {
	const tol = 1e-6

	fullFlows := make([]float64, 0, len(cashFlows)+1)
	fullFlows = append(fullFlows, -initialInvestment)
	fullFlows = append(fullFlows, cashFlows...)

	low, high := -0.5, 2.0
	for i := 0; i < 1000; i++ {
		mid := (low + high) / 2
		var npv float64
		for t, cf := range fullFlows {
			npv += cf / math.Pow(1+mid, float64(t))
		}
		if math.Abs(npv) < tol {
			r := math.Round(mid*1e6) / 1e6
			return &r
		}
		if npv > 0 {
			low = mid
		} else {
			high = mid
		}
	}

	return nil
}
