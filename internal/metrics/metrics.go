// Package metrics implements the performance calculators: max drawdown,
// Sharpe ratio, win rate, and annualized return. All functions are pure,
// series-in scalar-out, and independent of the strategy that produced the
// series. Returns are fractions (0.05 = 5%).
package metrics

import "math"

// TradingDaysPerYear is the period count used to annualize daily series.
const TradingDaysPerYear = 252

// MaxDrawdown returns the most negative peak-to-trough decline of the value
// series as a fraction ≤ 0. Fewer than 2 observations yield 0.
func MaxDrawdown(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (v - peak) / peak; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio computes the annualized Sharpe ratio of a period return
// series. annualRiskFree is the compounded annual risk-free rate; it is
// converted to the period length ((1+rf)^(1/periods) − 1). Sample standard
// deviation (n−1) is used. Fewer than 2 observations or zero variance
// yield 0.
func SharpeRatio(returns []float64, annualRiskFree float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	if variance == 0 {
		return 0
	}

	periodRF := math.Pow(1+annualRiskFree, 1/float64(periodsPerYear)) - 1
	return (mean - periodRF) / math.Sqrt(variance) * math.Sqrt(float64(periodsPerYear))
}

// WinRate returns the fraction of periods with strictly positive return.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// CAGR returns the compound annual growth rate over the elapsed calendar
// days: (final/initial)^(365/days) − 1. Non-positive day counts or initial
// values yield 0.
func CAGR(initial, final float64, elapsedDays int) float64 {
	if elapsedDays <= 0 || initial <= 0 {
		return 0
	}
	return math.Pow(final/initial, 365/float64(elapsedDays)) - 1
}
