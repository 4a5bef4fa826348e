// Package indicator provides vectorized technical indicators.
//
// All functions return a slice the same length as their input, padded
// with NaN over the warmup window, so indicator columns stay aligned
// with a frame's date index.
package indicator

import "math"

// SMA calculates the Simple Moving Average over the given period.
func SMA(prices []float64, period int) []float64 {
	result := nans(len(prices))
	if len(prices) < period || period <= 0 {
		return result
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result[period-1] = sum / float64(period)

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result[i] = sum / float64(period)
	}

	return result
}

// EMA calculates the Exponential Moving Average, seeded with the SMA of
// the first period values.
func EMA(prices []float64, period int) []float64 {
	result := nans(len(prices))
	if len(prices) < period || period <= 0 {
		return result
	}

	multiplier := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result[period-1] = ema

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result[i] = ema
	}

	return result
}

// ATR calculates the Average True Range using Wilder's smoothing.
func ATR(high, low, closes []float64, period int) []float64 {
	n := len(closes)
	result := nans(n)
	if n <= period || period <= 0 {
		return result
	}

	tr := make([]float64, n)
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	// First ATR is a plain average of the first period true ranges
	// (skipping the gap-less bar zero).
	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	result[period] = atr

	for i := period + 1; i < n; i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		result[i] = atr
	}

	return result
}

// RollingMax returns the maximum of the trailing period values at each
// index, the current value included.
func RollingMax(values []float64, period int) []float64 {
	result := nans(len(values))
	for i := period - 1; i < len(values); i++ {
		m := values[i]
		for j := i - period + 1; j < i; j++ {
			if values[j] > m {
				m = values[j]
			}
		}
		result[i] = m
	}
	return result
}

// RollingStd returns the trailing population standard deviation.
func RollingStd(values []float64, period int) []float64 {
	result := nans(len(values))
	if period <= 1 {
		return result
	}
	for i := period - 1; i < len(values); i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		mean := sum / float64(period)

		var variance float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		result[i] = math.Sqrt(variance / float64(period))
	}
	return result
}

// ZScore returns (value - rolling mean) / rolling std over the trailing
// period. Indices with zero std are NaN.
func ZScore(values []float64, period int) []float64 {
	result := nans(len(values))
	std := RollingStd(values, period)
	mean := SMA(values, period)
	for i := period - 1; i < len(values); i++ {
		if std[i] == 0 || math.IsNaN(std[i]) {
			continue
		}
		result[i] = (values[i] - mean[i]) / std[i]
	}
	return result
}

func nans(n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		result[i] = math.NaN()
	}
	return result
}
