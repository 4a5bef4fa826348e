package backtest

import (
	"math"
	"time"

	"github.com/11e3/quantlab/internal/core"
)

// tradingDaysPerYear annualizes daily return statistics.
const tradingDaysPerYear = 252

// Compute derives performance metrics from an equity curve and its
// closed trades. Degenerate inputs produce zeros, never NaN or Inf:
// downstream aggregation across thousands of resampled runs must be
// able to sum and sort metrics blindly.
func Compute(equity []float64, dates []time.Time, trades []core.Trade, initialCapital float64) core.Metrics {
	var m core.Metrics
	if len(equity) == 0 {
		return m
	}

	first, last := equity[0], equity[len(equity)-1]
	if first > 0 {
		m.TotalReturn = last/first - 1
	}

	if len(dates) >= 2 {
		days := dates[len(dates)-1].Sub(dates[0]).Hours() / 24
		if days > 0 && first > 0 && last > 0 {
			m.CAGR = math.Pow(last/first, 365.25/days) - 1
		}
	}

	returns := dailyReturns(equity)
	if mean, std := meanStd(returns); std > 0 {
		m.Sharpe = mean / std * math.Sqrt(tradingDaysPerYear)
	}

	m.MaxDrawdown = maxDrawdown(equity)
	if m.MaxDrawdown < 0 {
		m.Calmar = m.CAGR / -m.MaxDrawdown
	}

	var grossProfit, grossLoss float64
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		m.TotalTrades++
		if t.IsWhipsaw {
			m.WhipsawTrades++
		}
		if t.IsWin() {
			m.WinningTrades++
			grossProfit += t.PnL
		} else {
			m.LosingTrades++
			grossLoss += -t.PnL
		}
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	return m
}

// dailyReturns converts an equity curve into simple daily returns.
// Days whose prior equity is non-positive contribute a zero return.
func dailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] > 0 {
			out[i-1] = equity[i]/equity[i-1] - 1
		}
	}
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// maxDrawdown returns the most negative peak-to-trough decline as a
// non-positive fraction. A monotone curve yields 0.
func maxDrawdown(equity []float64) float64 {
	var mdd float64
	peak := math.Inf(-1)
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := e/peak - 1; dd < mdd {
				mdd = dd
			}
		}
	}
	return mdd
}
