package backtest

import (
	"time"

	"github.com/11e3/quantlab/internal/core"
)

// Result is the immutable outcome of one engine run.
type Result struct {
	EquityCurve []float64    `json:"equity_curve"`
	Dates       []time.Time  `json:"dates"`
	Trades      []core.Trade `json:"trades"`
	Metrics     core.Metrics `json:"metrics"`
	Config      Config       `json:"config"`
}

// DailyReturns returns the simple daily returns of the equity curve.
func (r *Result) DailyReturns() []float64 {
	return dailyReturns(r.EquityCurve)
}

// ClosedTrades returns only the trades with a realized exit.
func (r *Result) ClosedTrades() []core.Trade {
	out := make([]core.Trade, 0, len(r.Trades))
	for _, t := range r.Trades {
		if t.IsClosed() {
			out = append(out, t)
		}
	}
	return out
}
