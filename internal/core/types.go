package core

import "time"

// Bar represents one OHLCV candlestick for a ticker.
type Bar struct {
	Ticker   string
	Interval string // "1d" for daily bars
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Time     time.Time
}

// IsValid checks that the bar satisfies basic OHLC consistency:
// the high covers both open and close, the low sits under both.
func (b Bar) IsValid() bool {
	if b.High < b.Open || b.High < b.Close {
		return false
	}
	if b.Low > b.Open || b.Low > b.Close {
		return false
	}
	return b.Ticker != "" && b.Close > 0
}

// Trade represents a simulated round trip from entry to exit.
// A trade is created when an entry is accepted and mutated exactly once
// when the position closes; whipsaw trades close within the same bar.
type Trade struct {
	Ticker     string
	EntryDate  time.Time
	EntryPrice float64   // executed, post-slippage
	ExitDate   time.Time // zero while the position is open
	ExitPrice  float64
	Amount     float64 // units held
	Invested   float64 // cash committed at entry
	PnL        float64
	PnLPct     float64
	IsWhipsaw  bool
	Commission float64 // total fee paid across both legs
	Slippage   float64 // total slippage cost across both legs
}

// IsClosed returns true once the trade has an exit date.
func (t Trade) IsClosed() bool {
	return !t.ExitDate.IsZero()
}

// IsWin returns true if the trade was profitable.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// HoldingDays returns the number of calendar days the position was held.
// Whipsaw trades report zero.
func (t Trade) HoldingDays() int {
	if !t.IsClosed() {
		return 0
	}
	return int(t.ExitDate.Sub(t.EntryDate).Hours() / 24)
}

// Metrics holds the performance statistics derived from an equity curve
// and its trade ledger.
type Metrics struct {
	TotalReturn   float64 // equity[last]/equity[first] - 1
	CAGR          float64 // annualized over elapsed calendar days
	Sharpe        float64 // daily returns, annualized by sqrt(252)
	MaxDrawdown   float64 // min((equity - runningMax)/runningMax), <= 0
	Calmar        float64 // CAGR / |MaxDrawdown|
	WinRate       float64 // fraction of closed trades with positive pnl
	ProfitFactor  float64 // gross profit / gross loss over closed trades
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WhipsawTrades int
}
