// Package frame defines the column-oriented price/signal table consumed
// by the backtest engine. A strategy annotates raw OHLCV bars with
// entry/exit signals and reference prices; the engine only reads the
// resulting Frame.
package frame

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/11e3/quantlab/internal/core"
)

// Frame is a per-ticker, date-indexed table of prices and signals.
// Required columns must be non-nil and share one length; optional
// columns are nil when the strategy does not provide them and are
// consumed only if present. Missing values inside float columns are
// represented as NaN.
type Frame struct {
	Ticker string
	Dates  []time.Time

	// Required price columns.
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64

	// Required signal columns.
	Entry  []bool    // entry signal per bar
	Exit   []bool    // exit signal per bar
	Target []float64 // breakout/entry reference price

	// Optional strategy columns.
	SMA                  []float64 // exit reference, enables whipsaw collapse
	ATR                  []float64 // enables volatility-targeted sizing
	TrailingStopDistance []float64 // enables trailing-stop exits
	SizeMultiplier       []float64 // per-bar position size scaling
}

// FromBars builds a Frame with price columns filled from bars and all
// signal columns zeroed, ready for a strategy to annotate. Bars must be
// in ascending time order.
func FromBars(ticker string, bars []core.Bar) *Frame {
	n := len(bars)
	f := &Frame{
		Ticker: ticker,
		Dates:  make([]time.Time, n),
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
		Entry:  make([]bool, n),
		Exit:   make([]bool, n),
		Target: make([]float64, n),
	}
	for i, b := range bars {
		f.Dates[i] = b.Time
		f.Open[i] = b.Open
		f.High[i] = b.High
		f.Low[i] = b.Low
		f.Close[i] = b.Close
		f.Volume[i] = b.Volume
		f.Target[i] = math.NaN()
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Dates)
}

// Validate fails fast when a required column is missing or column
// lengths disagree. A malformed frame is an upstream contract
// violation, not a market condition, so the whole run must error
// rather than silently produce zero trades.
func (f *Frame) Validate() error {
	n := f.Len()
	if n == 0 {
		return core.WrapError(core.ErrNoData, fmt.Errorf("ticker %s: empty frame", f.Ticker))
	}

	required := []struct {
		name    string
		len     int
		missing bool
	}{
		{"open", len(f.Open), f.Open == nil},
		{"high", len(f.High), f.High == nil},
		{"low", len(f.Low), f.Low == nil},
		{"close", len(f.Close), f.Close == nil},
		{"volume", len(f.Volume), f.Volume == nil},
		{"entry_signal", len(f.Entry), f.Entry == nil},
		{"exit_signal", len(f.Exit), f.Exit == nil},
		{"target", len(f.Target), f.Target == nil},
	}
	for _, col := range required {
		if col.missing {
			return core.WrapError(core.ErrMissingColumn,
				fmt.Errorf("ticker %s: column %s", f.Ticker, col.name))
		}
		if col.len != n {
			return core.WrapError(core.ErrMissingColumn,
				fmt.Errorf("ticker %s: column %s has %d rows, want %d", f.Ticker, col.name, col.len, n))
		}
	}

	optional := []struct {
		name string
		len  int
		set  bool
	}{
		{"sma", len(f.SMA), f.SMA != nil},
		{"atr", len(f.ATR), f.ATR != nil},
		{"trailing_stop_distance", len(f.TrailingStopDistance), f.TrailingStopDistance != nil},
		{"position_size_multiplier", len(f.SizeMultiplier), f.SizeMultiplier != nil},
	}
	for _, col := range optional {
		if col.set && col.len != n {
			return core.WrapError(core.ErrMissingColumn,
				fmt.Errorf("ticker %s: column %s has %d rows, want %d", f.Ticker, col.name, col.len, n))
		}
	}

	for i := 1; i < n; i++ {
		if !f.Dates[i].After(f.Dates[i-1]) {
			return core.WrapError(core.ErrMissingColumn,
				fmt.Errorf("ticker %s: dates not strictly ascending at row %d", f.Ticker, i))
		}
	}

	return nil
}

// Index returns the row index for the given date. Dates are strictly
// ascending (enforced by Validate), so the lookup is a binary search
// with no cached state: concurrent lookups on a shared Frame are safe.
func (f *Frame) Index(t time.Time) (int, bool) {
	i := sort.Search(len(f.Dates), func(j int) bool { return !f.Dates[j].Before(t) })
	if i < len(f.Dates) && f.Dates[i].Equal(t) {
		return i, true
	}
	return 0, false
}

// Slice returns a shallow copy restricted to dates in [start, end].
// The copy shares the underlying column arrays.
func (f *Frame) Slice(start, end time.Time) *Frame {
	lo := sort.Search(len(f.Dates), func(i int) bool { return !f.Dates[i].Before(start) })
	hi := sort.Search(len(f.Dates), func(i int) bool { return f.Dates[i].After(end) })
	if lo >= hi {
		return &Frame{Ticker: f.Ticker}
	}

	out := &Frame{
		Ticker: f.Ticker,
		Dates:  f.Dates[lo:hi],
		Open:   f.Open[lo:hi],
		High:   f.High[lo:hi],
		Low:    f.Low[lo:hi],
		Close:  f.Close[lo:hi],
		Volume: f.Volume[lo:hi],
		Entry:  f.Entry[lo:hi],
		Exit:   f.Exit[lo:hi],
		Target: f.Target[lo:hi],
	}
	if f.SMA != nil {
		out.SMA = f.SMA[lo:hi]
	}
	if f.ATR != nil {
		out.ATR = f.ATR[lo:hi]
	}
	if f.TrailingStopDistance != nil {
		out.TrailingStopDistance = f.TrailingStopDistance[lo:hi]
	}
	if f.SizeMultiplier != nil {
		out.SizeMultiplier = f.SizeMultiplier[lo:hi]
	}
	return out
}

// Reindex builds a new Frame from the given source row order, stamping
// the rows with the provided dates. Used by resampling drivers that
// rebuild a synthetic history out of sampled rows. len(rows) must equal
// len(dates), and every row index must be in range.
func (f *Frame) Reindex(rows []int, dates []time.Time) *Frame {
	out := &Frame{
		Ticker: f.Ticker,
		Dates:  append([]time.Time(nil), dates...),
		Open:   pick(f.Open, rows),
		High:   pick(f.High, rows),
		Low:    pick(f.Low, rows),
		Close:  pick(f.Close, rows),
		Volume: pick(f.Volume, rows),
		Entry:  pickBool(f.Entry, rows),
		Exit:   pickBool(f.Exit, rows),
		Target: pick(f.Target, rows),
	}
	if f.SMA != nil {
		out.SMA = pick(f.SMA, rows)
	}
	if f.ATR != nil {
		out.ATR = pick(f.ATR, rows)
	}
	if f.TrailingStopDistance != nil {
		out.TrailingStopDistance = pick(f.TrailingStopDistance, rows)
	}
	if f.SizeMultiplier != nil {
		out.SizeMultiplier = pick(f.SizeMultiplier, rows)
	}
	return out
}

// Calendar returns the sorted union of dates across all frames. Tickers
// missing a given day are simply skipped on that day by the engine.
func Calendar(frames map[string]*Frame) []time.Time {
	seen := make(map[int64]time.Time)
	for _, f := range frames {
		for _, d := range f.Dates {
			seen[d.UnixNano()] = d
		}
	}

	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func pick(src []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = src[r]
	}
	return out
}

func pickBool(src []bool, rows []int) []bool {
	out := make([]bool, len(rows))
	for i, r := range rows {
		out[i] = src[r]
	}
	return out
}
