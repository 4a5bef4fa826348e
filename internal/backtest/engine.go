// Package backtest implements the capital-constrained, multi-asset
// trade simulation at the core of quantlab: it walks annotated signal
// frames day by day, applies exits before entries, collapses same-day
// whipsaws, and produces an equity curve, trade ledger, and performance
// metrics. Runs are deterministic: identical input produces identical
// output, which is what makes repeated resampled runs statistically
// meaningful.
package backtest

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
)

// Engine executes backtest runs against annotated signal frames.
type Engine struct {
	cost CostModel
	log  *zap.Logger
}

// NewEngine creates an Engine with the given cost model. A nil logger
// disables logging.
func NewEngine(cost CostModel, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cost: cost, log: log}
}

// run holds the mutable state of one simulation.
type run struct {
	cfg    Config
	frames map[string]*frame.Frame
	order  []string
	ledger *Ledger
	trades []core.Trade
	equity []float64
	dates  []time.Time
}

// Run simulates the configured strategy signals over the union calendar
// of all frames and returns an immutable Result.
//
// Within a day, exits are processed strictly before entries so capital
// freed intraday is available to the same day's entries. Entry
// candidates are visited in ascending lexical ticker order unless
// cfg.EntryOrder supplies an explicit ranking; the order must be fixed
// for runs on identical data to be identical.
//
// A ticker missing data on a given day is skipped for that day, never
// failing the run. A frame missing a required column fails the whole
// run up front: that is an upstream contract violation.
func (e *Engine) Run(ctx context.Context, frames map[string]*frame.Frame, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, core.WrapError(core.ErrNoData, errors.New("no signal frames"))
	}
	for _, f := range frames {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	calendar := frame.Calendar(frames)
	r := &run{
		cfg:    cfg,
		frames: frames,
		order:  entryOrder(frames, cfg.EntryOrder),
		ledger: NewLedger(cfg.InitialCapital, cfg.MaxSlots),
		equity: make([]float64, 0, len(calendar)),
		dates:  make([]time.Time, 0, len(calendar)),
	}

	for _, d := range calendar {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		e.exitPass(r, d)
		e.entryPass(r, d)

		r.equity = append(r.equity, r.ledger.MarkedEquity())
		r.dates = append(r.dates, d)
	}

	metrics := Compute(r.equity, r.dates, r.trades, cfg.InitialCapital)
	e.log.Debug("run complete",
		zap.Int("days", len(r.dates)),
		zap.Int("trades", len(r.trades)),
		zap.Float64("total_return", metrics.TotalReturn),
	)

	return &Result{
		EquityCurve: r.equity,
		Dates:       r.dates,
		Trades:      r.trades,
		Metrics:     metrics,
		Config:      cfg,
	}, nil
}

// exitPass closes every open position whose exit condition fires on d.
func (e *Engine) exitPass(r *run, d time.Time) {
	for _, tk := range r.ledger.Tickers() {
		pos, ok := r.ledger.Position(tk)
		if !ok {
			continue
		}
		f := r.frames[tk]
		i, ok := f.Index(d)
		if !ok {
			continue // data gap: position carries at its last mark
		}

		c := f.Close[i]
		if c > pos.HighestClose {
			pos.HighestClose = c
		}

		if !e.shouldExit(r.cfg, f, i, pos, c) {
			pos.LastClose = c
			continue
		}
		e.closePosition(r, tk, pos, c, d)
	}
}

// shouldExit evaluates the strategy exit signal alongside trailing-stop
// and config-level stop/take rules, all on the bar's close.
func (e *Engine) shouldExit(cfg Config, f *frame.Frame, i int, pos *Position, c float64) bool {
	if f.Exit[i] {
		return true
	}
	if f.TrailingStopDistance != nil {
		dist := f.TrailingStopDistance[i]
		if !math.IsNaN(dist) && dist > 0 && c < pos.HighestClose-dist {
			return true
		}
	}
	if cfg.StopLossPct > 0 && c <= pos.EntryPrice*(1-cfg.StopLossPct) {
		return true
	}
	if cfg.TakeProfitPct > 0 && c >= pos.EntryPrice*(1+cfg.TakeProfitPct) {
		return true
	}
	if cfg.TrailingStopPct > 0 && c <= pos.HighestClose*(1-cfg.TrailingStopPct) {
		return true
	}
	return false
}

// entryPass opens positions for entry-eligible tickers until the slots
// or cash run out. The equal split is recomputed after each acceptance,
// so earlier candidates in the tie-break order receive a larger share.
func (e *Engine) entryPass(r *run, d time.Time) {
	for _, tk := range r.order {
		f := r.frames[tk]
		i, ok := f.Index(d)
		if !ok {
			continue
		}
		if !f.Entry[i] {
			continue
		}
		if _, held := r.ledger.Position(tk); held {
			continue
		}

		avail := r.ledger.AvailableSlots()
		if avail <= 0 {
			break // remaining candidates are dropped, not queued
		}

		target := f.Target[i]
		if math.IsNaN(target) || target <= 0 {
			continue // no entry reference today, skip the ticker
		}

		invest := e.sizeEntry(r.cfg, r.ledger, f, i, avail)
		if invest <= 0 {
			continue
		}

		buyPrice, feeRate := e.cost.ExecuteBuy(target)
		amount := invest / buyPrice * (1 - feeRate)
		if amount <= 0 {
			continue
		}

		c := f.Close[i]
		commission := invest * feeRate
		slippage := amount * (buyPrice - target)

		if e.collapseWhipsaw(r, f, i, tk, d, buyPrice, amount, invest, commission, slippage) {
			continue
		}

		pos := &Position{
			Ticker:       tk,
			Amount:       amount,
			EntryPrice:   buyPrice,
			Invested:     invest,
			EntryDate:    d,
			HighestClose: c,
			LastClose:    c,
			trade:        len(r.trades),
		}
		r.trades = append(r.trades, core.Trade{
			Ticker:     tk,
			EntryDate:  d,
			EntryPrice: buyPrice,
			Amount:     amount,
			Invested:   invest,
			Commission: commission,
			Slippage:   slippage,
		})
		if err := r.ledger.Open(pos); err != nil {
			// Unreachable with equal-split sizing; surfaced for custom sizers.
			e.log.Warn("entry rejected by ledger", zap.String("ticker", tk), zap.Error(err))
			r.trades = r.trades[:len(r.trades)-1]
		}
	}
}

// collapseWhipsaw settles a same-bar reversal as an immediate
// buy-then-sell round trip when the entry bar closes below its SMA.
// The slot is never held past this step. Returns true when collapsed.
func (e *Engine) collapseWhipsaw(r *run, f *frame.Frame, i int, tk string, d time.Time, buyPrice, amount, invest, commission, slippage float64) bool {
	if f.SMA == nil {
		return false
	}
	smaVal := f.SMA[i]
	c := f.Close[i]
	if math.IsNaN(smaVal) || c >= smaVal {
		return false
	}

	sellPrice, sellFee := e.cost.ExecuteSell(c)
	proceeds := amount * sellPrice * (1 - sellFee)

	if err := r.ledger.Debit(invest); err != nil {
		e.log.Warn("whipsaw settlement rejected", zap.String("ticker", tk), zap.Error(err))
		return true
	}
	r.ledger.Credit(proceeds)

	tr := core.Trade{
		Ticker:     tk,
		EntryDate:  d,
		EntryPrice: buyPrice,
		ExitDate:   d,
		ExitPrice:  sellPrice,
		Amount:     amount,
		Invested:   invest,
		PnL:        proceeds - invest,
		IsWhipsaw:  true,
		Commission: commission + amount*sellPrice*sellFee,
		Slippage:   slippage + amount*(c-sellPrice),
	}
	if invest > 0 {
		tr.PnLPct = proceeds/invest - 1
	}
	r.trades = append(r.trades, tr)
	return true
}

// closePosition realizes pnl for an open position at the bar's close.
func (e *Engine) closePosition(r *run, tk string, pos *Position, c float64, d time.Time) {
	sellPrice, feeRate := e.cost.ExecuteSell(c)
	proceeds := pos.Amount * sellPrice * (1 - feeRate)

	tr := &r.trades[pos.trade]
	tr.ExitDate = d
	tr.ExitPrice = sellPrice
	tr.PnL = proceeds - pos.Invested
	if pos.Invested > 0 {
		tr.PnLPct = proceeds/pos.Invested - 1
	}
	tr.Commission += pos.Amount * sellPrice * feeRate
	tr.Slippage += pos.Amount * (c - sellPrice)

	r.ledger.Close(tk, proceeds)
}

// sizeEntry computes the cash committed for an accepted entry. The base
// is the equal split of available cash over free slots; sizing modes
// scale it, and the result is always clamped to the available cash.
func (e *Engine) sizeEntry(cfg Config, l *Ledger, f *frame.Frame, i, avail int) float64 {
	base := l.Cash() / float64(avail)
	invest := base

	switch cfg.Sizing {
	case SizingVolatility:
		if f.ATR != nil {
			atr := f.ATR[i]
			if !math.IsNaN(atr) && atr > 0 && f.Close[i] > 0 {
				// ATR/close approximates daily volatility; scale the
				// equal split toward the configured target.
				dailyVol := atr / f.Close[i]
				invest = base * cfg.VolTarget / (dailyVol * cfg.ATRMultiplier)
			}
		}
	case SizingCustom:
		invest = cfg.CustomSizer(SizeRequest{
			Ticker:     f.Ticker,
			Base:       base,
			Cash:       l.Cash(),
			Close:      f.Close[i],
			ATR:        optional(f.ATR, i),
			Multiplier: multiplier(f, i),
		})
	}

	if f.SizeMultiplier != nil {
		if m := f.SizeMultiplier[i]; !math.IsNaN(m) && m > 0 {
			invest *= m
		}
	}

	if invest > l.Cash() {
		invest = l.Cash()
	}
	if invest < 0 {
		invest = 0
	}
	return invest
}

// entryOrder returns the deterministic ticker iteration order: the
// caller-specified ranking when given, otherwise lexical.
func entryOrder(frames map[string]*frame.Frame, ranking []string) []string {
	if len(ranking) > 0 {
		order := make([]string, 0, len(frames))
		seen := make(map[string]bool, len(ranking))
		for _, tk := range ranking {
			if _, ok := frames[tk]; ok && !seen[tk] {
				order = append(order, tk)
				seen[tk] = true
			}
		}
		// Tickers absent from the ranking follow in lexical order.
		rest := make([]string, 0, len(frames))
		for tk := range frames {
			if !seen[tk] {
				rest = append(rest, tk)
			}
		}
		sort.Strings(rest)
		return append(order, rest...)
	}

	order := make([]string, 0, len(frames))
	for tk := range frames {
		order = append(order, tk)
	}
	sort.Strings(order)
	return order
}

func optional(col []float64, i int) float64 {
	if col == nil {
		return math.NaN()
	}
	return col[i]
}

func multiplier(f *frame.Frame, i int) float64 {
	if f.SizeMultiplier == nil {
		return 1
	}
	if m := f.SizeMultiplier[i]; !math.IsNaN(m) && m > 0 {
		return m
	}
	return 1
}
