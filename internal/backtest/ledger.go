package backtest

import (
	"fmt"
	"time"
)

// Position is one capital-backed holding tracked by the Ledger.
type Position struct {
	Ticker       string
	Amount       float64 // units held
	EntryPrice   float64 // executed fill price
	Invested     float64 // cash committed at entry
	EntryDate    time.Time
	HighestClose float64 // highest close since entry, drives trailing stops
	LastClose    float64 // most recent observed close, used for marking

	trade int // index into the run's trade ledger
}

// Ledger tracks cash and open positions for a single run, bounded by a
// fixed slot count. It is owned by exactly one run and is not safe for
// concurrent use; parallel runs each construct their own.
type Ledger struct {
	cash     float64
	maxSlots int
	open     map[string]*Position
	order    []string // insertion order = entry order within a day
}

// NewLedger creates a Ledger holding the given starting cash.
func NewLedger(cash float64, maxSlots int) *Ledger {
	return &Ledger{
		cash:     cash,
		maxSlots: maxSlots,
		open:     make(map[string]*Position, maxSlots),
	}
}

// Cash returns the currently available cash.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// OpenCount returns the number of open positions.
func (l *Ledger) OpenCount() int {
	return len(l.open)
}

// AvailableSlots returns how many more positions may be opened.
func (l *Ledger) AvailableSlots() int {
	return l.maxSlots - len(l.open)
}

// Position returns the open position for a ticker, if any.
func (l *Ledger) Position(ticker string) (*Position, bool) {
	p, ok := l.open[ticker]
	return p, ok
}

// Tickers returns the open tickers in entry order.
func (l *Ledger) Tickers() []string {
	return append([]string(nil), l.order...)
}

// Open registers a position and debits its invested cash. It enforces
// the slot bound and cash non-negativity.
func (l *Ledger) Open(p *Position) error {
	if len(l.open) >= l.maxSlots {
		return fmt.Errorf("ledger: no free slot for %s (%d/%d)", p.Ticker, len(l.open), l.maxSlots)
	}
	if _, exists := l.open[p.Ticker]; exists {
		return fmt.Errorf("ledger: position already open for %s", p.Ticker)
	}
	if p.Invested > l.cash {
		return fmt.Errorf("ledger: invest %.2f exceeds cash %.2f", p.Invested, l.cash)
	}

	l.cash -= p.Invested
	l.open[p.Ticker] = p
	l.order = append(l.order, p.Ticker)
	return nil
}

// Close releases the slot for a ticker and credits the sale proceeds.
func (l *Ledger) Close(ticker string, proceeds float64) {
	if _, ok := l.open[ticker]; !ok {
		return
	}
	delete(l.open, ticker)
	for i, tk := range l.order {
		if tk == ticker {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.cash += proceeds
}

// Debit removes cash for a same-bar settlement that never holds a slot.
func (l *Ledger) Debit(amount float64) error {
	if amount > l.cash {
		return fmt.Errorf("ledger: debit %.2f exceeds cash %.2f", amount, l.cash)
	}
	l.cash -= amount
	return nil
}

// Credit adds cash.
func (l *Ledger) Credit(amount float64) {
	l.cash += amount
}

// MarkedEquity returns cash plus every open position marked at its last
// observed close. Positions are summed in entry order: float addition
// is not associative, so a fixed order keeps identical ledger states
// producing bit-identical equity.
func (l *Ledger) MarkedEquity() float64 {
	equity := l.cash
	for _, tk := range l.order {
		p := l.open[tk]
		equity += p.Amount * p.LastClose
	}
	return equity
}
