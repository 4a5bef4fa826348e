// Package pair implements a two-leg mean reversion strategy on the
// z-score of the log price spread. When the spread stretches beyond the
// entry threshold the cheap leg is bought; the position unwinds once
// the spread reverts inside the exit threshold. Only the long side of
// each divergence is taken, matching the engine's long-only ledger.
package pair

import (
	"fmt"
	"math"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
	"github.com/11e3/quantlab/internal/indicator"
	"github.com/11e3/quantlab/internal/strategy"
)

// Pair holds the strategy parameters.
type Pair struct {
	legA     string
	legB     string
	lookback int
	entryZ   float64
	exitZ    float64
}

// New creates a pair strategy on the given legs.
func New(legA, legB string, lookback int, entryZ, exitZ float64) *Pair {
	return &Pair{legA: legA, legB: legB, lookback: lookback, entryZ: entryZ, exitZ: exitZ}
}

func (p *Pair) Name() string {
	return "pair"
}

func (p *Pair) Description() string {
	return fmt.Sprintf("Pair Reversion %s/%s (z in at %.1f, out at %.1f)",
		p.legA, p.legB, p.entryZ, p.exitZ)
}

func (p *Pair) Init(cfg strategy.Config) error {
	p.legA = cfg.String("leg_a", p.legA)
	p.legB = cfg.String("leg_b", p.legB)
	p.lookback = cfg.Int("lookback", p.lookback)
	p.entryZ = cfg.Float("entry_z", p.entryZ)
	p.exitZ = cfg.Float("exit_z", p.exitZ)

	if p.legA == "" || p.legB == "" || p.legA == p.legB {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair: need two distinct legs, got %q / %q", p.legA, p.legB))
	}
	if p.lookback < 2 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair: lookback must be at least 2, got %d", p.lookback))
	}
	if p.entryZ <= p.exitZ || p.exitZ < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("pair: need entry z > exit z >= 0, got %f / %f", p.entryZ, p.exitZ))
	}
	return nil
}

// Build aligns the two legs on their common dates and annotates both
// frames from the shared spread series.
func (p *Pair) Build(bars map[string][]core.Bar) (map[string]*frame.Frame, error) {
	barsA, okA := bars[p.legA]
	barsB, okB := bars[p.legB]
	if !okA || !okB {
		return nil, core.WrapError(core.ErrNoData,
			fmt.Errorf("pair: legs %s and %s both required", p.legA, p.legB))
	}

	alignedA, alignedB := alignBars(barsA, barsB)
	if len(alignedA) < p.lookback {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("pair: %d common bars, need %d", len(alignedA), p.lookback))
	}

	fa := frame.FromBars(p.legA, alignedA)
	fb := frame.FromBars(p.legB, alignedB)

	spread := make([]float64, fa.Len())
	for i := range spread {
		spread[i] = math.Log(fa.Close[i]) - math.Log(fb.Close[i])
	}
	z := indicator.ZScore(spread, p.lookback)

	for i := range z {
		if math.IsNaN(z[i]) {
			continue
		}
		switch {
		case z[i] <= -p.entryZ: // A cheap relative to B
			fa.Entry[i] = true
			fa.Target[i] = fa.Close[i]
		case z[i] >= p.entryZ: // B cheap relative to A
			fb.Entry[i] = true
			fb.Target[i] = fb.Close[i]
		}
		if math.Abs(z[i]) <= p.exitZ {
			fa.Exit[i] = true
			fb.Exit[i] = true
		}
	}

	return map[string]*frame.Frame{p.legA: fa, p.legB: fb}, nil
}

// alignBars returns the two series restricted to their common dates.
func alignBars(a, b []core.Bar) ([]core.Bar, []core.Bar) {
	index := make(map[int64]core.Bar, len(b))
	for _, bar := range b {
		index[bar.Time.UnixNano()] = bar
	}

	outA := make([]core.Bar, 0, len(a))
	outB := make([]core.Bar, 0, len(a))
	for _, bar := range a {
		if match, ok := index[bar.Time.UnixNano()]; ok {
			outA = append(outA, bar)
			outB = append(outB, match)
		}
	}
	return outA, outB
}
