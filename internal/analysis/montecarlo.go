package analysis

import (
	"fmt"
	"math/rand"

	"github.com/11e3/quantlab/internal/backtest"
	"github.com/11e3/quantlab/internal/core"
)

// MonteCarlo resamples a completed run's daily returns with replacement
// to map the range of equity paths the same return stream could have
// produced. Unlike bootstrap and permutation it never reruns the
// engine, so thousands of paths cost almost nothing.
type MonteCarlo struct {
	Iterations int
	Seed       int64

	// RuinThreshold is the equity fraction treated as ruin, e.g. 0.5
	// flags paths that ever halve. Zero disables the ruin count.
	RuinThreshold float64
}

// MonteCarloReport is the outcome of a Monte Carlo study.
type MonteCarloReport struct {
	Iterations  int          `json:"iterations"`
	FinalEquity Distribution `json:"final_equity"`
	MaxDrawdown Distribution `json:"max_drawdown"`

	// RuinProbability is the fraction of paths that touched the ruin
	// threshold at least once.
	RuinProbability float64 `json:"ruin_probability"`
}

// Validate checks the study parameters.
func (mc MonteCarlo) Validate() error {
	if mc.Iterations < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("montecarlo: iterations must be positive, got %d", mc.Iterations))
	}
	if mc.RuinThreshold < 0 || mc.RuinThreshold >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("montecarlo: ruin threshold must be in [0, 1), got %f", mc.RuinThreshold))
	}
	return nil
}

// Run resamples the base result's daily returns.
func (mc MonteCarlo) Run(base *backtest.Result) (*MonteCarloReport, error) {
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	returns := base.DailyReturns()
	if len(returns) == 0 {
		return nil, core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("montecarlo: equity curve too short to resample"))
	}

	start := base.Config.InitialCapital
	ruinLevel := start * mc.RuinThreshold

	rng := rand.New(rand.NewSource(mc.Seed))
	finals := make([]float64, mc.Iterations)
	drawdowns := make([]float64, mc.Iterations)
	ruined := 0

	for i := 0; i < mc.Iterations; i++ {
		equity := start
		peak := start
		worst := 0.0
		hitRuin := false

		for range returns {
			equity *= 1 + returns[rng.Intn(len(returns))]
			if equity > peak {
				peak = equity
			}
			if dd := equity/peak - 1; dd < worst {
				worst = dd
			}
			if mc.RuinThreshold > 0 && equity <= ruinLevel {
				hitRuin = true
			}
		}

		finals[i] = equity
		drawdowns[i] = worst
		if hitRuin {
			ruined++
		}
	}

	return &MonteCarloReport{
		Iterations:      mc.Iterations,
		FinalEquity:     NewDistribution(finals),
		MaxDrawdown:     NewDistribution(drawdowns),
		RuinProbability: float64(ruined) / float64(mc.Iterations),
	}, nil
}
