package analysis

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/11e3/quantlab/internal/core"
	"github.com/11e3/quantlab/internal/frame"
	"github.com/11e3/quantlab/internal/strategy"
)

// holdStrategy buys the first bar and sells the last, ignoring params.
type holdStrategy struct{}

func (holdStrategy) Name() string              { return "hold" }
func (holdStrategy) Description() string       { return "buy and hold" }
func (holdStrategy) Init(strategy.Config) error { return nil }
func (holdStrategy) Build(bars map[string][]core.Bar) (map[string]*frame.Frame, error) {
	frames := make(map[string]*frame.Frame, len(bars))
	for ticker, b := range bars {
		f := frame.FromBars(ticker, b)
		if f.Len() > 0 {
			f.Entry[0] = true
			f.Target[0] = f.Open[0]
			f.Exit[f.Len()-1] = true
		}
		frames[ticker] = f
	}
	return frames, nil
}

func TestResampleBlocksPreservesLengthAndDates(t *testing.T) {
	series := trendBars("AAA", []float64{10, 11, 12, 13, 14, 15, 16, 17})
	rng := rand.New(rand.NewSource(1))

	out := resampleBlocks(series, 3, rng)
	require.Len(t, out, len(series))
	for i := range out {
		assert.Equal(t, series[i].Time, out[i].Time, "bar %d keeps the source timeline", i)
	}
}

func TestResampleBlocksDrawsContiguousRuns(t *testing.T) {
	series := trendBars("AAA", []float64{10, 20, 30, 40, 50, 60})
	rng := rand.New(rand.NewSource(7))

	out := resampleBlocks(series, 2, rng)
	// Closes are multiples of 10, so every sampled value must come
	// from the source set.
	valid := map[float64]bool{10: true, 20: true, 30: true, 40: true, 50: true, 60: true}
	for i, b := range out {
		assert.True(t, valid[b.Close], "bar %d close %v not from source", i, b.Close)
	}
}

func TestBootstrapRun(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 * (1 + 0.01*float64(i))
	}
	bars := map[string][]core.Bar{"AAA": trendBars("AAA", closes)}

	b := Bootstrap{Iterations: 20, BlockSize: 5, Seed: 42}
	report, err := b.Run(context.Background(), testRunner(), holdStrategy{}, bars, testConfig(), TotalReturn)
	require.NoError(t, err)

	assert.Equal(t, 20, report.Iterations)
	assert.Equal(t, 20-report.Failed, report.Dist.N)
	assert.Positive(t, report.Observed)
	assert.Positive(t, report.Dist.N)
}

func TestBootstrapDeterministicAcrossRuns(t *testing.T) {
	closes := []float64{100, 102, 99, 104, 101, 107, 103, 110, 108, 112}
	bars := map[string][]core.Bar{"AAA": trendBars("AAA", closes)}
	b := Bootstrap{Iterations: 10, BlockSize: 3, Seed: 99}

	r1, err := b.Run(context.Background(), testRunner(), holdStrategy{}, bars, testConfig(), TotalReturn)
	require.NoError(t, err)
	r2, err := b.Run(context.Background(), testRunner(), holdStrategy{}, bars, testConfig(), TotalReturn)
	require.NoError(t, err)

	assert.Equal(t, r1.Dist.Mean, r2.Dist.Mean)
	assert.Equal(t, r1.Dist.Std, r2.Dist.Std)
	assert.Equal(t, r1.Observed, r2.Observed)
}

func TestBootstrapValidate(t *testing.T) {
	assert.Error(t, Bootstrap{Iterations: 0, BlockSize: 5}.Validate())
	assert.Error(t, Bootstrap{Iterations: 10, BlockSize: 0}.Validate())
	assert.NoError(t, Bootstrap{Iterations: 10, BlockSize: 5}.Validate())
}
