package analysis

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/11e3/quantlab/internal/core"
)

func TestShuffleReturnsPreservesDistribution(t *testing.T) {
	closes := []float64{100, 102, 99, 104, 101, 107}
	series := trendBars("AAA", closes)
	rng := rand.New(rand.NewSource(3))

	out := shuffleReturns(series, rng)
	require.Len(t, out, len(series))

	// Same anchor, same timeline.
	assert.Equal(t, series[0].Close, out[0].Close)
	for i := range out {
		assert.Equal(t, series[i].Time, out[i].Time)
	}

	// The multiset of daily returns is unchanged.
	original := returnsOf(series)
	shuffled := returnsOf(out)
	sort.Float64s(original)
	sort.Float64s(shuffled)
	for i := range original {
		assert.InDelta(t, original[i], shuffled[i], 1e-9, "return %d", i)
	}

	// And so is the terminal price, up to float noise.
	assert.InDelta(t, series[len(series)-1].Close, out[len(out)-1].Close, 1e-6)
}

func returnsOf(bars []core.Bar) []float64 {
	out := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		out[i-1] = bars[i].Close / bars[i-1].Close
	}
	return out
}

func TestShuffleReturnsShortSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	one := trendBars("AAA", []float64{100})
	out := shuffleReturns(one, rng)
	require.Len(t, out, 1)
	assert.Equal(t, 100.0, out[0].Close)
}

func TestPermutationRun(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + 2*float64(i)
	}
	bars := map[string][]core.Bar{"AAA": trendBars("AAA", closes)}

	p := Permutation{Iterations: 30, Seed: 11}
	report, err := p.Run(context.Background(), testRunner(), holdStrategy{}, bars, testConfig(), TotalReturn)
	require.NoError(t, err)

	assert.Equal(t, 30, report.Iterations)
	assert.Positive(t, report.Null.N)
	assert.False(t, math.IsNaN(report.PValue))
	assert.GreaterOrEqual(t, report.PValue, 0.0)
	assert.LessOrEqual(t, report.PValue, 1.0)

	// Buy-and-hold on permuted returns lands at the same terminal
	// price, so the observed return sits inside the null rather than
	// far in its tail.
	assert.InDelta(t, report.Null.Mean, report.Observed, 0.05)
}

func TestPermutationValidate(t *testing.T) {
	assert.Error(t, Permutation{Iterations: 0}.Validate())
	assert.NoError(t, Permutation{Iterations: 1}.Validate())
}
