package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDistribution(t *testing.T) {
	d := NewDistribution([]float64{1, 2, 3, 4, 5})

	assert.Equal(t, 5, d.N)
	assert.InDelta(t, 3, d.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(2), d.Std, 1e-9)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 5.0, d.Max)
	assert.InDelta(t, 3, d.Median, 1e-9)
	assert.InDelta(t, 2, d.P25, 1e-9)
	assert.InDelta(t, 4, d.P75, 1e-9)
}

func TestDistributionDropsNaN(t *testing.T) {
	d := NewDistribution([]float64{1, math.NaN(), 3})
	assert.Equal(t, 2, d.N)
	assert.InDelta(t, 2, d.Mean, 1e-9)
}

func TestDistributionEmpty(t *testing.T) {
	d := NewDistribution(nil)
	assert.Equal(t, 0, d.N)
	assert.True(t, math.IsNaN(d.Percentile(50)))
	assert.True(t, math.IsNaN(d.PValueGreater(0)))
	assert.Equal(t, 0.0, d.ZScore(1))
}

func TestDistributionPercentileInterpolates(t *testing.T) {
	d := NewDistribution([]float64{0, 10})
	assert.InDelta(t, 5, d.Percentile(50), 1e-9)
	assert.InDelta(t, 1, d.Percentile(10), 1e-9)
}

func TestDistributionZScore(t *testing.T) {
	d := NewDistribution([]float64{8, 10, 12})
	assert.InDelta(t, 0, d.ZScore(10), 1e-9)
	assert.Positive(t, d.ZScore(15))
	assert.Negative(t, d.ZScore(5))

	flat := NewDistribution([]float64{5, 5, 5})
	assert.Equal(t, 0.0, flat.ZScore(100))
}

func TestDistributionPValueGreater(t *testing.T) {
	d := NewDistribution([]float64{1, 2, 3, 4})
	assert.InDelta(t, 0.25, d.PValueGreater(4), 1e-9)
	assert.InDelta(t, 1.0, d.PValueGreater(0), 1e-9)
	assert.InDelta(t, 0.0, d.PValueGreater(99), 1e-9)
	assert.InDelta(t, 0.75, d.PValueGreater(2), 1e-9)
}

func TestMetricByName(t *testing.T) {
	for _, name := range []string{
		"total_return", "cagr", "sharpe", "max_drawdown",
		"calmar", "win_rate", "profit_factor",
	} {
		m, ok := MetricByName(name)
		assert.True(t, ok, name)
		assert.NotNil(t, m, name)
	}
	_, ok := MetricByName("alpha_decay")
	assert.False(t, ok)
}
