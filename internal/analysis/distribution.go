package analysis

import (
	"math"
	"sort"

	"github.com/11e3/quantlab/internal/core"
)

// Metric extracts one scalar from a run's metrics so the statistical
// drivers can build distributions over any performance measure.
type Metric func(core.Metrics) float64

// Predefined metric extractors.
var (
	TotalReturn  Metric = func(m core.Metrics) float64 { return m.TotalReturn }
	CAGR         Metric = func(m core.Metrics) float64 { return m.CAGR }
	Sharpe       Metric = func(m core.Metrics) float64 { return m.Sharpe }
	MaxDrawdown  Metric = func(m core.Metrics) float64 { return m.MaxDrawdown }
	Calmar       Metric = func(m core.Metrics) float64 { return m.Calmar }
	WinRate      Metric = func(m core.Metrics) float64 { return m.WinRate }
	ProfitFactor Metric = func(m core.Metrics) float64 { return m.ProfitFactor }
)

// MetricByName resolves a metric extractor from its config name.
func MetricByName(name string) (Metric, bool) {
	switch name {
	case "total_return":
		return TotalReturn, true
	case "cagr":
		return CAGR, true
	case "sharpe":
		return Sharpe, true
	case "max_drawdown":
		return MaxDrawdown, true
	case "calmar":
		return Calmar, true
	case "win_rate":
		return WinRate, true
	case "profit_factor":
		return ProfitFactor, true
	}
	return nil, false
}

// Distribution summarizes a sample of scalar outcomes.
type Distribution struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P5     float64 `json:"p5"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`

	sorted []float64
}

// NewDistribution summarizes the sample. NaN values are dropped first.
func NewDistribution(sample []float64) Distribution {
	clean := make([]float64, 0, len(sample))
	for _, v := range sample {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	sort.Float64s(clean)

	d := Distribution{N: len(clean), sorted: clean}
	if d.N == 0 {
		return d
	}

	var sum float64
	for _, v := range clean {
		sum += v
	}
	d.Mean = sum / float64(d.N)

	var ss float64
	for _, v := range clean {
		delta := v - d.Mean
		ss += delta * delta
	}
	d.Std = math.Sqrt(ss / float64(d.N))

	d.Min = clean[0]
	d.Max = clean[d.N-1]
	d.P5 = d.Percentile(5)
	d.P25 = d.Percentile(25)
	d.Median = d.Percentile(50)
	d.P75 = d.Percentile(75)
	d.P95 = d.Percentile(95)
	return d
}

// Percentile returns the p-th percentile by linear interpolation.
func (d Distribution) Percentile(p float64) float64 {
	if d.N == 0 {
		return math.NaN()
	}
	if d.N == 1 {
		return d.sorted[0]
	}
	rank := p / 100 * float64(d.N-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return d.sorted[lo]
	}
	w := rank - float64(lo)
	return d.sorted[lo]*(1-w) + d.sorted[hi]*w
}

// ZScore positions a value against the distribution in standard
// deviations. Zero std yields 0.
func (d Distribution) ZScore(value float64) float64 {
	if d.Std == 0 {
		return 0
	}
	return (value - d.Mean) / d.Std
}

// PValueGreater returns the fraction of the sample at or above the
// value: the one-sided empirical p-value of observing it under the
// distribution.
func (d Distribution) PValueGreater(value float64) float64 {
	if d.N == 0 {
		return math.NaN()
	}
	idx := sort.SearchFloat64s(d.sorted, value)
	return float64(d.N-idx) / float64(d.N)
}

// Collect builds a sample by applying the metric to each result.
func Collect(results []TaskResult, metric Metric) []float64 {
	sample := make([]float64, 0, len(results))
	for _, tr := range results {
		if tr.Failed || tr.Result == nil {
			continue
		}
		sample = append(sample, metric(tr.Result.Metrics))
	}
	return sample
}
