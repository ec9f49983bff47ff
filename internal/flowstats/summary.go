package flowstats

import (
	"TraceSpectra/internal/model"
	"math"
	"sort"
)

const nsPerMs = 1e6

// Summarize computes the completion time statistics of one band. Durations
// are in ns, results in ms.
func Summarize(durationsNs []int64) (*model.FlowStats, error) {
	n := len(durationsNs)
	if n == 0 {
		return nil, model.ErrEmptyBand
	}

	values := make([]float64, n)
	var sum float64
	for i, d := range durationsNs {
		values[i] = float64(d) / nsPerMs
		sum += values[i]
	}
	sort.Float64s(values)

	ecdf := make([]model.ECDFPoint, n)
	for i, v := range values {
		ecdf[i] = model.ECDFPoint{Value: v, Probability: float64(i+1) / float64(n)}
	}

	return &model.FlowStats{
		MinMs:    values[0],
		MaxMs:    values[n-1],
		MedianMs: Percentile(values, 50),
		AvgMs:    sum / float64(n),
		P90Ms:    Percentile(values, 90),
		P99Ms:    Percentile(values, 99),
		ECDF:     ecdf,
		Count:    n,
	}, nil
}

// Percentile returns the p-th percentile of sorted values, interpolating
// linearly between the two closest ranks. It returns NaN for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= n {
		hi = n - 1
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
