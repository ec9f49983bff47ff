package model

import "fmt"

// Band is a flow-size class used to stratify completion times.
type Band string

const (
	BandSmall Band = "small"
	BandMid   Band = "mid"
	BandLarge Band = "large"
	BandAll   Band = "all"
)

// Bands lists every band in reporting order.
var Bands = []Band{BandSmall, BandMid, BandLarge, BandAll}

// ECDFPoint is one step of an empirical CDF.
type ECDFPoint struct {
	Value       float64 `json:"value"`
	Probability float64 `json:"probability"`
}

// FlowStats summarizes the completion times of one band, in milliseconds.
type FlowStats struct {
	MinMs    float64     `json:"min_ms"`
	MaxMs    float64     `json:"max_ms"`
	MedianMs float64     `json:"median_ms"`
	AvgMs    float64     `json:"avg_ms"`
	P90Ms    float64     `json:"p90_ms"`
	P99Ms    float64     `json:"p99_ms"`
	ECDF     []ECDFPoint `json:"ecdf"`
	Count    int         `json:"count"`
}

// Metric selects a single summary statistic of FlowStats.
type Metric string

const (
	MetricMean   Metric = "mean"
	MetricMedian Metric = "median"
	MetricP90    Metric = "p90"
	MetricP99    Metric = "p99"
	MetricMin    Metric = "min"
	MetricMax    Metric = "max"
)

// Metrics lists the metrics reported for dispersion and comparison.
var Metrics = []Metric{MetricMean, MetricMedian, MetricP90, MetricP99, MetricMin, MetricMax}

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Value returns the selected statistic.
func (s *FlowStats) Value(m Metric) (float64, error) {
	switch m {
	case MetricMean:
		return s.AvgMs, nil
	case MetricMedian:
		return s.MedianMs, nil
	case MetricP90:
		return s.P90Ms, nil
	case MetricP99:
		return s.P99Ms, nil
	case MetricMin:
		return s.MinMs, nil
	case MetricMax:
		return s.MaxMs, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", m)
	}
}

// AllFlowStats holds the statistics of every band. A nil entry means the band
// had no completed flows inside the measurement window.
type AllFlowStats struct {
	Small *FlowStats `json:"small,omitempty"`
	Mid   *FlowStats `json:"mid,omitempty"`
	Large *FlowStats `json:"large,omitempty"`
	All   *FlowStats `json:"all,omitempty"`
}

// Band returns the statistics of one band, or ErrEmptyBand when it has none.
func (a *AllFlowStats) Band(b Band) (*FlowStats, error) {
	var s *FlowStats
	switch b {
	case BandSmall:
		s = a.Small
	case BandMid:
		s = a.Mid
	case BandLarge:
		s = a.Large
	case BandAll:
		s = a.All
	default:
		return nil, fmt.Errorf("unknown band %q", b)
	}
	if s == nil {
		return nil, fmt.Errorf("band %s: %w", b, ErrEmptyBand)
	}
	return s, nil
}

// Set stores the statistics of one band.
func (a *AllFlowStats) Set(b Band, s *FlowStats) {
	switch b {
	case BandSmall:
		a.Small = s
	case BandMid:
		a.Mid = s
	case BandLarge:
		a.Large = s
	case BandAll:
		a.All = s
	}
}

// Completion counts flows inside the measurement window of one band.
type Completion struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	DNF       int `json:"dnf"`
	Err       int `json:"err"`
}

// Rate returns the completed fraction, or 0 when the band saw no flows.
func (c Completion) Rate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Completed) / float64(c.Total)
}
