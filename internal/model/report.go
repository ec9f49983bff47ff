package model

import (
	"sort"
	"time"
)

// RunInfo identifies the simulation run a report was produced from.
type RunInfo struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	LinkBandwidthBps    int64   `json:"link_bandwidth_bps"`
	ArrivalRate         float64 `json:"arrival_rate"`
	PriorityScheme      string  `json:"priority_scheme"`
	Workers             int     `json:"workers"`
	Seed                int64   `json:"seed"`
	RunIndex            int     `json:"run_index"`
	ExpectedUtilization float64 `json:"expected_utilization"`
}

// WorkerReport is the reconstructed timeline of one training worker.
type WorkerReport struct {
	WorkerID             int                `json:"worker_id"`
	NumLayers            int                `json:"num_layers"`
	MaxTimeNs            int64              `json:"max_time_ns"`
	IterationDurationsNs []int64            `json:"iteration_durations_ns"`
	Intervals            map[int][]Interval `json:"intervals"`
	// Fallbacks counts Done/Receive events that used a zero start time.
	Fallbacks int `json:"fallbacks"`
}

// RunReport is everything the analysis of one run directory produces.
type RunReport struct {
	Run     RunInfo        `json:"run"`
	Workers []WorkerReport `json:"workers"`
	// Samples holds finalized priority samples keyed by priority class.
	Samples    map[string][]PrioritySample `json:"samples"`
	FlowStats  *AllFlowStats               `json:"flow_stats,omitempty"`
	Completion map[Band]Completion         `json:"completion,omitempty"`
	// UtilizationPct is the average link utilization, nil when not recorded.
	UtilizationPct *float64 `json:"utilization_pct,omitempty"`
	// DeviceUtilization is the mean utilization fraction per network device.
	DeviceUtilization map[int]float64 `json:"device_utilization,omitempty"`
	// FlowRates holds the throughput series of every flow with a progress log.
	FlowRates   map[int64][]RatePoint `json:"flow_rates,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// RatePoint is one step of a flow's throughput series.
type RatePoint struct {
	FlowID int64   `json:"flow_id"`
	TimeNs int64   `json:"time_ns"`
	Mbps   float64 `json:"mbps"`
}

// PriorityClasses returns the classes present in the report, sorted.
func (r *RunReport) PriorityClasses() []string {
	classes := make([]string, 0, len(r.Samples))
	for c := range r.Samples {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes
}

// RateFlowIDs returns the flows that have a rate series, sorted.
func (r *RunReport) RateFlowIDs() []int64 {
	ids := make([]int64, 0, len(r.FlowRates))
	for id := range r.FlowRates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
