package multirun

import (
	"TraceSpectra/internal/flowstats"
	"TraceSpectra/internal/model"
	"fmt"
	"log"
	"math"
)

// Dispersion describes how one metric of one band varies across runs.
// Lower and Upper are the distances from the mean to the minimum and maximum,
// as used for asymmetric error bars.
type Dispersion struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	// N is the number of runs in which the band was defined.
	N int `json:"n"`
}

// Result is the aggregate of several runs of the same configuration.
type Result struct {
	// Pooled summarizes the concatenated runs, windowed against the latest
	// start time of any run.
	Pooled     *model.AllFlowStats                        `json:"pooled"`
	Completion map[model.Band]model.Completion            `json:"completion"`
	PerRun     []*model.AllFlowStats                      `json:"per_run"`
	Dispersion map[model.Band]map[model.Metric]Dispersion `json:"dispersion"`
}

// Aggregate computes pooled, per-run and dispersion statistics. Per-run
// statistics window each run against its own last record.
func Aggregate(engine *flowstats.Engine, runs [][]model.FlowRecord) (*Result, error) {
	res := &Result{
		PerRun:     make([]*model.AllFlowStats, 0, len(runs)),
		Dispersion: make(map[model.Band]map[model.Metric]Dispersion),
	}

	for i, records := range runs {
		windowed, err := engine.Window(records)
		if err != nil {
			return nil, fmt.Errorf("failed to window run %d: %w", i, err)
		}
		stats, _ := engine.Summarize(windowed)
		res.PerRun = append(res.PerRun, stats)
	}

	pooled, completion, err := engine.ComputePooled(runs)
	if err != nil {
		return nil, fmt.Errorf("failed to pool runs: %w", err)
	}
	res.Pooled, res.Completion = pooled, completion

	for _, b := range model.Bands {
		byMetric := make(map[model.Metric]Dispersion, len(model.Metrics))
		for _, m := range model.Metrics {
			d, ok := dispersion(res.PerRun, b, m)
			if ok {
				byMetric[m] = d
			}
		}
		if len(byMetric) > 0 {
			res.Dispersion[b] = byMetric
		}
	}

	log.Printf("Aggregated %d runs into %d pooled flows.", len(runs), res.Completion[model.BandAll].Total)
	return res, nil
}

func dispersion(perRun []*model.AllFlowStats, b model.Band, m model.Metric) (Dispersion, bool) {
	d := Dispersion{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, run := range perRun {
		s, err := run.Band(b)
		if err != nil {
			continue
		}
		v, err := s.Value(m)
		if err != nil {
			continue
		}
		sum += v
		d.Min = math.Min(d.Min, v)
		d.Max = math.Max(d.Max, v)
		d.N++
	}
	if d.N == 0 {
		return Dispersion{}, false
	}
	d.Mean = sum / float64(d.N)
	d.Lower = d.Mean - d.Min
	d.Upper = d.Max - d.Mean
	return d, true
}
