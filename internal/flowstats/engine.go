package flowstats

import (
	"TraceSpectra/internal/model"
	"fmt"
	"log"
)

const (
	// DefaultWarmupNs excludes flows starting in the first two seconds.
	DefaultWarmupNs int64 = 2_000_000_000
	// DefaultCooldownNs excludes flows starting in the last two seconds.
	DefaultCooldownNs int64 = 2_000_000_000
	// DefaultSmallMaxKB is the largest size, in KB, of a small flow.
	DefaultSmallMaxKB = 100.0
	// DefaultLargeMinKB is the smallest size, in KB, of a large flow.
	DefaultLargeMinKB = 10000.0
)

// Options configures the measurement window and the size bands.
type Options struct {
	WarmupNs   int64
	CooldownNs int64
	SmallMaxKB float64
	LargeMinKB float64
}

// DefaultOptions returns the standard window and band thresholds.
func DefaultOptions() Options {
	return Options{
		WarmupNs:   DefaultWarmupNs,
		CooldownNs: DefaultCooldownNs,
		SmallMaxKB: DefaultSmallMaxKB,
		LargeMinKB: DefaultLargeMinKB,
	}
}

// Engine computes windowed, size-stratified completion time statistics.
type Engine struct {
	opts Options
}

// NewEngine creates an engine. Invalid band thresholds fall back to the defaults.
func NewEngine(opts Options) *Engine {
	if opts.SmallMaxKB <= 0 || opts.LargeMinKB <= opts.SmallMaxKB {
		log.Printf("Invalid band thresholds small<=%v large>=%v, using defaults.", opts.SmallMaxKB, opts.LargeMinKB)
		opts.SmallMaxKB, opts.LargeMinKB = DefaultSmallMaxKB, DefaultLargeMinKB
	}
	return &Engine{opts: opts}
}

// BandOf classifies a flow by size. Small and large are inclusive bounds.
func (e *Engine) BandOf(f model.FlowRecord) model.Band {
	kb := f.SizeKB()
	switch {
	case kb <= e.opts.SmallMaxKB:
		return model.BandSmall
	case kb >= e.opts.LargeMinKB:
		return model.BandLarge
	default:
		return model.BandMid
	}
}

// Window returns the records whose start time lies strictly inside
// (warmup, last start - cooldown). Records must be sorted by start time.
func (e *Engine) Window(records []model.FlowRecord) ([]model.FlowRecord, error) {
	return e.WindowPooled([][]model.FlowRecord{records})
}

// WindowPooled concatenates the runs and keeps the records whose start time
// lies strictly inside (warmup, max start - cooldown), the maximum taken over
// every run. Each run must be sorted by start time.
func (e *Engine) WindowPooled(runs [][]model.FlowRecord) ([]model.FlowRecord, error) {
	var maxStart int64
	n := 0
	for ri, records := range runs {
		for i := 1; i < len(records); i++ {
			if records[i].StartTimeNs < records[i-1].StartTimeNs {
				if len(runs) == 1 {
					return nil, fmt.Errorf("record %d: %w", i, model.ErrUnsortedFlows)
				}
				return nil, fmt.Errorf("run %d record %d: %w", ri, i, model.ErrUnsortedFlows)
			}
		}
		if len(records) > 0 {
			if last := records[len(records)-1].StartTimeNs; n == 0 || last > maxStart {
				maxStart = last
			}
			n += len(records)
		}
	}
	if n == 0 {
		return nil, nil
	}

	lower := e.opts.WarmupNs
	upper := maxStart - e.opts.CooldownNs
	var out []model.FlowRecord
	for _, records := range runs {
		for _, r := range records {
			if r.StartTimeNs > lower && r.StartTimeNs < upper {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// SplitRuns cuts pre-concatenated records into runs. A start time lower than
// its predecessor's begins the next run.
func SplitRuns(records []model.FlowRecord) [][]model.FlowRecord {
	if len(records) == 0 {
		return nil
	}
	var runs [][]model.FlowRecord
	begin := 0
	for i := 1; i < len(records); i++ {
		if records[i].StartTimeNs < records[i-1].StartTimeNs {
			runs = append(runs, records[begin:i])
			begin = i
		}
	}
	return append(runs, records[begin:])
}

// Compute windows the records and summarizes each band. The records may be
// several runs concatenated; they are split with SplitRuns and pooled with
// ComputePooled. A band with no completed flows is left nil.
func (e *Engine) Compute(records []model.FlowRecord) (*model.AllFlowStats, map[model.Band]model.Completion, error) {
	return e.ComputePooled(SplitRuns(records))
}

// ComputePooled windows the concatenation of runs against the latest start
// time of any run and summarizes each band.
func (e *Engine) ComputePooled(runs [][]model.FlowRecord) (*model.AllFlowStats, map[model.Band]model.Completion, error) {
	windowed, err := e.WindowPooled(runs)
	if err != nil {
		return nil, nil, err
	}
	stats, completion := e.Summarize(windowed)
	return stats, completion, nil
}

// Summarize computes band statistics over records that are already windowed.
func (e *Engine) Summarize(windowed []model.FlowRecord) (*model.AllFlowStats, map[model.Band]model.Completion) {
	durations := make(map[model.Band][]int64, len(model.Bands))
	completion := make(map[model.Band]model.Completion, len(model.Bands))

	for _, r := range windowed {
		for _, b := range []model.Band{e.BandOf(r), model.BandAll} {
			c := completion[b]
			c.Total++
			switch r.Status {
			case model.StatusYes:
				c.Completed++
				durations[b] = append(durations[b], r.DurationNs)
			case model.StatusDNF:
				c.DNF++
			case model.StatusErr:
				c.Err++
			}
			completion[b] = c
		}
	}

	all := &model.AllFlowStats{}
	for _, b := range model.Bands {
		s, err := Summarize(durations[b])
		if err != nil {
			continue
		}
		all.Set(b, s)
	}

	if c := completion[model.BandAll]; c.Total > 0 {
		log.Printf("Summarized %d windowed flows: %d completed, %d did not finish, %d failed.", c.Total, c.Completed, c.DNF, c.Err)
	} else {
		log.Println("No flows inside the measurement window.")
	}
	return all, completion
}
