package timeline

import (
	"TraceSpectra/internal/eventlog"
	"TraceSpectra/internal/model"
	"fmt"
	"log"
)

// Options controls how the reconstructor treats Done/Receive events whose
// matching Start was never seen.
type Options struct {
	// Strict fails the run with model.ErrOutOfOrderEvent. When false, the
	// missing start is taken as time 0 and counted in Result.Fallbacks.
	Strict bool
}

// Result is the timeline of one worker.
type Result struct {
	// Intervals maps a layer index to its compute and transfer intervals in emission order.
	Intervals map[int][]model.Interval
	// Samples maps a priority class to its transfer samples in emission order.
	Samples map[string][]model.PrioritySample
	// IterationDurations holds the time between consecutive backward-pass
	// starts of the last layer, in ns.
	IterationDurations []int64
	// Fallbacks counts events that used a zero start time (lenient mode only).
	Fallbacks int
}

// AverageIteration returns the mean iteration duration in ns.
func (r *Result) AverageIteration() (float64, error) {
	if len(r.IterationDurations) == 0 {
		return 0, model.ErrNoIterationsObserved
	}
	var sum int64
	for _, d := range r.IterationDurations {
		sum += d
	}
	return float64(sum) / float64(len(r.IterationDurations)), nil
}

// Reconstructor turns a worker progress log into a timeline.
type Reconstructor struct {
	opts Options
}

// NewReconstructor creates a reconstructor. It keeps no state between calls.
func NewReconstructor(opts Options) *Reconstructor {
	return &Reconstructor{opts: opts}
}

// layerState tracks the open start timestamp of each sub-lifecycle of a layer.
type layerState struct {
	bpStart, fpStart, sendStart int64
	bpOpen, fpOpen, sendOpen    bool
	awaitingFirstSend           bool
}

// Reconstruct walks every layer's events in arrival order and pairs each
// Done/Receive with the start of its sub-lifecycle.
func (rc *Reconstructor) Reconstruct(l *eventlog.Log) (*Result, error) {
	res := &Result{
		Intervals: make(map[int][]model.Interval),
		Samples:   make(map[string][]model.PrioritySample),
	}

	lastLayer := l.LastLayer()
	havePrevBoundary := false
	var prevBoundary int64

	for _, layer := range l.Layers() {
		var st layerState
		for _, e := range l.Events[layer] {
			switch e.Kind {
			case model.BackwardStart:
				st.bpStart, st.bpOpen = e.TimeNs, true
				st.awaitingFirstSend = true
				if layer == lastLayer {
					if havePrevBoundary {
						res.IterationDurations = append(res.IterationDurations, e.TimeNs-prevBoundary)
					}
					prevBoundary, havePrevBoundary = e.TimeNs, true
				}

			case model.ForwardStart:
				st.fpStart, st.fpOpen = e.TimeNs, true

			case model.SendStart:
				// Only the first send after a backward start opens the window;
				// later windows start at the previous receive.
				if st.awaitingFirstSend {
					st.sendStart, st.sendOpen = e.TimeNs, true
					st.awaitingFirstSend = false
				}

			case model.BackwardDone:
				start, err := rc.matchStart(res, e, st.bpStart, st.bpOpen)
				if err != nil {
					return nil, err
				}
				st.bpOpen = false
				res.Intervals[layer] = append(res.Intervals[layer], model.Interval{StartNs: start, DurationNs: e.TimeNs - start})

			case model.ForwardDone:
				start, err := rc.matchStart(res, e, st.fpStart, st.fpOpen)
				if err != nil {
					return nil, err
				}
				st.fpOpen = false
				res.Intervals[layer] = append(res.Intervals[layer], model.Interval{StartNs: start, DurationNs: e.TimeNs - start})

			case model.ReceiveDone:
				start, err := rc.matchStart(res, e, st.sendStart, st.sendOpen)
				if err != nil {
					return nil, err
				}
				duration := e.TimeNs - start
				res.Samples[e.Priority] = append(res.Samples[e.Priority], model.PrioritySample{
					Priority:   e.Priority,
					DurationNs: duration,
					SendTimeNs: start,
				})
				res.Intervals[layer] = append(res.Intervals[layer], model.Interval{StartNs: start, DurationNs: duration})
				// Back-to-back partitions: the next transfer is measured from this receive.
				st.sendStart, st.sendOpen = e.TimeNs, true

			default:
				return nil, fmt.Errorf("layer %d event %q: %w", layer, e.Name, model.ErrUnknownEventKind)
			}
		}
	}

	if res.Fallbacks > 0 {
		log.Printf("Timeline reconstructed with %d unmatched Done/Receive events using a zero start time.", res.Fallbacks)
	}
	return res, nil
}

// matchStart returns the start timestamp paired with a Done/Receive event.
func (rc *Reconstructor) matchStart(res *Result, e model.Event, start int64, open bool) (int64, error) {
	if open {
		return start, nil
	}
	if rc.opts.Strict {
		return 0, fmt.Errorf("layer %d iteration %d: %s at %d has no matching start: %w",
			e.Layer, e.Iteration, e.Name, e.TimeNs, model.ErrOutOfOrderEvent)
	}
	res.Fallbacks++
	return 0, nil
}
