package priority

import (
	"TraceSpectra/internal/model"
	"sort"
)

// SteadyStateNs is the default send-time threshold. Transfers sent before the
// simulation reaches steady state are discarded.
const SteadyStateNs int64 = 2_000_000_000

// displayLabels maps simulator priority classes to the labels used in reports.
var displayLabels = map[string]string{
	"6": "Priority 0",
	"0": "Priority 1",
	"2": "Priority 2",
}

// DisplayLabel returns the report label of a simulator priority class. Unknown
// classes are labelled with their raw value.
func DisplayLabel(class string) string {
	if l, ok := displayLabels[class]; ok {
		return l
	}
	return "Priority " + class
}

// Store accumulates transfer samples per priority class across every worker of
// a run. It is not safe for concurrent use.
type Store struct {
	threshold int64
	samples   map[string][]model.PrioritySample
	finalized bool
}

// NewStore creates a store that keeps only samples sent at or after threshold.
func NewStore(threshold int64) *Store {
	return &Store{
		threshold: threshold,
		samples:   make(map[string][]model.PrioritySample),
	}
}

// Append adds samples to a class. Appending after Finalize re-opens the store.
func (s *Store) Append(class string, samples ...model.PrioritySample) {
	s.samples[class] = append(s.samples[class], samples...)
	s.finalized = false
}

// AppendAll adds every class of a reconstructed worker timeline.
func (s *Store) AppendAll(byClass map[string][]model.PrioritySample) {
	for class, samples := range byClass {
		s.Append(class, samples...)
	}
}

// Finalize sorts each class by send time, keeping the relative order of equal
// send times, and drops samples sent before the threshold.
func (s *Store) Finalize() {
	if s.finalized {
		return
	}
	for class, samples := range s.samples {
		sort.SliceStable(samples, func(i, j int) bool {
			return samples[i].SendTimeNs < samples[j].SendTimeNs
		})
		kept := samples[:0]
		for _, p := range samples {
			if p.SendTimeNs >= s.threshold {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(s.samples, class)
			continue
		}
		s.samples[class] = kept
	}
	s.finalized = true
}

// Classes returns the classes holding at least one sample, sorted.
func (s *Store) Classes() []string {
	classes := make([]string, 0, len(s.samples))
	for c, samples := range s.samples {
		if len(samples) > 0 {
			classes = append(classes, c)
		}
	}
	sort.Strings(classes)
	return classes
}

// Samples returns the samples of one class. The slice is shared with the store.
func (s *Store) Samples(class string) []model.PrioritySample {
	return s.samples[class]
}

// Snapshot copies every class into a new map, as stored in a run report.
func (s *Store) Snapshot() map[string][]model.PrioritySample {
	out := make(map[string][]model.PrioritySample, len(s.samples))
	for c, samples := range s.samples {
		out[c] = append([]model.PrioritySample(nil), samples...)
	}
	return out
}
