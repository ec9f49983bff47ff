package flowstats

import (
	"TraceSpectra/internal/model"
	"fmt"
)

// Delta is a relative difference in percent. Err is set when the difference
// is undefined for the band.
type Delta struct {
	Value float64
	Err   error
}

// Defined reports whether the delta holds a value.
func (d Delta) Defined() bool {
	return d.Err == nil
}

func (d Delta) String() string {
	if d.Err != nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", d.Value)
}

// Deltas maps each band to its delta.
type Deltas map[model.Band]Delta

// Compare returns (a.m - b.m) / b.m * 100, the change of a relative to b.
func Compare(a, b *model.FlowStats, m model.Metric) (float64, error) {
	if a == nil || b == nil {
		return 0, model.ErrEmptyBand
	}
	av, err := a.Value(m)
	if err != nil {
		return 0, err
	}
	bv, err := b.Value(m)
	if err != nil {
		return 0, err
	}
	if bv == 0 {
		return 0, fmt.Errorf("%s baseline is zero: %w", m, model.ErrDivisionByZero)
	}
	return (av - bv) / bv * 100, nil
}

// CompareAll compares every band of a against the same band of b.
func CompareAll(a, b *model.AllFlowStats, m model.Metric) Deltas {
	out := make(Deltas, len(model.Bands))
	for _, band := range model.Bands {
		out[band] = compareBand(a, b, band, m)
	}
	return out
}

func compareBand(a, b *model.AllFlowStats, band model.Band, m model.Metric) Delta {
	if a == nil || b == nil {
		return Delta{Err: model.ErrEmptyBand}
	}
	as, err := a.Band(band)
	if err != nil {
		return Delta{Err: err}
	}
	bs, err := b.Band(band)
	if err != nil {
		return Delta{Err: err}
	}
	v, err := Compare(as, bs, m)
	if err != nil {
		return Delta{Err: fmt.Errorf("band %s: %w", band, err)}
	}
	return Delta{Value: v}
}
