package query

import (
	"TraceSpectra/internal/model"
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeQuerier struct {
	stats map[string]*RunStats
}

func (f *fakeQuerier) ListRuns(context.Context) ([]RunSummary, error) { return nil, nil }

func (f *fakeQuerier) RunStats(_ context.Context, name string) (*RunStats, error) {
	s, ok := f.stats[name]
	if !ok {
		return nil, ErrRunNotFound
	}
	return s, nil
}

func (f *fakeQuerier) PrioritySamples(context.Context, string, string, int) ([]model.PrioritySample, error) {
	return nil, nil
}

func (f *fakeQuerier) IterationDurations(context.Context, string) (map[int][]int64, error) {
	return nil, nil
}

func TestCompare(t *testing.T) {
	q := &fakeQuerier{stats: map[string]*RunStats{
		"base": {Stats: &model.AllFlowStats{Small: &model.FlowStats{AvgMs: 2}}},
		"hvd":  {Stats: &model.AllFlowStats{Small: &model.FlowStats{AvgMs: 3}}},
	}}

	deltas, err := Compare(context.Background(), q, "base", "hvd", model.MetricMean)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if d := deltas[model.BandSmall]; !d.Defined() || d.Value != 50 {
		t.Errorf("Expected +50%% for small flows, got %+v", d)
	}
	if deltas[model.BandLarge].Defined() {
		t.Error("Expected large band to be undefined")
	}

	if _, err := Compare(context.Background(), q, "base", "missing", model.MetricMean); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestBuildSamplesQuery(t *testing.T) {
	query, args := buildSamplesQuery("run_a", "6", 100)
	if !strings.Contains(query, "Priority = ?") || !strings.HasSuffix(query, "LIMIT ?") {
		t.Errorf("Unexpected query: %s", query)
	}
	if len(args) != 4 || args[2] != "6" || args[3] != 100 {
		t.Errorf("Unexpected args: %v", args)
	}

	query, args = buildSamplesQuery("run_a", "", 0)
	if strings.Contains(query, "Priority = ?") || strings.Contains(query, "LIMIT") {
		t.Errorf("Unexpected filters in query: %s", query)
	}
	if len(args) != 2 {
		t.Errorf("Expected 2 args, got %v", args)
	}
}
