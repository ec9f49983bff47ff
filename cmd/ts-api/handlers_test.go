package main

import (
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/observability"
	"TraceSpectra/internal/query"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeQuerier struct {
	stats   map[string]*query.RunStats
	samples []model.PrioritySample
}

func (f *fakeQuerier) ListRuns(context.Context) ([]query.RunSummary, error) {
	var runs []query.RunSummary
	for name := range f.stats {
		runs = append(runs, query.RunSummary{RunName: name})
	}
	return runs, nil
}

func (f *fakeQuerier) RunStats(_ context.Context, name string) (*query.RunStats, error) {
	s, ok := f.stats[name]
	if !ok {
		return nil, query.ErrRunNotFound
	}
	return s, nil
}

func (f *fakeQuerier) PrioritySamples(_ context.Context, _, class string, _ int) ([]model.PrioritySample, error) {
	var out []model.PrioritySample
	for _, s := range f.samples {
		if class == "" || s.Priority == class {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeQuerier) IterationDurations(context.Context, string) (map[int][]int64, error) {
	return map[int][]int64{0: {400, 400}}, nil
}

func newTestServer() http.Handler {
	q := &fakeQuerier{
		stats: map[string]*query.RunStats{
			"base": {RunName: "base", Stats: &model.AllFlowStats{All: &model.FlowStats{AvgMs: 4}}},
			"hvd":  {RunName: "hvd", Stats: &model.AllFlowStats{All: &model.FlowStats{AvgMs: 5}}},
		},
		samples: []model.PrioritySample{
			{Priority: "6", SendTimeNs: 2_000_000_000, DurationNs: 1_000_000},
			{Priority: "0", SendTimeNs: 2_500_000_000, DurationNs: 2_000_000},
		},
	}
	return newRouter(&APIHandler{querier: q}, observability.NewMetrics())
}

func TestCompareHandler(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest("GET", "/api/v1/compare?baseline=base&comparison=hvd", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp compareResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	all := resp.Deltas[model.BandAll]
	if all.Value == nil || *all.Value != 25 || all.Display != "25.00%" {
		t.Errorf("Unexpected delta for all flows: %+v", all)
	}
	if small := resp.Deltas[model.BandSmall]; small.Value != nil || small.Display != "N/A" {
		t.Errorf("Expected undefined small delta, got %+v", small)
	}
}

func TestHandlerErrors(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		name string
		url  string
		code int
	}{
		{"missing run", "/api/v1/runs/nope/fct", http.StatusNotFound},
		{"missing params", "/api/v1/compare?baseline=base", http.StatusBadRequest},
		{"bad metric", "/api/v1/compare?baseline=base&comparison=hvd&metric=p50", http.StatusBadRequest},
		{"bad limit", "/api/v1/runs/base/samples?limit=x", http.StatusBadRequest},
		{"stats", "/api/v1/runs/base/fct", http.StatusOK},
		{"iterations", "/api/v1/runs/base/iterations", http.StatusOK},
		{"metrics", "/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest("GET", tt.url, nil))
			if rec.Code != tt.code {
				t.Errorf("GET %s: expected %d, got %d", tt.url, tt.code, rec.Code)
			}
		})
	}
}

func TestSamplesHandlerLabels(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/runs/base/samples", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp map[string]sampleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["6"].Label != "Priority 0" || resp["0"].Label != "Priority 1" {
		t.Errorf("Unexpected labels: %+v", resp)
	}
	if len(resp["6"].Samples) != 1 {
		t.Errorf("Expected one sample for class 6, got %d", len(resp["6"].Samples))
	}
}
