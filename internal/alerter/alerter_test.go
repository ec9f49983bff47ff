package alerter

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/model"
	"strings"
	"testing"
)

type recordingNotifier struct {
	subjects []string
	bodies   []string
}

func (n *recordingNotifier) Send(subject, body string) error {
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}

func testReport() *model.RunReport {
	util := 55.0
	return &model.RunReport{
		Run: model.RunInfo{Name: "run_a"},
		Workers: []model.WorkerReport{
			{WorkerID: 0, IterationDurationsNs: []int64{400_000_000, 600_000_000}, Fallbacks: 2},
			{WorkerID: 1, IterationDurationsNs: []int64{500_000_000}},
		},
		FlowStats: &model.AllFlowStats{All: &model.FlowStats{AvgMs: 3, P99Ms: 12}},
		Completion: map[model.Band]model.Completion{
			model.BandAll:   {Total: 10, Completed: 8, DNF: 2},
			model.BandSmall: {},
		},
		UtilizationPct: &util,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		rule    config.AlerterRule
		trigger bool
	}{
		{"p99 above", config.AlerterRule{Metric: "fct_p99", Band: "all", Operator: ">", Threshold: 10}, true},
		{"p99 below", config.AlerterRule{Metric: "fct_p99", Band: "all", Operator: ">", Threshold: 20}, false},
		{"undefined band", config.AlerterRule{Metric: "fct_mean", Band: "large", Operator: ">=", Threshold: 0}, false},
		{"completion", config.AlerterRule{Metric: "completion_rate", Band: "all", Operator: "<", Threshold: 90}, true},
		{"empty completion", config.AlerterRule{Metric: "completion_rate", Band: "small", Operator: "<", Threshold: 90}, false},
		{"fallbacks", config.AlerterRule{Metric: "fallbacks", Band: "all", Operator: ">", Threshold: 0}, true},
		{"iteration", config.AlerterRule{Metric: "iteration_ms", Band: "all", Operator: "=", Threshold: 500}, true},
		{"utilization", config.AlerterRule{Metric: "utilization", Band: "all", Operator: "<=", Threshold: 50}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.rule.Name = tt.name
			a, err := NewAlerter(config.AlerterConfig{Rules: []config.AlerterRule{tt.rule}}, nil)
			if err != nil {
				t.Fatalf("NewAlerter failed: %v", err)
			}
			got := len(a.Evaluate(testReport())) == 1
			if got != tt.trigger {
				t.Errorf("Expected trigger=%v, got %v", tt.trigger, got)
			}
		})
	}
}

func TestNewAlerterRejectsBadRules(t *testing.T) {
	bad := []config.AlerterRule{
		{Name: "metric", Metric: "fct_p50", Band: "all", Operator: ">"},
		{Name: "band", Metric: "fct_p99", Band: "huge", Operator: ">"},
		{Name: "operator", Metric: "fct_p99", Band: "all", Operator: "!="},
	}
	for _, rule := range bad {
		if _, err := NewAlerter(config.AlerterConfig{Rules: []config.AlerterRule{rule}}, nil); err == nil {
			t.Errorf("Expected rule %q to be rejected", rule.Name)
		}
	}
}

func TestHandleReportSendsOneNotification(t *testing.T) {
	n := &recordingNotifier{}
	a, err := NewAlerter(config.AlerterConfig{Rules: []config.AlerterRule{
		{Name: "slow tail", Metric: "fct_p99", Band: "all", Operator: ">", Threshold: 10},
		{Name: "fallbacks", Metric: "fallbacks", Band: "all", Operator: ">", Threshold: 0},
	}}, n)
	if err != nil {
		t.Fatalf("NewAlerter failed: %v", err)
	}

	a.HandleReport(testReport())
	if len(n.subjects) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(n.subjects))
	}
	if !strings.Contains(n.subjects[0], "(2 Triggered)") {
		t.Errorf("Unexpected subject: %s", n.subjects[0])
	}
	if !strings.Contains(n.bodies[0], "slow tail") || !strings.Contains(n.bodies[0], "run_a") {
		t.Errorf("Unexpected body: %s", n.bodies[0])
	}

	quiet := testReport()
	quiet.FlowStats.All.P99Ms = 1
	quiet.Workers[0].Fallbacks = 0
	a.HandleReport(quiet)
	if len(n.subjects) != 1 {
		t.Errorf("Expected no further notification, got %d", len(n.subjects))
	}
}
