package report

import (
	"TraceSpectra/internal/model"
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func newReport(name string, rate float64, smallAvg float64) *model.RunReport {
	util := 42.5
	return &model.RunReport{
		Run:            model.RunInfo{Name: name, ArrivalRate: rate},
		FlowStats:      &model.AllFlowStats{Small: &model.FlowStats{AvgMs: smallAvg}},
		UtilizationPct: &util,
	}
}

func TestBuildFCTRows(t *testing.T) {
	baseline := []*model.RunReport{
		newReport("base_60", 60, 4),
		newReport("base_30", 30, 2),
	}
	comparison := []*model.RunReport{
		newReport("hvd_60", 60, 5),
		newReport("hvd_30", 30, 1),
		newReport("hvd_90", 90, 1),
	}

	rows := BuildFCTRows(baseline, comparison, model.MetricMean)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].ArrivalRate != 30 || rows[1].ArrivalRate != 60 {
		t.Errorf("Rows not ordered by arrival rate: %v, %v", rows[0].ArrivalRate, rows[1].ArrivalRate)
	}
	if rows[0].Baseline != "base_30" || rows[0].Comparison != "hvd_30" {
		t.Errorf("Unexpected pairing: %+v", rows[0])
	}
	if d := rows[0].Deltas[model.BandSmall]; d.Value != -50 {
		t.Errorf("Expected -50%% at rate 30, got %v", d)
	}
	if d := rows[1].Deltas[model.BandSmall]; d.Value != 25 {
		t.Errorf("Expected +25%% at rate 60, got %v", d)
	}
	if rows[1].Deltas[model.BandMid].Defined() {
		t.Error("Expected mid band to be undefined")
	}
}

func TestBuildFCTRows_DuplicateBaselineRate(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	baseline := []*model.RunReport{
		newReport("base_30_a", 30, 2),
		newReport("base_30_b", 30, 4),
	}
	rows := BuildFCTRows(baseline, []*model.RunReport{newReport("hvd_30", 30, 3)}, model.MetricMean)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].Baseline != "base_30_a" {
		t.Errorf("Expected the first baseline to be kept, got %s", rows[0].Baseline)
	}
	if d := rows[0].Deltas[model.BandSmall]; d.Value != 50 {
		t.Errorf("Expected +50%% against the first baseline, got %v", d)
	}
	if !strings.Contains(logs.String(), "base_30_b") {
		t.Errorf("Expected the ignored baseline to be logged, got %q", logs.String())
	}
}

func TestWriteFCTTable(t *testing.T) {
	rows := BuildFCTRows(
		[]*model.RunReport{newReport("base", 30, 2)},
		[]*model.RunReport{newReport("hvd", 30, 3)},
		model.MetricMean,
	)

	var buf bytes.Buffer
	if err := WriteFCTTable(&buf, rows, model.MetricMean); err != nil {
		t.Fatalf("WriteFCTTable failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "small mean") || !strings.Contains(lines[0], "all mean") {
		t.Errorf("Unexpected header: %q", lines[0])
	}
	for _, want := range []string{"30", "42.50%", "50.00%", "N/A"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("Row %q missing %q", lines[1], want)
		}
	}
}
