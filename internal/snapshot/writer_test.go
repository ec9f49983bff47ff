package snapshot

import (
	"TraceSpectra/internal/model"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGobWriter_Write(t *testing.T) {
	// 1. Create a sample report
	util := 37.5
	report := &model.RunReport{
		Run: model.RunInfo{ID: "id-1", Name: "run_a"},
		Workers: []model.WorkerReport{
			{WorkerID: 0, IterationDurationsNs: []int64{400, 400}, Intervals: map[int][]model.Interval{0: {{StartNs: 10, DurationNs: 20}}}},
		},
		Samples: map[string][]model.PrioritySample{
			"6": {{Priority: "6", DurationNs: 5, SendTimeNs: 2_000_000_000}},
		},
		FlowStats:      &model.AllFlowStats{All: &model.FlowStats{Count: 3, AvgMs: 2}},
		UtilizationPct: &util,
		GeneratedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	// 2. Create a temporary directory
	tmpDir, err := os.MkdirTemp("", "snapshot_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// 3. Write the snapshot
	if err := NewGobWriter(tmpDir).Write(report); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// 4. Verify the report round-trips through gob
	runDir := filepath.Join(tmpDir, "2024-05-01_12-00-00", "run_a")
	decoded, err := ReadReport(filepath.Join(runDir, ReportFile))
	if err != nil {
		t.Fatalf("ReadReport failed: %v", err)
	}
	if decoded.Run.ID != "id-1" || len(decoded.Workers) != 1 || decoded.FlowStats.All.Count != 3 {
		t.Errorf("Unexpected decoded report: %+v", decoded)
	}
	if iv := decoded.Workers[0].Intervals[0][0]; iv.StartNs != 10 || iv.DurationNs != 20 {
		t.Errorf("Unexpected decoded interval: %+v", iv)
	}

	// 5. Verify summary content
	summaryBytes, err := os.ReadFile(filepath.Join(runDir, SummaryFile))
	if err != nil {
		t.Fatalf("Failed to read summary.json: %v", err)
	}
	var summary SummaryData
	if err := json.Unmarshal(summaryBytes, &summary); err != nil {
		t.Fatalf("Failed to unmarshal summary.json: %v", err)
	}
	if summary.Iterations != 2 || summary.PriorityCounts["6"] != 1 || *summary.UtilizationPct != 37.5 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}
