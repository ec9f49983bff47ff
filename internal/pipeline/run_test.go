package pipeline

import (
	"TraceSpectra/internal/config"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const workerLog = `Iteration_idx,Layer_idx,Event,Time
0,0,BP_Start,1000000000
0,0,Start_Sending_Partition_0_Priority_6,1000000010
0,0,Received_Partition_0_Priority_6,1000000500
0,0,BP_Done,1000000600
0,1,BP_Start,2500000000
0,1,BP_Done,2500001000
1,0,BP_Start,2600000000
1,0,Start_Sending_Partition_0_Priority_6,2610000000
1,0,Received_Partition_0_Priority_6,2620000000
1,0,BP_Done,2630000000
1,1,BP_Start,3000000000
1,1,BP_Done,3000001000
`

const flows = `0,0,1,50000,3000000000,3001000000,1000000,50000,YES,
1,0,1,50000,3100000000,3102000000,2000000,50000,YES,
2,0,1,50000,3200000000,3203000000,3000000,50000,YES,
3,0,1,50000,10000000000,0,0,0,NO_ONGOING,
`

func writeRun(t *testing.T, name string) string {
	t.Helper()
	runDir := filepath.Join(t.TempDir(), name)
	logs := filepath.Join(runDir, "logs_ns3")
	if err := os.MkdirAll(logs, 0755); err != nil {
		t.Fatalf("Failed to create logs dir: %v", err)
	}
	files := []struct{ name, content string }{
		{"HorovodWorker_0_layer_2_port_1_progress.txt", workerLog},
		{"flows.csv", flows},
		{"utilization_summary.txt", "From To Utilization\n0 1 41.25%\n"},
		{"NetworkDevice_2_utilization.txt", "0.2 1000000\n0.6 2000000\n\n"},
		{"flow_1_progress.txt", "1,3100000000,0\n1,3120000000,500000\n"},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(logs, f.name), []byte(f.content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", f.name, err)
		}
	}
	return runDir
}

func TestRun_Execute(t *testing.T) {
	name := "pfabric_flows_horovod_100ms_arrival_400_runhvd_true_hrvprio_0x10_num_hvd_8_link_bw_10.0Gbit_test"
	runDir := writeRun(t, name)

	report, err := Analyze(context.Background(), runDir, config.Default().Analysis)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.Run.Name != name || report.Run.ID == "" || report.Run.LinkBandwidthBps != 10_000_000_000 {
		t.Errorf("Unexpected run info: %+v", report.Run)
	}
	// 400 flows/s * 50 KB * 8 bit on 10 Gbit/s.
	if report.Run.ExpectedUtilization < 0.0159 || report.Run.ExpectedUtilization > 0.0161 {
		t.Errorf("Expected utilization 0.016, got %v", report.Run.ExpectedUtilization)
	}

	if len(report.Workers) != 1 {
		t.Fatalf("Expected 1 worker, got %d", len(report.Workers))
	}
	w := report.Workers[0]
	if w.NumLayers != 2 || len(w.IterationDurationsNs) != 1 || w.IterationDurationsNs[0] != 500_000_000 {
		t.Errorf("Unexpected worker report: %+v", w)
	}

	samples := report.Samples["6"]
	if len(samples) != 1 || samples[0].SendTimeNs != 2_610_000_000 || samples[0].DurationNs != 10_000_000 {
		t.Errorf("Expected only the steady-state sample, got %+v", samples)
	}

	if report.FlowStats == nil || report.FlowStats.Small == nil || report.FlowStats.Small.Count != 3 {
		t.Fatalf("Unexpected flow stats: %+v", report.FlowStats)
	}
	if report.UtilizationPct == nil || *report.UtilizationPct != 41.25 {
		t.Errorf("Expected utilization 41.25, got %v", report.UtilizationPct)
	}
	if mean, ok := report.DeviceUtilization[2]; !ok || mean < 0.3999 || mean > 0.4001 {
		t.Errorf("Expected device 2 mean utilization 0.4, got %v", report.DeviceUtilization)
	}
	// The first line opens a zero-rate window from time 0. 500 KB over the
	// next 20 ms is 200 Mbit/s, emitted at both ends of that window.
	rates := report.FlowRates[1]
	if len(rates) != 4 || rates[3].TimeNs != 3_120_000_000 || rates[3].Mbps < 199.99 || rates[3].Mbps > 200.01 {
		t.Errorf("Unexpected rate series of flow 1: %+v", rates)
	}
}

func TestRun_MissingOptionalInputs(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "adhoc")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("Failed to create run dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "HorovodWorker_3_layer_2_port_9_progress.txt"), []byte(workerLog), 0644); err != nil {
		t.Fatalf("Failed to write worker log: %v", err)
	}

	run := NewRun(runDir, config.Default().Analysis)
	if run.HasConfig {
		t.Error("Expected unparsable run name")
	}
	report, err := run.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if report.FlowStats != nil || report.UtilizationPct != nil || report.DeviceUtilization != nil || report.FlowRates != nil {
		t.Errorf("Expected no flow stats or utilization, got %+v", report)
	}
	if report.Run.Name != "adhoc" || report.Workers[0].WorkerID != 3 {
		t.Errorf("Unexpected report: %+v", report.Run)
	}
}

func TestRun_StrictFailure(t *testing.T) {
	runDir := writeRun(t, "strict_run")
	bad := "Iteration_idx,Layer_idx,Event,Time\n0,0,BP_Done,5\n"
	if err := os.WriteFile(filepath.Join(runDir, "logs_ns3", "HorovodWorker_1_layer_1_port_1_progress.txt"), []byte(bad), 0644); err != nil {
		t.Fatalf("Failed to write worker log: %v", err)
	}

	analysis := config.Default().Analysis
	analysis.Strict = true
	if _, err := Analyze(context.Background(), runDir, analysis); err == nil || !strings.Contains(err.Error(), "worker 1") {
		t.Errorf("Expected strict failure on worker 1, got %v", err)
	}

	analysis.Strict = false
	report, err := Analyze(context.Background(), runDir, analysis)
	if err != nil {
		t.Fatalf("Lenient Analyze failed: %v", err)
	}
	if report.Workers[1].Fallbacks != 1 {
		t.Errorf("Expected 1 fallback on worker 1, got %d", report.Workers[1].Fallbacks)
	}
}

func TestRun_Cancelled(t *testing.T) {
	runDir := writeRun(t, "cancelled")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Analyze(ctx, runDir, config.Default().Analysis); err == nil {
		t.Error("Expected context error")
	}
}
