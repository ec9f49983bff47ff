package stream

import (
	"TraceSpectra/internal/model"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeRunRequest serializes a request to analyze a run directory.
func EncodeRunRequest(dir string) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]interface{}{"dir": dir})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

// DecodeRunRequest extracts the run directory from a request.
func DecodeRunRequest(data []byte) (string, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return "", fmt.Errorf("failed to unmarshal run request: %w", err)
	}
	dir := s.GetFields()["dir"].GetStringValue()
	if dir == "" {
		return "", fmt.Errorf("run request has no dir")
	}
	return dir, nil
}

// ReportStruct condenses a run report into a protobuf Struct: run identity,
// per-worker average iteration time, retained samples per class and the
// statistics of every defined band.
func ReportStruct(report *model.RunReport) (*structpb.Struct, error) {
	workers := make([]interface{}, 0, len(report.Workers))
	for _, w := range report.Workers {
		entry := map[string]interface{}{
			"worker_id":  w.WorkerID,
			"iterations": len(w.IterationDurationsNs),
			"fallbacks":  w.Fallbacks,
		}
		if n := len(w.IterationDurationsNs); n > 0 {
			var sum int64
			for _, d := range w.IterationDurationsNs {
				sum += d
			}
			entry["avg_iteration_s"] = float64(sum) / float64(n) / 1e9
		}
		workers = append(workers, entry)
	}

	samples := make(map[string]interface{}, len(report.Samples))
	for class, s := range report.Samples {
		samples[class] = len(s)
	}

	bands := make(map[string]interface{})
	if report.FlowStats != nil {
		for _, b := range model.Bands {
			s, err := report.FlowStats.Band(b)
			if err != nil {
				continue
			}
			bands[string(b)] = map[string]interface{}{
				"count":     s.Count,
				"min_ms":    s.MinMs,
				"median_ms": s.MedianMs,
				"avg_ms":    s.AvgMs,
				"p90_ms":    s.P90Ms,
				"p99_ms":    s.P99Ms,
				"max_ms":    s.MaxMs,
			}
		}
	}

	fields := map[string]interface{}{
		"run_id":               report.Run.ID,
		"run_name":             report.Run.Name,
		"arrival_rate":         report.Run.ArrivalRate,
		"expected_utilization": report.Run.ExpectedUtilization,
		"workers":              workers,
		"samples":              samples,
		"bands":                bands,
		"generated_at":         report.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if report.UtilizationPct != nil {
		fields["utilization_pct"] = *report.UtilizationPct
	}
	return structpb.NewStruct(fields)
}
