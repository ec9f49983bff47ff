package snapshot

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/factory"
	"TraceSpectra/internal/model"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ReportFile is the gob-encoded RunReport inside a snapshot directory.
const ReportFile = "report.dat"

// SummaryFile is the JSON summary written next to ReportFile.
const SummaryFile = "summary.json"

func init() {
	factory.RegisterWriter("gob", func(def config.WriterDef) (model.Writer, error) {
		return NewGobWriter(def.RootPath), nil
	})
}

// SummaryData holds the headline figures of a report, internal to the writer.
type SummaryData struct {
	RunID          string                          `json:"run_id"`
	RunName        string                          `json:"run_name"`
	Workers        int                             `json:"workers"`
	Iterations     int                             `json:"iterations"`
	PriorityCounts map[string]int                  `json:"priority_counts"`
	Completion     map[model.Band]model.Completion `json:"completion,omitempty"`
	UtilizationPct *float64                        `json:"utilization_pct,omitempty"`
	Timestamp      string                          `json:"timestamp"`
}

// GobWriter snapshots run reports to disk in gob format.
type GobWriter struct {
	rootPath string
}

// NewGobWriter creates a new gob snapshot writer.
func NewGobWriter(rootPath string) *GobWriter {
	return &GobWriter{rootPath: rootPath}
}

func (w *GobWriter) Name() string {
	return "gob"
}

func (w *GobWriter) Close() error {
	return nil
}

// Write encodes the report to rootPath/<timestamp>/<run name>/report.dat and
// writes a summary.json beside it.
func (w *GobWriter) Write(report *model.RunReport) error {
	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	timestamp := generated.Format("2006-01-02_15-04-05")

	runDir := filepath.Join(w.rootPath, timestamp, report.Run.Name)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	reportPath := filepath.Join(runDir, ReportFile)
	file, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", reportPath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(report); err != nil {
		return fmt.Errorf("failed to encode report to gob for file '%s': %w", reportPath, err)
	}

	summary := SummaryData{
		RunID:          report.Run.ID,
		RunName:        report.Run.Name,
		Workers:        len(report.Workers),
		PriorityCounts: make(map[string]int, len(report.Samples)),
		Completion:     report.Completion,
		UtilizationPct: report.UtilizationPct,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	for _, worker := range report.Workers {
		summary.Iterations += len(worker.IterationDurationsNs)
	}
	for class, samples := range report.Samples {
		summary.PriorityCounts[class] = len(samples)
	}

	summaryPath := filepath.Join(runDir, SummaryFile)
	summaryFile, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}

	log.Printf("Wrote gob snapshot of run '%s' to %s", report.Run.Name, runDir)
	return nil
}

// ReadReport decodes a report written by GobWriter.
func ReadReport(path string) (*model.RunReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file '%s': %w", path, err)
	}
	defer file.Close()

	var report model.RunReport
	if err := gob.NewDecoder(file).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode gob data: %w", err)
	}
	return &report, nil
}
