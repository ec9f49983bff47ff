package writer

import (
	"TraceSpectra/internal/model"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// TextWriter writes the plain-text artifacts consumed by the plotting scripts.
type TextWriter struct {
	rootPath string
}

// NewTextWriter creates a writer that places artifacts under rootPath/<run name>.
func NewTextWriter(rootPath string) *TextWriter {
	return &TextWriter{rootPath: rootPath}
}

func (w *TextWriter) Name() string {
	return "text"
}

func (w *TextWriter) Close() error {
	return nil
}

// Write creates one iteration summary per worker, one sample file per
// priority class, one rate series per traced flow and the FCT summary.
func (w *TextWriter) Write(report *model.RunReport) error {
	runDir := filepath.Join(w.rootPath, report.Run.Name)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	files := 0
	for _, worker := range report.Workers {
		name := fmt.Sprintf("HorovodWorker_%d_iteration_summary.txt", worker.WorkerID)
		durations := worker.IterationDurationsNs
		if err := writeFile(filepath.Join(runDir, name), func(f io.Writer) error {
			return WriteIterationSummary(f, durations)
		}); err != nil {
			return err
		}
		files++
	}

	for _, class := range report.PriorityClasses() {
		samples := report.Samples[class]
		name := fmt.Sprintf("Priority_%s_samples.txt", class)
		if err := writeFile(filepath.Join(runDir, name), func(f io.Writer) error {
			return WritePrioritySamples(f, samples)
		}); err != nil {
			return err
		}
		files++
	}

	for _, id := range report.RateFlowIDs() {
		points := report.FlowRates[id]
		name := fmt.Sprintf("flow_%d_rate.txt", id)
		if err := writeFile(filepath.Join(runDir, name), func(f io.Writer) error {
			return WriteRateSeries(f, points)
		}); err != nil {
			return err
		}
		files++
	}

	if report.FlowStats != nil {
		if err := writeFile(filepath.Join(runDir, "fct_summary.txt"), func(f io.Writer) error {
			return WriteFCTSummary(f, report.FlowStats, report.Completion)
		}); err != nil {
			return err
		}
		files++
	}

	log.Printf("Successfully wrote %d artifacts to %s", files, runDir)
	return nil
}

func writeFile(path string, fill func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact file '%s': %w", path, err)
	}
	defer file.Close()

	if err := fill(file); err != nil {
		return fmt.Errorf("failed to write artifact file '%s': %w", path, err)
	}
	return nil
}
