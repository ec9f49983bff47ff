package pipeline

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/eventlog"
	"TraceSpectra/internal/flowlog"
	"TraceSpectra/internal/flowstats"
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/priority"
	"TraceSpectra/internal/runconfig"
	"TraceSpectra/internal/timeline"
	"TraceSpectra/internal/utilization"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Run carries the state of one run-directory analysis. Nothing is shared
// between runs.
type Run struct {
	Dir    string
	Name   string
	Config runconfig.RunConfig
	// HasConfig is false when the directory name does not follow the run naming scheme.
	HasConfig bool

	analysis      config.AnalysisConfig
	reconstructor *timeline.Reconstructor
	store         *priority.Store
	engine        *flowstats.Engine
}

// NewRun prepares the analysis of a run directory.
func NewRun(dir string, analysis config.AnalysisConfig) *Run {
	name := filepath.Base(filepath.Clean(dir))
	rc, err := runconfig.ParseName(name)
	if err != nil {
		log.Printf("Run directory '%s' does not follow the naming scheme, run parameters are unknown.", name)
	}

	return &Run{
		Dir:           dir,
		Name:          name,
		Config:        rc,
		HasConfig:     err == nil,
		analysis:      analysis,
		reconstructor: timeline.NewReconstructor(timeline.Options{Strict: analysis.Strict}),
		store:         priority.NewStore(analysis.SteadyStateNs),
		engine:        NewEngine(analysis),
	}
}

// NewEngine builds a flow statistics engine from the analysis settings.
func NewEngine(analysis config.AnalysisConfig) *flowstats.Engine {
	return flowstats.NewEngine(flowstats.Options{
		WarmupNs:   analysis.WarmupNs,
		CooldownNs: analysis.CooldownNs,
		SmallMaxKB: analysis.SmallMaxKB,
		LargeMinKB: analysis.LargeMinKB,
	})
}

// LogsDir returns the simulator log directory, falling back to the run
// directory itself when it has no logs subdirectory.
func (r *Run) LogsDir() string {
	return LogsDir(r.Dir, r.analysis)
}

// LogsDir resolves the simulator log directory of a run directory.
func LogsDir(dir string, analysis config.AnalysisConfig) string {
	logs := filepath.Join(dir, analysis.LogsDir)
	if info, err := os.Stat(logs); err == nil && info.IsDir() {
		return logs
	}
	return dir
}

// Execute analyzes every worker progress log, the flow log, the per-flow
// progress logs and the utilization files of the run.
func (r *Run) Execute(ctx context.Context) (*model.RunReport, error) {
	logsDir := r.LogsDir()
	report := &model.RunReport{
		Run:         r.info(),
		GeneratedAt: time.Now(),
	}

	files, err := eventlog.FindProgressFiles(logsDir)
	if err != nil {
		return nil, err
	}
	log.Printf("Found %d worker progress logs in %s", len(files), logsDir)

	for _, pf := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		worker, err := r.analyzeWorker(pf)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze worker %d: %w", pf.WorkerID, err)
		}
		report.Workers = append(report.Workers, *worker)
	}
	r.store.Finalize()
	report.Samples = r.store.Snapshot()

	records, err := LoadFlows(logsDir, r.analysis)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("No flow log in %s, skipping flow statistics.", logsDir)
	case err != nil:
		return nil, err
	default:
		stats, completion, err := r.engine.Compute(records)
		if err != nil {
			return nil, fmt.Errorf("failed to compute flow statistics: %w", err)
		}
		report.FlowStats = stats
		report.Completion = completion
		r.expectedUtilization(report, records)
	}

	if pct, err := utilization.ReadSummaryFile(logsDir); err == nil {
		report.UtilizationPct = &pct
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring utilization summary of run '%s': %v", r.Name, err)
	}
	r.deviceUtilization(report, logsDir)
	if err := r.flowRates(ctx, report, logsDir); err != nil {
		return nil, err
	}

	return report, nil
}

// deviceUtilization records the mean of every device utilization series.
// Unreadable series are logged and left out.
func (r *Run) deviceUtilization(report *model.RunReport, logsDir string) {
	ids, err := utilization.FindSeriesDevices(logsDir)
	if err != nil {
		log.Printf("Ignoring device utilization of run '%s': %v", r.Name, err)
		return
	}
	for _, id := range ids {
		samples, err := utilization.ReadSeriesFile(logsDir, id)
		if err != nil {
			log.Printf("Ignoring utilization series of device %d: %v", id, err)
			continue
		}
		if report.DeviceUtilization == nil {
			report.DeviceUtilization = make(map[int]float64, len(ids))
		}
		report.DeviceUtilization[id] = utilization.Mean(samples)
	}
}

// flowRates converts every per-flow progress log into a rate series.
func (r *Run) flowRates(ctx context.Context, report *model.RunReport, logsDir string) error {
	files, err := flowlog.FindRateFiles(logsDir)
	if err != nil {
		log.Printf("Ignoring flow progress logs of run '%s': %v", r.Name, err)
		return nil
	}
	for _, rf := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		points, err := flowlog.ReadRateSeries(rf.Path)
		if err != nil {
			log.Printf("Ignoring progress log of flow %d: %v", rf.FlowID, err)
			continue
		}
		if report.FlowRates == nil {
			report.FlowRates = make(map[int64][]model.RatePoint, len(files))
		}
		report.FlowRates[rf.FlowID] = points
	}
	if len(report.FlowRates) > 0 {
		log.Printf("Computed rate series of %d flows in %s", len(report.FlowRates), logsDir)
	}
	return nil
}

func (r *Run) analyzeWorker(pf eventlog.ProgressFile) (*model.WorkerReport, error) {
	l, err := eventlog.ReadFile(pf.Path)
	if err != nil {
		return nil, err
	}
	res, err := r.reconstructor.Reconstruct(l)
	if err != nil {
		return nil, err
	}
	r.store.AppendAll(res.Samples)

	if l.NumLayers != pf.Layers && pf.Layers > 0 {
		log.Printf("Worker %d reports %d layers in its file name but its log has %d.", pf.WorkerID, pf.Layers, l.NumLayers)
	}
	return &model.WorkerReport{
		WorkerID:             pf.WorkerID,
		NumLayers:            l.NumLayers,
		MaxTimeNs:            l.MaxTimeNs,
		IterationDurationsNs: res.IterationDurations,
		Intervals:            res.Intervals,
		Fallbacks:            res.Fallbacks,
	}, nil
}

func (r *Run) info() model.RunInfo {
	if !r.HasConfig {
		return model.RunInfo{Name: r.Name}
	}
	info := r.Config.Info()
	// The directory name is authoritative even if it round-trips differently.
	info.Name = r.Name
	return info
}

func (r *Run) expectedUtilization(report *model.RunReport, records []model.FlowRecord) {
	if !r.HasConfig || r.Config.LinkBandwidth == "" || len(records) == 0 {
		return
	}
	var total float64
	for _, rec := range records {
		total += float64(rec.SizeBytes)
	}
	u, err := r.Config.ExpectedUtilization(total / float64(len(records)))
	if err != nil {
		log.Printf("Cannot derive expected utilization of run '%s': %v", r.Name, err)
		return
	}
	report.Run.ExpectedUtilization = u
}

// LoadFlows reads the flow log of a log directory, trying the compressed
// variant when the plain file is missing. It returns an error wrapping
// os.ErrNotExist when neither exists.
func LoadFlows(logsDir string, analysis config.AnalysisConfig) ([]model.FlowRecord, error) {
	path := filepath.Join(logsDir, analysis.FlowLog)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		path += flowlog.ZstdSuffix
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("flow log in %s: %w", logsDir, err)
	}
	return flowlog.ReadFile(path)
}

// Analyze is a shortcut for NewRun(dir, analysis).Execute(ctx).
func Analyze(ctx context.Context, dir string, analysis config.AnalysisConfig) (*model.RunReport, error) {
	return NewRun(dir, analysis).Execute(ctx)
}
