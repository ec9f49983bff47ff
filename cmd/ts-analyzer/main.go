package main

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/engine/manager"
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/multirun"
	"TraceSpectra/internal/pipeline"
	"TraceSpectra/internal/report"
	"TraceSpectra/internal/stream"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const usage = `Usage: ts-analyzer <command> [flags] <run_dir>...

Commands:
  analyze    analyze run directories and send the reports to the enabled writers
  compare    compare comparison runs against baseline runs per arrival rate
  aggregate  pool several runs of the same configuration
  submit     ask a running ts-engine to analyze run directories
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	// --- Command Dispatch ---
	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "analyze":
		err = runAnalyze(args)
	case "compare":
		err = runCompare(args)
	case "aggregate":
		err = runAggregate(args)
	case "submit":
		err = runSubmit(args)
	default:
		fmt.Fprintf(os.Stderr, "Invalid command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func loadConfig(fs *flag.FlagSet, args []string) (*config.Config, error) {
	configPath := fs.String("config", "configs/config.yaml", "Path to the configuration file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Println("Configuration loaded successfully.")
	return cfg, nil
}

// runAnalyze feeds every run directory to the manager's worker pool.
func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	dirs, err := expandDirs(fs.Args())
	if err != nil {
		return err
	}

	// 1. Initialize the manager with the enabled writers
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	// 2. Start the processing pipeline
	mgr.Start()

	// 3. Queue every run directory
	ctx := context.Background()
	for _, dir := range dirs {
		if err := mgr.Submit(ctx, dir); err != nil {
			log.Printf("Error queueing %s: %v", dir, err)
		}
	}

	// 4. Graceful shutdown
	mgr.Stop()
	if _, failed := mgr.Stats(); failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(dirs))
	}
	return nil
}

// runCompare prints the per-band change of the comparison runs against the baseline runs.
func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	baselineGlob := fs.String("baseline", "", "Glob matching the baseline run directories")
	comparisonGlob := fs.String("comparison", "", "Glob matching the comparison run directories")
	metricName := fs.String("metric", string(model.MetricMean), "Metric to compare (mean, median, p90, p99, min, max)")
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *baselineGlob == "" || *comparisonGlob == "" {
		return fmt.Errorf("-baseline and -comparison are required")
	}
	metric, err := model.ParseMetric(*metricName)
	if err != nil {
		return err
	}

	baseline, err := analyzeGlob(*baselineGlob, cfg.Analysis)
	if err != nil {
		return err
	}
	comparison, err := analyzeGlob(*comparisonGlob, cfg.Analysis)
	if err != nil {
		return err
	}

	rows := report.BuildFCTRows(baseline, comparison, metric)
	return report.WriteFCTTable(os.Stdout, rows, metric)
}

// runAggregate pools the flow logs of several runs and prints the result as JSON.
func runAggregate(args []string) error {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	dirs, err := expandDirs(fs.Args())
	if err != nil {
		return err
	}

	runs := make([][]model.FlowRecord, 0, len(dirs))
	for _, dir := range dirs {
		records, err := pipeline.LoadFlows(pipeline.LogsDir(dir, cfg.Analysis), cfg.Analysis)
		if err != nil {
			return fmt.Errorf("failed to load flows of %s: %w", dir, err)
		}
		runs = append(runs, records)
	}

	res, err := multirun.Aggregate(pipeline.NewEngine(cfg.Analysis), runs)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// runSubmit publishes run requests for a running ts-engine.
func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	dirs, err := expandDirs(fs.Args())
	if err != nil {
		return err
	}

	pub, err := stream.NewPublisher(cfg.Stream)
	if err != nil {
		return err
	}
	defer pub.Close()

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := pub.SubmitRun(abs); err != nil {
			return fmt.Errorf("failed to submit %s: %w", dir, err)
		}
		log.Printf("Submitted run %s", abs)
	}
	return nil
}

func analyzeGlob(pattern string, analysis config.AnalysisConfig) ([]*model.RunReport, error) {
	dirs, err := expandDirs([]string{pattern})
	if err != nil {
		return nil, err
	}
	reports := make([]*model.RunReport, 0, len(dirs))
	for _, dir := range dirs {
		r, err := pipeline.Analyze(context.Background(), dir, analysis)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze %s: %w", dir, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// expandDirs resolves glob patterns into existing directories.
func expandDirs(patterns []string) ([]string, error) {
	var dirs []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				dirs = append(dirs, strings.TrimRight(m, string(filepath.Separator)))
			}
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("no run directories match %v", patterns)
	}
	return dirs, nil
}
