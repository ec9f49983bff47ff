package flowlog

import (
	"TraceSpectra/internal/model"
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// RateWindowNs is the minimum span of one rate window.
const RateWindowNs int64 = 10_000_000

// RateFile is a per-flow progress log found in a log directory.
type RateFile struct {
	FlowID int64
	Path   string
}

// FindRateFiles lists the flow_<id>_progress.txt files of a directory,
// ordered by flow id.
func FindRateFiles(dir string) ([]RateFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "flow_*_progress.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list flow progress logs in '%s': %w", dir, err)
	}
	var files []RateFile
	for _, m := range matches {
		var id int64
		if _, err := fmt.Sscanf(filepath.Base(m), "flow_%d_progress.txt", &id); err != nil {
			continue
		}
		files = append(files, RateFile{FlowID: id, Path: m})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].FlowID < files[j].FlowID })
	return files, nil
}

// ReadRateSeries reads a flow_<id>_progress.txt file and returns its rate series.
func ReadRateSeries(path string) ([]model.RatePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow progress file %s: %w", path, err)
	}
	defer f.Close()
	return RateSeries(f)
}

// RateSeries converts "flow_id,time_ns,progress_bytes" lines into a step
// series. Once more than RateWindowNs has elapsed since the last update, the
// average rate over the elapsed span is emitted at both ends of the span.
func RateSeries(r io.Reader) ([]model.RatePoint, error) {
	var (
		points       []model.RatePoint
		lastUpdateNs int64
		lastBytes    int64
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d: %w", lineNo, len(parts), model.ErrMalformedRecord)
		}
		var vals [3]int64
		for i := range vals {
			v, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", lineNo, i+1, model.ErrMalformedRecord)
			}
			vals[i] = v
		}
		flowID, timeNs, progress := vals[0], vals[1], vals[2]

		if timeNs > lastUpdateNs+RateWindowNs {
			mbps := float64(progress-lastBytes) / float64(timeNs-lastUpdateNs) * 8000
			points = append(points,
				model.RatePoint{FlowID: flowID, TimeNs: lastUpdateNs, Mbps: mbps},
				model.RatePoint{FlowID: flowID, TimeNs: timeNs, Mbps: mbps},
			)
			lastUpdateNs, lastBytes = timeNs, progress
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan flow progress: %w", err)
	}
	return points, nil
}
