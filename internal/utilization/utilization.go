package utilization

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

// SummaryFile is the per-run link utilization summary written by the simulator.
const SummaryFile = "utilization_summary.txt"

// Sample is one point of a device utilization series.
type Sample struct {
	Fraction float64 `json:"fraction"`
	TimeNs   int64   `json:"time_ns"`
}

// SeriesFile returns the utilization series file name of a network device.
func SeriesFile(deviceID int) string {
	return fmt.Sprintf("NetworkDevice_%d_utilization.txt", deviceID)
}

// FindSeriesDevices returns the ids of the devices that have a utilization
// series in a log directory, sorted.
func FindSeriesDevices(logDir string) ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(logDir, "NetworkDevice_*_utilization.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to list utilization series in '%s': %w", logDir, err)
	}
	var ids []int
	for _, m := range matches {
		var id int
		if _, err := fmt.Sscanf(filepath.Base(m), "NetworkDevice_%d_utilization.txt", &id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// ReadSummaryFile reads the average utilization from a log directory.
func ReadSummaryFile(logDir string) (float64, error) {
	path := filepath.Join(logDir, SummaryFile)
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open utilization summary %s: %w", path, err)
	}
	defer f.Close()
	return ReadSummary(f)
}

// ReadSummary returns the utilization percentage of the first link, found as
// the last column of the second line, e.g. "0  1  ...  37.52%".
func ReadSummary(r io.Reader) (float64, error) {
	scanner := bufio.NewScanner(r)
	for i := 0; i < 2; i++ {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, fmt.Errorf("failed to scan utilization summary: %w", err)
			}
			return 0, fmt.Errorf("utilization summary has no link line: %w", model.ErrMalformedRecord)
		}
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) == 0 {
		return 0, fmt.Errorf("utilization summary link line is empty: %w", model.ErrMalformedRecord)
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[len(fields)-1], "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("utilization %q: %w", fields[len(fields)-1], model.ErrMalformedRecord)
	}
	return pct, nil
}

// ReadSeriesFile reads the utilization series of one device in a log directory.
func ReadSeriesFile(logDir string, deviceID int) ([]Sample, error) {
	path := filepath.Join(logDir, SeriesFile(deviceID))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open utilization series %s: %w", path, err)
	}
	defer f.Close()
	return ReadSeries(f)
}

// ReadSeries parses "fraction time_ns" lines. A blank line ends the series.
func ReadSeries(r io.Reader) ([]Sample, error) {
	var samples []Sample
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			break
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d: %w", lineNo, len(fields), model.ErrMalformedRecord)
		}
		frac, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: fraction %q: %w", lineNo, fields[0], model.ErrMalformedRecord)
		}
		t, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: time %q: %w", lineNo, fields[1], model.ErrMalformedRecord)
		}
		samples = append(samples, Sample{Fraction: frac, TimeNs: t})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan utilization series: %w", err)
	}
	return samples, nil
}

// Mean returns the average fraction of a series, or 0 when it is empty.
func Mean(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Fraction
	}
	return sum / float64(len(samples))
}
