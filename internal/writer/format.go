package writer

import (
	"TraceSpectra/internal/model"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// formatSeconds prints a float the way the plotting scripts expect, e.g.
// "0.5", "1.0" or "1e-05".
func formatSeconds(v float64) string {
	abs := math.Abs(v)
	if v != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// WriteIterationSummary writes the iteration durations of one worker.
func WriteIterationSummary(w io.Writer, durationsNs []int64) error {
	var b strings.Builder
	b.WriteString("Iter Idx, Iter Duration in S\n")
	if len(durationsNs) == 0 {
		b.WriteString("0, 0\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	var sum int64
	for i, d := range durationsNs {
		sum += d
		fmt.Fprintf(&b, "%d, %s\n", i, formatSeconds(float64(d)/1e9))
	}
	avgNs := float64(sum) / float64(len(durationsNs))
	b.WriteString("Iter Cnt, Avg Iter Duration\n")
	fmt.Fprintf(&b, "%d, %s\n", len(durationsNs), formatSeconds(avgNs/1e9))

	_, err := io.WriteString(w, b.String())
	return err
}

// WritePrioritySamples writes finalized samples as "duration_ms,send_time_s" lines.
func WritePrioritySamples(w io.Writer, samples []model.PrioritySample) error {
	var b strings.Builder
	for _, s := range samples {
		fmt.Fprintf(&b, "%.2f,%.1f\n", float64(s.DurationNs)/1e6, float64(s.SendTimeNs)/1e9)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteRateSeries writes a flow's throughput series as "flow_id,time_ns,mbps" lines.
func WriteRateSeries(w io.Writer, points []model.RatePoint) error {
	var b strings.Builder
	for _, p := range points {
		fmt.Fprintf(&b, "%d,%d,%.2f\n", p.FlowID, p.TimeNs, p.Mbps)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFCTSummary writes one line per band with its completion time statistics.
func WriteFCTSummary(w io.Writer, stats *model.AllFlowStats, completion map[model.Band]model.Completion) error {
	var b strings.Builder
	b.WriteString("Band, Count, Min ms, Median ms, Avg ms, P90 ms, P99 ms, Max ms, Completion\n")
	for _, band := range model.Bands {
		c := completion[band]
		s, err := stats.Band(band)
		if err != nil {
			fmt.Fprintf(&b, "%s, 0, N/A, N/A, N/A, N/A, N/A, N/A, %d/%d\n", band, c.Completed, c.Total)
			continue
		}
		fmt.Fprintf(&b, "%s, %d, %.3f, %.3f, %.3f, %.3f, %.3f, %.3f, %d/%d\n",
			band, s.Count, s.MinMs, s.MedianMs, s.AvgMs, s.P90Ms, s.P99Ms, s.MaxMs, c.Completed, c.Total)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
