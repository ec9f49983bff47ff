package report

import (
	"TraceSpectra/internal/flowstats"
	"TraceSpectra/internal/model"
	"fmt"
	"io"
	"log"
	"sort"
	"text/tabwriter"
)

// FCTRow pairs a baseline run with a comparison run at the same arrival rate.
type FCTRow struct {
	ArrivalRate float64
	Baseline    string
	Comparison  string
	// UtilizationPct is the baseline link utilization, nil when not recorded.
	UtilizationPct *float64
	Deltas         flowstats.Deltas
}

// BuildFCTRows pairs baseline and comparison reports by arrival rate and
// computes the per-band delta of the metric. Rates present on only one side
// are skipped. When several baselines share a rate the first one is used and
// the others are logged. Rows are ordered by arrival rate.
func BuildFCTRows(baseline, comparison []*model.RunReport, m model.Metric) []FCTRow {
	byRate := make(map[float64]*model.RunReport, len(baseline))
	for _, r := range baseline {
		if kept, ok := byRate[r.Run.ArrivalRate]; ok {
			log.Printf("Baseline %s shares arrival rate %g with %s, ignoring it.", r.Run.Name, r.Run.ArrivalRate, kept.Run.Name)
			continue
		}
		byRate[r.Run.ArrivalRate] = r
	}

	var rows []FCTRow
	for _, c := range comparison {
		b, ok := byRate[c.Run.ArrivalRate]
		if !ok {
			log.Printf("No baseline run for arrival rate %g, skipping %s.", c.Run.ArrivalRate, c.Run.Name)
			continue
		}
		rows = append(rows, FCTRow{
			ArrivalRate:    c.Run.ArrivalRate,
			Baseline:       b.Run.Name,
			Comparison:     c.Run.Name,
			UtilizationPct: b.UtilizationPct,
			Deltas:         flowstats.CompareAll(c.FlowStats, b.FlowStats, m),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ArrivalRate < rows[j].ArrivalRate })
	return rows
}

// WriteFCTTable renders rows as an aligned text table.
func WriteFCTTable(w io.Writer, rows []FCTRow, m model.Metric) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "arrival\tutilization")
	for _, b := range model.Bands {
		fmt.Fprintf(tw, "\t%s %s", b, m)
	}
	fmt.Fprintln(tw)

	for _, row := range rows {
		util := "N/A"
		if row.UtilizationPct != nil {
			util = fmt.Sprintf("%.2f%%", *row.UtilizationPct)
		}
		fmt.Fprintf(tw, "%g\t%s", row.ArrivalRate, util)
		for _, b := range model.Bands {
			d, ok := row.Deltas[b]
			if !ok {
				d = flowstats.Delta{Err: model.ErrEmptyBand}
			}
			fmt.Fprintf(tw, "\t%s", d)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
