package query

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/flowstats"
	"TraceSpectra/internal/model"
	"TraceSpectra/internal/writer"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// RunSummary is one analyzed run as stored in ClickHouse.
type RunSummary struct {
	RunName        string    `json:"run_name"`
	RunID          string    `json:"run_id"`
	ArrivalRate    float64   `json:"arrival_rate"`
	UtilizationPct *float64  `json:"utilization_pct,omitempty"`
	LastAnalyzed   time.Time `json:"last_analyzed"`
}

// RunStats is the latest band statistics of a run.
type RunStats struct {
	RunName        string                          `json:"run_name"`
	UtilizationPct *float64                        `json:"utilization_pct,omitempty"`
	Stats          *model.AllFlowStats             `json:"stats"`
	Completion     map[model.Band]model.Completion `json:"completion"`
}

// Querier defines the interface for querying stored analysis results.
type Querier interface {
	ListRuns(ctx context.Context) ([]RunSummary, error)
	RunStats(ctx context.Context, runName string) (*RunStats, error)
	PrioritySamples(ctx context.Context, runName, priority string, limit int) ([]model.PrioritySample, error)
	IterationDurations(ctx context.Context, runName string) (map[int][]int64, error)
}

// clickhouseQuerier implements the Querier interface for ClickHouse.
type clickhouseQuerier struct {
	conn driver.Conn
}

// NewClickHouseQuerier creates a new querier for ClickHouse.
func NewClickHouseQuerier(cfg config.ClickHouseConfig) (Querier, error) {
	conn, err := writer.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	return &clickhouseQuerier{conn: conn}, nil
}

// ListRuns returns every run with its most recent analysis time.
func (q *clickhouseQuerier) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT
			RunName,
			argMax(RunID, Timestamp) AS LatestRunID,
			argMax(ArrivalRate, Timestamp) AS LatestArrivalRate,
			argMax(Utilization, Timestamp) AS LatestUtilization,
			max(Timestamp) AS LastAnalyzed
		FROM fct_stats
		GROUP BY RunName
		ORDER BY LatestArrivalRate, RunName
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunName, &r.RunID, &r.ArrivalRate, &r.UtilizationPct, &r.LastAnalyzed); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunStats returns the band statistics of the latest analysis of a run.
func (q *clickhouseQuerier) RunStats(ctx context.Context, runName string) (*RunStats, error) {
	rows, err := q.conn.Query(ctx, runStatsQuery, runName, runName)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	res := &RunStats{
		RunName:    runName,
		Stats:      &model.AllFlowStats{},
		Completion: make(map[model.Band]model.Completion),
	}
	found := false
	for rows.Next() {
		var (
			band                                        string
			count, total, completed, dnf, errs          uint32
			minMs, medianMs, avgMs, p90Ms, p99Ms, maxMs *float64
		)
		if err := rows.Scan(&band, &count, &minMs, &medianMs, &avgMs, &p90Ms, &p99Ms, &maxMs,
			&total, &completed, &dnf, &errs, &res.UtilizationPct); err != nil {
			return nil, fmt.Errorf("failed to scan band statistics: %w", err)
		}
		found = true
		b := model.Band(band)
		res.Completion[b] = model.Completion{Total: int(total), Completed: int(completed), DNF: int(dnf), Err: int(errs)}
		if avgMs == nil {
			continue
		}
		res.Stats.Set(b, &model.FlowStats{
			Count:    int(count),
			MinMs:    deref(minMs),
			MedianMs: deref(medianMs),
			AvgMs:    deref(avgMs),
			P90Ms:    deref(p90Ms),
			P99Ms:    deref(p99Ms),
			MaxMs:    deref(maxMs),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("run '%s': %w", runName, ErrRunNotFound)
	}
	return res, nil
}

const runStatsQuery = `
	SELECT Band, Count, MinMs, MedianMs, AvgMs, P90Ms, P99Ms, MaxMs, Total, Completed, DNF, Err, Utilization
	FROM fct_stats
	WHERE RunName = ? AND Timestamp = (SELECT max(Timestamp) FROM fct_stats WHERE RunName = ?)
`

// PrioritySamples returns the latest samples of a run, optionally filtered by class.
func (q *clickhouseQuerier) PrioritySamples(ctx context.Context, runName, priority string, limit int) ([]model.PrioritySample, error) {
	query, args := buildSamplesQuery(runName, priority, limit)
	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var samples []model.PrioritySample
	for rows.Next() {
		var s model.PrioritySample
		if err := rows.Scan(&s.Priority, &s.SendTimeNs, &s.DurationNs); err != nil {
			return nil, fmt.Errorf("failed to scan priority sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func buildSamplesQuery(runName, priority string, limit int) (string, []interface{}) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT Priority, SendTimeNs, DurationNs
		FROM priority_samples
	`)

	whereClauses := []string{
		"RunName = ?",
		"Timestamp = (SELECT max(Timestamp) FROM priority_samples WHERE RunName = ?)",
	}
	args := []interface{}{runName, runName}
	if priority != "" {
		whereClauses = append(whereClauses, "Priority = ?")
		args = append(args, priority)
	}
	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	queryBuilder.WriteString(" ORDER BY Priority, SendTimeNs")
	if limit > 0 {
		queryBuilder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return queryBuilder.String(), args
}

// IterationDurations returns the latest iteration durations of a run, per worker.
func (q *clickhouseQuerier) IterationDurations(ctx context.Context, runName string) (map[int][]int64, error) {
	rows, err := q.conn.Query(ctx, `
		SELECT WorkerID, DurationNs
		FROM iteration_durations
		WHERE RunName = ? AND Timestamp = (SELECT max(Timestamp) FROM iteration_durations WHERE RunName = ?)
		ORDER BY WorkerID, IterIdx
	`, runName, runName)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]int64)
	for rows.Next() {
		var worker uint32
		var d int64
		if err := rows.Scan(&worker, &d); err != nil {
			return nil, fmt.Errorf("failed to scan iteration duration: %w", err)
		}
		out[int(worker)] = append(out[int(worker)], d)
	}
	return out, rows.Err()
}

// Compare fetches two runs and compares every band of comparison against baseline.
func Compare(ctx context.Context, q Querier, baseline, comparison string, m model.Metric) (flowstats.Deltas, error) {
	base, err := q.RunStats(ctx, baseline)
	if err != nil {
		return nil, err
	}
	cmp, err := q.RunStats(ctx, comparison)
	if err != nil {
		return nil, err
	}
	return flowstats.CompareAll(cmp.Stats, base.Stats, m), nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
