package writer

import (
	"TraceSpectra/internal/config"
	"TraceSpectra/internal/model"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

var createTableStatements = []string{`
CREATE TABLE IF NOT EXISTS fct_stats (
    Timestamp   DateTime,
    RunID       String,
    RunName     String,
    ArrivalRate Float64,
    Band        LowCardinality(String),
    Count       UInt32,
    MinMs       Nullable(Float64),
    MedianMs    Nullable(Float64),
    AvgMs       Nullable(Float64),
    P90Ms       Nullable(Float64),
    P99Ms       Nullable(Float64),
    MaxMs       Nullable(Float64),
    Total       UInt32,
    Completed   UInt32,
    DNF         UInt32,
    Err         UInt32,
    Utilization Nullable(Float64)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunName, Band, Timestamp);
`, `
CREATE TABLE IF NOT EXISTS priority_samples (
    Timestamp  DateTime,
    RunID      String,
    RunName    String,
    Priority   LowCardinality(String),
    SendTimeNs Int64,
    DurationNs Int64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunName, Priority, SendTimeNs);
`, `
CREATE TABLE IF NOT EXISTS iteration_durations (
    Timestamp  DateTime,
    RunID      String,
    RunName    String,
    WorkerID   UInt32,
    IterIdx    UInt32,
    DurationNs Int64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (RunName, WorkerID, IterIdx);
`}

// ClickHouseWriter stores run reports in ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the tables exist.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range createTableStatements {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	log.Println("Successfully connected to ClickHouse and ensured tables exist.")

	return &ClickHouseWriter{conn: conn}, nil
}

// Connect opens and pings a ClickHouse connection.
func Connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// Write inserts the band statistics, priority samples and iteration durations
// of a report.
func (w *ClickHouseWriter) Write(report *model.RunReport) error {
	ctx := context.Background()
	ts := report.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	if err := w.send(ctx, "INSERT INTO fct_stats", fctRows(report, ts)); err != nil {
		return err
	}
	if err := w.send(ctx, "INSERT INTO priority_samples", sampleRows(report, ts)); err != nil {
		return err
	}
	if err := w.send(ctx, "INSERT INTO iteration_durations", iterationRows(report, ts)); err != nil {
		return err
	}

	log.Printf("Wrote run '%s' to ClickHouse", report.Run.Name)
	return nil
}

func (w *ClickHouseWriter) send(ctx context.Context, query string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := w.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("failed to append row to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// fctRows builds one row per band. Statistics of an empty band are NULL.
func fctRows(report *model.RunReport, ts time.Time) [][]interface{} {
	if report.FlowStats == nil {
		return nil
	}
	rows := make([][]interface{}, 0, len(model.Bands))
	for _, band := range model.Bands {
		c := report.Completion[band]
		var count uint32
		var minMs, medianMs, avgMs, p90Ms, p99Ms, maxMs *float64
		if s, err := report.FlowStats.Band(band); err == nil {
			count = uint32(s.Count)
			minMs, medianMs, avgMs = &s.MinMs, &s.MedianMs, &s.AvgMs
			p90Ms, p99Ms, maxMs = &s.P90Ms, &s.P99Ms, &s.MaxMs
		}
		rows = append(rows, []interface{}{
			ts, report.Run.ID, report.Run.Name, report.Run.ArrivalRate, string(band), count,
			minMs, medianMs, avgMs, p90Ms, p99Ms, maxMs,
			uint32(c.Total), uint32(c.Completed), uint32(c.DNF), uint32(c.Err),
			report.UtilizationPct,
		})
	}
	return rows
}

func sampleRows(report *model.RunReport, ts time.Time) [][]interface{} {
	var rows [][]interface{}
	for _, class := range report.PriorityClasses() {
		for _, s := range report.Samples[class] {
			rows = append(rows, []interface{}{ts, report.Run.ID, report.Run.Name, class, s.SendTimeNs, s.DurationNs})
		}
	}
	return rows
}

func iterationRows(report *model.RunReport, ts time.Time) [][]interface{} {
	var rows [][]interface{}
	for _, worker := range report.Workers {
		for i, d := range worker.IterationDurationsNs {
			rows = append(rows, []interface{}{ts, report.Run.ID, report.Run.Name, uint32(worker.WorkerID), uint32(i), d})
		}
	}
	return rows
}
