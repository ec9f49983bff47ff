package flowlog

import (
	"TraceSpectra/internal/model"
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const numFields = 10

// ZstdSuffix marks a zstd-compressed flow log.
const ZstdSuffix = ".zst"

// ReadFile reads a flow log from disk. Files ending in ZstdSuffix are
// decompressed on the fly.
func ReadFile(path string) ([]model.FlowRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow log %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ZstdSuffix) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder for %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	}

	records, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow log %s: %w", path, err)
	}
	return records, nil
}

// Read parses a headerless flow log. Records must be ordered by start time;
// they are returned in file order.
func Read(r io.Reader) ([]model.FlowRecord, error) {
	var records []model.FlowRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if n := len(records); n > 0 && rec.StartTimeNs < records[n-1].StartTimeNs {
			return nil, fmt.Errorf("line %d: flow %d starts at %d before flow %d at %d: %w",
				lineNo, rec.ID, rec.StartTimeNs, records[n-1].ID, records[n-1].StartTimeNs, model.ErrUnsortedFlows)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan flow log: %w", err)
	}
	return records, nil
}

func parseRecord(line string) (model.FlowRecord, error) {
	parts := strings.Split(line, ",")
	if len(parts) != numFields {
		return model.FlowRecord{}, fmt.Errorf("expected %d fields, got %d: %w", numFields, len(parts), model.ErrMalformedRecord)
	}

	var ints [8]int64
	for i := range ints {
		v, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
		if err != nil {
			return model.FlowRecord{}, fmt.Errorf("field %d %q: %w", i+1, parts[i], model.ErrMalformedRecord)
		}
		ints[i] = v
	}

	status, err := model.ParseFinishedStatus(strings.TrimSpace(parts[8]))
	if err != nil {
		return model.FlowRecord{}, fmt.Errorf("%v: %w", err, model.ErrMalformedRecord)
	}

	return model.FlowRecord{
		ID:          ints[0],
		Source:      ints[1],
		Target:      ints[2],
		SizeBytes:   ints[3],
		StartTimeNs: ints[4],
		EndTimeNs:   ints[5],
		DurationNs:  ints[6],
		SentBytes:   ints[7],
		Status:      status,
		Metadata:    strings.TrimSpace(parts[9]),
	}, nil
}
