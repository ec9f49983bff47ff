package eventlog

import (
	"TraceSpectra/internal/model"
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

const numFields = 4

// Log is a parsed worker progress log, grouped by layer index.
type Log struct {
	// Events maps a layer index to its events in arrival order.
	Events map[int][]model.Event
	// MaxTimeNs is the largest timestamp seen in the log.
	MaxTimeNs int64
	// NumLayers is the highest layer index plus one. The layer NumLayers-1 is
	// the one whose backward-pass starts mark iteration boundaries.
	NumLayers int
}

// Layers returns the layer indices present in the log in ascending order.
func (l *Log) Layers() []int {
	layers := make([]int, 0, len(l.Events))
	for layer := range l.Events {
		layers = append(layers, layer)
	}
	sort.Ints(layers)
	return layers
}

// DistinctLayers returns how many different layers emitted at least one event.
func (l *Log) DistinctLayers() int {
	return len(l.Events)
}

// LastLayer returns the index of the designated last layer, or -1 for an empty log.
func (l *Log) LastLayer() int {
	return l.NumLayers - 1
}

// ReadFile opens a progress log on disk and parses it.
func ReadFile(path string) (*Log, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log '%s': %w", path, err)
	}
	defer file.Close()

	l, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read event log '%s': %w", path, err)
	}
	return l, nil
}

// Read parses a progress log: a header line followed by
// iteration,layer,event_name,time_ns rows. A blank line ends the stream.
func Read(r io.Reader) (*Log, error) {
	l := &Log{Events: make(map[int][]model.Event)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Header: Iteration_idx,Layer_idx,Event,Time
	if !scanner.Scan() {
		return l, scanner.Err()
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}

		e, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		events := l.Events[e.Layer]
		if n := len(events); n > 0 && e.TimeNs < events[n-1].TimeNs {
			return nil, fmt.Errorf("line %d: layer %d event %s at %d precedes %d: %w",
				lineNo, e.Layer, e.Name, e.TimeNs, events[n-1].TimeNs, model.ErrOutOfOrderEvent)
		}
		l.Events[e.Layer] = append(events, e)

		if e.TimeNs > l.MaxTimeNs {
			l.MaxTimeNs = e.TimeNs
		}
		if e.Layer+1 > l.NumLayers {
			l.NumLayers = e.Layer + 1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan event log: %w", err)
	}

	return l, nil
}

func parseLine(line string) (model.Event, error) {
	parts := strings.Split(line, ",")
	if len(parts) != numFields {
		return model.Event{}, fmt.Errorf("expected %d fields, got %d: %w", numFields, len(parts), model.ErrMalformedRecord)
	}

	iteration, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return model.Event{}, fmt.Errorf("invalid iteration %q: %w", parts[0], model.ErrMalformedRecord)
	}
	layer, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || layer < 0 {
		return model.Event{}, fmt.Errorf("invalid layer %q: %w", parts[1], model.ErrMalformedRecord)
	}
	timeNs, err := strconv.ParseInt(strings.TrimSpace(parts[3]), 10, 64)
	if err != nil || timeNs < 0 {
		return model.Event{}, fmt.Errorf("invalid time %q: %w", parts[3], model.ErrMalformedRecord)
	}

	name := strings.TrimSpace(parts[2])
	kind, priority, err := Classify(name)
	if err != nil {
		return model.Event{}, err
	}

	return model.Event{
		Iteration: iteration,
		Layer:     layer,
		Name:      name,
		Kind:      kind,
		Priority:  priority,
		TimeNs:    timeNs,
	}, nil
}

// Classify maps an event name to its kind. For receive events it also returns
// the priority class, the suffix after the last underscore.
func Classify(name string) (model.EventKind, string, error) {
	switch name {
	case "BP_Start":
		return model.BackwardStart, "", nil
	case "BP_Done":
		return model.BackwardDone, "", nil
	case "FP_Start":
		return model.ForwardStart, "", nil
	case "FP_Done":
		return model.ForwardDone, "", nil
	}

	switch {
	case strings.HasPrefix(name, "Start"):
		return model.SendStart, "", nil
	case strings.HasPrefix(name, "Recei"):
		idx := strings.LastIndex(name, "_")
		if idx < 0 || idx == len(name)-1 {
			return 0, "", fmt.Errorf("receive event %q has no priority suffix: %w", name, model.ErrUnknownEventKind)
		}
		return model.ReceiveDone, name[idx+1:], nil
	}

	return 0, "", fmt.Errorf("event %q: %w", name, model.ErrUnknownEventKind)
}
