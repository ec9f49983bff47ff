package model

import "fmt"

// EventKind classifies a worker progress event. It is decided once when the
// event log is parsed so the timeline state machine switches on a closed set.
type EventKind uint8

const (
	BackwardStart EventKind = iota + 1
	BackwardDone
	ForwardStart
	ForwardDone
	SendStart
	ReceiveDone
)

func (k EventKind) String() string {
	switch k {
	case BackwardStart:
		return "BackwardStart"
	case BackwardDone:
		return "BackwardDone"
	case ForwardStart:
		return "ForwardStart"
	case ForwardDone:
		return "ForwardDone"
	case SendStart:
		return "SendStart"
	case ReceiveDone:
		return "ReceiveDone"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a single row of a worker progress log.
type Event struct {
	Iteration int
	Layer     int
	Name      string
	Kind      EventKind
	// Priority is only set for ReceiveDone events: the suffix after the last '_'.
	Priority string
	TimeNs   int64
}

// Interval is a compute phase or a network transfer at one layer.
type Interval struct {
	StartNs    int64
	DurationNs int64
}

// EndNs returns the timestamp at which the interval closed.
func (i Interval) EndNs() int64 {
	return i.StartNs + i.DurationNs
}

// PrioritySample is the latency of one partition transfer tagged with the
// priority class of the socket that carried it.
type PrioritySample struct {
	Priority   string
	DurationNs int64
	SendTimeNs int64
}
