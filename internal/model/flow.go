package model

import "fmt"

// FinishedStatus is the completion state of a background flow.
type FinishedStatus uint8

const (
	StatusYes FinishedStatus = iota + 1
	StatusDNF
	StatusErr
)

func (s FinishedStatus) String() string {
	switch s {
	case StatusYes:
		return "YES"
	case StatusDNF:
		return "DNF"
	case StatusErr:
		return "ERR"
	default:
		return fmt.Sprintf("FinishedStatus(%d)", uint8(s))
	}
}

// ParseFinishedStatus maps the status column of a flow log to a FinishedStatus.
// Besides YES/DNF/ERR it accepts the simulator's own NO_* spellings.
func ParseFinishedStatus(s string) (FinishedStatus, error) {
	switch s {
	case "YES":
		return StatusYes, nil
	case "DNF", "NO_ONGOING":
		return StatusDNF, nil
	case "ERR", "NO_CONN_FAIL", "NO_BAD_CLOSE", "NO_ERR_CLOSE":
		return StatusErr, nil
	default:
		return 0, fmt.Errorf("unknown finished status %q", s)
	}
}

// FlowRecord is one row of the flow completion log.
type FlowRecord struct {
	ID          int64
	Source      int64
	Target      int64
	SizeBytes   int64
	StartTimeNs int64
	EndTimeNs   int64
	DurationNs  int64
	SentBytes   int64
	Status      FinishedStatus
	Metadata    string
}

// SizeKB returns the flow size normalized to kilobytes (1 KB = 1000 bytes).
func (f FlowRecord) SizeKB() float64 {
	return float64(f.SizeBytes) / 1000
}

// Completed reports whether the flow finished.
func (f FlowRecord) Completed() bool {
	return f.Status == StatusYes
}
