package model

// Writer defines a generic interface for persisting the analysis of one run.
type Writer interface {
	// Write takes a run report and persists it.
	Write(report *RunReport) error

	// Name identifies the writer in logs.
	Name() string

	// Close releases connections held by the writer.
	Close() error
}
