package query

import "errors"

// ErrRunNotFound is returned when no analysis of a run is stored.
var ErrRunNotFound = errors.New("run not found")
