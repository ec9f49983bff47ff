package model

import "errors"

var (
	// ErrMalformedRecord is returned when a log line has the wrong field count or type.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrOutOfOrderEvent is returned when a Done/Receive event precedes its Start,
	// or when a layer's events are not in time order.
	ErrOutOfOrderEvent = errors.New("out of order event")
	// ErrUnknownEventKind is returned for event names outside the known vocabulary.
	ErrUnknownEventKind = errors.New("unknown event kind")
	// ErrEmptyBand is returned when statistics are requested over zero completed flows.
	ErrEmptyBand = errors.New("empty band")
	// ErrNoIterationsObserved is returned when an average iteration time is requested
	// but no iteration boundary was seen.
	ErrNoIterationsObserved = errors.New("no iterations observed")
	// ErrDivisionByZero is returned when a comparison baseline is zero.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrUnsortedFlows is returned when flow records are not ordered by start time.
	ErrUnsortedFlows = errors.New("flow records not sorted by start time")
)
