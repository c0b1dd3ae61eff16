package engine

import "errors"

// ErrCoordinatorClosed is returned by WorkerPool.Submit once the pool
// has been closed.
var ErrCoordinatorClosed = errors.New("worker pool closed")

// ErrMalformedInput is returned when Mine is called with a non-positive
// k. The root package re-exports this as phantom.ErrMalformedInput so
// callers of either layer can test against the same sentinel.
var ErrMalformedInput = errors.New("malformed input")

// ErrNumericAnomaly is returned when a transaction in the database
// fails core.Transaction.Validate (NaN/Inf probability or utility, a
// probability outside [0,1], or an empty identifier). Re-exported as
// phantom.ErrNumericAnomaly.
var ErrNumericAnomaly = errors.New("numerical anomaly (NaN/Inf) in input")
