// Package phantom mines the top-K highest expected-utility itemsets
// from an uncertain transactional database with mixed (positive and
// negative) item utilities. See engine.Coordinator.Mine for the public
// library surface; cmd/phantom wraps it as a command-line tool.
package phantom

import (
	"errors"
	"fmt"

	"github.com/DRuanli/PHANTOM/engine"
)

var (
	// ErrMalformedInput is returned by Mine when k is not positive.
	// Parse failures from ioformat.ReadDatabase are reported as
	// *ioformat.ErrMalformedLine, which this sentinel does not match
	// under errors.Is. Aliases engine.ErrMalformedInput so both
	// packages' callers can test against a single sentinel via errors.Is.
	ErrMalformedInput = engine.ErrMalformedInput

	// ErrWorkerInterrupted indicates a worker exited before its
	// partition converged naturally. The result set is still valid but
	// may be incomplete.
	ErrWorkerInterrupted = errors.New("worker interrupted")

	// ErrNumericAnomaly is returned by Mine when a transaction fails
	// core.Transaction.Validate: a NaN or Inf utility or probability,
	// and also a probability outside [0,1] or an empty identifier. The
	// run is rejected before any worker starts. Aliases
	// engine.ErrNumericAnomaly.
	ErrNumericAnomaly = engine.ErrNumericAnomaly
)

// translateError normalizes errors surfaced by the engine package into
// the root package's sentinel vocabulary, so callers can use errors.Is
// against a single stable set of errors regardless of which internal
// component raised them.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, engine.ErrCoordinatorClosed) {
		return fmt.Errorf("%w: %w", ErrWorkerInterrupted, err)
	}

	return err
}
