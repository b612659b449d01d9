// Package errs defines the error taxonomy shared by the problem model,
// model builder, solve driver, and storage layer. Each kind is a distinct
// type so callers can branch on it with errors.As rather than string
// matching, and each wraps an optional cause with %w.
package errs

import "fmt"

// MalformedProblemError reports a structural defect detected before model
// building begins: a precedence cycle, an empty mode list, a position
// collision, or a dangling reference. Fatal for the current solve.
type MalformedProblemError struct {
	Reason string
	// Refs carries the offending identifiers (task ids, resource ids, ...)
	// so a caller can render a precise diagnostic.
	Refs []string
	Err  error
}

func (e *MalformedProblemError) Error() string {
	if len(e.Refs) == 0 {
		return fmt.Sprintf("malformed problem: %s", e.Reason)
	}
	return fmt.Sprintf("malformed problem: %s (refs: %v)", e.Reason, e.Refs)
}

func (e *MalformedProblemError) Unwrap() error { return e.Err }

// NewMalformedProblem builds a MalformedProblemError with the given reason
// and offending identifiers.
func NewMalformedProblem(reason string, refs ...string) *MalformedProblemError {
	return &MalformedProblemError{Reason: reason, Refs: refs}
}

// InfeasibleError reports that the constraint set has no solution within
// the declared horizon. Hints names constraint families that are likely
// restrictive, for iterative bisection by the caller.
type InfeasibleError struct {
	Hints []string
}

func (e *InfeasibleError) Error() string {
	if len(e.Hints) == 0 {
		return "infeasible: no solution within horizon"
	}
	return fmt.Sprintf("infeasible: no solution within horizon (hints: %v)", e.Hints)
}

// TimeLimitError reports that a solve exceeded max_time_seconds. HasFeasible
// indicates whether a best-known feasible solution accompanies the error.
type TimeLimitError struct {
	HasFeasible bool
}

func (e *TimeLimitError) Error() string {
	if e.HasFeasible {
		return "time limit reached: returning best known feasible solution"
	}
	return "time limit reached: no feasible solution found"
}

// CanceledError reports cooperative cancellation. It carries the same
// feasible/infeasible distinction as TimeLimitError but a distinct status
// tag so callers can tell a deliberate cancellation from a timeout.
type CanceledError struct {
	HasFeasible bool
}

func (e *CanceledError) Error() string {
	if e.HasFeasible {
		return "solve canceled: returning best known feasible solution"
	}
	return "solve canceled: no feasible solution found"
}

// StorageFailureError reports that the loader could not assemble a
// consistent problem, or the persister could not commit atomically.
type StorageFailureError struct {
	Op  string
	Err error
}

func (e *StorageFailureError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageFailureError) Unwrap() error { return e.Err }

// NewStorageFailure wraps a lower-level storage error with the operation
// that failed.
func NewStorageFailure(op string, err error) *StorageFailureError {
	return &StorageFailureError{Op: op, Err: err}
}

// InternalError reports a programmer error or invariant violation during
// model building. Non-recoverable within the current solve.
type InternalError struct {
	Reason string
	Err    error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("internal error: %s", e.Reason)
}

func (e *InternalError) Unwrap() error { return e.Err }

// NewInternalError wraps a lower-level error as an InternalError.
func NewInternalError(reason string, err error) *InternalError {
	return &InternalError{Reason: reason, Err: err}
}
