package engine

import (
	"errors"
	"fmt"
)

// RowQuotaError is returned when a step's output exceeds the executor's row
// quota. Joins and pivots can multiply rows, so the quota is checked after
// every step, not just at load time.
type RowQuotaError struct {
	Analysis string
	Step     int // index of the offending step
	Rows     int
	Limit    int
}

// Error implements the error interface.
func (e *RowQuotaError) Error() string {
	return fmt.Sprintf("analysis %q step %d produced %d rows, over the %d row quota",
		e.Analysis, e.Step, e.Rows, e.Limit)
}

// IsRowQuotaError reports whether err is (or wraps) a RowQuotaError.
func IsRowQuotaError(err error) bool {
	var qe *RowQuotaError
	return errors.As(err, &qe)
}

// StepError wraps a failure inside one pipeline step with its position.
type StepError struct {
	Analysis string
	Step     int
	Kind     string // step kind, e.g. "filter", "summarize"
	Err      error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("analysis %q step %d (%s): %v", e.Analysis, e.Step, e.Kind, e.Err)
}

// Unwrap exposes the underlying step failure to errors.Is/As.
func (e *StepError) Unwrap() error {
	return e.Err
}
