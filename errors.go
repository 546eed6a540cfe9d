package peakfit

import "fmt"

// ValidationError reports an input that fails domain validation before any
// calculation runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientDataError reports that a metric could not be computed because
// too few usable samples were available.
type InsufficientDataError struct {
	Metric string
	Need   int
	Got    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d samples, got %d", e.Metric, e.Need, e.Got)
}

// CalculationError wraps a failure that happened inside a metric calculation.
type CalculationError struct {
	Op  string
	Err error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// DecodeSkip marks a file whose FIT decode failed. It is non-fatal: callers
// log it and move on to the next file.
type DecodeSkip struct {
	Path string
	Err  error
}

func (e *DecodeSkip) Error() string {
	return fmt.Sprintf("skipping %s: %v", e.Path, e.Err)
}

func (e *DecodeSkip) Unwrap() error { return e.Err }

// StorageError wraps a storage backend failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
