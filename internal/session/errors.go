package session

import "fmt"

// BuildError wraps a failed benchmark build with the compiler's stderr.
type BuildError struct {
	Stderr string
	Err    error
}

func (e *BuildError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("failed while building - %s", e.Stderr)
	}
	return fmt.Sprintf("failed while building - %v", e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// MeasureError wraps a failed measurement run.
type MeasureError struct {
	Stderr string
	Err    error
}

func (e *MeasureError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("failed while measuring - %s", e.Stderr)
	}
	return fmt.Sprintf("failed while measuring - %v", e.Err)
}

func (e *MeasureError) Unwrap() error { return e.Err }

// VerificationError reports a mismatch between a benchmark's output and its
// expected stdout. Iteration is 1-based and zero when the mismatch is not
// tied to a single iteration.
type VerificationError struct {
	Iteration int
	Reason    string
}

func (e *VerificationError) Error() string {
	if e.Iteration > 0 {
		return fmt.Sprintf("iteration %d didn't match expected stdout - %s", e.Iteration, e.Reason)
	}
	return fmt.Sprintf("benchmark has %s", e.Reason)
}

// CleanError wraps a failed benchmark cleanup.
type CleanError struct {
	Stderr string
	Err    error
}

func (e *CleanError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("failed to clean benchmark - %s", e.Stderr)
	}
	return fmt.Sprintf("failed to clean benchmark - %v", e.Err)
}

func (e *CleanError) Unwrap() error { return e.Err }
