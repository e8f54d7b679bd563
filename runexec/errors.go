package runexec

import (
	"fmt"
)

// LimitError reports an invalid limit combination. It is returned before
// the run has any side effects: no output file, no process.
type LimitError struct {
	msg string
}

func NewLimitError(format string, args ...interface{}) *LimitError {
	return &LimitError{msg: fmt.Sprintf(format, args...)}
}

func (e *LimitError) Error() string { return e.msg }

// SpawnError wraps a failure to start the child. The output file already
// carries the command header by the time spawning is attempted.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("could not execute command: %v", e.Err)
}

func (e *SpawnError) Cause() error { return e.Err }

// OutputError reports an output file failure. ExitStatus preserves how
// the child ended when the run got as far as running it, and is nil for
// failures before the child existed.
type OutputError struct {
	Err        error
	ExitStatus *int
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("output file failure: %v", e.Err)
}

func (e *OutputError) Cause() error { return e.Err }
