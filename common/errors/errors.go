// Package errors carries exit-code-tagged errors from the run engine out to
// process boundaries such as the runexec binary.
package errors

type ExitCode int

const (
	// Codes for harness failures, kept distinct from anything a measured
	// command would plausibly exit with.
	InvalidRequestExitCode ExitCode = 70
	OutputFailureExitCode  ExitCode = 100
	CouldNotExecExitCode   ExitCode = 110
)

type ExitCodeError struct {
	code ExitCode
	error
}

func NewError(err error, exitCode ExitCode) *ExitCodeError {
	if err == nil {
		return nil
	}
	return &ExitCodeError{exitCode, err}
}

func (e *ExitCodeError) GetExitCode() ExitCode {
	if e == nil {
		return 0
	}
	return e.code
}
