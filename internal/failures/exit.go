package failures

import (
	"errors"
	"fmt"
	"strings"
)

const (
	completedWithFailuresTemplateConstant = "completed with %d failure(s):\n%s"
	failureLineSeparatorConstant          = "\n"
)

// Process exit codes reported by the command-line surface.
const (
	ExitCodeSuccess               = 0
	ExitCodeCompletedWithFailures = 1
	ExitCodeAborted               = 2
)

// ExitError couples an error with the process exit code it should produce.
type ExitError struct {
	Code int
	Err  error
}

// Error describes the underlying failure.
func (exitError ExitError) Error() string {
	if exitError.Err == nil {
		return ""
	}
	return exitError.Err.Error()
}

// Unwrap exposes the wrapped error.
func (exitError ExitError) Unwrap() error {
	return exitError.Err
}

// CompletedWithFailuresError reports a run that finished but left per-node failures behind.
type CompletedWithFailuresError struct {
	Failures []Failure
}

// Error lists every failure on its own line.
func (completedError CompletedWithFailuresError) Error() string {
	lines := make([]string, 0, len(completedError.Failures))
	for _, failure := range completedError.Failures {
		lines = append(lines, failure.String())
	}
	return fmt.Sprintf(completedWithFailuresTemplateConstant, len(completedError.Failures), strings.Join(lines, failureLineSeparatorConstant))
}

// FromFailures converts a failure list into an exit error, or nil when the list is empty.
func FromFailures(failures []Failure) error {
	if len(failures) == 0 {
		return nil
	}
	return ExitError{Code: ExitCodeCompletedWithFailures, Err: CompletedWithFailuresError{Failures: failures}}
}

// Aborted marks err as preventing the invocation from starting.
func Aborted(err error) error {
	if err == nil {
		return nil
	}
	var exitError ExitError
	if errors.As(err, &exitError) {
		return err
	}
	return ExitError{Code: ExitCodeAborted, Err: err}
}

// ExitCode maps err onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var exitError ExitError
	if errors.As(err, &exitError) {
		return exitError.Code
	}
	return ExitCodeAborted
}
