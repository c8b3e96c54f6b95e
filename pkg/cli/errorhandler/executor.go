// Package errorhandler runs the converge command tree and turns its failures
// into a single readable error plus a process exit code.
package errorhandler

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/devantler-tech/converge/pkg/wait"
	"github.com/spf13/cobra"
)

// Exit codes returned by ExitCode.
const (
	ExitOK      = 0
	ExitFailure = 1
	// ExitTimeout marks a condition that did not hold before its deadline.
	ExitTimeout = 2
)

// Executor runs a command while buffering cobra's error stream so the final
// message can be normalized once.
type Executor struct{}

// NewExecutor constructs an Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs cmd with ctx. It returns nil on success or a *CommandError
// carrying the normalized stderr text and the original cause.
func (e *Executor) Execute(ctx context.Context, cmd *cobra.Command) error {
	if cmd == nil {
		return nil
	}

	var errBuf bytes.Buffer

	originalErr := cmd.ErrOrStderr()

	cmd.SetErr(&errBuf)
	defer cmd.SetErr(originalErr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	return &CommandError{message: Normalize(errBuf.String()), cause: err}
}

// CommandError is a failed command run.
type CommandError struct {
	message string
	cause   error
}

func (e *CommandError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return e.message
	case e.message == "":
		return e.cause.Error()
	case strings.Contains(e.message, e.cause.Error()):
		return e.message
	default:
		return e.message + ": " + e.cause.Error()
	}
}

// Unwrap returns the cause.
func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// Normalize trims raw stderr text and drops cobra's "Error: " prefix from the
// first line. Usage hints on later lines are kept.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	first, rest, found := strings.Cut(trimmed, "\n")
	first = strings.TrimPrefix(strings.TrimSpace(first), "Error: ")

	if !found {
		return first
	}

	return first + "\n" + rest
}

// ExitCode maps an execution error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, wait.ErrTimeout):
		return ExitTimeout
	default:
		return ExitFailure
	}
}
