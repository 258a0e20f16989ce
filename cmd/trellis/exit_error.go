// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/trellis/internal/issue"
)

const (
	// ExitProblems means every resolution ran but at least one report
	// carries errors.
	ExitProblems = 1
	// ExitAborted means a resolution could not run: bad input, bad
	// configuration, or an engine abort such as a strict conflict.
	ExitAborted = 2
	// ExitCancelled is the conventional exit status after SIGINT.
	ExitCancelled = 130
)

// ExitError carries the exit status of a failed command without calling
// os.Exit from RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCodeFor picks the exit status of an error that stopped a command.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, errReportHasErrors):
		return ExitProblems
	case errors.Is(err, context.Canceled), classifyError(err) == issue.ResolutionCancelledId:
		return ExitCancelled
	default:
		return ExitAborted
	}
}
