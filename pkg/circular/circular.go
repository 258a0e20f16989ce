// SPDX-License-Identifier: MPL-2.0

// Package circular decides what happens when a resolution meets a dependency
// cycle.
package circular

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/invowk/trellis/pkg/moduleid"
)

const (
	// Warn logs the cycle and drops the closing edge. It is the default.
	Warn Strategy = "warn"
	// Error aborts the resolution.
	Error Strategy = "error"
	// Ignore silently drops the closing edge.
	Ignore Strategy = "ignore"
)

var (
	// ErrCircularDependency is the sentinel error wrapped by CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")

	// ErrUnknownStrategy is returned by Parse for unknown names.
	ErrUnknownStrategy = errors.New("unknown circular dependency strategy")
)

type (
	// Strategy is the name of a cycle handling policy.
	Strategy string

	// CircularDependencyError lists the modules forming a cycle, the first one
	// repeated at the end.
	CircularDependencyError struct {
		Cycle []moduleid.ModuleRevisionID
	}
)

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + FormatCycle(e.Cycle)
}

// Unwrap returns ErrCircularDependency for errors.Is() compatibility.
func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// Parse reads a strategy name. An empty name is Warn.
func Parse(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return Warn, nil
	case Warn, Error, Ignore:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q (expected warn, error or ignore)", ErrUnknownStrategy, name)
	}
}

// String returns the strategy name.
func (s Strategy) String() string { return string(s) }

// Handle applies the strategy to a detected cycle. It returns a
// CircularDependencyError under Error and nil otherwise.
func (s Strategy) Handle(logger *log.Logger, cycle []moduleid.ModuleRevisionID) error {
	switch s {
	case Error:
		return &CircularDependencyError{Cycle: cycle}
	case Ignore:
		if logger != nil {
			logger.Debug("circular dependency ignored", "cycle", FormatCycle(cycle))
		}
		return nil
	default:
		if logger != nil {
			logger.Warn("circular dependency", "cycle", FormatCycle(cycle))
		}
		return nil
	}
}

// FormatCycle renders "a#x;1 -> b#y;2 -> a#x;1".
func FormatCycle(cycle []moduleid.ModuleRevisionID) string {
	parts := make([]string, len(cycle))
	for i, id := range cycle {
		parts[i] = id.String()
	}
	return strings.Join(parts, " -> ")
}
