// SPDX-License-Identifier: MPL-2.0

package conflict

import "github.com/invowk/trellis/pkg/moduleid"

type (
	// Rule assigns a manager to the modules selected by a matcher.
	Rule struct {
		Matcher moduleid.Matcher
		Manager Manager
	}

	// Table selects a manager per module: the first matching rule in
	// registration order, otherwise the default.
	Table struct {
		rules []Rule
		def   Manager
	}
)

// NewTable creates a table. A nil default falls back to NoConflict.
func NewTable(def Manager, rules ...Rule) *Table {
	if def == nil {
		def = NoConflict{}
	}
	return &Table{rules: append([]Rule(nil), rules...), def: def}
}

// For returns the manager for a module.
func (t *Table) For(id moduleid.ModuleID) Manager {
	if m, ok := t.Match(id); ok {
		return m
	}
	return t.def
}

// Match returns the manager of the first matching rule, if any.
func (t *Table) Match(id moduleid.ModuleID) (Manager, bool) {
	for _, r := range t.rules {
		if r.Matcher.Matches(id) {
			return r.Manager, true
		}
	}
	return nil, false
}

// Default returns the fallback manager.
func (t *Table) Default() Manager { return t.def }

// Rules returns the registered rules.
func (t *Table) Rules() []Rule { return append([]Rule(nil), t.rules...) }
