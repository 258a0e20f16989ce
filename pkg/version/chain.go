// SPDX-License-Identifier: MPL-2.0

package version

import "github.com/invowk/trellis/pkg/moduleid"

// Chain dispatches every call to the first registered matcher claiming the asked
// revision dynamic, and to Exact otherwise. A Chain is immutable.
type Chain struct {
	matchers []Matcher
}

// NewChain builds a chain from matchers in registration order.
func NewChain(matchers ...Matcher) *Chain {
	return &Chain{matchers: append([]Matcher(nil), matchers...)}
}

// DefaultChain registers latest-status, sub-revision, range and semver, in this
// order, followed by any extra matchers.
func DefaultChain(statuses Statuses, extra ...Matcher) *Chain {
	ms := []Matcher{LatestStatus{Statuses: statuses}, SubRevision{}, Range{}, Semver{}}
	return NewChain(append(ms, extra...)...)
}

// Matchers returns the registered matchers.
func (c *Chain) Matchers() []Matcher {
	return append([]Matcher(nil), c.matchers...)
}

// For returns the matcher deciding for the asked revision.
func (c *Chain) For(asked moduleid.ModuleRevisionID) Matcher {
	for _, m := range c.matchers {
		if m.IsDynamic(asked) {
			return m
		}
	}
	return Exact{}
}

// Name returns "chain".
func (c *Chain) Name() string { return "chain" }

// IsDynamic reports whether any registered matcher claims the revision.
func (c *Chain) IsDynamic(asked moduleid.ModuleRevisionID) bool {
	return c.For(asked).IsDynamic(asked)
}

// Accept delegates to the deciding matcher.
func (c *Chain) Accept(asked, found moduleid.ModuleRevisionID) bool {
	return c.For(asked).Accept(asked, found)
}

// NeedModuleDescriptor delegates to the deciding matcher.
func (c *Chain) NeedModuleDescriptor(asked, found moduleid.ModuleRevisionID) bool {
	return c.For(asked).NeedModuleDescriptor(asked, found)
}

// AcceptDescriptor delegates to the deciding matcher.
func (c *Chain) AcceptDescriptor(asked, found moduleid.ModuleRevisionID, status string) bool {
	return c.For(asked).AcceptDescriptor(asked, found, status)
}

// Compare delegates to the deciding matcher.
func (c *Chain) Compare(asked, found moduleid.ModuleRevisionID, cmp Comparator) (int, bool) {
	return c.For(asked).Compare(asked, found, cmp)
}

// Validate delegates to the deciding matcher.
func (c *Chain) Validate(asked moduleid.ModuleRevisionID) error {
	return c.For(asked).Validate(asked)
}
