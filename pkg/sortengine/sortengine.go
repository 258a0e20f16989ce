// SPDX-License-Identifier: MPL-2.0

// Package sortengine orders modules so that every module comes after the
// modules it depends on. Orders are stable: modules with no constraint between
// them keep their input order. Cycles never make sorting fail unless the
// circular strategy says so; the closing edge is dropped instead.
package sortengine

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/invowk/trellis/internal/dag"
	"github.com/invowk/trellis/pkg/circular"
	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/version"
)

const (
	// NonMatchingWarn logs dependencies whose revision does not match the
	// sorted descriptor and ignores them. It is the default.
	NonMatchingWarn NonMatchingStrategy = "warn"
	// NonMatchingError fails the sort.
	NonMatchingError NonMatchingStrategy = "error"
	// NonMatchingIgnore ignores them silently.
	NonMatchingIgnore NonMatchingStrategy = "ignore"
)

var (
	// ErrNonMatchingVersion is the sentinel error wrapped by NonMatchingVersionError.
	ErrNonMatchingVersion = errors.New("non matching version")

	// ErrUnknownNonMatchingStrategy is returned by ParseNonMatching.
	ErrUnknownNonMatchingStrategy = errors.New("unknown non matching version strategy")
)

type (
	// NonMatchingStrategy decides what happens when a descriptor depends on a
	// module of the sorted set with a revision that does not match it.
	NonMatchingStrategy string

	// Options configures SortModuleDescriptors. Zero values select warn for
	// both strategies, the default matcher chain and a discarding logger.
	Options struct {
		NonMatching NonMatchingStrategy
		Circular    circular.Strategy
		Matcher     version.Matcher
		Logger      *log.Logger
	}

	// NonMatchingVersionError reports a dependency whose revision does not match
	// the descriptor present in the sorted set.
	NonMatchingVersionError struct {
		Dependent moduleid.ModuleRevisionID
		Asked     moduleid.ModuleRevisionID
		Found     moduleid.ModuleRevisionID
	}
)

// Error implements the error interface.
func (e *NonMatchingVersionError) Error() string {
	return fmt.Sprintf("%s depends on %s but the sorted set has %s", e.Dependent, e.Asked, e.Found)
}

// Unwrap returns ErrNonMatchingVersion for errors.Is() compatibility.
func (e *NonMatchingVersionError) Unwrap() error { return ErrNonMatchingVersion }

// ParseNonMatching parses a strategy name. The empty name means warn.
func ParseNonMatching(name string) (NonMatchingStrategy, error) {
	switch s := NonMatchingStrategy(name); s {
	case "":
		return NonMatchingWarn, nil
	case NonMatchingWarn, NonMatchingError, NonMatchingIgnore:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNonMatchingStrategy, name)
	}
}

// Sort orders items so that dependencies come first. key identifies an item;
// deps returns the keys an item depends on, keys absent from items being
// ignored. Items sharing a key keep the first one. onCycle receives the keys of
// every dropped cycle and may abort the sort by returning an error.
func Sort[T any](items []T, key func(T) string, deps func(T) []string, onCycle func(cycle []string) error) ([]T, error) {
	g := dag.New()
	byKey := make(map[string]T, len(items))
	for _, it := range items {
		k := key(it)
		if _, dup := byKey[k]; dup {
			continue
		}
		byKey[k] = it
		g.AddNode(k)
	}
	for _, k := range g.Nodes() {
		for _, d := range deps(byKey[k]) {
			if _, ok := byKey[d]; ok {
				g.AddEdge(d, k)
			}
		}
	}

	var cycleErr error
	order := g.DepthFirstOrder(func(cycle []string) {
		if cycleErr != nil || onCycle == nil {
			return
		}
		cycleErr = onCycle(cycle)
	})
	if cycleErr != nil {
		return nil, cycleErr
	}
	out := make([]T, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out, nil
}

// SortModuleDescriptors orders descriptors by their declared dependencies. A
// dependency constrains the order only when its revision matches the
// descriptor of the same module found in mds.
func SortModuleDescriptors(mds []*descriptor.ModuleDescriptor, opts Options) ([]*descriptor.ModuleDescriptor, error) {
	opts = opts.withDefaults()
	byModule := make(map[moduleid.ModuleID]*descriptor.ModuleDescriptor, len(mds))
	byKey := make(map[string]*descriptor.ModuleDescriptor, len(mds))
	for _, md := range mds {
		if _, dup := byModule[md.ID.Module]; !dup {
			byModule[md.ID.Module] = md
			byKey[md.ID.Module.String()] = md
		}
	}

	var depErr error
	deps := func(md *descriptor.ModuleDescriptor) []string {
		var out []string
		for _, dd := range md.Dependencies {
			target, ok := byModule[dd.ModuleID()]
			if !ok {
				continue
			}
			if matches(opts.Matcher, dd.ID, target.ID) {
				out = append(out, target.ID.Module.String())
				continue
			}
			err := &NonMatchingVersionError{Dependent: md.ID, Asked: dd.ID, Found: target.ID}
			switch opts.NonMatching {
			case NonMatchingError:
				if depErr == nil {
					depErr = err
				}
			case NonMatchingIgnore:
				opts.Logger.Debug("ignoring non matching dependency", "error", err)
			default:
				opts.Logger.Warn("ignoring non matching dependency", "error", err)
			}
		}
		return out
	}
	onCycle := func(cycle []string) error {
		ids := make([]moduleid.ModuleRevisionID, 0, len(cycle))
		for _, k := range cycle {
			ids = append(ids, byKey[k].ID)
		}
		return opts.Circular.Handle(opts.Logger, ids)
	}

	sorted, err := Sort(mds, func(md *descriptor.ModuleDescriptor) string { return md.ID.Module.String() }, deps, onCycle)
	if depErr != nil {
		return nil, depErr
	}
	if err != nil {
		return nil, err
	}
	return sorted, nil
}

func matches(m version.Matcher, asked, found moduleid.ModuleRevisionID) bool {
	if m.IsDynamic(asked) {
		return m.Accept(asked, found)
	}
	return asked.Revision == found.Revision
}

func (o Options) withDefaults() Options {
	if o.NonMatching == "" {
		o.NonMatching = NonMatchingWarn
	}
	if o.Circular == "" {
		o.Circular = circular.Warn
	}
	if o.Matcher == nil {
		o.Matcher = version.DefaultChain(version.DefaultStatuses())
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}
