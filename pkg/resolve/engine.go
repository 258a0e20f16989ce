// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/trellis/internal/observability"
	"github.com/invowk/trellis/pkg/cache"
	"github.com/invowk/trellis/pkg/conflict"
	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/settings"
)

// callerRevision is the revision of the synthetic module built by ResolveModule.
const callerRevision = "working"

type (
	// Engine resolves modules with fixed settings.
	Engine struct {
		settings *settings.Settings
		metrics  *observability.Metrics
		logger   *log.Logger
		now      func() time.Time
	}

	// EngineOption configures an Engine.
	EngineOption func(*Engine)

	// run is the state of one resolution.
	run struct {
		e         *Engine
		opts      Options
		root      *descriptor.ModuleDescriptor
		rootConfs []string
		g         *graph

		// lastConflict remembers the candidate set each module was last
		// resolved with.
		lastConflict map[moduleid.ModuleID]string
		// cycles remembers reported cycle edges.
		cycles map[string]bool
	}
)

// WithMetrics records resolution metrics.
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger overrides the settings logger.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the time source used for report timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine.
func NewEngine(s *settings.Settings, opts ...EngineOption) *Engine {
	e := &Engine{settings: s, logger: s.Logger(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the engine settings.
func (e *Engine) Settings() *settings.Settings { return e.settings }

// ResolveModule resolves a single module revision by wrapping it in a
// synthetic caller module whose configurations map to opts.Confs.
func (e *Engine) ResolveModule(ctx context.Context, id moduleid.ModuleRevisionID, opts Options) (*Report, error) {
	callerID := moduleid.NewRevisionID(id.Organisation(), id.Name()+"-caller", callerRevision)
	md := descriptor.New(callerID)
	md.Status = e.settings.Statuses().Lowest()

	asked := opts.confs()
	rootConfs := []string{descriptor.DefaultConfName}
	if !containsAll(asked) {
		rootConfs = asked
	}
	for _, c := range rootConfs {
		md.Configurations = append(md.Configurations, descriptor.Configuration{Name: c, Visibility: descriptor.Public})
	}
	md.Dependencies = []*descriptor.DependencyDescriptor{
		descriptor.NewDependency(id, "*->"+strings.Join(asked, ",")),
	}
	opts.Confs = rootConfs
	return e.Resolve(ctx, md, opts)
}

// Resolve resolves the dependencies of md. Recoverable problems are reported
// in the returned Report; a non-nil error is a *ResolutionError and comes with
// no report.
func (e *Engine) Resolve(ctx context.Context, md *descriptor.ModuleDescriptor, opts Options) (rep *Report, err error) {
	start := e.now()
	ctx, span := observability.StartSpan(ctx, "trellis.resolve", "module", md.ID.String())
	defer func() {
		observability.EndSpan(span, err)
		outcome := observability.OutcomeSuccess
		switch {
		case errors.Is(err, ErrCancelled):
			outcome = observability.OutcomeCancelled
		case err != nil:
			outcome = observability.OutcomeFailed
		case rep.HasError():
			outcome = observability.OutcomeError
		}
		e.metrics.ObserveResolution(outcome, e.now().Sub(start))
	}()

	r, err := e.newRun(md, opts)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("resolving", "module", md.ID.String(), "confs", strings.Join(r.rootConfs, ","))
	if err := r.walk(ctx); err != nil {
		return nil, r.fatal(err)
	}
	rep, err = r.report(ctx)
	if err != nil {
		return nil, r.fatal(err)
	}
	rep.Duration = e.now().Sub(start)
	if opts.OutputReport {
		e.store(rep)
	}
	e.logger.Info("resolved", "module", md.ID.String(), "dependencies", len(rep.Dependencies), "evicted", len(rep.Evicted), "problems", len(rep.Problems))
	return rep, nil
}

// UpToDate reports whether the cache holds a resolution record of md made
// with equivalent options. It is always false without a cache or with
// opts.Refresh.
func (e *Engine) UpToDate(md *descriptor.ModuleDescriptor, opts Options) bool {
	c := e.settings.Cache()
	if c == nil || opts.Refresh {
		return false
	}
	confs, err := rootConfigurations(md, opts.confs())
	if err != nil {
		return false
	}
	fp, err := cache.Fingerprint(md, opts.fingerprintParts(confs)...)
	if err != nil {
		return false
	}
	return c.IsUpToDate(md, confs, fp, e.settings.Matchers())
}

func (e *Engine) store(rep *Report) {
	c := e.settings.Cache()
	if c == nil {
		e.logger.Warn("no cache configured, resolution record not stored", "module", rep.Root.ID.String())
		return
	}
	if err := c.SaveReport(rep.Record(e.now())); err != nil {
		e.logger.Warn("failed to store resolution record", "module", rep.Root.ID.String(), "error", err)
	}
}

func (e *Engine) newRun(md *descriptor.ModuleDescriptor, opts Options) (*run, error) {
	rootConfs, err := rootConfigurations(md, opts.confs())
	if err != nil {
		return nil, &ResolutionError{Root: md.ID, Cause: err}
	}
	for _, c := range md.Conflicts {
		if len(c.Revisions) == 0 {
			if _, ok := e.settings.ConflictManager(c.Manager); !ok {
				return nil, &ResolutionError{Root: md.ID, Cause: fmt.Errorf("%w: %q", ErrUnknownConflictManager, c.Manager)}
			}
		}
	}
	r := &run{
		e:            e,
		opts:         opts,
		root:         md,
		rootConfs:    rootConfs,
		g:            newGraph(),
		lastConflict: make(map[moduleid.ModuleID]string),
		cycles:       make(map[string]bool),
	}
	root := r.g.newNode(md.ID, 0)
	root.root = true
	root.loaded = true
	root.md = md
	root.publication = md.PublicationDate
	r.g.root = root.h
	for _, rc := range rootConfs {
		root.confs(root.raw, rc).add(rc)
		root.confs(root.required, rc).add(md.ExpandConfigurations(rc)...)
	}
	return r, nil
}

// walk loads and expands the graph level by level.
func (r *run) walk(ctx context.Context) error {
	for {
		if err := r.stabilize(ctx); err != nil {
			return err
		}
		level := r.pending()
		if len(level) == 0 {
			return nil
		}
		for _, n := range level {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !n.reachable(r.g.live()) {
				continue
			}
			if err := r.load(ctx, n); err != nil {
				return err
			}
			if n.md != nil && n.mergedTo == noHandle {
				if err := r.resolveConflicts(n.ModuleID()); err != nil {
					return err
				}
			}
		}
		if err := r.settle(); err != nil {
			return err
		}
	}
}

// stabilize expands live nodes and settles conflicts until neither changes
// the graph. Expansion can reattach a loaded node whose module then needs a
// new decision, and a decision can restore a node with dependencies left to
// walk.
func (r *run) stabilize(ctx context.Context) error {
	for round := 0; ; round++ {
		expanded, err := r.expandAll(ctx)
		if err != nil {
			return err
		}
		before := r.evictionState()
		if err := r.settle(); err != nil {
			return err
		}
		if !expanded && r.evictionState() == before {
			return nil
		}
		if !expanded && round > len(r.g.nodes) {
			r.e.logger.Warn("conflict resolution did not converge", "module", r.root.ID.String())
			return nil
		}
	}
}

// pending returns the reachable nodes not loaded yet. Nodes of modules that
// already have a loaded revision, or a competitor in the same level, come
// first: their conflicts are decided before the rest of the level is fetched,
// so the dependencies of a losing revision are skipped.
func (r *run) pending() []*Node {
	live := r.g.live()
	var level []*Node
	perModule := make(map[moduleid.ModuleID]int)
	for _, n := range r.g.nodes {
		if !n.loaded && n.mergedTo == noHandle && n.reachable(live) {
			level = append(level, n)
			perModule[n.ModuleID()]++
		}
	}
	var contested, rest []*Node
	for _, n := range level {
		if len(r.g.byModule[n.ModuleID()]) > 0 || perModule[n.ModuleID()] > 1 {
			contested = append(contested, n)
		} else {
			rest = append(rest, n)
		}
	}
	return append(contested, rest...)
}

// fatal wraps err into a ResolutionError.
func (r *run) fatal(err error) error {
	var re *ResolutionError
	if errors.As(err, &re) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return &ResolutionError{Root: r.root.ID, Cause: err}
}

// managerFor returns the conflict manager of mod: overrides of the root
// descriptor first, then the settings.
func (r *run) managerFor(mod moduleid.ModuleID) conflict.Manager {
	for _, c := range r.root.Conflicts {
		if !c.Matcher.Matches(mod) {
			continue
		}
		if len(c.Revisions) > 0 {
			return conflict.NewFixed(c.Revisions...)
		}
		if m, ok := r.e.settings.ConflictManager(c.Manager); ok {
			return m
		}
	}
	return r.e.settings.ConflictManagerFor(mod)
}

// rootConfigurations expands the requested root configurations. "*" selects
// every public configuration; unknown names are an error.
func rootConfigurations(md *descriptor.ModuleDescriptor, asked []string) ([]string, error) {
	set := newConfSet()
	for _, c := range asked {
		if c == descriptor.AllConfs {
			set.add(md.PublicConfigurations()...)
			continue
		}
		if _, ok := md.Configuration(c); !ok {
			return nil, &descriptor.ConfigurationNotFoundError{Module: md.ID, Conf: c}
		}
		set.add(c)
	}
	return set.list(), nil
}

func containsAll(confs []string) bool {
	for _, c := range confs {
		if c == descriptor.AllConfs {
			return true
		}
	}
	return false
}
