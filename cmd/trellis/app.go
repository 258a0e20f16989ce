// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/invowk/trellis/internal/config"
	"github.com/invowk/trellis/internal/issue"
	"github.com/invowk/trellis/internal/observability"
	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/resolve"
	"github.com/invowk/trellis/pkg/settings"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer

		verbose bool
		cfgFile string
		baseDir string
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
		// BaseDir replaces the working directory for trellis.cue lookup and
		// relative resolver roots.
		BaseDir string
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// environment is what a command needs to talk to the engine.
	environment struct {
		cfg      *config.Config
		settings *settings.Settings
		logger   *log.Logger
		registry *prometheus.Registry
		metrics  *observability.Metrics
		engine   *resolve.Engine
	}
)

// NewApp creates an App, filling unset dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:  deps.Config,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
		baseDir: deps.BaseDir,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			app.baseDir = wd
		}
	}
	return app
}

// loadOptions returns the configuration lookup of the current invocation.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.cfgFile, BaseDir: a.baseDir}
}

// newLogger returns the CLI logger. Verbose mode enables debug output.
func (a *App) newLogger(verbose bool) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{Prefix: "trellis"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

// loadEnvironment loads the configuration and builds the engine with a fresh
// metrics registry.
func (a *App) loadEnvironment(ctx context.Context, noCache bool) (*environment, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId, "")
	}

	logger := a.newLogger(a.verbose || cfg.UI.Verbose)
	s, err := config.BuildSettings(cfg, config.BuildOptions{BaseDir: a.baseDir, Logger: logger, NoCache: noCache})
	if err != nil {
		return nil, newServiceError(
			issue.NewErrorContext().
				WithOperation("build resolution settings").
				WithSuggestion("Check the resolver and conflict manager names in the configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError(),
			issue.ConfigLoadFailedId, "")
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	engine := resolve.NewEngine(s,
		resolve.WithLogger(logger),
		resolve.WithMetrics(metrics),
	)
	return &environment{cfg: cfg, settings: s, logger: logger, registry: reg, metrics: metrics, engine: engine}, nil
}

// parseDescriptors reads module.cue files in argument order.
func parseDescriptors(paths []string) ([]*descriptor.ModuleDescriptor, error) {
	mds := make([]*descriptor.ModuleDescriptor, 0, len(paths))
	for _, p := range paths {
		md, err := descriptor.ParseFile(p)
		if err != nil {
			id := issue.DescriptorParseErrorId
			if errors.Is(err, os.ErrNotExist) {
				id = issue.DescriptorNotFoundId
			}
			return nil, newServiceError(
				issue.NewErrorContext().
					WithOperation("read module descriptor").
					WithResource(p).
					WithIssue(id).
					Wrap(err).
					BuildError(),
				id, "")
		}
		mds = append(mds, md)
	}
	return mds, nil
}

// descriptorArgs defaults to module.cue in the base directory.
func (a *App) descriptorArgs(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return []string{filepath.Join(a.baseDir, descriptor.FileName)}
}

// handleError renders err and turns it into an ExitError.
func (a *App) handleError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		svcErr = newServiceError(err, classifyError(err), "")
	} else if svcErr.IssueID == 0 {
		svcErr.IssueID = classifyError(svcErr.Err)
	}
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(svcErr.Err, a.verbose))
	renderServiceError(a.stderr, svcErr, a.newLogger(a.verbose))
	return &ExitError{Code: exitCodeFor(err), Err: err}
}
