// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/invowk/trellis/internal/issue"
	"github.com/invowk/trellis/pkg/cache"
)

// markdownRender is swapped in tests.
var markdownRender = glamour.Render

func newReportCommand(app *App) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "report [module.cue]",
		Short: "Show the stored resolution of a module",
		Long: `Show the resolution record stored in the cache by the last
'trellis resolve' of a module descriptor.

Without arguments, ./module.cue is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.handleError(runReport(cmd.Context(), app, markdown, args))
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the report as styled Markdown")
	return cmd
}

func runReport(ctx context.Context, app *App, markdown bool, args []string) error {
	env, err := app.loadEnvironment(ctx, false)
	if err != nil {
		return err
	}
	mds, err := parseDescriptors(app.descriptorArgs(args))
	if err != nil {
		return err
	}
	md := mds[0]

	c := env.settings.Cache()
	if c == nil {
		return issue.NewErrorContext().
			WithOperation("show resolution report").
			WithModule(md.ID).
			WithSuggestion("Set cache.dir in the configuration and resolve again").
			Wrap(errors.New("no cache configured")).
			BuildError()
	}
	rec, err := c.LoadReport(md.ID.Module)
	if err != nil {
		if errors.Is(err, cache.ErrNotCached) {
			return issue.NewErrorContext().
				WithOperation("show resolution report").
				WithModule(md.ID).
				WithSuggestion("Run 'trellis resolve' first").
				WithIssue(issue.CacheOnlyMissId).
				Wrap(err).
				BuildError()
		}
		return err
	}

	text := reportMarkdown(rec)
	if !markdown {
		fmt.Fprint(app.stdout, text)
		return nil
	}
	rendered, err := markdownRender(text, "dark")
	if err != nil {
		env.logger.Warn("failed to render markdown report", "error", err)
		rendered = text
	}
	fmt.Fprint(app.stdout, rendered)
	return nil
}

// reportMarkdown renders a resolution record as Markdown.
func reportMarkdown(rec *cache.ResolvedRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.Root)
	fmt.Fprintf(&sb, "Resolved %s for `%s`.", rec.Generated.Format(time.RFC3339), strings.Join(rec.Confs, "`, `"))
	if rec.HasError {
		sb.WriteString(" **The resolution has errors.**")
	}
	sb.WriteString("\n")

	for _, conf := range rec.Configurations {
		fmt.Fprintf(&sb, "\n## %s\n\n", conf.Name)
		if len(conf.Modules) == 0 {
			sb.WriteString("No dependencies.\n")
		}
		for _, m := range conf.Modules {
			fmt.Fprintf(&sb, "- `%s`\n", m)
		}
		if len(conf.Artifacts) > 0 {
			sb.WriteString("\n| Artifact | Status | File |\n|---|---|---|\n")
			for _, a := range conf.Artifacts {
				file := a.LocalFile
				if a.Error != "" {
					file = a.Error
				}
				fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", a.Artifact, a.Status, file)
			}
		}
	}
	if len(rec.Evicted) > 0 {
		sb.WriteString("\n## Evicted\n\n")
		for _, e := range rec.Evicted {
			fmt.Fprintf(&sb, "- `%s` by `%s`", e.Module, strings.Join(e.EvictedBy, "`, `"))
			if e.Manager != "" {
				fmt.Fprintf(&sb, " (%s)", e.Manager)
			}
			sb.WriteString("\n")
		}
	}
	if len(rec.Problems) > 0 {
		sb.WriteString("\n## Problems\n\n")
		for _, p := range rec.Problems {
			fmt.Fprintf(&sb, "- `%s`: %s\n", p.Module, p.Message)
		}
	}
	return sb.String()
}
