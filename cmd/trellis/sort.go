// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/trellis/pkg/sortengine"
)

func newSortCommand(app *App) *cobra.Command {
	var nonMatching string
	cmd := &cobra.Command{
		Use:   "sort <module.cue>...",
		Short: "Print module descriptors in build order",
		Long: `Print module descriptors so that every module comes after the modules
it depends on. Dependencies on modules outside the given set are ignored.

--non-matching decides what happens when a descriptor depends on a module of
the set with a revision that does not match it: warn (default), error or ignore.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.handleError(runSort(cmd.Context(), app, nonMatching, args))
		},
	}
	cmd.Flags().StringVar(&nonMatching, "non-matching", string(sortengine.NonMatchingWarn), "non matching revision strategy (warn, error, ignore)")
	return cmd
}

func runSort(ctx context.Context, app *App, nonMatching string, args []string) error {
	strategy, err := sortengine.ParseNonMatching(nonMatching)
	if err != nil {
		return err
	}
	env, err := app.loadEnvironment(ctx, true)
	if err != nil {
		return err
	}
	mds, err := parseDescriptors(args)
	if err != nil {
		return err
	}

	sorted, err := sortengine.SortModuleDescriptors(mds, sortengine.Options{
		NonMatching: strategy,
		Circular:    env.settings.CircularStrategy(),
		Matcher:     env.settings.Matchers(),
		Logger:      env.logger,
	})
	if err != nil {
		return newServiceError(err, classifyError(err), "")
	}
	for _, md := range sorted {
		fmt.Fprintln(app.stdout, md.ID.String())
	}
	return nil
}
