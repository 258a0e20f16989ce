// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/invowk/trellis/pkg/moduleid"
)

type (
	// ArtifactFilter selects the artifacts reported and downloaded.
	ArtifactFilter func(moduleid.Artifact) bool

	// Options tunes one resolution. Start from DefaultOptions: the zero value
	// resolves direct dependencies only.
	Options struct {
		// Confs are the root configurations to resolve. "*" means every public
		// configuration; empty means "*".
		Confs []string
		// Validate turns failures of required modules into a report error and
		// validates fetched descriptors.
		Validate bool
		// Transitive expands the dependencies of dependencies.
		Transitive bool
		// UseCacheOnly serves descriptors from the cache only.
		UseCacheOnly bool
		// Download fetches the artifacts of the selected modules.
		Download bool
		// OutputReport stores a resolution record in the cache.
		OutputReport bool
		// ArtifactFilter, when set, drops the artifacts it rejects.
		ArtifactFilter ArtifactFilter
		// Date excludes revisions published after it when choosing dynamic
		// revisions. Zero means no cutoff.
		Date time.Time
		// Refresh ignores an up-to-date resolution record.
		Refresh bool
	}
)

// DefaultOptions returns transitive resolution of every public configuration
// with validation.
func DefaultOptions() Options {
	return Options{
		Confs:      []string{"*"},
		Validate:   true,
		Transitive: true,
	}
}

func (o Options) confs() []string {
	if len(o.Confs) == 0 {
		return []string{"*"}
	}
	return o.Confs
}

// fingerprintParts lists the options that change the outcome of a resolution.
func (o Options) fingerprintParts(rootConfs []string) []string {
	confs := slices.Clone(rootConfs)
	slices.Sort(confs)
	parts := []string{
		"confs=" + strings.Join(confs, ","),
		"transitive=" + strconv.FormatBool(o.Transitive),
		"validate=" + strconv.FormatBool(o.Validate),
		"download=" + strconv.FormatBool(o.Download),
	}
	if !o.Date.IsZero() {
		parts = append(parts, "date="+o.Date.UTC().Format(time.RFC3339))
	}
	return parts
}
