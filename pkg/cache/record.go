// SPDX-License-Identifier: MPL-2.0

package cache

import "time"

type (
	// ResolvedRecord is the persisted summary of one resolution.
	ResolvedRecord struct {
		Root           string         `toml:"root"`
		Organisation   string         `toml:"organisation"`
		Module         string         `toml:"module"`
		Confs          []string       `toml:"confs"`
		Fingerprint    string         `toml:"fingerprint"`
		Generated      time.Time      `toml:"generated"`
		HasError       bool           `toml:"has_error"`
		Configurations []ConfRecord   `toml:"configurations"`
		Evicted        []EvictedEntry `toml:"evicted,omitempty"`
		Problems       []ProblemEntry `toml:"problems,omitempty"`
	}

	// ConfRecord lists what one root configuration resolved to.
	ConfRecord struct {
		Name      string        `toml:"name"`
		Modules   []string      `toml:"modules"`
		Artifacts []ArtifactRow `toml:"artifacts,omitempty"`
	}

	// ArtifactRow is one artifact download outcome.
	ArtifactRow struct {
		Artifact  string `toml:"artifact"`
		Status    string `toml:"status"`
		LocalFile string `toml:"local_file,omitempty"`
		Error     string `toml:"error,omitempty"`
	}

	// EvictedEntry is an evicted module revision and the revisions that won.
	EvictedEntry struct {
		Module    string   `toml:"module"`
		EvictedBy []string `toml:"evicted_by"`
		Manager   string   `toml:"manager,omitempty"`
	}

	// ProblemEntry is a module that failed to resolve.
	ProblemEntry struct {
		Module  string `toml:"module"`
		Message string `toml:"message"`
	}
)

// Conf returns the record of a configuration.
func (r *ResolvedRecord) Conf(name string) (ConfRecord, bool) {
	for _, c := range r.Configurations {
		if c.Name == name {
			return c, true
		}
	}
	return ConfRecord{}, false
}
