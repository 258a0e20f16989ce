// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"fmt"
	"sync"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
)

// Memory is an in-process repository. It counts descriptor fetches and open
// handles, which makes it the usual collaborator in tests.
type Memory struct {
	name string

	mu            sync.Mutex
	modules       map[moduleid.ModuleID][]*descriptor.ModuleDescriptor
	fetches       map[string]int
	open          int
	failDownloads map[string]bool
}

// NewMemory creates an empty repository.
func NewMemory(name string) *Memory {
	return &Memory{
		name:          name,
		modules:       make(map[moduleid.ModuleID][]*descriptor.ModuleDescriptor),
		fetches:       make(map[string]int),
		failDownloads: make(map[string]bool),
	}
}

// Name returns the repository name.
func (m *Memory) Name() string { return m.name }

// Add publishes descriptors. A descriptor with the same id replaces the
// previous one.
func (m *Memory) Add(mds ...*descriptor.ModuleDescriptor) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, md := range mds {
		list := m.modules[md.ID.Module]
		replaced := false
		for i, existing := range list {
			if existing.ID.Revision == md.ID.Revision {
				list[i] = md
				replaced = true
			}
		}
		if !replaced {
			list = append(list, md)
		}
		m.modules[md.ID.Module] = list
	}
	return m
}

// FindModule implements DependencyResolver.
func (m *Memory) FindModule(ctx context.Context, id moduleid.ModuleRevisionID) (*ResolvedModuleRevision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[id.Key()]++
	for _, md := range m.modules[id.Module] {
		if md.ID.Revision == id.Revision {
			m.open++
			return NewResolved(md, m.name, true, m.releaseHandle), nil
		}
	}
	return nil, &ModuleNotFoundError{ID: id, Resolver: m.name}
}

// ListRevisions implements DependencyResolver.
func (m *Memory) ListRevisions(ctx context.Context, mod moduleid.ModuleID) ([]RevisionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.modules[mod]
	out := make([]RevisionInfo, 0, len(list))
	for _, md := range list {
		out = append(out, RevisionInfo{Revision: md.ID.Revision, PublicationDate: md.PublicationDate})
	}
	return out, nil
}

// Download implements ArtifactDownloader. The returned location is a
// memory:// URL.
func (m *Memory) Download(ctx context.Context, a moduleid.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDownloads[a.FileName()] {
		return "", fmt.Errorf("download %s: simulated failure", a)
	}
	for _, md := range m.modules[a.Revision.Module] {
		if md.ID.Revision != a.Revision.Revision {
			continue
		}
		for _, declared := range md.Artifacts {
			if declared.Name == a.Name && declared.Type == a.Type && declared.Ext == a.Ext {
				return fmt.Sprintf("memory://%s/%s/%s/%s/%s",
					m.name, a.Revision.Organisation(), a.Revision.Name(), a.Revision.Revision, a.FileName()), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, a)
}

// FailDownloads makes downloads of the named artifact files fail.
func (m *Memory) FailDownloads(fileNames ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fileNames {
		m.failDownloads[f] = true
	}
}

// Fetches returns how often FindModule was called for id.
func (m *Memory) Fetches(id moduleid.ModuleRevisionID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[id.Key()]
}

// FetchedModule reports whether any revision of mod was fetched.
func (m *Memory) FetchedModule(mod moduleid.ModuleID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, md := range m.modules[mod] {
		if m.fetches[md.ID.Key()] > 0 {
			return true
		}
	}
	return false
}

// TotalFetches returns the number of FindModule calls.
func (m *Memory) TotalFetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.fetches {
		total += n
	}
	return total
}

// OpenHandles returns the number of found revisions not yet closed.
func (m *Memory) OpenHandles() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *Memory) releaseHandle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open--
}
