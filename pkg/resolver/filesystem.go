// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
)

// FileSystem reads a repository laid out as
//
//	<root>/<organisation>/<module>/<revision>/module.cue
//
// with the artifacts of a revision stored next to its module.cue.
type FileSystem struct {
	name string
	root string
}

// NewFileSystem creates a resolver rooted at root.
func NewFileSystem(name, root string) *FileSystem {
	return &FileSystem{name: name, root: root}
}

// Name returns the resolver name.
func (r *FileSystem) Name() string { return r.name }

// Root returns the repository directory.
func (r *FileSystem) Root() string { return r.root }

// RevisionDir returns the directory of a revision.
func (r *FileSystem) RevisionDir(id moduleid.ModuleRevisionID) string {
	return filepath.Join(r.root, id.Organisation(), id.Name(), id.Revision)
}

// FindModule implements DependencyResolver. A descriptor without publication
// date gets the modification time of its file.
func (r *FileSystem) FindModule(ctx context.Context, id moduleid.ModuleRevisionID) (*ResolvedModuleRevision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(r.RevisionDir(id), descriptor.FileName)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &ModuleNotFoundError{ID: id, Resolver: r.name}
	}
	if err != nil {
		return nil, fmt.Errorf("resolver %s: %w", r.name, err)
	}
	md, err := descriptor.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("resolver %s: %w", r.name, err)
	}
	if md.ID.Module != id.Module || md.ID.Revision != id.Revision {
		return nil, fmt.Errorf("resolver %s: %s declares %s", r.name, path, md.ID)
	}
	res := NewResolved(md, r.name, true, nil)
	if res.PublicationDate.IsZero() {
		res.PublicationDate = info.ModTime().UTC()
	}
	return res, nil
}

// ListRevisions implements DependencyResolver. Every sub-directory holding a
// module.cue is a revision; its publication date is the file modification time.
func (r *FileSystem) ListRevisions(ctx context.Context, mod moduleid.ModuleID) ([]RevisionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Join(r.root, mod.Organisation, mod.Name)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolver %s: %w", r.name, err)
	}
	var out []RevisionInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, e.Name(), descriptor.FileName))
		if err != nil {
			continue
		}
		out = append(out, RevisionInfo{Revision: e.Name(), PublicationDate: info.ModTime().UTC()})
	}
	return out, nil
}

// Download implements ArtifactDownloader by returning the artifact path inside
// the repository.
func (r *FileSystem) Download(ctx context.Context, a moduleid.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(r.RevisionDir(a.Revision), a.FileName())
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return "", err
	}
	return path, nil
}
