// SPDX-License-Identifier: MPL-2.0

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/invowk/trellis/pkg/descriptor"
	"github.com/invowk/trellis/pkg/moduleid"
	"github.com/invowk/trellis/pkg/version"
)

// ErrNotCached is returned when the cache has no entry.
var ErrNotCached = errors.New("not in cache")

type (
	// Manager reads and writes the cache directory. It is safe for concurrent
	// use; concurrent writers of the same entry leave one complete file.
	Manager struct {
		dir    string
		logger *log.Logger
	}

	// Option configures a Manager.
	Option func(*Manager)
)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a manager rooted at dir. The directory is created on the
// first write.
func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{dir: dir, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the cache directory.
func (m *Manager) Dir() string { return m.dir }

// SaveDescriptor stores a descriptor.
func (m *Manager) SaveDescriptor(md *descriptor.ModuleDescriptor) error {
	data, err := toml.Marshal(descriptor.ToFile(md))
	if err != nil {
		return fmt.Errorf("encode descriptor %s: %w", md.ID, err)
	}
	return writeAtomic(m.descriptorPath(md.ID), data)
}

// LoadDescriptor reads a cached descriptor, or fails with ErrNotCached.
func (m *Manager) LoadDescriptor(id moduleid.ModuleRevisionID) (*descriptor.ModuleDescriptor, error) {
	data, err := os.ReadFile(m.descriptorPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, id)
	}
	if err != nil {
		return nil, err
	}
	var f descriptor.File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode cached descriptor %s: %w", id, err)
	}
	return f.Descriptor()
}

// CachedRevisions lists the revisions of mod present in the cache.
func (m *Manager) CachedRevisions(mod moduleid.ModuleID) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.dir, "descriptors", escape(mod.Organisation), escape(mod.Name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".toml")
		if !ok || e.IsDir() {
			continue
		}
		rev, err := url.PathUnescape(name)
		if err != nil {
			continue
		}
		out = append(out, rev)
	}
	return out, nil
}

// SaveReport stores the record of the latest resolution of its root module.
func (m *Manager) SaveReport(rec *ResolvedRecord) error {
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", rec.Root, err)
	}
	return writeAtomic(m.reportPath(moduleid.NewModuleID(rec.Organisation, rec.Module)), data)
}

// LoadReport reads the last record stored for mod, or fails with ErrNotCached.
func (m *Manager) LoadReport(mod moduleid.ModuleID) (*ResolvedRecord, error) {
	data, err := os.ReadFile(m.reportPath(mod))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: report for %s", ErrNotCached, mod)
	}
	if err != nil {
		return nil, err
	}
	var rec ResolvedRecord
	if err := toml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", mod, err)
	}
	return &rec, nil
}

// IsUpToDate reports whether the stored record for md still describes a
// resolution of confs with the same fingerprint. Descriptors with dynamic or
// changing dependencies are never up to date, and neither are failed
// resolutions.
func (m *Manager) IsUpToDate(md *descriptor.ModuleDescriptor, confs []string, fingerprint string, matcher version.Matcher) bool {
	if HasVolatileDependencies(md, matcher) {
		return false
	}
	rec, err := m.LoadReport(md.ID.Module)
	if err != nil {
		return false
	}
	if rec.HasError || rec.Fingerprint != fingerprint || rec.Root != md.ID.String() {
		return false
	}
	for _, c := range confs {
		if !slices.Contains(rec.Confs, c) {
			return false
		}
	}
	return true
}

// HasVolatileDependencies reports whether md declares a changing dependency or
// one with a dynamic revision.
func HasVolatileDependencies(md *descriptor.ModuleDescriptor, matcher version.Matcher) bool {
	for _, dd := range md.Dependencies {
		if dd.Changing || (matcher != nil && matcher.IsDynamic(dd.ID)) {
			return true
		}
	}
	return false
}

// Fingerprint hashes a descriptor together with the options that influence its
// resolution.
func Fingerprint(md *descriptor.ModuleDescriptor, options ...string) (string, error) {
	data, err := toml.Marshal(descriptor.ToFile(md))
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(data)
	for _, o := range options {
		h.Write([]byte{0})
		h.Write([]byte(o))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (m *Manager) descriptorPath(id moduleid.ModuleRevisionID) string {
	return filepath.Join(m.dir, "descriptors", escape(id.Organisation()), escape(id.Name()), escape(id.Revision)+".toml")
}

func (m *Manager) reportPath(mod moduleid.ModuleID) string {
	return filepath.Join(m.dir, "reports", escape(mod.Organisation), escape(mod.Name)+".toml")
}

func escape(s string) string {
	return url.PathEscape(s)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup of temp file
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}
