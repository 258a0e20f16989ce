// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/invowk/trellis/pkg/cueutil"
	"github.com/invowk/trellis/pkg/descriptor"
)

// DescriptorPath returns where a filesystem repository rooted at root keeps
// the descriptor of md.
func DescriptorPath(root string, md *descriptor.ModuleDescriptor) string {
	id := md.ID
	return filepath.Join(root, id.Organisation(), id.Name(), id.Revision, descriptor.FileName)
}

// WriteDescriptor encodes md as module.cue inside the repository rooted at
// root and returns the file path. Artifacts listed in files are written next
// to the descriptor.
func WriteDescriptor(t testing.TB, root string, md *descriptor.ModuleDescriptor, files ...string) string {
	t.Helper()
	data, err := cueutil.Encode(descriptor.ToFile(md))
	if err != nil {
		t.Fatalf("failed to encode %s: %v", md.ID, err)
	}
	path := DescriptorPath(root, md)
	MustWriteFile(t, path, string(data))
	for _, name := range files {
		MustWriteFile(t, filepath.Join(filepath.Dir(path), name), name)
	}
	return path
}
