// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

// SetConfigHome points the platform configuration directory at dir for the
// duration of the test and returns the directory configuration lookups will
// resolve under it:
//   - Windows: APPDATA
//   - macOS: HOME (Library/Application Support is appended)
//   - Linux and others: XDG_CONFIG_HOME
//
// It uses t.Setenv, so the calling test cannot be parallel.
func SetConfigHome(t *testing.T, dir string) string {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		t.Setenv("APPDATA", dir)
		return dir
	case "darwin":
		t.Setenv("HOME", dir)
		return filepath.Join(dir, "Library", "Application Support")
	default:
		t.Setenv("XDG_CONFIG_HOME", dir)
		return dir
	}
}
