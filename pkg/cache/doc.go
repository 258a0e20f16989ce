// SPDX-License-Identifier: MPL-2.0

// Package cache persists module descriptors and resolution records so that
// later resolutions can skip repositories and detect that nothing changed.
//
// Layout under the cache directory:
//
//	descriptors/<organisation>/<module>/<revision>.toml
//	reports/<organisation>/<module>.toml
//
// Every file is written to a temporary file first and renamed into place.
package cache
