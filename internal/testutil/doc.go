// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate when building repositories of module
// descriptors on disk.
//
// Common helpers include file operations (MustWriteFile, WriteFiles),
// repository fixtures (WriteDescriptor), environment management
// (MustSetenv, SetConfigHome) and a controllable clock (FakeClock).
package testutil
