// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"errors"
	"fmt"

	"github.com/invowk/trellis/pkg/moduleid"
)

var (
	// ErrInvalidConfMapping is the sentinel error wrapped by ConfMappingError.
	ErrInvalidConfMapping = errors.New("invalid configuration mapping")

	// ErrConfigurationNotFound is the sentinel error wrapped by ConfigurationNotFoundError.
	ErrConfigurationNotFound = errors.New("configuration not found")

	// ErrPrivateConfiguration is the sentinel error wrapped by PrivateConfigurationError.
	ErrPrivateConfiguration = errors.New("configuration is private")

	// ErrInvalidDescriptor is returned by Validate for inconsistent descriptors.
	ErrInvalidDescriptor = errors.New("invalid module descriptor")
)

type (
	// ConfMappingError is returned when a mapping string cannot be parsed.
	ConfMappingError struct {
		Mapping string
		Reason  string
	}

	// ConfigurationNotFoundError is returned when a mapping targets a
	// configuration the module does not declare.
	ConfigurationNotFoundError struct {
		Module moduleid.ModuleRevisionID
		Conf   string
	}

	// PrivateConfigurationError is returned when a mapping targets a private
	// configuration of a dependency.
	PrivateConfigurationError struct {
		Module moduleid.ModuleRevisionID
		Conf   string
	}
)

// Error implements the error interface.
func (e *ConfMappingError) Error() string {
	return fmt.Sprintf("invalid configuration mapping %q: %s", e.Mapping, e.Reason)
}

// Unwrap returns ErrInvalidConfMapping for errors.Is() compatibility.
func (e *ConfMappingError) Unwrap() error { return ErrInvalidConfMapping }

// Error implements the error interface.
func (e *ConfigurationNotFoundError) Error() string {
	return fmt.Sprintf("configuration %q not found in %s", e.Conf, e.Module)
}

// Unwrap returns ErrConfigurationNotFound for errors.Is() compatibility.
func (e *ConfigurationNotFoundError) Unwrap() error { return ErrConfigurationNotFound }

// Error implements the error interface.
func (e *PrivateConfigurationError) Error() string {
	return fmt.Sprintf("configuration %q of %s is private", e.Conf, e.Module)
}

// Unwrap returns ErrPrivateConfiguration for errors.Is() compatibility.
func (e *PrivateConfigurationError) Unwrap() error { return ErrPrivateConfiguration }
