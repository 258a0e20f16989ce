// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrFileTooLarge is the sentinel error wrapped by FileTooLargeError.
var ErrFileTooLarge = errors.New("file too large")

type (
	// FieldError is one validation failure located by a JSON-style path.
	FieldError struct {
		Path    string
		Message string
	}

	// DocumentError collects the validation failures of one document.
	DocumentError struct {
		File   string
		Fields []FieldError
		cause  error
	}

	// FileTooLargeError is returned when a document exceeds the size limit.
	FileTooLargeError struct {
		File string
		Size int64
		Max  int64
	}
)

// Error implements the error interface.
func (e *DocumentError) Error() string {
	lines := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		if f.Path != "" {
			lines[i] = f.Path + ": " + f.Message
		} else {
			lines[i] = f.Message
		}
	}
	if len(lines) == 1 {
		return e.File + ": " + lines[0]
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// Unwrap returns the underlying CUE error.
func (e *DocumentError) Unwrap() error { return e.cause }

// Error implements the error interface.
func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s: file size %d bytes exceeds maximum %d bytes", e.File, e.Size, e.Max)
}

// Unwrap returns ErrFileTooLarge for errors.Is() compatibility.
func (e *FileTooLargeError) Unwrap() error { return ErrFileTooLarge }

// FormatError turns a CUE error into a DocumentError. Non-CUE errors are
// prefixed with the file name.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("%s: %w", file, err)
	}
	doc := &DocumentError{File: file, cause: err}
	for _, e := range list {
		p := FormatPath(cueerrors.Path(e))
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		doc.Fields = append(doc.Fields, FieldError{Path: p, Message: msg})
	}
	return doc
}

// FormatPath renders ["deps", "0", "rev"] as "deps[0].rev".
func FormatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			sb.WriteString("[" + part + "]")
		case i > 0:
			sb.WriteString("." + part)
		default:
			sb.WriteString(part)
		}
	}
	return sb.String()
}

// CheckFileSize fails when data exceeds maxSize.
func CheckFileSize(data []byte, maxSize int64, file string) error {
	if int64(len(data)) > maxSize {
		return &FileTooLargeError{File: file, Size: int64(len(data)), Max: maxSize}
	}
	return nil
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
