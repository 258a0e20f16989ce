// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name:  string & !=""
	count: int & >=0 | *1
	tags?: [...string]
}
`

type testDoc struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	res, err := Decode[testDoc]([]byte(testSchema), []byte(`name: "x"
tags: ["a", "b"]`), "#Doc")
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if res.Value.Name != "x" || res.Value.Count != 1 || len(res.Value.Tags) != 2 {
		t.Errorf("Decode() = %+v", res.Value)
	}
	if !res.Unified.Exists() {
		t.Error("unified value should exist")
	}
}

func TestDecode_ValidationErrorHasPath(t *testing.T) {
	t.Parallel()

	_, err := Decode[testDoc]([]byte(testSchema), []byte(`name: "x"
count: -3`), "#Doc", WithFilename("doc.cue"))
	if err == nil {
		t.Fatal("Decode() should fail for a negative count")
	}
	var doc *DocumentError
	if !errors.As(err, &doc) {
		t.Fatalf("error should be a DocumentError, got %T: %v", err, err)
	}
	if doc.File != "doc.cue" || !strings.Contains(err.Error(), "count") {
		t.Errorf("error should name the file and the field: %v", err)
	}
}

func TestDecode_SyntaxError(t *testing.T) {
	t.Parallel()

	_, err := Decode[testDoc]([]byte(testSchema), []byte(`name: "x`), "#Doc", WithFilename("bad.cue"))
	if err == nil || !strings.HasPrefix(err.Error(), "bad.cue") {
		t.Errorf("syntax error should be prefixed with the file name, got %v", err)
	}
}

func TestDecode_FileTooLarge(t *testing.T) {
	t.Parallel()

	_, err := Decode[testDoc]([]byte(testSchema), []byte(`name: "0123456789"`), "#Doc", WithMaxFileSize(4))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("error = %v, want ErrFileTooLarge", err)
	}

	path := filepath.Join(t.TempDir(), "big.cue")
	if err := os.WriteFile(path, []byte(`name: "0123456789"`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeFile[testDoc]([]byte(testSchema), path, "#Doc", WithMaxFileSize(4)); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("DecodeFile() error = %v, want ErrFileTooLarge", err)
	}
	res, err := DecodeFile[testDoc]([]byte(testSchema), path, "#Doc")
	if err != nil || res.Value.Name != "0123456789" {
		t.Errorf("DecodeFile() = %v, %v", res, err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"name"}, "name"},
		{[]string{"dependencies", "1", "revision"}, "dependencies[1].revision"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := FormatPath(tt.in); got != tt.want {
			t.Errorf("FormatPath(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	out, err := Encode(testDoc{Name: "x", Count: 2})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `name:`) || !strings.Contains(s, `"x"`) || !strings.Contains(s, "count:") {
		t.Errorf("Encode() = %s", s)
	}
}
