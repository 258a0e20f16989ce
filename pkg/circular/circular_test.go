// SPDX-License-Identifier: MPL-2.0

package circular

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/invowk/trellis/pkg/moduleid"
)

func cycle() []moduleid.ModuleRevisionID {
	x := moduleid.NewRevisionID("org", "x", "1.0")
	y := moduleid.NewRevisionID("org", "y", "1.0")
	return []moduleid.ModuleRevisionID{x, y, x}
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", Warn, false},
		{"warn", Warn, false},
		{"ERROR", Error, false},
		{" ignore ", Ignore, false},
		{"explode", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownStrategy) {
				t.Errorf("Parse(%q) error = %v, want ErrUnknownStrategy", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Parse(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestHandle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := log.New(&buf)

	if err := Warn.Handle(logger, cycle()); err != nil {
		t.Fatalf("Warn.Handle() error: %v", err)
	}
	if !strings.Contains(buf.String(), "org#x;1.0 -> org#y;1.0 -> org#x;1.0") {
		t.Errorf("warn should log the cycle, got %q", buf.String())
	}

	buf.Reset()
	if err := Ignore.Handle(logger, cycle()); err != nil {
		t.Fatalf("Ignore.Handle() error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("ignore should not log at the default level, got %q", buf.String())
	}

	err := Error.Handle(logger, cycle())
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("Error.Handle() = %v, want ErrCircularDependency", err)
	}
	var cde *CircularDependencyError
	if !errors.As(err, &cde) || len(cde.Cycle) != 3 {
		t.Errorf("error should carry the cycle: %v", err)
	}

	if err := Warn.Handle(nil, cycle()); err != nil {
		t.Errorf("nil logger should be tolerated: %v", err)
	}
}
