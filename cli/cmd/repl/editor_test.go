package repl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/itom/registry"
)

// fakeEditor installs a shell script as $EDITOR that replaces the edited
// file with the contents of src.
func fakeEditor(t *testing.T, src string) {
	t.Helper()

	dir := t.TempDir()
	content := filepath.Join(dir, "content")

	if err := os.WriteFile(content, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}

	script := filepath.Join(dir, "editor")
	body := "#!/bin/sh\ncat '" + content + "' > \"$1\"\n"

	if err := os.WriteFile(script, []byte(body), 0o700); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EDITOR", script)
}

func newEditCommand(t *testing.T, stdin string) (*editCommand, *registry.Registry) {
	t.Helper()

	reg, err := registry.New(t.Context(), registry.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}

	if err := reg.Add(t.Context(), "greet", "#@ dsl: text\nhello", false); err != nil {
		t.Fatal(err)
	}

	return &editCommand{
		ctxFunc:  func() context.Context { return t.Context() },
		registry: reg,
		name:     "greet",
		stdin:    strings.NewReader(stdin),
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}, reg
}

func TestEditCommand_Saves(t *testing.T) {
	fakeEditor(t, "#@ dsl: text\nhello again")

	cmd, reg := newEditCommand(t, "")
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !cmd.saved {
		t.Error("saved = false")
	}

	p, _ := reg.Get("greet")
	if p.Latest.Body != "hello again" || p.Versions != 2 {
		t.Errorf("latest = %q (%d versions)", p.Latest.Body, p.Versions)
	}
}

func TestEditCommand_Unchanged(t *testing.T) {
	fakeEditor(t, "#@ dsl: text\nhello")

	cmd, reg := newEditCommand(t, "")
	if err := cmd.Run(); err != nil || cmd.saved {
		t.Errorf("Run() = %v, saved = %v", err, cmd.saved)
	}

	if p, _ := reg.Get("greet"); p.Versions != 1 {
		t.Errorf("versions = %d", p.Versions)
	}
}

func TestEditCommand_Declined(t *testing.T) {
	fakeEditor(t, "no header here")

	cmd, _ := newEditCommand(t, "n\n")
	if err := cmd.Run(); !errors.Is(err, ErrEditDeclined) {
		t.Errorf("Run() error = %v, want ErrEditDeclined", err)
	}
}
