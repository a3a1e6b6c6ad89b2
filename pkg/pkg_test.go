package pkg

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	expected := "itom"
	if Name != expected {
		t.Errorf("Expected Name to be %q, got %q", expected, Name)
	}
}

func TestVersion(t *testing.T) {
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("Failed to read VERSION file: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); Version != content {
		t.Errorf("Expected Version to be %q, got %q", content, Version)
	}
}

func TestAuthorStruct(t *testing.T) {
	for i, author := range Author {
		if author.Name == "" && author.Email == "" {
			t.Errorf("Author[%d] must define at least Name or Email", i)
		}
	}
}

func TestSearchPath_PrefersGivenDirs(t *testing.T) {
	envDir := t.TempDir()
	flagDir := t.TempDir()
	missing := filepath.Join(t.TempDir(), "missing")

	t.Setenv(PathEnv(), envDir+string(os.PathListSeparator)+missing)

	path := SearchPath(flagDir)

	if len(path) == 0 || path[0] != flagDir {
		t.Fatalf("SearchPath() = %v, want %s first", path, flagDir)
	}

	if !slices.Contains(path, envDir) {
		t.Errorf("SearchPath() = %v, missing %s", path, envDir)
	}

	if slices.Contains(path, missing) {
		t.Errorf("SearchPath() = %v, kept missing dir %s", path, missing)
	}
}

func TestFindSource(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	want := filepath.Join(second, "adder"+SourceExt)
	if err := os.WriteFile(want, []byte("#@ dsl: text\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, ok := FindSource("adder", []string{first, second})
	if !ok || got != want {
		t.Errorf("FindSource() = %q, %v; want %q, true", got, ok, want)
	}

	if _, ok := FindSource("missing", []string{first, second}); ok {
		t.Error("FindSource() found a missing program")
	}
}
