package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/pkg"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

type sessionKey struct{}

// WithSession returns a new context.Context containing s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFrom returns the session stored in ctx, or an empty in-memory
// session if there is none.
func sessionFrom(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s != nil {
		return s
	}

	return &Session{}
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// source is one program source file named on the command line.
type source struct {
	path string
	name string
	text string
}

// readSources reads the given files, skipping duplicates reached through
// different paths or symlinks. Every occurrence of "-" reads stdin once, and
// stdin is read last. Stdin sources take their name from fallback.
func readSources(paths []string, fallback string) ([]source, error) {
	var (
		out      []source
		hasStdin bool
	)

	seen := make(map[fileKey]struct{})

	for _, path := range paths {
		if path == stdinSource {
			hasStdin = true

			continue
		}

		src, ok, err := readUnique(path, seen)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, src)
		}
	}

	if hasStdin {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, ErrReadSource.Wrap(err).With(slog.String("file", stdinSource))
		}

		if fallback == "" {
			return nil, ErrArgument.Wrap(
				fmt.Errorf("a program read from stdin requires --name"))
		}

		out = append(out, source{path: stdinSource, name: fallback, text: string(data)})
	}

	return out, nil
}

// readUnique reads the file at path unless a file with the same device and
// inode was read before.
func readUnique(path string, seen map[fileKey]struct{}) (source, bool, error) {
	fail := func(err error) (source, bool, error) {
		return source{}, false, ErrReadSource.Wrap(err).With(slog.String("file", path))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fail(err)
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return fail(err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return fail(err)
	}

	if key, ok := makeFileKey(info); ok {
		if _, exists := seen[key]; exists {
			return source{}, false, nil
		}

		seen[key] = struct{}{}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return fail(err)
	}

	return source{path: path, name: ProgramName(path), text: string(data)}, true, nil
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}

// ProgramName derives a program name from a source file path: the base name
// up to its first dot.
func ProgramName(path string) string {
	name, _, _ := strings.Cut(filepath.Base(path), ".")

	return name
}

// parseAssignments parses "key=value" arguments. Values are read as
// literals when possible and as plain strings otherwise.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))

	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if key = strings.TrimSpace(key); !ok || key == "" {
			return nil, ErrArgument.Wrap(
				fmt.Errorf("expected key=value, got %q", arg),
			).With(slog.String("argument", arg))
		}

		out[key] = parseValue(raw)
	}

	return out, nil
}

// parseValue reads raw as a literal, falling back to the raw string.
func parseValue(raw string) any {
	if v, err := lang.ParseLiteral(raw); err == nil {
		return v
	}

	return raw
}

// defaultStoreDir returns the store directory used when none is configured.
func defaultStoreDir() string { return pkg.DataDir() }
