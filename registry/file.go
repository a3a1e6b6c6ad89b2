package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/readahead"

	"github.com/ardnew/itom/pkg"
	"github.com/ardnew/itom/program"
)

// File names within a program directory.
const (
	RecordFile = "program.json"
	SourceFile = "code" + pkg.SourceExt
)

// ErrStore indicates a failure of the backing store.
var ErrStore = program.NewError("program store failed")

// FileStore is a [Store] that keeps one directory per program below a root
// directory:
//
//	<root>/<name>.itom/program.json
//	<root>/<name>.itom/code.itom
type FileStore struct {
	root string
}

// NewFileStore returns a [FileStore] rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ErrStore.Wrap(err).With(slog.String("path", dir))
	}

	return &FileStore{root: dir}, nil
}

// Root returns the directory holding the program directories.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) dir(name string) string {
	return filepath.Join(s.root, name+pkg.SourceExt)
}

// Names implements [Store].
func (s *FileStore) Names(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, ErrStore.Wrap(err).With(slog.String("path", s.root))
	}

	var names []string

	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), pkg.SourceExt)
		if !ok || !e.IsDir() || name == "" {
			continue
		}

		if _, err := os.Stat(filepath.Join(s.root, e.Name(), RecordFile)); err == nil {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return names, nil
}

// Load implements [Store].
func (s *FileStore) Load(_ context.Context, name string) (*Record, error) {
	data, err := readFile(filepath.Join(s.dir(name), RecordFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(name)
		}

		return nil, ErrStore.Wrap(err).With(programAttr(name))
	}

	rec := new(Record)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, ErrStore.Wrap(err).With(programAttr(name))
	}

	rec.normalize()

	return rec, nil
}

// Save implements [Store].
func (s *FileStore) Save(_ context.Context, rec *Record) error {
	name := rec.Metadata.Name

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	return s.write(name, RecordFile, data)
}

// Source implements [Store].
func (s *FileStore) Source(_ context.Context, name string) (string, error) {
	data, err := readFile(filepath.Join(s.dir(name), SourceFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound(name)
		}

		return "", ErrStore.Wrap(err).With(programAttr(name))
	}

	return string(data), nil
}

// WriteSource implements [Store].
func (s *FileStore) WriteSource(_ context.Context, name, source string) error {
	return s.write(name, SourceFile, []byte(source))
}

// write replaces a file in the program directory through a rename so that
// readers never observe a partial file.
func (s *FileStore) write(name, file string, data []byte) error {
	dir := s.dir(name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	tmp, err := os.CreateTemp(dir, "."+file+".*")
	if err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return ErrStore.Wrap(err).With(programAttr(name))
	}

	if err := tmp.Close(); err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, file)); err != nil {
		return ErrStore.Wrap(err).With(programAttr(name))
	}

	return nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ra := readahead.NewReader(f)
	defer ra.Close()

	return io.ReadAll(ra)
}
