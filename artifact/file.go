package artifact

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/readahead"
)

// FileStore keeps each entry in a file named after its key.
type FileStore struct {
	root string
}

// NewFileStore returns a [FileStore] rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, ErrStore.Wrap(err).With(slog.String("dir", dir))
	}

	return &FileStore{root: dir}, nil
}

// Root returns the directory holding the entries.
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) path(key string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)

	return filepath.Join(s.root, clean+".json")
}

// Get implements [Store].
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, ErrStore.Wrap(err).With(slog.String("key", key))
	}
	defer f.Close()

	ra := readahead.NewReader(f)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, false, ErrStore.Wrap(err).With(slog.String("key", key))
	}

	return data, true, nil
}

// Put implements [Store]. The entry is replaced atomically.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := s.path(key)

	tmp, err := os.CreateTemp(s.root, ".artifact-*")
	if err != nil {
		return ErrStore.Wrap(err).With(slog.String("key", key))
	}

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err == nil {
		err = os.Rename(tmp.Name(), dst)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return ErrStore.Wrap(err).With(slog.String("key", key))
	}

	return nil
}
