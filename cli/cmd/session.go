package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ardnew/itom/artifact"
	"github.com/ardnew/itom/backend"
	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/registry"
)

// StoreConfig selects where programs are kept.
type StoreConfig struct {
	Dir   string `default:"${store}"      help:"Program store directory."                      type:"path"`
	URL   string `                        help:"PostgreSQL URL; replaces the directory store." placeholder:"URL"`
	Table string `default:"${storeTable}" help:"PostgreSQL table holding programs."`
	Mem   bool   `                        help:"Keep programs in memory for this invocation only."`
}

// CacheConfig selects where rendered artifacts are cached. Caching is
// disabled unless a directory or a MinIO endpoint is given.
type CacheConfig struct {
	Dir string        `help:"Artifact cache directory."                 type:"path"`
	TTL time.Duration `help:"Discard cached artifacts older than this."`
}

// MinioConfig locates an S3-compatible bucket used as the artifact cache.
type MinioConfig struct {
	Endpoint  string `                help:"MinIO endpoint (host:port) for the artifact cache."`
	AccessKey string `                help:"MinIO access key."`
	SecretKey string `                help:"MinIO secret key."`
	Region    string `                help:"MinIO region."`
	Bucket    string `default:"itom"  help:"MinIO bucket."`
	Prefix    string `                help:"Object key prefix."`
	SSL       bool   `                help:"Connect to MinIO over TLS."`
}

// Session holds the state shared by all commands of one invocation.
type Session struct {
	Store    StoreConfig
	Cache    CacheConfig
	Minio    MinioConfig
	Path     []string
	Timeout  time.Duration
	MaxDepth int
	Logger   log.Logger
	// Out receives command output. Nil selects os.Stdout.
	Out io.Writer

	open     sync.Once
	registry *registry.Registry
	cache    compose.Cache
	closers  []io.Closer
	err      error
}

// out returns the command output writer.
func (s *Session) out() io.Writer {
	if s.Out == nil {
		return os.Stdout
	}

	return s.Out
}

// Registry opens the program store and loads the registry on first use.
func (s *Session) Registry(ctx context.Context) (*registry.Registry, error) {
	s.open.Do(func() { s.err = s.load(ctx) })

	return s.registry, s.err
}

func (s *Session) load(ctx context.Context) error {
	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}

	s.registry, err = registry.New(ctx, store, registry.WithLogger(s.Logger))
	if err != nil {
		return err
	}

	s.cache, err = s.openCache(ctx)

	return err
}

func (s *Session) openStore(ctx context.Context) (registry.Store, error) {
	switch {
	case s.Store.Mem:
		return registry.NewMemoryStore(), nil

	case s.Store.URL != "":
		store, err := registry.OpenPostgres(ctx, registry.PostgresConfig{
			URL:   s.Store.URL,
			Table: s.Store.Table,
		})
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, store)

		s.Logger.DebugContext(ctx, "using postgres store",
			slog.String("table", s.Store.Table))

		return store, nil

	default:
		dir := s.Store.Dir
		if dir == "" {
			dir = defaultStoreDir()
		}

		s.Logger.DebugContext(ctx, "using file store", slog.String("dir", dir))

		return registry.NewFileStore(dir)
	}
}

func (s *Session) openCache(ctx context.Context) (compose.Cache, error) {
	var store artifact.Store

	switch {
	case s.Minio.Endpoint != "":
		ms, err := artifact.NewMinioStore(ctx, artifact.MinioConfig{
			Endpoint:  s.Minio.Endpoint,
			AccessKey: s.Minio.AccessKey,
			SecretKey: s.Minio.SecretKey,
			Region:    s.Minio.Region,
			Bucket:    s.Minio.Bucket,
			Prefix:    s.Minio.Prefix,
			UseSSL:    s.Minio.SSL,
		})
		if err != nil {
			return nil, err
		}

		store = ms

	case s.Cache.Dir != "":
		fs, err := artifact.NewFileStore(s.Cache.Dir)
		if err != nil {
			return nil, err
		}

		store = fs

	default:
		return nil, nil
	}

	return artifact.New(store,
		artifact.WithTTL(s.Cache.TTL),
		artifact.WithLogger(s.Logger),
	), nil
}

// Executor returns an executor over the session registry with the bundled
// backends registered.
func (s *Session) Executor(ctx context.Context, opts ...compose.Option) (*compose.Executor, error) {
	reg, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}

	base := []compose.Option{compose.WithLogger(s.Logger)}

	if s.cache != nil {
		base = append(base, compose.WithCache(s.cache))
	}

	if s.MaxDepth > 0 {
		base = append(base, compose.WithMaxDepth(s.MaxDepth))
	}

	if s.Timeout > 0 {
		base = append(base, compose.WithTimeout(s.Timeout))
	}

	x := compose.New(reg, append(base, opts...)...)
	backend.Register(x)

	return x, nil
}

// Close releases the store connections opened by the session.
func (s *Session) Close() error {
	var errs []error

	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}

	s.closers = nil

	return errors.Join(errs...)
}
