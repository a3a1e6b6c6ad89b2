// Package artifact persists rendered outputs so that repeated executions
// with identical requests can skip their backend.
//
// A [Cache] implements compose.Cache over any [Store]. Stores are provided
// for a local directory ([FileStore]) and for S3-compatible object storage
// ([MinioStore]).
package artifact

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/program"
)

// ErrStore reports a failure of the underlying storage.
var ErrStore = program.NewError("artifact store failed")

// Store holds encoded outputs by key. Get reports a missing key with
// ok == false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte) error
}

// Cache stores outputs as JSON in a [Store].
type Cache struct {
	store  Store
	logger log.Logger
	ttl    time.Duration
}

// Option configures a [Cache].
type Option func(*Cache)

// WithTTL discards entries whose output ended more than ttl ago.
// Zero keeps entries forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New returns a [Cache] over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the output stored under key. Entries that cannot be decoded
// or have expired are reported as missing.
func (c *Cache) Get(ctx context.Context, key string) (*program.Output, bool, error) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	out := new(program.Output)

	if err := json.Unmarshal(data, out); err != nil {
		c.logger.WarnContext(ctx, "discarding undecodable artifact",
			slog.String("key", key), slog.Any("error", err))

		return nil, false, nil
	}

	if c.ttl > 0 && time.Since(out.End()) > c.ttl {
		c.logger.TraceContext(ctx, "artifact expired", slog.String("key", key))

		return nil, false, nil
	}

	return out, true, nil
}

// Put stores out under key. Failed outputs are not stored.
func (c *Cache) Put(ctx context.Context, key string, out *program.Output) error {
	if out == nil || !out.Succeeded() {
		return nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return ErrStore.Wrap(err).With(slog.String("key", key))
	}

	return c.store.Put(ctx, key, data)
}
