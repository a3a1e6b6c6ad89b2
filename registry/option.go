package registry

import "github.com/ardnew/itom/log"

// Option configures a [Registry].
type Option func(*Registry)

// WithLogger sets the logger used for registry diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}
