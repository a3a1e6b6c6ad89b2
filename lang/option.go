package lang

import (
	"github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/ardnew/itom/log"
)

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithLogger sets the logger used for per-unit diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithExprOptions appends options passed to the expression compiler used
// for units that are not literals, for example additional functions.
// Expressions compiled with these options are cached separately from
// those of every other evaluator.
func WithExprOptions(opts ...expr.Option) Option {
	return func(e *Evaluator) {
		e.exprOpts = append(e.exprOpts, opts...)
		e.salt = uuid.NewString()
	}
}
