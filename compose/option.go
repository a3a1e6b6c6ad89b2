package compose

import (
	"time"

	"github.com/ardnew/itom/infer"
	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/log"
)

// DefaultMaxDepth bounds the depth of nested includes.
const DefaultMaxDepth = 32

// Option configures an [Executor].
type Option func(*Executor)

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(logger log.Logger) Option {
	return func(x *Executor) { x.logger = logger }
}

// WithInferrer sets the inferrer consulted for missing required inputs of
// executions started with [WithInference].
func WithInferrer(inf infer.Inferrer) Option {
	return func(x *Executor) { x.inferrer = inf }
}

// WithCache sets the cache of rendered outputs.
func WithCache(c Cache) Option {
	return func(x *Executor) { x.cache = c }
}

// WithMaxDepth bounds the depth of nested includes. Values below 1 select
// [DefaultMaxDepth].
func WithMaxDepth(depth int) Option {
	return func(x *Executor) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}

		x.maxDepth = depth
	}
}

// WithTimeout bounds the wall-clock time of each top-level execution.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(x *Executor) { x.timeout = d }
}

// WithEvaluatorOptions sets options passed to every body evaluator.
func WithEvaluatorOptions(opts ...lang.Option) Option {
	return func(x *Executor) { x.langOpts = append(x.langOpts, opts...) }
}

// ExecuteOption configures a single call to [Executor.Execute].
type ExecuteOption func(*call)

// WithInference enables inference of missing required inputs for the
// execution and every program it includes.
func WithInference(enable bool) ExecuteOption {
	return func(c *call) { c.infer = enable }
}
