package lang

import (
	"context"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/itom/program"
)

// Builtins removed from the expression environment. Bodies must render the
// same way every time they are evaluated with the same inputs.
var disabledBuiltins = []string{"now", "date", "timezone"}

// expr compiles and runs s against a view of env.
func (e *Evaluator) expr(ctx context.Context, s string, env Env) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vars := make(map[string]any, len(env))
	for k, v := range env {
		vars[k] = exprValue(v)
	}

	opts := make([]expr.Option, 0, len(disabledBuiltins)+len(e.exprOpts)+1)
	opts = append(opts, expr.Env(vars))

	for _, name := range disabledBuiltins {
		opts = append(opts, expr.DisableBuiltin(name))
	}

	opts = append(opts, e.exprOpts...)

	prog, err := compile(s, vars, e.salt, opts)
	if err != nil {
		return nil, ErrLiteral.Wrap(err).With(slog.String("expression", s))
	}

	result, err := vm.Run(prog, vars)
	if err != nil {
		return nil, ErrExprEvaluate.Wrap(err).With(slog.String("expression", s))
	}

	return program.Normalize(result), nil
}

// exprValue exposes included outputs to expressions as {"data": {...}}.
func exprValue(v any) any {
	switch t := v.(type) {
	case *program.Output:
		return map[string]any{DataField: t.Data()}

	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = exprValue(e)
		}

		return m

	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = exprValue(e)
		}

		return l

	default:
		return v
	}
}
