package lang

import (
	"context"
	"log/slog"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/program"
)

// Default unit markers.
const (
	DefaultOpen  = "{{"
	DefaultClose = "}}"
)

// Dialect is implemented by templating backends. It supplies the unit
// markers and the conversion of unit results into the backend's local
// representation.
type Dialect interface {
	Markers() (open, close string)
	LocalRender(v any) (string, error)
}

// Includer executes the program named by an include unit and returns its
// output. Failures of the included program are reported through a failed
// [program.Output]; a returned error aborts the whole evaluation.
type Includer interface {
	Include(
		ctx context.Context,
		ref string,
		positional []any,
		named map[string]any,
	) (*program.Output, error)
}

// Env holds the variables bound during one evaluation.
type Env map[string]any

// Clone returns a deep copy of e.
func (e Env) Clone() Env {
	c, _ := program.Clone(map[string]any(e)).(map[string]any)

	return Env(c)
}

// Evaluator expands the expression units embedded in a body.
type Evaluator struct {
	dialect  Dialect
	includer Includer
	logger   log.Logger
	exprOpts []expr.Option
	salt     string
	open     string
	close    string
}

// New returns an [Evaluator] for dialect. The includer may be nil, in which
// case include units fail with [ErrNoIncluder].
func New(dialect Dialect, includer Includer, opts ...Option) *Evaluator {
	e := &Evaluator{
		dialect:  dialect,
		includer: includer,
		open:     DefaultOpen,
		close:    DefaultClose,
	}

	if open, close := dialect.Markers(); open != "" && close != "" {
		e.open, e.close = open, close
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate scans body once from left to right, replacing each unit
// enclosed by the dialect's markers with its rendered value.
//
// The environment starts as a deep copy of inputs and is returned with every
// assignment applied. An open marker without a matching close marker ends
// the scan; the rest of the body is copied unchanged. If a unit cannot be
// evaluated or rendered, Evaluate returns the text produced so far along
// with the error.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	body string,
	inputs map[string]any,
) (string, Env, error) {
	env := Env(inputs).Clone()
	if env == nil {
		env = Env{}
	}

	var sb strings.Builder

	pos := 0

	for pos < len(body) {
		if err := ctx.Err(); err != nil {
			return sb.String(), env, err
		}

		i := strings.Index(body[pos:], e.open)
		if i < 0 {
			break
		}

		start := pos + i
		inner := start + len(e.open)

		end := findClose(body, inner, e.close)
		if end < 0 {
			e.logger.TraceContext(ctx, "unclosed unit",
				slog.Int("offset", start))

			sb.WriteString(body[pos:])
			pos = len(body)

			break
		}

		sb.WriteString(body[pos:start])

		unit := strings.TrimSpace(body[inner:end])

		v, emit, err := e.unit(ctx, unit, env)
		if err != nil {
			return sb.String(), env, program.AsError(err).
				With(positionAt(body, start).Attr(), unitAttr(unit))
		}

		if emit {
			s, err := e.dialect.LocalRender(v)
			if err != nil {
				return sb.String(), env, program.AsError(err).
					With(positionAt(body, start).Attr(), unitAttr(unit))
			}

			sb.WriteString(s)
		}

		e.logger.TraceContext(ctx, "unit evaluated",
			unitAttr(unit), slog.Bool("emit", emit))

		pos = end + len(e.close)
	}

	if pos < len(body) {
		sb.WriteString(body[pos:])
	}

	return sb.String(), env, nil
}

// unit evaluates one unit. Assignments bind a variable and emit nothing.
func (e *Evaluator) unit(ctx context.Context, unit string, env Env) (any, bool, error) {
	if name, rhs, ok := splitAssignment(unit); ok {
		v, err := e.eval(ctx, rhs, env)
		if err != nil {
			return nil, false, err
		}

		env[name] = v

		return nil, false, nil
	}

	v, err := e.eval(ctx, unit, env)

	return v, true, err
}

// eval evaluates an expression, trying in order: access chains, include
// calls, bound identifiers, literals, and finally compiled expressions.
func (e *Evaluator) eval(ctx context.Context, s string, env Env) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	if chain, ok := parseAccess(s); ok {
		return e.access(ctx, chain, env)
	}

	if call, ok, err := parseInclude(s); ok || err != nil {
		if err != nil {
			return nil, err
		}

		return e.include(ctx, call, env)
	}

	if isIdentifier(s) {
		if v, ok := env[s]; ok {
			return v, nil
		}

		if v, ok := keywords[s]; ok {
			return v, nil
		}

		return nil, ErrUnbound.With(slog.String("identifier", s))
	}

	if v, err := ParseLiteral(s); err == nil {
		return v, nil
	}

	return e.expr(ctx, s, env)
}

// splitAssignment recognizes "name = expr", rejecting "name == expr".
func splitAssignment(unit string) (string, string, bool) {
	sc := newScanner(unit)

	name := sc.scanIdentifier()
	if name == "" {
		return "", "", false
	}

	sc.skipWhitespace()

	if !sc.hasPrefix("=") || sc.hasPrefix("==") {
		return "", "", false
	}

	sc.advance()

	return name, sc.rest(), true
}

// positionAt returns the position of offset within s.
func positionAt(s string, offset int) Position {
	before := s[:offset]
	line := strings.Count(before, "\n") + 1
	col := offset - strings.LastIndexByte(before, '\n')

	return Position{Offset: offset, Line: line, Column: col}
}
