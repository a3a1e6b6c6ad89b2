package lang

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// IncludeFunc is the name of the include unit form.
const IncludeFunc = "include"

// call is a parsed include unit.
type call struct {
	ref        string // quoted literal or identifier
	positional []string
	named      []namedArg
}

type namedArg struct {
	name string
	expr string
}

// parseInclude recognizes include(ref, args...). The returned bool reports
// whether s has the include form at all; the error reports a malformed
// argument list.
func parseInclude(s string) (call, bool, error) {
	sc := newScanner(s)

	if sc.scanIdentifier() != IncludeFunc {
		return call{}, false, nil
	}

	sc.skipWhitespace()

	if sc.peek() != '(' {
		return call{}, false, nil
	}

	open := sc.pos
	if err := sc.skipBalanced(); err != nil {
		return call{}, true, ErrInclude.Wrap(err)
	}

	if !sc.eof() {
		// "include(a) + 1" and similar are left to the expression compiler.
		return call{}, false, nil
	}

	args, err := splitTopLevel(s[open+1:sc.pos-1], ',')
	if err != nil {
		return call{}, true, ErrInclude.Wrap(err)
	}

	if strings.TrimSpace(args[0]) == "" {
		return call{}, true, ErrInclude.Wrap(errors.New("missing program reference"))
	}

	c := call{ref: strings.TrimSpace(args[0])}

	for _, arg := range args[1:] {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return call{}, true, ErrInclude.Wrap(errors.New("empty argument"))
		}

		if name, rhs, ok := splitAssignment(arg); ok {
			c.named = append(c.named, namedArg{name: name, expr: rhs})
		} else {
			c.positional = append(c.positional, arg)
		}
	}

	return c, true, nil
}

// include evaluates the arguments of c in env and invokes the includer.
func (e *Evaluator) include(ctx context.Context, c call, env Env) (any, error) {
	if e.includer == nil {
		return nil, ErrNoIncluder
	}

	ref, err := e.reference(c.ref, env)
	if err != nil {
		return nil, err
	}

	positional := make([]any, 0, len(c.positional))

	for _, arg := range c.positional {
		v, err := e.eval(ctx, arg, env)
		if err != nil {
			return nil, err
		}

		positional = append(positional, v)
	}

	named := make(map[string]any, len(c.named))

	for _, arg := range c.named {
		if _, dup := named[arg.name]; dup {
			return nil, ErrInclude.Wrap(errors.New("duplicate argument")).
				With(slog.String("argument", arg.name))
		}

		v, err := e.eval(ctx, arg.expr, env)
		if err != nil {
			return nil, err
		}

		named[arg.name] = v
	}

	e.logger.TraceContext(ctx, "include",
		slog.String("program", ref),
		slog.Int("positional", len(positional)),
		slog.Int("named", len(named)))

	return e.includer.Include(ctx, ref, positional, named)
}

// reference resolves the program reference of an include: a quoted name or
// an identifier bound to a string.
func (e *Evaluator) reference(ref string, env Env) (string, error) {
	if q := ref[0]; q == '"' || q == '\'' {
		v, err := ParseLiteral(ref)
		if s, ok := v.(string); err == nil && ok {
			return s, nil
		}

		return "", ErrInclude.Wrap(errors.New("malformed program reference")).
			With(slog.String("reference", ref))
	}

	if isIdentifier(ref) {
		v, ok := env[ref]
		if !ok {
			return "", ErrUnbound.With(slog.String("identifier", ref))
		}

		if s, ok := v.(string); ok {
			return s, nil
		}
	}

	return "", ErrInclude.Wrap(errors.New("program reference is not a string")).
		With(slog.String("reference", ref))
}

// Includes returns the literal program references of every include unit in
// body, in order of first appearance. References held in variables cannot
// be resolved statically and are omitted.
func Includes(body, open, close string) []string {
	if open == "" || close == "" {
		open, close = DefaultOpen, DefaultClose
	}

	var refs []string

	seen := map[string]bool{}

	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	pos := 0

	for {
		i := strings.Index(body[pos:], open)
		if i < 0 {
			return refs
		}

		inner := pos + i + len(open)

		end := findClose(body, inner, close)
		if end < 0 {
			return refs
		}

		collectIncludes(body[inner:end], add)

		pos = end + len(close)
	}
}

func collectIncludes(s string, add func(string)) {
	s = strings.TrimSpace(s)

	if _, rhs, ok := splitAssignment(s); ok {
		s = strings.TrimSpace(rhs)
	}

	c, ok, err := parseInclude(s)
	if !ok || err != nil {
		return
	}

	if q := c.ref[0]; q == '"' || q == '\'' {
		if v, err := ParseLiteral(c.ref); err == nil {
			if ref, ok := v.(string); ok {
				add(ref)
			}
		}
	}

	for _, arg := range c.positional {
		collectIncludes(arg, add)
	}

	for _, arg := range c.named {
		collectIncludes(arg.expr, add)
	}
}
