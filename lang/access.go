package lang

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/itom/program"
)

// DataField is the only field of an included output visible to access
// chains.
const DataField = "data"

// accessor is one step of an access chain: either ".name" or "[expr]".
type accessor struct {
	field string
	index string
	isIdx bool
}

func (a accessor) String() string {
	if a.isIdx {
		return "[" + a.index + "]"
	}

	return "." + a.field
}

// chain is a bound identifier or an include call followed by one or more
// accessors.
type chain struct {
	base  string
	call  string // include call text when the base is an include
	steps []accessor
}

// parseAccess recognizes s as an identifier or include call followed by at
// least one ".field" or "[expr]" step, consuming all of s.
func parseAccess(s string) (chain, bool) {
	sc := newScanner(s)

	c := chain{base: sc.scanIdentifier()}
	if c.base == "" {
		return chain{}, false
	}

	if c.base == IncludeFunc && sc.peek() == '(' {
		if sc.skipBalanced() != nil {
			return chain{}, false
		}

		c.call = s[:sc.pos]
	}

	for !sc.eof() {
		switch sc.peek() {
		case '.':
			sc.advance()

			field := sc.scanIdentifier()
			if field == "" {
				return chain{}, false
			}

			c.steps = append(c.steps, accessor{field: field})

		case '[':
			start := sc.pos
			if sc.skipBalanced() != nil {
				return chain{}, false
			}

			c.steps = append(c.steps, accessor{
				index: s[start+1 : sc.pos-1],
				isIdx: true,
			})

		default:
			return chain{}, false
		}
	}

	return c, len(c.steps) > 0
}

// access resolves an access chain against env.
func (e *Evaluator) access(ctx context.Context, c chain, env Env) (any, error) {
	cur, path, err := e.base(ctx, c, env)
	if err != nil {
		return nil, err
	}

	for _, step := range c.steps {
		key := step.field

		if step.isIdx {
			k, err := e.eval(ctx, step.index, env)
			if err != nil {
				return nil, err
			}

			if idx, ok := k.(int); ok {
				if list, ok := cur.([]any); ok {
					if idx < 0 || idx >= len(list) {
						return nil, ErrIllegalAccess.Wrap(
							fmt.Errorf("index %d out of range [0,%d)", idx, len(list)),
						).With(slog.String("path", path))
					}

					cur = list[idx]
					path += step.String()

					continue
				}
			}

			key = render(k)
		}

		next, err := lookup(cur, key, step.isIdx)
		if err != nil {
			return nil, program.AsError(err).With(slog.String("path", path+step.String()))
		}

		cur = next
		path += step.String()
	}

	return cur, nil
}

func (e *Evaluator) base(ctx context.Context, c chain, env Env) (any, string, error) {
	if c.call != "" {
		inc, _, err := parseInclude(c.call)
		if err != nil {
			return nil, "", err
		}

		v, err := e.include(ctx, inc, env)

		return v, IncludeFunc + "(...)", err
	}

	v, ok := env[c.base]
	if !ok {
		return nil, "", ErrUnbound.With(slog.String("identifier", c.base))
	}

	return v, c.base, nil
}

// lookup resolves one named step. An included output exposes only its data
// outputs: ".data" yields all of them and "[key]" a single one. Every step
// from a failed output yields the failure itself.
func lookup(base any, key string, indexed bool) (any, error) {
	switch t := base.(type) {
	case *program.Output:
		if !t.Succeeded() {
			return t, nil
		}

		if !indexed {
			if key != DataField {
				return nil, ErrIllegalAccess.Wrap(
					fmt.Errorf("output has no field %q", key),
				)
			}

			return t.Data(), nil
		}

		if v, ok := t.Datum(key); ok {
			return v, nil
		}

		return nil, ErrIllegalAccess.Wrap(fmt.Errorf("output has no data %q", key))

	case map[string]any:
		if v, ok := t[key]; ok {
			return v, nil
		}

		return nil, ErrIllegalAccess.Wrap(fmt.Errorf("no key %q", key))

	default:
		return nil, ErrIllegalAccess.Wrap(
			fmt.Errorf("cannot access %q of %s", key, typeName(base)),
		)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *program.Output:
		return "output"
	case map[string]any:
		return "mapping"
	case []any:
		return "sequence"
	case string:
		return "string"
	case int, float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
