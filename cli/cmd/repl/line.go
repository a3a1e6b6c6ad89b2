package repl

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/ardnew/itom/lang"
)

// fields splits s at whitespace that is outside quotes and brackets.
func fields(s string) ([]string, error) {
	var (
		out   []string
		cur   strings.Builder
		quote rune
		depth int
	)

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '{':
			depth++
		case r == ']' || r == '}':
			depth--
		case unicode.IsSpace(r) && depth <= 0:
			flush()

			continue
		}

		cur.WriteRune(r)
	}

	if quote != 0 || depth > 0 {
		return nil, ErrSyntax.Wrap(fmt.Errorf("unbalanced quotes or brackets")).
			With(slog.String("line", s))
	}

	flush()

	return out, nil
}

// assignment splits a "key=value" argument. Arguments whose text before
// the first "=" is not a plain identifier are positional.
func assignment(arg string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(arg, "=")
	if !ok || key == "" {
		return "", arg, false
	}

	for _, r := range key {
		if r != '_' && r != '-' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", arg, false
		}
	}

	return key, value, true
}

// parseValue reads raw as a literal, falling back to the raw string.
func parseValue(raw string) any {
	if v, err := lang.ParseLiteral(raw); err == nil {
		return v
	}

	return raw
}

// bindArgs assigns positional arguments to inputs in declaration order and
// named arguments by key.
func bindArgs(args, inputs []string) (map[string]any, error) {
	values := make(map[string]any, len(args))
	pos := 0

	for _, arg := range args {
		key, raw, named := assignment(arg)

		if !named {
			if pos >= len(inputs) {
				return nil, ErrSyntax.Wrap(
					fmt.Errorf("too many positional arguments"),
				).With(slog.Int("declared", len(inputs)))
			}

			key = inputs[pos]
			pos++
		}

		if _, dup := values[key]; dup {
			return nil, ErrSyntax.Wrap(
				fmt.Errorf("input %q given more than once", key),
			).With(slog.String("input", key))
		}

		values[key] = parseValue(raw)
	}

	return values, nil
}
