package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

// literal keywords and the values they denote.
var keywords = map[string]any{
	"true":  true,
	"True":  true,
	"false": false,
	"False": false,
	"null":  nil,
	"None":  nil,
	"nil":   nil,
}

// errNotLiteral reports that text is well formed so far but is not a
// literal; callers fall back to expression evaluation.
var errNotLiteral = errors.New("not a literal")

// ParseLiteral parses s as a literal value: a number, a quoted string, a
// boolean, null, or a list or mapping of literals.
//
// Integers yield int, other numbers float64, lists []any and mappings
// map[string]any.
func ParseLiteral(s string) (any, error) {
	p := literalParser{newScanner(s)}

	p.skipWhitespace()

	v, err := p.value()
	if err != nil {
		return nil, err
	}

	p.skipWhitespace()

	if !p.eof() {
		return nil, ErrTrailingSource.With(p.position().Attr(), unitAttr(s))
	}

	return v, nil
}

type literalParser struct{ *scanner }

func (p literalParser) value() (any, error) {
	switch ch := p.peek(); {
	case ch == '"' || ch == '\'':
		return p.str()

	case ch == '[':
		return p.list()

	case ch == '{':
		return p.mapping()

	case ch == '-' || ch == '+' || ch == '.' || unicode.IsDigit(ch):
		return p.number()

	case isIdentifierStart(ch):
		start := p.position()

		word := p.scanIdentifier()
		if v, ok := keywords[word]; ok {
			return v, nil
		}

		return nil, ErrLiteral.Wrap(errNotLiteral).
			With(start.Attr(), slog.String("identifier", word))

	default:
		return nil, ErrLiteral.Wrap(errNotLiteral).With(p.position().Attr())
	}
}

func (p literalParser) str() (string, error) {
	start := p.pos

	if err := p.skipString(); err != nil {
		return "", err
	}

	return unquote(p.input[start:p.pos]), nil
}

func (p literalParser) number() (any, error) {
	start := p.pos
	pos := p.position()

	if ch := p.peek(); ch == '-' || ch == '+' {
		p.advance()
	}

	digits := 0
	float := false

scan:
	for !p.eof() {
		ch := p.peek()

		switch {
		case unicode.IsDigit(ch) || ch == '_':
			digits++
		case ch == '.' && !float:
			float = true
		case (ch == 'e' || ch == 'E') && digits > 0:
			float = true

			p.advance()

			if c := p.peek(); c == '-' || c == '+' {
				p.advance()
			}

			continue
		default:
			break scan
		}

		p.advance()
	}

	text := strings.ReplaceAll(p.input[start:p.pos], "_", "")
	if digits == 0 {
		return nil, ErrLiteral.Wrap(errNotLiteral).With(pos.Attr())
	}

	if !float {
		if i, err := strconv.Atoi(text); err == nil {
			return i, nil
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, ErrLiteral.Wrap(err).With(pos.Attr())
	}

	return f, nil
}

func (p literalParser) list() ([]any, error) {
	start := p.position()

	p.advance() // skip '['

	out := []any{}

	for {
		p.skipWhitespace()

		if p.eof() {
			return nil, ErrUnbalanced.With(start.Attr())
		}

		if p.peek() == ']' {
			p.advance()

			return out, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}

		out = append(out, v)

		if err := p.separator(']'); err != nil {
			return nil, err
		}
	}
}

func (p literalParser) mapping() (map[string]any, error) {
	start := p.position()

	p.advance() // skip '{'

	out := map[string]any{}

	for {
		p.skipWhitespace()

		if p.eof() {
			return nil, ErrUnbalanced.With(start.Attr())
		}

		if p.peek() == '}' {
			p.advance()

			return out, nil
		}

		key, err := p.key()
		if err != nil {
			return nil, err
		}

		p.skipWhitespace()

		if p.peek() != ':' {
			return nil, ErrLiteral.Wrap(errNotLiteral).With(p.position().Attr())
		}

		p.advance()
		p.skipWhitespace()

		v, err := p.value()
		if err != nil {
			return nil, err
		}

		out[key] = v

		if err := p.separator('}'); err != nil {
			return nil, err
		}
	}
}

func (p literalParser) key() (string, error) {
	switch ch := p.peek(); {
	case ch == '"' || ch == '\'':
		return p.str()

	case isIdentifierStart(ch):
		return p.scanIdentifier(), nil

	case unicode.IsDigit(ch) || ch == '-':
		v, err := p.number()
		if err != nil {
			return "", err
		}

		return render(v), nil

	default:
		return "", ErrLiteral.Wrap(errNotLiteral).With(p.position().Attr())
	}
}

// separator consumes a ',' or peeks at the closing bracket. The end of
// input is left for the caller to report as unbalanced.
func (p literalParser) separator(end rune) error {
	p.skipWhitespace()

	if p.eof() {
		return nil
	}

	switch p.peek() {
	case ',':
		p.advance()

		return nil
	case end:
		return nil
	default:
		return ErrLiteral.Wrap(errNotLiteral).With(p.position().Attr())
	}
}

// unquote removes the surrounding quotes of a string literal and resolves
// backslash escapes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}

	s = s[1 : len(s)-1]
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var sb strings.Builder

	escaped := false

	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				sb.WriteRune(r)
			}

			continue
		}

		escaped = false

		switch r {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
