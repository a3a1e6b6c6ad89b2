package lang

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// scanner walks a string rune by rune while tracking its position.
type scanner struct {
	input string
	pos   int
	line  int
	col   int
}

func newScanner(s string) *scanner {
	return &scanner{input: s, line: 1, col: 1}
}

func (s *scanner) peek() rune {
	if s.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(s.input[s.pos:])

	return r
}

func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.input[s.pos:], prefix)
}

func (s *scanner) advance() {
	if s.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(s.input[s.pos:])

	s.pos += size
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
}

// advanceN advances over the next n bytes, which must not split a rune.
func (s *scanner) advanceN(n int) {
	for end := s.pos + n; s.pos < end && !s.eof(); {
		s.advance()
	}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.input)
}

func (s *scanner) rest() string {
	return s.input[s.pos:]
}

func (s *scanner) position() Position {
	return Position{Offset: s.pos, Line: s.line, Column: s.col}
}

func (s *scanner) skipWhitespace() {
	for !s.eof() && unicode.IsSpace(s.peek()) {
		s.advance()
	}
}

// skipString advances past a quoted string starting at the current quote.
// Backslash escapes the following rune.
func (s *scanner) skipString() error {
	quote := s.peek()
	start := s.position()

	s.advance() // skip opening quote

	for !s.eof() {
		ch := s.peek()
		if ch == '\\' {
			s.advance() // skip backslash

			if !s.eof() {
				s.advance() // skip escaped char
			}

			continue
		}

		s.advance()

		if ch == quote {
			return nil
		}
	}

	return ErrUnterminated.With(start.Attr())
}

// scanIdentifier consumes an identifier, returning "" if none starts here.
func (s *scanner) scanIdentifier() string {
	start := s.pos

	if !isIdentifierStart(s.peek()) {
		return ""
	}

	for !s.eof() && isIdentifierContinue(s.peek()) {
		s.advance()
	}

	return s.input[start:s.pos]
}

// skipBalanced advances past a bracketed group starting at the current
// opening bracket. Quoted strings inside the group are skipped whole.
func (s *scanner) skipBalanced() error {
	start := s.position()

	var stack []rune

	for !s.eof() {
		switch ch := s.peek(); ch {
		case '"', '\'':
			if err := s.skipString(); err != nil {
				return err
			}

			continue

		case '(', '[', '{':
			stack = append(stack, closing(ch))

		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != ch {
				return ErrUnbalanced.With(s.position().Attr())
			}

			stack = stack[:len(stack)-1]

			if len(stack) == 0 {
				s.advance()

				return nil
			}
		}

		s.advance()
	}

	return ErrUnbalanced.With(start.Attr())
}

func closing(open rune) rune {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

// splitTopLevel splits s on sep wherever sep is outside quotes and brackets.
func splitTopLevel(s string, sep rune) ([]string, error) {
	var parts []string

	sc := newScanner(s)
	last := 0

	for !sc.eof() {
		switch ch := sc.peek(); {
		case ch == '"' || ch == '\'':
			if err := sc.skipString(); err != nil {
				return nil, err
			}

		case ch == '(' || ch == '[' || ch == '{':
			if err := sc.skipBalanced(); err != nil {
				return nil, err
			}

		case ch == ')' || ch == ']' || ch == '}':
			return nil, ErrUnbalanced.With(sc.position().Attr())

		case ch == sep:
			parts = append(parts, s[last:sc.pos])
			sc.advance()
			last = sc.pos

		default:
			sc.advance()
		}
	}

	return append(parts, s[last:]), nil
}

// findClose returns the offset in s of the first close marker at or after
// from that is not inside a quoted string, or -1.
func findClose(s string, from int, close string) int {
	sc := newScanner(s)
	sc.pos = from

	for !sc.eof() {
		if sc.hasPrefix(close) {
			return sc.pos
		}

		switch sc.peek() {
		case '"', '\'':
			if sc.skipString() != nil {
				return -1
			}

		default:
			sc.advance()
		}
	}

	return -1
}

// Character classification

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentifierContinue(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// isIdentifier reports whether s is exactly one identifier.
func isIdentifier(s string) bool {
	sc := newScanner(s)

	return sc.scanIdentifier() != "" && sc.eof()
}
