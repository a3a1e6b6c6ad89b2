package header

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/itom/program"
)

// Split separates source into the marker-stripped header text and the body.
// The header is the contiguous prefix of lines beginning with [Marker]; the
// body is everything after it, verbatim.
func Split(source string) (head string, body string) {
	var lines []string

	rest := source
	for rest != "" {
		line, next, found := strings.Cut(rest, "\n")
		if !strings.HasPrefix(line, Marker) {
			break
		}

		lines = append(lines, strings.TrimRight(line[len(Marker):], " \t\r"))

		if !found {
			rest = ""

			break
		}

		rest = next
	}

	return dedent(lines), rest
}

// Strip returns the body of source.
func Strip(source string) string {
	_, body := Split(source)

	return body
}

// Parse decodes the header of source and returns it with the body.
//
// Malformed YAML yields [program.ErrHeaderParse]. A missing header, a header
// that is not a mapping, or one without a "dsl" key yields
// [program.ErrValidation].
func Parse(source string) (Header, string, error) {
	head, body := Split(source)

	if strings.TrimSpace(head) == "" {
		return Header{}, body, program.ErrValidation.Wrap(
			errors.New("missing " + Marker + " header"),
		)
	}

	var doc any

	err := yaml.UnmarshalWithOptions([]byte(head), &doc, yaml.UseOrderedMap())
	if err != nil {
		return Header{}, body, program.ErrHeaderParse.Wrap(err)
	}

	fields, ok := doc.(yaml.MapSlice)
	if !ok {
		return Header{}, body, program.ErrValidation.Wrap(
			errors.New("header must be a mapping"),
		).With(slog.String("type", fmt.Sprintf("%T", doc)))
	}

	var h Header

	for _, item := range fields {
		key := fmt.Sprint(item.Key)

		switch key {
		case KeyDescription:
			if item.Value != nil {
				h.Description = fmt.Sprint(item.Value)
			}

		case KeyDSL:
			if item.Value != nil {
				h.DSL = strings.TrimSpace(fmt.Sprint(item.Value))
			}

		case KeyInputs:
			if m, ok := item.Value.(yaml.MapSlice); ok {
				for _, e := range m {
					h.InputOrder = append(h.InputOrder, fmt.Sprint(e.Key))
				}
			}

			h.Inputs = collection(item.Value)

		case KeyOutputs:
			h.Outputs = collection(item.Value)

		case KeyConfig:
			h.Config = collection(item.Value)
		}
	}

	if err := h.Validate(); err != nil {
		return Header{}, body, err
	}

	return h, body, nil
}

// Format renders h as marker-prefixed header lines, each terminated by a
// newline. Parsing the result yields a header equivalent to h.
func Format(h Header) string {
	s, err := FormatContext(context.Background(), h)
	if err != nil {
		// Header values originate from YAML or JSON and always encode.
		return Marker + " " + KeyDSL + ": " + h.DSL + "\n"
	}

	return s
}

// FormatContext is [Format] with a context for the YAML encoder.
func FormatContext(ctx context.Context, h Header) (string, error) {
	doc := yaml.MapSlice{{Key: KeyDSL, Value: h.DSL}}

	if h.Description != "" {
		doc = append(doc, yaml.MapItem{Key: KeyDescription, Value: h.Description})
	}

	if h.Inputs != nil {
		doc = append(doc, yaml.MapItem{Key: KeyInputs, Value: ordered(h.Inputs, h.InputOrder)})
	}

	if h.Outputs != nil {
		doc = append(doc, yaml.MapItem{Key: KeyOutputs, Value: ordered(h.Outputs, nil)})
	}

	if h.Config != nil {
		doc = append(doc, yaml.MapItem{Key: KeyConfig, Value: ordered(h.Config, nil)})
	}

	b, err := yaml.MarshalContext(ctx, doc, yaml.Indent(2))
	if err != nil {
		return "", program.ErrHeaderParse.Wrap(err)
	}

	var sb strings.Builder

	for line := range strings.Lines(strings.TrimRight(string(b), "\n")) {
		sb.WriteString(Marker)
		sb.WriteByte(' ')
		sb.WriteString(strings.TrimRight(line, "\n"))
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}

// collection converts a decoded header value into its canonical form.
// Scalars are wrapped in a one-element list.
func collection(v any) any {
	switch v.(type) {
	case nil:
		return nil
	case yaml.MapSlice, []any:
		return canonical(v)
	default:
		return []any{canonical(v)}
	}
}

// canonical converts ordered YAML mappings into plain maps and normalizes
// scalar types.
func canonical(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[fmt.Sprint(e.Key)] = canonical(e.Value)
		}

		return m

	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}

		return out

	default:
		return program.Normalize(v)
	}
}

// ordered converts a top-level mapping into a MapSlice following order,
// then sorted key order for any remaining keys.
func ordered(v any, order []string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}

	out := make(yaml.MapSlice, 0, len(m))
	for _, k := range names(m, order) {
		out = append(out, yaml.MapItem{Key: k, Value: m[k]})
	}

	return out
}

// dedent joins lines after removing their common leading whitespace.
func dedent(lines []string) string {
	prefix := -1

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}

		if n := len(line) - len(trimmed); prefix < 0 || n < prefix {
			prefix = n
		}
	}

	var sb strings.Builder

	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}

		if prefix > 0 && len(line) >= prefix {
			line = line[prefix:]
		}

		sb.WriteString(line)
	}

	return sb.String()
}
