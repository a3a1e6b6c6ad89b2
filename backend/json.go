package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/program"
)

// ErrInvalidJSON reports a body that is not valid JSON after evaluation.
var ErrInvalidJSON = program.NewError("invalid json document")

// JSON renders bodies that evaluate to a JSON document. Units render as
// JSON literals, so "{{ name }}" with name bound to a string emits a quoted
// string. If the document is an object, its members become data outputs.
type JSON struct{ markers }

// SupportedVisualTypes implements [compose.Backend].
func (JSON) SupportedVisualTypes() []program.VisualType {
	return []program.VisualType{program.VisualJSON}
}

// IncludableVisualTypes implements [compose.Includer].
func (JSON) IncludableVisualTypes() []program.VisualType {
	return []program.VisualType{program.VisualJSON, program.VisualText, program.VisualMarkdown}
}

// LocalRender implements [lang.Dialect]. An included JSON output is spliced
// as its document; any other output as a JSON string of its rendering.
func (JSON) LocalRender(v any) (string, error) {
	if out, ok := v.(*program.Output); ok {
		if out.Succeeded() && out.VisualType() == program.VisualJSON {
			return out.Text(), nil
		}

		v = lang.RenderOutput(out)
	}

	b, err := json.Marshal(jsonValue(v))
	if err != nil {
		return "", lang.ErrUnconvertible.Wrap(err).With(slog.String("type", fmt.Sprintf("%T", v)))
	}

	return string(b), nil
}

// Render implements [compose.Backend].
func (JSON) Render(_ context.Context, req compose.Request) (*program.Output, error) {
	body := strings.TrimSpace(req.Body)

	doc, err := program.DecodeJSON([]byte(body))
	if err != nil || !json.Valid([]byte(body)) {
		if err == nil {
			err = errors.New("trailing data after document")
		}

		return nil, ErrInvalidJSON.Wrap(err).With(slog.String("program", req.Program))
	}

	var opts []program.OutputOption

	if m, ok := doc.(map[string]any); ok {
		opts = append(opts, program.WithData(maps.Clone(m)))
	}

	return program.NewTextOutput(program.VisualJSON, body, opts...), nil
}

// jsonValue replaces nested outputs by their data so that they marshal as
// plain values.
func jsonValue(v any) any {
	switch t := v.(type) {
	case *program.Output:
		return t.Data()
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = jsonValue(e)
		}

		return m
	case []any:
		l := make([]any, len(t))
		for i, e := range t {
			l[i] = jsonValue(e)
		}

		return l
	default:
		return v
	}
}
