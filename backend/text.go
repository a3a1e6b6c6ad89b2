package backend

import (
	"context"

	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/program"
)

// Text emits the evaluated body unchanged.
type Text struct{ markers }

// SupportedVisualTypes implements [compose.Backend].
func (Text) SupportedVisualTypes() []program.VisualType {
	return []program.VisualType{program.VisualText, program.VisualMarkdown}
}

// LocalRender implements [lang.Dialect].
func (Text) LocalRender(v any) (string, error) { return lang.Render(v) }

// Render implements [compose.Backend].
func (Text) Render(_ context.Context, req compose.Request) (*program.Output, error) {
	return program.NewTextOutput(req.VisualType, req.Body), nil
}
