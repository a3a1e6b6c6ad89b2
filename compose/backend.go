package compose

import (
	"context"
	"slices"

	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/program"
)

// Backend renders a prepared program body.
//
// SupportedVisualTypes lists the visual types the backend can produce, most
// preferred first. Backends that also implement [lang.Dialect] have their
// bodies evaluated before Render is called.
type Backend interface {
	SupportedVisualTypes() []program.VisualType
	Render(ctx context.Context, req Request) (*program.Output, error)
}

// Includer is implemented by backends that accept only some visual types
// from included programs. Backends that do not implement it accept any of
// their own supported types.
type Includer interface {
	IncludableVisualTypes() []program.VisualType
}

// Request is everything a backend needs to render one execution.
type Request struct {
	// Inputs are the resolved input values: caller values over schema
	// defaults, plus any inferred values.
	Inputs map[string]any
	// Env holds the variables bound when the body was evaluated. For
	// backends that are not a [lang.Dialect] it holds the inputs.
	Env lang.Env
	// Config is the program config overlaid with the caller's config.
	Config map[string]any

	Program     string
	DSL         string
	Description string
	// Body is the program body after evaluation and the layout pass.
	Body       string
	VisualType program.VisualType
	// Outputs are the declared data output names.
	Outputs []string
}

// includable returns the visual types b accepts from included programs.
func includable(b Backend) []program.VisualType {
	if inc, ok := b.(Includer); ok {
		return inc.IncludableVisualTypes()
	}

	return b.SupportedVisualTypes()
}

// negotiate returns the first of supported that accept contains.
func negotiate(supported, accept []program.VisualType) (program.VisualType, bool) {
	for _, v := range supported {
		if slices.Contains(accept, v) {
			return v, true
		}
	}

	return "", false
}
