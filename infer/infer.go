// Package infer synthesizes values for program inputs that a caller did not
// supply.
package infer

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/ardnew/itom/program"
)

// ErrInfer reports that no value could be synthesized.
var ErrInfer = program.NewError("input inference failed")

// Request describes the input to synthesize.
type Request struct {
	// Program is the program whose input is missing.
	Program string
	// Description is the description of Program.
	Description string
	// Input is the name of the missing input.
	Input string
	// InputDescription is the description of the input, if any.
	InputDescription string
	// Caller is the program that included Program; empty at top level.
	Caller string
}

// Attrs returns r as structured logging attributes.
func (r Request) Attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("program", r.Program),
		slog.String("input", r.Input),
		slog.String("caller", r.Caller),
	}
}

// Inferrer produces a value for a missing input.
type Inferrer interface {
	Infer(ctx context.Context, req Request) (any, error)
}

// Func adapts a function to the [Inferrer] interface.
type Func func(ctx context.Context, req Request) (any, error)

// Infer implements [Inferrer].
func (f Func) Infer(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// Static answers from a fixed table keyed by "program.input" or, failing
// that, by input name alone.
type Static map[string]any

// Infer implements [Inferrer].
func (s Static) Infer(_ context.Context, req Request) (any, error) {
	if v, ok := s[req.Program+"."+req.Input]; ok {
		return program.Clone(v), nil
	}

	if v, ok := s[req.Input]; ok {
		return program.Clone(v), nil
	}

	return nil, ErrInfer.Wrap(fmt.Errorf("no value among %v", slices.Sorted(maps.Keys(s)))).
		With(req.Attrs()...)
}
