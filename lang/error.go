package lang

import (
	"log/slog"

	"github.com/ardnew/itom/program"
)

// Predefined errors (sentinel values).
var (
	ErrIllegalAccess  = program.NewError("illegal access")
	ErrUnbound        = program.NewError("unbound identifier")
	ErrLiteral        = program.NewError("invalid expression")
	ErrUnconvertible  = program.NewError("value cannot be rendered")
	ErrInclude        = program.NewError("invalid include")
	ErrNoIncluder     = program.NewError("include is not available")
	ErrExprEvaluate   = program.NewError("expression evaluation failed")
	ErrUnterminated   = program.NewError("unterminated string")
	ErrUnbalanced     = program.NewError("unbalanced brackets")
	ErrTrailingSource = program.NewError("unexpected trailing input")
)

// Position identifies a location within a body.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Attr returns p as a structured logging attribute.
func (p Position) Attr() slog.Attr {
	return slog.Group("position",
		slog.Int("offset", p.Offset),
		slog.Int("line", p.Line),
		slog.Int("column", p.Column),
	)
}

func unitAttr(unit string) slog.Attr {
	return slog.String("unit", unit)
}
