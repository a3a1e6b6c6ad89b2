package repl

import "github.com/ardnew/itom/program"

// Sentinel errors.
var (
	ErrOutOfBounds  = program.NewError("index out of range")
	ErrEditDeclined = program.NewError("decline edit")
	ErrSyntax       = program.NewError("invalid command line")
)
