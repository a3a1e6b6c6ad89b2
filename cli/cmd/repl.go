package cmd

import (
	"context"
	"strings"

	"github.com/ardnew/itom/cli/cmd/repl"
	"github.com/ardnew/itom/pkg"
)

// Repl starts the interactive program runner.
type Repl struct {
	Line    []string `arg:"" optional:"" help:"Initial input line."`
	History bool     `negatable:"" default:"true" help:"Persist input history in the cache directory."`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	s := sessionFrom(ctx)

	x, err := s.Executor(ctx)
	if err != nil {
		return err
	}

	var dir string
	if r.History {
		dir = pkg.CacheDir()
	}

	return repl.Run(ctx, x, strings.Join(r.Line, " "), dir, s.Logger)
}
