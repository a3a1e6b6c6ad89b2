package cmd

import (
	"context"
	"fmt"
)

// Curry registers a copy of a program with some inputs bound.
type Curry struct {
	Name     string   `arg:"" help:"Program to copy."`
	New      string   `arg:"" help:"Name of the new program."`
	Bindings []string `arg:"" help:"Bound inputs key=value."  optional:"" placeholder:"KEY=VALUE"`
}

// Run executes the curry command.
func (c *Curry) Run(ctx context.Context) error {
	s := sessionFrom(ctx)

	bound, err := parseAssignments(c.Bindings)
	if err != nil {
		return err
	}

	reg, err := s.Registry(ctx)
	if err != nil {
		return err
	}

	if _, err := reg.Curry(ctx, c.Name, bound, c.New); err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.out(), "added %s\n", c.New)

	return err
}
