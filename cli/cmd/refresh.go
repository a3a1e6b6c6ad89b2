package cmd

import (
	"context"
	"fmt"
)

// Refresh re-reads every program source from the store.
type Refresh struct{}

// Run executes the refresh command.
func (*Refresh) Run(ctx context.Context) error {
	s := sessionFrom(ctx)

	reg, err := s.Registry(ctx)
	if err != nil {
		return err
	}

	names, err := reg.Refresh(ctx)

	for _, name := range names {
		fmt.Fprintf(s.out(), "refreshed %s\n", name)
	}

	return err
}
