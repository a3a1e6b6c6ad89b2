package compose

import (
	"context"
	"slices"
	"strings"
)

type stackKey struct{}

// callStack returns the names of the programs currently executing in ctx,
// outermost first.
func callStack(ctx context.Context) []string {
	s, _ := ctx.Value(stackKey{}).([]string)

	return s
}

// push returns a context whose call stack has name on top.
func push(ctx context.Context, name string) context.Context {
	s := callStack(ctx)

	return context.WithValue(ctx, stackKey{}, append(slices.Clip(s), name))
}

// chain formats a call stack followed by next, e.g. "a -> b -> a".
func chain(stack []string, next string) string {
	return strings.Join(append(slices.Clone(stack), next), " -> ")
}
