// Package compose executes registered programs and the programs they
// include.
//
// An [Executor] looks up a program in the registry, resolves its inputs,
// evaluates its body with [lang] when the backend is a templating backend,
// applies the [layout] pass and hands the result to the backend registered
// for the program's DSL. Include units re-enter the executor on the same
// goroutine; the chain of active programs travels in the context so that a
// program including itself, directly or not, fails with
// [program.ErrCyclicComposition] instead of recursing.
//
// The visual type of an included program is negotiated: the first type the
// included program's backend supports that the including backend accepts.
// A failing include does not fail its caller. It renders inline as an error
// message, except for cycles, which always abort the whole execution.
package compose
