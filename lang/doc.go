// Package lang evaluates the expression units embedded in program bodies.
//
// A unit is the text between a dialect's open and close markers, "{{" and
// "}}" by default. Units are evaluated in a single left-to-right pass and
// each is replaced by its rendered value:
//
//	{{ name = expr }}        bind name; emits nothing
//	{{ expr }}               emit the rendered value of expr
//
// An expression is tried, in order, as:
//
//   - an access chain, x.field or x[key] or x[0], over mappings, sequences
//     and included outputs (an output exposes only .data)
//   - an include, include("name", 1, b=2), which runs another program
//     through the configured [Includer]
//   - a bound identifier or one of the keywords true, false and null
//   - a literal: quoted string, number, [sequence] or {mapping}
//   - an expr-lang expression compiled against the current bindings
//
// Expression evaluation is sandboxed: the environment holds only the bound
// variables, and builtins that read the clock are removed.
//
// Each evaluation starts from a deep copy of its inputs. Assignments never
// leak into the caller's inputs or into included programs.
package lang
