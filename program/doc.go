// Package program defines the values exchanged between the registry, the
// expression evaluator, the composition executor and rendering backends:
// execution [Input] and [Output] records, the [VisualType] tag, the shared
// [Error] taxonomy, and helpers for copying and fingerprinting input values.
package program
