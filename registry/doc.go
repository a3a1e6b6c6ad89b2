// Package registry keeps named programs, their append-only version history,
// and one append-only execution log per version.
//
// A [Registry] is backed by a [Store]. [FileStore] keeps a directory per
// program, [PostgresStore] keeps a row per program, and [MemoryStore] keeps
// nothing beyond the process.
package registry
