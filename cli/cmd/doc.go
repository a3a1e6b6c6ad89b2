// Package cmd implements the itom subcommands.
//
// Every command reads its shared state from a [Session] stored in the
// [context.Context] passed to its Run method. The session opens the program
// store and the artifact cache on first use, so commands that need neither
// (version, init) never touch them.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"

	// StoreIdentifier is the kong variable identifier containing the path to
	// the default program store directory.
	StoreIdentifier = "store"
)
