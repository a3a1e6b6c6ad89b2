// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// The package offers configurable time formatting, caller information,
// and output formats that are applied at logger creation time using
// functional options.
//
// # Basic Usage
//
//	logger := log.Make(os.Stdout)
//	logger.Info("program added", slog.String("program", "adder"))
//	logger.Error("render failed", slog.Any("error", err))
//
// # Configuration
//
//	logger := log.Make(os.Stdout,
//		log.WithLevel(log.LevelDebug),
//		log.WithTimeLayout("RFC3339Nano"),
//		log.WithCaller(true))
//
// The zero [Logger] discards everything, so components accept a Logger
// option and work without one.
//
// # Levels
//
// In addition to the four [log/slog] levels, [LevelTrace] sits below
// [LevelDebug] for per-unit evaluation detail.
//
// # Package-level logger
//
// [Config] adjusts the package-level logger used by [Info], [DebugContext]
// and friends. The CLI configures it once from its log flag group.
package log
