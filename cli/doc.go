// Package cli contains the command line interface for itom.
//
// # Usage
//
//	itom add report.itom -r          # register report and what it includes
//	itom run report -i year=2024     # render report with its default visual type
//	itom run chart -f png -o c.png   # binary outputs go to a file
//	itom curry report report2024 year=2024
//	itom inspect report --graph
//
// # Configuration
//
// Flags may also be set in config.yaml (or config.json) in the user config
// directory. Nested YAML mappings are joined with hyphens and underscores
// stand for hyphens, so both of these set --log-level:
//
//	log:
//	  level: debug
//
//	log_level: debug
//
// Run "itom init" to write the current flag values to the config file.
//
// # Stores
//
// Programs live in a directory store (--store-dir) unless a PostgreSQL URL is
// given with --store-url. Rendered artifacts are cached when --cache-dir or
// --minio-endpoint is set.
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o itom .
//	itom --pprof-mode=cpu run report
package cli
