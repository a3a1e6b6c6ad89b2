// Package profile provides optional runtime profiling for itom.
//
// Profiling integrates [github.com/pkg/profile] and must be enabled at build
// time with the "pprof" build tag. Without the tag every [Profiler] is a
// no-op and [Modes] is empty.
//
//	p := profile.Profiler{Mode: "cpu", Dir: "/tmp/profiles"}
//	defer p.Start().Stop()
//
// From the command line:
//
//	go build -tags pprof -o itom .
//	./itom --pprof-mode=cpu run report
//
// Profiles are written under the cache directory by default
// ($XDG_CACHE_HOME/itom/pprof on Linux) and are read with:
//
//	go tool pprof -http=: ./itom cpu.pprof
//
// When built with the tag the package also imports [net/http/pprof], which
// registers its handlers on [net/http.DefaultServeMux].
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`

// Stopper ends a profiling session.
type Stopper interface{ Stop() }

// Profiler describes one profiling session.
type Profiler struct {
	// Mode selects the profile kind; see [Modes]. Empty disables profiling.
	Mode string
	// Dir is the output directory. Empty selects a temporary directory.
	Dir string
	// Quiet suppresses the profiler's own log output.
	Quiet bool
}

// Start begins profiling and returns the session to stop. Start and Stop are
// always safe to call, even when profiling is unavailable or p.Mode is not a
// known mode.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
