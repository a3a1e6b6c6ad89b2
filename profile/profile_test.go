package profile

import (
	"slices"
	"testing"
)

func TestProfiler_Start(t *testing.T) {
	for _, mode := range []string{"", "bogus"} {
		p := Profiler{Mode: mode, Dir: t.TempDir(), Quiet: true}

		s := p.Start()
		if _, ok := s.(ignore); !ok {
			t.Errorf("Start(%q) = %T, want no-op", mode, s)
		}

		s.Stop()
	}
}

func TestModes_Sorted(t *testing.T) {
	if m := Modes(); !slices.IsSorted(m) {
		t.Errorf("Modes() = %v, not sorted", m)
	}
}
