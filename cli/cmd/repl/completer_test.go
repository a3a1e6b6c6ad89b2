package repl

import (
	"maps"
	"slices"
	"testing"
)

type fakeCatalog map[string][]string

func (c fakeCatalog) Names() []string {
	return slices.Sorted(maps.Keys(c))
}

func (c fakeCatalog) InputNames(name string) []string { return c[name] }

func TestWordBounds(t *testing.T) {
	tests := []struct {
		input  string
		cursor int
		word   string
		start  int
		end    int
	}{
		{"", 0, "", 0, 0},
		{"report", 3, "report", 0, 6},
		{"adder a=1 b", 11, "b", 10, 11},
		{"adder a=", 8, "", 8, 8},
		{"rep-ort x", 2, "rep-ort", 0, 7},
	}

	for _, tt := range tests {
		word, start, end := wordBounds(tt.input, tt.cursor)
		if word != tt.word || start != tt.start || end != tt.end {
			t.Errorf("wordBounds(%q, %d) = %q, %d, %d; want %q, %d, %d",
				tt.input, tt.cursor, word, start, end, tt.word, tt.start, tt.end)
		}
	}
}

func TestCandidates(t *testing.T) {
	cat := fakeCatalog{
		"adder":  {"a", "b"},
		"report": {"year", "title"},
	}

	tests := []struct {
		name  string
		mode  inputMode
		input string
		want  []string
	}{
		{"program names", modeRun, "ad", []string{"adder", "report"}},
		{"inputs", modeRun, "adder ", []string{"a", "b"}},
		{"unset inputs", modeRun, "adder a=1 ", []string{"b"}},
		{"value position", modeRun, "adder a=", nil},
		{"unknown program", modeRun, "nope ", nil},
		{"commands", modeCtrl, "ed", ctrlCommands},
		{"command program", modeCtrl, "edit ", []string{"adder", "report"}},
		{"command without argument", modeCtrl, "list ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, start, _ := wordBounds(tt.input, len(tt.input))

			got := candidates(cat, tt.mode, tt.input, start)
			if !slices.Equal(got, tt.want) {
				t.Errorf("candidates(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestComputeMatches(t *testing.T) {
	cat := fakeCatalog{"adder": nil, "report": nil, "readme": nil}

	matches, start, end := computeMatches(cat, modeRun, "rep", 3)
	if start != 0 || end != 3 {
		t.Errorf("bounds = %d, %d", start, end)
	}

	if len(matches) == 0 || matches[0].Str != "report" {
		t.Errorf("matches = %v, want report first", matches)
	}

	if m, _, _ := computeMatches(cat, modeRun, "", 0); m != nil {
		t.Errorf("empty word matches = %v", m)
	}
}

func TestRenderCandidateBar(t *testing.T) {
	cat := fakeCatalog{"alpha": nil, "alps": nil, "also": nil}
	matches, _, _ := computeMatches(cat, modeRun, "al", 2)

	if bar := renderCandidateBar(matches, 0, false, 80); bar == "" {
		t.Error("renderCandidateBar() = empty")
	}

	if bar := renderCandidateBar(matches, 0, false, 0); bar != "" {
		t.Errorf("renderCandidateBar(width 0) = %q", bar)
	}
}
