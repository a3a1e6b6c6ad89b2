package repl

import (
	"strings"
	"testing"

	"github.com/ardnew/itom/header"
)

func TestDetectCall(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  programCall
	}{
		{
			name:  "empty",
			input: "",
			want:  programCall{},
		},
		{
			name:  "typing program name",
			input: "repo",
			want:  programCall{name: "repo"},
		},
		{
			name:  "after program name",
			input: "report ",
			want:  programCall{name: "report", inArgs: true},
		},
		{
			name:  "first argument",
			input: "report 20",
			want:  programCall{name: "report", inArgs: true},
		},
		{
			name:  "second argument",
			input: "adder 1 ",
			want:  programCall{name: "adder", inArgs: true, argIndex: 1},
		},
		{
			name:  "named argument",
			input: "adder 1 b=4",
			want:  programCall{name: "adder", inArgs: true, argIndex: 1, argKey: "b"},
		},
		{
			name:  "unterminated quote",
			input: `greet name="Ada`,
			want:  programCall{name: "greet", inArgs: true, argKey: "name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectCall(tt.input, len(tt.input)); got != tt.want {
				t.Errorf("detectCall(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInputLabel(t *testing.T) {
	tests := []struct {
		spec header.InputSpec
		want string
	}{
		{header.InputSpec{Name: "a", Required: true}, "a!"},
		{header.InputSpec{Name: "n", HasDefault: true, Default: 3}, "n=3"},
		{header.InputSpec{Name: "s", HasDefault: true, Default: "hi"}, `s="hi"`},
		{header.InputSpec{Name: "x"}, "x"},
	}

	for _, tt := range tests {
		if got := inputLabel(tt.spec); got != tt.want {
			t.Errorf("inputLabel(%+v) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestRenderSignatureHint(t *testing.T) {
	specs := []header.InputSpec{{Name: "a", Required: true}, {Name: "b"}}

	got := renderSignatureHint(programCall{name: "adder", inArgs: true, argIndex: 1}, specs)

	for _, want := range []string{"adder", "a!", "b"} {
		if !strings.Contains(got, want) {
			t.Errorf("renderSignatureHint() = %q, missing %q", got, want)
		}
	}
}
