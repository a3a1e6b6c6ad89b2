package lang

import (
	"errors"
	"testing"

	"github.com/ardnew/itom/program"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "s", "s"},
		{"int", 12, "12"},
		{"int64", int64(12), "12"},
		{"float", 0.25, "0.25"},
		{"whole float", 4.0, "4"},
		{"bool", false, "false"},
		{"sequence", []any{1, "a", nil}, "[1, a, ]"},
		{"mapping", map[string]any{"b": 1, "a": []any{2}}, "a: [2]\nb: 1"},
		{"output", program.NewTextOutput(program.VisualMarkdown, "# hi"), "# hi"},
		{"failure", program.NewFailure(errors.New("bad")), "ERROR: bad"},
		{
			"png",
			program.NewOutput(program.VisualPNG, []byte{0x89, 'P', 'N', 'G'}),
			"![png](data:image/png;base64,iVBORw==)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.in)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_Unconvertible(t *testing.T) {
	for _, v := range []any{func() {}, make(chan int), []any{func() {}}} {
		if _, err := Render(v); !errors.Is(err, ErrUnconvertible) {
			t.Errorf("Render(%T) error = %v, want %v", v, err, ErrUnconvertible)
		}
	}
}
