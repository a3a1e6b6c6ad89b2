package program

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
)

func TestError_Is_MatchesSentinel(t *testing.T) {
	cause := errors.New("disk on fire")

	err := ErrNotFound.Wrap(cause).With(slog.String("program", "adder"))

	if !errors.Is(err, ErrNotFound) {
		t.Error("derived error does not match its sentinel")
	}
	if errors.Is(err, ErrExists) {
		t.Error("derived error matches an unrelated sentinel")
	}
	if !errors.Is(err, cause) {
		t.Error("derived error does not unwrap to its cause")
	}

	if v, ok := err.Attr("program"); !ok || v.String() != "adder" {
		t.Errorf("Attr(program) = %v, %v", v, ok)
	}

	if got, want := err.Error(), "program not found: disk on fire"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_Is_ThroughNestedWrap(t *testing.T) {
	inner := ErrCyclicComposition.With(slog.String("chain", "a -> b -> a"))
	outer := ErrBackendExecution.Wrap(inner)

	if !errors.Is(outer, ErrCyclicComposition) {
		t.Error("outer error hides the cyclic composition cause")
	}
	if !errors.Is(outer, ErrBackendExecution) {
		t.Error("outer error does not match its own sentinel")
	}

	if got := AsError(fmt.Errorf("ctx: %w", outer)); got != outer {
		t.Errorf("AsError() = %v, want %v", got, outer)
	}
}

func TestError_LogValue(t *testing.T) {
	err := ErrValidation.With(slog.String("field", "dsl"))
	group := err.LogValue().Group()

	if len(group) != 2 || group[0].Value.String() != "validation failed" {
		t.Errorf("LogValue() = %v", group)
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := map[string]any{
		"list": []any{1, map[string]any{"k": "v"}},
		"map":  map[string]any{"n": 1},
	}

	c, _ := Clone(orig).(map[string]any)
	c["list"].([]any)[1].(map[string]any)["k"] = "changed"
	c["map"].(map[string]any)["n"] = 2

	if orig["list"].([]any)[1].(map[string]any)["k"] != "v" {
		t.Error("Clone shares nested list elements")
	}
	if orig["map"].(map[string]any)["n"] != 1 {
		t.Error("Clone shares nested maps")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"uint64", uint64(3), "3 int"},
		{"int64", int64(-4), "-4 int"},
		{"float32", float32(0.5), "0.5 float64"},
		{"json int", json.Number("7"), "7 int"},
		{"json float", json.Number("7.5"), "7.5 float64"},
		{"any map", map[any]any{1: "x"}, "map[1:x] map[string]interface {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Normalize(tt.in)
			if got := fmt.Sprintf("%v %T", v, v); got != tt.want {
				t.Errorf("Normalize(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestOutput_Immutable(t *testing.T) {
	data := map[string]any{"total": 3}
	out := NewTextOutput(VisualText, "3", WithData(data), WithProgram("adder"))

	data["total"] = 4
	out.Data()["total"] = 5

	if v, _ := out.Datum("total"); v != 3 {
		t.Errorf("Datum(total) = %v, want 3", v)
	}

	derived := out.With(WithData(map[string]any{"total": 6}))
	if v, _ := out.Datum("total"); v != 3 {
		t.Errorf("With modified the receiver: total = %v", v)
	}
	if v, _ := derived.Datum("total"); v != 6 {
		t.Errorf("derived total = %v, want 6", v)
	}
	if derived.Program() != "adder" {
		t.Errorf("derived program = %q", derived.Program())
	}
}

func TestOutput_Failure(t *testing.T) {
	out := NewFailure(ErrNotFound, WithData(map[string]any{"x": 1}))

	if out.Succeeded() {
		t.Error("failure reports success")
	}
	if out.Err() != "program not found" {
		t.Errorf("Err() = %q", out.Err())
	}
	if len(out.Data()) != 0 || out.Text() != "" {
		t.Error("failure carries a payload or data")
	}
}

func TestOutput_JSON(t *testing.T) {
	tests := []*Output{
		NewTextOutput(VisualMarkdown, "# hi", WithData(map[string]any{"n": 2})),
		NewOutput(VisualPNG, []byte{0x89, 'P', 'N', 'G', 0}),
		NewFailure(errors.New("boom")),
	}

	for _, want := range tests {
		b, err := json.Marshal(want)
		if err != nil {
			t.Fatal(err)
		}

		got := new(Output)
		if err := json.Unmarshal(b, got); err != nil {
			t.Fatal(err)
		}

		if got.Text() != want.Text() ||
			got.VisualType() != want.VisualType() ||
			got.Succeeded() != want.Succeeded() ||
			got.Err() != want.Err() ||
			fmt.Sprint(got.Data()) != fmt.Sprint(want.Data()) {
			t.Errorf("round trip of %s lost information", b)
		}
	}
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := Fingerprint(
		map[string]any{"a": 1, "b": []any{1, 2}},
		map[string]any{"model": "x"},
		[]string{"total", "avg"},
	)
	b := Fingerprint(
		map[string]any{"b": []any{1, 2}, "a": 1, "_forceRefresh": true},
		map[string]any{"model": "x"},
		[]string{"avg", "total"},
	)

	if a != b {
		t.Errorf("fingerprints differ: %s != %s", a, b)
	}

	c := Fingerprint(map[string]any{"a": 2, "b": []any{1, 2}}, nil, nil)
	if a == c {
		t.Error("different inputs share a fingerprint")
	}
}
