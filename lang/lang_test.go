package lang

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/ardnew/itom/program"
)

type testDialect struct{ open, close string }

func (d testDialect) Markers() (string, string) { return d.open, d.close }

func (testDialect) LocalRender(v any) (string, error) { return Render(v) }

type includeCall struct {
	ref        string
	positional []any
	named      map[string]any
}

// adder sums its inputs a and b, taken positionally or by name.
type adder struct {
	mu    sync.Mutex
	calls []includeCall
}

func (a *adder) Include(
	_ context.Context,
	ref string,
	positional []any,
	named map[string]any,
) (*program.Output, error) {
	a.mu.Lock()
	a.calls = append(a.calls, includeCall{ref, positional, named})
	a.mu.Unlock()

	if ref == "broken" {
		return program.NewFailure(errors.New("boom"), program.WithProgram(ref)), nil
	}

	if ref != "adder" {
		return nil, program.ErrNotFound
	}

	args := map[string]any{}
	for i, name := range []string{"a", "b"} {
		if i < len(positional) {
			args[name] = positional[i]
		}
	}

	for k, v := range named {
		args[k] = v
	}

	x, _ := args["a"].(int)
	y, _ := args["b"].(int)

	return program.NewTextOutput(
		program.VisualText,
		fmt.Sprintf("%d+%d", x, y),
		program.WithData(map[string]any{"total": x + y}),
		program.WithProgram(ref),
	), nil
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		inputs map[string]any
		want   string
	}{
		{"assignment then use", "{{x = 2 + 3}}{{x}}", nil, "5"},
		{"no units", "plain *markdown* text\n", nil, "plain *markdown* text\n"},
		{"string literal", "a {{ 'b' }} c", nil, "a b c"},
		{"sequence", "{{ [1, 2, 'three'] }}", nil, "[1, 2, three]"},
		{"mapping", "{{ {b: 2, a: 1} }}", nil, "a: 1\nb: 2"},
		{"boolean", "{{ true }}", nil, "true"},
		{"null", "[{{ null }}]", nil, "[]"},
		{"float arithmetic", "{{ 1.5 * 2 }}", nil, "3"},
		{"input", "hello {{ who }}", map[string]any{"who": "world"}, "hello world"},
		{"index chain", "{{ m = {k: [10, 20]} }}{{ m.k[1] }}", nil, "20"},
		{"key index", "{{ m = {k: 'v'} }}{{ m['k'] }}", nil, "v"},
		{"string concat", "{{ s = 'x' }}{{ s + 'y' }}", nil, "xy"},
		{"comparison", "{{ n = 3 }}{{ n == 3 }}", nil, "true"},
		{"unclosed unit", "a {{ b", nil, "a {{ b"},
		{"marker in string", "{{ '}}' }}", nil, "}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testDialect{}, nil)

			got, _, err := e.Evaluate(t.Context(), tt.body, tt.inputs)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}

			if got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"unbound", "{{ missing }}", ErrUnbound},
		{"missing key", "{{ m = {} }}{{ m.k }}", ErrIllegalAccess},
		{"index out of range", "{{ l = [1] }}{{ l[3] }}", ErrIllegalAccess},
		{"field of scalar", "{{ n = 1 }}{{ n.x }}", ErrIllegalAccess},
		{"no includer", "{{ include('adder') }}", ErrNoIncluder},
		{"bad expression", "{{ 1 + }}", ErrLiteral},
		{"clock is unavailable", "{{ now() }}", ErrLiteral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testDialect{}, nil)

			_, _, err := e.Evaluate(t.Context(), tt.body, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Evaluate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluate_ErrorPosition(t *testing.T) {
	e := New(testDialect{}, nil)

	out, _, err := e.Evaluate(t.Context(), "ok\n  {{ missing }} rest", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	if out != "ok\n  " {
		t.Errorf("partial output = %q", out)
	}

	ee := program.AsError(err)

	if v, ok := ee.Attr("unit"); !ok || v.String() != "missing" {
		t.Errorf("unit attr = %v, %v", v, ok)
	}

	pos, ok := ee.Attr("position")
	if !ok {
		t.Fatal("missing position attr")
	}

	for _, a := range pos.Group() {
		switch a.Key {
		case "line":
			if a.Value.Int64() != 2 {
				t.Errorf("line = %d, want 2", a.Value.Int64())
			}
		case "column":
			if a.Value.Int64() != 3 {
				t.Errorf("column = %d, want 3", a.Value.Int64())
			}
		}
	}
}

func TestEvaluate_InputsAreIsolated(t *testing.T) {
	inputs := map[string]any{"x": 1, "l": []any{1}}

	e := New(testDialect{}, nil)

	got, env, err := e.Evaluate(t.Context(), "{{x = 2}}{{x}}", inputs)
	if err != nil {
		t.Fatal(err)
	}

	if got != "2" {
		t.Errorf("got %q, want %q", got, "2")
	}

	if inputs["x"] != 1 {
		t.Errorf("inputs mutated: x = %v", inputs["x"])
	}

	if env["x"] != 2 {
		t.Errorf("env x = %v, want 2", env["x"])
	}

	env["l"].([]any)[0] = 99

	if inputs["l"].([]any)[0] != 1 {
		t.Error("env shares storage with inputs")
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	body := "{{ m = {z: 1, a: [1, 2.5, 'x']} }}{{ m }} {{ m.a[1] * 2 }}"
	e := New(testDialect{}, nil)

	first, _, err := e.Evaluate(t.Context(), body, nil)
	if err != nil {
		t.Fatal(err)
	}

	for range 5 {
		got, _, err := e.Evaluate(t.Context(), body, nil)
		if err != nil {
			t.Fatal(err)
		}

		if got != first {
			t.Fatalf("got %q, want %q", got, first)
		}
	}
}

func TestEvaluate_CustomMarkers(t *testing.T) {
	e := New(testDialect{open: "<%", close: "%>"}, nil)

	got, _, err := e.Evaluate(t.Context(), "{{ x }} <% 1 + 1 %>", nil)
	if err != nil {
		t.Fatal(err)
	}

	if got != "{{ x }} 2" {
		t.Errorf("got %q", got)
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	e := New(testDialect{}, nil)

	if _, _, err := e.Evaluate(ctx, "{{ 1 }}", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestEvaluate_Include(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"data access", "{{ o = include('adder', 1, b=2) }}{{ o.data.total }}", "3"},
		{"data index", "{{ o = include('adder', 1, 2) }}{{ o['total'] }}", "3"},
		{"inline payload", "{{ include('adder', 1, 2) }}", "1+2"},
		{"reference variable", "{{ n = 'adder' }}{{ o = include(n, a=1, b=1) }}{{ o.data.total }}", "2"},
		{"expression over data", "{{ o = include('adder', 1, 2) }}{{ o.data.total * 10 }}", "30"},
		{"nested include", "{{ o = include('adder', include('adder', 1, 1).data.total, 5) }}{{ o.data.total }}", "7"},
		{"failed include", "{{ include('broken') }}", "ERROR: boom"},
		{"failed include data", "{{ r = include('broken') }}{{ r.data.total }} after", "ERROR: boom after"},
		{"failed include index", "{{ r = include('broken') }}[{{ r['total'] }}]", "[ERROR: boom]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testDialect{}, &adder{})

			got, _, err := e.Evaluate(t.Context(), tt.body, nil)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}

			if got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvaluate_IncludeArguments(t *testing.T) {
	inc := &adder{}
	e := New(testDialect{}, inc)

	_, _, err := e.Evaluate(t.Context(), "{{ x = 4 }}{{ include('adder', x, b=[1, 'two']) }}", nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(inc.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(inc.calls))
	}

	call := inc.calls[0]

	if call.ref != "adder" {
		t.Errorf("ref = %q", call.ref)
	}

	if !reflect.DeepEqual(call.positional, []any{4}) {
		t.Errorf("positional = %#v", call.positional)
	}

	if !reflect.DeepEqual(call.named, map[string]any{"b": []any{1, "two"}}) {
		t.Errorf("named = %#v", call.named)
	}
}

func TestEvaluate_IncludeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"duplicate argument", "{{ include('adder', a=1, a=2) }}", ErrInclude},
		{"non-string reference", "{{ include(1) }}", ErrInclude},
		{"unbound reference", "{{ include(name) }}", ErrUnbound},
		{"empty argument", "{{ include('adder', , 1) }}", ErrInclude},
		{"includer error", "{{ include('unknown') }}", program.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(testDialect{}, &adder{})

			if _, _, err := e.Evaluate(t.Context(), tt.body, nil); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIncludes(t *testing.T) {
	body := `{{ a = include('x') }}
{{ include("y", include('z'), k=include('w')) }}
{{ include('x') }}{{ include(v) }}{{ "include('q')" }}`

	got := Includes(body, "", "")
	want := []string{"x", "y", "z", "w"}

	if !slices.Equal(got, want) {
		t.Errorf("Includes() = %v, want %v", got, want)
	}
}

func TestClearCache(t *testing.T) {
	e := New(testDialect{}, nil)

	if _, _, err := e.Evaluate(t.Context(), "{{ 1 + 2 }}", nil); err != nil {
		t.Fatal(err)
	}

	ClearCache()

	got, _, err := e.Evaluate(t.Context(), "{{ 1 + 2 }}", nil)
	if err != nil {
		t.Fatal(err)
	}

	if got != "3" {
		t.Errorf("got %q", got)
	}
}

func TestCacheKey(t *testing.T) {
	tests := []struct {
		a, b [3]string
	}{
		{[3]string{"x", "y", ""}, [3]string{"y", "x", ""}},
		{[3]string{"x", "", "s"}, [3]string{"x", "s", ""}},
		{[3]string{"ab", "c", ""}, [3]string{"a", "bc", ""}},
		{[3]string{"x", "x", ""}, [3]string{"y", "y", ""}},
	}

	for _, tt := range tests {
		ka := cacheKey(tt.a[0], tt.a[1], tt.a[2])
		kb := cacheKey(tt.b[0], tt.b[1], tt.b[2])

		if ka == kb {
			t.Errorf("cacheKey(%q) == cacheKey(%q)", tt.a, tt.b)
		}
	}
}
