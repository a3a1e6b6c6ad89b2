package backend_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/itom/backend"
	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/program"
	"github.com/ardnew/itom/registry"
)

func TestMarkdown_HTML(t *testing.T) {
	out, err := backend.Markdown{}.Render(t.Context(), compose.Request{
		Description: "a <report>",
		Body:        "# Title",
		VisualType:  program.VisualHTML,
	})
	if err != nil {
		t.Fatal(err)
	}

	got := out.Text()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>a &lt;report&gt;</title>",
		".panel",
		"<body>\n# Title\n</body>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("document lacks %q:\n%s", want, got)
		}
	}

	if out.VisualType() != program.VisualHTML {
		t.Errorf("VisualType() = %q", out.VisualType())
	}
}

func TestJSON_LocalRender(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", `"s"`},
		{3, "3"},
		{nil, "null"},
		{[]any{1, "a"}, `[1,"a"]`},
		{program.NewTextOutput(program.VisualJSON, `{"a":1}`), `{"a":1}`},
		{program.NewTextOutput(program.VisualText, "x"), `"x"`},
		{
			map[string]any{"o": program.NewTextOutput(program.VisualText, "x",
				program.WithData(map[string]any{"k": 1}))},
			`{"o":{"k":1}}`,
		},
	}

	for _, tt := range tests {
		got, err := backend.JSON{}.LocalRender(tt.in)
		if err != nil {
			t.Fatalf("LocalRender(%v) error = %v", tt.in, err)
		}

		if got != tt.want {
			t.Errorf("LocalRender(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestJSON_Render(t *testing.T) {
	out, err := backend.JSON{}.Render(t.Context(), compose.Request{Body: ` {"a": 1} `})
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := out.Datum("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}

	for _, body := range []string{"{", `{"a": 1} x`, ""} {
		if _, err := (backend.JSON{}).Render(t.Context(), compose.Request{Body: body}); !errors.Is(err, backend.ErrInvalidJSON) {
			t.Errorf("Render(%q) error = %v, want %v", body, err, backend.ErrInvalidJSON)
		}
	}
}

func TestRegister(t *testing.T) {
	reg, err := registry.New(t.Context(), registry.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}

	x := compose.New(reg)
	backend.Register(x)

	got := strings.Join(x.DSLs(), ",")
	if got != "basic,json,markdown,text" {
		t.Errorf("DSLs() = %s", got)
	}

	sources := map[string]string{
		"sum":  "#@ dsl: json\n#@ inputs: [a, b]\n{\"total\": {{ a + b }}, \"name\": {{ n = 'sum' }}{{ n }}}",
		"page": "#@ dsl: basic\n#@ description: Page\nsum is {{ include('sum', 2, 3).data.total }}",
	}

	for name, src := range sources {
		if err := reg.Add(t.Context(), name, src, false); err != nil {
			t.Fatal(err)
		}
	}

	out, err := x.Execute(t.Context(), "page", program.NewInput(nil), program.VisualHTML, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.Text(), "sum is 5") {
		t.Errorf("Execute() = %s", out.Text())
	}

	out, err = x.Execute(t.Context(), "sum", program.NewInput(map[string]any{"a": 1, "b": 1}), "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if out.Text() != `{"total": 2, "name": "sum"}` {
		t.Errorf("Execute() = %s", out.Text())
	}
}
