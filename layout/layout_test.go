package layout

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/itom/program"
)

func TestApply_Unchanged(t *testing.T) {
	for _, body := range []string{
		"",
		"plain text",
		"# title\n\nparagraph\n",
		"::: note\nadmonition from another tool\n:::\n",
	} {
		got, err := Apply(body)
		if err != nil {
			t.Fatalf("Apply(%q) error = %v", body, err)
		}

		if got != body {
			t.Errorf("Apply(%q) = %q", body, got)
		}
	}
}

func TestApply_Grid(t *testing.T) {
	body := `before
::: grid columns=2 gap=1em
::: cell align=center background="rgb(1, 2, 3)"
left
::: cell span=2 valign=bottom
right
::: endgrid
after
`

	got, err := Apply(body)
	if err != nil {
		t.Fatal(err)
	}

	want := `before
<div class="itom-grid" style="display:grid;grid-template-columns:repeat(2,1fr);gap:1em">

<div class="itom-cell" style="text-align:center;background:rgb(1, 2, 3)">

left

</div>
<div class="itom-cell" style="grid-column:span 2;align-self:end">

right

</div>

</div>
after
`

	if got != want {
		t.Errorf("Apply() =\n%s\nwant\n%s", got, want)
	}
}

func TestApply_NestedPanel(t *testing.T) {
	body := "::: panel\n::: grid\n::: cell\n::: panel class=tightpanel\nx\n::: endpanel\n::: endgrid\n::: endpanel"

	got, err := Apply(body)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Count(got, "<div") != 4 || strings.Count(got, "</div>") != 4 {
		t.Errorf("unbalanced containers:\n%s", got)
	}

	if !strings.HasPrefix(got, `<div class="panel">`) {
		t.Errorf("missing default panel class:\n%s", got)
	}

	if !strings.Contains(got, `<div class="tightpanel">`) {
		t.Errorf("missing panel class:\n%s", got)
	}

	if strings.HasSuffix(got, "\n") {
		t.Error("trailing newline added")
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		line int64
	}{
		{"unclosed grid", "::: grid columns=2\n::: cell\nx\n", 1},
		{"unclosed inner panel", "::: grid\n::: panel\n::: endgrid\n", 3},
		{"stray end", "x\n::: endpanel\n", 2},
		{"cell outside grid", "::: cell\n", 1},
		{"cell inside panel in grid", "::: grid\n::: panel\n::: cell\n", 3},
		{"bad columns", "::: grid columns=zero\n::: endgrid\n", 1},
		{"bad align", "::: grid\n::: cell align=up\n::: endgrid\n", 2},
		{"unknown attribute", "::: grid rows=2\n::: endgrid\n", 1},
		{"malformed attribute", "::: panel class\n::: endpanel\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.body)
			if !errors.Is(err, ErrLayout) {
				t.Fatalf("Apply() error = %v, want %v", err, ErrLayout)
			}

			if v, ok := program.AsError(err).Attr("line"); !ok || v.Int64() != tt.line {
				t.Errorf("line = %v, want %d", v, tt.line)
			}
		})
	}
}

func TestHas(t *testing.T) {
	if Has("text\n::: other\n") {
		t.Error("unknown directive detected as layout")
	}

	if !Has("text\n  :::   GRID columns=1\n") {
		t.Error("grid directive not detected")
	}
}
