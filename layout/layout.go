package layout

import (
	"bufio"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/itom/program"
)

// Marker begins every directive line.
const Marker = ":::"

// ErrLayout reports a malformed or unbalanced block structure.
var ErrLayout = program.NewError("invalid layout")

// Directive names.
const (
	DirGrid     = "grid"
	DirCell     = "cell"
	DirEndGrid  = "endgrid"
	DirPanel    = "panel"
	DirEndPanel = "endpanel"
)

// DefaultPanelClass is the style class of a panel without a class attribute.
const DefaultPanelClass = "panel"

type frame struct {
	kind   string
	line   int
	inCell bool
}

// Has reports whether body contains any layout directive.
func Has(body string) bool {
	for line := range strings.Lines(body) {
		if name, _, ok := directive(line); ok && isKnown(name) {
			return true
		}
	}

	return false
}

// Apply replaces the layout directives of body with nested <div> containers
// carrying inline style hints. Lines that are not directives, including
// marker lines with an unknown directive name, are copied unchanged.
func Apply(body string) (string, error) {
	if !Has(body) {
		return body, nil
	}

	var (
		sb    strings.Builder
		stack []*frame
	)

	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}

		return stack[len(stack)-1]
	}

	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), len(body)+1)

	for n := 1; sc.Scan(); n++ {
		line := sc.Text()

		name, rest, ok := directive(line)
		if !ok || !isKnown(name) {
			sb.WriteString(line)
			sb.WriteByte('\n')

			continue
		}

		attrs, err := parseAttrs(rest)
		if err != nil {
			return "", failure(err, n, name)
		}

		switch name {
		case DirGrid:
			style, err := gridStyle(attrs)
			if err != nil {
				return "", failure(err, n, name)
			}

			openDiv(&sb, "itom-grid", attrs["class"], style)

			stack = append(stack, &frame{kind: DirGrid, line: n})

		case DirCell:
			f := top()
			if f == nil || f.kind != DirGrid {
				return "", failure(fmt.Errorf("cell outside of grid"), n, name)
			}

			style, err := cellStyle(attrs)
			if err != nil {
				return "", failure(err, n, name)
			}

			if f.inCell {
				closeDiv(&sb)
			}

			openDiv(&sb, "itom-cell", attrs["class"], style)

			f.inCell = true

		case DirPanel:
			class := attrs["class"]
			if class == "" {
				class = DefaultPanelClass
			}

			openDiv(&sb, class, "", "")

			stack = append(stack, &frame{kind: DirPanel, line: n})

		case DirEndGrid, DirEndPanel:
			want := strings.TrimPrefix(name, "end")

			f := top()
			if f == nil {
				return "", failure(fmt.Errorf("%s without %s", name, want), n, name)
			}

			if f.kind != want {
				return "", failure(
					fmt.Errorf("%s closes %s opened on line %d", name, f.kind, f.line),
					n, name,
				)
			}

			if f.inCell {
				closeDiv(&sb)
			}

			closeDiv(&sb)

			stack = stack[:len(stack)-1]
		}
	}

	if err := sc.Err(); err != nil {
		return "", ErrLayout.Wrap(err)
	}

	if f := top(); f != nil {
		return "", failure(fmt.Errorf("unclosed %s", f.kind), f.line, f.kind)
	}

	out := sb.String()
	if !strings.HasSuffix(body, "\n") {
		out = strings.TrimSuffix(out, "\n")
	}

	return out, nil
}

func failure(err error, line int, name string) error {
	return ErrLayout.Wrap(err).With(
		slog.Int("line", line),
		slog.String("directive", name),
	)
}

// directive splits a marker line into its name and attribute text.
func directive(line string) (string, string, bool) {
	s, ok := strings.CutPrefix(strings.TrimSpace(line), Marker)
	if !ok {
		return "", "", false
	}

	name, rest, _ := strings.Cut(strings.TrimSpace(s), " ")

	return strings.ToLower(name), rest, name != ""
}

func isKnown(name string) bool {
	switch name {
	case DirGrid, DirCell, DirEndGrid, DirPanel, DirEndPanel:
		return true
	default:
		return false
	}
}

// Containers are separated from their content by blank lines so that
// markdown inside them is still rendered as markdown.
func openDiv(sb *strings.Builder, class, extra, style string) {
	if extra != "" {
		class += " " + extra
	}

	fmt.Fprintf(sb, "<div class=%q", class)

	if style != "" {
		fmt.Fprintf(sb, " style=%q", style)
	}

	sb.WriteString(">\n\n")
}

func closeDiv(sb *strings.Builder) {
	sb.WriteString("\n</div>\n")
}

func gridStyle(attrs map[string]string) (string, error) {
	if err := known(attrs, "columns", "gap", "class"); err != nil {
		return "", err
	}

	columns := 1

	if s, ok := attrs["columns"]; ok {
		n, err := positive("columns", s)
		if err != nil {
			return "", err
		}

		columns = n
	}

	style := fmt.Sprintf("display:grid;grid-template-columns:repeat(%d,1fr)", columns)

	if gap := attrs["gap"]; gap != "" {
		style += ";gap:" + gap
	}

	return style, nil
}

var (
	horizontal = map[string]string{"left": "left", "center": "center", "right": "right"}
	vertical   = map[string]string{"top": "start", "middle": "center", "bottom": "end"}
)

func cellStyle(attrs map[string]string) (string, error) {
	if err := known(attrs, "span", "align", "valign", "background", "class"); err != nil {
		return "", err
	}

	var parts []string

	if s, ok := attrs["span"]; ok {
		n, err := positive("span", s)
		if err != nil {
			return "", err
		}

		parts = append(parts, "grid-column:span "+strconv.Itoa(n))
	}

	if s, ok := attrs["align"]; ok {
		v, ok := horizontal[strings.ToLower(s)]
		if !ok {
			return "", fmt.Errorf("invalid align %q", s)
		}

		parts = append(parts, "text-align:"+v)
	}

	if s, ok := attrs["valign"]; ok {
		v, ok := vertical[strings.ToLower(s)]
		if !ok {
			return "", fmt.Errorf("invalid valign %q", s)
		}

		parts = append(parts, "align-self:"+v)
	}

	if s := attrs["background"]; s != "" {
		parts = append(parts, "background:"+s)
	}

	return strings.Join(parts, ";"), nil
}

func known(attrs map[string]string, names ...string) error {
	for k := range attrs {
		if !slices.Contains(names, k) {
			return fmt.Errorf("unknown attribute %q", k)
		}
	}

	return nil
}

func positive(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}

	return n, nil
}

// parseAttrs parses space-separated key=value pairs. Values may be double
// quoted to include spaces.
func parseAttrs(s string) (map[string]string, error) {
	attrs := map[string]string{}

	for s = strings.TrimSpace(s); s != ""; s = strings.TrimSpace(s) {
		key, rest, ok := strings.Cut(s, "=")
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			return nil, fmt.Errorf("malformed attribute %q", s)
		}

		var value string

		if strings.HasPrefix(rest, `"`) {
			end := strings.Index(rest[1:], `"`)
			if end < 0 {
				return nil, fmt.Errorf("unterminated value for %q", key)
			}

			value, s = rest[1:end+1], rest[end+2:]
		} else {
			value, s, _ = strings.Cut(rest, " ")
		}

		key = strings.ToLower(key)
		if _, dup := attrs[key]; dup {
			return nil, fmt.Errorf("duplicate attribute %q", key)
		}

		attrs[key] = value
	}

	return attrs, nil
}
