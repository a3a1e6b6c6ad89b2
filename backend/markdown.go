package backend

import (
	"context"
	"html"
	"strings"

	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/program"
)

// Markdown treats the evaluated body as markdown. The html visual type
// wraps the body in a standalone document carrying the panel and block
// styles used by layout containers; conversion of the markdown itself is
// left to the viewer.
type Markdown struct{ markers }

// SupportedVisualTypes implements [compose.Backend].
func (Markdown) SupportedVisualTypes() []program.VisualType {
	return []program.VisualType{
		program.VisualMarkdown,
		program.VisualHTML,
		program.VisualText,
	}
}

// IncludableVisualTypes implements [compose.Includer]. Images are inlined
// as data URIs and JSON documents as their text.
func (Markdown) IncludableVisualTypes() []program.VisualType {
	return []program.VisualType{
		program.VisualMarkdown,
		program.VisualHTML,
		program.VisualPNG,
		program.VisualText,
		program.VisualJSON,
	}
}

// LocalRender implements [lang.Dialect].
func (Markdown) LocalRender(v any) (string, error) { return lang.Render(v) }

// Render implements [compose.Backend].
func (Markdown) Render(_ context.Context, req compose.Request) (*program.Output, error) {
	if req.VisualType != program.VisualHTML {
		return program.NewTextOutput(req.VisualType, req.Body), nil
	}

	return program.NewTextOutput(program.VisualHTML, Document(req.Description, req.Body)), nil
}

// StyleSheet styles the containers produced by the layout pass.
const StyleSheet = `body {
  background-color: rgb(246,190,23);
  margin: 0;
}
h1, p {
  margin: 0.25em 0;
}
.panel, .tightpanel {
  background-color: rgb(229,228,228);
  border-radius: 12px;
  padding: 1em;
  margin: 1em 0;
  box-shadow: 0 3px 9px rgba(0,0,0,0.08);
  font-family: system-ui, -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
  line-height: 1.2;
}
.tightpanel {
  line-height: 1;
}
.block {
  padding: 1em;
  margin: 1em 0;
}
.tightblock {
  padding: 0.5em;
  margin: 1em 0;
}`

// Document returns body in a minimal HTML document.
func Document(title, body string) string {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")

	if title != "" {
		sb.WriteString("<title>" + html.EscapeString(title) + "</title>\n")
	}

	sb.WriteString("<style>\n" + StyleSheet + "\n</style>\n</head>\n<body>\n")
	sb.WriteString(body)

	if !strings.HasSuffix(body, "\n") {
		sb.WriteByte('\n')
	}

	sb.WriteString("</body>\n</html>\n")

	return sb.String()
}
