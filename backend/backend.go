// Package backend provides the lightweight rendering backends bundled with
// itom. All of them are templating backends: their bodies are evaluated by
// [lang] before rendering.
package backend

import (
	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/lang"
)

// DSL identifiers of the bundled backends.
const (
	DSLText     = "text"
	DSLMarkdown = "markdown"
	DSLBasic    = "basic"
	DSLJSON     = "json"
)

// Register registers every bundled backend with x. The markdown backend is
// also registered as "basic".
func Register(x *compose.Executor) {
	x.Register(DSLText, Text{})
	x.Register(DSLMarkdown, Markdown{})
	x.Register(DSLBasic, Markdown{})
	x.Register(DSLJSON, JSON{})
}

// markers selects the default unit markers.
type markers struct{}

// Markers implements [lang.Dialect].
func (markers) Markers() (string, string) { return lang.DefaultOpen, lang.DefaultClose }
