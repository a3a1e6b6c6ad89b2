package repl

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/itom/header"
)

// signatureHintStyle styles for parameter hints.
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	signatureSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// programCall describes the program invocation being typed.
type programCall struct {
	name     string // program name (first word)
	argIndex int    // index of the argument under the cursor
	argKey   string // input named by the argument under the cursor, if any
	inArgs   bool   // true if the cursor is past the program name
}

// detectCall analyzes input up to cursor. The first word names the program
// and each following word is one argument.
func detectCall(input string, cursor int) programCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	words, err := fields(input[:cursor])
	if err != nil || len(words) == 0 {
		// An unterminated quote or bracket still counts as one argument.
		words = strings.Fields(input[:cursor])
	}

	if len(words) == 0 {
		return programCall{}
	}

	call := programCall{name: words[0]}

	trailing := cursor > 0 && input[cursor-1] == ' '
	if len(words) == 1 && !trailing {
		return call
	}

	call.inArgs = true

	if trailing {
		call.argIndex = len(words) - 1

		return call
	}

	call.argIndex = len(words) - 2

	if key, _, ok := assignment(words[len(words)-1]); ok {
		call.argKey = key
	}

	return call
}

// inputLabel renders one input of a signature. Required inputs are marked
// with "!" and inputs with a default show it.
func inputLabel(spec header.InputSpec) string {
	switch {
	case spec.Required:
		return spec.Name + "!"
	case spec.HasDefault:
		if s, ok := spec.Default.(string); ok {
			return spec.Name + "=" + `"` + s + `"`
		}

		return spec.Name + "=" + formatValue(spec.Default)
	default:
		return spec.Name
	}
}

// renderSignatureHint renders the inputs of a program with the current one
// highlighted. The current input is the one named by call.argKey, or the
// positional input at call.argIndex.
func renderSignatureHint(call programCall, specs []header.InputSpec) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(call.name))
	b.WriteString(signatureStyle.Render("("))

	for i, spec := range specs {
		if i > 0 {
			b.WriteString(signatureSeparatorStyle.Render(", "))
		}

		current := call.inArgs &&
			((call.argKey != "" && call.argKey == spec.Name) ||
				(call.argKey == "" && call.argIndex == i))

		if current {
			b.WriteString(currentParamStyle.Render(inputLabel(spec)))
		} else {
			b.WriteString(signatureStyle.Render(inputLabel(spec)))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
