package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{
	"help", "list", "show", "edit", "inspect", "format", "refresh", "clear", "quit",
}

// ctrlTakesProgram lists the control commands whose argument is a program.
var ctrlTakesProgram = []string{"show", "edit", "inspect"}

// isWordBoundary returns true if the rune is a word delimiter for completion
// purposes. Hyphens are excluded because program and input names may
// contain them.
func isWordBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '=', ',', '[', ']', '{', '}':
		return true
	}

	return false
}

// wordBounds returns the current word at the cursor position and its byte
// boundaries within input.
// Returns an empty word when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// catalog supplies the names offered as completions.
type catalog interface {
	Names() []string
	InputNames(program string) []string
}

// candidates returns the completions for the word starting at wordStart.
//
// In run mode the first word completes to program names and later words to
// the unset inputs of that program. In control mode the first word completes
// to commands and the argument of a program command to program names.
func candidates(c catalog, mode inputMode, input string, wordStart int) []string {
	words := strings.Fields(input[:wordStart])

	// The word follows an "=": it is a value, not a name.
	if wordStart > 0 && input[wordStart-1] == '=' {
		return nil
	}

	if mode == modeCtrl {
		switch {
		case len(words) == 0:
			return ctrlCommands
		case len(words) == 1 && slices.Contains(ctrlTakesProgram, words[0]):
			return c.Names()
		default:
			return nil
		}
	}

	if len(words) == 0 {
		return c.Names()
	}

	var unset []string

	for _, name := range c.InputNames(words[0]) {
		if !slices.ContainsFunc(words[1:], func(w string) bool {
			return strings.HasPrefix(w, name+"=")
		}) {
			unset = append(unset, name)
		}
	}

	return unset
}

// computeMatches calculates the fuzzy match results for the word at the
// cursor. An empty word matches nothing, which leaves room for the hint line.
func computeMatches(c catalog, mode inputMode, input string, cursor int) (
	matches fuzzy.Matches,
	wordStart, wordEnd int,
) {
	word, wordStart, wordEnd := wordBounds(input, cursor)
	if word == "" {
		return nil, wordStart, wordEnd
	}

	names := candidates(c, mode, input, wordStart)
	if len(names) == 0 {
		return nil, wordStart, wordEnd
	}

	return fuzzy.Find(word, names), wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within the given terminal width. Each candidate is rendered with its matched
// characters highlighted. The selected candidate (when tabbing) uses the
// selected style.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted.
func renderCandidate(match fuzzy.Match, selected bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	return b.String()
}
