// Package repl implements the interactive program runner.
//
// In run mode each line names a program followed by its arguments, either
// positional (bound to the declared inputs in order) or key=value:
//
//	➜ adder 1 b=2
//
// Esc switches to control mode, which manages the registry (list, show,
// edit, inspect, refresh) and the output format.
package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/program"
)

// resultMsg carries the result of one program execution.
type resultMsg struct {
	out *program.Output
	err error
}

// editDoneMsg is sent when an edited source was saved.
type editDoneMsg struct{ name string }

// editCancelledMsg is sent when the user left the source unchanged.
type editCancelledMsg struct{}

// editDeclinedMsg is sent when the user declined to re-edit after a header
// error.
type editDeclinedMsg struct{}

// editErrorMsg is sent when the edit process encounters a non-parse error.
type editErrorMsg struct{ err error }

const (
	runPrompt  = "➜ "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help            Print this cruft
  list            List registered programs
  show NAME       Print the latest source of a program
  edit NAME       Edit a program source in external $EDITOR
  inspect NAME    Print the inputs, outputs and includes of a program
  format [TYPE]   Print or set the output visual type (empty for default)
  refresh         Pick up program sources edited outside the REPL
  clear           Clear screen
  quit            Exit REPL

Usage:
  Type a program name and its arguments to run it:
    adder 1 2        positional arguments bind to inputs in order
    adder b=2 a=1    key=value arguments bind by name
  Values are literals (numbers, "strings", [lists], {maps}); anything
  else is passed as a plain string
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Space to accept the current candidate
  Press Esc to toggle between run and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within current mode only
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeRun inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// formatCommand formats the command echo line with prompt and input styled.
func formatCommand(mode inputMode, input string) string {
	if mode == modeCtrl {
		return ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input)
	}

	return promptStyle.Render(runPrompt) + inputStyle.Render(input)
}

// formatValue renders a value the way the text backend would.
func formatValue(v any) string {
	s, err := lang.Render(v)
	if err != nil {
		return fmt.Sprint(v)
	}

	return s
}

// executor adapts a [compose.Executor] to the completion [catalog].
type executor struct{ *compose.Executor }

func (x executor) Names() []string { return x.Registry().Names() }

func (x executor) InputNames(name string) []string {
	p, err := x.Registry().Get(name)
	if err != nil {
		return nil
	}

	return p.InputNames()
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc   func() context.Context
	input     textinput.Model
	exec      executor
	logger    log.Logger
	history   *History
	visual    program.VisualType
	matches   fuzzy.Matches // current fuzzy match results
	wordStart int           // byte offset of current word start
	wordEnd   int           // byte offset of current word end
	suggIdx   int           // selected candidate index

	historyIdx   int
	preTabText   string // input text before tab-cycling began
	preTabCursor int    // cursor position before tab-cycling began
	width        int    // terminal width for ellipsization
	mode         inputMode
	runText      string
	runCursor    int
	ctrlText     string
	ctrlCursor   int
	tabActive    bool // whether user is tab-cycling
	quitting     bool
}

// Run starts the REPL over the programs of x. A non-empty initial line is
// placed in the input.
func Run(
	ctx context.Context,
	x *compose.Executor,
	initial string,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger.TraceContext(ctx, "repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("program_count", x.Registry().Len()),
	)

	var path string
	if cacheDir != "" {
		path = filepath.Join(cacheDir, baseHistory)
	}

	history := NewHistory(path)
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history", slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl history loaded",
		slog.Int("entry_count", history.Len()),
	)

	m := newModel(ctx, x, history, logger)
	if initial != "" {
		m.input.SetValue(initial)
		m.input.CursorEnd()
	}

	p := tea.NewProgram(m, tea.WithContext(ctx))
	_, err = p.Run()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() == nil {
		return nil
	}

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	x *compose.Executor,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(runPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		exec:       executor{x},
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		width:      defaultWidth,
		mode:       modeRun,
		suggIdx:    -1,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(runPrompt) - 2

		return m, nil

	case resultMsg:
		return m, tea.Println(renderResult(msg))

	case editDoneMsg:
		m.logger.TraceContext(m.ctxFunc(), "repl edit complete",
			slog.String("program", msg.name))

		return m, tea.Println(resultStyle.Render("✔ " + msg.name + " updated"))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("🗴 edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("🗴 error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// renderResult formats the outcome of an execution for printing.
func renderResult(r resultMsg) string {
	switch {
	case r.err != nil:
		return errorStyle.Render("error: " + r.err.Error())

	case !r.out.Succeeded():
		return errorStyle.Render("ERROR: " + r.out.Err())

	case r.out.VisualType().Binary():
		return hintStyle.Render(fmt.Sprintf(
			"%s output (%d bytes); use \"run -o FILE\" to save it",
			r.out.VisualType(), len(r.out.Bytes())))

	default:
		text := strings.TrimRight(r.out.Text(), "\n")

		if keys := r.out.DataKeys(); len(keys) > 0 {
			var data []string

			for _, k := range keys {
				v, _ := r.out.Datum(k)
				data = append(data, k+"="+formatValue(v))
			}

			text += "\n" + hintStyle.Render(strings.Join(data, "  "))
		}

		return text
	}
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")

	input := m.input.Value()
	call := detectCall(input, m.input.Position())

	switch {
	case m.historyIdx < m.history.Len():
		hint := fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len())
		b.WriteString(hintStyle.Render(hint))

	case strings.TrimSpace(input) == "":
		hint := "Type a program and its arguments or press Esc for commands"
		if m.mode == modeCtrl {
			hint = "Type: help, list, show, edit, inspect, format, refresh, clear, quit"
		}

		b.WriteString(hintStyle.Render(hint))

	case len(m.matches) > 0:
		b.WriteString(renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width))

	case m.mode == modeRun && call.inArgs:
		if p, err := m.exec.Registry().Get(call.name); err == nil {
			b.WriteString(renderSignatureHint(call, p.InputSpecs()))
		}
	}

	b.WriteString("\n")

	return b.String()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
		slog.Int("type", int(msg.Type)),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.Len()
		m.refreshMatches(false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if !m.tabActive || len(m.matches) == 0 {
			return m.executeInput()
		}
		// Lock in the current tab candidate without executing.
		m.tabActive = false
		m.refreshMatches(true)

		return m, nil

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		return m.historyStep(1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			m.refreshMatches(false)

			return m, nil
		}

		if m.mode == modeRun {
			return m.switchToMode(modeCtrl), nil
		}

		return m.switchToMode(modeRun), nil

	case tea.KeyRunes, tea.KeySpace:
		// Space is a "breaking" key while tab-cycling.
		if m.tabActive && msg.String() == " " {
			m.tabActive = false
		}

		var cmd tea.Cmd

		m.historyIdx = m.history.Len()
		m.input, cmd = m.input.Update(msg)
		m.refreshMatches(true)

		return m, cmd
	}

	// For any other key (backspace, delete, arrows, etc.),
	// update input and recompute matches without auto-confirm.
	var cmd tea.Cmd

	m.tabActive = false
	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refreshMatches(false)

	return m, cmd
}

// cycle moves through the completion candidates in direction dir. A single
// candidate is completed and confirmed immediately.
func (m model) cycle(dir int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		m.replaceCurrentWord(m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	switch {
	case m.tabActive:
		m.suggIdx = (m.suggIdx + dir + n) % n
	case dir > 0:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()
		m.suggIdx = 0
	default:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()
		m.suggIdx = n - 1
	}

	m.replaceCurrentWord(m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word boundaries in the input with
// the given replacement text and repositions the cursor.
func (m *model) replaceCurrentWord(replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes fuzzy matches for the current input state.
// When autoConfirm is true it also confirms the completion when exactly one
// candidate remains and the typed word already equals it.
func (m *model) refreshMatches(autoConfirm bool) {
	m.matches, m.wordStart, m.wordEnd = computeMatches(
		m.exec, m.mode, m.input.Value(), m.input.Position())

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.suggIdx = -1
		m.matches = nil
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.runText, m.runCursor = "", 0
	m.ctrlText, m.ctrlCursor = "", 0
	m.input.SetValue("")
	m.matches = nil

	if err := m.history.Write(input, m.mode); err != nil {
		m.logger.WarnContext(m.ctxFunc(), "could not write history",
			slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	echo := tea.Println(formatCommand(m.mode, input))

	if m.mode == modeCtrl {
		m.logger.TraceContext(m.ctxFunc(), "repl command", slog.String("input", input))

		next, cmd := m.executeCommand(input)

		return next, tea.Sequence(echo, cmd)
	}

	m.logger.TraceContext(m.ctxFunc(), "repl run", slog.String("input", input))

	return m, tea.Sequence(echo, m.runProgram(input))
}

// runProgram returns a command that executes the program named on line.
func (m model) runProgram(line string) tea.Cmd {
	words, err := fields(line)
	if err != nil {
		return tea.Println(errorStyle.Render("error: " + err.Error()))
	}

	name := words[0]

	values, err := bindArgs(words[1:], m.exec.InputNames(name))
	if err != nil {
		return tea.Println(errorStyle.Render("error: " + err.Error()))
	}

	ctx, x, visual := m.ctxFunc(), m.exec, m.visual

	return func() tea.Msg {
		out, err := x.Execute(ctx, name, program.NewInput(values), visual, nil)

		return resultMsg{out: out, err: err}
	}
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	cmd, args := parts[0], parts[1:]

	m.logger.TraceContext(m.ctxFunc(), "repl exec command",
		slog.String("command", cmd),
		slog.Any("args", args),
	)

	arg := func() (string, bool) {
		if len(args) == 0 {
			return "", false
		}

		return args[0], true
	}

	fail := func(msg string) tea.Cmd {
		return tea.Println(errorStyle.Render(msg))
	}

	reg := m.exec.Registry()

	switch cmd {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Quit

	case "h", "help":
		return m, tea.Println(helpMessage())

	case "l", "list":
		return m, tea.Println(m.listPrograms())

	case "c", "clear":
		return m, tea.ClearScreen

	case "show", "edit", "inspect":
		name, ok := arg()
		if !ok {
			return m, fail("usage: " + cmd + " NAME")
		}

		p, err := reg.Get(name)
		if err != nil {
			return m, fail("error: " + err.Error())
		}

		switch cmd {
		case "show":
			return m, tea.Println(strings.TrimRight(p.Latest.Source, "\n"))
		case "edit":
			return m, m.handleEdit(name)
		default:
			return m, tea.Println(m.inspect(name))
		}

	case "format":
		if v, ok := arg(); ok {
			m.visual = program.VisualType(strings.TrimPrefix(v, "."))
		}

		current := string(m.visual)
		if current == "" {
			current = "(default)"
		}

		return m, tea.Println(hintStyle.Render("format " + current))

	case "refresh":
		names, err := reg.Refresh(m.ctxFunc())
		if err != nil {
			return m, fail("error: " + err.Error())
		}

		return m, tea.Println(hintStyle.Render(
			fmt.Sprintf("refreshed %d program(s) %s", len(names), strings.Join(names, " "))))

	default:
		return m, fail("Unknown command: " + cmd + " (try 'help')")
	}
}

func (m model) handleEdit(name string) tea.Cmd {
	cmd := &editCommand{
		ctxFunc:  m.ctxFunc,
		registry: m.exec.Registry(),
		logger:   m.logger,
		name:     name,
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case !cmd.saved:
			return editCancelledMsg{}
		default:
			return editDoneMsg{name: name}
		}
	})
}

// historyStep moves dir entries through the history. With inMode set only
// entries of the current mode are visited; otherwise the mode follows the
// entry. Stepping past the newest entry clears the input.
func (m model) historyStep(dir int, inMode bool) model {
	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		entry, err := m.history.Entry(i)
		if err != nil || (inMode && entry.Mode != m.mode) {
			continue
		}

		if entry.Mode != m.mode {
			m = m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.input.SetValue(entry.Line)
		m.input.SetCursor(len(entry.Line))
		m.refreshMatches(false)

		return m
	}

	if dir > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		m.refreshMatches(false)
	}

	return m
}

func (m model) listPrograms() string {
	var b strings.Builder

	for _, p := range m.exec.Registry().List() {
		fmt.Fprintf(&b, "  %s %s\n", p.Name,
			hintStyle.Render("("+p.DSL+") "+p.Description))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  no programs registered")
	}

	return b.String()
}

func (m model) inspect(name string) string {
	p, err := m.exec.Registry().Get(name)
	if err != nil {
		return errorStyle.Render("error: " + err.Error())
	}

	var b strings.Builder

	b.WriteString(renderSignatureHint(programCall{name: name}, p.InputSpecs()))

	if outs := p.OutputNames(); len(outs) > 0 {
		b.WriteString(hintStyle.Render(" -> " + strings.Join(outs, ", ")))
	}

	if refs, err := m.exec.Includes(name); err == nil && len(refs) > 0 {
		b.WriteString("\n" + hintStyle.Render("  includes "+strings.Join(refs, ", ")))
	}

	if p.Description != "" {
		b.WriteString("\n" + hintStyle.Render("  "+p.Description))
	}

	return b.String()
}

// switchToMode switches to the specified mode, preserving input state.
func (m model) switchToMode(mode inputMode) model {
	if m.mode == modeRun {
		m.runText, m.runCursor = m.input.Value(), m.input.Position()
	} else {
		m.ctrlText, m.ctrlCursor = m.input.Value(), m.input.Position()
	}

	m.mode = mode

	if mode == modeRun {
		m.input.Prompt = promptStyle.Render(runPrompt)
		m.input.SetValue(m.runText)
		m.input.SetCursor(m.runCursor)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
		m.input.SetValue(m.ctrlText)
		m.input.SetCursor(m.ctrlCursor)
	}

	m.refreshMatches(false)

	return m
}
