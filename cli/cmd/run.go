package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/infer"
	"github.com/ardnew/itom/program"
	"github.com/ardnew/itom/trace"
)

// InferConfig configures the chat completions endpoint used to infer
// missing required inputs.
type InferConfig struct {
	Endpoint string `default:"${inferEndpoint}" help:"Chat completions URL."`
	Model    string `                           help:"Model name sent with each request."`
	Key      string `                           help:"Bearer token sent with each request." env:"ITOM_INFER_KEY"`
}

// Run executes a registered program.
type Run struct {
	Name   string   `arg:"" help:"Program to run."`
	Format string   `       help:"Visual type of the output (text, md, html, json, png)." short:"f"`
	Output string   `       help:"Write the output to this file instead of stdout."       short:"o" type:"path"`
	Input  []string `       help:"Input assignment key=value."                            short:"i" placeholder:"KEY=VALUE"`
	Trace  string   `       help:"Print the execution trace after the output." enum:",tree,json" default:"" placeholder:"tree|json"`
	Infer  bool     `       help:"Infer missing required inputs."`

	Inference InferConfig `embed:"" prefix:"infer-"`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := sessionFrom(ctx)

	values, err := parseAssignments(r.Input)
	if err != nil {
		return err
	}

	var opts []compose.Option

	if r.Infer {
		opts = append(opts, compose.WithInferrer(infer.NewClient(
			infer.WithEndpoint(r.Inference.Endpoint),
			infer.WithModel(r.Inference.Model),
			infer.WithAPIKey(r.Inference.Key),
			infer.WithLogger(s.Logger),
		)))
	}

	x, err := s.Executor(ctx, opts...)
	if err != nil {
		return err
	}

	root := trace.NewRoot()
	if r.Trace != "" {
		ctx = trace.WithNode(ctx, root)
	}

	out, err := x.Execute(ctx, r.Name, program.NewInput(values),
		program.VisualType(r.Format), nil, compose.WithInference(r.Infer))
	if err != nil {
		if terr := r.writeTrace(root, s.out()); terr != nil {
			return errors.Join(err, terr)
		}

		return err
	}

	if err := r.write(out, s.out()); err != nil {
		return err
	}

	return r.writeTrace(root, s.out())
}

// writeTrace prints root in the requested trace format, if any.
func (r *Run) writeTrace(root *trace.Node, w io.Writer) error {
	switch r.Trace {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(root)

	case "tree":
		_, err := fmt.Fprintln(w, TraceTree(root))

		return err
	}

	return nil
}

// write stores out in the output file or prints it to w.
func (r *Run) write(out *program.Output, w io.Writer) error {
	if r.Output != "" {
		if err := os.WriteFile(r.Output, out.Bytes(), 0o644); err != nil {
			return ErrWriteOutput.Wrap(err).With(slog.String("file", r.Output))
		}

		return nil
	}

	if out.VisualType().Binary() {
		return ErrWriteOutput.Wrap(
			fmt.Errorf("%s output requires --output", out.VisualType()),
		).With(slog.String("program", r.Name))
	}

	text := out.Text()
	if len(text) > 0 && text[len(text)-1] != '\n' {
		text += "\n"
	}

	_, err := io.WriteString(w, text)

	return err
}

var (
	traceOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	traceFail  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	traceFaint = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// TraceTree renders the executions below root as a tree.
func TraceTree(root *trace.Node) string {
	t := tree.Root(traceFaint.Render("trace " + root.ID()))

	for _, child := range root.Children() {
		t.Child(traceNode(child))
	}

	return t.String()
}

func traceNode(n *trace.Node) any {
	label := traceLabel(n)

	children := n.Children()
	if len(children) == 0 {
		return label
	}

	t := tree.Root(label)

	for _, child := range children {
		t.Child(traceNode(child))
	}

	return t
}

func traceLabel(n *trace.Node) string {
	elapsed := traceFaint.Render(n.Duration().Round(time.Microsecond).String())

	sum := n.Summary()
	if sum == nil {
		return n.Program() + " " + elapsed
	}

	if !sum.Succeeded {
		return traceFail.Render(n.Program()+" ✗ "+sum.Error) + " " + elapsed
	}

	return traceOK.Render(n.Program()+" ("+string(sum.VisualType)+")") + " " + elapsed
}
