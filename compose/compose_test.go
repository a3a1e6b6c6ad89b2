package compose_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/itom/backend"
	"github.com/ardnew/itom/compose"
	"github.com/ardnew/itom/infer"
	"github.com/ardnew/itom/program"
	"github.com/ardnew/itom/registry"
	"github.com/ardnew/itom/trace"
)

var sources = map[string]string{
	"adder": "#@ dsl: text\n" +
		"#@ description: adds two numbers\n" +
		"#@ inputs: [a, b]\n" +
		"#@ outputs: [total]\n" +
		"{{ total = a + b }}{{ total }}",
	"report": "#@ dsl: markdown\n" +
		"{{ r = include('adder', 1, 2) }}Total: {{ r.data.total }}",
	"greeting": "#@ dsl: markdown\n" +
		"#@ inputs:\n" +
		"#@   salutation: Hello\n" +
		"#@   who:\n" +
		"#@     description: person to greet\n" +
		"#@ outputs: [line]\n" +
		"{{ line = salutation + ', ' + who }}{{ line }}!",
	"plain":   "#@ dsl: markdown\n# Title\n\nNo units here.\n",
	"x":       "#@ dsl: markdown\nx{{ include('y') }}",
	"y":       "#@ dsl: markdown\ny{{ include('x') }}",
	"self":    "#@ dsl: text\n{{ include('self') }}",
	"missing": "#@ dsl: markdown\nbefore {{ include('nope') }} after",
	"extra":   "#@ dsl: markdown\n{{ include('adder', 1, 2, 3) }}",
	"image":   "#@ dsl: png\nignored",
	"picture": "#@ dsl: text\n[{{ include('image') }}]",
	"gallery": "#@ dsl: markdown\n{{ include('image') }}",
	"nested":  "#@ dsl: markdown\n{{ include('/team/report') }}",
	"grid":    "#@ dsl: markdown\n::: panel\n{{ 'inside' }}\n::: endpanel\n",
	"broken":  "#@ dsl: markdown\n::: grid\n",
	"slow":    "#@ dsl: wait\n",
	"bad":     "#@ dsl: text\n{{ 1 }}.{{ nope.field }}",
	"haunted": "#@ dsl: text\nA {{ include('ghost') }} B",
	"snoop":   "#@ dsl: text\n[{{ secret }}]",
	"peek":    "#@ dsl: text\n{{ secret = 1 }}{{ include('snoop') }}",
	"setter":  "#@ dsl: text\n{{ leak = 2 }}ok",
	"leaky":   "#@ dsl: text\n{{ include('setter') }}|{{ leak }}",
}

// pngBackend renders a fixed image and is not a templating backend.
type pngBackend struct{}

func (pngBackend) SupportedVisualTypes() []program.VisualType {
	return []program.VisualType{program.VisualPNG}
}

func (pngBackend) Render(context.Context, compose.Request) (*program.Output, error) {
	return program.NewOutput(program.VisualPNG, []byte{1, 2, 3}), nil
}

// waitBackend blocks until its context is done.
type waitBackend struct{}

func (waitBackend) SupportedVisualTypes() []program.VisualType {
	return []program.VisualType{program.VisualText}
}

func (waitBackend) Render(ctx context.Context, _ compose.Request) (*program.Output, error) {
	<-ctx.Done()

	return nil, ctx.Err()
}

// recorder is a text backend that counts and keeps its requests.
type recorder struct {
	backend.Text

	mu   sync.Mutex
	reqs []compose.Request
}

func (r *recorder) Render(ctx context.Context, req compose.Request) (*program.Output, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()

	return r.Text.Render(ctx, req)
}

type memoryCache struct {
	mu  sync.Mutex
	out map[string]*program.Output
}

func (c *memoryCache) Get(_ context.Context, key string) (*program.Output, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, ok := c.out[key]

	return out, ok, nil
}

func (c *memoryCache) Put(_ context.Context, key string, out *program.Output) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.out[key] = out

	return nil
}

func newExecutor(t *testing.T, opts ...compose.Option) *compose.Executor {
	t.Helper()

	reg, err := registry.New(t.Context(), registry.NewMemoryStore())
	if err != nil {
		t.Fatal(err)
	}

	for name, src := range sources {
		if err := reg.Add(t.Context(), name, src, false); err != nil {
			t.Fatalf("Add(%q) error = %v", name, err)
		}
	}

	x := compose.New(reg, opts...)
	backend.Register(x)
	x.Register("png", pngBackend{})
	x.Register("wait", waitBackend{})

	return x
}

func execute(t *testing.T, x *compose.Executor, name string, in map[string]any) (*program.Output, error) {
	t.Helper()

	return x.Execute(t.Context(), name, program.NewInput(in), "", nil)
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		program string
		inputs  map[string]any
		want    string
	}{
		{"adder", "adder", map[string]any{"a": 1, "b": 2}, "3"},
		{"include data", "report", nil, "Total: 3"},
		{"schema default", "greeting", map[string]any{"who": "Ada"}, "Hello, Ada!"},
		{"override default", "greeting", map[string]any{"who": "Ada", "salutation": "Hi"}, "Hi, Ada!"},
		{"no units", "plain", nil, "# Title\n\nNo units here.\n"},
		{"namespaced reference", "nested", nil, "Total: 3"},
		{"png inlined in markdown", "gallery", nil, "![png](data:image/png;base64,AQID)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, newExecutor(t), tt.program, tt.inputs)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if got := out.Text(); got != tt.want {
				t.Errorf("Execute() = %q, want %q", got, tt.want)
			}

			if out.Program() != tt.program {
				t.Errorf("Program() = %q", out.Program())
			}
		})
	}
}

func TestExecute_DataOutputs(t *testing.T) {
	x := newExecutor(t)

	out, err := execute(t, x, "adder", map[string]any{"a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := out.Datum("total"); !ok || v != 3 {
		t.Errorf("total = %v, %v", v, ok)
	}

	out, err = execute(t, x, "greeting", map[string]any{"who": "Ada"})
	if err != nil {
		t.Fatal(err)
	}

	if keys := out.DataKeys(); len(keys) != 1 || keys[0] != "line" {
		t.Errorf("DataKeys() = %v", keys)
	}
}

func TestExecute_Curry(t *testing.T) {
	x := newExecutor(t)

	if _, err := x.Registry().Curry(t.Context(), "adder", map[string]any{"a": 10}, "adder10"); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, x, "adder10", map[string]any{"b": 5})
	if err != nil {
		t.Fatal(err)
	}

	if v, _ := out.Datum("total"); v != 15 {
		t.Errorf("total = %v, want 15", v)
	}
}

func TestExecute_Cycle(t *testing.T) {
	x := newExecutor(t)

	for _, name := range []string{"x", "self"} {
		_, err := execute(t, x, name, nil)
		if !errors.Is(err, program.ErrCyclicComposition) {
			t.Fatalf("Execute(%q) error = %v, want %v", name, err, program.ErrCyclicComposition)
		}
	}

	_, err := execute(t, x, "x", nil)

	v, ok := program.AsError(err).Attr("chain")
	if !ok || v.String() != "x -> y -> x" {
		t.Errorf("chain = %v", v)
	}
}

func TestExecute_MaxDepth(t *testing.T) {
	x := newExecutor(t, compose.WithMaxDepth(1))

	if _, err := execute(t, x, "report", nil); !errors.Is(err, compose.ErrMaxDepth) {
		t.Errorf("error = %v, want %v", err, compose.ErrMaxDepth)
	}
}

func TestExecute_IncludeFailuresRenderInline(t *testing.T) {
	tests := []struct {
		program string
		want    string
	}{
		{"missing", "program not found"},
		{"extra", "validation failed"},
		{"picture", "no common visual type"},
	}

	for _, tt := range tests {
		t.Run(tt.program, func(t *testing.T) {
			out, err := execute(t, newExecutor(t), tt.program, nil)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if !strings.Contains(out.Text(), "ERROR: ") || !strings.Contains(out.Text(), tt.want) {
				t.Errorf("Execute() = %q, want inline %q", out.Text(), tt.want)
			}
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		program string
		visual  program.VisualType
		inputs  map[string]any
		want    error
	}{
		{"not found", "nope", "", nil, program.ErrNotFound},
		{"unsupported visual", "adder", program.VisualHTML, map[string]any{"a": 1, "b": 2}, program.ErrCapabilityMismatch},
		{"missing input", "adder", "", nil, program.ErrValidation},
		{"unclosed layout", "broken", "", nil, program.ErrBackendExecution},
		{"bad expression", "adder", "", map[string]any{"a": 1, "b": "x"}, program.ErrBackendExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := newExecutor(t)

			_, err := x.Execute(t.Context(), tt.program, program.NewInput(tt.inputs), tt.visual, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Execute() error = %v, want %v", err, tt.want)
			}

			if v, ok := program.AsError(err).Attr("program"); !ok || v.String() != tt.program {
				t.Errorf("program attr = %v", v)
			}
		})
	}
}

func TestExecute_Timeout(t *testing.T) {
	x := newExecutor(t, compose.WithTimeout(10*time.Millisecond))

	_, err := execute(t, x, "slow", nil)
	if !errors.Is(err, program.ErrBackendExecution) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v", err)
	}
}

func TestExecute_Inference(t *testing.T) {
	x := newExecutor(t, compose.WithInferrer(infer.Static{"a": 4, "adder.b": 5}))

	if _, err := execute(t, x, "adder", nil); !errors.Is(err, program.ErrValidation) {
		t.Fatalf("without inference: error = %v", err)
	}

	out, err := x.Execute(t.Context(), "adder", program.NewInput(nil), "", nil, compose.WithInference(true))
	if err != nil {
		t.Fatal(err)
	}

	if out.Text() != "9" {
		t.Errorf("Execute() = %q, want %q", out.Text(), "9")
	}
}

func TestExecute_Layout(t *testing.T) {
	out, err := execute(t, newExecutor(t), "grid", nil)
	if err != nil {
		t.Fatal(err)
	}

	if want := "<div class=\"panel\">\n\ninside\n\n</div>\n"; out.Text() != want {
		t.Errorf("Execute() = %q, want %q", out.Text(), want)
	}
}

func TestExecute_Deterministic(t *testing.T) {
	x := newExecutor(t)

	first, err := execute(t, x, "report", nil)
	if err != nil {
		t.Fatal(err)
	}

	for range 3 {
		out, err := execute(t, x, "report", nil)
		if err != nil {
			t.Fatal(err)
		}

		if out.Text() != first.Text() {
			t.Fatalf("Execute() = %q, want %q", out.Text(), first.Text())
		}
	}
}

func TestExecute_LogsExecutions(t *testing.T) {
	x := newExecutor(t)

	if _, err := execute(t, x, "report", nil); err != nil {
		t.Fatal(err)
	}

	for name, want := range map[string]int{"report": 1, "adder": 1} {
		h, err := x.Registry().History(name)
		if err != nil {
			t.Fatal(err)
		}

		if got := len(h.Executions[len(h.Executions)-1]); got != want {
			t.Errorf("%s executions = %d, want %d", name, got, want)
		}
	}

	h, _ := x.Registry().History("adder")
	exec := h.Executions[0][0]

	if exec.Input.Values["a"] != 1 || exec.Input.Values["b"] != 2 {
		t.Errorf("logged input = %v", exec.Input.Values)
	}
}

func TestExecute_LogsFailedExecutions(t *testing.T) {
	x := newExecutor(t)

	for _, name := range []string{"bad", "broken"} {
		if _, err := execute(t, x, name, nil); err == nil {
			t.Fatalf("Execute(%q) succeeded", name)
		}

		h, err := x.Registry().History(name)
		if err != nil {
			t.Fatal(err)
		}

		runs := h.Executions[len(h.Executions)-1]
		if len(runs) != 1 {
			t.Fatalf("%s executions = %d, want 1", name, len(runs))
		}

		if out := runs[0].Output; out == nil || out.Succeeded() || out.Err() == "" {
			t.Errorf("%s logged output = %+v, want failure", name, out)
		}
	}
}

func TestExecute_IncludeScopes(t *testing.T) {
	x := newExecutor(t)

	out, err := execute(t, x, "peek", nil)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(out.Text(), "ERROR: ") || !strings.Contains(out.Text(), "unbound") {
		t.Errorf("caller binding visible to include: %q", out.Text())
	}

	_, err = execute(t, x, "leaky", nil)
	if !errors.Is(err, program.ErrBackendExecution) || !strings.Contains(err.Error(), "unbound") {
		t.Errorf("include binding visible to caller: error = %v", err)
	}
}

func TestExecute_TraceFailures(t *testing.T) {
	tests := []struct {
		program string
		want    string
		failed  []string
	}{
		{"haunted", ">haunted >>ghost", []string{"ghost"}},
		{"self", ">self >>self", []string{"self", "self"}},
	}

	for _, tt := range tests {
		t.Run(tt.program, func(t *testing.T) {
			x := newExecutor(t)
			root := trace.NewRoot()

			_, _ = x.Execute(trace.WithNode(t.Context(), root), tt.program,
				program.NewInput(nil), "", nil)

			var (
				got    []string
				failed []string
			)

			for depth, n := range root.Walk() {
				got = append(got, strings.Repeat(">", depth)+n.Program())

				s := n.Summary()
				if s == nil {
					t.Fatalf("%s not finished", n.Program())
				}

				if !s.Succeeded {
					if s.Error == "" {
						t.Errorf("%s failed without error", n.Program())
					}

					failed = append(failed, n.Program())
				}
			}

			if strings.Join(got, " ") != tt.want {
				t.Errorf("trace = %v, want %s", got, tt.want)
			}

			if strings.Join(failed, " ") != strings.Join(tt.failed, " ") {
				t.Errorf("failed nodes = %v, want %v", failed, tt.failed)
			}
		})
	}
}

func TestExecute_Trace(t *testing.T) {
	x := newExecutor(t)
	root := trace.NewRoot()

	ctx := trace.WithNode(t.Context(), root)

	if _, err := x.Execute(ctx, "report", program.NewInput(nil), "", nil); err != nil {
		t.Fatal(err)
	}

	var got []string

	for depth, n := range root.Walk() {
		got = append(got, strings.Repeat(">", depth)+n.Program())

		if s := n.Summary(); s == nil || !s.Succeeded {
			t.Errorf("%s summary = %+v", n.Program(), s)
		}
	}

	if strings.Join(got, " ") != ">report >>adder" {
		t.Errorf("trace = %v", got)
	}
}

func TestExecute_Cache(t *testing.T) {
	rec := &recorder{}
	cache := &memoryCache{out: map[string]*program.Output{}}

	x := newExecutor(t, compose.WithCache(cache))
	x.Register("text", rec)

	in := map[string]any{"a": 1, "b": 2}

	for range 2 {
		out, err := execute(t, x, "adder", in)
		if err != nil {
			t.Fatal(err)
		}

		if v, _ := out.Datum("total"); v != 3 {
			t.Errorf("total = %v", v)
		}
	}

	if len(rec.reqs) != 1 {
		t.Errorf("renders = %d, want 1", len(rec.reqs))
	}

	in[compose.ForceRefreshInput] = true

	if _, err := execute(t, x, "adder", in); err != nil {
		t.Fatal(err)
	}

	if len(rec.reqs) != 2 {
		t.Errorf("renders after refresh = %d, want 2", len(rec.reqs))
	}
}

func TestExecute_Request(t *testing.T) {
	rec := &recorder{}

	x := newExecutor(t)
	x.Register("text", rec)

	_, err := x.Execute(t.Context(), "adder",
		program.NewInput(map[string]any{"a": 1, "b": 2}),
		program.VisualMarkdown,
		map[string]any{"width": 3})
	if err != nil {
		t.Fatal(err)
	}

	req := rec.reqs[0]

	if req.Program != "adder" || req.DSL != "text" || req.Description != "adds two numbers" {
		t.Errorf("request = %+v", req)
	}

	if req.VisualType != program.VisualMarkdown || req.Body != "3" {
		t.Errorf("request = %+v", req)
	}

	if req.Config["width"] != 3 || req.Env["total"] != 3 {
		t.Errorf("config = %v env = %v", req.Config, req.Env)
	}
}

func TestGraph(t *testing.T) {
	x := newExecutor(t)

	g, missing, err := x.Graph("x")
	if err != nil {
		t.Fatal(err)
	}

	if len(g) != 2 || g["x"][0] != "y" || g["y"][0] != "x" {
		t.Errorf("Graph(x) = %v", g)
	}

	_, missing, err = x.Graph("missing")
	if err != nil {
		t.Fatal(err)
	}

	if len(missing) != 1 || missing[0] != "nope" {
		t.Errorf("missing = %v", missing)
	}

	refs, err := x.Includes("nested")
	if err != nil {
		t.Fatal(err)
	}

	if len(refs) != 1 || refs[0] != "report" {
		t.Errorf("Includes(nested) = %v", refs)
	}
}
