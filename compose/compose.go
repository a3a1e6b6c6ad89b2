package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ardnew/itom/infer"
	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/layout"
	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/program"
	"github.com/ardnew/itom/registry"
	"github.com/ardnew/itom/trace"
)

// ErrMaxDepth reports includes nested deeper than the configured bound.
var ErrMaxDepth = program.NewError("maximum include depth exceeded")

// Executor runs registered programs with the backend selected by their DSL.
type Executor struct {
	mu       sync.RWMutex
	registry *registry.Registry
	backends map[string]Backend
	logger   log.Logger
	inferrer infer.Inferrer
	cache    Cache
	langOpts []lang.Option
	maxDepth int
	timeout  time.Duration
}

// call is one execution request.
type call struct {
	in     program.Input
	config map[string]any
	name   string
	caller string
	visual program.VisualType
	infer  bool
}

// New returns an [Executor] over reg with no backends registered.
func New(reg *registry.Registry, opts ...Option) *Executor {
	x := &Executor{
		registry: reg,
		backends: map[string]Backend{},
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// Register makes b the backend for programs whose DSL is dsl, replacing
// any backend registered before.
func (x *Executor) Register(dsl string, b Backend) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.backends[dsl] = b
}

// DSLs returns the sorted names of the registered backends.
func (x *Executor) DSLs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return slices.Sorted(maps.Keys(x.backends))
}

// Backend returns the backend registered for dsl.
func (x *Executor) Backend(dsl string) (Backend, error) {
	x.mu.RLock()
	b, ok := x.backends[dsl]
	x.mu.RUnlock()

	if !ok {
		return nil, program.ErrValidation.Wrap(fmt.Errorf("no backend for dsl %q", dsl)).
			With(slog.String("dsl", dsl), slog.Any("available", x.DSLs()))
	}

	return b, nil
}

// Registry returns the registry programs are loaded from.
func (x *Executor) Registry() *registry.Registry { return x.registry }

// Execute runs the latest version of the named program and returns its
// output in the requested visual type. An empty visual type selects the
// backend's preferred type. The values of config override the program's
// own config.
//
// Missing, invalid and incompatible programs are reported with the
// registry or capability error. A cyclic include chain is reported with
// [program.ErrCyclicComposition]. Every other failure is reported as
// [program.ErrBackendExecution] wrapping its cause.
func (x *Executor) Execute(
	ctx context.Context,
	name string,
	in program.Input,
	visual program.VisualType,
	config map[string]any,
	opts ...ExecuteOption,
) (*program.Output, error) {
	c := call{in: in, config: config, name: name, visual: visual}

	for _, opt := range opts {
		opt(&c)
	}

	if x.timeout > 0 && len(callStack(ctx)) == 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	out, err := x.run(ctx, c)
	if err != nil {
		return nil, classify(name, err)
	}

	return out, nil
}

// classify maps an execution failure onto the public error taxonomy.
func classify(name string, err error) error {
	for _, kind := range []error{
		program.ErrCyclicComposition,
		program.ErrNotFound,
		program.ErrValidation,
		program.ErrCapabilityMismatch,
		program.ErrBackendExecution,
		ErrMaxDepth,
	} {
		if errors.Is(err, kind) {
			ee := program.AsError(err)
			if _, ok := ee.Attr("program"); !ok {
				ee = ee.With(programAttr(name))
			}

			return ee
		}
	}

	return program.ErrBackendExecution.Wrap(err).With(programAttr(name))
}

// run executes c on the caller's goroutine. Includes made by the body
// re-enter run through an [includer].
func (x *Executor) run(ctx context.Context, c call) (out *program.Output, err error) {
	stack := callStack(ctx)

	node, traced := trace.FromContext(ctx)
	if traced {
		node = node.Begin(c.name, c.visual, c.in.Values)
		ctx = trace.WithNode(ctx, node)

		defer func() { node.Finish(out, err) }()
	}

	if slices.Contains(stack, c.name) {
		loop := chain(stack, c.name)

		return nil, program.ErrCyclicComposition.Wrap(errors.New(loop)).
			With(programAttr(c.name), slog.String("chain", loop))
	}

	if len(stack) >= x.maxDepth {
		return nil, ErrMaxDepth.With(
			programAttr(c.name),
			slog.Int("depth", len(stack)),
			slog.String("chain", chain(stack, c.name)),
		)
	}

	ctx = push(ctx, c.name)

	prog, err := x.registry.Get(c.name)
	if err != nil {
		return nil, err
	}

	backend, err := x.Backend(prog.DSL)
	if err != nil {
		return nil, program.AsError(err).With(programAttr(c.name))
	}

	visual, err := selectVisual(prog, backend, c.visual)
	if err != nil {
		return nil, err
	}

	inputs, err := x.resolveInputs(ctx, prog, c)
	if err != nil {
		return nil, err
	}

	if traced {
		node.Resolve(visual, inputs)
	}

	logged := program.Input{Start: c.in.Start, Values: inputs}

	defer func() {
		if err != nil {
			x.logExecution(ctx, c.name, logged,
				program.NewFailure(err, program.WithProgram(c.name)))
		}
	}()

	start := time.Now()

	x.logger.DebugContext(ctx, "execute",
		programAttr(c.name),
		slog.String("dsl", prog.DSL),
		slog.String("visual", string(visual)),
		slog.Int("depth", len(stack)))

	req := Request{
		Inputs:      inputs,
		Env:         lang.Env(inputs),
		Config:      prog.ConfigMap(),
		Program:     c.name,
		DSL:         prog.DSL,
		Description: prog.Description,
		Body:        prog.Latest.Body,
		VisualType:  visual,
		Outputs:     prog.OutputNames(),
	}

	override, _ := program.Clone(c.config).(map[string]any)
	maps.Copy(req.Config, override)

	if d, ok := backend.(lang.Dialect); ok {
		inc := &includer{x: x, caller: c.name, backend: backend, infer: c.infer}

		opts := append([]lang.Option{lang.WithLogger(x.logger)}, x.langOpts...)

		req.Body, req.Env, err = lang.New(d, inc, opts...).Evaluate(ctx, req.Body, inputs)
		if err != nil {
			return nil, err
		}
	}

	if req.Body, err = layout.Apply(req.Body); err != nil {
		return nil, err
	}

	out, err = x.render(ctx, backend, req)
	if err != nil {
		return nil, err
	}

	x.logger.DebugContext(ctx, "executed",
		programAttr(c.name),
		slog.Duration("elapsed", time.Since(start)),
		slog.Any("data", out.DataKeys()))

	x.logExecution(ctx, c.name, logged, out)

	return out, nil
}

// logExecution appends in and out to the execution log of name. A log that
// cannot be saved does not fail the execution.
func (x *Executor) logExecution(ctx context.Context, name string, in program.Input, out *program.Output) {
	if err := x.registry.LogExecution(ctx, name, in, out); err != nil {
		x.logger.WarnContext(ctx, "execution log not saved",
			programAttr(name), slog.Any("error", err))
	}
}

// render renders req with backend, consulting the cache when one is
// configured, and attaches the declared data outputs.
func (x *Executor) render(ctx context.Context, backend Backend, req Request) (*program.Output, error) {
	var key string

	if x.cache != nil && !forceRefresh(req.Inputs) {
		key = Key(req)

		out, ok, err := x.cache.Get(ctx, key)
		if err != nil {
			x.logger.WarnContext(ctx, "cache read failed",
				programAttr(req.Program), slog.Any("error", err))
		}

		if ok && out != nil {
			x.logger.DebugContext(ctx, "cache hit", programAttr(req.Program))

			return out.With(program.WithProgram(req.Program)), nil
		}
	}

	out, err := backend.Render(ctx, req)
	if err != nil {
		return nil, err
	}

	if out == nil {
		return nil, errors.New("backend returned no output")
	}

	if !out.Succeeded() {
		return nil, errors.New(out.Err())
	}

	data := make(map[string]any, len(req.Outputs))

	for _, name := range req.Outputs {
		if v, ok := req.Env[name]; ok {
			data[name] = v
		}
	}

	maps.Copy(data, out.Data())

	out = out.With(program.WithData(data), program.WithProgram(req.Program))

	if x.cache != nil {
		if key == "" {
			key = Key(req)
		}

		if err := x.cache.Put(ctx, key, out); err != nil {
			x.logger.WarnContext(ctx, "cache write failed",
				programAttr(req.Program), slog.Any("error", err))
		}
	}

	return out, nil
}

// selectVisual validates a requested visual type, or picks the backend's
// preferred type when none is requested.
func selectVisual(
	prog registry.Program,
	backend Backend,
	want program.VisualType,
) (program.VisualType, error) {
	supported := backend.SupportedVisualTypes()

	if want == "" {
		if len(supported) == 0 {
			return "", program.ErrCapabilityMismatch.With(
				programAttr(prog.Name), slog.String("dsl", prog.DSL))
		}

		return supported[0], nil
	}

	if !slices.Contains(supported, want) {
		return "", program.ErrCapabilityMismatch.Wrap(
			fmt.Errorf("%s backend cannot produce %s", prog.DSL, want),
		).With(
			programAttr(prog.Name),
			slog.String("requested", string(want)),
			slog.Any("supported", supported),
		)
	}

	return want, nil
}

// resolveInputs overlays the caller's values on the schema defaults.
// A required input with neither a value nor a default is inferred when
// inference is enabled, and is an error otherwise.
func (x *Executor) resolveInputs(
	ctx context.Context,
	prog registry.Program,
	c call,
) (map[string]any, error) {
	values, _ := program.Clone(c.in.Values).(map[string]any)
	if values == nil {
		values = map[string]any{}
	}

	for _, spec := range prog.InputSpecs() {
		if _, ok := values[spec.Name]; ok {
			continue
		}

		switch {
		case spec.HasDefault:
			values[spec.Name] = spec.Default

		case !spec.Required:

		case c.infer && x.inferrer != nil:
			v, err := x.inferrer.Infer(ctx, infer.Request{
				Program:          prog.Name,
				Description:      prog.Description,
				Input:            spec.Name,
				InputDescription: spec.Description,
				Caller:           c.caller,
			})
			if err != nil {
				return nil, program.ErrValidation.Wrap(err).
					With(programAttr(prog.Name), slog.String("input", spec.Name))
			}

			x.logger.DebugContext(ctx, "input inferred",
				programAttr(prog.Name), slog.String("input", spec.Name))

			values[spec.Name] = program.Normalize(v)

		default:
			return nil, program.ErrValidation.Wrap(
				fmt.Errorf("missing required input %q", spec.Name),
			).With(programAttr(prog.Name), slog.String("input", spec.Name))
		}
	}

	return values, nil
}

// includer re-enters the executor for the include units of one body.
type includer struct {
	x       *Executor
	backend Backend
	caller  string
	infer   bool
}

// Include implements [lang.Includer]. Failures of the included program are
// returned as a failed output so the caller can render them inline; only
// cycles and cancellation abort the caller.
func (i *includer) Include(
	ctx context.Context,
	ref string,
	positional []any,
	named map[string]any,
) (*program.Output, error) {
	name := Ref(ref)

	i.x.logger.TraceContext(ctx, "include",
		programAttr(name), slog.String("caller", i.caller))

	out, err := i.include(ctx, name, positional, named)
	if err == nil {
		return out, nil
	}

	if errors.Is(err, program.ErrCyclicComposition) || errors.Is(err, ErrMaxDepth) || ctx.Err() != nil {
		return nil, err
	}

	i.x.logger.DebugContext(ctx, "include failed",
		programAttr(name), slog.String("caller", i.caller), slog.Any("error", err))

	return program.NewFailure(classify(name, err), program.WithProgram(name)), nil
}

func (i *includer) include(
	ctx context.Context,
	name string,
	positional []any,
	named map[string]any,
) (*program.Output, error) {
	target, err := i.x.registry.Get(name)
	if err != nil {
		return nil, err
	}

	values, err := bindArguments(target, positional, named)
	if err != nil {
		return nil, err
	}

	backend, err := i.x.Backend(target.DSL)
	if err != nil {
		return nil, err
	}

	accept := includable(i.backend)

	visual, ok := negotiate(backend.SupportedVisualTypes(), accept)
	if !ok {
		return nil, program.ErrCapabilityMismatch.With(
			programAttr(name),
			slog.String("caller", i.caller),
			slog.Any("supported", backend.SupportedVisualTypes()),
			slog.Any("accepted", accept),
		)
	}

	return i.x.run(ctx, call{
		in:     program.NewInput(values),
		name:   name,
		caller: i.caller,
		visual: visual,
		infer:  i.infer,
	})
}

// bindArguments binds positional include arguments to the declared inputs
// of target in order, then applies the named arguments.
func bindArguments(
	target registry.Program,
	positional []any,
	named map[string]any,
) (map[string]any, error) {
	declared := target.InputNames()

	if len(positional) > len(declared) {
		return nil, program.ErrValidation.Wrap(fmt.Errorf(
			"%d positional arguments for %d declared inputs",
			len(positional), len(declared),
		)).With(programAttr(target.Name), slog.Any("inputs", declared))
	}

	values := make(map[string]any, len(positional)+len(named))

	for i, v := range positional {
		values[declared[i]] = v
	}

	for k, v := range named {
		if _, dup := values[k]; dup {
			return nil, program.ErrValidation.Wrap(
				fmt.Errorf("input %q given positionally and by name", k),
			).With(programAttr(target.Name))
		}

		values[k] = v
	}

	return values, nil
}

// Ref returns the program name an include reference denotes. References
// may carry a path-like namespace ("/team/chart"); only the final element
// names the program.
func Ref(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "/") {
		return path.Base(ref)
	}

	return ref
}

func programAttr(name string) slog.Attr {
	return slog.String("program", name)
}
