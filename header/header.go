package header

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/ardnew/itom/program"
)

// Marker prefixes every header line of a program source.
const Marker = "#@"

// Header keys recognized in program sources.
const (
	KeyDescription = "description"
	KeyDSL         = "dsl"
	KeyInputs      = "inputs"
	KeyOutputs     = "outputs"
	KeyConfig      = "config"
)

// Keys recognized within a mapping-form input entry.
const (
	InputDefault     = "default"
	InputDescription = "description"
	InputRequired    = "required"
)

// Header is the metadata declared at the top of a program source.
//
// Inputs, Outputs and Config each hold either a map[string]any, a []any, or
// nil. A scalar declared in the source is stored as a one-element list.
type Header struct {
	Description string `json:"description,omitempty"`
	DSL         string `json:"dsl"`
	Inputs      any    `json:"inputs,omitempty"`
	Outputs     any    `json:"outputs,omitempty"`
	Config      any    `json:"config,omitempty"`
	// InputOrder lists the keys of mapping-form Inputs in declaration order.
	InputOrder []string `json:"inputOrder,omitempty"`
}

// InputSpec describes a single declared input.
type InputSpec struct {
	Name        string
	Description string
	Default     any
	HasDefault  bool
	Required    bool
}

// Validate reports whether h can be executed.
func (h Header) Validate() error {
	if strings.TrimSpace(h.DSL) == "" {
		return program.ErrValidation.Wrap(
			fmt.Errorf("missing required key %q", KeyDSL),
		).With(slog.String("key", KeyDSL))
	}

	return nil
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	h.Inputs = program.Clone(h.Inputs)
	h.Outputs = program.Clone(h.Outputs)
	h.Config = program.Clone(h.Config)
	h.InputOrder = slices.Clone(h.InputOrder)

	return h
}

// InputNames returns the declared input names: list order for list-form
// inputs, declaration order for mapping-form inputs.
func (h Header) InputNames() []string {
	return names(h.Inputs, h.InputOrder)
}

// OutputNames returns the declared data output names.
func (h Header) OutputNames() []string {
	return names(h.Outputs, nil)
}

// Input returns the specification of the named input.
//
// A mapping entry whose value is itself a mapping may carry "default",
// "description" and "required" keys. Any other non-nil value is the
// input's default. An input without a default is required.
func (h Header) Input(name string) (InputSpec, bool) {
	if !slices.Contains(h.InputNames(), name) {
		return InputSpec{}, false
	}

	spec := InputSpec{Name: name, Required: true}

	m, ok := h.Inputs.(map[string]any)
	if !ok {
		return spec, true
	}

	switch v := m[name].(type) {
	case nil:
	case map[string]any:
		if d, ok := v[InputDefault]; ok {
			spec.Default, spec.HasDefault = program.Clone(d), true
			spec.Required = false
		}

		if s, ok := v[InputDescription]; ok && s != nil {
			spec.Description = fmt.Sprint(s)
		}

		if r, ok := v[InputRequired].(bool); ok {
			spec.Required = r
		}

	default:
		spec.Default, spec.HasDefault = program.Clone(v), true
		spec.Required = false
	}

	return spec, true
}

// InputSpecs returns the specification of every declared input in
// [Header.InputNames] order.
func (h Header) InputSpecs() []InputSpec {
	all := h.InputNames()
	specs := make([]InputSpec, 0, len(all))

	for _, name := range all {
		if spec, ok := h.Input(name); ok {
			specs = append(specs, spec)
		}
	}

	return specs
}

// ConfigMap returns the mapping-form config, or an empty map.
func (h Header) ConfigMap() map[string]any {
	if m, ok := program.Clone(h.Config).(map[string]any); ok && m != nil {
		return m
	}

	return map[string]any{}
}

// Bind returns a copy of h in which every key of bound becomes the default
// value of the corresponding input. List-form inputs are promoted to a
// mapping first. A bound key that is not yet declared is appended.
// Every key stays part of the input schema.
func (h Header) Bind(bound map[string]any) Header {
	c := h.Clone()

	order := c.InputNames()

	inputs, ok := c.Inputs.(map[string]any)
	if !ok {
		inputs = make(map[string]any, len(order))
		for _, name := range order {
			inputs[name] = nil
		}
	}

	for _, name := range slices.Sorted(maps.Keys(bound)) {
		val := program.Clone(bound[name])

		entry, isSpec := inputs[name].(map[string]any)
		_, isMap := val.(map[string]any)

		switch {
		case isSpec:
			entry[InputDefault] = val
		case isMap:
			// A bare mapping would read as an input specification.
			inputs[name] = map[string]any{InputDefault: val}
		default:
			inputs[name] = val
		}

		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}

	c.Inputs = inputs
	c.InputOrder = order

	return c
}

func names(v any, order []string) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if e != nil {
				out = append(out, fmt.Sprint(e))
			}
		}

		return out

	case map[string]any:
		out := make([]string, 0, len(t))
		for _, k := range order {
			if _, ok := t[k]; ok && !slices.Contains(out, k) {
				out = append(out, k)
			}
		}

		for _, k := range slices.Sorted(maps.Keys(t)) {
			if !slices.Contains(out, k) {
				out = append(out, k)
			}
		}

		return out

	default:
		return nil
	}
}
