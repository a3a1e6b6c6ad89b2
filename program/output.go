package program

import (
	"encoding/base64"
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// VisualType identifies the representation of a rendered payload.
type VisualType string

// Visual types understood by the bundled backends.
const (
	VisualText     VisualType = "text"
	VisualMarkdown VisualType = "md"
	VisualHTML     VisualType = "html"
	VisualJSON     VisualType = "json"
	VisualPNG      VisualType = "png"
)

// Binary reports whether payloads of type v are not printable text.
func (v VisualType) Binary() bool {
	return v == VisualPNG
}

// Input is the argument record of a single execution.
type Input struct {
	Start  time.Time      `json:"start"`
	Values map[string]any `json:"values"`
}

// NewInput returns an [Input] starting now whose values are a deep copy of
// values.
func NewInput(values map[string]any) Input {
	v, _ := Clone(values).(map[string]any)
	if v == nil {
		v = map[string]any{}
	}

	return Input{Start: time.Now(), Values: v}
}

// Output is the result of a single execution. Either the execution succeeded
// and Output carries a payload and data outputs, or it failed and Output
// carries only an error message. An Output is never modified after
// construction; use [Output.With] to derive a changed copy.
type Output struct {
	end     time.Time
	program string
	visual  VisualType
	errMsg  string
	payload []byte
	data    map[string]any
	ok      bool
}

// OutputOption configures an [Output] under construction.
type OutputOption func(*Output)

// WithData sets the named data outputs. The map is deep copied.
func WithData(data map[string]any) OutputOption {
	return func(o *Output) {
		d, _ := Clone(data).(map[string]any)
		o.data = d
	}
}

// WithEnd sets the completion timestamp.
func WithEnd(t time.Time) OutputOption {
	return func(o *Output) { o.end = t }
}

// WithProgram names the program that produced the output.
func WithProgram(name string) OutputOption {
	return func(o *Output) { o.program = name }
}

// NewOutput returns a successful [Output] with the given payload.
func NewOutput(visual VisualType, payload []byte, opts ...OutputOption) *Output {
	o := &Output{
		end:     time.Now(),
		visual:  visual,
		payload: slices.Clone(payload),
		ok:      true,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// NewTextOutput is shorthand for [NewOutput] with a string payload.
func NewTextOutput(visual VisualType, text string, opts ...OutputOption) *Output {
	return NewOutput(visual, []byte(text), opts...)
}

// NewFailure returns a failed [Output] describing err.
func NewFailure(err error, opts ...OutputOption) *Output {
	o := &Output{end: time.Now()}
	if err != nil {
		o.errMsg = err.Error()
	}

	for _, opt := range opts {
		opt(o)
	}

	o.payload, o.data, o.visual, o.ok = nil, nil, "", false

	return o
}

// With returns a copy of o with opts applied.
func (o *Output) With(opts ...OutputOption) *Output {
	c := *o
	c.data = maps.Clone(o.data)

	for _, opt := range opts {
		opt(&c)
	}

	return &c
}

// Succeeded reports whether the execution succeeded.
func (o *Output) Succeeded() bool { return o.ok }

// Err returns the failure message, or "" for successful outputs.
func (o *Output) Err() string { return o.errMsg }

// Program returns the name of the program that produced o.
func (o *Output) Program() string { return o.program }

// End returns the completion timestamp.
func (o *Output) End() time.Time { return o.end }

// VisualType returns the payload representation.
func (o *Output) VisualType() VisualType { return o.visual }

// Text returns the payload as a string.
func (o *Output) Text() string { return string(o.payload) }

// Bytes returns a copy of the payload.
func (o *Output) Bytes() []byte { return slices.Clone(o.payload) }

// Data returns a deep copy of the named data outputs.
func (o *Output) Data() map[string]any {
	d, _ := Clone(o.data).(map[string]any)
	if d == nil {
		d = map[string]any{}
	}

	return d
}

// Datum returns a deep copy of a single named data output.
func (o *Output) Datum(name string) (any, bool) {
	v, ok := o.data[name]
	if !ok {
		return nil, false
	}

	return Clone(v), true
}

// DataKeys returns the sorted names of the data outputs.
func (o *Output) DataKeys() []string {
	return slices.Sorted(maps.Keys(o.data))
}

// outputJSON is the persisted form of an [Output].
type outputJSON struct {
	End       time.Time       `json:"end"`
	Program   string          `json:"program,omitempty"`
	Visual    VisualType      `json:"visualType,omitempty"`
	Payload   string          `json:"payload,omitempty"`
	Encoding  string          `json:"encoding,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Succeeded bool            `json:"succeeded"`
}

// MarshalJSON implements [json.Marshaler]. Binary payloads are base64
// encoded.
func (o *Output) MarshalJSON() ([]byte, error) {
	w := outputJSON{
		End:       o.end,
		Program:   o.program,
		Visual:    o.visual,
		Error:     o.errMsg,
		Succeeded: o.ok,
	}

	if len(o.data) > 0 {
		data, err := json.Marshal(o.data)
		if err != nil {
			return nil, err
		}

		w.Data = data
	}

	if o.visual.Binary() {
		w.Payload = base64.StdEncoding.EncodeToString(o.payload)
		w.Encoding = "base64"
	} else {
		w.Payload = string(o.payload)
	}

	return json.Marshal(w)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (o *Output) UnmarshalJSON(b []byte) error {
	var w outputJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	payload := []byte(w.Payload)

	if w.Encoding == "base64" {
		var err error

		payload, err = base64.StdEncoding.DecodeString(w.Payload)
		if err != nil {
			return err
		}
	}

	*o = Output{
		end:     w.End,
		program: w.Program,
		visual:  w.Visual,
		errMsg:  w.Error,
		payload: payload,
		ok:      w.Succeeded,
	}

	if len(w.Data) > 0 {
		v, err := DecodeJSON(w.Data)
		if err != nil {
			return err
		}

		if d, ok := v.(map[string]any); ok && len(d) > 0 {
			o.data = d
		}
	}

	return nil
}
