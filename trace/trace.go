// Package trace records the tree of program executions made while serving
// one request.
//
// The executor opens a child of the node found in the context for every
// program it runs, so a root attached with [WithNode] ends up holding the
// complete include tree. Tracing is observational only; a context without a
// node records nothing.
package trace

import (
	"context"
	"encoding/json"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ardnew/itom/program"
)

// Node is one execution in the trace tree.
type Node struct {
	mu       sync.Mutex
	id       string
	program  string
	visual   program.VisualType
	input    map[string]any
	start    time.Time
	end      time.Time
	summary  *Summary
	children []*Node
}

// Summary describes the result of an execution without its payload.
type Summary struct {
	VisualType program.VisualType `json:"visualType,omitempty"`
	Error      string             `json:"error,omitempty"`
	DataKeys   []string           `json:"dataKeys,omitempty"`
	Succeeded  bool               `json:"succeeded"`
}

// NewRoot returns an empty root node that starts now.
func NewRoot() *Node {
	return &Node{id: uuid.NewString(), start: time.Now()}
}

// Begin appends and returns a child of n for an execution of name.
func (n *Node) Begin(name string, visual program.VisualType, input map[string]any) *Node {
	in, _ := program.Clone(input).(map[string]any)

	c := &Node{
		id:      uuid.NewString(),
		program: name,
		visual:  visual,
		input:   in,
		start:   time.Now(),
	}

	n.mu.Lock()
	n.children = append(n.children, c)
	n.mu.Unlock()

	return c
}

// Resolve records the visual type and inputs of n once they are known.
func (n *Node) Resolve(visual program.VisualType, input map[string]any) {
	in, _ := program.Clone(input).(map[string]any)

	n.mu.Lock()
	n.visual, n.input = visual, in
	n.mu.Unlock()
}

// Finish records the result of the execution. Either out or err may be nil.
func (n *Node) Finish(out *program.Output, err error) {
	s := &Summary{}

	switch {
	case err != nil:
		s.Error = err.Error()
	case out != nil:
		s.VisualType = out.VisualType()
		s.Succeeded = out.Succeeded()
		s.Error = out.Err()
		s.DataKeys = out.DataKeys()
	}

	n.mu.Lock()
	n.end = time.Now()
	n.summary = s
	n.mu.Unlock()
}

// ID returns the unique identifier of n.
func (n *Node) ID() string { return n.id }

// Program returns the name of the executed program; empty for a root.
func (n *Node) Program() string { return n.program }

// Summary returns the recorded result, or nil if n has not finished.
func (n *Node) Summary() *Summary {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.summary
}

// Duration returns the elapsed time of a finished node, or the time elapsed
// so far.
func (n *Node) Duration() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.end.IsZero() {
		return time.Since(n.start)
	}

	return n.end.Sub(n.start)
}

// Children returns the direct children of n in the order they began.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	return slices.Clone(n.children)
}

// Walk yields every node below n in depth-first order with its depth, where
// the children of n are at depth 1.
func (n *Node) Walk() iter.Seq2[int, *Node] {
	return func(yield func(int, *Node) bool) {
		var walk func(*Node, int) bool

		walk = func(p *Node, depth int) bool {
			for _, c := range p.Children() {
				if !yield(depth, c) || !walk(c, depth+1) {
					return false
				}
			}

			return true
		}

		walk(n, 1)
	}
}

type nodeJSON struct {
	ID         string             `json:"id"`
	Program    string             `json:"program,omitempty"`
	VisualType program.VisualType `json:"visualType,omitempty"`
	Input      map[string]any     `json:"input,omitempty"`
	Start      time.Time          `json:"start"`
	End        *time.Time         `json:"end,omitempty"`
	Output     *Summary           `json:"output,omitempty"`
	Children   []*Node            `json:"children,omitempty"`
	Duration   time.Duration      `json:"durationNs"`
}

// MarshalJSON implements [json.Marshaler].
func (n *Node) MarshalJSON() ([]byte, error) {
	n.mu.Lock()

	v := nodeJSON{
		ID:         n.id,
		Program:    n.program,
		VisualType: n.visual,
		Input:      n.input,
		Start:      n.start,
		Output:     n.summary,
		Children:   slices.Clone(n.children),
	}

	if !n.end.IsZero() {
		end := n.end
		v.End = &end
		v.Duration = end.Sub(n.start)
	}

	n.mu.Unlock()

	return json.Marshal(v)
}

type contextKey struct{}

// WithNode returns a context in which n is the active node.
func WithNode(ctx context.Context, n *Node) context.Context {
	return context.WithValue(ctx, contextKey{}, n)
}

// FromContext returns the active node of ctx, if any.
func FromContext(ctx context.Context) (*Node, bool) {
	n, ok := ctx.Value(contextKey{}).(*Node)

	return n, ok && n != nil
}
