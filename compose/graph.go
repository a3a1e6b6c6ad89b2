package compose

import (
	"errors"
	"slices"

	"github.com/ardnew/itom/lang"
	"github.com/ardnew/itom/program"
)

// Includes returns the names of the programs that the latest body of name
// includes by literal reference, in order of first appearance.
func (x *Executor) Includes(name string) ([]string, error) {
	prog, err := x.registry.Get(name)
	if err != nil {
		return nil, err
	}

	var open, close string

	if b, err := x.Backend(prog.DSL); err == nil {
		d, ok := b.(lang.Dialect)
		if !ok {
			return nil, nil
		}

		open, close = d.Markers()
	}

	var refs []string

	for _, ref := range lang.Includes(prog.Latest.Body, open, close) {
		if n := Ref(ref); !slices.Contains(refs, n) {
			refs = append(refs, n)
		}
	}

	return refs, nil
}

// Graph returns the static include graph reachable from name as an
// adjacency list. Referenced programs that are not registered appear as
// keys with no edges and are listed in missing.
func (x *Executor) Graph(name string) (graph map[string][]string, missing []string, err error) {
	graph = map[string][]string{}
	queue := []string{name}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if _, seen := graph[n]; seen {
			continue
		}

		refs, err := x.Includes(n)
		if err != nil {
			if n != name && errors.Is(err, program.ErrNotFound) {
				graph[n] = nil
				missing = append(missing, n)

				continue
			}

			return nil, nil, err
		}

		graph[n] = refs
		queue = append(queue, refs...)
	}

	return graph, missing, nil
}
