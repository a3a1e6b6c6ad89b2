package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/itom/header"
	"github.com/ardnew/itom/registry"
)

// Inspect describes a registered program.
type Inspect struct {
	Name    string `arg:"" help:"Program to inspect."`
	Graph   bool   `       help:"Print the static include graph." xor:"view"`
	History bool   `       help:"Print the version and execution history." xor:"view"`
}

// Run executes the inspect command.
func (i *Inspect) Run(ctx context.Context) error {
	s := sessionFrom(ctx)

	x, err := s.Executor(ctx)
	if err != nil {
		return err
	}

	var text string

	switch {
	case i.Graph:
		graph, missing, err := x.Graph(i.Name)
		if err != nil {
			return err
		}

		text = GraphTree(i.Name, graph, missing)

	case i.History:
		hist, err := x.Registry().History(i.Name)
		if err != nil {
			return err
		}

		text, err = historyYAML(hist)
		if err != nil {
			return err
		}

	default:
		prog, err := x.Registry().Get(i.Name)
		if err != nil {
			return err
		}

		text, err = schemaYAML(prog)
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintln(s.out(), strings.TrimRight(text, "\n"))

	return err
}

// schemaYAML describes the interface of p.
func schemaYAML(p registry.Program) (string, error) {
	inputs := yaml.MapSlice{}

	for _, spec := range p.InputSpecs() {
		entry := yaml.MapSlice{{Key: header.InputRequired, Value: spec.Required}}

		if spec.HasDefault {
			entry = append(entry, yaml.MapItem{Key: header.InputDefault, Value: spec.Default})
		}

		if spec.Description != "" {
			entry = append(entry, yaml.MapItem{Key: header.InputDescription, Value: spec.Description})
		}

		inputs = append(inputs, yaml.MapItem{Key: spec.Name, Value: entry})
	}

	doc := yaml.MapSlice{
		{Key: "name", Value: p.Name},
		{Key: header.KeyDescription, Value: p.Description},
		{Key: header.KeyDSL, Value: p.DSL},
		{Key: header.KeyInputs, Value: inputs},
		{Key: header.KeyOutputs, Value: p.OutputNames()},
		{Key: header.KeyConfig, Value: p.ConfigMap()},
		{Key: "versions", Value: p.Versions},
		{Key: "created", Value: p.CreatedAt.Format(time.RFC3339)},
		{Key: "modified", Value: p.ModifiedAt.Format(time.RFC3339)},
	}

	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", ErrYAMLMarshal.Wrap(err)
	}

	return string(b), nil
}

// historyYAML summarizes every version of a program and its executions.
func historyYAML(h registry.History) (string, error) {
	versions := make([]yaml.MapSlice, 0, len(h.Versions))

	for n, v := range h.Versions {
		var runs []yaml.MapSlice

		if n < len(h.Executions) {
			for _, e := range h.Executions[n] {
				run := yaml.MapSlice{
					{Key: "start", Value: e.Input.Start.Format(time.RFC3339)},
					{Key: "inputs", Value: e.Input.Values},
				}

				if out := e.Output; out != nil {
					run = append(run,
						yaml.MapItem{Key: "succeeded", Value: out.Succeeded()},
						yaml.MapItem{Key: "visualType", Value: string(out.VisualType())},
					)

					if msg := out.Err(); msg != "" {
						run = append(run, yaml.MapItem{Key: "error", Value: msg})
					}
				}

				runs = append(runs, run)
			}
		}

		versions = append(versions, yaml.MapSlice{
			{Key: "version", Value: n + 1},
			{Key: "lines", Value: strings.Count(v.Source, "\n") + 1},
			{Key: "executions", Value: runs},
		})
	}

	b, err := yaml.Marshal(versions)
	if err != nil {
		return "", ErrYAMLMarshal.Wrap(err)
	}

	return string(b), nil
}

// GraphTree renders the include graph reachable from root. Programs already
// shown higher up the same branch are marked instead of expanded.
func GraphTree(root string, graph map[string][]string, missing []string) string {
	var build func(name string, path []string) any

	build = func(name string, path []string) any {
		label := name

		switch {
		case slices.Contains(missing, name):
			return traceFail.Render(name + " (missing)")
		case slices.Contains(path, name):
			return traceFaint.Render(name + " (cycle)")
		}

		refs := graph[name]
		if len(refs) == 0 {
			return label
		}

		t := tree.Root(label)

		for _, ref := range refs {
			t.Child(build(ref, append(slices.Clip(path), name)))
		}

		return t
	}

	if t, ok := build(root, nil).(*tree.Tree); ok {
		return t.String()
	}

	return root
}
