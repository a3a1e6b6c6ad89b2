package registry

import (
	"slices"
	"time"

	"github.com/ardnew/itom/header"
	"github.com/ardnew/itom/program"
)

// Metadata describes a registered program.
type Metadata struct {
	header.Header

	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Version is one recorded revision of a program source.
type Version struct {
	Source string `json:"source"`
	Body   string `json:"body"`
}

// Execution pairs the input and output of one run of a program version.
type Execution struct {
	Input  program.Input   `json:"input"`
	Output *program.Output `json:"output"`
}

// Record is the persisted state of a program: its metadata, every recorded
// version in order, and one execution log per version.
type Record struct {
	Metadata   Metadata      `json:"metadata"`
	Versions   []Version     `json:"versions"`
	Executions [][]Execution `json:"executions"`
}

// Latest returns the canonical version used for execution.
func (r *Record) Latest() Version {
	if len(r.Versions) == 0 {
		return Version{}
	}

	return r.Versions[len(r.Versions)-1]
}

// appendVersion records a new version with an empty execution log.
func (r *Record) appendVersion(v Version) {
	r.Versions = append(r.Versions, v)
	r.Executions = append(r.Executions, nil)
}

// normalize restores the invariant of one execution log per version for
// records written by older or foreign tools.
func (r *Record) normalize() {
	for len(r.Executions) < len(r.Versions) {
		r.Executions = append(r.Executions, nil)
	}

	if len(r.Executions) > len(r.Versions) {
		r.Executions = r.Executions[:len(r.Versions)]
	}
}

// clone returns a copy of r that shares no mutable state with it.
func (r *Record) clone() *Record {
	c := &Record{
		Metadata:   r.Metadata,
		Versions:   slices.Clone(r.Versions),
		Executions: make([][]Execution, len(r.Executions)),
	}

	c.Metadata.Header = r.Metadata.Header.Clone()

	for i, log := range r.Executions {
		c.Executions[i] = slices.Clone(log)
	}

	return c
}

// Program is an immutable snapshot of a registered program.
type Program struct {
	Metadata

	// Latest is the canonical version used for execution.
	Latest Version
	// Versions is the number of recorded versions.
	Versions int
}

func (r *Record) snapshot() Program {
	m := r.Metadata
	m.Header = m.Header.Clone()

	return Program{
		Metadata: m,
		Latest:   r.Latest(),
		Versions: len(r.Versions),
	}
}

// History is a copy of the version list and execution logs of a program.
type History struct {
	Versions   []Version
	Executions [][]Execution
}
