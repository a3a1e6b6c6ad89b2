package registry

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/ardnew/itom/program"
)

// Store persists program records and their editable sources.
//
// A record holds everything the registry knows about a program. The source
// is the current editable text, which may drift from the latest recorded
// version until the registry is refreshed.
type Store interface {
	// Names lists the programs held by the store.
	Names(ctx context.Context) ([]string, error)
	// Load returns the record of the named program.
	Load(ctx context.Context, name string) (*Record, error)
	// Save writes a record, replacing any previous one of the same name.
	Save(ctx context.Context, rec *Record) error
	// Source returns the current editable source of the named program.
	Source(ctx context.Context, name string) (string, error)
	// WriteSource replaces the editable source of the named program.
	WriteSource(ctx context.Context, name, source string) error
}

// MemoryStore is a [Store] that keeps everything in memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	sources map[string]string
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]*Record{},
		sources: map[string]string{},
	}
}

// Names implements [Store].
func (s *MemoryStore) Names(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Sorted(maps.Keys(s.records)), nil
}

// Load implements [Store].
func (s *MemoryStore) Load(_ context.Context, name string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return nil, notFound(name)
	}

	return rec.clone(), nil
}

// Save implements [Store].
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Metadata.Name] = rec.clone()

	return nil
}

// Source implements [Store].
func (s *MemoryStore) Source(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[name]
	if !ok {
		return "", notFound(name)
	}

	return src, nil
}

// WriteSource implements [Store].
func (s *MemoryStore) WriteSource(_ context.Context, name, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sources[name] = source

	return nil
}

func notFound(name string) error {
	return program.ErrNotFound.With(programAttr(name))
}
