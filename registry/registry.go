package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/itom/header"
	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/program"
)

// Registry owns the named programs, their version history and their
// execution logs.
//
// All mutations are serialized behind a single write lock. Readers receive
// immutable snapshots and may use them without holding any lock.
type Registry struct {
	mu      sync.RWMutex
	store   Store
	records map[string]*Record
	logger  log.Logger
}

// New returns a [Registry] backed by store, reconstructing every program the
// store holds. Records that fail to load are logged and skipped.
func New(ctx context.Context, store Store, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:   store,
		records: map[string]*Record{},
	}

	for _, opt := range opts {
		opt(r)
	}

	names, err := store.Names(ctx)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		rec, err := store.Load(ctx, name)
		if err != nil {
			r.logger.WarnContext(ctx, "skip unreadable program",
				programAttr(name), slog.Any("error", err))

			continue
		}

		if len(rec.Versions) == 0 {
			r.logger.WarnContext(ctx, "skip program without versions",
				programAttr(name))

			continue
		}

		rec.Metadata.Name = name
		r.records[name] = rec
	}

	r.logger.DebugContext(ctx, "registry loaded", slog.Int("programs", len(r.records)))

	return r, nil
}

// Len returns the number of registered programs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}

// Names returns the sorted names of all registered programs.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.records))
}

// Get returns a snapshot of the named program.
func (r *Registry) Get(name string) (Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return Program{}, r.notFound(name)
	}

	return rec.snapshot(), nil
}

// List returns snapshots of all registered programs ordered by name.
func (r *Registry) List() []Program {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Program, 0, len(r.records))
	for _, name := range slices.Sorted(maps.Keys(r.records)) {
		out = append(out, r.records[name].snapshot())
	}

	return out
}

// History returns a copy of the version list and execution logs of the named
// program.
func (r *Registry) History(name string) (History, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[name]
	if !ok {
		return History{}, r.notFound(name)
	}

	c := rec.clone()

	return History{Versions: c.Versions, Executions: c.Executions}, nil
}

// Add registers source under name.
//
// An unseen name creates a new program. A known name fails with
// [program.ErrExists] unless overwrite is set; then an identical source is a
// no-op and a different one is written to the store and picked up as a new
// version. A source with an invalid header leaves the registry unchanged.
func (r *Registry) Add(ctx context.Context, name, source string, overwrite bool) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	h, body, err := header.Parse(source)
	if err != nil {
		return program.AsError(err).With(programAttr(name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		now := time.Now()
		rec = &Record{
			Metadata: Metadata{
				Header:     h,
				Name:       name,
				CreatedAt:  now,
				ModifiedAt: now,
			},
		}
		rec.appendVersion(Version{Source: source, Body: body})

		if err := r.persist(ctx, rec, source); err != nil {
			return err
		}

		r.records[name] = rec

		r.logger.DebugContext(ctx, "program added",
			programAttr(name), slog.String("dsl", h.DSL))

		return nil
	}

	if !overwrite {
		return program.ErrExists.With(programAttr(name))
	}

	if rec.Latest().Source == source {
		r.logger.TraceContext(ctx, "program unchanged", programAttr(name))

		return nil
	}

	next := rec.clone()
	next.Metadata.Header = h
	next.Metadata.ModifiedAt = time.Now()
	next.appendVersion(Version{Source: source, Body: body})

	if err := r.store.Save(ctx, next); err != nil {
		return err
	}

	if err := r.store.WriteSource(ctx, name, source); err != nil {
		return errors.Join(err, r.store.Save(ctx, rec))
	}

	r.records[name] = next

	r.logger.DebugContext(ctx, "program version recorded",
		programAttr(name), slog.Int("version", len(next.Versions)))

	return nil
}

// Refresh compares the store's current source of every program with its
// latest recorded version and records a new version for each that changed.
// A program whose new source cannot be parsed keeps its previous version;
// the failures of all such programs are joined in the returned error.
func (r *Registry) Refresh(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		changed []string
		errs    []error
	)

	for _, name := range slices.Sorted(maps.Keys(r.records)) {
		ok, err := r.refresh(ctx, name)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if ok {
			changed = append(changed, name)
		}
	}

	return changed, errors.Join(errs...)
}

// refresh records a new version of name if its stored source changed.
// The caller must hold the write lock.
func (r *Registry) refresh(ctx context.Context, name string) (bool, error) {
	rec := r.records[name]

	source, err := r.store.Source(ctx, name)
	if err != nil {
		return false, err
	}

	if source == rec.Latest().Source {
		return false, nil
	}

	h, body, err := header.Parse(source)
	if err != nil {
		return false, program.AsError(err).With(programAttr(name))
	}

	next := rec.clone()
	next.Metadata.Header = h
	next.Metadata.ModifiedAt = time.Now()
	next.appendVersion(Version{Source: source, Body: body})

	if err := r.store.Save(ctx, next); err != nil {
		return false, err
	}

	r.records[name] = next

	r.logger.DebugContext(ctx, "program version recorded",
		programAttr(name), slog.Int("version", len(next.Versions)))

	return true, nil
}

// Curry registers newName as a copy of name in which each key of bound
// becomes the default of the corresponding input. The version history of
// name is copied with empty execution logs, and a new version carrying the
// updated header is appended. Bound keys remain part of the input schema.
func (r *Registry) Curry(
	ctx context.Context,
	name string,
	bound map[string]any,
	newName string,
) (Program, error) {
	if err := ValidateName(newName); err != nil {
		return Program{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.records[name]
	if !ok {
		return Program{}, r.notFound(name)
	}

	if _, ok := r.records[newName]; ok {
		return Program{}, program.ErrExists.With(programAttr(newName))
	}

	h := src.Metadata.Header.Bind(bound)

	formatted, err := header.FormatContext(ctx, h)
	if err != nil {
		return Program{}, program.AsError(err).With(programAttr(newName))
	}

	body := header.Strip(src.Latest().Source)
	source := formatted + body

	now := time.Now()
	rec := &Record{
		Metadata: Metadata{
			Header:     h,
			Name:       newName,
			CreatedAt:  now,
			ModifiedAt: now,
		},
		Versions:   slices.Clone(src.Versions),
		Executions: make([][]Execution, len(src.Versions)),
	}
	rec.appendVersion(Version{Source: source, Body: body})

	if err := r.persist(ctx, rec, source); err != nil {
		return Program{}, err
	}

	r.records[newName] = rec

	r.logger.DebugContext(ctx, "program curried",
		programAttr(name),
		slog.String("curried", newName),
		slog.Any("bound", slices.Sorted(maps.Keys(bound))))

	return rec.snapshot(), nil
}

// LogExecution appends an execution to the log of the latest version of
// name and persists the record.
func (r *Registry) LogExecution(
	ctx context.Context,
	name string,
	in program.Input,
	out *program.Output,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[name]
	if !ok {
		return r.notFound(name)
	}

	v, _ := program.Clone(in.Values).(map[string]any)

	next := rec.clone()
	last := len(next.Executions) - 1
	next.Executions[last] = append(next.Executions[last], Execution{
		Input:  program.Input{Start: in.Start, Values: v},
		Output: out,
	})

	if err := r.store.Save(ctx, next); err != nil {
		return err
	}

	r.records[name] = next

	return nil
}

// persist writes a new record and its source to the store.
func (r *Registry) persist(ctx context.Context, rec *Record, source string) error {
	if err := r.store.WriteSource(ctx, rec.Metadata.Name, source); err != nil {
		return err
	}

	return r.store.Save(ctx, rec)
}

// notFound builds a not-found error that suggests similar names.
// The caller must hold the lock.
func (r *Registry) notFound(name string) error {
	err := program.ErrNotFound.With(programAttr(name))

	names := slices.Sorted(maps.Keys(r.records))

	var suggest []string

	for _, m := range fuzzy.Find(name, names) {
		suggest = append(suggest, m.Str)
		if len(suggest) == 3 {
			break
		}
	}

	if len(suggest) > 0 {
		err = err.Wrap(fmt.Errorf("did you mean %s?", strings.Join(suggest, ", "))).
			With(slog.Any("suggestions", suggest))
	}

	return err
}

// ValidateName reports whether name can identify a program.
func ValidateName(name string) error {
	var reason string

	switch {
	case strings.TrimSpace(name) == "":
		reason = "empty program name"
	case strings.ContainsAny(name, `/\`):
		reason = "program name contains a path separator"
	case strings.HasPrefix(name, "."):
		reason = "program name begins with a dot"
	case strings.ContainsFunc(name, func(r rune) bool { return r < ' ' }):
		reason = "program name contains a control character"
	default:
		return nil
	}

	return program.ErrValidation.Wrap(errors.New(reason)).With(programAttr(name))
}

func programAttr(name string) slog.Attr {
	return slog.String("program", name)
}
