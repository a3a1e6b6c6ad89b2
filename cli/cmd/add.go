package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/ardnew/itom/pkg"
	"github.com/ardnew/itom/program"
)

// Add registers program sources.
type Add struct {
	Files     []string `arg:"" help:"Program source files or '-' for stdin." name:"file"`
	Name      string   `       help:"Program name for a source read from stdin, or for a single file."`
	Force     bool     `       help:"Replace programs that are already registered."          short:"f"`
	Recursive bool     `       help:"Also add included programs found on the search path."  short:"r"`
}

// Run executes the add command.
func (a *Add) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := sessionFrom(ctx)

	srcs, err := readSources(a.Files, a.Name)
	if err != nil {
		return err
	}

	if a.Name != "" && len(srcs) == 1 {
		srcs[0].name = a.Name
	}

	reg, err := s.Registry(ctx)
	if err != nil {
		return err
	}

	var added []string

	for _, src := range srcs {
		if err := reg.Add(ctx, src.name, src.text, a.Force); err != nil {
			return err
		}

		added = append(added, src.name)

		fmt.Fprintf(s.out(), "added %s\n", src.name)
	}

	if !a.Recursive {
		return nil
	}

	return a.addIncluded(ctx, added)
}

// addIncluded adds the sources of every unregistered program reachable from
// names by literal include, looking them up on the search path.
func (a *Add) addIncluded(ctx context.Context, names []string) error {
	s := sessionFrom(ctx)

	x, err := s.Executor(ctx)
	if err != nil {
		return err
	}

	path := pkg.SearchPath(s.Path...)
	tried := map[string]bool{}

	var errs []error

	for len(names) > 0 {
		var next []string

		for _, name := range names {
			_, missing, err := x.Graph(name)
			if err != nil {
				errs = append(errs, err)

				continue
			}

			for _, ref := range missing {
				if tried[ref] {
					continue
				}

				tried[ref] = true

				file, ok := pkg.FindSource(ref, path)
				if !ok {
					errs = append(errs, program.ErrNotFound.With(
						slog.String("program", ref),
						slog.Any("path", path),
					))

					continue
				}

				data, err := os.ReadFile(file)
				if err != nil {
					errs = append(errs, ErrReadSource.Wrap(err).With(slog.String("file", file)))

					continue
				}

				if err := x.Registry().Add(ctx, ref, string(data), a.Force); err != nil {
					errs = append(errs, err)

					continue
				}

				s.Logger.DebugContext(ctx, "added included program",
					slog.String("program", ref), slog.String("file", file))

				fmt.Fprintf(s.out(), "added %s (%s)\n", ref, file)

				if !slices.Contains(next, ref) {
					next = append(next, ref)
				}
			}
		}

		names = next
	}

	return errors.Join(errs...)
}
