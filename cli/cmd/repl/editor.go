package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ardnew/itom/header"
	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/pkg"
	"github.com/ardnew/itom/registry"
)

const defaultEditor = "vi"

// editCommand implements [tea.ExecCommand] for the edit-parse-retry loop of
// one program source. It writes the latest source to a temp file, opens the
// user's editor, and validates the header of the result. On error the user
// is prompted to re-edit; declining exits the REPL.
type editCommand struct {
	ctxFunc  func() context.Context
	registry *registry.Registry
	logger   log.Logger
	name     string
	saved    bool
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the edit-parse-retry loop. An unchanged or emptied source
// saves nothing. If the user declines to re-edit, it returns
// [ErrEditDeclined].
func (c *editCommand) Run() error {
	ctx := c.ctxFunc()

	prog, err := c.registry.Get(c.name)
	if err != nil {
		return err
	}

	original := prog.Latest.Source
	content := original

	f, err := os.CreateTemp(os.TempDir(), pkg.Name+"-"+c.name+"-*"+pkg.SourceExt)
	if err != nil {
		return err
	}

	tmpPath := f.Name()

	defer os.Remove(tmpPath)

	if err := f.Chmod(0o600); err != nil {
		f.Close()

		return err
	}

	f.Close()

	for {
		if err := os.WriteFile(tmpPath, []byte(content), 0o600); err != nil {
			return err
		}

		if err := runEditor(ctx, c.stdin, c.stdout, c.stderr, tmpPath); err != nil {
			return err
		}

		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}

		content = string(data)

		if strings.TrimSpace(content) == "" || content == original {
			return nil
		}

		_, _, parseErr := header.Parse(content)

		c.logger.TraceContext(ctx, "editor parse attempt",
			slog.String("program", c.name),
			slog.Int("content_length", len(content)),
			slog.Bool("success", parseErr == nil),
		)

		if parseErr == nil {
			if err := c.registry.Add(ctx, c.name, content, true); err != nil {
				return err
			}

			c.saved = true

			return nil
		}

		fmt.Fprintf(c.stderr, "\nHeader error: %s\n", parseErr)
		fmt.Fprintf(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if response == "n" || response == "no" {
			return ErrEditDeclined
		}
	}
}

// runEditor launches the user's editor on the given file path.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	path string,
) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}
