package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// List prints the registered programs.
type List struct {
	Plain bool `help:"Print one tab-separated line per program without styling."`
}

var (
	listHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	listCell   = lipgloss.NewStyle().Padding(0, 1)
	listBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Run executes the list command.
func (l *List) Run(ctx context.Context) error {
	s := sessionFrom(ctx)

	reg, err := s.Registry(ctx)
	if err != nil {
		return err
	}

	progs := reg.List()

	if l.Plain {
		for _, p := range progs {
			fmt.Fprintf(s.out(), "%s\t%s\t%d\t%s\n",
				p.Name, p.DSL, p.Versions, p.Description)
		}

		return nil
	}

	if len(progs) == 0 {
		fmt.Fprintln(s.out(), "no programs registered")

		return nil
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(listBorder).
		Headers("NAME", "DSL", "VERSIONS", "INPUTS", "DESCRIPTION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return listHeader
			}

			return listCell
		})

	for _, p := range progs {
		t.Row(
			p.Name,
			p.DSL,
			strconv.Itoa(p.Versions),
			strings.Join(p.InputNames(), ", "),
			p.Description,
		)
	}

	_, err = fmt.Fprintln(s.out(), t.Render())

	return err
}
