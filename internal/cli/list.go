package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runoshun/par/internal/app"
	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/usecase"
)

const (
	listPrompts   = "prompts"
	listWorktrees = "worktrees"
)

// newListCommand creates the list command.
func newListCommand(e *env) *cobra.Command {
	var (
		all      bool
		patterns []string
		dirs     []string
	)

	cmd := &cobra.Command{
		Use:   "list [prompts|worktrees]",
		Short: "List stored prompts and discovered worktrees",
		Long: `List stored prompts and discovered worktrees.

Without an argument both are listed. Worktrees show linked worktrees only
unless --all is given, in which case main checkouts are included.`,
		Aliases:   []string{"ls"},
		ValidArgs: []string{listPrompts, listWorktrees},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			what := ""
			if len(args) == 1 {
				what = args[0]
			}
			w := cmd.OutOrStdout()

			if what == "" || what == listPrompts {
				if what == "" {
					_, _ = fmt.Fprintln(w, "Prompts:")
				}
				if err := listPromptsTo(cmd, c, w); err != nil {
					return err
				}
			}
			if what == "" {
				_, _ = fmt.Fprintln(w)
				_, _ = fmt.Fprintln(w, "Worktrees:")
			}
			if what == "" || what == listWorktrees {
				return listWorktreesTo(cmd, c, w, usecase.ListWorktreesInput{
					Dirs:      dirs,
					Selection: domain.WorktreeSelection{Patterns: patterns},
					All:       all,
				})
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include main checkouts, not only linked worktrees")
	cmd.Flags().StringArrayVarP(&patterns, "worktrees", "w", nil, "Glob on worktree name, branch or directory (repeatable)")
	cmd.Flags().StringArrayVar(&dirs, "dir", nil, "Inspect this directory instead of scanning (repeatable)")

	return cmd
}

func listPromptsTo(cmd *cobra.Command, c *app.Container, w io.Writer) error {
	out, err := c.ListPromptsUseCase().Execute(cmd.Context(), usecase.ListPromptsInput{})
	if err != nil {
		return err
	}
	if len(out.Prompts) == 0 {
		_, _ = fmt.Fprintln(w, "No prompts stored. Add one with: par add <name>")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVARIABLES\tMODIFIED\tDESCRIPTION")
	for _, p := range out.Prompts {
		modified := "-"
		if !p.ModifiedAt.IsZero() {
			modified = humanize.Time(p.ModifiedAt)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Name, variableNames(p.Variables), modified, p.Description)
	}
	return tw.Flush()
}

func listWorktreesTo(cmd *cobra.Command, c *app.Container, w io.Writer, in usecase.ListWorktreesInput) error {
	out, err := c.ListWorktreesUseCase().Execute(cmd.Context(), in)
	if err != nil {
		return err
	}
	for _, warn := range out.Warnings {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", warn)
	}

	if len(out.Worktrees) == 0 {
		_, _ = fmt.Fprintln(w, "No worktrees found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(tw, "NAME\tBRANCH\tSTATUS\tKIND\tPATH")
		for _, wt := range out.Worktrees {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", wt.Name, wt.Branch, wt.StatusLabel(), wt.Kind(), wt.Path)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if hidden := out.Total - len(out.Worktrees); hidden > 0 {
		_, _ = fmt.Fprintf(w, "(%d main checkouts hidden, use --all to show them)\n", hidden)
	}
	return nil
}

// variableNames joins variable names, marking optional ones with "?".
func variableNames(vars []domain.Variable) string {
	if len(vars) == 0 {
		return "-"
	}
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		if v.Required {
			names = append(names, v.Name)
		} else {
			names = append(names, v.Name+"?")
		}
	}
	return strings.Join(names, ", ")
}
