package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/usecase"
)

// newAddCommand creates the add command.
func newAddCommand(e *env) *cobra.Command {
	var (
		file        string
		description string
		defaults    []string
		optional    []string
		force       bool
		edit        bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Store a prompt",
		Long: `Store a prompt under a name.

The content is read from --file. Without --file, $EDITOR (then $VISUAL,
then vim) opens on a temporary file when stdin is a terminal; otherwise the
content is read from stdin. --edit always opens the editor, and with --force
it starts from the stored content. Every {{placeholder}} in the content becomes a variable. Variables are
required unless a --default is given or they are listed with --optional.
The built-ins {{worktree.name}}, {{worktree.branch}} and {{worktree.path}}
are filled in per worktree and never need a value.`,
		Example: `  par add review --file review.md --description "Code review" --default area=all
  par add review --edit --force
  echo "Fix the lint errors in {{path}}" | par add lint --optional path`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}

			var content string
			switch {
			case file == "" && (edit || isTerminal(cmd.InOrStdin())):
				existing := ""
				if force {
					if shown, showErr := c.ShowPromptUseCase().Execute(cmd.Context(), usecase.ShowPromptInput{Name: args[0]}); showErr == nil {
						existing = shown.Prompt.Template
					}
				}
				content, err = editPrompt(args[0], existing, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			default:
				content, err = readPromptContent(cmd.InOrStdin(), file)
			}
			if err != nil {
				return err
			}
			defaultValues, err := domain.ParseVariableAssignments(defaults)
			if err != nil {
				return err
			}

			out, err := c.AddPromptUseCase().Execute(cmd.Context(), usecase.AddPromptInput{
				Name:        args[0],
				Description: description,
				Content:     content,
				Defaults:    defaultValues,
				Optional:    optional,
				Force:       force,
			})
			if err != nil {
				return err
			}

			verb := "Added"
			if out.Replaced {
				verb = "Replaced"
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s prompt %q\n", verb, out.Prompt.Name)
			if len(out.Prompt.Variables) > 0 {
				_, _ = fmt.Fprintf(w, "Variables: %s\n", variableNames(out.Prompt.Variables))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the prompt from this file")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Short description")
	cmd.Flags().StringArrayVar(&defaults, "default", nil, "Default value as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&optional, "optional", nil, "Variable that may stay empty (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing prompt")
	cmd.Flags().BoolVarP(&edit, "edit", "e", false, "Write the prompt in $EDITOR")
	cmd.MarkFlagsMutuallyExclusive("file", "edit")

	return cmd
}

func readPromptContent(stdin io.Reader, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read prompt file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	return string(data), nil
}

// newShowCommand creates the show command.
func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <prompt>",
		Short: "Show a stored prompt and its variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			out, err := c.ShowPromptUseCase().Execute(cmd.Context(), usecase.ShowPromptInput{Name: args[0]})
			if err != nil {
				return err
			}
			printPrompt(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func printPrompt(w io.Writer, out *usecase.ShowPromptOutput) {
	p := out.Prompt
	_, _ = fmt.Fprintf(w, "Name:        %s\n", p.Name)
	if p.Description != "" {
		_, _ = fmt.Fprintf(w, "Description: %s\n", p.Description)
	}
	if !p.ModifiedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Modified:    %s (%s)\n", p.ModifiedAt.Format("2006-01-02 15:04"), humanize.Time(p.ModifiedAt))
	}

	if len(p.Variables) > 0 {
		_, _ = fmt.Fprintln(w, "Variables:")
		for _, v := range p.Variables {
			var notes []string
			if v.Required {
				notes = append(notes, "required")
			} else {
				notes = append(notes, "optional")
			}
			if v.Default != "" {
				notes = append(notes, fmt.Sprintf("default %q", v.Default))
			}
			line := fmt.Sprintf("  %s (%s)", v.Name, strings.Join(notes, ", "))
			if v.Description != "" {
				line += ": " + v.Description
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, p.Template)
}

// newRmCommand creates the rm command.
func newRmCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <prompt>",
		Short:   "Delete a stored prompt",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			if _, err := c.DeletePromptUseCase().Execute(cmd.Context(), usecase.DeletePromptInput{Name: args[0]}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted prompt %q\n", args[0])
			return nil
		},
	}
}
