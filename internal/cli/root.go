// Package cli provides the command-line interface for par.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/par/internal/app"
)

// Command group IDs.
const (
	groupRun    = "run"
	groupPrompt = "prompt"
	groupSetup  = "setup"
)

// ContainerFactory builds the container once global flags are parsed.
type ContainerFactory func(opts app.Options) (*app.Container, error)

// env is shared by every command. The container is created in
// PersistentPreRunE so --config and --debug are honoured.
type env struct {
	newContainer ContainerFactory
	c            *app.Container
	opts         app.Options
}

func (e *env) container() (*app.Container, error) {
	if e.c != nil {
		return e.c, nil
	}
	if e.newContainer == nil {
		return nil, errors.New("no container factory configured")
	}
	c, err := e.newContainer(e.opts)
	if err != nil {
		return nil, err
	}
	e.c = c
	return c, nil
}

// NewRootCommand creates the root command for par.
func NewRootCommand(newContainer ContainerFactory, version string) *cobra.Command {
	e := &env{newContainer: newContainer}
	return newRootCommand(e, version)
}

// NewRootCommandWithContainer creates the root command around an existing
// container. Global --config and --debug flags are then ignored.
func NewRootCommandWithContainer(c *app.Container, version string) *cobra.Command {
	return newRootCommand(&env{c: c}, version)
}

func newRootCommand(e *env, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "par",
		Short: "Run one prompt across many Git worktrees in parallel",
		Long: `par applies a stored prompt to many Git worktrees at once.

It discovers worktrees under the configured search paths, resolves the
prompt's {{variables}}, and runs the configured CLI agent in every worktree
with a bounded worker pool. A summary report is printed when all jobs finish.

Exit codes: 0 success, 1 configuration error, 2 a job failed or timed out,
130 interrupted.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			for _, w := range c.Config.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			// Containers passed in by the caller are closed by the caller.
			if e.c == nil || e.newContainer == nil {
				return nil
			}
			return e.c.Close()
		},
	}

	root.PersistentFlags().StringVar(&e.opts.ConfigPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/par/config.toml)")
	root.PersistentFlags().BoolVar(&e.opts.Debug, "debug", false, "Enable debug logging")

	// Define command groups
	root.AddGroup(
		&cobra.Group{ID: groupRun, Title: "Running:"},
		&cobra.Group{ID: groupPrompt, Title: "Prompt Library:"},
		&cobra.Group{ID: groupSetup, Title: "Setup & Maintenance:"},
	)

	runCmd := newRunCommand(e)
	runCmd.GroupID = groupRun

	listCmd := newListCommand(e)
	listCmd.GroupID = groupRun

	addCmd := newAddCommand(e)
	addCmd.GroupID = groupPrompt

	showCmd := newShowCommand(e)
	showCmd.GroupID = groupPrompt

	rmCmd := newRmCommand(e)
	rmCmd.GroupID = groupPrompt

	cleanCmd := newCleanCommand(e)
	cleanCmd.GroupID = groupSetup

	configCmd := newConfigCommand(e)
	configCmd.GroupID = groupSetup

	root.AddCommand(
		runCmd,
		listCmd,
		addCmd,
		showCmd,
		rmCmd,
		cleanCmd,
		configCmd,
	)

	return root
}
