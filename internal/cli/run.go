package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/runoshun/par/internal/app"
	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/pool"
	"github.com/runoshun/par/internal/report"
	"github.com/runoshun/par/internal/tui/progress"
	"github.com/runoshun/par/internal/usecase"
)

// runOptions holds the flags of the run command.
// Fields are ordered to minimize memory padding.
type runOptions struct {
	vars              []string
	patterns          []string
	dirs              []string
	output            string
	format            string
	metricsFile       string
	timeout           time.Duration
	jobs              int
	continueOnFailure bool
	failFast          bool
	cleanOnly         bool
	linkedOnly        bool
	dryRun            bool
	stream            bool
	terminal          bool
	tui               bool
}

// applyDefaults fills flags the user did not set from the [defaults] section.
func (o *runOptions) applyDefaults(cmd *cobra.Command, cfg *domain.Config) {
	flags := cmd.Flags()
	if !flags.Changed("jobs") {
		o.jobs = cfg.Defaults.Jobs
	}
	if !flags.Changed("timeout") {
		o.timeout = cfg.Defaults.Timeout
	}
	if !flags.Changed("output") {
		o.output = cfg.Defaults.OutputDir
	}
	if !flags.Changed("continue-on-failure") {
		o.continueOnFailure = cfg.Defaults.ContinueOnFailure
	}
	if !flags.Changed("fail-fast") {
		o.failFast = cfg.Defaults.FailFast
	}
	if !flags.Changed("stream") {
		o.stream = cfg.Defaults.Stream
	}
	if !flags.Changed("metrics-file") {
		o.metricsFile = cfg.Metrics.Textfile
	}
}

// newRunCommand creates the run command.
func newRunCommand(e *env) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run a stored prompt in every selected worktree",
		Long: `Run a stored prompt in every selected worktree.

Worktrees are discovered under the configured search paths, or taken from
--dir. Template variables are supplied with --var; required variables without
a value or default stop the run before anything starts.

Each worktree gets one job. At most --jobs agents run at the same time and
every job is stopped when it exceeds --timeout. Press Ctrl+C to cancel: running
agents are terminated and queued jobs are skipped.

Exit codes:
  0    all jobs succeeded (or --continue-on-failure)
  1    configuration error
  2    a job failed or timed out
  130  interrupted`,
		Example: `  # Review every worktree, four at a time
  par run review --var area=auth --jobs 4

  # Only clean feature worktrees, JSON report
  par run review --worktrees 'feature-*' --clean-only --format json

  # Show what would run
  par run review --var area=auth --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.container()
			if err != nil {
				return err
			}
			return runPrompt(cmd, c, args[0], &opts)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.jobs, "jobs", "j", domain.DefaultJobs, "Maximum number of agents running at once")
	f.DurationVarP(&opts.timeout, "timeout", "t", domain.DefaultTimeout, "Per-job timeout")
	f.BoolVar(&opts.continueOnFailure, "continue-on-failure", false, "Exit 0 even when jobs fail")
	f.BoolVar(&opts.failFast, "fail-fast", false, "Stop starting jobs after the first failure")
	f.StringVarP(&opts.output, "output", "o", "", "Directory for report files (empty disables saving)")
	f.StringArrayVar(&opts.vars, "var", nil, "Template variable as key=value (repeatable)")
	f.StringArrayVarP(&opts.patterns, "worktrees", "w", nil, "Glob on worktree name, branch or directory (repeatable)")
	f.StringArrayVar(&opts.dirs, "dir", nil, "Use this directory instead of scanning (repeatable)")
	f.BoolVar(&opts.cleanOnly, "clean-only", false, "Skip worktrees with uncommitted changes")
	f.BoolVar(&opts.linkedOnly, "linked-only", false, "Only linked worktrees, not main checkouts")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Show the jobs without running them")
	f.BoolVar(&opts.stream, "stream", false, "Stream agent output live, prefixed with the worktree name")
	f.BoolVar(&opts.terminal, "terminal", false, "Run each agent in its own tmux session")
	f.BoolVar(&opts.tui, "tui", false, "Show a live progress view")
	f.StringVarP(&opts.format, "format", "f", string(report.FormatConsole), "Report format: console, json, csv, detailed")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")

	return cmd
}

func runPrompt(cmd *cobra.Command, c *app.Container, name string, opts *runOptions) error {
	opts.applyDefaults(cmd, c.Config)

	vars, err := domain.ParseVariableAssignments(opts.vars)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.stream && opts.tui {
		return errors.New("--stream and --tui cannot be combined")
	}

	var stream io.Writer
	if opts.stream {
		stream = cmd.ErrOrStderr()
	}
	executor, err := c.Executor(app.ExecutorOptions{Stream: stream, Terminal: opts.terminal})
	if err != nil {
		return err
	}
	if opts.metricsFile != "" {
		c.EnableMetrics()
	}

	in := usecase.RunPromptInput{
		Prompt:    name,
		Vars:      vars,
		OutputDir: opts.output,
		Dirs:      opts.dirs,
		Selection: domain.WorktreeSelection{
			Patterns:   opts.patterns,
			CleanOnly:  opts.cleanOnly,
			LinkedOnly: opts.linkedOnly,
		},
		Jobs:              opts.jobs,
		Timeout:           opts.timeout,
		FailFast:          opts.failFast,
		ContinueOnFailure: opts.continueOnFailure,
		DryRun:            opts.dryRun,
	}

	stderr := cmd.ErrOrStderr()
	if opts.terminal || c.Config.Executor.Backend == domain.ExecutorTmux {
		_, _ = fmt.Fprintf(stderr, "Agents run in tmux sessions. Watch with: tmux -S %s attach\n", c.TerminalSocket())
	}

	uc := c.RunPromptUseCase(executor)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var out *usecase.RunPromptOutput
	var runErr error
	if opts.tui && !opts.dryRun {
		runErr = progress.Run(cancel, stderr, func(obs pool.Observer) error {
			in.Observer = obs
			var err error
			out, err = uc.Execute(ctx, in)
			return err
		})
	} else {
		out, runErr = uc.Execute(ctx, in)
	}
	if out == nil {
		return runErr
	}

	w := cmd.OutOrStdout()
	if opts.dryRun {
		printPlan(w, out.Jobs, opts)
		return runErr
	}

	if err := report.Render(w, out.Summary, format, colorEnabled(w)); err != nil {
		return err
	}
	if out.RunDir != "" {
		_, _ = fmt.Fprintf(stderr, "Results saved to %s\n", out.RunDir)
	}
	if err := c.WriteMetrics(opts.metricsFile); err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: write metrics: %v\n", err)
	}
	return runErr
}

// printPlan lists the jobs a dry run would start.
func printPlan(w io.Writer, jobs []*domain.Job, opts *runOptions) {
	_, _ = fmt.Fprintf(w, "Dry run: %d jobs, %d at a time, timeout %s\n\n", len(jobs), opts.jobs, opts.timeout)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(tw, "WORKTREE\tBRANCH\tSTATUS\tPATH")
	for _, job := range jobs {
		wt := job.Worktree
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", wt.Name, wt.Branch, wt.StatusLabel(), wt.Path)
	}
	_ = tw.Flush()

	if len(jobs) > 0 {
		_, _ = fmt.Fprintf(w, "\nPrompt for %s:\n%s\n", jobs[0].Worktree.Name, jobs[0].Prompt)
	}
}

// colorEnabled reports whether styled output should be written to w.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && report.ColorEnabled(f)
}
