// Package usecase contains the application use cases.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/metrics"
	"github.com/runoshun/par/internal/pool"
	"github.com/runoshun/par/internal/report"
)

// ResultStoreFactory opens the result store rooted at dir.
type ResultStoreFactory func(dir string) domain.ResultStore

// RunPromptInput contains the parameters for running a prompt.
// Fields are ordered to minimize memory padding.
type RunPromptInput struct {
	Observer          pool.Observer     // Extra observer, e.g. the progress view (optional)
	Vars              map[string]string // Values for template variables
	Prompt            string            // Stored prompt name
	OutputDir         string            // Where to save reports; "" disables saving
	Dirs              []string          // Explicit worktree directories; bypasses scanning
	Selection         domain.WorktreeSelection
	Jobs              int           // Concurrency cap
	Timeout           time.Duration // Per-job timeout
	FailFast          bool          // Stop dispatching after the first failure
	ContinueOnFailure bool          // Job failures do not make Execute return an error
	DryRun            bool          // Build jobs without running them
}

// RunPromptOutput contains the result of a run.
type RunPromptOutput struct {
	Summary  *domain.Summary // nil for dry runs
	RunDir   string          // Directory the reports were written to, if any
	Jobs     []*domain.Job
	Warnings []error // Recoverable discovery warnings
}

// RunPrompt resolves a stored prompt and runs it against every selected
// worktree with a bounded worker pool.
type RunPrompt struct {
	prompts   domain.PromptStore
	discovery domain.WorktreeDiscoverer
	executor  domain.JobExecutor
	results   ResultStoreFactory
	sink      metrics.Sink
	jobLog    domain.Logger
	clock     domain.Clock
	logger    *slog.Logger
}

// NewRunPrompt creates a new RunPrompt use case.
// results, sink, jobLog and logger may be nil.
func NewRunPrompt(
	prompts domain.PromptStore,
	discovery domain.WorktreeDiscoverer,
	executor domain.JobExecutor,
	results ResultStoreFactory,
	sink metrics.Sink,
	jobLog domain.Logger,
	clock domain.Clock,
	logger *slog.Logger,
) *RunPrompt {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RunPrompt{
		prompts:   prompts,
		discovery: discovery,
		executor:  executor,
		results:   results,
		sink:      sink,
		jobLog:    jobLog,
		clock:     clock,
		logger:    logger,
	}
}

// Execute runs the prompt.
//
// Configuration problems (unknown prompt, missing variables, no worktrees)
// are returned before any job starts. Once jobs have run, the output is
// always returned; the error is then ErrRunCancelled when the run was
// interrupted, or ErrJobsFailed when a job failed or timed out and
// ContinueOnFailure is not set.
func (uc *RunPrompt) Execute(ctx context.Context, in RunPromptInput) (*RunPromptOutput, error) {
	if in.Jobs < 1 {
		return nil, domain.ErrInvalidConcurrency
	}
	if in.Timeout <= 0 {
		return nil, domain.ErrInvalidTimeout
	}

	prompt, err := uc.prompts.Load(in.Prompt)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	// Fail on missing variables before discovery touches the disk.
	if _, err := prompt.Resolve(in.Vars); err != nil {
		return nil, err
	}

	found, err := uc.discover(ctx, in.Dirs)
	if err != nil {
		return nil, err
	}
	for _, w := range found.Warnings {
		uc.logger.Warn("discovery", "error", w)
	}

	worktrees := in.Selection.Apply(found.Worktrees)
	if len(worktrees) == 0 {
		return nil, domain.ErrNoWorktrees
	}

	jobs := make([]*domain.Job, 0, len(worktrees))
	for _, wt := range worktrees {
		text, err := prompt.ResolveFor(in.Vars, wt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, domain.NewJob(wt, text, in.Timeout))
	}

	out := &RunPromptOutput{Jobs: jobs, Warnings: found.Warnings}
	if in.DryRun {
		return out, nil
	}

	runID := uuid.NewString()
	uc.logger.Info("starting run",
		"run", domain.ShortID(runID), "prompt", prompt.Name, "jobs", len(jobs), "concurrency", in.Jobs)

	observers := pool.Observers{
		pool.NewLogObserver(uc.jobLog, uc.logger),
		metrics.NewObserver(uc.sink),
	}
	if in.Observer != nil {
		observers = append(observers, in.Observer)
	}

	outcome := pool.New(uc.executor, pool.Options{
		Concurrency: in.Jobs,
		FailFast:    in.FailFast,
		Observer:    observers,
	}).Run(ctx, jobs)

	sum := report.Summarize(outcome.Results, outcome.SkippedNames())
	sum.RunID = runID
	sum.Prompt = prompt.Name
	sum.Cancelled = outcome.Cancelled
	if sum.StartTime.IsZero() {
		sum.StartTime = uc.clock.Now()
		sum.EndTime = sum.StartTime
	}
	out.Summary = sum
	uc.sink.RunCompleted(sum)

	if in.OutputDir != "" && uc.results != nil {
		dir, err := uc.results(in.OutputDir).Save(sum)
		if err != nil {
			// Report files are best-effort.
			uc.logger.Error("save results", "dir", in.OutputDir, "error", err)
		} else {
			out.RunDir = dir
		}
	}

	return out, runError(sum, in.ContinueOnFailure)
}

func (uc *RunPrompt) discover(ctx context.Context, dirs []string) (*domain.DiscoveryResult, error) {
	var (
		res *domain.DiscoveryResult
		err error
	)
	if len(dirs) > 0 {
		res, err = uc.discovery.FromDirs(ctx, dirs)
	} else {
		res, err = uc.discovery.Discover(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("discover worktrees: %w", err)
	}
	return res, nil
}

// runError maps a finished run to the error Execute returns.
func runError(sum *domain.Summary, continueOnFailure bool) error {
	switch {
	case sum.Cancelled:
		return &domain.ExitError{Code: domain.ExitInterrupted, Err: domain.ErrRunCancelled}
	case sum.HasFailures() && !continueOnFailure:
		return fmt.Errorf("%w: %d of %d", domain.ErrJobsFailed, sum.FailedJobs+sum.TimeoutJobs, sum.TotalJobs)
	default:
		return nil
	}
}

// IsRunFailure reports whether err came from job outcomes rather than from
// configuration, i.e. whether a summary is available.
func IsRunFailure(err error) bool {
	return errors.Is(err, domain.ErrJobsFailed) || errors.Is(err, domain.ErrRunCancelled)
}
