// Package executor runs the agent CLI as a subprocess for one job.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// Options configures a DirectExecutor.
type Options struct {
	// Stream receives live output lines prefixed with "[worktree] ".
	// Nil keeps output buffered only.
	Stream      io.Writer
	Binary      string
	Args        []string
	Env         []string // Extra KEY=VALUE pairs appended to the environment
	OutputLimit int64    // Per-stream capture limit in bytes
	KillGrace   time.Duration
}

// DirectExecutor runs the agent binary with the prompt on stdin, in the
// worktree directory and in its own process group.
type DirectExecutor struct {
	stream io.Writer
	clock  domain.Clock
	logger *slog.Logger
	opts   Options
}

// Ensure DirectExecutor implements domain.JobExecutor interface.
var _ domain.JobExecutor = (*DirectExecutor)(nil)

// NewDirectExecutor creates a new DirectExecutor.
func NewDirectExecutor(opts Options, clock domain.Clock, logger *slog.Logger) *DirectExecutor {
	if opts.OutputLimit <= 0 {
		opts.OutputLimit = domain.DefaultOutputLimit
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = domain.DefaultKillGrace
	}
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &DirectExecutor{opts: opts, clock: clock, logger: logger}
	if opts.Stream != nil {
		e.stream = &lockedWriter{w: opts.Stream}
	}
	return e
}

// OptionsFromConfig builds executor options from the loaded configuration.
func OptionsFromConfig(cfg *domain.Config) Options {
	return Options{
		Binary:      cfg.Agent.Binary,
		Args:        cfg.Agent.Args,
		Env:         cfg.Agent.Environ(),
		OutputLimit: cfg.Executor.OutputLimit,
		KillGrace:   cfg.Executor.KillGrace,
	}
}

// Execute runs job and always returns a result; failures are recorded in it.
func (e *DirectExecutor) Execute(ctx context.Context, job *domain.Job) domain.JobResult {
	res := domain.NewJobResult(job, e.clock.Now())

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if job.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, job.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	stdout := newCappedBuffer(e.opts.OutputLimit)
	stderr := newCappedBuffer(e.opts.OutputLimit)

	// #nosec G204 - binary and args come from the user's own configuration
	cmd := exec.CommandContext(runCtx, e.opts.Binary, e.opts.Args...)
	if job.Worktree != nil {
		cmd.Dir = job.Worktree.Path
	}
	cmd.Stdin = strings.NewReader(job.Prompt)
	if len(e.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), e.opts.Env...)
	}

	var streams []*prefixWriter
	cmd.Stdout, cmd.Stderr = stdout, stderr
	if e.stream != nil {
		prefix := "[" + res.WorktreeName + "] "
		outLive := newPrefixWriter(e.stream, prefix)
		errLive := newPrefixWriter(e.stream, prefix)
		streams = append(streams, outLive, errLive)
		cmd.Stdout = io.MultiWriter(stdout, outLive)
		cmd.Stderr = io.MultiWriter(stderr, errLive)
	}

	exited := make(chan struct{})
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		err := terminateGroup(cmd)
		go func() {
			select {
			case <-exited:
			case <-time.After(e.opts.KillGrace):
				_ = killGroup(cmd)
			}
		}()
		return err
	}
	// Wait gives up on inherited pipes shortly after the group is killed.
	cmd.WaitDelay = e.opts.KillGrace + time.Second

	e.logger.Debug("starting agent", "job", job.ShortID(), "worktree", res.WorktreeName, "binary", e.opts.Binary)

	if ctx.Err() != nil {
		close(exited)
		res.Finish(e.clock.Now())
		res.Status = domain.StatusFailed
		res.ExitCode = -1
		res.ErrorMessage = "cancelled: " + context.Cause(ctx).Error()
		return res
	}
	if err := cmd.Start(); err != nil {
		close(exited)
		res.Finish(e.clock.Now())
		res.Status = domain.StatusFailed
		res.ExitCode = -1
		res.ErrorMessage = (&domain.LaunchError{Binary: e.opts.Binary, Err: err}).Error()
		return res
	}

	waitErr := cmd.Wait()
	close(exited)
	for _, w := range streams {
		w.Flush()
	}

	res.Finish(e.clock.Now())
	res.Output = stdout.String()
	res.Stderr = stderr.String()
	res.Truncated = stdout.Truncated() || stderr.Truncated()
	res.ExitCode = exitCode(waitErr)

	classify(ctx, runCtx, &res, waitErr, job.Timeout)

	e.logger.Debug("agent finished", "job", job.ShortID(), "status", res.Status, "exit_code", res.ExitCode, "duration", res.Duration)
	return res
}

// classify sets the status from the wait result. A clean exit wins over a
// deadline or cancel that fired after it; only a process that was stopped
// counts as cancelled or timed out.
func classify(ctx, runCtx context.Context, res *domain.JobResult, waitErr error, timeout time.Duration) {
	switch {
	case waitErr == nil:
		res.Status = domain.StatusSuccess
	case ctx.Err() != nil:
		res.Status = domain.StatusFailed
		res.ErrorMessage = "cancelled: " + context.Cause(ctx).Error()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Status = domain.StatusTimeout
		res.ErrorMessage = fmt.Sprintf("%v after %s", domain.ErrJobTimeout, timeout)
	default:
		res.Status = domain.StatusFailed
		res.ErrorMessage = waitErr.Error()
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
