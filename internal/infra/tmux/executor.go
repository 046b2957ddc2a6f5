package tmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// errNoExitStatus is recorded when the pane went away before the agent's exit
// code was written, e.g. the session was killed or the shell failed.
var errNoExitStatus = errors.New("tmux session ended without an exit status")

const (
	defaultPollInterval = 250 * time.Millisecond
	peekLines           = 500
)

// ExecutorOptions configures a TerminalExecutor.
type ExecutorOptions struct {
	Binary       string
	Args         []string
	Env          []string // Extra KEY=VALUE pairs for the agent
	PollInterval time.Duration
	KeepOpen     bool // Keep the pane open in a shell after the agent exits
}

// TerminalExecutor runs each job in its own tmux session so the agent can be
// watched live. Output is only captured when the pane is kept open, and the
// exit code comes from a status file written by the pane's shell.
type TerminalExecutor struct {
	client *Client
	clock  domain.Clock
	logger *slog.Logger
	opts   ExecutorOptions
}

// Ensure TerminalExecutor implements domain.JobExecutor interface.
var _ domain.JobExecutor = (*TerminalExecutor)(nil)

// NewTerminalExecutor creates a new TerminalExecutor.
func NewTerminalExecutor(client *Client, opts ExecutorOptions, clock domain.Clock, logger *slog.Logger) *TerminalExecutor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if clock == nil {
		clock = domain.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TerminalExecutor{client: client, opts: opts, clock: clock, logger: logger}
}

// Execute runs job in a detached session and waits for it to finish.
func (e *TerminalExecutor) Execute(ctx context.Context, job *domain.Job) domain.JobResult {
	res := domain.NewJobResult(job, e.clock.Now())
	session := domain.SessionName(job)

	fail := func(err error) domain.JobResult {
		res.Finish(e.clock.Now())
		res.Status = domain.StatusFailed
		res.ExitCode = -1
		res.ErrorMessage = (&domain.LaunchError{Binary: "tmux", Err: err}).Error()
		return res
	}

	workDir, err := os.MkdirTemp("", "par-"+job.ShortID()+"-")
	if err != nil {
		return fail(err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	promptFile := filepath.Join(workDir, "prompt.txt")
	statusFile := filepath.Join(workDir, "status")
	if err := os.WriteFile(promptFile, []byte(job.Prompt), 0o600); err != nil {
		return fail(err)
	}

	dir := ""
	if job.Worktree != nil {
		dir = job.Worktree.Path
	}
	err = e.client.Start(ctx, StartOptions{
		Name:    session,
		Dir:     dir,
		Command: e.paneCommand(promptFile, statusFile),
	})
	if err != nil {
		return fail(err)
	}
	e.logger.Info("agent running in tmux", "job", job.ShortID(), "worktree", res.WorktreeName, "attach", e.client.AttachCommand(session))

	var deadline <-chan time.Time
	if job.Timeout > 0 {
		timer := time.NewTimer(job.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = e.client.Stop(session)
			res.Finish(e.clock.Now())
			res.Status = domain.StatusFailed
			res.ExitCode = -1
			res.ErrorMessage = "cancelled: " + context.Cause(ctx).Error()
			return res

		case <-deadline:
			_ = e.client.Stop(session)
			res.Finish(e.clock.Now())
			res.Status = domain.StatusTimeout
			res.ExitCode = -1
			res.ErrorMessage = fmt.Sprintf("%v after %s", domain.ErrJobTimeout, job.Timeout)
			return res

		case <-ticker.C:
			code, done, err := e.poll(session, statusFile)
			if !done {
				continue
			}
			res.Finish(e.clock.Now())
			res.Output = e.output(session)
			switch {
			case err != nil:
				res.Status = domain.StatusFailed
				res.ExitCode = -1
				res.ErrorMessage = err.Error()
				e.logger.Warn("agent exit status missing", "job", job.ShortID(), "worktree", res.WorktreeName)
			case code == 0:
				res.Status = domain.StatusSuccess
			default:
				res.Status = domain.StatusFailed
				res.ExitCode = code
				res.ErrorMessage = fmt.Sprintf("exit status %d", code)
			}
			return res
		}
	}
}

// poll reports the agent's exit code once it has finished. A session that
// vanished without writing a status is done with errNoExitStatus.
func (e *TerminalExecutor) poll(session, statusFile string) (int, bool, error) {
	if code, err := readStatus(statusFile); err == nil {
		return code, true, nil
	}
	running, err := e.client.IsRunning(session)
	if err != nil || running {
		return 0, false, nil
	}
	// The status may have been written between the two checks.
	if code, err := readStatus(statusFile); err == nil {
		return code, true, nil
	}
	return 0, true, errNoExitStatus
}

func (e *TerminalExecutor) output(session string) string {
	note := "output not captured; agent ran in tmux session " + session
	if !e.opts.KeepOpen {
		return note
	}
	// Let the server drain the pty before capturing.
	time.Sleep(e.opts.PollInterval)
	out, err := e.client.Peek(session, peekLines)
	if err != nil {
		return note
	}
	return out
}

// paneCommand builds the command run in the pane: the agent reads the prompt
// file on stdin and its exit code is written atomically to statusFile. tmux
// hands the command to the user's default shell, so everything runs under an
// explicit sh -c.
func (e *TerminalExecutor) paneCommand(promptFile, statusFile string) string {
	parts := make([]string, 0, len(e.opts.Env)+len(e.opts.Args)+2)
	if len(e.opts.Env) > 0 {
		parts = append(parts, "env")
		for _, kv := range e.opts.Env {
			parts = append(parts, shellQuote(kv))
		}
	}
	parts = append(parts, shellQuote(e.opts.Binary))
	for _, a := range e.opts.Args {
		parts = append(parts, shellQuote(a))
	}
	tmp := statusFile + ".tmp"
	script := fmt.Sprintf("%s < %s; echo $? > %s && mv %s %s",
		strings.Join(parts, " "), shellQuote(promptFile),
		shellQuote(tmp), shellQuote(tmp), shellQuote(statusFile))
	if e.opts.KeepOpen {
		script += `; exec "${SHELL:-sh}"`
	}
	return "sh -c " + shellQuote(script)
}

func readStatus(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, errors.New("empty status file")
	}
	return strconv.Atoi(s)
}
