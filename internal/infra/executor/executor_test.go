package executor

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/par/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("Skipping test on Windows")
	}
}

// shellExecutor runs script with sh -c; the prompt arrives on stdin.
func shellExecutor(script string, opts Options) *DirectExecutor {
	opts.Binary = "sh"
	opts.Args = []string{"-c", script}
	return NewDirectExecutor(opts, nil, nil)
}

func newTestJob(t *testing.T, prompt string, timeout time.Duration) *domain.Job {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	wt := &domain.Worktree{Name: "api", Path: dir, Branch: "main"}
	return domain.NewJob(wt, prompt, timeout)
}

func TestDirectExecutor_Success(t *testing.T) {
	skipOnWindows(t)

	// Setup
	job := newTestJob(t, "fix the bug", time.Minute)
	exec := shellExecutor(`cat; echo; pwd`, Options{})

	// Execute
	res := exec.Execute(context.Background(), job)

	// Assert
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.ErrorMessage)
	assert.Equal(t, "fix the bug\n"+job.Worktree.Path+"\n", res.Output)
	assert.Equal(t, job.ID, res.JobID)
	assert.Equal(t, "api", res.WorktreeName)
	assert.False(t, res.EndTime.Before(res.StartTime))
	assert.Equal(t, res.EndTime.Sub(res.StartTime), res.Duration)
}

func TestDirectExecutor_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	job := newTestJob(t, "x", time.Minute)
	res := shellExecutor(`echo oops >&2; exit 3`, Options{}).Execute(context.Background(), job)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "exit status 3", res.ErrorMessage)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Empty(t, res.Output)
}

func TestDirectExecutor_Timeout(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name   string
		script string
	}{
		{"plain sleep", "sleep 30"},
		{"background grandchild", "sleep 30 & wait"},
		{"ignores SIGTERM", "trap '' TERM; sleep 30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newTestJob(t, "x", 200*time.Millisecond)
			exec := shellExecutor(tt.script, Options{KillGrace: 200 * time.Millisecond})

			start := time.Now()
			res := exec.Execute(context.Background(), job)

			assert.Equal(t, domain.StatusTimeout, res.Status)
			assert.Contains(t, res.ErrorMessage, domain.ErrJobTimeout.Error())
			assert.Less(t, time.Since(start), 10*time.Second)
			assert.GreaterOrEqual(t, res.Duration, 200*time.Millisecond)
		})
	}
}

func TestDirectExecutor_Cancelled(t *testing.T) {
	skipOnWindows(t)

	job := newTestJob(t, "x", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res := shellExecutor("sleep 30", Options{KillGrace: 200 * time.Millisecond}).Execute(ctx, job)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, "cancelled: context canceled", res.ErrorMessage)
}

func TestDirectExecutor_CancelledBeforeStart(t *testing.T) {
	skipOnWindows(t)

	// Setup
	job := newTestJob(t, "x", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := NewDirectExecutor(Options{Binary: "par-no-such-agent-xyz"}, nil, nil)

	// Execute
	res := exec.Execute(ctx, job)

	// Assert
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, "cancelled: context canceled", res.ErrorMessage)
}

func TestClassify(t *testing.T) {
	expired, cancelExpired := context.WithTimeout(context.Background(), -time.Second)
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	live := context.Background()

	tests := []struct {
		ctx       context.Context
		runCtx    context.Context
		waitErr   error
		name      string
		want      domain.JobStatus
		wantError string
	}{
		{live, live, nil, "clean exit", domain.StatusSuccess, ""},
		{live, expired, nil, "clean exit after deadline", domain.StatusSuccess, ""},
		{cancelled, cancelled, nil, "clean exit after cancel", domain.StatusSuccess, ""},
		{live, expired, context.DeadlineExceeded, "stopped at deadline", domain.StatusTimeout, "job timed out after 1m0s"},
		{cancelled, cancelled, context.Canceled, "stopped by cancel", domain.StatusFailed, "cancelled: context canceled"},
		{live, live, errors.New("exit status 3"), "non-zero exit", domain.StatusFailed, "exit status 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res domain.JobResult

			classify(tt.ctx, tt.runCtx, &res, tt.waitErr, time.Minute)

			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.wantError, res.ErrorMessage)
		})
	}
}

func TestDirectExecutor_LaunchError(t *testing.T) {
	skipOnWindows(t)

	job := newTestJob(t, "x", time.Minute)
	exec := NewDirectExecutor(Options{Binary: "par-no-such-agent-xyz"}, nil, nil)

	res := exec.Execute(context.Background(), job)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, -1, res.ExitCode)
	assert.True(t, strings.HasPrefix(res.ErrorMessage, "launch par-no-such-agent-xyz:"), res.ErrorMessage)
}

func TestDirectExecutor_MissingWorktreeDir(t *testing.T) {
	skipOnWindows(t)

	job := newTestJob(t, "x", time.Minute)
	job.Worktree.Path = filepath.Join(job.Worktree.Path, "gone")

	res := shellExecutor("true", Options{}).Execute(context.Background(), job)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.ErrorMessage, "launch sh")
}

func TestDirectExecutor_Truncation(t *testing.T) {
	skipOnWindows(t)

	job := newTestJob(t, "x", time.Minute)
	exec := shellExecutor(`i=0; while [ $i -lt 100 ]; do printf a; i=$((i+1)); done`, Options{OutputLimit: 10})

	res := exec.Execute(context.Background(), job)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.True(t, res.Truncated)
	assert.True(t, strings.HasPrefix(res.Output, "aaaaaaaaaa\n[output truncated"), res.Output)
	assert.Contains(t, res.Output, "10 B")
}

func TestDirectExecutor_Stream(t *testing.T) {
	skipOnWindows(t)

	var live bytes.Buffer
	job := newTestJob(t, "x", time.Minute)
	exec := shellExecutor(`printf 'one\ntwo'`, Options{Stream: &live})

	res := exec.Execute(context.Background(), job)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "one\ntwo", res.Output, "capture is unaffected by streaming")
	assert.Equal(t, "[api] one\n[api] two\n", live.String())
}

func TestDirectExecutor_Env(t *testing.T) {
	skipOnWindows(t)

	job := newTestJob(t, "x", time.Minute)
	res := shellExecutor(`printf %s "$PAR_TEST"`, Options{Env: []string{"PAR_TEST=yes"}}).Execute(context.Background(), job)

	assert.Equal(t, "yes", res.Output)
}

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(5)

	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, b.Truncated())

	n, err = b.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n, "overflow is reported as written")
	assert.True(t, b.Truncated())

	_, _ = b.Write([]byte("more"))
	assert.Equal(t, "abcde\n[output truncated at 5 B]\n", b.String())
}

func TestPrefixWriter(t *testing.T) {
	var out bytes.Buffer
	w := newPrefixWriter(&out, "[web] ")

	_, _ = w.Write([]byte("hel"))
	assert.Empty(t, out.String(), "partial lines are held")

	_, _ = w.Write([]byte("lo\nwor"))
	assert.Equal(t, "[web] hello\n", out.String())

	w.Flush()
	assert.Equal(t, "[web] hello\n[web] wor\n", out.String())

	w.Flush()
	assert.Equal(t, "[web] hello\n[web] wor\n", out.String())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := domain.NewDefaultConfig()

	opts := OptionsFromConfig(cfg)

	assert.Equal(t, domain.DefaultAgentBinary, opts.Binary)
	assert.Equal(t, cfg.Agent.Args, opts.Args)
	assert.Equal(t, int64(domain.DefaultOutputLimit), opts.OutputLimit)
	assert.Equal(t, domain.DefaultKillGrace, opts.KillGrace)
	assert.Empty(t, opts.Env)
}

func TestOptionsFromConfig_Env(t *testing.T) {
	skipOnWindows(t)

	// Setup
	cfg := domain.NewDefaultConfig()
	cfg.Agent.Binary = "sh"
	cfg.Agent.Args = []string{"-c", `printf '%s,%s' "$PAR_B" "$PAR_A"`}
	cfg.Agent.Env = map[string]string{"PAR_B": "two", "PAR_A": "one"}

	// Execute
	opts := OptionsFromConfig(cfg)
	res := NewDirectExecutor(opts, nil, nil).Execute(context.Background(), newTestJob(t, "x", time.Minute))

	// Assert
	assert.Equal(t, []string{"PAR_A=one", "PAR_B=two"}, opts.Env)
	assert.Equal(t, "two,one", res.Output)
}
