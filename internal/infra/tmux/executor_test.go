package tmux

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runoshun/par/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTerminalJob(t *testing.T, dir string, timeout time.Duration) *domain.Job {
	t.Helper()
	wt := &domain.Worktree{Name: "api", Path: dir, Branch: "main"}
	return domain.NewJob(wt, "write the prompt down", timeout)
}

func TestTerminalExecutor_DeliversPromptAndExitCode(t *testing.T) {
	// Setup
	socketPath, dir := setupTestEnv(t)
	exec := NewTerminalExecutor(NewClient(socketPath), ExecutorOptions{
		Binary:       "sh",
		Args:         []string{"-c", "cat > received.txt; exit 4"},
		PollInterval: 50 * time.Millisecond,
	}, nil, nil)
	job := newTerminalJob(t, dir, 10*time.Second)

	// Execute
	res := exec.Execute(context.Background(), job)

	// Assert
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "exit status 4", res.ErrorMessage)
	assert.Contains(t, res.Output, "output not captured")

	got, err := os.ReadFile(filepath.Join(dir, "received.txt"))
	require.NoError(t, err)
	assert.Equal(t, "write the prompt down", string(got))
}

func TestTerminalExecutor_Success(t *testing.T) {
	socketPath, dir := setupTestEnv(t)
	exec := NewTerminalExecutor(NewClient(socketPath), ExecutorOptions{
		Binary:       "true",
		PollInterval: 50 * time.Millisecond,
	}, nil, nil)

	res := exec.Execute(context.Background(), newTerminalJob(t, dir, 10*time.Second))

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, 0, res.ExitCode)
}

func TestTerminalExecutor_Timeout(t *testing.T) {
	socketPath, dir := setupTestEnv(t)
	client := NewClient(socketPath)
	exec := NewTerminalExecutor(client, ExecutorOptions{
		Binary:       "sleep",
		Args:         []string{"30"},
		PollInterval: 50 * time.Millisecond,
	}, nil, nil)
	job := newTerminalJob(t, dir, 300*time.Millisecond)

	res := exec.Execute(context.Background(), job)

	assert.Equal(t, domain.StatusTimeout, res.Status)
	running, err := client.IsRunning(domain.SessionName(job))
	require.NoError(t, err)
	assert.False(t, running, "session is killed on timeout")
}

func TestTerminalExecutor_Cancelled(t *testing.T) {
	socketPath, dir := setupTestEnv(t)
	exec := NewTerminalExecutor(NewClient(socketPath), ExecutorOptions{
		Binary:       "sleep",
		Args:         []string{"30"},
		PollInterval: 50 * time.Millisecond,
	}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	res := exec.Execute(ctx, newTerminalJob(t, dir, time.Minute))

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, "cancelled: context canceled", res.ErrorMessage)
}

func TestTerminalExecutor_KeepOpenCapturesPane(t *testing.T) {
	socketPath, dir := setupTestEnv(t)
	client := NewClient(socketPath)
	exec := NewTerminalExecutor(client, ExecutorOptions{
		Binary:       "sh",
		Args:         []string{"-c", "echo hello-from-agent"},
		PollInterval: 100 * time.Millisecond,
		KeepOpen:     true,
	}, nil, nil)
	job := newTerminalJob(t, dir, 10*time.Second)

	res := exec.Execute(context.Background(), job)

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Contains(t, res.Output, "hello-from-agent")
	running, err := client.IsRunning(domain.SessionName(job))
	require.NoError(t, err)
	assert.True(t, running, "pane stays open for inspection")
}

func TestTerminalExecutor_StartFailure(t *testing.T) {
	socketPath, _ := setupTestEnv(t)
	exec := NewTerminalExecutor(NewClient(socketPath), ExecutorOptions{Binary: "true"}, nil, nil)
	job := newTerminalJob(t, filepath.Join(t.TempDir(), "missing"), time.Second)

	res := exec.Execute(context.Background(), job)

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.ErrorMessage, "launch tmux")
}

func TestTerminalExecutor_SessionKilledWithoutStatus(t *testing.T) {
	// Setup: the agent kills its own pane shell before a status is written
	socketPath, dir := setupTestEnv(t)
	exec := NewTerminalExecutor(NewClient(socketPath), ExecutorOptions{
		Binary:       "sh",
		Args:         []string{"-c", "kill -KILL $PPID; sleep 5"},
		PollInterval: 50 * time.Millisecond,
	}, nil, nil)

	// Execute
	res := exec.Execute(context.Background(), newTerminalJob(t, dir, 10*time.Second))

	// Assert
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, "tmux session ended without an exit status", res.ErrorMessage)
}

func TestTerminalExecutor_NonPOSIXDefaultShell(t *testing.T) {
	// Setup: a login shell that only understands "sh -c ..." commands
	shell := filepath.Join(t.TempDir(), "strict-shell")
	script := "#!/bin/sh\ncase \"$2\" in\n  \"sh -c \"*) exec /bin/sh -c \"$2\" ;;\n  *) exit 2 ;;\nesac\n"
	require.NoError(t, os.WriteFile(shell, []byte(script), 0o755))
	t.Setenv("SHELL", shell)

	socketPath, dir := setupTestEnv(t)
	exec := NewTerminalExecutor(NewClient(socketPath), ExecutorOptions{
		Binary:       "sh",
		Args:         []string{"-c", "cat > received.txt; exit 3"},
		PollInterval: 50 * time.Millisecond,
	}, nil, nil)

	// Execute
	res := exec.Execute(context.Background(), newTerminalJob(t, dir, 10*time.Second))

	// Assert
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Equal(t, 3, res.ExitCode)
	got, err := os.ReadFile(filepath.Join(dir, "received.txt"))
	require.NoError(t, err)
	assert.Equal(t, "write the prompt down", string(got))
}

func TestTerminalExecutor_Env(t *testing.T) {
	socketPath, dir := setupTestEnv(t)
	exec := NewTerminalExecutor(NewClient(socketPath), ExecutorOptions{
		Binary:       "sh",
		Args:         []string{"-c", `printf %s "$PAR_MODE" > env.txt`},
		Env:          []string{"PAR_MODE=ci"},
		PollInterval: 50 * time.Millisecond,
	}, nil, nil)

	res := exec.Execute(context.Background(), newTerminalJob(t, dir, 10*time.Second))

	assert.Equal(t, domain.StatusSuccess, res.Status)
	got, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ci", string(got))
}

func TestPaneCommand(t *testing.T) {
	exec := NewTerminalExecutor(NewClient("/s"), ExecutorOptions{Binary: "claude", Args: []string{"--print"}}, nil, nil)

	got := exec.paneCommand("/w/prompt.txt", "/w/status")

	inner := `'claude' '--print' < '/w/prompt.txt'; echo $? > '/w/status.tmp' && mv '/w/status.tmp' '/w/status'`
	assert.Equal(t, "sh -c "+shellQuote(inner), got)

	exec.opts.Env = []string{"A=1"}
	assert.Contains(t, exec.paneCommand("/w/p", "/w/s"), `env '\''A=1'\'' '\''claude'\''`)

	exec.opts.KeepOpen = true
	assert.Contains(t, exec.paneCommand("/w/p", "/w/s"), `exec "${SHELL:-sh}"`)
}
