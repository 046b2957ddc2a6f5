// Package tmux runs jobs inside detached tmux sessions.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrSessionRunning is returned when starting a session whose name is taken.
var ErrSessionRunning = errors.New("tmux session already running")

// StartOptions describes a session to create.
type StartOptions struct {
	Name    string
	Dir     string // Working directory of the pane
	Command string // Shell command run in the pane
}

// Client manages tmux sessions on a dedicated socket.
type Client struct {
	socketPath string
}

// NewClient creates a new tmux client.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Available reports whether the tmux binary is on PATH.
func Available() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

// SocketPath returns the tmux socket used by this client.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Start creates and starts a new detached session.
func (c *Client) Start(ctx context.Context, opts StartOptions) error {
	running, err := c.IsRunning(opts.Name)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if running {
		return ErrSessionRunning
	}

	if err := os.MkdirAll(filepath.Dir(c.socketPath), 0o750); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	// tmux -S <socket> new-session -d -s <name> -c <dir> <command>
	args := []string{
		"-S", c.socketPath,
		"new-session",
		"-d",
		"-s", opts.Name,
		"-c", opts.Dir,
	}
	if opts.Command != "" {
		args = append(args, opts.Command)
	}

	cmd := exec.CommandContext(ctx, "tmux", args...)
	cmd.Dir = opts.Dir

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("start session: %w: %s", err, string(out))
	}
	return nil
}

// Stop terminates a session.
// Child processes of every pane get SIGTERM first so the agent is not
// orphaned when the session goes away.
func (c *Client) Stop(sessionName string) error {
	running, err := c.IsRunning(sessionName)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !running {
		return nil
	}

	listCmd := exec.Command("tmux", //nolint:gosec // session names are generated by par
		"-S", c.socketPath,
		"list-panes",
		"-t", sessionName,
		"-F", "#{pane_pid}",
	)
	out, err := listCmd.Output()
	if err == nil && len(out) > 0 {
		for _, pid := range strings.Split(strings.TrimSpace(string(out)), "\n") {
			if pid == "" {
				continue
			}
			// The process may already be gone.
			_ = exec.Command("pkill", "-TERM", "-P", pid).Run()
		}
	}

	cmd := exec.Command("tmux", "-S", c.socketPath, "kill-session", "-t", sessionName) //nolint:gosec // session names are generated by par
	if out, err := cmd.CombinedOutput(); err != nil {
		// Killing the children may already have ended the session.
		stillRunning, checkErr := c.IsRunning(sessionName)
		if checkErr != nil || stillRunning {
			return fmt.Errorf("stop session: %w: %s", err, string(out))
		}
	}
	return nil
}

// Peek captures the last lines of a session's pane.
func (c *Client) Peek(sessionName string, lines int) (string, error) {
	cmd := exec.Command("tmux", //nolint:gosec // session names are generated by par
		"-S", c.socketPath,
		"capture-pane",
		"-t", sessionName,
		"-p",
		"-S", fmt.Sprintf("-%d", lines),
	)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("peek session: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// IsRunning checks if a session exists.
// A missing server or socket means the session does not exist.
func (c *Client) IsRunning(sessionName string) (bool, error) {
	cmd := exec.Command("tmux", //nolint:gosec // session names are generated by par
		"-S", c.socketPath,
		"has-session",
		"-t", sessionName,
	)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("has-session: %w", err)
	}
	return true, nil
}

// AttachCommand returns the command a user runs to watch a session.
func (c *Client) AttachCommand(sessionName string) string {
	return fmt.Sprintf("tmux -S %s attach -t %s", shellQuote(c.socketPath), sessionName)
}

// shellQuote quotes s for POSIX sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
