// Package git inspects the state of git checkouts.
package git

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/runoshun/par/internal/domain"
)

// ErrNotGitRepository is returned when a directory is not inside a git checkout.
var ErrNotGitRepository = errors.New("not a git repository (or any of the parent directories)")

// Client inspects checkouts by running the git CLI.
type Client struct {
	gitPath string
}

// NewClient creates a new git CLI client.
func NewClient() *Client {
	return &Client{gitPath: "git"}
}

// Ensure Client implements domain.GitInspector interface.
var _ domain.GitInspector = (*Client)(nil)

// Inspect reports branch, cleanliness and origin of the checkout at path.
func (c *Client) Inspect(path string) (*domain.RepoState, error) {
	branch, err := c.CurrentBranch(path)
	if err != nil {
		return nil, err
	}

	dirty, err := c.HasUncommittedChanges(path)
	if err != nil {
		return nil, err
	}

	return &domain.RepoState{
		Branch:    branch,
		IsClean:   !dirty,
		RemoteURL: c.remoteURL(path),
		IsLinked:  IsLinkedWorktree(path),
	}, nil
}

// CurrentBranch returns the name of the checked-out branch, or
// domain.DetachedHead when HEAD does not point at a branch.
func (c *Client) CurrentBranch(dir string) (string, error) {
	// symbolic-ref also works on an unborn branch, unlike rev-parse.
	cmd := exec.Command(c.gitPath, "symbolic-ref", "--quiet", "--short", "HEAD") // #nosec G204 - fixed git arguments
	cmd.Dir = dir
	out, err := cmd.Output()
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return domain.DetachedHead, nil
	}
	return "", fmt.Errorf("failed to get current branch: %w", err)
}

// HasUncommittedChanges checks for uncommitted changes in a directory.
// Returns true if there are uncommitted changes (staged, unstaged or untracked).
func (c *Client) HasUncommittedChanges(dir string) (bool, error) {
	cmd := exec.Command(c.gitPath, "status", "--porcelain") // #nosec G204 - fixed git arguments
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("failed to check uncommitted changes: %w", err)
	}
	return len(out) > 0, nil
}

// remoteURL returns the origin URL, or "" if there is none.
func (c *Client) remoteURL(dir string) string {
	cmd := exec.Command(c.gitPath, "config", "--get", "remote.origin.url") // #nosec G204 - fixed git arguments
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Toplevel returns the root of the working tree containing dir.
// Works correctly both in a main repository and inside linked worktrees.
func (c *Client) Toplevel(dir string) (string, error) {
	cmd := exec.Command(c.gitPath, "rev-parse", "--show-toplevel") // #nosec G204 - fixed git arguments
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", ErrNotGitRepository
	}
	return filepath.Clean(strings.TrimSpace(string(out))), nil
}

// IsLinkedWorktree reports whether path/.git is a file, which is how git
// marks worktrees created with `git worktree add`.
func IsLinkedWorktree(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.Mode().IsRegular()
}

// HasGitEntry reports whether path contains a .git file or directory.
func HasGitEntry(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// NewInspector returns the inspector for the configured backend.
func NewInspector(backend string) (domain.GitInspector, error) {
	switch backend {
	case domain.GitBackendGoGit, "":
		return NewGoGitInspector(), nil
	case domain.GitBackendCLI:
		return NewClient(), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownGitBackend, backend)
	}
}
