// Package worktree discovers git worktrees on disk.
package worktree

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"

	"github.com/runoshun/par/internal/domain"
)

// Client lists worktrees registered with a repository using the git CLI.
type Client struct{}

// NewClient creates a new worktree client.
func NewClient() *Client {
	return &Client{}
}

// Ensure Client implements domain.WorktreeLister interface.
var _ domain.WorktreeLister = (*Client)(nil)

// List returns all worktrees of the repository at repoPath, including the
// main checkout. Prunable entries whose directory is gone are still listed;
// callers check existence.
func (c *Client) List(repoPath string) ([]domain.WorktreeInfo, error) {
	cmd := exec.Command("git", "worktree", "list", "--porcelain")
	cmd.Dir = repoPath

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	return parseWorktreeList(string(out))
}

// parseWorktreeList parses the porcelain output of git worktree list.
// Format:
//
//	worktree /path/to/worktree
//	HEAD abc123
//	branch refs/heads/branch-name
//	<blank line>
//
// Bare repositories ("bare" line) are skipped since they have no working tree.
func parseWorktreeList(output string) ([]domain.WorktreeInfo, error) {
	var worktrees []domain.WorktreeInfo
	var current domain.WorktreeInfo
	var bare bool

	flush := func() {
		if current.Path != "" && !bare {
			if current.Branch == "" {
				current.Branch = domain.DetachedHead
			}
			worktrees = append(worktrees, current)
		}
		current = domain.WorktreeInfo{}
		bare = false
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			ref := strings.TrimPrefix(line, "branch ")
			current.Branch = strings.TrimPrefix(ref, "refs/heads/")
		case line == "bare":
			bare = true
		case line == "":
			flush()
		}
	}

	// Handle last entry if no trailing newline
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse worktree list: %w", err)
	}

	return worktrees, nil
}
