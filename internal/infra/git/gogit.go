package git

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/runoshun/par/internal/domain"
)

// GoGitInspector inspects checkouts in-process with go-git.
type GoGitInspector struct{}

// NewGoGitInspector creates a new go-git based inspector.
func NewGoGitInspector() *GoGitInspector {
	return &GoGitInspector{}
}

// Ensure GoGitInspector implements domain.GitInspector interface.
var _ domain.GitInspector = (*GoGitInspector)(nil)

// Inspect reports branch, cleanliness and origin of the checkout at path.
func (g *GoGitInspector) Inspect(path string) (*domain.RepoState, error) {
	// EnableDotGitCommonDir lets linked worktrees resolve refs stored in the
	// main repository's .git directory.
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}

	branch, err := headBranch(repo)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	return &domain.RepoState{
		Branch:    branch,
		IsClean:   status.IsClean(),
		RemoteURL: originURL(repo),
		IsLinked:  IsLinkedWorktree(path),
	}, nil
}

// headBranch returns the short branch name HEAD points at.
// An unborn branch (no commits yet) still reports its name.
func headBranch(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err == nil {
		if head.Name().IsBranch() {
			return head.Name().Short(), nil
		}
		return domain.DetachedHead, nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", fmt.Errorf("read HEAD: %w", err)
	}

	ref, refErr := repo.Storer.Reference(plumbing.HEAD)
	if refErr != nil {
		return "", fmt.Errorf("read HEAD: %w", refErr)
	}
	if ref.Type() == plumbing.SymbolicReference && ref.Target().IsBranch() {
		return ref.Target().Short(), nil
	}
	return domain.DetachedHead, nil
}

func originURL(repo *git.Repository) string {
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0]
	}
	return ""
}
