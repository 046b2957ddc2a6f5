package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/par/internal/domain"
)

// ListWorktreesInput contains the parameters for listing worktrees.
type ListWorktreesInput struct {
	Dirs      []string // Explicit directories; bypasses scanning
	Selection domain.WorktreeSelection
	All       bool // Include main checkouts, not only linked worktrees
}

// ListWorktreesOutput contains the discovered worktrees.
type ListWorktreesOutput struct {
	Worktrees []*domain.Worktree
	Warnings  []error
	Total     int // Worktrees matched before main checkouts were hidden
}

// ListWorktrees is the use case for showing what a run would target.
type ListWorktrees struct {
	discovery domain.WorktreeDiscoverer
}

// NewListWorktrees creates a new ListWorktrees use case.
func NewListWorktrees(discovery domain.WorktreeDiscoverer) *ListWorktrees {
	return &ListWorktrees{discovery: discovery}
}

// Execute discovers and filters worktrees.
func (uc *ListWorktrees) Execute(ctx context.Context, in ListWorktreesInput) (*ListWorktreesOutput, error) {
	var (
		res *domain.DiscoveryResult
		err error
	)
	if len(in.Dirs) > 0 {
		res, err = uc.discovery.FromDirs(ctx, in.Dirs)
	} else {
		res, err = uc.discovery.Discover(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("discover worktrees: %w", err)
	}

	matched := in.Selection.Apply(res.Worktrees)
	shown := matched
	if !in.All {
		shown = domain.WorktreeSelection{LinkedOnly: true}.Apply(matched)
	}
	return &ListWorktreesOutput{
		Worktrees: shown,
		Warnings:  res.Warnings,
		Total:     len(matched),
	}, nil
}
