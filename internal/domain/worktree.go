package domain

import (
	"path/filepath"
	"sort"
)

// DetachedHead is the branch name reported for a worktree whose HEAD is not a branch.
const DetachedHead = "detached"

// Worktree is a snapshot of one Git working tree found during discovery.
// It is shared read-only between jobs.
type Worktree struct {
	Path      string // Absolute path
	Name      string // Unique display name within one discovery result
	Branch    string // Checked-out branch, or DetachedHead
	RemoteURL string // URL of origin, empty if none
	IsClean   bool   // No uncommitted changes
	IsLinked  bool   // .git is a file (created by git worktree add)
}

// StatusLabel returns "clean" or "dirty".
func (w *Worktree) StatusLabel() string {
	if w.IsClean {
		return "clean"
	}
	return "dirty"
}

// Kind returns "worktree" for linked worktrees and "repo" for main checkouts.
func (w *Worktree) Kind() string {
	if w.IsLinked {
		return "worktree"
	}
	return "repo"
}

// WorktreeInfo holds the path and branch of a worktree registered with git.
type WorktreeInfo struct {
	Path   string // Absolute path to worktree
	Branch string // Branch name
}

// RepoState is what a GitInspector reports about a checkout.
type RepoState struct {
	Branch    string
	RemoteURL string
	IsClean   bool
	IsLinked  bool
}

// AssignNames gives every worktree a unique Name.
// The base directory name is used when unique; colliding names are prefixed
// with their parent directory, then with the full path as a last resort.
// The slice is sorted by Name afterwards.
func AssignNames(worktrees []*Worktree) {
	sort.SliceStable(worktrees, func(i, j int) bool {
		return worktrees[i].Path < worktrees[j].Path
	})

	counts := make(map[string]int, len(worktrees))
	for _, wt := range worktrees {
		counts[filepath.Base(wt.Path)]++
	}

	used := make(map[string]bool, len(worktrees))
	for _, wt := range worktrees {
		base := filepath.Base(wt.Path)
		name := base
		if counts[base] > 1 {
			name = filepath.Base(filepath.Dir(wt.Path)) + "/" + base
		}
		if used[name] {
			name = wt.Path
		}
		used[name] = true
		wt.Name = name
	}

	SortWorktrees(worktrees)
}

// SortWorktrees orders worktrees by name, then path.
func SortWorktrees(worktrees []*Worktree) {
	sort.SliceStable(worktrees, func(i, j int) bool {
		if worktrees[i].Name != worktrees[j].Name {
			return worktrees[i].Name < worktrees[j].Name
		}
		return worktrees[i].Path < worktrees[j].Path
	})
}

// WorktreeSelection narrows a discovery result.
type WorktreeSelection struct {
	Patterns   []string // Globs matched against name, branch and directory name
	CleanOnly  bool
	LinkedOnly bool
}

// Apply returns the worktrees matching the selection, preserving order.
// An empty selection keeps everything.
func (s WorktreeSelection) Apply(worktrees []*Worktree) []*Worktree {
	out := make([]*Worktree, 0, len(worktrees))
	for _, wt := range worktrees {
		if s.CleanOnly && !wt.IsClean {
			continue
		}
		if s.LinkedOnly && !wt.IsLinked {
			continue
		}
		if len(s.Patterns) > 0 && !s.matches(wt) {
			continue
		}
		out = append(out, wt)
	}
	return out
}

func (s WorktreeSelection) matches(wt *Worktree) bool {
	for _, p := range s.Patterns {
		for _, candidate := range []string{wt.Name, wt.Branch, filepath.Base(wt.Path)} {
			if ok, _ := filepath.Match(p, candidate); ok {
				return true
			}
		}
	}
	return false
}
