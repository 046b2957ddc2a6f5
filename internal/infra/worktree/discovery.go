package worktree

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/infra/git"
)

// skipDirs are never descended into, regardless of exclude patterns.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"vendor":       true,
	".direnv":      true,
}

// Options controls a discovery scan.
type Options struct {
	SearchPaths     []string
	ExcludePatterns []string
	MaxDepth        int
	IncludeLinked   bool
}

// OptionsFromConfig builds discovery options from the [worktrees] section.
func OptionsFromConfig(cfg domain.WorktreesConfig) Options {
	paths := make([]string, 0, len(cfg.SearchPaths))
	for _, p := range cfg.SearchPaths {
		paths = append(paths, domain.ExpandPath(p))
	}
	return Options{
		SearchPaths:     paths,
		ExcludePatterns: cfg.ExcludePatterns,
		MaxDepth:        cfg.MaxDepth,
		IncludeLinked:   cfg.IncludeLinked,
	}
}

// Result is the outcome of a discovery scan.
type Result = domain.DiscoveryResult

// Ensure Discovery implements domain.WorktreeDiscoverer interface.
var _ domain.WorktreeDiscoverer = (*Discovery)(nil)

// Discovery scans search roots for git checkouts.
type Discovery struct {
	inspector domain.GitInspector
	lister    domain.WorktreeLister
	logger    *slog.Logger
	opts      Options
}

// NewDiscovery creates a new Discovery.
// lister may be nil, in which case linked worktrees are only found by scanning.
func NewDiscovery(opts Options, inspector domain.GitInspector, lister domain.WorktreeLister, logger *slog.Logger) *Discovery {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = domain.DefaultMaxDepth
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Discovery{
		opts:      opts,
		inspector: inspector,
		lister:    lister,
		logger:    logger,
	}
}

// Discover scans every search root and returns the worktrees found, sorted
// by name. Missing or unreadable roots are reported as warnings.
func (d *Discovery) Discover(ctx context.Context) (*Result, error) {
	res := &Result{}
	var candidates []string

	for _, root := range d.opts.SearchPaths {
		found, warnings, err := d.scanRoot(ctx, root)
		if err != nil {
			return nil, err
		}
		res.Warnings = append(res.Warnings, warnings...)
		candidates = append(candidates, found...)
	}

	return d.build(ctx, candidates, res)
}

// FromDirs builds worktrees from explicit directories, bypassing the scan.
// Directories that are not git checkouts are reported as warnings.
func (d *Discovery) FromDirs(ctx context.Context, dirs []string) (*Result, error) {
	res := &Result{}
	var candidates []string

	for _, dir := range dirs {
		abs, err := filepath.Abs(domain.ExpandPath(dir))
		if err != nil {
			res.Warnings = append(res.Warnings, &domain.DiscoveryError{Root: dir, Err: err})
			continue
		}
		if !git.HasGitEntry(abs) {
			res.Warnings = append(res.Warnings, &domain.DiscoveryError{Root: abs, Err: errors.New("not a git checkout")})
			continue
		}
		candidates = append(candidates, abs)
	}

	return d.build(ctx, candidates, res)
}

// scanRoot walks one search root and returns candidate checkout paths.
func (d *Discovery) scanRoot(ctx context.Context, root string) ([]string, []error, error) {
	var found []string
	var warnings []error

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, []error{&domain.DiscoveryError{Root: root, Err: err}}, nil
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, []error{&domain.DiscoveryError{Root: root, Err: err}}, nil
	}
	if !info.IsDir() {
		return nil, []error{&domain.DiscoveryError{Root: root, Err: errors.New("not a directory")}}, nil
	}

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			warnings = append(warnings, &domain.DiscoveryError{Root: path, Err: err})
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			return nil
		}

		if path != root {
			name := entry.Name()
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return filepath.SkipDir
			}
			if d.depth(root, path) > d.opts.MaxDepth {
				return filepath.SkipDir
			}
		}
		if d.isExcluded(path) {
			return filepath.SkipDir
		}

		if git.HasGitEntry(path) {
			found = append(found, path)
			// Nested repositories (submodules, vendored checkouts) are not jobs.
			return filepath.SkipDir
		}
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, nil, walkErr
		}
		warnings = append(warnings, &domain.DiscoveryError{Root: root, Err: walkErr})
	}

	d.logger.Debug("scanned search root", "root", root, "found", len(found))
	return found, warnings, nil
}

// build expands linked worktrees, inspects every candidate and names them.
func (d *Discovery) build(ctx context.Context, candidates []string, res *Result) (*Result, error) {
	seen := make(map[string]bool, len(candidates))
	var paths []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, c := range candidates {
		add(c)
	}

	if d.opts.IncludeLinked && d.lister != nil {
		for _, c := range candidates {
			if git.IsLinkedWorktree(c) {
				continue
			}
			infos, err := d.lister.List(c)
			if err != nil {
				res.Warnings = append(res.Warnings, &domain.DiscoveryError{Root: c, Err: err})
				continue
			}
			for _, info := range infos {
				if _, err := os.Stat(info.Path); err != nil {
					continue // prunable entry
				}
				if d.isExcluded(info.Path) {
					continue
				}
				add(info.Path)
			}
		}
	}

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := d.inspector.Inspect(p)
		if err != nil {
			res.Warnings = append(res.Warnings, &domain.DiscoveryError{Root: p, Err: err})
			continue
		}
		res.Worktrees = append(res.Worktrees, &domain.Worktree{
			Path:      p,
			Branch:    state.Branch,
			IsClean:   state.IsClean,
			IsLinked:  state.IsLinked,
			RemoteURL: state.RemoteURL,
		})
	}

	domain.AssignNames(res.Worktrees)

	for _, w := range res.Warnings {
		d.logger.Warn("discovery", "error", w)
	}
	return res, nil
}

// depth returns how many directory levels path is below root.
func (d *Discovery) depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// isExcluded reports whether path matches any exclude pattern.
func (d *Discovery) isExcluded(path string) bool {
	return MatchesExclude(path, d.opts.ExcludePatterns)
}

// MatchesExclude matches glob patterns against the full path, the base name
// and every trailing run of path elements (with and without a trailing
// slash), so "*/node_modules/*" excludes ".../app/node_modules".
func MatchesExclude(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	slashed := filepath.ToSlash(filepath.Clean(path))
	parts := strings.Split(strings.Trim(slashed, "/"), "/")

	candidates := []string{slashed, slashed + "/"}
	for i := range parts {
		suffix := strings.Join(parts[i:], "/")
		candidates = append(candidates, suffix, suffix+"/")
	}

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		for _, c := range candidates {
			if ok, _ := filepath.Match(pattern, c); ok {
				return true
			}
		}
	}
	return false
}
