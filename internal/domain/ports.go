package domain

import (
	"context"
	"time"
)

// JobExecutor runs one job to completion.
// Execute never returns an error: every failure mode (launch error, non-zero
// exit, timeout, cancellation) is recorded in the returned JobResult.
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) JobResult
}

// GitInspector reads branch and cleanliness of a checkout.
type GitInspector interface {
	Inspect(path string) (*RepoState, error)
}

// WorktreeLister lists worktrees registered with a repository.
type WorktreeLister interface {
	List(repoPath string) ([]WorktreeInfo, error)
}

// DiscoveryResult is the outcome of a worktree scan.
// Warnings hold recoverable *DiscoveryError values.
type DiscoveryResult struct {
	Worktrees []*Worktree
	Warnings  []error
}

// WorktreeDiscoverer finds worktrees on disk.
type WorktreeDiscoverer interface {
	// Discover scans the configured search roots.
	Discover(ctx context.Context) (*DiscoveryResult, error)
	// FromDirs inspects the given directories without scanning.
	FromDirs(ctx context.Context, dirs []string) (*DiscoveryResult, error)
}

// PromptStore persists prompt templates.
type PromptStore interface {
	// Save writes a prompt, replacing any prompt with the same name.
	Save(p *PromptTemplate) error
	// Load returns ErrPromptNotFound if no prompt has that name.
	Load(name string) (*PromptTemplate, error)
	// List returns all prompts sorted by name.
	List() ([]*PromptTemplate, error)
	// Delete returns ErrPromptNotFound if no prompt has that name.
	Delete(name string) error
	Exists(name string) (bool, error)
}

// RunRecord describes one stored run in the output directory.
type RunRecord struct {
	CreatedAt  time.Time
	ID         string
	Path       string
	Size       int64
	TotalJobs  int
	FailedJobs int
}

// ResultStore persists run summaries to disk.
type ResultStore interface {
	// Save writes all report files for a run and returns the run directory.
	Save(s *Summary) (string, error)
	List() ([]RunRecord, error)
	Remove(rec RunRecord) error
}

// LogFile describes one per-job log file.
type LogFile struct {
	ModTime time.Time
	Path    string
	Size    int64
}

// JobLogPruner removes per-job log files.
type JobLogPruner interface {
	// PruneJobLogs removes job logs last written before the cutoff.
	// With dryRun nothing is removed.
	PruneJobLogs(before time.Time, dryRun bool) ([]LogFile, error)
}

// ConfigLoader loads the effective configuration.
type ConfigLoader interface {
	Load() (*Config, error)
	// GlobalPath returns the path of the global config file.
	GlobalPath() string
}

// ConfigManager inspects and creates config files.
type ConfigManager interface {
	GetGlobalConfigInfo() ConfigInfo
	// InitGlobalConfig writes the default template; ErrConfigExists unless force.
	InitGlobalConfig(force bool) (string, error)
}

// Logger writes job-scoped log lines. An empty jobID logs to the global log only.
type Logger interface {
	Info(jobID, category, msg string)
	Debug(jobID, category, msg string)
	Warn(jobID, category, msg string)
	Error(jobID, category, msg string)
}

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}
