package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeFileName turns a worktree name such as "parent/repo" into a string
// usable as a single path element.
func SafeFileName(name string) string {
	s := unsafeNameChars.ReplaceAllString(name, "_")
	s = strings.Trim(s, "_.")
	if s == "" {
		return "unnamed"
	}
	return s
}

// SessionName returns the tmux session name for a job.
// Format: par-<worktree>-<id8>
func SessionName(job *Job) string {
	name := "job"
	if job.Worktree != nil {
		name = SafeFileName(job.Worktree.Name)
	}
	// tmux treats '.' and ':' as target separators.
	name = strings.ReplaceAll(name, ".", "_")
	return fmt.Sprintf("par-%s-%s", name, job.ShortID())
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(logDir string) string {
	return filepath.Join(logDir, GlobalLogName)
}

// JobLogDir returns the directory holding per-job log files.
func JobLogDir(logDir string) string {
	return filepath.Join(logDir, "jobs")
}

// JobLogPath returns the path to the log file of one job.
func JobLogPath(logDir, worktreeName, jobID string) string {
	return filepath.Join(JobLogDir(logDir), fmt.Sprintf("%s-%s.log", SafeFileName(worktreeName), ShortID(jobID)))
}

// TmuxSocketPath returns the default tmux socket path.
func TmuxSocketPath(logDir string) string {
	return filepath.Join(logDir, "tmux.sock")
}

// PromptFilePath returns the path of a stored prompt.
func PromptFilePath(promptDir, name string) string {
	return filepath.Join(promptDir, name+".yaml")
}
