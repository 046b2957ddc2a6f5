package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the terminal outcome of a job.
type JobStatus string

// Job outcomes.
const (
	StatusSuccess JobStatus = "success"
	StatusFailed  JobStatus = "failed"
	StatusTimeout JobStatus = "timeout"
)

// JobState is a job's position in its lifecycle.
// Queued -> Running -> {Succeeded | Failed | TimedOut}; Skipped jobs never run.
type JobState string

// Job states.
const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
	StateTimedOut  JobState = "timed_out"
	StateSkipped   JobState = "skipped"
)

// IsTerminal reports whether no further transition can happen.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateSkipped:
		return true
	default:
		return false
	}
}

// State maps an outcome to its terminal lifecycle state.
func (s JobStatus) State() JobState {
	switch s {
	case StatusSuccess:
		return StateSucceeded
	case StatusTimeout:
		return StateTimedOut
	default:
		return StateFailed
	}
}

// Job is one unit of work: run the resolved prompt in one worktree.
// A Job is immutable once created.
type Job struct {
	Worktree *Worktree
	ID       string
	Prompt   string
	Timeout  time.Duration
}

// NewJob creates a job with a fresh ID.
func NewJob(wt *Worktree, prompt string, timeout time.Duration) *Job {
	return &Job{
		ID:       uuid.NewString(),
		Worktree: wt,
		Prompt:   prompt,
		Timeout:  timeout,
	}
}

// ShortID returns the first 8 characters of the job ID.
func (j *Job) ShortID() string {
	return ShortID(j.ID)
}

// ShortID truncates an ID for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// JobResult is the outcome of exactly one started job.
// EndTime is never before StartTime.
type JobResult struct {
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	JobID        string        `json:"job_id"`
	WorktreeName string        `json:"worktree"`
	WorktreePath string        `json:"worktree_path"`
	Branch       string        `json:"branch,omitempty"`
	Status       JobStatus     `json:"status"`
	Output       string        `json:"output,omitempty"`
	Stderr       string        `json:"stderr,omitempty"`
	ErrorMessage string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
	ExitCode     int           `json:"exit_code"`
	Truncated    bool          `json:"truncated,omitempty"`
}

// NewJobResult starts a result for job with its identity fields filled in.
func NewJobResult(job *Job, start time.Time) JobResult {
	r := JobResult{
		JobID:     job.ID,
		StartTime: start,
		EndTime:   start,
	}
	if job.Worktree != nil {
		r.WorktreeName = job.Worktree.Name
		r.WorktreePath = job.Worktree.Path
		r.Branch = job.Worktree.Branch
	}
	return r
}

// Finish sets the end time and duration, clamping so EndTime >= StartTime.
func (r *JobResult) Finish(end time.Time) {
	if end.Before(r.StartTime) {
		end = r.StartTime
	}
	r.EndTime = end
	r.Duration = end.Sub(r.StartTime)
}

// Succeeded reports whether the job finished with StatusSuccess.
func (r *JobResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Reason returns a one-line explanation of a non-successful result.
func (r *JobResult) Reason() string {
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	if r.Status == StatusTimeout {
		return ErrJobTimeout.Error()
	}
	return string(r.Status)
}
