package pool

import (
	"fmt"
	"log/slog"

	"github.com/runoshun/par/internal/domain"
)

// Observer receives job lifecycle events. Methods are called from worker
// goroutines and must be safe for concurrent use.
type Observer interface {
	JobQueued(job *domain.Job)
	JobStarted(job *domain.Job)
	JobFinished(job *domain.Job, res domain.JobResult)
	JobSkipped(job *domain.Job, reason string)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) JobQueued(*domain.Job)                     {}
func (NopObserver) JobStarted(*domain.Job)                    {}
func (NopObserver) JobFinished(*domain.Job, domain.JobResult) {}
func (NopObserver) JobSkipped(*domain.Job, string)            {}

// Observers fans every event out to each member in order.
type Observers []Observer

func (o Observers) JobQueued(job *domain.Job) {
	for _, obs := range o {
		obs.JobQueued(job)
	}
}

func (o Observers) JobStarted(job *domain.Job) {
	for _, obs := range o {
		obs.JobStarted(job)
	}
}

func (o Observers) JobFinished(job *domain.Job, res domain.JobResult) {
	for _, obs := range o {
		obs.JobFinished(job, res)
	}
}

func (o Observers) JobSkipped(job *domain.Job, reason string) {
	for _, obs := range o {
		obs.JobSkipped(job, reason)
	}
}

// jobTracker is implemented by loggers that keep a file per job.
type jobTracker interface {
	Track(jobID, worktreeName string)
	CloseJob(jobID string)
}

// LogObserver records lifecycle events in the run log and the debug log.
type LogObserver struct {
	log    domain.Logger
	logger *slog.Logger
}

// NewLogObserver creates a new LogObserver. Either logger may be nil.
func NewLogObserver(log domain.Logger, logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogObserver{log: log, logger: logger}
}

func (o *LogObserver) JobQueued(job *domain.Job) {
	if t, ok := o.log.(jobTracker); ok && job.Worktree != nil {
		t.Track(job.ID, job.Worktree.Name)
	}
	o.info(job.ID, fmt.Sprintf("queued for %s", worktreeName(job)))
}

func (o *LogObserver) JobStarted(job *domain.Job) {
	o.logger.Debug("job started", "job", job.ShortID(), "worktree", worktreeName(job))
	o.info(job.ID, "started in "+worktreePath(job))
}

func (o *LogObserver) JobFinished(job *domain.Job, res domain.JobResult) {
	o.logger.Debug("job finished", "job", job.ShortID(), "worktree", res.WorktreeName, "status", res.Status, "duration", res.Duration)

	msg := fmt.Sprintf("finished: status=%s exit=%d duration=%s", res.Status, res.ExitCode, res.Duration)
	if res.Succeeded() {
		o.info(job.ID, msg)
	} else if o.log != nil {
		o.log.Error(job.ID, "job", msg+": "+res.Reason())
	}
	if o.log != nil {
		if res.Output != "" {
			o.log.Debug(job.ID, "stdout", res.Output)
		}
		if res.Stderr != "" {
			o.log.Debug(job.ID, "stderr", res.Stderr)
		}
	}
	if t, ok := o.log.(jobTracker); ok {
		t.CloseJob(job.ID)
	}
}

func (o *LogObserver) JobSkipped(job *domain.Job, reason string) {
	o.logger.Debug("job skipped", "job", job.ShortID(), "worktree", worktreeName(job), "reason", reason)
	if o.log != nil {
		o.log.Warn(job.ID, "job", "skipped: "+reason)
	}
	if t, ok := o.log.(jobTracker); ok {
		t.CloseJob(job.ID)
	}
}

func (o *LogObserver) info(jobID, msg string) {
	if o.log != nil {
		o.log.Info(jobID, "job", msg)
	}
}

func worktreeName(job *domain.Job) string {
	if job.Worktree == nil {
		return ""
	}
	return job.Worktree.Name
}

func worktreePath(job *domain.Job) string {
	if job.Worktree == nil {
		return ""
	}
	return job.Worktree.Path
}
