package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// CleanResultsInput contains the parameters for removing stored runs.
type CleanResultsInput struct {
	Before     time.Time     // Fixed cutoff; overrides OlderThan when set
	OlderThan  time.Duration // Only runs created before now-OlderThan
	FailedOnly bool          // Only runs with a failed or timed-out job
	JobLogs    bool          // Also remove per-job log files older than the cutoff
	DryRun     bool          // Report what would be removed
}

// CleanResultsOutput contains the runs that were (or would be) removed.
type CleanResultsOutput struct {
	Cutoff    time.Time
	Removed   []domain.RunRecord
	Logs      []domain.LogFile
	Errors    []error // Runs or logs that could not be removed
	Kept      int
	FreedSize int64
}

// Empty reports whether nothing matched.
func (o *CleanResultsOutput) Empty() bool {
	return len(o.Removed) == 0 && len(o.Logs) == 0
}

// CleanResults is the use case for pruning the output directory.
type CleanResults struct {
	results domain.ResultStore
	logs    domain.JobLogPruner
	clock   domain.Clock
}

// NewCleanResults creates a new CleanResults use case.
// results is nil when no output directory is configured.
func NewCleanResults(results domain.ResultStore, logs domain.JobLogPruner, clock domain.Clock) *CleanResults {
	return &CleanResults{results: results, logs: logs, clock: clock}
}

// Execute removes every matching run, and job logs when asked.
func (uc *CleanResults) Execute(_ context.Context, in CleanResultsInput) (*CleanResultsOutput, error) {
	if uc.results == nil && !in.JobLogs {
		return nil, domain.ErrOutputDirNotEnabled
	}

	cutoff := in.Before
	if cutoff.IsZero() {
		cutoff = uc.clock.Now().Add(-in.OlderThan)
	}
	out := &CleanResultsOutput{Cutoff: cutoff}

	if uc.results != nil {
		records, err := uc.results.List()
		if err != nil {
			return nil, fmt.Errorf("list results: %w", err)
		}
		for _, rec := range records {
			if !rec.CreatedAt.Before(cutoff) || (in.FailedOnly && rec.FailedJobs == 0) {
				out.Kept++
				continue
			}
			if !in.DryRun {
				if err := uc.results.Remove(rec); err != nil {
					out.Errors = append(out.Errors, err)
					continue
				}
			}
			out.Removed = append(out.Removed, rec)
			out.FreedSize += rec.Size
		}
	}

	if in.JobLogs && uc.logs != nil {
		logs, err := uc.logs.PruneJobLogs(cutoff, in.DryRun)
		if err != nil {
			out.Errors = append(out.Errors, err)
		}
		out.Logs = logs
		for _, l := range logs {
			out.FreedSize += l.Size
		}
	}

	return out, nil
}
