// Package report aggregates job results and renders them.
package report

import (
	"sort"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// Summarize builds a Summary over a finished result set. It is pure: the
// input slice is not modified. Skipped holds the worktree names of jobs that
// never started.
//
// Fastest and Slowest consider successful results only. When nothing
// succeeded they fall back to all results and PerformanceFallback is set.
func Summarize(results []domain.JobResult, skipped []string) *domain.Summary {
	s := &domain.Summary{
		Results: make([]domain.JobResult, len(results)),
		Skipped: append([]string(nil), skipped...),
	}
	copy(s.Results, results)
	sort.SliceStable(s.Results, func(i, j int) bool {
		a, b := s.Results[i], s.Results[j]
		if a.WorktreeName != b.WorktreeName {
			return a.WorktreeName < b.WorktreeName
		}
		return a.JobID < b.JobID
	})
	sort.Strings(s.Skipped)

	s.TotalJobs = len(s.Results)
	s.SkippedJobs = len(s.Skipped)

	var succeeded []domain.JobResult
	for i, r := range s.Results {
		switch r.Status {
		case domain.StatusSuccess:
			s.SuccessfulJobs++
			succeeded = append(succeeded, r)
		case domain.StatusTimeout:
			s.TimeoutJobs++
			s.FailedResults = append(s.FailedResults, r)
		default:
			s.FailedJobs++
			s.FailedResults = append(s.FailedResults, r)
		}
		s.TotalDuration += r.Duration

		if i == 0 || r.StartTime.Before(s.StartTime) {
			s.StartTime = r.StartTime
		}
		if r.EndTime.After(s.EndTime) {
			s.EndTime = r.EndTime
		}
	}

	if s.TotalJobs > 0 {
		s.AverageDuration = s.TotalDuration / time.Duration(s.TotalJobs)
	}

	pool := succeeded
	if len(pool) == 0 && len(s.Results) > 0 {
		pool = s.Results
		s.PerformanceFallback = true
	}
	s.Fastest, s.Slowest = extremes(pool)

	return s
}

// extremes returns copies of the shortest and longest results.
// Ties keep the earlier result in report order.
func extremes(results []domain.JobResult) (fastest, slowest *domain.JobResult) {
	if len(results) == 0 {
		return nil, nil
	}
	f, sl := results[0], results[0]
	for _, r := range results[1:] {
		if r.Duration < f.Duration {
			f = r
		}
		if r.Duration > sl.Duration {
			sl = r
		}
	}
	return &f, &sl
}
