package report

import (
	"testing"
	"time"

	"github.com/runoshun/par/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func result(name string, status domain.JobStatus, d time.Duration) domain.JobResult {
	r := domain.JobResult{
		JobID:        "id-" + name,
		WorktreeName: name,
		WorktreePath: "/src/" + name,
		Status:       status,
		StartTime:    t0,
	}
	if status == domain.StatusFailed {
		r.ExitCode = 1
		r.ErrorMessage = "exit status 1"
	}
	r.Finish(t0.Add(d))
	return r
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil)

	assert.Equal(t, 0, s.TotalJobs)
	assert.Equal(t, 0.0, s.SuccessRate())
	assert.Zero(t, s.AverageDuration)
	assert.Nil(t, s.Fastest)
	assert.Nil(t, s.Slowest)
	assert.False(t, s.PerformanceFallback)
}

func TestSummarize_BasicRun(t *testing.T) {
	results := []domain.JobResult{
		result("c", domain.StatusSuccess, 10*time.Millisecond),
		result("a", domain.StatusSuccess, 10*time.Millisecond),
		result("b", domain.StatusSuccess, 10*time.Millisecond),
	}

	s := Summarize(results, nil)

	assert.Equal(t, 3, s.TotalJobs)
	assert.Equal(t, 3, s.SuccessfulJobs)
	assert.Equal(t, 0, s.FailedJobs)
	assert.Equal(t, 100.0, s.SuccessRate())
	assert.False(t, s.HasFailures())
	assert.Equal(t, "c", results[0].WorktreeName, "input is not reordered")
}

func TestSummarize_MixedOutcomes(t *testing.T) {
	// Setup: job 2 exits 1, job 4 times out.
	results := []domain.JobResult{
		result("job4", domain.StatusTimeout, 50*time.Millisecond),
		result("job2", domain.StatusFailed, 5*time.Millisecond),
		result("job1", domain.StatusSuccess, 20*time.Millisecond),
		result("job3", domain.StatusSuccess, 30*time.Millisecond),
	}

	// Execute
	s := Summarize(results, []string{"job6", "job5"})

	// Assert
	assert.Equal(t, 4, s.TotalJobs)
	assert.Equal(t, 2, s.SuccessfulJobs)
	assert.Equal(t, 1, s.FailedJobs)
	assert.Equal(t, 1, s.TimeoutJobs)
	assert.Equal(t, 2, s.SkippedJobs)
	assert.Equal(t, []string{"job5", "job6"}, s.Skipped)
	assert.Equal(t, 50.0, s.SuccessRate())
	assert.Equal(t, 105*time.Millisecond, s.TotalDuration)
	assert.Equal(t, 26250*time.Microsecond, s.AverageDuration)

	names := make([]string, 0, len(s.Results))
	for _, r := range s.Results {
		names = append(names, r.WorktreeName)
	}
	assert.Equal(t, []string{"job1", "job2", "job3", "job4"}, names)

	require.Len(t, s.FailedResults, 2)
	assert.Equal(t, domain.StatusFailed, s.FailedResults[0].Status)
	assert.Equal(t, domain.StatusTimeout, s.FailedResults[1].Status)

	// The failed job is quickest and the timeout slowest, but neither counts.
	require.NotNil(t, s.Fastest)
	assert.Equal(t, "job1", s.Fastest.WorktreeName)
	assert.Equal(t, "job3", s.Slowest.WorktreeName)
	assert.False(t, s.PerformanceFallback)
}

func TestSummarize_PerformanceFallback(t *testing.T) {
	results := []domain.JobResult{
		result("a", domain.StatusFailed, 5*time.Millisecond),
		result("b", domain.StatusTimeout, 50*time.Millisecond),
	}

	s := Summarize(results, nil)

	assert.True(t, s.PerformanceFallback)
	assert.Equal(t, "a", s.Fastest.WorktreeName)
	assert.Equal(t, "b", s.Slowest.WorktreeName)
	assert.Equal(t, 0.0, s.SuccessRate())
}

func TestSummarize_TimeBounds(t *testing.T) {
	early := result("a", domain.StatusSuccess, time.Second)
	late := result("b", domain.StatusSuccess, time.Second)
	late.StartTime = t0.Add(time.Second)
	late.Finish(t0.Add(3 * time.Second))

	s := Summarize([]domain.JobResult{late, early}, nil)

	assert.Equal(t, t0, s.StartTime)
	assert.Equal(t, t0.Add(3*time.Second), s.EndTime)
	assert.Equal(t, 3*time.Second, s.WallTime())
}
