package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/runoshun/par/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor sleeps for delay (or until ctx is done) and tracks the peak
// number of concurrent executions.
type fakeExecutor struct {
	fail    map[string]bool // worktree names that fail
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
}

func (f *fakeExecutor) Execute(ctx context.Context, job *domain.Job) domain.JobResult {
	f.calls.Add(1)
	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	res := domain.NewJobResult(job, time.Now())
	select {
	case <-time.After(f.delay):
		res.Status = domain.StatusSuccess
		if f.fail[job.Worktree.Name] {
			res.Status = domain.StatusFailed
			res.ExitCode = 1
		}
	case <-ctx.Done():
		res.Status = domain.StatusFailed
		res.ErrorMessage = "cancelled: " + context.Cause(ctx).Error()
	}
	res.Finish(time.Now())
	return res
}

// recordingObserver counts events.
type recordingObserver struct {
	skipped  map[string]string
	mu       sync.Mutex
	queued   int
	started  int
	finished int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{skipped: make(map[string]string)}
}

func (r *recordingObserver) JobQueued(*domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued++
}

func (r *recordingObserver) JobStarted(*domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *recordingObserver) JobFinished(*domain.Job, domain.JobResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
}

func (r *recordingObserver) JobSkipped(job *domain.Job, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped[job.Worktree.Name] = reason
}

func makeJobs(n int) []*domain.Job {
	jobs := make([]*domain.Job, 0, n)
	for i := range n {
		wt := &domain.Worktree{Name: fmt.Sprintf("wt-%02d", i), Path: fmt.Sprintf("/w/%02d", i)}
		jobs = append(jobs, domain.NewJob(wt, "p", time.Minute))
	}
	return jobs
}

func resultIDs(results []domain.JobResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.JobID)
	}
	sort.Strings(ids)
	return ids
}

func jobIDs(jobs []*domain.Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestPool_ConcurrencyBound(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		jobs        int
		wantPeak    int32
	}{
		{"limit below jobs", 2, 6, 2},
		{"limit above jobs", 8, 3, 3},
		{"serial", 1, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{delay: 50 * time.Millisecond}
			p := New(exec, Options{Concurrency: tt.concurrency})

			out := p.Run(context.Background(), makeJobs(tt.jobs))

			assert.Len(t, out.Results, tt.jobs)
			assert.Equal(t, tt.wantPeak, exec.peak.Load())
		})
	}
}

func TestPool_ExactlyOneResultPerJob(t *testing.T) {
	// Setup
	jobs := makeJobs(10)
	exec := &fakeExecutor{delay: 5 * time.Millisecond, fail: map[string]bool{"wt-03": true, "wt-07": true}}
	obs := newRecordingObserver()

	// Execute
	out := New(exec, Options{Concurrency: 3, Observer: obs}).Run(context.Background(), jobs)

	// Assert
	assert.Equal(t, jobIDs(jobs), resultIDs(out.Results))
	assert.Empty(t, out.Skipped)
	assert.False(t, out.Cancelled)
	assert.Equal(t, 10, obs.queued)
	assert.Equal(t, 10, obs.started)
	assert.Equal(t, 10, obs.finished)

	failed := 0
	for _, r := range out.Results {
		if !r.Succeeded() {
			failed++
		}
	}
	assert.Equal(t, 2, failed, "failures are isolated")
}

func TestPool_DefaultConcurrency(t *testing.T) {
	p := New(&fakeExecutor{}, Options{Concurrency: 0})
	assert.Equal(t, domain.DefaultJobs, p.Concurrency())

	p = New(&fakeExecutor{}, Options{Concurrency: -4})
	assert.Equal(t, domain.DefaultJobs, p.Concurrency())
}

func TestPool_NoJobs(t *testing.T) {
	out := New(&fakeExecutor{}, Options{}).Run(context.Background(), nil)

	assert.Empty(t, out.Results)
	assert.Empty(t, out.Skipped)
}

func TestPool_Cancellation(t *testing.T) {
	// Setup: 2 workers, 6 long jobs; cancel while the first two run.
	jobs := makeJobs(6)
	exec := &fakeExecutor{delay: 10 * time.Second}
	obs := newRecordingObserver()
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	// Execute
	start := time.Now()
	out := New(exec, Options{Concurrency: 2, Observer: obs}).Run(ctx, jobs)

	// Assert
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, out.Cancelled)
	require.Len(t, out.Results, 2, "only started jobs have results")
	for _, r := range out.Results {
		assert.Equal(t, domain.StatusFailed, r.Status)
		assert.Contains(t, r.ErrorMessage, "cancelled")
	}
	require.Len(t, out.Skipped, 4)
	assert.Equal(t, int32(2), exec.calls.Load())
	for _, name := range out.SkippedNames() {
		assert.Equal(t, SkipCancelled, obs.skipped[name])
	}

	all := append(resultIDs(out.Results), jobIDs(out.Skipped)...)
	sort.Strings(all)
	assert.Equal(t, jobIDs(jobs), all, "every job is either a result or skipped")
}

func TestPool_FailFast(t *testing.T) {
	// Setup: serial run where the second job fails.
	jobs := makeJobs(5)
	exec := &fakeExecutor{delay: time.Millisecond, fail: map[string]bool{"wt-01": true}}
	obs := newRecordingObserver()

	// Execute
	out := New(exec, Options{Concurrency: 1, FailFast: true, Observer: obs}).Run(context.Background(), jobs)

	// Assert
	require.Len(t, out.Results, 2)
	assert.False(t, out.Cancelled)
	assert.Equal(t, []string{"wt-02", "wt-03", "wt-04"}, out.SkippedNames())
	assert.Equal(t, SkipFailFast, obs.skipped["wt-02"])
}

func TestPool_WithoutFailFastRunsEverything(t *testing.T) {
	jobs := makeJobs(5)
	exec := &fakeExecutor{delay: time.Millisecond, fail: map[string]bool{"wt-00": true}}

	out := New(exec, Options{Concurrency: 1}).Run(context.Background(), jobs)

	assert.Len(t, out.Results, 5)
	assert.Empty(t, out.Skipped)
}
