// Package pool runs jobs on a bounded set of workers.
package pool

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/runoshun/par/internal/domain"
)

// Skip reasons reported to observers.
const (
	SkipCancelled = "cancelled"
	SkipFailFast  = "fail-fast"
)

// Options configures a Pool.
type Options struct {
	Observer    Observer
	Concurrency int
	FailFast    bool // Stop dispatching after the first non-successful result
}

// Outcome is the result of one pool run.
// Every started job has exactly one entry in Results; jobs that never started
// are listed in Skipped in their original order.
type Outcome struct {
	Results   []domain.JobResult
	Skipped   []*domain.Job
	Cancelled bool
}

// SkippedNames returns the worktree names of skipped jobs.
func (o *Outcome) SkippedNames() []string {
	names := make([]string, 0, len(o.Skipped))
	for _, j := range o.Skipped {
		if j.Worktree != nil {
			names = append(names, j.Worktree.Name)
		} else {
			names = append(names, j.ShortID())
		}
	}
	return names
}

// Pool dispatches jobs to an executor with at most Concurrency running at once.
type Pool struct {
	executor domain.JobExecutor
	opts     Options
}

// New creates a new Pool. Concurrency below 1 falls back to the default.
func New(executor domain.JobExecutor, opts Options) *Pool {
	if opts.Concurrency < 1 {
		opts.Concurrency = domain.DefaultJobs
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}
	return &Pool{executor: executor, opts: opts}
}

// Concurrency returns the effective worker limit.
func (p *Pool) Concurrency() int {
	return p.opts.Concurrency
}

// Run executes jobs and blocks until every started job has finished.
// Cancelling ctx terminates running jobs through the executor and leaves
// queued jobs unstarted.
func (p *Pool) Run(ctx context.Context, jobs []*domain.Job) *Outcome {
	obs := p.opts.Observer
	out := &Outcome{Results: make([]domain.JobResult, 0, len(jobs))}
	if len(jobs) == 0 {
		return out
	}

	order := make(map[*domain.Job]int, len(jobs))
	queue := make(chan *domain.Job, len(jobs))
	for i, job := range jobs {
		order[job] = i
		obs.JobQueued(job)
		queue <- job
	}
	close(queue)

	var (
		mu      sync.Mutex
		stopped atomic.Bool
		g       errgroup.Group
	)

	skip := func(job *domain.Job, reason string) {
		mu.Lock()
		out.Skipped = append(out.Skipped, job)
		mu.Unlock()
		obs.JobSkipped(job, reason)
	}

	for range min(p.opts.Concurrency, len(jobs)) {
		g.Go(func() error {
			for job := range queue {
				if ctx.Err() != nil {
					skip(job, SkipCancelled)
					continue
				}
				if stopped.Load() {
					skip(job, SkipFailFast)
					continue
				}

				obs.JobStarted(job)
				res := p.executor.Execute(ctx, job)

				mu.Lock()
				out.Results = append(out.Results, res)
				mu.Unlock()
				obs.JobFinished(job, res)

				if p.opts.FailFast && !res.Succeeded() {
					stopped.Store(true)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(out.Skipped, func(i, j int) bool {
		return order[out.Skipped[i]] < order[out.Skipped[j]]
	})
	out.Cancelled = ctx.Err() != nil
	return out
}
