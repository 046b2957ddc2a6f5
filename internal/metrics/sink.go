// Package metrics records job and run metrics.
package metrics

import (
	"time"

	"github.com/runoshun/par/internal/domain"
)

// Sink records metrics.
// All methods are fire-and-forget: implementations must not block or
// propagate errors.
type Sink interface {
	JobQueued()
	JobStarted()
	JobFinished(status domain.JobStatus, duration time.Duration, truncated bool)
	JobSkipped(reason string)
	RunCompleted(s *domain.Summary)
}

// Observer adapts a Sink to the pool's lifecycle events.
type Observer struct {
	sink Sink
}

// NewObserver creates an Observer feeding sink.
func NewObserver(sink Sink) *Observer {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Observer{sink: sink}
}

func (o *Observer) JobQueued(*domain.Job) {
	o.sink.JobQueued()
}

func (o *Observer) JobStarted(*domain.Job) {
	o.sink.JobStarted()
}

func (o *Observer) JobFinished(_ *domain.Job, res domain.JobResult) {
	o.sink.JobFinished(res.Status, res.Duration, res.Truncated)
}

func (o *Observer) JobSkipped(_ *domain.Job, reason string) {
	o.sink.JobSkipped(reason)
}
