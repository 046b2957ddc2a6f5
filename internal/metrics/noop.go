package metrics

import (
	"time"

	"github.com/runoshun/par/internal/domain"
)

// NoopSink discards all metrics. It is used when no textfile is configured.
type NoopSink struct{}

var _ Sink = NoopSink{}

func (NoopSink) JobQueued()                                        {}
func (NoopSink) JobStarted()                                       {}
func (NoopSink) JobFinished(domain.JobStatus, time.Duration, bool) {}
func (NoopSink) JobSkipped(string)                                 {}
func (NoopSink) RunCompleted(*domain.Summary)                      {}
