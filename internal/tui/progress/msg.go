package progress

import "github.com/runoshun/par/internal/domain"

// Msg is the sealed interface for all progress messages.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgJobQueued is sent when a job enters the queue.
type MsgJobQueued struct {
	Job *domain.Job
}

func (MsgJobQueued) sealed() {}

// MsgJobStarted is sent when a worker picks up a job.
type MsgJobStarted struct {
	Job *domain.Job
}

func (MsgJobStarted) sealed() {}

// MsgJobFinished is sent with the job's result.
type MsgJobFinished struct {
	Job    *domain.Job
	Result domain.JobResult
}

func (MsgJobFinished) sealed() {}

// MsgJobSkipped is sent for jobs that never started.
type MsgJobSkipped struct {
	Job    *domain.Job
	Reason string
}

func (MsgJobSkipped) sealed() {}

// MsgRunDone is sent once the pool has returned.
type MsgRunDone struct{}

func (MsgRunDone) sealed() {}
