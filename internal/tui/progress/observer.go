package progress

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/pool"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards pool events to the progress view.
type Observer struct {
	sender Sender
}

var _ pool.Observer = (*Observer)(nil)

// NewObserver creates an Observer sending to s.
func NewObserver(s Sender) *Observer {
	return &Observer{sender: s}
}

func (o *Observer) JobQueued(job *domain.Job) {
	o.sender.Send(MsgJobQueued{Job: job})
}

func (o *Observer) JobStarted(job *domain.Job) {
	o.sender.Send(MsgJobStarted{Job: job})
}

func (o *Observer) JobFinished(job *domain.Job, res domain.JobResult) {
	o.sender.Send(MsgJobFinished{Job: job, Result: res})
}

func (o *Observer) JobSkipped(job *domain.Job, reason string) {
	o.sender.Send(MsgJobSkipped{Job: job, Reason: reason})
}

// Run shows the progress view on out while work runs. work receives the
// observer to attach to the pool. cancel is called when the user stops the
// run from the view. Run returns once work has returned.
func Run(cancel context.CancelFunc, out io.Writer, work func(pool.Observer) error) error {
	p := tea.NewProgram(NewModel(cancel), tea.WithOutput(out))

	done := make(chan error, 1)
	go func() {
		err := work(NewObserver(p))
		p.Send(MsgRunDone{})
		done <- err
	}()

	_, uiErr := p.Run()
	workErr := <-done
	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return errors.Join(workErr, fmt.Errorf("progress view: %w", uiErr))
	}
	return workErr
}
