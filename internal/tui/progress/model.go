// Package progress is the live job table shown during `par run --tui`.
package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/report"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(report.Colors.Title)
	mutedStyle   = lipgloss.NewStyle().Foreground(report.Colors.Muted)
	successStyle = lipgloss.NewStyle().Foreground(report.Colors.Success)
	errorStyle   = lipgloss.NewStyle().Foreground(report.Colors.Error)
	warningStyle = lipgloss.NewStyle().Foreground(report.Colors.Warning)
)

type row struct {
	started  time.Time
	name     string
	reason   string
	state    domain.JobState
	duration time.Duration
}

// Model is the bubbletea model for the progress view.
type Model struct {
	now        func() time.Time
	cancel     context.CancelFunc
	index      map[string]int
	rows       []*row
	spinner    spinner.Model
	keys       KeyMap
	cancelling bool
	done       bool
}

// NewModel creates a progress model. cancel is called when the user asks to
// stop the run.
func NewModel(cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(report.Colors.Title)
	if cancel == nil {
		cancel = func() {}
	}
	return &Model{
		now:     time.Now,
		cancel:  cancel,
		index:   make(map[string]int),
		spinner: s,
		keys:    DefaultKeyMap(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.ForceQuit):
			m.requestCancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			m.requestCancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MsgJobQueued:
		m.row(msg.Job).state = domain.StateQueued

	case MsgJobStarted:
		r := m.row(msg.Job)
		r.state = domain.StateRunning
		r.started = m.now()

	case MsgJobFinished:
		r := m.row(msg.Job)
		r.state = msg.Result.Status.State()
		r.duration = msg.Result.Duration
		if !msg.Result.Succeeded() {
			r.reason = msg.Result.Reason()
		}

	case MsgJobSkipped:
		r := m.row(msg.Job)
		r.state = domain.StateSkipped
		r.reason = msg.Reason

	case MsgRunDone:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) requestCancel() {
	if m.cancelling {
		return
	}
	m.cancelling = true
	m.cancel()
}

// row returns the row for job, creating it in arrival order.
func (m *Model) row(job *domain.Job) *row {
	if i, ok := m.index[job.ID]; ok {
		return m.rows[i]
	}
	name := job.ShortID()
	if job.Worktree != nil {
		name = job.Worktree.Name
	}
	r := &row{name: name, state: domain.StateQueued}
	m.index[job.ID] = len(m.rows)
	m.rows = append(m.rows, r)
	return r
}

// Counts returns how many jobs are in each state.
func (m *Model) Counts() map[domain.JobState]int {
	counts := make(map[domain.JobState]int)
	for _, r := range m.rows {
		counts[r.state]++
	}
	return counts
}

// View implements tea.Model.
func (m *Model) View() string {
	var sb strings.Builder
	counts := m.Counts()
	finished := counts[domain.StateSucceeded] + counts[domain.StateFailed] + counts[domain.StateTimedOut] + counts[domain.StateSkipped]

	header := fmt.Sprintf("par: %d/%d done, %d running, %d queued",
		finished, len(m.rows), counts[domain.StateRunning], counts[domain.StateQueued])
	if !m.done {
		header = m.spinner.View() + " " + header
	}
	sb.WriteString(titleStyle.Render(header))
	sb.WriteString("\n\n")

	width := 0
	for _, r := range m.rows {
		width = max(width, lipgloss.Width(r.name))
	}
	for _, r := range m.rows {
		sb.WriteString(m.renderRow(r, width))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	switch {
	case m.done:
	case m.cancelling:
		sb.WriteString(warningStyle.Render("cancelling: waiting for running jobs to stop"))
		sb.WriteString("\n")
	default:
		sb.WriteString(mutedStyle.Render(m.keys.Cancel.Help().Key + ": " + m.keys.Cancel.Help().Desc))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderRow(r *row, width int) string {
	name := r.name + strings.Repeat(" ", width-lipgloss.Width(r.name))
	switch r.state {
	case domain.StateRunning:
		elapsed := m.now().Sub(r.started)
		return fmt.Sprintf("%s %s  %s", m.spinner.View(), name, mutedStyle.Render("running "+report.FormatDuration(elapsed)))
	case domain.StateSucceeded:
		return fmt.Sprintf("%s %s  %s", successStyle.Render("✓"), name, report.FormatDuration(r.duration))
	case domain.StateFailed:
		return fmt.Sprintf("%s %s  %s  %s", errorStyle.Render("✗"), name, report.FormatDuration(r.duration), errorStyle.Render(r.reason))
	case domain.StateTimedOut:
		return fmt.Sprintf("%s %s  %s  %s", warningStyle.Render("⏱"), name, report.FormatDuration(r.duration), warningStyle.Render("timeout"))
	case domain.StateSkipped:
		return fmt.Sprintf("%s %s  %s", mutedStyle.Render("-"), name, mutedStyle.Render("skipped ("+r.reason+")"))
	default:
		return fmt.Sprintf("%s %s  %s", mutedStyle.Render("·"), name, mutedStyle.Render("queued"))
	}
}
