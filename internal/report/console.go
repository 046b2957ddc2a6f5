package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/runoshun/par/internal/domain"
)

// Colors is the console palette.
var Colors = struct {
	Title   lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
}{
	Title:   lipgloss.Color("#6C5CE7"), // Purple
	Muted:   lipgloss.Color("#636E72"), // Gray
	Success: lipgloss.Color("#00B894"), // Green
	Error:   lipgloss.Color("#D63031"), // Red
	Warning: lipgloss.Color("#FDCB6E"), // Yellow
}

// styles holds the console styles. Every style is plain when colour is off.
type styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Failed  lipgloss.Style
	Timeout lipgloss.Style
	Skipped lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain}
	}
	return styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(Colors.Title),
		Muted:   lipgloss.NewStyle().Foreground(Colors.Muted),
		Success: lipgloss.NewStyle().Foreground(Colors.Success),
		Failed:  lipgloss.NewStyle().Bold(true).Foreground(Colors.Error),
		Timeout: lipgloss.NewStyle().Bold(true).Foreground(Colors.Warning),
		Skipped: lipgloss.NewStyle().Foreground(Colors.Muted),
	}
}

// ColorEnabled reports whether f is a terminal and NO_COLOR is unset.
func ColorEnabled(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Console renders summaries for humans.
type Console struct {
	styles styles
}

// NewConsole creates a console renderer.
func NewConsole(color bool) *Console {
	return &Console{styles: newStyles(color)}
}

// Render writes the summary: counts, a per-job table, failures and
// performance.
func (c *Console) Render(w io.Writer, s *domain.Summary) error {
	var sb strings.Builder
	st := c.styles

	sb.WriteString(st.Title.Render("Par Execution Summary") + "\n")
	sb.WriteString(strings.Repeat("=", 21) + "\n")
	fmt.Fprintf(&sb, "Total Jobs: %d\n", s.TotalJobs)
	fmt.Fprintf(&sb, "Successful: %s\n", st.Success.Render(fmt.Sprint(s.SuccessfulJobs)))
	fmt.Fprintf(&sb, "Failed: %s\n", styleCount(st.Failed, s.FailedJobs))
	fmt.Fprintf(&sb, "Timeout: %s\n", styleCount(st.Timeout, s.TimeoutJobs))
	if s.SkippedJobs > 0 {
		fmt.Fprintf(&sb, "Skipped: %s\n", st.Skipped.Render(fmt.Sprint(s.SkippedJobs)))
	}
	fmt.Fprintf(&sb, "Success Rate: %.1f%%\n", s.SuccessRate())
	fmt.Fprintf(&sb, "Total Duration: %s\n", FormatDuration(s.TotalDuration))
	fmt.Fprintf(&sb, "Average Job Duration: %s\n", FormatDuration(s.AverageDuration))
	if s.Cancelled {
		sb.WriteString(st.Timeout.Render("Run was cancelled before all jobs finished") + "\n")
	}

	if len(s.Results) > 0 || len(s.Skipped) > 0 {
		sb.WriteString("\n")
		tw := tabwriter.NewWriter(&sb, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(tw, "WORKTREE\tSTATUS\tDURATION\tEXIT")
		for _, r := range s.Results {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.WorktreeName, r.Status, FormatDuration(r.Duration), r.ExitCode)
		}
		for _, name := range s.Skipped {
			_, _ = fmt.Fprintf(tw, "%s\tskipped\t-\t-\n", name)
		}
		_ = tw.Flush()
	}

	if len(s.FailedResults) > 0 {
		sb.WriteString("\nFailed Jobs:\n")
		for _, r := range s.FailedResults {
			label := st.Failed
			if r.Status == domain.StatusTimeout {
				label = st.Timeout
			}
			fmt.Fprintf(&sb, "- %s: %s", r.WorktreeName, label.Render(FailureReason(r)))
			if r.ErrorMessage != "" && r.ErrorMessage != FailureReason(r) {
				fmt.Fprintf(&sb, " (%s)", r.ErrorMessage)
			}
			sb.WriteString("\n")
		}
	}

	if len(s.Skipped) > 0 {
		sb.WriteString("\nSkipped Jobs:\n")
		for _, name := range s.Skipped {
			fmt.Fprintf(&sb, "- %s\n", st.Skipped.Render(name))
		}
	}

	if s.Fastest != nil && s.Slowest != nil {
		sb.WriteString("\nPerformance:\n")
		fmt.Fprintf(&sb, "Fastest: %s (%s)\n", s.Fastest.WorktreeName, FormatDuration(s.Fastest.Duration))
		fmt.Fprintf(&sb, "Slowest: %s (%s)\n", s.Slowest.WorktreeName, FormatDuration(s.Slowest.Duration))
		if s.PerformanceFallback {
			sb.WriteString(st.Muted.Render("(no job succeeded; computed over all jobs)") + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// RenderDetailed writes the console summary followed by every job's output.
func (c *Console) RenderDetailed(w io.Writer, s *domain.Summary) error {
	if err := c.Render(w, s); err != nil {
		return err
	}
	if len(s.Results) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("\n" + c.styles.Title.Render("Detailed Results") + "\n")
	sb.WriteString(strings.Repeat("=", 16) + "\n")
	for _, r := range s.Results {
		fmt.Fprintf(&sb, "\nJob: %s\n", r.JobID)
		fmt.Fprintf(&sb, "Worktree: %s\n", r.WorktreeName)
		fmt.Fprintf(&sb, "Path: %s\n", r.WorktreePath)
		if r.Branch != "" {
			fmt.Fprintf(&sb, "Branch: %s\n", r.Branch)
		}
		fmt.Fprintf(&sb, "Status: %s\n", r.Status)
		fmt.Fprintf(&sb, "Exit Code: %d\n", r.ExitCode)
		fmt.Fprintf(&sb, "Duration: %s\n", FormatDuration(r.Duration))
		fmt.Fprintf(&sb, "Start Time: %s\n", r.StartTime.Format(time.RFC3339))
		fmt.Fprintf(&sb, "End Time: %s\n", r.EndTime.Format(time.RFC3339))
		if r.ErrorMessage != "" {
			fmt.Fprintf(&sb, "Error: %s\n", r.ErrorMessage)
		}
		if r.Output != "" {
			sb.WriteString("Output:\n")
			sb.WriteString(indent(r.Output, "  ") + "\n")
		}
		if r.Stderr != "" {
			sb.WriteString("Stderr:\n")
			sb.WriteString(indent(r.Stderr, "  ") + "\n")
		}
		sb.WriteString(strings.Repeat("-", 50) + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FailureReason returns a short label for a non-successful result.
func FailureReason(r domain.JobResult) string {
	switch r.Status {
	case domain.StatusTimeout:
		return "timeout"
	case domain.StatusFailed:
		if r.ExitCode > 0 {
			return fmt.Sprintf("exit code %d", r.ExitCode)
		}
		return "execution failed"
	default:
		return string(r.Status)
	}
}

// FormatDuration renders d as 850ms, 12.3s or 4.5m.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
}

func styleCount(style lipgloss.Style, n int) string {
	if n == 0 {
		return "0"
	}
	return style.Render(fmt.Sprint(n))
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
