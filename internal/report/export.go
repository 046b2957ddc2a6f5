package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// Format selects a renderer.
type Format string

// Report formats.
const (
	FormatConsole  Format = "console"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatDetailed Format = "detailed"
)

// Formats lists every supported format.
var Formats = []Format{FormatConsole, FormatJSON, FormatCSV, FormatDetailed}

// ParseFormat validates a --format value. Empty means console.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatConsole, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
}

// Render writes s to w in format f.
func Render(w io.Writer, s *domain.Summary, f Format, color bool) error {
	switch f {
	case FormatConsole, "":
		return NewConsole(color).Render(w, s)
	case FormatDetailed:
		return NewConsole(color).RenderDetailed(w, s)
	case FormatJSON:
		return WriteJSON(w, s)
	case FormatCSV:
		return WriteCSV(w, s)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, f)
	}
}

// jsonReport adds derived fields to the serialized summary.
type jsonReport struct {
	*domain.Summary
	SuccessRate float64 `json:"success_rate"`
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, s *domain.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Summary: s, SuccessRate: s.SuccessRate()}); err != nil {
		return fmt.Errorf("encode JSON report: %w", err)
	}
	return nil
}

// CSVHeader is the first row of the CSV report.
var CSVHeader = []string{"job_id", "worktree", "path", "branch", "status", "exit_code", "duration_ms", "start_time", "end_time", "error_message"}

// WriteCSV writes one row per result.
func WriteCSV(w io.Writer, s *domain.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, r := range s.Results {
		row := []string{
			r.JobID,
			r.WorktreeName,
			r.WorktreePath,
			r.Branch,
			string(r.Status),
			strconv.Itoa(r.ExitCode),
			strconv.FormatInt(r.Duration.Milliseconds(), 10),
			r.StartTime.Format(time.RFC3339),
			r.EndTime.Format(time.RFC3339),
			r.ErrorMessage,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write CSV report: %w", err)
	}
	return nil
}
