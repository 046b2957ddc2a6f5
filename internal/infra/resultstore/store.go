// Package resultstore writes run reports to the output directory.
package resultstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/report"
)

// Files written into every run directory.
const (
	SummaryJSON  = "summary.json"
	SummaryText  = "summary.txt"
	ResultsCSV   = "results.csv"
	DetailedText = "detailed.txt"
	OutputsDir   = "outputs"

	timestampLayout = "20060102_150405"
)

var runDirPattern = regexp.MustCompile(`^(\d{8}_\d{6})_([0-9A-Za-z-]{1,8})$`)

// Store implements domain.ResultStore with one directory per run:
// <dir>/<YYYYmmdd_HHMMSS>_<run8>/.
type Store struct {
	clock domain.Clock
	dir   string
}

// Ensure Store implements domain.ResultStore interface.
var _ domain.ResultStore = (*Store)(nil)

// New creates a Store rooted at dir.
func New(dir string, clock domain.Clock) *Store {
	if clock == nil {
		clock = domain.RealClock{}
	}
	return &Store{dir: dir, clock: clock}
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes every report format plus one output file per job and returns
// the run directory.
func (s *Store) Save(sum *domain.Summary) (string, error) {
	started := sum.StartTime
	if started.IsZero() {
		started = s.clock.Now()
	}
	runID := sum.RunID
	if runID == "" {
		runID = "run"
	}
	runDir := filepath.Join(s.dir, fmt.Sprintf("%s_%s", started.Local().Format(timestampLayout), domain.ShortID(runID)))

	if err := os.MkdirAll(filepath.Join(runDir, OutputsDir), 0o750); err != nil {
		return "", fmt.Errorf("create run directory: %w", err)
	}

	console := report.NewConsole(false)
	files := []struct {
		render func(*bytes.Buffer) error
		name   string
	}{
		{func(b *bytes.Buffer) error { return report.WriteJSON(b, sum) }, SummaryJSON},
		{func(b *bytes.Buffer) error { return console.Render(b, sum) }, SummaryText},
		{func(b *bytes.Buffer) error { return report.WriteCSV(b, sum) }, ResultsCSV},
		{func(b *bytes.Buffer) error { return console.RenderDetailed(b, sum) }, DetailedText},
	}
	for _, f := range files {
		var buf bytes.Buffer
		if err := f.render(&buf); err != nil {
			return "", fmt.Errorf("render %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(runDir, f.name), buf.Bytes(), 0o600); err != nil {
			return "", fmt.Errorf("write %s: %w", f.name, err)
		}
	}

	for _, r := range sum.Results {
		if r.Output == "" && r.Stderr == "" {
			continue
		}
		path := filepath.Join(runDir, OutputsDir, domain.SafeFileName(r.WorktreeName)+".txt")
		if err := os.WriteFile(path, []byte(jobOutput(r)), 0o600); err != nil {
			return "", fmt.Errorf("write output of %s: %w", r.WorktreeName, err)
		}
	}

	return runDir, nil
}

func jobOutput(r domain.JobResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Job ID: %s\n", r.JobID)
	fmt.Fprintf(&sb, "Worktree: %s\n", r.WorktreeName)
	fmt.Fprintf(&sb, "Path: %s\n", r.WorktreePath)
	fmt.Fprintf(&sb, "Status: %s\n", r.Status)
	fmt.Fprintf(&sb, "Duration: %s\n", r.Duration)
	fmt.Fprintf(&sb, "Start Time: %s\n", r.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&sb, "End Time: %s\n", r.EndTime.Format(time.RFC3339))
	sb.WriteString("\n" + strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(r.Output)
	if r.Stderr != "" {
		sb.WriteString("\n--- stderr ---\n")
		sb.WriteString(r.Stderr)
	}
	return sb.String()
}

// List returns stored runs, oldest first. Unrecognised entries are ignored;
// runs whose summary cannot be read are listed with zero counts.
func (s *Store) List() ([]domain.RunRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	var records []domain.RunRecord
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := runDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		created, err := time.ParseInLocation(timestampLayout, m[1], time.Local)
		if err != nil {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		rec := domain.RunRecord{
			CreatedAt: created,
			ID:        m[2],
			Path:      path,
			Size:      dirSize(path),
		}
		if sum, err := readSummary(path); err == nil {
			if sum.RunID != "" {
				rec.ID = sum.RunID
			}
			rec.TotalJobs = sum.TotalJobs
			rec.FailedJobs = sum.FailedJobs + sum.TimeoutJobs
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].Path < records[j].Path
	})
	return records, nil
}

// Remove deletes a stored run. Paths outside the output directory are refused.
func (s *Store) Remove(rec domain.RunRecord) error {
	rel, err := filepath.Rel(s.dir, rec.Path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return fmt.Errorf("%w: %s", domain.ErrResultRunNotFound, rec.Path)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrResultRunNotFound, rec.Path)
	}
	if err := os.RemoveAll(rec.Path); err != nil {
		return fmt.Errorf("remove run %s: %w", rec.ID, err)
	}
	return nil
}

func readSummary(runDir string) (*domain.Summary, error) {
	data, err := os.ReadFile(filepath.Join(runDir, SummaryJSON))
	if err != nil {
		return nil, err
	}
	var sum domain.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, err
	}
	return &sum, nil
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}
