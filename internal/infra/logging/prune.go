package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// Ensure Logger implements domain.JobLogPruner interface.
var _ domain.JobLogPruner = (*Logger)(nil)

// PruneJobLogs removes job log files last modified before the cutoff.
// Files held open by this logger are skipped. The global log is never touched.
func (l *Logger) PruneJobLogs(before time.Time, dryRun bool) ([]domain.LogFile, error) {
	if l.logDir == "" {
		return nil, nil
	}
	dir := domain.JobLogDir(l.logDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read job log directory: %w", err)
	}

	l.mu.Lock()
	open := make(map[string]bool, len(l.jobFiles))
	for _, f := range l.jobFiles {
		open[f.Name()] = true
	}
	l.mu.Unlock()

	var (
		removed []domain.LogFile
		errs    []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil || open[path] || !info.ModTime().Before(before) {
			continue
		}
		if !dryRun {
			if err := os.Remove(path); err != nil {
				errs = append(errs, fmt.Errorf("remove job log: %w", err))
				continue
			}
		}
		removed = append(removed, domain.LogFile{Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
	return removed, errors.Join(errs...)
}
