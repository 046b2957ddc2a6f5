// Package logging provides file-based logging for par.
// It outputs logs to both a global log file (<log dir>/par.log)
// and job-specific log files (<log dir>/jobs/<worktree>-<id8>.log).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger wraps slog levels with file-based output support.
// Fields are ordered to minimize memory padding.
type Logger struct {
	globalFile *os.File
	jobFiles   map[string]*os.File
	jobNames   map[string]string
	logDir     string
	mu         sync.Mutex
	level      slog.Level
}

// New creates a new Logger that writes to logDir.
// If logDir is empty, logging is disabled (returns a no-op logger).
func New(logDir string, level slog.Level) *Logger {
	return &Logger{
		logDir:   logDir,
		level:    level,
		jobFiles: make(map[string]*os.File),
		jobNames: make(map[string]string),
	}
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Track associates a job with its worktree name so the job log file is
// named after the worktree. Untracked jobs log under their ID only.
func (l *Logger) Track(jobID, worktreeName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobNames[jobID] = worktreeName
}

// JobLogPath returns the log file path of a tracked job.
func (l *Logger) JobLogPath(jobID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jobLogPathLocked(jobID)
}

func (l *Logger) jobLogPathLocked(jobID string) string {
	name, ok := l.jobNames[jobID]
	if !ok {
		name = "job"
	}
	return domain.JobLogPath(l.logDir, name, jobID)
}

// ensureGlobalFile opens or returns the global log file.
func (l *Logger) ensureGlobalFile() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.globalFile != nil {
		return l.globalFile, nil
	}

	if err := os.MkdirAll(l.logDir, 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	path := domain.GlobalLogPath(l.logDir)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open global log file: %w", err)
	}
	l.globalFile = f
	return f, nil
}

// ensureJobFile opens or returns the job log file.
func (l *Logger) ensureJobFile(jobID string) (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.jobFiles[jobID]; ok {
		return f, nil
	}

	path := l.jobLogPathLocked(jobID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create job logs directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Log file readable by owner and group
	if err != nil {
		return nil, fmt.Errorf("open job log file: %w", err)
	}
	l.jobFiles[jobID] = f
	return f, nil
}

// CloseJob closes the log file of one job. Later writes reopen it.
func (l *Logger) CloseJob(jobID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.jobFiles[jobID]; ok {
		_ = f.Close()
		delete(l.jobFiles, jobID)
	}
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.jobFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.jobFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry in the specified format.
// Format: [2025-12-30 09:32:51] [INFO] [job-1a2b3c4d] [category] message
func formatLog(t time.Time, level slog.Level, jobID, category, msg string) string {
	jobStr := "global"
	if jobID != "" {
		jobStr = "job-" + domain.ShortID(jobID)
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		levelToString(level),
		jobStr,
		category,
		msg,
	)
}

func levelToString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// log writes a log entry to appropriate files based on jobID.
// If jobID is empty, logs only to global log.
// Otherwise logs to both global and job-specific log.
func (l *Logger) log(level slog.Level, jobID, category, msg string) {
	if l.logDir == "" {
		return // Logging disabled
	}

	if level < l.level {
		return
	}

	entry := formatLog(time.Now(), level, jobID, category, msg)

	if gf, err := l.ensureGlobalFile(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}

	if jobID != "" {
		if jf, err := l.ensureJobFile(jobID); err == nil {
			_, _ = io.WriteString(jf, entry)
		}
	}
}

// Info logs an info message.
func (l *Logger) Info(jobID, category, msg string) {
	l.log(slog.LevelInfo, jobID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(jobID, category, msg string) {
	l.log(slog.LevelDebug, jobID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(jobID, category, msg string) {
	l.log(slog.LevelWarn, jobID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(jobID, category, msg string) {
	l.log(slog.LevelError, jobID, category, msg)
}
