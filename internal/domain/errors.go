package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors.
var (
	ErrPromptNotFound      = errors.New("prompt not found")
	ErrPromptExists        = errors.New("prompt already exists")
	ErrInvalidPromptName   = errors.New("invalid prompt name (use letters, digits, '-', '_' and '.')")
	ErrEmptyPrompt         = errors.New("prompt content cannot be empty")
	ErrNoWorktrees         = errors.New("no worktrees found")
	ErrJobTimeout          = errors.New("job timed out")
	ErrJobsFailed          = errors.New("one or more jobs failed")
	ErrRunCancelled        = errors.New("run cancelled")
	ErrInvalidAssignment   = errors.New("invalid variable assignment (expected key=value)")
	ErrUnknownExecutor     = errors.New("unknown executor backend")
	ErrUnknownGitBackend   = errors.New("unknown git backend")
	ErrInvalidConcurrency  = errors.New("jobs must be at least 1")
	ErrInvalidTimeout      = errors.New("timeout must be positive")
	ErrResultRunNotFound   = errors.New("result run not found")
	ErrUnsupportedFormat   = errors.New("unsupported report format")
	ErrOutputDirNotEnabled = errors.New("no output directory configured")
	ErrConfigExists        = errors.New("config file already exists")
	ErrUnknownVariable     = errors.New("variable does not appear in the prompt")
	ErrInvalidAge          = errors.New("invalid age (use e.g. 30d, 12h)")
)

// DiscoveryError reports a search root or candidate that could not be scanned.
// It is recoverable: discovery continues with the remaining roots.
type DiscoveryError struct {
	Err  error
	Root string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover worktrees in %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// MissingVariableError is returned when a prompt declares required variables
// that were neither supplied nor defaulted.
type MissingVariableError struct {
	Prompt string
	Names  []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("prompt %q is missing required variables: %s", e.Prompt, strings.Join(e.Names, ", "))
}

// LaunchError means the agent process could not be started at all.
type LaunchError struct {
	Err    error
	Binary string
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ExitError carries a process exit code from the CLI layer to main.
type ExitError struct {
	Err  error
	Code int
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exit codes returned by the par binary.
const (
	ExitOK          = 0
	ExitFatal       = 1
	ExitJobsFailed  = 2
	ExitInterrupted = 130
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, ErrRunCancelled):
		return ExitInterrupted
	case errors.Is(err, ErrJobsFailed):
		return ExitJobsFailed
	default:
		return ExitFatal
	}
}
