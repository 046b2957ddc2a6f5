// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/runoshun/par/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockPromptStore is a test double for domain.PromptStore.
// Fields are ordered to minimize memory padding.
type MockPromptStore struct {
	Prompts   map[string]*domain.PromptTemplate
	SaveErr   error
	LoadErr   error
	ListErr   error
	DeleteErr error
	SaveCalls int
}

// Ensure MockPromptStore implements domain.PromptStore.
var _ domain.PromptStore = (*MockPromptStore)(nil)

// NewMockPromptStore creates a new MockPromptStore holding prompts.
func NewMockPromptStore(prompts ...*domain.PromptTemplate) *MockPromptStore {
	m := &MockPromptStore{Prompts: make(map[string]*domain.PromptTemplate)}
	for _, p := range prompts {
		m.Prompts[p.Name] = p
	}
	return m
}

// Save stores a prompt.
func (m *MockPromptStore) Save(p *domain.PromptTemplate) error {
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Prompts[p.Name] = p
	return nil
}

// Load returns a prompt by name.
func (m *MockPromptStore) Load(name string) (*domain.PromptTemplate, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	p, ok := m.Prompts[name]
	if !ok {
		return nil, domain.ErrPromptNotFound
	}
	return p, nil
}

// List returns all prompts sorted by name.
func (m *MockPromptStore) List() ([]*domain.PromptTemplate, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]*domain.PromptTemplate, 0, len(m.Prompts))
	for _, p := range m.Prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a prompt.
func (m *MockPromptStore) Delete(name string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if _, ok := m.Prompts[name]; !ok {
		return domain.ErrPromptNotFound
	}
	delete(m.Prompts, name)
	return nil
}

// Exists reports whether a prompt is stored.
func (m *MockPromptStore) Exists(name string) (bool, error) {
	_, ok := m.Prompts[name]
	return ok, nil
}

// MockDiscoverer is a test double for domain.WorktreeDiscoverer.
type MockDiscoverer struct {
	Err          error
	Worktrees    []*domain.Worktree
	Warnings     []error
	FromDirsArgs []string
	DiscoverCall bool
}

// Ensure MockDiscoverer implements domain.WorktreeDiscoverer.
var _ domain.WorktreeDiscoverer = (*MockDiscoverer)(nil)

// Discover returns the configured worktrees.
func (m *MockDiscoverer) Discover(_ context.Context) (*domain.DiscoveryResult, error) {
	m.DiscoverCall = true
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.DiscoveryResult{Worktrees: m.Worktrees, Warnings: m.Warnings}, nil
}

// FromDirs records dirs and returns the configured worktrees.
func (m *MockDiscoverer) FromDirs(_ context.Context, dirs []string) (*domain.DiscoveryResult, error) {
	m.FromDirsArgs = dirs
	if m.Err != nil {
		return nil, m.Err
	}
	return &domain.DiscoveryResult{Worktrees: m.Worktrees, Warnings: m.Warnings}, nil
}

// MockExecutor is a test double for domain.JobExecutor.
// Statuses maps worktree names to the outcome to report; others succeed.
type MockExecutor struct {
	Statuses map[string]domain.JobStatus
	Prompts  map[string]string // Prompt received, by worktree name
	Duration time.Duration     // Reported duration of every job
	mu       sync.Mutex
}

// Ensure MockExecutor implements domain.JobExecutor.
var _ domain.JobExecutor = (*MockExecutor)(nil)

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Statuses: make(map[string]domain.JobStatus),
		Prompts:  make(map[string]string),
		Duration: time.Second,
	}
}

// Execute records the job and returns a result. A cancelled context yields
// a cancellation failure.
func (m *MockExecutor) Execute(ctx context.Context, job *domain.Job) domain.JobResult {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	res := domain.NewJobResult(job, start)

	m.mu.Lock()
	m.Prompts[res.WorktreeName] = job.Prompt
	status, ok := m.Statuses[res.WorktreeName]
	m.mu.Unlock()

	switch {
	case ctx.Err() != nil:
		res.Status = domain.StatusFailed
		res.ExitCode = -1
		res.ErrorMessage = "cancelled: " + ctx.Err().Error()
	case !ok || status == domain.StatusSuccess:
		res.Status = domain.StatusSuccess
		res.Output = "done\n"
	case status == domain.StatusTimeout:
		res.Status = domain.StatusTimeout
		res.ExitCode = -1
		res.ErrorMessage = domain.ErrJobTimeout.Error()
	default:
		res.Status = domain.StatusFailed
		res.ExitCode = 1
		res.ErrorMessage = "exit status 1"
	}
	res.Finish(start.Add(m.Duration))
	return res
}

// ReceivedPrompt returns the prompt delivered to a worktree.
func (m *MockExecutor) ReceivedPrompt(worktree string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Prompts[worktree]
}

// MockResultStore is a test double for domain.ResultStore.
type MockResultStore struct {
	SaveErr   error
	RemoveErr error
	Saved     *domain.Summary
	Records   []domain.RunRecord
	Removed   []domain.RunRecord
}

// Ensure MockResultStore implements domain.ResultStore.
var _ domain.ResultStore = (*MockResultStore)(nil)

// Save records the summary.
func (m *MockResultStore) Save(s *domain.Summary) (string, error) {
	if m.SaveErr != nil {
		return "", m.SaveErr
	}
	m.Saved = s
	return "/results/run", nil
}

// List returns the configured records.
func (m *MockResultStore) List() ([]domain.RunRecord, error) {
	return m.Records, nil
}

// Remove records the removal.
func (m *MockResultStore) Remove(rec domain.RunRecord) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.Removed = append(m.Removed, rec)
	return nil
}

// MockJobLogPruner is a test double for domain.JobLogPruner.
type MockJobLogPruner struct {
	Err    error
	Before time.Time
	Logs   []domain.LogFile
	DryRun bool
	Called bool
}

// Ensure MockJobLogPruner implements domain.JobLogPruner.
var _ domain.JobLogPruner = (*MockJobLogPruner)(nil)

// PruneJobLogs records the call and returns the configured logs.
func (m *MockJobLogPruner) PruneJobLogs(before time.Time, dryRun bool) ([]domain.LogFile, error) {
	m.Called = true
	m.Before = before
	m.DryRun = dryRun
	return m.Logs, m.Err
}

// MockConfigLoader is a test double for domain.ConfigLoader.
type MockConfigLoader struct {
	Config  *domain.Config
	LoadErr error
	Path    string
}

// Ensure MockConfigLoader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*MockConfigLoader)(nil)

// NewMockConfigLoader creates a new MockConfigLoader returning the defaults.
func NewMockConfigLoader() *MockConfigLoader {
	return &MockConfigLoader{Config: domain.NewDefaultConfig()}
}

// Load returns the configured config.
func (m *MockConfigLoader) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Config, nil
}

// GlobalPath returns the configured path.
func (m *MockConfigLoader) GlobalPath() string {
	return m.Path
}

// MockConfigManager is a test double for domain.ConfigManager.
type MockConfigManager struct {
	InitErr          error
	GlobalConfigInfo domain.ConfigInfo
	InitCalled       bool
	InitForce        bool
}

// Ensure MockConfigManager implements domain.ConfigManager.
var _ domain.ConfigManager = (*MockConfigManager)(nil)

// NewMockConfigManager creates a new MockConfigManager.
func NewMockConfigManager() *MockConfigManager {
	return &MockConfigManager{}
}

// GetGlobalConfigInfo returns the configured info.
func (m *MockConfigManager) GetGlobalConfigInfo() domain.ConfigInfo {
	return m.GlobalConfigInfo
}

// InitGlobalConfig records the call.
func (m *MockConfigManager) InitGlobalConfig(force bool) (string, error) {
	m.InitCalled = true
	m.InitForce = force
	if m.InitErr != nil {
		return m.GlobalConfigInfo.Path, m.InitErr
	}
	return m.GlobalConfigInfo.Path, nil
}

// MockLogger is a test double for domain.Logger that records lines.
type MockLogger struct {
	Lines []string
	mu    sync.Mutex
}

// Ensure MockLogger implements domain.Logger.
var _ domain.Logger = (*MockLogger)(nil)

func (m *MockLogger) record(level, jobID, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lines = append(m.Lines, level+" "+jobID+" "+category+" "+msg)
}

// Info records an info line.
func (m *MockLogger) Info(jobID, category, msg string) { m.record("INFO", jobID, category, msg) }

// Debug records a debug line.
func (m *MockLogger) Debug(jobID, category, msg string) { m.record("DEBUG", jobID, category, msg) }

// Warn records a warning line.
func (m *MockLogger) Warn(jobID, category, msg string) { m.record("WARN", jobID, category, msg) }

// Error records an error line.
func (m *MockLogger) Error(jobID, category, msg string) { m.record("ERROR", jobID, category, msg) }
