// Package app provides the dependency injection container for the application.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/infra/config"
	"github.com/runoshun/par/internal/infra/executor"
	"github.com/runoshun/par/internal/infra/git"
	"github.com/runoshun/par/internal/infra/logging"
	"github.com/runoshun/par/internal/infra/promptstore"
	"github.com/runoshun/par/internal/infra/resultstore"
	"github.com/runoshun/par/internal/infra/tmux"
	"github.com/runoshun/par/internal/infra/worktree"
	"github.com/runoshun/par/internal/metrics"
	"github.com/runoshun/par/internal/usecase"
)

// Options controls how the container is built.
type Options struct {
	Stderr     io.Writer // Destination of the slog handler; defaults to os.Stderr
	ConfigPath string    // Explicit config file (--config)
	Debug      bool      // Force debug logging (--debug)
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Prompts       domain.PromptStore
	Discovery     domain.WorktreeDiscoverer
	Clock         domain.Clock
	ConfigLoader  domain.ConfigLoader
	ConfigManager domain.ConfigManager

	// Pointer fields
	Config   *domain.Config
	Logger   *slog.Logger
	JobLog   *logging.Logger
	registry *prometheus.Registry
	sink     metrics.Sink
}

// ExecutorOptions selects and tunes the job executor for one run.
type ExecutorOptions struct {
	Stream   io.Writer // Live output destination; nil keeps output buffered
	Terminal bool      // Force the tmux backend
}

// New loads the configuration and wires every dependency.
func New(opts Options) (*Container, error) {
	configLoader := config.NewLoader(opts.ConfigPath)
	cfg, err := configLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg, configLoader, config.NewManager(), opts)
}

// NewWithConfig wires the container around an already loaded configuration.
func NewWithConfig(cfg *domain.Config, loader domain.ConfigLoader, manager domain.ConfigManager, opts Options) (*Container, error) {
	level := logging.ParseLevel(cfg.Log.Level)
	if opts.Debug {
		level = slog.LevelDebug
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: level,
	}))

	inspector, err := git.NewInspector(cfg.Worktrees.GitBackend)
	if err != nil {
		return nil, err
	}
	discovery := worktree.NewDiscovery(
		worktree.OptionsFromConfig(cfg.Worktrees),
		inspector,
		worktree.NewClient(),
		logger,
	)

	clock := domain.RealClock{}
	return &Container{
		Prompts:       promptstore.New(domain.ExpandPath(cfg.Prompts.StorageDir), clock),
		Discovery:     discovery,
		Clock:         clock,
		ConfigLoader:  loader,
		ConfigManager: manager,
		Config:        cfg,
		Logger:        logger,
		JobLog:        logging.New(domain.ExpandPath(cfg.Log.Dir), level),
		sink:          metrics.NoopSink{},
	}, nil
}

// Close releases open log files.
func (c *Container) Close() error {
	if c.JobLog == nil {
		return nil
	}
	return c.JobLog.Close()
}

// Executor builds the job executor for one run.
func (c *Container) Executor(opts ExecutorOptions) (domain.JobExecutor, error) {
	backend := c.Config.Executor.Backend
	if opts.Terminal {
		backend = domain.ExecutorTmux
	}

	switch backend {
	case domain.ExecutorDirect, "":
		execOpts := executor.OptionsFromConfig(c.Config)
		execOpts.Stream = opts.Stream
		return executor.NewDirectExecutor(execOpts, c.Clock, c.Logger), nil
	case domain.ExecutorTmux:
		if !tmux.Available() {
			return nil, errors.New("terminal backend: tmux not found in PATH")
		}
		return tmux.NewTerminalExecutor(tmux.NewClient(c.TerminalSocket()), tmux.ExecutorOptions{
			Binary:   c.Config.Agent.Binary,
			Args:     c.Config.Agent.Args,
			Env:      c.Config.Agent.Environ(),
			KeepOpen: c.Config.Terminal.KeepOpen,
		}, c.Clock, c.Logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownExecutor, backend)
	}
}

// TerminalSocket returns the tmux socket used by the terminal backend.
func (c *Container) TerminalSocket() string {
	socket := c.Config.Terminal.Socket
	if socket == "" {
		socket = domain.TmuxSocketPath(c.Config.Log.Dir)
	}
	return domain.ExpandPath(socket)
}

// EnableMetrics switches the metrics sink to Prometheus collectors that
// WriteMetrics can export.
func (c *Container) EnableMetrics() {
	if c.registry != nil {
		return
	}
	c.registry = prometheus.NewRegistry()
	c.sink = metrics.NewPrometheusSink(c.registry, c.Logger)
}

// WriteMetrics exports collected metrics in the textfile format.
// It does nothing unless EnableMetrics was called.
func (c *Container) WriteMetrics(path string) error {
	if c.registry == nil || path == "" {
		return nil
	}
	return metrics.WriteTextfile(domain.ExpandPath(path), c.registry)
}

func (c *Container) resultStore(dir string) domain.ResultStore {
	return resultstore.New(domain.ExpandPath(dir), c.Clock)
}

// UseCase factory methods

// RunPromptUseCase returns a new RunPrompt use case running jobs with exec.
func (c *Container) RunPromptUseCase(exec domain.JobExecutor) *usecase.RunPrompt {
	return usecase.NewRunPrompt(c.Prompts, c.Discovery, exec, c.resultStore, c.sink, c.JobLog, c.Clock, c.Logger)
}

// ListPromptsUseCase returns a new ListPrompts use case.
func (c *Container) ListPromptsUseCase() *usecase.ListPrompts {
	return usecase.NewListPrompts(c.Prompts)
}

// ListWorktreesUseCase returns a new ListWorktrees use case.
func (c *Container) ListWorktreesUseCase() *usecase.ListWorktrees {
	return usecase.NewListWorktrees(c.Discovery)
}

// AddPromptUseCase returns a new AddPrompt use case.
func (c *Container) AddPromptUseCase() *usecase.AddPrompt {
	return usecase.NewAddPrompt(c.Prompts)
}

// ShowPromptUseCase returns a new ShowPrompt use case.
func (c *Container) ShowPromptUseCase() *usecase.ShowPrompt {
	return usecase.NewShowPrompt(c.Prompts)
}

// DeletePromptUseCase returns a new DeletePrompt use case.
func (c *Container) DeletePromptUseCase() *usecase.DeletePrompt {
	return usecase.NewDeletePrompt(c.Prompts)
}

// CleanResultsUseCase returns a new CleanResults use case for the configured
// output directory and job logs.
func (c *Container) CleanResultsUseCase() *usecase.CleanResults {
	var store domain.ResultStore
	if dir := c.Config.Defaults.OutputDir; dir != "" {
		store = c.resultStore(dir)
	}
	var logs domain.JobLogPruner
	if c.JobLog != nil {
		logs = c.JobLog
	}
	return usecase.NewCleanResults(store, logs, c.Clock)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.ConfigManager, c.ConfigLoader)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.ConfigManager)
}
