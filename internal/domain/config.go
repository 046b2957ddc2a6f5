package domain

import (
	_ "embed"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// ConfigTemplate returns the commented default configuration file.
func ConfigTemplate() string {
	return configTemplateContent
}

// Config represents the application configuration.
// It is built once at startup and passed explicitly to every component.
type Config struct {
	Warnings  []string        `toml:"-"`
	Agent     AgentConfig     `toml:"agent"`
	Worktrees WorktreesConfig `toml:"worktrees"`
	Defaults  DefaultsConfig  `toml:"defaults"`
	Terminal  TerminalConfig  `toml:"terminal"`
	Prompts   PromptsConfig   `toml:"prompts"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Executor  ExecutorConfig  `toml:"executor"`
}

// DefaultsConfig holds run defaults from the [defaults] section.
type DefaultsConfig struct {
	OutputDir         string        `toml:"output_dir"`
	Timeout           time.Duration `toml:"timeout"`
	Jobs              int           `toml:"jobs"`
	ContinueOnFailure bool          `toml:"continue_on_failure"`
	FailFast          bool          `toml:"fail_fast"`
	Stream            bool          `toml:"stream"`
}

// AgentConfig describes the CLI agent launched for every job.
type AgentConfig struct {
	Env    map[string]string `toml:"env"` // Extra environment for the agent process
	Binary string            `toml:"binary"`
	Args   []string          `toml:"args"`
}

// Environ returns Env as KEY=VALUE pairs sorted by key.
func (a AgentConfig) Environ() []string {
	if len(a.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(a.Env))
	for _, k := range slices.Sorted(maps.Keys(a.Env)) {
		out = append(out, k+"="+a.Env[k])
	}
	return out
}

// Executor backends.
const (
	ExecutorDirect = "direct"
	ExecutorTmux   = "tmux"
)

// ExecutorConfig holds settings from the [executor] section.
type ExecutorConfig struct {
	Backend     string        `toml:"backend"`
	OutputLimit int64         `toml:"output_limit"`
	KillGrace   time.Duration `toml:"kill_grace"`
}

// TerminalConfig holds settings for the tmux-backed executor.
type TerminalConfig struct {
	Socket   string `toml:"socket"`
	KeepOpen bool   `toml:"keep_open"`
}

// Git inspection backends.
const (
	GitBackendGoGit = "go-git"
	GitBackendCLI   = "cli"
)

// WorktreesConfig controls discovery.
type WorktreesConfig struct {
	GitBackend      string   `toml:"git_backend"`
	SearchPaths     []string `toml:"search_paths"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	MaxDepth        int      `toml:"max_depth"`
	IncludeLinked   bool     `toml:"include_linked"`
}

// PromptsConfig holds settings from the [prompts] section.
type PromptsConfig struct {
	StorageDir string `toml:"storage_dir"`
}

// LogConfig holds settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// MetricsConfig holds settings from the [metrics] section.
type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

// Default configuration values.
const (
	DefaultJobs        = 3
	DefaultTimeout     = 30 * time.Minute
	DefaultOutputLimit = 10 << 20
	DefaultKillGrace   = 5 * time.Second
	DefaultMaxDepth    = 4
	DefaultAgentBinary = "claude"
	DefaultLogLevel    = "info"
)

// Directory and file names for par.
const (
	AppDirName     = "par"         // Directory name under XDG base dirs
	ConfigFileName = "config.toml" // Config file name
	GlobalLogName  = "par.log"     // Global log file name
)

// NewDefaultConfig returns a Config with default values.
// Paths still contain "~" and are expanded with ExpandPath at use.
func NewDefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{
			Jobs:      DefaultJobs,
			Timeout:   DefaultTimeout,
			OutputDir: "~/.local/share/par/results",
		},
		Agent: AgentConfig{
			Binary: DefaultAgentBinary,
			Args:   []string{"--print", "--dangerously-skip-permissions"},
		},
		Executor: ExecutorConfig{
			Backend:     ExecutorDirect,
			OutputLimit: DefaultOutputLimit,
			KillGrace:   DefaultKillGrace,
		},
		Worktrees: WorktreesConfig{
			SearchPaths:     []string{"~/projects", "~/work"},
			ExcludePatterns: []string{"*/node_modules/*", "*/.git/*", "*/target/*"},
			MaxDepth:        DefaultMaxDepth,
			IncludeLinked:   true,
			GitBackend:      GitBackendGoGit,
		},
		Prompts: PromptsConfig{
			StorageDir: "~/.local/share/par/prompts",
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
			Dir:   "~/.local/state/par/logs",
		},
	}
}

// ConfigInfo describes a config file on disk.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// GlobalConfigDir returns the par config directory under configHome
// (typically XDG_CONFIG_HOME or ~/.config, resolved by caller).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, AppDirName)
}

// GlobalConfigPath returns the global config path under configHome.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// ParseAge parses an age such as "30d", "12h" or "90m". A bare number is
// read as days.
func ParseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAge)
	}
	days := strings.TrimSuffix(s, "d")
	if n, err := strconv.Atoi(days); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidAge, s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAge, s)
	}
	return d, nil
}
