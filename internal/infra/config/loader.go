// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/runoshun/par/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	explicitPath  string // Path given with --config (optional)
	globalConfDir string // Path to global config directory (e.g., ~/.config/par)
}

// NewLoader creates a new Loader.
// explicitPath may be empty; when set, the file must exist.
func NewLoader(explicitPath string) *Loader {
	return &Loader{
		explicitPath:  explicitPath,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(explicitPath, globalConfDir string) *Loader {
	return &Loader{
		explicitPath:  explicitPath,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// GlobalPath returns the path of the global config file.
func (l *Loader) GlobalPath() string {
	if l.globalConfDir == "" {
		return ""
	}
	return filepath.Join(l.globalConfDir, domain.ConfigFileName)
}

// Load returns the merged configuration.
// Merge order: default <- global <- explicit (later takes precedence).
func (l *Loader) Load() (*domain.Config, error) {
	cfg := domain.NewDefaultConfig()

	if path := l.GlobalPath(); path != "" {
		if err := l.applyFile(cfg, path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if l.explicitPath != "" {
		if err := l.applyFile(cfg, l.explicitPath); err != nil {
			return nil, err
		}
	}

	sort.Strings(cfg.Warnings)
	return cfg, nil
}

// applyFile reads one TOML file and applies the keys it sets onto cfg.
func (l *Loader) applyFile(cfg *domain.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if err := applyRaw(cfg, raw); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	return nil
}

// applyRaw applies the keys present in raw onto cfg. Keys that are absent
// keep their current value, so false and empty values can override.
// Unknown sections and keys become warnings; values of the wrong type are errors.
func applyRaw(cfg *domain.Config, raw map[string]any) error {
	var errs []error
	set := func(section, key string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("[%s].%s: %w", section, key, err))
		}
	}

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown key: %s", section))
			continue
		}
		if !isKnownSection(section) {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown section: %s", section))
			continue
		}

		for k, v := range m {
			var err error
			switch section + "." + k {
			case "defaults.jobs":
				cfg.Defaults.Jobs, err = asPositiveInt(v)
			case "defaults.timeout":
				cfg.Defaults.Timeout, err = asDuration(v)
			case "defaults.output_dir":
				cfg.Defaults.OutputDir, err = asString(v)
			case "defaults.continue_on_failure":
				cfg.Defaults.ContinueOnFailure, err = asBool(v)
			case "defaults.fail_fast":
				cfg.Defaults.FailFast, err = asBool(v)
			case "defaults.stream":
				cfg.Defaults.Stream, err = asBool(v)

			case "agent.binary":
				cfg.Agent.Binary, err = asString(v)
			case "agent.args":
				cfg.Agent.Args, err = asStringSlice(v)
			case "agent.env":
				cfg.Agent.Env, err = asStringMap(v)

			case "executor.backend":
				cfg.Executor.Backend, err = asOneOf(v, domain.ExecutorDirect, domain.ExecutorTmux)
			case "executor.output_limit":
				var n int
				n, err = asPositiveInt(v)
				cfg.Executor.OutputLimit = int64(n)
			case "executor.kill_grace":
				cfg.Executor.KillGrace, err = asDuration(v)

			case "terminal.socket":
				cfg.Terminal.Socket, err = asString(v)
			case "terminal.keep_open":
				cfg.Terminal.KeepOpen, err = asBool(v)

			case "worktrees.search_paths":
				cfg.Worktrees.SearchPaths, err = asStringSlice(v)
			case "worktrees.exclude_patterns":
				cfg.Worktrees.ExcludePatterns, err = asStringSlice(v)
			case "worktrees.max_depth":
				cfg.Worktrees.MaxDepth, err = asPositiveInt(v)
			case "worktrees.include_linked":
				cfg.Worktrees.IncludeLinked, err = asBool(v)
			case "worktrees.git_backend":
				cfg.Worktrees.GitBackend, err = asOneOf(v, domain.GitBackendGoGit, domain.GitBackendCLI)

			case "prompts.storage_dir":
				cfg.Prompts.StorageDir, err = asString(v)

			case "log.level":
				cfg.Log.Level, err = asOneOf(v, "debug", "info", "warn", "error")
			case "log.dir":
				cfg.Log.Dir, err = asString(v)

			case "metrics.textfile":
				cfg.Metrics.Textfile, err = asString(v)

			default:
				cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("unknown key in [%s]: %s", section, k))
			}
			set(section, k, err)
		}
	}

	return errors.Join(errs...)
}

func isKnownSection(section string) bool {
	switch section {
	case "defaults", "agent", "executor", "terminal", "worktrees", "prompts", "log", "metrics":
		return true
	default:
		return false
	}
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
	return b, nil
}

func asPositiveInt(v any) (int, error) {
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	return int(n), nil
}

// asDuration accepts a Go duration string ("30m") or an integer number of seconds.
func asDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, err
		}
		if parsed <= 0 {
			return 0, fmt.Errorf("must be positive, got %s", d)
		}
		return parsed, nil
	case int64:
		if d <= 0 {
			return 0, fmt.Errorf("must be positive, got %d", d)
		}
		return time.Duration(d) * time.Second, nil
	default:
		return 0, fmt.Errorf("expected duration string, got %T", v)
	}
}

func asStringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array of strings, got %T", v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected array of strings, found %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func asStringMap(v any) (map[string]string, error) {
	table, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected table of strings, got %T", v)
	}
	out := make(map[string]string, len(table))
	for k, item := range table {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string for %s, found %T", k, item)
		}
		out[k] = s
	}
	return out, nil
}

func asOneOf(v any, allowed ...string) (string, error) {
	s, err := asString(v)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", fmt.Errorf("must be one of %v, got %q", allowed, s)
}
