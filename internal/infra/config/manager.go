package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/runoshun/par/internal/domain"
)

// Ensure Manager implements domain.ConfigManager.
var _ domain.ConfigManager = (*Manager)(nil)

// Manager manages configuration files.
type Manager struct {
	globalConfDir string // Path to global config directory (e.g., ~/.config/par)
}

// NewManager creates a new Manager.
func NewManager() *Manager {
	return &Manager{
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewManagerWithGlobalDir creates a new Manager with a custom global config directory.
// This is useful for testing.
func NewManagerWithGlobalDir(globalConfDir string) *Manager {
	return &Manager{
		globalConfDir: globalConfDir,
	}
}

// GetGlobalConfigInfo returns information about the global config file.
func (m *Manager) GetGlobalConfigInfo() domain.ConfigInfo {
	if m.globalConfDir == "" {
		return domain.ConfigInfo{}
	}
	path := filepath.Join(m.globalConfDir, domain.ConfigFileName)

	content, err := os.ReadFile(path)
	if err != nil {
		return domain.ConfigInfo{Path: path}
	}
	return domain.ConfigInfo{
		Path:    path,
		Content: string(content),
		Exists:  true,
	}
}

// InitGlobalConfig creates the global config file from the default template
// and returns its path. An existing file is only replaced when force is set.
func (m *Manager) InitGlobalConfig(force bool) (string, error) {
	if m.globalConfDir == "" {
		return "", errors.New("global config directory not available")
	}
	path := filepath.Join(m.globalConfDir, domain.ConfigFileName)

	if _, err := os.Stat(path); err == nil && !force {
		return path, domain.ErrConfigExists
	}

	if err := os.MkdirAll(m.globalConfDir, 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(domain.ConfigTemplate()), 0o600); err != nil {
		return "", err
	}
	return path, nil
}
