package usecase

import (
	"context"

	"github.com/runoshun/par/internal/domain"
)

// InitConfigInput contains the input for the InitConfig use case.
type InitConfigInput struct {
	Force bool // Overwrite an existing file
}

// InitConfigOutput contains the output of the InitConfig use case.
type InitConfigOutput struct {
	Path string // Path to the created config file
}

// InitConfig writes the commented default configuration file.
type InitConfig struct {
	configManager domain.ConfigManager
}

// NewInitConfig creates a new InitConfig use case.
func NewInitConfig(configManager domain.ConfigManager) *InitConfig {
	return &InitConfig{
		configManager: configManager,
	}
}

// Execute creates the global configuration file.
func (uc *InitConfig) Execute(_ context.Context, in InitConfigInput) (*InitConfigOutput, error) {
	path, err := uc.configManager.InitGlobalConfig(in.Force)
	if err != nil {
		return nil, err
	}
	return &InitConfigOutput{Path: path}, nil
}
