package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/runoshun/par/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	err := run(context.Background(), []string{"--version"})

	require.NoError(t, err)
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"bogus"})

	require.Error(t, err)
	assert.Equal(t, domain.ExitFatal, domain.ExitCode(err))
}

func TestRun_InvalidConfig(t *testing.T) {
	// Setup
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "par.toml")
	require.NoError(t, os.WriteFile(path, []byte("[defaults]\njobs = \"many\"\n"), 0o600))

	// Execute
	err := run(context.Background(), []string{"--config", path, "list", "prompts"})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
	assert.Equal(t, domain.ExitFatal, domain.ExitCode(err))
}
