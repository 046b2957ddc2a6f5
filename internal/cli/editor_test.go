package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/runoshun/par/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEditor installs a shell script as $EDITOR. The script receives the
// file to edit as $1.
func stubEditor(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "editor.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	t.Setenv("EDITOR", path)
}

func TestGetEditor(t *testing.T) {
	tests := []struct {
		name   string
		editor string
		visual string
		want   string
	}{
		{"editor wins", "nano", "code --wait", "nano"},
		{"visual fallback", "", "code --wait", "code --wait"},
		{"default", "", "", "vim"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EDITOR", tt.editor)
			t.Setenv("VISUAL", tt.visual)

			assert.Equal(t, tt.want, getEditor())
		})
	}
}

func TestStripEditorComments(t *testing.T) {
	in := promptEditorTemplate("review", "") + "Review {{area}}\n  <!-- note -->\nTwo <!-- inline --> stays\n\n"

	got := stripEditorComments(in)

	assert.Equal(t, "Review {{area}}\nTwo <!-- inline --> stays", got)
}

func TestAddCommand_Editor(t *testing.T) {
	// Setup
	te := newTestEnv(t)
	captured := filepath.Join(t.TempDir(), "initial.md")
	stubEditor(t, `cp "$1" '`+captured+`'; printf 'Review {{area}} in {{worktree.name}}\n' >> "$1"`)

	// Execute
	stdout, _, err := te.executeWithInput(strings.NewReader(""), "add", "review", "--edit")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, stdout, `Added prompt "review"`)
	p, err := te.c.Prompts.Load("review")
	require.NoError(t, err)
	assert.Equal(t, "Review {{area}} in {{worktree.name}}", p.Template)
	assert.Equal(t, []domain.Variable{{Name: "area", Required: true}}, p.Variables)

	initial, err := os.ReadFile(captured)
	require.NoError(t, err)
	assert.Contains(t, string(initial), "<!-- Prompt: review -->")
	assert.Contains(t, string(initial), "{{worktree.branch}}")
}

func TestAddCommand_EditorForceStartsFromStoredPrompt(t *testing.T) {
	// Setup
	te := newTestEnv(t)
	te.addPrompt(t, reviewPrompt())
	captured := filepath.Join(t.TempDir(), "initial.md")
	stubEditor(t, `cp "$1" '`+captured+`'; printf 'Review {{area}} twice\n' > "$1"`)

	// Execute
	stdout, _, err := te.executeWithInput(strings.NewReader(""), "add", "review", "--edit", "--force")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, stdout, `Replaced prompt "review"`)
	initial, err := os.ReadFile(captured)
	require.NoError(t, err)
	assert.Contains(t, string(initial), "Review {{area}} on {{worktree.branch}}")

	p, err := te.c.Prompts.Load("review")
	require.NoError(t, err)
	assert.Equal(t, "Review {{area}} twice", p.Template)
}

func TestAddCommand_EditorErrors(t *testing.T) {
	t.Run("untouched template is empty", func(t *testing.T) {
		te := newTestEnv(t)
		stubEditor(t, "exit 0")

		_, _, err := te.executeWithInput(strings.NewReader(""), "add", "review", "--edit")

		require.ErrorIs(t, err, domain.ErrEmptyPrompt)
	})

	t.Run("editor fails", func(t *testing.T) {
		te := newTestEnv(t)
		stubEditor(t, "exit 1")

		_, _, err := te.executeWithInput(strings.NewReader(""), "add", "review", "--edit")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to run editor")
		exists, existsErr := te.c.Prompts.Exists("review")
		require.NoError(t, existsErr)
		assert.False(t, exists)
	})

	t.Run("file and edit are exclusive", func(t *testing.T) {
		te := newTestEnv(t)

		_, _, err := te.executeWithInput(strings.NewReader(""), "add", "review", "--edit", "--file", "x.md")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "none of the others can be")
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(strings.NewReader("x")))

	regular, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer func() { _ = regular.Close() }()
	assert.False(t, isTerminal(regular))
}
