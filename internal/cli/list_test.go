package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/runoshun/par/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCommand_NoPrompts(t *testing.T) {
	te := newTestEnv(t)

	stdout, _, err := te.execute("list", "prompts")

	require.NoError(t, err)
	assert.Contains(t, stdout, "No prompts stored")
}

func TestListCommand_Prompts(t *testing.T) {
	// Setup
	te := newTestEnv(t)
	te.addPrompt(t, reviewPrompt())
	te.addPrompt(t, &domain.PromptTemplate{
		Name:      "lint",
		Template:  "Fix lint in {{path}}",
		Variables: []domain.Variable{{Name: "path"}},
	})

	// Execute
	stdout, _, err := te.execute("list", "prompts")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Regexp(t, `review\s+area\s+\S.*Code review`, stdout)
	assert.Regexp(t, `lint\s+path\?`, stdout)
	assert.Less(t, strings.Index(stdout, "lint"), strings.Index(stdout, "review"), "sorted by name")
}

func TestListCommand_WorktreesHidesMainCheckouts(t *testing.T) {
	// Setup
	te := newTestEnv(t)
	te.addWorktree(t, "api", true)
	te.addWorktree(t, "repo", false)

	// Execute
	stdout, _, err := te.execute("list", "worktrees")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, stdout, "api")
	assert.NotContains(t, stdout, "feature-repo")
	assert.Contains(t, stdout, "(1 main checkouts hidden, use --all to show them)")
}

func TestListCommand_WorktreesAll(t *testing.T) {
	te := newTestEnv(t)
	te.addWorktree(t, "api", true)
	te.addWorktree(t, "repo", false)

	stdout, _, err := te.execute("list", "worktrees", "--all")

	require.NoError(t, err)
	assert.Regexp(t, `api\s+feature-api\s+clean\s+worktree`, stdout)
	assert.Regexp(t, `repo\s+feature-repo\s+clean\s+repo`, stdout)
	assert.NotContains(t, stdout, "hidden")
}

func TestListCommand_Both(t *testing.T) {
	te := newTestEnv(t)
	te.addWorktree(t, "api", true)
	te.addPrompt(t, reviewPrompt())

	stdout, _, err := te.execute("list")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Prompts:")
	assert.Contains(t, stdout, "Worktrees:")
	assert.Contains(t, stdout, "review")
	assert.Contains(t, stdout, "feature-api")
}

func TestListCommand_DiscoveryWarnings(t *testing.T) {
	te := newTestEnv(t)
	te.discovery.Warnings = []error{&domain.DiscoveryError{Root: "/missing", Err: errors.New("no such directory")}}

	stdout, stderr, err := te.execute("list", "worktrees")

	require.NoError(t, err)
	assert.Contains(t, stdout, "No worktrees found.")
	assert.Contains(t, stderr, "Warning: ")
	assert.Contains(t, stderr, "/missing")
}

func TestListCommand_InvalidArgument(t *testing.T) {
	te := newTestEnv(t)

	_, _, err := te.execute("list", "jobs")

	require.Error(t, err)
}

