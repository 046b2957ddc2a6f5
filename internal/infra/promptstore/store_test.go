package promptstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *testutil.MockClock) {
	t.Helper()
	clock := &testutil.MockClock{NowTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(filepath.Join(t.TempDir(), "prompts"), clock), clock
}

func TestStore_SaveLoad(t *testing.T) {
	// Setup
	store, clock := newTestStore(t)
	p := &domain.PromptTemplate{
		Name:        "review",
		Description: "Code review",
		Template:    "Review {{file}} in {{worktree.name}}",
		Variables: []domain.Variable{
			{Name: "file", Description: "target file", Required: true},
			{Name: "style", Default: "terse"},
		},
	}

	// Execute
	require.NoError(t, store.Save(p))
	loaded, err := store.Load("review")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "review", loaded.Name)
	assert.Equal(t, "Code review", loaded.Description)
	assert.Equal(t, p.Template, loaded.Template)
	assert.Equal(t, p.Variables, loaded.Variables)
	assert.True(t, loaded.CreatedAt.Equal(clock.NowTime))
	assert.True(t, loaded.ModifiedAt.Equal(clock.NowTime))

	info, err := os.Stat(filepath.Join(store.Dir(), "review.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_SavePreservesCreatedAt(t *testing.T) {
	store, clock := newTestStore(t)
	created := clock.NowTime
	require.NoError(t, store.Save(&domain.PromptTemplate{Name: "fix", Template: "v1"}))

	clock.NowTime = created.Add(time.Hour)
	require.NoError(t, store.Save(&domain.PromptTemplate{Name: "fix", Template: "v2"}))

	loaded, err := store.Load("fix")
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.Template)
	assert.True(t, loaded.CreatedAt.Equal(created))
	assert.True(t, loaded.ModifiedAt.Equal(created.Add(time.Hour)))
}

func TestStore_SaveRejectsInvalid(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Save(&domain.PromptTemplate{Name: "../evil", Template: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidPromptName)

	err = store.Save(&domain.PromptTemplate{Name: "blank", Template: "  \n"})
	assert.ErrorIs(t, err, domain.ErrEmptyPrompt)
}

func TestStore_LoadNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Load("missing")
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestStore_List(t *testing.T) {
	// Setup
	store, _ := newTestStore(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, store.Save(&domain.PromptTemplate{Name: name, Template: "do " + name}))
	}
	// Unparseable and unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "broken.yaml"), []byte("content: [unclosed"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("hi"), 0o600))

	// Execute
	prompts, err := store.List()

	// Assert
	require.NoError(t, err)
	got := make([]string, 0, len(prompts))
	for _, p := range prompts {
		got = append(got, p.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, got)
}

func TestStore_ListEmptyDir(t *testing.T) {
	store, _ := newTestStore(t)

	prompts, err := store.List()

	require.NoError(t, err)
	assert.Empty(t, prompts)
}

func TestStore_DeleteAndExists(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Save(&domain.PromptTemplate{Name: "gone", Template: "x"}))

	ok, err := store.Exists("gone")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete("gone"))

	ok, err = store.Exists("gone")
	require.NoError(t, err)
	assert.False(t, ok)

	err = store.Delete("gone")
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestStore_LoadHandWrittenFile(t *testing.T) {
	// Setup: a prompt written by hand without timestamps.
	store, _ := newTestStore(t)
	require.NoError(t, os.MkdirAll(store.Dir(), 0o750))
	content := `name: something-else
content: |
  Update {{pkg}} to {{version}}
variables:
  - name: pkg
    required: true
  - name: version
    default: latest
`
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "bump.yaml"), []byte(content), 0o600))

	// Execute
	p, err := store.Load("bump")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "bump", p.Name, "file name wins over the name field")
	assert.Equal(t, "Update {{pkg}} to {{version}}\n", p.Template)
	require.Len(t, p.Variables, 2)
	assert.True(t, p.Variables[0].Required)
	assert.Equal(t, "latest", p.Variables[1].Default)
}
