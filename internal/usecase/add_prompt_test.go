package usecase_test

import (
	"context"
	"testing"

	"github.com/runoshun/par/internal/domain"
	"github.com/runoshun/par/internal/testutil"
	"github.com/runoshun/par/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPrompt_Execute(t *testing.T) {
	t.Run("declares placeholders automatically", func(t *testing.T) {
		// Setup
		store := testutil.NewMockPromptStore()
		uc := usecase.NewAddPrompt(store)

		// Execute
		out, err := uc.Execute(context.Background(), usecase.AddPromptInput{
			Name:        "refactor",
			Description: "Refactor a module",
			Content:     "  Refactor {{module}} using {{ style }} in {{worktree.name}}. Keep {{module}} tested.\n",
			Defaults:    map[string]string{"style": "idiomatic"},
			Optional:    []string{"style"},
		})

		// Assert
		require.NoError(t, err)
		assert.False(t, out.Replaced)
		saved := store.Prompts["refactor"]
		require.NotNil(t, saved)
		assert.Equal(t, "Refactor {{module}} using {{ style }} in {{worktree.name}}. Keep {{module}} tested.", saved.Template)
		assert.Equal(t, []domain.Variable{
			{Name: "module", Required: true},
			{Name: "style", Default: "idiomatic", Required: false},
		}, saved.Variables)
	})

	t.Run("plain prompt has no variables", func(t *testing.T) {
		store := testutil.NewMockPromptStore()

		out, err := usecase.NewAddPrompt(store).Execute(context.Background(), usecase.AddPromptInput{
			Name:    "lint",
			Content: "Fix all lint warnings.",
		})

		require.NoError(t, err)
		assert.Empty(t, out.Prompt.Variables)
	})

	t.Run("existing prompt requires force", func(t *testing.T) {
		store := testutil.NewMockPromptStore(&domain.PromptTemplate{Name: "lint", Template: "old"})
		uc := usecase.NewAddPrompt(store)

		_, err := uc.Execute(context.Background(), usecase.AddPromptInput{Name: "lint", Content: "new"})
		require.ErrorIs(t, err, domain.ErrPromptExists)
		assert.Equal(t, "old", store.Prompts["lint"].Template)

		out, err := uc.Execute(context.Background(), usecase.AddPromptInput{Name: "lint", Content: "new", Force: true})
		require.NoError(t, err)
		assert.True(t, out.Replaced)
		assert.Equal(t, "new", store.Prompts["lint"].Template)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		tests := []struct {
			wantErr error
			name    string
			in      usecase.AddPromptInput
		}{
			{domain.ErrInvalidPromptName, "bad name", usecase.AddPromptInput{Name: "../etc", Content: "x"}},
			{domain.ErrEmptyPrompt, "empty content", usecase.AddPromptInput{Name: "ok", Content: " \n\t"}},
			{domain.ErrUnknownVariable, "default for unknown variable", usecase.AddPromptInput{
				Name: "ok", Content: "Hi {{a}}", Defaults: map[string]string{"b": "x"},
			}},
			{domain.ErrUnknownVariable, "optional unknown variable", usecase.AddPromptInput{
				Name: "ok", Content: "Hi {{a}}", Optional: []string{"b"},
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := testutil.NewMockPromptStore()

				_, err := usecase.NewAddPrompt(store).Execute(context.Background(), tt.in)

				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, store.SaveCalls)
			})
		}
	})
}
