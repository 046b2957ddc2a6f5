package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/par/internal/domain"
)

// ListPromptsInput contains the parameters for listing prompts.
type ListPromptsInput struct{}

// ListPromptsOutput contains the stored prompts sorted by name.
type ListPromptsOutput struct {
	Prompts []*domain.PromptTemplate
}

// ListPrompts is the use case for listing stored prompts.
type ListPrompts struct {
	prompts domain.PromptStore
}

// NewListPrompts creates a new ListPrompts use case.
func NewListPrompts(prompts domain.PromptStore) *ListPrompts {
	return &ListPrompts{prompts: prompts}
}

// Execute lists all prompts.
func (uc *ListPrompts) Execute(_ context.Context, _ ListPromptsInput) (*ListPromptsOutput, error) {
	prompts, err := uc.prompts.List()
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	return &ListPromptsOutput{Prompts: prompts}, nil
}
