package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/par/internal/domain"
)

// DeletePromptInput contains the parameters for deleting a prompt.
type DeletePromptInput struct {
	Name string
}

// DeletePromptOutput contains the result of deleting a prompt.
type DeletePromptOutput struct{}

// DeletePrompt is the use case for removing a stored prompt.
type DeletePrompt struct {
	prompts domain.PromptStore
}

// NewDeletePrompt creates a new DeletePrompt use case.
func NewDeletePrompt(prompts domain.PromptStore) *DeletePrompt {
	return &DeletePrompt{prompts: prompts}
}

// Execute deletes the prompt. ErrPromptNotFound is returned if it does not exist.
func (uc *DeletePrompt) Execute(_ context.Context, in DeletePromptInput) (*DeletePromptOutput, error) {
	if err := domain.ValidatePromptName(in.Name); err != nil {
		return nil, err
	}
	if err := uc.prompts.Delete(in.Name); err != nil {
		return nil, fmt.Errorf("delete prompt: %w", err)
	}
	return &DeletePromptOutput{}, nil
}
