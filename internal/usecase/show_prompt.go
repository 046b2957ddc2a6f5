package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/par/internal/domain"
)

// ShowPromptInput contains the parameters for showing a prompt.
type ShowPromptInput struct {
	Name string
}

// ShowPromptOutput contains the stored prompt.
type ShowPromptOutput struct {
	Prompt       *domain.PromptTemplate
	Placeholders []string // Placeholders found in the content, in order of appearance
}

// ShowPrompt is the use case for reading one stored prompt.
type ShowPrompt struct {
	prompts domain.PromptStore
}

// NewShowPrompt creates a new ShowPrompt use case.
func NewShowPrompt(prompts domain.PromptStore) *ShowPrompt {
	return &ShowPrompt{prompts: prompts}
}

// Execute loads the prompt.
func (uc *ShowPrompt) Execute(_ context.Context, in ShowPromptInput) (*ShowPromptOutput, error) {
	p, err := uc.prompts.Load(in.Name)
	if err != nil {
		return nil, fmt.Errorf("load prompt: %w", err)
	}
	return &ShowPromptOutput{
		Prompt:       p,
		Placeholders: domain.DetectPlaceholders(p.Template),
	}, nil
}
