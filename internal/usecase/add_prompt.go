package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/runoshun/par/internal/domain"
)

// AddPromptInput contains the parameters for adding a prompt.
// Fields are ordered to minimize memory padding.
type AddPromptInput struct {
	Defaults    map[string]string // Default values by variable name
	Name        string
	Description string
	Content     string   // Prompt text; surrounding whitespace is trimmed
	Optional    []string // Variables that may stay unset
	Force       bool     // Replace an existing prompt
}

// AddPromptOutput contains the saved prompt.
type AddPromptOutput struct {
	Prompt   *domain.PromptTemplate
	Replaced bool
}

// AddPrompt is the use case for storing a prompt.
// Every placeholder in the content is declared as a variable automatically.
type AddPrompt struct {
	prompts domain.PromptStore
}

// NewAddPrompt creates a new AddPrompt use case.
func NewAddPrompt(prompts domain.PromptStore) *AddPrompt {
	return &AddPrompt{prompts: prompts}
}

// Execute validates and saves the prompt.
func (uc *AddPrompt) Execute(_ context.Context, in AddPromptInput) (*AddPromptOutput, error) {
	if err := domain.ValidatePromptName(in.Name); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ErrEmptyPrompt
	}

	exists, err := uc.prompts.Exists(in.Name)
	if err != nil {
		return nil, fmt.Errorf("check prompt: %w", err)
	}
	if exists && !in.Force {
		return nil, fmt.Errorf("%w: %s (use --force to replace)", domain.ErrPromptExists, in.Name)
	}

	names := domain.DetectPlaceholders(content)
	for key := range in.Defaults {
		if !slices.Contains(names, key) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownVariable, key)
		}
	}
	for _, key := range in.Optional {
		if !slices.Contains(names, key) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownVariable, key)
		}
	}

	vars := make([]domain.Variable, 0, len(names))
	for _, name := range names {
		def, hasDefault := in.Defaults[name]
		vars = append(vars, domain.Variable{
			Name:     name,
			Default:  def,
			Required: !hasDefault && !slices.Contains(in.Optional, name),
		})
	}

	p := &domain.PromptTemplate{
		Name:        in.Name,
		Description: in.Description,
		Template:    content,
		Variables:   vars,
	}
	if err := uc.prompts.Save(p); err != nil {
		return nil, fmt.Errorf("save prompt: %w", err)
	}
	return &AddPromptOutput{Prompt: p, Replaced: exists}, nil
}
