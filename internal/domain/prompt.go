package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Built-in per-job variables. They are bound for each worktree and never
// reported as missing.
const (
	VarWorktreeName   = "worktree.name"
	VarWorktreeBranch = "worktree.branch"
	VarWorktreePath   = "worktree.path"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*\}\}`)
	promptNamePattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]*$`)
)

// Variable declares a placeholder a prompt template accepts.
type Variable struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Required    bool   `yaml:"required"`
}

// PromptTemplate is a stored, named prompt with optional {{name}} placeholders.
type PromptTemplate struct {
	CreatedAt   time.Time  `yaml:"created_at"`
	ModifiedAt  time.Time  `yaml:"modified_at"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Template    string     `yaml:"content"`
	Variables   []Variable `yaml:"variables,omitempty"`
}

// IsTemplate reports whether the prompt contains any placeholder.
func (p *PromptTemplate) IsTemplate() bool {
	return len(p.Variables) > 0 || placeholderPattern.MatchString(p.Template)
}

// Resolve substitutes every declared and supplied variable.
// Supplied values win over defaults; declared optional variables without
// either resolve to "". Unknown placeholders and the worktree built-ins are
// left verbatim.
func (p *PromptTemplate) Resolve(values map[string]string) (string, error) {
	return p.render(values, nil)
}

// ResolveFor is Resolve with the worktree built-ins bound to wt.
func (p *PromptTemplate) ResolveFor(values map[string]string, wt *Worktree) (string, error) {
	return p.render(values, wt)
}

func (p *PromptTemplate) render(values map[string]string, wt *Worktree) (string, error) {
	resolved := make(map[string]string, len(p.Variables)+len(values)+3)
	for k, v := range values {
		resolved[k] = v
	}

	var missing []string
	for _, v := range p.Variables {
		if isBuiltinVariable(v.Name) {
			continue
		}
		if _, ok := resolved[v.Name]; ok {
			continue
		}
		switch {
		case v.Default != "":
			resolved[v.Name] = v.Default
		case v.Required:
			missing = append(missing, v.Name)
		default:
			resolved[v.Name] = ""
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &MissingVariableError{Prompt: p.Name, Names: missing}
	}

	if wt != nil {
		resolved[VarWorktreeName] = wt.Name
		resolved[VarWorktreeBranch] = wt.Branch
		resolved[VarWorktreePath] = wt.Path
	}

	// Single pass so substituted values are never re-expanded.
	out := placeholderPattern.ReplaceAllStringFunc(p.Template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if val, ok := resolved[name]; ok {
			return val
		}
		return match
	})
	return out, nil
}

func isBuiltinVariable(name string) bool {
	return strings.HasPrefix(name, "worktree.")
}

// DetectPlaceholders returns the distinct placeholder names in text in order
// of first appearance. Worktree built-ins are skipped.
func DetectPlaceholders(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if seen[name] || isBuiltinVariable(name) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// ParseVariableAssignments parses "key=value" pairs. The value may itself
// contain '='. Later assignments of the same key win.
func ParseVariableAssignments(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAssignment, pair)
		}
		values[key] = value
	}
	return values, nil
}

// ValidatePromptName checks that name is usable as a prompt file name.
func ValidatePromptName(name string) error {
	if !promptNamePattern.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidPromptName, name)
	}
	return nil
}
