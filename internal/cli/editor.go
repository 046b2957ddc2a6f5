package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"
)

// getEditor returns the user's preferred editor from environment variables.
// It checks EDITOR, then VISUAL, and defaults to vim if neither is set.
func getEditor() string {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vim"
	}
	return editor
}

// openEditor opens the specified file in the user's editor.
// The editor value may carry arguments ("code --wait"), so it runs through sh.
func openEditor(filePath string, stdin io.Reader, stdout, stderr io.Writer) error {
	editor := getEditor()

	// #nosec G204 - the editor comes from the user's own environment
	cmd := exec.Command("sh", "-c", editor+` "$@"`, editor, filePath)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor %s: %w", editor, err)
	}

	return nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// promptEditorTemplate is the initial content of the editor buffer.
// Lines that are a single HTML comment are dropped when the file is read back.
func promptEditorTemplate(name, existing string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<!-- Prompt: %s -->\n", name)
	sb.WriteString("<!-- Write the prompt below. Comment lines like these are removed. -->\n")
	sb.WriteString("<!-- {{name}} declares a variable; set it with: par run " + name + " --var name=value -->\n")
	sb.WriteString("<!-- Built-ins: {{worktree.name}} {{worktree.branch}} {{worktree.path}} -->\n")
	sb.WriteString("<!-- Save an empty prompt to abort. -->\n\n")
	sb.WriteString(existing)
	return sb.String()
}

// stripEditorComments drops whole-line HTML comments and surrounding blank lines.
func stripEditorComments(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "<!--") && strings.HasSuffix(trimmed, "-->") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// editPrompt writes the template to a temporary markdown file, opens the
// editor on it and returns the content without hint comments.
func editPrompt(name, existing string, stdin io.Reader, stdout, stderr io.Writer) (string, error) {
	f, err := os.CreateTemp("", "par-prompt-*.md")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	path := f.Name()
	defer func() { _ = os.Remove(path) }()

	_, writeErr := f.WriteString(promptEditorTemplate(name, existing))
	if err := f.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		return "", fmt.Errorf("write temporary file: %w", writeErr)
	}

	if err := openEditor(path, stdin, stdout, stderr); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read edited prompt: %w", err)
	}
	return stripEditorComments(string(data)), nil
}
