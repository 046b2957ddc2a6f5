package progress

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the progress view.
type KeyMap struct {
	Cancel    key.Binding // Cancel the run, wait for running jobs
	ForceQuit key.Binding // Leave the view immediately
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "cancel run"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
