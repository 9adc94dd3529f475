package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keymap struct {
	cancel key.Binding
}

func newKeymap() *keymap {
	return &keymap{
		cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d", "q"),
			key.WithHelp("ctrl+c", "cancel"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k *keymap) ShortHelp() []key.Binding {
	return []key.Binding{k.cancel}
}

// FullHelp implements help.KeyMap.
func (k *keymap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
