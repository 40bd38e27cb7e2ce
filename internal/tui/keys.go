package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the reviewer
type KeyMap struct {
	// Navigation
	Next key.Binding
	Prev key.Binding

	// Edits
	Flag     key.Binding
	Verify   key.Binding
	ZUp      key.Binding
	ZDown    key.Binding
	ZEntry   key.Binding
	Reset    key.Binding
	Accept   key.Binding
	Save     key.Binding
	Progress key.Binding

	Escape key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Next: key.NewBinding(
			key.WithKeys("right", "n"),
			key.WithHelp("→/n", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "p"),
			key.WithHelp("←/p", "previous"),
		),
		Flag: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5"),
			key.WithHelp("0-5", "flag"),
		),
		Verify: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "toggle verified"),
		),
		ZUp: key.NewBinding(
			key.WithKeys("up", "]"),
			key.WithHelp("↑/]", "z up"),
		),
		ZDown: key.NewBinding(
			key.WithKeys("down", "["),
			key.WithHelp("↓/[", "z down"),
		),
		ZEntry: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "enter z"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset z"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save and next"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save"),
		),
		Progress: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "save progress"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns a short help string
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Flag, k.Verify, k.Accept, k.Help, k.Quit}
}

// FullHelp returns the full help string
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Accept},
		{k.Flag, k.Verify, k.Reset},
		{k.ZUp, k.ZDown, k.ZEntry},
		{k.Save, k.Progress, k.Help, k.Quit},
	}
}
