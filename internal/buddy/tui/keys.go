package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Enter   key.Binding
	Left    key.Binding
	Right   key.Binding
	Speak   key.Binding
	Retry   key.Binding
	New     key.Binding
	Improve key.Binding
	Copy    key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "next"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h", "up", "k"),
		key.WithHelp("←/h", "previous"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l", "down", "j", "tab"),
		key.WithHelp("→/l", "next choice"),
	),
	Speak: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "read aloud"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new idea"),
	),
	Improve: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "improve"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy prompt"),
	),
}
