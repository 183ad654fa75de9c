package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// Text inputs take printable keys, so view switches use ctrl chords.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	enter      key.Binding
	back       key.Binding
	accept     key.Binding
	categories key.Binding
	upload     key.Binding
	parent     key.Binding
	create     key.Binding
	all        key.Binding
	next       key.Binding
	start      key.Binding
	dismiss    key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		down:       key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		accept:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "use suggestion")),
		categories: key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "categories")),
		upload:     key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "upload")),
		parent:     key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "up a level")),
		create:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "create")),
		all:        key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "all categories")),
		next:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		start:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "publish")),
		dismiss:    key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "dismiss")),
		quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.accept, k.categories, k.upload},
		{k.parent, k.create, k.all},
		{k.next, k.start, k.dismiss, k.quit},
	}
}
