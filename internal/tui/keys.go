package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/pders01/imgfind/internal/config"
)

type keyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Help    key.Binding
	History key.Binding
	Delete  key.Binding
	Open    key.Binding
	Retry   key.Binding
	Clear   key.Binding
	Sort    key.Binding
	Window  key.Binding
	Focus   key.Binding
	Select  key.Binding
}

func newKeyMap(cfg config.KeyConfig) keyMap {
	mod := cfg.Modifier + "+"
	b := cfg.Bindings
	return keyMap{
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", b.Quit), key.WithHelp(b.Quit, "quit")),
		Back:    key.NewBinding(key.WithKeys(b.Back), key.WithHelp(b.Back, "back")),
		Help:    key.NewBinding(key.WithKeys(b.Help), key.WithHelp(b.Help, "help")),
		History: key.NewBinding(key.WithKeys(mod+b.History), key.WithHelp(mod+b.History, "history")),
		Delete:  key.NewBinding(key.WithKeys(mod+b.Delete), key.WithHelp(mod+b.Delete, "delete")),
		Open:    key.NewBinding(key.WithKeys(mod+b.Open), key.WithHelp(mod+b.Open, "open image")),
		Retry:   key.NewBinding(key.WithKeys(mod+b.Retry), key.WithHelp(mod+b.Retry, "retry")),
		Clear:   key.NewBinding(key.WithKeys(mod+b.Clear), key.WithHelp(mod+b.Clear, "clear")),
		Sort:    key.NewBinding(key.WithKeys(mod+b.Sort), key.WithHelp(mod+b.Sort, "sort")),
		Window:  key.NewBinding(key.WithKeys(mod+b.Window), key.WithHelp(mod+b.Window, "window")),
		Focus:   key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "complete/focus")),
		Select:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	}
}

// keyHelp adapts keyMap to help.KeyMap for the current view.
type keyHelp struct {
	keys keyMap
	view View
}

func (h keyHelp) ShortHelp() []key.Binding {
	k := h.keys
	switch h.view {
	case ViewDetail:
		return []key.Binding{k.Open, k.Back}
	case ViewHistory:
		return []key.Binding{k.Select, k.Delete, k.Back}
	default:
		return []key.Binding{k.Select, k.Focus, k.History, k.Retry, k.Clear, k.Help}
	}
}

func (h keyHelp) FullHelp() [][]key.Binding {
	k := h.keys
	return [][]key.Binding{
		{k.Select, k.Focus, k.Back, k.Quit},
		{k.History, k.Delete, k.Open},
		{k.Retry, k.Clear, k.Sort, k.Window},
	}
}
