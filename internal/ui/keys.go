package ui

import (
	"strings"

	"myday/internal/config"

	"github.com/charmbracelet/bubbles/key"
)

// bind builds a binding from a comma-separated override, falling back to
// defaults when the override is empty or only commas.
func bind(override, helpKey, desc string, defaults ...string) key.Binding {
	keys := defaults
	if override != "" {
		var custom []string
		for _, k := range strings.Split(override, ",") {
			if k = strings.TrimSpace(k); k != "" {
				custom = append(custom, k)
			}
		}
		if len(custom) > 0 {
			keys = custom
		}
	}
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

func orEmpty(cfg *config.KeysConfig) *config.KeysConfig {
	if cfg == nil {
		return &config.KeysConfig{}
	}
	return cfg
}

// GlobalKeyMap holds the keys that work in every pane.
type GlobalKeyMap struct {
	Quit      key.Binding
	Help      key.Binding
	NextPane  key.Binding
	NextList  key.Binding
	PrevList  key.Binding
	Undo      key.Binding
	Redo      key.Binding
	Sync      key.Binding
	ShowDone  key.Binding
	Sort      key.Binding
	SearchAll key.Binding
}

// NewGlobalKeyMap applies the config overrides to the global keys.
func NewGlobalKeyMap(cfg *config.KeysConfig) GlobalKeyMap {
	cfg = orEmpty(cfg)
	return GlobalKeyMap{
		Quit:      bind(cfg.Quit, "q", "quit", "q", "ctrl+c"),
		Help:      bind(cfg.Help, "?", "help", "?"),
		NextPane:  bind("", "tab", "next pane", "tab"),
		NextList:  bind(cfg.NextList, "]", "next list", "]", "L"),
		PrevList:  bind(cfg.PrevList, "[", "previous list", "[", "H"),
		Undo:      bind(cfg.Undo, "u", "undo", "ctrl+z", "u"),
		Redo:      bind("", "ctrl+y", "redo", "ctrl+y"),
		Sync:      bind(cfg.Sync, "ctrl+r", "sync", "ctrl+r"),
		ShowDone:  bind("", "c", "show completed", "c"),
		Sort:      bind(cfg.Sort, "o", "cycle sort", "o"),
		SearchAll: bind("", "ctrl+g", "search all lists", "ctrl+g"),
	}
}

// NavigationKeyMap moves the cursor in a list pane.
type NavigationKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

func newNavigationKeyMap(cfg *config.KeysConfig) NavigationKeyMap {
	cfg = orEmpty(cfg)
	return NavigationKeyMap{
		Up:     bind(cfg.Up, "k/↑", "up", "k", "up"),
		Down:   bind(cfg.Down, "j/↓", "down", "j", "down"),
		Top:    bind(cfg.Top, "g", "top", "g"),
		Bottom: bind(cfg.Bottom, "G", "bottom", "G"),
	}
}

// InputKeyMap is used while the quick-add or search field is open.
type InputKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// NewInputKeyMap applies the config overrides to the input keys.
func NewInputKeyMap(cfg *config.KeysConfig) InputKeyMap {
	cfg = orEmpty(cfg)
	return InputKeyMap{
		Confirm: bind(cfg.Confirm, "enter", "confirm", "enter"),
		Cancel:  bind(cfg.Cancel, "esc", "cancel", "esc"),
	}
}

// TaskKeyMap holds the task pane keys.
type TaskKeyMap struct {
	Add       key.Binding
	Toggle    key.Binding
	Important key.Binding
	MyDay     key.Binding
	Delete    key.Binding
	Search    key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	NavigationKeyMap
}

// NewTaskKeyMap applies the config overrides to the task pane keys.
func NewTaskKeyMap(cfg *config.KeysConfig) TaskKeyMap {
	cfg = orEmpty(cfg)
	return TaskKeyMap{
		Add:              bind(cfg.Add, "a", "quick add", "a"),
		Toggle:           bind(cfg.Toggle, "d/space", "toggle done", "d", "enter", " "),
		Important:        bind(cfg.Important, "i", "important", "i"),
		MyDay:            bind(cfg.MyDay, "m", "my day", "m"),
		Delete:           bind(cfg.Delete, "x", "delete", "x"),
		Search:           bind(cfg.Search, "/", "search", "/"),
		MoveUp:           bind("", "K", "move up", "K", "shift+up"),
		MoveDown:         bind("", "J", "move down", "J", "shift+down"),
		NavigationKeyMap: newNavigationKeyMap(cfg),
	}
}

// ShortHelp implements help.KeyMap.
func (k TaskKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Important, k.MyDay, k.Delete}
}

// FullHelp implements help.KeyMap.
func (k TaskKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.ShortHelp(),
		{k.Search, k.MoveUp, k.MoveDown},
		{k.Up, k.Down, k.Top, k.Bottom},
	}
}

// SidebarKeyMap holds the list sidebar keys.
type SidebarKeyMap struct {
	Open key.Binding
	NavigationKeyMap
}

// NewSidebarKeyMap applies the config overrides to the sidebar keys.
func NewSidebarKeyMap(cfg *config.KeysConfig) SidebarKeyMap {
	return SidebarKeyMap{
		Open:             bind("", "enter", "open list", "enter", "l", "right"),
		NavigationKeyMap: newNavigationKeyMap(cfg),
	}
}

// HelpKeyMap closes the help overlay.
type HelpKeyMap struct {
	Close key.Binding
}

// DefaultHelpKeyMap returns the help overlay keys. They are not configurable.
func DefaultHelpKeyMap() HelpKeyMap {
	return HelpKeyMap{Close: bind("", "any key", "close", "?", "esc", "q", "enter", " ")}
}
