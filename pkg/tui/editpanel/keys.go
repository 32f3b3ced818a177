package editpanel

import (
	"charm.land/bubbles/v2/key"
)

type keyMap struct {
	Save    key.Binding
	Cancel  key.Binding
	Newline key.Binding
	Toolbar key.Binding
	Help    key.Binding

	Bold   key.Binding
	Italic key.Binding
	Strike key.Binding
	Code   key.Binding
	Quote  key.Binding

	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	LineStart key.Binding
	LineEnd   key.Binding
	Backspace key.Binding
	Delete    key.Binding

	PopupUp     key.Binding
	PopupDown   key.Binding
	PopupSelect key.Binding
	PopupClose  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Save:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Newline: key.NewBinding(key.WithKeys("shift+enter", "alt+enter", "ctrl+j"), key.WithHelp("shift+enter", "newline")),
		Toolbar: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "toolbar")),
		Help:    key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "more keys")),

		Bold:   key.NewBinding(key.WithKeys("alt+b"), key.WithHelp("alt+b", "bold")),
		Italic: key.NewBinding(key.WithKeys("alt+i"), key.WithHelp("alt+i", "italic")),
		Strike: key.NewBinding(key.WithKeys("alt+s"), key.WithHelp("alt+s", "strikethrough")),
		Code:   key.NewBinding(key.WithKeys("alt+c"), key.WithHelp("alt+c", "code")),
		Quote:  key.NewBinding(key.WithKeys("alt+q"), key.WithHelp("alt+q", "quote")),

		Left:      key.NewBinding(key.WithKeys("left", "ctrl+b")),
		Right:     key.NewBinding(key.WithKeys("right", "ctrl+f")),
		Up:        key.NewBinding(key.WithKeys("up")),
		Down:      key.NewBinding(key.WithKeys("down")),
		LineStart: key.NewBinding(key.WithKeys("home", "ctrl+a")),
		LineEnd:   key.NewBinding(key.WithKeys("end", "ctrl+e")),
		Backspace: key.NewBinding(key.WithKeys("backspace", "ctrl+h")),
		Delete:    key.NewBinding(key.WithKeys("delete", "ctrl+d")),

		PopupUp:     key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑/↓", "choose")),
		PopupDown:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
		PopupSelect: key.NewBinding(key.WithKeys("tab", "enter"), key.WithHelp("tab", "insert")),
		PopupClose:  key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "dismiss")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Newline, k.Cancel, k.Toolbar, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Save, k.Newline, k.Cancel},
		{k.Toolbar, k.Help},
		{k.Bold, k.Italic, k.Strike, k.Code, k.Quote},
		{k.PopupUp, k.PopupSelect, k.PopupClose},
	}
}

// popupKeys is the help shown while the autocomplete popup is open.
type popupKeys keyMap

func (k popupKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.PopupUp, k.PopupSelect, k.PopupClose, k.Cancel}
}

func (k popupKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
