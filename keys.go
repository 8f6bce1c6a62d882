package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up, down, left, right     key.Binding
	extUp, extDown            key.Binding
	extLeft, extRight         key.Binding
	pageUp, pageDown          key.Binding
	edit                      key.Binding
	clear                     key.Binding
	approve                   key.Binding
	fillDown                  key.Binding
	copy, paste               key.Binding
	undo, redo                key.Binding
	suggest                   key.Binding
	addRow, removeRows        key.Binding
	moveRowUp, moveRowDown    key.Binding
	rename                    key.Binding
	toggleHidden              key.Binding
	annotate                  key.Binding
	openProject, newProject   key.Binding
	closeTab                  key.Binding
	nextTab, prevTab          key.Binding
	save, export              key.Binding
	escape                    key.Binding
	toggleTheme, toggleLogs   key.Binding
	toggleHelp, quit          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		extUp: key.NewBinding(
			key.WithKeys("shift+up", "K"),
			key.WithHelp("shift+↑", "extend up"),
		),
		extDown: key.NewBinding(
			key.WithKeys("shift+down", "J"),
			key.WithHelp("shift+↓", "extend down"),
		),
		extLeft: key.NewBinding(
			key.WithKeys("shift+left", "H"),
			key.WithHelp("shift+←", "extend left"),
		),
		extRight: key.NewBinding(
			key.WithKeys("shift+right", "L"),
			key.WithHelp("shift+→", "extend right"),
		),
		pageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
		pageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
		edit: key.NewBinding(
			key.WithKeys("enter", "f2"),
			key.WithHelp("enter", "edit cell"),
		),
		clear: key.NewBinding(
			key.WithKeys("delete", "backspace"),
			key.WithHelp("del", "clear cells"),
		),
		approve: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "approve values"),
		),
		fillDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "fill down"),
		),
		copy: key.NewBinding(
			key.WithKeys("y", "ctrl+c"),
			key.WithHelp("y", "copy"),
		),
		paste: key.NewBinding(
			key.WithKeys("p", "ctrl+v"),
			key.WithHelp("p", "paste"),
		),
		undo: key.NewBinding(
			key.WithKeys("u", "ctrl+z"),
			key.WithHelp("u", "undo"),
		),
		redo: key.NewBinding(
			key.WithKeys("ctrl+r", "ctrl+y"),
			key.WithHelp("ctrl+r", "redo"),
		),
		suggest: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "suggest values"),
		),
		addRow: key.NewBinding(
			key.WithKeys("+", "insert"),
			key.WithHelp("+", "add cue"),
		),
		removeRows: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete cues"),
		),
		moveRowUp: key.NewBinding(
			key.WithKeys("alt+up", "<"),
			key.WithHelp("<", "move cue up"),
		),
		moveRowDown: key.NewBinding(
			key.WithKeys("alt+down", ">"),
			key.WithHelp(">", "move cue down"),
		),
		rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename project"),
		),
		toggleHidden: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "hide/show cue"),
		),
		annotate: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "annotate"),
		),
		openProject: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open project"),
		),
		newProject: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new project"),
		),
		closeTab: key.NewBinding(
			key.WithKeys("x", "ctrl+w"),
			key.WithHelp("x", "close tab"),
		),
		nextTab: key.NewBinding(
			key.WithKeys("]", "ctrl+pgdown"),
			key.WithHelp("]", "next tab"),
		),
		prevTab: key.NewBinding(
			key.WithKeys("[", "ctrl+pgup"),
			key.WithHelp("[", "prev tab"),
		),
		save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save now"),
		),
		export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export csv"),
		),
		escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear selection"),
		),
		toggleTheme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "theme"),
		),
		toggleLogs: key.NewBinding(
			key.WithKeys("f6"),
			key.WithHelp("F6", "toggle logs"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+q"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.edit,
		k.clear,
		k.undo,
		k.suggest,
		k.openProject,
		k.nextTab,
		k.toggleHelp,
		k.quit,
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right, k.pageUp, k.pageDown},
		{k.extUp, k.extDown, k.extLeft, k.extRight, k.escape},
		{k.edit, k.clear, k.approve, k.fillDown, k.copy, k.paste},
		{k.undo, k.redo, k.suggest, k.annotate},
		{k.addRow, k.removeRows, k.moveRowUp, k.moveRowDown, k.toggleHidden},
		{k.openProject, k.newProject, k.rename, k.closeTab, k.nextTab, k.prevTab},
		{k.save, k.export, k.toggleTheme, k.toggleLogs, k.toggleHelp, k.quit},
	}
}
