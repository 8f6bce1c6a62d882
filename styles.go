package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	app, topBar                       lipgloss.Style
	tabActive, tabInactive, tabsRow   lipgloss.Style
	tabDirty                          lipgloss.Style
	header, cell, cellDim             lipgloss.Style
	cellSelected, cellActive          lipgloss.Style
	cellFill, fillHandle              lipgloss.Style
	confLow, confMid                  lipgloss.Style
	statusPending, statusNeeds        lipgloss.Style
	statusComplete                    lipgloss.Style
	panel, panelTitle                 lipgloss.Style
	statusBar, statusSeg, statusError lipgloss.Style
	cmdOverlay, cmdPrompt, cmdHint    lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	accent := lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#8C7CFF"}
	selection := lipgloss.AdaptiveColor{Light: "#D9D4FF", Dark: "#3B3566"}

	return styles{
		app:            base,
		topBar:         base.Copy().Bold(true).Padding(0, 1),
		tabActive:      base.Copy().Bold(true).Padding(0, 1).Underline(true).Foreground(accent),
		tabInactive:    base.Copy().Padding(0, 1).Faint(true),
		tabsRow:        base.Copy().Padding(0, 1),
		tabDirty:       base.Copy().Foreground(lipgloss.Color("214")),
		header:         base.Copy().Bold(true),
		cell:           base,
		cellDim:        base.Copy().Faint(true).Strikethrough(true),
		cellSelected:   base.Copy().Background(selection),
		cellActive:     base.Copy().Background(accent).Foreground(lipgloss.Color("231")),
		cellFill:       base.Copy().Background(lipgloss.AdaptiveColor{Light: "#CDEFD6", Dark: "#24503A"}),
		fillHandle:     base.Copy().Foreground(accent).Bold(true),
		confLow:        base.Copy().Foreground(lipgloss.Color("203")),
		confMid:        base.Copy().Foreground(lipgloss.Color("214")),
		statusPending:  base.Copy().Foreground(lipgloss.Color("245")),
		statusNeeds:    base.Copy().Foreground(lipgloss.Color("214")),
		statusComplete: base.Copy().Foreground(lipgloss.Color("42")),
		panel:          base.Copy().BorderStyle(lipgloss.NormalBorder()).Padding(0, 1),
		panelTitle:     base.Copy().Bold(true),
		statusBar:      base.Copy().Padding(0, 1),
		statusSeg:      base.Copy().Padding(0, 1),
		statusError:    base.Copy().Padding(0, 1).Foreground(lipgloss.Color("203")),
		cmdOverlay:     base.Copy().Border(lipgloss.RoundedBorder()).Padding(1, 2),
		cmdPrompt:      base.Copy().Bold(true),
		cmdHint:        base.Copy().Faint(true),
	}
}
