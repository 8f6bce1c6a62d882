package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/session"
)

const suggestionRows = 5

func (m *model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	v := m.manager.View()
	h := m.gridHeight()

	lines := make([]string, 0, m.height)
	lines = append(lines, m.renderTopBar(v))
	lines = append(lines, m.renderTabs(v))
	if m.mode == modeHelp {
		lines = append(lines, padLines(strings.Split(m.helpView.View(), "\n"), h+1)...)
	} else {
		lines = append(lines, m.renderGrid(v, h)...)
	}
	if panel := m.renderPanel(); panel != "" {
		lines = append(lines, padLines(strings.Split(panel, "\n"), m.panelHeight())...)
	}
	if m.showLogs {
		logs := m.styles.panel.Width(max(m.width-2, 1)).Render(m.logs.View())
		lines = append(lines, padLines(strings.Split(logs, "\n"), logsHeight)...)
	}
	lines = append(lines, m.help.View(m.keys))
	lines = append(lines, m.renderStatus(v))

	clip := lipgloss.NewStyle().MaxWidth(m.width)
	for i, line := range lines {
		lines[i] = clip.Render(line)
	}
	if len(lines) > m.height {
		lines = lines[:m.height]
	}
	return strings.Join(lines, "\n")
}

func padLines(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	for len(lines) < n {
		lines = append(lines, "")
	}
	return lines
}

func (m *model) renderTopBar(v session.View) string {
	title := "cuesheet"
	if v.Info.Name != "" {
		title += " • " + v.Info.Name
		if v.Info.Episode != "" {
			title += " / " + v.Info.Episode
		}
	}
	if v.Info.Production != "" {
		title += " (" + v.Info.Production + ")"
	}
	return m.styles.topBar.Render(title)
}

func (m *model) renderTabs(v session.View) string {
	labels, _ := m.tabLabels(v)
	if len(labels) == 0 {
		return m.styles.tabsRow.Render(m.styles.cmdHint.Render("no open projects"))
	}
	return m.styles.tabsRow.Render(strings.Join(labels, " "))
}

func (m *model) renderGrid(v session.View, h int) []string {
	if v.TabID == "" {
		msg := "No project open. Press o to open one or n to start a new sheet."
		return padLines([]string{"", m.styles.cmdHint.Render("  " + msg)}, h+1)
	}
	l := m.layout()
	lines := []string{m.renderHeader(l)}
	end := min(v.Scroll+h, len(v.Rows))
	for i := v.Scroll; i < end; i++ {
		lines = append(lines, m.renderRow(v, l, i))
	}
	if len(v.Rows) == 0 {
		lines = append(lines, m.styles.cmdHint.Render("  Empty sheet. Press + to add a cue."))
	}
	return padLines(lines, h+1)
}

func (m *model) renderPanel() string {
	width := max(m.width-2, 1)
	switch m.mode {
	case modeEdit, modeNewProject, modeAnnotate, modeRename:
		return m.styles.panel.Width(width).Render(m.input.View())
	case modeSync:
		if m.pendingSync == nil {
			return ""
		}
		p := m.pendingSync.Prompt
		text := fmt.Sprintf("%s %q came from the database. Update it to %q there too? %s",
			p.Field.Title(), p.OldValue, p.NewValue, m.styles.cmdHint.Render("[y]es [n]o [esc] cancel"))
		return m.styles.panel.Width(width).Render(text)
	case modeSuggest:
		return m.styles.panel.Width(width).Render(strings.Join(m.suggestionLines(), "\n"))
	case modePicker:
		body := padLines(strings.Split(m.picker.View(), "\n"), m.panelHeight()-2)
		return m.styles.panel.Width(width).Render(strings.Join(body, "\n"))
	}
	return ""
}

func (m *model) suggestionLines() []string {
	inner := m.panelHeight() - 2
	lines := []string{m.styles.panelTitle.Render(fmt.Sprintf("Suggestions (%d)", len(m.suggestions))) +
		"  " + m.styles.cmdHint.Render("enter apply • A apply best per cue • esc close")}

	start := 0
	if m.suggestIdx >= suggestionRows {
		start = m.suggestIdx - suggestionRows + 1
	}
	end := min(start+suggestionRows, len(m.suggestions))
	for i := start; i < end; i++ {
		s := m.suggestions[i]
		row, _ := m.manager.GetRow(s.RowID)
		label := fmt.Sprintf("%d %s → %s  %3.0f%%", row.OrderIndex+1, fit(row.Value(cue.FieldTrackName), 20), s.Value, s.Confidence*100)
		if i == m.suggestIdx {
			label = m.styles.cellActive.Render("› " + label)
		} else {
			label = "  " + label
		}
		lines = append(lines, label)
	}
	if len(m.suggestions) > 0 && m.suggestIdx < len(m.suggestions) {
		if reason := m.suggestions[m.suggestIdx].Reasoning; reason != "" {
			lines = append(lines, strings.Split(m.md.render(reason), "\n")...)
		}
	}
	return padLines(lines, inner)
}

// renderStatus joins the status segments with a divider.
func (m *model) renderStatus(v session.View) string {
	var segments []string
	if n := len(v.Tabs); n > 0 {
		pos := 0
		for i, t := range v.Tabs {
			if t.Live {
				pos = i + 1
			}
		}
		segments = append(segments, fmt.Sprintf("Tab %d/%d", pos, n))
	}
	if row, col, ok := m.manager.ActiveCell(); ok {
		segments = append(segments, fmt.Sprintf("Cue %d • %s", row.OrderIndex+1, col.Title))
		if col.HasField && row.Value(col.Field) != "" {
			p := row.Provenance(col.Field)
			segments = append(segments, fmt.Sprintf("%s %.0f%%", p.Source.Label(), p.Confidence*100))
		}
	}
	if m.lastSelection != "" {
		segments = append(segments, "Sel "+m.lastSelection)
	}
	if v.HistoryLen > 0 {
		segments = append(segments, fmt.Sprintf("History %d/%d", v.HistoryIndex+1, v.HistoryLen))
	}
	if v.TabID != "" {
		if v.Dirty {
			segments = append(segments, m.styles.tabDirty.Render("● unsaved"))
		} else {
			segments = append(segments, "saved")
		}
	}
	for _, t := range v.Tabs {
		if t.Live && t.SaveError != "" {
			segments = append(segments, m.styles.statusError.Render("save failed"))
		}
	}
	if m.busy > 0 {
		segments = append(segments, m.spinner.View()+" "+m.busyMessage)
	}
	if m.jobs.Running() {
		segments = append(segments, fmt.Sprintf("job running (+%d queued)", m.jobs.Pending()))
	}
	if m.toastMessage != "" && time.Now().Before(m.toastExpires) {
		segments = append(segments, m.toastMessage)
	}
	for i, s := range segments {
		segments[i] = m.styles.statusSeg.Render(s)
	}
	return m.styles.statusBar.Render(strings.Join(segments, "│"))
}
