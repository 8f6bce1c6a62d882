package main

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/session"
)

// frozenColumns stay on screen while the grid scrolls sideways.
const frozenColumns = 2

const fillHandleGlyph = "■"

type colSpan struct {
	col   int
	x     int
	width int
}

// gridLayout maps grid columns to screen x positions. Cells are separated
// by a single space, which belongs to the cell on its left for hit tests.
type gridLayout struct {
	spans []colSpan
	width int
}

func columnWidth(c cue.Column) int {
	return max(c.MinWidth, runewidth.StringWidth(c.Title))
}

func layoutColumns(schema cue.Schema, width, firstScrollable int) gridLayout {
	var l gridLayout
	x := 0
	add := func(col int) bool {
		w := columnWidth(schema[col])
		if x+w > width && len(l.spans) > 0 {
			return false
		}
		l.spans = append(l.spans, colSpan{col: col, x: x, width: w})
		x += w + 1
		return true
	}
	for col := 0; col < min(frozenColumns, len(schema)); col++ {
		add(col)
	}
	for col := max(firstScrollable, frozenColumns); col < len(schema); col++ {
		if !add(col) {
			break
		}
	}
	l.width = x
	return l
}

// columnAt returns the grid column under screen x.
func (l gridLayout) columnAt(x int) (int, bool) {
	for _, s := range l.spans {
		if x >= s.x && x <= s.x+s.width {
			return s.col, true
		}
	}
	return 0, false
}

func (l gridLayout) span(col int) (colSpan, bool) {
	for _, s := range l.spans {
		if s.col == col {
			return s, true
		}
	}
	return colSpan{}, false
}

func (l gridLayout) lastColumn() int {
	if len(l.spans) == 0 {
		return -1
	}
	return l.spans[len(l.spans)-1].col
}

func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func (m *model) renderHeader(l gridLayout) string {
	parts := make([]string, 0, len(l.spans))
	for _, s := range l.spans {
		parts = append(parts, m.styles.header.Render(fit(m.schema[s.col].Title, s.width)))
	}
	return strings.Join(parts, " ")
}

func (m *model) renderRow(v session.View, l gridLayout, rowIdx int) string {
	row := v.Rows[rowIdx]
	parts := make([]string, 0, len(l.spans))
	for _, s := range l.spans {
		col := m.schema[s.col]
		text, style := m.cellContent(row, col)
		text = fit(text, s.width)

		active := v.HasSelection && v.Active.Row == rowIdx && v.Active.Col == s.col
		switch {
		case v.FillActive && s.col == v.FillCol && rowIdx >= v.FillLo && rowIdx <= v.FillHi:
			style = m.styles.cellFill
		case active:
			if col.Editable && !v.FillActive && s.width > 1 {
				handle := m.styles.fillHandle.Inherit(m.styles.cellActive).Render(fillHandleGlyph)
				parts = append(parts, m.styles.cellActive.Render(fit(text, s.width-1))+handle)
				continue
			}
			style = m.styles.cellActive
		case v.HasSelection && v.Selection.Contains(rowIdx, s.col):
			style = m.styles.cellSelected
		case row.Hidden:
			style = m.styles.cellDim
		}
		parts = append(parts, style.Render(text))
	}
	return strings.Join(parts, " ")
}

func (m *model) cellContent(row cue.Cue, col cue.Column) (string, lipgloss.Style) {
	switch {
	case col.HasField:
		p := row.Provenance(col.Field)
		value := row.Value(col.Field)
		if value == "" || p.Source.Approved() || p.Confidence >= 1 {
			return value, m.styles.cell
		}
		if p.Confidence < 0.5 {
			return value, m.styles.confLow
		}
		return value, m.styles.confMid
	case col.Key == cue.ColumnVisible:
		if row.Hidden {
			return "○", m.styles.cellDim
		}
		return "●", m.styles.cell
	case col.Key == cue.ColumnIndex:
		return strconv.Itoa(row.OrderIndex + 1), m.styles.cellDim.Copy().Strikethrough(false)
	case col.Key == cue.ColumnStatus:
		switch status := row.DisplayStatus(); status {
		case cue.StatusComplete:
			return status.String(), m.styles.statusComplete
		case cue.StatusNeedsApproval:
			return "needs approval", m.styles.statusNeeds
		default:
			return status.String(), m.styles.statusPending
		}
	case col.Key == cue.ColumnActions:
		if note, ok := m.annotated[row.ID]; ok && note != "" {
			return "✎+", m.styles.cell
		}
		return " +", m.styles.cellDim.Copy().Strikethrough(false)
	}
	return "", m.styles.cell
}

// onFillHandle reports whether screen x sits on the fill handle of the
// active cell at grid column col.
func (l gridLayout) onFillHandle(x, col int) bool {
	s, ok := l.span(col)
	return ok && x == s.x+s.width-1
}
