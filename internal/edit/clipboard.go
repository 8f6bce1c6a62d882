package edit

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/rowstore"
	"github.com/bekirdag/cuesheet/internal/selection"
)

// CopyText renders a finalized selection as tab-separated text, one line
// per row.
func CopyText(fin selection.Finalized) string {
	if len(fin.Cells) == 0 {
		return ""
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	var record []string
	current := fin.Cells[0].RowID
	for _, c := range fin.Cells {
		if c.RowID != current {
			_ = w.Write(record)
			record = nil
			current = c.RowID
		}
		record = append(record, c.Value)
	}
	_ = w.Write(record)
	w.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// ParseGrid splits tab-separated clipboard text into rows of cells.
func ParseGrid(text string) [][]string {
	text = strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return nil
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		var out [][]string
		for _, line := range strings.Split(text, "\n") {
			out = append(out, strings.Split(line, "\t"))
		}
		return out
	}
	return records
}

// Paste writes a clipboard grid into the selection. A single value fills
// every editable cell in b; a larger grid is laid out from the top-left
// corner of b across successive selectable columns. Cells past the last row
// or landing on read-only columns are dropped.
func Paste(b selection.Bounds, grid [][]string, schema cue.Schema, rows []cue.Cue) []rowstore.Mutation {
	if len(grid) == 0 {
		return nil
	}
	if len(grid) == 1 && len(grid[0]) == 1 {
		value := grid[0][0]
		var batch []rowstore.Mutation
		for r := b.MinRow; r <= b.MaxRow && r < len(rows); r++ {
			m := rowstore.Mutation{RowID: rows[r].ID}
			for c := b.MinCol; c <= b.MaxCol; c++ {
				if schema.Editable(c) {
					m.Updates = append(m.Updates, userUpdate(schema[c].Field, value))
				}
			}
			if len(m.Updates) > 0 {
				batch = append(batch, m)
			}
		}
		return batch
	}

	var batch []rowstore.Mutation
	for i, record := range grid {
		r := b.MinRow + i
		if r >= len(rows) {
			break
		}
		m := rowstore.Mutation{RowID: rows[r].ID}
		col := b.MinCol
		for j, value := range record {
			if j > 0 {
				col = schema.NextSelectable(col, 1)
				if col < 0 {
					break
				}
			}
			if schema.Editable(col) {
				m.Updates = append(m.Updates, userUpdate(schema[col].Field, value))
			}
		}
		if len(m.Updates) > 0 {
			batch = append(batch, m)
		}
	}
	return batch
}

func userUpdate(f cue.Field, value string) rowstore.FieldUpdate {
	return rowstore.FieldUpdate{Field: f, Value: value, Source: cue.SourceUser, Confidence: 1}
}
