package edit

import (
	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/rowstore"
	"github.com/bekirdag/cuesheet/internal/selection"
)

// Clear blanks every selectable, editable cell inside b. It returns one
// mutation per touched row; callers apply them as a single batch.
func Clear(b selection.Bounds, schema cue.Schema, rows []cue.Cue) []rowstore.Mutation {
	var fields []cue.Field
	for c := b.MinCol; c <= b.MaxCol; c++ {
		if schema.Editable(c) {
			fields = append(fields, schema[c].Field)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	var batch []rowstore.Mutation
	for r := b.MinRow; r <= b.MaxRow; r++ {
		if r < 0 || r >= len(rows) {
			continue
		}
		m := rowstore.Mutation{RowID: rows[r].ID}
		for _, f := range fields {
			m.Updates = append(m.Updates, rowstore.FieldUpdate{
				Field:      f,
				Value:      "",
				Source:     cue.SourceUser,
				Confidence: 1,
			})
		}
		batch = append(batch, m)
	}
	return batch
}

// Fill tracks a fill-handle drag. The range only grows along the anchor's
// column; pointer movement into other columns leaves it unchanged.
type Fill struct {
	schema cue.Schema

	active    bool
	anchorRow int
	col       int
	field     cue.Field
	value     string
	lo, hi    int
}

func NewFill(schema cue.Schema) *Fill {
	return &Fill{schema: schema}
}

// Begin starts a drag from an editable cell holding value.
func (f *Fill) Begin(row, col int, value string) bool {
	if row < 0 || !f.schema.Editable(col) {
		return false
	}
	f.active = true
	f.anchorRow = row
	f.col = col
	f.field = f.schema[col].Field
	f.value = value
	f.lo, f.hi = row, row
	return true
}

// Enter is called as the pointer enters a cell. It reports whether the
// preview range changed.
func (f *Fill) Enter(row, col int) bool {
	if !f.active || col != f.col || row < 0 {
		return false
	}
	lo, hi := min(f.anchorRow, row), max(f.anchorRow, row)
	if lo == f.lo && hi == f.hi {
		return false
	}
	f.lo, f.hi = lo, hi
	return true
}

func (f *Fill) Active() bool { return f.active }

func (f *Fill) Column() int { return f.col }

func (f *Fill) AnchorRow() int { return f.anchorRow }

// Range is the inclusive preview range.
func (f *Fill) Range() (lo, hi int, ok bool) {
	if !f.active {
		return 0, 0, false
	}
	return f.lo, f.hi, true
}

// InRange reports whether (row, col) is part of the preview.
func (f *Fill) InRange(row, col int) bool {
	return f.active && col == f.col && row >= f.lo && row <= f.hi
}

// Release ends the drag and returns the writes: every row in range except
// the anchor takes the anchor value as fill-copied. Releasing on the anchor
// row writes nothing.
func (f *Fill) Release(rows []cue.Cue) []rowstore.Mutation {
	if !f.active {
		return nil
	}
	defer f.Cancel()
	if f.lo == f.hi {
		return nil
	}
	var batch []rowstore.Mutation
	for r := f.lo; r <= f.hi && r < len(rows); r++ {
		if r == f.anchorRow {
			continue
		}
		batch = append(batch, rowstore.Mutation{
			RowID: rows[r].ID,
			Updates: []rowstore.FieldUpdate{{
				Field:      f.field,
				Value:      f.value,
				Source:     cue.SourceFill,
				Confidence: 1,
			}},
		})
	}
	return batch
}

func (f *Fill) Cancel() {
	f.active = false
	f.lo, f.hi = 0, 0
}
