package cue

// Column describes one grid column. Columns without a field (visibility
// toggle, index, status, actions) are computed by the presentation layer.
type Column struct {
	Key           string
	Title         string
	Field         Field
	HasField      bool
	Editable      bool
	Selectable    bool
	HasConfidence bool
	MinWidth      int
}

const (
	ColumnVisible = "visible"
	ColumnIndex   = "index"
	ColumnStatus  = "status"
	ColumnActions = "actions"
)

// Schema is the ordered, fixed column list of the cue grid.
type Schema []Column

var fieldWidths = [fieldCount]int{
	FieldTrackName:   22,
	FieldDuration:    8,
	FieldArtist:      16,
	FieldSource:      12,
	FieldTrackNumber: 7,
	FieldComposer:    18,
	FieldPublisher:   18,
	FieldLabel:       12,
	FieldUse:         8,
}

// DefaultColumns returns the cue sheet schema.
func DefaultColumns() Schema {
	cols := Schema{
		{Key: ColumnVisible, Title: "👁", MinWidth: 2},
		{Key: ColumnIndex, Title: "#", MinWidth: 4},
	}
	for _, f := range Fields() {
		cols = append(cols, Column{
			Key:           f.Key(),
			Title:         f.Title(),
			Field:         f,
			HasField:      true,
			Editable:      true,
			Selectable:    true,
			HasConfidence: true,
			MinWidth:      fieldWidths[f],
		})
	}
	cols = append(cols,
		Column{Key: ColumnStatus, Title: "Status", Selectable: true, MinWidth: 10},
		Column{Key: ColumnActions, Title: "", MinWidth: 3},
	)
	return cols
}

func (s Schema) Len() int { return len(s) }

func (s Schema) Column(col int) (Column, bool) {
	if col < 0 || col >= len(s) {
		return Column{}, false
	}
	return s[col], true
}

func (s Schema) Selectable(col int) bool {
	c, ok := s.Column(col)
	return ok && c.Selectable
}

func (s Schema) Editable(col int) bool {
	c, ok := s.Column(col)
	return ok && c.Selectable && c.Editable && c.HasField
}

// ColumnIndex returns the position of the column with the given key, or -1.
func (s Schema) ColumnIndex(key string) int {
	for i, c := range s {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// FieldColumn returns the position of the column bound to field f, or -1.
func (s Schema) FieldColumn(f Field) int {
	for i, c := range s {
		if c.HasField && c.Field == f {
			return i
		}
	}
	return -1
}

// FirstSelectable returns the leftmost selectable column, or -1.
func (s Schema) FirstSelectable() int {
	return s.NextSelectable(-1, 1)
}

// NextSelectable walks from col in direction dir (+1 or -1) and returns the
// next selectable column, or -1 when there is none.
func (s Schema) NextSelectable(col, dir int) int {
	if dir == 0 {
		return -1
	}
	for i := col + dir; i >= 0 && i < len(s); i += dir {
		if s[i].Selectable {
			return i
		}
	}
	return -1
}
