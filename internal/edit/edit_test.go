package edit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/rowstore"
	"github.com/bekirdag/cuesheet/internal/selection"
)

func sheet(n int) []cue.Cue {
	rows := make([]cue.Cue, n)
	for i := range rows {
		rows[i] = cue.New(fmt.Sprintf("cue-%d", i))
		rows[i].Set(cue.FieldComposer, fmt.Sprintf("composer %d", i), cue.SourceFile, 0.8)
	}
	return rows
}

func TestCommit_ChangedValueIsUserEntry(t *testing.T) {
	row := sheet(1)[0]
	res := Commit(row, cue.FieldComposer, "Ennio Morricone")

	require.NotNil(t, res.Mutation)
	assert.Nil(t, res.Prompt)
	assert.Equal(t, []rowstore.FieldUpdate{{
		Field: cue.FieldComposer, Value: "Ennio Morricone", Source: cue.SourceUser, Confidence: 1,
	}}, res.Mutation.Updates)
}

func TestCommit_UnchangedValue(t *testing.T) {
	row := sheet(1)[0]

	res := Commit(row, cue.FieldComposer, "composer 0")
	require.NotNil(t, res.Mutation, "re-saving a low-confidence value confirms it")
	assert.Equal(t, cue.SourceUserApproved, res.Mutation.Updates[0].Source)

	row.Set(cue.FieldComposer, "composer 0", cue.SourceUser, 1)
	assert.True(t, Commit(row, cue.FieldComposer, "composer 0").Empty(), "no-op edit writes nothing")
}

func TestCommit_DatabaseValueRaisesPrompt(t *testing.T) {
	row := sheet(1)[0]
	row.Set(cue.FieldPublisher, "Sony", cue.SourceDatabase, 0.9)

	res := Commit(row, cue.FieldPublisher, "Universal")
	require.NotNil(t, res.Prompt)
	assert.Nil(t, res.Mutation)
	assert.Equal(t, "Sony", res.Prompt.OldValue)

	accepted := res.Prompt.Resolve(true)
	assert.Equal(t, cue.SourceUserSynced, accepted.Updates[0].Source)
	declined := res.Prompt.Resolve(false)
	assert.Equal(t, cue.SourceUser, declined.Updates[0].Source)
	assert.Equal(t, "Universal", declined.Updates[0].Value)

	cleared := Commit(row, cue.FieldPublisher, "")
	assert.Nil(t, cleared.Prompt, "clearing a database value needs no decision")
	require.NotNil(t, cleared.Mutation)
}

func TestApprove(t *testing.T) {
	row := sheet(1)[0]
	row.Set(cue.FieldArtist, "Air", cue.SourceAI, 0.5)

	m := Approve(row, cue.FieldArtist, cue.FieldComposer, cue.FieldLabel)
	require.NotNil(t, m)
	require.Len(t, m.Updates, 2, "empty label skipped")
	for _, u := range m.Updates {
		assert.Equal(t, cue.SourceUserApproved, u.Source)
		assert.Equal(t, 1.0, u.Confidence)
	}
}

func TestClear_OnlyEditableCells(t *testing.T) {
	schema := cue.DefaultColumns()
	rows := sheet(5)
	b := selection.Bounds{
		MinRow: 2, MaxRow: 4,
		MinCol: schema.FieldColumn(cue.FieldComposer),
		MaxCol: schema.ColumnIndex(cue.ColumnActions),
	}

	batch := Clear(b, schema, rows)
	require.Len(t, batch, 3)
	for i, m := range batch {
		assert.Equal(t, rows[i+2].ID, m.RowID)
		assert.Len(t, m.Updates, 4, "composer, publisher, label, use")
		for _, u := range m.Updates {
			assert.Equal(t, "", u.Value)
			assert.Equal(t, cue.SourceUser, u.Source)
			assert.Equal(t, 1.0, u.Confidence)
		}
	}

	status := schema.ColumnIndex(cue.ColumnStatus)
	assert.Nil(t, Clear(selection.Bounds{MinRow: 0, MaxRow: 1, MinCol: status, MaxCol: status}, schema, rows))
}

func TestFill_ColumnLocal(t *testing.T) {
	schema := cue.DefaultColumns()
	source := schema.FieldColumn(cue.FieldSource)
	f := NewFill(schema)
	require.True(t, f.Begin(0, source, "BMG"))

	assert.False(t, f.Enter(3, source+1), "other column does not extend")
	assert.False(t, f.Enter(5, source-1))
	lo, hi, _ := f.Range()
	assert.Equal(t, [2]int{0, 0}, [2]int{lo, hi})

	assert.True(t, f.Enter(3, source))
	assert.False(t, f.Enter(2, source+1))
	lo, hi, _ = f.Range()
	assert.Equal(t, [2]int{0, 3}, [2]int{lo, hi})
	assert.True(t, f.InRange(2, source))
	assert.False(t, f.InRange(2, source+1))
}

func TestFill_ReleaseCopiesAnchorValue(t *testing.T) {
	schema := cue.DefaultColumns()
	source := schema.FieldColumn(cue.FieldSource)
	rows := sheet(5)
	f := NewFill(schema)

	f.Begin(0, source, "BMG")
	f.Enter(3, source)
	batch := f.Release(rows)

	require.Len(t, batch, 3)
	for i, m := range batch {
		assert.Equal(t, rows[i+1].ID, m.RowID)
		assert.Equal(t, rowstore.FieldUpdate{Field: cue.FieldSource, Value: "BMG", Source: cue.SourceFill, Confidence: 1}, m.Updates[0])
	}
	assert.False(t, f.Active())
}

func TestFill_UpwardAndNoMove(t *testing.T) {
	schema := cue.DefaultColumns()
	label := schema.FieldColumn(cue.FieldLabel)
	rows := sheet(5)
	f := NewFill(schema)

	f.Begin(4, label, "Warp")
	assert.Nil(t, f.Release(rows), "release on the anchor writes nothing")

	f.Begin(4, label, "Warp")
	f.Enter(2, label)
	batch := f.Release(rows)
	require.Len(t, batch, 2)
	assert.Equal(t, "cue-2", batch[0].RowID)
	assert.Equal(t, "cue-3", batch[1].RowID)

	assert.False(t, f.Begin(0, schema.ColumnIndex(cue.ColumnStatus), "x"), "status is read-only")
}

func TestCopyAndPaste(t *testing.T) {
	schema := cue.DefaultColumns()
	rows := sheet(3)
	composer := schema.FieldColumn(cue.FieldComposer)
	publisher := schema.FieldColumn(cue.FieldPublisher)

	fin := selection.Finalized{Cells: []selection.Cell{
		{RowID: "cue-0", Value: "a"}, {RowID: "cue-0", Value: "b"},
		{RowID: "cue-1", Value: "c\td"}, {RowID: "cue-1", Value: ""},
	}}
	text := CopyText(fin)
	assert.Equal(t, "a\tb\n\"c\td\"\t", text)
	assert.Equal(t, [][]string{{"a", "b"}, {"c\td", ""}}, ParseGrid(text))

	batch := Paste(selection.Bounds{MinRow: 1, MaxRow: 1, MinCol: composer, MaxCol: composer}, [][]string{{"x", "y"}, {"z", "w"}, {"dropped", ""}}, schema, rows)
	require.Len(t, batch, 2)
	assert.Equal(t, "cue-1", batch[0].RowID)
	assert.Equal(t, cue.FieldComposer, batch[0].Updates[0].Field)
	assert.Equal(t, cue.FieldPublisher, batch[0].Updates[1].Field)
	assert.Equal(t, "w", batch[1].Updates[1].Value)

	single := Paste(selection.Bounds{MinRow: 0, MaxRow: 2, MinCol: composer, MaxCol: publisher}, [][]string{{"same"}}, schema, rows)
	require.Len(t, single, 3)
	assert.Len(t, single[2].Updates, 2)
}
