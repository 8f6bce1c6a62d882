package rowstore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekirdag/cuesheet/internal/cue"
)

func testRows(n int) []cue.Cue {
	rows := make([]cue.Cue, n)
	for i := range rows {
		rows[i] = cue.New(fmt.Sprintf("cue-%d", i))
		rows[i].Set(cue.FieldTrackName, fmt.Sprintf("Track %d", i), cue.SourceFile, 1)
	}
	return rows
}

func TestStore_GetAndSetField(t *testing.T) {
	s := New(testRows(3))

	ok := s.SetField("cue-1", cue.FieldComposer, "Vangelis", cue.SourceAI, 0.7)
	require.True(t, ok)

	row, ok := s.GetRow("cue-1")
	require.True(t, ok)
	assert.Equal(t, "Vangelis", row.Value(cue.FieldComposer))
	assert.Equal(t, cue.SourceAI, row.Source(cue.FieldComposer))
	assert.Equal(t, 0.7, row.Confidence(cue.FieldComposer))

	assert.False(t, s.SetField("missing", cue.FieldComposer, "x", cue.SourceUser, 1))
}

func TestStore_ApplyBatchSkipsStaleRows(t *testing.T) {
	s := New(testRows(3))
	before := s.Rows()

	res := s.ApplyBatch([]Mutation{
		{RowID: "cue-0", Updates: []FieldUpdate{{Field: cue.FieldLabel, Value: "Warp", Source: cue.SourceUser, Confidence: 1}}},
		{RowID: "deleted", Updates: []FieldUpdate{{Field: cue.FieldLabel, Value: "Nope", Source: cue.SourceUser, Confidence: 1}}},
		{RowID: "cue-2", Updates: []FieldUpdate{{Field: cue.FieldLabel, Value: "Warp", Source: cue.SourceUser, Confidence: 1}}},
	})

	assert.Equal(t, BatchResult{Applied: 2, Skipped: 1}, res)
	rows := s.Rows()
	assert.Equal(t, "Warp", rows[0].Value(cue.FieldLabel))
	assert.Equal(t, before[1], rows[1])
	assert.Equal(t, "Warp", rows[2].Value(cue.FieldLabel))
}

func TestStore_RowsReturnsCopy(t *testing.T) {
	s := New(testRows(2))
	rows := s.Rows()
	rows[0].Set(cue.FieldArtist, "Changed", cue.SourceUser, 1)

	row, _ := s.GetRow("cue-0")
	assert.Equal(t, "", row.Value(cue.FieldArtist))
}

func TestStore_StructuralOps(t *testing.T) {
	s := New(testRows(3))

	assert.Equal(t, 1, s.Append(cue.New("cue-3"), cue.New("cue-0")), "duplicate id dropped")
	require.True(t, s.InsertAfter("cue-0", cue.New("inserted")))
	assert.Equal(t, 1, s.IndexOf("inserted"))
	assert.Equal(t, 2, s.IndexOf("cue-1"))

	require.True(t, s.Move("cue-3", 0))
	assert.Equal(t, 0, s.IndexOf("cue-3"))
	for i, r := range s.Rows() {
		assert.Equal(t, i, r.OrderIndex)
	}

	assert.Equal(t, 2, s.Remove("cue-1", "inserted", "ghost"))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, -1, s.IndexOf("cue-1"))

	require.True(t, s.SetHidden("cue-2", true))
	assert.Len(t, s.Visible(), 2)
}
