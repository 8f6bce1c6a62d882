package cue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatus_CompleteIffMandatoryFilled(t *testing.T) {
	c := New("c1")
	assert.Equal(t, StatusPending, c.Status)

	c.Set(FieldComposer, "Hans Zimmer", SourceUser, 1)
	assert.Equal(t, StatusPending, c.Status, "publisher still empty")

	c.Set(FieldPublisher, "BMG", SourceUser, 1)
	assert.Equal(t, StatusComplete, c.Status)

	c.Set(FieldComposer, "", SourceUser, 1)
	assert.Equal(t, StatusPending, c.Status, "clearing composer reverts to pending")

	c.Set(FieldComposer, " ", SourceUser, 1)
	assert.Equal(t, StatusComplete, c.Status, "any non-empty value counts")
}

func TestDeriveStatus_IgnoresOtherFields(t *testing.T) {
	for _, f := range Fields() {
		if f.Mandatory() {
			continue
		}
		c := New("c")
		c.Set(f, "value", SourceFile, 1)
		assert.Equal(t, StatusPending, c.Status, "field %s", f)
	}
}

func TestSet_UpdatesProvenanceTogether(t *testing.T) {
	c := New("c1")
	c.Set(FieldArtist, "Daft Punk", SourceAI, 0.42)

	assert.Equal(t, "Daft Punk", c.Value(FieldArtist))
	assert.Equal(t, Provenance{Confidence: 0.42, Source: SourceAI}, c.Provenance(FieldArtist))

	c.Set(FieldArtist, "Daft Punk", SourceUser, 7)
	assert.Equal(t, 1.0, c.Confidence(FieldArtist), "confidence is clamped")
	assert.Equal(t, SourceUser, c.Source(FieldArtist))
}

func TestDisplayStatus_NeedsApproval(t *testing.T) {
	c := New("c1")
	c.Set(FieldComposer, "A", SourceUser, 1)
	c.Set(FieldPublisher, "B", SourcePattern, 0.6)

	assert.Equal(t, StatusComplete, c.Status)
	assert.Equal(t, StatusNeedsApproval, c.DisplayStatus())
	assert.Equal(t, []Field{FieldPublisher}, c.UnapprovedFields())

	c.Set(FieldPublisher, "B", SourceUserApproved, 1)
	assert.Equal(t, StatusComplete, c.DisplayStatus())
}

func TestCloneIsIndependent(t *testing.T) {
	rows := []Cue{New("a"), New("b")}
	rows[0].Set(FieldLabel, "Warp", SourceFile, 1)

	copied := Clone(rows)
	require.True(t, EqualRows(rows, copied))

	copied[0].Set(FieldLabel, "Ninja Tune", SourceUser, 1)
	assert.Equal(t, "Warp", rows[0].Value(FieldLabel))
	assert.False(t, EqualRows(rows, copied))
}

func TestParseFieldAndSource(t *testing.T) {
	for _, f := range Fields() {
		got, ok := ParseField(f.Key())
		require.True(t, ok)
		assert.Equal(t, f, got)
	}
	_, ok := ParseField("isrc")
	assert.False(t, ok)

	assert.Equal(t, SourceFill, ParseSource("fill-copied"))
	assert.Equal(t, SourceUnknown, ParseSource("telepathy"))
}

func TestSchema_Selectability(t *testing.T) {
	s := DefaultColumns()

	assert.False(t, s.Selectable(s.ColumnIndex(ColumnVisible)))
	assert.False(t, s.Selectable(s.ColumnIndex(ColumnIndex)))
	assert.False(t, s.Selectable(s.ColumnIndex(ColumnActions)))
	assert.True(t, s.Selectable(s.ColumnIndex(ColumnStatus)))
	assert.False(t, s.Editable(s.ColumnIndex(ColumnStatus)))

	first := s.FirstSelectable()
	assert.Equal(t, s.FieldColumn(FieldTrackName), first)
	assert.Equal(t, -1, s.NextSelectable(first, -1))
	assert.Equal(t, s.ColumnIndex(ColumnStatus), s.NextSelectable(s.FieldColumn(FieldUse), 1))
	assert.Equal(t, -1, s.NextSelectable(s.ColumnIndex(ColumnStatus), 1))
}
