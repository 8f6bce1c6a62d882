// Package cue defines the cue sheet record: a fixed set of fields, each
// carrying a value together with the confidence and source it came from.
package cue

import "strings"

// Field identifies one of the fixed cue fields.
type Field int

const (
	FieldTrackName Field = iota
	FieldDuration
	FieldArtist
	FieldSource
	FieldTrackNumber
	FieldComposer
	FieldPublisher
	FieldLabel
	FieldUse

	fieldCount
)

// FieldCount is the number of fields carried by every cue.
const FieldCount = int(fieldCount)

var fieldKeys = [fieldCount]string{
	FieldTrackName:   "trackName",
	FieldDuration:    "duration",
	FieldArtist:      "artist",
	FieldSource:      "source",
	FieldTrackNumber: "trackNumber",
	FieldComposer:    "composer",
	FieldPublisher:   "publisher",
	FieldLabel:       "label",
	FieldUse:         "use",
}

var fieldTitles = [fieldCount]string{
	FieldTrackName:   "Track",
	FieldDuration:    "Duration",
	FieldArtist:      "Artist",
	FieldSource:      "Source",
	FieldTrackNumber: "Track #",
	FieldComposer:    "Composer",
	FieldPublisher:   "Publisher",
	FieldLabel:       "Label",
	FieldUse:         "Use",
}

// Fields returns every field in schema order.
func Fields() []Field {
	out := make([]Field, 0, FieldCount)
	for f := Field(0); f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}

func (f Field) Valid() bool {
	return f >= 0 && f < fieldCount
}

// Key returns the stable camelCase key used by storage and exports.
func (f Field) Key() string {
	if !f.Valid() {
		return ""
	}
	return fieldKeys[f]
}

func (f Field) Title() string {
	if !f.Valid() {
		return ""
	}
	return fieldTitles[f]
}

func (f Field) String() string {
	return f.Key()
}

// Mandatory reports whether the field must be filled for a cue to be complete.
func (f Field) Mandatory() bool {
	return f == FieldComposer || f == FieldPublisher
}

// ParseField resolves a field key, ignoring case and surrounding space.
func ParseField(key string) (Field, bool) {
	key = strings.TrimSpace(key)
	for f := Field(0); f < fieldCount; f++ {
		if strings.EqualFold(fieldKeys[f], key) {
			return f, true
		}
	}
	return 0, false
}
