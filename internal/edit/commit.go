// Package edit turns user gestures on the grid (cell commits, clears, fill
// handle drags, clipboard pastes) into row store mutations.
package edit

import (
	"strings"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/rowstore"
)

// CommitResult is the outcome of leaving edit mode on one cell. At most one
// of Mutation and Prompt is set; both nil means nothing to write.
type CommitResult struct {
	Mutation *rowstore.Mutation
	Prompt   *SyncPrompt
}

func (r CommitResult) Empty() bool {
	return r.Mutation == nil && r.Prompt == nil
}

// SyncPrompt asks whether a user correction of a database-matched value
// should also update the backing database. Nothing is written until it is
// resolved.
type SyncPrompt struct {
	RowID    string
	Field    cue.Field
	OldValue string
	NewValue string
}

// Resolve finalizes the pending edit. Accepting tags the value as
// user-synced, declining as a plain user entry.
func (p SyncPrompt) Resolve(accept bool) rowstore.Mutation {
	source := cue.SourceUser
	if accept {
		source = cue.SourceUserSynced
	}
	return single(p.RowID, p.Field, p.NewValue, source)
}

// Commit computes the write for a finished cell edit.
//
// A changed value is written as a user entry. Re-saving an unchanged value
// confirms it (user-approved) unless it is already a full-confidence user
// entry, in which case nothing is written and no history entry results.
func Commit(row cue.Cue, field cue.Field, value string) CommitResult {
	if !field.Valid() {
		return CommitResult{}
	}
	old := row.Value(field)
	prov := row.Provenance(field)
	if value == old {
		if prov.Confidence >= 1 && prov.Source.Approved() {
			return CommitResult{}
		}
		m := single(row.ID, field, value, cue.SourceUserApproved)
		return CommitResult{Mutation: &m}
	}
	if prov.Source == cue.SourceDatabase && strings.TrimSpace(value) != "" {
		return CommitResult{Prompt: &SyncPrompt{
			RowID:    row.ID,
			Field:    field,
			OldValue: old,
			NewValue: value,
		}}
	}
	m := single(row.ID, field, value, cue.SourceUser)
	return CommitResult{Mutation: &m}
}

// Approve confirms the current values of the given fields as user-approved
// with full confidence. Fields that are empty or already approved are left
// alone.
func Approve(row cue.Cue, fields ...cue.Field) *rowstore.Mutation {
	m := rowstore.Mutation{RowID: row.ID}
	for _, f := range fields {
		if !f.Valid() || strings.TrimSpace(row.Value(f)) == "" {
			continue
		}
		p := row.Provenance(f)
		if p.Confidence >= 1 && p.Source.Approved() {
			continue
		}
		m.Updates = append(m.Updates, rowstore.FieldUpdate{
			Field:      f,
			Value:      row.Value(f),
			Source:     cue.SourceUserApproved,
			Confidence: 1,
		})
	}
	if len(m.Updates) == 0 {
		return nil
	}
	return &m
}

func single(rowID string, field cue.Field, value string, source cue.Source) rowstore.Mutation {
	return rowstore.Mutation{
		RowID: rowID,
		Updates: []rowstore.FieldUpdate{{
			Field:      field,
			Value:      value,
			Source:     source,
			Confidence: 1,
		}},
	}
}
