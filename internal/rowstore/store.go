// Package rowstore holds the ordered cue list of one document and applies
// field mutations to it.
package rowstore

import (
	"github.com/bekirdag/cuesheet/internal/cue"
)

// FieldUpdate is one field write: value, confidence and source together.
type FieldUpdate struct {
	Field      cue.Field
	Value      string
	Source     cue.Source
	Confidence float64
}

// Mutation groups the field updates aimed at one row.
type Mutation struct {
	RowID   string
	Updates []FieldUpdate
}

type BatchResult struct {
	Applied int
	Skipped int
}

// Store is an ordered collection of cues with stable ids. Mutations that
// reference a row id the store does not hold are ignored.
type Store struct {
	rows  []cue.Cue
	index map[string]int
}

func New(rows []cue.Cue) *Store {
	s := &Store{}
	s.Restore(rows)
	return s
}

func (s *Store) Len() int {
	return len(s.rows)
}

func (s *Store) GetRow(id string) (cue.Cue, bool) {
	i, ok := s.index[id]
	if !ok {
		return cue.Cue{}, false
	}
	return s.rows[i], true
}

// At returns the row at display position i.
func (s *Store) At(i int) (cue.Cue, bool) {
	if i < 0 || i >= len(s.rows) {
		return cue.Cue{}, false
	}
	return s.rows[i], true
}

func (s *Store) IndexOf(id string) int {
	i, ok := s.index[id]
	if !ok {
		return -1
	}
	return i
}

// Rows returns a copy of every row in display order.
func (s *Store) Rows() []cue.Cue {
	return cue.Clone(s.rows)
}

// Visible returns a copy of the rows that are not hidden.
func (s *Store) Visible() []cue.Cue {
	out := make([]cue.Cue, 0, len(s.rows))
	for _, r := range s.rows {
		if !r.Hidden {
			out = append(out, r)
		}
	}
	return out
}

// Restore replaces the whole row list with a copy of rows.
func (s *Store) Restore(rows []cue.Cue) {
	s.rows = cue.Clone(rows)
	if s.rows == nil {
		s.rows = []cue.Cue{}
	}
	s.reindex()
}

func (s *Store) SetField(id string, field cue.Field, value string, source cue.Source, confidence float64) bool {
	i, ok := s.index[id]
	if !ok || !field.Valid() {
		return false
	}
	s.rows[i].Set(field, value, source, confidence)
	return true
}

// ApplyBatch applies every mutation in order. A mutation whose row no longer
// exists is skipped and the batch continues.
func (s *Store) ApplyBatch(batch []Mutation) BatchResult {
	var res BatchResult
	for _, m := range batch {
		i, ok := s.index[m.RowID]
		if !ok {
			res.Skipped++
			continue
		}
		for _, u := range m.Updates {
			s.rows[i].Set(u.Field, u.Value, u.Source, u.Confidence)
		}
		res.Applied++
	}
	return res
}

// Append adds cues at the end. Cues whose id is already present are dropped.
func (s *Store) Append(rows ...cue.Cue) int {
	added := 0
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		if _, exists := s.index[r.ID]; exists {
			continue
		}
		s.rows = append(s.rows, r)
		s.index[r.ID] = len(s.rows) - 1
		added++
	}
	if added > 0 {
		s.renumber()
	}
	return added
}

// InsertAfter places r right after the row with id after; an unknown id
// appends.
func (s *Store) InsertAfter(after string, r cue.Cue) bool {
	if r.ID == "" {
		return false
	}
	if _, exists := s.index[r.ID]; exists {
		return false
	}
	pos := len(s.rows)
	if i, ok := s.index[after]; ok {
		pos = i + 1
	}
	s.rows = append(s.rows, cue.Cue{})
	copy(s.rows[pos+1:], s.rows[pos:])
	s.rows[pos] = r
	s.reindex()
	return true
}

func (s *Store) Remove(ids ...string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			drop[id] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}
	kept := s.rows[:0]
	for _, r := range s.rows {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	s.reindex()
	return len(drop)
}

func (s *Store) SetHidden(id string, hidden bool) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.rows[i].Hidden = hidden
	return true
}

// Move relocates a row to display position to (clamped).
func (s *Store) Move(id string, to int) bool {
	from, ok := s.index[id]
	if !ok {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to >= len(s.rows) {
		to = len(s.rows) - 1
	}
	if to == from {
		return false
	}
	r := s.rows[from]
	if from < to {
		copy(s.rows[from:to], s.rows[from+1:to+1])
	} else {
		copy(s.rows[to+1:from+1], s.rows[to:from])
	}
	s.rows[to] = r
	s.reindex()
	return true
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.rows))
	for i := range s.rows {
		s.index[s.rows[i].ID] = i
	}
	s.renumber()
}

func (s *Store) renumber() {
	for i := range s.rows {
		s.rows[i].OrderIndex = i
	}
}
