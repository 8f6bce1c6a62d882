// Package history keeps the linear undo/redo stack of one document.
//
// The stack holds immutable copies of the row list. A single cursor points
// at the snapshot matching the current rows. Undo and redo move the cursor
// and hand back a copy of the snapshot to restore; the restoration itself
// must not be recorded, so both set a one-shot suppress flag that the next
// Observe call consumes.
package history

import "github.com/bekirdag/cuesheet/internal/cue"

// DefaultCapacity is the number of snapshots a document keeps.
const DefaultCapacity = 50

type Stack struct {
	snapshots [][]cue.Cue
	index     int
	capacity  int
	suppress  bool
}

// State is the exported form of a stack, used to park a document's history
// while another document is live.
type State struct {
	Snapshots [][]cue.Cue
	Index     int
	Suppress  bool
}

func New(capacity int) *Stack {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Stack{capacity: capacity, index: -1}
}

// FromState rebuilds a stack exactly as it was parked.
func FromState(state State, capacity int) *Stack {
	s := New(capacity)
	s.snapshots = state.Snapshots
	s.index = state.Index
	s.suppress = state.Suppress
	if len(s.snapshots) == 0 {
		s.index = -1
	}
	return s
}

// State hands the snapshots and cursor over to the caller. Snapshots are
// never mutated after creation, so sharing the slices is safe.
func (s *Stack) State() State {
	return State{Snapshots: s.snapshots, Index: s.index, Suppress: s.suppress}
}

// Observe is the mutation-detection pass run after every change to the rows.
// It records rows as a new snapshot unless suppressed or unchanged, and
// reports whether a snapshot was added.
func (s *Stack) Observe(rows []cue.Cue) bool {
	if s.suppress {
		s.suppress = false
		return false
	}
	if s.index >= 0 && cue.EqualRows(s.snapshots[s.index], rows) {
		return false
	}
	if s.index+1 < len(s.snapshots) {
		for i := s.index + 1; i < len(s.snapshots); i++ {
			s.snapshots[i] = nil
		}
		s.snapshots = s.snapshots[:s.index+1]
	}
	s.snapshots = append(s.snapshots, cue.Clone(rows))
	s.index++
	if over := len(s.snapshots) - s.capacity; over > 0 {
		s.snapshots = append([][]cue.Cue(nil), s.snapshots[over:]...)
		s.index -= over
	}
	return true
}

// Undo steps the cursor back. It returns the rows to restore, or false at
// the oldest snapshot.
func (s *Stack) Undo() ([]cue.Cue, bool) {
	if s.index <= 0 {
		return nil, false
	}
	s.index--
	s.suppress = true
	return cue.Clone(s.snapshots[s.index]), true
}

// Redo steps the cursor forward. It returns the rows to restore, or false at
// the newest snapshot.
func (s *Stack) Redo() ([]cue.Cue, bool) {
	if s.index < 0 || s.index >= len(s.snapshots)-1 {
		return nil, false
	}
	s.index++
	s.suppress = true
	return cue.Clone(s.snapshots[s.index]), true
}

func (s *Stack) CanUndo() bool { return s.index > 0 }

func (s *Stack) CanRedo() bool { return s.index >= 0 && s.index < len(s.snapshots)-1 }

func (s *Stack) Len() int { return len(s.snapshots) }

// Index is the cursor position, -1 before the first snapshot.
func (s *Stack) Index() int { return s.index }

func (s *Stack) Capacity() int { return s.capacity }

// Current returns a copy of the snapshot under the cursor.
func (s *Stack) Current() ([]cue.Cue, bool) {
	if s.index < 0 {
		return nil, false
	}
	return cue.Clone(s.snapshots[s.index]), true
}
