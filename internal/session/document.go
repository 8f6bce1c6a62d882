package session

import (
	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/history"
	"github.com/bekirdag/cuesheet/internal/selection"
)

// Finalized is the selection emitted at the end of a gesture.
type Finalized = selection.Finalized

// Document is one open tab. While parked it holds its rows, history and
// scroll position; while live those belong to the manager's working state
// and the fields here are empty.
type Document struct {
	ID        string
	ProjectID string

	info     ProjectInfo
	rows     []cue.Cue
	history  history.State
	scroll   int
	dirty    bool
	revision uint64
	saveErr  error
}

// TabInfo is a read-only summary of a document for tab strips.
type TabInfo struct {
	ID        string
	ProjectID string
	Title     string
	Dirty     bool
	Live      bool
	SaveError string
}

func (d *Document) title() string {
	if d.info.Name != "" {
		return d.info.Name
	}
	return d.ProjectID
}
