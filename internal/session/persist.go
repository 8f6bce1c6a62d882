package session

import (
	"context"
	"fmt"

	"github.com/bekirdag/cuesheet/internal/cue"
)

// SaveJob is a snapshot of one document taken for an autosave. Revision is
// handed back to MarkSaved so edits made during the write keep the document
// dirty.
type SaveJob struct {
	TabID     string
	ProjectID string
	Revision  uint64
	Payload   Payload
}

// SaveRequest snapshots tabID for saving. It reports false when the tab is
// unknown or has nothing to save.
func (m *Manager) SaveRequest(tabID string) (SaveJob, bool) {
	m.mu.Lock()
	defer m.unlock()
	doc := m.findLocked(tabID)
	if doc == nil || !doc.dirty {
		return SaveJob{}, false
	}
	job := SaveJob{TabID: doc.ID, ProjectID: doc.ProjectID, Revision: doc.revision}
	if doc == m.live {
		job.Payload = Payload{Info: m.info, Rows: m.store.Rows()}
	} else {
		job.Payload = Payload{Info: doc.info, Rows: cue.Clone(doc.rows)}
	}
	return job, true
}

// MarkSaved clears the dirty flag when no edit landed after the snapshot.
func (m *Manager) MarkSaved(tabID string, revision uint64) bool {
	m.mu.Lock()
	defer m.unlock()
	doc := m.findLocked(tabID)
	if doc == nil {
		return false
	}
	doc.saveErr = nil
	if doc.revision != revision {
		return false
	}
	doc.dirty = false
	m.emit(Event{Kind: "save.ok", TabID: doc.ID, ProjectID: doc.ProjectID})
	return true
}

// SaveFailed records err against the tab; the document stays dirty.
func (m *Manager) SaveFailed(tabID string, err error) {
	m.mu.Lock()
	defer m.unlock()
	doc := m.findLocked(tabID)
	if doc == nil {
		return
	}
	doc.saveErr = err
	m.logger.Error("save failed", "tab", doc.ID, "project", doc.ProjectID, "err", err)
	m.emit(Event{Kind: "save.failed", TabID: doc.ID, ProjectID: doc.ProjectID, Detail: err.Error()})
}

// DirtyDocuments lists the tabs with unsaved changes.
func (m *Manager) DirtyDocuments() []string {
	m.mu.Lock()
	defer m.unlock()
	var out []string
	for _, d := range m.docs {
		if d.dirty {
			out = append(out, d.ID)
		}
	}
	return out
}

// Save writes tabID through the backing store.
func (m *Manager) Save(ctx context.Context, tabID string) error {
	if m.backing == nil {
		return ErrNoBackingStore
	}
	job, ok := m.SaveRequest(tabID)
	if !ok {
		return nil
	}
	if err := m.backing.SaveDocument(ctx, job.ProjectID, job.Payload); err != nil {
		err = fmt.Errorf("save project %s: %w", job.ProjectID, err)
		m.SaveFailed(tabID, err)
		return err
	}
	m.MarkSaved(tabID, job.Revision)
	return nil
}

// ExportPayload collects the live document's visible rows for exporters.
func (m *Manager) ExportPayload() (ExportPayload, error) {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil {
		return ExportPayload{}, ErrNoLiveDocument
	}
	return ExportPayload{
		ProjectID: m.live.ProjectID,
		Info:      m.info,
		Rows:      m.store.Visible(),
	}, nil
}

// VisibleRows returns a copy of the live rows that are not hidden.
func (m *Manager) VisibleRows() []cue.Cue {
	m.mu.Lock()
	defer m.unlock()
	return m.store.Visible()
}
