package session

import (
	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/edit"
	"github.com/bekirdag/cuesheet/internal/rowstore"
	"github.com/bekirdag/cuesheet/internal/selection"
)

// commitLocked applies a batch as one unit: one ApplyBatch call followed by
// one history observation. It reports whether the rows changed.
func (m *Manager) commitLocked(kind string, batch []rowstore.Mutation) bool {
	if m.live == nil || len(batch) == 0 {
		return false
	}
	res := m.store.ApplyBatch(batch)
	if res.Skipped > 0 {
		m.logger.Debug("skipped stale rows", "op", kind, "tab", m.live.ID, "skipped", res.Skipped)
	}
	if res.Applied == 0 {
		return false
	}
	return m.afterChangeLocked(kind, res.Applied)
}

// afterChangeLocked runs the history detection pass and marks the live
// document dirty when the rows actually changed.
func (m *Manager) afterChangeLocked(kind string, count int) bool {
	if !m.hist.Observe(m.store.Rows()) {
		return false
	}
	m.sel.Resize(m.store.Len())
	m.markDirtyLocked()
	m.emit(Event{Kind: kind, TabID: m.live.ID, ProjectID: m.live.ProjectID, Count: count})
	return true
}

func (m *Manager) markDirtyLocked() {
	if m.live == nil {
		return
	}
	m.live.dirty = true
	m.live.revision++
}

// BeginSelection starts a selection gesture. An extending click on an idle
// selection completes the gesture at once and is delivered to the listener.
func (m *Manager) BeginSelection(row, col int, extend bool) bool {
	m.mu.Lock()
	if m.live == nil || !m.sel.Begin(row, col, extend) {
		m.unlock()
		return false
	}
	var (
		fin   selection.Finalized
		emit  bool
		tabID = m.live.ID
	)
	if m.sel.Phase() == selection.Idle {
		fin, emit = m.sel.Materialize(m.store.Rows()), true
	}
	m.unlock()
	if emit && m.listener != nil {
		m.listener.SelectionFinalized(tabID, fin)
	}
	return true
}

func (m *Manager) UpdateSelection(row, col int) bool {
	m.mu.Lock()
	defer m.unlock()
	return m.sel.Update(row, col)
}

// FlushSelection applies a drag update held back by the frame limiter.
func (m *Manager) FlushSelection() bool {
	m.mu.Lock()
	defer m.unlock()
	return m.sel.Flush()
}

// EndSelection finishes the drag and hands the finalized selection to the
// listener, once per gesture.
func (m *Manager) EndSelection() (Finalized, bool) {
	m.mu.Lock()
	if m.live == nil {
		m.unlock()
		return Finalized{}, false
	}
	fin, ok := m.sel.End(m.store.Rows())
	tabID := m.live.ID
	m.unlock()
	if ok && m.listener != nil {
		m.listener.SelectionFinalized(tabID, fin)
	}
	return fin, ok
}

// MoveSelection is keyboard navigation.
func (m *Manager) MoveSelection(dRow, dCol int, extend bool) bool {
	m.mu.Lock()
	defer m.unlock()
	return m.sel.Move(dRow, dCol, extend)
}

// ClearSelectionState drops the selection (Escape).
func (m *Manager) ClearSelectionState() {
	m.mu.Lock()
	defer m.unlock()
	m.sel.Clear()
	m.fill.Cancel()
}

func (m *Manager) Selection() (Finalized, bool) {
	m.mu.Lock()
	defer m.unlock()
	if _, ok := m.sel.Bounds(); !ok {
		return Finalized{}, false
	}
	return m.sel.Materialize(m.store.Rows()), true
}

// SelectedRowIDs lists the rows covered by the selection, for annotation
// collaborators.
func (m *Manager) SelectedRowIDs() []string {
	fin, ok := m.Selection()
	if !ok {
		return nil
	}
	return fin.RowIDs
}

// ActiveCell returns the row and column of the active cell.
func (m *Manager) ActiveCell() (cue.Cue, cue.Column, bool) {
	m.mu.Lock()
	defer m.unlock()
	p, ok := m.sel.Active()
	if !ok {
		return cue.Cue{}, cue.Column{}, false
	}
	row, ok := m.store.At(p.Row)
	if !ok {
		return cue.Cue{}, cue.Column{}, false
	}
	col, ok := m.schema.Column(p.Col)
	return row, col, ok
}

// PendingSync is an edit awaiting the backing-store decision. It remembers
// the tab it was raised on.
type PendingSync struct {
	TabID  string
	Prompt edit.SyncPrompt
}

// CommitEdit finishes editing one cell of tabID. When the edit replaces a
// database matched value the returned PendingSync must be resolved with
// ResolveSync; nothing is written until then. An edit aimed at a parked tab
// fails with ErrNotLive and one aimed at a removed row with ErrRowNotFound.
func (m *Manager) CommitEdit(tabID, rowID string, field cue.Field, value string) (*PendingSync, error) {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil {
		return nil, ErrNoLiveDocument
	}
	if m.live.ID != tabID {
		return nil, ErrNotLive
	}
	row, ok := m.store.GetRow(rowID)
	if !ok {
		return nil, ErrRowNotFound
	}
	res := edit.Commit(row, field, value)
	if res.Prompt != nil {
		return &PendingSync{TabID: m.live.ID, Prompt: *res.Prompt}, nil
	}
	if res.Mutation != nil {
		m.commitLocked("edit.commit", []rowstore.Mutation{*res.Mutation})
	}
	return nil, nil
}

// ResolveSync applies a pending database-sync decision. It is ignored with
// ErrNotLive when the user has since switched documents.
func (m *Manager) ResolveSync(p PendingSync, accept bool) error {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil || m.live.ID != p.TabID {
		return ErrNotLive
	}
	m.commitLocked("edit.commit", []rowstore.Mutation{p.Prompt.Resolve(accept)})
	return nil
}

// ClearSelection blanks every editable cell in the selection as one batch.
// It returns the number of rows touched.
func (m *Manager) ClearSelection() int {
	m.mu.Lock()
	defer m.unlock()
	b, ok := m.sel.Bounds()
	if !ok || m.live == nil {
		return 0
	}
	batch := edit.Clear(b, m.schema, m.store.Rows())
	if !m.commitLocked("edit.clear", batch) {
		return 0
	}
	return len(batch)
}

// ApproveSelection confirms every unconfirmed value in the selection.
func (m *Manager) ApproveSelection() int {
	m.mu.Lock()
	defer m.unlock()
	b, ok := m.sel.Bounds()
	if !ok || m.live == nil {
		return 0
	}
	var fields []cue.Field
	for c := b.MinCol; c <= b.MaxCol; c++ {
		if m.schema.Editable(c) {
			fields = append(fields, m.schema[c].Field)
		}
	}
	var batch []rowstore.Mutation
	for r := b.MinRow; r <= b.MaxRow; r++ {
		row, ok := m.store.At(r)
		if !ok {
			continue
		}
		if mut := edit.Approve(row, fields...); mut != nil {
			batch = append(batch, *mut)
		}
	}
	if !m.commitLocked("edit.approve", batch) {
		return 0
	}
	return len(batch)
}

// BeginFill starts a fill-handle drag from the cell at (row, col).
func (m *Manager) BeginFill(row, col int) bool {
	m.mu.Lock()
	defer m.unlock()
	r, ok := m.store.At(row)
	if !ok || !m.schema.Editable(col) {
		return false
	}
	return m.fill.Begin(row, col, r.Value(m.schema[col].Field))
}

func (m *Manager) EnterFill(row, col int) bool {
	m.mu.Lock()
	defer m.unlock()
	if row >= m.store.Len() {
		row = m.store.Len() - 1
	}
	return m.fill.Enter(row, col)
}

// ReleaseFill ends the drag and applies the copy. It returns the number of
// rows written.
func (m *Manager) ReleaseFill() int {
	m.mu.Lock()
	defer m.unlock()
	batch := m.fill.Release(m.store.Rows())
	if !m.commitLocked("edit.fill", batch) {
		return 0
	}
	return len(batch)
}

func (m *Manager) CancelFill() {
	m.mu.Lock()
	defer m.unlock()
	m.fill.Cancel()
}

func (m *Manager) FillActive() bool {
	m.mu.Lock()
	defer m.unlock()
	return m.fill.Active()
}

// CopySelection renders the selection as tab-separated text.
func (m *Manager) CopySelection() string {
	fin, ok := m.Selection()
	if !ok {
		return ""
	}
	return edit.CopyText(fin)
}

// Paste writes tab-separated text into the selection as one batch.
func (m *Manager) Paste(text string) int {
	m.mu.Lock()
	defer m.unlock()
	b, ok := m.sel.Bounds()
	if !ok || m.live == nil {
		return 0
	}
	batch := edit.Paste(b, edit.ParseGrid(text), m.schema, m.store.Rows())
	if !m.commitLocked("edit.paste", batch) {
		return 0
	}
	return len(batch)
}

// ApplySuggestion writes a candidate the user picked. Candidates for a
// parked document are refused; candidates for a vanished row are dropped.
func (m *Manager) ApplySuggestion(tabID string, s Suggestion) error {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil || m.live.ID != tabID {
		return ErrNotLive
	}
	if _, ok := m.store.GetRow(s.RowID); !ok {
		return nil
	}
	m.commitLocked("suggestion.apply", []rowstore.Mutation{{
		RowID: s.RowID,
		Updates: []rowstore.FieldUpdate{{
			Field:      s.Field,
			Value:      s.Value,
			Source:     s.Source,
			Confidence: s.Confidence,
		}},
	}})
	return nil
}

// SuggestionRequest collects the rows missing field: the selected rows when
// there is a selection, otherwise every visible row.
func (m *Manager) SuggestionRequest(field cue.Field) (SuggestionRequest, error) {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil {
		return SuggestionRequest{}, ErrNoLiveDocument
	}
	req := SuggestionRequest{TabID: m.live.ID, ProjectID: m.live.ProjectID, Field: field}
	rows := m.store.Rows()
	lo, hi := 0, len(rows)-1
	if b, ok := m.sel.Bounds(); ok {
		lo, hi = b.MinRow, b.MaxRow
	}
	for i := lo; i <= hi && i < len(rows); i++ {
		r := rows[i]
		if r.Hidden || r.Value(field) != "" {
			continue
		}
		ref := RowRef{RowID: r.ID, Values: make(map[cue.Field]string)}
		for _, f := range cue.Fields() {
			if v := r.Value(f); v != "" {
				ref.Values[f] = v
			}
		}
		req.Rows = append(req.Rows, ref)
	}
	return req, nil
}

// AddRow inserts an empty cue after afterID (or at the end) and returns its
// id.
func (m *Manager) AddRow(afterID string) (string, error) {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil {
		return "", ErrNoLiveDocument
	}
	c := cue.New(m.newID())
	if afterID == "" {
		m.store.Append(c)
	} else {
		m.store.InsertAfter(afterID, c)
	}
	m.afterChangeLocked("row.add", 1)
	return c.ID, nil
}

// RemoveRows deletes rows by id; unknown ids are ignored.
func (m *Manager) RemoveRows(ids ...string) int {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil {
		return 0
	}
	n := m.store.Remove(ids...)
	if n == 0 {
		return 0
	}
	m.afterChangeLocked("row.remove", n)
	m.sel.Clear()
	return n
}

func (m *Manager) ToggleHidden(rowID string) bool {
	m.mu.Lock()
	defer m.unlock()
	row, ok := m.store.GetRow(rowID)
	if !ok || m.live == nil {
		return false
	}
	m.store.SetHidden(rowID, !row.Hidden)
	return m.afterChangeLocked("row.hide", 1)
}

// MoveRow relocates a row by delta positions.
func (m *Manager) MoveRow(rowID string, delta int) bool {
	m.mu.Lock()
	defer m.unlock()
	i := m.store.IndexOf(rowID)
	if i < 0 || m.live == nil {
		return false
	}
	if !m.store.Move(rowID, i+delta) {
		return false
	}
	return m.afterChangeLocked("row.move", 1)
}

// Undo restores the previous snapshot of the live document.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	defer m.unlock()
	rows, ok := m.hist.Undo()
	return m.replayLocked("history.undo", rows, ok)
}

func (m *Manager) Redo() bool {
	m.mu.Lock()
	defer m.unlock()
	rows, ok := m.hist.Redo()
	return m.replayLocked("history.redo", rows, ok)
}

func (m *Manager) replayLocked(kind string, rows []cue.Cue, ok bool) bool {
	if !ok || m.live == nil {
		return false
	}
	m.store.Restore(rows)
	// Consumes the suppress flag armed by Undo/Redo.
	m.hist.Observe(m.store.Rows())
	m.sel.Resize(m.store.Len())
	m.fill.Cancel()
	m.markDirtyLocked()
	m.emit(Event{Kind: kind, TabID: m.live.ID, ProjectID: m.live.ProjectID, Count: m.hist.Index()})
	return true
}
