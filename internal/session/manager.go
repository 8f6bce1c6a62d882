// Package session manages the open cue sheet documents. Exactly one
// document is live at a time: its rows, undo history, selection and fill
// gesture are materialized into the manager's working state, and every
// other document is parked with its own copies. Switching documents parks
// the live one and loads the target in a single locked transition.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/edit"
	"github.com/bekirdag/cuesheet/internal/history"
	"github.com/bekirdag/cuesheet/internal/rowstore"
	"github.com/bekirdag/cuesheet/internal/selection"
)

// MaxDocuments is the default tab limit.
const MaxDocuments = 10

// Event describes a state change, for activity logging.
type Event struct {
	Kind      string
	TabID     string
	ProjectID string
	Count     int
	Detail    string
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithSelectionListener(l SelectionListener) Option {
	return func(m *Manager) { m.listener = l }
}

func WithEventSink(sink func(Event)) Option {
	return func(m *Manager) { m.sink = sink }
}

func WithMaxDocuments(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxDocs = n
		}
	}
}

func WithHistoryCapacity(n int) Option {
	return func(m *Manager) { m.historyCap = n }
}

func WithSelectionOptions(opts ...selection.Option) Option {
	return func(m *Manager) { m.selOpts = append(m.selOpts, opts...) }
}

// WithIDGenerator replaces uuid-based ids, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

type Manager struct {
	mu sync.Mutex

	backing    BackingStore
	logger     *slog.Logger
	listener   SelectionListener
	sink       func(Event)
	schema     cue.Schema
	maxDocs    int
	historyCap int
	selOpts    []selection.Option
	newID      func() string

	docs []*Document
	live *Document

	// Events raised under mu, delivered by unlock.
	queued []Event

	store  *rowstore.Store
	hist   *history.Stack
	sel    *selection.Engine
	fill   *edit.Fill
	info   ProjectInfo
	scroll int
}

func NewManager(backing BackingStore, schema cue.Schema, opts ...Option) *Manager {
	m := &Manager{
		backing:    backing,
		logger:     slog.Default(),
		schema:     schema,
		maxDocs:    MaxDocuments,
		historyCap: history.DefaultCapacity,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.resetWorkingLocked()
	return m
}

func (m *Manager) Schema() cue.Schema { return m.schema }

// Open makes the document for projectID live, loading it from the backing
// store when it is not open yet.
func (m *Manager) Open(ctx context.Context, projectID string) (*Document, error) {
	m.mu.Lock()
	if doc := m.findByProjectLocked(projectID); doc != nil {
		m.switchLocked(doc)
		m.unlock()
		return doc, nil
	}
	full := len(m.docs) >= m.maxDocs
	m.unlock()
	if full {
		m.logger.Warn("open rejected: tab limit reached", "project", projectID, "limit", m.maxDocs)
		return nil, ErrCapacity
	}

	payload, err := m.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	doc, err := m.Adopt(projectID, payload)
	if err != nil {
		return nil, err
	}
	if err := m.Switch(doc.ID); err != nil {
		return nil, err
	}
	return doc, nil
}

// Load reads projectID from the backing store without touching any open
// document. It is safe to call off the UI goroutine; the result is
// installed with Adopt.
func (m *Manager) Load(ctx context.Context, projectID string) (Payload, error) {
	if m.backing == nil {
		return Payload{}, ErrNoBackingStore
	}
	payload, err := m.backing.LoadDocument(ctx, projectID)
	if err != nil {
		return Payload{}, fmt.Errorf("load project %s: %w", projectID, err)
	}
	return payload, nil
}

// Adopt installs a loaded project as a parked tab and returns it. When the
// project is already open the existing document is returned unchanged. The
// live document is not switched.
func (m *Manager) Adopt(projectID string, payload Payload) (*Document, error) {
	m.mu.Lock()
	defer m.unlock()
	if doc := m.findByProjectLocked(projectID); doc != nil {
		return doc, nil
	}
	if len(m.docs) >= m.maxDocs {
		m.logger.Warn("open rejected: tab limit reached", "project", projectID, "limit", m.maxDocs)
		return nil, ErrCapacity
	}
	doc := &Document{
		ID:        m.newID(),
		ProjectID: projectID,
		info:      payload.Info,
		rows:      cue.Clone(payload.Rows),
	}
	m.docs = append(m.docs, doc)
	m.logger.Info("opened document", "tab", doc.ID, "project", projectID, "rows", len(payload.Rows))
	m.emit(Event{Kind: "tab.open", TabID: doc.ID, ProjectID: projectID, Count: len(payload.Rows)})
	return doc, nil
}

// New starts an unsaved project and makes it live.
func (m *Manager) New(info ProjectInfo, rows []cue.Cue) (*Document, error) {
	m.mu.Lock()
	defer m.unlock()
	if len(m.docs) >= m.maxDocs {
		m.logger.Warn("new project rejected: tab limit reached", "limit", m.maxDocs)
		return nil, ErrCapacity
	}
	doc := &Document{
		ID:        m.newID(),
		ProjectID: m.newID(),
		info:      info,
		rows:      cue.Clone(rows),
		dirty:     true,
		revision:  1,
	}
	m.docs = append(m.docs, doc)
	m.switchLocked(doc)
	m.logger.Info("created document", "tab", doc.ID, "project", doc.ProjectID)
	m.emit(Event{Kind: "tab.new", TabID: doc.ID, ProjectID: doc.ProjectID, Count: len(rows)})
	return doc, nil
}

// Switch makes tabID live. Switching to the live tab does nothing.
func (m *Manager) Switch(tabID string) error {
	m.mu.Lock()
	defer m.unlock()
	doc := m.findLocked(tabID)
	if doc == nil {
		return ErrTabNotFound
	}
	m.switchLocked(doc)
	return nil
}

// SwitchRelative moves to the tab delta positions away, wrapping around.
func (m *Manager) SwitchRelative(delta int) bool {
	m.mu.Lock()
	defer m.unlock()
	if len(m.docs) < 2 || m.live == nil {
		return false
	}
	i := m.indexLocked(m.live.ID)
	next := ((i+delta)%len(m.docs) + len(m.docs)) % len(m.docs)
	m.switchLocked(m.docs[next])
	return true
}

// Close removes a tab. Closing the live tab first switches to the tab that
// takes its place (or the last tab), or clears the working state when no
// tab remains.
func (m *Manager) Close(tabID string) error {
	m.mu.Lock()
	defer m.unlock()
	i := m.indexLocked(tabID)
	if i < 0 {
		return ErrTabNotFound
	}
	doc := m.docs[i]
	remaining := make([]*Document, 0, len(m.docs)-1)
	remaining = append(remaining, m.docs[:i]...)
	remaining = append(remaining, m.docs[i+1:]...)
	if m.live == doc {
		if len(remaining) == 0 {
			m.live = nil
			m.resetWorkingLocked()
		} else {
			m.switchLocked(remaining[min(i, len(remaining)-1)])
		}
	}
	m.docs = remaining
	m.logger.Info("closed document", "tab", doc.ID, "project", doc.ProjectID, "dirty", doc.dirty)
	m.emit(Event{Kind: "tab.close", TabID: doc.ID, ProjectID: doc.ProjectID})
	return nil
}

func (m *Manager) switchLocked(target *Document) {
	if m.live == target {
		return
	}
	if m.live != nil {
		m.live.rows = m.store.Rows()
		m.live.history = m.hist.State()
		m.live.info = m.info
		m.live.scroll = m.scroll
	}

	m.store.Restore(target.rows)
	m.hist = history.FromState(target.history, m.historyCap)
	if m.hist.Len() == 0 {
		m.hist.Observe(m.store.Rows())
	}
	m.info = target.info
	m.scroll = target.scroll
	target.rows = nil
	target.history = history.State{}

	m.sel = selection.New(m.schema, m.store.Len(), m.selOpts...)
	m.fill = edit.NewFill(m.schema)
	m.live = target
	m.emit(Event{Kind: "tab.switch", TabID: target.ID, ProjectID: target.ProjectID})
}

func (m *Manager) resetWorkingLocked() {
	m.store = rowstore.New(nil)
	m.hist = history.New(m.historyCap)
	m.sel = selection.New(m.schema, 0, m.selOpts...)
	m.fill = edit.NewFill(m.schema)
	m.info = ProjectInfo{}
	m.scroll = 0
}

func (m *Manager) findLocked(tabID string) *Document {
	if i := m.indexLocked(tabID); i >= 0 {
		return m.docs[i]
	}
	return nil
}

func (m *Manager) indexLocked(tabID string) int {
	for i, d := range m.docs {
		if d.ID == tabID {
			return i
		}
	}
	return -1
}

func (m *Manager) findByProjectLocked(projectID string) *Document {
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			return d
		}
	}
	return nil
}

// emit queues ev for the sink. Callers hold mu.
func (m *Manager) emit(ev Event) {
	if m.sink != nil {
		m.queued = append(m.queued, ev)
	}
}

// unlock releases mu and then hands the queued events to the sink, so the
// sink never runs under the lock.
func (m *Manager) unlock() {
	events := m.queued
	m.queued = nil
	m.mu.Unlock()
	for _, ev := range events {
		m.sink(ev)
	}
}

// Live returns the live tab id, or "" when nothing is open.
func (m *Manager) Live() string {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil {
		return ""
	}
	return m.live.ID
}

func (m *Manager) Tabs() []TabInfo {
	m.mu.Lock()
	defer m.unlock()
	return m.tabsLocked()
}

func (m *Manager) tabsLocked() []TabInfo {
	out := make([]TabInfo, 0, len(m.docs))
	for _, d := range m.docs {
		info := TabInfo{
			ID:        d.ID,
			ProjectID: d.ProjectID,
			Title:     d.title(),
			Dirty:     d.dirty,
			Live:      d == m.live,
		}
		if d == m.live && m.info.Name != "" {
			info.Title = m.info.Name
		}
		if d.saveErr != nil {
			info.SaveError = d.saveErr.Error()
		}
		out = append(out, info)
	}
	return out
}

// Rows returns a copy of the live rows.
func (m *Manager) Rows() []cue.Cue {
	m.mu.Lock()
	defer m.unlock()
	return m.store.Rows()
}

func (m *Manager) GetRow(id string) (cue.Cue, bool) {
	m.mu.Lock()
	defer m.unlock()
	return m.store.GetRow(id)
}

func (m *Manager) ProjectInfo() ProjectInfo {
	m.mu.Lock()
	defer m.unlock()
	return m.info
}

// SetProjectInfo replaces the live project's metadata and marks it dirty.
func (m *Manager) SetProjectInfo(info ProjectInfo) error {
	m.mu.Lock()
	defer m.unlock()
	if m.live == nil {
		return ErrNoLiveDocument
	}
	if info == m.info {
		return nil
	}
	m.info = info
	m.markDirtyLocked()
	return nil
}

func (m *Manager) SetScroll(offset int) {
	m.mu.Lock()
	defer m.unlock()
	if offset < 0 {
		offset = 0
	}
	m.scroll = offset
}

// View is a consistent picture of the live working state, taken under one
// lock so rows, history and selection always belong to the same document.
type View struct {
	TabID        string
	ProjectID    string
	Tabs         []TabInfo
	Info         ProjectInfo
	Rows         []cue.Cue
	Scroll       int
	Dirty        bool
	HistoryIndex int
	HistoryLen   int
	CanUndo      bool
	CanRedo      bool

	Selection    selection.Bounds
	HasSelection bool
	Active       selection.Point
	Phase        selection.Phase

	FillActive bool
	FillCol    int
	FillLo     int
	FillHi     int
}

func (m *Manager) View() View {
	m.mu.Lock()
	defer m.unlock()
	v := View{
		Tabs:         m.tabsLocked(),
		Info:         m.info,
		Rows:         m.store.Rows(),
		Scroll:       m.scroll,
		HistoryIndex: m.hist.Index(),
		HistoryLen:   m.hist.Len(),
		CanUndo:      m.hist.CanUndo(),
		CanRedo:      m.hist.CanRedo(),
		Phase:        m.sel.Phase(),
	}
	if m.live != nil {
		v.TabID = m.live.ID
		v.ProjectID = m.live.ProjectID
		v.Dirty = m.live.dirty
	}
	v.Selection, v.HasSelection = m.sel.Bounds()
	v.Active, _ = m.sel.Active()
	if lo, hi, ok := m.fill.Range(); ok {
		v.FillActive = true
		v.FillCol = m.fill.Column()
		v.FillLo, v.FillHi = lo, hi
	}
	return v
}
