package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/export"
	"github.com/bekirdag/cuesheet/internal/selection"
	"github.com/bekirdag/cuesheet/internal/session"
	"github.com/bekirdag/cuesheet/internal/store"
)

const (
	ioTimeout   = 15 * time.Second
	gridTop     = 3
	logsHeight  = 8
	pageOverlap = 1
)

type inputMode int

const (
	modeGrid inputMode = iota
	modeEdit
	modeSync
	modeSuggest
	modePicker
	modeNewProject
	modeAnnotate
	modeRename
	modeHelp
)

type dragMode int

const (
	dragNone dragMode = iota
	dragSelect
	dragFill
)

// projectCatalog lists, creates and deletes projects for the picker.
type projectCatalog interface {
	ListProjects(ctx context.Context) ([]store.ProjectSummary, error)
	CreateProject(ctx context.Context, info session.ProjectInfo) (string, error)
	DeleteProject(ctx context.Context, projectID string) error
}

type appDeps struct {
	cfg         *appConfig
	configPath  string
	logger      *slog.Logger
	activity    *activityLogger
	backing     session.BackingStore
	catalog     projectCatalog
	suggester   session.SuggestionProvider
	annotations session.AnnotationStore
	exporter    session.Exporter
	managerOpts []session.Option
}

// projectOpenedMsg carries a loaded project. It is installed in Update so
// the live tab never changes behind an open input.
type projectOpenedMsg struct {
	ProjectID string
	Payload   session.Payload
	Err       error
}

type projectsLoadedMsg struct {
	Projects []store.ProjectSummary
	Err      error
}

type projectCreatedMsg struct {
	ProjectID string
	Err       error
}

type projectDeletedMsg struct {
	ProjectID string
	Err       error
}

// closeSavedMsg reports the save that precedes closing a tab.
type closeSavedMsg struct {
	TabID    string
	Revision uint64
	Err      error
}

type suggestionsMsg struct {
	TabID string
	Field cue.Field
	Items []session.Suggestion
	Err   error
}

type annotationsMsg struct {
	ProjectID string
	Items     []session.Annotation
	Err       error
}

type annotatedMsg struct {
	ProjectID string
	RowIDs    []string
	Note      string
	Err       error
}

type exportDoneMsg struct {
	ProjectID string
	Path      string
	Rows      int
	Err       error
}

type saveResultMsg struct {
	TabID     string
	ProjectID string
	Revision  uint64
	Err       error
}

type autosaveMsg struct {
	gen int
}

// frameMsg flushes a drag update held back by the selection frame limiter.
type frameMsg struct{}

type listEntry struct {
	title   string
	desc    string
	payload string
}

func (e listEntry) Title() string       { return e.title }
func (e listEntry) Description() string { return e.desc }
func (e listEntry) FilterValue() string { return e.title }

type model struct {
	width  int
	height int

	styles   styles
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	input    textinput.Model
	logs     viewport.Model
	helpView viewport.Model
	picker   list.Model

	cfg         *appConfig
	configPath  string
	logger      *slog.Logger
	activity    *activityLogger
	schema      cue.Schema
	manager     *session.Manager
	backing     session.BackingStore
	catalog     projectCatalog
	suggester   session.SuggestionProvider
	annotations session.AnnotationStore
	exporter    session.Exporter
	jobs        *jobManager
	theme       markdownTheme
	md          *markdown

	readClipboard  func() (string, error)
	writeClipboard func(string) error

	mode           inputMode
	drag           dragMode
	frameScheduled bool
	colOffset      int

	editTabID   string
	editRowID   string
	editField   cue.Field
	pendingSync *session.PendingSync

	suggestions []session.Suggestion
	suggestTab  string
	suggestIdx  int

	annotated     map[string]string
	lastSelection string

	saveGen      int
	busy         int
	busyMessage  string
	showLogs     bool
	logLines     []string
	toastMessage string
	toastExpires time.Time
}

func newModel(deps appDeps) *model {
	cfg := deps.cfg
	if cfg == nil {
		cfg = defaultConfig()
	}
	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
	}

	input := textinput.New()
	input.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	delegate := list.NewDefaultDelegate()
	picker := list.New(nil, delegate, 60, 10)
	picker.Title = "Open project"
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(false)
	picker.SetShowHelp(false)

	m := &model{
		styles:         newStyles(),
		keys:           newKeyMap(),
		help:           help.New(),
		spinner:        sp,
		input:          input,
		logs:           viewport.New(80, logsHeight),
		helpView:       viewport.New(80, 20),
		picker:         picker,
		cfg:            cfg,
		configPath:     deps.configPath,
		logger:         logger,
		activity:       deps.activity,
		schema:         cue.DefaultColumns(),
		backing:        deps.backing,
		catalog:        deps.catalog,
		suggester:      deps.suggester,
		annotations:    deps.annotations,
		exporter:       deps.exporter,
		jobs:           newJobManager(),
		theme:          parseTheme(cfg.Theme),
		md:             newMarkdown(parseTheme(cfg.Theme)),
		readClipboard:  clipboard.ReadAll,
		writeClipboard: clipboard.WriteAll,
		annotated:      make(map[string]string),
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithSelectionListener(session.SelectionListenerFunc(m.onSelectionFinalized)),
	}
	if deps.activity != nil {
		opts = append(opts, session.WithEventSink(deps.activity.sessionSink()))
	}
	opts = append(opts, deps.managerOpts...)
	m.manager = session.NewManager(deps.backing, m.schema, opts...)
	return m
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if v := m.manager.View(); v.ProjectID != "" {
		cmds = append(cmds, m.loadAnnotationsCmd(v.ProjectID))
	}
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))
	case frameMsg:
		m.frameScheduled = false
		if m.drag == dragSelect {
			m.manager.FlushSelection()
		}
	case autosaveMsg:
		if msg.gen == m.saveGen {
			cmds = append(cmds, m.saveDirtyCmd())
		}
	case saveResultMsg:
		m.handleSaveResult(msg)
	case projectOpenedMsg:
		cmds = append(cmds, m.handleProjectOpened(msg))
	case projectsLoadedMsg:
		cmds = append(cmds, m.handleProjectsLoaded(msg))
	case projectCreatedMsg:
		m.stopBusy()
		if msg.Err != nil {
			m.reportError("Could not create project", msg.Err)
			break
		}
		cmds = append(cmds, m.openProjectCmd(msg.ProjectID))
	case projectDeletedMsg:
		m.stopBusy()
		if msg.Err != nil {
			m.reportError("Could not delete project", msg.Err)
			break
		}
		m.activity.emitSimple("project.delete", msg.ProjectID, nil)
		m.setToast("Project deleted", 3*time.Second)
		cmds = append(cmds, m.loadProjectsCmd())
	case closeSavedMsg:
		m.stopBusy()
		cmds = append(cmds, m.handleCloseSaved(msg))
	case suggestionsMsg:
		m.handleSuggestions(msg)
	case annotationsMsg:
		m.handleAnnotations(msg)
	case annotatedMsg:
		m.stopBusy()
		if msg.Err != nil {
			m.reportError("Annotation failed", msg.Err)
			break
		}
		if m.manager.View().ProjectID == msg.ProjectID {
			for _, id := range msg.RowIDs {
				m.annotated[id] = msg.Note
			}
		}
		m.setToast(fmt.Sprintf("Annotated %d cue(s)", len(msg.RowIDs)), 3*time.Second)
	case exportDoneMsg:
		cmds = append(cmds, m.handleExportDone(msg))
	case jobMsg:
		cmds = append(cmds, m.handleJobMessage(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *model) resize() {
	m.help.Width = max(m.width-2, 0)
	m.logs.Width = max(m.width-4, 10)
	m.logs.Height = logsHeight - 2
	m.helpView.Width = max(m.width-2, 10)
	m.helpView.Height = max(m.gridHeight()+1, 3)
	m.input.Width = max(m.width-24, 10)
	m.picker.SetSize(max(m.width-4, 20), max(m.panelHeight()-2, 4))
	m.md.setWidth(min(max(m.width-8, 20), 100))
	m.ensureVisible()
}

func (m *model) panelHeight() int {
	switch m.mode {
	case modeEdit, modeNewProject, modeAnnotate, modeRename, modeSync:
		return 3
	case modeSuggest, modePicker:
		return 12
	default:
		return 0
	}
}

func (m *model) footerHeight() int {
	h := 2 + m.panelHeight()
	if m.showLogs {
		h += logsHeight
	}
	return h
}

// gridHeight is the number of cue rows on screen.
func (m *model) gridHeight() int {
	return max(m.height-gridTop-m.footerHeight(), 1)
}

func (m *model) layout() gridLayout {
	return layoutColumns(m.schema, max(m.width, 20), m.colOffset)
}

func (m *model) changed() tea.Cmd {
	m.saveGen++
	gen := m.saveGen
	delay := m.cfg.AutosaveDelay
	if delay <= 0 {
		delay = defaultAutosaveDelay
	}
	return tea.Tick(delay, func(time.Time) tea.Msg { return autosaveMsg{gen: gen} })
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.mode {
	case modeEdit, modeNewProject, modeAnnotate, modeRename:
		return m.handleInputKey(msg)
	case modeSync:
		return m.handleSyncKey(msg)
	case modeSuggest:
		return m.handleSuggestKey(msg)
	case modePicker:
		return m.handlePickerKey(msg)
	case modeHelp:
		if key.Matches(msg, m.keys.escape, m.keys.toggleHelp, m.keys.quit) {
			m.mode = modeGrid
			return nil
		}
		var cmd tea.Cmd
		m.helpView, cmd = m.helpView.Update(msg)
		return cmd
	}
	return m.handleGridKey(msg)
}

func (m *model) handleGridKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.quit):
		return tea.Quit
	case key.Matches(msg, k.toggleHelp):
		m.openHelp()
	case key.Matches(msg, k.extUp):
		m.move(-1, 0, true)
	case key.Matches(msg, k.extDown):
		m.move(1, 0, true)
	case key.Matches(msg, k.extLeft):
		m.move(0, -1, true)
	case key.Matches(msg, k.extRight):
		m.move(0, 1, true)
	case key.Matches(msg, k.up):
		m.move(-1, 0, false)
	case key.Matches(msg, k.down):
		m.move(1, 0, false)
	case key.Matches(msg, k.left):
		m.move(0, -1, false)
	case key.Matches(msg, k.right):
		m.move(0, 1, false)
	case key.Matches(msg, k.pageUp):
		m.move(-(m.gridHeight() - pageOverlap), 0, false)
	case key.Matches(msg, k.pageDown):
		m.move(m.gridHeight()-pageOverlap, 0, false)
	case key.Matches(msg, k.edit):
		return m.beginEdit()
	case key.Matches(msg, k.clear):
		if n := m.manager.ClearSelection(); n > 0 {
			m.setToast(fmt.Sprintf("Cleared %d cue(s)", n), 3*time.Second)
			return m.changed()
		}
	case key.Matches(msg, k.approve):
		if n := m.manager.ApproveSelection(); n > 0 {
			m.setToast(fmt.Sprintf("Approved values on %d cue(s)", n), 3*time.Second)
			return m.changed()
		}
		m.setToast("Nothing to approve", 3*time.Second)
	case key.Matches(msg, k.fillDown):
		return m.fillDown()
	case key.Matches(msg, k.copy):
		m.copySelection()
	case key.Matches(msg, k.paste):
		return m.pasteClipboard()
	case key.Matches(msg, k.undo):
		if m.manager.Undo() {
			m.setToast("Undone", 2*time.Second)
			return m.changed()
		}
		m.setToast("Nothing to undo", 2*time.Second)
	case key.Matches(msg, k.redo):
		if m.manager.Redo() {
			m.setToast("Redone", 2*time.Second)
			return m.changed()
		}
		m.setToast("Nothing to redo", 2*time.Second)
	case key.Matches(msg, k.suggest):
		return m.requestSuggestions()
	case key.Matches(msg, k.addRow):
		return m.addRow()
	case key.Matches(msg, k.removeRows):
		return m.removeSelectedRows()
	case key.Matches(msg, k.moveRowUp):
		return m.moveActiveRow(-1)
	case key.Matches(msg, k.moveRowDown):
		return m.moveActiveRow(1)
	case key.Matches(msg, k.rename):
		if m.manager.Live() == "" {
			return nil
		}
		m.openInput(modeRename, "Project name: ", m.manager.ProjectInfo().Name)
	case key.Matches(msg, k.toggleHidden):
		if row, _, ok := m.manager.ActiveCell(); ok && m.manager.ToggleHidden(row.ID) {
			return m.changed()
		}
	case key.Matches(msg, k.annotate):
		m.beginAnnotate()
	case key.Matches(msg, k.openProject):
		return m.loadProjectsCmd()
	case key.Matches(msg, k.newProject):
		m.openInput(modeNewProject, "New project: ", "")
	case key.Matches(msg, k.closeTab):
		return m.closeLiveTab()
	case key.Matches(msg, k.nextTab):
		return m.switchRelative(1)
	case key.Matches(msg, k.prevTab):
		return m.switchRelative(-1)
	case key.Matches(msg, k.save):
		return m.saveDirtyCmd()
	case key.Matches(msg, k.export):
		return m.exportCmd()
	case key.Matches(msg, k.escape):
		if m.manager.FillActive() {
			m.manager.CancelFill()
			m.drag = dragNone
			return nil
		}
		m.manager.ClearSelectionState()
		m.lastSelection = ""
	case key.Matches(msg, k.toggleTheme):
		m.theme = m.theme.next()
		m.md.setTheme(m.theme)
		m.cfg.Theme = string(m.theme)
		m.setToast("Theme: "+m.theme.label(), 2*time.Second)
	case key.Matches(msg, k.toggleLogs):
		m.showLogs = !m.showLogs
		m.resize()
	}
	return nil
}

func (m *model) move(dRow, dCol int, extend bool) {
	if m.manager.MoveSelection(dRow, dCol, extend) {
		m.ensureVisible()
	}
}

// ensureVisible scrolls so the active cell is on screen.
func (m *model) ensureVisible() {
	v := m.manager.View()
	if !v.HasSelection {
		return
	}
	h := m.gridHeight()
	scroll := v.Scroll
	if v.Active.Row < scroll {
		scroll = v.Active.Row
	} else if v.Active.Row >= scroll+h {
		scroll = v.Active.Row - h + 1
	}
	if scroll != v.Scroll {
		m.manager.SetScroll(scroll)
	}

	if v.Active.Col < frozenColumns || m.width <= 0 {
		return
	}
	if v.Active.Col < m.colOffset {
		m.colOffset = v.Active.Col
	}
	for m.colOffset < len(m.schema)-1 && m.layout().lastColumn() < v.Active.Col {
		m.colOffset++
	}
}

func (m *model) scrollBy(delta int) {
	v := m.manager.View()
	limit := max(len(v.Rows)-m.gridHeight(), 0)
	m.manager.SetScroll(min(max(v.Scroll+delta, 0), limit))
}

func (m *model) beginEdit() tea.Cmd {
	row, col, ok := m.manager.ActiveCell()
	if !ok {
		m.setToast("Select a cell first", 3*time.Second)
		return nil
	}
	if !col.Editable {
		m.setToast(col.Title+" is read-only", 3*time.Second)
		return nil
	}
	m.editTabID = m.manager.Live()
	m.editRowID = row.ID
	m.editField = col.Field
	m.openInput(modeEdit, col.Title+": ", row.Value(col.Field))
	return textinput.Blink
}

func (m *model) openInput(mode inputMode, prompt, value string) {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
	m.resize()
}

func (m *model) closeInput() {
	m.input.Blur()
	m.input.SetValue("")
	m.mode = modeGrid
	m.editTabID = ""
	m.editRowID = ""
	m.pendingSync = nil
	m.resize()
}

func (m *model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return nil
	case "enter":
		return m.submitInput(false)
	case "tab":
		if m.mode == modeEdit {
			return m.submitInput(true)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *model) submitInput(advance bool) tea.Cmd {
	value := m.input.Value()
	switch m.mode {
	case modeEdit:
		p, err := m.manager.CommitEdit(m.editTabID, m.editRowID, m.editField, value)
		if err != nil {
			m.closeInput()
			m.reportError("Edit not saved", err)
			return nil
		}
		if p != nil {
			m.pendingSync = p
			m.mode = modeSync
			m.input.Blur()
			return nil
		}
		m.closeInput()
		if advance {
			m.move(0, 1, false)
		}
		return m.changed()
	case modeNewProject:
		m.closeInput()
		return m.createProject(strings.TrimSpace(value))
	case modeAnnotate:
		m.closeInput()
		return m.annotateCmd(strings.TrimSpace(value))
	case modeRename:
		m.closeInput()
		return m.renameProject(strings.TrimSpace(value))
	}
	return nil
}

func (m *model) handleSyncKey(msg tea.KeyMsg) tea.Cmd {
	if m.pendingSync == nil {
		m.closeInput()
		return nil
	}
	p := *m.pendingSync
	switch strings.ToLower(msg.String()) {
	case "y":
		m.closeInput()
		return m.resolveSync(p, true)
	case "n":
		m.closeInput()
		return m.resolveSync(p, false)
	case "esc":
		m.closeInput()
		m.setToast("Edit discarded", 2*time.Second)
	}
	return nil
}

func (m *model) resolveSync(p session.PendingSync, accept bool) tea.Cmd {
	if err := m.manager.ResolveSync(p, accept); err != nil {
		m.reportError("Edit dropped", err)
		return nil
	}
	if accept {
		m.setToast("Saved as user-synced", 3*time.Second)
	}
	return m.changed()
}

func (m *model) fillDown() tea.Cmd {
	v := m.manager.View()
	if !v.HasSelection {
		m.setToast("Select a range first", 3*time.Second)
		return nil
	}
	b := v.Selection
	col := v.Active.Col
	if !m.schema.Editable(col) {
		m.setToast("Fill works on editable columns", 3*time.Second)
		return nil
	}
	if !m.manager.BeginFill(b.MinRow, col) {
		return nil
	}
	m.manager.EnterFill(b.MaxRow, col)
	if n := m.manager.ReleaseFill(); n > 0 {
		m.setToast(fmt.Sprintf("Filled %d cue(s)", n), 3*time.Second)
		return m.changed()
	}
	return nil
}

func (m *model) copySelection() {
	text := m.manager.CopySelection()
	if text == "" {
		m.setToast("Nothing selected", 3*time.Second)
		return
	}
	if err := m.writeClipboard(text); err != nil {
		m.appendLog(fmt.Sprintf("Failed to copy selection: %v", err))
		m.setToast("Clipboard unavailable", 4*time.Second)
		return
	}
	m.setToast("Selection copied", 2*time.Second)
}

func (m *model) pasteClipboard() tea.Cmd {
	text, err := m.readClipboard()
	if err != nil {
		m.appendLog(fmt.Sprintf("Failed to read clipboard: %v", err))
		m.setToast("Clipboard unavailable", 4*time.Second)
		return nil
	}
	n := m.manager.Paste(text)
	if n == 0 {
		m.setToast("Nothing pasted", 2*time.Second)
		return nil
	}
	m.setToast(fmt.Sprintf("Pasted into %d cue(s)", n), 3*time.Second)
	return m.changed()
}

func (m *model) addRow() tea.Cmd {
	after := ""
	if row, _, ok := m.manager.ActiveCell(); ok {
		after = row.ID
	}
	if _, err := m.manager.AddRow(after); err != nil {
		m.reportError("Cannot add cue", err)
		return nil
	}
	m.move(1, 0, false)
	return m.changed()
}

// moveActiveRow shifts the cue under the cursor and keeps the cursor on it.
func (m *model) moveActiveRow(delta int) tea.Cmd {
	row, _, ok := m.manager.ActiveCell()
	if !ok || !m.manager.MoveRow(row.ID, delta) {
		return nil
	}
	m.move(delta, 0, false)
	return m.changed()
}

func (m *model) renameProject(name string) tea.Cmd {
	if name == "" {
		m.setToast("Project name required", 3*time.Second)
		return nil
	}
	info := m.manager.ProjectInfo()
	if info.Name == name {
		return nil
	}
	info.Name = name
	if err := m.manager.SetProjectInfo(info); err != nil {
		m.reportError("Rename failed", err)
		return nil
	}
	return m.changed()
}

func (m *model) removeSelectedRows() tea.Cmd {
	ids := m.manager.SelectedRowIDs()
	if len(ids) == 0 {
		m.setToast("Select cues to delete", 3*time.Second)
		return nil
	}
	n := m.manager.RemoveRows(ids...)
	m.setToast(fmt.Sprintf("Deleted %d cue(s)", n), 3*time.Second)
	return m.changed()
}

func (m *model) onSelectionFinalized(tabID string, fin session.Finalized) {
	m.lastSelection = fmt.Sprintf("%d×%d", fin.Bounds.Rows(), fin.Bounds.MaxCol-fin.Bounds.MinCol+1)
	m.logger.Debug("selection finalized", "tab", tabID, "rows", len(fin.RowIDs), "cells", len(fin.Cells))
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if m.mode != modeGrid {
		return nil
	}
	switch msg.Type {
	case tea.MouseWheelUp:
		m.scrollBy(-3)
	case tea.MouseWheelDown:
		m.scrollBy(3)
	case tea.MouseRelease:
		return m.endDrag()
	case tea.MouseMotion:
		if m.drag != dragNone {
			return m.dragTo(msg.X, msg.Y)
		}
	case tea.MouseLeft:
		// Some terminals report motion with the button held as MouseLeft.
		if m.drag != dragNone {
			return m.dragTo(msg.X, msg.Y)
		}
		return m.press(msg)
	}
	return nil
}

func (m *model) cellAt(x, y int) (int, int, bool) {
	if y < gridTop || y >= gridTop+m.gridHeight() {
		return 0, 0, false
	}
	v := m.manager.View()
	row := v.Scroll + y - gridTop
	if row < 0 || row >= len(v.Rows) {
		return 0, 0, false
	}
	col, ok := m.layout().columnAt(x)
	return row, col, ok
}

func (m *model) press(msg tea.MouseMsg) tea.Cmd {
	if msg.Y == 1 {
		return m.clickTab(msg.X)
	}
	row, col, ok := m.cellAt(msg.X, msg.Y)
	if !ok {
		return nil
	}
	v := m.manager.View()
	rowID := v.Rows[row].ID
	active := v.HasSelection && v.Active.Row == row && v.Active.Col == col
	if active && m.schema.Editable(col) && m.layout().onFillHandle(msg.X, col) {
		if m.manager.BeginFill(row, col) {
			m.drag = dragFill
		}
		return nil
	}
	switch m.schema[col].Key {
	case cue.ColumnVisible:
		if m.manager.ToggleHidden(rowID) {
			return m.changed()
		}
		return nil
	case cue.ColumnActions:
		if _, err := m.manager.AddRow(rowID); err == nil {
			return m.changed()
		}
		return nil
	}
	if m.manager.BeginSelection(row, col, msg.Alt || msg.Ctrl) && m.manager.View().Phase == selection.Dragging {
		m.drag = dragSelect
	}
	return nil
}

// dragTo clamps the pointer to the grid so a drag past the edge keeps
// extending to the nearest row.
func (m *model) dragTo(x, y int) tea.Cmd {
	v := m.manager.View()
	if len(v.Rows) == 0 {
		return nil
	}
	h := m.gridHeight()
	if y < gridTop {
		m.scrollBy(-1)
		y = gridTop
	} else if y >= gridTop+h {
		m.scrollBy(1)
		y = gridTop + h - 1
	}
	v = m.manager.View()
	row := min(v.Scroll+y-gridTop, len(v.Rows)-1)
	col, ok := m.layout().columnAt(x)
	if !ok {
		col = v.Active.Col
	}

	switch m.drag {
	case dragFill:
		m.manager.EnterFill(row, col)
	case dragSelect:
		if !m.manager.UpdateSelection(row, col) && !m.frameScheduled {
			m.frameScheduled = true
			return tea.Tick(selection.FrameInterval, func(time.Time) tea.Msg { return frameMsg{} })
		}
	}
	return nil
}

func (m *model) endDrag() tea.Cmd {
	mode := m.drag
	m.drag = dragNone
	switch mode {
	case dragSelect:
		m.manager.EndSelection()
	case dragFill:
		if n := m.manager.ReleaseFill(); n > 0 {
			m.setToast(fmt.Sprintf("Filled %d cue(s)", n), 3*time.Second)
			return m.changed()
		}
	}
	return nil
}

type tabHit struct {
	id     string
	x0, x1 int
}

func (m *model) tabLabels(v session.View) ([]string, []tabHit) {
	var (
		labels []string
		hits   []tabHit
		x      = 1
	)
	for i, t := range v.Tabs {
		title := fmt.Sprintf("%d %s", i+1, fit(t.Title, 18))
		title = strings.TrimRight(title, " ")
		if t.Dirty {
			title += " " + m.styles.tabDirty.Render("●")
		}
		if t.SaveError != "" {
			title += " " + m.styles.statusError.Render("!")
		}
		style := m.styles.tabInactive
		if t.Live {
			style = m.styles.tabActive
		}
		rendered := style.Render(title)
		w := lipgloss.Width(rendered)
		hits = append(hits, tabHit{id: t.ID, x0: x, x1: x + w - 1})
		labels = append(labels, rendered)
		x += w + 1
	}
	return labels, hits
}

func (m *model) clickTab(x int) tea.Cmd {
	_, hits := m.tabLabels(m.manager.View())
	for _, h := range hits {
		if x >= h.x0 && x <= h.x1 {
			if err := m.manager.Switch(h.id); err == nil {
				return m.afterSwitchCmd()
			}
		}
	}
	return nil
}

func (m *model) switchRelative(delta int) tea.Cmd {
	if !m.manager.SwitchRelative(delta) {
		return nil
	}
	return m.afterSwitchCmd()
}

func (m *model) afterSwitch() {
	m.drag = dragNone
	m.colOffset = 0
	m.lastSelection = ""
	m.annotated = make(map[string]string)
	m.suggestions = nil
	if m.mode == modeSuggest {
		m.mode = modeGrid
	}
	m.resize()
}

func (m *model) afterSwitchCmd() tea.Cmd {
	m.afterSwitch()
	return m.loadAnnotationsCmd(m.manager.View().ProjectID)
}

func (m *model) startBusy(message string) {
	m.busy++
	m.busyMessage = message
}

func (m *model) stopBusy() {
	if m.busy > 0 {
		m.busy--
	}
	if m.busy == 0 {
		m.busyMessage = ""
	}
}

func (m *model) openProjectCmd(projectID string) tea.Cmd {
	for _, t := range m.manager.Tabs() {
		if t.ProjectID == projectID {
			if m.inputPending() {
				return nil
			}
			if err := m.manager.Switch(t.ID); err != nil {
				return nil
			}
			return m.afterSwitchCmd()
		}
	}
	m.startBusy("Opening project…")
	mgr := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		payload, err := mgr.Load(ctx, projectID)
		return projectOpenedMsg{ProjectID: projectID, Payload: payload, Err: err}
	}
}

// handleProjectOpened installs the loaded project. While an input is bound
// to the live tab the new tab stays in the background.
func (m *model) handleProjectOpened(msg projectOpenedMsg) tea.Cmd {
	m.stopBusy()
	if msg.Err != nil {
		m.reportError("Could not open project", msg.Err)
		return nil
	}
	doc, err := m.manager.Adopt(msg.ProjectID, msg.Payload)
	if err != nil {
		if errors.Is(err, session.ErrCapacity) {
			m.setToast(fmt.Sprintf("Close a tab first (limit %d)", session.MaxDocuments), 4*time.Second)
			return nil
		}
		m.reportError("Could not open project", err)
		return nil
	}
	m.rememberTabs()
	if m.inputPending() {
		m.setToast("Opened "+projectTitle(msg.Payload.Info, msg.ProjectID)+" in a background tab", 4*time.Second)
		return nil
	}
	if err := m.manager.Switch(doc.ID); err != nil {
		return nil
	}
	return m.afterSwitchCmd()
}

// inputPending reports whether an open input acts on the live tab.
func (m *model) inputPending() bool {
	switch m.mode {
	case modeEdit, modeSync, modeAnnotate, modeRename:
		return true
	}
	return false
}

func projectTitle(info session.ProjectInfo, projectID string) string {
	if info.Name != "" {
		return info.Name
	}
	return projectID
}

func (m *model) loadProjectsCmd() tea.Cmd {
	if m.catalog == nil {
		m.setToast("No project database configured", 3*time.Second)
		return nil
	}
	m.startBusy("Loading projects…")
	catalog := m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		projects, err := catalog.ListProjects(ctx)
		return projectsLoadedMsg{Projects: projects, Err: err}
	}
}

func (m *model) handleProjectsLoaded(msg projectsLoadedMsg) tea.Cmd {
	m.stopBusy()
	if msg.Err != nil {
		m.reportError("Could not list projects", msg.Err)
		return nil
	}
	if len(msg.Projects) == 0 {
		m.setToast("No projects yet; press n to create one", 4*time.Second)
		return nil
	}
	items := make([]list.Item, 0, len(msg.Projects))
	for _, p := range msg.Projects {
		desc := fmt.Sprintf("%d cues", p.Cues)
		if p.Episode != "" {
			desc = p.Episode + " • " + desc
		}
		if !p.UpdatedAt.IsZero() {
			desc += " • " + p.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		title := p.Name
		if title == "" {
			title = p.ID
		}
		items = append(items, listEntry{title: title, desc: desc, payload: p.ID})
	}
	m.mode = modePicker
	m.resize()
	return m.picker.SetItems(items)
}

func (m *model) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q":
		m.mode = modeGrid
		m.resize()
		return nil
	case "enter":
		entry, ok := m.picker.SelectedItem().(listEntry)
		m.mode = modeGrid
		m.resize()
		if !ok {
			return nil
		}
		return m.openProjectCmd(entry.payload)
	case "d":
		entry, ok := m.picker.SelectedItem().(listEntry)
		if !ok {
			return nil
		}
		for _, t := range m.manager.Tabs() {
			if t.ProjectID == entry.payload {
				m.setToast("Close the project's tab before deleting it", 4*time.Second)
				return nil
			}
		}
		m.mode = modeGrid
		m.resize()
		return m.deleteProjectCmd(entry.payload)
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return cmd
}

func (m *model) deleteProjectCmd(projectID string) tea.Cmd {
	m.startBusy("Deleting project…")
	catalog := m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		return projectDeletedMsg{ProjectID: projectID, Err: catalog.DeleteProject(ctx, projectID)}
	}
}

func (m *model) createProject(name string) tea.Cmd {
	if name == "" {
		m.setToast("Project name required", 3*time.Second)
		return nil
	}
	info := session.ProjectInfo{Name: name}
	if m.catalog == nil {
		if _, err := m.manager.New(info, nil); err != nil {
			m.reportError("Could not create project", err)
			return nil
		}
		m.afterSwitch()
		return m.changed()
	}
	m.startBusy("Creating project…")
	catalog := m.catalog
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		id, err := catalog.CreateProject(ctx, info)
		return projectCreatedMsg{ProjectID: id, Err: err}
	}
}

// closeLiveTab saves the live tab before closing it. The close itself
// happens in handleCloseSaved, once the save is known to cover every edit.
func (m *model) closeLiveTab() tea.Cmd {
	tabID := m.manager.Live()
	if tabID == "" {
		return nil
	}
	job, dirty := m.manager.SaveRequest(tabID)
	if !dirty || m.backing == nil {
		return m.closeTab(tabID)
	}
	m.startBusy("Saving…")
	backing := m.backing
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		err := backing.SaveDocument(ctx, job.ProjectID, job.Payload)
		return closeSavedMsg{TabID: job.TabID, Revision: job.Revision, Err: err}
	}
}

func (m *model) handleCloseSaved(msg closeSavedMsg) tea.Cmd {
	if msg.Err != nil {
		m.manager.SaveFailed(msg.TabID, msg.Err)
		m.reportError("Tab kept open: save failed", msg.Err)
		return nil
	}
	if !m.manager.MarkSaved(msg.TabID, msg.Revision) {
		if !m.hasTab(msg.TabID) {
			return nil
		}
		m.setToast("Tab kept open: it changed while saving", 4*time.Second)
		return m.changed()
	}
	if m.inputPending() && m.manager.Live() == msg.TabID {
		m.setToast("Tab saved; finish the edit before closing", 4*time.Second)
		return nil
	}
	return m.closeTab(msg.TabID)
}

func (m *model) closeTab(tabID string) tea.Cmd {
	if err := m.manager.Close(tabID); err != nil {
		m.reportError("Could not close tab", err)
		return nil
	}
	m.rememberTabs()
	return m.afterSwitchCmd()
}

func (m *model) hasTab(tabID string) bool {
	for _, t := range m.manager.Tabs() {
		if t.ID == tabID {
			return true
		}
	}
	return false
}

// rememberTabs records the open projects so the next start restores them.
func (m *model) rememberTabs() {
	var ids []string
	for _, t := range m.manager.Tabs() {
		ids = append(ids, t.ProjectID)
	}
	m.cfg.OpenTabs = ids
}

func (m *model) requestSuggestions() tea.Cmd {
	if m.suggester == nil {
		m.setToast("No suggestion source configured", 3*time.Second)
		return nil
	}
	_, col, ok := m.manager.ActiveCell()
	if !ok || !col.HasField {
		m.setToast("Select a field column first", 3*time.Second)
		return nil
	}
	req, err := m.manager.SuggestionRequest(col.Field)
	if err != nil {
		m.reportError("Cannot suggest", err)
		return nil
	}
	if len(req.Rows) == 0 {
		m.setToast(fmt.Sprintf("No empty %s cells", col.Title), 3*time.Second)
		return nil
	}
	m.startBusy("Looking up " + strings.ToLower(col.Title) + "…")
	suggester := m.suggester
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		items, err := suggester.Suggest(ctx, req)
		return suggestionsMsg{TabID: req.TabID, Field: req.Field, Items: items, Err: err}
	}
}

func (m *model) handleSuggestions(msg suggestionsMsg) {
	m.stopBusy()
	if msg.Err != nil {
		m.reportError("Suggestion lookup failed", msg.Err)
		return
	}
	if msg.TabID != m.manager.Live() {
		m.setToast("Suggestions for a background project discarded", 4*time.Second)
		return
	}
	if len(msg.Items) == 0 {
		m.setToast("No candidates found", 3*time.Second)
		return
	}
	m.suggestions = msg.Items
	m.suggestTab = msg.TabID
	m.suggestIdx = 0
	m.mode = modeSuggest
	m.resize()
}

func (m *model) handleSuggestKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "q":
		m.suggestions = nil
		m.mode = modeGrid
		m.resize()
	case "up", "k":
		if m.suggestIdx > 0 {
			m.suggestIdx--
		}
	case "down", "j":
		if m.suggestIdx < len(m.suggestions)-1 {
			m.suggestIdx++
		}
	case "enter":
		if len(m.suggestions) == 0 {
			return nil
		}
		return m.applySuggestions([]session.Suggestion{m.suggestions[m.suggestIdx]})
	case "A":
		var best []session.Suggestion
		seen := make(map[string]bool)
		for _, s := range m.suggestions {
			if !seen[s.RowID] {
				seen[s.RowID] = true
				best = append(best, s)
			}
		}
		return m.applySuggestions(best)
	}
	return nil
}

func (m *model) applySuggestions(items []session.Suggestion) tea.Cmd {
	applied := make(map[string]bool)
	for _, s := range items {
		if err := m.manager.ApplySuggestion(m.suggestTab, s); err != nil {
			m.suggestions = nil
			m.mode = modeGrid
			m.resize()
			m.reportError("Suggestion not applied", err)
			return nil
		}
		applied[s.RowID] = true
	}
	kept := m.suggestions[:0]
	for _, s := range m.suggestions {
		if !applied[s.RowID] {
			kept = append(kept, s)
		}
	}
	m.suggestions = kept
	m.suggestIdx = min(m.suggestIdx, max(len(kept)-1, 0))
	if len(kept) == 0 {
		m.mode = modeGrid
		m.resize()
	}
	m.setToast(fmt.Sprintf("Applied %d suggestion(s)", len(applied)), 3*time.Second)
	return m.changed()
}

func (m *model) beginAnnotate() {
	if m.annotations == nil {
		m.setToast("Annotations need a project database", 3*time.Second)
		return
	}
	if len(m.manager.SelectedRowIDs()) == 0 {
		m.setToast("Select cues to annotate", 3*time.Second)
		return
	}
	m.openInput(modeAnnotate, "Note: ", "")
}

func (m *model) annotateCmd(note string) tea.Cmd {
	ids := m.manager.SelectedRowIDs()
	projectID := m.manager.View().ProjectID
	if len(ids) == 0 || projectID == "" || m.annotations == nil {
		return nil
	}
	m.startBusy("Saving note…")
	annotations := m.annotations
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		err := annotations.Annotate(ctx, projectID, session.Annotation{RowIDs: ids, Color: "yellow", Note: note})
		return annotatedMsg{ProjectID: projectID, RowIDs: ids, Note: note, Err: err}
	}
}

func (m *model) loadAnnotationsCmd(projectID string) tea.Cmd {
	if m.annotations == nil || projectID == "" {
		return nil
	}
	annotations := m.annotations
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		items, err := annotations.Annotations(ctx, projectID)
		return annotationsMsg{ProjectID: projectID, Items: items, Err: err}
	}
}

func (m *model) handleAnnotations(msg annotationsMsg) {
	if msg.Err != nil {
		m.logger.Warn("load annotations", "project", msg.ProjectID, "err", msg.Err)
		return
	}
	if m.manager.View().ProjectID != msg.ProjectID {
		return
	}
	m.annotated = make(map[string]string)
	for _, a := range msg.Items {
		for _, id := range a.RowIDs {
			m.annotated[id] = a.Note
		}
	}
}

func (m *model) exportCmd() tea.Cmd {
	if m.exporter == nil {
		m.setToast("No exporter configured", 3*time.Second)
		return nil
	}
	payload, err := m.manager.ExportPayload()
	if err != nil {
		m.reportError("Nothing to export", err)
		return nil
	}
	m.startBusy("Exporting…")
	exporter := m.exporter
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
		defer cancel()
		msg := exportDoneMsg{ProjectID: payload.ProjectID, Rows: len(payload.Rows)}
		if csv, ok := exporter.(*export.CSVExporter); ok {
			msg.Path, msg.Err = csv.ExportFile(ctx, payload)
			return msg
		}
		msg.Err = exporter.Export(ctx, payload)
		return msg
	}
}

func (m *model) handleExportDone(msg exportDoneMsg) tea.Cmd {
	m.stopBusy()
	if msg.Err != nil {
		m.reportError("Export failed", msg.Err)
		return nil
	}
	m.activity.emitSimple("export", msg.ProjectID, map[string]string{"path": msg.Path, "rows": itoa(msg.Rows)})
	m.setToast(fmt.Sprintf("Exported %d cue(s) to %s", msg.Rows, msg.Path), 5*time.Second)
	if len(m.cfg.ExportCommand) == 0 || msg.Path == "" {
		return nil
	}
	args := append(append([]string{}, m.cfg.ExportCommand[1:]...), msg.Path)
	m.showLogs = true
	m.resize()
	_, cmd := m.jobs.Enqueue(jobRequest{
		title:   "export hook",
		command: m.cfg.ExportCommand[0],
		args:    args,
		env:     []string{"CUESHEET_PROJECT=" + msg.ProjectID},
		onFinish: func(err error) {
			if err != nil {
				m.logger.Error("export hook failed", "project", msg.ProjectID, "err", err)
			}
		},
	})
	return cmd
}

func (m *model) handleJobMessage(msg jobMsg) tea.Cmd {
	switch msg := msg.(type) {
	case jobStartedMsg:
		m.appendLog(fmt.Sprintf("▶ %s", msg.Title))
	case jobLogMsg:
		m.appendLog(msg.Line)
	case jobFinishedMsg:
		if msg.Err != nil {
			m.appendLog(fmt.Sprintf("✗ %s: %v", msg.Title, msg.Err))
			m.setToast(msg.Title+" failed", 4*time.Second)
		} else {
			m.appendLog(fmt.Sprintf("✓ %s", msg.Title))
			m.setToast(msg.Title+" finished", 3*time.Second)
		}
	}
	return m.jobs.Handle(msg)
}

func (m *model) saveDirtyCmd() tea.Cmd {
	if m.backing == nil {
		return nil
	}
	var cmds []tea.Cmd
	for _, tabID := range m.manager.DirtyDocuments() {
		job, ok := m.manager.SaveRequest(tabID)
		if !ok {
			continue
		}
		backing := m.backing
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), ioTimeout)
			defer cancel()
			err := backing.SaveDocument(ctx, job.ProjectID, job.Payload)
			return saveResultMsg{TabID: job.TabID, ProjectID: job.ProjectID, Revision: job.Revision, Err: err}
		})
	}
	if len(cmds) == 0 {
		return nil
	}
	m.rememberTabs()
	return tea.Batch(cmds...)
}

func (m *model) handleSaveResult(msg saveResultMsg) {
	if msg.Err != nil {
		m.manager.SaveFailed(msg.TabID, msg.Err)
		m.setToast("Save failed: "+msg.Err.Error(), 6*time.Second)
		return
	}
	m.manager.MarkSaved(msg.TabID, msg.Revision)
}

func (m *model) openHelp() {
	m.mode = modeHelp
	m.helpView.SetContent(m.md.render(helpMarkdown(m.keys)))
	m.helpView.GotoTop()
}

func helpMarkdown(k keyMap) string {
	var b strings.Builder
	b.WriteString("# cuesheet\n\n")
	b.WriteString("Click or drag to select cells; alt+click extends. Drag the **■** handle of the active cell down a column to copy its value.\n\n")
	b.WriteString("| Key | Action |\n|---|---|\n")
	for _, group := range k.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\nColours mark predicted values awaiting approval: orange for medium, red for low confidence.\n")
	return b.String()
}

func (m *model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > 500 {
		m.logLines = m.logLines[len(m.logLines)-500:]
	}
	m.logs.SetContent(strings.Join(m.logLines, "\n"))
	m.logs.GotoBottom()
}

func (m *model) reportError(prefix string, err error) {
	m.logger.Error(strings.ToLower(prefix), "err", err)
	m.appendLog(fmt.Sprintf("%s: %v", prefix, err))
	m.setToast(fmt.Sprintf("%s: %v", prefix, err), 5*time.Second)
}

func (m *model) setToast(msg string, duration time.Duration) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		m.toastMessage = ""
		m.toastExpires = time.Time{}
		return
	}
	if duration <= 0 {
		duration = 5 * time.Second
	}
	m.toastMessage = trimmed
	m.toastExpires = time.Now().Add(duration)
}
