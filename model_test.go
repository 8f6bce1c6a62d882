package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekirdag/cuesheet/internal/cue"
	"github.com/bekirdag/cuesheet/internal/export"
	"github.com/bekirdag/cuesheet/internal/session"
	"github.com/bekirdag/cuesheet/internal/store"
)

type fakeBacking struct {
	mu       sync.Mutex
	projects map[string]session.Payload
	saves    int
}

func newFakeBacking() *fakeBacking {
	return &fakeBacking{projects: make(map[string]session.Payload)}
}

func (b *fakeBacking) LoadDocument(_ context.Context, projectID string) (session.Payload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[projectID]
	if !ok {
		return session.Payload{}, fmt.Errorf("project %s not found", projectID)
	}
	return session.Payload{Info: p.Info, Rows: cue.Clone(p.Rows)}, nil
}

func (b *fakeBacking) SaveDocument(_ context.Context, projectID string, payload session.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	b.projects[projectID] = session.Payload{Info: payload.Info, Rows: cue.Clone(payload.Rows)}
	return nil
}

func cueRows(prefix string, n int, source cue.Source) []cue.Cue {
	rows := make([]cue.Cue, n)
	for i := range rows {
		r := cue.New(fmt.Sprintf("%s-%d", prefix, i+1))
		r.OrderIndex = i
		r.Set(cue.FieldTrackName, fmt.Sprintf("Track %d", i+1), cue.SourceFile, 1)
		r.Set(cue.FieldComposer, fmt.Sprintf("Composer %d", i+1), source, 1)
		r.Set(cue.FieldPublisher, "Publisher", cue.SourceFile, 1)
		rows[i] = r
	}
	return rows
}

type testHarness struct {
	t       *testing.T
	m       *model
	backing *fakeBacking
	clip    string
}

func newHarness(t *testing.T, deps appDeps) *testHarness {
	t.Helper()
	h := &testHarness{t: t, backing: newFakeBacking()}
	h.backing.projects["p1"] = session.Payload{Info: session.ProjectInfo{Name: "Pilot"}, Rows: cueRows("a", 5, cue.SourceFile)}
	h.backing.projects["p2"] = session.Payload{Info: session.ProjectInfo{Name: "Finale"}, Rows: cueRows("b", 2, cue.SourceDatabase)}

	cfg := defaultConfig()
	cfg.AutosaveDelay = time.Millisecond
	deps.cfg = cfg
	deps.backing = h.backing
	h.m = newModel(deps)
	h.m.readClipboard = func() (string, error) { return h.clip, nil }
	h.m.writeClipboard = func(s string) error { h.clip = s; return nil }
	h.send(tea.WindowSizeMsg{Width: 200, Height: 40})
	return h
}

func (h *testHarness) open(projectID string) string {
	h.t.Helper()
	doc, err := h.m.manager.Open(context.Background(), projectID)
	require.NoError(h.t, err)
	h.m.afterSwitch()
	return doc.ID
}

// send feeds msg to Update and runs the returned commands to completion,
// feeding their messages back in.
func (h *testHarness) send(msg tea.Msg) {
	h.t.Helper()
	_, cmd := h.m.Update(msg)
	for _, next := range drain(cmd) {
		switch next.(type) {
		case frameMsg, autosaveMsg, saveResultMsg, exportDoneMsg, suggestionsMsg, projectsLoadedMsg,
			projectOpenedMsg, projectCreatedMsg, projectDeletedMsg, closeSavedMsg:
			h.send(next)
		}
	}
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func (h *testHarness) keys(keys ...string) {
	h.t.Helper()
	for _, k := range keys {
		h.send(keyMsg(k))
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "delete":
		return tea.KeyMsg{Type: tea.KeyDelete}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "shift+down":
		return tea.KeyMsg{Type: tea.KeyShiftDown}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// cellPoint returns screen coordinates inside the given grid cell.
func (h *testHarness) cellPoint(row int, field cue.Field) (int, int) {
	h.t.Helper()
	col := fieldColumn(h.m.schema, field)
	s, ok := h.m.layout().span(col)
	require.True(h.t, ok, "column %d not on screen", col)
	return s.x + 1, gridTop + row - h.m.manager.View().Scroll
}

func fieldColumn(schema cue.Schema, field cue.Field) int {
	for i, c := range schema {
		if c.HasField && c.Field == field {
			return i
		}
	}
	return -1
}

func (h *testHarness) click(row int, field cue.Field) {
	h.t.Helper()
	x, y := h.cellPoint(row, field)
	h.send(tea.MouseMsg{X: x, Y: y, Type: tea.MouseLeft})
	h.send(tea.MouseMsg{X: x, Y: y, Type: tea.MouseRelease})
}

func (h *testHarness) value(row int, field cue.Field) string {
	return h.m.manager.View().Rows[row].Value(field)
}

func TestModel_ClickThenEditCommitsValue(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")

	h.click(1, cue.FieldComposer)
	_, col, ok := h.m.manager.ActiveCell()
	require.True(t, ok)
	assert.Equal(t, cue.FieldComposer, col.Field)
	assert.Equal(t, "1×1", h.m.lastSelection)

	h.keys("enter")
	require.Equal(t, modeEdit, h.m.mode)
	assert.Equal(t, "Composer 2", h.m.input.Value())

	h.m.input.SetValue("Hans Zimmer")
	h.keys("enter")
	assert.Equal(t, modeGrid, h.m.mode)
	assert.Equal(t, "Hans Zimmer", h.value(1, cue.FieldComposer))
	assert.Equal(t, cue.SourceUser, h.m.manager.View().Rows[1].Source(cue.FieldComposer))
}

func TestModel_EscapeCancelsEdit(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")
	h.click(0, cue.FieldComposer)

	h.keys("enter")
	h.m.input.SetValue("changed")
	h.keys("esc")
	assert.Equal(t, modeGrid, h.m.mode)
	assert.Equal(t, "Composer 1", h.value(0, cue.FieldComposer))
}

func TestModel_DragSelectThenClear(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")

	x0, y0 := h.cellPoint(0, cue.FieldComposer)
	_, y2 := h.cellPoint(2, cue.FieldComposer)
	h.send(tea.MouseMsg{X: x0, Y: y0, Type: tea.MouseLeft})
	h.send(tea.MouseMsg{X: x0, Y: y0 + 1, Type: tea.MouseLeft})
	h.send(tea.MouseMsg{X: x0, Y: y2, Type: tea.MouseLeft})
	h.send(tea.MouseMsg{X: x0, Y: y2, Type: tea.MouseRelease})

	fin, ok := h.m.manager.Selection()
	require.True(t, ok)
	assert.Equal(t, 0, fin.Bounds.MinRow)
	assert.Equal(t, 2, fin.Bounds.MaxRow)
	assert.Equal(t, "3×1", h.m.lastSelection)

	h.keys("delete")
	for i := 0; i < 3; i++ {
		assert.Empty(t, h.value(i, cue.FieldComposer))
	}
	assert.Equal(t, "Composer 4", h.value(3, cue.FieldComposer))

	h.keys("u")
	assert.Equal(t, "Composer 1", h.value(0, cue.FieldComposer))
	h.keys("ctrl+r")
	assert.Empty(t, h.value(0, cue.FieldComposer))
}

func TestModel_FillHandleDragCopiesValue(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")
	h.click(0, cue.FieldComposer)

	col := fieldColumn(h.m.schema, cue.FieldComposer)
	s, _ := h.m.layout().span(col)
	handleX := s.x + s.width - 1
	require.True(t, h.m.layout().onFillHandle(handleX, col))

	h.send(tea.MouseMsg{X: handleX, Y: gridTop, Type: tea.MouseLeft})
	require.Equal(t, dragFill, h.m.drag)
	h.send(tea.MouseMsg{X: handleX, Y: gridTop + 2, Type: tea.MouseLeft})
	h.send(tea.MouseMsg{X: handleX, Y: gridTop + 2, Type: tea.MouseRelease})

	assert.Equal(t, dragNone, h.m.drag)
	for i := 1; i <= 2; i++ {
		assert.Equal(t, "Composer 1", h.value(i, cue.FieldComposer))
		assert.Equal(t, cue.SourceFill, h.m.manager.View().Rows[i].Source(cue.FieldComposer))
	}
	assert.Equal(t, "Composer 4", h.value(3, cue.FieldComposer))
}

func TestModel_FillDownKey(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")

	h.click(1, cue.FieldComposer)
	h.keys("shift+down", "shift+down", "ctrl+d")
	assert.Equal(t, "Composer 2", h.value(2, cue.FieldComposer))
	assert.Equal(t, "Composer 2", h.value(3, cue.FieldComposer))
	assert.Equal(t, "Composer 1", h.value(0, cue.FieldComposer))
}

func TestModel_VisibleAndActionColumns(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")
	l := h.m.layout()

	visible, _ := l.span(0)
	h.send(tea.MouseMsg{X: visible.x, Y: gridTop + 1, Type: tea.MouseLeft})
	assert.True(t, h.m.manager.View().Rows[1].Hidden)
	_, ok := h.m.manager.Selection()
	assert.False(t, ok)

	actions, ok := l.span(len(h.m.schema) - 1)
	require.True(t, ok)
	h.send(tea.MouseMsg{X: actions.x, Y: gridTop, Type: tea.MouseLeft})
	rows := h.m.manager.View().Rows
	require.Len(t, rows, 6)
	assert.Empty(t, rows[1].Value(cue.FieldTrackName))
}

func TestModel_DatabaseSyncPrompt(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p2")
	h.click(0, cue.FieldComposer)

	h.keys("enter")
	h.m.input.SetValue("Corrected")
	h.keys("enter")
	require.Equal(t, modeSync, h.m.mode)
	assert.Equal(t, "Composer 1", h.value(0, cue.FieldComposer))
	assert.Contains(t, h.m.View(), "came from the database")

	h.keys("y")
	assert.Equal(t, modeGrid, h.m.mode)
	assert.Equal(t, "Saved as user-synced", h.m.toastMessage)
	assert.Equal(t, "Corrected", h.value(0, cue.FieldComposer))
	assert.Equal(t, cue.SourceUserSynced, h.m.manager.View().Rows[0].Source(cue.FieldComposer))

	h.click(1, cue.FieldComposer)
	h.keys("enter")
	h.m.input.SetValue("Other")
	h.keys("enter", "esc")
	assert.Equal(t, "Composer 2", h.value(1, cue.FieldComposer))
}

func TestModel_CopyPaste(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")

	h.click(0, cue.FieldComposer)
	h.keys("y")
	assert.Equal(t, "Composer 1", h.clip)

	h.clip = "Pasted A\nPasted B"
	h.click(3, cue.FieldComposer)
	h.keys("p")
	assert.Equal(t, "Pasted A", h.value(3, cue.FieldComposer))
	assert.Equal(t, "Pasted B", h.value(4, cue.FieldComposer))
}

func TestModel_AutosaveDebounceAndRevision(t *testing.T) {
	h := newHarness(t, appDeps{})
	tab := h.open("p1")
	h.click(0, cue.FieldComposer)

	_, cmd := h.m.Update(keyMsg("delete"))
	require.NotNil(t, cmd)
	stale := h.m.saveGen
	_, _ = h.m.Update(keyMsg("u"))
	assert.Greater(t, h.m.saveGen, stale)
	assert.Zero(t, h.backing.saves)

	_, cmd = h.m.Update(autosaveMsg{gen: stale})
	assert.Nil(t, cmd)

	h.send(autosaveMsg{gen: h.m.saveGen})
	assert.Equal(t, 1, h.backing.saves)
	assert.Empty(t, h.m.manager.DirtyDocuments())
	for _, ti := range h.m.manager.Tabs() {
		if ti.ID == tab {
			assert.False(t, ti.Dirty)
		}
	}
	assert.Equal(t, []string{"p1"}, h.m.cfg.OpenTabs)
}

func TestModel_SaveFailureKeepsDirty(t *testing.T) {
	h := newHarness(t, appDeps{})
	tab := h.open("p1")
	h.click(0, cue.FieldComposer)
	_, _ = h.m.Update(keyMsg("delete"))

	h.send(saveResultMsg{TabID: tab, ProjectID: "p1", Revision: 1, Err: assert.AnError})
	assert.Equal(t, []string{tab}, h.m.manager.DirtyDocuments())
	assert.Contains(t, h.m.toastMessage, "Save failed")
}

func TestModel_SuggestionsForParkedTabAreDiscarded(t *testing.T) {
	h := newHarness(t, appDeps{})
	first := h.open("p1")
	h.open("p2")

	h.send(suggestionsMsg{TabID: first, Field: cue.FieldLabel, Items: []session.Suggestion{
		{RowID: "a-1", Field: cue.FieldLabel, Value: "Decca", Confidence: 0.8, Source: cue.SourcePattern},
	}})
	assert.Equal(t, modeGrid, h.m.mode)
	assert.Contains(t, h.m.toastMessage, "discarded")
}

type stubSuggester struct {
	items []session.Suggestion
	req   session.SuggestionRequest
}

func (s *stubSuggester) Suggest(_ context.Context, req session.SuggestionRequest) ([]session.Suggestion, error) {
	s.req = req
	return s.items, nil
}

func TestModel_SuggestAndApply(t *testing.T) {
	sugg := &stubSuggester{items: []session.Suggestion{
		{RowID: "a-1", Field: cue.FieldLabel, Value: "Decca", Confidence: 0.75, Source: cue.SourcePattern, Reasoning: "3 of 4 earlier cues use **Decca**."},
		{RowID: "a-1", Field: cue.FieldLabel, Value: "KPM", Confidence: 0.25, Source: cue.SourcePattern},
		{RowID: "a-2", Field: cue.FieldLabel, Value: "Decca", Confidence: 0.6, Source: cue.SourcePattern},
	}}
	h := newHarness(t, appDeps{suggester: sugg})
	h.open("p1")
	h.click(0, cue.FieldLabel)
	h.keys("shift+down", "shift+down", "shift+down", "shift+down")

	h.keys("s")
	require.Equal(t, modeSuggest, h.m.mode)
	assert.Equal(t, cue.FieldLabel, sugg.req.Field)
	assert.Len(t, sugg.req.Rows, 5)
	assert.Contains(t, h.m.View(), "Suggestions (3)")

	h.keys("enter")
	row := h.m.manager.View().Rows[0]
	assert.Equal(t, "Decca", row.Value(cue.FieldLabel))
	assert.Equal(t, cue.SourcePattern, row.Source(cue.FieldLabel))
	assert.InDelta(t, 0.75, row.Confidence(cue.FieldLabel), 1e-9)
	require.Len(t, h.m.suggestions, 1)

	h.keys("A")
	assert.Equal(t, modeGrid, h.m.mode)
	assert.Equal(t, "Decca", h.value(1, cue.FieldLabel))
}

func TestModel_TabStripClickAndKeys(t *testing.T) {
	h := newHarness(t, appDeps{})
	first := h.open("p1")
	second := h.open("p2")
	require.Equal(t, second, h.m.manager.Live())

	_, hits := h.m.tabLabels(h.m.manager.View())
	require.Len(t, hits, 2)
	h.send(tea.MouseMsg{X: hits[0].x0, Y: 1, Type: tea.MouseLeft})
	assert.Equal(t, first, h.m.manager.Live())

	h.keys("]")
	assert.Equal(t, second, h.m.manager.Live())
	h.keys("[")
	assert.Equal(t, first, h.m.manager.Live())
}

func TestModel_CloseTabSavesFirst(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")
	h.click(0, cue.FieldComposer)
	h.keys("delete", "x")

	assert.Empty(t, h.m.manager.Tabs())
	assert.Empty(t, h.backing.projects["p1"].Rows[0].Value(cue.FieldComposer))
}

func TestModel_CloseTabKeepsEditsMadeDuringSave(t *testing.T) {
	h := newHarness(t, appDeps{})
	tab := h.open("p1")
	_, err := h.m.manager.CommitEdit(tab, "a-1", cue.FieldUse, "BI")
	require.NoError(t, err)

	_, save := h.m.Update(keyMsg("x"))
	require.NotNil(t, save)
	_, err = h.m.manager.CommitEdit(tab, "a-2", cue.FieldUse, "VI")
	require.NoError(t, err)

	var saved []tea.Msg
	for _, msg := range drain(save) {
		if _, ok := msg.(closeSavedMsg); ok {
			saved = append(saved, msg)
		}
	}
	require.Len(t, saved, 1)
	h.send(saved[0])
	require.Len(t, h.m.manager.Tabs(), 1)
	assert.Equal(t, tab, h.m.manager.Live())
	assert.Equal(t, "VI", h.value(1, cue.FieldUse))
	assert.Contains(t, h.m.toastMessage, "changed while saving")
	assert.Equal(t, "VI", h.backing.projects["p1"].Rows[1].Value(cue.FieldUse), "autosave picks up the late edit")

	h.keys("x")
	assert.Empty(t, h.m.manager.Tabs())
}

func TestModel_CloseTabSaveFailureKeepsTab(t *testing.T) {
	h := newHarness(t, appDeps{})
	tab := h.open("p1")
	_, err := h.m.manager.CommitEdit(tab, "a-1", cue.FieldUse, "BI")
	require.NoError(t, err)

	h.send(closeSavedMsg{TabID: tab, Revision: 1, Err: assert.AnError})
	require.Len(t, h.m.manager.Tabs(), 1)
	assert.Equal(t, []string{tab}, h.m.manager.DirtyDocuments())
	assert.Contains(t, h.m.toastMessage, "save failed")
}

func TestModel_OpenFinishingDuringEditKeepsEdit(t *testing.T) {
	h := newHarness(t, appDeps{})
	first := h.open("p1")
	h.click(0, cue.FieldComposer)
	h.keys("enter")
	require.Equal(t, modeEdit, h.m.mode)
	h.m.input.SetValue("Hans Zimmer")

	load := h.m.openProjectCmd("p2")
	require.NotNil(t, load)
	h.send(load())
	require.Len(t, h.m.manager.Tabs(), 2)
	assert.Equal(t, first, h.m.manager.Live(), "the loaded project waits in the background")
	assert.Contains(t, h.m.toastMessage, "Finale")
	assert.Equal(t, []string{"p1", "p2"}, h.m.cfg.OpenTabs)

	h.keys("enter")
	assert.Equal(t, modeGrid, h.m.mode)
	assert.Equal(t, "Hans Zimmer", h.value(0, cue.FieldComposer))

	drain(h.m.openProjectCmd("p2"))
	assert.Equal(t, "p2", h.m.manager.View().ProjectID, "an open tab is switched to at once")
}

func TestModel_EditForParkedTabIsReported(t *testing.T) {
	h := newHarness(t, appDeps{})
	first := h.open("p1")
	second := h.open("p2")
	require.NoError(t, h.m.manager.Switch(first))
	h.m.afterSwitch()

	h.click(1, cue.FieldComposer)
	h.keys("enter")
	h.m.input.SetValue("Lost")
	require.NoError(t, h.m.manager.Switch(second))
	h.keys("enter")

	assert.Equal(t, modeGrid, h.m.mode)
	assert.Contains(t, h.m.toastMessage, "Edit not saved")
	require.NoError(t, h.m.manager.Switch(first))
	assert.Equal(t, "Composer 2", h.value(1, cue.FieldComposer))
}

func TestRestoreTabs_KeepsSavedOrder(t *testing.T) {
	backing := newFakeBacking()
	backing.projects["p1"] = session.Payload{Info: session.ProjectInfo{Name: "Pilot"}, Rows: cueRows("a", 2, cue.SourceFile)}
	backing.projects["p2"] = session.Payload{Info: session.ProjectInfo{Name: "Finale"}, Rows: cueRows("b", 1, cue.SourceFile)}
	mgr := session.NewManager(backing, cue.DefaultColumns())

	restoreTabs(mgr, []string{"p2", "missing", "p1"}, slog.Default())
	tabs := mgr.Tabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, "p2", tabs[0].ProjectID)
	assert.Equal(t, "p1", tabs[1].ProjectID)
	assert.Equal(t, tabs[0].ID, mgr.Live())
}

func TestModel_NewProjectWithoutCatalog(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.keys("n")
	require.Equal(t, modeNewProject, h.m.mode)
	h.m.input.SetValue("Episode Nine")
	h.keys("enter")

	v := h.m.manager.View()
	assert.Equal(t, "Episode Nine", v.Info.Name)
	require.NotEmpty(t, v.ProjectID)
	assert.False(t, v.Dirty, "autosave persists the new project")
	assert.Equal(t, "Episode Nine", h.backing.projects[v.ProjectID].Info.Name)
}

func TestModel_ExportWritesCSV(t *testing.T) {
	dir := t.TempDir()
	exporter := export.NewCSVExporter(dir)
	h := newHarness(t, appDeps{exporter: exporter})
	h.open("p1")

	h.keys("e")
	path := exporter.LastPath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(string(data), "\n"))
	assert.Contains(t, h.m.toastMessage, "Exported 5 cue(s)")
}

func TestModel_ViewFillsTerminal(t *testing.T) {
	h := newHarness(t, appDeps{})
	assert.Contains(t, h.m.View(), "No project open")

	h.open("p1")
	h.click(0, cue.FieldComposer)
	for _, mode := range []inputMode{modeGrid, modeEdit} {
		h.m.mode = mode
		h.m.resize()
		out := h.m.View()
		assert.Len(t, strings.Split(out, "\n"), 40, "mode %d", mode)
	}
	h.m.mode = modeGrid
	h.keys("f6")
	assert.Len(t, strings.Split(h.m.View(), "\n"), 40)
}

func TestLayoutColumnsHitTesting(t *testing.T) {
	schema := cue.DefaultColumns()
	l := layoutColumns(schema, 60, frozenColumns)
	assert.Equal(t, 0, l.spans[0].col)
	assert.Equal(t, 1, l.spans[1].col)

	col, ok := l.columnAt(l.spans[2].x)
	require.True(t, ok)
	assert.Equal(t, l.spans[2].col, col)

	scrolled := layoutColumns(schema, 60, 5)
	assert.Equal(t, 5, scrolled.spans[2].col)
	assert.Less(t, scrolled.width, 62)

	_, ok = l.columnAt(500)
	assert.False(t, ok)
}

func TestFitAndPadLines(t *testing.T) {
	assert.Equal(t, "abc  ", fit("abc", 5))
	assert.Equal(t, "abcd…", fit("abcdefgh", 5))
	assert.Equal(t, "", fit("abc", 0))
	assert.Equal(t, []string{"a", "", ""}, padLines([]string{"a"}, 3))
	assert.Equal(t, []string{"a"}, padLines([]string{"a", "b"}, 1))
}

type fakeCatalog struct {
	backing *fakeBacking
	deleted []string
}

func (c *fakeCatalog) ListProjects(context.Context) ([]store.ProjectSummary, error) {
	c.backing.mu.Lock()
	defer c.backing.mu.Unlock()
	var out []store.ProjectSummary
	for _, id := range []string{"p1", "p2", "p3"} {
		if p, ok := c.backing.projects[id]; ok {
			out = append(out, store.ProjectSummary{ID: id, Name: p.Info.Name, Cues: len(p.Rows)})
		}
	}
	return out, nil
}

func (c *fakeCatalog) CreateProject(_ context.Context, info session.ProjectInfo) (string, error) {
	c.backing.mu.Lock()
	defer c.backing.mu.Unlock()
	c.backing.projects["p3"] = session.Payload{Info: info}
	return "p3", nil
}

func (c *fakeCatalog) DeleteProject(_ context.Context, projectID string) error {
	c.backing.mu.Lock()
	defer c.backing.mu.Unlock()
	delete(c.backing.projects, projectID)
	c.deleted = append(c.deleted, projectID)
	return nil
}

func TestModel_PickerOpensAndDeletes(t *testing.T) {
	catalog := &fakeCatalog{}
	h := newHarness(t, appDeps{})
	catalog.backing = h.backing
	h.m.catalog = catalog

	h.keys("o")
	require.Equal(t, modePicker, h.m.mode)
	h.keys("enter")
	assert.Equal(t, modeGrid, h.m.mode)
	require.Len(t, h.m.manager.Tabs(), 1)
	assert.Equal(t, "p1", h.m.manager.View().ProjectID)
	assert.Equal(t, []string{"p1"}, h.m.cfg.OpenTabs)

	h.keys("o", "d")
	assert.Empty(t, catalog.deleted, "open projects cannot be deleted")
	assert.Contains(t, h.m.toastMessage, "Close the project's tab")

	h.keys("down", "d")
	assert.Equal(t, []string{"p2"}, catalog.deleted)
}

func TestModel_NewProjectThroughCatalog(t *testing.T) {
	catalog := &fakeCatalog{}
	h := newHarness(t, appDeps{})
	catalog.backing = h.backing
	h.m.catalog = catalog

	h.keys("n")
	h.m.input.SetValue("Season Two")
	h.keys("enter")
	v := h.m.manager.View()
	assert.Equal(t, "p3", v.ProjectID)
	assert.Equal(t, "Season Two", v.Info.Name)
}

func TestModel_RenameAndMoveRow(t *testing.T) {
	h := newHarness(t, appDeps{})
	h.open("p1")

	h.keys("r")
	require.Equal(t, modeRename, h.m.mode)
	assert.Equal(t, "Pilot", h.m.input.Value())
	h.m.input.SetValue("Pilot (recut)")
	h.keys("enter")
	assert.Equal(t, "Pilot (recut)", h.m.manager.ProjectInfo().Name)
	assert.Equal(t, "Pilot (recut)", h.backing.projects["p1"].Info.Name)

	h.click(0, cue.FieldComposer)
	h.keys(">")
	rows := h.m.manager.View().Rows
	assert.Equal(t, "a-2", rows[0].ID)
	assert.Equal(t, "a-1", rows[1].ID)
	row, _, ok := h.m.manager.ActiveCell()
	require.True(t, ok)
	assert.Equal(t, "a-1", row.ID)
}

func TestMarkdown_ThemeAndRebuild(t *testing.T) {
	assert.Equal(t, themeDark, parseTheme(" Dark "))
	assert.Equal(t, themeAuto, parseTheme("neon"))
	assert.Equal(t, themeLight, themeDark.next())
	assert.Equal(t, themeAuto, themeLight.next())

	md := newMarkdown(themeDark)
	assert.Contains(t, md.render("**Decca** matches"), "Decca")
	require.NotNil(t, md.renderer)

	md.setTheme(themeDark)
	assert.NotNil(t, md.renderer, "same theme keeps the renderer")
	md.setWidth(40)
	assert.Nil(t, md.renderer)
	assert.Contains(t, md.render("plain"), "plain")
}
