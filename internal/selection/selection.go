// Package selection implements the rectangular cell selection of the cue
// grid: an anchor cell, an active cell, and a drag phase.
package selection

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/bekirdag/cuesheet/internal/cue"
)

// FrameInterval bounds how often drag updates are applied.
const FrameInterval = time.Second / 60

type Phase int

const (
	Idle Phase = iota
	Dragging
)

func (p Phase) String() string {
	if p == Dragging {
		return "dragging"
	}
	return "idle"
}

// Point is a grid coordinate: a row position and a schema column index.
type Point struct {
	Row int
	Col int
}

// Bounds is the normalized rectangle covered by a selection, inclusive.
type Bounds struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

func (b Bounds) Contains(row, col int) bool {
	return row >= b.MinRow && row <= b.MaxRow && col >= b.MinCol && col <= b.MaxCol
}

func (b Bounds) Rows() int { return b.MaxRow - b.MinRow + 1 }

// Cell is one materialized selected cell.
type Cell struct {
	RowID    string
	Column   string
	Field    cue.Field
	HasField bool
	Value    string
}

// Finalized is emitted once at the end of a selection gesture. It carries
// no positional data; placement of any panel is up to the presentation.
type Finalized struct {
	Bounds Bounds
	Cells  []Cell
	RowIDs []string
}

// Engine tracks the selection over a grid of rows × schema columns. Only
// selectable columns can be targeted.
type Engine struct {
	schema cue.Schema
	rows   int

	anchor  *Point
	active  *Point
	phase   Phase
	pending *Point

	limiter *rate.Limiter
	now     func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFrameInterval changes the drag update cadence.
func WithFrameInterval(d time.Duration) Option {
	return func(e *Engine) { e.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

func New(schema cue.Schema, rows int, opts ...Option) *Engine {
	e := &Engine{
		schema:  schema,
		rows:    rows,
		limiter: rate.NewLimiter(rate.Every(FrameInterval), 1),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Phase() Phase { return e.phase }

// Resize updates the row count and clamps the selection to it.
func (e *Engine) Resize(rows int) {
	if rows < 0 {
		rows = 0
	}
	e.rows = rows
	if rows == 0 {
		e.Clear()
		return
	}
	for _, p := range []*Point{e.anchor, e.active, e.pending} {
		if p != nil && p.Row >= rows {
			p.Row = rows - 1
		}
	}
}

func (e *Engine) valid(row, col int) bool {
	return row >= 0 && row < e.rows && e.schema.Selectable(col)
}

// Begin starts a gesture at (row, col). With extend and an existing anchor
// only the active cell moves (shift-click); otherwise the anchor is reset
// and the engine enters the dragging phase. Invalid targets are ignored.
func (e *Engine) Begin(row, col int, extend bool) bool {
	if !e.valid(row, col) {
		return false
	}
	p := Point{Row: row, Col: col}
	e.pending = nil
	if extend && e.anchor != nil {
		e.active = &p
		return true
	}
	anchor := p
	e.anchor = &anchor
	e.active = &p
	e.phase = Dragging
	return true
}

// Update moves the active cell while dragging. Updates arriving faster than
// the frame cadence are held as pending and applied by Flush or End, so the
// last requested cell always wins.
func (e *Engine) Update(row, col int) bool {
	if e.phase != Dragging || !e.valid(row, col) {
		return false
	}
	p := Point{Row: row, Col: col}
	if !e.limiter.AllowN(e.now(), 1) {
		e.pending = &p
		return false
	}
	e.pending = nil
	e.active = &p
	return true
}

// Flush applies a pending throttled update. It reports whether the active
// cell changed.
func (e *Engine) Flush() bool {
	if e.pending == nil {
		return false
	}
	p := *e.pending
	e.pending = nil
	if e.active != nil && *e.active == p {
		return false
	}
	e.active = &p
	return true
}

// End finishes a drag and returns the finalized selection over rows. It
// returns false when no drag was in progress, so each gesture emits once.
func (e *Engine) End(rows []cue.Cue) (Finalized, bool) {
	if e.phase != Dragging {
		return Finalized{}, false
	}
	e.Flush()
	e.phase = Idle
	return e.Materialize(rows), true
}

// Clear drops the selection. Calling it repeatedly is harmless.
func (e *Engine) Clear() {
	e.anchor = nil
	e.active = nil
	e.pending = nil
	e.phase = Idle
}

func (e *Engine) Anchor() (Point, bool) {
	if e.anchor == nil {
		return Point{}, false
	}
	return *e.anchor, true
}

func (e *Engine) Active() (Point, bool) {
	if e.active == nil {
		return Point{}, false
	}
	return *e.active, true
}

func (e *Engine) Bounds() (Bounds, bool) {
	if e.anchor == nil || e.active == nil {
		return Bounds{}, false
	}
	return Bounds{
		MinRow: min(e.anchor.Row, e.active.Row),
		MaxRow: max(e.anchor.Row, e.active.Row),
		MinCol: min(e.anchor.Col, e.active.Col),
		MaxCol: max(e.anchor.Col, e.active.Col),
	}, true
}

func (e *Engine) Contains(row, col int) bool {
	b, ok := e.Bounds()
	return ok && b.Contains(row, col)
}

// Move shifts the active cell by the given deltas, skipping columns that
// cannot be selected. Without extend the anchor follows. With no selection
// the first selectable cell is selected.
func (e *Engine) Move(dRow, dCol int, extend bool) bool {
	if e.rows == 0 {
		return false
	}
	if e.active == nil {
		first := e.schema.FirstSelectable()
		if first < 0 {
			return false
		}
		e.Begin(0, first, false)
		e.phase = Idle
		return true
	}
	p := *e.active
	p.Row += dRow
	if p.Row < 0 {
		p.Row = 0
	}
	if p.Row >= e.rows {
		p.Row = e.rows - 1
	}
	for step := 0; step < abs(dCol); step++ {
		next := e.schema.NextSelectable(p.Col, sign(dCol))
		if next < 0 {
			break
		}
		p.Col = next
	}
	if extend && e.anchor != nil {
		e.active = &p
		return true
	}
	anchor := p
	e.anchor = &anchor
	e.active = &p
	return true
}

// Materialize lists every selectable cell inside the bounds.
func (e *Engine) Materialize(rows []cue.Cue) Finalized {
	b, ok := e.Bounds()
	if !ok {
		return Finalized{}
	}
	out := Finalized{Bounds: b}
	for r := b.MinRow; r <= b.MaxRow && r < len(rows); r++ {
		row := rows[r]
		out.RowIDs = append(out.RowIDs, row.ID)
		for c := b.MinCol; c <= b.MaxCol; c++ {
			col, ok := e.schema.Column(c)
			if !ok || !col.Selectable {
				continue
			}
			cell := Cell{RowID: row.ID, Column: col.Key, Field: col.Field, HasField: col.HasField}
			if col.HasField {
				cell.Value = row.Value(col.Field)
			} else if col.Key == cue.ColumnStatus {
				cell.Value = row.DisplayStatus().String()
			}
			out.Cells = append(out.Cells, cell)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	if v < 0 {
		return -1
	}
	return 1
}
