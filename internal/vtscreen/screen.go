// Package vtscreen is the terminal-emulation provider (spec component C2):
// it feeds a pane's PTY output through a VT parser and exposes the result
// as a stable cell grid plus a bounded scrollback ring, independent of
// whatever parser library sits underneath.
//
// github.com/charmbracelet/x/vt owns escape-sequence interpretation; it
// keeps only the live screen, so the scrollback ring here is this
// package's own addition, grounded on myT-x's internal/terminal
// OutputBuffer discipline (bounded buffer, explicit capacity, no
// unbounded growth) but applied to history lines instead of raw bytes.
package vtscreen

import (
	vt "github.com/charmbracelet/x/vt"
)

// DefaultHistoryLimit is the scrollback depth a new Screen gets when the
// caller does not request one, matching the session-option default.
const DefaultHistoryLimit = 2000

// Cell is one grid position's resolved content, decoupled from the
// underlying vt.Cell type so callers (internal/render in particular)
// depend only on this package's shape.
type Cell struct {
	Content string
	Width   int
	Style   vt.Style
}

// Cursor reports the emulator's cursor position and visibility.
type Cursor struct {
	X, Y    int
	Visible bool
}

// Screen wraps a vt.Terminal of fixed Cols x Rows, plus a capped
// scrollback ring of rows pushed out the top.
type Screen struct {
	term *vt.Terminal
	cols int
	rows int

	historyLimit int
	history      [][]Cell // oldest first; capped at historyLimit

	// dirty counts every Write call, giving the renderer a cheap
	// per-pane change signal for the frame data_version hash (spec.md
	// §4.5.a) without re-reading the whole grid.
	dirty uint64
}

// New creates a Screen of the given size with the given scrollback
// capacity (0 uses DefaultHistoryLimit, <0 disables scrollback).
func New(cols, rows, historyLimit int) *Screen {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	if historyLimit == 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Screen{
		term:         vt.NewTerminal(cols, rows),
		cols:         cols,
		rows:         rows,
		historyLimit: historyLimit,
	}
}

// Write feeds raw PTY output into the emulator. Bytes are fed one at a
// time so a scroll can be detected precisely: whenever the cursor already
// sits on the bottom row and a linefeed arrives, row 0 is about to be
// pushed out, so it is captured into history immediately before the byte
// that causes the scroll is applied.
func (s *Screen) Write(p []byte) (int, error) {
	if len(p) > 0 {
		s.dirty++
	}
	for _, b := range p {
		if b == '\n' && s.historyLimit >= 0 {
			if cur := s.term.Cursor(); cur.Y >= s.rows-1 {
				s.captureTopRow()
			}
		}
		if _, err := s.term.Write([]byte{b}); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (s *Screen) captureTopRow() {
	row := make([]Cell, s.cols)
	for x := 0; x < s.cols; x++ {
		row[x] = cellFromVT(s.term.Cell(x, 0))
	}
	s.history = append(s.history, row)
	if over := len(s.history) - s.historyLimit; over > 0 {
		s.history = s.history[over:]
	}
}

func cellFromVT(c vt.Cell) Cell {
	return Cell{Content: c.Content, Width: c.Width, Style: c.Style}
}

// Resize changes the live grid's dimensions. Scrollback already captured
// is left as-is; spec.md §4.2 treats reflow of history as out of scope.
func (s *Screen) Resize(cols, rows int) {
	if cols <= 0 || rows <= 0 || (cols == s.cols && rows == s.rows) {
		return
	}
	s.cols, s.rows = cols, rows
	s.term.Resize(cols, rows)
}

// Size returns the live grid's current dimensions.
func (s *Screen) Size() (cols, rows int) { return s.cols, s.rows }

// Cursor returns the current cursor state.
func (s *Screen) Cursor() Cursor {
	c := s.term.Cursor()
	return Cursor{X: c.X, Y: c.Y, Visible: s.term.CursorVisible()}
}

// Cell returns the live grid cell at (x, y). Out-of-range coordinates
// return the zero Cell.
func (s *Screen) Cell(x, y int) Cell {
	if x < 0 || y < 0 || x >= s.cols || y >= s.rows {
		return Cell{}
	}
	return cellFromVT(s.term.Cell(x, y))
}

// Row returns the live grid's row y as a slice of Cols cells.
func (s *Screen) Row(y int) []Cell {
	row := make([]Cell, s.cols)
	for x := 0; x < s.cols; x++ {
		row[x] = s.Cell(x, y)
	}
	return row
}

// DirtyCounter returns the number of Write calls this screen has ever
// processed, a cheap monotonic signal for change detection.
func (s *Screen) DirtyCounter() uint64 { return s.dirty }

// HistoryLen returns the number of scrollback rows currently retained.
func (s *Screen) HistoryLen() int { return len(s.history) }

// HistoryRow returns scrollback row at offset from the oldest retained
// row (0 is the oldest). ok is false when offset is out of range.
func (s *Screen) HistoryRow(offset int) (row []Cell, ok bool) {
	if offset < 0 || offset >= len(s.history) {
		return nil, false
	}
	return s.history[offset], true
}
