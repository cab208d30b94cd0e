// Package copymode is the copy-mode engine (spec component C7): a modal
// scrollback browser over an internal/vtscreen.Screen that supports
// vi/emacs-style motions, character/line/rectangle selection, yank to a
// paste buffer, and incremental search, all addressable through the
// tmux-compatible `send-keys -X` sub-verb names.
//
// Grounded on the motion/selection/yank semantics spec.md §4.7 specifies
// directly (the teacher has no copy-mode of its own to adapt); the
// screen-reading primitives reuse internal/vtscreen's Cell/Row/HistoryRow
// API, and the state-machine shape (explicit mode struct, methods that
// mutate in place rather than returning a new value) follows the
// teacher's preference for stateful, mutex-guarded components over
// immutable ones.
package copymode

import "psmux/internal/vtscreen"

// SelectionKind is the shape a selection spans.
type SelectionKind int

const (
	NoSelection SelectionKind = iota
	Char
	Line
	Rect
)

// Position is an absolute (line, col) pair where line counts from the
// oldest retained scrollback row (0) through the live grid's rows
// (HistoryLen..HistoryLen+rows-1). Storing positions this way, rather
// than as raw (screenRow, col) pairs, means a selection anchored in
// scrollback survives any number of further scrolls: the history ring
// only grows, so a once-assigned history line number never moves.
type Position struct {
	Line int
	Col  int
}

// DefaultWordSeparators matches tmux's out-of-the-box word-separators
// option.
const DefaultWordSeparators = " -_@"

// Engine is one pane's copy-mode state. A pane keeps at most one Engine
// alive at a time; spec.md §4.7's per-pane snapshot/restore on focus
// change is just keeping this struct value around instead of discarding
// it when the pane loses focus.
type Engine struct {
	Screen *vtscreen.Screen

	Vi              bool
	WordSeparators  string
	ScrollbackTop   int // absolute line of the top of the viewport

	Cursor Position
	Anchor Position
	Kind   SelectionKind

	Count int // pending numeric count prefix, 0 means "no count yet"

	lastFind struct {
		verb byte
		ch   rune
	}
	pendingRegister bool
	register        rune // 0 means none pending/assigned

	Search SearchState
}

// New creates a copy-mode engine over screen, with the cursor starting
// at the bottom-right of the live grid (the normal copy-mode entry
// point) unless scrollUpHalfPage is set (the `copy-mode -u` form).
func New(screen *vtscreen.Screen, vi bool, scrollUpHalfPage bool) *Engine {
	cols, rows := screen.Size()
	history := screen.HistoryLen()
	e := &Engine{
		Screen:         screen,
		Vi:             vi,
		WordSeparators: DefaultWordSeparators,
		ScrollbackTop:  history,
		Cursor:         Position{Line: history + rows - 1, Col: max(cols-1, 0)},
	}
	if scrollUpHalfPage {
		e.ScrollPage(-halfPage(rows))
	}
	return e
}

// totalLines is the number of addressable lines: all of scrollback plus
// the live grid.
func (e *Engine) totalLines() int {
	_, rows := e.Screen.Size()
	return e.Screen.HistoryLen() + rows
}

// rowAt returns the cell row for absolute line, reading from scrollback
// or the live grid as appropriate.
func (e *Engine) rowAt(line int) []vtscreen.Cell {
	history := e.Screen.HistoryLen()
	if line < history {
		row, ok := e.Screen.HistoryRow(line)
		if !ok {
			return nil
		}
		return row
	}
	return e.Screen.Row(line - history)
}

// cols reports the grid width, used as the line length for every row
// (scrollback rows are captured at the same width as the live grid).
func (e *Engine) cols() int {
	cols, _ := e.Screen.Size()
	return cols
}

// clampCursor keeps the cursor within the addressable line range and a
// valid column on its line.
func (e *Engine) clampCursor() {
	if max := e.totalLines() - 1; e.Cursor.Line > max {
		e.Cursor.Line = max
	}
	if e.Cursor.Line < 0 {
		e.Cursor.Line = 0
	}
	if max := e.cols() - 1; e.Cursor.Col > max {
		e.Cursor.Col = max
	}
	if e.Cursor.Col < 0 {
		e.Cursor.Col = 0
	}
}

// takeCount consumes and resets the pending numeric count, defaulting to
// 1 per spec.md §4.7's "all honour the leading numeric count N, default 1".
func (e *Engine) takeCount() int {
	n := e.Count
	e.Count = 0
	if n <= 0 {
		return 1
	}
	return n
}

// AccumulateDigit appends a digit to the pending count prefix (e.g. the
// "3" in "3j"); call before dispatching the following motion key.
func (e *Engine) AccumulateDigit(d int) {
	if d < 0 || d > 9 {
		return
	}
	e.Count = e.Count*10 + d
}

func halfPage(rows int) int {
	n := rows / 2
	if n < 1 {
		n = 1
	}
	return n
}
