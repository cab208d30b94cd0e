package copymode

import (
	"strings"

	"psmux/internal/vtscreen"
)

// Selected renders the current selection as plain text, per spec.md
// §4.7's yank semantics: Char mode uses the anchor/cursor columns on its
// first/last lines and spans full width between them, trimming trailing
// whitespace per line; Line mode yields whole lines; Rect mode yields the
// rectangular slice between the two column extremes on every spanned
// line. Returns "" when no selection is active.
func (e *Engine) Selected() string {
	if e.Kind == NoSelection {
		return ""
	}
	start, end := e.orderedSpan()

	switch e.Kind {
	case Line:
		var lines []string
		for line := start.Line; line <= end.Line; line++ {
			lines = append(lines, trimTrailing(rowText(e.rowAt(line))))
		}
		return strings.Join(lines, "\n")

	case Rect:
		loCol, hiCol := start.Col, end.Col
		if loCol > hiCol {
			loCol, hiCol = hiCol, loCol
		}
		var lines []string
		for line := start.Line; line <= end.Line; line++ {
			row := e.rowAt(line)
			lines = append(lines, trimTrailing(rowSlice(row, loCol, hiCol)))
		}
		return strings.Join(lines, "\n")

	default: // Char
		if start.Line == end.Line {
			row := e.rowAt(start.Line)
			return trimTrailing(rowSlice(row, start.Col, end.Col))
		}
		var lines []string
		firstRow := e.rowAt(start.Line)
		lines = append(lines, trimTrailing(rowSlice(firstRow, start.Col, len(firstRow)-1)))
		for line := start.Line + 1; line < end.Line; line++ {
			lines = append(lines, trimTrailing(rowText(e.rowAt(line))))
		}
		lastRow := e.rowAt(end.Line)
		lines = append(lines, trimTrailing(rowSlice(lastRow, 0, end.Col)))
		return strings.Join(lines, "\n")
	}
}

func rowText(row []vtscreen.Cell) string {
	var b strings.Builder
	for _, c := range row {
		if c.Content == "" {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(c.Content)
	}
	return b.String()
}

func rowSlice(row []vtscreen.Cell, lo, hi int) string {
	if lo < 0 {
		lo = 0
	}
	if hi >= len(row) {
		hi = len(row) - 1
	}
	if lo > hi {
		return ""
	}
	return rowText(row[lo : hi+1])
}

func trimTrailing(s string) string {
	return strings.TrimRight(s, " ")
}

// SetPendingRegister arms the next yank to also assign the named
// register (the `"a` / `"A` style register prefix in vi copy mode).
func (e *Engine) SetPendingRegister(r rune) {
	e.register = r
	e.pendingRegister = true
}

func (e *Engine) takeRegister() rune {
	if !e.pendingRegister {
		return 0
	}
	e.pendingRegister = false
	return e.register
}

// CopySelection materializes the current selection into buffers (yank),
// clearing the selection when cancel is true (`copy-selection-and-cancel`
// vs. plain `copy-selection`). Returns the yanked text.
func (e *Engine) CopySelection(buffers *Buffers, cancel bool) string {
	text := e.Selected()
	if text != "" {
		buffers.Push(text, e.takeRegister())
	}
	if cancel {
		e.ClearSelection()
	}
	return text
}

// AppendSelection yanks the current selection onto the most recent
// buffer instead of pushing a new ring entry (`append-selection`).
func (e *Engine) AppendSelection(buffers *Buffers, cancel bool) string {
	text := e.Selected()
	if text != "" {
		combined := buffers.Top() + text
		buffers.Set(combined)
	}
	if cancel {
		e.ClearSelection()
	}
	return buffers.Top()
}

// CopyLine selects and yanks the cursor's whole line (`copy-line`).
func (e *Engine) CopyLine(buffers *Buffers) string {
	e.Anchor = Position{Line: e.Cursor.Line, Col: 0}
	e.Kind = Line
	return e.CopySelection(buffers, true)
}

// CopyEndOfLine selects and yanks from the cursor to end of line
// (`copy-end-of-line`).
func (e *Engine) CopyEndOfLine(buffers *Buffers) string {
	e.Anchor = e.Cursor
	e.Kind = Char
	e.Cursor.Col = lastNonEmptyCol(e.rowAt(e.Cursor.Line))
	return e.CopySelection(buffers, true)
}
