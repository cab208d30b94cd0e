package copymode

// BeginSelection anchors a character-wise selection at the cursor
// (`begin-selection` / v).
func (e *Engine) BeginSelection() {
	e.Anchor = e.Cursor
	e.Kind = Char
}

// SelectLine anchors a line-wise selection at the cursor (V).
func (e *Engine) SelectLine() {
	e.Anchor = e.Cursor
	e.Kind = Line
}

// RectangleToggle switches the active selection to (or out of)
// rectangle mode without losing the anchor.
func (e *Engine) RectangleToggle() {
	if e.Kind == Rect {
		e.Kind = Char
		return
	}
	if e.Kind == NoSelection {
		e.Anchor = e.Cursor
	}
	e.Kind = Rect
}

// OtherEnd swaps anchor and cursor (o).
func (e *Engine) OtherEnd() {
	if e.Kind == NoSelection {
		return
	}
	e.Anchor, e.Cursor = e.Cursor, e.Anchor
}

// ClearSelection drops the anchor entirely (`clear-selection`).
func (e *Engine) ClearSelection() {
	e.Kind = NoSelection
}

// StopSelection ends the selection (`stop-selection`) by setting Kind to
// NoSelection, exactly as ClearSelection does: afterwards HasSelection
// reports false and Selected() returns "". No frozen span is kept; the
// Anchor field keeps its value but no longer marks an active selection.
func (e *Engine) StopSelection() {
	e.Kind = NoSelection
}

// HasSelection reports whether a selection is currently active.
func (e *Engine) HasSelection() bool {
	return e.Kind != NoSelection
}

// orderedSpan returns the anchor/cursor pair in (start, end) reading
// order (start <= end by line then column).
func (e *Engine) orderedSpan() (start, end Position) {
	a, c := e.Anchor, e.Cursor
	if a.Line < c.Line || (a.Line == c.Line && a.Col <= c.Col) {
		return a, c
	}
	return c, a
}
