package render

import "psmux/internal/vtscreen"

// Cell is one rendered grid position, matching spec.md §3's Frame
// envelope Cell shape exactly. JSON field names follow the spec text.
type Cell struct {
	Text      string `json:"text"`
	Fg        string `json:"fg"`
	Bg        string `json:"bg"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Inverse   bool   `json:"inverse,omitempty"`
	Dim       bool   `json:"dim,omitempty"`
}

// cellFromVT converts a vtscreen.Cell into the wire Cell shape.
func cellFromVT(c vtscreen.Cell) Cell {
	text := c.Content
	if text == "" {
		text = " "
	}
	return Cell{
		Text:      text,
		Fg:        encodeColor(c.Style.Fg),
		Bg:        encodeColor(c.Style.Bg),
		Bold:      c.Style.Bold,
		Italic:    c.Style.Italic,
		Underline: c.Style.Underline,
		Inverse:   c.Style.Reverse,
		Dim:       c.Style.Faint,
	}
}

// gridFromScreen snapshots rows [top, top+rows) of screen into a [][]Cell,
// reading from scrollback when top falls before the live grid (the
// in-copy-mode / scrolled-back rendering path).
func gridFromScreen(screen *vtscreen.Screen, top, rows int) [][]Cell {
	history := screen.HistoryLen()
	cols, liveRows := screen.Size()
	grid := make([][]Cell, rows)
	for y := 0; y < rows; y++ {
		line := top + y
		var vtRow []vtscreen.Cell
		if line < history {
			vtRow, _ = screen.HistoryRow(line)
		} else if r := line - history; r >= 0 && r < liveRows {
			vtRow = screen.Row(r)
		}
		row := make([]Cell, cols)
		for x := 0; x < cols; x++ {
			if x < len(vtRow) {
				row[x] = cellFromVT(vtRow[x])
			} else {
				row[x] = Cell{Text: " ", Fg: "default", Bg: "default"}
			}
		}
		grid[y] = row
	}
	return grid
}
