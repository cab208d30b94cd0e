package attach

import (
	"fmt"
	"strconv"
	"strings"

	"psmux/internal/render"
	"psmux/internal/tree"
)

// Painter turns a render.Frame into the ANSI byte stream written to the
// local terminal: cursor positioning plus per-cell SGR attributes,
// replacing internal/render's JSON cells with escape sequences the way
// a real terminal emulator would. No cell-grid-to-ANSI renderer exists
// in the retrieved examples (every teacher candidate renders through a
// GUI widget instead), so this is grounded directly on the documented
// SGR sequences (ECMA-48 / the VT100 family every terminal emulator
// implements) rather than a borrowed library — see DESIGN.md.
type Painter struct {
	lastFg, lastBg               string
	lastBold, lastItalic         bool
	lastUnderline, lastInverse   bool
	lastDim                      bool
	haveAttrs                    bool
}

// NewPainter returns a Painter with a clean attribute cache; call this
// once per attach session, not once per frame, so unchanged runs of
// cells across frames don't re-emit SGR codes unnecessarily within a
// single Paint call (the cache still resets at the start of each call
// since each frame is drawn fresh from row 0).
func NewPainter() *Painter {
	return &Painter{}
}

// Paint renders frame as a full-screen redraw: clear, draw the layout
// tree left-to-right/top-to-bottom, then the status lines on the last
// rows.
func (p *Painter) Paint(frame *render.Frame, cols, rows int) string {
	var b strings.Builder
	b.WriteString("\x1b[2J\x1b[H")

	reserved := len(frame.StatusLines)
	paneRows := rows - reserved
	if paneRows < 1 {
		paneRows = rows
	}

	p.haveAttrs = false
	if frame.Layout != nil {
		p.paintNode(&b, frame.Layout, 0, 0)
	}

	for i, line := range frame.StatusLines {
		fmt.Fprintf(&b, "\x1b[%d;1H\x1b[K%s", paneRows+i+1, line)
	}

	if cursorRow, cursorCol, ok := activeCursor(frame.Layout, 0, 0); ok {
		fmt.Fprintf(&b, "\x1b[%d;%dH", cursorRow+1, cursorCol+1)
	}
	return b.String()
}

func (p *Painter) paintNode(b *strings.Builder, node *render.LayoutNode, rowOff, colOff int) {
	if node == nil {
		return
	}
	if node.Type == tree.Leaf {
		p.paintLeaf(b, node, rowOff, colOff)
		return
	}
	off := 0
	for _, child := range node.Children {
		cr, cc := rowOff, colOff
		if node.Axis == tree.Vertical {
			cr += off
		} else {
			cc += off
		}
		p.paintNode(b, child, cr, cc)
		rows, cols := nodeExtent(child)
		if node.Axis == tree.Vertical {
			off += rows
		} else {
			off += cols
		}
	}
}

func (p *Painter) paintLeaf(b *strings.Builder, node *render.LayoutNode, rowOff, colOff int) {
	for y, row := range node.Grid {
		fmt.Fprintf(b, "\x1b[%d;%dH", rowOff+y+1, colOff+1)
		for _, cell := range row {
			p.writeCell(b, cell)
		}
	}
	if len(node.Grid) > 0 {
		b.WriteString("\x1b[0m")
		p.haveAttrs = false
	}
}

func (p *Painter) writeCell(b *strings.Builder, cell render.Cell) {
	sgr := cellSGR(cell)
	if !p.haveAttrs || sgr != p.lastSGR() {
		b.WriteString("\x1b[0m")
		if sgr != "" {
			fmt.Fprintf(b, "\x1b[%sm", sgr)
		}
		p.lastFg, p.lastBg = cell.Fg, cell.Bg
		p.lastBold, p.lastItalic, p.lastUnderline = cell.Bold, cell.Italic, cell.Underline
		p.lastInverse, p.lastDim = cell.Inverse, cell.Dim
		p.haveAttrs = true
	}
	if cell.Text == "" {
		b.WriteByte(' ')
		return
	}
	b.WriteString(cell.Text)
}

func (p *Painter) lastSGR() string {
	return cellSGR(render.Cell{
		Fg: p.lastFg, Bg: p.lastBg,
		Bold: p.lastBold, Italic: p.lastItalic, Underline: p.lastUnderline,
		Inverse: p.lastInverse, Dim: p.lastDim,
	})
}

// cellSGR builds the SGR parameter string for one cell's attributes.
func cellSGR(cell render.Cell) string {
	var parts []string
	if cell.Bold {
		parts = append(parts, "1")
	}
	if cell.Dim {
		parts = append(parts, "2")
	}
	if cell.Italic {
		parts = append(parts, "3")
	}
	if cell.Underline {
		parts = append(parts, "4")
	}
	if cell.Inverse {
		parts = append(parts, "7")
	}
	if code, ok := ansiColorCode(cell.Fg, false); ok {
		parts = append(parts, code)
	}
	if code, ok := ansiColorCode(cell.Bg, true); ok {
		parts = append(parts, code)
	}
	return strings.Join(parts, ";")
}

// ansiColorCode translates a frame cell's color string to an SGR
// parameter. The frame encodings "idx:N" (256-palette index) and
// "rgb:R,G,B" (true color) are supported, as are named colors and bare
// numeric 256-palette indices; anything else (including "default"/"")
// is omitted.
func ansiColorCode(color string, bg bool) (string, bool) {
	if color == "" || color == "default" {
		return "", false
	}
	if rgb, ok := strings.CutPrefix(color, "rgb:"); ok {
		parts := strings.Split(rgb, ",")
		if len(parts) != 3 {
			return "", false
		}
		if bg {
			return "48;2;" + strings.Join(parts, ";"), true
		}
		return "38;2;" + strings.Join(parts, ";"), true
	}
	color = strings.TrimPrefix(color, "idx:")
	base := 30
	if bg {
		base = 40
	}
	names := map[string]int{
		"black": 0, "red": 1, "green": 2, "yellow": 3,
		"blue": 4, "magenta": 5, "cyan": 6, "white": 7,
	}
	if n, ok := names[color]; ok {
		return strconv.Itoa(base + n), true
	}
	if n, err := strconv.Atoi(color); err == nil && n >= 0 && n <= 255 {
		extBase := 38
		if bg {
			extBase = 48
		}
		return fmt.Sprintf("%d;5;%d", extBase, n), true
	}
	return "", false
}

// nodeExtent returns a leaf's own rows/cols, or a split's aggregate
// extent computed from its children: siblings stack along Axis and
// share the cross-axis size.
func nodeExtent(node *render.LayoutNode) (rows, cols int) {
	if node == nil {
		return 0, 0
	}
	if node.Type == tree.Leaf {
		return node.Rows, node.Cols
	}
	for _, child := range node.Children {
		cr, cc := nodeExtent(child)
		if node.Axis == tree.Vertical {
			rows += cr
			if cc > cols {
				cols = cc
			}
		} else {
			cols += cc
			if cr > rows {
				rows = cr
			}
		}
	}
	return rows, cols
}

// activeCursor finds the active leaf's absolute cursor position.
func activeCursor(node *render.LayoutNode, rowOff, colOff int) (int, int, bool) {
	if node == nil {
		return 0, 0, false
	}
	if node.Type == tree.Leaf {
		if node.IsActive {
			return rowOff + node.CursorRow, colOff + node.CursorCol, true
		}
		return 0, 0, false
	}
	off := 0
	for _, child := range node.Children {
		cr, cc := rowOff, colOff
		if node.Axis == tree.Vertical {
			cr += off
		} else {
			cc += off
		}
		if row, col, ok := activeCursor(child, cr, cc); ok {
			return row, col, true
		}
		rows, cols := nodeExtent(child)
		if node.Axis == tree.Vertical {
			off += rows
		} else {
			off += cols
		}
	}
	return 0, 0, false
}
