package session

import (
	"errors"
	"fmt"
	"log/slog"

	"psmux/internal/pty"
	"psmux/internal/tree"
)

// SplitPane splits the pane at paneID along axis, spawning cmd in the new
// pane and sizing both children at 50/50 of the parent's current rect.
func (m *Manager) SplitPane(paneID int, axis tree.Axis, cmd pty.Command) (*Pane, error) {
	m.mu.Lock()
	source, ok := m.panes[paneID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("pane not found: %%%d", paneID)
	}
	window := source.Window
	if window == nil {
		m.mu.Unlock()
		return nil, errors.New("pane has no window")
	}
	path, found := tree.FindPaneIDPath(window.Layout, paneID)
	if !found {
		m.mu.Unlock()
		return nil, fmt.Errorf("pane not present in window layout: %%%d", paneID)
	}
	newID := m.nextPaneID
	m.nextPaneID++
	newLayout, err := tree.ReplaceLeafWithSplit(window.Layout, path, axis, newID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	cols, rows := source.Width, source.Height
	if axis == tree.Horizontal {
		cols /= 2
	} else {
		rows /= 2
	}
	m.mu.Unlock()

	newPane, err := m.spawnPaneLocked(window, newID, cols, rows, cmd)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	window.Layout = newLayout
	window.Panes[newID] = newPane
	newPath, _ := tree.FindPaneIDPath(window.Layout, newID)
	window.ActivePath = newPath
	for id, p := range window.Panes {
		p.Active = id == newID
	}
	renumberPanesLocked(window)
	m.panes[newID] = newPane
	return newPane, nil
}

// PaneByID returns the live pane for id, for callers (the renderer in
// particular) that need direct screen access via Pane.WithScreen rather
// than a read-only cloneSessionForRead snapshot.
func (m *Manager) PaneByID(id int) (*Pane, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.panes[id]
	return p, ok
}

// renumberPanesLocked assigns each pane its DFS position in the window's
// layout tree as Index, matching tmux's "pane index reflects layout
// order" convention. Caller must hold m.mu.
func renumberPanesLocked(window *Window) {
	for idx, id := range tree.LeafIDs(window.Layout) {
		if p, ok := window.Panes[id]; ok {
			p.Index = idx
		}
	}
}

// KillPane removes a pane, closing its PTY, collapsing its window's
// layout tree around the gap, and removing the window/session if it was
// the last pane left.
func (m *Manager) KillPane(paneID int) (sessionName string, removedSession bool, err error) {
	m.mu.Lock()
	pane, ok := m.panes[paneID]
	if !ok {
		m.mu.Unlock()
		return "", false, fmt.Errorf("pane not found: %%%d", paneID)
	}
	window := pane.Window
	if window == nil || window.Session == nil {
		m.mu.Unlock()
		return "", false, errors.New("pane has invalid parent")
	}
	session := window.Session
	sessionName = session.Name

	delete(m.panes, paneID)
	m.removePaneFromWindowLocked(window, paneID)
	if len(window.Panes) == 0 {
		m.removeWindowLocked(session, window.ID)
	}
	if len(session.Windows) == 0 {
		delete(m.sessions, session.Name)
		removedSession = true
	}
	m.mu.Unlock()

	if err := pane.close(); err != nil {
		slog.Warn("[WARN-PANE] KillPane pty close failed", "pane", pane.IDString(), "error", err)
	}
	return sessionName, removedSession, nil
}

// removePaneFromWindowLocked deletes id from window's pane map and
// collapses its layout tree around the gap, re-picking an active path if
// the removed pane held it. Caller must hold m.mu.
func (m *Manager) removePaneFromWindowLocked(window *Window, id int) {
	delete(window.Panes, id)
	path, found := tree.FindPaneIDPath(window.Layout, id)
	if !found {
		return
	}
	newLayout, err := tree.Remove(window.Layout, path)
	if err != nil {
		return
	}
	window.Layout = newLayout
	if newLayout == nil {
		window.ActivePath = nil
		return
	}
	if _, err := tree.FindLeaf(newLayout, window.ActivePath); err != nil {
		window.ActivePath = tree.FirstLeafPath(newLayout)
	}
	activeLeaf, _ := tree.FindLeaf(newLayout, window.ActivePath)
	for pid, p := range window.Panes {
		p.Active = activeLeaf != nil && activeLeaf.PaneID == pid
	}
	renumberPanesLocked(window)
}

// ResizePane adjusts the split boundary adjacent to paneID at splitDepth
// levels up from its leaf (0 = the immediate parent split) by deltaPx
// along that split's own axis, matching the drag-resize gesture spec.md
// §4.4 describes, then resizes every leaf pane's PTY/VT grid to its
// newly computed rect.
func (m *Manager) ResizePane(paneID int, splitDepth int, deltaPx int, outerCols, outerRows int) error {
	m.mu.Lock()
	pane, ok := m.panes[paneID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("pane not found: %%%d", paneID)
	}
	window := pane.Window
	path, found := tree.FindPaneIDPath(window.Layout, paneID)
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("pane not present in window layout: %%%d", paneID)
	}
	if splitDepth < 0 || splitDepth >= len(path) {
		m.mu.Unlock()
		return fmt.Errorf("tree: splitDepth %d out of range for path %v", splitDepth, path)
	}
	level := len(path) - 1 - splitDepth
	parentPath := append(tree.Path(nil), path[:level]...)
	childIdx := path[level]

	// SplitSizesAt requires a boundary between two existing children; the
	// last child has no boundary to its right, so resizing it means
	// resizing the boundary to its left instead.
	boundary := childIdx
	if _, _, err := tree.SplitSizesAt(window.Layout, parentPath, boundary); err != nil && boundary > 0 {
		boundary--
	}

	outer := outerRows
	if splitAxisIsHorizontal(window.Layout, parentPath) {
		outer = outerCols
	}
	if err := tree.Adjust(window.Layout, parentPath, boundary, deltaPx, outer); err != nil {
		m.mu.Unlock()
		return err
	}
	rects := tree.ComputeRects(window.Layout, tree.Rect{W: outerCols, H: outerRows})
	m.mu.Unlock()

	for _, lr := range rects {
		leaf, err := tree.FindLeaf(window.Layout, lr.Path)
		if err != nil || leaf == nil {
			continue
		}
		m.mu.RLock()
		p := m.panes[leaf.PaneID]
		m.mu.RUnlock()
		if p == nil {
			continue
		}
		if err := p.Resize(lr.Rect.W, lr.Rect.H); err != nil {
			slog.Debug("[DEBUG-PANE] resize after split adjust failed", "pane", p.IDString(), "error", err)
		}
	}
	return nil
}

// splitAxisIsHorizontal reports whether the split node at path lays its
// children out left-to-right (so resize deltas are measured in columns).
func splitAxisIsHorizontal(root *tree.Node, path tree.Path) bool {
	n := root
	for _, idx := range path {
		if n == nil || n.Type != tree.Split || idx < 0 || idx >= len(n.Children) {
			return true
		}
		n = n.Children[idx]
	}
	return n != nil && n.Axis == tree.Horizontal
}
