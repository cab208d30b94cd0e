package session

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"psmux/internal/pty"
	"psmux/internal/tree"
)

// AddWindow creates a new window with one pane in sessionName, generalizing
// myT-x's 1-window-per-session model back to full multi-window sessions.
func (m *Manager) AddWindow(sessionName, windowName string, width, height int, cmd pty.Command) (*Window, *Pane, error) {
	if width <= 0 {
		width = DefaultCols
	}
	if height <= 0 {
		height = DefaultRows
	}

	m.mu.Lock()
	session, ok := m.sessions[strings.TrimSpace(sessionName)]
	if !ok {
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("session not found: %s", sessionName)
	}
	if strings.TrimSpace(windowName) == "" {
		windowName = fmt.Sprintf("%d", len(session.Windows))
	}
	window := &Window{
		ID:      m.nextWindowID,
		Name:    windowName,
		Panes:   map[int]*Pane{},
		Session: session,
	}
	m.nextWindowID++
	paneID := m.nextPaneID
	m.nextPaneID++
	window.Layout = tree.NewLeaf(paneID)
	m.mu.Unlock()

	pane, err := m.spawnPaneLocked(window, paneID, width, height, cmd)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pane.Active = true
	window.Panes[paneID] = pane
	window.ActivePath = tree.Path{}
	session.Windows = append(session.Windows, window)
	session.ActiveWindowID = window.ID
	m.panes[paneID] = pane
	return window, pane, nil
}

// RemoveWindowByID removes a window by stable window ID, closes the PTYs
// of the panes it owned after releasing the lock, and reports whether the
// session was removed because it had no windows left.
func (m *Manager) RemoveWindowByID(sessionName string, windowID int) (removedSession bool, err error) {
	m.mu.Lock()
	session, ok := m.sessions[strings.TrimSpace(sessionName)]
	if !ok {
		m.mu.Unlock()
		return false, fmt.Errorf("session not found: %s", sessionName)
	}
	idx := findWindowIndex(session.Windows, windowID)
	if idx < 0 {
		m.mu.Unlock()
		return false, fmt.Errorf("window not found: %d", windowID)
	}
	window := session.Windows[idx]
	var panes []*Pane
	for _, p := range window.Panes {
		panes = append(panes, p)
		delete(m.panes, p.ID)
	}
	m.removeWindowLocked(session, windowID)
	if len(session.Windows) == 0 {
		delete(m.sessions, session.Name)
		removedSession = true
	}
	m.mu.Unlock()

	for _, p := range panes {
		if err := p.close(); err != nil {
			slog.Warn("[WARN-WINDOW] RemoveWindowByID pty close failed", "pane", p.IDString(), "error", err)
		}
	}
	return removedSession, nil
}

// removeWindowLocked splices windowID out of session.Windows and, if it
// held the active window slot, repairs ActiveWindowID to the nearest
// surviving window. Caller must hold m.mu.
func (m *Manager) removeWindowLocked(session *Session, windowID int) {
	idx := findWindowIndex(session.Windows, windowID)
	if idx < 0 {
		return
	}
	session.Windows = append(session.Windows[:idx], session.Windows[idx+1:]...)
	if len(session.Windows) == 0 {
		return
	}
	if _, ok := findWindow(session.Windows, session.ActiveWindowID); ok {
		return
	}
	fallbackIdx := idx
	if fallbackIdx >= len(session.Windows) {
		fallbackIdx = len(session.Windows) - 1
	}
	session.ActiveWindowID = session.Windows[fallbackIdx].ID
}

// RenameWindowByID changes a window's name.
func (m *Manager) RenameWindowByID(sessionName string, windowID int, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[strings.TrimSpace(sessionName)]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionName)
	}
	window, ok := findWindow(session.Windows, windowID)
	if !ok {
		return fmt.Errorf("window not found: %d", windowID)
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.New("new window name cannot be empty")
	}
	window.Name = newName
	return nil
}

// SelectWindow sets sessionName's active window.
func (m *Manager) SelectWindow(sessionName string, windowID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[strings.TrimSpace(sessionName)]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionName)
	}
	if _, ok := findWindow(session.Windows, windowID); !ok {
		return fmt.Errorf("window not found: %d", windowID)
	}
	session.ActiveWindowID = windowID
	return nil
}

func findWindowIndex(windows []*Window, id int) int {
	for i, w := range windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func findWindow(windows []*Window, id int) (*Window, bool) {
	for _, w := range windows {
		if w.ID == id {
			return w, true
		}
	}
	return nil, false
}
