package session

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func parsePaneID(target string) (int, error) {
	trimmed := strings.TrimPrefix(target, "%")
	id, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid pane id: %s", target)
	}
	return id, nil
}

// ResolveTarget parses a tmux-style target ("%N", "session", "session:win",
// "session:win.pane") against the pane the calling connection is attached
// to (callerPaneID, or -1 if none) and returns the live pane.
//
// IMPORTANT: the returned *Pane is a live internal pointer valid only
// until the next mutation; callers needing a stable view should read its
// scalar fields immediately or use GetSession for a snapshot.
func (m *Manager) ResolveTarget(target string, callerPaneID int) (*Pane, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveTargetLocked(target, callerPaneID)
}

func (m *Manager) resolveTargetLocked(target string, callerPaneID int) (*Pane, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		if callerPaneID >= 0 {
			if p, ok := m.panes[callerPaneID]; ok {
				return p, nil
			}
		}
		return m.defaultPaneLocked()
	}
	if strings.HasPrefix(target, "%") {
		id, err := parsePaneID(target)
		if err != nil {
			return nil, err
		}
		p, ok := m.panes[id]
		if !ok {
			return nil, fmt.Errorf("pane not found: %s", target)
		}
		return p, nil
	}

	sessionName, rem, hasColon := strings.Cut(target, ":")
	session, ok := m.sessions[sessionName]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionName)
	}
	if !hasColon || strings.TrimSpace(rem) == "" {
		return m.activePaneInSessionLocked(session)
	}
	return m.resolveWindowPaneTargetLocked(session, target, rem)
}

func (m *Manager) resolveWindowPaneTargetLocked(session *Session, target, remainder string) (*Pane, error) {
	windowPart, panePart, hasPane := strings.Cut(remainder, ".")
	windowPart = strings.TrimSpace(windowPart)

	var window *Window
	if after, ok := strings.CutPrefix(windowPart, "@"); ok {
		id, err := strconv.Atoi(strings.TrimSpace(after))
		if err != nil {
			return nil, fmt.Errorf("invalid window id: %s", windowPart)
		}
		w, found := findWindow(session.Windows, id)
		if !found {
			return nil, fmt.Errorf("window id not found: %d", id)
		}
		window = w
	} else {
		idx, err := strconv.Atoi(windowPart)
		if err != nil || idx < 0 || idx >= len(session.Windows) {
			return nil, fmt.Errorf("invalid window index: %s", windowPart)
		}
		window = session.Windows[idx]
	}

	if !hasPane || strings.TrimSpace(panePart) == "" {
		return activePaneInWindow(window)
	}
	if after, ok := strings.CutPrefix(strings.TrimSpace(panePart), "%"); ok {
		id, err := strconv.Atoi(after)
		if err != nil {
			return nil, fmt.Errorf("invalid pane id: %s", panePart)
		}
		p, found := window.Panes[id]
		if !found {
			return nil, fmt.Errorf("pane not found in window: %s", target)
		}
		return p, nil
	}
	idx, err := strconv.Atoi(strings.TrimSpace(panePart))
	if err != nil {
		return nil, fmt.Errorf("invalid pane index: %s", panePart)
	}
	p := nthPaneByIndex(window, idx)
	if p == nil {
		return nil, fmt.Errorf("pane index out of range: %d", idx)
	}
	return p, nil
}

func nthPaneByIndex(window *Window, idx int) *Pane {
	for _, p := range window.Panes {
		if p.Index == idx {
			return p
		}
	}
	return nil
}

func (m *Manager) defaultPaneLocked() (*Pane, error) {
	if len(m.sessions) == 0 {
		return nil, errors.New("no sessions")
	}
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return m.activePaneInSessionLocked(sessions[0])
}

func (m *Manager) activePaneInSessionLocked(session *Session) (*Pane, error) {
	window, ok := findWindow(session.Windows, session.ActiveWindowID)
	if !ok {
		if len(session.Windows) == 0 {
			return nil, errors.New("session has no windows")
		}
		window = session.Windows[0]
	}
	return activePaneInWindow(window)
}

func activePaneInWindow(window *Window) (*Pane, error) {
	if window == nil || len(window.Panes) == 0 {
		return nil, errors.New("window has no panes")
	}
	for _, p := range window.Panes {
		if p.Active {
			return p, nil
		}
	}
	for _, p := range window.Panes {
		return p, nil
	}
	return nil, errors.New("window has no panes")
}

// ResolveSessionTarget resolves just the session portion of a target.
func (m *Manager) ResolveSessionTarget(target string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("session target required")
	}
	if strings.HasPrefix(target, "%") {
		id, err := parsePaneID(target)
		if err != nil {
			return nil, err
		}
		pane, ok := m.panes[id]
		if !ok || pane.Window == nil || pane.Window.Session == nil {
			return nil, fmt.Errorf("pane not found: %s", target)
		}
		return cloneSessionForRead(pane.Window.Session), nil
	}
	sessionName, _, _ := strings.Cut(target, ":")
	session, ok := m.sessions[sessionName]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionName)
	}
	return cloneSessionForRead(session), nil
}
