package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"psmux/internal/pty"
	"psmux/internal/tree"
)

// DefaultCols and DefaultRows seed a pane's first size when the caller
// does not specify one, matching a typical 80x24 terminal.
const (
	DefaultCols = 80
	DefaultRows = 24
)

// CreateSession creates a session with one window and one pane, spawning
// cmd against a PTY of width x height.
func (m *Manager) CreateSession(name, windowName string, width, height int, cmd pty.Command) (*Session, *Pane, error) {
	name = strings.TrimSpace(name)
	if width <= 0 {
		width = DefaultCols
	}
	if height <= 0 {
		height = DefaultRows
	}
	if strings.TrimSpace(windowName) == "" {
		windowName = "0"
	}

	m.mu.Lock()
	if name == "" {
		name = m.nextAutoSessionNameLocked()
	}
	if _, exists := m.sessions[name]; exists {
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("session already exists: %s", name)
	}

	now := m.now()
	session := &Session{
		ID:           m.nextSessionID,
		Name:         name,
		CreatedAt:    now,
		LastActivity: now,
		Env:          map[string]string{},
	}
	m.nextSessionID++

	window := &Window{
		ID:      m.nextWindowID,
		Name:    windowName,
		Panes:   map[int]*Pane{},
		Session: session,
	}
	session.ActiveWindowID = window.ID
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
	pane.Active = true
	window.Panes[paneID] = pane
	session.Windows = []*Window{window}
	m.sessions[session.Name] = session
	m.panes[paneID] = pane
	m.mu.Unlock()

	return cloneSessionForRead(session), pane, nil
}

func (m *Manager) nextAutoSessionNameLocked() string {
	for i := 0; ; i++ {
		name := strconv.Itoa(i)
		if _, exists := m.sessions[name]; !exists {
			return name
		}
	}
}

// RenameSession changes the name of an existing session.
func (m *Manager) RenameSession(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.New("new session name cannot be empty")
	}
	if oldName == newName {
		return nil
	}
	session, ok := m.sessions[oldName]
	if !ok {
		return fmt.Errorf("session not found: %s", oldName)
	}
	if _, exists := m.sessions[newName]; exists {
		return fmt.Errorf("session already exists: %s", newName)
	}
	delete(m.sessions, oldName)
	session.Name = newName
	m.sessions[newName] = session
	return nil
}

// removeSessionLocked detaches a session and returns its panes for
// PTY/terminal cleanup outside the lock.
func (m *Manager) removeSessionLocked(name string) (*Session, []*Pane, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = strings.TrimSpace(name)
	session, ok := m.sessions[name]
	if !ok {
		return nil, nil, fmt.Errorf("session not found: %s", name)
	}
	sessionCopy := cloneSessionForRead(session)
	var panes []*Pane
	for _, window := range session.Windows {
		for _, pane := range window.Panes {
			panes = append(panes, pane)
			delete(m.panes, pane.ID)
		}
	}
	delete(m.sessions, name)
	return sessionCopy, panes, nil
}

// RemoveSession closes every pane in the session and removes it.
func (m *Manager) RemoveSession(name string) (*Session, error) {
	sessionCopy, panes, err := m.removeSessionLocked(name)
	if err != nil {
		return nil, err
	}
	var closeErrs []error
	for _, pane := range panes {
		if err := pane.close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("pane %s: %w", pane.IDString(), err))
		}
	}
	if len(closeErrs) > 0 {
		slog.Warn("[WARN-SESSION] RemoveSession pty close errors",
			"session", sessionCopy.Name, "error", errors.Join(closeErrs...))
	}
	return sessionCopy, nil
}

// HasSession reports whether name refers to a live session.
func (m *Manager) HasSession(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[strings.TrimSpace(name)]
	return ok
}

// ListSessions returns every session, sorted by id, as read-only snapshots.
func (m *Manager) ListSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, cloneSessionForRead(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetSession returns a read-only snapshot of the named session.
func (m *Manager) GetSession(name string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return cloneSessionForRead(s), true
}

// Close shuts down every session's panes. Used on server shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	panes := make([]*Pane, 0, len(m.panes))
	for _, pane := range m.panes {
		panes = append(panes, pane)
	}
	m.sessions = map[string]*Session{}
	m.panes = map[int]*Pane{}
	m.mu.Unlock()

	var closeErrs []error
	for _, pane := range panes {
		if err := pane.close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("pane %s: %w", pane.IDString(), err))
		}
	}
	if len(closeErrs) > 0 {
		slog.Warn("[WARN-SESSION] Manager.Close pty close errors", "error", errors.Join(closeErrs...))
	}
}

// cloneSessionForRead deep-copies a session so callers can read or encode
// it without holding the manager lock and without reaching live PTY/screen
// state through the clone.
func cloneSessionForRead(s *Session) *Session {
	if s == nil {
		return nil
	}
	clone := &Session{
		ID:             s.ID,
		Name:           s.Name,
		CreatedAt:      s.CreatedAt,
		LastActivity:   s.LastActivity,
		IsIdle:         s.IsIdle,
		ActiveWindowID: s.ActiveWindowID,
		MarkedPaneID:   s.MarkedPaneID,
		Env:            copyEnvMap(s.Env),
	}
	clone.Windows = make([]*Window, 0, len(s.Windows))
	for _, w := range s.Windows {
		wc := &Window{
			ID:         w.ID,
			Name:       w.Name,
			Layout:     tree.Clone(w.Layout),
			ActivePath: append(tree.Path(nil), w.ActivePath...),
			Panes:      make(map[int]*Pane, len(w.Panes)),
			Session:    clone,
		}
		for id, p := range w.Panes {
			wc.Panes[id] = &Pane{
				ID:           p.ID,
				Index:        p.Index,
				Title:        p.Title,
				Active:       p.Active,
				Width:        p.Width,
				Height:       p.Height,
				Env:          copyEnvMap(p.Env),
				RemainOnExit: p.RemainOnExit,
				Dead:         p.Dead,
				ExitCode:     p.ExitCode,
				Window:       wc,
				// handle/screen intentionally left nil: a clone is for safe
				// external reads only, never for I/O.
			}
		}
		clone.Windows = append(clone.Windows, wc)
	}
	return clone
}
