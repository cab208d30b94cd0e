package session

import "time"

// UpdateActivityByPaneID records activity on the session owning paneID.
// Returns true when an idle session moved back to active, which is the
// signal the hook system uses to fire session-active.
func (m *Manager) UpdateActivityByPaneID(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pane := m.panes[id]
	if pane == nil || pane.Window == nil || pane.Window.Session == nil {
		return false
	}
	session := pane.Window.Session
	session.LastActivity = m.now()
	if !session.IsIdle {
		return false
	}
	session.IsIdle = false
	return true
}

// CheckIdleState evaluates every session's idle state and fires
// session-idle/session-active hooks for any that flipped. Returns true if
// any session's idle state changed.
func (m *Manager) CheckIdleState() bool {
	now := m.now()

	m.mu.Lock()
	type flip struct {
		name string
		idle bool
	}
	var flips []flip
	for _, session := range m.sessions {
		last := session.LastActivity
		if last.IsZero() {
			last = session.CreatedAt
		}
		idle := now.Sub(last) >= m.idleThreshold
		if idle == session.IsIdle {
			continue
		}
		session.IsIdle = idle
		flips = append(flips, flip{session.Name, idle})
	}
	hook := m.onHook
	m.mu.Unlock()

	for _, f := range flips {
		event := "session-active"
		if f.idle {
			event = "session-idle"
		}
		hook(event, 0, f.name)
	}
	return len(flips) > 0
}

// RecommendedIdleCheckInterval returns an adaptive polling interval: 5s
// when every session is idle, 1s otherwise.
func (m *Manager) RecommendedIdleCheckInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.sessions) == 0 {
		return 5 * time.Second
	}
	for _, session := range m.sessions {
		if !session.IsIdle {
			return time.Second
		}
	}
	return 5 * time.Second
}

// ReapDeadPanes removes every dead pane without RemainOnExit from its
// window, collapsing the window's layout tree around it, and reports the
// (paneID, sessionName) pairs removed so the dispatcher can fire
// pane-died hooks and broadcast the topology change.
func (m *Manager) ReapDeadPanes() []struct {
	PaneID      int
	SessionName string
} {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reaped []struct {
		PaneID      int
		SessionName string
	}
	for _, session := range m.sessions {
		for _, window := range session.Windows {
			for id, pane := range window.Panes {
				if !pane.Dead || pane.RemainOnExit {
					continue
				}
				m.removePaneFromWindowLocked(window, id)
				delete(m.panes, id)
				reaped = append(reaped, struct {
					PaneID      int
					SessionName string
				}{id, session.Name})
			}
		}
	}
	return reaped
}
