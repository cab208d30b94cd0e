// Package session is the pane/window/session model (spec components
// C3-C6): pane lifecycle on top of internal/pty and internal/vtscreen,
// windows as an internal/tree split layout over a set of panes, and
// sessions as an ordered list of windows plus their options/environment.
//
// Locking follows the teacher's SessionManager convention throughout:
// a single sync.RWMutex guards all session/window/pane state, and most
// helpers suffixed Locked require the caller to already hold it
// (spawnPaneLocked runs without it, and removeSessionLocked takes it
// itself). Session lookups hand out cloned snapshots
// (cloneSessionForRead) so a snapshot can be read or JSON-marshaled with
// no further locking; pane lookups such as ResolveTarget and PaneByID
// return live *Pane pointers.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"psmux/internal/pty"
	"psmux/internal/tree"
	"psmux/internal/vtscreen"
)

// Pane is one terminal inside a window's split tree.
type Pane struct {
	ID     int
	Index  int
	Title  string
	Active bool
	Width  int
	Height int
	Env    map[string]string

	// RemainOnExit keeps a dead pane in the tree showing its last frame
	// instead of being reaped automatically; cleared only by KillPane.
	RemainOnExit bool
	Dead         bool
	ExitCode     int

	Window *Window `json:"-"`

	handle pty.Handle
	screen *vtscreen.Screen
	// screenMu guards handle/screen access: the reader goroutine writes
	// through it while render/copy-mode callers read concurrently.
	screenMu sync.Mutex
	// onData fires once per successful PTY read, ungated by screenMu, so
	// the dispatcher's adaptive-timeout check (spec.md §4.5: "the
	// pty_data_ready flag is set") never blocks behind a pane's own lock.
	onData func()
}

// IDString renders a pane id the way every target/format string in this
// module expects it: "%123".
func (p *Pane) IDString() string {
	return fmt.Sprintf("%%%d", p.ID)
}

// Window is one tab of a session: a split tree of panes plus the path to
// the currently active leaf.
type Window struct {
	ID         int
	Name       string
	Layout     *tree.Node
	ActivePath tree.Path
	Panes      map[int]*Pane
	Session    *Session `json:"-"`
}

// Session is a named collection of windows plus session-scoped state.
type Session struct {
	ID             int
	Name           string
	Windows        []*Window
	ActiveWindowID int
	CreatedAt      time.Time
	LastActivity   time.Time
	IsIdle         bool
	Env            map[string]string

	// MarkedPaneID is the target of the last `mark` command send-keys-style
	// operators reference via `{marked}`; 0 means nothing is marked.
	MarkedPaneID int
}

// PaneSnapshot is a read-only, lock-free pane view.
type PaneSnapshot struct {
	ID           string
	Index        int
	Title        string
	Active       bool
	Width        int
	Height       int
	Dead         bool
	RemainOnExit bool
}

// WindowSnapshot is a read-only, lock-free window view.
type WindowSnapshot struct {
	ID         int
	Name       string
	Layout     *tree.Node
	ActivePath tree.Path
	Panes      []PaneSnapshot
}

// SessionSnapshot is a read-only, lock-free session view.
type SessionSnapshot struct {
	ID             int
	Name           string
	CreatedAt      time.Time
	IsIdle         bool
	ActiveWindowID int
	Windows        []WindowSnapshot
}

// Manager owns every session/window/pane in the server process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	panes    map[int]*Pane

	nextSessionID int
	nextWindowID  int
	nextPaneID    int

	now           func() time.Time
	idleThreshold time.Duration

	// onHook fires (unlocked) whenever a lifecycle event the hook system
	// (spec.md §4.8) cares about occurs. nil is a valid no-op default.
	onHook func(event string, paneID int, sessionName string)

	// dataReady is the process-wide "pty_data_ready" flag spec.md §4.3/§4.5
	// describe: any reader goroutine flips it on fresh output, and the
	// dispatcher consumes (clears) it once per tick to decide whether to
	// shorten its idle sleep.
	dataReady atomic.Bool
}

// DataReady reports whether any pane produced output since the last call,
// clearing the flag as it reports it (a consuming read, not a peek).
func (m *Manager) DataReady() bool {
	return m.dataReady.Swap(false)
}

func (m *Manager) markDataReady() {
	m.dataReady.Store(true)
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		sessions:      map[string]*Session{},
		panes:         map[int]*Pane{},
		now:           time.Now,
		idleThreshold: 5 * time.Second,
		onHook:        func(string, int, string) {},
	}
}

// SetHookSink installs the callback fired on lifecycle events.
func (m *Manager) SetHookSink(fn func(event string, paneID int, sessionName string)) {
	if fn == nil {
		fn = func(string, int, string) {}
	}
	m.mu.Lock()
	m.onHook = fn
	m.mu.Unlock()
}

func copyEnvMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
