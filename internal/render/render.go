package render

import (
	"fmt"
	"sort"

	"psmux/internal/copymode"
	"psmux/internal/keytable"
	"psmux/internal/session"
	"psmux/internal/tree"
	"psmux/internal/vtscreen"
)

// CopyModeLookup returns the active copy-mode engine for a pane, if any,
// so the renderer can draw its scrollback viewport and cursor instead of
// the live grid. Supplied by the dispatcher (C10), which owns per-pane
// mode state; render has no opinion on how modes are tracked.
type CopyModeLookup func(paneID int) (engine *copymode.Engine, active bool)

// Builder assembles frames for one session, caching the previous
// data_version so Build can report the spec's "NC" short-circuit
// opportunity to the caller (the control protocol decides whether the
// requesting connection actually gets NC or a full frame).
type Builder struct {
	Manager    *session.Manager
	Dispatcher *keytable.Dispatcher
	CopyMode   CopyModeLookup

	lastVersion uint64
	haveLast    bool
}

// NewBuilder creates a frame Builder bound to manager and dispatcher.
// copyMode may be nil, in which case every pane renders live.
func NewBuilder(manager *session.Manager, dispatcher *keytable.Dispatcher, copyMode CopyModeLookup) *Builder {
	if copyMode == nil {
		copyMode = func(int) (*copymode.Engine, bool) { return nil, false }
	}
	return &Builder{Manager: manager, Dispatcher: dispatcher, CopyMode: copyMode}
}

// Unchanged reports whether version equals the data_version computed the
// last time Build ran, the condition spec.md §4.5.a requires before a
// streaming connection may receive "NC" instead of a full frame.
func (b *Builder) Unchanged(version uint64) bool {
	return b.haveLast && b.lastVersion == version
}

// Build renders sessionName's full frame. It also updates the builder's
// cached data_version for the next Unchanged check.
func (b *Builder) Build(sessionName string) (Frame, error) {
	sess, ok := b.Manager.GetSession(sessionName)
	if !ok {
		return Frame{}, fmt.Errorf("render: session not found: %s", sessionName)
	}

	win := activeWindow(sess)
	if win == nil {
		return Frame{}, fmt.Errorf("render: session %s has no active window", sessionName)
	}

	var inputs []dataVersionInput
	layout, err := b.layoutNode(win.Layout, win, &inputs)
	if err != nil {
		return Frame{}, err
	}

	version := dataVersion(len(sess.Windows), sess.ActiveWindowID, inputs)
	b.lastVersion, b.haveLast = version, true

	return Frame{
		Layout:      layout,
		Windows:     windowList(sess),
		Styles:      b.styles(),
		Bindings:    b.bindings(),
		StatusLines: b.statusLines(sess, win),
		DataVersion: version,
	}, nil
}

// layoutNode recursively converts an internal/tree.Node into a
// render.LayoutNode, reading each leaf's live pane screen (or its
// copy-mode viewport, if one is active) and recording a dataVersionInput
// for the hash computed by the caller.
func (b *Builder) layoutNode(n *tree.Node, win *session.Window, inputs *[]dataVersionInput) (*LayoutNode, error) {
	if n == nil {
		return nil, nil
	}
	if n.Type == tree.Leaf {
		return b.leafNode(n.PaneID, win, inputs)
	}

	out := &LayoutNode{Type: tree.Split, Axis: n.Axis, Sizes: append([]int(nil), n.Sizes...)}
	for _, child := range n.Children {
		cn, err := b.layoutNode(child, win, inputs)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, cn)
	}
	return out, nil
}

func (b *Builder) leafNode(paneID int, win *session.Window, inputs *[]dataVersionInput) (*LayoutNode, error) {
	pane, ok := b.Manager.PaneByID(paneID)
	if !ok {
		return nil, fmt.Errorf("render: pane not found: %%%d", paneID)
	}

	snap := win.Panes[paneID]
	isActive := snap != nil && snap.Active

	engine, inCopyMode := b.CopyMode(paneID)

	var grid [][]Cell
	var cursorRow, cursorCol, scrollOff, rows, cols int
	var dirty uint64

	pane.WithScreen(func(screen *vtscreen.Screen) {
		cols, rows = screen.Size()
		dirty = screen.DirtyCounter()
		if inCopyMode && engine != nil {
			grid = gridFromScreen(screen, engine.ScrollbackTop, rows)
			cursorRow = engine.Cursor.Line - engine.ScrollbackTop
			cursorCol = engine.Cursor.Col
			scrollOff = screen.HistoryLen() - engine.ScrollbackTop
		} else {
			grid = gridFromScreen(screen, screen.HistoryLen(), rows)
			cur := screen.Cursor()
			cursorRow, cursorCol = cur.Y, cur.X
		}
	})

	*inputs = append(*inputs, dataVersionInput{
		paneID:     paneID,
		cursorRow:  cursorRow,
		cursorCol:  cursorCol,
		active:     isActive,
		inCopyMode: inCopyMode,
		scrollOff:  scrollOff,
		dirty:      dirty,
	})

	return &LayoutNode{
		Type:       tree.Leaf,
		PaneID:     paneID,
		Rows:       rows,
		Cols:       cols,
		CursorRow:  cursorRow,
		CursorCol:  cursorCol,
		IsActive:   isActive,
		InCopyMode: inCopyMode,
		ScrollOff:  scrollOff,
		Grid:       grid,
	}, nil
}

func activeWindow(sess *session.Session) *session.Window {
	for _, w := range sess.Windows {
		if w.ID == sess.ActiveWindowID {
			return w
		}
	}
	if len(sess.Windows) > 0 {
		return sess.Windows[0]
	}
	return nil
}

func windowList(sess *session.Session) []WindowInfo {
	out := make([]WindowInfo, 0, len(sess.Windows))
	for idx, w := range sess.Windows {
		out = append(out, WindowInfo{
			ID:     w.ID,
			Index:  idx,
			Name:   w.Name,
			Active: w.ID == sess.ActiveWindowID,
		})
	}
	return out
}

func (b *Builder) styles() Styles {
	if b.Dispatcher == nil {
		return Styles{Prefix: "C-b"}
	}
	return Styles{
		Prefix:          b.Dispatcher.PrimaryPrefix().String(),
		SecondaryPrefix: optionalChordString(b.Dispatcher.SecondaryPrefix()),
	}
}

func optionalChordString(c keytable.Chord) string {
	if c.Key == "" {
		return ""
	}
	return c.String()
}

func (b *Builder) bindings() []BindingInfo {
	if b.Dispatcher == nil {
		return nil
	}
	registry := b.Dispatcher.Registry()
	var out []BindingInfo
	for _, name := range registry.Names() {
		entries := registry.Table(name).Entries()
		for chord, binding := range entries {
			out = append(out, BindingInfo{
				Table:      name,
				Key:        chord,
				Command:    binding.Command,
				Repeatable: binding.Repeatable,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func (b *Builder) statusLines(sess *session.Session, win *session.Window) []string {
	return []string{ExpandStatusFormat(DefaultStatusFormat, win)}
}
