// Package render is the frame-serialization layer (spec component C8): it
// converts a session's split tree and per-pane VT screens into the
// recursive, JSON-friendly Frame envelope the control protocol (C9) ships
// to a streaming attach client.
//
// Grounded on myT-x's internal/tmux/layout.go's LayoutNode tagged-union
// JSON shape (Type/Direction/Ratio/PaneID/Children, generalized here to
// the n-ary internal/tree.Node this module uses) and
// session_manager_snapshot.go's Snapshot()/cloneSessionForRead pattern of
// walking the live tree once under lock and emitting a plain, JSON-ready
// value. The status-line #{var} expansion in format.go is adapted in
// format.go (this package) for spec.md's "pre-expanded" status strings.
package render

import (
	"psmux/internal/tree"
)

// LayoutNode is the recursive tagged union spec.md §3 names: a Leaf
// carries one pane's rendered grid, a Split carries its children. Exactly
// one of the two shapes is populated per node, following the teacher's
// LayoutNode convention of a Type discriminator plus omitempty siblings.
type LayoutNode struct {
	Type tree.NodeType `json:"type"`

	// Split fields.
	Axis     tree.Axis     `json:"axis,omitempty"`
	Sizes    []int         `json:"sizes,omitempty"`
	Children []*LayoutNode `json:"children,omitempty"`

	// Leaf fields.
	PaneID     int      `json:"pane_id,omitempty"`
	Rows       int      `json:"rows,omitempty"`
	Cols       int      `json:"cols,omitempty"`
	CursorRow  int      `json:"cursor_row,omitempty"`
	CursorCol  int      `json:"cursor_col,omitempty"`
	IsActive   bool     `json:"is_active,omitempty"`
	InCopyMode bool     `json:"in_copy_mode,omitempty"`
	ScrollOff  int      `json:"scroll_offset,omitempty"`
	Grid       [][]Cell `json:"grid,omitempty"`
}

// WindowInfo is one entry in the frame's window list.
type WindowInfo struct {
	ID     int    `json:"id"`
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// BindingInfo is one entry in the frame's bindings list (list-keys
// output, surfaced for a client-side help/status display).
type BindingInfo struct {
	Table      string   `json:"table"`
	Key        string   `json:"key"`
	Command    []string `json:"command"`
	Repeatable bool     `json:"repeatable,omitempty"`
}

// Styles carries the pre-formatted display strings spec.md §3 lists
// alongside the layout: the prefix keys, base index, and whatever border/
// status style strings the session's options resolve to.
type Styles struct {
	Prefix          string `json:"prefix"`
	SecondaryPrefix string `json:"secondary_prefix,omitempty"`
	BaseIndex       int    `json:"base_index"`
	BorderStyle     string `json:"border_style,omitempty"`
	StatusStyle     string `json:"status_style,omitempty"`
}

// Frame is the complete renderer output for one session: everything a
// streaming attach client needs to redraw without any further round trip.
type Frame struct {
	Layout      *LayoutNode   `json:"layout"`
	Windows     []WindowInfo  `json:"windows"`
	Styles      Styles        `json:"styles"`
	Bindings    []BindingInfo `json:"bindings,omitempty"`
	StatusLines []string      `json:"status_lines,omitempty"`
	DataVersion uint64        `json:"data_version"`
}
