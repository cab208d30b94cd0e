// Package tree implements the recursive pane-tiling data structure: a split
// tree whose leaves are panes and whose internal nodes are axis-tagged,
// percentage-sized splits.
//
// Generalized from myT-x's internal/tmux/layout.go, which modeled layout as
// a strictly-binary tree ([2]*LayoutNode, a single 0..1 Ratio per split).
// psmux needs tmux's n-ary splits (split-window can target any pane inside
// an already-split window, producing 3+ children along one axis) and
// percentage sizes that must sum to 100 and renormalize on structural
// change, so Children/Sizes replace the fixed-arity pair.
package tree

import "fmt"

// Axis is the layout direction of a split's children.
type Axis string

const (
	// Horizontal lays children left-to-right; the divider itself runs vertically.
	Horizontal Axis = "horizontal"
	// Vertical lays children top-to-bottom; the divider itself runs horizontally.
	Vertical Axis = "vertical"
)

// MinPercent is the minimum size any child of a split may shrink to.
const MinPercent = 5

// NodeType distinguishes a leaf (pane) from an internal split node.
type NodeType string

const (
	Leaf  NodeType = "leaf"
	Split NodeType = "split"
)

// Node is one element of a split tree: either a Leaf carrying a PaneID, or a
// Split carrying an Axis, ordered Children, and per-child percentage Sizes.
//
// Invariant: for a Split node, len(Children) == len(Sizes), len(Children) >= 2,
// sum(Sizes) == 100, and every Sizes[i] >= MinPercent.
type Node struct {
	Type     NodeType
	Axis     Axis
	PaneID   int
	Children []*Node
	Sizes    []int
}

// NewLeaf returns a new leaf node bound to paneID.
func NewLeaf(paneID int) *Node {
	return &Node{Type: Leaf, PaneID: paneID}
}

// Clone deep-copies a node and everything beneath it.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	out := &Node{Type: n.Type, Axis: n.Axis, PaneID: n.PaneID}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = Clone(c)
		}
		out.Sizes = append([]int(nil), n.Sizes...)
	}
	return out
}

// Path is a sequence of child indices from the root to a leaf.
type Path []int

// Equal reports whether two paths address the same node.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// FindLeaf walks path from root and returns the node at the end of it.
func FindLeaf(root *Node, path Path) (*Node, error) {
	n := root
	for _, idx := range path {
		if n == nil || n.Type != Split || idx < 0 || idx >= len(n.Children) {
			return nil, fmt.Errorf("tree: invalid path %v", path)
		}
		n = n.Children[idx]
	}
	if n == nil || n.Type != Leaf {
		return nil, fmt.Errorf("tree: path %v does not resolve to a leaf", path)
	}
	return n, nil
}

// FirstLeafPath returns the path of the first leaf in depth-first order.
func FirstLeafPath(root *Node) Path {
	var path Path
	n := root
	for n != nil && n.Type == Split && len(n.Children) > 0 {
		path = append(path, 0)
		n = n.Children[0]
	}
	return path
}

// FindPaneIDPath locates the path to the leaf carrying paneID, if any.
func FindPaneIDPath(root *Node, paneID int) (Path, bool) {
	var walk func(n *Node, prefix Path) (Path, bool)
	walk = func(n *Node, prefix Path) (Path, bool) {
		if n == nil {
			return nil, false
		}
		if n.Type == Leaf {
			if n.PaneID == paneID {
				return prefix, true
			}
			return nil, false
		}
		for i, c := range n.Children {
			if p, ok := walk(c, append(append(Path{}, prefix...), i)); ok {
				return p, true
			}
		}
		return nil, false
	}
	return walk(root, nil)
}

// LeafIDs returns every pane id reachable in the tree, DFS order.
func LeafIDs(root *Node) []int {
	var out []int
	var walk func(*Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Type == Leaf {
			out = append(out, n.PaneID)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

func renormalize(sizes []int) []int {
	total := 0
	for _, s := range sizes {
		total += s
	}
	if total == 0 || len(sizes) == 0 {
		out := make([]int, len(sizes))
		if len(sizes) > 0 {
			even := 100 / len(sizes)
			remainder := 100 - even*len(sizes)
			for i := range out {
				out[i] = even
			}
			out[len(out)-1] += remainder
		}
		return out
	}
	out := make([]int, len(sizes))
	assigned := 0
	for i, s := range sizes {
		v := s * 100 / total
		if v < MinPercent {
			v = MinPercent
		}
		out[i] = v
		assigned += v
	}
	out[len(out)-1] += 100 - assigned
	return out
}

// ReplaceLeafWithSplit wraps the leaf at path into a 2-child split along
// axis; the existing leaf keeps its pane id as child 0, newPaneID becomes
// child 1, sizes start at an even 50/50.
func ReplaceLeafWithSplit(root *Node, path Path, axis Axis, newPaneID int) (*Node, error) {
	if len(path) == 0 {
		if root == nil || root.Type != Leaf {
			return nil, fmt.Errorf("tree: root is not a leaf")
		}
		return &Node{
			Type:     Split,
			Axis:     axis,
			Children: []*Node{NewLeaf(root.PaneID), NewLeaf(newPaneID)},
			Sizes:    []int{50, 50},
		}, nil
	}

	parentPath, idx := path[:len(path)-1], path[len(path)-1]
	// FindLeaf only resolves paths ending at a leaf; walk to the split
	// parent manually instead.
	p := root
	for _, i := range parentPath {
		if p == nil || p.Type != Split || i < 0 || i >= len(p.Children) {
			return nil, fmt.Errorf("tree: invalid path %v", path)
		}
		p = p.Children[i]
	}
	if p == nil || p.Type != Split || idx < 0 || idx >= len(p.Children) {
		return nil, fmt.Errorf("tree: invalid path %v", path)
	}
	leaf := p.Children[idx]
	if leaf == nil || leaf.Type != Leaf {
		return nil, fmt.Errorf("tree: path %v does not address a leaf", path)
	}
	p.Children[idx] = &Node{
		Type:     Split,
		Axis:     axis,
		Children: []*Node{NewLeaf(leaf.PaneID), NewLeaf(newPaneID)},
		Sizes:    []int{50, 50},
	}
	return root, nil
}

// Remove deletes the leaf at path. If its parent split is left with one
// child, the parent collapses into that remaining child (which may itself
// be a split). Siblings' sizes renormalize to sum 100.
func Remove(root *Node, path Path) (*Node, error) {
	if len(path) == 0 {
		return nil, nil
	}
	parentPath, idx := path[:len(path)-1], path[len(path)-1]

	if len(parentPath) == 0 {
		if root == nil || root.Type != Split || idx < 0 || idx >= len(root.Children) {
			return nil, fmt.Errorf("tree: invalid path %v", path)
		}
		return removeChild(root, idx)
	}

	p := root
	var grandParent *Node
	var grandIdx int
	for i, step := range parentPath {
		if p == nil || p.Type != Split || step < 0 || step >= len(p.Children) {
			return nil, fmt.Errorf("tree: invalid path %v", path)
		}
		if i == len(parentPath)-1 {
			grandParent = p
			grandIdx = step
		}
		p = p.Children[step]
	}
	if p == nil || p.Type != Split || idx < 0 || idx >= len(p.Children) {
		return nil, fmt.Errorf("tree: invalid path %v", path)
	}
	collapsed, err := removeChild(p, idx)
	if err != nil {
		return nil, err
	}
	if grandParent != nil {
		grandParent.Children[grandIdx] = collapsed
	} else {
		root = collapsed
	}
	return root, nil
}

// removeChild removes child idx from split node n, collapsing n if one
// child (or zero) remains. Returns the replacement for n's slot (may be nil,
// may be a child promoted in n's place, or n itself with fewer children).
func removeChild(n *Node, idx int) (*Node, error) {
	remaining := make([]*Node, 0, len(n.Children)-1)
	remainingSizes := make([]int, 0, len(n.Children)-1)
	for i, c := range n.Children {
		if i == idx {
			continue
		}
		remaining = append(remaining, c)
		remainingSizes = append(remainingSizes, n.Sizes[i])
	}
	switch len(remaining) {
	case 0:
		return nil, nil
	case 1:
		return remaining[0], nil
	default:
		n.Children = remaining
		n.Sizes = renormalize(remainingSizes)
		return n, nil
	}
}

// Rect is an axis-aligned pixel/cell rectangle.
type Rect struct {
	X, Y, W, H int
}

// LeafRect pairs a resolved leaf path with its laid-out inner rectangle.
type LeafRect struct {
	Path Path
	Rect Rect
}

// ComputeRects walks the tree allocating outer to each leaf proportionally
// to the percentage sizes along each split's axis; the remainder (from
// integer rounding) is given to the last child so children always tile
// exactly.
func ComputeRects(root *Node, outer Rect) []LeafRect {
	var out []LeafRect
	var walk func(n *Node, rect Rect, path Path)
	walk = func(n *Node, rect Rect, path Path) {
		if n == nil {
			return
		}
		if n.Type == Leaf {
			out = append(out, LeafRect{Path: append(Path{}, path...), Rect: rect})
			return
		}
		total := rect.W
		if n.Axis == Vertical {
			total = rect.H
		}
		offset := 0
		for i, size := range n.Sizes {
			length := total * size / 100
			if i == len(n.Sizes)-1 {
				length = total - offset
			}
			var childRect Rect
			if n.Axis == Horizontal {
				childRect = Rect{X: rect.X + offset, Y: rect.Y, W: length, H: rect.H}
			} else {
				childRect = Rect{X: rect.X, Y: rect.Y + offset, W: rect.W, H: length}
			}
			walk(n.Children[i], childRect, append(path, i))
			offset += length
		}
	}
	walk(root, outer, nil)
	return out
}

// Border describes one inter-child boundary for drag-resize hit testing and
// divider rendering.
type Border struct {
	Path       Path
	Axis       Axis
	ChildIndex int // the boundary between ChildIndex and ChildIndex+1
	Position   int // pixel offset of the boundary along the split axis
	Total      int // total pixel length of the split axis
}

// ComputeBorders returns one Border per inter-child boundary in the tree.
func ComputeBorders(root *Node, outer Rect) []Border {
	var out []Border
	var walk func(n *Node, rect Rect, path Path)
	walk = func(n *Node, rect Rect, path Path) {
		if n == nil || n.Type != Split {
			return
		}
		total := rect.W
		if n.Axis == Vertical {
			total = rect.H
		}
		offset := 0
		for i, size := range n.Sizes {
			length := total * size / 100
			if i == len(n.Sizes)-1 {
				length = total - offset
			}
			if i < len(n.Sizes)-1 {
				out = append(out, Border{
					Path:       append(Path{}, path...),
					Axis:       n.Axis,
					ChildIndex: i,
					Position:   offset + length,
					Total:      total,
				})
			}
			var childRect Rect
			if n.Axis == Horizontal {
				childRect = Rect{X: rect.X + offset, Y: rect.Y, W: length, H: rect.H}
			} else {
				childRect = Rect{X: rect.X, Y: rect.Y + offset, W: rect.W, H: length}
			}
			walk(n.Children[i], childRect, append(path, i))
			offset += length
		}
	}
	walk(root, outer, nil)
	return out
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SplitSizesAt returns the current (left%, right%) pair around the boundary
// between child i and i+1 in the split at path.
func SplitSizesAt(root *Node, path Path, i int) (left, right int, err error) {
	n := root
	for _, step := range path {
		if n == nil || n.Type != Split || step < 0 || step >= len(n.Children) {
			return 0, 0, fmt.Errorf("tree: invalid path %v", path)
		}
		n = n.Children[step]
	}
	if n == nil || n.Type != Split || i < 0 || i+1 >= len(n.Sizes) {
		return 0, 0, fmt.Errorf("tree: invalid split boundary at %v[%d]", path, i)
	}
	return n.Sizes[i], n.Sizes[i+1], nil
}

// Adjust performs a drag-resize: deltaPx is a pixel delta along the split's
// axis, applied to the boundary between child i and i+1. totalPx is the
// pixel length of the whole split axis (needed to convert pixels to
// percentage points). The left child's new percentage is clamped to
// [MinPercent, 100-MinPercent]; the right child absorbs the complementary
// change so left+right is preserved.
func Adjust(root *Node, path Path, i int, deltaPx int, totalPx int) error {
	n := root
	for _, step := range path {
		if n == nil || n.Type != Split || step < 0 || step >= len(n.Children) {
			return fmt.Errorf("tree: invalid path %v", path)
		}
		n = n.Children[step]
	}
	if n == nil || n.Type != Split || i < 0 || i+1 >= len(n.Sizes) {
		return fmt.Errorf("tree: invalid split boundary at %v[%d]", path, i)
	}
	if totalPx <= 0 {
		return fmt.Errorf("tree: totalPx must be positive")
	}
	pairSum := n.Sizes[i] + n.Sizes[i+1]
	deltaPct := deltaPx * 100 / totalPx
	newLeft := clamp(n.Sizes[i]+deltaPct, MinPercent, pairSum-MinPercent)
	n.Sizes[i] = newLeft
	n.Sizes[i+1] = pairSum - newLeft
	return nil
}

// Validate checks the tree-wide invariants from spec.md §8.
func Validate(root *Node) error {
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if n == nil {
			return nil
		}
		if n.Type == Leaf {
			return nil
		}
		if n.Type != Split {
			return fmt.Errorf("tree: unknown node type %q", n.Type)
		}
		if len(n.Children) < 2 {
			return fmt.Errorf("tree: split has fewer than two children")
		}
		if len(n.Children) != len(n.Sizes) {
			return fmt.Errorf("tree: children/sizes length mismatch")
		}
		sum := 0
		for _, s := range n.Sizes {
			if s < MinPercent {
				return fmt.Errorf("tree: child size %d below minimum %d", s, MinPercent)
			}
			sum += s
		}
		if sum != 100 {
			return fmt.Errorf("tree: sizes sum to %d, want 100", sum)
		}
		for _, c := range n.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
