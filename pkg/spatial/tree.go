package spatial

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidArgument is wrapped by every error Build returns.
var ErrInvalidArgument = errors.New("invalid argument")

// DefaultLeafCapacity is the number of points a leaf may hold before it is split.
const DefaultLeafCapacity = 1

// Options controls tree construction.
type Options struct {
	// MaxDepth is the maximum number of splits from the root. Nodes at this
	// depth become leaves regardless of how many points they hold.
	MaxDepth int
	// LeafCapacity is the largest point count a node may hold and still be
	// a leaf before MaxDepth is reached.
	LeafCapacity int
	// StopWhenUnsplittable turns a node into a leaf when all of its points
	// coincide, since no split can separate them. Without it, coincident
	// points are subdivided until MaxDepth.
	StopWhenUnsplittable bool
}

// DefaultOptions returns options with the default leaf capacity and a zero
// MaxDepth.
func DefaultOptions() Options {
	return Options{LeafCapacity: DefaultLeafCapacity}
}

func (o Options) validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("max depth %d is negative: %w", o.MaxDepth, ErrInvalidArgument)
	}
	if o.LeafCapacity < 1 {
		return fmt.Errorf("leaf capacity %d is below 1: %w", o.LeafCapacity, ErrInvalidArgument)
	}
	return nil
}

// Node is an element of the tree. A leaf holds points and no children; an
// internal node holds exactly two children and no points.
type Node struct {
	region Region
	points []Point
	axis   Axis
	depth  int
	path   string
	left   *Node
	right  *Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.left == nil }

// Region returns the node's bounding region.
func (n *Node) Region() Region { return n.region }

// Points returns the points held by a leaf. Internal nodes return nil.
// The returned slice must not be modified.
func (n *Node) Points() []Point { return n.points }

// Depth returns the number of splits between the root and this node.
func (n *Node) Depth() int { return n.depth }

// Axis returns the split axis of an internal node. It is meaningless for leaves.
func (n *Node) Axis() Axis { return n.axis }

// Left returns the lower child, or nil for a leaf.
func (n *Node) Left() *Node { return n.left }

// Right returns the upper child, or nil for a leaf.
func (n *Node) Right() *Node { return n.right }

// Path identifies the node by the sequence of turns from the root:
// "L" for the lower child and "R" for the upper one. The root's path is "".
func (n *Node) Path() string { return n.path }

// Tree is an immutable binary space partition. It is safe for concurrent
// reads.
type Tree struct {
	root    *Node
	opts    Options
	dropped int
}

// Build partitions points inside root until every leaf holds at most one
// point or maxDepth is reached. A region too small to halve in float64
// stays a leaf regardless of depth.
func Build(root Region, points []Point, maxDepth int) (*Tree, error) {
	opts := DefaultOptions()
	opts.MaxDepth = maxDepth
	return BuildWithOptions(root, points, opts)
}

// BuildWithOptions is Build with full control over construction.
// Points outside root are never attributed to a leaf.
func BuildWithOptions(root Region, points []Point, opts Options) (*Tree, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("spatial: %w", err)
	}
	if err := root.validate(); err != nil {
		return nil, fmt.Errorf("spatial: %w", err)
	}

	inside := make([]Point, 0, len(points))
	for _, p := range points {
		if root.Contains(p) {
			inside = append(inside, p)
		}
	}

	t := &Tree{
		opts:    opts,
		dropped: len(points) - len(inside),
	}
	t.root = t.subdivide(root, inside, 0, "")
	return t, nil
}

// subdivide builds the subtree for region. On the split axis the lower child
// owns [min, mid] and the upper child owns (mid, max], so a point on the
// split plane goes to the lower child.
func (t *Tree) subdivide(region Region, points []Point, depth int, path string) *Node {
	n := &Node{region: region, depth: depth, path: path}
	if len(points) <= t.opts.LeafCapacity || depth >= t.opts.MaxDepth ||
		(t.opts.StopWhenUnsplittable && coincident(points)) {
		n.points = points
		return n
	}

	axis := region.LongestAxis()
	if !region.splittable(axis) {
		n.points = points
		return n
	}
	lowerRegion, upperRegion := region.Split(axis)
	mid := component(lowerRegion.Max(), axis)

	var lower, upper []Point
	for _, p := range points {
		if component(p, axis) <= mid {
			lower = append(lower, p)
		} else {
			upper = append(upper, p)
		}
	}

	n.axis = axis
	n.left = t.subdivide(lowerRegion, lower, depth+1, path+"L")
	n.right = t.subdivide(upperRegion, upper, depth+1, path+"R")
	return n
}

// coincident reports whether every point equals the first.
func coincident(points []Point) bool {
	for _, p := range points[1:] {
		if p != points[0] {
			return false
		}
	}
	return true
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// MaxDepth returns the depth bound the tree was built with.
func (t *Tree) MaxDepth() int { return t.opts.MaxDepth }

// Options returns the options the tree was built with.
func (t *Tree) Options() Options { return t.opts }

// FindLeafContaining returns the leaf whose region contains p. When both
// children contain p the lower child wins, matching how points are assigned
// during construction. It returns false if p is outside the root region.
func (t *Tree) FindLeafContaining(p Point) (*Node, bool) {
	n := t.root
	if !n.region.Contains(p) {
		return nil, false
	}
	for !n.IsLeaf() {
		if n.left.region.Contains(p) {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n, true
}

// ForEachLeaf yields every leaf in depth-first order, lower child first.
// The sequence can be ranged over any number of times.
func (t *Tree) ForEachLeaf() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var visit func(n *Node) bool
		visit = func(n *Node) bool {
			if n.IsLeaf() {
				return yield(n)
			}
			return visit(n.left) && visit(n.right)
		}
		visit(t.root)
	}
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's children.
func (t *Tree) Walk(fn func(*Node) bool) {
	var visit func(n *Node)
	visit = func(n *Node) {
		if !fn(n) || n.IsLeaf() {
			return
		}
		visit(n.left)
		visit(n.right)
	}
	visit(t.root)
}

// Stats summarizes the shape of a tree.
type Stats struct {
	Nodes          int `json:"nodes"`
	Leaves         int `json:"leaves"`
	OccupiedLeaves int `json:"occupied_leaves"`
	MaxLeafDepth   int `json:"max_leaf_depth"`
	MaxLeafPoints  int `json:"max_leaf_points"`
	Points         int `json:"points"`  // points held by leaves
	Dropped        int `json:"dropped"` // input points outside the root region
}

// Stats walks the tree and returns its summary.
func (t *Tree) Stats() Stats {
	s := Stats{Dropped: t.dropped}
	t.Walk(func(n *Node) bool {
		s.Nodes++
		if !n.IsLeaf() {
			return true
		}
		s.Leaves++
		if len(n.points) > 0 {
			s.OccupiedLeaves++
		}
		s.MaxLeafDepth = max(s.MaxLeafDepth, n.depth)
		s.MaxLeafPoints = max(s.MaxLeafPoints, len(n.points))
		s.Points += len(n.points)
		return true
	})
	return s
}
