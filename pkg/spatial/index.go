package spatial

import (
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"
)

// R-tree branching factors for the leaf index.
const (
	indexMinChildren = 4
	indexMaxChildren = 16
)

// leafEntry adapts a leaf to rtreego.Spatial.
type leafEntry struct {
	node  *Node
	order int // position in ForEachLeaf order
	rect  rtreego.Rect
}

func (e *leafEntry) Bounds() rtreego.Rect { return e.rect }

// LeafIndex is an R-tree over the leaf regions of a Tree. It answers
// nearest-region and range queries that the tree itself cannot, including
// for points outside the root region. Like the tree, it is read-only once
// built.
type LeafIndex struct {
	tree    *Tree
	rt      *rtreego.Rtree
	entries []*leafEntry
}

// NewLeafIndex indexes every leaf of t.
func NewLeafIndex(t *Tree) (*LeafIndex, error) {
	idx := &LeafIndex{tree: t}
	objs := make([]rtreego.Spatial, 0)
	for leaf := range t.ForEachLeaf() {
		rect, err := regionRect(leaf.region)
		if err != nil {
			return nil, fmt.Errorf("spatial: index leaf %q: %w", leaf.path, err)
		}
		e := &leafEntry{node: leaf, order: len(idx.entries), rect: rect}
		idx.entries = append(idx.entries, e)
		objs = append(objs, e)
	}
	idx.rt = rtreego.NewTree(3, indexMinChildren, indexMaxChildren, objs...)
	return idx, nil
}

// Len returns the number of indexed leaves.
func (idx *LeafIndex) Len() int { return len(idx.entries) }

// NearestLeaf returns the leaf whose region is closest to p. Points inside
// the root resolve exactly as FindLeafContaining does.
func (idx *LeafIndex) NearestLeaf(p Point) *Node {
	if n, ok := idx.tree.FindLeafContaining(p); ok {
		return n
	}
	obj := idx.rt.NearestNeighbor(rtreego.Point{p.X, p.Y, p.Z})
	if obj == nil {
		return nil
	}
	return obj.(*leafEntry).node
}

// Intersecting returns the leaves that share a positive volume with r, in
// ForEachLeaf order.
func (idx *LeafIndex) Intersecting(r Region) []*Node {
	rect, err := regionRect(r)
	if err != nil {
		return nil
	}
	var hits []*leafEntry
	for _, obj := range idx.rt.SearchIntersect(rect) {
		e := obj.(*leafEntry)
		if e.node.region.Overlaps(r) {
			hits = append(hits, e)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].order < hits[j].order })

	nodes := make([]*Node, len(hits))
	for i, e := range hits {
		nodes[i] = e.node
	}
	return nodes
}

func regionRect(r Region) (rtreego.Rect, error) {
	s := r.Size()
	return rtreego.NewRect(
		rtreego.Point{r.Min().X, r.Min().Y, r.Min().Z},
		[]float64{s.X, s.Y, s.Z},
	)
}
