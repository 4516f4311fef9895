// Package visualize turns a partition tree into geometry a renderer can draw:
// one triangle mesh per leaf region, or the edge segments of every leaf box.
// It is read-only and never mutates the tree.
package visualize

import (
	"fmt"

	"github.com/chazu/bspgrid/pkg/kernel"
	"github.com/chazu/bspgrid/pkg/spatial"
)

// RootLabel names the mesh of a tree whose root is its only leaf.
const RootLabel = "root"

// Options controls mesh export.
type Options struct {
	// Inset shrinks every leaf box on all sides so neighbouring leaves
	// render as separate boxes. It is ignored on axes where the leaf is
	// too thin to shrink.
	Inset float64
	// OccupiedOnly skips leaves that hold no points.
	OccupiedOnly bool
}

// Label returns the mesh label for a node.
func Label(n *spatial.Node) string {
	if n.Path() == "" {
		return RootLabel
	}
	return n.Path()
}

// LeafMeshes produces one mesh per leaf of t, in ForEachLeaf order.
func LeafMeshes(t *spatial.Tree, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if t == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	for leaf := range t.ForEachLeaf() {
		if opts.OccupiedOnly && len(leaf.Points()) == 0 {
			continue
		}
		mesh, err := leafMesh(k, leaf, opts.Inset)
		if err != nil {
			return nil, fmt.Errorf("visualize: leaf %s: %w", Label(leaf), err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func leafMesh(k kernel.Kernel, leaf *spatial.Node, inset float64) (*kernel.Mesh, error) {
	solid, err := leafSolid(k, leaf, inset)
	if err != nil {
		return nil, err
	}
	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed: %w", err)
	}
	mesh.Label = Label(leaf)
	return mesh, nil
}

// leafSolid returns the leaf's box, shrunk by inset, placed in world space.
func leafSolid(k kernel.Kernel, leaf *spatial.Node, inset float64) (kernel.Solid, error) {
	min, max := insetBounds(leaf.Region(), inset)

	solid, err := k.Box(max[0]-min[0], max[1]-min[1], max[2]-min[2])
	if err != nil {
		return nil, err
	}
	return k.Translate(solid, min[0], min[1], min[2]), nil
}

// OccupancyLabel names the mesh returned by OccupancyMesh.
const OccupancyLabel = "occupancy"

// OccupancyMesh unions the boxes of every leaf that holds points into a
// single mesh. It returns nil when no leaf is occupied.
func OccupancyMesh(t *spatial.Tree, k kernel.Kernel, inset float64) (*kernel.Mesh, error) {
	if t == nil {
		return nil, nil
	}

	var union kernel.Solid
	for leaf := range t.ForEachLeaf() {
		if len(leaf.Points()) == 0 {
			continue
		}
		solid, err := leafSolid(k, leaf, inset)
		if err != nil {
			return nil, fmt.Errorf("visualize: leaf %s: %w", Label(leaf), err)
		}
		if union == nil {
			union = solid
		} else {
			union = k.Union(union, solid)
		}
	}
	if union == nil {
		return nil, nil
	}

	mesh, err := k.ToMesh(union)
	if err != nil {
		return nil, fmt.Errorf("visualize: occupancy: ToMesh failed: %w", err)
	}
	mesh.Label = OccupancyLabel
	return mesh, nil
}

// insetBounds shrinks r by inset on each axis that is wider than 2*inset.
func insetBounds(r spatial.Region, inset float64) (min, max [3]float64) {
	lo, hi := r.Min(), r.Max()
	min = [3]float64{lo.X, lo.Y, lo.Z}
	max = [3]float64{hi.X, hi.Y, hi.Z}
	if inset <= 0 {
		return min, max
	}
	for i := range min {
		if max[i]-min[i] > 2*inset {
			min[i] += inset
			max[i] -= inset
		}
	}
	return min, max
}

// Segment is a line between two points.
type Segment struct {
	A, B spatial.Point
}

// Outlines returns the twelve edges of every leaf box, in ForEachLeaf order.
// Shared edges between neighbouring leaves are repeated.
func Outlines(t *spatial.Tree) []Segment {
	if t == nil {
		return nil
	}
	var segs []Segment
	for leaf := range t.ForEachLeaf() {
		segs = append(segs, boxEdges(leaf.Region())...)
	}
	return segs
}

// boxEdges returns the edges of r: four along each axis.
func boxEdges(r spatial.Region) []Segment {
	lo, hi := r.Min(), r.Max()
	corner := func(i int) spatial.Point {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		return p
	}

	edges := make([]Segment, 0, 12)
	for i := 0; i < 8; i++ {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				edges = append(edges, Segment{A: corner(i), B: corner(i | bit)})
			}
		}
	}
	return edges
}
