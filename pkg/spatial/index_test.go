package spatial_test

import (
	"testing"

	"github.com/chazu/bspgrid/pkg/spatial"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func mustIndex(t *testing.T, tree *spatial.Tree) *spatial.LeafIndex {
	t.Helper()
	idx, err := spatial.NewLeafIndex(tree)
	if err != nil {
		t.Fatalf("NewLeafIndex failed: %v", err)
	}
	return idx
}

func TestLeafIndexLen(t *testing.T) {
	tree := mustBuild(t, cube10(), randomPoints(20, 50), 8)
	idx := mustIndex(t, tree)

	if got, want := idx.Len(), tree.Stats().Leaves; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
}

func TestNearestLeafInside(t *testing.T) {
	pts := randomPoints(21, 80)
	tree := mustBuild(t, cube10(), pts, 10)
	idx := mustIndex(t, tree)

	for _, p := range pts {
		want, _ := tree.FindLeafContaining(p)
		if got := idx.NearestLeaf(p); got != want {
			t.Errorf("NearestLeaf(%v) = %q, want %q", p, got.Path(), want.Path())
		}
	}
}

func TestNearestLeafOutside(t *testing.T) {
	a := spatial.Point{X: -4, Y: -4, Z: -4}
	b := spatial.Point{X: 4, Y: 4, Z: 4}
	tree := mustBuild(t, cube10(), []spatial.Point{a, b}, 5)
	idx := mustIndex(t, tree)

	tests := []struct {
		name string
		p    spatial.Point
		want string
	}{
		{"far below x", spatial.Point{X: -50, Y: 0, Z: 0}, "L"},
		{"far above x", spatial.Point{X: 50, Y: 1, Z: -2}, "R"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.NearestLeaf(tt.p)
			if got == nil {
				t.Fatal("expected a leaf")
			}
			if got.Path() != tt.want {
				t.Errorf("NearestLeaf(%v) = %q, want %q", tt.p, got.Path(), tt.want)
			}
		})
	}
}

func TestIntersecting(t *testing.T) {
	a := spatial.Point{X: -4, Y: -4, Z: -4}
	b := spatial.Point{X: 4, Y: 4, Z: 4}
	tree := mustBuild(t, cube10(), []spatial.Point{a, b}, 5)
	idx := mustIndex(t, tree)

	tests := []struct {
		name  string
		query spatial.Region
		want  []string
	}{
		{"lower half only", spatial.NewRegion(v3.Vec{X: -3}, v3.Vec{X: 1, Y: 1, Z: 1}), []string{"L"}},
		{"straddles split", spatial.NewRegion(v3.Vec{}, v3.Vec{X: 2, Y: 2, Z: 2}), []string{"L", "R"}},
		{"touches split plane", spatial.RegionFromBounds(v3.Vec{X: 0}, v3.Vec{X: 1, Y: 1, Z: 1}), []string{"R"}},
		{"outside root", spatial.NewRegion(v3.Vec{X: 40}, v3.Vec{X: 1, Y: 1, Z: 1}), nil},
		{"flat query", spatial.RegionFromBounds(v3.Vec{X: -3}, v3.Vec{X: -3, Y: 1, Z: 1}), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, n := range idx.Intersecting(tt.query) {
				got = append(got, n.Path())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Intersecting = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Intersecting = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestIntersectingOrder(t *testing.T) {
	tree := mustBuild(t, cube10(), randomPoints(22, 60), 8)
	idx := mustIndex(t, tree)

	hits := idx.Intersecting(cube10())
	if len(hits) != idx.Len() {
		t.Fatalf("whole-root query hit %d leaves, want %d", len(hits), idx.Len())
	}
	i := 0
	for leaf := range tree.ForEachLeaf() {
		if hits[i] != leaf {
			t.Fatalf("hit %d is %q, want %q", i, hits[i].Path(), leaf.Path())
		}
		i++
	}
}
