// Package spatial implements a binary space partition over a static set of
// 3D points. A tree is built once from a bounding region and a point set and
// is immutable afterwards; rebuilding is the only way to change it.
package spatial

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point is a 3D coordinate. Points are values; the tree keeps copies of the
// caller's coordinates and never modifies them.
type Point = v3.Vec

// Axis identifies a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// component returns the coordinate of v along axis a.
func component(v v3.Vec, a Axis) float64 {
	switch a {
	case AxisY:
		return v.Y
	case AxisZ:
		return v.Z
	default:
		return v.X
	}
}

// withComponent returns v with its coordinate along axis a replaced by x.
func withComponent(v v3.Vec, a Axis, x float64) v3.Vec {
	switch a {
	case AxisY:
		v.Y = x
	case AxisZ:
		v.Z = x
	default:
		v.X = x
	}
	return v
}

// Region is an axis-aligned bounding box. It is stored by its corners so that
// splitting a region produces children that tile it exactly.
type Region struct {
	box sdf.Box3
}

// NewRegion returns the region with the given center and size.
// It does not validate the size; Build rejects non-positive sizes.
func NewRegion(center, size v3.Vec) Region {
	return Region{box: sdf.NewBox3(center, size)}
}

// RegionFromBounds returns the region spanning the min and max corners.
func RegionFromBounds(min, max v3.Vec) Region {
	return Region{box: sdf.Box3{Min: min, Max: max}}
}

// Min returns the lower corner.
func (r Region) Min() v3.Vec { return r.box.Min }

// Max returns the upper corner.
func (r Region) Max() v3.Vec { return r.box.Max }

// Size returns the extent along each axis.
func (r Region) Size() v3.Vec { return r.box.Max.Sub(r.box.Min) }

// Center returns the midpoint of the region.
func (r Region) Center() v3.Vec {
	return v3.Vec{
		X: midpoint(r.box.Min.X, r.box.Max.X),
		Y: midpoint(r.box.Min.Y, r.box.Max.Y),
		Z: midpoint(r.box.Min.Z, r.box.Max.Z),
	}
}

// Volume returns the product of the size components.
func (r Region) Volume() float64 {
	s := r.Size()
	return s.X * s.Y * s.Z
}

// Box3 returns the region as an sdfx bounding box.
func (r Region) Box3() sdf.Box3 { return r.box }

// Contains reports whether p lies inside the region, boundaries included.
func (r Region) Contains(p Point) bool {
	return r.box.Min.X <= p.X && p.X <= r.box.Max.X &&
		r.box.Min.Y <= p.Y && p.Y <= r.box.Max.Y &&
		r.box.Min.Z <= p.Z && p.Z <= r.box.Max.Z
}

// Overlaps reports whether r and o share a positive volume.
// Regions that only touch along a face do not overlap, and a region with
// zero size on any axis overlaps nothing.
func (r Region) Overlaps(o Region) bool {
	if !r.solid() || !o.solid() {
		return false
	}
	return r.box.Min.X < o.box.Max.X && o.box.Min.X < r.box.Max.X &&
		r.box.Min.Y < o.box.Max.Y && o.box.Min.Y < r.box.Max.Y &&
		r.box.Min.Z < o.box.Max.Z && o.box.Min.Z < r.box.Max.Z
}

// Equal reports whether both corners match exactly.
func (r Region) Equal(o Region) bool {
	return r.box.Min == o.box.Min && r.box.Max == o.box.Max
}

// LongestAxis returns the axis with the largest extent. Ties go to x, then y.
func (r Region) LongestAxis() Axis {
	s := r.Size()
	switch {
	case s.X >= s.Y && s.X >= s.Z:
		return AxisX
	case s.Y >= s.X && s.Y >= s.Z:
		return AxisY
	default:
		return AxisZ
	}
}

// Split halves the region along axis a. The lower half keeps the minimum
// corner and the upper half keeps the maximum corner; both share the plane
// through the center.
func (r Region) Split(a Axis) (lower, upper Region) {
	mid := midpoint(component(r.box.Min, a), component(r.box.Max, a))
	lower = RegionFromBounds(r.box.Min, withComponent(r.box.Max, a, mid))
	upper = RegionFromBounds(withComponent(r.box.Min, a, mid), r.box.Max)
	return lower, upper
}

// splittable reports whether halving the region along a gives two children
// of positive size. It fails once the extent nears float64 resolution.
func (r Region) splittable(a Axis) bool {
	lo, hi := component(r.box.Min, a), component(r.box.Max, a)
	mid := midpoint(lo, hi)
	return lo < mid && mid < hi
}

// solid reports whether every size component is positive.
func (r Region) solid() bool {
	s := r.Size()
	return s.X > 0 && s.Y > 0 && s.Z > 0
}

func (r Region) String() string {
	return fmt.Sprintf("[%g %g %g]-[%g %g %g]",
		r.box.Min.X, r.box.Min.Y, r.box.Min.Z,
		r.box.Max.X, r.box.Max.Y, r.box.Max.Z)
}

// validate checks that the region can serve as a tree root.
func (r Region) validate() error {
	for _, a := range []Axis{AxisX, AxisY, AxisZ} {
		lo, hi := component(r.box.Min, a), component(r.box.Max, a)
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return fmt.Errorf("region %s has a non-finite %s bound: %w", r, a, ErrInvalidArgument)
		}
		if hi-lo <= 0 {
			return fmt.Errorf("region %s has non-positive %s size %g: %w", r, a, hi-lo, ErrInvalidArgument)
		}
	}
	return nil
}

func midpoint(lo, hi float64) float64 {
	return lo + (hi-lo)/2
}
