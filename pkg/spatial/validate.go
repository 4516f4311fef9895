package spatial

import "fmt"

// ValidationSeverity indicates whether a finding means the tree is malformed
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // structural invariant broken
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Path     string // node path, "" for the root
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	path := e.Path
	if path == "" {
		path = "root"
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, path, e.Message)
}

// Validate checks the structural invariants of the tree: children tile
// their parent exactly, no leaf is deeper than MaxDepth, only leaves hold
// points, every leaf has positive size, and every point lies inside its
// leaf. Leaves above MaxDepth that exceed the leaf capacity and could still
// be split are reported as warnings. An empty result means the tree is well
// formed. Validate never mutates the tree.
func (t *Tree) Validate() []ValidationError {
	var errs []ValidationError
	add := func(n *Node, sev ValidationSeverity, format string, args ...any) {
		errs = append(errs, ValidationError{
			Path:     n.path,
			Message:  fmt.Sprintf(format, args...),
			Severity: sev,
		})
	}

	t.Walk(func(n *Node) bool {
		if n.depth > t.opts.MaxDepth {
			add(n, SeverityError, "depth %d exceeds max depth %d", n.depth, t.opts.MaxDepth)
		}
		if n.IsLeaf() {
			if n.right != nil {
				add(n, SeverityError, "leaf has a right child but no left child")
			}
			size := n.region.Size()
			for _, a := range []Axis{AxisX, AxisY, AxisZ} {
				if component(size, a) <= 0 {
					add(n, SeverityError, "leaf has non-positive %s size %g", a, component(size, a))
				}
			}
			for _, p := range n.points {
				if !n.region.Contains(p) {
					add(n, SeverityError, "point %v lies outside region %s", p, n.region)
				}
			}
			if n.depth < t.opts.MaxDepth && len(n.points) > t.opts.LeafCapacity &&
				n.region.splittable(n.region.LongestAxis()) &&
				!(t.opts.StopWhenUnsplittable && coincident(n.points)) {
				add(n, SeverityWarning, "leaf above max depth holds %d points (capacity %d)",
					len(n.points), t.opts.LeafCapacity)
			}
			return true
		}
		if n.right == nil {
			add(n, SeverityError, "internal node has only one child")
			return false
		}
		if len(n.points) > 0 {
			add(n, SeverityError, "internal node holds %d points", len(n.points))
		}
		if msg := checkTiling(n); msg != "" {
			add(n, SeverityError, "%s", msg)
		}
		return true
	})
	return errs
}

// checkTiling verifies that the children of n share the split plane and
// together span exactly the region of n.
func checkTiling(n *Node) string {
	lo, hi := n.left.region, n.right.region
	if lo.Min() != n.region.Min() {
		return fmt.Sprintf("lower child %s does not start at parent minimum %v", lo, n.region.Min())
	}
	if hi.Max() != n.region.Max() {
		return fmt.Sprintf("upper child %s does not end at parent maximum %v", hi, n.region.Max())
	}
	want := withComponent(n.region.Max(), n.axis, component(hi.Min(), n.axis))
	if lo.Max() != want {
		return fmt.Sprintf("lower child %s and upper child %s do not meet on the %s split plane", lo, hi, n.axis)
	}
	if withComponent(n.region.Min(), n.axis, component(lo.Max(), n.axis)) != hi.Min() {
		return fmt.Sprintf("upper child %s is not aligned with parent on the non-split axes", hi)
	}
	if lo.Overlaps(hi) {
		return fmt.Sprintf("children %s and %s overlap", lo, hi)
	}
	return ""
}
