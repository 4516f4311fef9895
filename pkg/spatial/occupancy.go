package spatial

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Occupancy summarizes how points are spread over the leaves of a tree.
type Occupancy struct {
	Mean          float64 `json:"mean"`    // points per leaf
	StdDev        float64 `json:"std_dev"` // sample standard deviation
	Median        float64 `json:"median"`
	EmptyFraction float64 `json:"empty_fraction"` // share of leaves with no points
}

// Occupancy computes the points-per-leaf distribution.
func (t *Tree) Occupancy() Occupancy {
	var counts []float64
	empty := 0
	for leaf := range t.ForEachLeaf() {
		counts = append(counts, float64(len(leaf.points)))
		if len(leaf.points) == 0 {
			empty++
		}
	}

	var o Occupancy
	if len(counts) == 0 {
		return o
	}
	o.EmptyFraction = float64(empty) / float64(len(counts))
	if len(counts) == 1 {
		// The sample deviation of a single leaf is undefined.
		o.Mean, o.Median = counts[0], counts[0]
		return o
	}
	o.Mean, o.StdDev = stat.MeanStdDev(counts, nil)
	sort.Float64s(counts)
	o.Median = stat.Quantile(0.5, stat.Empirical, counts, nil)
	return o
}
