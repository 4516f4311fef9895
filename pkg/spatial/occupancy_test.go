package spatial_test

import (
	"math"
	"testing"

	"github.com/chazu/bspgrid/pkg/spatial"
)

func TestOccupancy(t *testing.T) {
	p := spatial.Point{X: 1, Y: 1, Z: 1}
	tests := []struct {
		name     string
		points   []spatial.Point
		maxDepth int
		want     spatial.Occupancy
	}{
		{
			name:     "empty root",
			maxDepth: 4,
			want:     spatial.Occupancy{EmptyFraction: 1},
		},
		{
			name:     "single occupied root",
			points:   []spatial.Point{p},
			maxDepth: 4,
			want:     spatial.Occupancy{Mean: 1, Median: 1},
		},
		{
			name:     "pair",
			points:   []spatial.Point{{X: -4, Y: -4, Z: -4}, {X: 4, Y: 4, Z: 4}},
			maxDepth: 5,
			want:     spatial.Occupancy{Mean: 1, Median: 1},
		},
		{
			// Leaves L, RL, RRL hold nothing; RRR holds all three points.
			name:     "identical points",
			points:   []spatial.Point{p, p, p},
			maxDepth: 3,
			want:     spatial.Occupancy{Mean: 0.75, StdDev: 1.5, Median: 0, EmptyFraction: 0.75},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustBuild(t, cube10(), tt.points, tt.maxDepth).Occupancy()
			for _, f := range []struct {
				name      string
				got, want float64
			}{
				{"Mean", got.Mean, tt.want.Mean},
				{"StdDev", got.StdDev, tt.want.StdDev},
				{"Median", got.Median, tt.want.Median},
				{"EmptyFraction", got.EmptyFraction, tt.want.EmptyFraction},
			} {
				if math.Abs(f.got-f.want) > 1e-9 {
					t.Errorf("%s = %g, want %g", f.name, f.got, f.want)
				}
			}
		})
	}
}
