package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/bspgrid/pkg/config"
	"github.com/chazu/bspgrid/pkg/spatial"
	"github.com/chazu/bspgrid/pkg/visualize"
)

// parsePoint parses "x,y,z" into a point.
func parsePoint(s string) (spatial.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return spatial.Point{}, fmt.Errorf("point must be x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		p = strings.TrimSpace(p)
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return spatial.Point{}, fmt.Errorf("invalid float '%s': %w", p, err)
		}
		v[i] = f
	}
	return spatial.Point{X: v[0], Y: v[1], Z: v[2]}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func writeJSON(path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Fatalf("failed to encode %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", path, err)
	}
}

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (defaults built in)")
	scriptPath := flag.String("script", "", "scene script to evaluate (required)")
	meshOut := flag.String("mesh-out", "", "write the evaluation result with leaf meshes as JSON to this file")
	occupancyOut := flag.String("occupancy-out", "", "write the union of occupied leaf boxes as a JSON mesh to this file")
	check := flag.Bool("check", false, "exit non-zero if the tree has validation warnings")
	query := flag.String("query", "", "report the leaf nearest to the point x,y,z")
	flag.Parse()

	if *scriptPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	source, err := os.ReadFile(*scriptPath)
	if err != nil {
		log.Fatalf("failed to read script: %v", err)
	}

	app := NewAppWithConfig(cfg)
	result := app.Evaluate(string(source))

	for _, e := range result.Errors {
		if e.Line > 0 {
			log.Printf("error: line %d: %s", e.Line, e.Message)
		} else {
			log.Printf("error: %s", e.Message)
		}
	}
	for _, w := range result.Warnings {
		log.Printf("warning: %s", w.Message)
	}
	if len(result.Errors) > 0 {
		os.Exit(1)
	}

	s := result.Stats
	fmt.Printf("nodes=%d leaves=%d occupied=%d max_depth=%d max_leaf_points=%d points=%d dropped=%d\n",
		s.Nodes, s.Leaves, s.OccupiedLeaves, s.MaxLeafDepth, s.MaxLeafPoints, s.Points, s.Dropped)
	o := result.Occupancy
	fmt.Printf("points_per_leaf mean=%.3f std_dev=%.3f median=%g empty=%.1f%%\n",
		o.Mean, o.StdDev, o.Median, 100*o.EmptyFraction)

	if *query != "" {
		p, err := parsePoint(*query)
		if err != nil {
			log.Fatalf("invalid -query: %v", err)
		}
		leaf, ok := app.Locate(p)
		if !ok {
			log.Fatalf("no tree to query")
		}
		label := leaf.Path
		if label == "" {
			label = visualize.RootLabel
		}
		fmt.Printf("leaf=%s depth=%d min=%v max=%v points=%d\n",
			label, leaf.Depth, leaf.Min, leaf.Max, leaf.Points)
	}

	if *meshOut != "" {
		writeJSON(*meshOut, result)
		log.Printf("wrote %d meshes to %s", len(result.Meshes), *meshOut)
	}

	if *occupancyOut != "" {
		mesh, err := app.OccupancyMesh()
		if err != nil {
			log.Fatalf("failed to build occupancy mesh: %v", err)
		}
		if mesh == nil {
			log.Printf("no occupied leaves; skipping %s", *occupancyOut)
		} else {
			writeJSON(*occupancyOut, mesh)
			log.Printf("wrote occupancy mesh (%d triangles) to %s", len(mesh.Indices)/3, *occupancyOut)
		}
	}

	if *check && len(result.Warnings) > 0 {
		os.Exit(1)
	}
}
