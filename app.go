package main

import (
	"fmt"
	"log"
	"sync"

	"github.com/chazu/bspgrid/pkg/config"
	"github.com/chazu/bspgrid/pkg/engine"
	"github.com/chazu/bspgrid/pkg/kernel"
	"github.com/chazu/bspgrid/pkg/kernel/sdfx"
	"github.com/chazu/bspgrid/pkg/spatial"
	"github.com/chazu/bspgrid/pkg/visualize"
)

// colorPalette is a default palette used to assign distinct colors to leaves.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App evaluates scene scripts into partition trees and exports them.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	cfg    *config.Config

	mu    sync.Mutex
	tree  *spatial.Tree // last successfully built tree
	index *spatial.LeafIndex
}

// MeshData is the JSON-serializable mesh format for one leaf.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Label    string    `json:"label"`
	Color    string    `json:"color"`
}

// LeafData describes one leaf of the built tree.
type LeafData struct {
	Path   string     `json:"path"`
	Depth  int        `json:"depth"`
	Min    [3]float64 `json:"min"`
	Max    [3]float64 `json:"max"`
	Points int        `json:"points"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating a scene script.
type EvalResult struct {
	Meshes    []MeshData        `json:"meshes"`
	Leaves    []LeafData        `json:"leaves"`
	Stats     spatial.Stats     `json:"stats"`
	Occupancy spatial.Occupancy `json:"occupancy"`
	Errors    []EvalErrorData   `json:"errors"`
	Warnings  []EvalErrorData   `json:"warnings"`
}

// NewApp creates an App with the default configuration.
func NewApp() *App {
	return NewAppWithConfig(config.Default())
}

// NewAppWithConfig creates an App whose engine, kernel and export settings
// come from cfg.
func NewAppWithConfig(cfg *config.Config) *App {
	e := engine.NewEngine()
	e.SetDefaults(cfg.SpatialOptions())
	e.SetTimeout(cfg.GetEvalTimeout())
	return &App{
		engine: e,
		kernel: sdfx.NewWithCells(cfg.GetMeshCells()),
		cfg:    cfg,
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Leaves:   []LeafData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

func messageOnly(msg string) EvalErrorData {
	return EvalErrorData{Message: msg}
}

// Evaluate runs a scene script, builds its tree and meshes every leaf.
func (a *App) Evaluate(source string) EvalResult {
	result := newResult()

	// Step 1: Evaluate the script into a scene.
	scene, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, messageOnly(err.Error()))
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	if scene.Empty() {
		return result
	}

	// Step 2: Partition the scene's points.
	tree, err := scene.Build()
	if err != nil {
		log.Printf("Build error: %v", err)
		result.Errors = append(result.Errors, messageOnly("build failed: "+err.Error()))
		return result
	}
	result.Stats = tree.Stats()
	result.Occupancy = tree.Occupancy()
	if n := result.Stats.Dropped; n > 0 {
		result.Warnings = append(result.Warnings,
			messageOnly(fmt.Sprintf("%d points lie outside the region and were dropped", n)))
	}

	// Step 3: Check the tree's structure.
	for _, v := range tree.Validate() {
		d := messageOnly(v.Error())
		if v.Severity == spatial.SeverityError {
			result.Errors = append(result.Errors, d)
		} else {
			result.Warnings = append(result.Warnings, d)
		}
	}
	if len(result.Errors) > 0 {
		return result
	}

	// Step 4: Mesh every leaf.
	meshes, err := visualize.LeafMeshes(tree, a.kernel, visualize.Options{
		Inset:        a.cfg.GetInset(),
		OccupiedOnly: a.cfg.GetOccupiedOnly(),
	})
	if err != nil {
		log.Printf("Mesh error: %v", err)
		result.Errors = append(result.Errors, messageOnly("meshing failed: "+err.Error()))
		return result
	}
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Label:    m.Label,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	for leaf := range tree.ForEachLeaf() {
		result.Leaves = append(result.Leaves, leafData(leaf))
	}

	// Step 5: Index the leaves for Locate.
	index, err := spatial.NewLeafIndex(tree)
	if err != nil {
		log.Printf("Index error: %v", err)
		result.Warnings = append(result.Warnings, messageOnly("leaf index unavailable: "+err.Error()))
	}
	a.mu.Lock()
	a.tree, a.index = tree, index
	a.mu.Unlock()

	return result
}

// Locate returns the leaf of the last built tree nearest to p. The second
// result is false when no tree has been built.
func (a *App) Locate(p spatial.Point) (LeafData, bool) {
	a.mu.Lock()
	tree, index := a.tree, a.index
	a.mu.Unlock()

	var leaf *spatial.Node
	switch {
	case index != nil:
		leaf = index.NearestLeaf(p)
	case tree != nil:
		leaf, _ = tree.FindLeafContaining(p)
	}
	if leaf == nil {
		return LeafData{}, false
	}
	return leafData(leaf), true
}

// OccupancyMesh returns the union of the occupied leaf boxes of the last
// built tree, or nil when there is none.
func (a *App) OccupancyMesh() (*MeshData, error) {
	a.mu.Lock()
	tree := a.tree
	a.mu.Unlock()

	m, err := visualize.OccupancyMesh(tree, a.kernel, a.cfg.GetInset())
	if err != nil || m == nil {
		return nil, err
	}
	return &MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		Label:    m.Label,
		Color:    colorPalette[0],
	}, nil
}

// Outlines returns the leaf edges of the last built tree.
func (a *App) Outlines() []visualize.Segment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return visualize.Outlines(a.tree)
}

func leafData(n *spatial.Node) LeafData {
	lo, hi := n.Region().Min(), n.Region().Max()
	return LeafData{
		Path:   n.Path(),
		Depth:  n.Depth(),
		Min:    [3]float64{lo.X, lo.Y, lo.Z},
		Max:    [3]float64{hi.X, hi.Y, hi.Z},
		Points: len(n.Points()),
	}
}
