// Package config loads construction and export defaults from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/bspgrid/pkg/spatial"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/defaults.json"

// Defaults used when a field is absent from the file.
const (
	DefaultMaxDepth    = 8
	DefaultMeshCells   = 64
	DefaultInset       = 0.0
	DefaultEvalTimeout = 5 * time.Second
)

// Config holds the defaults a scene starts from. Scene script directives
// override the construction fields.
type Config struct {
	// Construction
	MaxDepth             *int  `json:"max_depth,omitempty"`
	LeafCapacity         *int  `json:"leaf_capacity,omitempty"`
	StopWhenUnsplittable *bool `json:"stop_when_unsplittable,omitempty"`

	// Mesh export
	MeshCells    *int     `json:"mesh_cells,omitempty"`
	Inset        *float64 `json:"inset,omitempty"`
	OccupiedOnly *bool    `json:"occupied_only,omitempty"`

	// Script evaluation
	EvalTimeout *string `json:"eval_timeout,omitempty"` // duration string like "5s"
}

func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// Empty returns a Config with every field unset. The getters then return
// the package defaults.
func Empty() *Config {
	return &Config{}
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		MaxDepth:             ptrInt(DefaultMaxDepth),
		LeafCapacity:         ptrInt(spatial.DefaultLeafCapacity),
		StopWhenUnsplittable: ptrBool(false),
		MeshCells:            ptrInt(DefaultMeshCells),
		Inset:                ptrFloat64(DefaultInset),
		OccupiedOnly:         ptrBool(false),
		EvalTimeout:          ptrString(DefaultEvalTimeout.String()),
	}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB. Fields omitted from the file keep their
// defaults, so partial files are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	if c.MaxDepth != nil && *c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must be non-negative, got %d", *c.MaxDepth)
	}
	if c.LeafCapacity != nil && *c.LeafCapacity < 1 {
		return fmt.Errorf("leaf_capacity must be at least 1, got %d", *c.LeafCapacity)
	}
	if c.MeshCells != nil && *c.MeshCells < 1 {
		return fmt.Errorf("mesh_cells must be at least 1, got %d", *c.MeshCells)
	}
	if c.Inset != nil && *c.Inset < 0 {
		return fmt.Errorf("inset must be non-negative, got %g", *c.Inset)
	}
	if c.EvalTimeout != nil && *c.EvalTimeout != "" {
		d, err := time.ParseDuration(*c.EvalTimeout)
		if err != nil {
			return fmt.Errorf("invalid eval_timeout '%s': %w", *c.EvalTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("eval_timeout must be positive, got %s", d)
		}
	}
	return nil
}

// SpatialOptions returns the construction options.
func (c *Config) SpatialOptions() spatial.Options {
	opts := spatial.Options{
		MaxDepth:     DefaultMaxDepth,
		LeafCapacity: spatial.DefaultLeafCapacity,
	}
	if c.MaxDepth != nil {
		opts.MaxDepth = *c.MaxDepth
	}
	if c.LeafCapacity != nil {
		opts.LeafCapacity = *c.LeafCapacity
	}
	if c.StopWhenUnsplittable != nil {
		opts.StopWhenUnsplittable = *c.StopWhenUnsplittable
	}
	return opts
}

// GetMeshCells returns the marching cubes resolution or the default.
func (c *Config) GetMeshCells() int {
	if c.MeshCells == nil {
		return DefaultMeshCells
	}
	return *c.MeshCells
}

// GetInset returns the leaf mesh inset or the default.
func (c *Config) GetInset() float64 {
	if c.Inset == nil {
		return DefaultInset
	}
	return *c.Inset
}

// GetOccupiedOnly returns the occupied_only value or the default.
func (c *Config) GetOccupiedOnly() bool {
	if c.OccupiedOnly == nil {
		return false
	}
	return *c.OccupiedOnly
}

// GetEvalTimeout parses and returns EvalTimeout as a time.Duration.
func (c *Config) GetEvalTimeout() time.Duration {
	if c.EvalTimeout == nil || *c.EvalTimeout == "" {
		return DefaultEvalTimeout
	}
	d, err := time.ParseDuration(*c.EvalTimeout)
	if err != nil || d <= 0 {
		return DefaultEvalTimeout
	}
	return d
}
