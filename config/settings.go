// Package config holds the culling settings and loads them from TOML or
// YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chewxy/math32"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownFormat is returned by Load for files that are neither TOML
	// nor YAML.
	ErrUnknownFormat = errors.New("config: unknown settings file format")

	// ErrInvalidSettings wraps every Validate failure.
	ErrInvalidSettings = errors.New("config: invalid settings")
)

// TreeKind selects the spatial index the renderer culls with.
type TreeKind string

const (
	TreeKdTree   TreeKind = "kdtree"
	TreeOctree   TreeKind = "octree"
	TreeQuadtree TreeKind = "quadtree"
)

// DefaultDetailCullingChunkSize is the number of objects per worker below
// which detail culling stays on one goroutine.
const DefaultDetailCullingChunkSize = 256

// Settings drives the culling coordinator. The zero value is not useful;
// start from Default.
type Settings struct {
	// DetailCullingThreshold is the minimum size/distance ratio an object
	// needs to be drawn. Zero disables detail culling.
	DetailCullingThreshold float32 `toml:"detail_culling_threshold" yaml:"detail_culling_threshold"`

	// MultithreadedCulling culls the main view concurrently with the
	// shadow cascades.
	MultithreadedCulling bool `toml:"multithreaded_culling" yaml:"multithreaded_culling"`

	// MultithreadedDetailCulling spreads the detail test of objects fully
	// inside the frustum over Workers goroutines.
	MultithreadedDetailCulling bool `toml:"multithreaded_detail_culling" yaml:"multithreaded_detail_culling"`
	DetailCullingChunkSize     int  `toml:"detail_culling_chunk_size" yaml:"detail_culling_chunk_size"`

	// Workers is the fan-out of detail culling; 0 means one per CPU.
	Workers int `toml:"workers" yaml:"workers"`

	ShadowsEnabled bool    `toml:"shadows_enabled" yaml:"shadows_enabled"`
	ShadowCascades int     `toml:"shadow_cascades" yaml:"shadow_cascades"`
	ShadowDistance float32 `toml:"shadow_distance" yaml:"shadow_distance"`

	Tree TreeKind `toml:"tree" yaml:"tree"`
}

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		DetailCullingThreshold:     0.01,
		MultithreadedCulling:       true,
		MultithreadedDetailCulling: true,
		DetailCullingChunkSize:     DefaultDetailCullingChunkSize,
		Workers:                    0,
		ShadowsEnabled:             true,
		ShadowCascades:             4,
		ShadowDistance:             150,
		Tree:                       TreeKdTree,
	}
}

// WorkerCount resolves Workers to a positive goroutine count.
func (s Settings) WorkerCount() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.NumCPU()
}

// Validate reports the first setting out of range.
func (s Settings) Validate() error {
	switch {
	// +Inf is allowed and culls everything
	case math32.IsNaN(s.DetailCullingThreshold):
		return fmt.Errorf("%w: detail_culling_threshold is NaN", ErrInvalidSettings)
	case s.DetailCullingThreshold < 0:
		return fmt.Errorf("%w: detail_culling_threshold %g is negative", ErrInvalidSettings, s.DetailCullingThreshold)
	case s.DetailCullingChunkSize < 1:
		return fmt.Errorf("%w: detail_culling_chunk_size must be at least 1, got %d", ErrInvalidSettings, s.DetailCullingChunkSize)
	case s.Workers < 0:
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidSettings, s.Workers)
	case s.ShadowCascades < 0 || s.ShadowCascades > 8:
		return fmt.Errorf("%w: shadow_cascades must be in [0, 8], got %d", ErrInvalidSettings, s.ShadowCascades)
	case math32.IsNaN(s.ShadowDistance) || math32.IsInf(s.ShadowDistance, 0):
		return fmt.Errorf("%w: shadow_distance %g is not finite", ErrInvalidSettings, s.ShadowDistance)
	case s.ShadowsEnabled && s.ShadowDistance <= 0:
		return fmt.Errorf("%w: shadow_distance must be positive, got %g", ErrInvalidSettings, s.ShadowDistance)
	}
	switch s.Tree {
	case TreeKdTree, TreeOctree, TreeQuadtree:
	default:
		return fmt.Errorf("%w: unknown tree %q", ErrInvalidSettings, s.Tree)
	}
	return nil
}

// Load reads settings from a .toml, .yaml or .yml file. Keys missing from
// the file keep their Default value.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	s, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Settings{}, fmt.Errorf("load settings %q: %w", path, err)
	}
	return s, nil
}

// Parse decodes settings in the format named by ext (".toml", ".yaml" or
// ".yml") on top of Default and validates them.
func Parse(data []byte, ext string) (Settings, error) {
	s := Default()
	switch strings.ToLower(ext) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return Settings{}, err
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// an empty document leaves the defaults
		if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
			return Settings{}, err
		}
	default:
		return Settings{}, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Encode writes s in the format named by ext.
func Encode(s Settings, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		return toml.Marshal(s)
	case ".yaml", ".yml":
		return yaml.Marshal(s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
}
