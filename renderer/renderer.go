// Package renderer turns a spatial index into per-frame render sets. The
// Culler culls the main view and every shadow cascade of a frame, overlapping
// the two and spreading the per-object detail test over several goroutines
// when the candidate set is large.
package renderer

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"render-culling/config"
	"render-culling/culling"
	"render-culling/log"
	"render-culling/spatial"
)

var logger = log.New("renderer")

// Option configures a Culler.
type Option func(*cullerConfig)

type cullerConfig struct {
	logger log.Logger
}

// WithLogger overrides the package logger.
func WithLogger(l log.Logger) Option {
	return func(c *cullerConfig) { c.logger = l }
}

// FrameResult is the render set of one frame. Visible holds the objects of
// the main view, Shadow[i] the casters of shadow pass i. Object order
// carries no meaning.
type FrameResult[T spatial.Item] struct {
	Visible []T
	Shadow  [][]T
	Stats   FrameStats
}

// Culler runs the culling passes of a frame against a frozen index. The
// index must not be modified while CullFrame runs.
type Culler[T spatial.Item] struct {
	index    spatial.Index[T]
	settings atomic.Pointer[config.Settings]
	frame    atomic.Uint64
	logger   log.Logger
}

// NewCuller returns a Culler over index.
func NewCuller[T spatial.Item](index spatial.Index[T], settings config.Settings, opts ...Option) (*Culler[T], error) {
	cfg := cullerConfig{logger: logger}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Culler[T]{index: index, logger: cfg.logger}
	if err := c.SetSettings(settings); err != nil {
		return nil, err
	}
	return c, nil
}

// Index returns the culled index.
func (c *Culler[T]) Index() spatial.Index[T] {
	return c.index
}

// Settings returns the settings the next frame will use.
func (c *Culler[T]) Settings() config.Settings {
	return *c.settings.Load()
}

// SetSettings replaces the settings from the next frame on. It is safe to
// call while a frame is being culled; invalid settings are rejected and the
// old ones kept.
func (c *Culler[T]) SetSettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("culler: %w", err)
	}
	c.settings.Store(&s)
	return nil
}

// CullFrame culls the main view and the given shadow passes. With
// MultithreadedCulling set and at least one shadow pass, the main view is
// culled on its own goroutine while the caller culls the shadow passes; both
// are joined before CullFrame returns.
func (c *Culler[T]) CullFrame(view culling.Params, shadows []culling.Params) FrameResult[T] {
	s := c.Settings()
	start := time.Now()

	res := FrameResult[T]{Shadow: make([][]T, len(shadows))}
	res.Stats.Frame = c.frame.Add(1)
	res.Stats.Shadow = make([]PassStats, len(shadows))

	if len(shadows) > 0 && s.MultithreadedCulling {
		res.Stats.Async = true

		var g errgroup.Group
		g.Go(func() error {
			res.Visible, res.Stats.View = c.cullPass(&view, s)
			return nil
		})
		for i := range shadows {
			res.Shadow[i], res.Stats.Shadow[i] = c.cullPass(&shadows[i], s)
		}
		// cull passes never fail; Wait is only the join
		_ = g.Wait()
	} else {
		res.Visible, res.Stats.View = c.cullPass(&view, s)
		for i := range shadows {
			res.Shadow[i], res.Stats.Shadow[i] = c.cullPass(&shadows[i], s)
		}
	}

	res.Stats.Duration = time.Since(start)
	c.logger.Debugf("frame %d: %d visible of %d candidates, %d shadow casters in %d passes, %s",
		res.Stats.Frame, res.Stats.View.Visible, res.Stats.View.Candidates(),
		res.Stats.ShadowVisible(), len(shadows), res.Stats.Duration)
	return res
}

// cullPass runs one view through the index. Objects under nodes fully
// inside the frustum only need the detail test, the rest need both tests.
func (c *Culler[T]) cullPass(p *culling.Params, s config.Settings) ([]T, PassStats) {
	start := time.Now()
	inside, intersecting := c.index.CollectCandidates(p, nil, nil)

	stats := PassStats{Inside: len(inside), Intersecting: len(intersecting)}
	visible := make([]T, 0, len(inside)+len(intersecting))

	workers := s.WorkerCount()
	if s.MultithreadedDetailCulling && workers > 1 && len(inside)/workers > s.DetailCullingChunkSize {
		visible = cullParallel(p, inside, workers, visible)
		stats.FannedOut = true
	} else {
		visible = cullInside(p, inside, visible)
	}

	for _, obj := range intersecting {
		if obj.CullAndIntersect(p) {
			visible = append(visible, obj)
		}
	}

	stats.Visible = len(visible)
	stats.Duration = time.Since(start)
	return visible, stats
}

func cullInside[T spatial.Item](p *culling.Params, objects []T, out []T) []T {
	for _, obj := range objects {
		if obj.Cull(p) {
			out = append(out, obj)
		}
	}
	return out
}

// cullParallel splits objects into one contiguous chunk per worker. Every
// worker appends to its own slice; the slices are concatenated in chunk
// order after the join, so the result matches cullInside exactly.
func cullParallel[T spatial.Item](p *culling.Params, objects []T, workers int, out []T) []T {
	chunk := (len(objects) + workers - 1) / workers
	parts := make([][]T, workers)

	var g errgroup.Group
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, len(objects))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			parts[w] = cullInside(p, objects[lo:hi], make([]T, 0, hi-lo))
			return nil
		})
	}
	// workers never fail; Wait is only the join
	_ = g.Wait()

	for _, part := range parts {
		out = append(out, part...)
	}
	return out
}
