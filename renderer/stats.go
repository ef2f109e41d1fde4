package renderer

import "time"

// PassStats describes one culling pass.
type PassStats struct {
	// Inside and Intersecting count the candidates the index returned for
	// nodes fully inside and crossing the frustum.
	Inside       int
	Intersecting int

	Visible   int
	FannedOut bool
	Duration  time.Duration
}

// Candidates is the number of objects the pass tested.
func (s PassStats) Candidates() int {
	return s.Inside + s.Intersecting
}

// FrameStats describes one CullFrame call.
type FrameStats struct {
	Frame  uint64
	View   PassStats
	Shadow []PassStats

	// Async is set when the main view was culled concurrently with the
	// shadow passes.
	Async    bool
	Duration time.Duration
}

// ShadowVisible sums the casters over all shadow passes.
func (s FrameStats) ShadowVisible() int {
	n := 0
	for _, p := range s.Shadow {
		n += p.Visible
	}
	return n
}

// Summary averages a run of frames.
type Summary struct {
	Frames int

	Candidates    float64
	Visible       float64
	ShadowVisible float64

	// FannedOut is the share of passes that spread detail culling over
	// several goroutines.
	FannedOut float64

	ViewTime  time.Duration
	FrameTime time.Duration
	MaxFrame  time.Duration
}

// Summarize averages frames. It returns the zero Summary for no frames.
func Summarize(frames []FrameStats) Summary {
	var sum Summary
	if len(frames) == 0 {
		return sum
	}

	var viewTime, frameTime time.Duration
	passes, fanned := 0, 0
	for _, f := range frames {
		sum.Candidates += float64(f.View.Candidates())
		sum.Visible += float64(f.View.Visible)
		sum.ShadowVisible += float64(f.ShadowVisible())

		viewTime += f.View.Duration
		frameTime += f.Duration
		sum.MaxFrame = max(sum.MaxFrame, f.Duration)

		passes += 1 + len(f.Shadow)
		if f.View.FannedOut {
			fanned++
		}
		for _, p := range f.Shadow {
			if p.FannedOut {
				fanned++
			}
		}
	}

	n := float64(len(frames))
	sum.Frames = len(frames)
	sum.Candidates /= n
	sum.Visible /= n
	sum.ShadowVisible /= n
	sum.FannedOut = float64(fanned) / float64(passes)
	sum.ViewTime = viewTime / time.Duration(len(frames))
	sum.FrameTime = frameTime / time.Duration(len(frames))
	return sum
}
