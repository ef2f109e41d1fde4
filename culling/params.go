package culling

import (
	"render-culling/bounds"
	"render-culling/math"
)

// Params is the per-frame culling snapshot handed to every tree query. It is
// passed by pointer for speed but treated as immutable by all consumers.
type Params struct {
	CameraPosition math.Vec3
	Frustum        Frustum

	// DetailThreshold is the minimum size/distance ratio an object must
	// reach to be drawn. Zero disables detail culling.
	DetailThreshold float32
}

// NewParams bundles a camera position, frustum and detail threshold.
func NewParams(camPos math.Vec3, frustum Frustum, threshold float32) Params {
	return Params{CameraPosition: camPos, Frustum: frustum, DetailThreshold: threshold}
}

// IsLargeEnough applies the detail test to something of size largestSize
// bounded by box.
func (p *Params) IsLargeEnough(box bounds.AABB, largestSize float32) bool {
	return box.IsLargeEnough(p.CameraPosition, p.DetailThreshold, largestSize)
}

// CullBox is the cheap size-only test used for objects already known to be
// inside the frustum. It reports whether the object survives.
func (p *Params) CullBox(box bounds.AABB, largestSize float32) bool {
	return p.IsLargeEnough(box, largestSize)
}

// CullAndIntersectBox reports whether an object passes both the detail test
// and the frustum test.
func (p *Params) CullAndIntersectBox(box bounds.AABB, largestSize float32) bool {
	return p.IsLargeEnough(box, largestSize) && p.Frustum.IntersectsAABB(box)
}
