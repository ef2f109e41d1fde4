// Package culling holds the per-frame visibility tests consumed by the
// spatial trees: the view frustum, its tri-state box classification and the
// detail-culling parameters.
package culling

import (
	"render-culling/bounds"
	"render-culling/math"
)

// Plane represents a half-space: Normal·p + D = 0.
// Normal points into the "inside" of the frustum.
type Plane struct {
	Normal math.Vec3
	D      float32
}

// DistanceTo returns the signed distance from a point to the plane.
// Positive means on the "inside" (same side as Normal).
func (p Plane) DistanceTo(pt math.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

func planeFromVec4(v math.Vec4) Plane {
	n := math.Vec3{X: v.X, Y: v.Y, Z: v.Z}
	l := n.Length()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W / l}
}

// Frustum plane indices.
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Frustum holds the six clip planes of a view volume.
type Frustum struct {
	Planes [6]Plane
}

// DepthRange is the clip-space depth convention of the projection a
// frustum is extracted from.
type DepthRange int

const (
	// DepthMinusOneToOne maps the near plane to z=-w (OpenGL).
	DepthMinusOneToOne DepthRange = iota
	// DepthZeroToOne maps the near plane to z=0 (DirectX, Vulkan).
	DepthZeroToOne
)

// ExtractFrustumPlanes extracts normalized frustum planes from a
// view-projection matrix using the Gribb/Hartmann method.
//
// Matrices are applied to row vectors, so clip component j of a point is its
// dot product with column j of vp.
func ExtractFrustumPlanes(vp math.Mat4, depth DepthRange) Frustum {
	c0, c1, c2, c3 := vp.Column(0), vp.Column(1), vp.Column(2), vp.Column(3)

	var f Frustum
	f.Planes[PlaneLeft] = planeFromVec4(c3.Add(c0))
	f.Planes[PlaneRight] = planeFromVec4(c3.Sub(c0))
	f.Planes[PlaneBottom] = planeFromVec4(c3.Add(c1))
	f.Planes[PlaneTop] = planeFromVec4(c3.Sub(c1))
	if depth == DepthZeroToOne {
		f.Planes[PlaneNear] = planeFromVec4(c2)
	} else {
		f.Planes[PlaneNear] = planeFromVec4(c3.Add(c2))
	}
	f.Planes[PlaneFar] = planeFromVec4(c3.Sub(c2))
	return f
}

// FrustumFromBox returns the frustum whose planes are the faces of box. It
// is the view volume of an axis-aligned orthographic projection.
func FrustumFromBox(box bounds.AABB) Frustum {
	var f Frustum
	f.Planes[PlaneLeft] = Plane{Normal: math.Vec3Right, D: -box.Min.X}
	f.Planes[PlaneRight] = Plane{Normal: math.Vec3Left, D: box.Max.X}
	f.Planes[PlaneBottom] = Plane{Normal: math.Vec3Up, D: -box.Min.Y}
	f.Planes[PlaneTop] = Plane{Normal: math.Vec3Down, D: box.Max.Y}
	f.Planes[PlaneNear] = Plane{Normal: math.Vec3Front, D: -box.Min.Z}
	f.Planes[PlaneFar] = Plane{Normal: math.Vec3Back, D: box.Max.Z}
	return f
}

// Intersection is the tri-state result of classifying a box against a
// frustum.
type Intersection int

const (
	Outside Intersection = iota
	Intersecting
	Inside
)

func (i Intersection) String() string {
	switch i {
	case Outside:
		return "outside"
	case Intersecting:
		return "intersecting"
	case Inside:
		return "inside"
	}
	return "unknown"
}

// ClassifyAABB tests box against every plane. For each plane the p-vertex
// (corner furthest along the normal) decides Outside and the n-vertex
// (corner furthest against it) decides whether the box straddles the plane.
// The test is conservative: a box near a frustum corner may be reported
// Intersecting while lying outside.
func (f *Frustum) ClassifyAABB(box bounds.AABB) Intersection {
	result := Inside
	for i := range f.Planes {
		p := &f.Planes[i]

		pv, nv := box.Max, box.Min
		if p.Normal.X < 0 {
			pv.X, nv.X = box.Min.X, box.Max.X
		}
		if p.Normal.Y < 0 {
			pv.Y, nv.Y = box.Min.Y, box.Max.Y
		}
		if p.Normal.Z < 0 {
			pv.Z, nv.Z = box.Min.Z, box.Max.Z
		}

		if p.DistanceTo(pv) < 0 {
			return Outside
		}
		if p.DistanceTo(nv) < 0 {
			result = Intersecting
		}
	}
	return result
}

// IntersectsAABB reports whether box is not entirely outside the frustum.
func (f *Frustum) IntersectsAABB(box bounds.AABB) bool {
	return f.ClassifyAABB(box) != Outside
}

// ContainsPoint reports whether p is on the inside of every plane.
func (f *Frustum) ContainsPoint(p math.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceTo(p) < 0 {
			return false
		}
	}
	return true
}
