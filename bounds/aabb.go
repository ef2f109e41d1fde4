// Package bounds implements the axis-aligned bounding volume shared by the
// spatial trees and the culling tests.
package bounds

import (
	"fmt"

	"github.com/chewxy/math32"

	"render-culling/math"
)

// Axis indexes a coordinate axis.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ

	numAxes = 3
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// AABB is an axis-aligned box given by its minimum and maximum corners.
// The empty box has Min=+Inf and Max=-Inf so that it is the identity of
// Union.
type AABB struct {
	Min, Max math.Vec3
}

// New returns the box spanning min and max.
func New(min, max math.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// Empty returns the inverted box that contains nothing.
func Empty() AABB {
	return AABB{
		Min: math.Vec3Splat(math32.Inf(1)),
		Max: math.Vec3Splat(math32.Inf(-1)),
	}
}

// FromPoints returns the tightest box around points, or Empty for none.
func FromPoints(points ...math.Vec3) AABB {
	b := Empty()
	for _, p := range points {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// FromCenterSize returns the box centred on center with the given size.
func FromCenterSize(center, size math.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// IsEmpty reports whether max < min on any axis.
func (b AABB) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// IsFinite reports whether both corners are free of NaN and Inf.
func (b AABB) IsFinite() bool {
	return b.Min.IsFinite() && b.Max.IsFinite()
}

// Union returns the smallest box enclosing b and other.
func (b AABB) Union(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Contains reports whether other lies entirely inside b (boundaries
// included).
func (b AABB) Contains(other AABB) bool {
	return other.Min.X >= b.Min.X && other.Max.X <= b.Max.X &&
		other.Min.Y >= b.Min.Y && other.Max.Y <= b.Max.Y &&
		other.Min.Z >= b.Min.Z && other.Max.Z <= b.Max.Z
}

// ContainsPoint reports whether p lies inside b.
func (b AABB) ContainsPoint(p math.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether the boxes overlap. Touching faces overlap.
func (b AABB) Intersects(other AABB) bool {
	if other.Max.X < b.Min.X || other.Min.X > b.Max.X ||
		other.Max.Y < b.Min.Y || other.Min.Y > b.Max.Y ||
		other.Max.Z < b.Min.Z || other.Min.Z > b.Max.Z {
		return false
	}
	return true
}

func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Extent returns the side length along axis.
func (b AABB) Extent(axis Axis) float32 {
	return b.Max.Axis(int(axis)) - b.Min.Axis(int(axis))
}

// Diagonal is the length of the box diagonal. It is the size measure used
// by detail culling.
func (b AABB) Diagonal() float32 {
	if b.IsEmpty() {
		return 0
	}
	return b.Size().Length()
}

// LongestAxis returns the axis with the largest extent, ties going to the
// lower axis index. The depth only matters for a box with no extent at
// all: the axis then rotates with depth so repeated splits of coincident
// objects do not all sort on X.
func (b AABB) LongestAxis(depth int) Axis {
	best := AxisX
	bestExtent := b.Extent(AxisX)
	for axis := AxisY; axis < numAxes; axis++ {
		if e := b.Extent(axis); e > bestExtent {
			best, bestExtent = axis, e
		}
	}
	if bestExtent <= 0 {
		return Axis(depth % numAxes)
	}
	return best
}

// Corners returns the eight corners of b. Bit 0 of the index selects Max.X,
// bit 1 Max.Y and bit 2 Max.Z.
func (b AABB) Corners() [8]math.Vec3 {
	var corners [8]math.Vec3
	for i := range corners {
		corners[i] = b.Min
		if i&1 != 0 {
			corners[i].X = b.Max.X
		}
		if i&2 != 0 {
			corners[i].Y = b.Max.Y
		}
		if i&4 != 0 {
			corners[i].Z = b.Max.Z
		}
	}
	return corners
}

// Transform returns the box enclosing the eight corners of b transformed by
// m.
func (b AABB) Transform(m math.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := Empty()
	for _, c := range b.Corners() {
		p := m.MulVec3(c)
		out.Min = out.Min.Min(p)
		out.Max = out.Max.Max(p)
	}
	return out
}

func (b AABB) String() string {
	return fmt.Sprintf("[(%g,%g,%g)-(%g,%g,%g)]", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}

// DetailEpsilon clamps the camera distance used by IsLargeEnough so that a
// camera sitting on a box centre does not divide by zero.
const DetailEpsilon = 1e-4

// IsLargeEnough is the detail-culling predicate: something of size
// largestSize centred in b is worth drawing from camPos when
// largestSize / distance exceeds threshold. A threshold <= 0 disables
// detail culling and +Inf discards everything.
func (b AABB) IsLargeEnough(camPos math.Vec3, threshold, largestSize float32) bool {
	if threshold <= 0 {
		return true
	}
	dist := math32.Max(camPos.Distance(b.Center()), DetailEpsilon)
	return largestSize/dist > threshold
}
