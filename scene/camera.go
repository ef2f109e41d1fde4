package scene

import (
	"github.com/chewxy/math32"

	"render-culling/culling"
	"render-culling/math"
)

// Camera represents a view camera
type Camera struct {
	Position    math.Vec3
	Rotation    math.Quaternion
	FOV         float32
	AspectRatio float32
	NearPlane   float32
	FarPlane    float32

	// Depth is the clip depth convention of the projection the planes are
	// extracted from.
	Depth culling.DepthRange

	// Cached matrices
	viewMatrix       math.Mat4
	projectionMatrix math.Mat4
	viewProjMatrix   math.Mat4
	dirty            bool
}

func NewCamera(fov, aspectRatio, nearPlane, farPlane float32) *Camera {
	return &Camera{
		Position:    math.Vec3Zero,
		Rotation:    math.QuaternionIdentity(),
		FOV:         fov,
		AspectRatio: aspectRatio,
		NearPlane:   nearPlane,
		FarPlane:    farPlane,
		Depth:       culling.DepthMinusOneToOne,
		dirty:       true,
	}
}

func (c *Camera) UpdateAspectRatio(width, height float32) {
	if height > 0 {
		c.AspectRatio = width / height
		c.dirty = true
	}
}

func (c *Camera) SetPosition(pos math.Vec3) {
	c.Position = pos
	c.dirty = true
}

func (c *Camera) SetRotation(rot math.Quaternion) {
	c.Rotation = rot
	c.dirty = true
}

// LookAt turns the camera towards target.
func (c *Camera) LookAt(target, up math.Vec3) {
	// the camera-to-world rotation is the inverse of the view rotation
	view := math.Mat4LookAt(c.Position, target, up)
	c.Rotation = math.QuaternionFromMat4(view.Transpose())
	c.dirty = true
}

func (c *Camera) GetViewMatrix() math.Mat4 {
	if c.dirty {
		c.updateMatrices()
	}
	return c.viewMatrix
}

func (c *Camera) GetViewProjectionMatrix() math.Mat4 {
	if c.dirty {
		c.updateMatrices()
	}
	return c.viewProjMatrix
}

// GetForward returns the viewing direction. Cameras look down their local
// -Z axis.
func (c *Camera) GetForward() math.Vec3 {
	return c.Rotation.RotateVector(math.Vec3Back)
}

func (c *Camera) GetRight() math.Vec3 {
	return c.Rotation.RotateVector(math.Vec3Right)
}

func (c *Camera) GetUp() math.Vec3 {
	return c.Rotation.RotateVector(math.Vec3Up)
}

func (c *Camera) updateMatrices() {
	translation := math.Mat4Translation(c.Position.Negate())
	c.viewMatrix = translation.Mul(c.Rotation.Conjugate().ToMat4())

	c.projectionMatrix = math.Mat4Perspective(c.FOV, c.AspectRatio, c.NearPlane, c.FarPlane)
	if c.Depth == culling.DepthZeroToOne {
		c.projectionMatrix = c.projectionMatrix.Mul(zeroToOneRemap)
	}

	// row vectors: view first
	c.viewProjMatrix = c.viewMatrix.Mul(c.projectionMatrix)

	c.dirty = false
}

// zeroToOneRemap maps clip z from [-w, w] to [0, w].
var zeroToOneRemap = math.Mat4{
	{1, 0, 0, 0},
	{0, 1, 0, 0},
	{0, 0, 0.5, 0},
	{0, 0, 0.5, 1},
}

// Frustum returns the world-space view frustum.
func (c *Camera) Frustum() culling.Frustum {
	return ExtractFrustumPlanes(c.GetViewProjectionMatrix(), c.Depth)
}

// ExtractFrustumPlanes returns the planes of a view-projection matrix built
// with the given depth convention.
func ExtractFrustumPlanes(vp math.Mat4, depth culling.DepthRange) culling.Frustum {
	return culling.ExtractFrustumPlanes(vp, depth)
}

// CullingParams snapshots the camera for one frame of culling.
func (c *Camera) CullingParams(detailThreshold float32) culling.Params {
	return culling.NewParams(c.Position, c.Frustum(), detailThreshold)
}

// SplitFrustum returns the eight world-space corners of the part of the
// view frustum between the distances near and far along the view
// direction. The first four corners lie on the near plane.
func (c *Camera) SplitFrustum(near, far float32) [8]math.Vec3 {
	forward, right, up := c.GetForward(), c.GetRight(), c.GetUp()
	tanHalf := math32.Tan(c.FOV / 2)

	var corners [8]math.Vec3
	for i, d := range [2]float32{near, far} {
		center := c.Position.Add(forward.Mul(d))
		h := up.Mul(d * tanHalf)
		w := right.Mul(d * tanHalf * c.AspectRatio)

		corners[i*4+0] = center.Sub(w).Sub(h)
		corners[i*4+1] = center.Add(w).Sub(h)
		corners[i*4+2] = center.Add(w).Add(h)
		corners[i*4+3] = center.Sub(w).Add(h)
	}
	return corners
}

// OrbitCamera is a specialized camera for orbiting around a target
type OrbitCamera struct {
	Camera
	Target   math.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
}

func NewOrbitCamera(target math.Vec3, distance, fov, aspectRatio float32) *OrbitCamera {
	c := &OrbitCamera{
		Target:   target,
		Distance: distance,
		Yaw:      0,
		Pitch:    0.3,
	}
	c.Camera = *NewCamera(fov, aspectRatio, 0.1, 1000.0)
	c.UpdatePosition()
	return c
}

func (c *OrbitCamera) UpdatePosition() {
	c.Pitch = math32.Max(-1.5, math32.Min(1.5, c.Pitch))

	sinPitch, cosPitch := math32.Sincos(c.Pitch)
	sinYaw, cosYaw := math32.Sincos(c.Yaw)

	offset := math.Vec3{
		X: c.Distance * cosPitch * sinYaw,
		Y: c.Distance * sinPitch,
		Z: c.Distance * cosPitch * cosYaw,
	}

	c.Position = c.Target.Add(offset)
	c.LookAt(c.Target, math.Vec3Up)
}

func (c *OrbitCamera) Orbit(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch
	c.UpdatePosition()
}

func (c *OrbitCamera) Zoom(delta float32) {
	c.Distance = math32.Max(0.1, c.Distance+delta)
	c.UpdatePosition()
}
