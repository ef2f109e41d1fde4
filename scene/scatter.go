package scene

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"

	"render-culling/bounds"
	"render-culling/math"
)

// Scatter builds a synthetic scene of n cubes spread over extent. Sizes are
// log-uniform between 0.1 and 10 so detail culling has something to do.
// The same seed always gives the same scene.
func Scatter(n int, extent bounds.AABB, seed uint64) *Scene {
	s := NewDefaultScene()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	cube := CreateCube(1)

	span := extent.Size()
	for i := range n {
		size := math32.Exp(math32.Log(0.1) + rng.Float32()*(math32.Log(10)-math32.Log(0.1)))
		half := math.Vec3Splat(size / 2)

		// keep the rotated cube inside extent
		slack := span.Sub(math.Vec3Splat(size * math32.Sqrt2)).Max(math.Vec3Zero)
		pos := extent.Min.Add(half.Mul(math32.Sqrt2)).Add(math.NewVec3(
			rng.Float32()*slack.X,
			rng.Float32()*slack.Y,
			rng.Float32()*slack.Z,
		))

		node := NewNode(fmt.Sprintf("cube_%d", i))
		node.Mesh = cube
		node.SetScale(math.Vec3Splat(size))
		node.SetRotation(math.QuaternionFromAxisAngle(math.Vec3Up, rng.Float32()*2*math32.Pi))
		node.SetPosition(pos)
		s.AddNode(node)
	}

	center := extent.Center()
	s.Camera.SetPosition(center.Add(math.NewVec3(0, span.Y, span.Z/2)))
	s.Camera.LookAt(center, math.Vec3Up)
	s.Camera.FarPlane = math32.Max(s.Camera.FarPlane, span.Length())

	logger.Debugf("scattered %d cubes over %v", n, extent)
	return s
}
