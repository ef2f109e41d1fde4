package renderer

import (
	"github.com/chewxy/math32"

	"render-culling/bounds"
	"render-culling/config"
	"render-culling/culling"
	"render-culling/math"
	"render-culling/scene"
)

// splitLambda blends logarithmic (1) and uniform (0) cascade splits.
const splitLambda = 0.5

// Cascade is the light-space volume covering one slice of the view
// frustum.
type Cascade struct {
	// Near and Far are the slice distances along the view direction.
	Near, Far float32

	ViewProjection math.Mat4
	Params         culling.Params
}

// CascadeSplits returns n+1 distances between near and far using the
// practical split scheme: a blend of uniform and logarithmic spacing.
func CascadeSplits(near, far float32, n int) []float32 {
	splits := make([]float32, n+1)
	for i := range splits {
		f := float32(i) / float32(n)
		logSplit := near * math32.Pow(far/near, f)
		uniform := near + (far-near)*f
		splits[i] = splitLambda*logSplit + (1-splitLambda)*uniform
	}
	splits[0], splits[n] = near, far
	return splits
}

// ShadowCascades fits one orthographic light volume per cascade around the
// slices of the camera frustum up to the shadow distance. Each volume is
// extended towards the light by the shadow distance so casters outside the
// view still land in it. It returns nil when shadows are disabled or light
// does not cast them.
func ShadowCascades(cam *scene.Camera, light *scene.Light, s config.Settings) []Cascade {
	if !s.ShadowsEnabled || s.ShadowCascades == 0 || light == nil || !light.CastShadows {
		return nil
	}
	dir := light.Direction.Normalize()
	if dir.LengthSqr() < 0.001 {
		return nil
	}

	near := cam.NearPlane
	far := math32.Min(cam.FarPlane, s.ShadowDistance)
	if far <= near {
		return nil
	}

	up := math.Vec3Up
	if math32.Abs(dir.Dot(up)) > 0.999 {
		up = math.Vec3Front
	}

	splits := CascadeSplits(near, far, s.ShadowCascades)
	cascades := make([]Cascade, s.ShadowCascades)
	for i := range cascades {
		corners := cam.SplitFrustum(splits[i], splits[i+1])

		center := math.Vec3Zero
		for _, c := range corners {
			center = center.Add(c)
		}
		center = center.Div(float32(len(corners)))

		lightView := math.Mat4LookAt(center.Sub(dir), center, up)
		var local [8]math.Vec3
		for j, c := range corners {
			local[j] = c.ToVec4(1).MulMat(lightView).ToVec3()
		}
		box := bounds.FromPoints(local[:]...)

		// the light looks down -Z: distances are negated depths
		zNear := -box.Max.Z - s.ShadowDistance
		zFar := -box.Min.Z
		proj := math.Mat4Orthographic(box.Min.X, box.Max.X, box.Min.Y, box.Max.Y, zNear, zFar)
		vp := lightView.Mul(proj)

		cascades[i] = Cascade{
			Near:           splits[i],
			Far:            splits[i+1],
			ViewProjection: vp,
			Params: culling.NewParams(cam.Position,
				culling.ExtractFrustumPlanes(vp, culling.DepthMinusOneToOne),
				s.DetailCullingThreshold),
		}
	}
	return cascades
}

// CascadeParams returns the culling params of every cascade, ready for
// CullFrame.
func CascadeParams(cascades []Cascade) []culling.Params {
	params := make([]culling.Params, len(cascades))
	for i, c := range cascades {
		params[i] = c.Params
	}
	return params
}
