package scene

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-culling/bounds"
	"render-culling/culling"
	"render-culling/math"
)

func assertVec3(t *testing.T, want, got math.Vec3, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-3, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-3, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-3, msgAndArgs...)
}

func TestCameraLookAt(t *testing.T) {
	cam := NewCamera(math32.Pi/2, 1, 0.1, 100)
	cam.SetPosition(math.NewVec3(0, 0, 10))
	cam.LookAt(math.Vec3Zero, math.Vec3Up)

	assertVec3(t, math.Vec3Back, cam.GetForward())
	assertVec3(t, math.Vec3Right, cam.GetRight())
	assertVec3(t, math.Vec3Up, cam.GetUp())

	view := cam.GetViewMatrix()
	assertVec3(t, math.NewVec3(0, 0, -10), math.Vec3Zero.ToVec4(1).MulMat(view).ToVec3())

	cam.SetPosition(math.NewVec3(5, 3, -2))
	cam.LookAt(math.NewVec3(-1, 0, 4), math.Vec3Up)
	want := math.NewVec3(-6, -3, 6).Normalize()
	assertVec3(t, want, cam.GetForward())
}

func TestCameraCullingParams(t *testing.T) {
	cam := NewCamera(math32.Pi/3, 16.0/9.0, 0.5, 200)
	cam.SetPosition(math.NewVec3(10, 5, 10))
	cam.LookAt(math.Vec3Zero, math.Vec3Up)

	p := cam.CullingParams(0.02)
	assert.Equal(t, cam.Position, p.CameraPosition)
	assert.Equal(t, float32(0.02), p.DetailThreshold)
	assert.True(t, p.Frustum.ContainsPoint(math.Vec3Zero))
	assert.False(t, p.Frustum.ContainsPoint(math.NewVec3(20, 10, 20)), "behind the camera")

	// the same frustum from a [0, 1] depth projection
	dx := *cam
	dx.Depth = culling.DepthZeroToOne
	dx.dirty = true
	f := dx.Frustum()
	for i := range f.Planes {
		assertVec3(t, p.Frustum.Planes[i].Normal, f.Planes[i].Normal, "plane %d", i)
		assert.InDelta(t, p.Frustum.Planes[i].D, f.Planes[i].D, 1e-2, "plane %d", i)
	}
}

func TestSplitFrustum(t *testing.T) {
	cam := NewCamera(math32.Pi/2, 2, 1, 100)
	cam.SetPosition(math.Vec3Zero)
	cam.LookAt(math.Vec3Back, math.Vec3Up)

	corners := cam.SplitFrustum(1, 10)
	assertVec3(t, math.NewVec3(-2, -1, -1), corners[0])
	assertVec3(t, math.NewVec3(2, 1, -1), corners[2])
	assertVec3(t, math.NewVec3(20, 10, -10), corners[6])

	f := cam.Frustum()
	for i, c := range corners {
		// pull the corner slightly towards the view axis
		inner := c.Lerp(math.NewVec3(0, 0, c.Z), 0.01)
		if i < 4 {
			inner.Z -= 0.01
		}
		assert.True(t, f.ContainsPoint(inner), "corner %d", i)
	}
}

func TestNodeWorldMatrix(t *testing.T) {
	parent := NewNode("parent")
	parent.SetPosition(math.NewVec3(10, 0, 0))
	parent.SetRotation(math.QuaternionFromAxisAngle(math.Vec3Up, math32.Pi/2))

	child := NewNode("child")
	child.SetPosition(math.NewVec3(1, 0, 0))
	child.SetScale(math.Vec3Splat(2))
	parent.AddChild(child)

	// child origin: (1,0,0) rotated to (0,0,-1), then moved to (10,0,-1)
	world := child.GetWorldMatrix()
	assertVec3(t, math.NewVec3(10, 0, -1), math.Vec3Zero.ToVec4(1).MulMat(world).ToVec3())

	child.Mesh = CreateCube(1)
	box := child.WorldBounds()
	assertVec3(t, math.NewVec3(9, -1, -2), box.Min)
	assertVec3(t, math.NewVec3(11, 1, 0), box.Max)

	parent.SetPosition(math.Vec3Zero)
	assertVec3(t, math.NewVec3(0, 0, -1), math.Vec3Zero.ToVec4(1).MulMat(child.GetWorldMatrix()).ToVec3())
	assert.Same(t, child, parent.Find("child"))
	assert.NotEqual(t, parent.Id, child.Id)
}

func TestRenderable(t *testing.T) {
	s := NewScene()
	node := NewNode("cube")
	node.Mesh = CreateCube(2)
	node.SetPosition(math.NewVec3(0, 0, -10))
	s.AddNode(node)
	s.AddNode(NewNode("empty"))

	rs := s.Renderables()
	require.Len(t, rs, 1)
	r := rs[0]
	assert.Equal(t, bounds.New(math.NewVec3(-1, -1, -11), math.NewVec3(1, 1, -9)), r.Bounds())
	assert.InDelta(t, 2*math32.Sqrt(3), r.LargestObjectSize(), 1e-5)

	p := culling.NewParams(math.Vec3Zero, culling.FrustumFromBox(bounds.New(math.NewVec3(-5, -5, -20), math.NewVec3(5, 5, 0))), 0.3)
	assert.True(t, r.Cull(&p))
	assert.True(t, r.CullAndIntersect(&p))

	r.SetInstanceSize(0.5)
	assert.False(t, r.Cull(&p), "0.5/10 is below the threshold")

	node.SetPosition(math.NewVec3(100, 0, 0))
	r.Refresh()
	r.SetInstanceSize(0)
	assert.False(t, r.CullAndIntersect(&p))
	assert.Equal(t, "cube", r.String())
}

func TestScatter(t *testing.T) {
	extent := bounds.New(math.NewVec3(-50, 0, -50), math.NewVec3(50, 20, 50))
	a := Scatter(200, extent, 42).Renderables()
	b := Scatter(200, extent, 42).Renderables()
	c := Scatter(200, extent, 43).Renderables()

	require.Len(t, a, 200)
	for i := range a {
		assert.True(t, extent.Contains(a[i].Bounds()), "%v outside %v", a[i].Bounds(), extent)
		assert.Equal(t, a[i].Bounds(), b[i].Bounds())
	}
	assert.NotEqual(t, a[0].Bounds(), c[0].Bounds())
}

func TestParseOBJ(t *testing.T) {
	src := `# two objects
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
o quad
f 1/1/1 2/2/1 3/3/1 4/4/1
o tri
v 0 0 5
f -3 -2 -1
`
	meshes, err := ParseOBJ(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, meshes, 2)

	quad := meshes[0]
	assert.Equal(t, "quad", quad.Name)
	assert.Len(t, quad.Vertices, 4)
	assert.Equal(t, 2, quad.TriangleCount())
	assert.Equal(t, bounds.New(math.Vec3Zero, math.NewVec3(1, 1, 0)), quad.LocalAABB)
	assertVec3(t, math.Vec3Front, quad.Vertices[0].Normal)

	tri := meshes[1]
	assert.Equal(t, "tri", tri.Name)
	assert.Equal(t, float32(5), tri.LocalAABB.Max.Z)

	_, err = ParseOBJ(strings.NewReader("v 0 0 0\nf 1 2 3\n"))
	assert.Error(t, err)
	_, err = ParseOBJ(strings.NewReader("# nothing\n"))
	assert.Error(t, err)
}

func TestLoadGLTF(t *testing.T) {
	doc := gltf.NewDocument()
	cube := CreateCube(1)
	positions := make([][3]float32, len(cube.Vertices))
	for i, v := range cube.Vertices {
		positions[i] = [3]float32{v.Position.X, v.Position.Y, v.Position.Z}
	}
	doc.Meshes = []*gltf.Mesh{{
		Name: "cube",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(doc, cube.Indices)),
			Attributes: map[string]int{gltf.POSITION: modeler.WritePosition(doc, positions)},
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "parent", Translation: [3]float64{10, 0, 0}, Children: []int{1}},
		{Name: "child", Mesh: gltf.Index(0), Scale: [3]float64{2, 2, 2}},
	}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	path := filepath.Join(t.TempDir(), "cube.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	s, err := LoadFile(path)
	require.NoError(t, err)
	rs := s.Renderables()
	require.Len(t, rs, 1)
	assert.Equal(t, "child", rs[0].Node.Name)
	assertVec3(t, math.NewVec3(9, -1, -1), rs[0].Bounds().Min)
	assertVec3(t, math.NewVec3(11, 1, 1), rs[0].Bounds().Max)
	assert.Len(t, rs[0].Node.Mesh.Indices, 36)
}

func TestLoadFileUnsupported(t *testing.T) {
	_, err := LoadFile("model.fbx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
