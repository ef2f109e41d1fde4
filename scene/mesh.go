package scene

import (
	"render-culling/bounds"
	"render-culling/core"
	"render-culling/math"
)

// Mesh holds CPU-side geometry. Only positions feed the culling
// structures; normals are kept for the viewer.
type Mesh struct {
	Name     string
	Vertices []core.Vertex
	Indices  []uint32

	// LocalAABB is computed by CreateMeshFromData.
	LocalAABB bounds.AABB
}

// CreateMeshFromData builds a Mesh and pre-computes its local-space AABB.
func CreateMeshFromData(name string, vertices []core.Vertex, indices []uint32) *Mesh {
	m := &Mesh{
		Name:      name,
		Vertices:  vertices,
		Indices:   indices,
		LocalAABB: bounds.Empty(),
	}
	for _, v := range vertices {
		m.LocalAABB.Min = m.LocalAABB.Min.Min(v.Position)
		m.LocalAABB.Max = m.LocalAABB.Max.Max(v.Position)
	}
	return m
}

// TriangleCount returns the number of indexed triangles, or the number of
// vertex triples for a non-indexed mesh.
func (m *Mesh) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 3
}

// CreateCube returns an axis-aligned cube of the given edge length centred
// on the origin.
func CreateCube(size float32) *Mesh {
	s := size / 2

	faces := [6]struct {
		normal  math.Vec3
		corners [4]math.Vec3
	}{
		{math.Vec3Front, [4]math.Vec3{{X: -s, Y: -s, Z: s}, {X: s, Y: -s, Z: s}, {X: s, Y: s, Z: s}, {X: -s, Y: s, Z: s}}},
		{math.Vec3Back, [4]math.Vec3{{X: s, Y: -s, Z: -s}, {X: -s, Y: -s, Z: -s}, {X: -s, Y: s, Z: -s}, {X: s, Y: s, Z: -s}}},
		{math.Vec3Up, [4]math.Vec3{{X: -s, Y: s, Z: s}, {X: s, Y: s, Z: s}, {X: s, Y: s, Z: -s}, {X: -s, Y: s, Z: -s}}},
		{math.Vec3Down, [4]math.Vec3{{X: -s, Y: -s, Z: -s}, {X: s, Y: -s, Z: -s}, {X: s, Y: -s, Z: s}, {X: -s, Y: -s, Z: s}}},
		{math.Vec3Right, [4]math.Vec3{{X: s, Y: -s, Z: s}, {X: s, Y: -s, Z: -s}, {X: s, Y: s, Z: -s}, {X: s, Y: s, Z: s}}},
		{math.Vec3Left, [4]math.Vec3{{X: -s, Y: -s, Z: -s}, {X: -s, Y: -s, Z: s}, {X: -s, Y: s, Z: s}, {X: -s, Y: s, Z: -s}}},
	}

	vertices := make([]core.Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, p := range f.corners {
			vertices = append(vertices, core.Vertex{Position: p, Normal: f.normal})
		}
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}

	return CreateMeshFromData("Cube", vertices, indices)
}
