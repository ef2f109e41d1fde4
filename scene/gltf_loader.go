package scene

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"render-culling/core"
	"render-culling/math"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("scene: unsupported model format")

// LoadFile loads a .glb, .gltf or .obj file into a new default scene.
func LoadFile(path string) (*Scene, error) {
	var roots []*Node
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		roots, err = LoadGLTF(path)
	case ".obj":
		roots, err = LoadOBJ(path)
	default:
		return nil, fmt.Errorf("load %q: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	s := NewDefaultScene()
	for _, n := range roots {
		s.AddNode(n)
	}
	return s, nil
}

// LoadGLTF opens a .glb or .gltf file and returns the root nodes of its
// default scene. Only geometry and the node hierarchy are read; materials
// and textures are ignored.
func LoadGLTF(path string) ([]*Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}

	// meshPrims[meshIdx] = []*Mesh (one entry per primitive)
	meshPrims := make([][]*Mesh, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				logger.Debugf("gltf: mesh %d prim %d: skipping non-triangle mode %v", mi, pi, prim.Mode)
				continue
			}
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				logger.Warningf("gltf: mesh %d prim %d: %v", mi, pi, err)
				continue
			}
			meshPrims[mi] = append(meshPrims[mi], m)
		}
	}

	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)

		t := gn.TranslationOrDefault()
		n.SetPosition(math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])})

		sc := gn.ScaleOrDefault()
		n.SetScale(math.Vec3{X: float32(sc[0]), Y: float32(sc[1]), Z: float32(sc[2])})

		r := gn.RotationOrDefault() // [x, y, z, w]
		n.SetRotation(math.Quaternion{
			X: float32(r[0]), Y: float32(r[1]),
			Z: float32(r[2]), W: float32(r[3]),
		})

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			prims := meshPrims[*gn.Mesh]
			switch len(prims) {
			case 0:
				// no geometry
			case 1:
				n.Mesh = prims[0]
			default:
				// one child node per primitive so each gets its own bounds
				for pi, p := range prims {
					child := NewNode(fmt.Sprintf("%s_prim%d", name, pi))
					child.Mesh = p
					n.AddChild(child)
				}
			}
		}
		nodes[i] = n
	}

	hasParent := make([]bool, len(nodes))
	for i, gn := range doc.Nodes {
		for _, childIdx := range gn.Children {
			if childIdx < len(nodes) {
				nodes[i].AddChild(nodes[childIdx])
				hasParent[childIdx] = true
			}
		}
	}

	var roots []*Node
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, rootIdx := range doc.Scenes[*doc.Scene].Nodes {
			if rootIdx < len(nodes) {
				roots = append(roots, nodes[rootIdx])
			}
		}
	} else {
		for i, n := range nodes {
			if !hasParent[i] {
				roots = append(roots, n)
			}
		}
	}

	logger.Infof("loaded %q: %d meshes, %d nodes, %d roots", path, len(doc.Meshes), len(nodes), len(roots))
	return roots, nil
}

// loadGLTFPrimitive converts one glTF mesh primitive into a Mesh.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*Mesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}

	verts := make([]core.Vertex, len(positions))
	for i, p := range positions {
		v := core.Vertex{
			Position: math.Vec3{X: p[0], Y: p[1], Z: p[2]},
			Normal:   math.Vec3Up,
		}
		if i < len(normals) {
			n := normals[i]
			v.Normal = math.Vec3{X: n[0], Y: n[1], Z: n[2]}
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}

	return CreateMeshFromData(name, verts, indices), nil
}
