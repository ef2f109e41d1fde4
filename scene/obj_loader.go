package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"render-culling/core"
	"render-culling/math"
)

// LoadOBJ parses a Wavefront .obj file and returns one node per object or
// group. Texture coordinates, normals and materials are ignored; normals
// are regenerated from the faces.
func LoadOBJ(path string) ([]*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	meshes, err := ParseOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("parse obj %q: %w", path, err)
	}

	nodes := make([]*Node, len(meshes))
	for i, m := range meshes {
		nodes[i] = NewNode(m.Name)
		nodes[i].Mesh = m
	}
	return nodes, nil
}

type objObject struct {
	name  string
	faces [][3]int // 0-based position indices
}

// ParseOBJ reads OBJ geometry from r, one Mesh per object or group.
func ParseOBJ(r io.Reader) ([]*Mesh, error) {
	var positions []math.Vec3
	var objects []objObject
	cur := &objObject{name: "default"}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs three coordinates", line)
			}
			var p [3]float32
			for i := range p {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				p[i] = float32(f)
			}
			positions = append(positions, math.NewVec3(p[0], p[1], p[2]))

		case "o", "g":
			if len(cur.faces) > 0 {
				objects = append(objects, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objObject{name: name}

		case "f":
			if len(fields) < 4 {
				continue
			}
			idx := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				v, err := parseFaceIndex(tok, len(positions))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				idx = append(idx, v)
			}
			// fan triangulation: 0-1-2, 0-2-3, ...
			for i := 1; i+1 < len(idx); i++ {
				cur.faces = append(cur.faces, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w", err)
	}

	if len(cur.faces) > 0 {
		objects = append(objects, *cur)
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("no geometry found")
	}

	meshes := make([]*Mesh, 0, len(objects))
	for _, obj := range objects {
		meshes = append(meshes, buildMeshFromOBJ(obj, positions))
	}
	return meshes, nil
}

// parseFaceIndex parses the position part of "v", "v/vt", "v//vn" or
// "v/vt/vn". OBJ indices are 1-based; negative ones count back from the
// last vertex read.
func parseFaceIndex(tok string, count int) (int, error) {
	v, _, _ := strings.Cut(tok, "/")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("face index %q: %w", tok, err)
	}
	if n < 0 {
		n = count + n + 1
	}
	if n < 1 || n > count {
		return 0, fmt.Errorf("face index %q out of range", tok)
	}
	return n - 1, nil
}

// buildMeshFromOBJ converts parsed faces into a Mesh, sharing vertices
// between faces that reference the same position.
func buildMeshFromOBJ(obj objObject, positions []math.Vec3) *Mesh {
	remap := map[int]uint32{}
	var vertices []core.Vertex
	indices := make([]uint32, 0, len(obj.faces)*3)

	for _, face := range obj.faces {
		for _, p := range face {
			idx, ok := remap[p]
			if !ok {
				idx = uint32(len(vertices))
				vertices = append(vertices, core.Vertex{Position: positions[p]})
				remap[p] = idx
			}
			indices = append(indices, idx)
		}
	}

	generateNormals(vertices, indices)
	return CreateMeshFromData(obj.name, vertices, indices)
}

// generateNormals computes area-weighted vertex normals.
func generateNormals(vertices []core.Vertex, indices []uint32) {
	accum := make([]math.Vec3, len(vertices))

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		v0 := vertices[i0].Position
		v1 := vertices[i1].Position
		v2 := vertices[i2].Position
		n := v1.Sub(v0).Cross(v2.Sub(v0))
		accum[i0] = accum[i0].Add(n)
		accum[i1] = accum[i1].Add(n)
		accum[i2] = accum[i2].Add(n)
	}
	for i := range vertices {
		vertices[i].Normal = accum[i].Normalize()
	}
}
