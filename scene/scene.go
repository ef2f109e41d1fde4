package scene

import (
	"render-culling/core"
	"render-culling/log"
	"render-culling/math"
)

var logger = log.New("scene")

// Scene manages a collection of nodes and the active camera
type Scene struct {
	Root   *Node
	Camera *Camera
	Lights []*Light
}

// Light is a directional light. Shadow cascades are fitted along its
// direction.
type Light struct {
	Direction   math.Vec3
	Color       core.Color
	Intensity   float32
	CastShadows bool
}

// NewDirectionalLight returns a shadow casting light shining along dir.
func NewDirectionalLight(dir math.Vec3) *Light {
	return &Light{
		Direction:   dir.Normalize(),
		Color:       core.ColorWhite,
		Intensity:   1,
		CastShadows: true,
	}
}

func NewScene() *Scene {
	return &Scene{
		Root: NewNode("Root"),
	}
}

func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

func (s *Scene) AddNode(node *Node) {
	s.Root.AddChild(node)
}

func (s *Scene) AddLight(light *Light) {
	s.Lights = append(s.Lights, light)
}

// ShadowLight returns the first shadow casting light, or nil.
func (s *Scene) ShadowLight() *Light {
	for _, l := range s.Lights {
		if l.CastShadows {
			return l
		}
	}
	return nil
}

// GetVisibleNodes returns all nodes with meshes that are visible
func (s *Scene) GetVisibleNodes() []*Node {
	var visible []*Node

	s.Root.Traverse(func(node *Node) {
		if node.Visible && node.Mesh != nil {
			visible = append(visible, node)
		}
	})

	return visible
}

// Renderables flattens the graph into one Renderable per visible mesh node,
// skipping meshes without geometry.
func (s *Scene) Renderables() []*Renderable {
	nodes := s.GetVisibleNodes()
	out := make([]*Renderable, 0, len(nodes))
	for _, n := range nodes {
		r := NewRenderable(n)
		if r.Bounds().IsEmpty() {
			logger.Debugf("skipping %q: no geometry", n.Name)
			continue
		}
		out = append(out, r)
	}
	return out
}

// NewDefaultScene returns an empty scene with a camera looking at the
// origin and a sun light.
func NewDefaultScene() *Scene {
	scene := NewScene()

	camera := NewCamera(1.0472, 16.0/9.0, 0.1, 1000.0) // 60 degrees FOV
	camera.SetPosition(math.Vec3{X: 0, Y: 2, Z: 5})
	camera.LookAt(math.Vec3Zero, math.Vec3Up)
	scene.SetCamera(camera)

	scene.AddLight(NewDirectionalLight(math.Vec3{X: 0.5, Y: -1, Z: -0.5}))
	return scene
}
