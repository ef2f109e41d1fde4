package scene

import (
	"render-culling/bounds"
	"render-culling/culling"
)

// Renderable is what the spatial trees index: a snapshot of a mesh node's
// world bounds. Call Refresh after moving the node, and re-insert it into
// any dynamic tree holding it.
type Renderable struct {
	Node *Node

	box  bounds.AABB
	size float32

	// instanceSize overrides the detail-culling size when non-zero.
	instanceSize float32
}

// NewRenderable snapshots the world bounds of a mesh node.
func NewRenderable(node *Node) *Renderable {
	r := &Renderable{Node: node}
	r.Refresh()
	return r
}

// NewBoxRenderable returns a renderable without a scene node.
func NewBoxRenderable(box bounds.AABB) *Renderable {
	return &Renderable{box: box, size: box.Diagonal()}
}

// Refresh recomputes the world bounds from the node.
func (r *Renderable) Refresh() {
	if r.Node == nil {
		return
	}
	r.box = r.Node.WorldBounds()
	r.size = r.box.Diagonal()
}

// SetInstanceSize makes detail culling use size instead of the bounds
// diagonal. Instanced meshes whose bounds span many small copies set it to
// the size of one copy. Zero restores the default.
func (r *Renderable) SetInstanceSize(size float32) {
	r.instanceSize = size
}

func (r *Renderable) Bounds() bounds.AABB { return r.box }

func (r *Renderable) LargestObjectSize() float32 {
	if r.instanceSize > 0 {
		return r.instanceSize
	}
	return r.size
}

func (r *Renderable) Cull(p *culling.Params) bool {
	return p.CullBox(r.box, r.LargestObjectSize())
}

func (r *Renderable) CullAndIntersect(p *culling.Params) bool {
	return p.CullAndIntersectBox(r.box, r.LargestObjectSize())
}

func (r *Renderable) String() string {
	if r.Node != nil {
		return r.Node.Name
	}
	return r.box.String()
}
