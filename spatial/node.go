package spatial

import (
	"render-culling/bounds"
	"render-culling/culling"
)

// Node is a Quadtree/Octree node.
type Node[T Item] struct {
	// partition is fixed at construction; children split it in halves.
	partition bounds.AABB

	// bv is the union of everything stored at or below this node and
	// largest the biggest LargestObjectSize among them. Both only grow.
	bv      bounds.AABB
	largest float32

	depth    int
	children []*Node[T] // nil until the first child is created
	objects  []T        // objects that fit no single child
}

func newNode[T Item](partition bounds.AABB, depth int) *Node[T] {
	return &Node[T]{
		partition: partition,
		bv:        bounds.Empty(),
		depth:     depth,
	}
}

// Bounds returns the union of the bounds stored at or below the node.
func (n *Node[T]) Bounds() bounds.AABB { return n.bv }

// Partition returns the fixed spatial cell of the node.
func (n *Node[T]) Partition() bounds.AABB { return n.partition }

func (n *Node[T]) Depth() int { return n.depth }

// LargestObjectSize returns the biggest object size at or below the node.
func (n *Node[T]) LargestObjectSize() float32 { return n.largest }

// Objects returns the objects held directly by the node. The slice must not
// be modified.
func (n *Node[T]) Objects() []T { return n.objects }

// Child returns the child in slot i, or nil.
func (n *Node[T]) Child(i int) *Node[T] {
	if n.children == nil {
		return nil
	}
	return n.children[i]
}

func (n *Node[T]) IsLeaf() bool {
	for _, c := range n.children {
		if c != nil {
			return false
		}
	}
	return true
}

// childSlot returns the index of the only child partition fully containing
// box, or -1 when the box straddles a split plane. Bit k of the slot selects
// the upper half along axes[k].
func (n *Node[T]) childSlot(box bounds.AABB, axes []bounds.Axis) int {
	slot := 0
	for k, axis := range axes {
		a := int(axis)
		mid := (n.partition.Min.Axis(a) + n.partition.Max.Axis(a)) * 0.5
		lo, hi := box.Min.Axis(a), box.Max.Axis(a)

		inLower := hi <= mid
		inUpper := lo >= mid
		switch {
		case inLower && inUpper:
			// flat on the split plane: both halves contain it
			return -1
		case inUpper:
			slot |= 1 << k
		case !inLower:
			return -1
		}
	}
	return slot
}

func (n *Node[T]) childPartition(slot int, axes []bounds.Axis) bounds.AABB {
	p := n.partition
	for k, axis := range axes {
		a := int(axis)
		mid := (p.Min.Axis(a) + p.Max.Axis(a)) * 0.5
		if slot&(1<<k) != 0 {
			p.Min = p.Min.WithAxis(a, mid)
		} else {
			p.Max = p.Max.WithAxis(a, mid)
		}
	}
	return p
}

// child returns the child in slot, creating it on first use.
func (n *Node[T]) child(slot int, axes []bounds.Axis) *Node[T] {
	if n.children == nil {
		n.children = make([]*Node[T], 1<<len(axes))
	}
	c := n.children[slot]
	if c == nil {
		c = newNode[T](n.childPartition(slot, axes), n.depth+1)
		n.children[slot] = c
	}
	return c
}

func (n *Node[T]) removeDirect(obj T) bool {
	for i, o := range n.objects {
		if o == obj {
			last := len(n.objects) - 1
			n.objects[i] = n.objects[last]
			var zero T
			n.objects[last] = zero
			n.objects = n.objects[:last]
			return true
		}
	}
	return false
}

func (n *Node[T]) remove(obj T) bool {
	if n.removeDirect(obj) {
		return true
	}
	for _, c := range n.children {
		if c != nil && c.remove(obj) {
			return true
		}
	}
	return false
}

// visible applies the node-level detail gate. An empty node is never
// visible.
func (n *Node[T]) visible(p *culling.Params) bool {
	return !n.bv.IsEmpty() && p.IsLargeEnough(n.bv, n.largest)
}

func (n *Node[T]) cullVisibleObjects(p *culling.Params, out []T) []T {
	if !n.visible(p) {
		return out
	}

	switch p.Frustum.ClassifyAABB(n.bv) {
	case culling.Inside:
		return n.cullAllObjects(p, out)
	case culling.Intersecting:
		for _, obj := range n.objects {
			if obj.CullAndIntersect(p) {
				out = append(out, obj)
			}
		}
		for _, c := range n.children {
			if c != nil {
				out = c.cullVisibleObjects(p, out)
			}
		}
	}
	return out
}

// cullAllObjects is the bulk path for a subtree inside the frustum: only the
// detail tests remain.
func (n *Node[T]) cullAllObjects(p *culling.Params, out []T) []T {
	for _, obj := range n.objects {
		if obj.Cull(p) {
			out = append(out, obj)
		}
	}
	for _, c := range n.children {
		if c != nil && c.visible(p) {
			out = c.cullAllObjects(p, out)
		}
	}
	return out
}

func (n *Node[T]) collectCandidates(p *culling.Params, inside, intersecting []T) ([]T, []T) {
	if !n.visible(p) {
		return inside, intersecting
	}

	switch p.Frustum.ClassifyAABB(n.bv) {
	case culling.Inside:
		inside = n.collectInside(p, inside)
	case culling.Intersecting:
		intersecting = append(intersecting, n.objects...)
		for _, c := range n.children {
			if c != nil {
				inside, intersecting = c.collectCandidates(p, inside, intersecting)
			}
		}
	}
	return inside, intersecting
}

func (n *Node[T]) collectInside(p *culling.Params, out []T) []T {
	out = append(out, n.objects...)
	for _, c := range n.children {
		if c != nil && c.visible(p) {
			out = c.collectInside(p, out)
		}
	}
	return out
}

func (n *Node[T]) cullVisibleNodes(p *culling.Params, out []NodeView, inside bool) []NodeView {
	if !n.visible(p) {
		return out
	}
	if !inside {
		switch p.Frustum.ClassifyAABB(n.bv) {
		case culling.Outside:
			return out
		case culling.Inside:
			inside = true
		}
	}

	out = append(out, n)
	for _, c := range n.children {
		if c != nil {
			out = c.cullVisibleNodes(p, out, inside)
		}
	}
	return out
}

func (n *Node[T]) intersectObjects(box bounds.AABB, out []T) []T {
	if n.bv.IsEmpty() || !box.Intersects(n.bv) {
		return out
	}
	if box.Contains(n.bv) {
		return n.allObjects(out)
	}

	for _, obj := range n.objects {
		if box.Intersects(obj.Bounds()) {
			out = append(out, obj)
		}
	}
	for _, c := range n.children {
		if c != nil {
			out = c.intersectObjects(box, out)
		}
	}
	return out
}

func (n *Node[T]) allObjects(out []T) []T {
	out = append(out, n.objects...)
	for _, c := range n.children {
		if c != nil {
			out = c.allObjects(out)
		}
	}
	return out
}

func (n *Node[T]) walk(fn func(*Node[T]) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		if c != nil {
			c.walk(fn)
		}
	}
}
