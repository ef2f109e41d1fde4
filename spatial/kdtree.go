package spatial

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/chewxy/math32"

	"render-culling/bounds"
	"render-culling/culling"
)

// DefaultLeafSize is the number of objects a KdTree leaf holds at most.
const DefaultLeafSize = 2

const noChild = -1

// KdTree is an immutable bounding volume hierarchy over a fixed object set.
// It is built by sorting each range along the longest axis of its bounds
// and splitting it at the median, so sibling subtrees hold the same number
// of objects (give or take one) and depth stays logarithmic.
//
// Nodes live in one slice and refer to each other by index. Every node
// owns a contiguous range of the sorted item slice.
type KdTree[T Item] struct {
	nodes    []KdNode
	items    []kdItem[T]
	depth    int
	leafSize int
}

type kdItem[T Item] struct {
	obj  T
	box  bounds.AABB
	size float32
}

// KdNode is a node of a KdTree.
type KdNode struct {
	bv          bounds.AABB
	largest     float32
	left, right int32
	begin, end  int32
	depth       int32
}

func (n *KdNode) Bounds() bounds.AABB { return n.bv }
func (n *KdNode) Depth() int { return int(n.depth) }
func (n *KdNode) IsLeaf() bool { return n.left == noChild && n.right == noChild }
func (n *KdNode) LargestObjectSize() float32 { return n.largest }

// Len returns the number of objects below the node.
func (n *KdNode) Len() int { return int(n.end - n.begin) }

// KdOption configures BuildKdTree.
type KdOption func(*kdConfig)

type kdConfig struct {
	leafSize int
}

// WithLeafSize sets the maximum number of objects per leaf. Values below 1
// are ignored.
func WithLeafSize(n int) KdOption {
	return func(c *kdConfig) {
		if n >= 1 {
			c.leafSize = n
		}
	}
}

// BuildKdTree builds a tree over objects. The input slice is not retained
// or reordered.
func BuildKdTree[T Item](objects []T, opts ...KdOption) (*KdTree[T], error) {
	if len(objects) == 0 {
		return nil, ErrEmptyScene
	}
	cfg := kdConfig{leafSize: DefaultLeafSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	items := make([]kdItem[T], len(objects))
	for i, obj := range objects {
		box := obj.Bounds()
		if box.IsEmpty() || !box.IsFinite() {
			return nil, fmt.Errorf("build kd-tree: object %d has bounds %v: %w", i, box, ErrInvalidBounds)
		}
		items[i] = kdItem[T]{obj: obj, box: box, size: obj.LargestObjectSize()}
	}

	t := &KdTree[T]{
		items:    items,
		leafSize: cfg.leafSize,
		// a full binary tree over n leaves has fewer than 2n nodes
		nodes: make([]KdNode, 0, 2*len(items)),
	}
	t.build(0, int32(len(items)), 0)

	logger.Debugf("built kd-tree: %d objects, %d nodes, depth %d", len(items), len(t.nodes), t.depth)
	return t, nil
}

func (t *KdTree[T]) build(begin, end int32, depth int) int32 {
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, KdNode{
		left:  noChild,
		right: noChild,
		begin: begin,
		end:   end,
		depth: int32(depth),
	})
	if depth > t.depth {
		t.depth = depth
	}

	bv := bounds.Empty()
	var largest float32
	for _, it := range t.items[begin:end] {
		bv = bv.Union(it.box)
		largest = math32.Max(largest, it.size)
	}

	if int(end-begin) > t.leafSize {
		axis := int(bv.LongestAxis(depth))
		slices.SortFunc(t.items[begin:end], func(a, b kdItem[T]) int {
			return cmp.Compare(b.box.Center().Axis(axis), a.box.Center().Axis(axis))
		})

		half := (end - begin) / 2
		left := t.build(begin, begin+half, depth+1)
		right := t.build(begin+half, end, depth+1)
		t.nodes[idx].left, t.nodes[idx].right = left, right
	}

	t.nodes[idx].bv = bv
	t.nodes[idx].largest = largest
	return idx
}

// Len returns the number of objects.
func (t *KdTree[T]) Len() int { return len(t.items) }

// Depth returns the depth of the deepest leaf; a single leaf root has
// depth 0.
func (t *KdTree[T]) Depth() int { return t.depth }

// Bounds returns the bounds of every object.
func (t *KdTree[T]) Bounds() bounds.AABB { return t.nodes[0].bv }

// Root returns the root node.
func (t *KdTree[T]) Root() *KdNode { return &t.nodes[0] }

// Children returns the child nodes of n, nil for a missing child.
func (t *KdTree[T]) Children(n *KdNode) (left, right *KdNode) {
	if n.left != noChild {
		left = &t.nodes[n.left]
	}
	if n.right != noChild {
		right = &t.nodes[n.right]
	}
	return left, right
}

// Objects returns the objects below n.
func (t *KdTree[T]) Objects(n *KdNode, out []T) []T {
	for _, it := range t.items[n.begin:n.end] {
		out = append(out, it.obj)
	}
	return out
}

// CullVisibleObjects appends every object passing the detail and frustum
// tests to out.
func (t *KdTree[T]) CullVisibleObjects(p *culling.Params, out []T) []T {
	return t.cullVisibleObjects(0, p, out)
}

func (t *KdTree[T]) cullVisibleObjects(idx int32, p *culling.Params, out []T) []T {
	n := &t.nodes[idx]
	if !p.IsLargeEnough(n.bv, n.largest) {
		return out
	}

	switch p.Frustum.ClassifyAABB(n.bv) {
	case culling.Inside:
		return t.cullAllObjects(idx, p, out)
	case culling.Intersecting:
		if n.IsLeaf() {
			for _, it := range t.items[n.begin:n.end] {
				if it.obj.CullAndIntersect(p) {
					out = append(out, it.obj)
				}
			}
			return out
		}
		if n.left != noChild {
			out = t.cullVisibleObjects(n.left, p, out)
		}
		if n.right != noChild {
			out = t.cullVisibleObjects(n.right, p, out)
		}
	}
	return out
}

// CullAllObjects appends the objects passing the detail test alone. It is
// the bulk path for a tree known to be entirely inside the frustum.
func (t *KdTree[T]) CullAllObjects(p *culling.Params, out []T) []T {
	return t.cullAllObjects(0, p, out)
}

func (t *KdTree[T]) cullAllObjects(idx int32, p *culling.Params, out []T) []T {
	n := &t.nodes[idx]
	if n.IsLeaf() {
		for _, it := range t.items[n.begin:n.end] {
			if it.obj.Cull(p) {
				out = append(out, it.obj)
			}
		}
		return out
	}
	for _, c := range [2]int32{n.left, n.right} {
		if c != noChild && p.IsLargeEnough(t.nodes[c].bv, t.nodes[c].largest) {
			out = t.cullAllObjects(c, p, out)
		}
	}
	return out
}

// CollectCandidates implements Index.
func (t *KdTree[T]) CollectCandidates(p *culling.Params, inside, intersecting []T) ([]T, []T) {
	return t.collectCandidates(0, p, inside, intersecting)
}

func (t *KdTree[T]) collectCandidates(idx int32, p *culling.Params, inside, intersecting []T) ([]T, []T) {
	n := &t.nodes[idx]
	if !p.IsLargeEnough(n.bv, n.largest) {
		return inside, intersecting
	}

	switch p.Frustum.ClassifyAABB(n.bv) {
	case culling.Inside:
		inside = t.collectInside(idx, p, inside)
	case culling.Intersecting:
		if n.IsLeaf() {
			return inside, t.Objects(n, intersecting)
		}
		for _, c := range [2]int32{n.left, n.right} {
			if c != noChild {
				inside, intersecting = t.collectCandidates(c, p, inside, intersecting)
			}
		}
	}
	return inside, intersecting
}

func (t *KdTree[T]) collectInside(idx int32, p *culling.Params, out []T) []T {
	n := &t.nodes[idx]
	if n.IsLeaf() {
		return t.Objects(n, out)
	}
	for _, c := range [2]int32{n.left, n.right} {
		if c != noChild && p.IsLargeEnough(t.nodes[c].bv, t.nodes[c].largest) {
			out = t.collectInside(c, p, out)
		}
	}
	return out
}

// CullVisibleNodes appends the nodes accepted by the culling walk.
func (t *KdTree[T]) CullVisibleNodes(p *culling.Params, out []NodeView) []NodeView {
	return t.cullVisibleNodes(0, p, out, false)
}

func (t *KdTree[T]) cullVisibleNodes(idx int32, p *culling.Params, out []NodeView, inside bool) []NodeView {
	n := &t.nodes[idx]
	if !p.IsLargeEnough(n.bv, n.largest) {
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
	for _, c := range [2]int32{n.left, n.right} {
		if c != noChild {
			out = t.cullVisibleNodes(c, p, out, inside)
		}
	}
	return out
}

// IntersectObjects appends every object whose bounds intersect box.
func (t *KdTree[T]) IntersectObjects(box bounds.AABB, out []T) []T {
	return t.intersectObjects(0, box, out)
}

func (t *KdTree[T]) intersectObjects(idx int32, box bounds.AABB, out []T) []T {
	n := &t.nodes[idx]
	if !box.Intersects(n.bv) {
		return out
	}
	if box.Contains(n.bv) {
		return t.Objects(n, out)
	}
	if n.IsLeaf() {
		for _, it := range t.items[n.begin:n.end] {
			if box.Intersects(it.box) {
				out = append(out, it.obj)
			}
		}
		return out
	}
	for _, c := range [2]int32{n.left, n.right} {
		if c != noChild {
			out = t.intersectObjects(c, box, out)
		}
	}
	return out
}

// AllObjects appends every object in tree order.
func (t *KdTree[T]) AllObjects(out []T) []T {
	return t.Objects(&t.nodes[0], out)
}

// Stats returns the shape of the tree. Objects are counted at their leaf.
func (t *KdTree[T]) Stats() Stats {
	s := Stats{Nodes: len(t.nodes), MaxDepth: t.depth}
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.IsLeaf() {
			s.Leaves++
			s.addObjects(int(n.depth), n.Len())
		}
	}
	return s
}
