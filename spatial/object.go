// Package spatial implements the hierarchical bounding-volume structures
// used to find the render set each frame: a sparse Quadtree/Octree for
// scenes that change through insertion and removal, and a static KdTree
// (BVH) built once over a fixed object set.
//
// Trees store references to objects and never own them. Queries may run
// concurrently with each other but not with Insert or Remove.
package spatial

import (
	"errors"

	"render-culling/bounds"
	"render-culling/culling"
)

var (
	// ErrObjectOutOfBounds is returned by a bounded tree for an object whose
	// bounds are not contained by the root. The tree is left unchanged.
	ErrObjectOutOfBounds = errors.New("spatial: object out of tree bounds")

	// ErrEmptyScene is returned when building a KdTree from no objects.
	ErrEmptyScene = errors.New("spatial: cannot build tree from an empty scene")

	// ErrInvalidBounds is returned for objects whose bounds are empty or
	// contain NaN/Inf components.
	ErrInvalidBounds = errors.New("spatial: object bounds are not finite")
)

// Object is the capability set a tree needs from the things it indexes.
type Object interface {
	// Bounds returns the world-space bounding volume.
	Bounds() bounds.AABB

	// LargestObjectSize is the size used for detail culling. It usually is
	// the bounds diagonal, but instanced or impostor objects may report the
	// size of a single instance instead.
	LargestObjectSize() float32

	// Cull is the size-only test applied to objects already known to be
	// inside the frustum. It reports whether the object survives.
	Cull(p *culling.Params) bool

	// CullAndIntersect applies both the size test and the exact frustum
	// test. It reports whether the object survives.
	CullAndIntersect(p *culling.Params) bool
}

// Item constrains tree elements: objects that can also be compared for
// identity, which Remove relies on.
type Item interface {
	comparable
	Object
}

// Index is the query surface shared by Tree and KdTree.
type Index[T Item] interface {
	// CullVisibleObjects appends every object passing the detail and
	// frustum tests to out.
	CullVisibleObjects(p *culling.Params, out []T) []T

	// CollectCandidates splits the render candidates in two buckets without
	// testing the objects themselves: objects under nodes fully inside the
	// frustum (which only need Cull) and objects held by nodes that
	// intersect it (which need CullAndIntersect).
	CollectCandidates(p *culling.Params, inside, intersecting []T) ([]T, []T)

	// CullVisibleNodes appends the nodes the culling walk accepts.
	CullVisibleNodes(p *culling.Params, out []NodeView) []NodeView

	// IntersectObjects appends every object whose bounds intersect box.
	IntersectObjects(box bounds.AABB, out []T) []T

	// AllObjects appends every stored object.
	AllObjects(out []T) []T

	Len() int
}

// NodeView is the read-only view of a tree node used for debug drawing.
type NodeView interface {
	Bounds() bounds.AABB
	Depth() int
	IsLeaf() bool
}

// Stats describes the shape of a tree.
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	Objects  int

	// ObjectsPerDepth[d] counts the objects stored at depth d.
	ObjectsPerDepth []int
}

func (s *Stats) addObjects(depth, count int) {
	for len(s.ObjectsPerDepth) <= depth {
		s.ObjectsPerDepth = append(s.ObjectsPerDepth, 0)
	}
	s.ObjectsPerDepth[depth] += count
	s.Objects += count
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}
}
