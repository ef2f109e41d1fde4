package spatial

import (
	"fmt"

	"github.com/chewxy/math32"

	"render-culling/bounds"
	"render-culling/culling"
	"render-culling/log"
	"render-culling/math"
)

var logger = log.New("spatial")

// Growth decides what Insert does with an object outside the root bounds.
type Growth int

const (
	// GrowthBounded rejects the object with ErrObjectOutOfBounds.
	GrowthBounded Growth = iota
	// GrowthRegrow rebuilds the tree around the union of the old root and
	// the new object.
	GrowthRegrow
)

// DefaultMaxDepth bounds the subdivision of the sparse trees. Without it
// a degenerate (point) object would be pushed down forever.
const DefaultMaxDepth = 16

var (
	quadAxes = []bounds.Axis{bounds.AxisX, bounds.AxisZ}
	octAxes  = []bounds.Axis{bounds.AxisX, bounds.AxisY, bounds.AxisZ}
)

// Option configures a Tree.
type Option func(*treeConfig)

type treeConfig struct {
	growth   Growth
	maxDepth int
	logger   log.Logger
}

// WithGrowth selects the out-of-bounds insertion policy.
func WithGrowth(g Growth) Option {
	return func(c *treeConfig) { c.growth = g }
}

// WithMaxDepth limits how deep objects are pushed.
func WithMaxDepth(depth int) Option {
	return func(c *treeConfig) {
		if depth >= 0 {
			c.maxDepth = depth
		}
	}
}

// WithLogger overrides the package logger.
func WithLogger(l log.Logger) Option {
	return func(c *treeConfig) { c.logger = l }
}

// Tree is a sparse spatial tree splitting its partition bounds in half
// along every partition axis, so a node has 2^len(axes) child slots. Two
// axes give the Quadtree, three the Octree.
//
// An object is stored at the shallowest node whose partition fully encloses
// its bounds and for which no single child partition does.
type Tree[T Item] struct {
	root  *Node[T]
	axes  []bounds.Axis
	count int
	cfg   treeConfig
}

// NewQuadtree returns a tree partitioning the XZ ground plane between min
// and max (given as X, Z). It is unbounded along Y. By default it refuses
// objects outside its bounds.
func NewQuadtree[T Item](min, max math.Vec2, opts ...Option) *Tree[T] {
	partition := bounds.New(min.XZ(math32.Inf(-1)), max.XZ(math32.Inf(1)))
	return newTree[T](partition, quadAxes, GrowthBounded, opts)
}

// NewOctree returns a tree partitioning box along all three axes. By
// default it regrows to accept objects outside its bounds.
func NewOctree[T Item](box bounds.AABB, opts ...Option) *Tree[T] {
	return newTree[T](box, octAxes, GrowthRegrow, opts)
}

func newTree[T Item](partition bounds.AABB, axes []bounds.Axis, growth Growth, opts []Option) *Tree[T] {
	cfg := treeConfig{
		growth:   growth,
		maxDepth: DefaultMaxDepth,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Tree[T]{
		root: newNode[T](partition, 0),
		axes: axes,
		cfg:  cfg,
	}
}

// Len returns the number of stored objects.
func (t *Tree[T]) Len() int {
	return t.count
}

// Bounds returns the root partition bounds.
func (t *Tree[T]) Bounds() bounds.AABB {
	return t.root.partition
}

// Root returns the root node.
func (t *Tree[T]) Root() *Node[T] {
	return t.root
}

// Fanout returns the number of child slots per node.
func (t *Tree[T]) Fanout() int {
	return 1 << len(t.axes)
}

// Insert adds obj to the tree.
func (t *Tree[T]) Insert(obj T) error {
	box := obj.Bounds()
	if box.IsEmpty() || !box.IsFinite() {
		return fmt.Errorf("insert %v: %w", box, ErrInvalidBounds)
	}

	if !t.root.partition.Contains(box) {
		if t.cfg.growth == GrowthBounded {
			return fmt.Errorf("insert %v into %v: %w", box, t.root.partition, ErrObjectOutOfBounds)
		}
		t.regrow(box)
	}

	t.insert(obj, box)
	t.count++
	return nil
}

// regrow replaces the root with one covering the old root, box and the
// current bounds of every stored object, then re-inserts the objects.
// Objects may have moved since they were inserted.
func (t *Tree[T]) regrow(box bounds.AABB) {
	objects := t.AllObjects(make([]T, 0, t.count))
	partition := t.root.partition.Union(box)
	for _, obj := range objects {
		partition = partition.Union(obj.Bounds())
	}
	t.cfg.logger.Infof("regrowing tree from %v to %v (%d objects)", t.root.partition, partition, len(objects))

	t.root = newNode[T](partition, 0)
	for _, obj := range objects {
		t.insert(obj, obj.Bounds())
	}
}

func (t *Tree[T]) insert(obj T, box bounds.AABB) {
	size := obj.LargestObjectSize()
	n := t.root
	for {
		n.bv = n.bv.Union(box)
		n.largest = math32.Max(n.largest, size)

		if n.depth >= t.cfg.maxDepth {
			break
		}
		slot := n.childSlot(box, t.axes)
		if slot < 0 {
			break
		}
		n = n.child(slot, t.axes)
	}
	n.objects = append(n.objects, obj)
}

// Remove forgets obj. It reports false, and logs a warning, when obj was
// never inserted. Node bounds are not shrunk.
func (t *Tree[T]) Remove(obj T) bool {
	// Fast path: follow the insertion path for the current bounds.
	box := obj.Bounds()
	n := t.root
	for n != nil {
		if n.removeDirect(obj) {
			t.count--
			return true
		}
		slot := n.childSlot(box, t.axes)
		if slot < 0 || n.children == nil {
			break
		}
		n = n.children[slot]
	}

	// The object may have moved since insertion.
	if t.root.remove(obj) {
		t.count--
		return true
	}

	t.cfg.logger.Warningf("remove: object with bounds %v not found", box)
	return false
}

// CullVisibleObjects appends every object passing the detail and frustum
// tests to out.
func (t *Tree[T]) CullVisibleObjects(p *culling.Params, out []T) []T {
	return t.root.cullVisibleObjects(p, out)
}

// CollectCandidates implements Index.
func (t *Tree[T]) CollectCandidates(p *culling.Params, inside, intersecting []T) ([]T, []T) {
	return t.root.collectCandidates(p, inside, intersecting)
}

// CullVisibleNodes appends the nodes accepted by the culling walk.
func (t *Tree[T]) CullVisibleNodes(p *culling.Params, out []NodeView) []NodeView {
	return t.root.cullVisibleNodes(p, out, false)
}

// IntersectObjects appends every object whose bounds intersect box.
func (t *Tree[T]) IntersectObjects(box bounds.AABB, out []T) []T {
	return t.root.intersectObjects(box, out)
}

// AllObjects appends every stored object.
func (t *Tree[T]) AllObjects(out []T) []T {
	return t.root.allObjects(out)
}

// Walk visits nodes depth first. Returning false from fn skips the node's
// children.
func (t *Tree[T]) Walk(fn func(n *Node[T]) bool) {
	t.root.walk(fn)
}

// Stats returns the current shape of the tree.
func (t *Tree[T]) Stats() Stats {
	var s Stats
	t.Walk(func(n *Node[T]) bool {
		s.Nodes++
		if n.IsLeaf() {
			s.Leaves++
		}
		s.addObjects(n.depth, len(n.objects))
		if n.depth > s.MaxDepth {
			s.MaxDepth = n.depth
		}
		return true
	})
	return s
}
