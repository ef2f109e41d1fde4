package spatial

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"render-culling/bounds"
	"render-culling/culling"
	"render-culling/math"
)

type testObject struct {
	id  int
	box bounds.AABB
}

func (o *testObject) Bounds() bounds.AABB { return o.box }
func (o *testObject) LargestObjectSize() float32 { return o.box.Diagonal() }

func (o *testObject) Cull(p *culling.Params) bool {
	return p.CullBox(o.box, o.LargestObjectSize())
}

func (o *testObject) CullAndIntersect(p *culling.Params) bool {
	return p.CullAndIntersectBox(o.box, o.LargestObjectSize())
}

func aabb(x0, y0, z0, x1, y1, z1 float32) bounds.AABB {
	return bounds.New(math.NewVec3(x0, y0, z0), math.NewVec3(x1, y1, z1))
}

// randomObjects scatters n boxes of size [0.1, maxSize) inside extent.
func randomObjects(rng *rand.Rand, n int, extent bounds.AABB, maxSize float32) []*testObject {
	objs := make([]*testObject, n)
	span := extent.Size()
	for i := range objs {
		size := math.NewVec3(
			0.1+rng.Float32()*(maxSize-0.1),
			0.1+rng.Float32()*(maxSize-0.1),
			0.1+rng.Float32()*(maxSize-0.1),
		)
		free := span.Sub(size)
		min := extent.Min.Add(math.NewVec3(rng.Float32()*free.X, rng.Float32()*free.Y, rng.Float32()*free.Z))
		objs[i] = &testObject{id: i, box: bounds.New(min, min.Add(size))}
	}
	return objs
}

func ids(objs []*testObject) []int {
	out := make([]int, len(objs))
	for i, o := range objs {
		out[i] = o.id
	}
	slices.Sort(out)
	return out
}

func bruteForce(objs []*testObject, p *culling.Params) []*testObject {
	var out []*testObject
	for _, o := range objs {
		if o.CullAndIntersect(p) {
			out = append(out, o)
		}
	}
	return out
}

func perspectiveParams(eye, target math.Vec3, threshold float32) culling.Params {
	view := math.Mat4LookAt(eye, target, math.Vec3Up)
	proj := math.Mat4Perspective(math32.Pi/3, 16.0/9.0, 0.5, 300)
	f := culling.ExtractFrustumPlanes(view.Mul(proj), culling.DepthMinusOneToOne)
	return culling.NewParams(eye, f, threshold)
}

var worldBox = aabb(-100, -20, -100, 100, 20, 100)

type indexCase struct {
	name  string
	build func(t *testing.T, objs []*testObject) Index[*testObject]
}

func indexCases() []indexCase {
	return []indexCase{
		{"quadtree", func(t *testing.T, objs []*testObject) Index[*testObject] {
			tree := NewQuadtree[*testObject](math.NewVec2(-100, -100), math.NewVec2(100, 100))
			for _, o := range objs {
				require.NoError(t, tree.Insert(o))
			}
			return tree
		}},
		{"octree", func(t *testing.T, objs []*testObject) Index[*testObject] {
			tree := NewOctree[*testObject](worldBox)
			for _, o := range objs {
				require.NoError(t, tree.Insert(o))
			}
			return tree
		}},
		{"kdtree", func(t *testing.T, objs []*testObject) Index[*testObject] {
			tree, err := BuildKdTree(objs)
			require.NoError(t, err)
			return tree
		}},
	}
}

func TestQuadtreeScenario(t *testing.T) {
	tree := NewQuadtree[*testObject](math.NewVec2(0, 0), math.NewVec2(100, 100))
	a := &testObject{id: 1, box: aabb(10, 0, 10, 20, 1, 20)}
	b := &testObject{id: 2, box: aabb(60, 0, 60, 90, 1, 90)}
	require.NoError(t, tree.Insert(a))
	require.NoError(t, tree.Insert(b))

	root := tree.Root()
	assert.Empty(t, root.Objects())
	lower := root.Child(0)
	upper := root.Child(3)
	require.NotNil(t, lower)
	require.NotNil(t, upper)
	assert.Equal(t, 1, lower.Depth())
	assert.Contains(t, upper.Objects(), b)
	assert.True(t, lower.Partition().Contains(a.box))
	assert.Nil(t, root.Child(1))
	assert.Nil(t, root.Child(2))

	found := false
	tree.Walk(func(n *Node[*testObject]) bool {
		if slices.Contains(n.Objects(), a) {
			found = true
			assert.True(t, lower.Partition().Contains(n.Partition()))
		}
		return true
	})
	assert.True(t, found)

	p := culling.NewParams(math.NewVec3(25, 100, 25), culling.FrustumFromBox(aabb(0, -1000, 0, 50, 1000, 50)), 0)
	visible := tree.CullVisibleObjects(&p, nil)
	assert.Equal(t, []*testObject{a}, visible)
}

func TestQuadtreeOutOfBounds(t *testing.T) {
	tree := NewQuadtree[*testObject](math.NewVec2(0, 0), math.NewVec2(10, 10))
	require.NoError(t, tree.Insert(&testObject{box: aabb(1, 0, 1, 2, 1, 2)}))

	err := tree.Insert(&testObject{box: aabb(5, 0, 5, 20, 1, 20)})
	assert.ErrorIs(t, err, ErrObjectOutOfBounds)
	assert.Equal(t, 1, tree.Len())
	assert.Len(t, tree.AllObjects(nil), 1)
}

func TestQuadtreeRegrow(t *testing.T) {
	tree := NewQuadtree[*testObject](math.NewVec2(0, 0), math.NewVec2(10, 10), WithGrowth(GrowthRegrow))
	require.NoError(t, tree.Insert(&testObject{id: 0, box: aabb(1, 0, 1, 2, 1, 2)}))
	require.NoError(t, tree.Insert(&testObject{id: 1, box: aabb(5, 0, 5, 20, 1, 20)}))
	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, float32(20), tree.Bounds().Max.X)
}

func TestOctreeRegrow(t *testing.T) {
	tree := NewOctree[*testObject](aabb(0, 0, 0, 10, 10, 10))
	objs := []*testObject{
		{id: 0, box: aabb(1, 1, 1, 2, 2, 2)},
		{id: 1, box: aabb(7, 7, 7, 8, 8, 8)},
		{id: 2, box: aabb(-30, 0, 0, -20, 5, 5)},
	}
	for _, o := range objs {
		require.NoError(t, tree.Insert(o))
	}

	assert.Equal(t, 3, tree.Len())
	assert.True(t, tree.Bounds().Contains(objs[2].box))
	assert.True(t, tree.Bounds().Contains(aabb(0, 0, 0, 10, 10, 10)))
	assert.Equal(t, ids(objs), ids(tree.AllObjects(nil)))
}

func TestRegrowCoversMovedObjects(t *testing.T) {
	tree := NewOctree[*testObject](aabb(0, 0, 0, 10, 10, 10))
	moved := &testObject{id: 0, box: aabb(1, 1, 1, 2, 2, 2)}
	require.NoError(t, tree.Insert(moved))
	require.NoError(t, tree.Insert(&testObject{id: 1, box: aabb(7, 7, 7, 8, 8, 8)}))

	moved.box = aabb(-50, 1, 1, -49, 2, 2)
	require.NoError(t, tree.Insert(&testObject{id: 2, box: aabb(20, 1, 1, 21, 2, 2)}))

	assert.True(t, tree.Bounds().Contains(moved.box))
	tree.Walk(func(n *Node[*testObject]) bool {
		for _, o := range n.Objects() {
			assert.True(t, n.Partition().Contains(o.box), "object %d at depth %d", o.id, n.Depth())
		}
		return true
	})
	assert.Equal(t, []int{0, 1, 2}, ids(tree.AllObjects(nil)))
}

func TestInsertInvalidBounds(t *testing.T) {
	tree := NewOctree[*testObject](worldBox)
	nan := math32.NaN()
	assert.ErrorIs(t, tree.Insert(&testObject{box: aabb(nan, 0, 0, 1, 1, 1)}), ErrInvalidBounds)
	assert.ErrorIs(t, tree.Insert(&testObject{box: bounds.Empty()}), ErrInvalidBounds)
	assert.Zero(t, tree.Len())
}

func TestEmptyTree(t *testing.T) {
	p := perspectiveParams(math.Vec3Zero, math.NewVec3(0, 0, -1), 0)

	quad := NewQuadtree[*testObject](math.NewVec2(0, 0), math.NewVec2(100, 100))
	assert.Empty(t, quad.CullVisibleObjects(&p, nil))
	assert.Empty(t, quad.CullVisibleNodes(&p, nil))
	oct := NewOctree[*testObject](worldBox)
	assert.Empty(t, oct.CullVisibleObjects(&p, nil))
	assert.Empty(t, oct.IntersectObjects(worldBox, nil))

	_, err := BuildKdTree[*testObject](nil)
	assert.ErrorIs(t, err, ErrEmptyScene)
}

func TestContainmentInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	objs := randomObjects(rng, 500, worldBox, 15)

	tree := NewOctree[*testObject](worldBox)
	for _, o := range objs {
		require.NoError(t, tree.Insert(o))
	}

	var check func(n *Node[*testObject])
	check = func(n *Node[*testObject]) {
		for _, o := range n.Objects() {
			assert.True(t, n.Bounds().Contains(o.box))
			assert.True(t, n.Partition().Contains(o.box))
			assert.LessOrEqual(t, o.LargestObjectSize(), n.LargestObjectSize())
		}
		for i := range tree.Fanout() {
			c := n.Child(i)
			if c == nil {
				continue
			}
			assert.Equal(t, n.Depth()+1, c.Depth())
			assert.True(t, n.Bounds().Contains(c.Bounds()))
			assert.True(t, n.Partition().Contains(c.Partition()))
			assert.LessOrEqual(t, c.LargestObjectSize(), n.LargestObjectSize())
			check(c)
		}
	}
	check(tree.Root())

	stats := tree.Stats()
	assert.Equal(t, len(objs), stats.Objects)
	assert.LessOrEqual(t, stats.MaxDepth, DefaultMaxDepth)
}

func TestMaxDepth(t *testing.T) {
	tree := NewOctree[*testObject](worldBox, WithMaxDepth(2))
	point := aabb(1, 1, 1, 1, 1, 1)
	for i := range 10 {
		require.NoError(t, tree.Insert(&testObject{id: i, box: point}))
	}
	stats := tree.Stats()
	assert.Equal(t, 2, stats.MaxDepth)
	assert.Equal(t, 10, stats.ObjectsPerDepth[2])
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	objs := randomObjects(rng, 300, worldBox, 10)

	for _, tc := range indexCases() {
		t.Run(tc.name, func(t *testing.T) {
			idx := tc.build(t, objs)
			assert.Equal(t, len(objs), idx.Len())
			assert.Equal(t, ids(objs), ids(idx.AllObjects(nil)))
		})
	}
}

func TestRemove(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 42))
	objs := randomObjects(rng, 200, worldBox, 10)

	tree := NewOctree[*testObject](worldBox)
	for _, o := range objs {
		require.NoError(t, tree.Insert(o))
	}

	// moved since insertion: found by the full scan
	moved := objs[0]
	moved.box = aabb(90, 0, 90, 91, 1, 91)

	for i, o := range objs {
		require.True(t, tree.Remove(o), "object %d", i)
		assert.Equal(t, len(objs)-i-1, tree.Len())
	}
	assert.Empty(t, tree.AllObjects(nil))

	assert.False(t, tree.Remove(&testObject{id: -1, box: aabb(0, 0, 0, 1, 1, 1)}))
	assert.Zero(t, tree.Len())
}

func TestCullMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	objs := randomObjects(rng, 1000, worldBox, 12)

	cameras := []culling.Params{
		perspectiveParams(math.NewVec3(0, 10, 0), math.NewVec3(50, 0, -50), 0),
		perspectiveParams(math.NewVec3(-120, 30, -120), math.Vec3Zero, 0),
		perspectiveParams(math.NewVec3(0, 200, 0), math.NewVec3(0.1, 0, 0), 0),
		perspectiveParams(math.NewVec3(0, 0, 500), math.NewVec3(0, 0, 1000), 0),
	}

	for _, tc := range indexCases() {
		t.Run(tc.name, func(t *testing.T) {
			idx := tc.build(t, objs)
			for i := range cameras {
				p := &cameras[i]
				want := ids(bruteForce(objs, p))
				assert.Equal(t, want, ids(idx.CullVisibleObjects(p, nil)), "camera %d", i)
			}
		})
	}
}

func TestDetailCullingMonotonic(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	objs := randomObjects(rng, 800, worldBox, 12)
	eye, target := math.NewVec3(-50, 15, 80), math.NewVec3(0, 0, 0)

	for _, tc := range indexCases() {
		t.Run(tc.name, func(t *testing.T) {
			idx := tc.build(t, objs)

			prev := -1
			for _, threshold := range []float32{0, 0.01, 0.05, 0.2, 1} {
				p := perspectiveParams(eye, target, threshold)
				got := idx.CullVisibleObjects(&p, nil)
				if prev >= 0 {
					assert.LessOrEqual(t, len(got), prev, "threshold %g", threshold)
				}
				prev = len(got)

				// never returns something that fails the object tests
				for _, o := range got {
					assert.True(t, o.CullAndIntersect(&p))
				}
			}

			p := perspectiveParams(eye, target, math32.Inf(1))
			assert.Empty(t, idx.CullVisibleObjects(&p, nil))
		})
	}
}

func TestCollectCandidatesMatchesCull(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	objs := randomObjects(rng, 1000, worldBox, 12)

	for _, tc := range indexCases() {
		t.Run(tc.name, func(t *testing.T) {
			idx := tc.build(t, objs)
			for _, threshold := range []float32{0, 0.05} {
				p := perspectiveParams(math.NewVec3(10, 20, 60), math.NewVec3(0, 0, -20), threshold)

				inside, intersecting := idx.CollectCandidates(&p, nil, nil)
				var got []*testObject
				for _, o := range inside {
					if o.Cull(&p) {
						got = append(got, o)
					}
				}
				for _, o := range intersecting {
					if o.CullAndIntersect(&p) {
						got = append(got, o)
					}
				}

				assert.Equal(t, ids(idx.CullVisibleObjects(&p, nil)), ids(got), "threshold %g", threshold)
				for _, o := range inside {
					assert.Equal(t, culling.Inside, p.Frustum.ClassifyAABB(o.box))
				}
			}
		})
	}
}

func TestCullVisibleNodes(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	objs := randomObjects(rng, 400, worldBox, 10)
	p := perspectiveParams(math.NewVec3(0, 10, 50), math.Vec3Zero, 0)

	for _, tc := range indexCases() {
		t.Run(tc.name, func(t *testing.T) {
			idx := tc.build(t, objs)
			nodes := idx.CullVisibleNodes(&p, nil)
			require.NotEmpty(t, nodes)
			assert.Equal(t, 0, nodes[0].Depth())
			for _, n := range nodes {
				assert.True(t, p.Frustum.IntersectsAABB(n.Bounds()))
			}

			away := perspectiveParams(math.NewVec3(0, 0, 500), math.NewVec3(0, 0, 1000), 0)
			assert.Empty(t, idx.CullVisibleNodes(&away, nil))
		})
	}
}

func TestIntersectObjects(t *testing.T) {
	rng := rand.New(rand.NewPCG(12, 13))
	objs := randomObjects(rng, 600, worldBox, 10)
	queries := []bounds.AABB{
		aabb(-10, -5, -10, 10, 5, 10),
		aabb(-200, -200, -200, 200, 200, 200),
		aabb(50, 0, 50, 51, 1, 51),
		aabb(500, 500, 500, 600, 600, 600),
	}

	for _, tc := range indexCases() {
		t.Run(tc.name, func(t *testing.T) {
			idx := tc.build(t, objs)
			for _, q := range queries {
				var want []*testObject
				for _, o := range objs {
					if q.Intersects(o.box) {
						want = append(want, o)
					}
				}
				assert.Equal(t, ids(want), ids(idx.IntersectObjects(q, nil)), "query %v", q)
			}
		})
	}
}

func TestKdTreeBalance(t *testing.T) {
	rng := rand.New(rand.NewPCG(99, 1))
	for _, n := range []int{1, 2, 3, 4, 5, 17, 1000, 4096} {
		objs := randomObjects(rng, n, worldBox, 5)
		tree, err := BuildKdTree(objs)
		require.NoError(t, err)

		bound := int(math32.Ceil(math32.Log2(float32(n)))) + 1
		assert.LessOrEqual(t, tree.Depth(), bound, "n=%d", n)

		stats := tree.Stats()
		assert.Equal(t, n, stats.Objects)
		for i := range stats.ObjectsPerDepth {
			if stats.ObjectsPerDepth[i] > 0 {
				assert.GreaterOrEqual(t, i, tree.Depth()-1, "n=%d: leaves differ in depth by more than one", n)
			}
		}

		var walk func(node *KdNode)
		walk = func(node *KdNode) {
			l, r := tree.Children(node)
			if node.IsLeaf() {
				assert.LessOrEqual(t, node.Len(), DefaultLeafSize)
				return
			}
			require.NotNil(t, l)
			require.NotNil(t, r)
			assert.InDelta(t, l.Len(), r.Len(), 1)
			assert.True(t, node.Bounds().Contains(l.Bounds()))
			assert.True(t, node.Bounds().Contains(r.Bounds()))
			walk(l)
			walk(r)
		}
		walk(tree.Root())
	}
}

func TestKdTreeLeafSize(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	objs := randomObjects(rng, 64, worldBox, 5)

	tree, err := BuildKdTree(objs, WithLeafSize(8))
	require.NoError(t, err)
	assert.Equal(t, 3, tree.Depth())
	assert.Equal(t, 8, tree.Stats().Leaves)
}

func TestKdTreeCullAllObjects(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	objs := randomObjects(rng, 100, worldBox, 5)
	tree, err := BuildKdTree(objs)
	require.NoError(t, err)

	p := culling.NewParams(math.NewVec3(0, 0, 0), culling.FrustumFromBox(worldBox), 0)
	assert.Equal(t, ids(objs), ids(tree.CullAllObjects(&p, nil)))
	assert.Equal(t, ids(objs), ids(tree.CullVisibleObjects(&p, nil)))

	// input order is left alone
	for i, o := range objs {
		assert.Equal(t, i, o.id)
	}
}

func BenchmarkOctreeCull(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	objs := randomObjects(rng, 20000, worldBox, 4)
	tree := NewOctree[*testObject](worldBox)
	for _, o := range objs {
		if err := tree.Insert(o); err != nil {
			b.Fatal(err)
		}
	}
	p := perspectiveParams(math.NewVec3(0, 10, 80), math.Vec3Zero, 0.01)
	out := make([]*testObject, 0, len(objs))

	for b.Loop() {
		out = tree.CullVisibleObjects(&p, out[:0])
	}
}

func BenchmarkKdTreeCull(b *testing.B) {
	rng := rand.New(rand.NewPCG(1, 1))
	objs := randomObjects(rng, 20000, worldBox, 4)
	tree, err := BuildKdTree(objs)
	if err != nil {
		b.Fatal(err)
	}
	p := perspectiveParams(math.NewVec3(0, 10, 80), math.Vec3Zero, 0.01)
	out := make([]*testObject, 0, len(objs))

	for b.Loop() {
		out = tree.CullVisibleObjects(&p, out[:0])
	}
}

var (
	_ Index[*testObject] = (*Tree[*testObject])(nil)
	_ Index[*testObject] = (*KdTree[*testObject])(nil)
)
