package renderer

import (
	"fmt"

	"render-culling/bounds"
	"render-culling/config"
	"render-culling/math"
	"render-culling/spatial"
)

// BuildIndex builds the spatial index kind over objects. The dynamic trees
// are sized to the union of the object bounds.
func BuildIndex[T spatial.Item](kind config.TreeKind, objects []T) (spatial.Index[T], error) {
	if kind == config.TreeKdTree {
		tree, err := spatial.BuildKdTree(objects)
		if err != nil {
			return nil, err
		}
		return tree, nil
	}
	if len(objects) == 0 {
		return nil, fmt.Errorf("build %s: %w", kind, spatial.ErrEmptyScene)
	}

	box := bounds.Empty()
	for _, obj := range objects {
		box = box.Union(obj.Bounds())
	}
	if !box.IsFinite() {
		return nil, fmt.Errorf("build %s: scene %w", kind, spatial.ErrInvalidBounds)
	}

	var tree *spatial.Tree[T]
	switch kind {
	case config.TreeOctree:
		tree = spatial.NewOctree[T](box)
	case config.TreeQuadtree:
		tree = spatial.NewQuadtree[T](math.NewVec2(box.Min.X, box.Min.Z), math.NewVec2(box.Max.X, box.Max.Z))
	default:
		return nil, fmt.Errorf("build index: %w: unknown tree %q", config.ErrInvalidSettings, kind)
	}

	for _, obj := range objects {
		if err := tree.Insert(obj); err != nil {
			return nil, fmt.Errorf("build %s: %w", kind, err)
		}
	}
	return tree, nil
}
