package renderer

import (
	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/pkg/math"
)

// defaultMaterial shades meshes that have no material for a slot.
var defaultMaterial = &scene.Material{Name: "default", Color: [4]float32{0.8, 0.8, 0.8, 1}}

type drawItem struct {
	node  *scene.Node
	world math.Mat4
}

// collectDraws appends every drawable mesh under root with its world
// matrix. A hidden node hides its whole subtree.
func collectDraws(root *scene.Node, out []drawItem) []drawItem {
	if root == nil {
		return out
	}
	var walk func(n *scene.Node, parent math.Mat4)
	walk = func(n *scene.Node, parent math.Mat4) {
		if !n.Visible {
			return
		}
		world := parent.Mul(n.Transform)
		if n.Kind == scene.KindMesh && n.Mesh != nil && n.Mesh.Geometry != nil && n.Mesh.Geometry.VertexCount() > 0 {
			out = append(out, drawItem{node: n, world: world})
		}
		for _, c := range n.Children {
			walk(c, world)
		}
	}
	walk(root, math.Identity())
	return out
}

type drawPart struct {
	material *scene.Material
	start    int
	count    int
}

// drawParts splits a mesh into per-material ranges. Ranges are in indices
// for indexed geometry and in vertices otherwise. A group whose material
// index is out of range falls back to the default material.
func drawParts(mesh *scene.Mesh) []drawPart {
	g := mesh.Geometry
	total := len(g.Indices)
	if total == 0 {
		total = g.VertexCount()
	}

	material := func(i int) *scene.Material {
		if i >= 0 && i < len(mesh.Materials) {
			return mesh.Materials[i]
		}
		return nil
	}

	if len(g.Groups) == 0 {
		return []drawPart{{material: material(0), start: 0, count: total}}
	}

	parts := make([]drawPart, 0, len(g.Groups))
	for _, grp := range g.Groups {
		start := max(grp.Start, 0)
		end := min(grp.Start+grp.Count, total)
		if end <= start {
			continue
		}
		parts = append(parts, drawPart{material: material(grp.MaterialIndex), start: start, count: end - start})
	}
	return parts
}
