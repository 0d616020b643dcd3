package viewport

import (
	"github.com/Faultbox/meshview/internal/engine/scene"
)

// ReclaimStats counts what one Reclaim pass released.
type ReclaimStats struct {
	Geometries int
	Materials  int
	Textures   int
}

// Reclaim releases every geometry, material and texture owned by the
// subtree rooted at root. A resource shared between nodes is released once.
// Textures of a material are released before the material. A nil root is a
// no-op.
func Reclaim(root *scene.Node, r Releaser) ReclaimStats {
	var stats ReclaimStats
	if root == nil || r == nil {
		return stats
	}

	geometries := make(map[*scene.Geometry]struct{})
	materials := make(map[*scene.Material]struct{})
	textures := make(map[*scene.Texture]struct{})

	root.Traverse(func(n *scene.Node) {
		if n.Kind != scene.KindMesh || n.Mesh == nil {
			return
		}
		if g := n.Mesh.Geometry; g != nil {
			if _, ok := geometries[g]; !ok {
				geometries[g] = struct{}{}
				r.ReleaseGeometry(g)
				stats.Geometries++
			}
		}
		for _, m := range n.Mesh.Materials {
			if m == nil {
				continue
			}
			if _, ok := materials[m]; ok {
				continue
			}
			materials[m] = struct{}{}
			for _, t := range m.Textures() {
				if _, ok := textures[t]; ok {
					continue
				}
				textures[t] = struct{}{}
				r.ReleaseTexture(t)
				stats.Textures++
			}
			r.ReleaseMaterial(m)
			stats.Materials++
		}
	})
	return stats
}
