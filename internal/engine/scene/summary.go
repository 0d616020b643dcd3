package scene

// Summary counts what a model contains. Materials and textures shared
// between meshes are counted once.
type Summary struct {
	Meshes    int
	Joints    int
	Groups    int
	Vertices  int
	Triangles int
	Materials int
	Textures  int
}

// Summarize walks root and counts its contents. Hidden nodes are included.
func Summarize(root *Node) Summary {
	var s Summary
	materials := make(map[*Material]bool)
	textures := make(map[*Texture]bool)

	root.Traverse(func(n *Node) {
		switch n.Kind {
		case KindGroup:
			s.Groups++
		case KindJoint:
			s.Joints++
		case KindMesh:
			if n.Mesh == nil {
				return
			}
			s.Meshes++
			if g := n.Mesh.Geometry; g != nil {
				s.Vertices += g.VertexCount()
				s.Triangles += g.TriangleCount()
			}
			for _, m := range n.Mesh.Materials {
				if m == nil || materials[m] {
					continue
				}
				materials[m] = true
				for _, t := range m.Textures() {
					textures[t] = true
				}
			}
		}
	})
	s.Materials = len(materials)
	s.Textures = len(textures)
	return s
}
