package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/meshview/internal/engine/scene"
)

// printTree writes one line per node, indented by depth. maxDepth 0 prints
// every level.
func printTree(w io.Writer, root *scene.Node, maxDepth int) {
	var walk func(n *scene.Node, depth int)
	walk = func(n *scene.Node, depth int) {
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describe(n))
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if root != nil {
		walk(root, 0)
	}
}

func describe(n *scene.Node) string {
	name := n.Name
	if name == "" {
		name = "(unnamed)"
	}
	s := fmt.Sprintf("%s [%s]", name, n.Kind)
	if n.Kind == scene.KindMesh && n.Mesh != nil && n.Mesh.Geometry != nil {
		g := n.Mesh.Geometry
		s += fmt.Sprintf(" %d verts, %d tris, %d materials", g.VertexCount(), g.TriangleCount(), len(n.Mesh.Materials))
	}
	if !n.Visible {
		s += " hidden"
	}
	return s
}
