// Package debug generates helper geometry (reference grid, bounding boxes)
// and captures screenshots of the viewport.
package debug

import (
	"github.com/Faultbox/meshview/pkg/math"
)

// LineVertex is one endpoint of a colored line segment.
type LineVertex struct {
	X, Y, Z float32 // Position
	R, G, B float32 // Color
}

// BBoxVertexCount is the number of vertices for a bbox wireframe (12 edges × 2).
const BBoxVertexCount = 24

// BBoxColor is the default overlay color for model bounds.
var BBoxColor = [3]float32{1, 0.8, 0.2}

// BBoxLines creates line vertices for the wireframe of box expanded by
// padding on every side. An empty box yields nil.
func BBoxLines(box math.Box3, padding float32, color [3]float32) []LineVertex {
	if box.IsEmpty() {
		return nil
	}
	lo := box.Min.Sub(math.Vec3{X: padding, Y: padding, Z: padding})
	hi := box.Max.Add(math.Vec3{X: padding, Y: padding, Z: padding})

	corners := [8]math.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z},
	}
	edges := [12][2]int{
		// Bottom face
		{0, 1}, {1, 2}, {2, 3}, {3, 0},
		// Top face
		{4, 5}, {5, 6}, {6, 7}, {7, 4},
		// Vertical edges
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}

	out := make([]LineVertex, 0, BBoxVertexCount)
	for _, e := range edges {
		for _, i := range e {
			c := corners[i]
			out = append(out, LineVertex{c.X, c.Y, c.Z, color[0], color[1], color[2]})
		}
	}
	return out
}
