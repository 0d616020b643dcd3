package debug

// GridLines generates a square grid of the given size on the XZ plane,
// centered on the origin, with divisions cells per side. The two lines
// through the origin use centerColor.
// Returns (divisions+1)*4 vertices.
func GridLines(size float32, divisions int, centerColor, lineColor [3]float32) []LineVertex {
	if divisions < 1 || size <= 0 {
		return nil
	}

	half := size / 2
	step := size / float32(divisions)
	vertices := make([]LineVertex, 0, (divisions+1)*4)

	for i := 0; i <= divisions; i++ {
		k := -half + float32(i)*step
		c := lineColor
		if i*2 == divisions {
			c = centerColor
		}
		vertices = append(vertices,
			// Parallel to X
			LineVertex{-half, 0, k, c[0], c[1], c[2]},
			LineVertex{half, 0, k, c[0], c[1], c[2]},
			// Parallel to Z
			LineVertex{k, 0, -half, c[0], c[1], c[2]},
			LineVertex{k, 0, half, c[0], c[1], c[2]},
		)
	}

	return vertices
}
