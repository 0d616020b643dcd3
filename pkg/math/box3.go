package math

import "math"

// Box3 is an axis-aligned bounding box. The zero value is not empty; use
// EmptyBox to start accumulating points.
type Box3 struct {
	Min Vec3
	Max Vec3
}

// EmptyBox returns a box that contains nothing. Expanding it by a point
// yields a zero-size box at that point.
func EmptyBox() Box3 {
	inf := float32(math.Inf(1))
	return Box3{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// BoxFromPoints returns the smallest box containing all points.
func BoxFromPoints(points ...Vec3) Box3 {
	b := EmptyBox()
	for _, p := range points {
		b = b.ExpandByPoint(p)
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b Box3) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// ExpandByPoint grows the box to include p.
func (b Box3) ExpandByPoint(p Vec3) Box3 {
	return Box3{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b Box3) Union(other Box3) Box3 {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	return Box3{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Center returns the box midpoint. An empty box reports the origin.
func (b Box3) Center() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box extents. An empty box reports zero size.
func (b Box3) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Transform returns the box enclosing all eight corners of b transformed by m.
func (b Box3) Transform(m Mat4) Box3 {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		corner := Vec3{b.Min.X, b.Min.Y, b.Min.Z}
		if i&1 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&4 != 0 {
			corner.Z = b.Max.Z
		}
		out = out.ExpandByPoint(m.TransformVec3(corner))
	}
	return out
}

// Corners returns min/max as the [6]float32 layout used by wireframe helpers.
func (b Box3) Corners() [6]float32 {
	return [6]float32{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
}
