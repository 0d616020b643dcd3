package scene

import (
	"image"

	"github.com/Faultbox/meshview/pkg/math"
)

// Geometry holds vertex data for a mesh. Positions and Normals are packed
// xyz triples, UVs packed uv pairs. Indices address vertices as triangles.
type Geometry struct {
	Name      string
	Positions []float32
	Normals   []float32
	UVs       []float32
	Indices   []uint32

	// Groups split Indices into ranges drawn with a material each. An empty
	// Groups slice draws everything with the first material.
	Groups []Group

	bounds      math.Box3
	boundsValid bool
}

// Group is a contiguous index range drawn with one material.
type Group struct {
	Start         int
	Count         int
	MaterialIndex int
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions) / 3
}

// TriangleCount returns the number of indexed triangles.
func (g *Geometry) TriangleCount() int {
	return len(g.Indices) / 3
}

// Bounds returns the local-space bounding box, computed once.
func (g *Geometry) Bounds() math.Box3 {
	if g.boundsValid {
		return g.bounds
	}
	box := math.EmptyBox()
	for i := 0; i+2 < len(g.Positions); i += 3 {
		box = box.ExpandByPoint(math.Vec3{X: g.Positions[i], Y: g.Positions[i+1], Z: g.Positions[i+2]})
	}
	g.bounds = box
	g.boundsValid = true
	return box
}

// ComputeNormals fills Normals with area-weighted vertex normals.
func (g *Geometry) ComputeNormals() {
	g.Normals = make([]float32, len(g.Positions))
	vertex := func(i uint32) math.Vec3 {
		return math.Vec3{X: g.Positions[i*3], Y: g.Positions[i*3+1], Z: g.Positions[i*3+2]}
	}
	for t := 0; t+2 < len(g.Indices); t += 3 {
		a, b, c := g.Indices[t], g.Indices[t+1], g.Indices[t+2]
		if int(max(a, b, c)) >= g.VertexCount() {
			continue
		}
		n := vertex(b).Sub(vertex(a)).Cross(vertex(c).Sub(vertex(a)))
		for _, idx := range [3]uint32{a, b, c} {
			g.Normals[idx*3] += n.X
			g.Normals[idx*3+1] += n.Y
			g.Normals[idx*3+2] += n.Z
		}
	}
	for i := 0; i+2 < len(g.Normals); i += 3 {
		n := math.Vec3{X: g.Normals[i], Y: g.Normals[i+1], Z: g.Normals[i+2]}.Normalize()
		g.Normals[i], g.Normals[i+1], g.Normals[i+2] = n.X, n.Y, n.Z
	}
}

// Material describes how a mesh surface is shaded.
type Material struct {
	Name        string
	Color       [4]float32
	Emissive    [3]float32
	DoubleSided bool

	Map         *Texture
	NormalMap   *Texture
	EmissiveMap *Texture
}

// NewMaterial returns a white material.
func NewMaterial(name string) *Material {
	return &Material{Name: name, Color: [4]float32{1, 1, 1, 1}}
}

// Textures returns every texture attached to the material, in slot order.
func (m *Material) Textures() []*Texture {
	var out []*Texture
	for _, t := range [...]*Texture{m.Map, m.NormalMap, m.EmissiveMap} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Texture is a decoded image bound to a material slot.
type Texture struct {
	Name  string
	Image *image.RGBA
}
