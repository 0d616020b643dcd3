package importer

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/pkg/formats"
	"github.com/Faultbox/meshview/pkg/math"
)

// DecodeFBX decodes a binary FBX file.
func DecodeFBX(ctx context.Context, data []byte, opts DecodeOptions) (*scene.Node, error) {
	src, err := formats.DecodeFBX(data)
	if err != nil {
		return nil, fmt.Errorf("fbx: %w", err)
	}
	return convertFBX(ctx, src, opts)
}

type fbxConverter struct {
	ctx  context.Context
	src  *formats.FBXScene
	opts DecodeOptions

	geometries map[int64]*scene.Geometry
	materials  map[int64]*scene.Material
	textures   map[int64]*scene.Texture
	visited    map[int64]bool
}

func convertFBX(ctx context.Context, src *formats.FBXScene, opts DecodeOptions) (*scene.Node, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	c := &fbxConverter{
		ctx:        ctx,
		src:        src,
		opts:       opts,
		geometries: make(map[int64]*scene.Geometry),
		materials:  make(map[int64]*scene.Material),
		textures:   make(map[int64]*scene.Texture),
		visited:    make(map[int64]bool),
	}

	root := scene.NewGroup("")
	if err := c.addChildren(root, 0); err != nil {
		return nil, err
	}
	if len(root.Children) == 0 {
		return nil, fmt.Errorf("fbx: no models in file")
	}
	return root, nil
}

func (c *fbxConverter) addChildren(parent *scene.Node, id int64) error {
	for _, childID := range c.src.Children(id) {
		if c.visited[childID] {
			continue
		}
		c.visited[childID] = true

		n, err := c.node(c.src.Models[childID])
		if err != nil {
			return err
		}
		parent.Add(n)
		if err := c.addChildren(n, childID); err != nil {
			return err
		}
	}
	return nil
}

func (c *fbxConverter) node(m *formats.FBXModel) (*scene.Node, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, err
	}

	var n *scene.Node
	switch {
	case m.Geometry != 0 && c.src.Geometries[m.Geometry] != nil:
		geom, err := c.geometry(c.src.Geometries[m.Geometry], max(len(m.Materials), 1))
		if err != nil {
			return nil, fmt.Errorf("fbx: model %q: %w", m.Name, err)
		}
		mats := make([]*scene.Material, 0, len(m.Materials))
		for _, id := range m.Materials {
			mats = append(mats, c.material(id))
		}
		if len(mats) == 0 {
			mats = append(mats, scene.NewMaterial(""))
		}
		n = scene.NewMesh(m.Name, geom, mats...)
	case m.IsJoint():
		n = scene.NewJoint(m.Name)
	default:
		n = scene.NewGroup(m.Name)
	}

	rot := euler(m.PreRotation).Mul(euler(m.Rotation))
	n.Transform = math.Compose(vec3(m.Translation), rot, vec3(m.Scaling))
	return n, nil
}

// geometry triangulates polygons as fans and splits the index buffer into one
// group per material slot. Vertices are expanded per polygon corner so that
// per-corner normals and UVs survive.
func (c *fbxConverter) geometry(g *formats.FBXGeometry, slots int) (*scene.Geometry, error) {
	if geom, ok := c.geometries[g.ID]; ok {
		return geom, nil
	}

	controlPoints := len(g.Vertices) / 3
	geom := &scene.Geometry{Name: g.Name}
	perSlot := make([][]uint32, slots)

	for p, poly := range g.Polygons() {
		if p%4096 == 0 {
			if err := c.ctx.Err(); err != nil {
				return nil, err
			}
		}
		if poly.Count < 3 {
			continue
		}

		base := uint32(len(geom.Positions) / 3)
		for k := 0; k < poly.Count; k++ {
			slot := poly.Start + k
			v := g.VertexAt(slot)
			if v >= controlPoints {
				return nil, fmt.Errorf("polygon %d references vertex %d of %d", p, v, controlPoints)
			}
			geom.Positions = append(geom.Positions,
				float32(g.Vertices[v*3]), float32(g.Vertices[v*3+1]), float32(g.Vertices[v*3+2]))

			if g.Normals != nil {
				n := layerValue(g.Normals, 3, slot, v, p)
				geom.Normals = append(geom.Normals, n[0], n[1], n[2])
			}
			if g.UVs != nil {
				uv := layerValue(g.UVs, 2, slot, v, p)
				geom.UVs = append(geom.UVs, uv[0], 1-uv[1])
			}
		}

		mat := g.MaterialFor(p)
		if mat < 0 || mat >= slots {
			mat = 0
		}
		for k := 1; k+1 < poly.Count; k++ {
			perSlot[mat] = append(perSlot[mat], base, base+uint32(k), base+uint32(k+1))
		}
	}

	for slot, indices := range perSlot {
		if len(indices) == 0 {
			continue
		}
		if slots > 1 {
			geom.Groups = append(geom.Groups, scene.Group{
				Start:         len(geom.Indices),
				Count:         len(indices),
				MaterialIndex: slot,
			})
		}
		geom.Indices = append(geom.Indices, indices...)
	}
	if g.Normals == nil {
		geom.ComputeNormals()
	}

	c.geometries[g.ID] = geom
	return geom, nil
}

// layerValue reads an n-component value from l, or zeros when absent.
func layerValue(l *formats.FBXLayer, n, slot, vertex, polygon int) [3]float32 {
	var out [3]float32
	i := l.Lookup(slot, vertex, polygon)
	if i < 0 || (i+1)*n > len(l.Values) {
		return out
	}
	for k := 0; k < n; k++ {
		out[k] = float32(l.Values[i*n+k])
	}
	return out
}

func (c *fbxConverter) material(id int64) *scene.Material {
	if m, ok := c.materials[id]; ok {
		return m
	}
	src := c.src.Materials[id]
	if src == nil {
		m := scene.NewMaterial("")
		c.materials[id] = m
		return m
	}

	m := scene.NewMaterial(src.Name)
	m.Color = [4]float32{
		float32(src.DiffuseColor[0]),
		float32(src.DiffuseColor[1]),
		float32(src.DiffuseColor[2]),
		float32(src.Opacity),
	}
	m.Emissive = [3]float32{
		float32(src.EmissiveColor[0]),
		float32(src.EmissiveColor[1]),
		float32(src.EmissiveColor[2]),
	}
	m.Map = c.texture(src.Textures["DiffuseColor"])
	m.NormalMap = c.texture(src.Textures["NormalMap"])
	if m.NormalMap == nil {
		m.NormalMap = c.texture(src.Textures["Bump"])
	}
	m.EmissiveMap = c.texture(src.Textures["EmissiveColor"])

	c.materials[id] = m
	return m
}

// texture decodes an embedded or external image. Missing or undecodable
// images are logged and left out.
func (c *fbxConverter) texture(id int64) *scene.Texture {
	if id == 0 {
		return nil
	}
	if t, ok := c.textures[id]; ok {
		return t
	}
	src := c.src.Textures[id]
	if src == nil {
		return nil
	}

	name := src.RelativeFilename
	if name == "" {
		name = src.FileName
	}
	var data []byte
	if v := c.src.Videos[src.Video]; v != nil && len(v.Content) > 0 {
		data = v.Content
	} else {
		var err error
		data, _, err = readAsset(c.opts.Assets, src.RelativeFilename, baseName(src.FileName))
		if err != nil {
			c.opts.Log.Warn("texture not found", zap.String("texture", src.Name), zap.String("file", name))
			c.textures[id] = nil
			return nil
		}
	}

	img, err := texture.Decode(name, data)
	if err != nil {
		c.opts.Log.Warn("texture decode failed", zap.String("texture", src.Name), zap.Error(err))
		c.textures[id] = nil
		return nil
	}
	t := &scene.Texture{Name: src.Name, Image: img}
	c.textures[id] = t
	return t
}

func baseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(p, `\`, "/"))
}

func euler(deg [3]float64) math.Mat4 {
	return math.RotateEulerXYZ(float32(deg[0]), float32(deg[1]), float32(deg[2]))
}

func vec3(v [3]float64) math.Vec3 {
	return math.V3(float32(v[0]), float32(v[1]), float32(v[2]))
}
