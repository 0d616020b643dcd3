package importer

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/engine/texture"
	"github.com/Faultbox/meshview/pkg/math"
)

// DecodeGLTF decodes a glTF 2.0 file, binary or JSON. External buffers and
// images are resolved through opts.Assets.
func DecodeGLTF(ctx context.Context, data []byte, opts DecodeOptions) (*scene.Node, error) {
	var dec *gltf.Decoder
	if opts.Assets != nil {
		dec = gltf.NewDecoderFS(bytes.NewReader(data), opts.Assets)
	} else {
		dec = gltf.NewDecoder(bytes.NewReader(data))
	}
	doc := new(gltf.Document)
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("gltf: %w", err)
	}
	return convertGLTF(ctx, doc, opts)
}

type gltfConverter struct {
	ctx  context.Context
	doc  *gltf.Document
	opts DecodeOptions

	joints    map[int]bool
	materials map[int]*scene.Material
	textures  map[int]*scene.Texture
	visited   map[int]bool
}

func convertGLTF(ctx context.Context, doc *gltf.Document, opts DecodeOptions) (*scene.Node, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	c := &gltfConverter{
		ctx:       ctx,
		doc:       doc,
		opts:      opts,
		joints:    make(map[int]bool),
		materials: make(map[int]*scene.Material),
		textures:  make(map[int]*scene.Texture),
		visited:   make(map[int]bool),
	}
	for _, skin := range doc.Skins {
		for _, j := range skin.Joints {
			c.joints[j] = true
		}
	}

	root := scene.NewGroup("")
	for _, idx := range c.rootNodes() {
		if err := c.addNode(root, idx); err != nil {
			return nil, err
		}
	}
	if len(root.Children) == 0 {
		return nil, fmt.Errorf("gltf: no nodes in scene")
	}
	return root, nil
}

// rootNodes returns the default scene's nodes, or every unparented node when
// the file declares no scene.
func (c *gltfConverter) rootNodes() []int {
	if len(c.doc.Scenes) > 0 {
		s := 0
		if c.doc.Scene != nil && *c.doc.Scene < len(c.doc.Scenes) {
			s = *c.doc.Scene
		}
		return c.doc.Scenes[s].Nodes
	}

	child := make(map[int]bool)
	for _, n := range c.doc.Nodes {
		for _, ch := range n.Children {
			child[ch] = true
		}
	}
	var roots []int
	for i := range c.doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (c *gltfConverter) addNode(parent *scene.Node, idx int) error {
	if idx < 0 || idx >= len(c.doc.Nodes) || c.visited[idx] {
		return nil
	}
	c.visited[idx] = true
	if err := c.ctx.Err(); err != nil {
		return err
	}

	src := c.doc.Nodes[idx]
	n, err := c.node(src, idx)
	if err != nil {
		return err
	}
	parent.Add(n)

	for _, ch := range src.Children {
		if err := c.addNode(n, ch); err != nil {
			return err
		}
	}
	return nil
}

func (c *gltfConverter) node(src *gltf.Node, idx int) (*scene.Node, error) {
	var meshes []*scene.Node
	if src.Mesh != nil && *src.Mesh < len(c.doc.Meshes) {
		mesh := c.doc.Meshes[*src.Mesh]
		for i, prim := range mesh.Primitives {
			m, err := c.primitive(prim)
			if err != nil {
				return nil, fmt.Errorf("gltf: mesh %q primitive %d: %w", mesh.Name, i, err)
			}
			if m != nil {
				meshes = append(meshes, m)
			}
		}
	}

	var n *scene.Node
	switch {
	case len(meshes) == 1:
		n = meshes[0]
		n.Name = src.Name
	case c.joints[idx]:
		n = scene.NewJoint(src.Name)
	default:
		n = scene.NewGroup(src.Name)
	}
	if len(meshes) > 1 {
		for _, m := range meshes {
			n.Add(m)
		}
	}

	n.Transform = math.FromFloat64(src.MatrixOrDefault())
	if n.Transform.IsIdentity() {
		t, s := src.TranslationOrDefault(), src.ScaleOrDefault()
		n.Transform = math.Compose(
			vec3(t),
			math.QuatFromArray(src.RotationOrDefault()).Normalize().ToMat4(),
			vec3(s),
		)
	}
	return n, nil
}

// primitive converts a triangle primitive. Other topologies are skipped.
func (c *gltfConverter) primitive(prim *gltf.Primitive) (*scene.Node, error) {
	if prim.Mode != gltf.PrimitiveTriangles {
		c.opts.Log.Debug("skipping non-triangle primitive", zap.Int("mode", int(prim.Mode)))
		return nil, nil
	}
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok || posIdx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(c.doc, c.doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	geom := &scene.Geometry{Positions: flatten3(positions)}

	if idx, ok := prim.Attributes[gltf.NORMAL]; ok && idx < len(c.doc.Accessors) {
		normals, err := modeler.ReadNormal(c.doc, c.doc.Accessors[idx], nil)
		if err == nil && len(normals) == len(positions) {
			geom.Normals = flatten3(normals)
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok && idx < len(c.doc.Accessors) {
		uvs, err := modeler.ReadTextureCoord(c.doc, c.doc.Accessors[idx], nil)
		if err == nil && len(uvs) == len(positions) {
			geom.UVs = make([]float32, 0, len(uvs)*2)
			for _, uv := range uvs {
				geom.UVs = append(geom.UVs, uv[0], uv[1])
			}
		}
	}

	if prim.Indices != nil && *prim.Indices < len(c.doc.Accessors) {
		indices, err := modeler.ReadIndices(c.doc, c.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(positions) {
				return nil, fmt.Errorf("index %d out of range for %d vertices", i, len(positions))
			}
		}
		geom.Indices = indices
	} else {
		geom.Indices = make([]uint32, len(positions))
		for i := range geom.Indices {
			geom.Indices[i] = uint32(i)
		}
	}
	if geom.Normals == nil {
		geom.ComputeNormals()
	}

	mat := scene.NewMaterial("")
	if prim.Material != nil {
		mat = c.material(*prim.Material)
	}
	return scene.NewMesh("", geom, mat), nil
}

func flatten3(in [][3]float32) []float32 {
	out := make([]float32, 0, len(in)*3)
	for _, v := range in {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func (c *gltfConverter) material(idx int) *scene.Material {
	if m, ok := c.materials[idx]; ok {
		return m
	}
	if idx < 0 || idx >= len(c.doc.Materials) {
		return scene.NewMaterial("")
	}
	src := c.doc.Materials[idx]
	m := scene.NewMaterial(src.Name)
	m.DoubleSided = src.DoubleSided
	m.Emissive = [3]float32{
		float32(src.EmissiveFactor[0]),
		float32(src.EmissiveFactor[1]),
		float32(src.EmissiveFactor[2]),
	}

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			m.Color = [4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
		}
		if pbr.BaseColorTexture != nil {
			m.Map = c.texture(pbr.BaseColorTexture.Index)
		}
	}
	if src.NormalTexture != nil && src.NormalTexture.Index != nil {
		m.NormalMap = c.texture(*src.NormalTexture.Index)
	}
	if src.EmissiveTexture != nil {
		m.EmissiveMap = c.texture(src.EmissiveTexture.Index)
	}

	c.materials[idx] = m
	return m
}

func (c *gltfConverter) texture(idx int) *scene.Texture {
	if t, ok := c.textures[idx]; ok {
		return t
	}
	c.textures[idx] = nil
	if idx < 0 || idx >= len(c.doc.Textures) || c.doc.Textures[idx].Source == nil {
		return nil
	}
	imgIdx := *c.doc.Textures[idx].Source
	if imgIdx >= len(c.doc.Images) {
		return nil
	}
	img := c.doc.Images[imgIdx]

	data, err := c.imageData(img)
	if err != nil {
		c.opts.Log.Warn("texture not found", zap.String("image", img.Name), zap.String("uri", img.URI), zap.Error(err))
		return nil
	}
	name := img.Name
	if name == "" {
		name = img.URI
	}
	rgba, err := texture.Decode(name, data)
	if err != nil {
		c.opts.Log.Warn("texture decode failed", zap.String("image", name), zap.Error(err))
		return nil
	}

	t := &scene.Texture{Name: name, Image: rgba}
	c.textures[idx] = t
	return t
}

func (c *gltfConverter) imageData(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if *img.BufferView >= len(c.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		bv := c.doc.BufferViews[*img.BufferView]
		if bv.Buffer >= len(c.doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
		}
		buf := c.doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if end > len(buf) {
			return nil, fmt.Errorf("buffer view %d exceeds buffer", *img.BufferView)
		}
		return buf[bv.ByteOffset:end], nil
	case img.IsEmbeddedResource():
		return img.MarshalData()
	default:
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			uri = img.URI
		}
		data, _, err := readAsset(c.opts.Assets, uri)
		return data, err
	}
}
