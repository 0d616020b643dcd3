package importer

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/h2non/filetype/types"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/pkg/formats"
)

func fbxHeader(version uint32) []byte {
	b := []byte("Kaydara FBX Binary  \x00\x1a\x00")
	return append(b, byte(version), byte(version>>8), 0, 0)
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want types.Type
	}{
		{"binary fbx", fbxHeader(7400), TypeFBX},
		{"ascii fbx", []byte("; FBX 7.4.0 project file\n"), TypeFBX},
		{"glb", append([]byte("glTF"), 2, 0, 0, 0, 0, 0, 0, 0), TypeGLB},
		{"gltf json", []byte(`{ "asset": {"version": "2.0"} }`), TypeGLTF},
		{"other json", []byte(`{"name": "x"}`), types.Unknown},
		{"text", []byte("hello"), types.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

func TestRegistryDetect(t *testing.T) {
	r := NewDefault()

	f, err := r.Detect("model.bin", fbxHeader(7400))
	require.NoError(t, err)
	assert.Equal(t, TypeFBX, f.Type, "content wins over extension")

	f, err = r.Detect("MODEL.GLTF", []byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, TypeGLTF, f.Type, "extension fallback is case-insensitive")

	_, err = r.Detect("model.obj", []byte("v 0 0 0"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, `unsupported format ".obj"`, err.Error())

	assert.True(t, r.Supports("a.fbx"))
	assert.False(t, r.Supports("a.obj"))
	assert.ElementsMatch(t, []string{".fbx", ".glb", ".gltf"}, r.Extensions())
}

func TestRegistryImportErrors(t *testing.T) {
	r := NewDefault(WithMaxBytes(64))

	_, err := r.Import(context.Background(), "empty.fbx", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = r.Import(context.Background(), "big.fbx", bytes.NewReader(make([]byte, 65)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = r.Import(context.Background(), "bad.fbx", strings.NewReader(strings.Repeat("garbage ", 5)))
	require.Error(t, err)
	assert.ErrorIs(t, err, formats.ErrInvalidFBXMagic)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Import(ctx, "cube.fbx", bytes.NewReader(fbxHeader(7400)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistryCustomFormat(t *testing.T) {
	custom := Format{
		Type:       types.NewType("stub", "model/x-stub"),
		Extensions: []string{".stub"},
		Decode: func(context.Context, []byte, DecodeOptions) (*scene.Node, error) {
			return scene.NewGroup(""), nil
		},
	}
	r := New()
	r.Register(custom)

	node, err := r.Import(context.Background(), "dir/thing.stub", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "thing", node.Name, "root is named after the file")
}

func TestRegistryImportSearchesModelDir(t *testing.T) {
	first, second, lib := t.TempDir(), t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(first, "skin.png"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "common.png"), []byte("lib"), 0o644))
	for _, dir := range []string{first, second} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "model.stub"), []byte("x"), 0o644))
	}

	found := map[string]bool{}
	r := New(WithSearchPaths(lib))
	r.Register(Format{
		Type:       types.NewType("stub", "model/x-stub"),
		Extensions: []string{".stub"},
		Decode: func(_ context.Context, _ []byte, opts DecodeOptions) (*scene.Node, error) {
			for _, name := range []string{"skin.png", "common.png"} {
				_, err := fs.ReadFile(opts.Assets, name)
				found[name] = err == nil
			}
			return scene.NewGroup(""), nil
		},
	})

	importFile := func(path string) {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		_, err = r.Import(context.Background(), filepath.Base(path), f)
		require.NoError(t, err)
	}

	importFile(filepath.Join(first, "model.stub"))
	assert.True(t, found["skin.png"], "model directory is searched")
	assert.True(t, found["common.png"])

	importFile(filepath.Join(second, "model.stub"))
	assert.False(t, found["skin.png"], "an earlier model's directory is not searched")
	assert.True(t, found["common.png"])
	assert.Equal(t, []string{lib}, r.SearchPaths())
}

// quadScene is one quad and one triangle using two material slots, parented
// under a bone.
func quadScene() *formats.FBXScene {
	s := &formats.FBXScene{
		Models:     map[int64]*formats.FBXModel{},
		Geometries: map[int64]*formats.FBXGeometry{},
		Materials:  map[int64]*formats.FBXMaterial{},
		Textures:   map[int64]*formats.FBXTexture{},
		Videos:     map[int64]*formats.FBXVideo{},
	}
	s.Models[1] = &formats.FBXModel{ID: 1, Name: "Hips", Class: "LimbNode", Scaling: [3]float64{1, 1, 1}}
	s.Models[2] = &formats.FBXModel{
		ID: 2, Name: "Body", Class: "Mesh", Parent: 1,
		Translation: [3]float64{0, 1, 0},
		Scaling:     [3]float64{1, 1, 1},
		Geometry:    10,
		Materials:   []int64{20, 21},
	}
	s.ModelOrder = []int64{1, 2}
	s.Geometries[10] = &formats.FBXGeometry{
		ID:                 10,
		Vertices:           []float64{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0, 2, 0, 0},
		PolygonVertexIndex: []int32{0, 1, 2, ^3, 1, 4, ^2},
		UVs: &formats.FBXLayer{
			Mapping:   "ByVertice",
			Reference: "Direct",
			Values:    []float64{0, 0, 1, 0, 1, 1, 0, 1, 1, 0},
		},
		MaterialMapping: "ByPolygon",
		MaterialIndex:   []int32{0, 1},
	}
	s.Materials[20] = &formats.FBXMaterial{ID: 20, Name: "skin", DiffuseColor: [3]float64{1, 0, 0}, Opacity: 1, Textures: map[string]int64{"DiffuseColor": 30}}
	s.Materials[21] = &formats.FBXMaterial{ID: 21, Name: "cloth", Opacity: 0.5, Textures: map[string]int64{}}
	s.Textures[30] = &formats.FBXTexture{ID: 30, Name: "albedo", RelativeFilename: "textures/albedo.png", Video: 40}
	s.Videos[40] = &formats.FBXVideo{ID: 40, Content: pngBytes(2, 2)}
	return s
}

func pngBytes(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestConvertFBX(t *testing.T) {
	root, err := convertFBX(context.Background(), quadScene(), DecodeOptions{})
	require.NoError(t, err)

	require.Len(t, root.Children, 1)
	hips := root.Children[0]
	assert.Equal(t, scene.KindJoint, hips.Kind)
	require.Len(t, hips.Children, 1)

	body := hips.Children[0]
	require.Equal(t, scene.KindMesh, body.Kind)
	assert.Equal(t, "Body", body.Name)

	geom := body.Mesh.Geometry
	assert.Equal(t, 7, geom.VertexCount(), "one vertex per polygon corner")
	assert.Equal(t, 3, geom.TriangleCount(), "quad fans into two triangles")
	assert.Equal(t, []scene.Group{
		{Start: 0, Count: 6, MaterialIndex: 0},
		{Start: 6, Count: 3, MaterialIndex: 1},
	}, geom.Groups)
	assert.Len(t, geom.Normals, len(geom.Positions), "normals computed when absent")
	assert.Equal(t, []float32{0, 1}, geom.UVs[:2], "v flipped to image-down convention")

	require.Len(t, body.Mesh.Materials, 2)
	skin := body.Mesh.Materials[0]
	assert.Equal(t, [4]float32{1, 0, 0, 1}, skin.Color)
	require.NotNil(t, skin.Map, "embedded texture decoded")
	assert.Equal(t, 2, skin.Map.Image.Rect.Dx())
	assert.Equal(t, float32(0.5), body.Mesh.Materials[1].Color[3])

	box := root.Bounds()
	assert.InDelta(t, 1.0, box.Min.Y, 1e-6, "model translation applied")
	assert.InDelta(t, 2.0, box.Max.X, 1e-6)
}

func TestConvertFBX_SharedGeometry(t *testing.T) {
	s := quadScene()
	s.Models[3] = &formats.FBXModel{ID: 3, Name: "Copy", Class: "Mesh", Scaling: [3]float64{1, 1, 1}, Geometry: 10, Materials: []int64{20, 21}}
	s.ModelOrder = append(s.ModelOrder, 3)

	root, err := convertFBX(context.Background(), s, DecodeOptions{})
	require.NoError(t, err)

	var meshes []*scene.Node
	root.Traverse(func(n *scene.Node) {
		if n.Kind == scene.KindMesh {
			meshes = append(meshes, n)
		}
	})
	require.Len(t, meshes, 2)
	assert.Same(t, meshes[0].Mesh.Geometry, meshes[1].Mesh.Geometry)
	assert.Same(t, meshes[0].Mesh.Materials[0], meshes[1].Mesh.Materials[0])
}

func TestConvertFBX_Errors(t *testing.T) {
	empty := &formats.FBXScene{Models: map[int64]*formats.FBXModel{}}
	_, err := convertFBX(context.Background(), empty, DecodeOptions{})
	assert.EqualError(t, err, "fbx: no models in file")

	bad := quadScene()
	bad.Geometries[10].PolygonVertexIndex = []int32{0, 1, ^9}
	_, err = convertFBX(context.Background(), bad, DecodeOptions{})
	assert.ErrorContains(t, err, "references vertex 9 of 5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = convertFBX(ctx, quadScene(), DecodeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConvertFBX_ExternalTexture(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "textures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "textures", "albedo.png"), pngBytes(4, 4), 0o644))

	s := quadScene()
	s.Textures[30].Video = 0

	root, err := convertFBX(context.Background(), s, DecodeOptions{Assets: NewSearchFS(dir)})
	require.NoError(t, err)
	body := root.Children[0].Children[0]
	require.NotNil(t, body.Mesh.Materials[0].Map)
	assert.Equal(t, 4, body.Mesh.Materials[0].Map.Image.Rect.Dx())

	root, err = convertFBX(context.Background(), s, DecodeOptions{})
	require.NoError(t, err, "a missing texture is not fatal")
	assert.Nil(t, root.Children[0].Children[0].Mesh.Materials[0].Map)
}

func TestSearchFS(t *testing.T) {
	older, newer := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(older, "a.png"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(newer, "a.png"), []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(older, "b.png"), []byte("only-old"), 0o644))

	s := NewSearchFS(older)
	s.Add(newer)
	s.Add("")

	data, _, err := readAsset(s, `sub\..\a.png`)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data), "most recent directory first")

	data, _, err = readAsset(s, "missing.png", "b.png")
	require.NoError(t, err)
	assert.Equal(t, "only-old", string(data))

	_, _, err = readAsset(s, "missing.png")
	assert.Error(t, err)
	assert.Equal(t, []string{newer, older}, s.Dirs())

	model := t.TempDir()
	scoped := s.With(model)
	assert.Equal(t, []string{model, newer, older}, scoped.Dirs())
	assert.Equal(t, []string{newer, older}, s.Dirs(), "With leaves the original alone")
}

// triangleGLB builds a binary glTF with one red triangle at x offset 3.
func triangleGLB(t *testing.T) []byte {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Materials = []*gltf.Material{{
		Name:        "paint",
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 1},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos},
			Material:   gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "Armature", Children: []int{1}},
		{Name: "Tri", Mesh: gltf.Index(0), Translation: [3]float64{3, 0, 0}},
	}
	doc.Scenes[0].Nodes = []int{0}

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	require.NoError(t, enc.Encode(doc))
	return buf.Bytes()
}

func TestImportGLB(t *testing.T) {
	r := NewDefault()
	root, err := r.Import(context.Background(), "tri.glb", bytes.NewReader(triangleGLB(t)))
	require.NoError(t, err)

	assert.Equal(t, "tri", root.Name)
	require.Len(t, root.Children, 1)
	arm := root.Children[0]
	assert.Equal(t, "Armature", arm.Name)
	require.Len(t, arm.Children, 1)

	tri := arm.Children[0]
	require.Equal(t, scene.KindMesh, tri.Kind)
	assert.Equal(t, "Tri", tri.Name)
	assert.Equal(t, 1, tri.Mesh.Geometry.TriangleCount())
	assert.True(t, tri.Mesh.Materials[0].DoubleSided)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, tri.Mesh.Materials[0].Color)

	box := root.Bounds()
	assert.InDelta(t, 3.0, box.Min.X, 1e-6)
	assert.InDelta(t, 4.0, box.Max.X, 1e-6)
}

func TestConvertGLTF_JointsAndPrimitives(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Meshes = []*gltf.Mesh{{
		Name: "two",
		Primitives: []*gltf.Primitive{
			{Attributes: map[string]int{gltf.POSITION: pos}},
			{Attributes: map[string]int{gltf.POSITION: pos}},
			{Attributes: map[string]int{gltf.POSITION: pos}, Mode: gltf.PrimitiveLines},
		},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "Body", Mesh: gltf.Index(0)},
		{Name: "Root", Children: []int{2}},
		{Name: "Spine"},
	}
	doc.Skins = []*gltf.Skin{{Joints: []int{1, 2}}}
	doc.Scenes[0].Nodes = []int{0, 1}

	root, err := convertGLTF(context.Background(), doc, DecodeOptions{})
	require.NoError(t, err)

	counts := root.Count()
	assert.Equal(t, 2, counts[scene.KindMesh], "line primitive skipped")
	assert.Equal(t, 2, counts[scene.KindJoint])

	body := root.Children[0]
	assert.Equal(t, scene.KindGroup, body.Kind, "multi-primitive mesh becomes a group")
	assert.Len(t, body.Children, 2)
	assert.Len(t, body.Children[0].Mesh.Geometry.Indices, 3, "unindexed primitive gets sequential indices")
}

func TestConvertGLTF_Empty(t *testing.T) {
	doc := gltf.NewDocument()
	_, err := convertGLTF(context.Background(), doc, DecodeOptions{})
	assert.EqualError(t, err, "gltf: no nodes in scene")
}
