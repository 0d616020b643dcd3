package renderer

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/scene"
)

type gpuGeometry struct {
	vao     uint32
	vbos    [3]uint32
	ebo     uint32
	indexed bool
}

// geometry returns the GPU copy of g, uploading it on first use.
func (r *Renderer) geometry(g *scene.Geometry) *gpuGeometry {
	if gg, ok := r.geometries[g]; ok {
		return gg
	}
	n := g.VertexCount()
	if n == 0 {
		return nil
	}

	gg := &gpuGeometry{indexed: len(g.Indices) > 0}
	gl.GenVertexArrays(1, &gg.vao)
	gl.BindVertexArray(gg.vao)
	gl.GenBuffers(3, &gg.vbos[0])

	// Position
	uploadAttribute(gg.vbos[0], 0, 3, g.Positions[:n*3])
	// Normal
	normals := g.Normals
	if len(normals) != n*3 {
		normals = filled(n, [3]float32{0, 1, 0})
	}
	uploadAttribute(gg.vbos[1], 1, 3, normals)
	// TexCoord
	uvs := g.UVs
	if len(uvs) != n*2 {
		uvs = make([]float32, n*2)
	}
	uploadAttribute(gg.vbos[2], 2, 2, uvs)

	if gg.indexed {
		gl.GenBuffers(1, &gg.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gg.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, unsafe.Pointer(&g.Indices[0]), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.geometries[g] = gg
	r.log.Debug("geometry uploaded",
		zap.String("name", g.Name),
		zap.Int("vertices", n),
		zap.Int("triangles", g.TriangleCount()),
	)
	return gg
}

func uploadAttribute(vbo, location uint32, size int32, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, unsafe.Pointer(&data[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(location, size, gl.FLOAT, false, size*4, 0)
	gl.EnableVertexAttribArray(location)
}

func filled(n int, v [3]float32) []float32 {
	out := make([]float32, n*3)
	for i := 0; i < len(out); i += 3 {
		copy(out[i:i+3], v[:])
	}
	return out
}

// texture returns the GL texture for t, uploading it on first use.
// A nil or empty texture binds a 1x1 white texture.
func (r *Renderer) texture(t *scene.Texture) uint32 {
	if t == nil || t.Image == nil || len(t.Image.Pix) == 0 {
		return r.white
	}
	if id, ok := r.textures[t]; ok {
		return id
	}

	img := t.Image
	b := img.Bounds()
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	if r.cfg.Anisotropy > 1 {
		gl.TexParameterf(gl.TEXTURE_2D, gl.TEXTURE_MAX_ANISOTROPY, r.cfg.Anisotropy)
	}

	r.textures[t] = id
	r.log.Debug("texture uploaded", zap.String("name", t.Name), zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))
	return id
}

func (r *Renderer) createWhiteTexture() uint32 {
	pix := []byte{255, 255, 255, 255}
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, 1, 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pix[0]))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

// ReleaseGeometry deletes the GPU copy of g. Releasing geometry that was
// never drawn is a no-op.
func (r *Renderer) ReleaseGeometry(g *scene.Geometry) {
	gg, ok := r.geometries[g]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &gg.vao)
	gl.DeleteBuffers(3, &gg.vbos[0])
	if gg.ebo != 0 {
		gl.DeleteBuffers(1, &gg.ebo)
	}
	delete(r.geometries, g)
}

// ReleaseMaterial forgets m. Materials hold no GPU objects of their own;
// their textures are released separately.
func (r *Renderer) ReleaseMaterial(m *scene.Material) {
	delete(r.materials, m)
}

// ReleaseTexture deletes the GL texture for t, if any.
func (r *Renderer) ReleaseTexture(t *scene.Texture) {
	id, ok := r.textures[t]
	if !ok {
		return
	}
	gl.DeleteTextures(1, &id)
	delete(r.textures, t)
}
