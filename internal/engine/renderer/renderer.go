// Package renderer draws a scene graph with OpenGL 4.1 core.
//
// The renderer draws into an offscreen framebuffer sized to the viewport
// region and blits the result into that region of the window. GPU copies
// of geometry and textures are created the first time they are drawn and
// live until released.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/debug"
	"github.com/Faultbox/meshview/internal/engine/framebuffer"
	"github.com/Faultbox/meshview/internal/engine/renderer/shaders"
	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/engine/shader"
	"github.com/Faultbox/meshview/internal/logger"
	"github.com/Faultbox/meshview/pkg/math"
)

// maxDirLights matches MAX_DIR_LIGHTS in mesh.frag.
const maxDirLights = 4

// boundsPadding pads the bounds overlay so it does not z-fight the model.
const boundsPadding = 0.01

// Config holds renderer configuration.
type Config struct {
	// PixelRatioCap limits the offscreen resolution on dense displays.
	PixelRatioCap float32

	// Anisotropy is the max anisotropic filtering level for textures.
	Anisotropy float32

	Log *zap.Logger
}

// DefaultConfig returns the default renderer settings.
func DefaultConfig() Config {
	return Config{PixelRatioCap: 2, Anisotropy: 8}
}

// FrameStats describes the last rendered frame and resident GPU resources.
type FrameStats struct {
	DrawCalls  int
	Triangles  int
	Geometries int
	Textures   int
	Materials  int
}

// Renderer handles all OpenGL rendering for one viewport.
type Renderer struct {
	cfg Config
	log *zap.Logger

	meshProgram *shader.Program
	lineProgram *shader.Program
	target      *framebuffer.Framebuffer

	// Logical region size and device pixel ratio.
	width, height int
	pixelRatio    float32

	// Region origin in drawable pixels, bottom-left.
	originX, originY int

	lineVAO, lineVBO uint32
	lineCap          int
	lines            []debug.LineVertex

	geometries map[*scene.Geometry]*gpuGeometry
	textures   map[*scene.Texture]uint32
	materials  map[*scene.Material]struct{}
	white      uint32

	draws []drawItem
	stats FrameStats
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	if cfg.PixelRatioCap <= 0 {
		cfg.PixelRatioCap = DefaultConfig().PixelRatioCap
	}
	if cfg.Log == nil {
		cfg.Log = logger.Log.Named("renderer")
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	cfg.Log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	r := &Renderer{
		cfg:        cfg,
		log:        cfg.Log,
		width:      1,
		height:     1,
		pixelRatio: 1,
		geometries: make(map[*scene.Geometry]*gpuGeometry),
		textures:   make(map[*scene.Texture]uint32),
		materials:  make(map[*scene.Material]struct{}),
	}

	var err error
	if r.meshProgram, err = shader.New("mesh", shaders.MeshVertexShader, shaders.MeshFragmentShader); err != nil {
		r.Close()
		return nil, err
	}
	if r.lineProgram, err = shader.New("line", shaders.LineVertexShader, shaders.LineFragmentShader); err != nil {
		r.Close()
		return nil, err
	}
	if r.target, err = framebuffer.New(1, 1); err != nil {
		r.Close()
		return nil, err
	}

	r.white = r.createWhiteTexture()
	r.createLineBuffers()

	return r, nil
}

// SetSize sets the logical size of the viewport region.
func (r *Renderer) SetSize(width, height int) {
	r.width, r.height = max(width, 1), max(height, 1)
	r.log.Debug("renderer resized", zap.Int("width", r.width), zap.Int("height", r.height))
}

// SetPixelRatio sets the ratio of drawable pixels to logical pixels.
func (r *Renderer) SetPixelRatio(ratio float32) {
	if ratio <= 0 {
		ratio = 1
	}
	r.pixelRatio = ratio
}

// SetOrigin places the region in the window, in drawable pixels measured
// from the bottom-left corner.
func (r *Renderer) SetOrigin(x, y int) {
	r.originX, r.originY = x, y
}

// TargetSize returns the offscreen resolution for the current size.
func (r *Renderer) TargetSize() (width, height int32) {
	return targetSize(r.width, r.height, r.pixelRatio, r.cfg.PixelRatioCap)
}

func targetSize(width, height int, ratio, limit float32) (int32, int32) {
	scale := min(ratio, limit)
	if scale <= 0 {
		scale = 1
	}
	w := int32(float32(width)*scale + 0.5)
	h := int32(float32(height)*scale + 0.5)
	return max(w, 1), max(h, 1)
}

// Render draws s from cam into the viewport region.
func (r *Renderer) Render(s *scene.Scene, cam *camera.Perspective) {
	if s == nil || cam == nil {
		return
	}

	r.stats.DrawCalls = 0
	r.stats.Triangles = 0

	w, h := r.TargetSize()
	r.target.Resize(w, h)
	r.target.Bind()
	r.target.Clear(s.Background[0], s.Background[1], s.Background[2], 1)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	viewProj := cam.ViewProjection()
	r.drawMeshes(s, viewProj)
	r.drawLines(s, viewProj)

	// Blit into the window region at full drawable resolution.
	r.target.BlitTo(int32(r.originX), int32(r.originY),
		int32(float32(r.width)*r.pixelRatio+0.5), int32(float32(r.height)*r.pixelRatio+0.5))
}

func (r *Renderer) drawMeshes(s *scene.Scene, viewProj math.Mat4) {
	r.draws = collectDraws(s.Root, r.draws[:0])
	if len(r.draws) == 0 {
		return
	}

	p := r.meshProgram
	p.Use()
	p.SetMat4("uViewProj", viewProj.Ptr())
	r.applyLights(s.Lights)
	p.SetInt("uMap", 0)
	p.SetInt("uEmissiveMap", 1)

	for _, d := range r.draws {
		mesh := d.node.Mesh
		geom := r.geometry(mesh.Geometry)
		if geom == nil {
			continue
		}

		world := d.world
		p.SetMat4("uModel", world.Ptr())
		// Transposed inverse for normals.
		normal := world.Inverse().Mat3x3()
		gl.UniformMatrix3fv(p.Uniform("uNormalMatrix"), 1, true, &normal[0])

		gl.BindVertexArray(geom.vao)
		for _, part := range drawParts(mesh) {
			r.bindMaterial(part.material)
			r.drawRange(geom, part.start, part.count)
		}
	}

	gl.BindVertexArray(0)
	gl.Enable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)
	gl.DepthMask(true)
}

func (r *Renderer) applyLights(lights []scene.Light) {
	p := r.meshProgram
	var sky, ground [3]float32
	var dirs, colors []float32
	for _, l := range lights {
		switch l.Kind {
		case scene.LightHemisphere:
			for i := range 3 {
				sky[i] += l.Color[i] * l.Intensity
				ground[i] += l.GroundColor[i] * l.Intensity
			}
		case scene.LightDirectional:
			if len(dirs)/3 == maxDirLights {
				continue
			}
			d := l.Position.Normalize()
			dirs = append(dirs, d.X, d.Y, d.Z)
			colors = append(colors, l.Color[0]*l.Intensity, l.Color[1]*l.Intensity, l.Color[2]*l.Intensity)
		}
	}

	p.SetVec3("uSkyColor", sky)
	p.SetVec3("uGroundColor", ground)
	count := int32(len(dirs) / 3)
	p.SetInt("uDirLightCount", count)
	if count > 0 {
		gl.Uniform3fv(p.Uniform("uDirLightDirs[0]"), count, &dirs[0])
		gl.Uniform3fv(p.Uniform("uDirLightColors[0]"), count, &colors[0])
	}
}

func (r *Renderer) bindMaterial(m *scene.Material) {
	p := r.meshProgram
	if m == nil {
		m = defaultMaterial
	} else {
		r.materials[m] = struct{}{}
	}

	if m.DoubleSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
	if m.Color[3] < 1 {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		gl.DepthMask(false)
	} else {
		gl.Disable(gl.BLEND)
		gl.DepthMask(true)
	}

	p.SetVec4("uColor", m.Color)
	p.SetVec3("uEmissive", m.Emissive)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.texture(m.Map))
	p.SetInt("uHasMap", boolInt(m.Map != nil))

	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, r.texture(m.EmissiveMap))
	p.SetInt("uHasEmissiveMap", boolInt(m.EmissiveMap != nil))
	gl.ActiveTexture(gl.TEXTURE0)
}

func (r *Renderer) drawRange(geom *gpuGeometry, start, count int) {
	if count <= 0 {
		return
	}
	if geom.indexed {
		gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, uintptr(start*4))
	} else {
		gl.DrawArrays(gl.TRIANGLES, int32(start), int32(count))
	}
	r.stats.DrawCalls++
	r.stats.Triangles += count / 3
}

func (r *Renderer) drawLines(s *scene.Scene, viewProj math.Mat4) {
	r.lines = r.lines[:0]
	if s.Grid.Visible {
		r.lines = append(r.lines, debug.GridLines(s.Grid.Size, s.Grid.Divisions, s.Grid.CenterColor, s.Grid.LineColor)...)
	}
	if s.ShowBounds {
		if model := s.Model(); model != nil {
			r.lines = append(r.lines, debug.BBoxLines(model.Bounds(), boundsPadding, debug.BBoxColor)...)
		}
	}
	if len(r.lines) == 0 {
		return
	}

	stride := int(unsafe.Sizeof(debug.LineVertex{}))
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	if len(r.lines) > r.lineCap {
		r.lineCap = len(r.lines)
		gl.BufferData(gl.ARRAY_BUFFER, r.lineCap*stride, unsafe.Pointer(&r.lines[0]), gl.DYNAMIC_DRAW)
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(r.lines)*stride, unsafe.Pointer(&r.lines[0]))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.lineProgram.Use()
	r.lineProgram.SetMat4("uViewProj", viewProj.Ptr())
	gl.BindVertexArray(r.lineVAO)
	gl.DrawArrays(gl.LINES, 0, int32(len(r.lines)))
	gl.BindVertexArray(0)
	r.stats.DrawCalls++
}

// Stats returns counters for the last frame and the resident resources.
func (r *Renderer) Stats() FrameStats {
	st := r.stats
	st.Geometries = len(r.geometries)
	st.Textures = len(r.textures)
	st.Materials = len(r.materials)
	return st
}

// ReadPixels returns the last frame as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() (pixels []byte, width, height int) {
	w, h := r.target.Size()
	return r.target.ReadPixels(), int(w), int(h)
}

// Close releases every GPU resource the renderer owns.
func (r *Renderer) Close() error {
	r.log.Info("closing renderer", zap.Int("geometries", len(r.geometries)), zap.Int("textures", len(r.textures)))
	for g := range r.geometries {
		r.ReleaseGeometry(g)
	}
	for t := range r.textures {
		r.ReleaseTexture(t)
	}
	clear(r.materials)

	if r.white != 0 {
		gl.DeleteTextures(1, &r.white)
		r.white = 0
	}
	if r.lineVAO != 0 {
		gl.DeleteVertexArrays(1, &r.lineVAO)
		r.lineVAO = 0
	}
	if r.lineVBO != 0 {
		gl.DeleteBuffers(1, &r.lineVBO)
		r.lineVBO = 0
	}
	if r.target != nil {
		r.target.Destroy()
		r.target = nil
	}
	if r.meshProgram != nil {
		r.meshProgram.Delete()
	}
	if r.lineProgram != nil {
		r.lineProgram.Delete()
	}
	return nil
}

func (r *Renderer) createLineBuffers() {
	stride := int32(unsafe.Sizeof(debug.LineVertex{}))

	gl.GenVertexArrays(1, &r.lineVAO)
	gl.BindVertexArray(r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)

	// Position
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	// Color
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
