// Package ui2d provides a simple immediate-mode 2D UI layer using OpenGL.
// The viewer draws its sidebar with it.
package ui2d

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/meshview/internal/engine/shader"
)

// Renderer batches solid and text quads and draws them in two calls.
type Renderer struct {
	screenWidth  int
	screenHeight int

	solidShader *shader.Program
	textShader  *shader.Program

	solidVAO uint32
	solidVBO uint32
	textVAO  uint32
	textVBO  uint32

	// Current draw lists
	solidVertices []float32
	textVertices  []float32

	font *Font
}

// New creates a new 2D UI renderer. Width and height are in logical pixels.
func New(width, height int) (*Renderer, error) {
	r := &Renderer{
		screenWidth:   width,
		screenHeight:  height,
		solidVertices: make([]float32, 0, 4096),
		textVertices:  make([]float32, 0, 4096),
	}

	var err error
	r.solidShader, err = shader.New("ui solid", solidVertexShader, solidFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("create solid shader: %w", err)
	}
	r.textShader, err = shader.New("ui text", textVertexShader, textFragmentShader)
	if err != nil {
		r.solidShader.Delete()
		return nil, fmt.Errorf("create text shader: %w", err)
	}

	// Vertex format: pos(3) + color(4)
	r.solidVAO, r.solidVBO = createBuffers([]int32{3, 4})
	// Vertex format: pos(3) + texcoord(2) + color(4)
	r.textVAO, r.textVBO = createBuffers([]int32{3, 2, 4})

	r.font = NewFont()

	return r, nil
}

// Resize updates the screen dimensions.
func (r *Renderer) Resize(width, height int) {
	r.screenWidth = width
	r.screenHeight = height
}

// Begin starts a new UI frame.
func (r *Renderer) Begin() {
	r.solidVertices = r.solidVertices[:0]
	r.textVertices = r.textVertices[:0]
}

// End finishes the UI frame and renders all queued elements.
func (r *Renderer) End() {
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)

	proj := orthoMatrix(0, float32(r.screenWidth), float32(r.screenHeight), 0, -1, 1)

	if len(r.solidVertices) > 0 {
		r.solidShader.Use()
		r.solidShader.SetMat4("uProjection", &proj[0])
		flush(r.solidVAO, r.solidVBO, r.solidVertices, 7)
	}

	// Text on top
	if len(r.textVertices) > 0 {
		r.textShader.Use()
		r.textShader.SetMat4("uProjection", &proj[0])
		r.textShader.SetInt("uTexture", 0)
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, r.font.TextureID())
		flush(r.textVAO, r.textVBO, r.textVertices, 9)
	}

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)
	gl.Disable(gl.BLEND)
}

func flush(vao, vbo uint32, vertices []float32, floatsPerVertex int) {
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STREAM_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(vertices)/floatsPerVertex))
}

// Close releases renderer resources.
func (r *Renderer) Close() {
	if r.font != nil {
		r.font.Close()
	}
	for _, vao := range []*uint32{&r.solidVAO, &r.textVAO} {
		if *vao != 0 {
			gl.DeleteVertexArrays(1, vao)
		}
	}
	for _, vbo := range []*uint32{&r.solidVBO, &r.textVBO} {
		if *vbo != 0 {
			gl.DeleteBuffers(1, vbo)
		}
	}
	r.solidShader.Delete()
	r.textShader.Delete()
}

// DrawRect draws a filled rectangle.
func (r *Renderer) DrawRect(x, y, width, height float32, color Color) {
	r.addQuad(x, y, width, height, color)
}

// DrawRectOutline draws a rectangle outline.
func (r *Renderer) DrawRectOutline(x, y, width, height, thickness float32, color Color) {
	// Top
	r.addQuad(x, y, width, thickness, color)
	// Bottom
	r.addQuad(x, y+height-thickness, width, thickness, color)
	// Left
	r.addQuad(x, y+thickness, thickness, height-thickness*2, color)
	// Right
	r.addQuad(x+width-thickness, y+thickness, thickness, height-thickness*2, color)
}

// addQuad adds a solid color quad to the vertex buffer.
func (r *Renderer) addQuad(x, y, w, h float32, c Color) {
	r.solidVertices = append(r.solidVertices,
		x, y, 0, c.R, c.G, c.B, c.A,
		x+w, y, 0, c.R, c.G, c.B, c.A,
		x+w, y+h, 0, c.R, c.G, c.B, c.A,

		x, y, 0, c.R, c.G, c.B, c.A,
		x+w, y+h, 0, c.R, c.G, c.B, c.A,
		x, y+h, 0, c.R, c.G, c.B, c.A,
	)
}

// addTexturedQuad adds a textured quad to the text vertex buffer.
func (r *Renderer) addTexturedQuad(x, y, w, h float32, u0, v0, u1, v1 float32, c Color) {
	r.textVertices = append(r.textVertices,
		x, y, 0, u0, v0, c.R, c.G, c.B, c.A,
		x+w, y, 0, u1, v0, c.R, c.G, c.B, c.A,
		x+w, y+h, 0, u1, v1, c.R, c.G, c.B, c.A,

		x, y, 0, u0, v0, c.R, c.G, c.B, c.A,
		x+w, y+h, 0, u1, v1, c.R, c.G, c.B, c.A,
		x, y+h, 0, u0, v1, c.R, c.G, c.B, c.A,
	)
}

// DrawText draws text with its top-left corner at x, y.
func (r *Renderer) DrawText(x, y float32, text string, scale float32, color Color) {
	gw, gh := r.font.GlyphSize()
	charW := float32(gw) * scale
	charH := float32(gh) * scale

	curX := x
	for _, char := range text {
		if char == '\n' {
			curX = x
			y += charH
			continue
		}
		if char != ' ' {
			u0, v0, u1, v1 := r.font.GetGlyphUV(char)
			r.addTexturedQuad(curX, y, charW, charH, u0, v0, u1, v1, color)
		}
		curX += charW
	}
}

// MeasureText returns the width and height of rendered text.
func (r *Renderer) MeasureText(text string, scale float32) (float32, float32) {
	return r.font.MeasureText(text, scale)
}

// orthoMatrix creates an orthographic projection matrix.
func orthoMatrix(left, right, bottom, top, near, far float32) [16]float32 {
	return [16]float32{
		2 / (right - left), 0, 0, 0,
		0, 2 / (top - bottom), 0, 0,
		0, 0, -2 / (far - near), 0,
		-(right + left) / (right - left), -(top + bottom) / (top - bottom), -(far + near) / (far - near), 1,
	}
}

// createBuffers creates a VAO/VBO pair with tightly packed float attributes
// of the given component counts at consecutive locations.
func createBuffers(components []int32) (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)

	var stride int32
	for _, c := range components {
		stride += c * 4
	}
	var offset uintptr
	for loc, c := range components {
		gl.VertexAttribPointerWithOffset(uint32(loc), c, gl.FLOAT, false, stride, offset)
		gl.EnableVertexAttribArray(uint32(loc))
		offset += uintptr(c * 4)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vao, vbo
}

const solidVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec4 aColor;

uniform mat4 uProjection;

out vec4 vColor;

void main() {
    gl_Position = uProjection * vec4(aPos, 1.0);
    vColor = aColor;
}
`

const solidFragmentShader = `
#version 410 core

in vec4 vColor;
out vec4 FragColor;

void main() {
    FragColor = vColor;
}
`

const textVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec2 aTexCoord;
layout (location = 2) in vec4 aColor;

uniform mat4 uProjection;

out vec2 vTexCoord;
out vec4 vColor;

void main() {
    gl_Position = uProjection * vec4(aPos, 1.0);
    vTexCoord = aTexCoord;
    vColor = aColor;
}
`

const textFragmentShader = `
#version 410 core

uniform sampler2D uTexture;

in vec2 vTexCoord;
in vec4 vColor;
out vec4 FragColor;

void main() {
    float alpha = texture(uTexture, vTexCoord).a;
    FragColor = vec4(vColor.rgb, vColor.a * alpha);
}
`
