// Package shader provides OpenGL shader compilation utilities.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Program is a linked shader program with a cache of uniform locations.
type Program struct {
	id       uint32
	name     string
	uniforms map[string]int32
}

// New compiles and links a program. The name only labels errors.
func New(name, vertexSrc, fragmentSrc string) (*Program, error) {
	id, err := CompileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("%s program: %w", name, err)
	}
	return &Program{id: id, name: name, uniforms: make(map[string]int32)}, nil
}

// ID returns the GL program object.
func (p *Program) ID() uint32 { return p.id }

// Use makes the program current.
func (p *Program) Use() { gl.UseProgram(p.id) }

// Uniform returns the cached location for name, or -1 if the uniform is
// not found or inactive. Setting a uniform at -1 is a GL no-op.
func (p *Program) Uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := GetUniform(p.id, name)
	p.uniforms[name] = loc
	return loc
}

// SetMat4 uploads a column-major 4x4 matrix.
func (p *Program) SetMat4(name string, m *float32) {
	gl.UniformMatrix4fv(p.Uniform(name), 1, false, m)
}

// SetMat3 uploads a column-major 3x3 matrix.
func (p *Program) SetMat3(name string, m *float32) {
	gl.UniformMatrix3fv(p.Uniform(name), 1, false, m)
}

// SetVec3 uploads a vec3.
func (p *Program) SetVec3(name string, v [3]float32) {
	gl.Uniform3f(p.Uniform(name), v[0], v[1], v[2])
}

// SetVec4 uploads a vec4.
func (p *Program) SetVec4(name string, v [4]float32) {
	gl.Uniform4f(p.Uniform(name), v[0], v[1], v[2], v[3])
}

// SetFloat uploads a float.
func (p *Program) SetFloat(name string, v float32) {
	gl.Uniform1f(p.Uniform(name), v)
}

// SetInt uploads an int or sampler unit.
func (p *Program) SetInt(name string, v int32) {
	gl.Uniform1i(p.Uniform(name), v)
}

// Delete releases the program object.
func (p *Program) Delete() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

// CompileProgram compiles vertex and fragment shaders and links them into a program.
// Returns the program ID or an error if compilation/linking fails.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		log := infoLog(program, gl.GetProgramiv, gl.GetProgramInfoLog)
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", log)
	}

	return program, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		log := infoLog(shader, gl.GetShaderiv, gl.GetShaderInfoLog)
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, log)
	}

	return shader, nil
}

func infoLog(object uint32, getiv func(uint32, uint32, *int32), getLog func(uint32, int32, *int32, *uint8)) string {
	var logLen int32
	getiv(object, gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return "unknown error"
	}
	log := make([]byte, logLen)
	getLog(object, logLen, nil, &log[0])
	return string(log[:logLen-1])
}

// GetUniform returns the uniform location for the given name.
// Returns -1 if the uniform is not found or inactive.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// MustGetUniform returns the uniform location for the given name.
// Panics if the uniform is not found.
func MustGetUniform(program uint32, name string) int32 {
	loc := GetUniform(program, name)
	if loc < 0 {
		panic(fmt.Sprintf("uniform %q not found in program %d", name, program))
	}
	return loc
}
