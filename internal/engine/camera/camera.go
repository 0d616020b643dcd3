// Package camera provides the perspective camera, orbit controls and the
// automatic framing used by the viewport.
package camera

import (
	gomath "math"

	"github.com/Faultbox/meshview/pkg/math"
)

// Default clip planes before a model has been framed.
const (
	DefaultNear = 0.01
	DefaultFar  = 10000
)

// Vertical field of view limits, in degrees.
const (
	DefaultFOV = 60
	MinFOV     = 1
	MaxFOV     = 179
)

// ClampFOV maps fov into [MinFOV, MaxFOV]. Non-positive and non-finite
// values become DefaultFOV.
func ClampFOV(fov float32) float32 {
	switch {
	case fov != fov || fov > gomath.MaxFloat32 || fov <= 0:
		return DefaultFOV
	case fov < MinFOV:
		return MinFOV
	case fov > MaxFOV:
		return MaxFOV
	}
	return fov
}

// Perspective is a perspective camera looking at Target.
type Perspective struct {
	Position math.Vec3
	Target   math.Vec3
	Up       math.Vec3

	FOV    float32 // vertical field of view in degrees
	Aspect float32
	Near   float32
	Far    float32
}

// NewPerspective creates a camera at (2, 1, 2) looking at the origin.
func NewPerspective(fov, aspect float32) *Perspective {
	return &Perspective{
		Position: math.Vec3{X: 2, Y: 1, Z: 2},
		Up:       math.Vec3{Y: 1},
		FOV:      fov,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// ViewMatrix returns the view matrix for this camera.
func (c *Perspective) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.Target, c.Up)
}

// ProjectionMatrix returns the projection matrix for this camera.
func (c *Perspective) ProjectionMatrix() math.Mat4 {
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return math.Perspective(math.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// ViewProjection returns projection * view.
func (c *Perspective) ViewProjection() math.Mat4 {
	return c.ProjectionMatrix().Mul(c.ViewMatrix())
}

// SetViewport updates the aspect ratio from a pixel size. Both sides are
// floored at one pixel.
func (c *Perspective) SetViewport(width, height int) {
	c.Aspect = float32(max(width, 1)) / float32(max(height, 1))
}
