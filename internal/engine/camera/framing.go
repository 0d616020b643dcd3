package camera

import (
	gomath "math"

	"github.com/Faultbox/meshview/pkg/math"
)

// Margin scales the tighter-fit distance so the model does not touch the
// viewport edges.
const Margin = 1.25

// fallbackOffset places the camera when the model has no usable extent.
var fallbackOffset = math.Vec3{X: 2, Y: 1, Z: 2}

// framingDirection is the fixed diagonal the camera looks along.
var framingDirection = math.Vec3{X: 1, Y: 0.25, Z: 1}.Normalize()

// Framing is a camera configuration that shows a whole bounding box.
type Framing struct {
	Target   math.Vec3
	Position math.Vec3
	Distance float32
	Near     float32
	Far      float32

	// MaxDistance is the orbit zoom-out limit. Zero leaves the controls'
	// current limit untouched.
	MaxDistance float32

	// Degenerate is set when the box was empty, flat or non-finite and the
	// fixed fallback was used instead.
	Degenerate bool
}

// Frame computes a camera configuration that fits box for a vertical field
// of view fov (degrees) and aspect ratio. It is a pure function. fov is
// clamped with ClampFOV and a non-positive aspect is treated as 1.
func Frame(box math.Box3, fov, aspect float32) Framing {
	center := box.Center()
	size := box.Size()
	maxExtent := size.MaxComponent()

	if box.IsEmpty() || !size.IsFinite() || !center.IsFinite() || maxExtent <= 0 {
		if !center.IsFinite() {
			center = math.Vec3{}
		}
		return Framing{
			Target:     center,
			Position:   center.Add(fallbackOffset),
			Distance:   fallbackOffset.Length(),
			Near:       DefaultNear,
			Far:        DefaultFar,
			Degenerate: true,
		}
	}

	if !(aspect > 0) || aspect > gomath.MaxFloat32 {
		aspect = 1
	}
	fov = ClampFOV(fov)
	halfFOV := float64(math.DegToRad(fov)) / 2
	heightFit := float64(maxExtent) / (2 * gomath.Tan(halfFOV))
	widthFit := heightFit / float64(aspect)
	distance := float32(Margin * gomath.Max(heightFit, widthFit))

	return Framing{
		Target:      center,
		Position:    center.Add(framingDirection.Scale(distance)),
		Distance:    distance,
		Near:        max(distance/100, DefaultNear),
		Far:         distance * 100,
		MaxDistance: distance * 20,
	}
}

// Apply moves the camera and retargets the controls. Pending input on the
// controls is dropped so the new framing is not immediately disturbed.
func (f Framing) Apply(cam *Perspective, controls *OrbitControls) {
	cam.Position = f.Position
	cam.Target = f.Target
	cam.Near = f.Near
	cam.Far = f.Far
	if controls == nil {
		return
	}
	controls.Target = f.Target
	if f.MaxDistance > 0 {
		controls.MaxDistance = f.MaxDistance
	}
	controls.Reset()
	controls.Update()
}
