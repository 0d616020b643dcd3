package camera

import (
	gomath "math"

	"github.com/Faultbox/meshview/pkg/math"
)

// PointerKind identifies a pointer gesture delivered to the controls.
type PointerKind uint8

const (
	PointerDrag PointerKind = iota
	PointerWheel
)

// Mouse buttons as reported by the host.
const (
	ButtonLeft   = 1
	ButtonMiddle = 2
	ButtonRight  = 3
)

// PointerEvent is a pointer gesture in viewport pixels.
type PointerEvent struct {
	Kind   PointerKind
	Button int
	DX, DY float32
	Wheel  float32
}

// PointerSource delivers pointer events until the returned function is called.
type PointerSource interface {
	OnPointer(fn func(PointerEvent)) (unsubscribe func())
}

// OrbitControls orbits a camera around its target. Left drag rotates,
// right or middle drag pans in screen space and the wheel zooms.
type OrbitControls struct {
	Target math.Vec3

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPolar    float32
	MaxPolar    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	EnableDamping bool
	DampingFactor float32

	camera      *Perspective
	viewHeight  float32
	unsubscribe func()
	thetaDelta  float32
	phiDelta    float32
	panOffset   math.Vec3
	scale       float32
	disposed    bool
}

// NewOrbitControls binds controls to cam. If src is non-nil the controls
// listen to its pointer events until Dispose.
func NewOrbitControls(cam *Perspective, src PointerSource) *OrbitControls {
	c := &OrbitControls{
		Target:          cam.Target,
		MinDistance:     0,
		MaxDistance:     float32(gomath.Inf(1)),
		MinPolar:        0,
		MaxPolar:        gomath.Pi,
		DragSensitivity: 1,
		ZoomSensitivity: 0.1,
		EnableDamping:   true,
		DampingFactor:   0.08,
		camera:          cam,
		viewHeight:      1,
		scale:           1,
	}
	if src != nil {
		c.unsubscribe = src.OnPointer(c.HandlePointer)
	}
	return c
}

// SetViewportHeight sets the pixel height used to convert drags into angles.
func (c *OrbitControls) SetViewportHeight(height int) {
	c.viewHeight = float32(max(height, 1))
}

// HandlePointer routes a pointer event to rotate, pan or zoom.
func (c *OrbitControls) HandlePointer(ev PointerEvent) {
	if c.disposed {
		return
	}
	switch ev.Kind {
	case PointerDrag:
		if ev.Button == ButtonLeft {
			c.HandleDrag(ev.DX, ev.DY)
		} else {
			c.HandlePan(ev.DX, ev.DY)
		}
	case PointerWheel:
		c.HandleZoom(ev.Wheel)
	}
}

// HandleDrag queues a rotation from a drag delta in pixels.
func (c *OrbitControls) HandleDrag(deltaX, deltaY float32) {
	full := 2 * gomath.Pi * c.DragSensitivity / c.viewHeight
	c.thetaDelta -= deltaX * float32(full)
	c.phiDelta -= deltaY * float32(full)
}

// HandlePan queues a screen-space pan from a drag delta in pixels.
func (c *OrbitControls) HandlePan(deltaX, deltaY float32) {
	offset := c.camera.Position.Sub(c.Target)
	dist := offset.Length() * float32(gomath.Tan(float64(math.DegToRad(c.camera.FOV))/2))
	view := c.camera.ViewMatrix()
	right := math.Vec3{X: view[0], Y: view[4], Z: view[8]}
	up := math.Vec3{X: view[1], Y: view[5], Z: view[9]}

	pan := right.Scale(-2 * deltaX * dist / c.viewHeight).
		Add(up.Scale(2 * deltaY * dist / c.viewHeight))
	c.panOffset = c.panOffset.Add(pan)
}

// HandleZoom queues a dolly step. Positive delta moves closer.
func (c *OrbitControls) HandleZoom(delta float32) {
	if delta == 0 {
		return
	}
	step := float32(gomath.Pow(0.95, float64(gomath.Abs(float64(delta)))))
	if delta > 0 {
		c.scale *= step
	} else {
		c.scale /= step
	}
}

// Update applies pending input to the camera. It is called once per frame
// and reports whether the camera moved.
func (c *OrbitControls) Update() bool {
	const eps = 1e-6

	factor := float32(1)
	if c.EnableDamping {
		factor = c.DampingFactor
	}
	dTheta := c.thetaDelta * factor
	dPhi := c.phiDelta * factor
	pan := c.panOffset.Scale(factor)

	cam := c.camera
	offset := cam.Position.Sub(c.Target)
	radius := offset.Length()

	pending := abs(dTheta) > eps || abs(dPhi) > eps || pan.Length() > eps || c.scale != 1 ||
		radius < c.MinDistance || radius > c.MaxDistance || cam.Target != c.Target
	if !pending {
		c.Reset()
		return false
	}

	theta := float32(gomath.Atan2(float64(offset.X), float64(offset.Z)))
	phi := float32(0)
	if radius > 0 {
		phi = float32(gomath.Acos(clamp(float64(offset.Y/radius), -1, 1)))
	}

	theta += dTheta
	phi += dPhi
	phi = float32(clamp(float64(phi), float64(c.MinPolar)+eps, float64(c.MaxPolar)-eps))
	radius = float32(clamp(float64(radius*c.scale), float64(c.MinDistance), float64(c.MaxDistance)))
	c.Target = c.Target.Add(pan)

	sinPhi := float32(gomath.Sin(float64(phi)))
	cam.Position = c.Target.Add(math.Vec3{
		X: radius * sinPhi * float32(gomath.Sin(float64(theta))),
		Y: radius * float32(gomath.Cos(float64(phi))),
		Z: radius * sinPhi * float32(gomath.Cos(float64(theta))),
	})
	cam.Target = c.Target

	if c.EnableDamping {
		c.thetaDelta *= 1 - c.DampingFactor
		c.phiDelta *= 1 - c.DampingFactor
		c.panOffset = c.panOffset.Scale(1 - c.DampingFactor)
	} else {
		c.thetaDelta, c.phiDelta = 0, 0
		c.panOffset = math.Vec3{}
	}
	c.scale = 1
	return true
}

// Reset drops any pending rotation, pan and zoom.
func (c *OrbitControls) Reset() {
	c.thetaDelta, c.phiDelta = 0, 0
	c.panOffset = math.Vec3{}
	c.scale = 1
}

// Dispose stops listening to pointer events. Further input is ignored.
func (c *OrbitControls) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// Disposed reports whether Dispose has been called.
func (c *OrbitControls) Disposed() bool {
	return c.disposed
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return gomath.Max(lo, gomath.Min(hi, v))
}
