package viewport

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/frameloop"
	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/logger"
)

// Options configures a session.
type Options struct {
	// FOV is the vertical field of view in degrees.
	FOV float32

	// DampingFactor sets orbit inertia. Zero disables damping.
	DampingFactor float32

	ShowGrid   bool
	ShowBounds bool

	// MaxConcurrentImports bounds how many imports parse at once.
	MaxConcurrentImports int64

	// OnStatus receives loading and error changes.
	OnStatus StatusFunc

	// Logger defaults to the global logger.
	Logger *zap.Logger
}

// DefaultOptions returns the standard preview settings.
func DefaultOptions() Options {
	return Options{
		FOV:                  60,
		DampingFactor:        0.08,
		ShowGrid:             true,
		MaxConcurrentImports: 1,
	}
}

// Session owns one rendering surface bound to a container: the scene, the
// camera and controls, the render loop and the currently displayed model.
//
// All methods must be called from the goroutine that ticks the host.
type Session struct {
	id      string
	opts    Options
	host    Host
	surface Surface
	log     *zap.Logger

	state     State
	container Container
	scene     *scene.Scene
	camera    *camera.Perspective
	controls  *camera.OrbitControls
	frameID   frameloop.FrameID
	unsubs    []func()
	loader    *loadController
	status    Status
	framing   camera.Framing
	frames    uint64
}

// New creates an unopened session that will draw to surface and schedule
// its work on host.
func New(host Host, surface Surface, imp Importer, opts Options) *Session {
	opts.FOV = camera.ClampFOV(opts.FOV)
	id := uuid.NewString()
	log := logger.ForSession(opts.Logger, id)

	s := &Session{
		id:      id,
		opts:    opts,
		host:    host,
		surface: surface,
		log:     log,
	}
	s.loader = newLoadController(s, imp, opts.MaxConcurrentImports, log)
	return s
}

// ID returns the session id used in log lines.
func (s *Session) ID() string {
	return s.id
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Open builds the scene, camera and controls, binds them to container and
// starts the render loop. It may be called once.
func (s *Session) Open(container Container) error {
	if s.state != StateUnopened {
		return &LifecycleError{Op: "Open", State: s.state}
	}
	if container == nil {
		return fmt.Errorf("viewport: open: nil container")
	}

	s.container = container
	s.scene = scene.New()
	s.scene.Grid.Visible = s.opts.ShowGrid
	s.scene.ShowBounds = s.opts.ShowBounds

	s.camera = camera.NewPerspective(s.opts.FOV, 1)
	s.controls = camera.NewOrbitControls(s.camera, container)
	s.controls.EnableDamping = s.opts.DampingFactor > 0
	s.controls.DampingFactor = s.opts.DampingFactor

	s.unsubs = append(s.unsubs, container.OnResize(s.handleResize))
	s.state = StateOpen
	s.resize()

	s.frameID = s.host.RequestFrame(s.frame)
	s.log.Info("viewport opened", zap.Float32("fov", s.opts.FOV))
	return nil
}

// Resize recomputes the camera aspect and the surface size from the
// container's current size. It also runs whenever the container resizes.
func (s *Session) Resize() error {
	if s.state != StateOpen {
		return &LifecycleError{Op: "Resize", State: s.state}
	}
	s.resize()
	return nil
}

func (s *Session) handleResize() {
	if s.state == StateOpen {
		s.resize()
	}
}

func (s *Session) resize() {
	w, h := s.container.Size()
	w, h = max(w, 1), max(h, 1)
	s.camera.SetViewport(w, h)
	s.controls.SetViewportHeight(h)
	s.surface.SetSize(w, h)
	s.log.Debug("viewport resized", zap.Int("width", w), zap.Int("height", h))
}

// LoadModel starts loading src in the background and returns its future.
// The current model stays on screen until the new one is ready, and stays
// if the new one fails.
func (s *Session) LoadModel(src Source) (*Load, error) {
	if s.state != StateOpen {
		return nil, &LifecycleError{Op: "LoadModel", State: s.state}
	}
	s.setStatus(Status{Loading: true})
	return s.loader.load(src), nil
}

// Close stops the render loop, disposes the controls, reclaims the displayed
// model and releases the surface. Pending loads resolve as superseded.
func (s *Session) Close() error {
	if s.state != StateOpen {
		return &LifecycleError{Op: "Close", State: s.state}
	}
	s.state = StateClosed

	s.host.CancelFrame(s.frameID)
	s.frameID = 0
	s.loader.shutdown()

	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.controls.Dispose()

	if model := s.scene.Model(); model != nil {
		s.scene.Models.Remove(model)
		stats := Reclaim(model, s.surface)
		s.log.Debug("reclaimed model on close",
			zap.Int("geometries", stats.Geometries),
			zap.Int("materials", stats.Materials),
			zap.Int("textures", stats.Textures),
		)
	}

	if s.status.Loading {
		s.setStatus(Status{Loading: false, Error: s.status.Error})
	}

	err := s.surface.Close()
	s.log.Info("viewport closed", zap.Uint64("frames", s.frames))
	if err != nil {
		return fmt.Errorf("viewport: close surface: %w", err)
	}
	return nil
}

// frame renders one frame and schedules the next.
func (s *Session) frame(time.Time) {
	if s.state != StateOpen {
		return
	}
	s.frameID = s.host.RequestFrame(s.frame)
	s.controls.Update()
	s.surface.Render(s.scene, s.camera)
	s.frames++
}

// commit swaps node in as the displayed model and frames the camera on it.
// It runs on the host loop between frames.
func (s *Session) commit(node *scene.Node) camera.Framing {
	if prev := s.scene.Model(); prev != nil {
		s.scene.Models.Remove(prev)
		stats := Reclaim(prev, s.surface)
		s.log.Debug("reclaimed previous model",
			zap.String("model", prev.Name),
			zap.Int("geometries", stats.Geometries),
			zap.Int("materials", stats.Materials),
			zap.Int("textures", stats.Textures),
		)
	}

	prepareModel(node)
	s.scene.Models.Add(node)

	f := camera.Frame(node.Bounds(), s.camera.FOV, s.camera.Aspect)
	if f.Degenerate {
		s.log.Warn("model has no usable extent, using default camera", zap.String("model", node.Name))
	}
	f.Apply(s.camera, s.controls)
	s.framing = f
	return f
}

// prepareModel hides joints and turns off shadows on meshes.
func prepareModel(root *scene.Node) {
	root.Traverse(func(n *scene.Node) {
		switch n.Kind {
		case scene.KindJoint:
			n.Visible = false
		case scene.KindMesh:
			if n.Mesh != nil {
				n.Mesh.CastShadow = false
				n.Mesh.ReceiveShadow = false
			}
		}
	})
}

func (s *Session) setStatus(st Status) {
	if st == s.status {
		return
	}
	s.status = st
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(st)
	}
}

// Status returns the loading and error state shown to the user.
func (s *Session) Status() Status {
	return s.status
}

// Model returns the displayed model, or nil.
func (s *Session) Model() *scene.Node {
	if s.scene == nil {
		return nil
	}
	return s.scene.Model()
}

// Scene returns the session scene. It is nil before Open.
func (s *Session) Scene() *scene.Scene {
	return s.scene
}

// Camera returns the session camera. It is nil before Open.
func (s *Session) Camera() *camera.Perspective {
	return s.camera
}

// Framing returns the framing applied for the displayed model.
func (s *Session) Framing() camera.Framing {
	return s.framing
}

// Generation returns the current load generation.
func (s *Session) Generation() uint64 {
	return s.loader.generation
}

// Loading reports whether the current load is still importing.
func (s *Session) Loading() bool {
	return s.state == StateOpen && s.loader.busy()
}
