package viewport

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/frameloop"
	"github.com/Faultbox/meshview/internal/engine/scene"
)

// fakeSurface tracks which resources have been uploaded by Render and
// released since.
type fakeSurface struct {
	width, height int
	renders       int
	closed        bool
	closeErr      error

	live     map[any]struct{}
	released []any
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{live: make(map[any]struct{})}
}

func (f *fakeSurface) SetSize(w, h int) { f.width, f.height = w, h }

func (f *fakeSurface) Render(s *scene.Scene, _ *camera.Perspective) {
	f.renders++
	s.Root.Traverse(func(n *scene.Node) {
		if n.Kind != scene.KindMesh || n.Mesh == nil {
			return
		}
		f.live[n.Mesh.Geometry] = struct{}{}
		for _, m := range n.Mesh.Materials {
			f.live[m] = struct{}{}
			for _, t := range m.Textures() {
				f.live[t] = struct{}{}
			}
		}
	})
}

func (f *fakeSurface) Close() error {
	f.closed = true
	return f.closeErr
}

func (f *fakeSurface) release(r any) {
	f.released = append(f.released, r)
	delete(f.live, r)
}

func (f *fakeSurface) ReleaseGeometry(g *scene.Geometry) { f.release(g) }
func (f *fakeSurface) ReleaseMaterial(m *scene.Material) { f.release(m) }
func (f *fakeSurface) ReleaseTexture(t *scene.Texture)   { f.release(t) }

func (f *fakeSurface) liveCount() int { return len(f.live) }

// fakeContainer is a resizable region with pointer subscriptions.
type fakeContainer struct {
	width, height int
	resize        map[int]func()
	pointer       map[int]func(camera.PointerEvent)
	next          int
}

func newFakeContainer(w, h int) *fakeContainer {
	return &fakeContainer{
		width:   w,
		height:  h,
		resize:  make(map[int]func()),
		pointer: make(map[int]func(camera.PointerEvent)),
	}
}

func (c *fakeContainer) Size() (int, int) { return c.width, c.height }

func (c *fakeContainer) OnResize(fn func()) func() {
	c.next++
	id := c.next
	c.resize[id] = fn
	return func() { delete(c.resize, id) }
}

func (c *fakeContainer) OnPointer(fn func(camera.PointerEvent)) func() {
	c.next++
	id := c.next
	c.pointer[id] = fn
	return func() { delete(c.pointer, id) }
}

func (c *fakeContainer) setSize(w, h int) {
	c.width, c.height = w, h
	for _, fn := range c.resize {
		fn()
	}
}

func (c *fakeContainer) subscriptions() int { return len(c.resize) + len(c.pointer) }

// gatedImporter blocks each import until the test releases it by name or
// its context is cancelled. A stubborn importer ignores cancellation and
// always waits for the release.
type gatedImporter struct {
	mu       sync.Mutex
	gates    map[string]chan importReply
	stubborn bool
}

type importReply struct {
	node *scene.Node
	err  error
}

func newGatedImporter() *gatedImporter {
	return &gatedImporter{gates: make(map[string]chan importReply)}
}

func (g *gatedImporter) gate(name string) chan importReply {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[name]
	if !ok {
		ch = make(chan importReply, 1)
		g.gates[name] = ch
	}
	return ch
}

func (g *gatedImporter) Import(ctx context.Context, name string, r io.Reader) (*scene.Node, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	if g.stubborn {
		reply := <-g.gate(name)
		return reply.node, reply.err
	}
	select {
	case reply := <-g.gate(name):
		return reply.node, reply.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedImporter) succeed(name string, node *scene.Node) {
	g.gate(name) <- importReply{node: node}
}

func (g *gatedImporter) fail(name string, err error) {
	g.gate(name) <- importReply{err: err}
}

// funcImporter adapts a function to Importer.
type funcImporter func(ctx context.Context, name string, r io.Reader) (*scene.Node, error)

func (f funcImporter) Import(ctx context.Context, name string, r io.Reader) (*scene.Node, error) {
	return f(ctx, name, r)
}

var errBadData = errors.New("bad magic")

// testModel builds a two-mesh model with a shared texture and a joint.
func testModel(name string, size float32) *scene.Node {
	h := size / 2
	geom := &scene.Geometry{
		Name: name + "-geom",
		Positions: []float32{
			-h, -h, -h,
			h, h, h,
			h, -h, h,
		},
		Indices: []uint32{0, 1, 2},
	}
	shared := &scene.Texture{Name: name + "-albedo"}
	m1 := scene.NewMaterial(name + "-m1")
	m1.Map = shared
	m2 := scene.NewMaterial(name + "-m2")
	m2.Map = shared
	m2.NormalMap = &scene.Texture{Name: name + "-normal"}

	root := scene.NewGroup(name)
	root.Add(scene.NewMesh(name+"-a", geom, m1))
	root.Add(scene.NewMesh(name+"-b", geom, m1, m2))
	root.Add(scene.NewJoint(name + "-hips"))
	return root
}

type harness struct {
	t         *testing.T
	loop      *frameloop.Loop
	surface   *fakeSurface
	container *fakeContainer
	importer  *gatedImporter
	session   *Session
	statuses  []Status
}

func newHarness(t *testing.T, tweaks ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		loop:      frameloop.New(),
		surface:   newFakeSurface(),
		container: newFakeContainer(800, 600),
		importer:  newGatedImporter(),
	}
	opts := DefaultOptions()
	opts.OnStatus = func(st Status) { h.statuses = append(h.statuses, st) }
	for _, tweak := range tweaks {
		tweak(&opts)
	}
	h.session = New(h.loop, h.surface, h.importer, opts)
	require.NoError(t, h.session.Open(h.container))
	return h
}

func (h *harness) load(name string) *Load {
	h.t.Helper()
	ld, err := h.session.LoadModel(Source{Name: name, Reader: strings.NewReader(name)})
	require.NoError(h.t, err)
	return ld
}

// settle ticks the loop until ld resolves.
func (h *harness) settle(ld *Load) {
	h.t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-ld.Done():
			return
		case <-h.loop.Wake():
			h.loop.Tick(time.Now())
		case <-timeout:
			h.t.Fatalf("load %q did not resolve", ld.Name)
		}
	}
}

// drain waits for every import goroutine and runs their completions.
func (h *harness) drain() {
	h.session.loader.inflight.Wait()
	h.loop.Tick(time.Now())
}

func cameraDrag(dx, dy float32) camera.PointerEvent {
	return camera.PointerEvent{Kind: camera.PointerDrag, Button: camera.ButtonLeft, DX: dx, DY: dy}
}
