// Package viewport manages the lifetime of one 3D preview surface: the
// scene, camera, orbit controls and render loop bound to a container region,
// and the asynchronous load-and-replace protocol for the displayed model.
//
// A Session is driven entirely from the goroutine that ticks its Host.
// Imports run on their own goroutines and hand their results back through
// Host.Dispatch, so every scene mutation happens between two frames.
package viewport

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/meshview/internal/engine/camera"
	"github.com/Faultbox/meshview/internal/engine/frameloop"
	"github.com/Faultbox/meshview/internal/engine/scene"
)

// Host schedules frame callbacks and delivers completions posted from other
// goroutines. *frameloop.Loop implements it.
type Host interface {
	RequestFrame(fn frameloop.FrameFunc) frameloop.FrameID
	CancelFrame(id frameloop.FrameID)
	Dispatch(fn func())
}

// Container is the region the viewport draws into.
type Container interface {
	camera.PointerSource

	// Size returns the current on-screen size in pixels.
	Size() (width, height int)

	// OnResize calls fn whenever Size changes.
	OnResize(fn func()) (unsubscribe func())
}

// Releaser frees the GPU-side copy of scene resources. Releasing a resource
// that was never uploaded is a no-op.
type Releaser interface {
	ReleaseGeometry(g *scene.Geometry)
	ReleaseMaterial(m *scene.Material)
	ReleaseTexture(t *scene.Texture)
}

// Surface is the rendering surface a session owns.
type Surface interface {
	Releaser
	SetSize(width, height int)
	Render(s *scene.Scene, cam *camera.Perspective)
	Close() error
}

// Importer parses a byte stream into a scene graph. The name is used for
// format selection and error messages.
type Importer interface {
	Import(ctx context.Context, name string, r io.Reader) (*scene.Node, error)
}

// Source is a named byte stream to load. If Reader is also an io.Closer it
// is closed once the import finishes.
type Source struct {
	Name   string
	Reader io.Reader
}

// OpenFile opens path as a Source.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, err
	}
	return Source{Name: filepath.Base(path), Reader: f}, nil
}
