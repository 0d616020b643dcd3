// Package region implements a rectangular area of the window that a
// viewport session draws into and receives pointer input from.
package region

import (
	"github.com/Faultbox/meshview/internal/engine/camera"
)

// Region is a sub-rectangle of the window in logical pixels, top-left
// origin. It turns raw mouse input into camera pointer events: a drag that
// starts inside keeps the capture until its button is released, and wheel
// events only count while the pointer is over the region.
//
// Region is not safe for concurrent use; drive it from the event loop.
type Region struct {
	x, y, w, h int

	nextID   int
	resize   []resizeSub
	pointer  []pointerSub
	captured int // button holding the drag capture, 0 if none
}

type resizeSub struct {
	id int
	fn func()
}

type pointerSub struct {
	id int
	fn func(camera.PointerEvent)
}

// New creates a region with the given bounds.
func New(x, y, w, h int) *Region {
	return &Region{x: x, y: y, w: max(w, 0), h: max(h, 0)}
}

// Bounds returns the position and size.
func (r *Region) Bounds() (x, y, w, h int) {
	return r.x, r.y, r.w, r.h
}

// Size returns the current size in logical pixels.
func (r *Region) Size() (width, height int) {
	return r.w, r.h
}

// SetBounds moves or resizes the region. Resize subscribers run only when
// the size changes.
func (r *Region) SetBounds(x, y, w, h int) {
	w, h = max(w, 0), max(h, 0)
	changed := w != r.w || h != r.h
	r.x, r.y, r.w, r.h = x, y, w, h
	if !changed {
		return
	}
	for _, s := range append([]resizeSub(nil), r.resize...) {
		s.fn()
	}
}

// OnResize calls fn whenever the size changes.
func (r *Region) OnResize(fn func()) (unsubscribe func()) {
	r.nextID++
	id := r.nextID
	r.resize = append(r.resize, resizeSub{id: id, fn: fn})
	return func() {
		for i, s := range r.resize {
			if s.id == id {
				r.resize = append(r.resize[:i], r.resize[i+1:]...)
				return
			}
		}
	}
}

// OnPointer calls fn for each pointer gesture over the region.
func (r *Region) OnPointer(fn func(camera.PointerEvent)) (unsubscribe func()) {
	r.nextID++
	id := r.nextID
	r.pointer = append(r.pointer, pointerSub{id: id, fn: fn})
	return func() {
		for i, s := range r.pointer {
			if s.id == id {
				r.pointer = append(r.pointer[:i], r.pointer[i+1:]...)
				return
			}
		}
	}
}

// Subscribers returns the number of live resize and pointer subscriptions.
func (r *Region) Subscribers() int {
	return len(r.resize) + len(r.pointer)
}

// Contains reports whether the window point is inside the region.
func (r *Region) Contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// Captured reports whether a drag that started in the region is active.
func (r *Region) Captured() bool {
	return r.captured != 0
}

// MouseDown starts a drag capture if the press is inside the region.
// Reports whether the region took the press.
func (r *Region) MouseDown(x, y, button int) bool {
	if r.captured != 0 || !r.Contains(x, y) {
		return r.captured != 0
	}
	r.captured = button
	return true
}

// MouseUp releases the capture held by button.
func (r *Region) MouseUp(button int) {
	if r.captured == button {
		r.captured = 0
	}
}

// MouseMove forwards relative motion while a drag is captured.
func (r *Region) MouseMove(dx, dy int) {
	if r.captured == 0 || (dx == 0 && dy == 0) {
		return
	}
	r.emit(camera.PointerEvent{
		Kind:   camera.PointerDrag,
		Button: r.captured,
		DX:     float32(dx),
		DY:     float32(dy),
	})
}

// Wheel forwards a wheel step when the pointer is over the region.
// Positive values scroll away from the user.
func (r *Region) Wheel(x, y int, delta float32) bool {
	if delta == 0 || !r.Contains(x, y) {
		return false
	}
	r.emit(camera.PointerEvent{Kind: camera.PointerWheel, Wheel: delta})
	return true
}

func (r *Region) emit(ev camera.PointerEvent) {
	for _, s := range append([]pointerSub(nil), r.pointer...) {
		s.fn(ev)
	}
}
