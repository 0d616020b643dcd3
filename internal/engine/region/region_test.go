package region

import (
	"testing"

	"github.com/Faultbox/meshview/internal/engine/camera"
)

func TestSetBoundsResize(t *testing.T) {
	r := New(240, 0, 800, 600)
	calls := 0
	unsubscribe := r.OnResize(func() { calls++ })

	r.SetBounds(300, 0, 800, 600)
	if calls != 0 {
		t.Errorf("move without resize notified %d times", calls)
	}
	r.SetBounds(300, 0, 640, 480)
	if calls != 1 {
		t.Errorf("resize notified %d times, want 1", calls)
	}
	if w, h := r.Size(); w != 640 || h != 480 {
		t.Errorf("Size = %dx%d", w, h)
	}

	unsubscribe()
	r.SetBounds(0, 0, 10, 10)
	if calls != 1 {
		t.Error("unsubscribed callback still called")
	}
	if r.Subscribers() != 0 {
		t.Errorf("Subscribers = %d", r.Subscribers())
	}

	r.SetBounds(0, 0, -5, 10)
	if w, _ := r.Size(); w != 0 {
		t.Errorf("negative width kept: %d", w)
	}
}

func TestContains(t *testing.T) {
	r := New(100, 50, 200, 100)
	tests := []struct {
		x, y int
		want bool
	}{
		{100, 50, true},
		{299, 149, true},
		{300, 100, false},
		{150, 150, false},
		{99, 60, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.x, tt.y); got != tt.want {
			t.Errorf("Contains(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDragCapture(t *testing.T) {
	r := New(100, 0, 200, 200)
	var events []camera.PointerEvent
	r.OnPointer(func(ev camera.PointerEvent) { events = append(events, ev) })

	// Motion without capture is ignored.
	r.MouseMove(5, 5)
	if len(events) != 0 {
		t.Fatalf("uncaptured move emitted %d events", len(events))
	}

	// Press outside does not capture.
	if r.MouseDown(50, 50, camera.ButtonLeft) {
		t.Fatal("press outside was taken")
	}

	if !r.MouseDown(150, 50, camera.ButtonRight) {
		t.Fatal("press inside was not taken")
	}
	// Another button while captured keeps the first capture.
	r.MouseDown(150, 50, camera.ButtonLeft)
	r.MouseMove(3, -2)
	r.MouseMove(0, 0)

	// The capture survives leaving the region.
	r.MouseMove(-400, 0)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	want := camera.PointerEvent{Kind: camera.PointerDrag, Button: camera.ButtonRight, DX: 3, DY: -2}
	if events[0] != want {
		t.Errorf("event = %+v, want %+v", events[0], want)
	}

	r.MouseUp(camera.ButtonLeft)
	if !r.Captured() {
		t.Fatal("releasing another button dropped the capture")
	}
	r.MouseUp(camera.ButtonRight)
	if r.Captured() {
		t.Fatal("capture not released")
	}
}

func TestWheel(t *testing.T) {
	r := New(100, 0, 200, 200)
	var got []float32
	unsubscribe := r.OnPointer(func(ev camera.PointerEvent) {
		if ev.Kind == camera.PointerWheel {
			got = append(got, ev.Wheel)
		}
	})

	if r.Wheel(10, 10, 1) {
		t.Error("wheel outside was taken")
	}
	if !r.Wheel(150, 10, -2) {
		t.Error("wheel inside was not taken")
	}
	r.Wheel(150, 10, 0)

	unsubscribe()
	r.Wheel(150, 10, 1)

	if len(got) != 1 || got[0] != -2 {
		t.Errorf("wheel events = %v, want [-2]", got)
	}
}
