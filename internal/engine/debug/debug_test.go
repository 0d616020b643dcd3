package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/meshview/pkg/math"
)

func TestBBoxLines(t *testing.T) {
	box := math.BoxFromPoints(math.V3(-1, 0, -1), math.V3(1, 2, 1))
	lines := BBoxLines(box, 0.5, BBoxColor)
	if len(lines) != BBoxVertexCount {
		t.Fatalf("got %d vertices, want %d", len(lines), BBoxVertexCount)
	}

	got := math.EmptyBox()
	for _, v := range lines {
		got = got.ExpandByPoint(math.V3(v.X, v.Y, v.Z))
		if v.R != BBoxColor[0] || v.G != BBoxColor[1] || v.B != BBoxColor[2] {
			t.Fatalf("vertex color = %v %v %v", v.R, v.G, v.B)
		}
	}
	if got.Min != math.V3(-1.5, -0.5, -1.5) || got.Max != math.V3(1.5, 2.5, 1.5) {
		t.Errorf("padded extent = %v..%v", got.Min, got.Max)
	}

	if BBoxLines(math.EmptyBox(), 0, BBoxColor) != nil {
		t.Error("empty box should produce no lines")
	}
}

func TestGridLines(t *testing.T) {
	center := [3]float32{1, 1, 1}
	line := [3]float32{0.5, 0.5, 0.5}

	tests := []struct {
		name      string
		size      float32
		divisions int
		want      int
	}{
		{"default", 10, 10, 44},
		{"single cell", 2, 1, 8},
		{"no divisions", 10, 0, 0},
		{"no size", 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(GridLines(tt.size, tt.divisions, center, line)); got != tt.want {
				t.Errorf("got %d vertices, want %d", got, tt.want)
			}
		})
	}

	lines := GridLines(10, 10, center, line)
	// Line index 5 of 11 passes through the origin.
	mid := lines[5*4]
	if mid.Z != 0 || mid.R != center[0] {
		t.Errorf("center line = %+v", mid)
	}
	if lines[0].X != -5 || lines[1].X != 5 || lines[0].R != line[0] {
		t.Errorf("edge line = %+v %+v", lines[0], lines[1])
	}
}

func TestCaptureFromPixels(t *testing.T) {
	dir := t.TempDir()
	sc := NewScreenshotCapture(filepath.Join(dir, "shots"), "meshview")
	sc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) }

	// 1x2: bottom row red, top row blue, as read back from GL.
	pixels := []byte{255, 0, 0, 255, 0, 0, 255, 255}
	path, err := sc.CaptureFromPixels(pixels, 1, 2)
	if err != nil {
		t.Fatalf("CaptureFromPixels: %v", err)
	}
	if filepath.Base(path) != "meshview_2025-03-01_12-30-00.png" {
		t.Errorf("path = %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if r, _, b, _ := img.At(0, 0).RGBA(); r != 0 || b == 0 {
		t.Errorf("top pixel should be blue, got r=%d b=%d", r, b)
	}

	if _, err := sc.CaptureFromPixels(pixels[:4], 1, 2); err == nil {
		t.Error("expected size mismatch error")
	}
}
