package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func makeTGAHeader(imageType byte, w, h int, bpp byte, descriptor byte) []byte {
	hdr := make([]byte, 18)
	hdr[2] = imageType
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = bpp
	hdr[17] = descriptor
	return hdr
}

func TestDecodeTGA_Uncompressed(t *testing.T) {
	// 2x2, bottom-up, BGR. File row 0 is the bottom row.
	data := makeTGAHeader(TGATypeUncompressed, 2, 2, 24, 0)
	data = append(data,
		0, 0, 255, 0, 255, 0, // bottom: red, green
		255, 0, 0, 255, 255, 255, // top: blue, white
	)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}
	tests := []struct {
		x, y int
		want color.RGBA
	}{
		{0, 1, color.RGBA{R: 255, A: 255}},
		{1, 1, color.RGBA{G: 255, A: 255}},
		{0, 0, color.RGBA{B: 255, A: 255}},
		{1, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	}
	for _, tt := range tests {
		if got := img.RGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDecodeTGA_RLE(t *testing.T) {
	// 3x1 top-down, 32 bit: one run of two half-transparent reds, one raw blue.
	data := makeTGAHeader(TGATypeRLE, 3, 1, 32, 0x20)
	data = append(data,
		0x81, 0, 0, 255, 128,
		0x00, 255, 0, 0, 255,
	)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}
	want := []color.RGBA{
		{R: 255, A: 128},
		{R: 255, A: 128},
		{B: 255, A: 255},
	}
	for x, w := range want {
		if got := img.RGBAAt(x, 0); got != w {
			t.Errorf("pixel %d = %v, want %v", x, got, w)
		}
	}
}

func TestDecodeTGA_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{0, 0, 2}},
		{"color mapped", func() []byte { h := makeTGAHeader(1, 1, 1, 8, 0); h[1] = 1; return h }()},
		{"bad type", makeTGAHeader(9, 1, 1, 24, 0)},
		{"bad depth", makeTGAHeader(TGATypeUncompressed, 1, 1, 16, 0)},
		{"zero size", makeTGAHeader(TGATypeUncompressed, 0, 1, 24, 0)},
		{"truncated pixels", append(makeTGAHeader(TGATypeUncompressed, 2, 2, 24, 0), 1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTGA(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestDecode_Formats(t *testing.T) {
	c := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	src := solid(4, 2, c)

	var pngBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, src); err != nil {
		t.Fatal(err)
	}
	tga := append(makeTGAHeader(TGATypeGray, 1, 1, 8, 0), 77)

	tests := []struct {
		name string
		data []byte
		w, h int
		want color.RGBA
	}{
		{"albedo.png", pngBuf.Bytes(), 4, 2, c},
		{"albedo.bmp", bmpBuf.Bytes(), 4, 2, c},
		{"mask.TGA", tga, 1, 1, color.RGBA{R: 77, G: 77, B: 77, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(tt.name, tt.data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if img.Rect.Dx() != tt.w || img.Rect.Dy() != tt.h {
				t.Fatalf("size = %v", img.Rect)
			}
			if got := img.RGBAAt(0, 0); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecode_Unknown(t *testing.T) {
	_, err := Decode("notes.txt", []byte("hello world"))
	if !errors.Is(err, ErrUnknownImageFormat) {
		t.Errorf("got %v, want ErrUnknownImageFormat", err)
	}
	if _, err := Decode("empty.png", nil); err == nil {
		t.Error("expected error for empty data")
	}
}

func TestKind(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(1, 1, color.RGBA{A: 255})); err != nil {
		t.Fatal(err)
	}
	if got := Kind(buf.Bytes()); got != "image/png" {
		t.Errorf("Kind(png) = %q", got)
	}
	if got := Kind([]byte("nope")); got != "" {
		t.Errorf("Kind(text) = %q", got)
	}
}

func TestToRGBA_RebasesOrigin(t *testing.T) {
	src := solid(4, 4, color.RGBA{G: 200, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	got := ToRGBA(sub)
	if got.Rect.Min != (image.Point{}) || got.Rect.Dx() != 2 {
		t.Errorf("rect = %v", got.Rect)
	}
	if got.RGBAAt(0, 0).G != 200 {
		t.Errorf("pixel = %v", got.RGBAAt(0, 0))
	}
	if ToRGBA(src) != src {
		t.Error("RGBA at origin should be returned as-is")
	}
}

func TestFlipVertical(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 3))
	for y := 0; y < 3; y++ {
		img.SetRGBA(0, y, color.RGBA{R: uint8(y), A: 255})
	}
	FlipVertical(img)
	for y := 0; y < 3; y++ {
		if got := img.RGBAAt(0, y).R; got != uint8(2-y) {
			t.Errorf("row %d = %d, want %d", y, got, 2-y)
		}
	}
}
