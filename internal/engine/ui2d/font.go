package ui2d

import (
	"image"
	"strings"
	"unicode/utf8"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Printable ASCII is baked into the atlas; anything else draws as '?'.
const (
	firstGlyph   = 32
	lastGlyph    = 126
	atlasColumns = 16
)

// Font is a fixed-width bitmap font baked into a GL texture atlas.
type Font struct {
	atlas   *image.RGBA
	glyphW  int
	glyphH  int
	texture uint32
}

// NewFont bakes basicfont.Face7x13 and uploads the atlas.
// Must be called with a current GL context.
func NewFont() *Font {
	f := newAtlas(basicfont.Face7x13)

	gl.GenTextures(1, &f.texture)
	gl.BindTexture(gl.TEXTURE_2D, f.texture)
	b := f.atlas.Bounds()
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&f.atlas.Pix[0]))
	// Nearest keeps integer-scaled glyphs crisp.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return f
}

// newAtlas rasterizes the printable ASCII range of face into a white
// atlas whose alpha channel is glyph coverage.
func newAtlas(face *basicfont.Face) *Font {
	count := lastGlyph - firstGlyph + 1
	rows := (count + atlasColumns - 1) / atlasColumns
	f := &Font{
		glyphW: face.Advance,
		glyphH: face.Height,
		atlas:  image.NewRGBA(image.Rect(0, 0, atlasColumns*face.Advance, rows*face.Height)),
	}

	d := font.Drawer{Dst: f.atlas, Src: image.White, Face: face}
	for r := rune(firstGlyph); r <= lastGlyph; r++ {
		x, y := f.cell(r)
		d.Dot = fixed.P(x, y+face.Ascent)
		d.DrawString(string(r))
	}
	return f
}

// cell returns the top-left pixel of r's atlas cell.
func (f *Font) cell(r rune) (x, y int) {
	if r < firstGlyph || r > lastGlyph {
		r = '?'
	}
	i := int(r - firstGlyph)
	return (i % atlasColumns) * f.glyphW, (i / atlasColumns) * f.glyphH
}

// GlyphSize returns the width and height of one glyph in pixels.
func (f *Font) GlyphSize() (int, int) {
	return f.glyphW, f.glyphH
}

// GetGlyphUV returns the atlas texture coordinates for r.
func (f *Font) GetGlyphUV(r rune) (u0, v0, u1, v1 float32) {
	x, y := f.cell(r)
	b := f.atlas.Bounds()
	w, h := float32(b.Dx()), float32(b.Dy())
	return float32(x) / w, float32(y) / h, float32(x+f.glyphW) / w, float32(y+f.glyphH) / h
}

// MeasureText returns the width and height of rendered text.
func (f *Font) MeasureText(text string, scale float32) (float32, float32) {
	if text == "" {
		return 0, 0
	}
	lines := strings.Split(text, "\n")
	widest := 0
	for _, l := range lines {
		widest = max(widest, utf8.RuneCountInString(l))
	}
	return float32(widest*f.glyphW) * scale, float32(len(lines)*f.glyphH) * scale
}

// TextureID returns the GL atlas texture.
func (f *Font) TextureID() uint32 {
	return f.texture
}

// Close releases the atlas texture.
func (f *Font) Close() {
	if f.texture != 0 {
		gl.DeleteTextures(1, &f.texture)
		f.texture = 0
	}
}

// wrapText breaks text into lines of at most width runes, preferring
// breaks at spaces. Explicit newlines are kept.
func wrapText(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > width {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				runes := []rune(word)
				out = append(out, string(runes[:width]))
				word = string(runes[width:])
			}
			switch {
			case line == "":
				line = word
			case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		out = append(out, line)
	}
	return out
}
