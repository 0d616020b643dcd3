package texture

import (
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeGray         = 3  // Uncompressed grayscale
	TGATypeRLE          = 10 // RLE compressed true-color
	TGATypeGrayRLE      = 11 // RLE compressed grayscale
)

// DecodeTGA decodes a TGA image file.
// Supports true-color (24/32 bit) and grayscale (8 bit) images, raw or RLE
// compressed. Color-mapped TGA is rejected.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	gray := imageType == TGATypeGray || imageType == TGATypeGrayRLE
	switch {
	case imageType != TGATypeUncompressed && imageType != TGATypeRLE && !gray:
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	case gray && bpp != 8:
		return nil, fmt.Errorf("unsupported grayscale TGA bit depth %d", bpp)
	case !gray && bpp != 24 && bpp != 32:
		return nil, fmt.Errorf("unsupported TGA bit depth %d (only 24/32 supported)", bpp)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("TGA has zero size %dx%d", width, height)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	d := tgaDecoder{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		pixels:      data[offset:],
		width:       width,
		height:      height,
		bpp:         bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}

	if imageType == TGATypeUncompressed || imageType == TGATypeGray {
		if len(d.pixels) < width*height*d.bpp {
			return nil, fmt.Errorf("TGA pixel data truncated")
		}
		for i := 0; i < width*height; i++ {
			d.set(i, d.color(i*d.bpp))
		}
		return d.img, nil
	}

	d.decodeRLE()
	return d.img, nil
}

type tgaDecoder struct {
	img         *image.RGBA
	pixels      []byte
	width       int
	height      int
	bpp         int
	topToBottom bool
}

// color reads the BGR(A) or gray pixel at byte offset i.
func (d *tgaDecoder) color(i int) color.RGBA {
	p := d.pixels[i:]
	if d.bpp == 1 {
		return color.RGBA{R: p[0], G: p[0], B: p[0], A: 255}
	}
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bpp == 4 {
		c.A = p[3]
	}
	return c
}

// set stores pixel number n of the file's scanline order.
func (d *tgaDecoder) set(n int, c color.RGBA) {
	x, y := n%d.width, n/d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetRGBA(x, y, c)
}

// decodeRLE decodes RLE packets. A truncated stream leaves the remaining
// pixels transparent.
func (d *tgaDecoder) decodeRLE() {
	total := d.width * d.height
	n, at := 0, 0
	for n < total && at < len(d.pixels) {
		packet := d.pixels[at]
		at++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if at+d.bpp > len(d.pixels) {
				return
			}
			c := d.color(at)
			at += d.bpp
			for i := 0; i < count && n < total; i++ {
				d.set(n, c)
				n++
			}
			continue
		}

		for i := 0; i < count && n < total; i++ {
			if at+d.bpp > len(d.pixels) {
				return
			}
			d.set(n, d.color(at))
			at += d.bpp
			n++
		}
	}
}
