package ui2d

// Color represents an RGBA color with float components (0.0 to 1.0).
type Color struct {
	R, G, B, A float32
}

// Predefined colors for UI theming.
var (
	ColorTransparent = Color{0, 0, 0, 0}
	ColorWhite       = Color{1, 1, 1, 1}

	// Sidebar theme, tuned against the 0x0d0d0f viewport background.
	ColorPanelBg      = Color{0.07, 0.07, 0.08, 1}
	ColorPanelBorder  = Color{0.22, 0.22, 0.25, 1}
	ColorButtonNormal = Color{0.14, 0.14, 0.16, 1}
	ColorButtonHover  = Color{0.2, 0.2, 0.24, 1}
	ColorButtonActive = Color{0.1, 0.3, 0.5, 1}
	ColorInputBg      = Color{0.04, 0.04, 0.05, 1}
	ColorText         = Color{0.9, 0.9, 0.9, 1}
	ColorTextDim      = Color{0.5, 0.5, 0.55, 1}
	ColorHighlight    = Color{0.2, 0.6, 0.9, 1}
	ColorError        = Color{0.95, 0.4, 0.35, 1}
)

// RGB creates a color from 8-bit RGB values with full alpha.
func RGB(r, g, b uint8) Color {
	return Color{
		R: float32(r) / 255.0,
		G: float32(g) / 255.0,
		B: float32(b) / 255.0,
		A: 1.0,
	}
}

// WithAlpha returns a copy of the color with a different alpha value.
func (c Color) WithAlpha(a float32) Color {
	return Color{c.R, c.G, c.B, a}
}

// Darken returns a darker version of the color.
func (c Color) Darken(factor float32) Color {
	return Color{
		R: c.R * (1 - factor),
		G: c.G * (1 - factor),
		B: c.B * (1 - factor),
		A: c.A,
	}
}
