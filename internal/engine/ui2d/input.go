package ui2d

// InputState holds the current input state for the UI. The host writes
// the raw fields from window events; Update derives the edges.
type InputState struct {
	// Mouse position in logical pixels.
	MouseX float32
	MouseY float32

	MouseLeftDown bool

	// Edges, valid for the current frame.
	MouseLeftPressed  bool
	MouseLeftReleased bool

	ScrollY float32

	prevMouseLeft bool
}

// Update prepares input state for a new frame.
// Call this at the start of each frame after updating raw input values.
func (i *InputState) Update() {
	i.MouseLeftPressed = i.MouseLeftDown && !i.prevMouseLeft
	i.MouseLeftReleased = !i.MouseLeftDown && i.prevMouseLeft
	i.prevMouseLeft = i.MouseLeftDown
}

// EndFrame clears per-frame input state.
func (i *InputState) EndFrame() {
	i.ScrollY = 0
}

// IsMouseInRect checks if the mouse is within a rectangle.
func (i *InputState) IsMouseInRect(r Rect) bool {
	return r.Contains(i.MouseX, i.MouseY)
}
