package ui2d

import "fmt"

// Layout constants in logical pixels.
const (
	textScale   = float32(1)
	titleBarH   = float32(24)
	padding     = float32(8)
	spacing     = float32(4)
	buttonH     = float32(24)
	selectableH = float32(18)
	checkboxBox = float32(14)
)

// Canvas is the drawing surface widgets emit quads to. *Renderer
// implements it.
type Canvas interface {
	DrawRect(x, y, width, height float32, color Color)
	DrawRectOutline(x, y, width, height, thickness float32, color Color)
	DrawText(x, y float32, text string, scale float32, color Color)
	MeasureText(text string, scale float32) (float32, float32)
}

// Context is the main UI context that manages rendering and input.
type Context struct {
	canvas   Canvas
	renderer *Renderer
	input    *InputState

	activeWidget string

	current *Panel
	listBox *Rect

	// Layout state
	cursorX float32
	cursorY float32
	rowH    float32
}

// Panel is a fixed rectangular container widgets are laid out in.
type Panel struct {
	ID string
	Rect
}

// NewContext creates a UI context with its own GL renderer.
func NewContext(width, height int) (*Context, error) {
	r, err := New(width, height)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	c := newContext(r)
	c.renderer = r
	return c, nil
}

func newContext(canvas Canvas) *Context {
	return &Context{canvas: canvas, input: &InputState{}}
}

// Close releases resources.
func (c *Context) Close() {
	if c.renderer != nil {
		c.renderer.Close()
	}
}

// Resize updates the screen size.
func (c *Context) Resize(width, height int) {
	if c.renderer != nil {
		c.renderer.Resize(width, height)
	}
}

// Input returns the input state for modification.
func (c *Context) Input() *InputState {
	return c.input
}

// Begin starts a new UI frame.
func (c *Context) Begin() {
	c.input.Update()
	if c.renderer != nil {
		c.renderer.Begin()
	}
}

// End finishes the UI frame.
func (c *Context) End() {
	if c.renderer != nil {
		c.renderer.End()
	}
	c.input.EndFrame()
}

// BeginPanel starts a panel with a title bar.
func (c *Context) BeginPanel(id string, r Rect, title string) {
	c.current = &Panel{ID: id, Rect: r}

	c.canvas.DrawRect(r.X, r.Y, r.W, r.H, ColorPanelBg)
	c.canvas.DrawRectOutline(r.X, r.Y, r.W, r.H, 1, ColorPanelBorder)
	c.canvas.DrawRect(r.X+1, r.Y+1, r.W-2, titleBarH-1, ColorButtonNormal)

	_, textH := c.canvas.MeasureText(title, textScale)
	c.canvas.DrawText(r.X+padding, r.Y+(titleBarH-textH)/2, title, textScale, ColorText)

	c.cursorX = r.X + padding
	c.cursorY = r.Y + titleBarH + padding
	c.rowH = 0
}

// EndPanel ends the current panel.
func (c *Context) EndPanel() {
	c.current = nil
}

// contentWidth is the usable width inside the panel or list box.
func (c *Context) contentWidth() float32 {
	if c.listBox != nil {
		return c.listBox.W - padding
	}
	return c.current.W - padding*2
}

func (c *Context) left() float32 {
	if c.listBox != nil {
		return c.listBox.X + spacing
	}
	return c.current.X + padding
}

// Row starts a new row with the given height.
func (c *Context) Row(height float32) {
	if c.current == nil {
		return
	}
	c.cursorX = c.left()
	c.cursorY += c.rowH + spacing
	c.rowH = height
}

// Cursor returns the current layout position.
func (c *Context) Cursor() (x, y float32) {
	return c.cursorX, c.cursorY
}

// Button draws a button and returns true if clicked.
// Width 0 fills the remaining row.
func (c *Context) Button(id string, width float32, label string) bool {
	if c.current == nil {
		return false
	}

	x, y := c.cursorX, c.cursorY
	h := c.rowH
	if h == 0 {
		h = buttonH
	}
	if width == 0 {
		width = c.left() + c.contentWidth() - x
	}

	fullID := c.current.ID + "_" + id
	rect := Rect{x, y, width, h}

	// Click on press for better responsiveness
	hovered := c.input.IsMouseInRect(rect)
	clicked := false
	if hovered && c.input.MouseLeftPressed {
		c.activeWidget = fullID
		clicked = true
		// Consume the press so only one widget gets it
		c.input.MouseLeftPressed = false
	}
	if c.activeWidget == fullID && c.input.MouseLeftReleased {
		c.activeWidget = ""
	}

	color := ColorButtonNormal
	if c.activeWidget == fullID {
		color = ColorButtonActive
	} else if hovered {
		color = ColorButtonHover
	}
	c.canvas.DrawRect(x, y, width, h, color)
	c.canvas.DrawRectOutline(x, y, width, h, 1, ColorPanelBorder)
	c.centerText(rect, label, ColorText)

	c.cursorX += width + spacing
	return clicked
}

// ButtonDisabled draws a disabled button (no interaction).
func (c *Context) ButtonDisabled(width float32, label string) {
	if c.current == nil {
		return
	}

	x, y := c.cursorX, c.cursorY
	h := c.rowH
	if h == 0 {
		h = buttonH
	}
	if width == 0 {
		width = c.left() + c.contentWidth() - x
	}

	c.canvas.DrawRect(x, y, width, h, ColorButtonNormal.Darken(0.3))
	c.canvas.DrawRectOutline(x, y, width, h, 1, ColorPanelBorder.Darken(0.3))
	c.centerText(Rect{x, y, width, h}, label, ColorTextDim)

	c.cursorX += width + spacing
}

func (c *Context) centerText(r Rect, text string, color Color) {
	textW, textH := c.canvas.MeasureText(text, textScale)
	c.canvas.DrawText(r.X+(r.W-textW)/2, r.Y+(r.H-textH)/2, text, textScale, color)
}

// Label draws a text label.
func (c *Context) Label(text string) {
	c.LabelColored(text, ColorText)
}

// LabelColored draws a text label with a specific color.
func (c *Context) LabelColored(text string, color Color) {
	if c.current == nil {
		return
	}
	c.canvas.DrawText(c.cursorX, c.cursorY, text, textScale, color)
	w, _ := c.canvas.MeasureText(text, textScale)
	c.cursorX += w + spacing
}

// LabelWrapped draws text broken into lines that fit the panel and moves
// the cursor below it. Returns the number of lines drawn.
func (c *Context) LabelWrapped(text string, color Color) int {
	if c.current == nil {
		return 0
	}
	glyphW, glyphH := c.canvas.MeasureText("M", textScale)
	lines := wrapText(text, int(c.contentWidth()/glyphW))
	for _, line := range lines {
		c.canvas.DrawText(c.left(), c.cursorY, line, textScale, color)
		c.cursorY += glyphH
	}
	c.cursorX = c.left()
	c.rowH = 0
	return len(lines)
}

// LabelCentered draws text centered in the panel.
func (c *Context) LabelCentered(text string, color Color) {
	if c.current == nil {
		return
	}
	textW, _ := c.canvas.MeasureText(text, textScale)
	x := max(c.left()+(c.contentWidth()-textW)/2, c.left())
	c.canvas.DrawText(x, c.cursorY, text, textScale, color)
}

// Spacer adds vertical space.
func (c *Context) Spacer(height float32) {
	c.cursorY += height
}

// Separator draws a horizontal separator line.
func (c *Context) Separator() {
	if c.current == nil {
		return
	}
	c.cursorY += c.rowH + spacing
	c.rowH = 0
	c.canvas.DrawRect(c.left(), c.cursorY, c.contentWidth(), 1, ColorPanelBorder)
	c.cursorY += padding
	c.cursorX = c.left()
}

// Checkbox draws a checkbox and returns the new value. It toggles when the
// mouse is released over the box it was pressed on.
func (c *Context) Checkbox(id string, label string, checked bool) bool {
	if c.current == nil {
		return checked
	}

	x, y := c.cursorX, c.cursorY
	fullID := c.current.ID + "_" + id
	labelW, textH := c.canvas.MeasureText(label, textScale)
	// The label is part of the hit area.
	rect := Rect{x, y, checkboxBox + padding + labelW, max(checkboxBox, textH)}

	hovered := c.input.IsMouseInRect(rect)
	if hovered && c.input.MouseLeftPressed {
		c.activeWidget = fullID
		c.input.MouseLeftPressed = false
	}
	if c.activeWidget == fullID && c.input.MouseLeftReleased {
		if hovered {
			checked = !checked
		}
		c.activeWidget = ""
	}

	bg := ColorInputBg
	if hovered {
		bg = ColorButtonHover
	}
	c.canvas.DrawRect(x, y, checkboxBox, checkboxBox, bg)
	c.canvas.DrawRectOutline(x, y, checkboxBox, checkboxBox, 1, ColorPanelBorder)
	if checked {
		inner := float32(3)
		c.canvas.DrawRect(x+inner, y+inner, checkboxBox-inner*2, checkboxBox-inner*2, ColorHighlight)
	}
	c.canvas.DrawText(x+checkboxBox+padding, y+(checkboxBox-textH)/2, label, textScale, ColorText)

	c.cursorX += rect.W + padding
	return checked
}

// BeginListBox starts a list box region of the given height.
func (c *Context) BeginListBox(height float32) {
	if c.current == nil {
		return
	}
	x := c.current.X + padding
	y := c.cursorY + c.rowH
	w := c.current.W - padding*2

	c.canvas.DrawRect(x, y, w, height, ColorInputBg)
	c.canvas.DrawRectOutline(x, y, w, height, 1, ColorPanelBorder)

	c.listBox = &Rect{x, y, w, height}
	c.cursorX = x + spacing
	c.cursorY = y + spacing
	c.rowH = 0
}

// EndListBox ends a list box region.
func (c *Context) EndListBox() {
	if c.current == nil || c.listBox == nil {
		return
	}
	c.cursorY = c.listBox.Y + c.listBox.H
	c.listBox = nil
	c.cursorX = c.left()
	c.rowH = 0
}

// Selectable draws a full-width item and returns true if clicked. Items
// that would overflow a list box are skipped.
func (c *Context) Selectable(label string, selected bool) bool {
	if c.current == nil {
		return false
	}

	x, y := c.cursorX, c.cursorY
	width := c.contentWidth()
	if c.listBox != nil && y+selectableH > c.listBox.Y+c.listBox.H {
		return false
	}

	rect := Rect{x, y, width, selectableH}
	hovered := c.input.IsMouseInRect(rect)
	clicked := false
	if hovered && c.input.MouseLeftPressed {
		clicked = true
		c.input.MouseLeftPressed = false
	}

	switch {
	case selected:
		c.canvas.DrawRect(x, y, width, selectableH, ColorHighlight.WithAlpha(0.5))
	case hovered:
		c.canvas.DrawRect(x, y, width, selectableH, ColorButtonHover)
	}

	_, textH := c.canvas.MeasureText(label, textScale)
	c.canvas.DrawText(x+spacing, y+(selectableH-textH)/2, label, textScale, ColorText)

	c.cursorX = c.left()
	c.cursorY += selectableH
	return clicked
}

// Rect is a simple rectangle struct.
type Rect struct {
	X, Y, W, H float32
}

// Contains checks if a point is inside the rectangle.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}
