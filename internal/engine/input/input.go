// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType classifies a processed event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventMouseWheel
	EventDropFile
)

// Event represents a processed input event. Mouse coordinates are in
// logical window pixels.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Mod    sdl.Keymod
	Width  int
	Height int
	MouseX int
	MouseY int
	DX, DY int
	Wheel  float32
	Button uint8
	Path   string
}

// Input handles all input processing.
type Input struct {
	events []Event
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
	}
}

// Update polls SDL events and converts them to events.
// Returns true if the application should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	quit := false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			t := EventKeyUp
			if e.Type == sdl.KEYDOWN {
				t = EventKeyDown
			}
			i.events = append(i.events, Event{
				Type: t,
				Key:  e.Keysym.Scancode,
				Mod:  sdl.Keymod(e.Keysym.Mod),
			})

		case *sdl.MouseMotionEvent:
			i.events = append(i.events, Event{
				Type:   EventMouseMove,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				DX:     int(e.XRel),
				DY:     int(e.YRel),
			})

		case *sdl.MouseButtonEvent:
			t := EventMouseUp
			if e.Type == sdl.MOUSEBUTTONDOWN {
				t = EventMouseDown
			}
			i.events = append(i.events, Event{
				Type:   t,
				MouseX: int(e.X),
				MouseY: int(e.Y),
				Button: e.Button,
			})

		case *sdl.MouseWheelEvent:
			x, y, _ := sdl.GetMouseState()
			wheel := float32(e.Y)
			if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
				wheel = -wheel
			}
			i.events = append(i.events, Event{
				Type:   EventMouseWheel,
				MouseX: int(x),
				MouseY: int(y),
				Wheel:  wheel,
			})

		case *sdl.DropEvent:
			if e.Type == sdl.DROPFILE && e.File != "" {
				i.events = append(i.events, Event{Type: EventDropFile, Path: e.File})
			}
		}
	}

	return quit
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// WaitEvent blocks until an event is queued or timeoutMs elapses.
func WaitEvent(timeoutMs int) {
	if ev := sdl.WaitEventTimeout(timeoutMs); ev != nil {
		sdl.PushEvent(ev)
	}
}
