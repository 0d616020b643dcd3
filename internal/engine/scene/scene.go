package scene

import (
	"github.com/Faultbox/meshview/pkg/math"
)

// LightKind identifies a light type.
type LightKind uint8

const (
	LightHemisphere LightKind = iota
	LightDirectional
)

// Light is a scene light. Hemisphere lights use Color for the sky and
// GroundColor for the ground; directional lights shine from Position
// toward the origin.
type Light struct {
	Kind        LightKind
	Color       [3]float32
	GroundColor [3]float32
	Intensity   float32
	Position    math.Vec3
}

// Grid describes the ground reference grid on the XZ plane.
type Grid struct {
	Visible     bool
	Size        float32
	Divisions   int
	CenterColor [3]float32
	LineColor   [3]float32
}

// Scene is the root of everything the viewport draws. Imported models are
// attached under Models, never directly under Root.
type Scene struct {
	Root       *Node
	Models     *Node
	Background [3]float32
	Lights     []Light
	Grid       Grid

	// ShowBounds draws a wireframe box around the attached model.
	ShowBounds bool
}

// New creates a scene with the default preview lighting and grid.
func New() *Scene {
	root := NewGroup("root")
	models := NewGroup("models")
	root.Add(models)

	return &Scene{
		Root:       root,
		Models:     models,
		Background: HexColor(0x0d0d0f),
		Lights: []Light{
			{
				Kind:        LightHemisphere,
				Color:       HexColor(0xffffff),
				GroundColor: HexColor(0x2a2a2a),
				Intensity:   0.9,
			},
			{
				Kind:      LightDirectional,
				Color:     HexColor(0xffffff),
				Intensity: 1.1,
				Position:  math.Vec3{X: 3, Y: 6, Z: 4},
			},
			{
				Kind:      LightDirectional,
				Color:     HexColor(0xffffff),
				Intensity: 0.35,
				Position:  math.Vec3{X: -5, Y: 2, Z: -4},
			},
		},
		Grid: Grid{
			Visible:     true,
			Size:        10,
			Divisions:   10,
			CenterColor: HexColor(0x404040),
			LineColor:   HexColor(0x202020),
		},
	}
}

// Model returns the currently attached model, or nil.
func (s *Scene) Model() *Node {
	if len(s.Models.Children) == 0 {
		return nil
	}
	return s.Models.Children[0]
}

// HexColor converts 0xRRGGBB to float components in [0,1].
func HexColor(hex uint32) [3]float32 {
	return [3]float32{
		float32((hex>>16)&0xff) / 255,
		float32((hex>>8)&0xff) / 255,
		float32(hex&0xff) / 255,
	}
}
