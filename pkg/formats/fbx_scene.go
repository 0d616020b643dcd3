package formats

import (
	"strings"
)

// FBXModel is a scene object: a mesh, a skeleton bone or a plain transform.
type FBXModel struct {
	ID    int64
	Name  string
	Class string // "Mesh", "LimbNode", "Root", "Null", ...

	Translation [3]float64
	Rotation    [3]float64 // Euler XYZ, degrees
	PreRotation [3]float64
	Scaling     [3]float64

	Parent    int64 // 0 for scene root
	Geometry  int64
	Materials []int64
}

// IsJoint reports whether the model is a skeleton bone.
func (m *FBXModel) IsJoint() bool {
	return m.Class == "LimbNode" || m.Class == "Root" || m.Class == "Limb"
}

// FBXLayer is one per-vertex attribute layer.
type FBXLayer struct {
	Mapping   string // "ByPolygonVertex", "ByVertice", "ByPolygon", "AllSame"
	Reference string // "Direct", "IndexToDirect"
	Values    []float64
	Index     []int32
}

// FBXGeometry is mesh geometry with polygon topology.
type FBXGeometry struct {
	ID                 int64
	Name               string
	Vertices           []float64
	PolygonVertexIndex []int32

	Normals *FBXLayer
	UVs     *FBXLayer

	MaterialMapping string
	MaterialIndex   []int32
}

// Polygon is a range of polygon-vertex slots in PolygonVertexIndex.
type Polygon struct {
	Start int
	Count int
}

// Polygons splits PolygonVertexIndex at its negative end markers.
func (g *FBXGeometry) Polygons() []Polygon {
	var polys []Polygon
	start := 0
	for i, idx := range g.PolygonVertexIndex {
		if idx < 0 {
			polys = append(polys, Polygon{Start: start, Count: i - start + 1})
			start = i + 1
		}
	}
	return polys
}

// VertexAt returns the control point index for polygon-vertex slot i.
func (g *FBXGeometry) VertexAt(i int) int {
	idx := g.PolygonVertexIndex[i]
	if idx < 0 {
		idx = ^idx
	}
	return int(idx)
}

// MaterialFor returns the material slot of polygon p.
func (g *FBXGeometry) MaterialFor(p int) int {
	switch {
	case len(g.MaterialIndex) == 0:
		return 0
	case g.MaterialMapping == "AllSame":
		return int(g.MaterialIndex[0])
	case p < len(g.MaterialIndex):
		return int(g.MaterialIndex[p])
	default:
		return 0
	}
}

// FBXMaterial is a surface material.
type FBXMaterial struct {
	ID            int64
	Name          string
	DiffuseColor  [3]float64
	EmissiveColor [3]float64
	Opacity       float64

	// Texture ids by material property ("DiffuseColor", "NormalMap", ...).
	Textures map[string]int64
}

// FBXTexture references an image, embedded through a Video or on disk.
type FBXTexture struct {
	ID               int64
	Name             string
	FileName         string
	RelativeFilename string
	Video            int64
}

// FBXVideo holds embedded image content.
type FBXVideo struct {
	ID               int64
	Name             string
	RelativeFilename string
	Content          []byte
}

// FBXConnection links a child object to a parent object or to one of the
// parent's properties.
type FBXConnection struct {
	Kind     string // "OO" or "OP"
	Child    int64
	Parent   int64
	Property string
}

// FBXScene is the object graph of an FBX file.
type FBXScene struct {
	Version     uint32
	Models      map[int64]*FBXModel
	Geometries  map[int64]*FBXGeometry
	Materials   map[int64]*FBXMaterial
	Textures    map[int64]*FBXTexture
	Videos      map[int64]*FBXVideo
	Connections []FBXConnection

	// ModelOrder lists model ids in file order.
	ModelOrder []int64
}

// DecodeFBX parses binary FBX data and resolves its objects and connections.
func DecodeFBX(data []byte) (*FBXScene, error) {
	f, err := ParseFBX(data)
	if err != nil {
		return nil, err
	}
	return BuildFBXScene(f), nil
}

// BuildFBXScene resolves the Objects and Connections sections of a parsed file.
func BuildFBXScene(f *FBXFile) *FBXScene {
	s := &FBXScene{
		Version:    f.Version,
		Models:     make(map[int64]*FBXModel),
		Geometries: make(map[int64]*FBXGeometry),
		Materials:  make(map[int64]*FBXMaterial),
		Textures:   make(map[int64]*FBXTexture),
		Videos:     make(map[int64]*FBXVideo),
	}

	for _, obj := range f.Node("Objects").childrenOrNil() {
		id := obj.Prop(0).Int()
		name := fbxObjectName(obj.Prop(1).String())
		switch obj.Name {
		case "Model":
			m := &FBXModel{ID: id, Name: name, Class: obj.Prop(2).String(), Scaling: [3]float64{1, 1, 1}}
			props := obj.Child("Properties70")
			m.Translation = fbxVec3(props, "Lcl Translation", m.Translation)
			m.Rotation = fbxVec3(props, "Lcl Rotation", m.Rotation)
			m.PreRotation = fbxVec3(props, "PreRotation", m.PreRotation)
			m.Scaling = fbxVec3(props, "Lcl Scaling", m.Scaling)
			s.Models[id] = m
			s.ModelOrder = append(s.ModelOrder, id)
		case "Geometry":
			if obj.Prop(2).String() != "Mesh" && obj.Child("Vertices") == nil {
				continue
			}
			s.Geometries[id] = buildFBXGeometry(id, name, obj)
		case "Material":
			props := obj.Child("Properties70")
			m := &FBXMaterial{ID: id, Name: name, Opacity: 1, Textures: make(map[string]int64)}
			m.DiffuseColor = fbxVec3(props, "DiffuseColor", [3]float64{0.8, 0.8, 0.8})
			m.DiffuseColor = fbxVec3(props, "Diffuse", m.DiffuseColor)
			m.EmissiveColor = fbxVec3(props, "EmissiveColor", m.EmissiveColor)
			if p := fbxProperty(props, "Opacity"); p != nil {
				m.Opacity = p.Prop(4).Float()
			}
			s.Materials[id] = m
		case "Texture":
			s.Textures[id] = &FBXTexture{
				ID:               id,
				Name:             name,
				FileName:         obj.Child("FileName").Prop(0).String(),
				RelativeFilename: obj.Child("RelativeFilename").Prop(0).String(),
			}
		case "Video":
			s.Videos[id] = &FBXVideo{
				ID:               id,
				Name:             name,
				RelativeFilename: obj.Child("RelativeFilename").Prop(0).String(),
				Content:          obj.Child("Content").Prop(0).Bytes(),
			}
		}
	}

	for _, c := range f.Node("Connections").ChildrenNamed("C") {
		s.Connections = append(s.Connections, FBXConnection{
			Kind:     c.Prop(0).String(),
			Child:    c.Prop(1).Int(),
			Parent:   c.Prop(2).Int(),
			Property: c.Prop(3).String(),
		})
	}
	s.link()
	return s
}

// link applies connections to the typed objects.
func (s *FBXScene) link() {
	for _, c := range s.Connections {
		parentModel := s.Models[c.Parent]
		switch {
		case s.Models[c.Child] != nil:
			if parentModel != nil {
				s.Models[c.Child].Parent = c.Parent
			}
		case s.Geometries[c.Child] != nil:
			if parentModel != nil {
				parentModel.Geometry = c.Child
			}
		case s.Materials[c.Child] != nil:
			if parentModel != nil {
				parentModel.Materials = append(parentModel.Materials, c.Child)
			}
		case s.Textures[c.Child] != nil:
			if mat := s.Materials[c.Parent]; mat != nil {
				prop := c.Property
				if prop == "" {
					prop = "DiffuseColor"
				}
				mat.Textures[prop] = c.Child
			}
		case s.Videos[c.Child] != nil:
			if tex := s.Textures[c.Parent]; tex != nil {
				tex.Video = c.Child
			}
		}
	}
}

// Children returns the ids of models parented to parent (0 for root), in
// file order.
func (s *FBXScene) Children(parent int64) []int64 {
	var out []int64
	for _, id := range s.ModelOrder {
		if s.Models[id].Parent == parent {
			out = append(out, id)
		}
	}
	return out
}

func buildFBXGeometry(id int64, name string, obj *FBXNode) *FBXGeometry {
	g := &FBXGeometry{
		ID:                 id,
		Name:               name,
		Vertices:           obj.Child("Vertices").Prop(0).Float64s(),
		PolygonVertexIndex: obj.Child("PolygonVertexIndex").Prop(0).Int32s(),
	}
	if n := obj.Child("LayerElementNormal"); n != nil {
		g.Normals = &FBXLayer{
			Mapping:   n.Child("MappingInformationType").Prop(0).String(),
			Reference: n.Child("ReferenceInformationType").Prop(0).String(),
			Values:    n.Child("Normals").Prop(0).Float64s(),
			Index:     n.Child("NormalsIndex").Prop(0).Int32s(),
		}
	}
	if uv := obj.Child("LayerElementUV"); uv != nil {
		g.UVs = &FBXLayer{
			Mapping:   uv.Child("MappingInformationType").Prop(0).String(),
			Reference: uv.Child("ReferenceInformationType").Prop(0).String(),
			Values:    uv.Child("UV").Prop(0).Float64s(),
			Index:     uv.Child("UVIndex").Prop(0).Int32s(),
		}
	}
	if m := obj.Child("LayerElementMaterial"); m != nil {
		g.MaterialMapping = m.Child("MappingInformationType").Prop(0).String()
		g.MaterialIndex = m.Child("Materials").Prop(0).Int32s()
	}
	return g
}

// Lookup returns the value slot for polygon-vertex slot pv whose control
// point is vertex, honouring the layer's mapping and reference modes.
// It returns -1 when the layer has no value for that slot.
func (l *FBXLayer) Lookup(pv, vertex, polygon int) int {
	var i int
	switch l.Mapping {
	case "ByPolygonVertex":
		i = pv
	case "ByVertice", "ByVertex", "ByControlPoint":
		i = vertex
	case "ByPolygon":
		i = polygon
	case "AllSame":
		i = 0
	default:
		i = pv
	}
	if l.Reference == "IndexToDirect" || l.Reference == "Index" {
		if i < 0 || i >= len(l.Index) {
			return -1
		}
		i = int(l.Index[i])
	}
	if i < 0 {
		return -1
	}
	return i
}

func (n *FBXNode) childrenOrNil() []*FBXNode {
	if n == nil {
		return nil
	}
	return n.Children
}

// fbxObjectName strips the "\x00\x01Class" suffix from object names.
func fbxObjectName(raw string) string {
	if i := strings.Index(raw, "\x00\x01"); i >= 0 {
		return raw[:i]
	}
	if i := strings.Index(raw, "::"); i >= 0 {
		return raw[i+2:]
	}
	return raw
}

// fbxProperty finds a P entry by name in a Properties70 node.
func fbxProperty(props *FBXNode, name string) *FBXNode {
	for _, p := range props.ChildrenNamed("P") {
		if p.Prop(0).String() == name {
			return p
		}
	}
	return nil
}

func fbxVec3(props *FBXNode, name string, def [3]float64) [3]float64 {
	p := fbxProperty(props, name)
	if p == nil || len(p.Properties) < 7 {
		return def
	}
	return [3]float64{p.Prop(4).Float(), p.Prop(5).Float(), p.Prop(6).Float()}
}
