// Package scene provides the renderer-agnostic scene graph shared by the
// importers, the viewport session and the GL renderer.
//
// Every node is one of a closed set of kinds. Only mesh nodes carry
// releasable resources, so walking a graph never needs to inspect what a
// node looks like to decide what it owns.
package scene

import (
	"github.com/Faultbox/meshview/pkg/math"
)

// Kind tags what a node is.
type Kind uint8

const (
	KindGroup Kind = iota
	KindMesh
	KindJoint
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "Group"
	case KindMesh:
		return "Mesh"
	case KindJoint:
		return "Joint"
	default:
		return "Unknown"
	}
}

// Mesh is the capability carried by KindMesh nodes. A mesh with a single
// material has a one-element Materials list; Geometry.Groups index into it.
type Mesh struct {
	Geometry  *Geometry
	Materials []*Material

	CastShadow    bool
	ReceiveShadow bool
}

// Node is a scene graph node.
type Node struct {
	Name    string
	Kind    Kind
	Visible bool

	// Local transform relative to the parent.
	Transform math.Mat4

	// Set only for KindMesh.
	Mesh *Mesh

	Children []*Node
	parent   *Node
}

// NewGroup creates an empty group node.
func NewGroup(name string) *Node {
	return &Node{Name: name, Kind: KindGroup, Visible: true, Transform: math.Identity()}
}

// NewJoint creates a skeletal joint node.
func NewJoint(name string) *Node {
	return &Node{Name: name, Kind: KindJoint, Visible: true, Transform: math.Identity()}
}

// NewMesh creates a mesh node drawing geom with the given materials.
func NewMesh(name string, geom *Geometry, materials ...*Material) *Node {
	return &Node{
		Name:      name,
		Kind:      KindMesh,
		Visible:   true,
		Transform: math.Identity(),
		Mesh: &Mesh{
			Geometry:      geom,
			Materials:     materials,
			CastShadow:    true,
			ReceiveShadow: true,
		},
	}
}

// Parent returns the node this one is attached to, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Add attaches child under n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

// Remove detaches child from n. It reports whether child was attached here.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Traverse calls fn for n and every descendant, depth first, parents first.
func (n *Node) Traverse(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// WorldMatrix returns the node's transform composed with all of its ancestors.
func (n *Node) WorldMatrix() math.Mat4 {
	m := n.Transform
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Mul(m)
	}
	return m
}

// Bounds returns the world-space bounding box of all mesh geometry under n,
// hidden nodes included. A subtree without geometry yields an empty box.
func (n *Node) Bounds() math.Box3 {
	box := math.EmptyBox()
	n.Traverse(func(node *Node) {
		if node.Kind != KindMesh || node.Mesh == nil || node.Mesh.Geometry == nil {
			return
		}
		local := node.Mesh.Geometry.Bounds()
		if local.IsEmpty() {
			return
		}
		box = box.Union(local.Transform(node.WorldMatrix()))
	})
	return box
}

// Count returns how many nodes of each kind are in the subtree.
func (n *Node) Count() map[Kind]int {
	counts := make(map[Kind]int)
	n.Traverse(func(node *Node) {
		counts[node.Kind]++
	})
	return counts
}
