// FBX binary format parser for 3D models.
package formats

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// FBX format errors.
var (
	ErrInvalidFBXMagic       = errors.New("invalid FBX magic: expected 'Kaydara FBX Binary'")
	ErrASCIIFBX              = errors.New("ASCII FBX is not supported")
	ErrUnsupportedFBXVersion = errors.New("unsupported FBX version")
	ErrTruncatedFBXData      = errors.New("truncated FBX data")
	ErrInvalidFBXProperty    = errors.New("invalid FBX property")
)

const (
	fbxMagic        = "Kaydara FBX Binary  \x00"
	fbxHeaderSize   = 27
	fbxVersion64Bit = 7500
	fbxMinVersion   = 6100
	fbxMaxVersion   = 7999

	// Upper bound for a single decoded array, in bytes.
	fbxMaxArrayBytes = 1 << 30
)

// FBXProperty is a typed value attached to a node record.
// Type is the FBX type code: Y C I F D L S R for scalars and raw data,
// f d l i b for arrays.
type FBXProperty struct {
	Type  byte
	Value any
}

// Int returns an integer scalar, or 0.
func (p FBXProperty) Int() int64 {
	switch v := p.Value.(type) {
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

// Float returns a numeric scalar as float64, or 0.
func (p FBXProperty) Float() float64 {
	switch v := p.Value.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int16, int32, int64, bool:
		return float64(p.Int())
	}
	return 0
}

// String returns a string property, or "".
func (p FBXProperty) String() string {
	if s, ok := p.Value.(string); ok {
		return s
	}
	return ""
}

// Bytes returns a raw data property.
func (p FBXProperty) Bytes() []byte {
	if b, ok := p.Value.([]byte); ok {
		return b
	}
	return nil
}

// Float64s returns a float or double array widened to float64.
func (p FBXProperty) Float64s() []float64 {
	switch v := p.Value.(type) {
	case []float64:
		return v
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out
	}
	return nil
}

// Int32s returns an int32 array. int64 arrays are narrowed.
func (p FBXProperty) Int32s() []int32 {
	switch v := p.Value.(type) {
	case []int32:
		return v
	case []int64:
		out := make([]int32, len(v))
		for i, n := range v {
			out[i] = int32(n)
		}
		return out
	}
	return nil
}

// FBXNode is one node record of the FBX tree.
type FBXNode struct {
	Name       string
	Properties []FBXProperty
	Children   []*FBXNode
}

// Child returns the first child with the given name, or nil.
func (n *FBXNode) Child(name string) *FBXNode {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child with the given name.
func (n *FBXNode) ChildrenNamed(name string) []*FBXNode {
	if n == nil {
		return nil
	}
	var out []*FBXNode
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Prop returns property i, or a zero property if absent.
func (n *FBXNode) Prop(i int) FBXProperty {
	if n == nil || i < 0 || i >= len(n.Properties) {
		return FBXProperty{}
	}
	return n.Properties[i]
}

// FBXFile is a parsed binary FBX node tree.
type FBXFile struct {
	Version uint32
	Nodes   []*FBXNode
}

// Node returns the first top-level node with the given name, or nil.
func (f *FBXFile) Node(name string) *FBXNode {
	for _, n := range f.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// IsFBX reports whether data starts with the binary FBX magic.
func IsFBX(data []byte) bool {
	return len(data) >= len(fbxMagic) && string(data[:len(fbxMagic)]) == fbxMagic
}

// isASCIIFBX reports whether data looks like a text FBX file.
func isASCIIFBX(data []byte) bool {
	head := data[:min(len(data), 64)]
	return bytes.HasPrefix(bytes.TrimSpace(head), []byte("; FBX"))
}

// ParseFBX parses binary FBX data into its node tree.
func ParseFBX(data []byte) (*FBXFile, error) {
	if isASCIIFBX(data) {
		return nil, ErrASCIIFBX
	}
	if len(data) < fbxHeaderSize {
		return nil, ErrTruncatedFBXData
	}
	if !IsFBX(data) {
		return nil, ErrInvalidFBXMagic
	}

	f := &FBXFile{Version: binary.LittleEndian.Uint32(data[23:27])}
	if f.Version < fbxMinVersion || f.Version > fbxMaxVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFBXVersion, f.Version)
	}

	p := &fbxParser{r: bytes.NewReader(data), size: int64(len(data)), wide: f.Version >= fbxVersion64Bit}
	if _, err := p.r.Seek(fbxHeaderSize, io.SeekStart); err != nil {
		return nil, ErrTruncatedFBXData
	}

	for p.r.Len() > 0 {
		node, err := p.readNode()
		if err != nil {
			return nil, err
		}
		if node == nil {
			break
		}
		f.Nodes = append(f.Nodes, node)
	}
	return f, nil
}

type fbxParser struct {
	r    *bytes.Reader
	size int64
	wide bool
}

func (p *fbxParser) offset() int64 {
	return p.size - int64(p.r.Len())
}

func (p *fbxParser) read(v any) error {
	if err := binary.Read(p.r, binary.LittleEndian, v); err != nil {
		return ErrTruncatedFBXData
	}
	return nil
}

func (p *fbxParser) readWord() (uint64, error) {
	if p.wide {
		var v uint64
		err := p.read(&v)
		return v, err
	}
	var v uint32
	err := p.read(&v)
	return uint64(v), err
}

func (p *fbxParser) readBytes(n uint64) ([]byte, error) {
	if n > uint64(p.r.Len()) {
		return nil, ErrTruncatedFBXData
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.r, buf); err != nil {
		return nil, ErrTruncatedFBXData
	}
	return buf, nil
}

// readNode reads one node record. It returns nil at a null record.
func (p *fbxParser) readNode() (*FBXNode, error) {
	start := p.offset()

	endOffset, err := p.readWord()
	if err != nil {
		return nil, err
	}
	numProps, err := p.readWord()
	if err != nil {
		return nil, err
	}
	propListLen, err := p.readWord()
	if err != nil {
		return nil, err
	}
	var nameLen uint8
	if err := p.read(&nameLen); err != nil {
		return nil, err
	}

	if endOffset == 0 {
		return nil, nil
	}
	if int64(endOffset) <= start || int64(endOffset) > p.size {
		return nil, fmt.Errorf("%w: record at %d ends at %d", ErrTruncatedFBXData, start, endOffset)
	}

	name, err := p.readBytes(uint64(nameLen))
	if err != nil {
		return nil, err
	}
	node := &FBXNode{Name: string(name)}

	propsStart := p.offset()
	for i := uint64(0); i < numProps; i++ {
		prop, err := p.readProperty()
		if err != nil {
			return nil, fmt.Errorf("%s property %d: %w", node.Name, i, err)
		}
		node.Properties = append(node.Properties, prop)
	}
	if got := uint64(p.offset() - propsStart); got != propListLen {
		return nil, fmt.Errorf("%w: %s property list is %d bytes, header says %d",
			ErrInvalidFBXProperty, node.Name, got, propListLen)
	}

	for p.offset() < int64(endOffset) {
		child, err := p.readNode()
		if err != nil {
			return nil, err
		}
		if child == nil {
			break
		}
		node.Children = append(node.Children, child)
	}

	if _, err := p.r.Seek(int64(endOffset), io.SeekStart); err != nil {
		return nil, ErrTruncatedFBXData
	}
	return node, nil
}

func (p *fbxParser) readProperty() (FBXProperty, error) {
	var code byte
	if err := p.read(&code); err != nil {
		return FBXProperty{}, err
	}
	prop := FBXProperty{Type: code}

	switch code {
	case 'Y':
		var v int16
		err := p.read(&v)
		prop.Value = v
		return prop, err
	case 'C':
		var v uint8
		err := p.read(&v)
		prop.Value = v != 0
		return prop, err
	case 'I':
		var v int32
		err := p.read(&v)
		prop.Value = v
		return prop, err
	case 'F':
		var v float32
		err := p.read(&v)
		prop.Value = v
		return prop, err
	case 'D':
		var v float64
		err := p.read(&v)
		prop.Value = v
		return prop, err
	case 'L':
		var v int64
		err := p.read(&v)
		prop.Value = v
		return prop, err
	case 'S', 'R':
		var n uint32
		if err := p.read(&n); err != nil {
			return prop, err
		}
		raw, err := p.readBytes(uint64(n))
		if err != nil {
			return prop, err
		}
		if code == 'S' {
			prop.Value = string(raw)
		} else {
			prop.Value = raw
		}
		return prop, nil
	case 'f', 'd', 'l', 'i', 'b':
		v, err := p.readArray(code)
		prop.Value = v
		return prop, err
	default:
		return prop, fmt.Errorf("%w: type code %q", ErrInvalidFBXProperty, code)
	}
}

func fbxElemSize(code byte) int {
	switch code {
	case 'f', 'i':
		return 4
	case 'd', 'l':
		return 8
	default:
		return 1
	}
}

func (p *fbxParser) readArray(code byte) (any, error) {
	var header struct {
		Length         uint32
		Encoding       uint32
		CompressedSize uint32
	}
	if err := p.read(&header); err != nil {
		return nil, err
	}

	elem := fbxElemSize(code)
	size := uint64(header.Length) * uint64(elem)
	if size > fbxMaxArrayBytes {
		return nil, fmt.Errorf("%w: array of %d elements", ErrInvalidFBXProperty, header.Length)
	}

	raw, err := p.readBytes(uint64(header.CompressedSize))
	if err != nil {
		return nil, err
	}

	switch header.Encoding {
	case 0:
	case 1:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrInvalidFBXProperty, err)
		}
		inflated := make([]byte, size)
		if _, err := io.ReadFull(zr, inflated); err != nil {
			return nil, fmt.Errorf("%w: zlib: %v", ErrInvalidFBXProperty, err)
		}
		raw = inflated
	default:
		return nil, fmt.Errorf("%w: array encoding %d", ErrInvalidFBXProperty, header.Encoding)
	}
	if uint64(len(raw)) < size {
		return nil, ErrTruncatedFBXData
	}

	n := int(header.Length)
	le := binary.LittleEndian
	switch code {
	case 'f':
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(le.Uint32(raw[i*4:]))
		}
		return out, nil
	case 'd':
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(le.Uint64(raw[i*8:]))
		}
		return out, nil
	case 'i':
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(le.Uint32(raw[i*4:]))
		}
		return out, nil
	case 'l':
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(le.Uint64(raw[i*8:]))
		}
		return out, nil
	default:
		out := make([]bool, n)
		for i := range out {
			out[i] = raw[i] != 0
		}
		return out, nil
	}
}
