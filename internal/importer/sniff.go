package importer

import (
	"bytes"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	"github.com/Faultbox/meshview/pkg/formats"
)

// Model file types known to the sniffer.
var (
	TypeFBX  = filetype.NewType("fbx", "application/vnd.autodesk.fbx")
	TypeGLB  = filetype.NewType("glb", "model/gltf-binary")
	TypeGLTF = filetype.NewType("gltf", "model/gltf+json")
)

func init() {
	filetype.AddMatcher(TypeFBX, matchFBX)
	filetype.AddMatcher(TypeGLB, matchGLB)
	filetype.AddMatcher(TypeGLTF, matchGLTF)
}

func matchFBX(buf []byte) bool {
	return formats.IsFBX(buf) || bytes.HasPrefix(bytes.TrimSpace(head(buf)), []byte("; FBX"))
}

func matchGLB(buf []byte) bool {
	return len(buf) >= 12 && bytes.Equal(buf[:4], []byte("glTF"))
}

// matchGLTF looks for a JSON object with an "asset" member near the start.
func matchGLTF(buf []byte) bool {
	h := bytes.TrimSpace(head(buf))
	return len(h) > 0 && h[0] == '{' && bytes.Contains(h, []byte(`"asset"`))
}

func head(buf []byte) []byte {
	return buf[:min(len(buf), 512)]
}

// Sniff returns the model type of data, or types.Unknown.
func Sniff(data []byte) types.Type {
	for _, t := range []types.Type{TypeFBX, TypeGLB, TypeGLTF} {
		if filetype.IsType(data, t) {
			return t
		}
	}
	return types.Unknown
}
