package main

import (
	"path/filepath"
	"strings"
)

// modelExtensions are the file types the viewer opens. The importer also
// decodes glTF, which stays available through meshtool.
var modelExtensions = []string{".fbx"}

// acceptsModel reports whether path has an extension the viewer opens.
func acceptsModel(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range modelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// dialogExtensions returns modelExtensions without the leading dot.
func dialogExtensions() []string {
	out := make([]string, 0, len(modelExtensions))
	for _, e := range modelExtensions {
		out = append(out, strings.TrimPrefix(e, "."))
	}
	return out
}
