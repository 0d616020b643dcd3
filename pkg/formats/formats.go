// Package formats provides low-level parsers for model file formats whose
// decoders are not available as Go libraries. Parsers return the file's
// own object model; converting it to a scene graph is left to callers.
package formats
