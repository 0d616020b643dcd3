// Package importer turns model files into scene graphs. A Registry picks a
// decoder by content sniffing first and file extension second, so files
// with a wrong or missing extension still load.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype/types"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/engine/scene"
	"github.com/Faultbox/meshview/internal/logger"
)

// Import errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyFile         = errors.New("empty file")
	ErrTooLarge          = errors.New("file too large")
)

// DefaultMaxBytes caps how much a single import may read.
const DefaultMaxBytes = 512 << 20

// DecodeOptions carries what a decoder may need besides the file bytes.
type DecodeOptions struct {
	// Assets resolves external textures and buffers. May be nil.
	Assets fs.FS
	Log    *zap.Logger
}

// DecodeFunc decodes one model file.
type DecodeFunc func(ctx context.Context, data []byte, opts DecodeOptions) (*scene.Node, error)

// Format is a registered model format.
type Format struct {
	Type       types.Type
	Extensions []string
	Decode     DecodeFunc
}

// Registry imports model files of every registered format.
type Registry struct {
	formats  []Format
	assets   *SearchFS
	log      *zap.Logger
	maxBytes int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithMaxBytes caps the size of an imported file.
func WithMaxBytes(n int64) Option {
	return func(r *Registry) { r.maxBytes = n }
}

// WithSearchPaths adds directories searched for external textures.
func WithSearchPaths(dirs ...string) Option {
	return func(r *Registry) {
		for _, d := range dirs {
			r.assets.Add(d)
		}
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		assets:   NewSearchFS(),
		log:      logger.Log.Named("importer"),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefault returns a registry with FBX and glTF support.
func NewDefault(opts ...Option) *Registry {
	r := New(opts...)
	r.Register(Format{Type: TypeFBX, Extensions: []string{".fbx"}, Decode: DecodeFBX})
	r.Register(Format{Type: TypeGLB, Extensions: []string{".glb"}, Decode: DecodeGLTF})
	r.Register(Format{Type: TypeGLTF, Extensions: []string{".gltf"}, Decode: DecodeGLTF})
	return r
}

// Register adds a format. Later registrations win ties on extension.
func (r *Registry) Register(f Format) {
	r.formats = append([]Format{f}, r.formats...)
}

// Formats returns the registered formats.
func (r *Registry) Formats() []Format {
	return r.formats
}

// Extensions returns every registered file extension.
func (r *Registry) Extensions() []string {
	var out []string
	for _, f := range r.formats {
		out = append(out, f.Extensions...)
	}
	return out
}

// Supports reports whether name has a registered extension.
func (r *Registry) Supports(name string) bool {
	return r.byExtension(name) != nil
}

// SearchPaths returns the configured texture search directories.
func (r *Registry) SearchPaths() []string {
	return r.assets.Dirs()
}

// Import reads r fully and decodes it. It implements viewport.Importer.
// When rd is a file, its directory is searched for external assets ahead
// of the configured search paths for this import only.
func (r *Registry) Import(ctx context.Context, name string, rd io.Reader) (*scene.Node, error) {
	assets := r.assetsFor(rd)
	data, err := r.read(ctx, rd)
	if err != nil {
		return nil, err
	}

	f, err := r.detect(name, data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	root, err := f.Decode(ctx, data, DecodeOptions{Assets: assets, Log: r.log})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	counts := root.Count()
	r.log.Info("model imported",
		zap.String("name", name),
		zap.String("format", f.Type.Extension),
		zap.Int("bytes", len(data)),
		zap.Int("meshes", counts[scene.KindMesh]),
		zap.Int("joints", counts[scene.KindJoint]),
		zap.Duration("elapsed", time.Since(start)))
	return root, nil
}

// Detect returns the format data would be decoded as.
func (r *Registry) Detect(name string, data []byte) (Format, error) {
	f, err := r.detect(name, data)
	if err != nil {
		return Format{}, err
	}
	return *f, nil
}

func (r *Registry) detect(name string, data []byte) (*Format, error) {
	if kind := Sniff(data); kind != types.Unknown {
		for i := range r.formats {
			if r.formats[i].Type == kind {
				return &r.formats[i], nil
			}
		}
	}
	if f := r.byExtension(name); f != nil {
		return f, nil
	}
	ext := filepath.Ext(name)
	if ext == "" {
		return nil, ErrUnsupportedFormat
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
}

func (r *Registry) byExtension(name string) *Format {
	ext := strings.ToLower(filepath.Ext(name))
	for i := range r.formats {
		for _, e := range r.formats[i].Extensions {
			if e == ext {
				return &r.formats[i]
			}
		}
	}
	return nil
}

// namedReader is implemented by *os.File.
type namedReader interface {
	Name() string
}

func (r *Registry) assetsFor(rd io.Reader) *SearchFS {
	f, ok := rd.(namedReader)
	if !ok || f.Name() == "" {
		return r.assets
	}
	return r.assets.With(filepath.Dir(f.Name()))
}

func (r *Registry) read(ctx context.Context, rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(ctxReader{ctx: ctx, r: rd}, r.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, r.maxBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	return data, nil
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
