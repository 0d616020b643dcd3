package importer

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
)

// SearchFS resolves relative asset references against a list of
// directories, most recently added first. It is safe for concurrent use.
type SearchFS struct {
	mu   sync.RWMutex
	dirs []string
}

// NewSearchFS returns a SearchFS over dirs.
func NewSearchFS(dirs ...string) *SearchFS {
	s := &SearchFS{}
	for _, d := range dirs {
		s.Add(d)
	}
	return s
}

// Add puts dir at the front of the search list.
func (s *SearchFS) Add(dir string) {
	if dir == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.dirs {
		if d == dir {
			s.dirs = append(s.dirs[:i], s.dirs[i+1:]...)
			break
		}
	}
	s.dirs = append([]string{dir}, s.dirs...)
}

// With returns a copy of s with dir searched first. s is unchanged.
func (s *SearchFS) With(dir string) *SearchFS {
	c := NewSearchFS()
	c.dirs = s.Dirs()
	c.Add(dir)
	return c
}

// Dirs returns the search list.
func (s *SearchFS) Dirs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.dirs...)
}

// Open implements fs.FS. Windows-style separators in name are accepted.
func (s *SearchFS) Open(name string) (fs.File, error) {
	name = path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	for _, dir := range s.Dirs() {
		f, err := os.DirFS(dir).Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// readAsset tries each candidate path in turn and returns the first hit.
func readAsset(assets fs.FS, candidates ...string) ([]byte, string, error) {
	if assets == nil {
		return nil, "", fs.ErrNotExist
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		c = strings.ReplaceAll(c, `\`, "/")
		data, err := fs.ReadFile(assets, strings.TrimPrefix(path.Clean(c), "/"))
		if err == nil {
			return data, c, nil
		}
	}
	return nil, "", fs.ErrNotExist
}
