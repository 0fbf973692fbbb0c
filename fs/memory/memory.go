package memory

import (
	"bytes"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/TFMV/gluesync/fs"
)

// FileSystem is an in-memory filesystem for tests and CI.
type FileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewFileSystem creates a new empty in-memory filesystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// WriteFile stores a file, creating parent directories implicitly.
func (m *FileSystem) WriteFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = path.Clean(p)
	m.files[p] = append([]byte(nil), data...)
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
}

// MkdirAll records a directory and its parents.
func (m *FileSystem) MkdirAll(dir string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for d := path.Clean(dir); d != "." && d != "/"; d = path.Dir(d) {
		m.dirs[d] = true
	}
}

// RemoveFile deletes a stored file if present.
func (m *FileSystem) RemoveFile(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path.Clean(p))
}

// Open opens a file for reading.
func (m *FileSystem) Open(p string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path.Clean(p)]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// List returns the immediate children of a directory, sorted by name.
func (m *FileSystem) List(dir string) ([]fs.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dir = path.Clean(dir)
	prefix := dir + "/"
	if dir == "." || dir == "/" {
		prefix = ""
	}

	seen := make(map[string]bool)
	var out []fs.Entry

	collect := func(p string, isDir bool) {
		if !strings.HasPrefix(p, prefix) {
			return
		}
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" {
			return
		}
		name, nested := rest, false
		if idx := strings.Index(rest, "/"); idx >= 0 {
			name, nested = rest[:idx], true
		}
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, fs.Entry{Name: name, IsDir: isDir || nested})
	}

	for p := range m.files {
		collect(p, false)
	}
	for d := range m.dirs {
		collect(d, true)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists checks whether a file or directory exists.
func (m *FileSystem) Exists(p string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = path.Clean(p)
	if _, ok := m.files[p]; ok {
		return true, nil
	}
	return m.dirs[p], nil
}
