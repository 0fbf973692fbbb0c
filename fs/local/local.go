package local

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TFMV/gluesync/fs"
)

// FileSystem serves a local directory tree rooted at a base path.
type FileSystem struct {
	basePath string
}

// NewFileSystem creates a new local filesystem rooted at basePath.
func NewFileSystem(basePath string) *FileSystem {
	return &FileSystem{basePath: basePath}
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Open opens a file for reading.
func (f *FileSystem) Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(f.toLocalPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	return file, nil
}

// List returns the immediate children of a directory, sorted by name.
func (f *FileSystem) List(dir string) ([]fs.Entry, error) {
	entries, err := os.ReadDir(f.toLocalPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list directory %s: %w", dir, err)
	}

	out := make([]fs.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, fs.Entry{Name: e.Name(), IsDir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists checks if a file or directory exists.
func (f *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(f.toLocalPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence %s: %w", path, err)
	}
	return true, nil
}

// toLocalPath converts a slash-separated relative path (or file:// URI) to a
// local filesystem path.
func (f *FileSystem) toLocalPath(path string) string {
	path = strings.TrimPrefix(path, "file://")
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.basePath, filepath.FromSlash(path))
	}
	return path
}
