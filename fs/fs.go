package fs

import (
	"io"
)

// Entry is one name in a directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// FileSystem is the read-side capability the Hudi metadata reader and the
// sync driver need: open a file, list a directory, check existence. Paths
// are slash-separated and relative to the table base path.
type FileSystem interface {
	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// List returns the immediate children of a directory, sorted by name.
	// Listing a missing directory returns an empty slice, not an error.
	List(dir string) ([]Entry, error)

	// Exists checks whether a file or directory exists.
	Exists(path string) (bool, error)
}

// ReadFile drains one file through the FileSystem.
func ReadFile(fsys FileSystem, path string) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
