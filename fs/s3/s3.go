package s3

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/TFMV/gluesync/fs"
)

// Options configures access to an S3-compatible object store.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// FileSystem serves a table tree stored under an s3:// base path. Object
// stores have no directories, so listings are derived from key prefixes.
type FileSystem struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewFileSystem creates a read client for the given s3:// or s3a:// base
// path.
func NewFileSystem(basePath string, opts Options) (*FileSystem, error) {
	bucket, prefix, err := splitBasePath(basePath)
	if err != nil {
		return nil, err
	}

	creds := credentials.NewEnvAWS()
	if opts.AccessKey != "" {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &FileSystem{client: client, bucket: bucket, prefix: prefix}, nil
}

// Open opens an object for reading.
func (f *FileSystem) Open(path string) (io.ReadCloser, error) {
	obj, err := f.client.GetObject(context.Background(), f.bucket, f.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", path, err)
	}
	// GetObject is lazy; surface missing keys now rather than on first read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("failed to open object %s: %w", path, err)
	}
	return obj, nil
}

// List returns the immediate children under a key prefix, sorted by name.
func (f *FileSystem) List(dir string) ([]fs.Entry, error) {
	prefix := f.key(dir)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var out []fs.Entry
	for obj := range f.client.ListObjects(context.Background(), f.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if isDir := strings.HasSuffix(name, "/"); isDir {
			out = append(out, fs.Entry{Name: strings.TrimSuffix(name, "/"), IsDir: true})
		} else if name != "" {
			out = append(out, fs.Entry{Name: name, IsDir: false})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Exists checks whether an object or key prefix exists.
func (f *FileSystem) Exists(path string) (bool, error) {
	key := f.key(path)
	_, err := f.client.StatObject(context.Background(), f.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code != "NoSuchKey" && resp.Code != "NotFound" {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	// Fall back to a prefix probe so partition directories report true.
	for obj := range f.client.ListObjects(context.Background(), f.bucket, minio.ListObjectsOptions{
		Prefix:  key + "/",
		MaxKeys: 1,
	}) {
		if obj.Err != nil {
			return false, fmt.Errorf("failed to stat %s: %w", path, obj.Err)
		}
		return true, nil
	}
	return false, nil
}

func (f *FileSystem) key(path string) string {
	path = strings.Trim(path, "/")
	if f.prefix == "" {
		return path
	}
	if path == "" {
		return f.prefix
	}
	return f.prefix + "/" + path
}

func splitBasePath(basePath string) (bucket, prefix string, err error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(basePath, "s3a://"), "s3://")
	if trimmed == basePath {
		return "", "", fmt.Errorf("base path %q is not an s3:// location", basePath)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("base path %q has no bucket", basePath)
	}
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = strings.Trim(parts[1], "/")
	}
	return bucket, prefix, nil
}
