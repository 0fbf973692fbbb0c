package sync

import (
	"fmt"
	"strings"

	"github.com/TFMV/gluesync/config"
	"github.com/TFMV/gluesync/fs"
	"github.com/TFMV/gluesync/fs/local"
	"github.com/TFMV/gluesync/fs/s3"
)

// OpenStorage builds the filesystem serving the table's base path.
func OpenStorage(cfg *config.Config) (fs.FileSystem, error) {
	basePath := cfg.Table.BasePath
	switch {
	case strings.HasPrefix(basePath, "s3://"), strings.HasPrefix(basePath, "s3a://"):
		if cfg.Storage == nil || cfg.Storage.S3 == nil {
			return nil, fmt.Errorf("storage.s3 configuration is required for base path %s", basePath)
		}
		return s3.NewFileSystem(basePath, s3.Options{
			Endpoint:  cfg.Storage.S3.Endpoint,
			Region:    cfg.Storage.S3.Region,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			Secure:    cfg.Storage.S3.Secure,
		})
	default:
		return local.NewFileSystem(strings.TrimPrefix(basePath, "file://")), nil
	}
}
