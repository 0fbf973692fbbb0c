package sync

import (
	"context"
	"fmt"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/catalog/glue"
	"github.com/TFMV/gluesync/catalog/sqlite"
	"github.com/TFMV/gluesync/config"
	"github.com/TFMV/gluesync/hudi"
)

// NewClient builds the sync client for the configured catalog backend.
func NewClient(ctx context.Context, cfg *config.Config, meta catalog.MetaResolver) (catalog.SyncClient, error) {
	extractor, err := NewExtractor(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Catalog.Type {
	case "glue":
		return glue.NewCatalog(ctx, cfg, meta, extractor)
	case "sqlite":
		return sqlite.NewCatalog(cfg, meta, extractor)
	default:
		return nil, fmt.Errorf("unsupported catalog type: %s", cfg.Catalog.Type)
	}
}

// NewExtractor builds the partition value extractor named in the table
// configuration. Hive-style multi-part paths are the default.
func NewExtractor(cfg *config.Config) (catalog.PartitionValueExtractor, error) {
	switch cfg.Table.Extractor {
	case "", "multi-part":
		return hudi.NewMultiPartKeysValueExtractor(), nil
	case "slash-encoded-day":
		return hudi.NewSlashEncodedDayValueExtractor(), nil
	default:
		return nil, fmt.Errorf("unsupported partition value extractor: %s", cfg.Table.Extractor)
	}
}
