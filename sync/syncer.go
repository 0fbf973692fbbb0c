package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/config"
	"github.com/TFMV/gluesync/fs"
)

// Report summarizes one reconciliation pass.
type Report struct {
	RunID             string
	Database          string
	Table             string
	TableCreated      bool
	SchemaUpdated     bool
	CommentsUpdated   bool
	PartitionsAdded   []string
	PartitionsUpdated []string
	PartitionsDropped []string
	LastCommitSynced  string
	Duration          time.Duration
}

// Syncer drives a full reconciliation of one table: database and table
// existence, schema, partitions, properties, and the last-synced-commit
// stamp. Concurrent syncs of the same table must be serialized by the caller.
type Syncer struct {
	client    catalog.SyncClient
	fsys      fs.FileSystem
	meta      catalog.MetaResolver
	extractor catalog.PartitionValueExtractor
	logger    *slog.Logger
	cfg       *config.Config
}

// NewSyncer wires a reconciliation driver over an opened client and the
// table's storage.
func NewSyncer(client catalog.SyncClient, fsys fs.FileSystem, meta catalog.MetaResolver, extractor catalog.PartitionValueExtractor, cfg *config.Config, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		client:    client,
		fsys:      fsys,
		meta:      meta,
		extractor: extractor,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run executes one reconciliation pass and reports what changed.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	table := s.cfg.Table.Name
	report := &Report{
		RunID:    uuid.NewString(),
		Database: s.cfg.Table.Database,
		Table:    table,
	}
	s.logger.Info("starting sync", "run_id", report.RunID, "table", catalog.TableID(report.Database, table))

	if err := s.ensureDatabase(ctx); err != nil {
		return nil, err
	}
	if err := s.syncTable(ctx, table, report); err != nil {
		return nil, err
	}
	if err := s.syncPartitions(ctx, table, report); err != nil {
		return nil, err
	}

	if len(s.cfg.Sync.TableProperties) > 0 {
		if _, err := s.client.UpdateTableProperties(ctx, table, s.cfg.Sync.TableProperties); err != nil {
			return nil, err
		}
	}

	if err := s.client.UpdateLastCommitTimeSynced(ctx, table); err != nil {
		return nil, err
	}
	if instant, ok := s.meta.LastInstant(); ok {
		report.LastCommitSynced = instant.Timestamp
	}

	report.Duration = time.Since(start)
	s.logger.Info("sync complete",
		"run_id", report.RunID,
		"added", len(report.PartitionsAdded),
		"updated", len(report.PartitionsUpdated),
		"dropped", len(report.PartitionsDropped),
		"duration", report.Duration)
	return report, nil
}

func (s *Syncer) ensureDatabase(ctx context.Context) error {
	exists, err := s.client.DatabaseExists(ctx, s.cfg.Table.Database)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.client.CreateDatabase(ctx, s.cfg.Table.Database)
}

func (s *Syncer) syncTable(ctx context.Context, table string, report *Report) error {
	schema, err := s.meta.TableSchema(true)
	if err != nil {
		return fmt.Errorf("failed to resolve table schema: %w", err)
	}

	exists, err := s.client.TableExists(ctx, table)
	if err != nil {
		return err
	}

	if !exists {
		if err := s.client.CreateTable(ctx, table, schema.Fields, catalog.ParquetStorageFormat,
			s.cfg.Sync.SerdeProperties, s.cfg.Sync.TableProperties); err != nil {
			return err
		}
		report.TableCreated = true
		return nil
	}

	if err := s.client.UpdateTableSchema(ctx, table, schema.Fields); err != nil {
		return err
	}
	report.SchemaUpdated = true

	changed, err := s.client.UpdateTableComments(ctx, table, nil, schema.Fields)
	if err != nil {
		return err
	}
	report.CommentsUpdated = changed
	return nil
}

func (s *Syncer) syncPartitions(ctx context.Context, table string, report *Report) error {
	depth := s.partitionDepth()
	if depth == 0 {
		return nil
	}

	stored, err := s.storagePartitions("", depth)
	if err != nil {
		return fmt.Errorf("failed to list storage partitions: %w", err)
	}

	registered, err := s.client.AllPartitions(ctx, table)
	if err != nil {
		return err
	}

	known := make(map[string]catalog.Partition, len(registered))
	for _, p := range registered {
		known[partitionKey(p.Values)] = p
	}

	var added, updated []string
	seen := make(map[string]bool, len(stored))
	for _, path := range stored {
		values, err := s.extractor.ExtractPartitionValues(path)
		if err != nil {
			return fmt.Errorf("failed to parse partition path %s: %w", path, err)
		}
		key := partitionKey(values)
		seen[key] = true
		existing, ok := known[key]
		if !ok {
			added = append(added, path)
			continue
		}
		if existing.Location != "" && existing.Location != s.partitionLocation(path) {
			updated = append(updated, path)
		}
	}

	var dropped []string
	for key, p := range known {
		if !seen[key] {
			dropped = append(dropped, s.droppedPartitionPath(p))
		}
	}

	if err := s.client.AddPartitions(ctx, table, added); err != nil {
		return err
	}
	if err := s.client.UpdatePartitions(ctx, table, updated); err != nil {
		return err
	}
	if err := s.client.DropPartitions(ctx, table, dropped); err != nil {
		return err
	}

	report.PartitionsAdded = added
	report.PartitionsUpdated = updated
	report.PartitionsDropped = dropped
	return nil
}

// storagePartitions walks the table tree collecting relative directory paths
// at partition depth. Metadata directories are skipped.
func (s *Syncer) storagePartitions(dir string, depth int) ([]string, error) {
	entries, err := s.fsys.List(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir || strings.HasPrefix(entry.Name, ".") {
			continue
		}
		child := entry.Name
		if dir != "" {
			child = dir + "/" + entry.Name
		}
		if depth == 1 {
			paths = append(paths, child)
			continue
		}
		nested, err := s.storagePartitions(child, depth-1)
		if err != nil {
			return nil, err
		}
		paths = append(paths, nested...)
	}
	return paths, nil
}

// partitionDepth is the number of directory levels a partition spans.
func (s *Syncer) partitionDepth() int {
	if s.cfg.Table.Extractor == "slash-encoded-day" {
		return 3
	}
	return len(s.cfg.Table.PartitionFields)
}

// droppedPartitionPath recovers the relative path of a partition that exists
// only in the catalog. The stored location is authoritative; hive-style paths
// are rebuilt from the partition keys otherwise.
func (s *Syncer) droppedPartitionPath(p catalog.Partition) string {
	root := s.partitionRoot() + "/"
	loc := strings.Replace(p.Location, "s3a://", "s3://", 1)
	if loc != "" && strings.HasPrefix(loc, root) {
		return strings.TrimPrefix(loc, root)
	}

	segments := make([]string, 0, len(p.Values))
	for i, value := range p.Values {
		if i < len(s.cfg.Table.PartitionFields) {
			segments = append(segments, s.cfg.Table.PartitionFields[i]+"="+value)
		} else {
			segments = append(segments, value)
		}
	}
	return strings.Join(segments, "/")
}

func (s *Syncer) partitionLocation(path string) string {
	return s.partitionRoot() + "/" + strings.Trim(path, "/")
}

func (s *Syncer) partitionRoot() string {
	return strings.Replace(strings.TrimSuffix(s.cfg.Table.BasePath, "/"), "s3a://", "s3://", 1)
}

func partitionKey(values []string) string {
	return strings.Join(values, "\x1f")
}
