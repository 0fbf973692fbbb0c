package catalog

import (
	"context"
)

// MetadataListingKey is the table parameter consulted by Athena v2/v3 to
// decide whether metadata-table file listing may be used for a Hudi table.
// See https://docs.aws.amazon.com/athena/latest/ug/querying-hudi.html
const MetadataListingKey = "hudi.metadata-listing-enabled"

// LastCommitTimeSyncedKey is the table parameter carrying the timestamp of
// the most recent Hudi commit reflected into the catalog.
const LastCommitTimeSyncedKey = "last_commit_time_sync"

// FieldSchema describes a single column as seen by storage or the catalog.
// Type is a lower-cased hive type name; Comment is empty when absent.
type FieldSchema struct {
	Name    string
	Type    string
	Comment string
}

// Schema is an ordered field list plus the table-level description string
// carried by the storage schema.
type Schema struct {
	Fields []FieldSchema
	Doc    string
}

// Partition is a catalog partition: one value per configured partition key,
// in key order, plus the partition's storage location.
type Partition struct {
	Values   []string
	Location string
}

// StorageFormat bundles the input/output format and SerDe class recorded in
// a table's storage descriptor.
type StorageFormat struct {
	InputFormat  string
	OutputFormat string
	SerdeClass   string
}

// ParquetStorageFormat is the format stamped on tables whose base files are
// Parquet, which is the only layout this tool syncs.
var ParquetStorageFormat = StorageFormat{
	InputFormat:  "org.apache.hudi.hadoop.HoodieParquetInputFormat",
	OutputFormat: "org.apache.hadoop.hive.ql.io.parquet.MapredParquetOutputFormat",
	SerdeClass:   "org.apache.hadoop.hive.ql.io.parquet.serde.ParquetHiveSerDe",
}

// Instant is a completed action on the table's timeline.
type Instant struct {
	Timestamp string
	Action    string
}

// Timeline supplies the storage layer's commit history. Implemented by the
// hudi package; faked in tests.
type Timeline interface {
	// LastInstant returns the most recent completed instant, or false when
	// the timeline holds no completed commits.
	LastInstant() (Instant, bool)
}

// MetaResolver supplies the storage layer's view of the table: its schema
// and its commit timeline.
type MetaResolver interface {
	Timeline

	// TableSchema resolves the table's current storage schema, optionally
	// including the Hudi metadata fields.
	TableSchema(includeMetadataFields bool) (Schema, error)
}

// PartitionValueExtractor turns a relative partition path into its ordered
// partition-key values.
type PartitionValueExtractor interface {
	ExtractPartitionValues(relativePath string) ([]string, error)
}

// SyncClient is the surface a sync driver uses to reconcile one Hudi table
// with a metadata catalog. Implementations hold no state across calls: every
// mutation re-reads the remote definition before writing, so concurrent
// syncs of the same table are last-writer-wins and must be serialized by the
// caller.
type SyncClient interface {
	// DatabaseExists reports whether the configured database exists.
	DatabaseExists(ctx context.Context, name string) (bool, error)

	// CreateDatabase creates the database if absent. A concurrent creator
	// winning the race is not an error.
	CreateDatabase(ctx context.Context, name string) error

	// TableExists reports whether the table exists in the configured database.
	TableExists(ctx context.Context, table string) (bool, error)

	// CreateTable creates the table if absent, splitting storageSchema into
	// regular columns and the configured partition keys. Creation is strictly
	// create-if-absent: an existing table is left untouched.
	CreateTable(ctx context.Context, table string, storageSchema []FieldSchema, format StorageFormat, serdeProperties, tableProperties map[string]string) error

	// UpdateTableSchema replaces the table's column list with storageSchema,
	// leaving partition keys and all other fields as currently recorded.
	UpdateTableSchema(ctx context.Context, table string, storageSchema []FieldSchema) error

	// UpdateTableComments applies the storage-side field comments to the
	// table's columns and partition keys. It reports whether an update was
	// written; identical comments produce no remote write.
	UpdateTableComments(ctx context.Context, table string, fromCatalog, fromStorage []FieldSchema) (bool, error)

	// MetastoreSchema returns the union of column and partition-key types,
	// upper-cased, keyed by column name.
	MetastoreSchema(ctx context.Context, table string) (map[string]string, error)

	// AllPartitions drains the catalog's partition listing to completion.
	AllPartitions(ctx context.Context, table string) ([]Partition, error)

	// AddPartitions registers the given relative partition paths. Partitions
	// already present in the catalog are tolerated.
	AddPartitions(ctx context.Context, table string, paths []string) error

	// UpdatePartitions rewrites the storage descriptor of the given
	// partitions. Any per-partition failure is fatal.
	UpdatePartitions(ctx context.Context, table string, paths []string) error

	// DropPartitions removes the given partitions from the catalog.
	DropPartitions(ctx context.Context, table string, paths []string) error

	// UpdateTableProperties merges props into the table parameter bag and
	// reports whether a write was needed.
	UpdateTableProperties(ctx context.Context, table string, props map[string]string) (bool, error)

	// LastCommitTimeSynced reads the bookkeeping timestamp, reporting false
	// when the table has never been stamped.
	LastCommitTimeSynced(ctx context.Context, table string) (string, bool, error)

	// UpdateLastCommitTimeSynced stamps the timeline's latest completed
	// commit time into the table parameters. A table with no completed
	// commits is left untouched.
	UpdateLastCommitTimeSynced(ctx context.Context, table string) error

	// Replication timestamps are not tracked by these backends; all three
	// fail with ErrUnsupported.
	LastReplicatedTime(ctx context.Context, table string) (string, error)
	UpdateLastReplicatedTimestamp(ctx context.Context, table, timestamp string) error
	DeleteLastReplicatedTimestamp(ctx context.Context, table string) error

	// Close releases the backend's transport resources.
	Close() error
}
