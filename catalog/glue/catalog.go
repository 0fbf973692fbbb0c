package glue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/config"
)

// Catalog syncs a Hudi table's metadata into the AWS Glue Data Catalog. It
// keeps no state between calls: every mutation re-reads the remote table
// definition and issues a full-replace UpdateTable, so unrelated fields are
// carried forward rather than clobbered.
type Catalog struct {
	api                API
	logger             *slog.Logger
	database           string
	basePath           string
	partitionFields    []string
	extractor          catalog.PartitionValueExtractor
	meta               catalog.MetaResolver
	skipTableArchive   bool
	createManagedTable bool
	metadataListing    string
	batchSleep         time.Duration
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// WithBatchSleep overrides the fixed inter-batch delay. Used by tests; the
// default matches Glue's comfortable request rate.
func WithBatchSleep(d time.Duration) Option {
	return func(c *Catalog) { c.batchSleep = d }
}

// NewCatalog builds a Glue-backed sync client from configuration, loading
// AWS credentials from the standard environment/profile chain.
func NewCatalog(ctx context.Context, cfg *config.Config, meta catalog.MetaResolver, extractor catalog.PartitionValueExtractor, opts ...Option) (*Catalog, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Catalog.Glue != nil && cfg.Catalog.Glue.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Catalog.Glue.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := glue.NewFromConfig(awsCfg, func(o *glue.Options) {
		if cfg.Catalog.Glue != nil && cfg.Catalog.Glue.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Catalog.Glue.Endpoint)
		}
	})

	return New(client, cfg, meta, extractor, opts...), nil
}

// New builds a Glue-backed sync client over an existing API implementation.
func New(api API, cfg *config.Config, meta catalog.MetaResolver, extractor catalog.PartitionValueExtractor, opts ...Option) *Catalog {
	c := &Catalog{
		api:                api,
		logger:             slog.Default(),
		database:           cfg.Table.Database,
		basePath:           cfg.Table.BasePath,
		partitionFields:    cfg.Table.PartitionFields,
		extractor:          extractor,
		meta:               meta,
		skipTableArchive:   cfg.Sync.SkipTableArchive,
		createManagedTable: cfg.Sync.CreateManagedTable,
		metadataListing:    strings.ToUpper(fmt.Sprintf("%t", cfg.Sync.MetadataFileListing)),
		batchSleep:         batchRequestSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases transport resources. The Glue client holds none beyond its
// HTTP pool, so this is a no-op.
func (c *Catalog) Close() error {
	return nil
}

func (c *Catalog) syncErr(op, table string, cause error) error {
	return &catalog.SyncError{Database: c.database, Table: table, Op: op, Err: cause}
}

func (c *Catalog) tableID(table string) string {
	return catalog.TableID(c.database, table)
}

// getTable fetches the current table definition; a missing table is fatal
// here because callers on this path expect it to exist.
func (c *Catalog) getTable(ctx context.Context, table string) (*types.Table, error) {
	out, err := c.api.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(c.database),
		Name:         aws.String(table),
	})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("table not found: %s: %w", c.tableID(table), err)
		}
		return nil, fmt.Errorf("failed to get table %s: %w", c.tableID(table), err)
	}
	return out.Table, nil
}

// TableExists reports whether the table exists in the configured database.
func (c *Catalog) TableExists(ctx context.Context, table string) (bool, error) {
	_, err := c.api.GetTable(ctx, &glue.GetTableInput{
		DatabaseName: aws.String(c.database),
		Name:         aws.String(table),
	})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			c.logger.Info("table not found", "table", c.tableID(table))
			return false, nil
		}
		return false, c.syncErr("failed to get table", table, err)
	}
	return true, nil
}

// DatabaseExists reports whether the database exists.
func (c *Catalog) DatabaseExists(ctx context.Context, name string) (bool, error) {
	_, err := c.api.GetDatabase(ctx, &glue.GetDatabaseInput{Name: aws.String(name)})
	if err != nil {
		var notFound *types.EntityNotFoundException
		if errors.As(err, &notFound) {
			c.logger.Info("database not found", "database", name)
			return false, nil
		}
		return false, &catalog.SyncError{Database: name, Op: "failed to check if database exists", Err: err}
	}
	return true, nil
}

// CreateDatabase creates the database if absent. Losing a creation race to a
// concurrent sync is logged and swallowed.
func (c *Catalog) CreateDatabase(ctx context.Context, name string) error {
	exists, err := c.DatabaseExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = c.api.CreateDatabase(ctx, &glue.CreateDatabaseInput{
		DatabaseInput: &types.DatabaseInput{
			Name:        aws.String(name),
			Description: aws.String("Automatically created by gluesync"),
		},
	})
	if err != nil {
		var alreadyExists *types.AlreadyExistsException
		if errors.As(err, &alreadyExists) {
			c.logger.Warn("glue database already exists", "database", name)
			return nil
		}
		return &catalog.SyncError{Database: name, Op: "failed to create database", Err: err}
	}

	c.logger.Info("created database in glue", "database", name)
	return nil
}

// CreateTable creates the table if absent. Creation is strictly
// create-if-absent: an existing table is never reconciled here.
func (c *Catalog) CreateTable(ctx context.Context, table string, storageSchema []catalog.FieldSchema, format catalog.StorageFormat, serdeProperties, tableProperties map[string]string) error {
	exists, err := c.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	params := make(map[string]string, len(tableProperties)+2)
	if !c.createManagedTable {
		params["EXTERNAL"] = "TRUE"
	}
	params[catalog.MetadataListingKey] = c.metadataListing
	for k, v := range tableProperties {
		params[k] = v
	}

	serdeParams := make(map[string]string, len(serdeProperties)+1)
	for k, v := range serdeProperties {
		serdeParams[k] = v
	}
	serdeParams["serialization.format"] = "1"

	tableType := "EXTERNAL_TABLE"
	if c.createManagedTable {
		tableType = "MANAGED_TABLE"
	}

	sd := &types.StorageDescriptor{
		Columns:      c.columnsFromSchema(storageSchema),
		Location:     aws.String(s3aToS3(c.basePath)),
		InputFormat:  aws.String(format.InputFormat),
		OutputFormat: aws.String(format.OutputFormat),
		SerdeInfo: &types.SerDeInfo{
			SerializationLibrary: aws.String(format.SerdeClass),
			Parameters:           serdeParams,
		},
	}

	now := time.Now()
	_, err = c.api.CreateTable(ctx, &glue.CreateTableInput{
		DatabaseName: aws.String(c.database),
		TableInput: &types.TableInput{
			Name:              aws.String(table),
			TableType:         aws.String(tableType),
			Parameters:        params,
			PartitionKeys:     c.partitionKeyColumns(storageSchema),
			StorageDescriptor: sd,
			LastAccessTime:    aws.Time(now),
			LastAnalyzedTime:  aws.Time(now),
		},
	})
	if err != nil {
		var alreadyExists *types.AlreadyExistsException
		if errors.As(err, &alreadyExists) {
			c.logger.Warn("table already exists", "table", c.tableID(table))
			return nil
		}
		return c.syncErr("failed to create table", table, err)
	}

	c.logger.Info("created table", "table", c.tableID(table))
	return nil
}

// UpdateTableSchema replaces the table's column list with the new storage
// schema. Partition keys are left untouched; whether the change should
// cascade to existing partition descriptors is unresolved upstream, so it
// deliberately does not.
func (c *Catalog) UpdateTableSchema(ctx context.Context, table string, storageSchema []catalog.FieldSchema) error {
	t, err := c.getTable(ctx, table)
	if err != nil {
		return c.syncErr("failed to update definition", table, err)
	}

	sd := cloneDescriptor(t.StorageDescriptor)
	sd.Columns = c.columnsFromSchema(storageSchema)

	now := time.Now()
	_, err = c.api.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(c.database),
		SkipArchive:  aws.Bool(c.skipTableArchive),
		TableInput: &types.TableInput{
			Name:              t.Name,
			TableType:         t.TableType,
			Parameters:        t.Parameters,
			PartitionKeys:     t.PartitionKeys,
			StorageDescriptor: sd,
			LastAccessTime:    aws.Time(now),
			LastAnalyzedTime:  aws.Time(now),
		},
	})
	if err != nil {
		return c.syncErr("failed to update definition", table, err)
	}
	return nil
}

// UpdateTableComments applies the storage-side field comments to both the
// regular columns and the partition keys, writing only when the result
// differs from a freshly fetched snapshot.
func (c *Catalog) UpdateTableComments(ctx context.Context, table string, fromCatalog, fromStorage []catalog.FieldSchema) (bool, error) {
	t, err := c.getTable(ctx, table)
	if err != nil {
		return false, c.syncErr("failed to update comments", table, err)
	}

	comments := make(map[string]string, len(fromStorage))
	for _, f := range fromStorage {
		comments[f.Name] = f.Comment
	}

	columns := withComments(t.StorageDescriptor.Columns, comments)
	partitionKeys := withComments(t.PartitionKeys, comments)

	storageSchema, err := c.meta.TableSchema(true)
	if err != nil {
		return false, c.syncErr("failed to get schema doc from storage", table, err)
	}

	snapshot, err := c.getTable(ctx, table)
	if err != nil {
		return false, c.syncErr("failed to update comments", table, err)
	}
	if columnsEqual(snapshot.StorageDescriptor.Columns, columns) && columnsEqual(snapshot.PartitionKeys, partitionKeys) {
		return false, nil
	}

	sd := cloneDescriptor(t.StorageDescriptor)
	sd.Columns = columns

	now := time.Now()
	_, err = c.api.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(c.database),
		TableInput: &types.TableInput{
			Name:              t.Name,
			Description:       aws.String(storageSchema.Doc),
			TableType:         t.TableType,
			Parameters:        t.Parameters,
			PartitionKeys:     partitionKeys,
			StorageDescriptor: sd,
			LastAccessTime:    aws.Time(now),
			LastAnalyzedTime:  aws.Time(now),
		},
	})
	if err != nil {
		return false, c.syncErr("failed to update comments", table, err)
	}
	return true, nil
}

// MetastoreSchema returns the union of column and partition-key types,
// upper-cased. Glue reports partition keys separately from columns, so both
// sets are merged into one mapping.
func (c *Catalog) MetastoreSchema(ctx context.Context, table string) (map[string]string, error) {
	t, err := c.getTable(ctx, table)
	if err != nil {
		return nil, c.syncErr("failed to get schema", table, err)
	}

	schema := make(map[string]string, len(t.StorageDescriptor.Columns)+len(t.PartitionKeys))
	for _, col := range t.StorageDescriptor.Columns {
		schema[aws.ToString(col.Name)] = strings.ToUpper(aws.ToString(col.Type))
	}
	for _, col := range t.PartitionKeys {
		schema[aws.ToString(col.Name)] = strings.ToUpper(aws.ToString(col.Type))
	}
	return schema, nil
}

// columnsFromSchema renders the non-partition columns: a field is a
// partition key iff its name is in the configured partition field list.
func (c *Catalog) columnsFromSchema(storageSchema []catalog.FieldSchema) []types.Column {
	cols := make([]types.Column, 0, len(storageSchema))
	for _, f := range storageSchema {
		if c.isPartitionField(f.Name) {
			continue
		}
		cols = append(cols, types.Column{
			Name:    aws.String(f.Name),
			Type:    aws.String(strings.ToLower(f.Type)),
			Comment: aws.String(f.Comment),
		})
	}
	return cols
}

// partitionKeyColumns renders the configured partition keys in order,
// resolving each key's type from the storage schema. A key absent from the
// schema defaults to string.
func (c *Catalog) partitionKeyColumns(storageSchema []catalog.FieldSchema) []types.Column {
	byName := make(map[string]string, len(storageSchema))
	for _, f := range storageSchema {
		byName[f.Name] = strings.ToLower(f.Type)
	}

	keys := make([]types.Column, 0, len(c.partitionFields))
	for _, name := range c.partitionFields {
		keyType, ok := byName[name]
		if !ok {
			keyType = "string"
		}
		keys = append(keys, types.Column{
			Name:    aws.String(name),
			Type:    aws.String(keyType),
			Comment: aws.String(""),
		})
	}
	return keys
}

func (c *Catalog) isPartitionField(name string) bool {
	for _, f := range c.partitionFields {
		if f == name {
			return true
		}
	}
	return false
}

// withComments copies the columns, replacing each comment from the mapping.
// A column absent from the mapping has its comment cleared.
func withComments(columns []types.Column, comments map[string]string) []types.Column {
	out := make([]types.Column, len(columns))
	for i, col := range columns {
		out[i] = col
		comment := comments[aws.ToString(col.Name)]
		if comment == "" {
			out[i].Comment = nil
		} else {
			out[i].Comment = aws.String(comment)
		}
	}
	return out
}

func columnsEqual(a, b []types.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if aws.ToString(a[i].Name) != aws.ToString(b[i].Name) ||
			aws.ToString(a[i].Type) != aws.ToString(b[i].Type) ||
			aws.ToString(a[i].Comment) != aws.ToString(b[i].Comment) {
			return false
		}
	}
	return true
}

// cloneDescriptor shallow-copies a storage descriptor so per-call mutations
// never leak into the fetched definition.
func cloneDescriptor(sd *types.StorageDescriptor) *types.StorageDescriptor {
	if sd == nil {
		return &types.StorageDescriptor{}
	}
	clone := *sd
	return &clone
}

// s3aToS3 rewrites Hadoop s3a:// locations to the s3:// scheme Glue records.
func s3aToS3(location string) string {
	if strings.HasPrefix(location, "s3a://") {
		return "s3://" + strings.TrimPrefix(location, "s3a://")
	}
	return location
}
