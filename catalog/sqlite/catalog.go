package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/config"
	"github.com/TFMV/gluesync/fs/local"
)

// Catalog is an embedded SQLite-backed sync client. It mirrors the Glue
// backend's semantics so sync runs can be exercised locally without AWS
// credentials: create-if-absent, full-replace updates, left-biased parameter
// merges, and strict update/drop partition handling.
type Catalog struct {
	db                 *sql.DB
	logger             *slog.Logger
	database           string
	basePath           string
	partitionFields    []string
	extractor          catalog.PartitionValueExtractor
	meta               catalog.MetaResolver
	createManagedTable bool
	metadataListing    string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// NewCatalog opens (and initializes if needed) the catalog database at the
// configured path.
func NewCatalog(cfg *config.Config, meta catalog.MetaResolver, extractor catalog.PartitionValueExtractor, opts ...Option) (*Catalog, error) {
	if cfg.Catalog.SQLite == nil {
		return nil, fmt.Errorf("sqlite catalog configuration is required")
	}

	dbPath := cfg.Catalog.SQLite.Path
	if dbPath != ":memory:" {
		if err := local.EnsureDir(filepath.Dir(dbPath)); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	c := &Catalog{
		db:                 db,
		logger:             slog.Default(),
		database:           cfg.Table.Database,
		basePath:           cfg.Table.BasePath,
		partitionFields:    cfg.Table.PartitionFields,
		extractor:          extractor,
		meta:               meta,
		createManagedTable: cfg.Sync.CreateManagedTable,
		metadataListing:    strings.ToUpper(fmt.Sprintf("%t", cfg.Sync.MetadataFileListing)),
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog database: %w", err)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS databases (
			name TEXT PRIMARY KEY,
			description TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS tables (
			database_name TEXT NOT NULL,
			table_name TEXT NOT NULL,
			location TEXT,
			input_format TEXT,
			output_format TEXT,
			serde_class TEXT,
			columns TEXT NOT NULL,
			partition_keys TEXT NOT NULL,
			serde_properties TEXT NOT NULL,
			parameters TEXT NOT NULL,
			description TEXT,
			PRIMARY KEY (database_name, table_name)
		)`,
		`CREATE TABLE IF NOT EXISTS partitions (
			database_name TEXT NOT NULL,
			table_name TEXT NOT NULL,
			part_values TEXT NOT NULL,
			location TEXT,
			PRIMARY KEY (database_name, table_name, part_values)
		)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Catalog) syncErr(op, table string, cause error) error {
	return &catalog.SyncError{Database: c.database, Table: table, Op: op, Err: cause}
}

func (c *Catalog) tableID(table string) string {
	return catalog.TableID(c.database, table)
}

// DatabaseExists reports whether the database row exists.
func (c *Catalog) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := c.db.QueryRowContext(ctx, `SELECT name FROM databases WHERE name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check database %s: %w", name, err)
	}
	return true, nil
}

// CreateDatabase creates the database if absent.
func (c *Catalog) CreateDatabase(ctx context.Context, name string) error {
	exists, err := c.DatabaseExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO databases (name, description) VALUES (?, ?)`,
		name, "Automatically created by gluesync")
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	c.logger.Info("created database", "database", name)
	return nil
}

// TableExists reports whether the table row exists.
func (c *Catalog) TableExists(ctx context.Context, table string) (bool, error) {
	var found string
	err := c.db.QueryRowContext(ctx,
		`SELECT table_name FROM tables WHERE database_name = ? AND table_name = ?`,
		c.database, table).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", c.tableID(table), err)
	}
	return true, nil
}

// tableRecord is the stored table definition.
type tableRecord struct {
	Location        string
	Format          catalog.StorageFormat
	Columns         []catalog.FieldSchema
	PartitionKeys   []catalog.FieldSchema
	SerdeProperties map[string]string
	Parameters      map[string]string
	Description     string
}

func (c *Catalog) getTable(ctx context.Context, table string) (*tableRecord, error) {
	var (
		rec                                   tableRecord
		columns, partKeys, serdeProps, params string
		location, describe                    sql.NullString
		inFmt, outFmt, serde                  sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT location, input_format, output_format, serde_class,
		        columns, partition_keys, serde_properties, parameters, description
		   FROM tables WHERE database_name = ? AND table_name = ?`,
		c.database, table).
		Scan(&location, &inFmt, &outFmt, &serde, &columns, &partKeys, &serdeProps, &params, &describe)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table not found: %s", c.tableID(table))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", c.tableID(table), err)
	}

	rec.Location = location.String
	rec.Format = catalog.StorageFormat{InputFormat: inFmt.String, OutputFormat: outFmt.String, SerdeClass: serde.String}
	rec.Description = describe.String
	if err := json.Unmarshal([]byte(columns), &rec.Columns); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", c.tableID(table), err)
	}
	if err := json.Unmarshal([]byte(partKeys), &rec.PartitionKeys); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", c.tableID(table), err)
	}
	if err := json.Unmarshal([]byte(serdeProps), &rec.SerdeProperties); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", c.tableID(table), err)
	}
	if err := json.Unmarshal([]byte(params), &rec.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", c.tableID(table), err)
	}
	return &rec, nil
}

func (c *Catalog) putTable(ctx context.Context, table string, rec *tableRecord) error {
	columns, err := json.Marshal(rec.Columns)
	if err != nil {
		return err
	}
	partKeys, err := json.Marshal(rec.PartitionKeys)
	if err != nil {
		return err
	}
	serdeProps, err := json.Marshal(rec.SerdeProperties)
	if err != nil {
		return err
	}
	params, err := json.Marshal(rec.Parameters)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO tables (database_name, table_name, location, input_format, output_format,
		                     serde_class, columns, partition_keys, serde_properties, parameters, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (database_name, table_name) DO UPDATE SET
		   location = excluded.location,
		   input_format = excluded.input_format,
		   output_format = excluded.output_format,
		   serde_class = excluded.serde_class,
		   columns = excluded.columns,
		   partition_keys = excluded.partition_keys,
		   serde_properties = excluded.serde_properties,
		   parameters = excluded.parameters,
		   description = excluded.description`,
		c.database, table, rec.Location, rec.Format.InputFormat, rec.Format.OutputFormat,
		rec.Format.SerdeClass, string(columns), string(partKeys), string(serdeProps),
		string(params), rec.Description)
	if err != nil {
		return fmt.Errorf("failed to store table %s: %w", c.tableID(table), err)
	}
	return nil
}

// CreateTable creates the table if absent, splitting the storage schema into
// regular columns and the configured partition keys.
func (c *Catalog) CreateTable(ctx context.Context, table string, storageSchema []catalog.FieldSchema, format catalog.StorageFormat, serdeProperties, tableProperties map[string]string) error {
	exists, err := c.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		c.logger.Info("table already exists, skipping creation", "table", c.tableID(table))
		return nil
	}

	params := make(map[string]string, len(tableProperties)+2)
	for k, v := range tableProperties {
		params[k] = v
	}
	if !c.createManagedTable {
		params["EXTERNAL"] = "TRUE"
	}
	params[catalog.MetadataListingKey] = c.metadataListing

	serdeParams := map[string]string{"serialization.format": "1"}
	for k, v := range serdeProperties {
		serdeParams[k] = v
	}

	rec := &tableRecord{
		Location:        c.basePath,
		Format:          format,
		SerdeProperties: serdeParams,
		Parameters:      params,
	}
	for _, field := range storageSchema {
		if c.isPartitionField(field.Name) {
			continue
		}
		rec.Columns = append(rec.Columns, field)
	}
	for _, key := range c.partitionFields {
		keySchema := catalog.FieldSchema{Name: key, Type: "string"}
		for _, field := range storageSchema {
			if strings.EqualFold(field.Name, key) {
				keySchema.Type = field.Type
				keySchema.Comment = field.Comment
			}
		}
		rec.PartitionKeys = append(rec.PartitionKeys, keySchema)
	}

	if err := c.putTable(ctx, table, rec); err != nil {
		return c.syncErr("failed to create table", table, err)
	}
	c.logger.Info("created table", "table", c.tableID(table))
	return nil
}

// UpdateTableSchema replaces the table's column list, leaving partition keys
// and everything else in place.
func (c *Catalog) UpdateTableSchema(ctx context.Context, table string, storageSchema []catalog.FieldSchema) error {
	rec, err := c.getTable(ctx, table)
	if err != nil {
		return c.syncErr("failed to update table schema", table, err)
	}

	rec.Columns = nil
	for _, field := range storageSchema {
		if c.isPartitionField(field.Name) {
			continue
		}
		rec.Columns = append(rec.Columns, field)
	}

	if err := c.putTable(ctx, table, rec); err != nil {
		return c.syncErr("failed to update table schema", table, err)
	}
	return nil
}

// UpdateTableComments applies storage-side comments, writing only when the
// stored definition differs.
func (c *Catalog) UpdateTableComments(ctx context.Context, table string, fromCatalog, fromStorage []catalog.FieldSchema) (bool, error) {
	comments := make(map[string]string, len(fromStorage))
	for _, field := range fromStorage {
		if field.Comment != "" {
			comments[strings.ToLower(field.Name)] = field.Comment
		}
	}

	rec, err := c.getTable(ctx, table)
	if err != nil {
		return false, c.syncErr("failed to update table comments", table, err)
	}

	columns := withComments(rec.Columns, comments)
	partitionKeys := withComments(rec.PartitionKeys, comments)

	doc := rec.Description
	if storage, err := c.meta.TableSchema(true); err == nil && storage.Doc != "" {
		doc = storage.Doc
	}

	if fieldsEqual(columns, rec.Columns) && fieldsEqual(partitionKeys, rec.PartitionKeys) && doc == rec.Description {
		return false, nil
	}

	rec.Columns = columns
	rec.PartitionKeys = partitionKeys
	rec.Description = doc
	if err := c.putTable(ctx, table, rec); err != nil {
		return false, c.syncErr("failed to update table comments", table, err)
	}
	return true, nil
}

// MetastoreSchema returns the upper-cased union of columns and partition keys.
func (c *Catalog) MetastoreSchema(ctx context.Context, table string) (map[string]string, error) {
	rec, err := c.getTable(ctx, table)
	if err != nil {
		return nil, c.syncErr("failed to get metastore schema", table, err)
	}

	schema := make(map[string]string, len(rec.Columns)+len(rec.PartitionKeys))
	for _, field := range rec.Columns {
		schema[field.Name] = strings.ToUpper(field.Type)
	}
	for _, key := range rec.PartitionKeys {
		schema[key.Name] = strings.ToUpper(key.Type)
	}
	return schema, nil
}

func (c *Catalog) isPartitionField(name string) bool {
	for _, key := range c.partitionFields {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

func withComments(fields []catalog.FieldSchema, comments map[string]string) []catalog.FieldSchema {
	out := make([]catalog.FieldSchema, len(fields))
	for i, field := range fields {
		field.Comment = comments[strings.ToLower(field.Name)]
		out[i] = field
	}
	return out
}

func fieldsEqual(a, b []catalog.FieldSchema) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
