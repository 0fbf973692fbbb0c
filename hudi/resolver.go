package hudi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/fs"
)

// TableMetaClient resolves a table's schema and commit timeline from its
// storage layout. It implements catalog.MetaResolver.
type TableMetaClient struct {
	fsys             fs.FileSystem
	supportTimestamp bool
	timeline         *Timeline
	properties       map[string]string
}

// NewTableMetaClient loads the timeline and table properties from the meta
// folder under the filesystem root.
func NewTableMetaClient(fsys fs.FileSystem, supportTimestamp bool) (*TableMetaClient, error) {
	timeline, err := LoadTimeline(fsys)
	if err != nil {
		return nil, err
	}

	props, err := loadProperties(fsys)
	if err != nil {
		return nil, err
	}

	return &TableMetaClient{
		fsys:             fsys,
		supportTimestamp: supportTimestamp,
		timeline:         timeline,
		properties:       props,
	}, nil
}

// LastInstant returns the most recent completed commit.
func (c *TableMetaClient) LastInstant() (catalog.Instant, bool) {
	return c.timeline.LastInstant()
}

// Properties returns the table configuration from hoodie.properties.
func (c *TableMetaClient) Properties() map[string]string {
	return c.properties
}

// TableName returns the table name recorded in the table properties.
func (c *TableMetaClient) TableName() string {
	return c.properties["hoodie.table.name"]
}

// commitMetadata is the subset of a commit file needed for schema resolution.
type commitMetadata struct {
	PartitionToWriteStats map[string][]struct {
		Path string `json:"path"`
	} `json:"partitionToWriteStats"`
	ExtraMetadata map[string]string `json:"extraMetadata"`
}

// TableSchema resolves the current table schema from the latest commit. The
// writer schema embedded in the commit metadata wins; when absent, the schema
// is read from a base file written by that commit.
func (c *TableMetaClient) TableSchema(includeMetadataFields bool) (catalog.Schema, error) {
	instant, ok := c.timeline.LastInstant()
	if !ok {
		return catalog.Schema{}, fmt.Errorf("table has no completed commits")
	}

	meta, err := c.readCommitMetadata(instant)
	if err != nil {
		return catalog.Schema{}, err
	}

	var schema catalog.Schema
	if avroSchema := meta.ExtraMetadata["schema"]; avroSchema != "" {
		schema, err = schemaFromAvro(avroSchema, c.supportTimestamp)
	} else {
		schema, err = c.schemaFromWrittenFile(meta)
	}
	if err != nil {
		return catalog.Schema{}, err
	}

	if includeMetadataFields {
		schema = withMetadataFields(schema)
	}
	return schema, nil
}

func (c *TableMetaClient) readCommitMetadata(instant catalog.Instant) (commitMetadata, error) {
	path := MetaFolder + "/" + instant.Timestamp + "." + instant.Action
	data, err := fs.ReadFile(c.fsys, path)
	if err != nil {
		return commitMetadata{}, fmt.Errorf("failed to read commit %s: %w", instant.Timestamp, err)
	}

	var meta commitMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return commitMetadata{}, fmt.Errorf("failed to parse commit %s: %w", instant.Timestamp, err)
	}
	return meta, nil
}

func (c *TableMetaClient) schemaFromWrittenFile(meta commitMetadata) (catalog.Schema, error) {
	for _, stats := range meta.PartitionToWriteStats {
		for _, stat := range stats {
			if strings.HasSuffix(stat.Path, ".parquet") {
				return schemaFromBaseFile(c.fsys, stat.Path, c.supportTimestamp)
			}
		}
	}
	return catalog.Schema{}, fmt.Errorf("commit carries no schema and no parquet base files")
}

// loadProperties parses hoodie.properties. A missing file yields an empty
// map so freshly bootstrapped tables still resolve.
func loadProperties(fsys fs.FileSystem) (map[string]string, error) {
	path := MetaFolder + "/" + PropertiesFile
	exists, err := fsys.Exists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]string{}, nil
	}

	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table properties: %w", err)
	}

	props := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		if idx := strings.Index(line, "="); idx >= 0 {
			props[strings.TrimSpace(line[:idx])] = strings.TrimSpace(line[idx+1:])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse table properties: %w", err)
	}
	return props, nil
}
