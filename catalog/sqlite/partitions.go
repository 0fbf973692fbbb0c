package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TFMV/gluesync/catalog"
)

// AllPartitions returns every registered partition for the table.
func (c *Catalog) AllPartitions(ctx context.Context, table string) ([]catalog.Partition, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT part_values, location FROM partitions
		  WHERE database_name = ? AND table_name = ? ORDER BY part_values`,
		c.database, table)
	if err != nil {
		return nil, c.syncErr("failed to get all partitions", table, err)
	}
	defer rows.Close()

	var partitions []catalog.Partition
	for rows.Next() {
		var (
			encoded  string
			location sql.NullString
		)
		if err := rows.Scan(&encoded, &location); err != nil {
			return nil, c.syncErr("failed to get all partitions", table, err)
		}
		var values []string
		if err := json.Unmarshal([]byte(encoded), &values); err != nil {
			return nil, c.syncErr("failed to get all partitions", table, err)
		}
		partitions = append(partitions, catalog.Partition{Values: values, Location: location.String})
	}
	if err := rows.Err(); err != nil {
		return nil, c.syncErr("failed to get all partitions", table, err)
	}
	return partitions, nil
}

// AddPartitions registers the given partition paths. Already-registered
// partitions are tolerated.
func (c *Catalog) AddPartitions(ctx context.Context, table string, paths []string) error {
	if len(paths) == 0 {
		c.logger.Info("no partitions to add", "table", c.tableID(table))
		return nil
	}

	for _, path := range paths {
		values, err := c.extractor.ExtractPartitionValues(path)
		if err != nil {
			return c.syncErr("failed to add partitions", table, err)
		}
		encoded, err := json.Marshal(values)
		if err != nil {
			return c.syncErr("failed to add partitions", table, err)
		}
		_, err = c.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO partitions (database_name, table_name, part_values, location)
			 VALUES (?, ?, ?, ?)`,
			c.database, table, string(encoded), c.partitionLocation(path))
		if err != nil {
			return c.syncErr("failed to add partitions", table, err)
		}
	}
	return nil
}

// UpdatePartitions rewrites the location of the given partitions. A partition
// missing from the catalog is fatal.
func (c *Catalog) UpdatePartitions(ctx context.Context, table string, paths []string) error {
	if len(paths) == 0 {
		c.logger.Info("no partitions to update", "table", c.tableID(table))
		return nil
	}

	for _, path := range paths {
		encoded, err := c.encodedValues(path)
		if err != nil {
			return c.syncErr("failed to update partitions", table, err)
		}
		res, err := c.db.ExecContext(ctx,
			`UPDATE partitions SET location = ?
			  WHERE database_name = ? AND table_name = ? AND part_values = ?`,
			c.partitionLocation(path), c.database, table, encoded)
		if err != nil {
			return c.syncErr("failed to update partitions", table, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return c.syncErr("failed to update partitions", table, fmt.Errorf("partition not found: %s", path))
		}
	}
	return nil
}

// DropPartitions removes the given partitions. A partition missing from the
// catalog is fatal.
func (c *Catalog) DropPartitions(ctx context.Context, table string, paths []string) error {
	if len(paths) == 0 {
		c.logger.Info("no partitions to drop", "table", c.tableID(table))
		return nil
	}

	for _, path := range paths {
		encoded, err := c.encodedValues(path)
		if err != nil {
			return c.syncErr("failed to drop partitions", table, err)
		}
		res, err := c.db.ExecContext(ctx,
			`DELETE FROM partitions
			  WHERE database_name = ? AND table_name = ? AND part_values = ?`,
			c.database, table, encoded)
		if err != nil {
			return c.syncErr("failed to drop partitions", table, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return c.syncErr("failed to drop partitions", table, fmt.Errorf("partition not found: %s", path))
		}
	}
	return nil
}

func (c *Catalog) encodedValues(path string) (string, error) {
	values, err := c.extractor.ExtractPartitionValues(path)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (c *Catalog) partitionLocation(path string) string {
	return strings.TrimSuffix(c.basePath, "/") + "/" + strings.Trim(path, "/")
}
