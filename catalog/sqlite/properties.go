package sqlite

import (
	"context"
	"fmt"

	"github.com/TFMV/gluesync/catalog"
)

// UpdateTableProperties merges props plus the metadata-listing flag into the
// table parameters, reporting whether a write was needed.
func (c *Catalog) UpdateTableProperties(ctx context.Context, table string, props map[string]string) (bool, error) {
	if len(props) == 0 {
		return false, nil
	}

	updates := make(map[string]string, len(props)+1)
	for k, v := range props {
		updates[k] = v
	}
	updates[catalog.MetadataListingKey] = c.metadataListing
	return c.updateTableParameters(ctx, table, updates)
}

// updateTableParameters applies a left-biased merge of updates into the table
// parameter bag. Exact matches produce no write.
func (c *Catalog) updateTableParameters(ctx context.Context, table string, updates map[string]string) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}

	rec, err := c.getTable(ctx, table)
	if err != nil {
		return false, c.syncErr("failed to update table parameters", table, err)
	}

	if containsAll(rec.Parameters, updates) {
		return false, nil
	}

	if rec.Parameters == nil {
		rec.Parameters = make(map[string]string, len(updates))
	}
	for k, v := range updates {
		rec.Parameters[k] = v
	}

	if err := c.putTable(ctx, table, rec); err != nil {
		return false, c.syncErr("failed to update table parameters", table, err)
	}
	return true, nil
}

// LastCommitTimeSynced reads the bookkeeping timestamp.
func (c *Catalog) LastCommitTimeSynced(ctx context.Context, table string) (string, bool, error) {
	rec, err := c.getTable(ctx, table)
	if err != nil {
		return "", false, c.syncErr("failed to get last commit time synced", table, err)
	}
	value, ok := rec.Parameters[catalog.LastCommitTimeSyncedKey]
	return value, ok, nil
}

// UpdateLastCommitTimeSynced stamps the latest completed commit time into the
// table parameters.
func (c *Catalog) UpdateLastCommitTimeSynced(ctx context.Context, table string) error {
	instant, ok := c.meta.LastInstant()
	if !ok {
		c.logger.Warn("no completed commits, skipping bookkeeping update", "table", c.tableID(table))
		return nil
	}

	_, err := c.updateTableParameters(ctx, table, map[string]string{
		catalog.LastCommitTimeSyncedKey: instant.Timestamp,
	})
	return err
}

// LastReplicatedTime is not tracked by this backend.
func (c *Catalog) LastReplicatedTime(ctx context.Context, table string) (string, error) {
	return "", fmt.Errorf("%w: get last replicated time", catalog.ErrUnsupported)
}

// UpdateLastReplicatedTimestamp is not tracked by this backend.
func (c *Catalog) UpdateLastReplicatedTimestamp(ctx context.Context, table, timestamp string) error {
	return fmt.Errorf("%w: update last replicated time", catalog.ErrUnsupported)
}

// DeleteLastReplicatedTimestamp is not tracked by this backend.
func (c *Catalog) DeleteLastReplicatedTimestamp(ctx context.Context, table string) error {
	return fmt.Errorf("%w: delete last replicated time", catalog.ErrUnsupported)
}

func containsAll(params, updates map[string]string) bool {
	for k, v := range updates {
		if params[k] != v {
			return false
		}
	}
	return true
}
