package glue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/TFMV/gluesync/catalog"
)

// UpdateTableProperties merges props, plus the metadata-listing flag, into
// the table parameter bag. It reports whether a write was needed.
func (c *Catalog) UpdateTableProperties(ctx context.Context, table string, props map[string]string) (bool, error) {
	if len(props) == 0 {
		return false, nil
	}

	merged := make(map[string]string, len(props)+1)
	for k, v := range props {
		merged[k] = v
	}
	merged[catalog.MetadataListingKey] = c.metadataListing

	changed, err := c.updateTableParameters(ctx, table, merged, c.skipTableArchive)
	if err != nil {
		return false, c.syncErr("failed to update properties", table, err)
	}
	return changed, nil
}

// updateTableParameters left-merges updates over the current parameter bag
// and issues a full-replace update carrying the table's unchanged columns,
// partition keys, and storage descriptor. A delta already fully present is
// detected before any remote write.
func (c *Catalog) updateTableParameters(ctx context.Context, table string, updates map[string]string, skipArchive bool) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}

	t, err := c.getTable(ctx, table)
	if err != nil {
		return false, err
	}
	if containsAll(t.Parameters, updates) {
		return false, nil
	}

	merged := make(map[string]string, len(t.Parameters)+len(updates))
	for k, v := range t.Parameters {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}

	now := time.Now()
	_, err = c.api.UpdateTable(ctx, &glue.UpdateTableInput{
		DatabaseName: aws.String(c.database),
		SkipArchive:  aws.Bool(skipArchive),
		TableInput: &types.TableInput{
			Name:              t.Name,
			TableType:         t.TableType,
			Parameters:        merged,
			PartitionKeys:     t.PartitionKeys,
			StorageDescriptor: t.StorageDescriptor,
			LastAccessTime:    aws.Time(now),
			LastAnalyzedTime:  aws.Time(now),
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// LastCommitTimeSynced reads the bookkeeping timestamp from the table
// parameters, reporting false when the table has never been stamped.
func (c *Catalog) LastCommitTimeSynced(ctx context.Context, table string) (string, bool, error) {
	t, err := c.getTable(ctx, table)
	if err != nil {
		return "", false, c.syncErr("failed to get last sync commit time", table, err)
	}
	v, ok := t.Parameters[catalog.LastCommitTimeSyncedKey]
	return v, ok, nil
}

// UpdateLastCommitTimeSynced stamps the timeline's latest completed commit
// time into the table parameters. A table with no completed commits is left
// untouched.
func (c *Catalog) UpdateLastCommitTimeSynced(ctx context.Context, table string) error {
	instant, ok := c.meta.LastInstant()
	if !ok {
		c.logger.Warn("no commit in active timeline", "table", c.tableID(table))
		return nil
	}

	updates := map[string]string{catalog.LastCommitTimeSyncedKey: instant.Timestamp}
	if _, err := c.updateTableParameters(ctx, table, updates, c.skipTableArchive); err != nil {
		return c.syncErr("failed to update last sync commit time", table, err)
	}
	return nil
}

// Replication timestamps are a Hive-replication concept Glue does not track;
// all three operations fail fast without touching the transport.

func (c *Catalog) LastReplicatedTime(ctx context.Context, table string) (string, error) {
	return "", fmt.Errorf("%w: getLastReplicatedTime", catalog.ErrUnsupported)
}

func (c *Catalog) UpdateLastReplicatedTimestamp(ctx context.Context, table, timestamp string) error {
	return fmt.Errorf("%w: updateLastReplicatedTimestamp", catalog.ErrUnsupported)
}

func (c *Catalog) DeleteLastReplicatedTimestamp(ctx context.Context, table string) error {
	return fmt.Errorf("%w: deleteLastReplicatedTimestamp", catalog.ErrUnsupported)
}

// containsAll reports whether every key/value in updates is already present
// with the same value.
func containsAll(current, updates map[string]string) bool {
	for k, v := range updates {
		if cur, ok := current[k]; !ok || cur != v {
			return false
		}
	}
	return true
}
