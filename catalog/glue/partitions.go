package glue

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/TFMV/gluesync/catalog"
)

// AllPartitions drains Glue's paginated partition listing to completion.
func (c *Catalog) AllPartitions(ctx context.Context, table string) ([]catalog.Partition, error) {
	var partitions []catalog.Partition
	var nextToken *string
	for {
		out, err := c.api.GetPartitions(ctx, &glue.GetPartitionsInput{
			DatabaseName: aws.String(c.database),
			TableName:    aws.String(table),
			NextToken:    nextToken,
		})
		if err != nil {
			return nil, c.syncErr("failed to get all partitions", table, err)
		}
		for _, p := range out.Partitions {
			partition := catalog.Partition{Values: p.Values}
			if p.StorageDescriptor != nil {
				partition.Location = aws.ToString(p.StorageDescriptor.Location)
			}
			partitions = append(partitions, partition)
		}
		nextToken = out.NextToken
		if nextToken == nil {
			return partitions, nil
		}
	}
}

// partitionInputs builds one PartitionInput per relative path, cloning the
// table's storage descriptor so every partition inherits the table's format
// and SerDe settings, with only the location overridden.
func (c *Catalog) partitionInputs(ctx context.Context, table string, paths []string) ([]types.PartitionInput, error) {
	t, err := c.getTable(ctx, table)
	if err != nil {
		return nil, err
	}

	inputs := make([]types.PartitionInput, 0, len(paths))
	for _, path := range paths {
		values, err := c.extractor.ExtractPartitionValues(path)
		if err != nil {
			return nil, err
		}
		sd := cloneDescriptor(t.StorageDescriptor)
		sd.Location = aws.String(c.partitionLocation(path))
		inputs = append(inputs, types.PartitionInput{
			Values:            values,
			StorageDescriptor: sd,
		})
	}
	return inputs, nil
}

// AddPartitions registers the given relative partition paths in the catalog.
// Partitions another writer already registered are logged and tolerated.
func (c *Catalog) AddPartitions(ctx context.Context, table string, paths []string) error {
	if len(paths) == 0 {
		c.logger.Info("no partitions to add", "table", c.tableID(table))
		return nil
	}
	c.logger.Info("adding partitions", "table", c.tableID(table), "count", len(paths))

	inputs, err := c.partitionInputs(ctx, table, paths)
	if err != nil {
		return c.syncErr("failed to add partitions", table, err)
	}

	return c.runBatches(ctx, "failed to add partitions", table, len(inputs), true,
		func(ctx context.Context, lo, hi int) ([]catalog.BatchError, error) {
			out, err := c.api.BatchCreatePartition(ctx, &glue.BatchCreatePartitionInput{
				DatabaseName:       aws.String(c.database),
				TableName:          aws.String(table),
				PartitionInputList: inputs[lo:hi],
			})
			if err != nil {
				return nil, err
			}
			return fromPartitionErrors(out.Errors), nil
		})
}

// UpdatePartitions rewrites the storage descriptor of the given partitions.
// Unlike adds, updates have no benign failure class: any per-item error is
// fatal.
func (c *Catalog) UpdatePartitions(ctx context.Context, table string, paths []string) error {
	if len(paths) == 0 {
		c.logger.Info("no partitions to change", "table", c.tableID(table))
		return nil
	}
	c.logger.Info("updating partitions", "table", c.tableID(table), "count", len(paths))

	inputs, err := c.partitionInputs(ctx, table, paths)
	if err != nil {
		return c.syncErr("failed to update partitions", table, err)
	}

	entries := make([]types.BatchUpdatePartitionRequestEntry, len(inputs))
	for i := range inputs {
		entries[i] = types.BatchUpdatePartitionRequestEntry{
			PartitionValueList: inputs[i].Values,
			PartitionInput:     &inputs[i],
		}
	}

	return c.runBatches(ctx, "failed to update partitions", table, len(entries), false,
		func(ctx context.Context, lo, hi int) ([]catalog.BatchError, error) {
			out, err := c.api.BatchUpdatePartition(ctx, &glue.BatchUpdatePartitionInput{
				DatabaseName: aws.String(c.database),
				TableName:    aws.String(table),
				Entries:      entries[lo:hi],
			})
			if err != nil {
				return nil, err
			}
			return fromUpdateFailures(out.Errors), nil
		})
}

// DropPartitions removes the given partitions from the catalog. Only the
// partition-key values are needed; any per-item error is fatal.
func (c *Catalog) DropPartitions(ctx context.Context, table string, paths []string) error {
	if len(paths) == 0 {
		c.logger.Info("no partitions to drop", "table", c.tableID(table))
		return nil
	}
	c.logger.Info("dropping partitions", "table", c.tableID(table), "count", len(paths))

	toDelete := make([]types.PartitionValueList, 0, len(paths))
	for _, path := range paths {
		values, err := c.extractor.ExtractPartitionValues(path)
		if err != nil {
			return c.syncErr("failed to drop partitions", table, err)
		}
		toDelete = append(toDelete, types.PartitionValueList{Values: values})
	}

	return c.runBatches(ctx, "failed to drop partitions", table, len(toDelete), false,
		func(ctx context.Context, lo, hi int) ([]catalog.BatchError, error) {
			out, err := c.api.BatchDeletePartition(ctx, &glue.BatchDeletePartitionInput{
				DatabaseName:       aws.String(c.database),
				TableName:          aws.String(table),
				PartitionsToDelete: toDelete[lo:hi],
			})
			if err != nil {
				return nil, err
			}
			return fromPartitionErrors(out.Errors), nil
		})
}

// partitionLocation joins the table base path and a relative partition path,
// rewriting s3a:// to the s3:// scheme Glue records.
func (c *Catalog) partitionLocation(path string) string {
	base := strings.TrimSuffix(s3aToS3(c.basePath), "/")
	return base + "/" + strings.Trim(path, "/")
}
