package glue

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/aws/smithy-go"

	"github.com/TFMV/gluesync/catalog"
)

const (
	// maxPartitionsPerRequest is Glue's per-call item limit for the batch
	// partition APIs.
	maxPartitionsPerRequest = 100

	// batchRequestSleep is the fixed delay between batch calls, a blunt
	// client-side rate limiter. It is paid after every chunk, the last one
	// included.
	batchRequestSleep = 1000 * time.Millisecond
)

const alreadyExistsCode = "AlreadyExistsException"

// batchCall issues one chunk [lo, hi) of a bulk mutation and returns its
// per-item errors.
type batchCall func(ctx context.Context, lo, hi int) ([]catalog.BatchError, error)

// runBatches executes a bulk mutation in order-preserving chunks of at most
// maxPartitionsPerRequest items. Add-style calls set tolerateExisting so a
// chunk whose failures are all AlreadyExists is treated as an idempotent
// success; any other per-item error aborts with the full error list. Chunks
// already applied stay applied, and nothing is retried here.
func (c *Catalog) runBatches(ctx context.Context, op, table string, n int, tolerateExisting bool, call batchCall) error {
	for lo := 0; lo < n; lo += maxPartitionsPerRequest {
		hi := lo + maxPartitionsPerRequest
		if hi > n {
			hi = n
		}

		batchErrs, err := call(ctx, lo, hi)
		if err != nil {
			c.logger.Error("batch call failed",
				"table", c.tableID(table), "op", op, "code", apiErrorCode(err))
			return c.syncErr(op, table, err)
		}
		if len(batchErrs) > 0 {
			if tolerateExisting && allAlreadyExists(batchErrs) {
				c.logger.Warn("partitions already exist in glue",
					"table", c.tableID(table), "errors", len(batchErrs))
			} else {
				return &catalog.SyncError{
					Database: c.database,
					Table:    table,
					Op:       op,
					Errors:   batchErrs,
				}
			}
		}

		if err := c.sleepBetweenBatches(ctx); err != nil {
			return c.syncErr(op, table, err)
		}
	}
	return nil
}

// apiErrorCode extracts the service error code for log context.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func allAlreadyExists(errs []catalog.BatchError) bool {
	for _, e := range errs {
		if e.Code != alreadyExistsCode {
			return false
		}
	}
	return true
}

func (c *Catalog) sleepBetweenBatches(ctx context.Context) error {
	if c.batchSleep <= 0 {
		return nil
	}
	timer := time.NewTimer(c.batchSleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func fromPartitionErrors(errs []types.PartitionError) []catalog.BatchError {
	out := make([]catalog.BatchError, 0, len(errs))
	for _, e := range errs {
		be := catalog.BatchError{Values: e.PartitionValues}
		if e.ErrorDetail != nil {
			be.Code = aws.ToString(e.ErrorDetail.ErrorCode)
			be.Message = aws.ToString(e.ErrorDetail.ErrorMessage)
		}
		out = append(out, be)
	}
	return out
}

func fromUpdateFailures(errs []types.BatchUpdatePartitionFailureEntry) []catalog.BatchError {
	out := make([]catalog.BatchError, 0, len(errs))
	for _, e := range errs {
		be := catalog.BatchError{Values: e.PartitionValueList}
		if e.ErrorDetail != nil {
			be.Code = aws.ToString(e.ErrorDetail.ErrorCode)
			be.Message = aws.ToString(e.ErrorDetail.ErrorMessage)
		}
		out = append(out, be)
	}
	return out
}
