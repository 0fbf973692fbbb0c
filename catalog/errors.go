package catalog

import (
	"errors"
	"fmt"
)

// ErrUnsupported marks operations the backend does not implement, as opposed
// to operations that failed in transit.
var ErrUnsupported = errors.New("operation not supported by this catalog")

// BatchError is a single failed item from a bulk partition mutation.
type BatchError struct {
	Values  []string
	Code    string
	Message string
}

func (e BatchError) String() string {
	return fmt.Sprintf("%v: %s: %s", e.Values, e.Code, e.Message)
}

// SyncError is the single fatal error shape surfaced by a SyncClient. It
// carries the table identity for diagnostics and preserves the cause chain;
// Errors holds the per-item list when a batch mutation failed.
type SyncError struct {
	Database string
	Table    string
	Op       string
	Errors   []BatchError
	Err      error
}

func (e *SyncError) Error() string {
	id := TableID(e.Database, e.Table)
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s for table %s with error(s): %v", e.Op, id, e.Errors)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s for table %s: %v", e.Op, id, e.Err)
	}
	return fmt.Sprintf("%s for table %s", e.Op, id)
}

func (e *SyncError) Unwrap() error { return e.Err }

// TableID renders the database-qualified table name used in error messages
// and logs.
func TableID(database, table string) string {
	if table == "" {
		return database
	}
	return database + "." + table
}
