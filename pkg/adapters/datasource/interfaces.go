package datasource

import (
	"context"

	"github.com/dbscribe/dbscribe/pkg/models"
)

// MaxRowLimit is the hard cap on rows returned by ExecuteReadOnly.
// This protects against unbounded queries that could crash the server.
const MaxRowLimit = 1000

// Connection is a live, pooled connection to one target database. Each
// implementation owns its pool; Close releases it. All operations are
// read-only and must not create, alter or lock database objects.
type Connection interface {
	// Discover returns an immutable snapshot of all user schemas with
	// their table and view names, lexically ordered.
	Discover(ctx context.Context) ([]models.SchemaDescriptor, error)

	// Describe returns the column metadata for one table or view.
	// The models.DefaultSchemaName sentinel resolves to the engine's
	// default schema.
	Describe(ctx context.Context, schema, item string) (*models.TableDescriptor, error)

	// AggregateStats issues read-only aggregate queries against one
	// table or view: exact row count, per-column null counts, and the
	// number of fully duplicated rows.
	AggregateStats(ctx context.Context, schema, item string) (*TableStats, error)

	// ExecuteReadOnly runs a SELECT statement with a bounded row fetch.
	// The query is always wrapped with a dialect-specific limit:
	//   - PostgreSQL: SELECT * FROM (query) AS _limited LIMIT n
	//   - SQL Server: SELECT TOP (n) * FROM (query) AS _limited
	// limit <= 0 or > MaxRowLimit uses MaxRowLimit.
	ExecuteReadOnly(ctx context.Context, sqlQuery string, limit int) (*QueryResult, error)

	// Ping verifies the target is still reachable.
	Ping(ctx context.Context) error

	// Type returns the adapter type, e.g. "postgres".
	Type() string

	// Close releases the underlying pool.
	Close() error
}

// ColumnNullCount pairs a column name with its null cell count.
type ColumnNullCount struct {
	Column string `json:"column"`
	Nulls  int64  `json:"nulls"`
}

// TableStats holds the aggregate statistics for one table or view.
// NullCounts follows column declaration order.
type TableStats struct {
	RowCount      int64             `json:"row_count"`
	NullCounts    []ColumnNullCount `json:"null_counts"`
	DuplicateRows int64             `json:"duplicate_rows"`
}

// QueryResult contains the rows returned by a read-only execution.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// EffectiveLimit clamps a requested row limit into (0, MaxRowLimit].
// Adapters apply it before wrapping a query with their dialect's limit.
func EffectiveLimit(limit int) int {
	if limit <= 0 || limit > MaxRowLimit {
		return MaxRowLimit
	}
	return limit
}
