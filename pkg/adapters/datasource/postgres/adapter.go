package postgres

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/apperrors"
	"github.com/dbscribe/dbscribe/pkg/models"
)

const defaultPort = 5432

// qualifiedName returns a properly quoted "schema"."item" reference.
func qualifiedName(schema, item string) string {
	return pgx.Identifier{schema}.Sanitize() + "." + pgx.Identifier{item}.Sanitize()
}

// buildConnString builds a PostgreSQL URL with proper escaping.
// User-provided fields must be URL-escaped to handle special characters
// in passwords (e.g. @, /, #, ?) that would otherwise break parsing.
func buildConnString(t *datasource.Target) string {
	port := t.Port
	if port == 0 {
		port = defaultPort
	}

	sslMode := t.Options["sslmode"]
	if sslMode == "" {
		sslMode = "prefer"
	}

	connStr := fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(t.User),
		url.QueryEscape(t.Password),
		t.Host,
		port,
		url.QueryEscape(t.Database),
		sslMode,
	)

	if t.SearchPath != "" {
		connStr += "&search_path=" + url.QueryEscape(t.SearchPath)
	}
	return connStr
}

// Conn is a pooled PostgreSQL connection implementing datasource.Connection.
type Conn struct {
	pool          *pgxpool.Pool
	defaultSchema string
	logger        *zap.Logger
}

// Connect opens a pgx pool against the target and verifies reachability.
func Connect(ctx context.Context, target *datasource.Target, settings datasource.PoolSettings, logger *zap.Logger) (datasource.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(buildConnString(target))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if settings.MaxConns > 0 {
		poolCfg.MaxConns = settings.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	defaultSchema := target.SearchPath
	if defaultSchema == "" {
		// current_schema() honors the role's search_path; falls back to
		// public when the search path resolves to nothing.
		var current *string
		if err := pool.QueryRow(ctx, "SELECT current_schema()").Scan(&current); err == nil && current != nil {
			defaultSchema = *current
		}
		if defaultSchema == "" {
			defaultSchema = "public"
		}
	}

	return &Conn{
		pool:          pool,
		defaultSchema: defaultSchema,
		logger:        logger.Named("postgres"),
	}, nil
}

// resolveSchema maps the default-schema sentinel to the actual schema.
func (c *Conn) resolveSchema(schema string) string {
	if schema == "" || schema == models.DefaultSchemaName {
		return c.defaultSchema
	}
	return schema
}

// Discover returns all user schemas with their tables and views,
// excluding system schemas, lexically ordered.
func (c *Conn) Discover(ctx context.Context) ([]models.SchemaDescriptor, error) {
	const query = `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_type IN ('BASE TABLE', 'VIEW')
		  AND table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_schema, table_name
	`

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query tables: %v", apperrors.ErrIntrospection, err)
	}
	defer rows.Close()

	bySchema := make(map[string]*models.SchemaDescriptor)
	var order []string
	for rows.Next() {
		var schema, name, tableType string
		if err := rows.Scan(&schema, &name, &tableType); err != nil {
			return nil, fmt.Errorf("%w: scan table: %v", apperrors.ErrIntrospection, err)
		}

		desc, ok := bySchema[schema]
		if !ok {
			desc = &models.SchemaDescriptor{Schema: schema}
			bySchema[schema] = desc
			order = append(order, schema)
		}
		if tableType == "VIEW" {
			desc.Views = append(desc.Views, name)
		} else {
			desc.Tables = append(desc.Tables, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate tables: %v", apperrors.ErrIntrospection, err)
	}

	sort.Strings(order)
	result := make([]models.SchemaDescriptor, 0, len(order))
	for _, schema := range order {
		result = append(result, *bySchema[schema])
	}
	return result, nil
}

// Describe returns ordered column metadata for one table or view.
func (c *Conn) Describe(ctx context.Context, schema, item string) (*models.TableDescriptor, error) {
	schema = c.resolveSchema(schema)

	const query = `
		SELECT c.column_name, c.data_type, c.is_nullable,
		       (SELECT t.table_type FROM information_schema.tables t
		        WHERE t.table_schema = c.table_schema AND t.table_name = c.table_name)
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := c.pool.Query(ctx, query, schema, item)
	if err != nil {
		return nil, fmt.Errorf("%w: query columns: %v", apperrors.ErrIntrospection, err)
	}
	defer rows.Close()

	desc := &models.TableDescriptor{Schema: schema, Name: item}
	for rows.Next() {
		var col models.ColumnDescriptor
		var nullable string
		var tableType *string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &tableType); err != nil {
			return nil, fmt.Errorf("%w: scan column: %v", apperrors.ErrIntrospection, err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		desc.Columns = append(desc.Columns, col)
		if tableType != nil && *tableType == "VIEW" {
			desc.IsView = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate columns: %v", apperrors.ErrIntrospection, err)
	}

	if len(desc.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", apperrors.ErrNotFound, schema, item)
	}
	return desc, nil
}

// AggregateStats computes the row count, per-column null counts and the
// duplicate-row count for one table or view in two read-only queries.
func (c *Conn) AggregateStats(ctx context.Context, schema, item string) (*datasource.TableStats, error) {
	desc, err := c.Describe(ctx, schema, item)
	if err != nil {
		return nil, err
	}

	qualified := qualifiedName(desc.Schema, desc.Name)

	// COUNT(col) counts the non-null cells, so nulls = COUNT(*) - COUNT(col).
	selects := []string{"COUNT(*)"}
	for _, col := range desc.Columns {
		selects = append(selects, fmt.Sprintf("COUNT(%s)", pgx.Identifier{col.Name}.Sanitize()))
	}
	statsQuery := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), qualified)

	dest := make([]any, len(desc.Columns)+1)
	var rowCount int64
	nonNull := make([]int64, len(desc.Columns))
	dest[0] = &rowCount
	for i := range nonNull {
		dest[i+1] = &nonNull[i]
	}

	if err := c.pool.QueryRow(ctx, statsQuery).Scan(dest...); err != nil {
		return nil, fmt.Errorf("%w: aggregate query: %v", apperrors.ErrAnalysis, err)
	}

	stats := &datasource.TableStats{RowCount: rowCount}
	for i, col := range desc.Columns {
		stats.NullCounts = append(stats.NullCounts, datasource.ColumnNullCount{
			Column: col.Name,
			Nulls:  rowCount - nonNull[i],
		})
	}

	if rowCount > 0 {
		dupQuery := fmt.Sprintf(
			"SELECT COUNT(*) - (SELECT COUNT(*) FROM (SELECT DISTINCT * FROM %s) AS _distinct) FROM %s",
			qualified, qualified)
		if err := c.pool.QueryRow(ctx, dupQuery).Scan(&stats.DuplicateRows); err != nil {
			return nil, fmt.Errorf("%w: duplicate query: %v", apperrors.ErrAnalysis, err)
		}
	}

	return stats, nil
}

// ExecuteReadOnly runs a SELECT with a LIMIT wrapper and returns the rows.
func (c *Conn) ExecuteReadOnly(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	limit = datasource.EffectiveLimit(limit)
	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlQuery, limit)

	rows, err := c.pool.Query(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExecution, err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: read row values: %v", apperrors.ErrExecution, err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate rows: %v", apperrors.ErrExecution, err)
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// Ping verifies the target is still reachable.
func (c *Conn) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// Type returns the adapter type.
func (c *Conn) Type() string { return "postgres" }

// Close releases the pool.
func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}
