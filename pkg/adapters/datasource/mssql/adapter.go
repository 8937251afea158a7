package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/apperrors"
	"github.com/dbscribe/dbscribe/pkg/models"
)

const defaultPort = 1433

// quoteName quotes a SQL Server identifier with brackets, escaping ] as ]].
func quoteName(identifier string) string {
	escaped := strings.ReplaceAll(identifier, "]", "]]")
	return fmt.Sprintf("[%s]", escaped)
}

func qualifiedName(schema, item string) string {
	return quoteName(schema) + "." + quoteName(item)
}

// buildConnString builds a sqlserver:// connection string.
func buildConnString(t *datasource.Target) string {
	port := t.Port
	if port == 0 {
		port = defaultPort
	}

	query := url.Values{}
	query.Set("database", t.Database)
	if enc, ok := t.Options["encrypt"]; ok {
		query.Set("encrypt", enc)
	}
	if trust, ok := t.Options["trustservercertificate"]; ok {
		query.Set("TrustServerCertificate", trust)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(t.User, t.Password),
		Host:     fmt.Sprintf("%s:%d", t.Host, port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Conn is a pooled SQL Server connection implementing datasource.Connection.
type Conn struct {
	db            *sql.DB
	defaultSchema string
	logger        *zap.Logger
}

// Connect opens a database/sql pool against the target and verifies
// reachability.
func Connect(ctx context.Context, target *datasource.Target, settings datasource.PoolSettings, logger *zap.Logger) (datasource.Connection, error) {
	db, err := sql.Open("sqlserver", buildConnString(target))
	if err != nil {
		return nil, fmt.Errorf("connect to sqlserver: %w", err)
	}
	if settings.MaxConns > 0 {
		db.SetMaxOpenConns(int(settings.MaxConns))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	defaultSchema := target.SearchPath
	if defaultSchema == "" {
		var current sql.NullString
		if err := db.QueryRowContext(ctx, "SELECT SCHEMA_NAME()").Scan(&current); err == nil && current.Valid {
			defaultSchema = current.String
		}
		if defaultSchema == "" {
			defaultSchema = "dbo"
		}
	}

	return &Conn{
		db:            db,
		defaultSchema: defaultSchema,
		logger:        logger.Named("mssql"),
	}, nil
}

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
		SELECT TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		  AND TABLE_SCHEMA NOT IN ('sys', 'INFORMATION_SCHEMA')
		ORDER BY TABLE_SCHEMA, TABLE_NAME
	`

	rows, err := c.db.QueryContext(ctx, query)
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
		SELECT c.COLUMN_NAME, c.DATA_TYPE, c.IS_NULLABLE,
		       (SELECT t.TABLE_TYPE FROM INFORMATION_SCHEMA.TABLES t
		        WHERE t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME)
		FROM INFORMATION_SCHEMA.COLUMNS c
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`

	rows, err := c.db.QueryContext(ctx, query, schema, item)
	if err != nil {
		return nil, fmt.Errorf("%w: query columns: %v", apperrors.ErrIntrospection, err)
	}
	defer rows.Close()

	desc := &models.TableDescriptor{Schema: schema, Name: item}
	for rows.Next() {
		var col models.ColumnDescriptor
		var nullable string
		var tableType sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &tableType); err != nil {
			return nil, fmt.Errorf("%w: scan column: %v", apperrors.ErrIntrospection, err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES")
		desc.Columns = append(desc.Columns, col)
		if tableType.Valid && tableType.String == "VIEW" {
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
// duplicate-row count for one table or view.
func (c *Conn) AggregateStats(ctx context.Context, schema, item string) (*datasource.TableStats, error) {
	desc, err := c.Describe(ctx, schema, item)
	if err != nil {
		return nil, err
	}

	qualified := qualifiedName(desc.Schema, desc.Name)

	selects := []string{"COUNT_BIG(*)"}
	for _, col := range desc.Columns {
		selects = append(selects, fmt.Sprintf("COUNT_BIG(%s)", quoteName(col.Name)))
	}
	statsQuery := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), qualified)

	dest := make([]any, len(desc.Columns)+1)
	var rowCount int64
	nonNull := make([]int64, len(desc.Columns))
	dest[0] = &rowCount
	for i := range nonNull {
		dest[i+1] = &nonNull[i]
	}

	if err := c.db.QueryRowContext(ctx, statsQuery).Scan(dest...); err != nil {
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
			"SELECT COUNT_BIG(*) - (SELECT COUNT_BIG(*) FROM (SELECT DISTINCT * FROM %s) AS _distinct) FROM %s",
			qualified, qualified)
		if err := c.db.QueryRowContext(ctx, dupQuery).Scan(&stats.DuplicateRows); err != nil {
			return nil, fmt.Errorf("%w: duplicate query: %v", apperrors.ErrAnalysis, err)
		}
	}

	return stats, nil
}

// limitSQL bounds sqlQuery to limit rows. Plain SELECTs get a TOP wrapper;
// SQL Server rejects a derived table that opens with WITH or ends in a bare
// ORDER BY, so those statements run unmodified and the scan loop enforces
// the bound instead.
func limitSQL(sqlQuery string, limit int) string {
	upper := strings.ToUpper(strings.TrimSpace(sqlQuery))
	if strings.HasPrefix(upper, "WITH") || strings.Contains(upper, "ORDER BY") {
		return sqlQuery
	}
	return fmt.Sprintf("SELECT TOP (%d) * FROM (%s) AS _limited", limit, sqlQuery)
}

// ExecuteReadOnly runs a SELECT bounded to limit rows and returns them.
func (c *Conn) ExecuteReadOnly(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	limit = datasource.EffectiveLimit(limit)

	rows, err := c.db.QueryContext(ctx, limitSQL(sqlQuery, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExecution, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: read columns: %v", apperrors.ErrExecution, err)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		if len(resultRows) >= limit {
			break
		}
		values := make([]any, len(columns))
		scanDest := make([]any, len(columns))
		for i := range values {
			scanDest[i] = &values[i]
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("%w: scan row: %v", apperrors.ErrExecution, err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			// database/sql returns []byte for text columns; convert for
			// JSON-friendly output.
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
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
	return c.db.PingContext(ctx)
}

// Type returns the adapter type.
func (c *Conn) Type() string { return "mssql" }

// Close releases the pool.
func (c *Conn) Close() error {
	return c.db.Close()
}
