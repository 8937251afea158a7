package services

import (
	"context"
	"sync/atomic"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/models"
)

// fakeConn is a configurable in-memory datasource.Connection.
type fakeConn struct {
	DiscoverFunc        func(ctx context.Context) ([]models.SchemaDescriptor, error)
	DescribeFunc        func(ctx context.Context, schema, item string) (*models.TableDescriptor, error)
	AggregateStatsFunc  func(ctx context.Context, schema, item string) (*datasource.TableStats, error)
	ExecuteReadOnlyFunc func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error)

	describeCalls  atomic.Int64
	statsCalls     atomic.Int64
	executeCalls   atomic.Int64
	executedSQL    []string
	executedLimits []int
}

func (f *fakeConn) Discover(ctx context.Context) ([]models.SchemaDescriptor, error) {
	if f.DiscoverFunc != nil {
		return f.DiscoverFunc(ctx)
	}
	return []models.SchemaDescriptor{{Schema: "public", Tables: []string{"orders"}}}, nil
}

func (f *fakeConn) Describe(ctx context.Context, schema, item string) (*models.TableDescriptor, error) {
	f.describeCalls.Add(1)
	if f.DescribeFunc != nil {
		return f.DescribeFunc(ctx, schema, item)
	}
	return &models.TableDescriptor{
		Schema: schema,
		Name:   item,
		Columns: []models.ColumnDescriptor{
			{Name: "id", DataType: "integer", Nullable: false},
			{Name: "amount", DataType: "numeric", Nullable: true},
		},
	}, nil
}

func (f *fakeConn) AggregateStats(ctx context.Context, schema, item string) (*datasource.TableStats, error) {
	f.statsCalls.Add(1)
	if f.AggregateStatsFunc != nil {
		return f.AggregateStatsFunc(ctx, schema, item)
	}
	return &datasource.TableStats{
		RowCount: 10,
		NullCounts: []datasource.ColumnNullCount{
			{Column: "id", Nulls: 0},
			{Column: "amount", Nulls: 2},
		},
	}, nil
}

func (f *fakeConn) ExecuteReadOnly(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
	f.executeCalls.Add(1)
	f.executedSQL = append(f.executedSQL, sqlQuery)
	f.executedLimits = append(f.executedLimits, limit)
	if f.ExecuteReadOnlyFunc != nil {
		return f.ExecuteReadOnlyFunc(ctx, sqlQuery, limit)
	}
	return &datasource.QueryResult{
		Columns:  []string{"count"},
		Rows:     []map[string]any{{"count": int64(42)}},
		RowCount: 1,
	}, nil
}

func (f *fakeConn) Ping(ctx context.Context) error { return nil }
func (f *fakeConn) Type() string                   { return "postgres" }
func (f *fakeConn) Close() error                   { return nil }

var _ datasource.Connection = (*fakeConn)(nil)
