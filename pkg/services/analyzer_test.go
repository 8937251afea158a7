package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/apperrors"
	"github.com/dbscribe/dbscribe/pkg/llm"
	"github.com/dbscribe/dbscribe/pkg/models"
)

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name     string
		rowCount int64
		nulls    []int64
		columns  int
		want     int
	}{
		{
			name:     "fully populated",
			rowCount: 100,
			nulls:    []int64{0, 0},
			columns:  2,
			want:     100,
		},
		{
			name:     "zero rows is complete",
			rowCount: 0,
			nulls:    []int64{0, 0},
			columns:  2,
			want:     100,
		},
		{
			name:     "zero columns is complete",
			rowCount: 50,
			nulls:    nil,
			columns:  0,
			want:     100,
		},
		{
			name:     "all nulls",
			rowCount: 10,
			nulls:    []int64{10, 10, 10},
			columns:  3,
			want:     0,
		},
		{
			name:     "half populated",
			rowCount: 10,
			nulls:    []int64{10, 0},
			columns:  2,
			want:     50,
		},
		{
			// 598 of 600 cells populated: 99.67% rounds up, it does not
			// truncate to 99.
			name:     "rounds to nearest",
			rowCount: 200,
			nulls:    []int64{2, 0, 0},
			columns:  3,
			want:     100,
		},
		{
			// 49.5 rounds half away from zero.
			name:     "rounds half up",
			rowCount: 100,
			nulls:    []int64{100, 1},
			columns:  2,
			want:     50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &datasource.TableStats{RowCount: tt.rowCount}
			for i, n := range tt.nulls {
				stats.NullCounts = append(stats.NullCounts, datasource.ColumnNullCount{
					Column: fmt.Sprintf("c%d", i),
					Nulls:  n,
				})
			}
			assert.Equal(t, tt.want, completeness(stats, tt.columns))
		})
	}
}

func TestAnalyzeProducesWholeResult(t *testing.T) {
	router := llm.NewMockRouter()
	calls := 0
	router.Summarizer.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		calls++
		if calls == 1 {
			return "Order data for the business.", nil
		}
		return "Each row has an id and an amount.", nil
	}

	analyzer := NewAnalyzer(router, zap.NewNop())
	conn := &fakeConn{}

	result, err := analyzer.Analyze(context.Background(), conn, "public", "orders")
	require.NoError(t, err)

	assert.Equal(t, int64(10), result.Metrics.TotalRows)
	assert.Equal(t, 2, result.Metrics.ColumnCount)
	assert.Equal(t, 90, result.Metrics.Completeness) // 18 of 20 cells
	assert.Equal(t, "Order data for the business.", result.Summary)
	assert.Equal(t, "Each row has an id and an amount.", result.SchemaExplanation)
	assert.Len(t, result.RawSchema, 2)
	assert.Equal(t, 2, router.Summarizer.GenerateCalls)
	assert.Zero(t, router.Coder.GenerateCalls)
}

func TestAnalyzeUnknownItem(t *testing.T) {
	router := llm.NewMockRouter()
	analyzer := NewAnalyzer(router, zap.NewNop())

	conn := &fakeConn{
		DescribeFunc: func(ctx context.Context, schema, item string) (*models.TableDescriptor, error) {
			return nil, fmt.Errorf("%w: %s.%s", apperrors.ErrNotFound, schema, item)
		},
	}

	_, err := analyzer.Analyze(context.Background(), conn, "public", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, router.Summarizer.GenerateCalls)
}

func TestAnalyzeModelUnavailable(t *testing.T) {
	router := llm.NewMockRouter()
	router.Summarizer.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "", llm.NewError(llm.ErrorTypeUnavailable, "connection failed", true, errors.New("connection refused"))
	}

	analyzer := NewAnalyzer(router, zap.NewNop())

	_, err := analyzer.Analyze(context.Background(), &fakeConn{}, "public", "orders")
	assert.ErrorIs(t, err, apperrors.ErrModelUnavailable)
}

func TestAnalyzeModelErrorIsRecoverable(t *testing.T) {
	router := llm.NewMockRouter()
	router.Summarizer.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "", errors.New("bad request")
	}

	analyzer := NewAnalyzer(router, zap.NewNop())

	_, err := analyzer.Analyze(context.Background(), &fakeConn{}, "public", "orders")
	assert.ErrorIs(t, err, apperrors.ErrAnalysis)
}
