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
	"github.com/dbscribe/dbscribe/pkg/config"
	"github.com/dbscribe/dbscribe/pkg/llm"
	"github.com/dbscribe/dbscribe/pkg/models"
)

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxAttempts:         3,
		RowLimit:            100,
		QueryTimeoutSeconds: 5,
	}
}

func newTestAgent(router llm.Router) *SQLAgent {
	return NewSQLAgent(router, testAgentConfig(), zap.NewNop())
}

func TestAnswerFirstAttemptSuccess(t *testing.T) {
	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "SELECT COUNT(*) FROM public.orders", nil
	}
	router.Summarizer.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "There are 42 orders.", nil
	}

	agent := newTestAgent(router)
	conn := &fakeConn{}

	turn, err := agent.Answer(context.Background(), conn, "How many orders are there?")
	require.NoError(t, err)

	assert.Equal(t, models.ChatModeSQL, turn.Mode)
	assert.Equal(t, "There are 42 orders.", turn.Answer)
	assert.Equal(t, "SELECT COUNT(*) FROM public.orders", turn.GeneratedSQL)
	assert.Equal(t, int64(1), conn.executeCalls.Load())
	assert.Equal(t, []int{100}, conn.executedLimits)
}

func TestAnswerStripsMarkdownFences(t *testing.T) {
	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "```sql\nSELECT id FROM public.orders;\n```", nil
	}
	router.Summarizer.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "Here are the ids.", nil
	}

	agent := newTestAgent(router)
	conn := &fakeConn{}

	turn, err := agent.Answer(context.Background(), conn, "List order ids")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM public.orders", turn.GeneratedSQL)
}

func TestAnswerCorrectsAfterExecutionFailure(t *testing.T) {
	attempt := 0
	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		attempt++
		if attempt == 1 {
			return "SELECT nosuch FROM public.orders", nil
		}
		// The correction prompt must carry the verbatim database error.
		assert.Contains(t, prompt, `column "nosuch" does not exist`)
		assert.Contains(t, prompt, "SELECT nosuch FROM public.orders")
		return "SELECT id FROM public.orders", nil
	}
	router.Summarizer.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "Fixed on the second try.", nil
	}

	conn := &fakeConn{
		ExecuteReadOnlyFunc: func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
			if sqlQuery == "SELECT nosuch FROM public.orders" {
				return nil, fmt.Errorf("%w: ERROR: column \"nosuch\" does not exist", apperrors.ErrExecution)
			}
			return &datasource.QueryResult{Columns: []string{"id"}, Rows: nil, RowCount: 0}, nil
		},
	}

	agent := newTestAgent(router)
	turn, err := agent.Answer(context.Background(), conn, "List order ids")
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM public.orders", turn.GeneratedSQL)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, int64(2), conn.executeCalls.Load())
}

func TestAnswerGivesUpAfterMaxAttempts(t *testing.T) {
	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "SELECT broken FROM public.orders", nil
	}

	conn := &fakeConn{
		ExecuteReadOnlyFunc: func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
			return nil, errors.New("syntax error at or near \"broken\"")
		},
	}

	agent := newTestAgent(router)
	turn, err := agent.Answer(context.Background(), conn, "impossible question")
	require.NoError(t, err)

	assert.Equal(t, 3, router.Coder.GenerateCalls, "exactly MaxAttempts generations")
	assert.Equal(t, int64(3), conn.executeCalls.Load())
	assert.Empty(t, turn.GeneratedSQL)
	assert.Contains(t, turn.Answer, "3 attempts")
	assert.Contains(t, turn.Answer, "syntax error")
	assert.Zero(t, router.Summarizer.GenerateCalls, "no answer synthesis on give-up")
}

func TestAnswerMutationNeverReachesDatabase(t *testing.T) {
	generated := []string{
		"DELETE FROM public.orders",
		"DROP TABLE public.orders",
		"UPDATE public.orders SET amount = 0",
	}
	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return generated[router.Coder.GenerateCalls-1], nil
	}

	agent := newTestAgent(router)
	conn := &fakeConn{}

	turn, err := agent.Answer(context.Background(), conn, "delete everything")
	require.NoError(t, err)

	assert.Zero(t, conn.executeCalls.Load(), "rejected statements never execute")
	assert.Equal(t, 3, router.Coder.GenerateCalls)
	assert.Contains(t, turn.Answer, "3 attempts")
}

func TestAnswerGuardRejectionFeedsCorrection(t *testing.T) {
	attempt := 0
	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		attempt++
		if attempt == 1 {
			return "DELETE FROM public.orders", nil
		}
		assert.Contains(t, prompt, "read-only SELECT")
		return "SELECT COUNT(*) FROM public.orders", nil
	}
	router.Summarizer.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "42 orders remain.", nil
	}

	agent := newTestAgent(router)
	conn := &fakeConn{}

	turn, err := agent.Answer(context.Background(), conn, "How many orders?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM public.orders", turn.GeneratedSQL)
	assert.Equal(t, int64(1), conn.executeCalls.Load())
}

func TestAnswerStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		cancel() // cancel after the first generation
		return "SELECT broken FROM public.orders", nil
	}

	conn := &fakeConn{
		ExecuteReadOnlyFunc: func(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryResult, error) {
			return nil, errors.New("still broken")
		},
	}

	agent := newTestAgent(router)
	_, err := agent.Answer(ctx, conn, "doomed question")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, router.Coder.GenerateCalls, "no further attempts after cancel")
}

func TestAnswerModelUnavailable(t *testing.T) {
	router := llm.NewMockRouter()
	router.Coder.GenerateFunc = func(ctx context.Context, prompt, system string) (string, error) {
		return "", llm.NewError(llm.ErrorTypeUnavailable, "connection failed", true, errors.New("connection refused"))
	}

	agent := newTestAgent(router)
	_, err := agent.Answer(context.Background(), &fakeConn{}, "any question")
	require.ErrorIs(t, err, apperrors.ErrModelUnavailable)
}

func TestAnswerEmptyDatabase(t *testing.T) {
	router := llm.NewMockRouter()
	conn := &fakeConn{
		DiscoverFunc: func(ctx context.Context) ([]models.SchemaDescriptor, error) {
			return nil, nil
		},
	}

	agent := newTestAgent(router)
	_, err := agent.Answer(context.Background(), conn, "anything")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Zero(t, router.Coder.GenerateCalls)
}
