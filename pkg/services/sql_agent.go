package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/apperrors"
	"github.com/dbscribe/dbscribe/pkg/config"
	"github.com/dbscribe/dbscribe/pkg/llm"
	"github.com/dbscribe/dbscribe/pkg/models"
	"github.com/dbscribe/dbscribe/pkg/prompts"
	sqlguard "github.com/dbscribe/dbscribe/pkg/sql"
)

// agentState is the agent's position in the correction loop.
type agentState string

const (
	stateDrafting   agentState = "drafting"
	stateExecuting  agentState = "executing"
	stateCorrecting agentState = "correcting"
	stateAnswered   agentState = "answered"
	stateGivenUp    agentState = "given_up"
)

// maxSchemaItems caps how many tables are described for the generation
// prompt, keeping it within model context on wide databases.
const maxSchemaItems = 40

// answerSampleRows caps how many result rows are embedded in the
// answer-synthesis prompt.
const answerSampleRows = 25

// SQLAgent answers a question by generating SQL, executing it read-only,
// and self-correcting on failure up to a fixed attempt bound.
type SQLAgent struct {
	router llm.Router
	cfg    config.AgentConfig
	logger *zap.Logger
}

// NewSQLAgent creates an agent with the given attempt bound and limits.
func NewSQLAgent(router llm.Router, cfg config.AgentConfig, logger *zap.Logger) *SQLAgent {
	return &SQLAgent{
		router: router,
		cfg:    cfg,
		logger: logger.Named("sql-agent"),
	}
}

// stripFences removes markdown code fences the model may wrap around SQL.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 && !strings.ContainsAny(text[:idx], " \t") {
		// First fence line is a language tag like "sql".
		text = text[idx+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// schemaContext describes up to maxSchemaItems tables and views for the
// generation prompts.
func (a *SQLAgent) schemaContext(ctx context.Context, conn datasource.Connection) ([]*models.TableDescriptor, error) {
	schemas, err := conn.Discover(ctx)
	if err != nil {
		return nil, err
	}

	var tables []*models.TableDescriptor
	for _, schema := range schemas {
		items := append(append([]string{}, schema.Tables...), schema.Views...)
		for _, item := range items {
			if len(tables) >= maxSchemaItems {
				return tables, nil
			}
			desc, err := conn.Describe(ctx, schema.Schema, item)
			if err != nil {
				return nil, err
			}
			tables = append(tables, desc)
		}
	}
	return tables, nil
}

// Answer runs the correction loop for one question. A turn is always
// returned unless connectivity, introspection or the model itself fails;
// exhausting the attempt bound produces a given-up turn, not an error.
func (a *SQLAgent) Answer(ctx context.Context, conn datasource.Connection, question string) (*models.ChatTurn, error) {
	tables, err := a.schemaContext(ctx, conn)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables or views available", apperrors.ErrNotFound)
	}

	dialect := conn.Type()
	state := stateDrafting
	var trace models.CorrectionTrace
	var lastSQL, lastErr string

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var prompt string
		if state == stateDrafting {
			prompt = prompts.BuildSQLDraftPrompt(question, dialect, tables)
		} else {
			prompt = prompts.BuildCorrectionPrompt(question, dialect, tables, lastSQL, lastErr)
		}

		generated, err := a.router.Generate(ctx, llm.PersonaCoder, prompt, prompts.CoderSystemMessage)
		if err != nil {
			return nil, wrapModelErr("sql generation", err)
		}
		candidate := stripFences(generated)

		// The guard runs before any database contact; a rejection is a
		// correction-cycle failure like any execution error.
		stmt, err := sqlguard.EnsureReadOnly(candidate)
		if err != nil {
			lastSQL, lastErr = candidate, err.Error()
			trace = append(trace, models.SQLAttempt{Attempt: attempt, SQL: candidate, Err: lastErr})
			state = stateCorrecting
			a.logger.Debug("statement rejected by guard",
				zap.Int("attempt", attempt),
				zap.String("reason", lastErr))
			continue
		}

		state = stateExecuting
		queryCtx, cancel := context.WithTimeout(ctx, a.cfg.QueryTimeout())
		result, err := conn.ExecuteReadOnly(queryCtx, stmt, a.cfg.RowLimit)
		cancel()
		if err != nil {
			lastSQL, lastErr = stmt, err.Error()
			trace = append(trace, models.SQLAttempt{Attempt: attempt, SQL: stmt, Err: lastErr})
			state = stateCorrecting
			a.logger.Debug("execution failed",
				zap.Int("attempt", attempt),
				zap.String("error", lastErr))
			continue
		}

		trace = append(trace, models.SQLAttempt{Attempt: attempt, SQL: stmt})
		answerPrompt := prompts.BuildAnswerPrompt(question, result.Columns, result.Rows, answerSampleRows)
		answer, err := a.router.Generate(ctx, llm.PersonaSummarizer, answerPrompt, prompts.AnswerSystemMessage)
		if err != nil {
			return nil, wrapModelErr("answer synthesis", err)
		}

		state = stateAnswered
		a.logTrace(question, state, trace)
		return &models.ChatTurn{
			Question:     question,
			Mode:         models.ChatModeSQL,
			Answer:       answer,
			GeneratedSQL: stmt,
		}, nil
	}

	state = stateGivenUp
	a.logTrace(question, state, trace)
	return &models.ChatTurn{
		Question: question,
		Mode:     models.ChatModeSQL,
		Answer: fmt.Sprintf(
			"I could not produce a working query for that question after %d attempts. The last error was: %s",
			a.cfg.MaxAttempts, lastErr),
	}, nil
}

// logTrace records the full attempt sequence; the trace is not returned to
// callers.
func (a *SQLAgent) logTrace(question string, state agentState, trace models.CorrectionTrace) {
	fields := []zap.Field{
		zap.String("question", question),
		zap.String("outcome", string(state)),
		zap.Int("attempts", len(trace)),
	}
	for _, att := range trace {
		if att.Err != "" {
			fields = append(fields, zap.String(fmt.Sprintf("attempt_%d_error", att.Attempt), att.Err))
		}
	}
	a.logger.Info("chat turn complete", fields...)
}
