package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/adapters/datasource"
	"github.com/dbscribe/dbscribe/pkg/apperrors"
	"github.com/dbscribe/dbscribe/pkg/llm"
	"github.com/dbscribe/dbscribe/pkg/models"
	"github.com/dbscribe/dbscribe/pkg/prompts"
)

// Analyzer runs the full analysis pipeline for one table or view:
// introspection, aggregate statistics, then two summarizer calls.
type Analyzer struct {
	router llm.Router
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer backed by the given model router.
func NewAnalyzer(router llm.Router, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		router: router,
		logger: logger.Named("analyzer"),
	}
}

// completeness returns the percentage of non-null cells, rounded to the
// nearest integer. A table with no rows or no columns has nothing missing
// and scores 100.
func completeness(stats *datasource.TableStats, columnCount int) int {
	totalCells := stats.RowCount * int64(columnCount)
	if totalCells == 0 {
		return 100
	}

	var nullCells int64
	for _, nc := range stats.NullCounts {
		nullCells += nc.Nulls
	}

	nonNull := totalCells - nullCells
	return int(math.Round(100 * float64(nonNull) / float64(totalCells)))
}

// wrapModelErr maps a model call failure onto the right sentinel.
func wrapModelErr(stage string, err error) error {
	if llm.IsUnavailable(err) {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrModelUnavailable, stage, err)
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrAnalysis, stage, err)
}

// Analyze produces a complete AnalysisResult for one table or view. Any
// failure returns a nil result; partial results are never produced.
func (a *Analyzer) Analyze(ctx context.Context, conn datasource.Connection, schema, item string) (*models.AnalysisResult, error) {
	start := time.Now()

	desc, err := conn.Describe(ctx, schema, item)
	if err != nil {
		return nil, err
	}

	stats, err := conn.AggregateStats(ctx, schema, item)
	if err != nil {
		return nil, err
	}

	metrics := models.Metrics{
		TotalRows:     stats.RowCount,
		ColumnCount:   len(desc.Columns),
		Completeness:  completeness(stats, len(desc.Columns)),
		DuplicateRows: stats.DuplicateRows,
	}

	summary, err := a.router.Generate(ctx, llm.PersonaSummarizer,
		prompts.BuildSummaryPrompt(desc, metrics), prompts.SummarySystemMessage)
	if err != nil {
		return nil, wrapModelErr("business summary", err)
	}

	explanation, err := a.router.Generate(ctx, llm.PersonaSummarizer,
		prompts.BuildSchemaExplanationPrompt(desc), prompts.SummarySystemMessage)
	if err != nil {
		return nil, wrapModelErr("schema explanation", err)
	}

	a.logger.Info("analysis complete",
		zap.String("schema", desc.Schema),
		zap.String("item", desc.Name),
		zap.Int64("rows", metrics.TotalRows),
		zap.Int("completeness", metrics.Completeness),
		zap.Duration("elapsed", time.Since(start)))

	return &models.AnalysisResult{
		Metrics:           metrics,
		Summary:           summary,
		SchemaExplanation: explanation,
		RawSchema:         desc.Columns,
	}, nil
}
