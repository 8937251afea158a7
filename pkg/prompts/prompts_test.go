package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbscribe/dbscribe/pkg/models"
)

func ordersDescriptor() *models.TableDescriptor {
	return &models.TableDescriptor{
		Schema: "public",
		Name:   "customer_orders",
		Columns: []models.ColumnDescriptor{
			{Name: "id", DataType: "integer", Nullable: false},
			{Name: "placed_at", DataType: "timestamp", Nullable: true},
		},
	}
}

func TestEntityName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"customer_orders", "customer order"},
		{"Orders", "order"},
		{"line-items", "line item"},
		{"inventory", "inventory"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EntityName(tt.in), "input: %q", tt.in)
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	metrics := models.Metrics{TotalRows: 500, ColumnCount: 2, Completeness: 97, DuplicateRows: 3}
	prompt := BuildSummaryPrompt(ordersDescriptor(), metrics)

	assert.Contains(t, prompt, "customer_orders")
	assert.Contains(t, prompt, "public")
	assert.Contains(t, prompt, "id, placed_at")
	assert.Contains(t, prompt, "500")
	assert.Contains(t, prompt, "97%")
	assert.Contains(t, prompt, "Duplicate rows: 3")
	assert.Contains(t, prompt, "business-friendly summary")
}

func TestBuildSummaryPromptViewWording(t *testing.T) {
	desc := ordersDescriptor()
	desc.IsView = true
	prompt := BuildSummaryPrompt(desc, models.Metrics{})
	assert.Contains(t, prompt, "view named 'customer_orders'")
}

func TestBuildSchemaExplanationPrompt(t *testing.T) {
	prompt := BuildSchemaExplanationPrompt(ordersDescriptor())

	assert.Contains(t, prompt, "id: integer (required)")
	assert.Contains(t, prompt, "placed_at: timestamp (optional)")
	assert.Contains(t, prompt, "non-technical")
}

func TestBuildSQLDraftPrompt(t *testing.T) {
	prompt := BuildSQLDraftPrompt("How many orders?", "postgres", []*models.TableDescriptor{ordersDescriptor()})

	assert.Contains(t, prompt, "Database dialect: postgres")
	assert.Contains(t, prompt, "public.customer_orders")
	assert.Contains(t, prompt, "id integer")
	assert.Contains(t, prompt, "How many orders?")
}

func TestBuildCorrectionPromptCarriesVerbatimError(t *testing.T) {
	dbError := `ERROR: column "nosuch" does not exist (SQLSTATE 42703)`
	prompt := BuildCorrectionPrompt("How many orders?", "postgres",
		[]*models.TableDescriptor{ordersDescriptor()},
		"SELECT nosuch FROM public.customer_orders", dbError)

	assert.Contains(t, prompt, dbError)
	assert.Contains(t, prompt, "SELECT nosuch FROM public.customer_orders")
	assert.Contains(t, prompt, "corrected SELECT")
}

func TestBuildAnswerPromptBoundsSample(t *testing.T) {
	rows := make([]map[string]any, 10)
	for i := range rows {
		rows[i] = map[string]any{"n": i}
	}

	prompt := BuildAnswerPrompt("how many?", []string{"n"}, rows, 3)
	assert.Contains(t, prompt, "10 row(s)")
	assert.Contains(t, prompt, "7 more rows omitted")
}

func TestBuildAnswerPromptEmptyResult(t *testing.T) {
	prompt := BuildAnswerPrompt("any rows?", []string{"n"}, nil, 5)
	assert.Contains(t, prompt, "0 row(s)")
}
