package prompts

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/dbscribe/dbscribe/pkg/models"
)

// EntityName turns a table name into a human-friendly singular entity name
// for prompt text, e.g. "customer_orders" -> "customer order".
func EntityName(tableName string) string {
	name := strings.ReplaceAll(tableName, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return inflection.Singular(strings.ToLower(strings.TrimSpace(name)))
}

// BuildSummaryPrompt creates the business-summary prompt for one table.
func BuildSummaryPrompt(desc *models.TableDescriptor, metrics models.Metrics) string {
	var prompt strings.Builder

	kind := "table"
	if desc.IsView {
		kind = "view"
	}

	prompt.WriteString(fmt.Sprintf("Analyze this database %s named '%s' in schema '%s'.\n", kind, desc.Name, desc.Schema))
	prompt.WriteString(fmt.Sprintf("It appears to hold %s records.\n\n", EntityName(desc.Name)))

	prompt.WriteString(fmt.Sprintf("Columns: %s\n", strings.Join(desc.ColumnNames(), ", ")))
	prompt.WriteString(fmt.Sprintf("Row count: %d\n", metrics.TotalRows))
	prompt.WriteString(fmt.Sprintf("Data completeness: %d%% of cells are populated\n", metrics.Completeness))
	if metrics.DuplicateRows > 0 {
		prompt.WriteString(fmt.Sprintf("Duplicate rows: %d\n", metrics.DuplicateRows))
	}

	prompt.WriteString("\nWrite a brief business-friendly summary (2-3 sentences) describing what this data represents, ")
	prompt.WriteString("and a use case for why a business would analyze it.\n")

	return prompt.String()
}

// BuildSchemaExplanationPrompt creates the prompt that explains a table's
// technical schema to a non-technical reader.
func BuildSchemaExplanationPrompt(desc *models.TableDescriptor) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Explain the technical schema of table '%s' to a non-technical user.\n\n", desc.Name))
	prompt.WriteString("Columns and types:\n")
	for _, col := range desc.Columns {
		nullInfo := "required"
		if col.Nullable {
			nullInfo = "optional"
		}
		prompt.WriteString(fmt.Sprintf("- %s: %s (%s)\n", col.Name, col.DataType, nullInfo))
	}

	prompt.WriteString("\nExplain the relationships between columns if obvious (e.g. an ID linking to other things). ")
	prompt.WriteString("Keep it human-friendly.\n")

	return prompt.String()
}

// SummarySystemMessage is the system message for analysis generation.
const SummarySystemMessage = "You are a data analyst who writes clear, concise documentation of database tables for business users. Never invent columns or values that are not in the provided metadata."
