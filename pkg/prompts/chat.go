package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dbscribe/dbscribe/pkg/models"
)

// CoderSystemMessage constrains the SQL-generation persona to a single
// read-only statement with no prose around it.
const CoderSystemMessage = "You are an expert SQL developer. Respond with exactly one SELECT statement and nothing else: no explanations, no markdown fences, no trailing semicolon. Never write statements that modify data or schema."

// AnswerSystemMessage is the system message used when turning query
// results back into a natural-language answer.
const AnswerSystemMessage = "You are a data analyst answering questions about query results. Base your answer only on the rows provided. If the rows do not answer the question, say so."

// writeSchemaSection renders the known tables and columns for SQL prompts.
func writeSchemaSection(prompt *strings.Builder, dialect string, tables []*models.TableDescriptor) {
	prompt.WriteString(fmt.Sprintf("Database dialect: %s\n\n", dialect))
	prompt.WriteString("Available tables:\n")
	for _, t := range tables {
		prompt.WriteString(fmt.Sprintf("- %s.%s (", t.Schema, t.Name))
		parts := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			parts[i] = fmt.Sprintf("%s %s", col.Name, col.DataType)
		}
		prompt.WriteString(strings.Join(parts, ", "))
		prompt.WriteString(")\n")
	}
}

// BuildSQLDraftPrompt creates the first-attempt SQL generation prompt.
func BuildSQLDraftPrompt(question, dialect string, tables []*models.TableDescriptor) string {
	var prompt strings.Builder

	writeSchemaSection(&prompt, dialect, tables)

	prompt.WriteString("\nWrite a single read-only SELECT statement that answers this question:\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\nUse only the tables and columns listed above. Qualify table names with their schema.")

	return prompt.String()
}

// BuildCorrectionPrompt creates the retry prompt after a failed attempt.
// The database error is passed through verbatim so the model sees exactly
// what the engine rejected.
func BuildCorrectionPrompt(question, dialect string, tables []*models.TableDescriptor, failedSQL, dbError string) string {
	var prompt strings.Builder

	writeSchemaSection(&prompt, dialect, tables)

	prompt.WriteString("\nThe question was:\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\nThis SQL failed:\n")
	prompt.WriteString(failedSQL)
	prompt.WriteString("\n\nThe database returned this error:\n")
	prompt.WriteString(dbError)
	prompt.WriteString("\n\nWrite a corrected SELECT statement that fixes the error and answers the question.")

	return prompt.String()
}

// BuildAnswerPrompt creates the prompt that summarizes query results into a
// natural-language answer. At most sampleLimit rows are embedded.
func BuildAnswerPrompt(question string, columns []string, rows []map[string]any, sampleLimit int) string {
	var prompt strings.Builder

	prompt.WriteString("Question:\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\nQuery returned ")
	prompt.WriteString(fmt.Sprintf("%d row(s). Columns: %s\n", len(rows), strings.Join(columns, ", ")))

	if sampleLimit <= 0 || sampleLimit > len(rows) {
		sampleLimit = len(rows)
	}
	if sampleLimit > 0 {
		prompt.WriteString("\nRows:\n")
		for _, row := range rows[:sampleLimit] {
			// json.Marshal keeps the sample compact and unambiguous for
			// the model.
			encoded, err := json.Marshal(row)
			if err != nil {
				continue
			}
			prompt.Write(encoded)
			prompt.WriteString("\n")
		}
		if sampleLimit < len(rows) {
			prompt.WriteString(fmt.Sprintf("(%d more rows omitted)\n", len(rows)-sampleLimit))
		}
	}

	prompt.WriteString("\nAnswer the question in plain language based on these rows.")

	return prompt.String()
}
