package models

// Metrics holds the dashboard numbers computed for one table or view.
type Metrics struct {
	// TotalRows is the exact row count at analysis time.
	TotalRows int64 `json:"total_rows"`
	// ColumnCount is the number of columns.
	ColumnCount int `json:"columns"`
	// Completeness is the percentage of non-null cells across all columns
	// and rows, rounded to the nearest integer. A zero-row table is 100.
	Completeness int `json:"completeness"`
	// DuplicateRows is the number of rows that are exact duplicates of an
	// earlier row.
	DuplicateRows int64 `json:"duplicate_rows"`
}

// AnalysisResult is the memoized triple produced for one
// (fingerprint, schema, item) key. It is created whole and replaced whole
// on forced refresh, never partially updated.
type AnalysisResult struct {
	Metrics           Metrics            `json:"metrics"`
	Summary           string             `json:"summary"`
	SchemaExplanation string             `json:"schema_explanation"`
	RawSchema         []ColumnDescriptor `json:"raw_schema"`
}
