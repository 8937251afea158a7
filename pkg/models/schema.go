package models

// DefaultSchemaName is the sentinel used when the target engine has no
// schema concept (e.g. SQLite) or the item lives on the default search path.
const DefaultSchemaName = "_default_"

// SchemaDescriptor is an immutable snapshot of one schema's table and view
// names. It is rebuilt on every connect; the table and view sets are
// disjoint and lexically ordered for deterministic output.
type SchemaDescriptor struct {
	Schema string   `json:"schema"`
	Tables []string `json:"tables"`
	Views  []string `json:"views"`
}

// ColumnDescriptor describes one column. Immutable once produced.
type ColumnDescriptor struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

// TableDescriptor describes one table or view with its ordered column list.
type TableDescriptor struct {
	Schema  string             `json:"schema"`
	Name    string             `json:"name"`
	IsView  bool               `json:"is_view"`
	Columns []ColumnDescriptor `json:"columns"`
}

// ColumnNames returns the column names in declaration order.
func (t *TableDescriptor) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}
