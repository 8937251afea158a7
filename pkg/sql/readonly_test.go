package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectStatementType(t *testing.T) {
	tests := []struct {
		sql  string
		want StatementType
	}{
		{"SELECT * FROM orders", TypeSelect},
		{"  select id from orders  ", TypeSelect},
		{"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent", TypeSelect},
		{"WITH gone AS (DELETE FROM orders RETURNING *) SELECT * FROM gone", TypeUnknown},
		{"INSERT INTO orders VALUES (1)", TypeInsert},
		{"UPDATE orders SET amount = 0", TypeUpdate},
		{"DELETE FROM orders", TypeDelete},
		{"MERGE INTO orders USING stage ON 1=1", TypeMerge},
		{"CALL refresh_stats()", TypeCall},
		{"EXEC sp_help", TypeCall},
		{"CREATE TABLE t (id int)", TypeDDL},
		{"DROP TABLE orders", TypeDDL},
		{"TRUNCATE orders", TypeDDL},
		{"GRANT SELECT ON orders TO bob", TypeDDL},
		{"BEGIN", TypeUnknown},
		{"SET search_path TO public", TypeUnknown},
		{"EXPLAIN SELECT 1", TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectStatementType(tt.sql))
		})
	}
}

func TestEnsureReadOnlyAcceptsSelect(t *testing.T) {
	stmt, err := EnsureReadOnly("SELECT id FROM orders;")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM orders", stmt)
}

func TestEnsureReadOnlyAcceptsPureCTE(t *testing.T) {
	query := "WITH big AS (SELECT * FROM orders WHERE amount > 100) SELECT COUNT(*) FROM big"
	stmt, err := EnsureReadOnly(query)
	require.NoError(t, err)
	assert.Equal(t, query, stmt)
}

func TestEnsureReadOnlyRejectsMutations(t *testing.T) {
	rejected := []string{
		"DELETE FROM orders",
		"UPDATE orders SET amount = 0",
		"INSERT INTO orders VALUES (1)",
		"MERGE INTO orders USING stage ON 1=1",
		"DROP TABLE orders",
		"TRUNCATE orders",
		"EXEC sp_who",
		"BEGIN",
		"WITH gone AS (DELETE FROM orders RETURNING *) SELECT * FROM gone",
		"",
	}

	for _, query := range rejected {
		_, err := EnsureReadOnly(query)
		require.Error(t, err, "should reject: %q", query)

		var guardErr *GuardError
		assert.ErrorAs(t, err, &guardErr)
	}
}

func TestEnsureReadOnlyRejectsStackedStatements(t *testing.T) {
	_, err := EnsureReadOnly("SELECT 1; DROP TABLE orders")
	require.Error(t, err)

	var guardErr *GuardError
	require.ErrorAs(t, err, &guardErr)
	assert.Contains(t, guardErr.Message, "single SQL statement")
}

func TestEnsureReadOnlyAllowsSemicolonInsideLiteral(t *testing.T) {
	stmt, err := EnsureReadOnly("SELECT * FROM orders WHERE note = 'a;b'")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders WHERE note = 'a;b'", stmt)
}

func TestGuardMessagesAreCorrective(t *testing.T) {
	// Rejection text is fed back to the model; it must tell the model what
	// to produce instead.
	_, err := EnsureReadOnly("DELETE FROM orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only SELECT")
}
