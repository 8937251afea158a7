package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTrimsTrailingSemicolon(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1;", "SELECT 1"},
		{"SELECT 1 ;  ", "SELECT 1"},
		{"  SELECT 1  ", "SELECT 1"},
		{"SELECT 1;\n", "SELECT 1"},
		{"", ""},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNormalizeRejectsMultipleStatements(t *testing.T) {
	rejected := []string{
		"SELECT 1; SELECT 2",
		"SELECT 1;DROP TABLE t",
		"SELECT 1; -- comment\nSELECT 2",
	}

	for _, query := range rejected {
		_, err := Normalize(query)
		assert.ErrorIs(t, err, ErrMultipleStatements, "query: %q", query)
	}
}

func TestNormalizeIgnoresSemicolonsInStrings(t *testing.T) {
	tests := []string{
		"SELECT * FROM t WHERE note = 'a;b'",
		`SELECT * FROM t WHERE "weird;col" = 1`,
		"SELECT * FROM t WHERE note = 'it''s; fine'",
	}

	for _, query := range tests {
		got, err := Normalize(query)
		require.NoError(t, err, "query: %q", query)
		assert.Equal(t, query, got)
	}
}
