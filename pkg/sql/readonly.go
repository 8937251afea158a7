package sql

import (
	"regexp"
	"strings"
)

// StatementType represents the type of SQL statement.
type StatementType string

const (
	TypeSelect  StatementType = "SELECT"
	TypeInsert  StatementType = "INSERT"
	TypeUpdate  StatementType = "UPDATE"
	TypeDelete  StatementType = "DELETE"
	TypeMerge   StatementType = "MERGE"
	TypeCall    StatementType = "CALL"
	TypeDDL     StatementType = "DDL"     // CREATE, ALTER, DROP, TRUNCATE, GRANT, REVOKE
	TypeUnknown StatementType = "UNKNOWN" // Unrecognized or blocked statement types
)

// modifyingCTEPattern matches CTEs that contain data-modifying operations.
// Example: WITH deleted AS (DELETE FROM ...) SELECT * FROM deleted
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// DetectStatementType determines the type of SQL statement from its first
// keyword. WITH is treated as SELECT unless a CTE modifies data.
func DetectStatementType(sql string) StatementType {
	normalized := strings.ToUpper(strings.TrimSpace(sql))

	switch {
	case strings.HasPrefix(normalized, "SELECT"):
		return TypeSelect

	case strings.HasPrefix(normalized, "WITH"):
		if modifyingCTEPattern.MatchString(sql) {
			return TypeUnknown
		}
		return TypeSelect

	case strings.HasPrefix(normalized, "INSERT"):
		return TypeInsert

	case strings.HasPrefix(normalized, "UPDATE"):
		return TypeUpdate

	case strings.HasPrefix(normalized, "DELETE"):
		return TypeDelete

	case strings.HasPrefix(normalized, "MERGE"):
		return TypeMerge

	case strings.HasPrefix(normalized, "CALL"),
		strings.HasPrefix(normalized, "EXEC"):
		return TypeCall

	case strings.HasPrefix(normalized, "CREATE"),
		strings.HasPrefix(normalized, "ALTER"),
		strings.HasPrefix(normalized, "DROP"),
		strings.HasPrefix(normalized, "TRUNCATE"),
		strings.HasPrefix(normalized, "GRANT"),
		strings.HasPrefix(normalized, "REVOKE"):
		return TypeDDL

	// Transaction control is blocked for generated statements.
	case strings.HasPrefix(normalized, "BEGIN"),
		strings.HasPrefix(normalized, "COMMIT"),
		strings.HasPrefix(normalized, "ROLLBACK"),
		strings.HasPrefix(normalized, "SAVEPOINT"),
		strings.HasPrefix(normalized, "SET"):
		return TypeUnknown

	default:
		return TypeUnknown
	}
}

// GuardError describes why a generated statement was rejected before
// reaching the database.
type GuardError struct {
	Type    StatementType
	Message string
}

func (e *GuardError) Error() string {
	return e.Message
}

// EnsureReadOnly normalizes a generated statement and rejects anything that
// is not a single read-only SELECT (or pure-SELECT CTE). Returns the
// normalized statement on success. The rejection message is phrased for the
// correction loop: it is fed back to the model verbatim.
func EnsureReadOnly(sqlQuery string) (string, error) {
	normalized, err := Normalize(sqlQuery)
	if err != nil {
		return "", &GuardError{
			Type:    TypeUnknown,
			Message: "only a single SQL statement is allowed; remove the extra statements",
		}
	}
	if normalized == "" {
		return "", &GuardError{
			Type:    TypeUnknown,
			Message: "empty statement; produce a single SELECT query",
		}
	}

	switch stmtType := DetectStatementType(normalized); stmtType {
	case TypeSelect:
		return normalized, nil
	case TypeInsert, TypeUpdate, TypeDelete, TypeMerge, TypeCall:
		return "", &GuardError{
			Type:    stmtType,
			Message: string(stmtType) + " statements are not allowed; rewrite the query as a read-only SELECT",
		}
	case TypeDDL:
		return "", &GuardError{
			Type:    stmtType,
			Message: "DDL statements are not allowed; rewrite the query as a read-only SELECT",
		}
	default:
		return "", &GuardError{
			Type:    TypeUnknown,
			Message: "unrecognized statement type; only read-only SELECT queries are allowed",
		}
	}
}
