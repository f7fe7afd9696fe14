package mssql

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidTableName indicates a table identifier failed validation.
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrQueryNotAllowed indicates a free-form query is not a SELECT statement.
	ErrQueryNotAllowed = errors.New("only SELECT queries are allowed")
)

// tableNamePattern is the full allow-list for table identifiers. Anything
// outside [A-Za-z0-9_] is rejected outright — no escaping, no partial
// sanitization. Rejection is binary.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// QuoteTableName validates a table identifier and wraps it in SQL Server
// bracket quoting so it cannot be reinterpreted as SQL syntax when
// interpolated into a statement.
func QuoteTableName(table string) (string, error) {
	if !tableNamePattern.MatchString(table) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}
	return "[" + table + "]", nil
}

// CheckReadOnly accepts query text whose first non-whitespace token is
// SELECT, case-insensitively.
//
// This is a syntactic prefix check, not a parser: it does not detect
// stacked statements, comment smuggling, or non-SELECT CTEs. It is a
// guard for a trusted internal tool, not a general SQL firewall.
func CheckReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if len(trimmed) < len("SELECT") || !strings.EqualFold(trimmed[:len("SELECT")], "SELECT") {
		return ErrQueryNotAllowed
	}
	return nil
}
