package db

import "strings"

// IsUniqueViolation reports whether err references a Postgres unique
// violation. When constraintName is provided, the check narrows to that
// constraint's text.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	// postgres names the violated constraint; sqlite (tests) reports
	// table.column instead, so fall back to the generic phrasings.
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
