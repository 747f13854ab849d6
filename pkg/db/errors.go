package db

import "strings"

// IsUniqueViolation reports whether the error is a unique constraint
// violation. constraintName, when given, matches postgres messages that
// name the violated index; the generic markers cover sqlite, whose
// messages carry column names instead of the index name.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
