package db

import "strings"

// IsUniqueViolation reports whether err stems from a Postgres unique
// constraint. With a constraint name it matches that exact constraint;
// without one it matches any duplicate-key failure.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
