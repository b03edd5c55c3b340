// Package store is the sqlx-backed persistence layer for categories, topics,
// users and their per-user state.
package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCategoryCycle is returned when a parent chain loops back on itself.
	ErrCategoryCycle = errors.New("category parent chain contains a cycle")
)

// IsUniqueConstraintError reports whether err came from a unique index
// violation on any of the supported drivers.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // SQLite & PostgreSQL
		strings.Contains(msg, "duplicate key") || // PostgreSQL
		strings.Contains(msg, "duplicate entry") // MySQL
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
