package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/rpggio/sciflow/internal/repository"
)

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// classify maps a driver error onto a repository error, or returns nil when
// no repository error applies.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return repository.ErrNotFound
	case isUniqueViolation(err):
		return repository.ErrDuplicate
	case isForeignKeyViolation(err):
		return repository.ErrForeignKeyViolation
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
