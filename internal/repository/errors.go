// Package repository holds the storage errors shared by every sqlite
// repository. Domain services translate them into their own sentinels.
package repository

import "errors"

var (
	// ErrNotFound indicates no row matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a compare-and-set write lost to a concurrent change.
	ErrConflict = errors.New("conflict: entity was modified concurrently")
	// ErrForeignKeyViolation indicates a write referenced a missing row.
	ErrForeignKeyViolation = errors.New("foreign key violation")
	// ErrDuplicate indicates a write broke a uniqueness constraint, such as a
	// second project code or annual report for the same year.
	ErrDuplicate = errors.New("duplicate entity")
)
