package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrForeignKeyViolation is returned when a write references a missing row.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
	// ErrConstraintViolation is returned for rejected writes such as CHECK failures or missing keys.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)

// UniqueViolation identifies the column whose unique constraint rejected a write.
// It matches ErrDuplicate with errors.Is.
type UniqueViolation struct {
	Table  string
	Column string
}

func (e *UniqueViolation) Error() string {
	return fmt.Sprintf("persistence: duplicate %s.%s", e.Table, e.Column)
}

func (e *UniqueViolation) Is(target error) bool {
	return target == ErrDuplicate
}
