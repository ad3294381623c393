package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup by id or unique key matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update violates a unique index.
var ErrDuplicate = errors.New("duplicate record")

// translate maps driver errors onto the package sentinels. Anything else is
// returned untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isUniqueViolation(err) {
		return &duplicateError{err: err}
	}
	return err
}

type duplicateError struct {
	err error
}

func (e *duplicateError) Error() string { return "duplicate record: " + e.err.Error() }
func (e *duplicateError) Unwrap() error { return e.err }
func (e *duplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// isUniqueViolation covers postgres (23505, or gorm's translated
// ErrDuplicatedKey) and sqlite, whose modernc driver is not recognised by
// gorm's translator.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
