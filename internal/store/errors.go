package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned when a write violates a required-field,
	// enum, check or foreign-key constraint.
	ErrValidation = errors.New("validation failed")
)

// postgres SQLSTATE codes mapped to store errors.
const (
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidTextRepr     = "22P02"
)

// translate maps driver errors onto the store sentinels. Unknown errors are
// returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", ErrConflict, describe(pqErr))
	case codeNotNullViolation:
		return fmt.Errorf("%w: %s is required", ErrValidation, pqErr.Column)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: referenced record does not exist (%s)", ErrValidation, pqErr.Constraint)
	case codeCheckViolation:
		return fmt.Errorf("%w: %s", ErrValidation, describe(pqErr))
	case codeInvalidTextRepr:
		return fmt.Errorf("%w: %s", ErrValidation, pqErr.Message)
	default:
		return err
	}
}

func describe(pqErr *pq.Error) string {
	if pqErr.Constraint != "" {
		return pqErr.Constraint
	}
	return pqErr.Message
}
