package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrMultipleRows        = errors.New("multiple rows match filter")
	ErrUnknownField        = errors.New("unknown field")
	ErrConstraintViolation = errors.New("constraint violation")
)

// ConstraintError is a storage-level integrity failure (FK, NOT NULL, unique, check).
// It matches ErrConstraintViolation with errors.Is.
type ConstraintError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("constraint violation on %s: %s", e.Table, e.Constraint)
	}
	return fmt.Sprintf("constraint violation on %s", e.Table)
}

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraintViolation }

func (e *ConstraintError) Unwrap() error { return e.Err }

// translateError turns Postgres integrity errors (SQLSTATE class 23) into *ConstraintError.
func translateError(table string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		constraint := pqErr.Constraint
		if constraint == "" && pqErr.Column != "" {
			constraint = pqErr.Column + " " + pqErr.Code.Name()
		}
		return &ConstraintError{Table: table, Constraint: constraint, Err: err}
	}
	return err
}

func unknownField(table, field string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownField, table, field)
}
